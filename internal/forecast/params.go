package forecast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/supplycast/internal/contracts"
)

// 파라미터 이름 (spl_supply_forecast_model_parameter.name)
const (
	ParamWindow = "1_Window"
	ParamF1     = "f1"
	ParamF2     = "f2"
	ParamF3     = "f3"
)

// DefaultWindow is used when the window parameter is absent or unparsable
const DefaultWindow = 30

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params are the tuning inputs of one algorithm run
type Params struct {
	Window int `validate:"gte=1"`

	// ALGO_01
	WeightLast     int `validate:"gte=0"`
	WeightPrevious int `validate:"gte=0"`
	WeightSameYear int `validate:"gte=0"`

	// ALGO_03
	Period   int       `validate:"gte=1"`
	Trend    Component `validate:"oneof=add mul none"`
	Seasonal Component `validate:"oneof=add mul none"`

	// ALGO_04
	Alpha float64 `validate:"gt=0,lte=1"`
}

// DefaultParams returns the defaults for every algorithm
func DefaultParams() Params {
	return Params{
		Window:         DefaultWindow,
		WeightLast:     77,
		WeightPrevious: 22,
		WeightSameYear: 11,
		Period:         7,
		Trend:          ComponentAdditive,
		Seasonal:       ComponentAdditive,
		Alpha:          0.5,
	}
}

// Validate checks the parameters for algo
func (p Params) Validate(algo contracts.Algorithm) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidParams, describeValidation(err))
	}
	if algo == contracts.AlgoWeightedAverage && p.WeightLast+p.WeightPrevious+p.WeightSameYear == 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidParams)
	}
	return nil
}

// FromResolved maps resolved execution parameters onto the algorithm inputs.
// f1/f2/f3 mean different things per algorithm:
//
//	ALGO_01: weights for last / previous / same-year
//	ALGO_03: seasonal period / trend component / seasonal component
//	ALGO_04: f1 = alpha
func FromResolved(algo contracts.Algorithm, resolved []contracts.ResolvedParameter) (Params, error) {
	if !algo.IsValid() {
		return Params{}, fmt.Errorf("%q: %w", algo, ErrUnknownAlgorithm)
	}

	values := make(map[string]string, len(resolved))
	for _, rp := range resolved {
		values[rp.Name] = strings.TrimSpace(rp.Value)
	}

	p := DefaultParams()
	if v, ok := values[ParamWindow]; ok {
		// "45.0" 같은 값도 허용
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.Window = int(f)
		}
	}

	var err error
	switch algo {
	case contracts.AlgoWeightedAverage:
		if p.WeightLast, err = intParam(values, ParamF1, p.WeightLast); err != nil {
			return Params{}, err
		}
		if p.WeightPrevious, err = intParam(values, ParamF2, p.WeightPrevious); err != nil {
			return Params{}, err
		}
		if p.WeightSameYear, err = intParam(values, ParamF3, p.WeightSameYear); err != nil {
			return Params{}, err
		}
	case contracts.AlgoHoltWinters:
		if p.Period, err = intParam(values, ParamF1, p.Period); err != nil {
			return Params{}, err
		}
		if v := values[ParamF2]; v != "" {
			p.Trend = Component(strings.ToLower(v))
		}
		if v := values[ParamF3]; v != "" {
			p.Seasonal = Component(strings.ToLower(v))
		}
	case contracts.AlgoEWMA:
		if v := values[ParamF1]; v != "" {
			if p.Alpha, err = strconv.ParseFloat(v, 64); err != nil {
				return Params{}, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParams, ParamF1, v)
			}
		}
	}

	if err := p.Validate(algo); err != nil {
		return Params{}, err
	}
	return p, nil
}

func intParam(values map[string]string, name string, def int) (int, error) {
	v := values[name]
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParams, name, v)
	}
	return int(f), nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s=%s (got %v)", fe.StructField(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return strings.Join(parts, "; ")
}
