package contracts

import (
	"strconv"
	"strings"
	"time"
)

// Algorithm names one of the six forecasting methods (model "method" column)
type Algorithm string

const (
	AlgoWeightedAverage Algorithm = "ALGO_01" // 가중 3기간 평균
	AlgoHolt            Algorithm = "ALGO_02" // Holt 이중 지수평활 (추세)
	AlgoHoltWinters     Algorithm = "ALGO_03" // Holt-Winters 삼중 지수평활 (추세+계절성)
	AlgoEWMA            Algorithm = "ALGO_04" // 지수가중 이동평균
	AlgoTrailingAverage Algorithm = "ALGO_05" // 단순 최근 30일 평균
	AlgoWeeklyHolt      Algorithm = "ALGO_06" // 주간 집계 Holt
)

// AllAlgorithms returns the algorithms in catalogue order
func AllAlgorithms() []Algorithm {
	return []Algorithm{
		AlgoWeightedAverage,
		AlgoHolt,
		AlgoHoltWinters,
		AlgoEWMA,
		AlgoTrailingAverage,
		AlgoWeeklyHolt,
	}
}

// IsValid reports whether a is a known algorithm
func (a Algorithm) IsValid() bool {
	for _, known := range AllAlgorithms() {
		if a == known {
			return true
		}
	}
	return false
}

// Execution is one configured forecast job for a supplier + model
type Execution struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"` // {ext_supplier_code}_{label}_{method}
	Description     string    `json:"description"`
	ModelID         string    `json:"supply_forecast_model_id"`
	Method          Algorithm `json:"method"`
	ExtSupplierCode int64     `json:"ext_supplier_code"`
	SupplierID      string    `json:"supplier_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// Label returns the cache label shared by every algorithm run of the supplier
// (the execution name up to "_ALGO")
func (e Execution) Label() string {
	if i := strings.Index(e.Name, "_ALGO"); i >= 0 {
		return e.Name[:i]
	}
	return e.Name
}

// ExecutionName builds the canonical execution name
func ExecutionName(extSupplierCode int64, supplierName string, method Algorithm) string {
	label := supplierName
	if fields := strings.Fields(supplierName); len(fields) > 0 {
		label = fields[0]
	}
	return strings.Join([]string{strconv.FormatInt(extSupplierCode, 10), label, string(method)}, "_")
}

// ExecutionExecute is one run instance of an Execution
type ExecutionExecute struct {
	ID            string     `json:"id"`
	ExecutionID   string     `json:"supply_forecast_execution_id"`
	ScheduleID    *string    `json:"supply_forecast_execution_schedule_id,omitempty"`
	Status        Status     `json:"status"`
	StartedAt     *time.Time `json:"start_execution,omitempty"`
	EndedAt       *time.Time `json:"end_execution,omitempty"`
	LastExecution bool       `json:"last_execution"`
	Timestamp     time.Time  `json:"timestamp"` // 마지막 상태 변경 시각 (watchdog 기준)
	Deleted       bool       `json:"deleted"`
}

// WorkItem is an ExecutionExecute joined with its Execution, as read by a stage batch
type WorkItem struct {
	Execute   ExecutionExecute `json:"execute"`
	Execution Execution        `json:"execution"`
}

// ModelParameter is one entry of a model's declared parameter schema
type ModelParameter struct {
	ID           string `json:"id"`
	ModelID      string `json:"supply_forecast_model_id"`
	Name         string `json:"name"`
	DataType     string `json:"data_type"` // int, float, string
	DefaultValue string `json:"default_value"`
}

// ExecutionParameter is a named override bound to one Execution
type ExecutionParameter struct {
	ID               string    `json:"id"`
	ExecutionID      string    `json:"supply_forecast_execution_id"`
	ModelParameterID string    `json:"supply_forecast_model_parameter_id"`
	Value            string    `json:"value"`
	Timestamp        time.Time `json:"timestamp"`
}

// ResolvedParameter is a schema entry with its effective value
type ResolvedParameter struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Value    string `json:"value"`
	Override bool   `json:"override"`
}

// HeaderMetrics are the valorization totals written on the execute header
type HeaderMetrics struct {
	MonthlySalesInMillions     float64 `json:"monthly_sales_in_millions"`
	MonthlyPurchasesInMillions float64 `json:"monthly_purchases_in_millions"`
	MonthlyNetMarginInMillions float64 `json:"monthly_net_margin_in_millions"`
	TotalProducts              int     `json:"total_products"`
	TotalUnits                 float64 `json:"total_units"`
	Graphic                    string  `json:"graphic"`
}
