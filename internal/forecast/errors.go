package forecast

import "errors"

var (
	// ErrInvalidWindow is returned when the window cannot drive the selected algorithm
	ErrInvalidWindow = errors.New("invalid forecast window")

	// ErrInsufficientHistory marks a series too short for the model
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrUnknownAlgorithm is returned for a method name outside ALGO_01..06
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrFitFailed marks a series whose model could not be fitted
	ErrFitFailed = errors.New("model fit failed")
)

// ErrInvalidParams wraps a parameter set that failed validation
var ErrInvalidParams = errors.New("invalid algorithm parameters")
