package pipeline

import (
	"errors"
	"os"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/chart"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/internal/publication"
	"github.com/wonny/supplycast/internal/reference"
	"github.com/wonny/supplycast/pkg/database"
)

// ErrArtifact wraps failures reading or writing a pipeline artifact
var ErrArtifact = errors.New("artifact i/o failed")

// Classify maps an item error onto the failure taxonomy
func Classify(err error) contracts.FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, database.ErrUnavailable):
		return contracts.FailureConnectivity
	case errors.Is(err, reference.ErrMissingMapping),
		errors.Is(err, publication.ErrMissingIDs):
		return contracts.FailureReferential
	case errors.Is(err, publication.ErrPartialPublish):
		return contracts.FailurePartialPublish
	case errors.Is(err, forecast.ErrFitFailed),
		errors.Is(err, forecast.ErrInsufficientHistory):
		return contracts.FailureFit
	case errors.Is(err, ErrArtifact),
		errors.Is(err, artifacts.ErrMissingColumn),
		errors.Is(err, chart.ErrPayloadTooLarge),
		errors.Is(err, os.ErrNotExist):
		return contracts.FailureSerialization
	case errors.Is(err, forecast.ErrInvalidParams),
		errors.Is(err, forecast.ErrInvalidWindow),
		errors.Is(err, forecast.ErrUnknownAlgorithm),
		errors.Is(err, contracts.ErrIllegalTransition),
		errors.Is(err, contracts.ErrClaimLost):
		return contracts.FailureValidation
	default:
		return contracts.FailureInternal
	}
}
