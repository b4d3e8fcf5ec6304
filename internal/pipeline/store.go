package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wonny/supplycast/internal/contracts"
)

var (
	// ErrExecuteNotFound is returned when an execute id has no live row
	ErrExecuteNotFound = errors.New("execute not found")

	// ErrExecutionNotFound is returned when dispatching an unknown execution
	ErrExecutionNotFound = errors.New("execution not found")
)

// Store is the persisted state the stages read and advance.
// Every status change goes through Transition, which must be a conditional update.
type Store interface {
	// ListByStatus returns live executes at exactly status, oldest change first
	ListByStatus(ctx context.Context, status contracts.Status) ([]contracts.WorkItem, error)

	// ListStale returns live executes at status whose last change is before cutoff
	ListStale(ctx context.Context, status contracts.Status, cutoff time.Time) ([]contracts.WorkItem, error)

	// Get returns one execute, nil when it does not exist
	Get(ctx context.Context, executeID string) (*contracts.WorkItem, error)

	// Transition moves an execute from → to. ErrClaimLost when the row is no longer at from.
	Transition(ctx context.Context, executeID string, from, to contracts.Status) error

	// ResolveParameters returns the model schema with the execution overrides applied
	ResolveParameters(ctx context.Context, executionID string) ([]contracts.ResolvedParameter, error)

	// UpdateHeader writes the valorization totals on the execute
	UpdateHeader(ctx context.Context, executeID string, h contracts.HeaderMetrics) error

	// Dispatch creates a new execute at status 10 and makes it the last one
	Dispatch(ctx context.Context, executionID string) (*contracts.ExecutionExecute, error)
}

// resolveParameter picks the override when it is set, else the schema default
func resolveParameter(p contracts.ModelParameter, override *string) contracts.ResolvedParameter {
	rp := contracts.ResolvedParameter{
		Name:     p.Name,
		DataType: p.DataType,
		Value:    p.DefaultValue,
	}
	if override != nil && strings.TrimSpace(*override) != "" {
		rp.Value = *override
		rp.Override = true
	}
	return rp
}
