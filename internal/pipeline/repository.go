package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/supplycast/internal/contracts"
)

// Repository handles execute state persistence
// ⭐ SSOT: execute 상태 변경은 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 repository 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workItemSelect = `
	SELECT
		e.id::text,
		e.supply_forecast_execution_id::text,
		e.supply_forecast_execution_schedule_id::text,
		e.supply_forecast_execution_status_id,
		e.start_execution,
		e.end_execution,
		e.last_execution,
		e."timestamp",
		e.deleted,
		x.id::text,
		x.name,
		COALESCE(x.description, ''),
		x.supply_forecast_model_id::text,
		m.method,
		x.ext_supplier_code,
		COALESCE(x.supplier_id::text, ''),
		x."timestamp"
	FROM spl_supply_forecast_execution_execute e
	JOIN spl_supply_forecast_execution x ON x.id = e.supply_forecast_execution_id
	JOIN spl_supply_forecast_model m ON m.id = x.supply_forecast_model_id
`

func scanWorkItem(row pgx.Row) (contracts.WorkItem, error) {
	var (
		it     contracts.WorkItem
		status int
		method string
	)
	err := row.Scan(
		&it.Execute.ID,
		&it.Execute.ExecutionID,
		&it.Execute.ScheduleID,
		&status,
		&it.Execute.StartedAt,
		&it.Execute.EndedAt,
		&it.Execute.LastExecution,
		&it.Execute.Timestamp,
		&it.Execute.Deleted,
		&it.Execution.ID,
		&it.Execution.Name,
		&it.Execution.Description,
		&it.Execution.ModelID,
		&method,
		&it.Execution.ExtSupplierCode,
		&it.Execution.SupplierID,
		&it.Execution.Timestamp,
	)
	if err != nil {
		return it, err
	}

	st, err := contracts.ParseStatus(status)
	if err != nil {
		return it, err
	}
	it.Execute.Status = st
	it.Execution.Method = contracts.Algorithm(method)
	return it, nil
}

func (r *Repository) queryWorkItems(ctx context.Context, query string, args ...any) ([]contracts.WorkItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []contracts.WorkItem
	for rows.Next() {
		it, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execute: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListByStatus returns live executes at exactly status
func (r *Repository) ListByStatus(ctx context.Context, status contracts.Status) ([]contracts.WorkItem, error) {
	query := workItemSelect + `
		WHERE e.supply_forecast_execution_status_id = $1
		  AND e.deleted = false
		ORDER BY e."timestamp", e.id
	`
	items, err := r.queryWorkItems(ctx, query, int(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list executes at %d: %w", status, err)
	}
	return items, nil
}

// ListStale returns live executes at status whose timestamp is before cutoff
func (r *Repository) ListStale(ctx context.Context, status contracts.Status, cutoff time.Time) ([]contracts.WorkItem, error) {
	query := workItemSelect + `
		WHERE e.supply_forecast_execution_status_id = $1
		  AND e.deleted = false
		  AND e."timestamp" < $2
		ORDER BY e."timestamp", e.id
	`
	items, err := r.queryWorkItems(ctx, query, int(status), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale executes at %d: %w", status, err)
	}
	return items, nil
}

// Get returns one live execute, nil when absent
func (r *Repository) Get(ctx context.Context, executeID string) (*contracts.WorkItem, error) {
	query := workItemSelect + `
		WHERE e.id = $1 AND e.deleted = false
	`
	it, err := scanWorkItem(r.pool.QueryRow(ctx, query, executeID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execute %s: %w", executeID, err)
	}
	return &it, nil
}

// Transition atomically moves an execute from → to.
// end_execution is stamped on reaching 50.
func (r *Repository) Transition(ctx context.Context, executeID string, from, to contracts.Status) error {
	if err := contracts.ValidateTransition(from, to); err != nil {
		return err
	}

	query := `
		UPDATE spl_supply_forecast_execution_execute
		SET supply_forecast_execution_status_id = $3,
		    "timestamp" = now(),
		    end_execution = CASE WHEN $3 = 50 THEN now() ELSE end_execution END
		WHERE id = $1
		  AND supply_forecast_execution_status_id = $2
		  AND deleted = false
	`

	tag, err := r.pool.Exec(ctx, query, executeID, int(from), int(to))
	if err != nil {
		return fmt.Errorf("failed to update execute %s status: %w", executeID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s at %d", contracts.ErrClaimLost, executeID, from)
	}
	return nil
}

// ResolveParameters returns the model schema of an execution with overrides applied
func (r *Repository) ResolveParameters(ctx context.Context, executionID string) ([]contracts.ResolvedParameter, error) {
	query := `
		SELECT p.id::text, p.supply_forecast_model_id::text, p.name, p.data_type, p.default_value, ep.value
		FROM spl_supply_forecast_execution x
		JOIN spl_supply_forecast_model_parameter p
		  ON p.supply_forecast_model_id = x.supply_forecast_model_id
		LEFT JOIN spl_supply_forecast_execution_parameter ep
		  ON ep.supply_forecast_execution_id = x.id
		 AND ep.supply_forecast_model_parameter_id = p.id
		WHERE x.id = $1
		ORDER BY p.name
	`

	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	var out []contracts.ResolvedParameter
	for rows.Next() {
		var (
			p        contracts.ModelParameter
			override *string
		)
		if err := rows.Scan(&p.ID, &p.ModelID, &p.Name, &p.DataType, &p.DefaultValue, &override); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		out = append(out, resolveParameter(p, override))
	}
	return out, rows.Err()
}

// UpdateHeader writes the valorization totals on the execute
func (r *Repository) UpdateHeader(ctx context.Context, executeID string, h contracts.HeaderMetrics) error {
	query := `
		UPDATE spl_supply_forecast_execution_execute
		SET monthly_sales_in_millions = $2,
		    monthly_purchases_in_millions = $3,
		    monthly_net_margin_in_millions = $4,
		    total_products = $5,
		    total_units = $6,
		    graphic = $7
		WHERE id = $1 AND deleted = false
	`

	tag, err := r.pool.Exec(ctx, query, executeID,
		h.MonthlySalesInMillions, h.MonthlyPurchasesInMillions, h.MonthlyNetMarginInMillions,
		h.TotalProducts, h.TotalUnits, h.Graphic,
	)
	if err != nil {
		return fmt.Errorf("failed to update header %s: %w", executeID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrExecuteNotFound, executeID)
	}
	return nil
}

// Dispatch creates a new execute at status 10.
// Older executes of the same execution lose last_execution in the same transaction.
func (r *Repository) Dispatch(ctx context.Context, executionID string) (*contracts.ExecutionExecute, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin dispatch: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	err = tx.QueryRow(ctx, `SELECT 1 FROM spl_supply_forecast_execution WHERE id = $1`, executionID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check execution: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE spl_supply_forecast_execution_execute
		SET last_execution = false
		WHERE supply_forecast_execution_id = $1 AND last_execution
	`, executionID); err != nil {
		return nil, fmt.Errorf("failed to clear last execution: %w", err)
	}

	now := time.Now().UTC()
	ee := &contracts.ExecutionExecute{
		ID:            uuid.NewString(),
		ExecutionID:   executionID,
		Status:        contracts.StatusCreated,
		StartedAt:     &now,
		LastExecution: true,
		Timestamp:     now,
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO spl_supply_forecast_execution_execute (
			id, supply_forecast_execution_id, supply_forecast_execution_status_id,
			start_execution, last_execution, deleted, "timestamp"
		) VALUES ($1, $2, $3, $4, true, false, $4)
	`, ee.ID, ee.ExecutionID, int(ee.Status), now); err != nil {
		return nil, fmt.Errorf("failed to insert execute: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit dispatch: %w", err)
	}
	return ee, nil
}
