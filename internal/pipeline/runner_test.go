package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/chart"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/internal/notify"
	"github.com/wonny/supplycast/internal/publication"
	"github.com/wonny/supplycast/internal/reference"
	"github.com/wonny/supplycast/internal/sales"
	"github.com/wonny/supplycast/pkg/database"
	"github.com/wonny/supplycast/pkg/logger"
)

// ---- fakes ----

type fakeStore struct {
	mu          sync.Mutex
	order       []string
	items       map[string]*contracts.WorkItem
	params      []contracts.ResolvedParameter
	headers     map[string]contracts.HeaderMetrics
	lose        map[string]bool
	transitions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:   make(map[string]*contracts.WorkItem),
		headers: make(map[string]contracts.HeaderMetrics),
		lose:    make(map[string]bool),
		params:  []contracts.ResolvedParameter{{Name: forecast.ParamWindow, DataType: "int", Value: "7"}},
	}
}

func (s *fakeStore) put(id string, exe contracts.Execution, status contracts.Status, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, id)
	s.items[id] = &contracts.WorkItem{
		Execute:   contracts.ExecutionExecute{ID: id, ExecutionID: exe.ID, Status: status, Timestamp: ts},
		Execution: exe,
	}
}

func (s *fakeStore) status(id string) contracts.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Execute.Status
}

func (s *fakeStore) ListByStatus(_ context.Context, status contracts.Status) ([]contracts.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.WorkItem
	for _, id := range s.order {
		if it := s.items[id]; it.Execute.Status == status && !it.Execute.Deleted {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *fakeStore) ListStale(_ context.Context, status contracts.Status, cutoff time.Time) ([]contracts.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.WorkItem
	for _, id := range s.order {
		if it := s.items[id]; it.Execute.Status == status && it.Execute.Timestamp.Before(cutoff) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*contracts.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (s *fakeStore) Transition(_ context.Context, id string, from, to contracts.Status) error {
	if err := contracts.ValidateTransition(from, to); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || s.lose[id] || it.Execute.Status != from {
		return fmt.Errorf("%w: %s", contracts.ErrClaimLost, id)
	}
	it.Execute.Status = to
	it.Execute.Timestamp = time.Now()
	s.transitions++
	return nil
}

func (s *fakeStore) ResolveParameters(context.Context, string) ([]contracts.ResolvedParameter, error) {
	return s.params, nil
}

func (s *fakeStore) UpdateHeader(_ context.Context, id string, h contracts.HeaderMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[id] = h
	return nil
}

func (s *fakeStore) Dispatch(_ context.Context, executionID string) (*contracts.ExecutionExecute, error) {
	return &contracts.ExecutionExecute{ID: "new", ExecutionID: executionID, Status: contracts.StatusCreated}, nil
}

type fakeHistory struct {
	bySupplier map[int64]*sales.History
	fail       map[int64]error
}

func (f *fakeHistory) LoadOrBuild(_ context.Context, supplier int64, _ string, _ int) (*sales.History, error) {
	if err := f.fail[supplier]; err != nil {
		return nil, err
	}
	return f.bySupplier[supplier], nil
}

type fakeReference struct {
	mapping *reference.Mapping
}

func (f *fakeReference) Load(context.Context) (*reference.Mapping, error) {
	return f.mapping, nil
}

func (f *fakeReference) SupplierID(context.Context, int64) (string, error) {
	return "supplier-uuid", nil
}

type fakePublisher struct {
	calls    int
	rows     int
	inserted func(n int) (int, error)
}

func (f *fakePublisher) Publish(_ context.Context, rows []contracts.ExecutionExecuteResult, _ string) (int, error) {
	f.calls++
	f.rows += len(rows)
	if f.inserted != nil {
		return f.inserted(len(rows))
	}
	return len(rows), nil
}

type fakeNotifier struct {
	events []notify.PublishedEvent
}

func (f *fakeNotifier) Published(_ context.Context, e notify.PublishedEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeNotifier) Close() error { return nil }

// ---- fixtures ----

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func execution(supplier int64) contracts.Execution {
	return contracts.Execution{
		ID:              fmt.Sprintf("exec-%d", supplier),
		Name:            fmt.Sprintf("%d_ACME_ALGO_05", supplier),
		Method:          contracts.AlgoTrailingAverage,
		ExtSupplierCode: supplier,
	}
}

func supplierHistory(supplier int64) *sales.History {
	h := &sales.History{}
	for _, branch := range []int64{1, 2} {
		for i := 0; i < 60; i++ {
			h.Sales = append(h.Sales, contracts.SalesRecord{
				Date: day(2024, 3, 1).AddDate(0, 0, i), Article: 100, Branch: branch, Units: 2,
			})
		}
		h.Items = append(h.Items, contracts.ItemMaster{
			SupplierCode: supplier, Article: 100, Branch: branch,
			SalePrice: 1500, StatisticalCost: 900, StockUnits: 10,
		})
	}
	return h
}

type harness struct {
	store     *fakeStore
	history   *fakeHistory
	publisher *fakePublisher
	notifier  *fakeNotifier
	layout    artifacts.Layout
	archive   string
	runner    *Runner
	mapping   *reference.Mapping
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	dir := t.TempDir()

	renderer, err := chart.NewRenderer()
	require.NoError(t, err)

	h := &harness{
		store:     newFakeStore(),
		history:   &fakeHistory{bySupplier: map[int64]*sales.History{700: supplierHistory(700)}, fail: map[int64]error{}},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		layout:    artifacts.NewLayout(dir),
		archive:   filepath.Join(dir, "procesado"),
		mapping: &reference.Mapping{
			Products: map[int64]string{100: "product-100"},
			Sites:    map[int64]string{1: "site-1", 2: "site-2"},
		},
	}

	opts.ArchiveDir = h.archive
	if opts.ChartFlushEvery == 0 {
		opts.ChartFlushEvery = 5
	}
	if opts.ChartMaxBytes == 0 {
		opts.ChartMaxBytes = 2_000_000
	}

	h.runner = NewRunner(Deps{
		Store:      h.store,
		Layout:     h.layout,
		History:    h.history,
		Reference:  &fakeReference{mapping: h.mapping},
		Forecaster: forecast.NewForecaster(zerolog.Nop()),
		Charts:     chart.NewGenerator(renderer, chart.Options{MaxBytes: opts.ChartMaxBytes, Workers: 2}, zerolog.Nop()),
		Renderer:   renderer,
		Publisher:  h.publisher,
		Notifier:   h.notifier,
	}, opts, zerolog.Nop())
	return h
}

func chartedRows(productID, siteID string) []contracts.ChartedRow {
	row := func(branch int64, site string) contracts.ChartedRow {
		return contracts.ChartedRow{
			ExtendedRow: contracts.ExtendedRow{
				ForecastRow: contracts.ForecastRow{
					SupplierCode: 700, Article: 100, Branch: branch,
					Algorithm: contracts.AlgoTrailingAverage, Window: 7, Forecast: 14, Average: 2,
				},
				ProductID: productID,
				SiteID:    site,
			},
			Graphic: "iVBORw0KGgo=",
		}
	}
	return []contracts.ChartedRow{row(1, "site-1"), row(2, siteID)}
}

// ---- tests ----

func TestRunner_ComputeAdvancesAndIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	exe := execution(700)
	h.store.put("ee-1", exe, contracts.StatusCreated, time.Now())

	report, err := h.runner.Run(context.Background(), contracts.StageCompute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(contracts.OutcomeSucceeded))
	assert.Equal(t, contracts.StatusComputed, h.store.status("ee-1"))

	rows, err := artifacts.ReadForecast(h.layout.Forecast(exe.Name))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, 7, r.Window)
		assert.Equal(t, 14.0, r.Forecast)
	}

	// 두 번째 실행은 source status에 행이 없으므로 no-op
	before := h.store.transitions
	report, err = h.runner.Run(context.Background(), contracts.StageCompute)
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Equal(t, before, h.store.transitions)
}

func TestRunner_FailureIsIsolatedPerRow(t *testing.T) {
	h := newHarness(t, Options{})
	h.history.fail[800] = fmt.Errorf("dial: %w", database.ErrUnavailable)
	h.store.put("ee-bad", execution(800), contracts.StatusCreated, time.Now())
	h.store.put("ee-ok", execution(700), contracts.StatusCreated, time.Now())

	report, err := h.runner.Run(context.Background(), contracts.StageCompute)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "ee-bad", failed[0].ExecuteID)
	assert.Equal(t, contracts.FailureConnectivity, failed[0].Kind)

	// 실패한 행은 claim 상태에 남아 watchdog 대상이 됨
	assert.Equal(t, contracts.StatusComputing, h.store.status("ee-bad"))
	assert.Equal(t, contracts.StatusComputed, h.store.status("ee-ok"))

	audit, err := os.ReadFile(filepath.Join(h.layout.Dir, logger.PipelineErrorsFile))
	require.NoError(t, err)
	assert.Contains(t, string(audit), "execute=ee-bad")
	assert.Contains(t, string(audit), "kind=connectivity")
}

func TestRunner_ClaimLostIsSkipped(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.put("ee-1", execution(700), contracts.StatusCreated, time.Now())
	h.store.lose["ee-1"] = true

	report, err := h.runner.Run(context.Background(), contracts.StageCompute)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, contracts.OutcomeSkipped, report.Items[0].Outcome)
	assert.Equal(t, contracts.StatusCreated, h.store.status("ee-1"))
	assert.NoFileExists(t, h.layout.Forecast(execution(700).Name))
}

func TestRunner_AdvanceLostIsSkipped(t *testing.T) {
	h := newHarness(t, Options{})
	exe := execution(700)
	require.NoError(t, artifacts.WriteForecast(h.layout.Forecast(exe.Name), []contracts.ForecastRow{
		{SupplierCode: 700, Article: 100, Branch: 1, Algorithm: exe.Method, Window: 7, Forecast: 14},
	}))
	h.store.put("ee-1", exe, contracts.StatusComputed, time.Now())
	// extend는 claim이 없으므로 마지막 20 → 30 전진에서 경합이 드러남
	h.store.lose["ee-1"] = true

	report, err := h.runner.Run(context.Background(), contracts.StageExtend)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, contracts.OutcomeSkipped, report.Items[0].Outcome)
	assert.Equal(t, "advanced elsewhere", report.Items[0].Detail)
	assert.Empty(t, report.Failed())
	assert.NoFileExists(t, filepath.Join(h.layout.Dir, logger.PipelineErrorsFile))
}

func TestRunner_InvalidParamsFailBeforeClaim(t *testing.T) {
	h := newHarness(t, Options{StaleClaimAfter: time.Hour})
	exe := execution(700)
	exe.Method = contracts.AlgoWeeklyHolt
	h.store.put("ee-1", exe, contracts.StatusCreated, time.Now().Add(-2*time.Hour))

	report, err := h.runner.Run(context.Background(), contracts.StageCompute)
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, contracts.FailureValidation, failed[0].Kind)
	assert.ErrorIs(t, failed[0].Err, forecast.ErrInvalidWindow)
	assert.Equal(t, contracts.StatusCreated, h.store.status("ee-1"))
	assert.Zero(t, h.store.transitions)

	// 15에 걸리지 않았으므로 watchdog이 되돌릴 것이 없음
	report, err = h.runner.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Zero(t, h.store.transitions)
}

func TestRunner_ExtendMissingMapping(t *testing.T) {
	h := newHarness(t, Options{})
	delete(h.mapping.Sites, 2)

	exe := execution(700)
	require.NoError(t, artifacts.WriteForecast(h.layout.Forecast(exe.Name), []contracts.ForecastRow{
		{SupplierCode: 700, Article: 100, Branch: 1, Algorithm: exe.Method, Window: 7, Forecast: 14},
		{SupplierCode: 700, Article: 100, Branch: 2, Algorithm: exe.Method, Window: 7, Forecast: 14},
	}))
	h.store.put("ee-1", exe, contracts.StatusComputed, time.Now())

	report, err := h.runner.Run(context.Background(), contracts.StageExtend)
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, contracts.FailureReferential, failed[0].Kind)
	assert.Equal(t, contracts.StatusComputed, h.store.status("ee-1"))
	assert.FileExists(t, h.layout.MissingMapping(exe.Name))
	assert.NoFileExists(t, h.layout.Extended(exe.Name))
}

func TestRunner_EndToEnd(t *testing.T) {
	h := newHarness(t, Options{})
	exe := execution(700)
	h.store.put("ee-1", exe, contracts.StatusCreated, time.Now())

	for _, stage := range contracts.AllStages() {
		report, err := h.runner.Run(context.Background(), stage)
		require.NoError(t, err, stage)
		require.Equal(t, 1, report.Count(contracts.OutcomeSucceeded), "%s: %s", stage, report.Summary())
	}

	assert.Equal(t, contracts.StatusPublished, h.store.status("ee-1"))
	assert.Equal(t, 1, h.publisher.calls)
	assert.Equal(t, 2, h.publisher.rows)

	header := h.store.headers["ee-1"]
	assert.Equal(t, 1, header.TotalProducts)
	assert.Equal(t, 28.0, header.TotalUnits)
	assert.NotEmpty(t, header.Graphic)

	// 완전 게시 후 artifact는 archive로 이동
	assert.NoFileExists(t, h.layout.Final(exe.Name))
	assert.FileExists(t, filepath.Join(h.archive, filepath.Base(h.layout.Final(exe.Name))))

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, "ee-1", h.notifier.events[0].ExecuteID)
	assert.Equal(t, 2, h.notifier.events[0].Rows)

	// archive된 FINAL로 header 재계산, 상태는 그대로
	refreshed, err := h.runner.RefreshHeader(context.Background(), "ee-1")
	require.NoError(t, err)
	assert.Equal(t, header.TotalUnits, refreshed.TotalUnits)
	assert.Equal(t, contracts.StatusPublished, h.store.status("ee-1"))
}

func TestRunner_PartialPublishStaysAtClaim(t *testing.T) {
	h := newHarness(t, Options{})
	h.publisher.inserted = func(n int) (int, error) {
		return n - 1, errors.New("connection reset")
	}

	exe := execution(700)
	require.NoError(t, artifacts.WriteCharted(h.layout.Final(exe.Name), chartedRows("product-100", "site-2")))
	h.store.put("ee-1", exe, contracts.StatusCharted, time.Now())

	report, err := h.runner.Run(context.Background(), contracts.StagePublish)
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, contracts.FailurePartialPublish, failed[0].Kind)
	assert.ErrorIs(t, failed[0].Err, publication.ErrPartialPublish)
	assert.Equal(t, contracts.StatusPublishing, h.store.status("ee-1"))
	assert.FileExists(t, h.layout.Final(exe.Name))
	assert.Empty(t, h.notifier.events)
}

func TestRunner_PublishMissingIDsInsertsNothing(t *testing.T) {
	h := newHarness(t, Options{})
	exe := execution(700)
	require.NoError(t, artifacts.WriteCharted(h.layout.Final(exe.Name), chartedRows("product-100", "")))
	h.store.put("ee-1", exe, contracts.StatusCharted, time.Now())

	report, err := h.runner.Run(context.Background(), contracts.StagePublish)
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, contracts.FailureReferential, failed[0].Kind)
	assert.Zero(t, h.publisher.calls)
}

func TestRunner_InterruptedChartIsNotRepicked(t *testing.T) {
	h := newHarness(t, Options{StaleClaimAfter: time.Hour})
	exe := execution(700)
	h.store.put("ee-1", exe, contracts.StatusCharting, time.Now().Add(-2*time.Hour))

	report, err := h.runner.Run(context.Background(), contracts.StageChart)
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Equal(t, contracts.StatusCharting, h.store.status("ee-1"))

	report, err = h.runner.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(contracts.OutcomeSucceeded))
	assert.Equal(t, contracts.StatusExtended, h.store.status("ee-1"))
}

func TestRunner_ReclaimNeverRequeuesPublishing(t *testing.T) {
	h := newHarness(t, Options{StaleClaimAfter: time.Hour})
	h.store.put("ee-compute", execution(700), contracts.StatusComputing, time.Now().Add(-2*time.Hour))
	h.store.put("ee-fresh", execution(701), contracts.StatusComputing, time.Now())
	h.store.put("ee-publish", execution(702), contracts.StatusPublishing, time.Now().Add(-2*time.Hour))

	report, err := h.runner.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(contracts.OutcomeSucceeded))
	assert.Equal(t, 1, report.Count(contracts.OutcomeSkipped))

	assert.Equal(t, contracts.StatusCreated, h.store.status("ee-compute"))
	assert.Equal(t, contracts.StatusComputing, h.store.status("ee-fresh"))
	assert.Equal(t, contracts.StatusPublishing, h.store.status("ee-publish"))
}

func TestRunner_ReclaimDisabled(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.put("ee-1", execution(700), contracts.StatusComputing, time.Now().Add(-48*time.Hour))

	report, err := h.runner.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Equal(t, contracts.StatusComputing, h.store.status("ee-1"))
}

func TestRunner_Status(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.put("ee-1", execution(700), contracts.StatusCreated, time.Now())
	h.store.put("ee-2", execution(701), contracts.StatusCharted, time.Now())

	groups, err := h.runner.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, len(contracts.AllStatuses()))
	assert.Len(t, groups[0].Items, 1)
	for _, g := range groups {
		if g.Status == contracts.StatusCharted {
			assert.Len(t, g.Items, 1)
		}
	}
}

func TestRunner_RefreshHeaderUnknown(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.runner.RefreshHeader(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrExecuteNotFound)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want contracts.FailureKind
	}{
		{fmt.Errorf("x: %w", database.ErrUnavailable), contracts.FailureConnectivity},
		{fmt.Errorf("x: %w", reference.ErrMissingMapping), contracts.FailureReferential},
		{publication.ErrMissingIDs, contracts.FailureReferential},
		{errors.Join(publication.ErrPartialPublish, errors.New("reset")), contracts.FailurePartialPublish},
		{forecast.ErrFitFailed, contracts.FailureFit},
		{fmt.Errorf("%w: read", ErrArtifact), contracts.FailureSerialization},
		{chart.ErrPayloadTooLarge, contracts.FailureSerialization},
		{forecast.ErrInvalidParams, contracts.FailureValidation},
		{contracts.ErrIllegalTransition, contracts.FailureValidation},
		{fmt.Errorf("%w: ee-1", contracts.ErrClaimLost), contracts.FailureValidation},
		{errors.New("boom"), contracts.FailureInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestResolveParameter(t *testing.T) {
	p := contracts.ModelParameter{Name: "f1", DataType: "int", DefaultValue: "77"}

	assert.Equal(t, "77", resolveParameter(p, nil).Value)

	blank := "  "
	assert.False(t, resolveParameter(p, &blank).Override)

	v := "50"
	rp := resolveParameter(p, &v)
	assert.Equal(t, "50", rp.Value)
	assert.True(t, rp.Override)
}
