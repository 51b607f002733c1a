package rebalancing

import (
	"errors"
	"sync"
	"testing"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/metrics"
	testingutil "github.com/aristath/sectorpilot/internal/testing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHoldings struct{ mock.Mock }

func (m *mockHoldings) GetValuedHoldings() ([]domain.Holding, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Holding), args.Error(1)
}

type mockExposure struct{ mock.Mock }

func (m *mockExposure) GetSectorExposure(holdings []domain.Holding) ([]domain.SectorExposure, error) {
	args := m.Called(holdings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SectorExposure), args.Error(1)
}

type mockCandidates struct{ mock.Mock }

func (m *mockCandidates) GetCandidates() ([]domain.StockCandidate, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StockCandidate), args.Error(1)
}

type mockConstraints struct{ mock.Mock }

func (m *mockConstraints) GetConstraintSet() (domain.ConstraintSet, error) {
	args := m.Called()
	return args.Get(0).(domain.ConstraintSet), args.Error(1)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recordedEvents) handler(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type serviceFixture struct {
	service     *Service
	holdings    *mockHoldings
	exposure    *mockExposure
	candidates  *mockCandidates
	constraints *mockConstraints
	runs        *RunRepository
	metrics     *metrics.Metrics
	recorded    *recordedEvents
}

func newServiceFixture(t *testing.T) (*serviceFixture, func()) {
	t.Helper()

	db, cleanup := testingutil.NewTestDB(t, "ledger")
	log := zerolog.Nop()

	bus := events.NewBus(log)
	recorded := &recordedEvents{}
	for _, et := range []events.EventType{
		events.SuggestionsGenerated, events.SuggestionApproved, events.SuggestionLocked, events.ErrorOccurred,
	} {
		bus.Subscribe(et, recorded.handler)
	}

	f := &serviceFixture{
		holdings:    &mockHoldings{},
		exposure:    &mockExposure{},
		candidates:  &mockCandidates{},
		constraints: &mockConstraints{},
		runs:        NewRunRepository(db.Conn(), log),
		metrics:     metrics.New(),
		recorded:    recorded,
	}
	f.service = NewService(
		NewGenerator(log),
		f.holdings, f.exposure, f.candidates, f.constraints,
		f.runs,
		events.NewManager(bus, log),
		f.metrics,
		log,
	)
	return f, cleanup
}

// seedOverweightIT stores an overweight IT sector with one held Laggard
func (f *serviceFixture) seedOverweightIT() {
	holdings := []domain.Holding{
		{Ticker: "LEAD.NS", SectorID: 1, Quantity: 100_000, CurrentPrice: 1000, CurrentValue: 10, PortfolioWeight: 50},
		{Ticker: "LAG.NS", SectorID: 1, Quantity: 60_000, CurrentPrice: 100, CurrentValue: 0.6, PortfolioWeight: 3},
		{Ticker: "BANK.NS", SectorID: 2, Quantity: 94_000, CurrentPrice: 1000, CurrentValue: 9.4, PortfolioWeight: 47},
	}
	exposure := []domain.SectorExposure{
		{SectorID: 1, SectorName: "IT", ActualWeight: 53, TargetWeight: 43},
		{SectorID: 2, SectorName: "Banking", ActualWeight: 47, TargetWeight: 57},
	}
	f.holdings.On("GetValuedHoldings").Return(holdings, nil)
	f.exposure.On("GetSectorExposure", holdings).Return(exposure, nil)
	f.candidates.On("GetCandidates").Return([]domain.StockCandidate{
		{Ticker: "LAG.NS", SectorID: 1, CompositeScore: 12, Category: domain.CategoryLaggard},
	}, nil)
	f.constraints.On("GetConstraintSet").Return(domain.DefaultConstraintSet(), nil)
}

func TestService_GeneratePersistsRun(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	f.seedOverweightIT()

	run, err := f.service.Generate(TriggerManual, false)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.False(t, run.DryRun)
	require.Len(t, run.Suggestions, 1)

	s := run.Suggestions[0]
	assert.Equal(t, domain.ActionSell, s.Action)
	assert.Equal(t, "LAG.NS", s.Ticker)
	assert.Equal(t, 60_000, s.Quantity)
	assert.Equal(t, domain.BindingHoldingQuantity, s.BindingConstraint)
	assert.NotZero(t, s.ID)

	assert.Equal(t, 20.0, run.DriftBefore)
	assert.Equal(t, 17.0, run.DriftAfterEst)
	assert.Equal(t, 20.0, run.TotalValueCr)

	stored, err := f.service.GetLatestRun()
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
	assert.Equal(t, run.Suggestions[0].ID, stored.Suggestions[0].ID)

	snapshot, err := f.runs.GetSnapshot(run.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Holdings, 3)

	assert.Equal(t, []events.EventType{events.SuggestionsGenerated}, f.recorded.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues(TriggerManual, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SuggestionsTotal.WithLabelValues("SELL")))
}

func TestService_GenerateDryRunDoesNotPersist(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	f.seedOverweightIT()

	run, err := f.service.Generate(TriggerCLI, true)
	require.NoError(t, err)
	assert.True(t, run.DryRun)
	assert.Empty(t, run.ID)
	require.Len(t, run.Suggestions, 1)
	assert.Equal(t, 1, run.Suggestions[0].Ordinal)

	_, err = f.service.GetLatestRun()
	assert.ErrorIs(t, err, ErrNoRuns)
	assert.Empty(t, f.recorded.types())
}

func TestService_GenerateProviderError(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()

	f.holdings.On("GetValuedHoldings").Return(nil, errors.New("db closed"))

	_, err := f.service.Generate(TriggerScheduled, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load holdings")

	assert.Equal(t, []events.EventType{events.ErrorOccurred}, f.recorded.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues(TriggerScheduled, "error")))
	f.exposure.AssertNotCalled(t, "GetSectorExposure", mock.Anything)
}

func TestService_GenerateMalformedInput(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()

	holdings := []domain.Holding{{Ticker: "", SectorID: 1, Quantity: 10, CurrentPrice: 100, CurrentValue: 0.0001}}
	f.holdings.On("GetValuedHoldings").Return(holdings, nil)
	f.exposure.On("GetSectorExposure", holdings).Return([]domain.SectorExposure{}, nil)
	f.candidates.On("GetCandidates").Return([]domain.StockCandidate{}, nil)
	f.constraints.On("GetConstraintSet").Return(domain.DefaultConstraintSet(), nil)

	_, err := f.service.Generate(TriggerManual, false)
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestService_ApproveAndLock(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	f.seedOverweightIT()

	run, err := f.service.Generate(TriggerManual, false)
	require.NoError(t, err)
	id := run.Suggestions[0].ID

	approved, err := f.service.Approve(run.ID, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	again, err := f.service.Approve(run.ID, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, again.Status)

	locked, err := f.service.Lock(run.ID, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocked, locked.Status)

	_, err = f.service.Approve(run.ID, id)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	// The idempotent re-approve emits nothing
	assert.Equal(t, []events.EventType{
		events.SuggestionsGenerated,
		events.SuggestionApproved,
		events.SuggestionLocked,
	}, f.recorded.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StatusTransitions.WithLabelValues("approved")))
}

func TestService_ApproveUnknownRun(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()

	_, err := f.service.Approve("missing", 1)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestService_ConcurrentGenerateSerializes(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	f.seedOverweightIT()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Generate(TriggerManual, false)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues(TriggerManual, "success")))
}
