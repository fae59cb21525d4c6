package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"
	repoimpl "flight-tracker-service/internal/interface/repository"
	"flight-tracker-service/pkg/logger"
	"flight-tracker-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trackerNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newFlight(route, airline string, date time.Time, interval entity.Interval, prices ...float64) *entity.Flight {
	f := &entity.Flight{
		Route:      route,
		Airline:    airline,
		FlightDate: date,
		TrackingConfig: entity.TrackingConfig{
			Interval:      interval,
			StartTracking: trackerNow.AddDate(0, -1, 0),
			LastTracked:   trackerNow.AddDate(0, -1, 0),
		},
	}
	for i, p := range prices {
		f.PriceHistory = append(f.PriceHistory, entity.PricePoint{
			Date:  trackerNow.AddDate(0, 0, -len(prices)+i),
			Price: p,
		})
	}
	return f
}

// flakyFlightRepository fails appends for selected flights
type flakyFlightRepository struct {
	repository.FlightRepository
	failIDs     map[string]bool
	failSelect  bool
	panicSelect bool
}

func (r *flakyFlightRepository) FindByIntervalAndFutureDate(ctx context.Context, interval entity.Interval, now time.Time) ([]*entity.Flight, error) {
	if r.panicSelect {
		panic("cursor decode")
	}
	if r.failSelect {
		return nil, repository.ErrStoreUnavailable
	}
	return r.FlightRepository.FindByIntervalAndFutureDate(ctx, interval, now)
}

func (r *flakyFlightRepository) AppendPriceSample(ctx context.Context, id string, sample entity.PricePoint) error {
	if r.failIDs[id] {
		return repository.ErrStoreUnavailable
	}
	return r.FlightRepository.AppendPriceSample(ctx, id, sample)
}

// recordingRunRepository keeps created runs in memory
type recordingRunRepository struct {
	mu   sync.Mutex
	runs []*entity.TrackingRun
}

func (r *recordingRunRepository) Create(_ context.Context, run *entity.TrackingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *recordingRunRepository) ListRecent(_ context.Context, interval entity.Interval, limit int) ([]*entity.TrackingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.TrackingRun
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.runs[i].Interval == interval {
			out = append(out, r.runs[i])
		}
	}
	return out, nil
}

type countingInvalidator struct{ calls atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.calls.Add(1) }

func seedTrackerRepo(t *testing.T) (*repoimpl.MemoryFlightRepository, map[string]string) {
	t.Helper()
	repo := repoimpl.NewMemoryFlightRepository()
	ctx := context.Background()
	ids := make(map[string]string)

	for name, f := range map[string]*entity.Flight{
		"upcoming":   newFlight("LHE-BKK", "PIA", trackerNow.AddDate(0, 1, 0), entity.Interval15Min, 500, 520, 480),
		"upcoming2":  newFlight("KHI-DXB", "Emirates", trackerNow.Add(time.Minute), entity.Interval15Min, 300),
		"departed":   newFlight("LHE-DXB", "Fly Dubai", trackerNow.Add(-time.Hour), entity.Interval15Min, 200),
		"departsNow": newFlight("ISB-IST", "Turkish", trackerNow, entity.Interval15Min, 700),
		"weekly":     newFlight("LHE-JED", "Saudia", trackerNow.AddDate(0, 2, 0), entity.Interval1Week, 400),
	} {
		id, err := repo.Insert(ctx, f)
		require.NoError(t, err)
		ids[name] = id
	}
	return repo, ids
}

func TestPriceTracker_UpdatePricesAppendsOneSamplePerUpcomingFlight(t *testing.T) {
	repo, ids := seedTrackerRepo(t)
	ctx := context.Background()
	invalidator := &countingInvalidator{}
	tracker := NewPriceTracker(repo, NewPriceSimulator(1), logger.NewNop(),
		WithClock(func() time.Time { return trackerNow }),
		WithInvalidator(invalidator),
	)

	run, err := tracker.UpdatePrices(ctx, entity.Interval15Min, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Selected)
	assert.Equal(t, 2, run.Updated)
	assert.Zero(t, run.Failed)
	assert.EqualValues(t, 1, invalidator.calls.Load())

	upcoming, err := repo.FindByID(ctx, ids["upcoming"])
	require.NoError(t, err)
	require.Len(t, upcoming.PriceHistory, 4)
	last := upcoming.PriceHistory[3]
	assert.True(t, last.Date.Equal(trackerNow))
	assert.GreaterOrEqual(t, last.Price, 490.0)
	assert.LessOrEqual(t, last.Price, 510.0)
	assert.True(t, upcoming.TrackingConfig.LastTracked.Equal(trackerNow))

	upcoming2, err := repo.FindByID(ctx, ids["upcoming2"])
	require.NoError(t, err)
	assert.Len(t, upcoming2.PriceHistory, 2)

	for _, name := range []string{"departed", "departsNow", "weekly"} {
		f, err := repo.FindByID(ctx, ids[name])
		require.NoError(t, err)
		assert.Len(t, f.PriceHistory, 1, "%s must not be updated", name)
		assert.True(t, f.TrackingConfig.LastTracked.Equal(trackerNow.AddDate(0, -1, 0)))
	}
}

func TestPriceTracker_RepeatedFiringsGrowHistoryByOne(t *testing.T) {
	repo, ids := seedTrackerRepo(t)
	ctx := context.Background()

	clock := trackerNow
	tracker := NewPriceTracker(repo, NewPriceSimulator(3), logger.NewNop(),
		WithClock(func() time.Time { return clock }))

	var lastTracked time.Time
	for i := 1; i <= 5; i++ {
		clock = trackerNow.Add(time.Duration(i) * 15 * time.Second)
		_, err := tracker.UpdatePrices(ctx, entity.Interval15Min, entity.TriggerScheduled)
		require.NoError(t, err)

		f, err := repo.FindByID(ctx, ids["upcoming"])
		require.NoError(t, err)
		assert.Len(t, f.PriceHistory, 3+i)
		assert.True(t, f.TrackingConfig.LastTracked.After(lastTracked))
		lastTracked = f.TrackingConfig.LastTracked
	}
}

func TestPriceTracker_FailingFlightDoesNotStopBatch(t *testing.T) {
	mem, ids := seedTrackerRepo(t)
	repo := &flakyFlightRepository{FlightRepository: mem, failIDs: map[string]bool{ids["upcoming"]: true}}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	tracker := NewPriceTracker(repo, NewPriceSimulator(1), logger.NewNop(),
		WithClock(func() time.Time { return trackerNow }),
		WithMetrics(m),
	)

	run, err := tracker.RunNow(context.Background(), entity.Interval15Min)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Selected)
	assert.Equal(t, 1, run.Updated)
	assert.Equal(t, 1, run.Failed)

	ok, err := mem.FindByID(context.Background(), ids["upcoming2"])
	require.NoError(t, err)
	assert.Len(t, ok.PriceHistory, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceUpdates.WithLabelValues("15min")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceUpdateFailures.WithLabelValues("15min")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Firings.WithLabelValues("15min", metrics.OutcomeCompleted)))
}

func TestPriceTracker_SelectionFailureIsReported(t *testing.T) {
	mem, _ := seedTrackerRepo(t)
	repo := &flakyFlightRepository{FlightRepository: mem, failSelect: true}
	runs := &recordingRunRepository{}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	tracker := NewPriceTracker(repo, NewPriceSimulator(1), logger.NewNop(),
		WithRunRepository(runs), WithMetrics(m))

	run, err := tracker.RunNow(context.Background(), entity.Interval15Min)
	assert.True(t, errors.Is(err, repository.ErrStoreUnavailable), "got %v", err)
	require.NotNil(t, run)
	assert.Zero(t, run.Selected)
	assert.Len(t, runs.runs, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Firings.WithLabelValues("15min", metrics.OutcomeFailed)))
}

func TestPriceTracker_RunNowRejectsOverlapAndUnknownInterval(t *testing.T) {
	repo, _ := seedTrackerRepo(t)
	runs := &recordingRunRepository{}
	tracker := NewPriceTracker(repo, NewPriceSimulator(1), logger.NewNop(), WithRunRepository(runs))

	_, err := tracker.RunNow(context.Background(), entity.Interval("hourly"))
	assert.True(t, errors.Is(err, repository.ErrValidation))

	tracker.firing[entity.Interval1Week].Lock()
	run, err := tracker.RunNow(context.Background(), entity.Interval1Week)
	tracker.firing[entity.Interval1Week].Unlock()

	assert.True(t, errors.Is(err, ErrFiringInProgress))
	assert.True(t, errors.Is(err, repository.ErrConflict))
	require.NotNil(t, run)
	assert.True(t, run.Skipped)

	// other classes are unaffected by a held lock
	_, err = tracker.RunNow(context.Background(), entity.Interval1Week)
	require.NoError(t, err)

	recent, err := tracker.RecentRuns(context.Background(), entity.Interval1Week, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.False(t, recent[0].Skipped)
	assert.True(t, recent[1].Skipped)
	assert.Equal(t, entity.TriggerManual, recent[0].Trigger)
}

func TestPriceTracker_RecentRunsWithoutLog(t *testing.T) {
	tracker := NewPriceTracker(repoimpl.NewMemoryFlightRepository(), NewPriceSimulator(1), logger.NewNop())

	_, err := tracker.RecentRuns(context.Background(), entity.Interval15Min, 5)
	assert.True(t, errors.Is(err, repository.ErrStoreUnavailable))
}

func TestPriceTracker_StartStop(t *testing.T) {
	repo, ids := seedTrackerRepo(t)
	tracker := NewPriceTracker(repo, NewPriceSimulator(1), logger.NewNop(),
		WithClock(func() time.Time { return trackerNow }),
		WithPollInterval(10*time.Millisecond),
		WithLocation(time.UTC),
	)

	require.NoError(t, tracker.Start(context.Background()))
	require.NoError(t, tracker.Start(context.Background()), "second start is a no-op")
	assert.True(t, tracker.Running())

	require.Eventually(t, func() bool {
		f, err := repo.FindByID(context.Background(), ids["upcoming"])
		return err == nil && len(f.PriceHistory) >= 5
	}, 2*time.Second, 5*time.Millisecond)

	tracker.Stop()
	tracker.Stop()
	assert.False(t, tracker.Running())

	f, err := repo.FindByID(context.Background(), ids["upcoming"])
	require.NoError(t, err)
	stopped := len(f.PriceHistory)
	time.Sleep(50 * time.Millisecond)
	f, err = repo.FindByID(context.Background(), ids["upcoming"])
	require.NoError(t, err)
	assert.Equal(t, stopped, len(f.PriceHistory), "no firings after stop")

	weekly, err := repo.FindByID(context.Background(), ids["weekly"])
	require.NoError(t, err)
	assert.Len(t, weekly.PriceHistory, 1)

	// restart after stop
	require.NoError(t, tracker.Start(context.Background()))
	tracker.Stop()
}

func TestPriceTracker_PanicIsRecordedAsFailedRun(t *testing.T) {
	mem, _ := seedTrackerRepo(t)
	repo := &flakyFlightRepository{FlightRepository: mem, panicSelect: true}
	runs := &recordingRunRepository{}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	tracker := NewPriceTracker(repo, NewPriceSimulator(1), logger.NewNop(),
		WithClock(func() time.Time { return trackerNow }),
		WithRunRepository(runs), WithMetrics(m))

	run, err := tracker.RunNow(context.Background(), entity.Interval15Min)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	require.NotNil(t, run)
	assert.Equal(t, entity.Interval15Min, run.Interval)
	assert.Equal(t, entity.TriggerManual, run.Trigger)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, run.ID, runs.runs[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Firings.WithLabelValues("15min", metrics.OutcomeFailed)))

	// the class lock is released after a panic
	repo.panicSelect = false
	_, err = tracker.RunNow(context.Background(), entity.Interval15Min)
	require.NoError(t, err)
}

func TestPriceTracker_ParentContextCancelDisarms(t *testing.T) {
	repo, ids := seedTrackerRepo(t)
	tracker := NewPriceTracker(repo, NewPriceSimulator(1), logger.NewNop(),
		WithClock(func() time.Time { return trackerNow }),
		WithPollInterval(10*time.Millisecond),
		WithLocation(time.UTC),
	)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tracker.Start(ctx))
	require.Eventually(t, func() bool {
		f, err := repo.FindByID(context.Background(), ids["upcoming"])
		return err == nil && len(f.PriceHistory) >= 4
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !tracker.Running() }, 2*time.Second, 5*time.Millisecond)
	tracker.Stop()

	// a fresh context arms the triggers again
	require.NoError(t, tracker.Start(context.Background()))
	assert.True(t, tracker.Running())
	tracker.Stop()
	assert.False(t, tracker.Running())
}

func TestCalendarSchedules(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) // Monday

	tests := []struct {
		interval entity.Interval
		want     []time.Time
	}{
		{entity.Interval1Week, []time.Time{
			time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 23, 0, 0, 0, 0, time.UTC),
		}},
		{entity.Interval15Days, []time.Time{
			time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			schedule, err := cron.ParseStandard(calendarSchedules[tt.interval])
			require.NoError(t, err)

			next := base
			for _, want := range tt.want {
				next = schedule.Next(next)
				assert.True(t, want.Equal(next), "want %s, got %s", want, next)
				if tt.interval == entity.Interval1Week {
					assert.Equal(t, time.Sunday, next.Weekday())
				}
			}
		})
	}
	assert.Len(t, calendarSchedules, 2, "15min runs on the poll loop")
}
