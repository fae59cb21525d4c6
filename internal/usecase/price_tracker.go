package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"
	"flight-tracker-service/pkg/logger"
	"flight-tracker-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrFiringInProgress is returned when a firing of the same interval class is already running
var ErrFiringInProgress = fmt.Errorf("%w: firing already in progress", repository.ErrConflict)

// DefaultPollInterval is the delay between two 15min firings
const DefaultPollInterval = 15 * time.Minute

// Calendar triggers, in the tracker's location
var calendarSchedules = map[entity.Interval]string{
	entity.Interval1Week:  "0 0 * * 0",    // Sundays at 00:00
	entity.Interval15Days: "0 0 1,15 * *", // 1st and 15th at 00:00
}

// recordTimeout bounds the audit write issued after a firing
const recordTimeout = 5 * time.Second

// SearchInvalidator is notified whenever stored prices change
type SearchInvalidator interface {
	Invalidate()
}

// PriceTracker resamples flight prices on one independent trigger per interval class
type PriceTracker struct {
	flightRepo  repository.FlightRepository
	runRepo     repository.TrackingRunRepository
	simulator   *PriceSimulator
	invalidator SearchInvalidator
	metrics     *metrics.Metrics
	logger      logger.Logger

	location     *time.Location
	pollInterval time.Duration
	now          func() time.Time

	// one lock per class keeps firings of the same class from overlapping
	firing map[entity.Interval]*sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
	wg      sync.WaitGroup
}

// TrackerOption configures optional PriceTracker collaborators
type TrackerOption func(*PriceTracker)

// WithRunRepository records every firing
func WithRunRepository(runRepo repository.TrackingRunRepository) TrackerOption {
	return func(t *PriceTracker) { t.runRepo = runRepo }
}

// WithInvalidator flushes cached search results after prices change
func WithInvalidator(invalidator SearchInvalidator) TrackerOption {
	return func(t *PriceTracker) { t.invalidator = invalidator }
}

// WithMetrics reports firings to prometheus
func WithMetrics(m *metrics.Metrics) TrackerOption {
	return func(t *PriceTracker) { t.metrics = m }
}

// WithLocation sets the time zone of the calendar triggers
func WithLocation(loc *time.Location) TrackerOption {
	return func(t *PriceTracker) { t.location = loc }
}

// WithPollInterval overrides the 15min delay
func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *PriceTracker) { t.pollInterval = d }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) TrackerOption {
	return func(t *PriceTracker) { t.now = now }
}

// NewPriceTracker creates a new price tracker
func NewPriceTracker(
	flightRepo repository.FlightRepository,
	simulator *PriceSimulator,
	logger logger.Logger,
	opts ...TrackerOption,
) *PriceTracker {
	t := &PriceTracker{
		flightRepo:   flightRepo,
		simulator:    simulator,
		logger:       logger,
		location:     time.Local,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		firing:       make(map[entity.Interval]*sync.Mutex, len(entity.Intervals)),
	}
	for _, interval := range entity.Intervals {
		t.firing[interval] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start arms one trigger per interval class. Calling Start on a running tracker is a no-op.
// The triggers are disarmed by Stop or when ctx is cancelled, whichever comes first.
func (t *PriceTracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)

	cronLog := cronLogger{t.logger}
	c := cron.New(
		cron.WithLocation(t.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	for interval, schedule := range calendarSchedules {
		interval := interval
		if _, err := c.AddFunc(schedule, func() {
			t.fire(ctx, interval, entity.TriggerScheduled)
		}); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule %s tracking: %w", interval, err)
		}
		t.logger.Info("Scheduled price tracking", "interval", interval, "cron", schedule, "location", t.location.String())
	}
	c.Start()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.poll(ctx, entity.Interval15Min)
	}()
	t.logger.Info("Scheduled price tracking", "interval", entity.Interval15Min, "every", t.pollInterval.String())

	stopped := make(chan struct{})
	go t.halt(ctx, c, stopped)

	t.cancel = cancel
	t.stopped = stopped
	t.running = true
	return nil
}

// halt disarms the cron triggers once ctx is done and waits for in-flight firings
func (t *PriceTracker) halt(ctx context.Context, c *cron.Cron, stopped chan struct{}) {
	<-ctx.Done()
	<-c.Stop().Done()
	t.wg.Wait()

	t.mu.Lock()
	t.running = false
	t.cancel, t.stopped = nil, nil
	t.mu.Unlock()

	close(stopped)
	t.logger.Info("Price tracking stopped")
}

// Stop disarms every trigger and waits for in-flight firings. Calling Stop on a stopped tracker is a no-op.
func (t *PriceTracker) Stop() {
	t.mu.Lock()
	cancel, stopped := t.cancel, t.stopped
	t.mu.Unlock()
	if stopped == nil {
		return
	}

	cancel()
	<-stopped
}

// Running reports whether the triggers are armed
func (t *PriceTracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// RunNow fires an interval class immediately, outside its schedule
func (t *PriceTracker) RunNow(ctx context.Context, interval entity.Interval) (*entity.TrackingRun, error) {
	if !interval.Valid() {
		return nil, fmt.Errorf("%w: unknown interval %q", repository.ErrValidation, interval)
	}
	return t.fire(ctx, interval, entity.TriggerManual)
}

// poll repeats the firing with a fixed delay between the end of one and the start of the next
func (t *PriceTracker) poll(ctx context.Context, interval entity.Interval) {
	timer := time.NewTimer(t.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Price polling stopped", "interval", interval)
			return
		case <-timer.C:
			t.fire(ctx, interval, entity.TriggerScheduled)
			timer.Reset(t.pollInterval)
		}
	}
}

// fire runs one firing unless another firing of the same class holds the lock
func (t *PriceTracker) fire(ctx context.Context, interval entity.Interval, trigger string) (run *entity.TrackingRun, err error) {
	lock := t.firing[interval]
	if !lock.TryLock() {
		now := t.now()
		run = &entity.TrackingRun{
			ID:         uuid.NewString(),
			Interval:   interval,
			Trigger:    trigger,
			StartedAt:  now,
			FinishedAt: now,
			Skipped:    true,
		}
		t.logger.Warn("Skipping firing, previous one still running", "interval", interval, "trigger", trigger)
		t.finish(ctx, run, metrics.OutcomeSkipped)
		return run, ErrFiringInProgress
	}
	defer lock.Unlock()

	startedAt := t.now()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Firing panicked", "interval", interval, "panic", r)
			run = &entity.TrackingRun{
				ID:         uuid.NewString(),
				Interval:   interval,
				Trigger:    trigger,
				StartedAt:  startedAt,
				FinishedAt: t.now(),
			}
			err = fmt.Errorf("firing %s panicked: %v", interval, r)
			t.finish(ctx, run, metrics.OutcomeFailed)
		}
	}()

	run, err = t.UpdatePrices(ctx, interval, trigger)
	outcome := metrics.OutcomeCompleted
	if err != nil {
		outcome = metrics.OutcomeFailed
	}
	t.finish(ctx, run, outcome)
	return run, err
}

// UpdatePrices appends one simulated sample to every upcoming flight of the class.
// A failing flight is logged and counted; it never stops the rest of the batch.
func (t *PriceTracker) UpdatePrices(ctx context.Context, interval entity.Interval, trigger string) (*entity.TrackingRun, error) {
	firedAt := t.now()
	run := &entity.TrackingRun{
		ID:        uuid.NewString(),
		Interval:  interval,
		Trigger:   trigger,
		StartedAt: firedAt,
	}

	flights, err := t.flightRepo.FindByIntervalAndFutureDate(ctx, interval, firedAt)
	if err != nil {
		run.FinishedAt = t.now()
		t.logger.Error("Failed to select flights for tracking", "interval", interval, "error", err)
		return run, fmt.Errorf("failed to select %s flights: %w", interval, err)
	}
	run.Selected = len(flights)

	for _, flight := range flights {
		if err := t.updateFlight(ctx, flight); err != nil {
			run.Failed++
			t.logger.Error("Failed to update flight price",
				"interval", interval,
				"flightID", flight.ID,
				"route", flight.Route,
				"airline", flight.Airline,
				"error", err)
			if t.metrics != nil {
				t.metrics.PriceUpdateFailures.WithLabelValues(string(interval)).Inc()
			}
			continue
		}
		run.Updated++
		if t.metrics != nil {
			t.metrics.PriceUpdates.WithLabelValues(string(interval)).Inc()
		}
	}

	run.FinishedAt = t.now()
	if run.Updated > 0 && t.invalidator != nil {
		t.invalidator.Invalidate()
	}

	t.logger.Info("Price tracking completed",
		"interval", interval,
		"trigger", trigger,
		"selected", run.Selected,
		"updated", run.Updated,
		"failed", run.Failed,
		"duration", run.Duration().String())
	return run, nil
}

func (t *PriceTracker) updateFlight(ctx context.Context, flight *entity.Flight) error {
	avg, ok := flight.AveragePrice()
	if !ok {
		return fmt.Errorf("%w: empty price history", repository.ErrValidation)
	}

	at := t.now()
	sample := entity.PricePoint{Date: at, Price: t.simulator.NextPrice(avg)}
	if err := t.flightRepo.AppendPriceSample(ctx, flight.ID, sample); err != nil {
		return fmt.Errorf("failed to append price sample: %w", err)
	}
	if err := t.flightRepo.SetLastTracked(ctx, flight.ID, at); err != nil {
		return fmt.Errorf("failed to set last tracked: %w", err)
	}

	t.logger.Info("Updated flight price",
		"flightID", flight.ID,
		"route", flight.Route,
		"airline", flight.Airline,
		"price", sample.Price)
	return nil
}

// finish reports a firing to metrics and the run log
func (t *PriceTracker) finish(ctx context.Context, run *entity.TrackingRun, outcome string) {
	if t.metrics != nil {
		t.metrics.Firings.WithLabelValues(string(run.Interval), outcome).Inc()
		if !run.Skipped {
			t.metrics.FiringDuration.WithLabelValues(string(run.Interval)).Observe(run.Duration().Seconds())
		}
	}

	if t.runRepo == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := t.runRepo.Create(recordCtx, run); err != nil {
		t.logger.Error("Failed to record tracking run", "interval", run.Interval, "runID", run.ID, "error", err)
	}
}

// RecentRuns lists the latest recorded firings of a class
func (t *PriceTracker) RecentRuns(ctx context.Context, interval entity.Interval, limit int) ([]*entity.TrackingRun, error) {
	if !interval.Valid() {
		return nil, fmt.Errorf("%w: unknown interval %q", repository.ErrValidation, interval)
	}
	if t.runRepo == nil {
		return nil, fmt.Errorf("%w: tracking run log is not configured", repository.ErrStoreUnavailable)
	}
	return t.runRepo.ListRecent(ctx, interval, limit)
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
