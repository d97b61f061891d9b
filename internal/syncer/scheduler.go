package syncer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/asteroid-belt/farrierly/internal/syncqueue"
)

// SchedulerConfig controls when drains run.
type SchedulerConfig struct {
	// PeriodicInterval is the background drain period.
	PeriodicInterval time.Duration
	// Debounce delays an immediate drain so bursts of writes share one cycle.
	Debounce time.Duration
	// CompletedRetention is how long COMPLETED entries are kept before GC.
	CompletedRetention time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PeriodicInterval:   15 * time.Minute,
		Debounce:           2 * time.Second,
		CompletedRetention: 24 * time.Hour,
	}
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running      bool
	Draining     bool
	LastSyncTime *time.Time
	LastResult   Result
	LastError    error
}

// Scheduler runs drain cycles on demand and on a timer.
type Scheduler struct {
	worker *Worker
	queue  *syncqueue.Manager
	cfg    SchedulerConfig

	trigger chan struct{}
	onCycle func(Result, error)

	mu         sync.Mutex
	running    bool
	cancelFunc context.CancelFunc
	done       chan struct{}
	lastSync   time.Time
	lastResult Result
	lastErr    error
}

// NewScheduler creates a scheduler. onCycle, if non-nil, is called after
// every drain cycle from the scheduler goroutine.
func NewScheduler(worker *Worker, queue *syncqueue.Manager, cfg SchedulerConfig, onCycle func(Result, error)) *Scheduler {
	if cfg.PeriodicInterval <= 0 {
		cfg.PeriodicInterval = DefaultSchedulerConfig().PeriodicInterval
	}
	return &Scheduler{
		worker:  worker,
		queue:   queue,
		cfg:     cfg,
		trigger: make(chan struct{}, 1),
		onCycle: onCycle,
	}
}

// TriggerImmediateSync asks for a drain soon. It never blocks: triggers that
// arrive while one is already waiting are merged into it.
func (s *Scheduler) TriggerImmediateSync() {
	if s == nil {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start resets entries stranded by a previous process and begins the drain
// loop. Returns immediately; calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	ctx, s.cancelFunc = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	if _, err := s.queue.ResetInProgress(ctx); err != nil {
		log.Printf("sync: reset in-progress entries: %v", err)
	}

	go s.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to hand its entries back.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancelFunc, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// IsRunning returns whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the scheduler's current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:    s.running,
		Draining:   s.worker.IsRunning(),
		LastResult: s.lastResult,
		LastError:  s.lastErr,
	}
	if !s.lastSync.IsZero() {
		t := s.lastSync
		st.LastSyncTime = &t
	}
	return st
}

// SyncNow runs a drain cycle on the caller's goroutine.
func (s *Scheduler) SyncNow(ctx context.Context) (Result, error) {
	return s.runCycle(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(s.done)
	}()

	ticker := time.NewTicker(s.cfg.PeriodicInterval)
	defer ticker.Stop()

	// Catch up on anything enqueued while we were not running.
	s.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			if !s.debounce(ctx) {
				return
			}
			s.cycle(ctx)
		case <-ticker.C:
			s.cycle(ctx)
			s.collectGarbage(ctx)
		}
	}
}

// debounce waits out the debounce window, absorbing further triggers.
// It returns false if ctx ends first.
func (s *Scheduler) debounce(ctx context.Context) bool {
	if s.cfg.Debounce <= 0 {
		return true
	}
	timer := time.NewTimer(s.cfg.Debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-s.trigger:
		case <-timer.C:
			return true
		}
	}
}

// cycle runs one drain and re-triggers while full batches keep making progress.
func (s *Scheduler) cycle(ctx context.Context) {
	res, err := s.runCycle(ctx)
	if errors.Is(err, ErrDrainInProgress) || ctx.Err() != nil {
		return
	}
	if res.Fetched >= s.worker.cfg.BatchLimit && res.Completed+res.Conflicts > 0 {
		s.TriggerImmediateSync()
	}
}

func (s *Scheduler) runCycle(ctx context.Context) (Result, error) {
	res, err := s.worker.Drain(ctx)
	if errors.Is(err, ErrDrainInProgress) {
		return res, err
	}
	if err != nil && ctx.Err() == nil {
		log.Printf("sync: drain failed: %v", err)
	}

	s.mu.Lock()
	s.lastSync = time.Now()
	s.lastResult = res
	s.lastErr = err
	s.mu.Unlock()

	if s.onCycle != nil {
		s.onCycle(res, err)
	}
	return res, err
}

func (s *Scheduler) collectGarbage(ctx context.Context) {
	if s.cfg.CompletedRetention <= 0 {
		return
	}
	n, err := s.CollectGarbage(ctx)
	if err != nil {
		log.Printf("sync: gc completed entries: %v", err)
		return
	}
	if n > 0 {
		log.Printf("sync: removed %d completed entries", n)
	}
}

// CollectGarbage removes COMPLETED entries past the retention window now.
func (s *Scheduler) CollectGarbage(ctx context.Context) (int64, error) {
	return s.queue.DeleteCompletedBefore(ctx, time.Now().Add(-s.cfg.CompletedRetention))
}
