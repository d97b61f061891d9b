package cli

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"sync/atomic"
	"time"

	"github.com/asteroid-belt/farrierly/internal/config"
	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/prefs"
	"github.com/asteroid-belt/farrierly/internal/remote"
	"github.com/asteroid-belt/farrierly/internal/repository"
	"github.com/asteroid-belt/farrierly/internal/syncer"
	"github.com/asteroid-belt/farrierly/internal/syncqueue"
	"github.com/asteroid-belt/farrierly/internal/telemetry"
)

// newBackend builds the remote backend for sync commands. Replaced in tests.
var newBackend = func(cfg *config.Config) (remote.Backend, error) {
	if !cfg.Remote.Configured() {
		return nil, fmt.Errorf("%w: set FARRIERLY_REMOTE_URL", remote.ErrNoURL)
	}
	return remote.NewRESTBackend(remote.Config{
		URL:         cfg.Remote.URL,
		APIKey:      cfg.Remote.APIKey,
		AccessToken: cfg.Remote.AccessToken,
		RateLimit:   cfg.Remote.RateLimit,
		Timeout:     cfg.Remote.Timeout,
	})
}

// app holds the stores a command works against.
type app struct {
	cfg     *config.Config
	db      *db.DB
	queue   *syncqueue.Manager
	prefs   *prefs.Store
	repos   *repository.Repositories
	session repository.Session

	// wrote is set once a repository write commits.
	wrote atomic.Bool
}

// openApp loads configuration and opens the local database, queue and
// preferences. Nothing here touches the network.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	paths := config.GetPaths(cfg)

	dbCfg := db.DefaultConfig(paths.Database)
	dbCfg.Debug = cfg.Debug
	database, err := db.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	store, err := prefs.Open(paths.Prefs)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	queue := syncqueue.New(database, syncqueue.Config{
		MaxRetries:   cfg.Sync.MaxRetries,
		BaseBackoff:  cfg.Sync.BaseBackoff,
		MaxBackoff:   cfg.Sync.MaxBackoff,
		AutoCoalesce: cfg.Sync.AutoCoalesce,
	})

	a := &app{
		cfg:     cfg,
		db:      database,
		queue:   queue,
		prefs:   store,
		session: repository.Session{UserID: cfg.UserID},
	}
	a.repos = repository.New(database, queue, repository.Options{
		Trigger:                a,
		DefaultCycleWeeks:      store.ShoeingCycleWeeks,
		DefaultDurationMinutes: store.AppointmentDuration,
	})
	return a, nil
}

// newScheduler wires the drain worker and scheduler to the configured
// backend, reporting outcomes to telemetry.
func (a *app) newScheduler() (*syncer.Scheduler, error) {
	backend, err := newBackend(a.cfg)
	if err != nil {
		return nil, err
	}
	worker := syncer.NewWorker(a.db, a.queue, backend, syncer.WorkerConfig{
		BatchLimit:    a.cfg.Sync.BatchLimit,
		Concurrency:   a.cfg.Sync.Concurrency,
		ConflictCheck: a.cfg.Sync.ConflictCheck,
	})
	reporter := syncReporter{client: telemetryClient}
	worker.SetObserver(reporter)

	s := syncer.NewScheduler(worker, a.queue, syncer.SchedulerConfig{
		PeriodicInterval:   a.cfg.Sync.PeriodicInterval,
		Debounce:           a.cfg.Sync.Debounce,
		CompletedRetention: a.cfg.Sync.CompletedRetention,
	}, reporter.cycle)
	return s, nil
}

// TriggerImmediateSync marks the command as having changed local data. The
// push itself runs in pushWrites once the command is done.
func (a *app) TriggerImmediateSync() {
	a.wrote.Store(true)
}

// pushWrites runs one bounded drain after a write command so its changes
// reach the backend without waiting for the daemon. Without a backend, or
// when the push fails, the changes stay queued for the next sync.
func (a *app) pushWrites(ctx context.Context) {
	if !a.wrote.Load() || !a.cfg.Sync.PushOnWrite {
		return
	}
	scheduler, err := a.newScheduler()
	if err != nil {
		if !errors.Is(err, remote.ErrNoURL) {
			stdlog.Printf("sync: push after write: %v", err)
		}
		return
	}
	if a.cfg.Remote.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Remote.Timeout)
		defer cancel()
	}
	if _, err := scheduler.SyncNow(ctx); err != nil {
		stdlog.Printf("sync: push after write: %v", err)
	}
}

func (a *app) Close() {
	_ = a.prefs.Close()
	_ = a.db.Close()
}

// syncReporter forwards drain outcomes to telemetry. Only entity types and
// operations are sent, never payloads or ids.
type syncReporter struct {
	client telemetry.Client
}

func (r syncReporter) Quarantined(e *models.SyncQueueEntry, cause error) {
	r.client.TrackSyncEntryQuarantined(string(e.EntityType), string(e.Operation), e.RetryCount)
}

func (r syncReporter) Conflict(e *models.SyncQueueEntry) {
	r.client.TrackSyncConflictDetected(string(e.EntityType), string(e.Operation))
}

func (r syncReporter) cycle(res syncer.Result, err error) {
	if err != nil || res.Fetched == 0 {
		return
	}
	r.client.TrackSyncCycleCompleted(res.Fetched, res.Completed, res.Failed,
		res.Quarantined, res.Conflicts, res.Duration.Milliseconds())
}

// parseDate reads a YYYY-MM-DD flag value as a UTC calendar day.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// today returns the current UTC calendar day.
func today() time.Time {
	return models.Truncate(time.Now().UTC())
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := fn(ctx, a); err != nil {
		return err
	}
	a.pushWrites(ctx)
	return nil
}
