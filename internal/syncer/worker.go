// Package syncer drains the sync queue into the remote backend.
package syncer

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/remote"
	"github.com/asteroid-belt/farrierly/internal/syncqueue"
)

// ErrDrainInProgress is returned when Drain is called while another drain runs.
var ErrDrainInProgress = errors.New("drain already in progress")

// WorkerConfig controls a drain cycle.
type WorkerConfig struct {
	BatchLimit int
	// Concurrency bounds how many entities are pushed at once. Entries of one
	// entity are always pushed one at a time, oldest first.
	Concurrency int
	// ConflictCheck compares updated_at with the remote row before an UPDATE.
	ConflictCheck bool
}

// DefaultWorkerConfig returns the production drain settings.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchLimit:    syncqueue.DefaultLimit,
		Concurrency:   1,
		ConflictCheck: true,
	}
}

// Result summarizes one drain cycle.
type Result struct {
	Fetched     int
	Completed   int
	Failed      int
	Quarantined int
	Conflicts   int
	// Skipped entries waited behind an older entry of the same entity.
	Skipped  int
	Duration time.Duration
}

func (r *Result) add(o outcome) {
	switch o {
	case outcomeCompleted:
		r.Completed++
	case outcomeFailed:
		r.Failed++
	case outcomeQuarantined:
		r.Quarantined++
	case outcomeConflict:
		r.Conflicts++
	}
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeQuarantined
	outcomeConflict
	outcomeAbandoned
)

// Observer is told about entries that need someone's attention. Calls may
// come from several goroutines at once.
type Observer interface {
	Quarantined(e *models.SyncQueueEntry, cause error)
	Conflict(e *models.SyncQueueEntry)
}

// Worker pushes queued mutations to the backend.
type Worker struct {
	db       *db.DB
	queue    *syncqueue.Manager
	backend  remote.Backend
	cfg      WorkerConfig
	observer Observer

	mu      sync.Mutex
	running bool
}

// NewWorker creates a drain worker.
func NewWorker(database *db.DB, queue *syncqueue.Manager, backend remote.Backend, cfg WorkerConfig) *Worker {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = syncqueue.DefaultLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Worker{
		db:      database,
		queue:   queue,
		backend: backend,
		cfg:     cfg,
	}
}

// SetObserver registers o for quarantine and conflict notices. Call before
// the first Drain.
func (w *Worker) SetObserver(o Observer) {
	w.observer = o
}

func (w *Worker) notifyQuarantined(e *models.SyncQueueEntry, cause error) {
	if w.observer != nil {
		w.observer.Quarantined(e, cause)
	}
}

func (w *Worker) notifyConflict(e *models.SyncQueueEntry) {
	if w.observer != nil {
		w.observer.Conflict(e)
	}
}

// IsRunning returns whether a drain is in progress.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Drain runs one cycle: fetch a batch of ready entries and push each to the
// backend. Only one cycle runs at a time; overlapping calls return
// ErrDrainInProgress. Sync failures are recorded on the entries, not returned.
func (w *Worker) Drain(ctx context.Context) (Result, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return Result{}, ErrDrainInProgress
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	started := time.Now()
	var res Result

	entries, err := w.queue.GetReadyOperations(ctx, w.cfg.BatchLimit)
	if err != nil {
		return res, fmt.Errorf("fetch batch: %w", err)
	}
	res.Fetched = len(entries)
	if len(entries) == 0 {
		return res, nil
	}

	var resMu sync.Mutex
	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)

	for _, chain := range groupByEntity(entries) {
		g.Go(func() error {
			r := w.drainEntity(ctx, chain)
			resMu.Lock()
			res.Completed += r.Completed
			res.Failed += r.Failed
			res.Quarantined += r.Quarantined
			res.Conflicts += r.Conflicts
			res.Skipped += r.Skipped
			resMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res.Duration = time.Since(started)
	log.Printf("sync: drained %d entries: %d completed, %d failed, %d quarantined, %d conflicts, %d skipped (%s)",
		res.Fetched, res.Completed, res.Failed, res.Quarantined, res.Conflicts, res.Skipped, res.Duration.Round(time.Millisecond))
	return res, ctx.Err()
}

// groupByEntity splits a batch into per-entity chains ordered by enqueue id.
// Chains keep the batch order of each entity's first entry.
func groupByEntity(entries []models.SyncQueueEntry) [][]models.SyncQueueEntry {
	type key struct {
		t  models.EntityType
		id string
	}
	index := make(map[key]int)
	var chains [][]models.SyncQueueEntry
	for _, e := range entries {
		k := key{e.EntityType, e.EntityID}
		i, ok := index[k]
		if !ok {
			i = len(chains)
			index[k] = i
			chains = append(chains, nil)
		}
		chains[i] = append(chains[i], e)
	}
	for _, chain := range chains {
		slices.SortFunc(chain, func(a, b models.SyncQueueEntry) int {
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return chains
}

// drainEntity pushes one entity's chain in order, stopping at the first
// entry that does not complete. Older entries of the entity that fell
// outside the batch are pushed ahead of the chain.
func (w *Worker) drainEntity(ctx context.Context, chain []models.SyncQueueEntry) Result {
	var res Result
	first := chain[0]

	older, ready, err := w.queue.OlderBlocking(ctx, first.EntityType, first.EntityID, first.ID)
	if err != nil {
		log.Printf("sync: check order for %s/%s: %v", first.EntityType, first.EntityID, err)
		res.Skipped = len(chain)
		return res
	}
	if !ready {
		res.Skipped = len(chain)
		return res
	}
	if len(older) > 0 {
		chain = append(older, chain...)
	}

	for i := range chain {
		if ctx.Err() != nil {
			res.Skipped += len(chain) - i
			return res
		}
		o := w.process(ctx, &chain[i])
		res.add(o)
		if o != outcomeCompleted && o != outcomeConflict {
			res.Skipped += len(chain) - i - 1
			return res
		}
	}
	return res
}

// process pushes a single entry and records the outcome.
func (w *Worker) process(ctx context.Context, e *models.SyncQueueEntry) outcome {
	if err := w.queue.UpdateStatus(ctx, e.ID, models.QueueStatusInProgress); err != nil {
		log.Printf("sync: claim entry %d: %v", e.ID, err)
		return outcomeAbandoned
	}

	err := w.push(ctx, e)
	switch {
	case err == nil:
		if err := w.complete(ctx, e); err != nil {
			log.Printf("sync: complete entry %d: %v", e.ID, err)
			return outcomeAbandoned
		}
		return outcomeCompleted

	case errors.Is(err, errLocalLost):
		if err := w.settle(ctx, e, models.SyncStatusConflict, nil); err != nil {
			log.Printf("sync: record conflict for entry %d: %v", e.ID, err)
			return outcomeAbandoned
		}
		log.Printf("sync: conflict on %s/%s: remote row is newer, local change dropped", e.EntityType, e.EntityID)
		w.notifyConflict(e)
		return outcomeConflict

	case ctx.Err() != nil:
		// Shutting down: hand the entry back untouched for the next cycle.
		bg := context.WithoutCancel(ctx)
		if err := w.queue.UpdateStatus(bg, e.ID, models.QueueStatusPending); err != nil {
			log.Printf("sync: release entry %d: %v", e.ID, err)
		}
		return outcomeAbandoned
	}

	switch remote.Classify(err) {
	case remote.KindConflict:
		if serr := w.settle(ctx, e, models.SyncStatusConflict, err); serr != nil {
			log.Printf("sync: quarantine entry %d: %v", e.ID, serr)
			return outcomeAbandoned
		}
		log.Printf("sync: conflict on %s/%s: %v", e.EntityType, e.EntityID, err)
		w.notifyConflict(e)
		w.notifyQuarantined(e, err)
		return outcomeQuarantined

	case remote.KindPermanent:
		if serr := w.settle(ctx, e, models.SyncStatusFailed, err); serr != nil {
			log.Printf("sync: quarantine entry %d: %v", e.ID, serr)
			return outcomeAbandoned
		}
		log.Printf("sync: %s %s/%s rejected: %v", e.Operation, e.EntityType, e.EntityID, err)
		w.notifyQuarantined(e, err)
		return outcomeQuarantined
	}

	status, merr := w.queue.MarkFailed(ctx, e.ID, err)
	if merr != nil {
		log.Printf("sync: mark entry %d failed: %v", e.ID, merr)
		return outcomeAbandoned
	}
	if status == models.QueueStatusQuarantined {
		if serr := w.db.WithContext(ctx).SetEntitySyncStatus(e.EntityType, e.EntityID, models.SyncStatusFailed); serr != nil {
			log.Printf("sync: flag %s/%s failed: %v", e.EntityType, e.EntityID, serr)
		}
		log.Printf("sync: %s %s/%s quarantined after %d retries: %v", e.Operation, e.EntityType, e.EntityID, e.RetryCount+1, err)
		w.notifyQuarantined(e, err)
		return outcomeQuarantined
	}
	return outcomeFailed
}

// push applies the entry to the backend.
func (w *Worker) push(ctx context.Context, e *models.SyncQueueEntry) error {
	table := e.EntityType.Table()
	payload := json.RawMessage(e.Payload)

	switch e.Operation {
	case models.OperationCreate:
		return w.backend.Insert(ctx, table, payload)
	case models.OperationUpdate:
		if w.cfg.ConflictCheck {
			if err := w.checkConflict(ctx, e); err != nil {
				return err
			}
		}
		return w.backend.Update(ctx, table, e.EntityID, payload)
	case models.OperationDelete:
		return w.backend.Delete(ctx, table, e.EntityID)
	}
	return &remote.Error{Op: string(e.Operation), Table: table, StatusCode: http.StatusBadRequest, Message: "unknown operation"}
}

// complete marks the entry COMPLETED and reconciles the entity row: a
// deleted row is purged, any other row returns to SYNCED once nothing else
// is outstanding for it.
func (w *Worker) complete(ctx context.Context, e *models.SyncQueueEntry) error {
	return w.queue.Within(ctx, func(tx *db.DB, q *syncqueue.Manager) error {
		if err := q.UpdateStatus(ctx, e.ID, models.QueueStatusCompleted); err != nil {
			return err
		}
		if e.Operation == models.OperationDelete {
			return tx.PurgeEntity(e.EntityType, e.EntityID)
		}
		outstanding, err := q.HasOutstanding(ctx, e.EntityType, e.EntityID, e.ID)
		if err != nil {
			return err
		}
		if outstanding {
			return nil
		}
		return tx.SetEntitySyncStatus(e.EntityType, e.EntityID, models.SyncStatusSynced)
	})
}

// settle finishes an entry that did not reach the backend and flags the
// entity. With cause nil the entry is completed (the remote already holds a
// newer state); otherwise it is quarantined with cause.
func (w *Worker) settle(ctx context.Context, e *models.SyncQueueEntry, status models.SyncStatus, cause error) error {
	return w.queue.Within(ctx, func(tx *db.DB, q *syncqueue.Manager) error {
		if cause == nil {
			if err := q.UpdateStatus(ctx, e.ID, models.QueueStatusCompleted); err != nil {
				return err
			}
		} else if err := q.Quarantine(ctx, e.ID, cause); err != nil {
			return err
		}
		return tx.SetEntitySyncStatus(e.EntityType, e.EntityID, status)
	})
}
