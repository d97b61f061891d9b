// Package syncqueue owns the sync queue: the durable outbox of local
// mutations waiting to reach the backend.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
)

// DefaultLimit caps a drain batch when the caller passes no limit.
const DefaultLimit = 50

var (
	// ErrEntryNotFound is returned when a queue entry id does not exist.
	ErrEntryNotFound = errors.New("sync queue entry not found")
	// ErrInvalidEntry is returned for unknown entity types or operations.
	ErrInvalidEntry = errors.New("invalid sync queue entry")
)

// Config controls retry and coalescing policy.
type Config struct {
	// MaxRetries quarantines an entry once its retry count reaches it.
	// Zero retries forever.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// AutoCoalesce drops superseded pending UPDATEs on every enqueue.
	AutoCoalesce bool
}

// DefaultConfig returns the production retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		BaseBackoff:  time.Minute,
		MaxBackoff:   time.Hour,
		AutoCoalesce: true,
	}
}

// Manager is the only writer of the sync_queue table.
type Manager struct {
	db  *db.DB
	cfg Config
	hub *hub
	now func() time.Time

	// Set on managers bound to a transaction: notifications wait for commit.
	inTx  bool
	dirty bool
}

// New creates a queue manager over database.
func New(database *db.DB, cfg Config) *Manager {
	return &Manager{
		db:  database,
		cfg: cfg,
		hub: newHub(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Used by tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Config returns the manager's policy.
func (m *Manager) Config() Config {
	return m.cfg
}

// Within runs fn in a single transaction. fn receives the transaction handle
// and a Manager bound to it, so entity writes and their enqueues commit or
// roll back together. Observers are notified after commit.
func (m *Manager) Within(ctx context.Context, fn func(tx *db.DB, q *Manager) error) error {
	if m.inTx {
		return fn(m.db, m)
	}
	var txm *Manager
	err := m.db.WithContext(ctx).Transaction(func(tx *db.DB) error {
		txm = &Manager{db: tx, cfg: m.cfg, hub: m.hub, now: m.now, inTx: true}
		return fn(tx, txm)
	})
	if err != nil {
		return err
	}
	if txm != nil && txm.dirty {
		m.hub.broadcast()
	}
	return nil
}

func (m *Manager) changed() {
	if m.inTx {
		m.dirty = true
		return
	}
	m.hub.broadcast()
}

func (m *Manager) store(ctx context.Context) *db.DB {
	if m.inTx {
		return m.db
	}
	return m.db.WithContext(ctx)
}

// Enqueue records a PENDING mutation for an entity and returns its id.
// Priority comes from op. With AutoCoalesce, an UPDATE replaces older pending
// UPDATEs of the same entity and a DELETE purges them.
func (m *Manager) Enqueue(ctx context.Context, t models.EntityType, entityID string, op models.Operation, payload string) (int64, error) {
	if !t.Valid() || !op.Valid() || entityID == "" {
		return 0, fmt.Errorf("%w: %s %s %q", ErrInvalidEntry, op, t, entityID)
	}
	now := m.now()
	entry := &models.SyncQueueEntry{
		EntityType: t,
		EntityID:   entityID,
		Operation:  op,
		Payload:    payload,
		Status:     models.QueueStatusPending,
		Priority:   op.Priority(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := m.Within(ctx, func(tx *db.DB, q *Manager) error {
		if err := tx.InsertSyncEntry(entry); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		if !m.cfg.AutoCoalesce {
			return nil
		}
		switch op {
		case models.OperationUpdate, models.OperationDelete:
			if _, err := tx.DeletePendingSyncEntries(t, entityID, models.OperationUpdate, entry.ID); err != nil {
				return fmt.Errorf("coalesce: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue %s %s: %w", op, t, err)
	}
	m.changed()
	return entry.ID, nil
}

// CoalesceUpdates deletes every PENDING UPDATE for the entity except keepID.
func (m *Manager) CoalesceUpdates(ctx context.Context, t models.EntityType, entityID string, keepID int64) (int64, error) {
	n, err := m.store(ctx).DeletePendingSyncEntries(t, entityID, models.OperationUpdate, keepID)
	if err != nil {
		return 0, fmt.Errorf("coalesce %s %s: %w", t, entityID, err)
	}
	if n > 0 {
		m.changed()
	}
	return n, nil
}

// GetPendingOperations returns up to limit PENDING or FAILED entries,
// highest priority first, then oldest first.
func (m *Manager) GetPendingOperations(ctx context.Context, limit int) ([]models.SyncQueueEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return m.store(ctx).ListDrainableSyncEntries(limit, nil)
}

// GetReadyOperations is GetPendingOperations without entries still in backoff.
func (m *Manager) GetReadyOperations(ctx context.Context, limit int) ([]models.SyncQueueEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	now := m.now()
	return m.store(ctx).ListDrainableSyncEntries(limit, &now)
}

// List returns entries in drain order, optionally filtered by status.
func (m *Manager) List(ctx context.Context, status models.QueueStatus, limit int) ([]models.SyncQueueEntry, error) {
	return m.store(ctx).ListSyncEntries(status, limit)
}

// Get returns one entry.
func (m *Manager) Get(ctx context.Context, id int64) (*models.SyncQueueEntry, error) {
	e, err := m.store(ctx).GetSyncEntry(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("entry %d: %w", id, ErrEntryNotFound)
	}
	return e, nil
}

// GetPendingCount returns the number of PENDING or FAILED entries.
func (m *Manager) GetPendingCount(ctx context.Context) (int64, error) {
	return m.store(ctx).CountDrainableSyncEntries()
}

// Stats counts entries per status.
func (m *Manager) Stats(ctx context.Context) (models.QueueStats, error) {
	return m.store(ctx).SyncQueueStats()
}

// ObservePendingCount emits the current pending count, then a new value each
// time it changes. The channel closes when ctx is done.
func (m *Manager) ObservePendingCount(ctx context.Context) <-chan int64 {
	out := make(chan int64, 1)
	id, signal := m.hub.subscribe()

	go func() {
		defer close(out)
		defer m.hub.unsubscribe(id)

		last := int64(-1)
		for {
			n, err := m.db.WithContext(ctx).CountDrainableSyncEntries()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("sync queue: count pending: %v", err)
			} else if n != last {
				select {
				case out <- n:
					last = n
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-signal:
			}
		}
	}()

	return out
}

// MarkFailed records a failed attempt: retry count +1 and the error message.
// The entry is FAILED with a backoff delay, or QUARANTINED once the retry
// count reaches MaxRetries. It returns the resulting status.
func (m *Manager) MarkFailed(ctx context.Context, id int64, cause error) (models.QueueStatus, error) {
	store := m.store(ctx)
	entry, err := store.GetSyncEntry(id)
	if err != nil {
		return "", fmt.Errorf("mark failed %d: %w", id, err)
	}
	if entry == nil {
		return "", fmt.Errorf("mark failed %d: %w", id, ErrEntryNotFound)
	}

	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	now := m.now()
	retries := entry.RetryCount + 1
	status := models.QueueStatusFailed
	var next *time.Time
	if m.cfg.MaxRetries > 0 && retries >= m.cfg.MaxRetries {
		status = models.QueueStatusQuarantined
	} else if m.cfg.BaseBackoff > 0 {
		at := now.Add(Backoff(retries, m.cfg.BaseBackoff, m.cfg.MaxBackoff))
		next = &at
	}

	if _, err := store.RecordSyncFailure(id, status, msg, next, now); err != nil {
		return "", fmt.Errorf("mark failed %d: %w", id, err)
	}
	if status == models.QueueStatusQuarantined {
		log.Printf("sync queue: quarantined %s %s/%s after %d attempts: %s",
			entry.Operation, entry.EntityType, entry.EntityID, retries, msg)
	}
	m.changed()
	return status, nil
}

// Quarantine parks an entry so no drain picks it up until it is requeued.
// The retry count still records the attempt.
func (m *Manager) Quarantine(ctx context.Context, id int64, cause error) error {
	msg := "quarantined"
	if cause != nil {
		msg = cause.Error()
	}
	ok, err := m.store(ctx).RecordSyncFailure(id, models.QueueStatusQuarantined, msg, nil, m.now())
	if err != nil {
		return fmt.Errorf("quarantine %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("quarantine %d: %w", id, ErrEntryNotFound)
	}
	m.changed()
	return nil
}

// Requeue moves a QUARANTINED or FAILED entry back to PENDING with its retry
// count reset.
func (m *Manager) Requeue(ctx context.Context, id int64) error {
	ok, err := m.store(ctx).RequeueSyncEntry(id, m.now())
	if err != nil {
		return fmt.Errorf("requeue %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("requeue %d: %w", id, ErrEntryNotFound)
	}
	m.changed()
	return nil
}

// RequeueAll requeues every quarantined entry and returns how many moved.
func (m *Manager) RequeueAll(ctx context.Context) (int, error) {
	entries, err := m.store(ctx).ListSyncEntries(models.QueueStatusQuarantined, 0)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, e := range entries {
		if err := m.Requeue(ctx, e.ID); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// UpdateStatus sets an entry's status.
func (m *Manager) UpdateStatus(ctx context.Context, id int64, status models.QueueStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidEntry, status)
	}
	ok, err := m.store(ctx).UpdateSyncEntryStatus(id, status, m.now())
	if err != nil {
		return fmt.Errorf("update status %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("update status %d: %w", id, ErrEntryNotFound)
	}
	m.changed()
	return nil
}

// Delete removes an entry.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	ok, err := m.store(ctx).DeleteSyncEntry(id)
	if err != nil {
		return fmt.Errorf("delete %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("delete %d: %w", id, ErrEntryNotFound)
	}
	m.changed()
	return nil
}

// DeleteCompletedBefore garbage-collects COMPLETED entries older than cutoff.
func (m *Manager) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := m.store(ctx).DeleteCompletedSyncEntriesBefore(cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete completed: %w", err)
	}
	return n, nil
}

// ResetInProgress returns entries left IN_PROGRESS by an interrupted drain
// to PENDING. Call it before the first drain of a process.
func (m *Manager) ResetInProgress(ctx context.Context) (int64, error) {
	n, err := m.store(ctx).ResetInProgressSyncEntries(m.now())
	if err != nil {
		return 0, fmt.Errorf("reset in progress: %w", err)
	}
	if n > 0 {
		log.Printf("sync queue: reset %d interrupted entries", n)
		m.changed()
	}
	return n, nil
}

// HasOutstanding reports whether the entity has any entry other than
// excludeID that has not completed.
func (m *Manager) HasOutstanding(ctx context.Context, t models.EntityType, entityID string, excludeID int64) (bool, error) {
	n, err := m.store(ctx).CountOutstandingSyncEntries(t, entityID, excludeID)
	return n > 0, err
}

// OlderBlocking returns the live entries of an entity enqueued before id,
// oldest first. ready is false when one of them is in progress or still
// backing off, so nothing newer for the entity may be pushed yet.
func (m *Manager) OlderBlocking(ctx context.Context, t models.EntityType, entityID string, id int64) (entries []models.SyncQueueEntry, ready bool, err error) {
	entries, err = m.store(ctx).ListOlderBlockingSyncEntries(t, entityID, id)
	if err != nil {
		return nil, false, fmt.Errorf("list older entries: %w", err)
	}
	now := m.now()
	for _, e := range entries {
		if e.Status == models.QueueStatusInProgress {
			return entries, false, nil
		}
		if e.NextAttemptAt != nil && e.NextAttemptAt.After(now) {
			return entries, false, nil
		}
	}
	return entries, true, nil
}
