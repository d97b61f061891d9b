package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// Statuses that still owe the backend a round trip.
var outstandingStatuses = []models.QueueStatus{
	models.QueueStatusPending,
	models.QueueStatusInProgress,
	models.QueueStatusFailed,
	models.QueueStatusQuarantined,
}

// Statuses an entity's newer entries must wait behind. Quarantined entries
// are parked and do not hold the chain.
var blockingStatuses = []models.QueueStatus{
	models.QueueStatusPending,
	models.QueueStatusInProgress,
	models.QueueStatusFailed,
}

var drainableStatuses = []models.QueueStatus{
	models.QueueStatusPending,
	models.QueueStatusFailed,
}

const drainOrder = "priority DESC, created_at ASC, id ASC"

// InsertSyncEntry appends a mutation to the sync queue.
func (db *DB) InsertSyncEntry(entry *models.SyncQueueEntry) error {
	return db.Create(entry).Error
}

// GetSyncEntry retrieves a queue entry by ID.
func (db *DB) GetSyncEntry(id int64) (*models.SyncQueueEntry, error) {
	var entry models.SyncQueueEntry
	err := db.First(&entry, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListDrainableSyncEntries returns PENDING or FAILED entries in drain order.
// When readyAt is non-nil, entries still backing off past readyAt are skipped.
func (db *DB) ListDrainableSyncEntries(limit int, readyAt *time.Time) ([]models.SyncQueueEntry, error) {
	var entries []models.SyncQueueEntry
	q := db.Where("status IN ?", drainableStatuses)
	if readyAt != nil {
		q = q.Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", *readyAt)
	}
	err := q.Order(drainOrder).Limit(limit).Find(&entries).Error
	return entries, err
}

// ListSyncEntries returns entries with the given status, or all entries when
// status is empty, in drain order.
func (db *DB) ListSyncEntries(status models.QueueStatus, limit int) ([]models.SyncQueueEntry, error) {
	var entries []models.SyncQueueEntry
	q := db.Model(&models.SyncQueueEntry{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order(drainOrder).Find(&entries).Error
	return entries, err
}

// CountDrainableSyncEntries returns the number of PENDING or FAILED entries.
func (db *DB) CountDrainableSyncEntries() (int64, error) {
	var count int64
	err := db.Model(&models.SyncQueueEntry{}).
		Where("status IN ?", drainableStatuses).
		Count(&count).Error
	return count, err
}

// SyncQueueStats counts queue entries per status.
func (db *DB) SyncQueueStats() (models.QueueStats, error) {
	var rows []struct {
		Status models.QueueStatus
		Count  int64
	}
	var stats models.QueueStats
	err := db.Model(&models.SyncQueueEntry{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}
	for _, r := range rows {
		switch r.Status {
		case models.QueueStatusPending:
			stats.Pending = r.Count
		case models.QueueStatusInProgress:
			stats.InProgress = r.Count
		case models.QueueStatusFailed:
			stats.Failed = r.Count
		case models.QueueStatusCompleted:
			stats.Completed = r.Count
		case models.QueueStatusQuarantined:
			stats.Quarantined = r.Count
		}
	}
	return stats, nil
}

// UpdateSyncEntryStatus sets the status of a queue entry.
// It reports whether a row was updated.
func (db *DB) UpdateSyncEntryStatus(id int64, status models.QueueStatus, now time.Time) (bool, error) {
	res := db.Model(&models.SyncQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	return res.RowsAffected > 0, res.Error
}

// RecordSyncFailure increments the retry count of an entry and stores the
// error. nextAttempt may be nil to make the entry immediately eligible.
func (db *DB) RecordSyncFailure(id int64, status models.QueueStatus, errMsg string, nextAttempt *time.Time, now time.Time) (bool, error) {
	res := db.Model(&models.SyncQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"retry_count":     gorm.Expr("retry_count + 1"),
			"last_error":      errMsg,
			"next_attempt_at": nextAttempt,
			"updated_at":      now,
		})
	return res.RowsAffected > 0, res.Error
}

// RequeueSyncEntry moves a QUARANTINED or FAILED entry back to PENDING with a
// fresh retry budget.
func (db *DB) RequeueSyncEntry(id int64, now time.Time) (bool, error) {
	res := db.Model(&models.SyncQueueEntry{}).
		Where("id = ? AND status IN ?", id, []models.QueueStatus{
			models.QueueStatusQuarantined, models.QueueStatusFailed,
		}).
		Updates(map[string]any{
			"status":          models.QueueStatusPending,
			"retry_count":     0,
			"last_error":      nil,
			"next_attempt_at": nil,
			"updated_at":      now,
		})
	return res.RowsAffected > 0, res.Error
}

// ResetInProgressSyncEntries returns entries stranded IN_PROGRESS by a crash
// to PENDING.
func (db *DB) ResetInProgressSyncEntries(now time.Time) (int64, error) {
	res := db.Model(&models.SyncQueueEntry{}).
		Where("status = ?", models.QueueStatusInProgress).
		Updates(map[string]any{
			"status":     models.QueueStatusPending,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// DeleteSyncEntry permanently removes a queue entry.
func (db *DB) DeleteSyncEntry(id int64) (bool, error) {
	res := db.Delete(&models.SyncQueueEntry{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// DeleteCompletedSyncEntriesBefore removes COMPLETED entries last touched
// before cutoff.
func (db *DB) DeleteCompletedSyncEntriesBefore(cutoff time.Time) (int64, error) {
	res := db.Where("status = ? AND updated_at < ?", models.QueueStatusCompleted, cutoff).
		Delete(&models.SyncQueueEntry{})
	return res.RowsAffected, res.Error
}

// DeletePendingSyncEntries removes PENDING entries of op for one entity,
// except keepID. It returns the number of entries removed.
func (db *DB) DeletePendingSyncEntries(t models.EntityType, entityID string, op models.Operation, keepID int64) (int64, error) {
	res := db.Where("entity_type = ? AND entity_id = ? AND operation = ? AND status = ? AND id <> ?",
		t, entityID, op, models.QueueStatusPending, keepID).
		Delete(&models.SyncQueueEntry{})
	return res.RowsAffected, res.Error
}

// CountOutstandingSyncEntries counts entries for an entity that have not
// completed, ignoring excludeID.
func (db *DB) CountOutstandingSyncEntries(t models.EntityType, entityID string, excludeID int64) (int64, error) {
	var count int64
	err := db.Model(&models.SyncQueueEntry{}).
		Where("entity_type = ? AND entity_id = ? AND status IN ? AND id <> ?",
			t, entityID, outstandingStatuses, excludeID).
		Count(&count).Error
	return count, err
}

// ListOlderBlockingSyncEntries returns an entity's live entries enqueued
// before beforeID, oldest first.
func (db *DB) ListOlderBlockingSyncEntries(t models.EntityType, entityID string, beforeID int64) ([]models.SyncQueueEntry, error) {
	var entries []models.SyncQueueEntry
	err := db.Where("entity_type = ? AND entity_id = ? AND status IN ? AND id < ?",
		t, entityID, blockingStatuses, beforeID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}
