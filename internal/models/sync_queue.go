package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueStatus is the lifecycle state of a sync queue entry.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "PENDING"
	QueueStatusInProgress QueueStatus = "IN_PROGRESS"
	QueueStatusFailed     QueueStatus = "FAILED"
	QueueStatusCompleted  QueueStatus = "COMPLETED"
	// QueueStatusQuarantined entries are never picked up again until requeued.
	QueueStatusQuarantined QueueStatus = "QUARANTINED"
)

// Valid reports whether s is a known queue status.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueueStatusPending, QueueStatusInProgress, QueueStatusFailed,
		QueueStatusCompleted, QueueStatusQuarantined:
		return true
	}
	return false
}

// ParseQueueStatus converts a string into a QueueStatus.
func ParseQueueStatus(s string) (QueueStatus, error) {
	st := QueueStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown queue status %q", s)
	}
	return st, nil
}

// IsDrainable returns true if the drain query selects entries in this status.
func (s QueueStatus) IsDrainable() bool {
	return s == QueueStatusPending || s == QueueStatusFailed
}

// SyncQueueEntry is a pending mutation waiting to reach the backend.
// EntityID is a soft reference; it is never validated or cascaded.
type SyncQueueEntry struct {
	ID            int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType    EntityType  `gorm:"size:32;not null;index:idx_sync_queue_entity,priority:1" json:"entity_type"`
	EntityID      string      `gorm:"size:64;not null;index:idx_sync_queue_entity,priority:2" json:"entity_id"`
	Operation     Operation   `gorm:"size:10;not null" json:"operation"`
	Payload       string      `gorm:"type:text" json:"payload"`
	Status        QueueStatus `gorm:"size:20;not null;default:PENDING;index:idx_sync_queue_drain,priority:1" json:"status"`
	RetryCount    int         `gorm:"not null;default:0" json:"retry_count"`
	LastError     *string     `gorm:"type:text" json:"last_error,omitempty"`
	Priority      int         `gorm:"not null;default:0;index:idx_sync_queue_drain,priority:2" json:"priority"`
	NextAttemptAt *time.Time  `json:"next_attempt_at,omitempty"`
	CreatedAt     time.Time   `gorm:"index:idx_sync_queue_drain,priority:3" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SyncQueueEntry) TableName() string {
	return "sync_queue"
}

// ErrorMessage returns the last recorded error or an empty string.
func (e *SyncQueueEntry) ErrorMessage() string {
	if e.LastError == nil {
		return ""
	}
	return *e.LastError
}

// EncodePayload serializes the sync payload of an entity.
func EncodePayload(e Syncable) (string, error) {
	data, err := json.Marshal(e.SyncPayload())
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", e.EntityType(), err)
	}
	return string(data), nil
}

// QueueStats summarizes the sync queue by status.
type QueueStats struct {
	Pending     int64 `json:"pending"`
	InProgress  int64 `json:"in_progress"`
	Failed      int64 `json:"failed"`
	Completed   int64 `json:"completed"`
	Quarantined int64 `json:"quarantined"`
}

// Undrained returns the count shown on the pending-sync badge.
func (s QueueStats) Undrained() int64 {
	return s.Pending + s.Failed
}
