// Package models defines the core data structures for Farrierly.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncStatus is the per-row synchronization flag carried by every synchronizable entity.
type SyncStatus string

const (
	SyncStatusSynced        SyncStatus = "SYNCED"
	SyncStatusPendingCreate SyncStatus = "PENDING_CREATE"
	SyncStatusPendingUpdate SyncStatus = "PENDING_UPDATE"
	SyncStatusPendingDelete SyncStatus = "PENDING_DELETE"
	SyncStatusConflict      SyncStatus = "CONFLICT"
	// SyncStatusFailed marks a row whose queued change was quarantined.
	SyncStatusFailed SyncStatus = "FAILED"
)

// Valid reports whether s is a known sync status.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusSynced, SyncStatusPendingCreate, SyncStatusPendingUpdate,
		SyncStatusPendingDelete, SyncStatusConflict, SyncStatusFailed:
		return true
	}
	return false
}

// IsPending returns true for the PENDING_* variants.
func (s SyncStatus) IsPending() bool {
	switch s {
	case SyncStatusPendingCreate, SyncStatusPendingUpdate, SyncStatusPendingDelete:
		return true
	}
	return false
}

// Operation is the kind of mutation recorded in the sync queue.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// ParseOperation converts a string into an Operation.
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if !op.Valid() {
		return "", fmt.Errorf("unknown operation %q", s)
	}
	return op, nil
}

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Priority returns the drain priority for op. Higher drains first, so a
// DELETE ranks last; per-entity order still keeps it behind older changes
// to the same row.
func (op Operation) Priority() int {
	switch op {
	case OperationCreate:
		return 1
	case OperationUpdate:
		return 2
	case OperationDelete:
		return 0
	}
	return 0
}

// PendingStatus returns the row sync status stamped for op.
func (op Operation) PendingStatus() SyncStatus {
	switch op {
	case OperationCreate:
		return SyncStatusPendingCreate
	case OperationUpdate:
		return SyncStatusPendingUpdate
	case OperationDelete:
		return SyncStatusPendingDelete
	}
	return SyncStatusPendingUpdate
}

// EntityType tags the kind of entity a queue entry refers to.
type EntityType string

const (
	EntityClient       EntityType = "client"
	EntityHorse        EntityType = "horse"
	EntityAppointment  EntityType = "appointment"
	EntityInvoice      EntityType = "invoice"
	EntityMileageLog   EntityType = "mileage_log"
	EntityRoutePlan    EntityType = "route_plan"
	EntityServicePrice EntityType = "service_price"
	EntityUser         EntityType = "user"
)

// AllEntityTypes lists every synchronizable entity type.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityClient, EntityHorse, EntityAppointment, EntityInvoice,
		EntityMileageLog, EntityRoutePlan, EntityServicePrice, EntityUser,
	}
}

// ParseEntityType converts a string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return t.Table() != ""
}

// Table returns the local and remote table name for t.
func (t EntityType) Table() string {
	switch t {
	case EntityClient:
		return "clients"
	case EntityHorse:
		return "horses"
	case EntityAppointment:
		return "appointments"
	case EntityInvoice:
		return "invoices"
	case EntityMileageLog:
		return "mileage_logs"
	case EntityRoutePlan:
		return "route_plans"
	case EntityServicePrice:
		return "service_prices"
	case EntityUser:
		return "users"
	}
	return ""
}

// SyncState is embedded by every synchronizable entity.
// UpdatedAt is stamped by the repository, not by GORM.
type SyncState struct {
	SyncStatus SyncStatus     `gorm:"size:20;default:SYNCED;index" json:"sync_status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime:false" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Stamp sets the sync status and refreshes UpdatedAt.
func (s *SyncState) Stamp(status SyncStatus, at time.Time) {
	s.SyncStatus = status
	s.UpdatedAt = at
	if s.CreatedAt.IsZero() {
		s.CreatedAt = at
	}
}

// SyncMeta returns the embedded sync state.
func (s *SyncState) SyncMeta() *SyncState {
	return s
}

// Syncable is implemented by every entity that travels through the sync queue.
type Syncable interface {
	EntityType() EntityType
	SyncID() string
	SyncMeta() *SyncState
	// SyncPayload returns the partial snapshot sent to the backend.
	SyncPayload() any
}

// NewID returns a client-generated primary key.
func NewID() string {
	return uuid.New().String()
}
