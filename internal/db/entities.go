package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// ErrNotFound is returned when a write targets a row that does not exist
// or has already been soft-deleted.
var ErrNotFound = errors.New("record not found")

// InsertEntity inserts a new synchronizable row.
// Child rows (appointment horses, invoice items) are written separately.
func (db *DB) InsertEntity(e models.Syncable) error {
	return db.Omit(clause.Associations).Create(e).Error
}

// UpdateEntity overwrites every column of an existing, non-deleted row.
func (db *DB) UpdateEntity(e models.Syncable) error {
	res := db.Model(e).Select("*").Omit(clause.Associations).Updates(e)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", e.EntityType(), e.SyncID(), ErrNotFound)
	}
	return nil
}

// SoftDeleteEntity records the entity's sync stamp and marks it deleted.
// The row stays on disk until its DELETE reaches the backend.
func (db *DB) SoftDeleteEntity(e models.Syncable) error {
	meta := e.SyncMeta()
	res := db.Model(e).Updates(map[string]any{
		"sync_status": meta.SyncStatus,
		"updated_at":  meta.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", e.EntityType(), e.SyncID(), ErrNotFound)
	}
	return db.Delete(e).Error
}

// SetEntitySyncStatus sets the sync flag of any entity row, deleted or not.
func (db *DB) SetEntitySyncStatus(t models.EntityType, id string, status models.SyncStatus) error {
	if !t.Valid() {
		return fmt.Errorf("unknown entity type %q", t)
	}
	return db.Table(t.Table()).Where("id = ?", id).Update("sync_status", status).Error
}

// GetEntitySyncStatus returns the sync flag of an entity row, including
// soft-deleted rows. It returns "" if the row does not exist.
func (db *DB) GetEntitySyncStatus(t models.EntityType, id string) (models.SyncStatus, error) {
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", t)
	}
	var statuses []string
	err := db.Table(t.Table()).Where("id = ?", id).Limit(1).Pluck("sync_status", &statuses).Error
	if err != nil || len(statuses) == 0 {
		return "", err
	}
	return models.SyncStatus(statuses[0]), nil
}

// PurgeEntity permanently removes an entity row and its child rows.
func (db *DB) PurgeEntity(t models.EntityType, id string) error {
	if !t.Valid() {
		return fmt.Errorf("unknown entity type %q", t)
	}
	return db.Transaction(func(tx *DB) error {
		switch t {
		case models.EntityAppointment:
			if err := tx.Where("appointment_id = ?", id).Delete(&models.AppointmentHorse{}).Error; err != nil {
				return err
			}
		case models.EntityInvoice:
			if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
		}
		return tx.Exec("DELETE FROM "+t.Table()+" WHERE id = ?", id).Error
	})
}

// EntityRef identifies an entity row and its sync state.
type EntityRef struct {
	Type       models.EntityType `gorm:"-"`
	ID         string
	SyncStatus models.SyncStatus
	UpdatedAt  time.Time
}

// ListEntitiesBySyncStatus returns rows of every entity type owned by userID
// whose sync flag is one of statuses. Soft-deleted rows are included.
func (db *DB) ListEntitiesBySyncStatus(userID string, statuses ...models.SyncStatus) ([]EntityRef, error) {
	var refs []EntityRef
	for _, t := range models.AllEntityTypes() {
		owner := "user_id = ?"
		if t == models.EntityUser {
			owner = "id = ?"
		}
		var rows []EntityRef
		err := db.Table(t.Table()).
			Select("id, sync_status, updated_at").
			Where(owner, userID).
			Where("sync_status IN ?", statuses).
			Order("updated_at DESC").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", t.Table(), err)
		}
		for i := range rows {
			rows[i].Type = t
		}
		refs = append(refs, rows...)
	}
	return refs, nil
}
