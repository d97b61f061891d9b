package models

import "time"

// Horse is an animal the farrier shoes or trims on a recurring cycle.
type Horse struct {
	ID                string     `gorm:"primaryKey;size:64" json:"id"`
	UserID            string     `gorm:"size:64;not null;index" json:"user_id"`
	ClientID          string     `gorm:"size:64;not null;index" json:"client_id"`
	Name              string     `gorm:"size:255;not null" json:"name"`
	Breed             string     `gorm:"size:100" json:"breed"`
	Color             string     `gorm:"size:50" json:"color"`
	Age               *int       `json:"age"`
	ShoeingCycleWeeks *int       `json:"shoeing_cycle_weeks"`
	LastServiceDate   *time.Time `json:"last_service_date"`
	NextDueDate       *time.Time `gorm:"index" json:"next_due_date"`
	Notes             string     `gorm:"type:text" json:"notes"`
	IsActive          bool       `gorm:"index" json:"is_active"`

	SyncState
}

// TableName specifies the table name for GORM.
func (Horse) TableName() string {
	return "horses"
}

// EntityType implements Syncable.
func (h *Horse) EntityType() EntityType { return EntityHorse }

// SyncID implements Syncable.
func (h *Horse) SyncID() string { return h.ID }

// CycleWeeks returns the horse's own shoeing cycle or fallback when unset.
func (h *Horse) CycleWeeks(fallback int) int {
	if h.ShoeingCycleWeeks != nil && *h.ShoeingCycleWeeks > 0 {
		return *h.ShoeingCycleWeeks
	}
	return fallback
}

// HorsePayload is the snapshot of a horse sent to the backend.
type HorsePayload struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	ClientID          string `json:"client_id"`
	Name              string `json:"name"`
	Breed             string `json:"breed,omitempty"`
	ShoeingCycleWeeks *int   `json:"shoeing_cycle_weeks,omitempty"`
	LastServiceDate   string `json:"last_service_date,omitempty"`
	NextDueDate       string `json:"next_due_date,omitempty"`
	IsActive          bool   `json:"is_active"`
	UpdatedAt         string `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (h *Horse) SyncPayload() any {
	return HorsePayload{
		ID:                h.ID,
		UserID:            h.UserID,
		ClientID:          h.ClientID,
		Name:              h.Name,
		Breed:             h.Breed,
		ShoeingCycleWeeks: h.ShoeingCycleWeeks,
		LastServiceDate:   formatDate(h.LastServiceDate),
		NextDueDate:       formatDate(h.NextDueDate),
		IsActive:          h.IsActive,
		UpdatedAt:         formatTimestamp(h.UpdatedAt),
	}
}
