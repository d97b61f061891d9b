package models

import (
	"fmt"
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentNoShow    AppointmentStatus = "NO_SHOW"
)

// Valid reports whether s is a known appointment status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted,
		AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

// IsClosed returns true once the appointment can no longer change state.
func (s AppointmentStatus) IsClosed() bool {
	switch s {
	case AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

// ParseAppointmentStatus converts a string into an AppointmentStatus.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	st := AppointmentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown appointment status %q", s)
	}
	return st, nil
}

// Appointment is a scheduled visit to a client for one or more horses.
type Appointment struct {
	ID                 string            `gorm:"primaryKey;size:64" json:"id"`
	UserID             string            `gorm:"size:64;not null;index" json:"user_id"`
	ClientID           string            `gorm:"size:64;not null;index" json:"client_id"`
	Date               time.Time         `gorm:"index" json:"date"`
	StartTime          string            `gorm:"size:5" json:"start_time"` // HH:MM
	DurationMinutes    int               `gorm:"default:60" json:"duration_minutes"`
	Status             AppointmentStatus `gorm:"size:20;default:SCHEDULED;index" json:"status"`
	TotalPriceCents    int64             `gorm:"default:0" json:"total_price_cents"`
	Notes              string            `gorm:"type:text" json:"notes"`
	CompletedAt        *time.Time        `json:"completed_at"`
	CancelledAt        *time.Time        `json:"cancelled_at"`
	CancellationReason *string           `gorm:"size:1000" json:"cancellation_reason"`

	SyncState

	Horses []AppointmentHorse `gorm:"foreignKey:AppointmentID" json:"horses,omitempty"`
}

// TableName specifies the table name for GORM.
func (Appointment) TableName() string {
	return "appointments"
}

// EntityType implements Syncable.
func (a *Appointment) EntityType() EntityType { return EntityAppointment }

// SyncID implements Syncable.
func (a *Appointment) SyncID() string { return a.ID }

// HorseIDs returns the ids of the horses attached to the appointment.
func (a *Appointment) HorseIDs() []string {
	ids := make([]string, 0, len(a.Horses))
	for _, h := range a.Horses {
		ids = append(ids, h.HorseID)
	}
	return ids
}

// AppointmentHorse links a horse to an appointment with the service performed.
type AppointmentHorse struct {
	AppointmentID string      `gorm:"primaryKey;size:64" json:"appointment_id"`
	HorseID       string      `gorm:"primaryKey;size:64;index" json:"horse_id"`
	ServiceType   ServiceType `gorm:"size:30" json:"service_type"`
	PriceCents    int64       `gorm:"default:0" json:"price_cents"`
	Notes         string      `gorm:"type:text" json:"notes"`
}

// TableName specifies the table name for GORM.
func (AppointmentHorse) TableName() string {
	return "appointment_horses"
}

// AppointmentPayload is the snapshot of an appointment sent to the backend.
// The horse links travel inline as horse_ids, so the backend's appointments
// table carries a horse_ids text[] column; appointment_horses stays local.
type AppointmentPayload struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	ClientID           string            `json:"client_id"`
	Date               string            `json:"date"`
	StartTime          string            `json:"start_time"`
	Status             AppointmentStatus `json:"status"`
	TotalPriceCents    int64             `json:"total_price_cents"`
	HorseIDs           []string          `json:"horse_ids,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	UpdatedAt          string            `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (a *Appointment) SyncPayload() any {
	return AppointmentPayload{
		ID:                 a.ID,
		UserID:             a.UserID,
		ClientID:           a.ClientID,
		Date:               formatDate(&a.Date),
		StartTime:          a.StartTime,
		Status:             a.Status,
		TotalPriceCents:    a.TotalPriceCents,
		HorseIDs:           a.HorseIDs(),
		CancellationReason: a.CancellationReason,
		UpdatedAt:          formatTimestamp(a.UpdatedAt),
	}
}
