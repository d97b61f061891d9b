package models

import (
	"fmt"
	"time"
)

// MileagePurpose classifies a trip for tax reporting.
type MileagePurpose string

const (
	MileageClientVisit MileagePurpose = "CLIENT_VISIT"
	MileageSupplyRun   MileagePurpose = "SUPPLY_RUN"
	MileageTraining    MileagePurpose = "TRAINING"
	MileageOther       MileagePurpose = "OTHER"
)

// Valid reports whether p is a known mileage purpose.
func (p MileagePurpose) Valid() bool {
	switch p {
	case MileageClientVisit, MileageSupplyRun, MileageTraining, MileageOther:
		return true
	}
	return false
}

// ParseMileagePurpose converts a string into a MileagePurpose.
func ParseMileagePurpose(s string) (MileagePurpose, error) {
	p := MileagePurpose(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown mileage purpose %q", s)
	}
	return p, nil
}

// MileageLog records a business trip.
type MileageLog struct {
	ID            string         `gorm:"primaryKey;size:64" json:"id"`
	UserID        string         `gorm:"size:64;not null;index" json:"user_id"`
	Date          time.Time      `gorm:"index" json:"date"`
	StartLocation string         `gorm:"size:500" json:"start_location"`
	EndLocation   string         `gorm:"size:500" json:"end_location"`
	Miles         float64        `json:"miles"`
	Purpose       MileagePurpose `gorm:"size:30;default:CLIENT_VISIT" json:"purpose"`
	AppointmentID *string        `gorm:"size:64" json:"appointment_id"`
	Notes         string         `gorm:"type:text" json:"notes"`

	SyncState
}

// TableName specifies the table name for GORM.
func (MileageLog) TableName() string {
	return "mileage_logs"
}

// EntityType implements Syncable.
func (m *MileageLog) EntityType() EntityType { return EntityMileageLog }

// SyncID implements Syncable.
func (m *MileageLog) SyncID() string { return m.ID }

// MileageLogPayload is the snapshot of a mileage log sent to the backend.
type MileageLogPayload struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Date          string         `json:"date"`
	Miles         float64        `json:"miles"`
	Purpose       MileagePurpose `json:"purpose"`
	AppointmentID *string        `json:"appointment_id,omitempty"`
	UpdatedAt     string         `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (m *MileageLog) SyncPayload() any {
	return MileageLogPayload{
		ID:            m.ID,
		UserID:        m.UserID,
		Date:          formatDate(&m.Date),
		Miles:         m.Miles,
		Purpose:       m.Purpose,
		AppointmentID: m.AppointmentID,
		UpdatedAt:     formatTimestamp(m.UpdatedAt),
	}
}
