package models

import "fmt"

// ServiceType is a kind of farrier service with its own price.
type ServiceType string

const (
	ServiceTrim        ServiceType = "TRIM"
	ServiceFrontShoes  ServiceType = "FRONT_SHOES"
	ServiceFullSet     ServiceType = "FULL_SET"
	ServiceCorrective  ServiceType = "CORRECTIVE"
	ServiceResetShoes  ServiceType = "RESET"
	ServiceOtherCharge ServiceType = "OTHER"
)

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTrim, ServiceFrontShoes, ServiceFullSet, ServiceCorrective,
		ServiceResetShoes, ServiceOtherCharge:
		return true
	}
	return false
}

// ParseServiceType converts a string into a ServiceType.
func ParseServiceType(s string) (ServiceType, error) {
	t := ServiceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown service type %q", s)
	}
	return t, nil
}

// ServicePrice is the farrier's price list entry for a service.
type ServicePrice struct {
	ID          string      `gorm:"primaryKey;size:64" json:"id"`
	UserID      string      `gorm:"size:64;not null;index" json:"user_id"`
	ServiceType ServiceType `gorm:"size:30;not null" json:"service_type"`
	Name        string      `gorm:"size:255" json:"name"`
	PriceCents  int64       `json:"price_cents"`
	IsActive    bool        `json:"is_active"`

	SyncState
}

// TableName specifies the table name for GORM.
func (ServicePrice) TableName() string {
	return "service_prices"
}

// EntityType implements Syncable.
func (s *ServicePrice) EntityType() EntityType { return EntityServicePrice }

// SyncID implements Syncable.
func (s *ServicePrice) SyncID() string { return s.ID }

// ServicePricePayload is the snapshot of a service price sent to the backend.
type ServicePricePayload struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	ServiceType ServiceType `json:"service_type"`
	Name        string      `json:"name"`
	PriceCents  int64       `json:"price_cents"`
	IsActive    bool        `json:"is_active"`
	UpdatedAt   string      `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (s *ServicePrice) SyncPayload() any {
	return ServicePricePayload{
		ID:          s.ID,
		UserID:      s.UserID,
		ServiceType: s.ServiceType,
		Name:        s.Name,
		PriceCents:  s.PriceCents,
		IsActive:    s.IsActive,
		UpdatedAt:   formatTimestamp(s.UpdatedAt),
	}
}
