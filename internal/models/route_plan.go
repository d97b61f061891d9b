package models

import "time"

// RoutePlan is the ordered list of stops for one working day.
// Stops holds appointment ids in visiting order.
type RoutePlan struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	UserID           string    `gorm:"size:64;not null;index" json:"user_id"`
	Date             time.Time `gorm:"index" json:"date"`
	Stops            []string  `gorm:"serializer:json;type:text" json:"stops"`
	TotalMiles       float64   `json:"total_miles"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	IsOptimized      bool      `json:"is_optimized"`

	SyncState
}

// TableName specifies the table name for GORM.
func (RoutePlan) TableName() string {
	return "route_plans"
}

// EntityType implements Syncable.
func (r *RoutePlan) EntityType() EntityType { return EntityRoutePlan }

// SyncID implements Syncable.
func (r *RoutePlan) SyncID() string { return r.ID }

// RoutePlanPayload is the snapshot of a route plan sent to the backend.
type RoutePlanPayload struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Date        string   `json:"date"`
	Stops       []string `json:"stops"`
	TotalMiles  float64  `json:"total_miles"`
	IsOptimized bool     `json:"is_optimized"`
	UpdatedAt   string   `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (r *RoutePlan) SyncPayload() any {
	stops := r.Stops
	if stops == nil {
		stops = []string{}
	}
	return RoutePlanPayload{
		ID:          r.ID,
		UserID:      r.UserID,
		Date:        formatDate(&r.Date),
		Stops:       stops,
		TotalMiles:  r.TotalMiles,
		IsOptimized: r.IsOptimized,
		UpdatedAt:   formatTimestamp(r.UpdatedAt),
	}
}
