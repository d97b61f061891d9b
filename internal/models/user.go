package models

// DefaultShoeingCycleWeeks is used when neither the horse nor the account sets a cycle.
const DefaultShoeingCycleWeeks = 6

// User is the signed-in farrier account.
type User struct {
	ID                string `gorm:"primaryKey;size:64" json:"id"`
	Email             string `gorm:"size:255;uniqueIndex" json:"email"`
	Name              string `gorm:"size:255" json:"name"`
	BusinessName      string `gorm:"size:255" json:"business_name"`
	Phone             string `gorm:"size:50" json:"phone"`
	DefaultCycleWeeks int    `gorm:"default:6" json:"default_cycle_weeks"`

	SyncState
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// EntityType implements Syncable.
func (u *User) EntityType() EntityType { return EntityUser }

// SyncID implements Syncable.
func (u *User) SyncID() string { return u.ID }

// UserPayload is the snapshot of a user sent to the backend.
type UserPayload struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	BusinessName      string `json:"business_name,omitempty"`
	DefaultCycleWeeks int    `json:"default_cycle_weeks"`
	UpdatedAt         string `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (u *User) SyncPayload() any {
	return UserPayload{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		BusinessName:      u.BusinessName,
		DefaultCycleWeeks: u.DefaultCycleWeeks,
		UpdatedAt:         formatTimestamp(u.UpdatedAt),
	}
}
