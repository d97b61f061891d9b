package models

import "time"

// SmsUsage counts reminder texts sent per user and calendar month.
// It never leaves the device.
type SmsUsage struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	Month     string    `gorm:"primaryKey;size:7" json:"month"` // YYYY-MM
	Count     int       `gorm:"default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SmsUsage) TableName() string {
	return "sms_usage"
}

// UsageMonth returns the SmsUsage month key for t.
func UsageMonth(t time.Time) string {
	return t.Format("2006-01")
}
