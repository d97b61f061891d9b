package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// IncrementSmsUsage adds n to the user's counter for the month of at.
func (db *DB) IncrementSmsUsage(userID string, at time.Time, n int) error {
	usage := models.SmsUsage{
		UserID:    userID,
		Month:     models.UsageMonth(at),
		Count:     n,
		UpdatedAt: at,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr("sms_usage.count + ?", n),
			"updated_at": at,
		}),
	}).Create(&usage).Error
}

// GetSmsUsage returns the user's counter for the month of at.
func (db *DB) GetSmsUsage(userID string, at time.Time) (int, error) {
	var usage models.SmsUsage
	err := db.First(&usage, "user_id = ? AND month = ?", userID, models.UsageMonth(at)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return usage.Count, nil
}
