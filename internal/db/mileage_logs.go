package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetMileageLog retrieves a live mileage log.
func (db *DB) GetMileageLog(userID, id string) (*models.MileageLog, error) {
	var m models.MileageLog
	err := db.First(&m, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListMileageLogsBetween returns a user's trips with from <= date < to.
func (db *DB) ListMileageLogsBetween(userID string, from, to time.Time) ([]models.MileageLog, error) {
	var logs []models.MileageLog
	err := db.Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Order("date ASC").
		Find(&logs).Error
	return logs, err
}

// SumMiles totals a user's miles with from <= date < to.
func (db *DB) SumMiles(userID string, from, to time.Time) (float64, error) {
	var total float64
	err := db.Model(&models.MileageLog{}).
		Select("COALESCE(SUM(miles), 0)").
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Scan(&total).Error
	return total, err
}
