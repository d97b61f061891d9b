package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetRoutePlan retrieves a live route plan.
func (db *DB) GetRoutePlan(userID, id string) (*models.RoutePlan, error) {
	var plan models.RoutePlan
	err := db.First(&plan, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// GetRoutePlanForDay retrieves the most recent plan for the given day.
func (db *DB) GetRoutePlanForDay(userID string, day time.Time) (*models.RoutePlan, error) {
	var plan models.RoutePlan
	start := models.Truncate(day)
	err := db.Where("user_id = ? AND date >= ? AND date < ?", userID, start, start.AddDate(0, 0, 1)).
		Order("updated_at DESC").
		First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}
