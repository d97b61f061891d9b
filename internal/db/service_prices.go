package db

import (
	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetServicePrice retrieves a live price list entry.
func (db *DB) GetServicePrice(userID, id string) (*models.ServicePrice, error) {
	var sp models.ServicePrice
	err := db.First(&sp, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sp, nil
}

// ListServicePrices returns a user's active price list.
func (db *DB) ListServicePrices(userID string) ([]models.ServicePrice, error) {
	var prices []models.ServicePrice
	err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("service_type ASC, name ASC").
		Find(&prices).Error
	return prices, err
}
