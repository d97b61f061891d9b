package db

import (
	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetClient retrieves a live client owned by userID.
func (db *DB) GetClient(userID, id string) (*models.Client, error) {
	var client models.Client
	err := db.First(&client, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// GetClientWithHorses retrieves a client with its live horses.
func (db *DB) GetClientWithHorses(userID, id string) (*models.Client, error) {
	var client models.Client
	err := db.Preload("Horses", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("name ASC")
	}).First(&client, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// ListClients returns a user's clients sorted by name.
func (db *DB) ListClients(userID string, includeInactive bool) ([]models.Client, error) {
	var clients []models.Client
	q := db.Where("user_id = ?", userID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("name ASC").Find(&clients).Error
	return clients, err
}

// SearchClients returns a user's clients whose name, city or phone contains query.
func (db *DB) SearchClients(userID, query string, limit int) ([]models.Client, error) {
	var clients []models.Client
	like := "%" + query + "%"
	err := db.Where("user_id = ?", userID).
		Where("name LIKE ? OR city LIKE ? OR phone LIKE ?", like, like, like).
		Order("name ASC").
		Limit(limit).
		Find(&clients).Error
	return clients, err
}
