package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetHorse retrieves a live horse owned by userID.
func (db *DB) GetHorse(userID, id string) (*models.Horse, error) {
	var horse models.Horse
	err := db.First(&horse, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &horse, nil
}

// GetHorsesByIDs retrieves the live horses among ids.
func (db *DB) GetHorsesByIDs(userID string, ids []string) ([]models.Horse, error) {
	var horses []models.Horse
	if len(ids) == 0 {
		return horses, nil
	}
	err := db.Where("user_id = ? AND id IN ?", userID, ids).
		Order("name ASC").
		Find(&horses).Error
	return horses, err
}

// ListHorsesByClient returns a client's horses sorted by name.
func (db *DB) ListHorsesByClient(userID, clientID string, includeInactive bool) ([]models.Horse, error) {
	var horses []models.Horse
	q := db.Where("user_id = ? AND client_id = ?", userID, clientID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("name ASC").Find(&horses).Error
	return horses, err
}

// ListHorsesDueBefore returns active horses whose next service falls before cutoff.
func (db *DB) ListHorsesDueBefore(userID string, cutoff time.Time) ([]models.Horse, error) {
	var horses []models.Horse
	err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Where("next_due_date IS NOT NULL AND next_due_date < ?", cutoff).
		Order("next_due_date ASC").
		Find(&horses).Error
	return horses, err
}
