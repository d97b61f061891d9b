package db

import (
	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetUser retrieves a user by ID.
func (db *DB) GetUser(id string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
