package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetAppointment retrieves a live appointment with its horses.
func (db *DB) GetAppointment(userID, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := db.Preload("Horses").First(&appt, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &appt, nil
}

// ReplaceAppointmentHorses swaps the horse links of an appointment.
func (db *DB) ReplaceAppointmentHorses(appointmentID string, horses []models.AppointmentHorse) error {
	if err := db.Where("appointment_id = ?", appointmentID).Delete(&models.AppointmentHorse{}).Error; err != nil {
		return err
	}
	if len(horses) == 0 {
		return nil
	}
	for i := range horses {
		horses[i].AppointmentID = appointmentID
	}
	return db.Create(&horses).Error
}

// ListAppointmentsBetween returns a user's appointments with from <= date < to.
func (db *DB) ListAppointmentsBetween(userID string, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := db.Preload("Horses").
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Order("date ASC, start_time ASC").
		Find(&appts).Error
	return appts, err
}

// ListAppointmentsByClient returns a client's appointments, newest first.
func (db *DB) ListAppointmentsByClient(userID, clientID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := db.Preload("Horses").
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Order("date DESC, start_time DESC").
		Find(&appts).Error
	return appts, err
}
