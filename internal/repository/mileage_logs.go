package repository

import (
	"context"
	"time"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// MileageLogRepository writes and reads business mileage.
type MileageLogRepository struct {
	*base
}

func validateMileage(m *models.MileageLog) error {
	if m.Date.IsZero() {
		return invalid("trip needs a date")
	}
	if m.Miles < 0 {
		return invalid("miles must not be negative, got %.1f", m.Miles)
	}
	if m.Purpose == "" {
		m.Purpose = models.MileageClientVisit
	}
	if !m.Purpose.Valid() {
		return invalid("mileage purpose %q", m.Purpose)
	}
	return nil
}

// Create logs a trip.
func (r *MileageLogRepository) Create(ctx context.Context, s Session, m *models.MileageLog) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateMileage(m); err != nil {
		return err
	}
	assignID(&m.ID)
	m.UserID = s.UserID
	return r.apply(ctx, change{entity: m, op: models.OperationCreate})
}

// Update replaces a logged trip.
func (r *MileageLogRepository) Update(ctx context.Context, s Session, m *models.MileageLog) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateMileage(m); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, m.ID)
	if err != nil {
		return err
	}
	m.UserID = s.UserID
	keepCreated(&m.SyncState, &stored.SyncState)
	return r.apply(ctx, change{entity: m, op: models.OperationUpdate})
}

// Delete soft-deletes a trip.
func (r *MileageLogRepository) Delete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	return r.apply(ctx, change{entity: stored, op: models.OperationDelete})
}

// Get returns a live trip.
func (r *MileageLogRepository) Get(ctx context.Context, s Session, id string) (*models.MileageLog, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	m, err := r.read(ctx).GetMileageLog(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFound(models.EntityMileageLog, id)
	}
	return m, nil
}

// ListBetween returns trips with from <= date < to.
func (r *MileageLogRepository) ListBetween(ctx context.Context, s Session, from, to time.Time) ([]models.MileageLog, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListMileageLogsBetween(s.UserID, from, to)
}

// Total sums miles with from <= date < to.
func (r *MileageLogRepository) Total(ctx context.Context, s Session, from, to time.Time) (float64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	return r.read(ctx).SumMiles(s.UserID, from, to)
}
