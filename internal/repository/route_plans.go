package repository

import (
	"context"
	"time"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// RoutePlanRepository writes and reads daily route plans.
type RoutePlanRepository struct {
	*base
}

func validateRoutePlan(p *models.RoutePlan) error {
	if p.Date.IsZero() {
		return invalid("route plan needs a date")
	}
	if p.TotalMiles < 0 || p.EstimatedMinutes < 0 {
		return invalid("route totals must not be negative")
	}
	p.Date = models.Truncate(p.Date)
	return nil
}

// Create stores a new plan.
func (r *RoutePlanRepository) Create(ctx context.Context, s Session, p *models.RoutePlan) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateRoutePlan(p); err != nil {
		return err
	}
	assignID(&p.ID)
	p.UserID = s.UserID
	return r.apply(ctx, change{entity: p, op: models.OperationCreate})
}

// Update replaces a plan, typically after reordering or optimizing its stops.
func (r *RoutePlanRepository) Update(ctx context.Context, s Session, p *models.RoutePlan) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateRoutePlan(p); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, p.ID)
	if err != nil {
		return err
	}
	p.UserID = s.UserID
	keepCreated(&p.SyncState, &stored.SyncState)
	return r.apply(ctx, change{entity: p, op: models.OperationUpdate})
}

// Delete soft-deletes a plan.
func (r *RoutePlanRepository) Delete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	return r.apply(ctx, change{entity: stored, op: models.OperationDelete})
}

// Get returns a live plan.
func (r *RoutePlanRepository) Get(ctx context.Context, s Session, id string) (*models.RoutePlan, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	p, err := r.read(ctx).GetRoutePlan(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound(models.EntityRoutePlan, id)
	}
	return p, nil
}

// ForDay returns the latest plan for day, or nil when there is none.
func (r *RoutePlanRepository) ForDay(ctx context.Context, s Session, day time.Time) (*models.RoutePlan, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).GetRoutePlanForDay(s.UserID, day)
}
