package repository

import (
	"context"
	"strings"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// ServicePriceRepository writes and reads the price list.
type ServicePriceRepository struct {
	*base
}

func validateServicePrice(p *models.ServicePrice) error {
	if !p.ServiceType.Valid() {
		return invalid("service type %q", p.ServiceType)
	}
	if p.PriceCents < 0 {
		return invalid("price must not be negative")
	}
	p.Name = strings.TrimSpace(p.Name)
	return nil
}

// Create adds an active price list entry.
func (r *ServicePriceRepository) Create(ctx context.Context, s Session, p *models.ServicePrice) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateServicePrice(p); err != nil {
		return err
	}
	assignID(&p.ID)
	p.UserID = s.UserID
	p.IsActive = true
	return r.apply(ctx, change{entity: p, op: models.OperationCreate})
}

// Update replaces a price list entry.
func (r *ServicePriceRepository) Update(ctx context.Context, s Session, p *models.ServicePrice) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateServicePrice(p); err != nil {
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

// Delete soft-deletes a price list entry.
func (r *ServicePriceRepository) Delete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	return r.apply(ctx, change{entity: stored, op: models.OperationDelete})
}

// Get returns a live price list entry.
func (r *ServicePriceRepository) Get(ctx context.Context, s Session, id string) (*models.ServicePrice, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	p, err := r.read(ctx).GetServicePrice(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound(models.EntityServicePrice, id)
	}
	return p, nil
}

// List returns the user's price list.
func (r *ServicePriceRepository) List(ctx context.Context, s Session) ([]models.ServicePrice, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListServicePrices(s.UserID)
}
