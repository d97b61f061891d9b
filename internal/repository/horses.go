package repository

import (
	"context"
	"strings"
	"time"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
)

// HorseRepository writes and reads horses.
type HorseRepository struct {
	*base
}

func validateHorse(h *models.Horse) error {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return invalid("horse name is required")
	}
	if h.ClientID == "" {
		return invalid("horse needs a client")
	}
	if h.ShoeingCycleWeeks != nil && *h.ShoeingCycleWeeks <= 0 {
		return invalid("shoeing cycle must be positive, got %d weeks", *h.ShoeingCycleWeeks)
	}
	return nil
}

// Create stores a new active horse for an existing client.
func (r *HorseRepository) Create(ctx context.Context, s Session, h *models.Horse) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateHorse(h); err != nil {
		return err
	}
	assignID(&h.ID)
	h.UserID = s.UserID
	h.IsActive = true
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		if err := requireClient(tx, s, h.ClientID); err != nil {
			return nil, err
		}
		return []change{{entity: h, op: models.OperationCreate}}, nil
	})
}

// Update replaces every field of an existing horse.
func (r *HorseRepository) Update(ctx context.Context, s Session, h *models.Horse) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateHorse(h); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, h.ID)
	if err != nil {
		return err
	}
	h.UserID = s.UserID
	keepCreated(&h.SyncState, &stored.SyncState)
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		if h.ClientID != stored.ClientID {
			if err := requireClient(tx, s, h.ClientID); err != nil {
				return nil, err
			}
		}
		return []change{{entity: h, op: models.OperationUpdate}}, nil
	})
}

// Delete soft-deletes a horse.
func (r *HorseRepository) Delete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	return r.apply(ctx, change{entity: stored, op: models.OperationDelete})
}

// Get returns a live horse.
func (r *HorseRepository) Get(ctx context.Context, s Session, id string) (*models.Horse, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	h, err := r.read(ctx).GetHorse(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, notFound(models.EntityHorse, id)
	}
	return h, nil
}

// ListByClient returns a client's horses by name.
func (r *HorseRepository) ListByClient(ctx context.Context, s Session, clientID string, includeInactive bool) ([]models.Horse, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListHorsesByClient(s.UserID, clientID, includeInactive)
}

// ListDue returns active horses due for service before cutoff, soonest first.
func (r *HorseRepository) ListDue(ctx context.Context, s Session, cutoff time.Time) ([]models.Horse, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListHorsesDueBefore(s.UserID, cutoff)
}

func requireClient(tx *db.DB, s Session, clientID string) error {
	c, err := tx.GetClient(s.UserID, clientID)
	if err != nil {
		return err
	}
	if c == nil {
		return notFound(models.EntityClient, clientID)
	}
	return nil
}
