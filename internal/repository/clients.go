package repository

import (
	"context"
	"strings"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
)

// ClientRepository writes and reads clients.
type ClientRepository struct {
	*base
}

func validateClient(c *models.Client) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("client name is required")
	}
	return nil
}

// Create stores a new active client. An empty ID is generated.
func (r *ClientRepository) Create(ctx context.Context, s Session, c *models.Client) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateClient(c); err != nil {
		return err
	}
	assignID(&c.ID)
	c.UserID = s.UserID
	c.IsActive = true
	return r.apply(ctx, change{entity: c, op: models.OperationCreate})
}

// Update replaces every field of an existing client.
func (r *ClientRepository) Update(ctx context.Context, s Session, c *models.Client) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := validateClient(c); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, c.ID)
	if err != nil {
		return err
	}
	c.UserID = s.UserID
	keepCreated(&c.SyncState, &stored.SyncState)
	return r.apply(ctx, change{entity: c, op: models.OperationUpdate})
}

// Delete soft-deletes a client. The row is purged once the backend confirms.
func (r *ClientRepository) Delete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	return r.apply(ctx, change{entity: stored, op: models.OperationDelete})
}

// Archive deactivates a client and every one of its horses. Each row goes
// through its own write path, so archiving a client with N horses enqueues
// N+1 updates.
func (r *ClientRepository) Archive(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		client, err := tx.GetClientWithHorses(s.UserID, id)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, notFound(models.EntityClient, id)
		}
		horses := client.Horses
		client.Horses = nil
		client.IsActive = false

		changes := []change{{entity: client, op: models.OperationUpdate}}
		for i := range horses {
			horses[i].IsActive = false
			changes = append(changes, change{entity: &horses[i], op: models.OperationUpdate})
		}
		return changes, nil
	})
}

// Get returns a live client.
func (r *ClientRepository) Get(ctx context.Context, s Session, id string) (*models.Client, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	c, err := r.read(ctx).GetClient(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound(models.EntityClient, id)
	}
	return c, nil
}

// GetWithHorses returns a live client and its live horses.
func (r *ClientRepository) GetWithHorses(ctx context.Context, s Session, id string) (*models.Client, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	c, err := r.read(ctx).GetClientWithHorses(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound(models.EntityClient, id)
	}
	return c, nil
}

// List returns the user's clients by name.
func (r *ClientRepository) List(ctx context.Context, s Session, includeInactive bool) ([]models.Client, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListClients(s.UserID, includeInactive)
}

// Search matches name, city or phone.
func (r *ClientRepository) Search(ctx context.Context, s Session, query string, limit int) ([]models.Client, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return r.read(ctx).SearchClients(s.UserID, strings.TrimSpace(query), limit)
}
