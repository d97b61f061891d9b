package repository

import (
	"context"
	"strings"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// UserRepository writes and reads the signed-in user's profile.
type UserRepository struct {
	*base
}

// Get returns the session's user.
func (r *UserRepository) Get(ctx context.Context, s Session) (*models.User, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	u, err := r.read(ctx).GetUser(s.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, notFound(models.EntityUser, s.UserID)
	}
	return u, nil
}

// Save creates the session's profile on first use and replaces it after.
func (r *UserRepository) Save(ctx context.Context, s Session, u *models.User) error {
	if err := s.validate(); err != nil {
		return err
	}
	u.ID = s.UserID
	u.Email = strings.TrimSpace(u.Email)
	if u.DefaultCycleWeeks < 0 {
		return invalid("default cycle must not be negative")
	}
	if u.DefaultCycleWeeks == 0 {
		u.DefaultCycleWeeks = models.DefaultShoeingCycleWeeks
	}

	stored, err := r.read(ctx).GetUser(s.UserID)
	if err != nil {
		return err
	}
	if stored == nil {
		return r.apply(ctx, change{entity: u, op: models.OperationCreate})
	}
	keepCreated(&u.SyncState, &stored.SyncState)
	return r.apply(ctx, change{entity: u, op: models.OperationUpdate})
}
