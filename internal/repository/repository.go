// Package repository is the write path for every synchronizable entity.
//
// A repository call stamps the row's pending sync status, writes it to the
// local store, enqueues its payload and nudges the scheduler. The local write
// and the enqueue share one transaction. Reads never touch the network.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/syncqueue"
)

var (
	// ErrNotFound is returned when the target row does not exist for the session's user.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps validation failures of caller input.
	ErrInvalid = errors.New("invalid input")
	// ErrNoSession is returned when a call carries no user.
	ErrNoSession = errors.New("no signed-in user")
	// ErrClosed is returned when an appointment or invoice can no longer change state.
	ErrClosed = errors.New("already closed")
)

// Session identifies the signed-in user a call acts for.
type Session struct {
	UserID string
}

func (s Session) validate() error {
	if s.UserID == "" {
		return ErrNoSession
	}
	return nil
}

// Trigger requests a sync soon. Implementations must not block.
type Trigger interface {
	TriggerImmediateSync()
}

// Options tunes the repositories.
type Options struct {
	// Trigger is called after every committed write. May be nil.
	Trigger Trigger

	// DefaultCycleWeeks supplies the account-wide shoeing cycle. A nil func or
	// a non-positive result falls back to the user row, then to six weeks.
	DefaultCycleWeeks func() int

	// DefaultDurationMinutes fills appointments created without a duration.
	DefaultDurationMinutes func() int

	Now func() time.Time
}

// Repositories groups the per-entity repositories over one store and queue.
type Repositories struct {
	Clients       *ClientRepository
	Horses        *HorseRepository
	Appointments  *AppointmentRepository
	Invoices      *InvoiceRepository
	MileageLogs   *MileageLogRepository
	ServicePrices *ServicePriceRepository
	RoutePlans    *RoutePlanRepository
	Users         *UserRepository
	Usage         *UsageRepository

	base *base
}

// New wires repositories for every entity type.
func New(database *db.DB, queue *syncqueue.Manager, opts Options) *Repositories {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	b := &base{db: database, queue: queue, opts: opts}
	return &Repositories{
		Clients:       &ClientRepository{b},
		Horses:        &HorseRepository{b},
		Appointments:  &AppointmentRepository{b},
		Invoices:      &InvoiceRepository{b},
		MileageLogs:   &MileageLogRepository{b},
		ServicePrices: &ServicePriceRepository{b},
		RoutePlans:    &RoutePlanRepository{b},
		Users:         &UserRepository{b},
		Usage:         &UsageRepository{b},
		base:          b,
	}
}

// Conflicts lists the user's rows whose last change was rejected or lost a
// last-write-wins race.
func (r *Repositories) Conflicts(ctx context.Context, s Session) ([]db.EntityRef, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	refs, err := r.base.db.WithContext(ctx).ListEntitiesBySyncStatus(s.UserID,
		models.SyncStatusConflict, models.SyncStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return refs, nil
}

// Unsynced lists the user's rows with a change that has not reached the backend.
func (r *Repositories) Unsynced(ctx context.Context, s Session) ([]db.EntityRef, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	refs, err := r.base.db.WithContext(ctx).ListEntitiesBySyncStatus(s.UserID,
		models.SyncStatusPendingCreate, models.SyncStatusPendingUpdate, models.SyncStatusPendingDelete)
	if err != nil {
		return nil, fmt.Errorf("list unsynced: %w", err)
	}
	return refs, nil
}

// change is one entity mutation inside a write.
type change struct {
	entity models.Syncable
	op     models.Operation
	// children writes dependent rows after the entity row.
	children func(tx *db.DB) error
}

type base struct {
	db    *db.DB
	queue *syncqueue.Manager
	opts  Options
}

func (b *base) now() time.Time {
	return b.opts.Now()
}

func (b *base) read(ctx context.Context) *db.DB {
	return b.db.WithContext(ctx)
}

// apply runs the write path for changes in one transaction, then triggers a sync.
func (b *base) apply(ctx context.Context, changes ...change) error {
	return b.plan(ctx, func(*db.DB) ([]change, error) {
		return changes, nil
	})
}

// plan is apply for writes that must read inside the transaction first.
// Every change is stamped with the same time.
func (b *base) plan(ctx context.Context, fn func(tx *db.DB) ([]change, error)) error {
	now := b.now()
	err := b.queue.Within(ctx, func(tx *db.DB, q *syncqueue.Manager) error {
		changes, err := fn(tx)
		if err != nil {
			return err
		}
		for _, c := range changes {
			if err := write(ctx, tx, q, c, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if b.opts.Trigger != nil {
		b.opts.Trigger.TriggerImmediateSync()
	}
	return nil
}

func write(ctx context.Context, tx *db.DB, q *syncqueue.Manager, c change, now time.Time) error {
	e := c.entity
	e.SyncMeta().Stamp(c.op.PendingStatus(), now)

	var err error
	switch c.op {
	case models.OperationCreate:
		err = tx.InsertEntity(e)
	case models.OperationUpdate:
		err = tx.UpdateEntity(e)
	case models.OperationDelete:
		err = tx.SoftDeleteEntity(e)
	default:
		err = fmt.Errorf("%w: operation %q", ErrInvalid, c.op)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%s %s: %w", e.EntityType(), e.SyncID(), ErrNotFound)
		}
		return fmt.Errorf("write %s %s: %w", e.EntityType(), e.SyncID(), err)
	}

	if c.children != nil && c.op != models.OperationDelete {
		if err := c.children(tx); err != nil {
			return fmt.Errorf("write %s %s children: %w", e.EntityType(), e.SyncID(), err)
		}
	}

	payload, err := models.EncodePayload(e)
	if err != nil {
		return err
	}
	if _, err := q.Enqueue(ctx, e.EntityType(), e.SyncID(), c.op, payload); err != nil {
		return err
	}
	return nil
}

// cycleWeeks resolves the account default shoeing cycle.
func (b *base) cycleWeeks(tx *db.DB, userID string) (int, error) {
	if b.opts.DefaultCycleWeeks != nil {
		if w := b.opts.DefaultCycleWeeks(); w > 0 {
			return w, nil
		}
	}
	user, err := tx.GetUser(userID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if user != nil && user.DefaultCycleWeeks > 0 {
		return user.DefaultCycleWeeks, nil
	}
	return models.DefaultShoeingCycleWeeks, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func invalidState[S ~string](status S) error {
	return fmt.Errorf("%w: status %s", ErrClosed, status)
}

func notFound(t models.EntityType, id string) error {
	return fmt.Errorf("%s %s: %w", t, id, ErrNotFound)
}

// assignID fills an empty primary key with a fresh client-generated id.
func assignID(id *string) {
	if *id == "" {
		*id = models.NewID()
	}
}

// keepCreated carries the stored creation time over to an incoming
// replacement of a row.
func keepCreated(dst, stored *models.SyncState) {
	dst.CreatedAt = stored.CreatedAt
}
