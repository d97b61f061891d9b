package repository

import (
	"context"
	"strings"
	"time"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
)

// AppointmentRepository writes and reads appointments and their horse links.
type AppointmentRepository struct {
	*base
}

func (r *AppointmentRepository) validate(a *models.Appointment) error {
	if a.ClientID == "" {
		return invalid("appointment needs a client")
	}
	if a.Date.IsZero() {
		return invalid("appointment needs a date")
	}
	if a.StartTime != "" {
		if _, err := time.Parse("15:04", a.StartTime); err != nil {
			return invalid("start time %q is not HH:MM", a.StartTime)
		}
	}
	if a.Status == "" {
		a.Status = models.AppointmentScheduled
	}
	if !a.Status.Valid() {
		return invalid("appointment status %q", a.Status)
	}
	if a.DurationMinutes < 0 {
		return invalid("duration must not be negative")
	}
	if a.DurationMinutes == 0 && r.opts.DefaultDurationMinutes != nil {
		a.DurationMinutes = r.opts.DefaultDurationMinutes()
	}
	seen := make(map[string]bool, len(a.Horses))
	for _, h := range a.Horses {
		if h.HorseID == "" {
			return invalid("appointment horse without id")
		}
		if seen[h.HorseID] {
			return invalid("horse %s listed twice", h.HorseID)
		}
		seen[h.HorseID] = true
		if h.ServiceType != "" && !h.ServiceType.Valid() {
			return invalid("service type %q", h.ServiceType)
		}
	}
	return nil
}

// linkHorses checks every linked horse belongs to the user and returns the
// child-row writer for the appointment.
func linkHorses(tx *db.DB, s Session, a *models.Appointment) (func(*db.DB) error, error) {
	if err := requireClient(tx, s, a.ClientID); err != nil {
		return nil, err
	}
	ids := a.HorseIDs()
	found, err := tx.GetHorsesByIDs(s.UserID, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		known := make(map[string]bool, len(found))
		for _, h := range found {
			known[h.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				return nil, notFound(models.EntityHorse, id)
			}
		}
	}
	if len(a.Horses) > 0 {
		var total int64
		for _, h := range a.Horses {
			total += h.PriceCents
		}
		a.TotalPriceCents = total
	}
	horses := a.Horses
	return func(tx *db.DB) error {
		return tx.ReplaceAppointmentHorses(a.ID, horses)
	}, nil
}

// Create stores a new appointment with its horses.
func (r *AppointmentRepository) Create(ctx context.Context, s Session, a *models.Appointment) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := r.validate(a); err != nil {
		return err
	}
	assignID(&a.ID)
	a.UserID = s.UserID
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		children, err := linkHorses(tx, s, a)
		if err != nil {
			return nil, err
		}
		return []change{{entity: a, op: models.OperationCreate, children: children}}, nil
	})
}

// Update replaces an appointment and its horse links.
func (r *AppointmentRepository) Update(ctx context.Context, s Session, a *models.Appointment) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := r.validate(a); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, a.ID)
	if err != nil {
		return err
	}
	a.UserID = s.UserID
	keepCreated(&a.SyncState, &stored.SyncState)
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		children, err := linkHorses(tx, s, a)
		if err != nil {
			return nil, err
		}
		return []change{{entity: a, op: models.OperationUpdate, children: children}}, nil
	})
}

// Delete soft-deletes an appointment. Its horse links go with the row on purge.
func (r *AppointmentRepository) Delete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	return r.apply(ctx, change{entity: stored, op: models.OperationDelete})
}

// Complete closes an appointment and moves every attended horse's next due
// date to today plus its shoeing cycle, or the account default when the horse
// has none. The appointment and each horse are separate queued updates
// committed together.
func (r *AppointmentRepository) Complete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		appt, err := tx.GetAppointment(s.UserID, id)
		if err != nil {
			return nil, err
		}
		if appt == nil {
			return nil, notFound(models.EntityAppointment, id)
		}
		if appt.Status.IsClosed() {
			return nil, invalidState(appt.Status)
		}
		fallback, err := r.cycleWeeks(tx, s.UserID)
		if err != nil {
			return nil, err
		}
		horses, err := tx.GetHorsesByIDs(s.UserID, appt.HorseIDs())
		if err != nil {
			return nil, err
		}

		now := r.now()
		today := models.Truncate(now)
		appt.Status = models.AppointmentCompleted
		appt.CompletedAt = &now

		changes := []change{{entity: appt, op: models.OperationUpdate}}
		for i := range horses {
			h := &horses[i]
			served := today
			due := today.AddDate(0, 0, 7*h.CycleWeeks(fallback))
			h.LastServiceDate = &served
			h.NextDueDate = &due
			changes = append(changes, change{entity: h, op: models.OperationUpdate})
		}
		return changes, nil
	})
}

// Cancel closes an appointment as cancelled. An empty reason is stored as none.
func (r *AppointmentRepository) Cancel(ctx context.Context, s Session, id, reason string) error {
	return r.transition(ctx, s, id, models.AppointmentCancelled, reason)
}

// MarkNoShow closes an appointment the client missed.
func (r *AppointmentRepository) MarkNoShow(ctx context.Context, s Session, id string) error {
	return r.transition(ctx, s, id, models.AppointmentNoShow, "")
}

// Confirm moves a scheduled appointment to confirmed.
func (r *AppointmentRepository) Confirm(ctx context.Context, s Session, id string) error {
	return r.transition(ctx, s, id, models.AppointmentConfirmed, "")
}

func (r *AppointmentRepository) transition(ctx context.Context, s Session, id string, status models.AppointmentStatus, reason string) error {
	if err := s.validate(); err != nil {
		return err
	}
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		appt, err := tx.GetAppointment(s.UserID, id)
		if err != nil {
			return nil, err
		}
		if appt == nil {
			return nil, notFound(models.EntityAppointment, id)
		}
		if appt.Status.IsClosed() {
			return nil, invalidState(appt.Status)
		}
		appt.Status = status
		if status == models.AppointmentCancelled {
			now := r.now()
			appt.CancelledAt = &now
			if reason = strings.TrimSpace(reason); reason != "" {
				appt.CancellationReason = &reason
			}
		}
		return []change{{entity: appt, op: models.OperationUpdate}}, nil
	})
}

// Get returns a live appointment with its horse links.
func (r *AppointmentRepository) Get(ctx context.Context, s Session, id string) (*models.Appointment, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	a, err := r.read(ctx).GetAppointment(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound(models.EntityAppointment, id)
	}
	return a, nil
}

// ListBetween returns appointments with from <= date < to in calendar order.
func (r *AppointmentRepository) ListBetween(ctx context.Context, s Session, from, to time.Time) ([]models.Appointment, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListAppointmentsBetween(s.UserID, from, to)
}

// Upcoming returns the open appointments from the day of from through days
// later, in calendar order.
func (r *AppointmentRepository) Upcoming(ctx context.Context, s Session, from time.Time, days int) ([]models.Appointment, error) {
	if days < 0 {
		return nil, invalid("days must not be negative")
	}
	first := models.Truncate(from)
	appts, err := r.ListBetween(ctx, s, first, first.AddDate(0, 0, days+1))
	if err != nil {
		return nil, err
	}
	open := appts[:0]
	for _, a := range appts {
		if !a.Status.IsClosed() {
			open = append(open, a)
		}
	}
	return open, nil
}

// ListByClient returns a client's appointments, newest first.
func (r *AppointmentRepository) ListByClient(ctx context.Context, s Session, clientID string) ([]models.Appointment, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListAppointmentsByClient(s.UserID, clientID)
}
