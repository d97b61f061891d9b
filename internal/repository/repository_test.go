package repository

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/remote"
	"github.com/asteroid-belt/farrierly/internal/syncer"
	"github.com/asteroid-belt/farrierly/internal/syncqueue"
	"github.com/asteroid-belt/farrierly/internal/testutil"
)

var (
	start   = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session = Session{UserID: "u-1"}
)

type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) TriggerImmediateSync() { c.n.Add(1) }

type fixture struct {
	db      *db.DB
	queue   *syncqueue.Manager
	repos   *Repositories
	trigger *countingTrigger
	clock   *testutil.Clock
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	database := testutil.NewDB(t)
	clock := testutil.NewClock(start)
	queue := syncqueue.New(database, syncqueue.DefaultConfig())
	queue.SetClock(clock.Now)
	trigger := &countingTrigger{}
	opts.Trigger = trigger
	opts.Now = clock.Now
	return &fixture{
		db:      database,
		queue:   queue,
		repos:   New(database, queue, opts),
		trigger: trigger,
		clock:   clock,
	}
}

func (f *fixture) entries(t *testing.T) []models.SyncQueueEntry {
	t.Helper()
	entries, err := f.queue.List(context.Background(), "", 0)
	require.NoError(t, err)
	return entries
}

func (f *fixture) countOps(t *testing.T, op models.Operation) int {
	t.Helper()
	n := 0
	for _, e := range f.entries(t) {
		if e.Operation == op {
			n++
		}
	}
	return n
}

func (f *fixture) syncStatus(t *testing.T, et models.EntityType, id string) models.SyncStatus {
	t.Helper()
	s, err := f.db.GetEntitySyncStatus(et, id)
	require.NoError(t, err)
	return s
}

func (f *fixture) newClient(t *testing.T, name string) *models.Client {
	t.Helper()
	c := &models.Client{Name: name, City: "Ocala"}
	require.NoError(t, f.repos.Clients.Create(context.Background(), session, c))
	return c
}

func (f *fixture) newHorse(t *testing.T, clientID, name string, cycle *int) *models.Horse {
	t.Helper()
	h := &models.Horse{ClientID: clientID, Name: name, ShoeingCycleWeeks: cycle}
	require.NoError(t, f.repos.Horses.Create(context.Background(), session, h))
	return h
}

func weeks(n int) *int { return &n }

func TestClientCreate_StampsAndEnqueues(t *testing.T) {
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")

	require.NotEmpty(t, c.ID)
	assert.Equal(t, models.SyncStatusPendingCreate, f.syncStatus(t, models.EntityClient, c.ID))

	entries := f.entries(t)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.EntityClient, e.EntityType)
	assert.Equal(t, c.ID, e.EntityID)
	assert.Equal(t, models.OperationCreate, e.Operation)
	assert.Equal(t, models.QueueStatusPending, e.Status)
	assert.Equal(t, 1, e.Priority)

	var payload models.ClientPayload
	require.NoError(t, json.Unmarshal([]byte(e.Payload), &payload))
	assert.Equal(t, "Dana Reyes", payload.Name)
	assert.Equal(t, "u-1", payload.UserID)
	assert.True(t, payload.IsActive)
	assert.Equal(t, start.Format(models.TimestampLayout), payload.UpdatedAt)

	assert.EqualValues(t, 1, f.trigger.n.Load())
}

func TestClientUpdate_PendingUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")
	f.clock.Advance(time.Minute)

	stored, err := f.repos.Clients.Get(ctx, session, c.ID)
	require.NoError(t, err)
	stored.Phone = "352-555-0100"
	require.NoError(t, f.repos.Clients.Update(ctx, session, stored))

	got, err := f.repos.Clients.Get(ctx, session, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "352-555-0100", got.Phone)
	assert.Equal(t, models.SyncStatusPendingUpdate, got.SyncStatus)
	assert.True(t, got.UpdatedAt.Equal(start.Add(time.Minute)))
	assert.True(t, got.CreatedAt.Equal(start))
	assert.Equal(t, 1, f.countOps(t, models.OperationUpdate))
}

func TestClientUpdate_Missing(t *testing.T) {
	f := newFixture(t, Options{})
	err := f.repos.Clients.Update(context.Background(), session, &models.Client{ID: "nope", Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.entries(t))
	assert.Zero(t, f.trigger.n.Load())
}

func TestClientCreate_Validation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	err := f.repos.Clients.Create(ctx, session, &models.Client{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalid)

	err = f.repos.Clients.Create(ctx, Session{}, &models.Client{Name: "A"})
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Empty(t, f.entries(t))
}

func TestClientArchive_DeactivatesHorses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")
	for _, name := range []string{"Biscuit", "Pepper", "Rosie"} {
		f.newHorse(t, c.ID, name, nil)
	}

	require.NoError(t, f.repos.Clients.Archive(ctx, session, c.ID))

	assert.Equal(t, 4, f.countOps(t, models.OperationUpdate))

	archived, err := f.repos.Clients.Get(ctx, session, c.ID)
	require.NoError(t, err)
	assert.False(t, archived.IsActive)
	assert.Equal(t, models.SyncStatusPendingUpdate, archived.SyncStatus)

	horses, err := f.repos.Horses.ListByClient(ctx, session, c.ID, true)
	require.NoError(t, err)
	require.Len(t, horses, 3)
	for _, h := range horses {
		assert.False(t, h.IsActive, h.Name)
		assert.Equal(t, models.SyncStatusPendingUpdate, h.SyncStatus, h.Name)
	}

	active, err := f.repos.Clients.List(ctx, session, false)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDelete_SoftDeletesAndEnqueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")

	require.NoError(t, f.repos.Clients.Delete(ctx, session, c.ID))

	_, err := f.repos.Clients.Get(ctx, session, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, models.SyncStatusPendingDelete, f.syncStatus(t, models.EntityClient, c.ID))
	assert.Equal(t, 1, f.countOps(t, models.OperationDelete))

	assert.ErrorIs(t, f.repos.Clients.Delete(ctx, session, c.ID), ErrNotFound)
}

func TestWrite_RollsBackWhenEnqueueFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	require.NoError(t, f.db.Migrator().DropTable(&models.SyncQueueEntry{}))

	c := &models.Client{Name: "Dana Reyes"}
	err := f.repos.Clients.Create(ctx, session, c)
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Unscoped().Model(&models.Client{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.trigger.n.Load())
}

func TestHorseCreate_RequiresClient(t *testing.T) {
	f := newFixture(t, Options{})
	err := f.repos.Horses.Create(context.Background(), session, &models.Horse{ClientID: "missing", Name: "Biscuit"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.repos.Horses.Create(context.Background(), session, &models.Horse{ClientID: "missing", Name: "Biscuit", ShoeingCycleWeeks: weeks(0)})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAppointmentComplete_RecomputesDueDates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{DefaultCycleWeeks: func() int { return 5 }})
	c := f.newClient(t, "Dana Reyes")
	own := f.newHorse(t, c.ID, "Biscuit", weeks(8))
	fallback := f.newHorse(t, c.ID, "Pepper", nil)

	appt := &models.Appointment{
		ClientID:  c.ID,
		Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "08:30",
		Horses: []models.AppointmentHorse{
			{HorseID: own.ID, ServiceType: models.ServiceFullSet, PriceCents: 18000},
			{HorseID: fallback.ID, ServiceType: models.ServiceTrim, PriceCents: 5500},
		},
	}
	require.NoError(t, f.repos.Appointments.Create(ctx, session, appt))
	assert.EqualValues(t, 23500, appt.TotalPriceCents)

	before := len(f.entries(t))
	require.NoError(t, f.repos.Appointments.Complete(ctx, session, appt.ID))
	assert.Len(t, f.entries(t), before+3)

	got, err := f.repos.Appointments.Get(ctx, session, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Len(t, got.Horses, 2)

	h1, err := f.repos.Horses.Get(ctx, session, own.ID)
	require.NoError(t, err)
	require.NotNil(t, h1.NextDueDate)
	assert.Equal(t, "2026-04-26", h1.NextDueDate.Format(models.DateLayout))
	require.NotNil(t, h1.LastServiceDate)
	assert.Equal(t, "2026-03-01", h1.LastServiceDate.Format(models.DateLayout))
	assert.Equal(t, models.SyncStatusPendingUpdate, h1.SyncStatus)

	h2, err := f.repos.Horses.Get(ctx, session, fallback.ID)
	require.NoError(t, err)
	require.NotNil(t, h2.NextDueDate)
	assert.Equal(t, "2026-04-05", h2.NextDueDate.Format(models.DateLayout))

	var horsePayloads int
	for _, e := range f.entries(t) {
		if e.EntityType != models.EntityHorse || e.Operation != models.OperationUpdate {
			continue
		}
		horsePayloads++
		var p models.HorsePayload
		require.NoError(t, json.Unmarshal([]byte(e.Payload), &p))
		assert.NotEmpty(t, p.NextDueDate)
	}
	assert.Equal(t, 2, horsePayloads)

	err = f.repos.Appointments.Complete(ctx, session, appt.ID)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAppointmentComplete_UserDefaultCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	require.NoError(t, f.repos.Users.Save(ctx, session, &models.User{Email: "dana@example.com", DefaultCycleWeeks: 7}))
	c := f.newClient(t, "Dana Reyes")
	h := f.newHorse(t, c.ID, "Biscuit", nil)

	appt := &models.Appointment{
		ClientID: c.ID,
		Date:     start,
		Horses:   []models.AppointmentHorse{{HorseID: h.ID}},
	}
	require.NoError(t, f.repos.Appointments.Create(ctx, session, appt))
	require.NoError(t, f.repos.Appointments.Complete(ctx, session, appt.ID))

	got, err := f.repos.Horses.Get(ctx, session, h.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextDueDate)
	assert.Equal(t, "2026-04-19", got.NextDueDate.Format(models.DateLayout))
}

func TestAppointmentCreate_UnknownHorse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")
	before := len(f.entries(t))

	err := f.repos.Appointments.Create(ctx, session, &models.Appointment{
		ClientID: c.ID,
		Date:     start,
		Horses:   []models.AppointmentHorse{{HorseID: "ghost"}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, f.entries(t), before)
}

func TestAppointmentCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{DefaultDurationMinutes: func() int { return 45 }})
	c := f.newClient(t, "Dana Reyes")
	appt := &models.Appointment{ClientID: c.ID, Date: start}
	require.NoError(t, f.repos.Appointments.Create(ctx, session, appt))
	assert.Equal(t, 45, appt.DurationMinutes)
	assert.Equal(t, models.AppointmentScheduled, appt.Status)

	require.NoError(t, f.repos.Appointments.Cancel(ctx, session, appt.ID, " rain "))

	got, err := f.repos.Appointments.Get(ctx, session, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "rain", *got.CancellationReason)
	require.NotNil(t, got.CancelledAt)

	assert.ErrorIs(t, f.repos.Appointments.Cancel(ctx, session, appt.ID, ""), ErrClosed)
	assert.ErrorIs(t, f.repos.Appointments.Complete(ctx, session, appt.ID), ErrClosed)
}

func TestInvoice_CreateAndMarkPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")

	inv := &models.Invoice{
		ClientID: c.ID,
		TaxCents: 500,
		Items: []models.InvoiceItem{
			{Description: "Full set", UnitPriceCents: 18000},
			{Description: "Trim", Quantity: 2, UnitPriceCents: 5500},
		},
	}
	require.NoError(t, f.repos.Invoices.Create(ctx, session, inv))
	assert.Equal(t, "INV-00001", inv.InvoiceNumber)
	assert.EqualValues(t, 29000, inv.SubtotalCents)
	assert.EqualValues(t, 29500, inv.TotalCents)

	require.NoError(t, f.repos.Invoices.MarkPaid(ctx, session, inv.ID))
	got, err := f.repos.Invoices.Get(ctx, session, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.Len(t, got.Items, 2)

	assert.ErrorIs(t, f.repos.Invoices.MarkPaid(ctx, session, inv.ID), ErrClosed)
	assert.ErrorIs(t, f.repos.Invoices.Update(ctx, session, got), ErrClosed)

	second := &models.Invoice{ClientID: c.ID}
	require.NoError(t, f.repos.Invoices.Create(ctx, session, second))
	assert.Equal(t, "INV-00002", second.InvoiceNumber)
}

func TestMileageAndPrices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	trip := &models.MileageLog{Date: start, Miles: 42.5}
	require.NoError(t, f.repos.MileageLogs.Create(ctx, session, trip))
	assert.Equal(t, models.MileageClientVisit, trip.Purpose)

	total, err := f.repos.MileageLogs.Total(ctx, session, start.AddDate(0, 0, -1), start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.InDelta(t, 42.5, total, 0.001)

	err = f.repos.MileageLogs.Create(ctx, session, &models.MileageLog{Date: start, Miles: -1})
	assert.ErrorIs(t, err, ErrInvalid)

	price := &models.ServicePrice{ServiceType: models.ServiceTrim, Name: "Trim", PriceCents: 5500}
	require.NoError(t, f.repos.ServicePrices.Create(ctx, session, price))
	prices, err := f.repos.ServicePrices.List(ctx, session)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.True(t, prices[0].IsActive)

	err = f.repos.ServicePrices.Create(ctx, session, &models.ServicePrice{ServiceType: "SHOES"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRoutePlanForDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	plan := &models.RoutePlan{Date: start, Stops: []string{"a", "b"}, TotalMiles: 31}
	require.NoError(t, f.repos.RoutePlans.Create(ctx, session, plan))

	got, err := f.repos.RoutePlans.ForDay(ctx, session, start)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"a", "b"}, got.Stops)

	got.Stops = []string{"b", "a"}
	got.IsOptimized = true
	require.NoError(t, f.repos.RoutePlans.Update(ctx, session, got))
	assert.Equal(t, 1, f.countOps(t, models.OperationUpdate))
}

func TestConflictsAndUnsynced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	a := f.newClient(t, "A")
	b := f.newClient(t, "B")
	require.NoError(t, f.db.SetEntitySyncStatus(models.EntityClient, b.ID, models.SyncStatusConflict))

	conflicts, err := f.repos.Conflicts(ctx, session)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, b.ID, conflicts[0].ID)
	assert.Equal(t, models.EntityClient, conflicts[0].Type)

	unsynced, err := f.repos.Unsynced(ctx, session)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, a.ID, unsynced[0].ID)
}

func TestWritePathDrainsToSynced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	backend := remote.NewMemoryBackend()
	worker := syncer.NewWorker(f.db, f.queue, backend, syncer.DefaultWorkerConfig())

	c := f.newClient(t, "Dana Reyes")
	h := f.newHorse(t, c.ID, "Biscuit", nil)
	require.NoError(t, f.repos.Clients.Archive(ctx, session, c.ID))

	res, err := worker.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Failed)

	pending, err := f.queue.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Equal(t, models.SyncStatusSynced, f.syncStatus(t, models.EntityClient, c.ID))
	assert.Equal(t, models.SyncStatusSynced, f.syncStatus(t, models.EntityHorse, h.ID))

	row, ok := backend.Get("horses", h.ID)
	require.True(t, ok)
	assert.Equal(t, false, row["is_active"])
}

func TestAppointmentUpcoming_SkipsClosedAndLaterVisits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")

	day := models.Truncate(start)
	tomorrow := &models.Appointment{ClientID: c.ID, Date: day.AddDate(0, 0, 1), StartTime: "08:00"}
	cancelled := &models.Appointment{ClientID: c.ID, Date: day.AddDate(0, 0, 1)}
	later := &models.Appointment{ClientID: c.ID, Date: day.AddDate(0, 0, 3)}
	for _, a := range []*models.Appointment{tomorrow, cancelled, later} {
		require.NoError(t, f.repos.Appointments.Create(ctx, session, a))
	}
	require.NoError(t, f.repos.Appointments.Cancel(ctx, session, cancelled.ID, "lame horse"))

	got, err := f.repos.Appointments.Upcoming(ctx, session, start, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tomorrow.ID, got[0].ID)

	_, err = f.repos.Appointments.Upcoming(ctx, session, start, -1)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUsage_CountsTextsPerMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	require.NoError(t, f.repos.Usage.RecordSms(ctx, session, 2))
	require.NoError(t, f.repos.Usage.RecordSms(ctx, session, 1))
	n, err := f.repos.Usage.SmsThisMonth(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.ErrorIs(t, f.repos.Usage.RecordSms(ctx, session, 0), ErrInvalid)
	_, err = f.repos.Usage.SmsThisMonth(ctx, Session{})
	assert.ErrorIs(t, err, ErrNoSession)

	// Usage is local only
	assert.Empty(t, f.entries(t))
	assert.Zero(t, f.trigger.n.Load())

	f.clock.Advance(31 * 24 * time.Hour)
	n, err = f.repos.Usage.SmsThisMonth(ctx, session)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvoiceUpdate_ClosedBetweenReadAndWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	c := f.newClient(t, "Dana Reyes")
	inv := &models.Invoice{ClientID: c.ID, Items: []models.InvoiceItem{{Description: "Trim", UnitPriceCents: 5500}}}
	require.NoError(t, f.repos.Invoices.Create(ctx, session, inv))

	edit, err := f.repos.Invoices.Get(ctx, session, inv.ID)
	require.NoError(t, err)
	edit.Items = []models.InvoiceItem{{Description: "Full set", UnitPriceCents: 18000}}

	// The invoice is paid after the caller read it but before the update's
	// transaction starts.
	var armed, fired atomic.Bool
	var repos *Repositories
	repos = New(f.db, f.queue, Options{Now: func() time.Time {
		if armed.Load() && fired.CompareAndSwap(false, true) {
			require.NoError(t, repos.Invoices.MarkPaid(ctx, session, inv.ID))
		}
		return f.clock.Now()
	}})
	armed.Store(true)

	assert.ErrorIs(t, repos.Invoices.Update(ctx, session, edit), ErrClosed)
	require.True(t, fired.Load())

	got, err := f.repos.Invoices.Get(ctx, session, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Trim", got.Items[0].Description)
	assert.EqualValues(t, 5500, got.TotalCents)
}
