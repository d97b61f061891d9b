package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) *DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := New(Config{
		Path:        dbPath,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	})
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})

	return db
}

var testNow = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

func newClient(id, name string) *models.Client {
	c := &models.Client{ID: id, UserID: "u-1", Name: name, City: "Lexington", IsActive: true}
	c.Stamp(models.SyncStatusPendingCreate, testNow)
	return c
}

func newHorse(id, clientID, name string) *models.Horse {
	h := &models.Horse{ID: id, UserID: "u-1", ClientID: clientID, Name: name, IsActive: true}
	h.Stamp(models.SyncStatusPendingCreate, testNow)
	return h
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "farrierly.db")

	db, err := New(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
	}()

	// Verify database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	if db.Path() != dbPath {
		t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
	}

	for _, table := range []string{
		"clients", "horses", "appointments", "appointment_horses", "invoices",
		"invoice_items", "service_prices", "sync_queue", "mileage_logs",
		"sms_usage", "route_plans", "users",
	} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s was not migrated", table)
		}
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "dirs", "farrierly.db")

	db, err := New(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
	}()

	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("nested directories were not created")
	}
}

func TestGetStats_EmptyDB(t *testing.T) {
	db := testDB(t)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	if stats.Clients != 0 {
		t.Errorf("Clients = %d, want 0", stats.Clients)
	}
	if stats.Queue.Undrained() != 0 {
		t.Errorf("Queue.Undrained() = %d, want 0", stats.Queue.Undrained())
	}
}

// --- Entity Tests ---

func TestClientCRUD(t *testing.T) {
	db := testDB(t)

	client := newClient("c-1", "Ada Barnes")
	if err := db.InsertEntity(client); err != nil {
		t.Fatalf("InsertEntity() error = %v", err)
	}

	retrieved, err := db.GetClient("u-1", "c-1")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if retrieved == nil {
		t.Fatal("GetClient() returned nil")
	}
	if retrieved.Name != "Ada Barnes" {
		t.Errorf("Name = %q, want %q", retrieved.Name, "Ada Barnes")
	}
	if retrieved.SyncStatus != models.SyncStatusPendingCreate {
		t.Errorf("SyncStatus = %q, want %q", retrieved.SyncStatus, models.SyncStatusPendingCreate)
	}

	// Other users never see the row
	other, err := db.GetClient("u-2", "c-1")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if other != nil {
		t.Error("GetClient() should not return another user's client")
	}

	// Update
	retrieved.Phone = "555-0100"
	retrieved.Stamp(models.SyncStatusPendingUpdate, testNow.Add(time.Minute))
	if err := db.UpdateEntity(retrieved); err != nil {
		t.Fatalf("UpdateEntity() error = %v", err)
	}
	updated, _ := db.GetClient("u-1", "c-1")
	if updated.Phone != "555-0100" {
		t.Errorf("Phone after update = %q, want %q", updated.Phone, "555-0100")
	}
	if !updated.UpdatedAt.Equal(testNow.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v, want %v", updated.UpdatedAt, testNow.Add(time.Minute))
	}

	// Soft delete keeps the row for sync
	updated.Stamp(models.SyncStatusPendingDelete, testNow.Add(2*time.Minute))
	if err := db.SoftDeleteEntity(updated); err != nil {
		t.Fatalf("SoftDeleteEntity() error = %v", err)
	}
	deleted, _ := db.GetClient("u-1", "c-1")
	if deleted != nil {
		t.Error("GetClient() should return nil after soft delete")
	}
	status, err := db.GetEntitySyncStatus(models.EntityClient, "c-1")
	if err != nil {
		t.Fatalf("GetEntitySyncStatus() error = %v", err)
	}
	if status != models.SyncStatusPendingDelete {
		t.Errorf("status after soft delete = %q, want %q", status, models.SyncStatusPendingDelete)
	}

	// Purge removes it for good
	if err := db.PurgeEntity(models.EntityClient, "c-1"); err != nil {
		t.Fatalf("PurgeEntity() error = %v", err)
	}
	status, _ = db.GetEntitySyncStatus(models.EntityClient, "c-1")
	if status != "" {
		t.Errorf("status after purge = %q, want empty", status)
	}
}

func TestUpdateEntity_Missing(t *testing.T) {
	db := testDB(t)

	err := db.UpdateEntity(newClient("nope", "Nobody"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateEntity() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateEntity_SoftDeleted(t *testing.T) {
	db := testDB(t)

	c := newClient("c-1", "Ada Barnes")
	if err := db.InsertEntity(c); err != nil {
		t.Fatalf("InsertEntity() error = %v", err)
	}
	if err := db.SoftDeleteEntity(c); err != nil {
		t.Fatalf("SoftDeleteEntity() error = %v", err)
	}

	c.Name = "Zombie"
	if err := db.UpdateEntity(c); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateEntity() on deleted row error = %v, want ErrNotFound", err)
	}
}

func TestListClients(t *testing.T) {
	db := testDB(t)

	for _, c := range []*models.Client{
		newClient("c-1", "Charlie"),
		newClient("c-2", "Alice"),
		newClient("c-3", "Bob"),
	} {
		if err := db.InsertEntity(c); err != nil {
			t.Fatalf("InsertEntity() error = %v", err)
		}
	}
	inactive := newClient("c-4", "Dormant")
	inactive.IsActive = false
	if err := db.InsertEntity(inactive); err != nil {
		t.Fatalf("InsertEntity() error = %v", err)
	}

	clients, err := db.ListClients("u-1", false)
	if err != nil {
		t.Fatalf("ListClients() error = %v", err)
	}
	if len(clients) != 3 {
		t.Fatalf("ListClients() returned %d clients, want 3", len(clients))
	}
	if clients[0].Name != "Alice" {
		t.Errorf("first client = %q, want Alice", clients[0].Name)
	}

	all, _ := db.ListClients("u-1", true)
	if len(all) != 4 {
		t.Errorf("ListClients(includeInactive) returned %d clients, want 4", len(all))
	}

	found, _ := db.SearchClients("u-1", "Bo", 10)
	if len(found) != 1 || found[0].ID != "c-3" {
		t.Errorf("SearchClients(Bo) = %v, want [c-3]", found)
	}
}

func TestHorsesByClient(t *testing.T) {
	db := testDB(t)

	if err := db.InsertEntity(newClient("c-1", "Ada")); err != nil {
		t.Fatalf("InsertEntity() error = %v", err)
	}
	for _, h := range []*models.Horse{
		newHorse("h-1", "c-1", "Whisper"),
		newHorse("h-2", "c-1", "Biscuit"),
		newHorse("h-3", "c-2", "Other"),
	} {
		if err := db.InsertEntity(h); err != nil {
			t.Fatalf("InsertEntity() error = %v", err)
		}
	}

	horses, err := db.ListHorsesByClient("u-1", "c-1", false)
	if err != nil {
		t.Fatalf("ListHorsesByClient() error = %v", err)
	}
	if len(horses) != 2 {
		t.Fatalf("ListHorsesByClient() returned %d horses, want 2", len(horses))
	}
	if horses[0].Name != "Biscuit" {
		t.Errorf("first horse = %q, want Biscuit", horses[0].Name)
	}

	client, err := db.GetClientWithHorses("u-1", "c-1")
	if err != nil {
		t.Fatalf("GetClientWithHorses() error = %v", err)
	}
	if len(client.Horses) != 2 {
		t.Errorf("client.Horses = %d, want 2", len(client.Horses))
	}
}

func TestAppointmentHorses(t *testing.T) {
	db := testDB(t)

	appt := &models.Appointment{
		ID:       "a-1",
		UserID:   "u-1",
		ClientID: "c-1",
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:   models.AppointmentScheduled,
	}
	appt.Stamp(models.SyncStatusPendingCreate, testNow)
	if err := db.InsertEntity(appt); err != nil {
		t.Fatalf("InsertEntity() error = %v", err)
	}
	err := db.ReplaceAppointmentHorses("a-1", []models.AppointmentHorse{
		{HorseID: "h-1", ServiceType: models.ServiceTrim, PriceCents: 5000},
		{HorseID: "h-2", ServiceType: models.ServiceFullSet, PriceCents: 18000},
	})
	if err != nil {
		t.Fatalf("ReplaceAppointmentHorses() error = %v", err)
	}

	got, err := db.GetAppointment("u-1", "a-1")
	if err != nil {
		t.Fatalf("GetAppointment() error = %v", err)
	}
	if len(got.Horses) != 2 {
		t.Fatalf("Horses = %d, want 2", len(got.Horses))
	}

	if err := db.ReplaceAppointmentHorses("a-1", []models.AppointmentHorse{{HorseID: "h-3"}}); err != nil {
		t.Fatalf("ReplaceAppointmentHorses() error = %v", err)
	}
	got, _ = db.GetAppointment("u-1", "a-1")
	if len(got.Horses) != 1 || got.Horses[0].HorseID != "h-3" {
		t.Errorf("Horses after replace = %v, want [h-3]", got.HorseIDs())
	}

	// Purge takes the links with it
	if err := db.PurgeEntity(models.EntityAppointment, "a-1"); err != nil {
		t.Fatalf("PurgeEntity() error = %v", err)
	}
	var links int64
	db.Model(&models.AppointmentHorse{}).Where("appointment_id = ?", "a-1").Count(&links)
	if links != 0 {
		t.Errorf("links after purge = %d, want 0", links)
	}

	list, _ := db.ListAppointmentsBetween("u-1", appt.Date, appt.Date.AddDate(0, 0, 1))
	if len(list) != 0 {
		t.Errorf("ListAppointmentsBetween() after purge = %d, want 0", len(list))
	}
}

func TestInvoiceItems(t *testing.T) {
	db := testDB(t)

	inv := &models.Invoice{
		ID:            "i-1",
		UserID:        "u-1",
		ClientID:      "c-1",
		InvoiceNumber: "INV-0001",
		InvoiceDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:        models.InvoiceDraft,
		Items: []models.InvoiceItem{
			{Description: "Trim", Quantity: 2, UnitPriceCents: 5000},
		},
	}
	inv.Recalculate()
	inv.Stamp(models.SyncStatusPendingCreate, testNow)
	if err := db.InsertEntity(inv); err != nil {
		t.Fatalf("InsertEntity() error = %v", err)
	}
	if err := db.ReplaceInvoiceItems(inv.ID, inv.Items); err != nil {
		t.Fatalf("ReplaceInvoiceItems() error = %v", err)
	}

	got, err := db.GetInvoice("u-1", "i-1")
	if err != nil {
		t.Fatalf("GetInvoice() error = %v", err)
	}
	if got.TotalCents != 10000 {
		t.Errorf("TotalCents = %d, want 10000", got.TotalCents)
	}
	if len(got.Items) != 1 || got.Items[0].ID == "" {
		t.Errorf("Items = %+v, want one item with generated id", got.Items)
	}

	drafts, _ := db.ListInvoices("u-1", models.InvoiceDraft)
	if len(drafts) != 1 {
		t.Errorf("ListInvoices(DRAFT) = %d, want 1", len(drafts))
	}
	count, _ := db.CountInvoices("u-1")
	if count != 1 {
		t.Errorf("CountInvoices() = %d, want 1", count)
	}
}

func TestRoutePlanStops(t *testing.T) {
	db := testDB(t)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	plan := &models.RoutePlan{ID: "r-1", UserID: "u-1", Date: day, Stops: []string{"a-2", "a-1"}}
	plan.Stamp(models.SyncStatusPendingCreate, testNow)
	if err := db.InsertEntity(plan); err != nil {
		t.Fatalf("InsertEntity() error = %v", err)
	}

	got, err := db.GetRoutePlanForDay("u-1", day.Add(9*time.Hour))
	if err != nil {
		t.Fatalf("GetRoutePlanForDay() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRoutePlanForDay() returned nil")
	}
	if len(got.Stops) != 2 || got.Stops[0] != "a-2" {
		t.Errorf("Stops = %v, want [a-2 a-1]", got.Stops)
	}
}

func TestSumMiles(t *testing.T) {
	db := testDB(t)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i, miles := range []float64{12.5, 30} {
		m := &models.MileageLog{
			ID:      models.NewID(),
			UserID:  "u-1",
			Date:    day.AddDate(0, 0, i),
			Miles:   miles,
			Purpose: models.MileageClientVisit,
		}
		m.Stamp(models.SyncStatusPendingCreate, testNow)
		if err := db.InsertEntity(m); err != nil {
			t.Fatalf("InsertEntity() error = %v", err)
		}
	}

	total, err := db.SumMiles("u-1", day, day.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("SumMiles() error = %v", err)
	}
	if total != 42.5 {
		t.Errorf("SumMiles() = %v, want 42.5", total)
	}

	none, _ := db.SumMiles("u-2", day, day.AddDate(0, 1, 0))
	if none != 0 {
		t.Errorf("SumMiles() for other user = %v, want 0", none)
	}
}

func TestSmsUsage(t *testing.T) {
	db := testDB(t)

	for i := 0; i < 3; i++ {
		if err := db.IncrementSmsUsage("u-1", testNow, 1); err != nil {
			t.Fatalf("IncrementSmsUsage() error = %v", err)
		}
	}
	count, err := db.GetSmsUsage("u-1", testNow)
	if err != nil {
		t.Fatalf("GetSmsUsage() error = %v", err)
	}
	if count != 3 {
		t.Errorf("GetSmsUsage() = %d, want 3", count)
	}

	next, _ := db.GetSmsUsage("u-1", testNow.AddDate(0, 1, 0))
	if next != 0 {
		t.Errorf("GetSmsUsage() next month = %d, want 0", next)
	}
}

func TestListEntitiesBySyncStatus(t *testing.T) {
	db := testDB(t)

	c := newClient("c-1", "Ada")
	h := newHorse("h-1", "c-1", "Whisper")
	for _, e := range []models.Syncable{c, h, newClient("c-2", "Bob")} {
		if err := db.InsertEntity(e); err != nil {
			t.Fatalf("InsertEntity() error = %v", err)
		}
	}
	if err := db.SetEntitySyncStatus(models.EntityClient, "c-1", models.SyncStatusConflict); err != nil {
		t.Fatalf("SetEntitySyncStatus() error = %v", err)
	}
	if err := db.SetEntitySyncStatus(models.EntityHorse, "h-1", models.SyncStatusFailed); err != nil {
		t.Fatalf("SetEntitySyncStatus() error = %v", err)
	}

	refs, err := db.ListEntitiesBySyncStatus("u-1", models.SyncStatusConflict, models.SyncStatusFailed)
	if err != nil {
		t.Fatalf("ListEntitiesBySyncStatus() error = %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("ListEntitiesBySyncStatus() = %d refs, want 2", len(refs))
	}
	if refs[0].Type != models.EntityClient || refs[0].ID != "c-1" {
		t.Errorf("refs[0] = %+v, want client c-1", refs[0])
	}
	if refs[1].Type != models.EntityHorse || refs[1].SyncStatus != models.SyncStatusFailed {
		t.Errorf("refs[1] = %+v, want FAILED horse", refs[1])
	}
}

func TestTransaction_Rollback(t *testing.T) {
	db := testDB(t)

	boom := errors.New("boom")
	err := db.Transaction(func(tx *DB) error {
		if err := tx.InsertEntity(newClient("c-1", "Ada")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	got, _ := db.GetClient("u-1", "c-1")
	if got != nil {
		t.Error("insert should have been rolled back")
	}
}
