package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/farrierly/internal/models"
)

func insertEntry(t *testing.T, db *DB, entityID string, op models.Operation, createdAt time.Time) *models.SyncQueueEntry {
	t.Helper()
	e := &models.SyncQueueEntry{
		EntityType: models.EntityClient,
		EntityID:   entityID,
		Operation:  op,
		Payload:    `{"id":"` + entityID + `"}`,
		Status:     models.QueueStatusPending,
		Priority:   op.Priority(),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	require.NoError(t, db.InsertSyncEntry(e))
	require.NotZero(t, e.ID)
	return e
}

func TestListDrainableSyncEntries_Order(t *testing.T) {
	db := testDB(t)

	create := insertEntry(t, db, "c-1", models.OperationCreate, testNow)
	del := insertEntry(t, db, "c-2", models.OperationDelete, testNow.Add(time.Second))
	upd1 := insertEntry(t, db, "c-3", models.OperationUpdate, testNow.Add(2*time.Second))
	upd2 := insertEntry(t, db, "c-4", models.OperationUpdate, testNow.Add(time.Second))

	entries, err := db.ListDrainableSyncEntries(50, nil)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var ids []int64
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{upd2.ID, upd1.ID, create.ID, del.ID}, ids)

	limited, err := db.ListDrainableSyncEntries(2, nil)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListDrainableSyncEntries_SkipsBackoffAndFinished(t *testing.T) {
	db := testDB(t)

	ready := insertEntry(t, db, "c-1", models.OperationCreate, testNow)
	waiting := insertEntry(t, db, "c-2", models.OperationCreate, testNow)
	done := insertEntry(t, db, "c-3", models.OperationCreate, testNow)

	later := testNow.Add(time.Hour)
	_, err := db.RecordSyncFailure(waiting.ID, models.QueueStatusFailed, "timeout", &later, testNow)
	require.NoError(t, err)
	_, err = db.UpdateSyncEntryStatus(done.ID, models.QueueStatusCompleted, testNow)
	require.NoError(t, err)

	all, err := db.ListDrainableSyncEntries(50, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	entries, err := db.ListDrainableSyncEntries(50, &testNow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ready.ID, entries[0].ID)

	count, err := db.CountDrainableSyncEntries()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRecordSyncFailure_Increments(t *testing.T) {
	db := testDB(t)

	e := insertEntry(t, db, "c-1", models.OperationUpdate, testNow)

	for i := 1; i <= 3; i++ {
		ok, err := db.RecordSyncFailure(e.ID, models.QueueStatusFailed, "attempt failed", nil, testNow)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := db.GetSyncEntry(e.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.RetryCount)
		assert.Equal(t, "attempt failed", got.ErrorMessage())
		assert.Equal(t, e.Payload, got.Payload)
	}

	ok, err := db.RecordSyncFailure(999, models.QueueStatusFailed, "x", nil, testNow)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequeueSyncEntry(t *testing.T) {
	db := testDB(t)

	e := insertEntry(t, db, "c-1", models.OperationUpdate, testNow)
	_, err := db.RecordSyncFailure(e.ID, models.QueueStatusQuarantined, "gone", nil, testNow)
	require.NoError(t, err)

	ok, err := db.RequeueSyncEntry(e.ID, testNow)
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := db.GetSyncEntry(e.ID)
	assert.Equal(t, models.QueueStatusPending, got.Status)
	assert.Zero(t, got.RetryCount)
	assert.Nil(t, got.LastError)

	// Pending entries are not requeued again
	ok, err = db.RequeueSyncEntry(e.ID, testNow)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetInProgressSyncEntries(t *testing.T) {
	db := testDB(t)

	a := insertEntry(t, db, "c-1", models.OperationCreate, testNow)
	b := insertEntry(t, db, "c-2", models.OperationCreate, testNow)
	_, _ = db.UpdateSyncEntryStatus(a.ID, models.QueueStatusInProgress, testNow)
	_, _ = db.UpdateSyncEntryStatus(b.ID, models.QueueStatusInProgress, testNow)

	n, err := db.ResetInProgressSyncEntries(testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stats, err := db.SyncQueueStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Zero(t, stats.InProgress)
}

func TestDeleteCompletedSyncEntriesBefore(t *testing.T) {
	db := testDB(t)

	old := insertEntry(t, db, "c-1", models.OperationCreate, testNow)
	recent := insertEntry(t, db, "c-2", models.OperationCreate, testNow)
	pending := insertEntry(t, db, "c-3", models.OperationCreate, testNow)
	_, _ = db.UpdateSyncEntryStatus(old.ID, models.QueueStatusCompleted, testNow)
	_, _ = db.UpdateSyncEntryStatus(recent.ID, models.QueueStatusCompleted, testNow.Add(2*time.Hour))

	n, err := db.DeleteCompletedSyncEntriesBefore(testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, _ := db.GetSyncEntry(old.ID)
	assert.Nil(t, gone)
	kept, _ := db.GetSyncEntry(recent.ID)
	assert.NotNil(t, kept)
	still, _ := db.GetSyncEntry(pending.ID)
	assert.NotNil(t, still)
}

func TestDeletePendingSyncEntries(t *testing.T) {
	db := testDB(t)

	create := insertEntry(t, db, "c-1", models.OperationCreate, testNow)
	u1 := insertEntry(t, db, "c-1", models.OperationUpdate, testNow.Add(time.Second))
	u2 := insertEntry(t, db, "c-1", models.OperationUpdate, testNow.Add(2*time.Second))
	other := insertEntry(t, db, "c-2", models.OperationUpdate, testNow)

	n, err := db.DeletePendingSyncEntries(models.EntityClient, "c-1", models.OperationUpdate, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, _ := db.GetSyncEntry(u1.ID)
	assert.Nil(t, gone)
	for _, id := range []int64{create.ID, u2.ID, other.ID} {
		e, _ := db.GetSyncEntry(id)
		assert.NotNil(t, e, "entry %d should survive", id)
	}
}

func TestOutstandingAndBlockingSyncEntries(t *testing.T) {
	db := testDB(t)

	first := insertEntry(t, db, "c-1", models.OperationCreate, testNow)
	second := insertEntry(t, db, "c-1", models.OperationUpdate, testNow.Add(time.Second))

	n, err := db.CountOutstandingSyncEntries(models.EntityClient, "c-1", second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	older, err := db.ListOlderBlockingSyncEntries(models.EntityClient, "c-1", second.ID)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, first.ID, older[0].ID)

	// A quarantined entry still counts as outstanding but no longer blocks
	_, err = db.RecordSyncFailure(first.ID, models.QueueStatusQuarantined, "bad request", nil, testNow)
	require.NoError(t, err)

	older, _ = db.ListOlderBlockingSyncEntries(models.EntityClient, "c-1", second.ID)
	assert.Empty(t, older)
	n, _ = db.CountOutstandingSyncEntries(models.EntityClient, "c-1", second.ID)
	assert.Equal(t, int64(1), n)

	_, _ = db.UpdateSyncEntryStatus(first.ID, models.QueueStatusCompleted, testNow)
	n, _ = db.CountOutstandingSyncEntries(models.EntityClient, "c-1", second.ID)
	assert.Zero(t, n)
}
