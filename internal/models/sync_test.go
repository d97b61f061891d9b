package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_Priority(t *testing.T) {
	tests := []struct {
		op   Operation
		want int
	}{
		{OperationCreate, 1},
		{OperationUpdate, 2},
		{OperationDelete, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Priority())
		})
	}
}

func TestOperation_PendingStatus(t *testing.T) {
	assert.Equal(t, SyncStatusPendingCreate, OperationCreate.PendingStatus())
	assert.Equal(t, SyncStatusPendingUpdate, OperationUpdate.PendingStatus())
	assert.Equal(t, SyncStatusPendingDelete, OperationDelete.PendingStatus())
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("DELETE")
	require.NoError(t, err)
	assert.Equal(t, OperationDelete, op)

	_, err = ParseOperation("upsert")
	assert.Error(t, err)
}

func TestEntityType_Table(t *testing.T) {
	for _, et := range AllEntityTypes() {
		assert.True(t, et.Valid(), "entity type %s should be valid", et)
		assert.NotEmpty(t, et.Table())
	}

	_, err := ParseEntityType("sms_usage")
	assert.Error(t, err)

	et, err := ParseEntityType("mileage_log")
	require.NoError(t, err)
	assert.Equal(t, "mileage_logs", et.Table())
}

func TestSyncStatus_IsPending(t *testing.T) {
	assert.True(t, SyncStatusPendingCreate.IsPending())
	assert.True(t, SyncStatusPendingUpdate.IsPending())
	assert.True(t, SyncStatusPendingDelete.IsPending())
	assert.False(t, SyncStatusSynced.IsPending())
	assert.False(t, SyncStatusConflict.IsPending())
	assert.False(t, SyncStatus("DIRTY").Valid())
}

func TestSyncState_Stamp(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	var s SyncState
	s.Stamp(SyncStatusPendingCreate, created)
	assert.Equal(t, SyncStatusPendingCreate, s.SyncStatus)
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, created, s.UpdatedAt)

	// CreatedAt is only set once
	s.Stamp(SyncStatusPendingUpdate, later)
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, later, s.UpdatedAt)
}

func TestQueueStatus_IsDrainable(t *testing.T) {
	assert.True(t, QueueStatusPending.IsDrainable())
	assert.True(t, QueueStatusFailed.IsDrainable())
	assert.False(t, QueueStatusInProgress.IsDrainable())
	assert.False(t, QueueStatusCompleted.IsDrainable())
	assert.False(t, QueueStatusQuarantined.IsDrainable())
}

func TestQueueStats_Undrained(t *testing.T) {
	s := QueueStats{Pending: 3, Failed: 2, InProgress: 1, Completed: 7, Quarantined: 1}
	assert.Equal(t, int64(5), s.Undrained())
}

func TestHorse_CycleWeeks(t *testing.T) {
	h := &Horse{}
	assert.Equal(t, 6, h.CycleWeeks(6))

	weeks := 8
	h.ShoeingCycleWeeks = &weeks
	assert.Equal(t, 8, h.CycleWeeks(6))

	zero := 0
	h.ShoeingCycleWeeks = &zero
	assert.Equal(t, 5, h.CycleWeeks(5))
}

func TestInvoice_Recalculate(t *testing.T) {
	inv := &Invoice{
		TaxCents: 500,
		Items: []InvoiceItem{
			{Description: "Trim", Quantity: 2, UnitPriceCents: 4500},
			{Description: "Front shoes", Quantity: 1, UnitPriceCents: 9500},
		},
	}

	inv.Recalculate()

	assert.Equal(t, int64(9000), inv.Items[0].TotalCents)
	assert.Equal(t, int64(18500), inv.SubtotalCents)
	assert.Equal(t, int64(19000), inv.TotalCents)
}

func TestAppointmentStatus_IsClosed(t *testing.T) {
	assert.False(t, AppointmentScheduled.IsClosed())
	assert.False(t, AppointmentConfirmed.IsClosed())
	assert.True(t, AppointmentCompleted.IsClosed())
	assert.True(t, AppointmentCancelled.IsClosed())
	assert.True(t, AppointmentNoShow.IsClosed())
}
