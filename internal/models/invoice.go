package models

import (
	"fmt"
	"time"
)

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// ParseInvoiceStatus converts a string into an InvoiceStatus.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return st, nil
}

// Invoice bills a client, usually for a completed appointment.
type Invoice struct {
	ID            string        `gorm:"primaryKey;size:64" json:"id"`
	UserID        string        `gorm:"size:64;not null;index" json:"user_id"`
	ClientID      string        `gorm:"size:64;not null;index" json:"client_id"`
	AppointmentID *string       `gorm:"size:64;index" json:"appointment_id"`
	InvoiceNumber string        `gorm:"size:50;index" json:"invoice_number"`
	InvoiceDate   time.Time     `json:"invoice_date"`
	DueDate       *time.Time    `json:"due_date"`
	Status        InvoiceStatus `gorm:"size:20;default:DRAFT;index" json:"status"`
	SubtotalCents int64         `gorm:"default:0" json:"subtotal_cents"`
	TaxCents      int64         `gorm:"default:0" json:"tax_cents"`
	TotalCents    int64         `gorm:"default:0" json:"total_cents"`
	PaidAt        *time.Time    `json:"paid_at"`
	Notes         string        `gorm:"type:text" json:"notes"`

	SyncState

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// TableName specifies the table name for GORM.
func (Invoice) TableName() string {
	return "invoices"
}

// EntityType implements Syncable.
func (i *Invoice) EntityType() EntityType { return EntityInvoice }

// SyncID implements Syncable.
func (i *Invoice) SyncID() string { return i.ID }

// Recalculate derives line totals, subtotal and total from the items.
func (i *Invoice) Recalculate() {
	var subtotal int64
	for idx := range i.Items {
		item := &i.Items[idx]
		item.TotalCents = int64(item.Quantity) * item.UnitPriceCents
		subtotal += item.TotalCents
	}
	i.SubtotalCents = subtotal
	i.TotalCents = subtotal + i.TaxCents
}

// InvoiceItem is one billed line on an invoice.
type InvoiceItem struct {
	ID             string  `gorm:"primaryKey;size:64" json:"id"`
	InvoiceID      string  `gorm:"size:64;not null;index" json:"invoice_id"`
	HorseID        *string `gorm:"size:64" json:"horse_id"`
	Description    string  `gorm:"size:500" json:"description"`
	Quantity       int     `gorm:"default:1" json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	TotalCents     int64   `json:"total_cents"`
}

// TableName specifies the table name for GORM.
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// InvoicePayload is the snapshot of an invoice sent to the backend.
type InvoicePayload struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	ClientID      string        `json:"client_id"`
	AppointmentID *string       `json:"appointment_id,omitempty"`
	InvoiceNumber string        `json:"invoice_number"`
	InvoiceDate   string        `json:"invoice_date"`
	DueDate       string        `json:"due_date,omitempty"`
	Status        InvoiceStatus `json:"status"`
	TotalCents    int64         `json:"total_cents"`
	PaidAt        string        `json:"paid_at,omitempty"`
	UpdatedAt     string        `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (i *Invoice) SyncPayload() any {
	var paidAt string
	if i.PaidAt != nil {
		paidAt = formatTimestamp(*i.PaidAt)
	}
	return InvoicePayload{
		ID:            i.ID,
		UserID:        i.UserID,
		ClientID:      i.ClientID,
		AppointmentID: i.AppointmentID,
		InvoiceNumber: i.InvoiceNumber,
		InvoiceDate:   formatDate(&i.InvoiceDate),
		DueDate:       formatDate(i.DueDate),
		Status:        i.Status,
		TotalCents:    i.TotalCents,
		PaidAt:        paidAt,
		UpdatedAt:     formatTimestamp(i.UpdatedAt),
	}
}
