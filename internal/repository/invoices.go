package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/asteroid-belt/farrierly/internal/db"
	"github.com/asteroid-belt/farrierly/internal/models"
)

// InvoiceRepository writes and reads invoices and their line items.
type InvoiceRepository struct {
	*base
}

func isClosedInvoice(s models.InvoiceStatus) bool {
	return s == models.InvoicePaid || s == models.InvoiceCancelled
}

func (r *InvoiceRepository) validate(inv *models.Invoice) error {
	if inv.ClientID == "" {
		return invalid("invoice needs a client")
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceDraft
	}
	if !inv.Status.Valid() {
		return invalid("invoice status %q", inv.Status)
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = models.Truncate(r.now())
	}
	if inv.TaxCents < 0 {
		return invalid("tax must not be negative")
	}
	for i := range inv.Items {
		item := &inv.Items[i]
		item.Description = strings.TrimSpace(item.Description)
		if item.Description == "" {
			return invalid("line item %d has no description", i+1)
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.Quantity < 0 || item.UnitPriceCents < 0 {
			return invalid("line item %d has a negative amount", i+1)
		}
	}
	inv.Recalculate()
	return nil
}

func invoiceItems(inv *models.Invoice) func(*db.DB) error {
	items := inv.Items
	return func(tx *db.DB) error {
		return tx.ReplaceInvoiceItems(inv.ID, items)
	}
}

// Create stores a new invoice with its items. An empty invoice number is
// numbered after every invoice the user has issued, deleted ones included.
func (r *InvoiceRepository) Create(ctx context.Context, s Session, inv *models.Invoice) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := r.validate(inv); err != nil {
		return err
	}
	assignID(&inv.ID)
	inv.UserID = s.UserID
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		if err := requireClient(tx, s, inv.ClientID); err != nil {
			return nil, err
		}
		if inv.InvoiceNumber == "" {
			n, err := tx.CountInvoices(s.UserID)
			if err != nil {
				return nil, fmt.Errorf("count invoices: %w", err)
			}
			inv.InvoiceNumber = fmt.Sprintf("INV-%05d", n+1)
		}
		return []change{{entity: inv, op: models.OperationCreate, children: invoiceItems(inv)}}, nil
	})
}

// Update replaces an open invoice and its items. The closed-state check
// runs in the same transaction as the write.
func (r *InvoiceRepository) Update(ctx context.Context, s Session, inv *models.Invoice) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := r.validate(inv); err != nil {
		return err
	}
	inv.UserID = s.UserID
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		stored, err := tx.GetInvoice(s.UserID, inv.ID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, notFound(models.EntityInvoice, inv.ID)
		}
		if isClosedInvoice(stored.Status) {
			return nil, invalidState(stored.Status)
		}
		if inv.InvoiceNumber == "" {
			inv.InvoiceNumber = stored.InvoiceNumber
		}
		keepCreated(&inv.SyncState, &stored.SyncState)
		return []change{{entity: inv, op: models.OperationUpdate, children: invoiceItems(inv)}}, nil
	})
}

// MarkSent records that a draft invoice went out.
func (r *InvoiceRepository) MarkSent(ctx context.Context, s Session, id string) error {
	return r.transition(ctx, s, id, models.InvoiceSent)
}

// MarkPaid closes an invoice as paid now.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, s Session, id string) error {
	return r.transition(ctx, s, id, models.InvoicePaid)
}

// Void cancels an open invoice.
func (r *InvoiceRepository) Void(ctx context.Context, s Session, id string) error {
	return r.transition(ctx, s, id, models.InvoiceCancelled)
}

func (r *InvoiceRepository) transition(ctx context.Context, s Session, id string, status models.InvoiceStatus) error {
	if err := s.validate(); err != nil {
		return err
	}
	return r.plan(ctx, func(tx *db.DB) ([]change, error) {
		inv, err := tx.GetInvoice(s.UserID, id)
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, notFound(models.EntityInvoice, id)
		}
		if isClosedInvoice(inv.Status) {
			return nil, invalidState(inv.Status)
		}
		inv.Status = status
		if status == models.InvoicePaid {
			now := r.now()
			inv.PaidAt = &now
		}
		return []change{{entity: inv, op: models.OperationUpdate}}, nil
	})
}

// Delete soft-deletes an invoice.
func (r *InvoiceRepository) Delete(ctx context.Context, s Session, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return err
	}
	return r.apply(ctx, change{entity: stored, op: models.OperationDelete})
}

// Get returns a live invoice with its items.
func (r *InvoiceRepository) Get(ctx context.Context, s Session, id string) (*models.Invoice, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	inv, err := r.read(ctx).GetInvoice(s.UserID, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, notFound(models.EntityInvoice, id)
	}
	return inv, nil
}

// List returns invoices, newest first. An empty status lists all.
func (r *InvoiceRepository) List(ctx context.Context, s Session, status models.InvoiceStatus) ([]models.Invoice, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return r.read(ctx).ListInvoices(s.UserID, status)
}
