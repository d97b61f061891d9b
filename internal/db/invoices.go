package db

import (
	"gorm.io/gorm"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// GetInvoice retrieves a live invoice with its items.
func (db *DB) GetInvoice(userID, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := db.Preload("Items").First(&inv, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// ReplaceInvoiceItems swaps the line items of an invoice.
func (db *DB) ReplaceInvoiceItems(invoiceID string, items []models.InvoiceItem) error {
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
		if items[i].ID == "" {
			items[i].ID = models.NewID()
		}
	}
	return db.Create(&items).Error
}

// ListInvoices returns a user's invoices, optionally filtered by status.
func (db *DB) ListInvoices(userID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	var invoices []models.Invoice
	q := db.Preload("Items").Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("invoice_date DESC, invoice_number DESC").Find(&invoices).Error
	return invoices, err
}

// CountInvoices returns how many invoices, live or deleted, a user has issued.
func (db *DB) CountInvoices(userID string) (int64, error) {
	var count int64
	err := db.Unscoped().Model(&models.Invoice{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
