// Package db provides a GORM-based local store for Farrierly.
// It uses the pure-Go SQLite driver so the cache works without CGO.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// DB wraps the GORM database connection with Farrierly-specific operations.
type DB struct {
	*gorm.DB
	path string
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
// SQLite allows a single writer, so the pool is capped at one connection and
// the storage engine serializes every read and write.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// New creates a new database connection and runs migrations.
func New(cfg Config) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode: WAL has visibility issues with the pure-Go driver
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	wrapped := &DB{DB: db, path: cfg.Path}

	if err := wrapped.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return wrapped, nil
}

// migrate runs GORM auto-migrations for all models.
func (db *DB) migrate() error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Horse{},
		&models.Appointment{},
		&models.AppointmentHorse{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.ServicePrice{},
		&models.MileageLog{},
		&models.RoutePlan{},
		&models.SmsUsage{},
		&models.SyncQueueEntry{},
	)
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithContext returns a DB bound to ctx so queries are cancelled with it.
func (db *DB) WithContext(ctx context.Context) *DB {
	return &DB{DB: db.DB.WithContext(ctx), path: db.path}
}

// Transaction executes a function within a database transaction.
// The callback receives a *DB wrapper that uses the transaction.
// If the callback returns an error, the transaction is rolled back.
// If the callback returns nil, the transaction is committed.
func (d *DB) Transaction(fc func(tx *DB) error) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		wrappedTx := &DB{DB: tx, path: d.path}
		return fc(wrappedTx)
	})
}

// Stats provides aggregate counts of the local store.
type Stats struct {
	Clients        int64
	Horses         int64
	Appointments   int64
	Invoices       int64
	Queue          models.QueueStats
	CacheSizeBytes int64
	LastUpdated    time.Time
}

// GetStats returns aggregate statistics about the database.
func (db *DB) GetStats() (*Stats, error) {
	var stats Stats

	if err := db.Model(&models.Client{}).Count(&stats.Clients).Error; err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	if err := db.Model(&models.Horse{}).Count(&stats.Horses).Error; err != nil {
		return nil, fmt.Errorf("count horses: %w", err)
	}
	if err := db.Model(&models.Appointment{}).Count(&stats.Appointments).Error; err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if err := db.Model(&models.Invoice{}).Count(&stats.Invoices).Error; err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	queue, err := db.SyncQueueStats()
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	stats.Queue = queue

	if info, err := os.Stat(db.path); err == nil {
		stats.CacheSizeBytes = info.Size()
	}

	stats.LastUpdated = time.Now()

	return &stats, nil
}
