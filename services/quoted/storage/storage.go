package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrPathRequired is returned when the backing store path is missing.
	ErrPathRequired = errors.New("quoted storage path must be configured")
	// ErrNotFound is returned when a quote id is unknown.
	ErrNotFound = errors.New("quote not found")
)

// QuoteRecord is the audit row written for every served quote.
type QuoteRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind           string    `gorm:"index;not null"`
	Strategy       string    `gorm:"not null"`
	Market         string    `gorm:"index;not null"`
	Vault          string
	SnapshotDigest string `gorm:"index"`
	PriceStatus    string
	Request        string `gorm:"type:text"`
	Response       string `gorm:"type:text"`
	ImpactCapped   bool
	UnpricedLegs   string
	CreatedAt      time.Time `gorm:"index"`
}

// Storage wraps the quote audit store.
type Storage struct {
	db *gorm.DB
}

// Open connects to postgres for postgres:// DSNs and to SQLite otherwise,
// then applies migrations.
func Open(dsn string) (*Storage, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	dialector := sqlite.Open(trimmed)
	if isPostgres(trimmed) {
		dialector = postgres.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// AutoMigrate performs all schema migrations for the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&QuoteRecord{})
}

// Close releases database resources.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveQuote persists the record, assigning an id when missing.
func (s *Storage) SaveQuote(ctx context.Context, record *QuoteRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage not configured")
	}
	if record == nil {
		return fmt.Errorf("quote record required")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// GetQuote loads a stored quote by id.
func (s *Storage) GetQuote(ctx context.Context, id uuid.UUID) (QuoteRecord, error) {
	var record QuoteRecord
	if s == nil || s.db == nil {
		return record, fmt.Errorf("storage not configured")
	}
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return record, ErrNotFound
	}
	if err != nil {
		return record, fmt.Errorf("query quote: %w", err)
	}
	return record, nil
}

// RecentQuotes lists the newest quotes for a market, newest first.
func (s *Storage) RecentQuotes(ctx context.Context, market string, limit int) ([]QuoteRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var records []QuoteRecord
	query := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if trimmed := strings.TrimSpace(market); trimmed != "" {
		query = query.Where("market = ?", trimmed)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return records, nil
}
