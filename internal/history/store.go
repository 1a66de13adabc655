package history

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store persists run records.
type Store interface {
	// Record inserts run and fills in its ID.
	Record(ctx context.Context, run *Run) error

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)

	// ListByFile returns the runs recorded for one input path, newest first.
	ListByFile(ctx context.Context, file string) ([]Run, error)

	// Close releases the underlying connection.
	Close() error
}

// Discard is a Store that keeps nothing.
var Discard Store = discard{}

type discard struct{}

func (discard) Record(context.Context, *Run) error                { return nil }
func (discard) List(context.Context, int) ([]Run, error)          { return nil, nil }
func (discard) ListByFile(context.Context, string) ([]Run, error) { return nil, nil }
func (discard) Close() error                                      { return nil }

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the runs table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}); err != nil {
		return fmt.Errorf("failed to migrate history table: %w", err)
	}
	return nil
}

// Record inserts run.
func (s *GormStore) Record(ctx context.Context, run *Run) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *GormStore) List(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run

	q := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ListByFile returns the runs recorded for file, newest first.
func (s *GormStore) ListByFile(ctx context.Context, file string) ([]Run, error) {
	var runs []Run

	err := s.db.WithContext(ctx).
		Where("file = ?", file).
		Order("id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", file, err)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormDB returns the underlying GORM DB instance.
func (s *GormStore) GormDB() *gorm.DB {
	return s.db
}
