package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"telemetrygen/internal/models"
	"telemetrygen/pkg/database"

	"gorm.io/gorm"
)

var ErrDatabaseUnavailable = errors.New("database unavailable")

// LazyRepository opens its database handle on first use. A failed open is
// retried on the next call instead of being cached.
type LazyRepository struct {
	open Opener

	mu   sync.Mutex
	db   *gorm.DB
	repo TelemetryRepository
}

func NewLazyRepository(open Opener) *LazyRepository {
	return &LazyRepository{open: open}
}

func (r *LazyRepository) get() (TelemetryRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo != nil {
		return r.repo, nil
	}

	db, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}

	r.db = db
	r.repo = NewTelemetryRepository(db)
	return r.repo, nil
}

func (r *LazyRepository) EnsureSchema(ctx context.Context) error {
	repo, err := r.get()
	if err != nil {
		return err
	}
	return repo.EnsureSchema(ctx)
}

func (r *LazyRepository) InsertBatch(ctx context.Context, records []models.TelemetryRecord) error {
	repo, err := r.get()
	if err != nil {
		return err
	}
	return repo.InsertBatch(ctx, records)
}

func (r *LazyRepository) List(ctx context.Context, query ListQuery) ([]models.TelemetryRecord, error) {
	repo, err := r.get()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, query)
}

func (r *LazyRepository) Count(ctx context.Context) (int64, error) {
	repo, err := r.get()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx)
}

// Close releases the handle if one was opened.
func (r *LazyRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := database.Close(r.db)
	r.db, r.repo = nil, nil
	return err
}
