package repository

import (
	"context"
	"fmt"

	"telemetrygen/internal/models"
	"telemetrygen/pkg/database"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Opener returns a fresh database handle.
type Opener func() (*gorm.DB, error)

// PerCycleStore opens a connection for each batch and closes it when the
// batch is stored. Connections are never shared between cycles.
type PerCycleStore struct {
	open Opener
}

func NewPerCycleStore(open Opener) *PerCycleStore {
	return &PerCycleStore{open: open}
}

// NewPostgresStore opens single-connection handles from cfg.
func NewPostgresStore(cfg database.Config) *PerCycleStore {
	cfg.MaxOpenConns = 1
	return NewPerCycleStore(func() (*gorm.DB, error) {
		return database.Connect(cfg)
	})
}

func (s *PerCycleStore) SaveBatch(ctx context.Context, records []models.TelemetryRecord) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn().Err(err).Msg("failed to close database connection")
		}
	}()

	repo := NewTelemetryRepository(db)

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	if err := repo.InsertBatch(ctx, records); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	log.Info().Int("rows", len(records)).Msg("inserted telemetry rows")
	return nil
}
