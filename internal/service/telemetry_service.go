package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"telemetrygen/internal/models"
	"telemetrygen/internal/repository"
	"telemetrygen/internal/utils"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// BatchStore persists one batch atomically.
type BatchStore interface {
	SaveBatch(ctx context.Context, records []models.TelemetryRecord) error
}

type TelemetryService interface {
	GenerateTelemetry(ctx context.Context) (*TelemetryBatch, error)
	LastOutcome() *models.CycleOutcome
}

type TelemetryBatch struct {
	Summary models.BatchSummary      `json:"summary"`
	Data    []models.TelemetryRecord `json:"data,omitempty"`
}

type Options struct {
	OutputDir    string
	ExcelEnabled bool

	// Cache is optional.
	Cache    repository.BatchCache
	CacheTTL time.Duration

	Clock clockwork.Clock
}

type telemetryService struct {
	generator    *RecordGenerator
	store        BatchStore
	cache        repository.BatchCache
	cacheTTL     time.Duration
	outputDir    string
	excelEnabled bool
	clock        clockwork.Clock

	mu   sync.RWMutex
	last *models.CycleOutcome
}

func NewTelemetryService(generator *RecordGenerator, store BatchStore, opts Options) TelemetryService {
	if opts.OutputDir == "" {
		opts.OutputDir = "/data/csv"
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	// Создаем директорию если не существует
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		log.Error().Err(err).Str("dir", opts.OutputDir).Msg("failed to create telemetry directory")
	}

	return &telemetryService{
		generator:    generator,
		store:        store,
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		outputDir:    opts.OutputDir,
		excelEnabled: opts.ExcelEnabled,
		clock:        opts.Clock,
	}
}

// GenerateTelemetry runs one cycle: generate a batch, write the CSV, the
// spreadsheet when enabled, then insert into the database. The first
// failing step ends the cycle; files written before it are left in place.
func (s *telemetryService) GenerateTelemetry(ctx context.Context) (*TelemetryBatch, error) {
	startedAt := s.clock.Now().UTC()

	batch, err := s.runCycle(ctx)

	outcome := &models.CycleOutcome{
		StartedAt:  startedAt,
		FinishedAt: s.clock.Now().UTC(),
	}
	if batch != nil {
		summary := batch.Summary
		outcome.Batch = &summary
	}
	if err != nil {
		outcome.Error = err.Error()
	}

	s.mu.Lock()
	s.last = outcome
	s.mu.Unlock()

	return batch, err
}

func (s *telemetryService) runCycle(ctx context.Context) (*TelemetryBatch, error) {
	records, filename := s.generator.GenerateBatch()

	summary := models.BatchSummary{
		ID:          uuid.NewString(),
		Filename:    filename,
		Records:     len(records),
		GeneratedAt: records[0].RecordedAt,
		CSVPath:     filepath.Join(s.outputDir, filename),
	}

	logger := log.With().Str("batch", summary.ID).Str("file", filename).Logger()
	logger.Debug().Int("records", len(records)).Msg("generated telemetry batch")

	if err := WriteCSV(summary.CSVPath, records); err != nil {
		return nil, fmt.Errorf("failed to save CSV: %w", err)
	}
	logger.Info().Str("path", summary.CSVPath).Msg("CSV file created")

	if s.excelEnabled {
		summary.ExcelPath = filepath.Join(s.outputDir, ExcelFilename(filename))
		if err := utils.CreateExcelFile(summary.ExcelPath, records); err != nil {
			return nil, fmt.Errorf("failed to create Excel file: %w", err)
		}
		logger.Info().Str("path", summary.ExcelPath).Msg("Excel file created")
	}

	if err := s.store.SaveBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to save batch to database: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.RecordBatch(ctx, summary, s.cacheTTL); err != nil {
			logger.Warn().Err(err).Msg("failed to cache batch summary")
		}
	}

	logger.Info().Int("records", len(records)).Msg("telemetry batch generated")

	return &TelemetryBatch{Summary: summary, Data: records}, nil
}

// LastOutcome returns the result of the most recent cycle, or nil before
// the first one.
func (s *telemetryService) LastOutcome() *models.CycleOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil
	}
	outcome := *s.last
	return &outcome
}
