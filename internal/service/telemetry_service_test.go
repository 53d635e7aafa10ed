package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"telemetrygen/internal/models"
	"telemetrygen/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records every batch it is given.
type fakeStore struct {
	mu      sync.Mutex
	batches [][]models.TelemetryRecord
	err     error
}

func (s *fakeStore) SaveBatch(_ context.Context, records []models.TelemetryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

func newScenarioService(t *testing.T, store BatchStore, excel bool) (TelemetryService, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "csv")
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	gen := NewRecordGenerator(&stubRand{batchSize: 3, float: 0.25, pick: 1}, clock)

	svc := NewTelemetryService(gen, store, Options{
		OutputDir:    dir,
		ExcelEnabled: excel,
		Clock:        clock,
	})
	return svc, dir
}

func TestTelemetryService_GenerateTelemetry(t *testing.T) {
	store := &fakeStore{}
	svc, dir := newScenarioService(t, store, true)

	batch, err := svc.GenerateTelemetry(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "telemetry_20240101_000000.csv", batch.Summary.Filename)
	assert.Equal(t, 3, batch.Summary.Records)
	assert.NotEmpty(t, batch.Summary.ID)
	assert.Equal(t, filepath.Join(dir, "telemetry_20240101_000000.csv"), batch.Summary.CSVPath)
	assert.Equal(t, filepath.Join(dir, "telemetry_20240101_000000.xlsx"), batch.Summary.ExcelPath)

	raw, err := os.ReadFile(batch.Summary.CSVPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	assert.Len(t, lines, 4)

	assert.FileExists(t, batch.Summary.ExcelPath)

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 3)
	for _, rec := range store.batches[0] {
		assert.Equal(t, "telemetry_20240101_000000.csv", rec.SourceFile)
	}

	outcome := svc.LastOutcome()
	require.NotNil(t, outcome)
	assert.Empty(t, outcome.Error)
	require.NotNil(t, outcome.Batch)
	assert.Equal(t, batch.Summary.ID, outcome.Batch.ID)
}

func TestTelemetryService_ExcelDisabled(t *testing.T) {
	svc, dir := newScenarioService(t, &fakeStore{}, false)

	batch, err := svc.GenerateTelemetry(context.Background())
	require.NoError(t, err)

	assert.Empty(t, batch.Summary.ExcelPath)
	assert.NoFileExists(t, filepath.Join(dir, "telemetry_20240101_000000.xlsx"))
}

func TestTelemetryService_DatabaseFailureKeepsFiles(t *testing.T) {
	refused := errors.New("connection refused")
	svc, dir := newScenarioService(t, &fakeStore{err: refused}, true)

	batch, err := svc.GenerateTelemetry(context.Background())
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, refused)

	assert.FileExists(t, filepath.Join(dir, "telemetry_20240101_000000.csv"))
	assert.FileExists(t, filepath.Join(dir, "telemetry_20240101_000000.xlsx"))

	outcome := svc.LastOutcome()
	require.NotNil(t, outcome)
	assert.Contains(t, outcome.Error, "connection refused")
}

func TestTelemetryService_CSVFailureSkipsDatabase(t *testing.T) {
	store := &fakeStore{}
	svc, dir := newScenarioService(t, store, true)

	// a directory where the CSV should go makes os.Create fail
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "telemetry_20240101_000000.csv"), 0755))

	_, err := svc.GenerateTelemetry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save CSV")
	assert.Empty(t, store.batches)
	assert.NoFileExists(t, filepath.Join(dir, "telemetry_20240101_000000.xlsx"))
}

func TestTelemetryService_LastOutcomeBeforeFirstCycle(t *testing.T) {
	svc, _ := newScenarioService(t, &fakeStore{}, false)
	assert.Nil(t, svc.LastOutcome())
}

func TestTelemetryService_RecordsSummaryInCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := repository.NewCacheRepository(client)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	gen := NewRecordGenerator(&stubRand{batchSize: 3, float: 0.5}, clock)
	svc := NewTelemetryService(gen, &fakeStore{}, Options{
		OutputDir: t.TempDir(),
		Cache:     cache,
		CacheTTL:  time.Hour,
		Clock:     clock,
	})

	batch, err := svc.GenerateTelemetry(context.Background())
	require.NoError(t, err)

	last, err := cache.LastBatch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, batch.Summary.ID, last.ID)
	assert.Equal(t, 3, last.Records)
}

func TestTelemetryService_CacheFailureDoesNotFailCycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	gen := NewRecordGenerator(&stubRand{batchSize: 1, float: 0.5}, clock)
	svc := NewTelemetryService(gen, &fakeStore{}, Options{
		OutputDir: t.TempDir(),
		Cache:     repository.NewCacheRepository(client),
		Clock:     clock,
	})

	_, err := svc.GenerateTelemetry(context.Background())
	assert.NoError(t, err)
}
