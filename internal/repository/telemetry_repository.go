package repository

import (
	"context"
	"errors"
	"fmt"

	"telemetrygen/internal/models"
	"telemetrygen/pkg/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoRecords = errors.New("no telemetry records to insert")

const insertTelemetrySQL = `INSERT INTO telemetry_legacy
	(recorded_at, voltage, temp, operational, source_file, status)
VALUES (?, ?, ?, ?, ?, ?)`

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var sortableColumns = map[string]bool{
	"id":          true,
	"recorded_at": true,
	"voltage":     true,
	"temp":        true,
	"source_file": true,
	"operational": true,
	"status":      true,
}

type TelemetryRepository interface {
	EnsureSchema(ctx context.Context) error
	InsertBatch(ctx context.Context, records []models.TelemetryRecord) error
	List(ctx context.Context, query ListQuery) ([]models.TelemetryRecord, error)
	Count(ctx context.Context) (int64, error)
}

// ListQuery selects a page of rows for display.
type ListQuery struct {
	Limit int
	Sort  string
	Order string
}

// Normalize clamps the limit and replaces unknown sort columns or orders
// with their defaults.
func (q ListQuery) Normalize() ListQuery {
	if q.Limit == 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if !sortableColumns[q.Sort] {
		q.Sort = "recorded_at"
	}
	if q.Order != "asc" && q.Order != "desc" {
		q.Order = "desc"
	}
	return q
}

type telemetryRepository struct {
	db *gorm.DB
}

func NewTelemetryRepository(db *gorm.DB) TelemetryRepository {
	return &telemetryRepository{db: db}
}

func (r *telemetryRepository) EnsureSchema(ctx context.Context) error {
	return database.Migrate(r.db.WithContext(ctx))
}

// InsertBatch inserts every record in one transaction. Nothing is committed
// unless all inserts succeed.
func (r *telemetryRepository) InsertBatch(ctx context.Context, records []models.TelemetryRecord) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, record := range records {
			err := tx.Exec(insertTelemetrySQL,
				record.RecordedAt,
				record.Voltage,
				record.Temp,
				record.Operational,
				record.SourceFile,
				string(record.Status),
			).Error
			if err != nil {
				return fmt.Errorf("insert record %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *telemetryRepository) List(ctx context.Context, query ListQuery) ([]models.TelemetryRecord, error) {
	query = query.Normalize()

	var records []models.TelemetryRecord
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{
			Column: clause.Column{Name: query.Sort},
			Desc:   query.Order == "desc",
		}).
		Limit(query.Limit).
		Find(&records).
		Error
	return records, err
}

func (r *telemetryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TelemetryRecord{}).
		Count(&count).
		Error
	return count, err
}
