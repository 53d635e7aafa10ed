package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Debug    bool

	// MaxOpenConns of 1 gives a single dedicated connection.
	MaxOpenConns int
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func Connect(config Config) (*gorm.DB, error) {
	db, err := Open(postgres.Open(config.DSN()), config.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Debug().Str("host", config.Host).Str("db", config.DBName).Msg("database connected")
	return db, nil
}

// Open wraps gorm.Open with the settings shared by every connection.
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const createTelemetryTable = `CREATE TABLE IF NOT EXISTS telemetry_legacy (
	id SERIAL PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL,
	voltage NUMERIC(5,2) NOT NULL,
	temp NUMERIC(5,2) NOT NULL,
	operational BOOLEAN NOT NULL,
	source_file TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ DEFAULT NOW()
)`

// Migrate creates telemetry_legacy and its indexes. Safe to run against an
// existing schema.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(createTelemetryTable).Error; err != nil {
		return fmt.Errorf("failed to create telemetry_legacy: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_telemetry_legacy_recorded_at ON telemetry_legacy(recorded_at DESC)").Error; err != nil {
		return err
	}
	return nil
}
