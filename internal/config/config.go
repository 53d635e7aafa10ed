package config

import (
	"time"

	"github.com/spf13/viper"
)

const defaultPeriodSec = 300

type Config struct {
	Telemetry struct {
		OutputDir    string
		PeriodSec    int
		ExcelEnabled bool
	}
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		DBName   string
		SSLMode  string
		Debug    bool
	}
	Redis struct {
		Enabled  bool
		Host     string
		Port     string
		Password string
		DB       int
	}
	Status struct {
		Enabled bool
		Port    string
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
	}
	Logging struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment. The result is
// meant to be built once at startup and passed around by value.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}

	// Telemetry
	cfg.Telemetry.OutputDir = v.GetString("CSV_OUT_DIR")
	cfg.Telemetry.PeriodSec = v.GetInt("GEN_PERIOD_SEC")
	cfg.Telemetry.ExcelEnabled = v.GetBool("EXCEL_ENABLED")

	// DB
	cfg.DB.Host = v.GetString("PGHOST")
	cfg.DB.Port = v.GetString("PGPORT")
	cfg.DB.User = v.GetString("PGUSER")
	cfg.DB.Password = v.GetString("PGPASSWORD")
	cfg.DB.DBName = v.GetString("PGDATABASE")
	cfg.DB.SSLMode = v.GetString("PGSSLMODE")
	cfg.DB.Debug = v.GetBool("DB_DEBUG")

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	// Status server
	cfg.Status.Enabled = v.GetBool("STATUS_ENABLED")
	cfg.Status.Port = v.GetString("STATUS_PORT")

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = v.GetInt("RATE_LIMIT_RPS")
	cfg.RateLimit.Burst = v.GetInt("RATE_LIMIT_BURST")

	// Logging
	cfg.Logging.Level = v.GetString("LOG_LEVEL")
	cfg.Logging.Format = v.GetString("LOG_FORMAT")

	if cfg.Telemetry.PeriodSec < 1 {
		cfg.Telemetry.PeriodSec = defaultPeriodSec
	}

	return cfg
}

// Period returns the generation period as a duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Telemetry.PeriodSec) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CSV_OUT_DIR", "/data/csv")
	v.SetDefault("GEN_PERIOD_SEC", defaultPeriodSec)
	v.SetDefault("EXCEL_ENABLED", true)

	v.SetDefault("PGHOST", "db")
	v.SetDefault("PGPORT", "5432")
	v.SetDefault("PGUSER", "monouser")
	v.SetDefault("PGPASSWORD", "monopass")
	v.SetDefault("PGDATABASE", "monolith")
	v.SetDefault("PGSSLMODE", "disable")
	v.SetDefault("DB_DEBUG", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("STATUS_ENABLED", false)
	v.SetDefault("STATUS_PORT", "8080")

	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}
