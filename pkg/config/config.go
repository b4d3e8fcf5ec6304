package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// Upstream warehouse (item master / sales)
	Upstream UpstreamConfig

	// Redis
	Redis RedisConfig

	// Kafka
	Kafka KafkaConfig

	// Pipeline
	Pipeline PipelineConfig

	// Schedule (cron expressions with seconds)
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Connect retry (고정 대기)
	ConnectAttempts int
	ConnectWait     time.Duration

	MigrationsVersion uint
}

// UpstreamConfig holds the warehouse connection
type UpstreamConfig struct {
	URL       string    // 비어 있으면 cache-only
	FloorDate time.Time // 판매 쿼리 고정 하한
}

// Enabled reports whether an upstream warehouse is configured
func (u UpstreamConfig) Enabled() bool {
	return u.URL != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// KafkaConfig holds the publish notification producer configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether notifications are configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// PipelineConfig holds the stage tuning knobs
type PipelineConfig struct {
	DataDir    string // FOLDER_DATOS
	ArchiveDir string

	PublishBatchSize        int
	PublishBatchesPerSecond float64

	ChartMaxBytes   int
	ChartFlushEvery int
	ChartWorkers    int

	StaleClaimAfter time.Duration // 0 = watchdog off
	ExportPrecharge bool
	PrechargeUser   string // f_oc_precarga_connexa 작성자
}

// ScheduleConfig holds one cron expression per stage job
type ScheduleConfig struct {
	Compute string
	Extend  string
	Chart   string
	Publish string
	Reclaim string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	dataDir := getEnv("FOLDER_DATOS", "./data")

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:               getEnv("DATABASE_URL", ""),
			MaxConns:          getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:          getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			ConnectAttempts:   getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
			ConnectWait:       getEnvAsDuration("DB_CONNECT_WAIT", "10s"),
			MigrationsVersion: uint(getEnvAsInt("MIGRATIONS_VERSION", 0)),
		},

		Upstream: UpstreamConfig{
			URL:       getEnv("UPSTREAM_DATABASE_URL", ""),
			FloorDate: getEnvAsDate("SALES_FLOOR_DATE", "2021-01-01"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "supplycast.forecast.published"),
		},

		Pipeline: PipelineConfig{
			DataDir:                 dataDir,
			ArchiveDir:              getEnv("ARCHIVE_DIR", filepath.Join(dataDir, "procesado")),
			PublishBatchSize:        getEnvAsInt("PUBLISH_BATCH_SIZE", 500),
			PublishBatchesPerSecond: getEnvAsFloat("PUBLISH_BATCHES_PER_SECOND", 0),
			ChartMaxBytes:           getEnvAsInt("CHART_MAX_BYTES", 1_500_000),
			ChartFlushEvery:         getEnvAsInt("CHART_FLUSH_EVERY", 5),
			ChartWorkers:            getEnvAsInt("CHART_WORKERS", 1),
			StaleClaimAfter:         getEnvAsDuration("STALE_CLAIM_AFTER", "0s"),
			ExportPrecharge:         getEnvAsBool("EXPORT_PRECHARGE", false),
			PrechargeUser:           getEnv("PRECHARGE_USER", getEnv("USER", "supplycast")),
		},

		Schedule: ScheduleConfig{
			Compute: getEnv("SCHEDULE_COMPUTE", "0 */10 * * * *"),
			Extend:  getEnv("SCHEDULE_EXTEND", "0 2-59/10 * * * *"),
			Chart:   getEnv("SCHEDULE_CHART", "0 4-59/10 * * * *"),
			Publish: getEnv("SCHEDULE_PUBLISH", "0 6-59/10 * * * *"),
			Reclaim: getEnv("SCHEDULE_RECLAIM", "0 */15 * * * *"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.PublishBatchSize <= 0 {
		return fmt.Errorf("PUBLISH_BATCH_SIZE must be positive")
	}
	if c.Pipeline.ChartFlushEvery <= 0 {
		return fmt.Errorf("CHART_FLUSH_EVERY must be positive")
	}
	if c.Pipeline.ChartMaxBytes <= 0 {
		return fmt.Errorf("CHART_MAX_BYTES must be positive")
	}
	if c.Pipeline.ChartWorkers <= 0 {
		return fmt.Errorf("CHART_WORKERS must be positive")
	}
	if c.Database.ConnectAttempts <= 0 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",    // Current directory
		"../.env", // From cmd/
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsDate(key string, defaultValue string) time.Time {
	valueStr := getEnv(key, defaultValue)

	date, err := time.Parse("2006-01-02", valueStr)
	if err != nil {
		date, _ = time.Parse("2006-01-02", defaultValue)
	}

	return date
}

// getEnvAsList splits a comma separated value, dropping empty entries
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
