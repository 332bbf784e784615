package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"living-population/pkg/database"
)

// Config holds all application configuration loaded from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Merge    MergeConfig
	Regions  RegionsConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
}

type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// MergeConfig controls the per-file pipeline and the merge step.
type MergeConfig struct {
	Workers          int
	ChunkSize        int
	Encodings        []string
	RequireSelection bool
	Labels           string // "english" or "korean"
	OutputPrefix     string
	OutputDir        string
	PreviewRows      int
}

type RegionsConfig struct {
	Source string // "embedded", "file" or "database"
	Path   string
}

// LoadConfig reads an optional .env file (ENV_FILE overrides the path) and
// then the process environment.
func LoadConfig() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxUploadBytes: int64(getEnvInt("SERVER_MAX_UPLOAD_MB", 512)) << 20,
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "population"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "living_population"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			Path:            getEnv("DB_PATH", "./data/regions.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Merge: MergeConfig{
			Workers:          getEnvInt("MERGE_WORKERS", 4),
			ChunkSize:        getEnvInt("MERGE_CHUNK_SIZE", 10000),
			Encodings:        getEnvList("MERGE_ENCODINGS", []string{"utf-8", "utf-8-sig", "cp949", "euc-kr"}),
			RequireSelection: getEnvBool("MERGE_REQUIRE_SELECTION", false),
			Labels:           strings.ToLower(getEnv("MERGE_LABELS", "english")),
			OutputPrefix:     getEnv("MERGE_OUTPUT_PREFIX", "merged"),
			OutputDir:        getEnv("MERGE_OUTPUT_DIR", "."),
			PreviewRows:      getEnvInt("MERGE_PREVIEW_ROWS", 5),
		},
		Regions: RegionsConfig{
			Source: strings.ToLower(getEnv("REGIONS_SOURCE", "embedded")),
			Path:   getEnv("REGIONS_PATH", ""),
		},
	}

	return cfg, nil
}

// Connection returns the settings in the form pkg/database expects
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		Path:            d.Path,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// Validate checks ranges and enumerated values.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		problems = append(problems, "SERVER_MAX_UPLOAD_MB must be positive")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for postgres")
		}
	case "sqlite":
		if c.Database.Path == "" {
			problems = append(problems, "DB_PATH is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("unsupported LOG_LEVEL %q", c.Logging.Level))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		problems = append(problems, fmt.Sprintf("unsupported LOG_FORMAT %q", c.Logging.Format))
	}

	if c.Merge.Workers < 1 {
		problems = append(problems, fmt.Sprintf("MERGE_WORKERS must be >= 1, got %d", c.Merge.Workers))
	}
	if c.Merge.ChunkSize < 1 {
		problems = append(problems, fmt.Sprintf("MERGE_CHUNK_SIZE must be >= 1, got %d", c.Merge.ChunkSize))
	}
	if len(c.Merge.Encodings) == 0 {
		problems = append(problems, "MERGE_ENCODINGS must list at least one encoding")
	}
	if c.Merge.Labels != "english" && c.Merge.Labels != "korean" {
		problems = append(problems, fmt.Sprintf("unsupported MERGE_LABELS %q", c.Merge.Labels))
	}
	if c.Merge.OutputPrefix == "" {
		problems = append(problems, "MERGE_OUTPUT_PREFIX must not be empty")
	}
	if c.Merge.PreviewRows < 1 {
		problems = append(problems, "MERGE_PREVIEW_ROWS must be >= 1")
	}

	switch c.Regions.Source {
	case "embedded", "database":
	case "file":
		if c.Regions.Path == "" {
			problems = append(problems, "REGIONS_PATH is required when REGIONS_SOURCE=file")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported REGIONS_SOURCE %q", c.Regions.Source))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
