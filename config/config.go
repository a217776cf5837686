package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables,
// optionally overridden by a YAML crawl-policy file.
type Config struct {
	PostgresHost     string `yaml:"-"`
	PostgresPort     string `yaml:"-"`
	PostgresUser     string `yaml:"-"`
	PostgresPassword string `yaml:"-"`
	PostgresDB       string `yaml:"-"`
	PostgresSSLMode  string `yaml:"-"`

	BaseURL          string `yaml:"base_url"`
	FetchMode        string `yaml:"fetch_mode"`
	FetchTimeoutSec  int    `yaml:"fetch_timeout_sec"`
	FetchMaxAttempts int    `yaml:"fetch_max_attempts"`
	RetryBaseDelayMs int    `yaml:"retry_base_delay_ms"`
	RequestJitterMs  int    `yaml:"request_jitter_ms"`
	SearchMaxPages   int    `yaml:"search_max_pages"`
	SearchMaxGuests  int    `yaml:"search_max_guests"`
	SharedMaxGuests  int    `yaml:"shared_max_guests"`
	FillMaxRooms     int    `yaml:"fill_max_rooms"`

	CSVOutputPath string `yaml:"csv_output_path"`
	ChromeBin     string `yaml:"-"`
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	CrawlConfig   string `yaml:"-"`
}

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Load reads the .env file and the environment, then applies the YAML
// overlay named by CRAWL_CONFIG when that file exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "airbnb_survey"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		BaseURL:          getEnv("BASE_URL", "https://www.airbnb.com"),
		FetchMode:        getEnv("FETCH_MODE", FetchModeHTTP),
		FetchTimeoutSec:  getEnvInt("FETCH_TIMEOUT_SEC", 10),
		FetchMaxAttempts: getEnvInt("FETCH_MAX_ATTEMPTS", 5),
		RetryBaseDelayMs: getEnvInt("RETRY_BASE_DELAY_MS", 500),
		RequestJitterMs:  getEnvInt("REQUEST_JITTER_MS", 3000),
		SearchMaxPages:   getEnvInt("SEARCH_MAX_PAGES", 25),
		SearchMaxGuests:  getEnvInt("SEARCH_MAX_GUESTS", 16),
		SharedMaxGuests:  getEnvInt("SHARED_MAX_GUESTS", 4),
		FillMaxRooms:     getEnvInt("FILL_MAX_ROOMS", 50000),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/survey.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", "run.log"),
		CrawlConfig:   getEnv("CRAWL_CONFIG", "crawl.yaml"),
	}

	if err := cfg.applyOverlay(cfg.CrawlConfig); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverlay merges a YAML file over the current values. Keys missing from
// the file keep their environment value; a missing file is not an error.
func (c *Config) applyOverlay(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

// Validate rejects values the crawl engine cannot run with.
func (c *Config) Validate() error {
	if c.FetchMode != FetchModeHTTP && c.FetchMode != FetchModeBrowser {
		return fmt.Errorf("config: unknown fetch mode %q", c.FetchMode)
	}
	if c.FetchMaxAttempts < 1 {
		return fmt.Errorf("config: fetch_max_attempts must be at least 1, got %d", c.FetchMaxAttempts)
	}
	if c.SearchMaxPages < 1 || c.SearchMaxGuests < 1 || c.SharedMaxGuests < 1 {
		return fmt.Errorf("config: search bounds must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Config) RequestJitter() time.Duration {
	return time.Duration(c.RequestJitterMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("[config] Invalid integer for %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return n
}
