package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabasePath   string
	QueryBatchSize int

	// Logging settings
	LogLevel  string
	LogFormat string

	// Cache settings
	CacheSize int
	CacheTTL  time.Duration

	// Registry settings
	RegistryListURL  string
	RegistryMaxPages int
	DownloadChunkMB  int
	DownloadTimeout  time.Duration
	WorkDir          string

	// Crawler settings
	ScraperTimeout time.Duration
	HeadlessMode   bool
	UserAgent      string
	BrowserPath    string

	// Report settings
	ReportDelimiter    string
	ReportingRoleLabel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./output_dir/court_registry.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		RegistryListURL:    getEnv("REGISTRY_LIST_URL", "https://dsa.court.gov.ua/dsa/inshe/oddata/532/?page={page}"),
		WorkDir:            getEnv("WORK_DIR", "./input_dir"),
		UserAgent:          getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) court-registry/1.0"),
		BrowserPath:        getEnv("ROD_BROWSER_PATH", ""),
		ReportDelimiter:    getEnv("REPORT_DELIMITER", ","),
		ReportingRoleLabel: getEnv("REPORTING_ROLE_LABEL", "суддя-доповідач"),
	}

	// Parse integer values
	var err error
	cfg.CacheSize, err = strconv.Atoi(getEnv("CACHE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Minute

	cfg.QueryBatchSize, err = strconv.Atoi(getEnv("QUERY_BATCH_SIZE", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUERY_BATCH_SIZE: %w", err)
	}
	if cfg.QueryBatchSize <= 0 {
		return nil, fmt.Errorf("invalid QUERY_BATCH_SIZE: must be positive")
	}

	cfg.RegistryMaxPages, err = strconv.Atoi(getEnv("REGISTRY_MAX_PAGES", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGISTRY_MAX_PAGES: %w", err)
	}

	cfg.DownloadChunkMB, err = strconv.Atoi(getEnv("DOWNLOAD_CHUNK_MB", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOWNLOAD_CHUNK_MB: %w", err)
	}

	downloadTimeout, err := strconv.Atoi(getEnv("DOWNLOAD_TIMEOUT", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOWNLOAD_TIMEOUT: %w", err)
	}
	cfg.DownloadTimeout = time.Duration(downloadTimeout) * time.Second

	scraperTimeout, err := strconv.Atoi(getEnv("SCRAPER_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_TIMEOUT: %w", err)
	}
	cfg.ScraperTimeout = time.Duration(scraperTimeout) * time.Second

	cfg.HeadlessMode = getEnv("HEADLESS_MODE", "true") == "true"

	if len([]rune(cfg.ReportDelimiter)) != 1 {
		return nil, fmt.Errorf("invalid REPORT_DELIMITER: must be a single character")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
