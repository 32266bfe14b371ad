package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the scraper.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	Headless  bool   `yaml:"headless"`
	UserAgent string `yaml:"user_agent"`
	ProxyURL  string `yaml:"proxy_url"`

	// Pipeline shape
	BatchSize       int `yaml:"batch_size"`
	MaxScrolls      int `yaml:"max_scrolls"`
	HarvestAttempts int `yaml:"harvest_attempts"`
	MaxImages       int `yaml:"max_images"`
	MaxReviews      int `yaml:"max_reviews"`

	// Timing
	NavTimeout   time.Duration `yaml:"nav_timeout"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	RenderWait   time.Duration `yaml:"render_wait"`
	ScrollPause  time.Duration `yaml:"scroll_pause"`
	RetryPause   time.Duration `yaml:"retry_pause"`
	BatchPause   time.Duration `yaml:"batch_pause"`

	OutFile string `yaml:"out_file"`

	// PostgreSQL
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:  "https://www.google.com/maps",
		Headless: true,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ProxyURL: getEnv("PROXY_URL", ""),

		BatchSize:       5,
		MaxScrolls:      20,
		HarvestAttempts: 3,
		MaxImages:       10,
		MaxReviews:      10,

		NavTimeout:   30 * time.Second,
		FetchTimeout: 10 * time.Second,
		RenderWait:   3 * time.Second,
		ScrollPause:  2 * time.Second,
		RetryPause:   2 * time.Second,
		BatchPause:   500 * time.Millisecond,

		OutFile: "listings.json",

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "scrapi"),
		DBPassword: getEnv("DB_PASSWORD", "scrapi"),
		DBName:     getEnv("DB_NAME", "scrapi"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// Load returns the defaults overlaid with values from an optional YAML file.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}
