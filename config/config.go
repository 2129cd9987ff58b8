// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultOddsFloor is the lowest decimal odd accepted from the feed, one plus a
// small epsilon. Cells that cannot be parsed are stored with this value.
const DefaultOddsFloor = 1.001

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// JWT signing secret for the admin endpoints.
	JWTSecret string
	// Users allowed to call the admin-only password hash endpoint.
	AdminUsers []string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string

	// Season feed
	FeedURLTemplate string
	FeedSeason      string
	FeedTimeout     time.Duration
	OddsFloor       float64
	IngestCron      string

	// Read API response cache. Redis when RedisURL is set, in process otherwise.
	RedisURL string
	CacheTTL time.Duration

	// MySQL – used only by cmd/migrate.
	MySQLDSN string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "tennis")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "tennis_data")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("FEED_URL_TEMPLATE", "http://www.tennis-data.co.uk/{season}/{season}.zip")
	v.SetDefault("FEED_SEASON", "2013")
	v.SetDefault("FEED_TIMEOUT", "2m")
	v.SetDefault("ODDS_FLOOR", DefaultOddsFloor)
	v.SetDefault("INGEST_CRON", "")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("ADMIN_USERS", "admin")

	cfg := &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBUser:          v.GetString("DB_USER"),
		DBPass:          v.GetString("DB_PASS"),
		DBHost:          v.GetString("DB_HOST"),
		DBPort:          v.GetString("DB_PORT"),
		DBName:          v.GetString("DB_NAME"),
		DBSSLMode:       v.GetString("DB_SSLMODE"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		AdminUsers:      splitTrimmed(v.GetString("ADMIN_USERS")),
		Debug:           v.GetBool("DEBUG"),
		Port:            v.GetString("PORT"),
		TLSDomains:      splitTrimmed(v.GetString("TLS_DOMAINS")),
		FeedURLTemplate: v.GetString("FEED_URL_TEMPLATE"),
		FeedSeason:      strings.TrimSpace(v.GetString("FEED_SEASON")),
		FeedTimeout:     v.GetDuration("FEED_TIMEOUT"),
		OddsFloor:       v.GetFloat64("ODDS_FLOOR"),
		IngestCron:      strings.TrimSpace(v.GetString("INGEST_CRON")),
		RedisURL:        v.GetString("REDIS_URL"),
		CacheTTL:        v.GetDuration("CACHE_TTL"),
		MySQLDSN:        v.GetString("MYSQL_DSN"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

// FeedURL returns the archive URL for the given season.
func (c *Config) FeedURL(season string) string {
	return strings.ReplaceAll(c.FeedURLTemplate, "{season}", season)
}

// Validate reports the first setting that would stop the service from working.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASS must be set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if !strings.Contains(c.FeedURLTemplate, "{season}") {
		return fmt.Errorf("FEED_URL_TEMPLATE must contain {season}")
	}
	if !ValidSeason(c.FeedSeason) {
		return fmt.Errorf("FEED_SEASON must be a year, got %q", c.FeedSeason)
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be positive")
	}
	if c.OddsFloor < 1 {
		return fmt.Errorf("ODDS_FLOOR must be at least 1.0, got %v", c.OddsFloor)
	}
	if !c.Debug && len(c.TLSDomains) == 0 {
		return fmt.Errorf("TLS_DOMAINS must be set outside debug mode")
	}
	return nil
}

// ValidSeason reports whether s is a non-empty run of ASCII digits.
func ValidSeason(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
