package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const devSecret = "dev-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	CORSOrigins string

	// Storage
	StoreDriver string // postgres | memory
	DatabaseURL string

	// Auth
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// Metadata provider
	TMDBAPIKey       string
	TMDBBaseURL      string
	TMDBImageBaseURL string
	TMDBTimeout      time.Duration
	MetadataCacheTTL time.Duration

	// Redis (optional)
	RedisURL      string
	EventsChannel string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// .env is optional
	_ = v.ReadInConfig()

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	v.SetDefault("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("TMDB_TIMEOUT", "10s")
	v.SetDefault("METADATA_CACHE_TTL", "0s")
	v.SetDefault("EVENTS_CHANNEL", "watchlist.events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:        v.GetString("PORT"),
		CORSOrigins: v.GetString("CORS_ORIGINS"),

		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL: v.GetString("DATABASE_URL"),

		JWTSecret:  v.GetString("JWT_SECRET"),
		BcryptCost: v.GetInt("BCRYPT_COST"),

		TMDBAPIKey:       v.GetString("TMDB_API_KEY"),
		TMDBBaseURL:      strings.TrimRight(v.GetString("TMDB_BASE_URL"), "/"),
		TMDBImageBaseURL: v.GetString("TMDB_IMAGE_BASE_URL"),

		RedisURL:      v.GetString("REDIS_URL"),
		EventsChannel: v.GetString("EVENTS_CHANNEL"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	var err error
	if cfg.TokenTTL, err = duration(v, "TOKEN_TTL"); err != nil {
		return nil, err
	}
	if cfg.TMDBTimeout, err = duration(v, "TMDB_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.MetadataCacheTTL, err = duration(v, "METADATA_CACHE_TTL"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v.GetString(key), err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "memory":
		if c.JWTSecret == "" {
			c.JWTSecret = devSecret
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TMDBAPIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if c.TokenTTL == 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

// Origins splits CORS_ORIGINS into its entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
