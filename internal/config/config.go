package config

import (
	"os"
	"strings"
	"time"
)

// Config carries every runtime setting explicitly. Nothing in this service
// reads the environment outside of Load, and no package mutates global state
// at import time (the upload directory is created by the attachment store
// when it is constructed, not here).
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret      string
	AccessTokenTTL time.Duration

	UploadDir string

	CORSOrigins []string
}

// Load reads configuration from environment variables with development
// defaults.
func Load() Config {
	cfg := Config{
		Port:           getenv("PORT", "8080"),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBPort:         getenv("DB_PORT", "5432"),
		DBUser:         getenv("DB_USER", "postgres"),
		DBPassword:     getenv("DB_PASSWORD", "postgres"),
		DBName:         getenv("DB_NAME", "postgres"),
		DBSSLMode:      getenv("DB_SSLMODE", "disable"),
		JWTSecret:      getenv("JWT_SECRET", ""),
		AccessTokenTTL: 24 * time.Hour,
		UploadDir:      getenv("UPLOAD_DIR", "nfa_files"),
	}

	origins := getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if ttl := os.Getenv("ACCESS_TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.AccessTokenTTL = d
		}
	}

	return cfg
}

// DSN assembles the postgres connection string.
func (c Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort +
		"/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// JWTKey returns the signing key, falling back to a development-only default.
func (c Config) JWTKey() []byte {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret)
	}
	if os.Getenv("GIN_MODE") == "release" {
		panic("FATAL: JWT_SECRET environment variable is required in production mode")
	}
	return []byte("default_super_secret_key") // Development fallback only — DO NOT use in production
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
