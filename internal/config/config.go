package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret     string
	SessionExpiry time.Duration

	CatalogPath string
	AssetsDir   string

	// MaxPhotoBytes caps the final-document photo upload.
	MaxPhotoBytes int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:           getEnv("ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:     getEnv("REDIS_PASSWORD", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CatalogPath:   getEnv("CATALOG_PATH", "assets/data/puzzles.json"),
		AssetsDir:     getEnv("ASSETS_DIR", "assets"),
		MaxPhotoBytes: 10 << 20,
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
	}
	cfg.RedisDB = db

	expiryHours, err := strconv.Atoi(getEnv("SESSION_EXPIRY_HOURS", "720"))
	if err != nil || expiryHours <= 0 {
		return nil, fmt.Errorf("invalid SESSION_EXPIRY_HOURS")
	}
	cfg.SessionExpiry = time.Duration(expiryHours) * time.Hour

	if maxPhoto := os.Getenv("MAX_PHOTO_BYTES"); maxPhoto != "" {
		n, err := strconv.ParseInt(maxPhoto, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_PHOTO_BYTES")
		}
		cfg.MaxPhotoBytes = n
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
