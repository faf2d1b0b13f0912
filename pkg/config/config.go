package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration. It is built once in main and
// passed by reference into every constructor; nothing reads the environment
// after startup.
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	CORSAllowedOrigins []string

	// Blob store (Cloudinary) account
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Reference store (Strapi)
	StrapiHost  string
	StrapiToken string

	// Identity provider shared secret for bearer token validation
	JWTSecret string

	// Transactional email
	ResendAPIKey string
	AdminEmail   string
	SiteDomain   string

	// Tag cache
	RedisURL     string
	CacheTTLSecs int

	// Upload limits
	MaxUploadBytes   int64
	AllowedMimeTypes []string

	// Upload-intent journal + orphan sweeper
	Database             DatabaseConfig
	SweepIntervalMinutes int
	IntentStaleMinutes   int
}

// DatabaseConfig holds the intent-journal database settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}

	maxUpload, err := intEnv("MAX_UPLOAD_BYTES", 5*1024*1024)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := intEnv("CACHE_TTL_SECONDS", 300)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := intEnv("SWEEP_INTERVAL_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	intentStale, err := intEnv("INTENT_STALE_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	dbPort, err := intEnv("DATABASE_PORT", 5432)
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
		}),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		StrapiHost:          getEnv("STRAPI_HOST", "http://127.0.0.1:1337"),
		StrapiToken:         os.Getenv("STRAPI_TOKEN"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		AdminEmail:          getEnv("ADMIN_EMAIL", "reservas@example.com"),
		SiteDomain:          getEnv("SITE_DOMAIN", "example.com"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTLSecs:        cacheTTL,
		MaxUploadBytes:      int64(maxUpload),
		AllowedMimeTypes: []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"image/jpg",
		},
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DATABASE_USER", "tourbook"),
			Password: getEnv("DATABASE_PASSWORD", "dev"),
			Name:     getEnv("DATABASE_NAME", "tourbook"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		SweepIntervalMinutes: sweepInterval,
		IntentStaleMinutes:   intentStale,
	}, nil
}

// MimeAllowed reports whether a content type is accepted for document upload.
func (c *Config) MimeAllowed(mimeType string) bool {
	for _, m := range c.AllowedMimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
