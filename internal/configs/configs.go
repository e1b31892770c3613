/*
Package configs loads and parses the application's configuration settings.

Values come from environment variables, with a .env file loaded first when
present. The in-memory entity store is the default; setting DATABASE_URL
switches to the Postgres-backed store. S3 settings are optional and only gate
the avatar upload endpoints.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig contains all configuration parameters required to run the server.
type AppConfig struct {
	// General server settings
	Environment string
	Port        int

	// Security settings
	AllowedOrigins []string
	SessionSecret  string

	// Default room every new account joins at signup.
	DefaultRoomName string

	// Database settings; empty DSN selects the in-memory store.
	DatabaseDSN string

	// S3 storage settings for avatar uploads; all four must be set to enable.
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// AvatarStorageEnabled reports whether the S3 avatar storage is fully configured.
func (c *AppConfig) AvatarStorageEnabled() bool {
	return c.S3BucketName != "" && c.S3Endpoint != "" &&
		c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

// LoadConfig reads and validates the application configuration from the
// environment, applying defaults suitable for development.
func LoadConfig() (*AppConfig, error) {
	// Ignore the error: a missing .env file simply means plain env vars.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if cfg.Environment == "development" {
		if sessionSecret == "" {
			sessionSecret = "your_default_insecure_secret_key_change_me"
		}
	} else {
		if sessionSecret == "" {
			return nil, fmt.Errorf("SESSION_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
	}
	cfg.SessionSecret = sessionSecret

	cfg.DefaultRoomName = os.Getenv("DEFAULT_ROOM_NAME")
	if cfg.DefaultRoomName == "" {
		cfg.DefaultRoomName = "General"
	}

	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	return cfg, nil
}
