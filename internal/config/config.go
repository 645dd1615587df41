package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Email contains email service configuration
	Email EmailConfig
	// Face contains face-matching service configuration
	Face FaceConfig
	// Ledger contains external vote-ledger configuration
	Ledger LedgerConfig
	// Storage contains file storage configuration
	Storage StorageConfig

	// Rate Limiting Configuration
	RateLimit struct {
		Requests int // Number of requests allowed per window
		Window   int // Time window in seconds
		Burst    int // Maximum burst size
	}
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string
	// Port is the database server port
	Port int
	// User is the database username
	User string
	// Password is the database password
	Password string
	// DBName is the database name
	DBName string
	// SSLMode is the SSL mode for the database connection
	SSLMode string
	// MigrationsPath is the path to database migrations
	MigrationsPath string
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret is the secret key used to sign JWT tokens
	JWTSecret string
	// SessionTokenDuration is the lifetime of a full session token
	SessionTokenDuration time.Duration
	// MaxLoginAttempts is the number of cumulative failures before lockout
	MaxLoginAttempts int
	// LockoutDuration is how long an account stays locked after too many failures
	LockoutDuration time.Duration
	// OTPTTL is the lifetime of a one-time login code
	OTPTTL time.Duration
	// ResetTokenTTL is the lifetime of a password reset token
	ResetTokenTTL time.Duration
}

// EmailConfig contains email service settings
type EmailConfig struct {
	// SMTPHost is the SMTP server hostname
	SMTPHost string
	// SMTPPort is the SMTP server port
	SMTPPort int
	// SMTPUsername is the SMTP authentication username
	SMTPUsername string
	// SMTPPassword is the SMTP authentication password
	SMTPPassword string
	// FromAddress is the email address used as sender
	FromAddress string
	// AppURL is the base URL of the application
	AppURL string
}

// FaceConfig contains face-matching service settings
type FaceConfig struct {
	// ServiceURL is the base URL of the external face-matching service
	ServiceURL string
	// Threshold is the minimum similarity score accepted as a match
	Threshold float64
	// Timeout bounds each matching request
	Timeout time.Duration
}

// LedgerConfig contains external vote-ledger settings
type LedgerConfig struct {
	// NodeURL is the base URL of the ledger gateway
	NodeURL string
	// ContractAddress identifies the vote-recording contract
	ContractAddress string
	// Timeout bounds each ledger request
	Timeout time.Duration
	// ReconcileSchedule is the cron schedule for the reconciliation job
	ReconcileSchedule string
	// ReconcileEnabled toggles the reconciliation job
	ReconcileEnabled bool
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	// FaceImageDir is where uploaded face images are persisted
	FaceImageDir string
	// CSVAuditDir is where per-election registration audit files are written
	CSVAuditDir string
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "ballotbox"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: "migrations",
	}
	c.Auth = AuthConfig{
		JWTSecret:            os.Getenv("JWT_SECRET"),
		SessionTokenDuration: getEnvAsDuration("SESSION_TOKEN_DURATION", 24*time.Hour),
		MaxLoginAttempts:     getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:      getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
		OTPTTL:               getEnvAsDuration("OTP_TTL", 10*time.Minute),
		ResetTokenTTL:        getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       os.Getenv("APP_URL"),
	}
	c.Face = FaceConfig{
		ServiceURL: os.Getenv("FACE_SERVICE_URL"),
		Threshold:  getEnvAsFloat("FACE_MATCH_THRESHOLD", 0.6),
		Timeout:    getEnvAsDuration("FACE_SERVICE_TIMEOUT", 10*time.Second),
	}
	c.Ledger = LedgerConfig{
		NodeURL:           os.Getenv("LEDGER_NODE_URL"),
		ContractAddress:   os.Getenv("LEDGER_CONTRACT_ADDRESS"),
		Timeout:           getEnvAsDuration("LEDGER_TIMEOUT", 15*time.Second),
		ReconcileSchedule: getEnvOrDefault("LEDGER_RECONCILE_SCHEDULE", "*/30 * * * *"),
		ReconcileEnabled:  getEnvAsBool("LEDGER_RECONCILE_ENABLED", true),
	}
	c.Storage = StorageConfig{
		FaceImageDir: getEnvOrDefault("FACE_IMAGE_DIR", "uploads/faces"),
		CSVAuditDir:  getEnvOrDefault("CSV_AUDIT_DIR", "data/voter_records"),
	}

	// Load rate limit configuration
	c.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", 1000)
	c.RateLimit.Window = getEnvAsInt("RATE_LIMIT_WINDOW", 60)
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 50)

	// Validate required fields
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsFloat retrieves an environment variable and converts it to a float64
func getEnvAsFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable and parses it as a duration
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
