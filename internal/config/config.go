package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Notification (WhatsApp/SMS) configuration
	Notification NotificationConfig

	// Work assignment rules
	Assignment AssignmentConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
}

// NotificationConfig holds the notification sink configuration
type NotificationConfig struct {
	Channel             string // "log", "whatsapp" or "sms"
	DefaultCountryCode  string // prefix used to normalize local mobile numbers
	SendTimeout         time.Duration
	HealthCheckSchedule string // cron expression with seconds, empty disables the poll

	WhatsAppAPIURL        string
	WhatsAppPhoneNumberID string
	WhatsAppToken         string

	SMSAPIURL string
	SMSAPIKey string
	SMSMask   string
}

// AssignmentConfig holds work assignment business rules
type AssignmentConfig struct {
	// StrictTransitions rejects status changes outside
	// pending->{in_progress,cancelled}, in_progress->{completed,cancelled}.
	StrictTransitions bool
	NotifyOnCreate    bool
	NotifyOnStatus    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 43200)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Request-ID"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Notification: NotificationConfig{
			Channel:               getEnv("NOTIFY_CHANNEL", "log"),
			DefaultCountryCode:    getEnv("NOTIFY_DEFAULT_COUNTRY_CODE", "91"),
			SendTimeout:           time.Duration(getEnvAsInt("NOTIFY_SEND_TIMEOUT", 15)) * time.Second,
			HealthCheckSchedule:   getEnv("NOTIFY_HEALTH_CHECK_SCHEDULE", "0 */5 * * * *"),
			WhatsAppAPIURL:        getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0"),
			WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),
			SMSAPIURL:             getEnv("SMS_API_URL", ""),
			SMSAPIKey:             getEnv("SMS_API_KEY", ""),
			SMSMask:               getEnv("SMS_MASK", ""),
		},
		Assignment: AssignmentConfig{
			StrictTransitions: getEnvAsBool("ASSIGNMENT_STRICT_TRANSITIONS", true),
			NotifyOnCreate:    getEnvAsBool("ASSIGNMENT_NOTIFY_ON_CREATE", true),
			NotifyOnStatus:    getEnvAsBool("ASSIGNMENT_NOTIFY_ON_STATUS", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Notification.Channel {
	case "log":
	case "whatsapp":
		if c.Notification.WhatsAppPhoneNumberID == "" || c.Notification.WhatsAppToken == "" {
			return fmt.Errorf("WHATSAPP_PHONE_NUMBER_ID and WHATSAPP_TOKEN are required for the whatsapp channel")
		}
	case "sms":
		if c.Notification.SMSAPIURL == "" || c.Notification.SMSAPIKey == "" {
			return fmt.Errorf("SMS_API_URL and SMS_API_KEY are required for the sms channel")
		}
	default:
		return fmt.Errorf("invalid notification channel: %s (must be 'log', 'whatsapp' or 'sms')", c.Notification.Channel)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
