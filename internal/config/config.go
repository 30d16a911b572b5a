// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bipv-docs/internal/models"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	RequestTimeout time.Duration
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type          string // "memory", "mongo" or "postgres"
	URI           string
	MongoDatabase string
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	BcryptCost      int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
	JSON  bool
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	Log            *LogConfig
	Organizations  map[string]*models.Organization
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		RequestTimeout: 5 * time.Second,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type:          "memory",
		MongoDatabase: "bipv_docs",
		Port:          5432,
		SSLMode:       "require",
	}
}

// DevelopmentJWTSecret signs tokens when JWT_SECRET is unset. Only accepted in debug mode.
const DevelopmentJWTSecret = "bipv_docs_development_secret"

// DefaultAuthConfig provides default auth settings. The secret must be overridden
// outside development.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret:       DevelopmentJWTSecret,
		TokenExpiration: 24 * time.Hour,
		BcryptCost:      12,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",          // Current directory
		"../../.env",    // Project root when running from cmd/engine
		"../../../.env", // Even higher directory
		filepath.Join(os.Getenv("GOPATH"), "src/bipv-docs/.env"),
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			logrus.WithField("path", location).Debug("Loaded environment file")
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		// Silent when no .env exists; the process environment is enough.
		_ = godotenv.Load()
	}

	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %v", portStr, err)
		}
		serverConfig.Port = port
	}

	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}

	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %v", timeout, err)
		}
		serverConfig.RequestTimeout = d
	}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	authConfig := DefaultAuthConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		authConfig.JWTSecret = secret
	} else {
		logrus.Warn("JWT_SECRET is not set, using the development secret")
	}
	if costStr := os.Getenv("BCRYPT_COST"); costStr != "" {
		cost, err := strconv.Atoi(costStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q: %v", costStr, err)
		}
		authConfig.BcryptCost = cost
	}

	orgs := models.DefaultOrganizations()
	if orgChannels := os.Getenv("ORG_CHANNELS"); orgChannels != "" {
		orgs, err = ParseOrgChannels(orgChannels)
		if err != nil {
			return nil, err
		}
	}

	config := &Config{
		Server:   serverConfig,
		Database: dbConfig,
		Auth:     authConfig,
		Log: &LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			JSON:  os.Getenv("LOG_JSON") == "true",
		},
		Organizations:  orgs,
		AllowedOrigins: []string{"*"}, // Default to allow all origins
		Debug:          false,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
		config.Log.Level = "debug"
	}

	return config, nil
}

// Validate rejects settings that are only safe for local development.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == DevelopmentJWTSecret && !c.Debug {
		return fmt.Errorf("JWT_SECRET must be set unless DEBUG=true")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST %d is outside %d..%d", c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	dbConfig := DefaultDatabaseConfig()

	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		dbConfig.Type = dbType
	}

	switch dbConfig.Type {
	case "memory":
		return dbConfig, nil

	case "mongo":
		dbConfig.URI = getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017")
		dbConfig.MongoDatabase = getEnvOrDefault("MONGODB_DATABASE", dbConfig.MongoDatabase)
		return dbConfig, nil

	case "postgres":
		// Prioritize DATABASE_URL if provided
		if uri := os.Getenv("DATABASE_URL"); uri != "" {
			dbConfig.URI = uri
			dbConfig.SSLMode = getSSLModeFromURI(uri)
			return dbConfig, nil
		}

		dbConfig.Host = getEnvOrDefault("DB_HOST", "localhost")

		if portStr := os.Getenv("DB_PORT"); portStr != "" {
			if port, err := strconv.Atoi(portStr); err == nil {
				dbConfig.Port = port
			}
		}

		dbConfig.User = os.Getenv("DB_USER")
		if dbConfig.User == "" {
			return nil, fmt.Errorf("DB_USER environment variable is required when DB_TYPE is postgres and DATABASE_URL is not set")
		}

		dbConfig.Password = os.Getenv("DB_PASSWORD")
		if dbConfig.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD environment variable is required when DB_TYPE is postgres and DATABASE_URL is not set")
		}

		dbConfig.Name = getEnvOrDefault("DB_NAME", "postgres")
		dbConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", "require")

		dbConfig.URI = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			dbConfig.User,
			dbConfig.Password,
			dbConfig.Host,
			dbConfig.Port,
			dbConfig.Name,
			dbConfig.SSLMode,
		)
		return dbConfig, nil

	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (want memory, mongo or postgres)", dbConfig.Type)
	}
}

// ParseOrgChannels parses "org1=channel1|channel2;org2=channel1". Display names of
// known organizations are kept.
func ParseOrgChannels(orgChannels string) (map[string]*models.Organization, error) {
	defaults := models.DefaultOrganizations()
	orgs := make(map[string]*models.Organization)

	for _, entry := range strings.Split(orgChannels, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kv := strings.SplitN(entry, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, fmt.Errorf("invalid ORG_CHANNELS entry %q", entry)
		}

		id := strings.TrimSpace(kv[0])
		org := &models.Organization{ID: id, Name: id}
		if known, ok := defaults[id]; ok {
			org.Name = known.Name
		}
		for _, ch := range strings.Split(kv[1], "|") {
			if ch = strings.TrimSpace(ch); ch != "" {
				org.Channels = append(org.Channels, ch)
			}
		}
		orgs[id] = org
	}

	if len(orgs) == 0 {
		return nil, fmt.Errorf("ORG_CHANNELS %q defines no organizations", orgChannels)
	}
	return orgs, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to extract sslmode from a DSN, defaults to "require"
func getSSLModeFromURI(uri string) string {
	if strings.Contains(uri, "sslmode=") {
		parts := strings.Split(uri, "?")
		if len(parts) > 1 {
			queryParams := strings.Split(parts[1], "&")
			for _, param := range queryParams {
				kv := strings.SplitN(param, "=", 2)
				if len(kv) == 2 && kv[0] == "sslmode" {
					return kv[1]
				}
			}
		}
	}
	return "require"
}
