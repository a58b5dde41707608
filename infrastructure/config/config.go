package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `mapstructure:"server_address"`
	Environment   string `mapstructure:"environment"`

	// AWS configuration
	AWSRegion        string `mapstructure:"aws_region"`
	TableName        string `mapstructure:"table_name"`
	GSI1IndexName    string `mapstructure:"gsi1_index_name"` // latest documents per user
	GSI2IndexName    string `mapstructure:"gsi2_index_name"` // document id lookup
	DynamoDBEndpoint string `mapstructure:"dynamodb_endpoint"`
	EventBusName     string `mapstructure:"event_bus_name"`

	// Store behaviour
	StoreBackend       string        `mapstructure:"store_backend"`
	StoreCallTimeout   time.Duration `mapstructure:"store_call_timeout"`
	StoreMaxAttempts   int           `mapstructure:"store_max_attempts"`
	ThrottleRetryAfter time.Duration `mapstructure:"throttle_retry_after"`
	ScanSegments       int           `mapstructure:"scan_segments"`

	// Versioning
	VersionMaxAttempts int           `mapstructure:"version_max_attempts"`
	VersionRetryDelay  time.Duration `mapstructure:"version_retry_delay"`
	ReconcileLeaseTTL  time.Duration `mapstructure:"reconcile_lease_ttl"`

	// Lambda configuration
	LambdaFunctionName string `mapstructure:"lambda_function_name"`

	// Logging
	LogLevel string `mapstructure:"log_level"`

	// Feature flags
	EnableEvents         bool     `mapstructure:"enable_events"`
	EnableMetrics        bool     `mapstructure:"enable_metrics"`
	EnableTracing        bool     `mapstructure:"enable_tracing"`
	EnableCircuitBreaker bool     `mapstructure:"enable_circuit_breaker"`
	EnableCORS           bool     `mapstructure:"enable_cors"`
	AllowedOrigins       []string `mapstructure:"allowed_origins"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		AWSRegion:          "us-west-2",
		TableName:          "prompts",
		GSI1IndexName:      "GSI1",
		GSI2IndexName:      "GSI2",
		EventBusName:       "promptstore-events",
		StoreBackend:       BackendDynamoDB,
		StoreCallTimeout:   5 * time.Second,
		StoreMaxAttempts:   3,
		ThrottleRetryAfter: time.Second,
		ScanSegments:       4,
		VersionMaxAttempts: 3,
		VersionRetryDelay:  50 * time.Millisecond,
		ReconcileLeaseTTL:  5 * time.Minute,
		LogLevel:           "info",
		EnableMetrics:      true,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	d := DefaultConfig()
	cfg := &Config{
		ServerAddress:    getEnv("SERVER_ADDRESS", d.ServerAddress),
		Environment:      getEnv("ENVIRONMENT", d.Environment),
		AWSRegion:        getEnv("AWS_REGION", d.AWSRegion),
		TableName:        getEnv("TABLE_NAME", d.TableName),
		GSI1IndexName:    getEnv("GSI1_INDEX_NAME", d.GSI1IndexName),
		GSI2IndexName:    getEnv("GSI2_INDEX_NAME", d.GSI2IndexName),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		EventBusName:     getEnv("EVENT_BUS_NAME", d.EventBusName),

		StoreBackend:       getEnv("STORE_BACKEND", d.StoreBackend),
		StoreCallTimeout:   getEnvDuration("STORE_CALL_TIMEOUT", d.StoreCallTimeout),
		StoreMaxAttempts:   getEnvInt("STORE_MAX_ATTEMPTS", d.StoreMaxAttempts),
		ThrottleRetryAfter: getEnvDuration("THROTTLE_RETRY_AFTER", d.ThrottleRetryAfter),
		ScanSegments:       getEnvInt("SCAN_SEGMENTS", d.ScanSegments),

		VersionMaxAttempts: getEnvInt("VERSION_MAX_ATTEMPTS", d.VersionMaxAttempts),
		VersionRetryDelay:  getEnvDuration("VERSION_RETRY_DELAY", d.VersionRetryDelay),
		ReconcileLeaseTTL:  getEnvDuration("RECONCILE_LEASE_TTL", d.ReconcileLeaseTTL),

		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		LogLevel:             getEnv("LOG_LEVEL", d.LogLevel),
		EnableEvents:         getEnvBool("ENABLE_EVENTS", d.EnableEvents),
		EnableMetrics:        getEnvBool("ENABLE_METRICS", d.EnableMetrics),
		EnableTracing:        getEnvBool("ENABLE_TRACING", d.EnableTracing),
		EnableCircuitBreaker: getEnvBool("ENABLE_CIRCUIT_BREAKER", d.EnableCircuitBreaker),
		EnableCORS:           getEnvBool("ENABLE_CORS", d.EnableCORS),
		AllowedOrigins:       getEnvList("ALLOWED_ORIGINS", d.AllowedOrigins),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.TableName == "" {
			errs = append(errs, fmt.Errorf("TABLE_NAME is required for the dynamodb backend"))
		}
		if c.AWSRegion == "" {
			errs = append(errs, fmt.Errorf("AWS_REGION is required for the dynamodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendDynamoDB, c.StoreBackend))
	}

	if c.EnableEvents && c.EventBusName == "" {
		errs = append(errs, fmt.Errorf("EVENT_BUS_NAME is required when events are enabled"))
	}
	if c.StoreCallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_CALL_TIMEOUT must be positive"))
	}
	if c.StoreMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("STORE_MAX_ATTEMPTS must be at least 1"))
	}
	if c.VersionMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("VERSION_MAX_ATTEMPTS must be at least 1"))
	}
	if c.VersionRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("VERSION_RETRY_DELAY must not be negative"))
	}
	if c.ScanSegments < 1 {
		errs = append(errs, fmt.Errorf("SCAN_SEGMENTS must be at least 1"))
	}
	if c.ReconcileLeaseTTL <= 0 {
		errs = append(errs, fmt.Errorf("RECONCILE_LEASE_TTL must be positive"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsLambda reports whether the process runs inside AWS Lambda
func (c *Config) IsLambda() bool {
	return c.LambdaFunctionName != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("250ms") or plain milliseconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
