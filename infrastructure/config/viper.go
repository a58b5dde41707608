package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the variables read by the CLI loader
const EnvPrefix = "PROMPTSTORE"

// LoadWithViper layers defaults, an optional YAML file, PROMPTSTORE_* variables
// and explicitly set flags, in increasing precedence. Flag names use dashes
// ("table-name") for the underscore keys of Config.
func LoadWithViper(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("promptstore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.promptstore")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		keys := v.AllKeys()
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if slices.Contains(keys, key) {
				bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server_address", d.ServerAddress)
	v.SetDefault("environment", d.Environment)
	v.SetDefault("aws_region", d.AWSRegion)
	v.SetDefault("table_name", d.TableName)
	v.SetDefault("gsi1_index_name", d.GSI1IndexName)
	v.SetDefault("gsi2_index_name", d.GSI2IndexName)
	v.SetDefault("dynamodb_endpoint", d.DynamoDBEndpoint)
	v.SetDefault("event_bus_name", d.EventBusName)
	v.SetDefault("store_backend", d.StoreBackend)
	v.SetDefault("store_call_timeout", d.StoreCallTimeout)
	v.SetDefault("store_max_attempts", d.StoreMaxAttempts)
	v.SetDefault("throttle_retry_after", d.ThrottleRetryAfter)
	v.SetDefault("scan_segments", d.ScanSegments)
	v.SetDefault("version_max_attempts", d.VersionMaxAttempts)
	v.SetDefault("version_retry_delay", d.VersionRetryDelay)
	v.SetDefault("reconcile_lease_ttl", d.ReconcileLeaseTTL)
	v.SetDefault("lambda_function_name", d.LambdaFunctionName)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("enable_events", d.EnableEvents)
	v.SetDefault("enable_metrics", d.EnableMetrics)
	v.SetDefault("enable_tracing", d.EnableTracing)
	v.SetDefault("enable_circuit_breaker", d.EnableCircuitBreaker)
	v.SetDefault("enable_cors", d.EnableCORS)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
}
