package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var configFile string

// Config holds all application configuration
type Config struct {
	Environment    string `mapstructure:"environment"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Server         ServerConfig
	Logging        LoggingConfig
	Mongo          MongoConfig
	Redis          RedisConfig
	Azure          AzureConfig
	Tracing        TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address         string        `mapstructure:"server.address"`
	Mode            string        `mapstructure:"server.mode"`
	ReadTimeout     time.Duration `mapstructure:"server.read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"server.write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"server.shutdown_timeout"`
	CorsOrigins     []string      `mapstructure:"server.cors_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"logging.level"`
	Format string `mapstructure:"logging.format"`
}

// MongoConfig holds the document store connection parameters. They are read
// once at startup and never change for the life of the process.
type MongoConfig struct {
	URI                    string        `mapstructure:"mongodb.uri"`
	Database               string        `mapstructure:"mongodb.database"`
	Collection             string        `mapstructure:"mongodb.collection"`
	AppName                string        `mapstructure:"mongodb.app_name"`
	TLS                    bool          `mapstructure:"mongodb.tls"`
	ServerSelectionTimeout time.Duration `mapstructure:"mongodb.server_selection_timeout"`
	ConnectTimeout         time.Duration `mapstructure:"mongodb.connect_timeout"`
	SocketTimeout          time.Duration `mapstructure:"mongodb.socket_timeout"`
	MaxPoolSize            uint64        `mapstructure:"mongodb.max_pool_size"`
	HealthCheckInterval    time.Duration `mapstructure:"mongodb.health_check_interval"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string        `mapstructure:"redis.host"`
	Port     int           `mapstructure:"redis.port"`
	Password string        `mapstructure:"redis.password"`
	DB       int           `mapstructure:"redis.db"`
	Enabled  bool          `mapstructure:"redis.enabled"`
	TTL      time.Duration `mapstructure:"redis.ttl"`
}

// AzureConfig holds Azure Service Bus configuration
type AzureConfig struct {
	QueueConnStr  string `mapstructure:"azure.queue_conn_str"`
	QueueName     string `mapstructure:"azure.queue_name"`
	MaxMessages   int    `mapstructure:"azure.max_messages"`
	MaxDeliveries uint32 `mapstructure:"azure.max_deliveries"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	LicenseKey     string `mapstructure:"tracing.license_key"`
	AppName        string `mapstructure:"tracing.app_name"`
	LogEnabled     bool   `mapstructure:"tracing.log_enabled"`
	DistribTracing bool   `mapstructure:"tracing.distributed_tracing_enabled"`
}

// IsProduction reports whether the service runs with production settings.
// Diagnostic error detail is only logged outside production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// SetConfigFile overrides the config file lookup with an explicit path
func SetConfigFile(file string) {
	configFile = file
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Setup configuration paths
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(path)
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Try to read the YAML config first
	if err := v.ReadInConfig(); err != nil {
		// If YAML not found, try ENV file
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configFile == "" {
			v.SetConfigName("app")
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				// Continue even if no config file is found - we'll use ENV vars and defaults
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return Config{}, fmt.Errorf("error reading config file: %w", err)
				}
			}
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Enable environment variables to override config
	v.SetEnvPrefix("EVENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The connection string is conventionally provided as MONGODB_URI
	if err := v.BindEnv("mongodb.uri", "EVENTS_MONGODB_URI", "MONGODB_URI"); err != nil {
		return Config{}, fmt.Errorf("unable to bind MONGODB_URI: %w", err)
	}
	if err := v.BindEnv("environment", "EVENTS_ENVIRONMENT", "APP_ENV"); err != nil {
		return Config{}, fmt.Errorf("unable to bind environment: %w", err)
	}

	config := Config{
		Environment:    v.GetString("environment"),
		MetricsEnabled: v.GetBool("metrics_enabled"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			Mode:            v.GetString("server.mode"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CorsOrigins:     v.GetStringSlice("server.cors_origins"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Mongo: MongoConfig{
			URI:                    strings.TrimSpace(v.GetString("mongodb.uri")),
			Database:               v.GetString("mongodb.database"),
			Collection:             v.GetString("mongodb.collection"),
			AppName:                v.GetString("mongodb.app_name"),
			TLS:                    v.GetBool("mongodb.tls"),
			ServerSelectionTimeout: v.GetDuration("mongodb.server_selection_timeout"),
			ConnectTimeout:         v.GetDuration("mongodb.connect_timeout"),
			SocketTimeout:          v.GetDuration("mongodb.socket_timeout"),
			MaxPoolSize:            v.GetUint64("mongodb.max_pool_size"),
			HealthCheckInterval:    v.GetDuration("mongodb.health_check_interval"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Enabled:  v.GetBool("redis.enabled"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Azure: AzureConfig{
			QueueConnStr:  v.GetString("azure.queue_conn_str"),
			QueueName:     v.GetString("azure.queue_name"),
			MaxMessages:   v.GetInt("azure.max_messages"),
			MaxDeliveries: v.GetUint32("azure.max_deliveries"),
		},
		Tracing: TracingConfig{
			LicenseKey:     v.GetString("tracing.license_key"),
			AppName:        v.GetString("tracing.app_name"),
			LogEnabled:     v.GetBool("tracing.log_enabled"),
			DistribTracing: v.GetBool("tracing.distributed_tracing_enabled"),
		},
	}

	return config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("environment", "development")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})

	// Document store settings (no default URI)
	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "events")
	v.SetDefault("mongodb.collection", "events")
	v.SetDefault("mongodb.app_name", "events-service")
	v.SetDefault("mongodb.tls", true)
	v.SetDefault("mongodb.server_selection_timeout", "5s")
	v.SetDefault("mongodb.connect_timeout", "10s")
	v.SetDefault("mongodb.socket_timeout", "45s")
	v.SetDefault("mongodb.max_pool_size", 10)
	v.SetDefault("mongodb.health_check_interval", "1m")

	// Redis settings
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.ttl", "5m")

	// Azure settings
	v.SetDefault("azure.queue_name", "event-submissions")
	v.SetDefault("azure.max_messages", 10)
	v.SetDefault("azure.max_deliveries", 5)

	// Tracing settings
	v.SetDefault("tracing.app_name", "Events Service")
	v.SetDefault("tracing.log_enabled", false)
	v.SetDefault("tracing.distributed_tracing_enabled", true)

	// Logging settings
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
