// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agora/internal/featureflags"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret string `mapstructure:"JWT_SECRET" yaml:"-"`
	Port      string `mapstructure:"PORT" yaml:"port"`
	Env       string `mapstructure:"APP_ENV" yaml:"env"`

	// Main store: users, profiles, posts, comments, edges.
	DBDriver   string `mapstructure:"DB_DRIVER" yaml:"db_driver"`
	DBHost     string `mapstructure:"DB_HOST" yaml:"db_host"`
	DBPort     string `mapstructure:"DB_PORT" yaml:"db_port"`
	DBUser     string `mapstructure:"DB_USER" yaml:"db_user"`
	DBPassword string `mapstructure:"DB_PASSWORD" yaml:"-"`
	DBName     string `mapstructure:"DB_NAME" yaml:"db_name"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE" yaml:"db_sslmode"`
	DBPath     string `mapstructure:"DB_PATH" yaml:"db_path"`

	// Auth store: credential hashes only.
	AuthDBDriver   string `mapstructure:"AUTH_DB_DRIVER" yaml:"auth_db_driver"`
	AuthDBHost     string `mapstructure:"AUTH_DB_HOST" yaml:"auth_db_host"`
	AuthDBPort     string `mapstructure:"AUTH_DB_PORT" yaml:"auth_db_port"`
	AuthDBUser     string `mapstructure:"AUTH_DB_USER" yaml:"auth_db_user"`
	AuthDBPassword string `mapstructure:"AUTH_DB_PASSWORD" yaml:"-"`
	AuthDBName     string `mapstructure:"AUTH_DB_NAME" yaml:"auth_db_name"`
	AuthDBSSLMode  string `mapstructure:"AUTH_DB_SSLMODE" yaml:"auth_db_sslmode"`
	AuthDBPath     string `mapstructure:"AUTH_DB_PATH" yaml:"auth_db_path"`

	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS" yaml:"db_max_open_conns"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS" yaml:"db_max_idle_conns"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES" yaml:"db_conn_max_lifetime_minutes"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE" yaml:"db_schema_mode"`
	// Allow GORM AutoMigrate in prod-like environments. Off unless explicitly set.
	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE" yaml:"db_automigrate_allow_destructive"`

	RedisURL       string `mapstructure:"REDIS_URL" yaml:"redis_url"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS" yaml:"feature_flags"`

	AuditSink    string `mapstructure:"AUDIT_SINK" yaml:"audit_sink"`
	AuditLogPath string `mapstructure:"AUDIT_LOG_PATH" yaml:"audit_log_path"`
	AuditStream  string `mapstructure:"AUDIT_STREAM" yaml:"audit_stream"`

	BcryptCost         int `mapstructure:"BCRYPT_COST" yaml:"bcrypt_cost"`
	OrphanGraceMinutes int `mapstructure:"ORPHAN_GRACE_MINUTES" yaml:"orphan_grace_minutes"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED" yaml:"tracing_enabled"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER" yaml:"tracing_exporter"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT" yaml:"otlp_endpoint"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO" yaml:"tracing_sampler_ratio"`
}

// StoreConfig describes how to reach one logical store.
type StoreConfig struct {
	Name     string
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MainStore returns the connection settings of the main store.
func (c *Config) MainStore() StoreConfig {
	return c.storeConfig("main", c.DBDriver, c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBPath)
}

// AuthStore returns the connection settings of the auth store.
func (c *Config) AuthStore() StoreConfig {
	return c.storeConfig("auth", c.AuthDBDriver, c.AuthDBHost, c.AuthDBPort, c.AuthDBUser, c.AuthDBPassword, c.AuthDBName, c.AuthDBSSLMode, c.AuthDBPath)
}

func (c *Config) storeConfig(name, driver, host, port, user, password, dbName, sslMode, path string) StoreConfig {
	return StoreConfig{
		Name:            name,
		Driver:          strings.ToLower(strings.TrimSpace(driver)),
		Host:            host,
		Port:            port,
		User:            user,
		Password:        password,
		DBName:          dbName,
		SSLMode:         sslMode,
		Path:            path,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(c.DBConnMaxLifetimeMinutes) * time.Minute,
	}
}

// OrphanGrace is how old a credential-less user must be before it is
// treated as an orphan rather than an in-flight registration.
func (c *Config) OrphanGrace() time.Duration {
	return time.Duration(c.OrphanGraceMinutes) * time.Minute
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	// We intentionally ignore this error as the config file may not exist yet
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Set default values for development
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "agora_main")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "data/main.db")

	viper.SetDefault("AUTH_DB_DRIVER", "postgres")
	viper.SetDefault("AUTH_DB_HOST", "localhost")
	viper.SetDefault("AUTH_DB_PORT", "5433")
	viper.SetDefault("AUTH_DB_USER", "user")
	viper.SetDefault("AUTH_DB_PASSWORD", "password")
	viper.SetDefault("AUTH_DB_NAME", "agora_auth")
	viper.SetDefault("AUTH_DB_SSLMODE", "disable")
	viper.SetDefault("AUTH_DB_PATH", "data/auth.db")

	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")

	viper.SetDefault("AUDIT_SINK", "file")
	viper.SetDefault("AUDIT_LOG_PATH", "admin_actions.log")
	viper.SetDefault("AUDIT_STREAM", "audit:admin")

	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("ORPHAN_GRACE_MINUTES", 15)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.AuthDBSSLMode = strings.ToLower(strings.TrimSpace(c.AuthDBSSLMode))
	c.AuditSink = strings.ToLower(strings.TrimSpace(c.AuditSink))
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	for _, sc := range []StoreConfig{c.MainStore(), c.AuthStore()} {
		switch sc.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("unsupported %s store driver %q", sc.Name, sc.Driver)
		}
	}
	switch c.AuditSink {
	case "log", "file", "redis":
	default:
		return fmt.Errorf("unsupported AUDIT_SINK %q", c.AuditSink)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if _, err := featureflags.Parse(c.FeatureFlags); err != nil {
		return fmt.Errorf("invalid FEATURE_FLAGS: %w", err)
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.AuthDBPassword == "password" || c.AuthDBPassword == "" {
			return errors.New("a strong AUTH_DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" || c.AuthDBSSLMode == "disable" || c.AuthDBSSLMode == "" {
			return errors.New("DB_SSLMODE and AUTH_DB_SSLMODE must enable SSL in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		// Development/Test warnings
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
