package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Email    EmailConfig    `mapstructure:"email"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the connection string understood by the postgres driver
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	// first HR account, created at startup when no user holds the email
	BootstrapHREmail    string `mapstructure:"bootstrap_hr_email"`
	BootstrapHRPassword string `mapstructure:"bootstrap_hr_password"`
}

// StorageConfig holds object storage settings for presigned document URLs
type StorageConfig struct {
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"` // optional, for S3-compatible stores
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// EmailConfig holds SMTP and queue settings
type EmailConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	From         string        `mapstructure:"from"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Backoff      time.Duration `mapstructure:"backoff"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	// ClaimLease is how long a job may sit in sending before another poll takes it back
	ClaimLease time.Duration `mapstructure:"claim_lease"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from the yaml file at configPath (if present) and
// the environment. Environment variables win over file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "hrportal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", 24*time.Hour)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.secure_cookies", false)
	v.SetDefault("auth.bootstrap_hr_email", "")
	v.SetDefault("auth.bootstrap_hr_password", "")

	v.SetDefault("storage.bucket", "hrportal-documents")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.presign_expiry", 15*time.Minute)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "no-reply@hrportal.local")
	v.SetDefault("email.max_attempts", 3)
	v.SetDefault("email.backoff", 30*time.Second)
	v.SetDefault("email.poll_interval", 5*time.Second)
	v.SetDefault("email.batch_size", 20)
	v.SetDefault("email.claim_lease", 5*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars keeps the flat variable names used by the deployment .env files
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"server.port":                "PORT",
		"server.mode":                "GIN_MODE",
		"database.host":              "DB_HOST",
		"database.port":              "DB_PORT",
		"database.user":              "DB_USER",
		"database.password":          "DB_PASSWORD",
		"database.name":              "DB_NAME",
		"database.sslmode":           "DB_SSLMODE",
		"auth.jwt_secret":            "JWT_SECRET",
		"auth.bootstrap_hr_email":    "BOOTSTRAP_HR_EMAIL",
		"auth.bootstrap_hr_password": "BOOTSTRAP_HR_PASSWORD",
		"storage.bucket":             "S3_BUCKET",
		"storage.region":             "AWS_REGION",
		"storage.endpoint":           "S3_ENDPOINT",
		"storage.access_key_id":      "AWS_ACCESS_KEY_ID",
		"storage.secret_access_key":  "AWS_SECRET_ACCESS_KEY",
		"email.smtp_host":            "SMTP_HOST",
		"email.smtp_port":            "SMTP_PORT",
		"email.username":             "SMTP_USERNAME",
		"email.password":             "SMTP_PASSWORD",
		"email.from":                 "SMTP_FROM",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.Mode == "release" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in release mode")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth token ttl values must be positive")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Email.MaxAttempts < 1 {
		return fmt.Errorf("email.max_attempts must be at least 1")
	}
	if c.Email.Enabled && c.Email.SMTPHost == "" {
		return fmt.Errorf("email.smtp_host is required when email is enabled")
	}
	return nil
}

// JWTSecret returns the signing key, falling back to a development key outside release mode
func (c *Config) JWTSecret() []byte {
	if c.Auth.JWTSecret == "" {
		return []byte("default_super_secret_key")
	}
	return []byte(c.Auth.JWTSecret)
}
