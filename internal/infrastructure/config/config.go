package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Log        LogConfig
	Prestashop PrestashopConfig
	Odoo       OdooConfig
	Output     OutputConfig
	S3         S3Config
	HTTP       HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds warehouse database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// PrestashopConfig holds source system client settings. UseMock switches to
// the offline fixture client, which needs no credentials.
type PrestashopConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	UseMock bool
}

// OdooConfig holds CRM target settings. UseFake switches to the in-memory
// client for offline development.
type OdooConfig struct {
	URL      string
	DB       string
	Login    string
	Password string
	Timeout  time.Duration
	UseFake  bool
}

// OutputConfig holds the file sink settings
type OutputConfig struct {
	Dir            string
	PartitionFacts bool
}

// S3Config holds optional object-store publishing settings. Publishing is
// disabled unless a bucket is configured.
type S3Config struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// HTTPConfig holds HTTP server configuration for the serving API
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PHC_ prefix (e.g., PHC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PHC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Prestashop: PrestashopConfig{
			BaseURL: v.GetString("prestashop.base_url"),
			APIKey:  v.GetString("prestashop.api_key"),
			Timeout: v.GetDuration("prestashop.timeout"),
			UseMock: v.GetBool("prestashop.use_mock"),
		},
		Odoo: OdooConfig{
			URL:      v.GetString("odoo.url"),
			DB:       v.GetString("odoo.db"),
			Login:    v.GetString("odoo.login"),
			Password: v.GetString("odoo.password"),
			Timeout:  v.GetDuration("odoo.timeout"),
			UseFake:  v.GetBool("odoo.use_fake"),
		},
		Output: OutputConfig{
			Dir:            v.GetString("output.dir"),
			PartitionFacts: v.GetBool("output.partition_facts"),
		},
		S3: S3Config{
			Enabled:         v.GetBool("s3.enabled"),
			Endpoint:        v.GetString("s3.endpoint"),
			Region:          v.GetString("s3.region"),
			Bucket:          v.GetString("s3.bucket"),
			Prefix:          v.GetString("s3.prefix"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			UsePathStyle:    v.GetBool("s3.use_path_style"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "analytics-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "phc_analytics"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Prestashop.Timeout == 0 {
		cfg.Prestashop.Timeout = 30 * time.Second
	}
	// Without credentials the offline clients are the only thing that can
	// work, so they become the default.
	if cfg.Prestashop.BaseURL == "" && cfg.Prestashop.APIKey == "" {
		cfg.Prestashop.UseMock = true
	}
	if cfg.Odoo.DB == "" && cfg.Odoo.Login == "" {
		cfg.Odoo.UseFake = true
	}
	if cfg.Odoo.URL == "" {
		cfg.Odoo.URL = "http://localhost:8069"
	}
	if cfg.Odoo.Timeout == 0 {
		cfg.Odoo.Timeout = 20 * time.Second
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "data/output"
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "eu-west-1"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if !c.Prestashop.UseMock {
		if c.Prestashop.BaseURL == "" {
			return fmt.Errorf("prestashop.base_url is required when prestashop.use_mock is false")
		}
		if !strings.HasPrefix(c.Prestashop.BaseURL, "http://") && !strings.HasPrefix(c.Prestashop.BaseURL, "https://") {
			return fmt.Errorf("prestashop.base_url must start with http:// or https://")
		}
		if c.Prestashop.APIKey == "" {
			return fmt.Errorf("prestashop.api_key is required when prestashop.use_mock is false")
		}
	}

	if !c.Odoo.UseFake {
		if !strings.HasPrefix(c.Odoo.URL, "http://") && !strings.HasPrefix(c.Odoo.URL, "https://") {
			return fmt.Errorf("odoo.url must start with http:// or https://")
		}
		if c.Odoo.DB == "" {
			return fmt.Errorf("odoo.db is required when odoo.use_fake is false")
		}
		if c.Odoo.Login == "" {
			return fmt.Errorf("odoo.login is required when odoo.use_fake is false")
		}
		if c.Odoo.Password == "" {
			return fmt.Errorf("odoo.password is required when odoo.use_fake is false")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when s3.enabled is true")
		}
		if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
			return fmt.Errorf("s3 credentials are required when s3.enabled is true")
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Prestashop.UseMock {
			return fmt.Errorf("prestashop.use_mock must be false in production")
		}
		if c.Odoo.UseFake {
			return fmt.Errorf("odoo.use_fake must be false in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
