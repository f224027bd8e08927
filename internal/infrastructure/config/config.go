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
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Reconcile  ReconcileConfig
	Market     MarketConfig
	Batch      BatchConfig
	Storage    StorageConfig
	Extraction ExtractionConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Path            string // sqlite file path, ":memory:" for an in-process store
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
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings for the write endpoints
type JWTConfig struct {
	Enabled               bool
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	RateLimitEnabled bool
	RateLimit        int // requests per window per client
	RateLimitWindow  time.Duration
}

// ReconcileConfig holds the tunables of the reconciliation core
type ReconcileConfig struct {
	SimilarityStrategy  string  // levenshtein, exact
	SimilarityThreshold float64 // dissimilarity points on a 0-100 scale
	IDTag               string  // prefix of minted entity ids
	ConfidenceThreshold float64 // extraction confidence below this counts as an error
	DocumentReward      int
	ScopeToEntity       bool // allocate only against the receipt's own entity
	InflationMultiplier float64
	PricePenalty        int
}

// MarketConfig holds the inflation lookup settings
type MarketConfig struct {
	Endpoint     string
	APIKey       string
	APIHost      string
	Country      string
	// RatePath is the JSONPath of the rate inside the response body
	RatePath     string
	Timeout      time.Duration
	Fallback     float64
	CacheTTL     time.Duration
	CacheEnabled bool
}

// BatchConfig holds batch ingestion settings
type BatchConfig struct {
	Source     string // local, s3, none
	InboxDir   string
	ArchiveDir string
	FailedDir  string
	RunOnStart bool
	LockTTL    time.Duration
	LockKey    string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ExtractionConfig holds document extraction settings
type ExtractionConfig struct {
	Enabled bool
	APIKey  string
	Model   string
	Timeout time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MERIT_ prefix (e.g., MERIT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	// Enable environment variable override
	v.SetEnvPrefix("MERIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose default is true must be distinguishable from unset
	v.SetDefault("reconcile.scope_to_entity", true)
	v.SetDefault("market.cache_enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
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
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Enabled:               v.GetBool("jwt.enabled"),
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimit:        v.GetInt("http.rate_limit"),
			RateLimitWindow:  v.GetDuration("http.rate_limit_window"),
		},
		Reconcile: ReconcileConfig{
			SimilarityStrategy:  v.GetString("reconcile.similarity_strategy"),
			SimilarityThreshold: v.GetFloat64("reconcile.similarity_threshold"),
			IDTag:               v.GetString("reconcile.id_tag"),
			ConfidenceThreshold: v.GetFloat64("reconcile.confidence_threshold"),
			DocumentReward:      v.GetInt("reconcile.document_reward"),
			ScopeToEntity:       v.GetBool("reconcile.scope_to_entity"),
			InflationMultiplier: v.GetFloat64("reconcile.inflation_multiplier"),
			PricePenalty:        v.GetInt("reconcile.price_penalty"),
		},
		Market: MarketConfig{
			Endpoint:     v.GetString("market.endpoint"),
			APIKey:       v.GetString("market.api_key"),
			APIHost:      v.GetString("market.api_host"),
			Country:      v.GetString("market.country"),
			RatePath:     v.GetString("market.rate_path"),
			Timeout:      v.GetDuration("market.timeout"),
			Fallback:     v.GetFloat64("market.fallback"),
			CacheTTL:     v.GetDuration("market.cache_ttl"),
			CacheEnabled: v.GetBool("market.cache_enabled"),
		},
		Batch: BatchConfig{
			Source:     v.GetString("batch.source"),
			InboxDir:   v.GetString("batch.inbox_dir"),
			ArchiveDir: v.GetString("batch.archive_dir"),
			FailedDir:  v.GetString("batch.failed_dir"),
			RunOnStart: v.GetBool("batch.run_on_start"),
			LockTTL:    v.GetDuration("batch.lock_ttl"),
			LockKey:    v.GetString("batch.lock_key"),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
		},
		Extraction: ExtractionConfig{
			Enabled: v.GetBool("extraction.enabled"),
			APIKey:  v.GetString("extraction.api_key"),
			Model:   v.GetString("extraction.model"),
			Timeout: v.GetDuration("extraction.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "merit-ledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "merit_ledger.db"
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
		cfg.Database.DBName = "merit_ledger"
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
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "merit-ledger"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 5 * time.Minute // batch runs answer synchronously
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimit == 0 {
		cfg.HTTP.RateLimit = 120
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Reconcile.SimilarityStrategy == "" {
		cfg.Reconcile.SimilarityStrategy = "levenshtein"
	}
	if cfg.Reconcile.SimilarityThreshold == 0 {
		cfg.Reconcile.SimilarityThreshold = 15
	}
	if cfg.Reconcile.IDTag == "" {
		cfg.Reconcile.IDTag = "ENT"
	}
	if cfg.Reconcile.ConfidenceThreshold == 0 {
		cfg.Reconcile.ConfidenceThreshold = 90
	}
	if cfg.Reconcile.DocumentReward == 0 {
		cfg.Reconcile.DocumentReward = 1
	}
	if cfg.Reconcile.InflationMultiplier == 0 {
		cfg.Reconcile.InflationMultiplier = 2
	}
	if cfg.Reconcile.PricePenalty == 0 {
		cfg.Reconcile.PricePenalty = -5
	}
	if cfg.Market.Timeout == 0 {
		cfg.Market.Timeout = 5 * time.Second
	}
	if cfg.Market.Fallback == 0 {
		cfg.Market.Fallback = 4.0
	}
	if cfg.Market.CacheTTL == 0 {
		cfg.Market.CacheTTL = 6 * time.Hour
	}
	if cfg.Market.Country == "" {
		cfg.Market.Country = "united states"
	}
	if cfg.Market.RatePath == "" {
		cfg.Market.RatePath = "$.rate"
	}
	if cfg.Batch.Source == "" {
		cfg.Batch.Source = "local"
	}
	if cfg.Batch.InboxDir == "" {
		cfg.Batch.InboxDir = "inbox"
	}
	if cfg.Batch.ArchiveDir == "" {
		cfg.Batch.ArchiveDir = "archive"
	}
	if cfg.Batch.FailedDir == "" {
		cfg.Batch.FailedDir = "failed"
	}
	if cfg.Batch.LockTTL == 0 {
		cfg.Batch.LockTTL = 10 * time.Minute
	}
	if cfg.Batch.LockKey == "" {
		cfg.Batch.LockKey = "merit:batch:lock"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Extraction.Model == "" {
		cfg.Extraction.Model = "gemini-2.0-flash"
	}
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 60 * time.Second
	}

	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "merit-ledger"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	// Validate connection pool settings
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

	if c.Reconcile.SimilarityThreshold < 0 || c.Reconcile.SimilarityThreshold > 100 {
		return fmt.Errorf("reconcile.similarity_threshold must be between 0 and 100, got %g", c.Reconcile.SimilarityThreshold)
	}
	if c.Reconcile.InflationMultiplier <= 0 {
		return fmt.Errorf("reconcile.inflation_multiplier must be positive")
	}
	if c.Reconcile.PricePenalty > 0 {
		return fmt.Errorf("reconcile.price_penalty cannot be positive")
	}

	switch c.Batch.Source {
	case "local", "none":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when batch.source is s3")
		}
	default:
		return fmt.Errorf("batch.source must be local, s3 or none, got %q", c.Batch.Source)
	}

	if c.Extraction.Enabled && c.Extraction.APIKey == "" {
		return fmt.Errorf("extraction.api_key is required when extraction is enabled")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Enabled && len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.JWT.Enabled && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required when jwt is enabled")
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
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
