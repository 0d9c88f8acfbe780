package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/retry"
)

// Store backends
const (
	StoreBackendREST     = "rest"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// StoreConfig selects and configures the store backend
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Token    string `mapstructure:"token"` // Bearer token; the API key is sent when empty
	PageSize int    `mapstructure:"page_size"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	WorkerPoolSize int `mapstructure:"pool_size"`
}

// FetchConfig holds the upstream fetch policy
type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	Retries           int           `mapstructure:"retries"` // attempts in total, not extra attempts
	MinDelay          time.Duration `mapstructure:"min_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables the shared token bucket
	UserAgent         string        `mapstructure:"user_agent"`
}

// IndexConfig locates the events index page
type IndexConfig struct {
	URL       string `mapstructure:"url"`
	Threshold int    `mapstructure:"threshold"`
}

// IngestConfig holds the run selection
type IngestConfig struct {
	StartFrom int      `mapstructure:"start_from"`
	MaxEvents int      `mapstructure:"max_events"` // 0 means all
	DryRun    bool     `mapstructure:"dry_run"`
	Events    []string `mapstructure:"events"`
}

// WriterConfig holds the store retry budget of the writer
type WriterConfig struct {
	Retries int `mapstructure:"retries"`
}

// MetricsConfig holds the optional Pushgateway target
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Config holds configuration for ufc-indexer
type Config struct {
	BaseConfig `mapstructure:",squash"`
	Store      StoreConfig    `mapstructure:"store"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Worker     WorkerConfig   `mapstructure:"worker"`
	Fetch      FetchConfig    `mapstructure:"fetch"`
	Index      IndexConfig    `mapstructure:"index"`
	Ingest     IngestConfig   `mapstructure:"ingest"`
	Writer     WriterConfig   `mapstructure:"writer"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
}

// flagKeys maps command-line flag names onto config keys
var flagKeys = map[string]string{
	"debug":      "debug",
	"workers":    "worker.pool_size",
	"start-from": "ingest.start_from",
	"max-events": "ingest.max_events",
	"dry-run":    "ingest.dry_run",
	"event":      "ingest.events",
	"backend":    "store.backend",
}

// Load loads configuration for ufc-indexer. Flags present in flags take precedence
// over environment variables, which take precedence over the config file.
func Load(configFile string, envPath string, flags *pflag.FlagSet) (*Config, error) {
	v := configureViper("ufc-indexer", configFile, envPath)

	// Set defaults
	v.SetDefault("store.backend", StoreBackendREST)
	v.SetDefault("store.page_size", 1000)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "ufc-indexer")
	v.SetDefault("worker.pool_size", domain.DEFAULT_WORKER_POOL_SIZE)
	v.SetDefault("fetch.timeout", domain.DEFAULT_FETCH_TIMEOUT)
	v.SetDefault("fetch.retries", domain.DEFAULT_RETRY_MAX_ATTEMPTS)
	v.SetDefault("fetch.min_delay", domain.DEFAULT_FETCH_MIN_DELAY)
	v.SetDefault("fetch.requests_per_second", 0)
	v.SetDefault("fetch.user_agent", domain.DEFAULT_USER_AGENT)
	v.SetDefault("index.url", domain.DEFAULT_INDEX_URL)
	v.SetDefault("index.threshold", domain.DEFAULT_INDEX_THRESHOLD)
	v.SetDefault("writer.retries", domain.DEFAULT_RETRY_MAX_ATTEMPTS)
	v.SetDefault("metrics.job", "ufc-indexer")

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) || errors.Is(err, os.ErrNotExist) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// bindFlags binds every known flag defined on flags
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks the configuration. Store credentials are not required under dry run.
func (c *Config) Validate() error {
	if c.Worker.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker.pool_size must be positive: %w", domain.ErrConfig)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive: %w", domain.ErrConfig)
	}
	if c.Fetch.Retries <= 0 {
		return fmt.Errorf("fetch.retries must be positive: %w", domain.ErrConfig)
	}
	if c.Writer.Retries <= 0 {
		return fmt.Errorf("writer.retries must be positive: %w", domain.ErrConfig)
	}
	if c.Ingest.StartFrom < 0 || c.Ingest.MaxEvents < 0 {
		return fmt.Errorf("ingest.start_from and ingest.max_events must not be negative: %w", domain.ErrConfig)
	}

	if c.Ingest.DryRun {
		return nil
	}

	switch c.Store.Backend {
	case StoreBackendREST:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required: %w", domain.ErrConfig)
		}
		if c.Store.APIKey == "" {
			return fmt.Errorf("store.api_key is required: %w", domain.ErrConfig)
		}
	case StoreBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required: %w", domain.ErrConfig)
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database.dbname is required: %w", domain.ErrConfig)
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q: %w", c.Store.Backend, domain.ErrConfig)
	}

	return nil
}

// FetchPolicy returns the retry policy of page fetches
func (c *Config) FetchPolicy() retry.Policy {
	return retry.DefaultPolicy().WithAttempts(c.Fetch.Retries)
}

// WriterPolicy returns the retry policy of store calls
func (c *Config) WriterPolicy() retry.Policy {
	return retry.DefaultPolicy().WithAttempts(c.Writer.Retries)
}

// TaskBudget returns the wall-clock budget of one per-event task:
// every fetch attempt and every writer attempt may use a full request timeout
func (c *Config) TaskBudget() time.Duration {
	return c.Fetch.Timeout * time.Duration(c.Fetch.Retries+c.Writer.Retries)
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/ufc-indexer/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("UFC_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Store
		"store.backend",
		"store.url",
		"store.api_key",
		"store.token",
		"store.page_size",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.subject_prefix",
		// Worker
		"worker.pool_size",
		// Fetch
		"fetch.timeout",
		"fetch.retries",
		"fetch.min_delay",
		"fetch.requests_per_second",
		"fetch.user_agent",
		// Index
		"index.url",
		"index.threshold",
		// Ingest
		"ingest.start_from",
		"ingest.max_events",
		"ingest.dry_run",
		"ingest.events",
		// Writer
		"writer.retries",
		// Metrics
		"metrics.pushgateway_url",
		"metrics.job",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
