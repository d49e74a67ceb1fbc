package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/analyzer"
	"github.com/tendant/paper-ledger/pkg/paperledger/schedule"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults. WithEnv resets every setting it covers, so place it
// before options that should win over the environment.
//
// There is no default database or blob store; both must be chosen, and the
// memory backends only when asked for by name.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "8080",
		Environment:     "development",
		DBMaxConns:      25,
		KeyPrefix:       paperledger.DefaultKeyPrefix,
		OddpubPath:      analyzer.DefaultPath,
		OddpubRateLimit: 2,
		OddpubTimeout:   5 * time.Minute,
		ValidatePDF:     true,
		InboxSchedule:   schedule.DefaultSchedule,
	}
}

// ServerConfig represents configuration for the CLI and the HTTP server
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema for search_path (optional)
	DBMaxConns   int

	// Storage configuration
	Storage   StorageConfig
	KeyPrefix string

	// Analyzer
	OddpubHostAPI   string
	OddpubPath      string // route the analyzer serves, /oddpub or /analyze
	OddpubRateLimit float64
	OddpubTimeout   time.Duration

	// Provenance run context; empty values are detected at runtime
	Hostname string
	Username string

	ValidatePDF bool

	// Scheduled ingestion, disabled when InboxDir is empty
	InboxDir      string
	InboxSchedule string

	// SHA-256 of the API key accepted by the HTTP server; empty disables auth
	APIKeySHA256 string
}

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Type string // "memory", "fs", "s3"

	// fs
	BaseDir string

	// s3
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	CreateBucket    bool
}

// Validate validates the configuration. Every failure is a *paperledger.ConfigurationError.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return paperledger.NewConfigurationError("PORT", "port is required")
	}

	switch c.DatabaseType {
	case "":
		return paperledger.NewConfigurationError("DATABASE_URL",
			"database is required (a postgres URL, or 'memory' for a store discarded on exit)")
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return paperledger.NewConfigurationError("DATABASE_URL", "database url is required when using postgres")
		}
	default:
		return paperledger.NewConfigurationError("DATABASE_URL", "database type must be 'memory' or 'postgres'")
	}
	if c.DBMaxConns < 0 {
		return paperledger.NewConfigurationError("DB_MAX_CONNS", "must not be negative")
	}

	switch c.Storage.Type {
	case "":
		return paperledger.NewConfigurationError("STORAGE_URL",
			"blob storage is required (s3://bucket, file:///dir, or memory:// for a store discarded on exit)")
	case "memory":
	case "fs":
		if c.Storage.BaseDir == "" {
			return paperledger.NewConfigurationError("STORAGE_URL", "filesystem path cannot be empty")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return paperledger.NewConfigurationError("STORAGE_URL", "S3 bucket name cannot be empty")
		}
	default:
		return paperledger.NewConfigurationError("STORAGE_URL", fmt.Sprintf("unsupported storage type %q", c.Storage.Type))
	}

	if c.OddpubHostAPI != "" {
		u, err := url.Parse(c.OddpubHostAPI)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return paperledger.NewConfigurationError("ODDPUB_HOST_API", "must be an absolute http(s) URL")
		}
	}
	if u, err := url.Parse(c.OddpubPath); err != nil || u.Scheme != "" || u.Host != "" {
		return paperledger.NewConfigurationError("ODDPUB_PATH", "must be a route such as /oddpub or /analyze")
	}
	if c.OddpubRateLimit < 0 {
		return paperledger.NewConfigurationError("ODDPUB_RATE_LIMIT", "must not be negative")
	}

	if c.InboxDir != "" {
		if _, err := cron.ParseStandard(c.InboxSchedule); err != nil {
			return &paperledger.ConfigurationError{Field: "INBOX_SCHEDULE", Err: err}
		}
	}

	return nil
}

// RunContext returns the configured host and operator, detecting what is unset.
func (c *ServerConfig) RunContext() paperledger.RunContext {
	rc := paperledger.DetectRunContext()
	if c.Hostname != "" {
		rc.Hostname = c.Hostname
	}
	if c.Username != "" {
		rc.Username = c.Username
	}
	return rc
}

// MigrationURL returns DatabaseURL with search_path set to DBSchema so
// migrations create their tables in the configured schema.
func (c *ServerConfig) MigrationURL() (string, error) {
	if c.DatabaseType != "postgres" {
		return "", errors.New("migrations require a postgres database")
	}
	if c.DBSchema == "" {
		return c.DatabaseURL, nil
	}

	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "", &paperledger.ConfigurationError{Field: "DATABASE_URL", Err: err}
	}
	q := u.Query()
	q.Set("search_path", c.DBSchema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
