package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

// environment lists every variable WithEnv reads.
type environment struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" env-default:"25"`

	StorageURL         string `env:"STORAGE_URL"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`
	S3BucketName       string `env:"S3_BUCKET_NAME"`

	OddpubHostAPI   string        `env:"ODDPUB_HOST_API"`
	OddpubPath      string        `env:"ODDPUB_PATH" env-default:"/oddpub"`
	OddpubRateLimit float64       `env:"ODDPUB_RATE_LIMIT" env-default:"2"`
	OddpubTimeout   time.Duration `env:"ODDPUB_TIMEOUT" env-default:"5m"`

	Hostname    string `env:"HOSTNAME"`
	Username    string `env:"USERNAME"`
	ValidatePDF bool   `env:"VALIDATE_PDF" env-default:"true"`

	InboxDir      string `env:"INBOX_DIR"`
	InboxSchedule string `env:"INBOX_SCHEDULE" env-default:"@every 15m"`

	APIKeySHA256 string `env:"API_KEY_SHA256"`
}

// WithEnv applies environment variables.
//
//	DATABASE_URL - "postgres://..." / "postgresql://...", or "memory"
//	STORAGE_URL  - one of:
//	               "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true"
//	               "file:///path/to/data"
//	               "memory://"
//	S3_BUCKET_NAME overrides the bucket in an s3 STORAGE_URL, and selects s3
//	when STORAGE_URL is unset.
//
// Unset DATABASE_URL and STORAGE_URL leave the current values alone, so
// Validate rejects them unless an option chose a backend.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env environment
		if err := cleanenv.ReadEnv(&env); err != nil {
			return &paperledger.ConfigurationError{Field: "environment", Err: err}
		}

		c.Port = env.Port
		c.Environment = env.Environment
		c.DBSchema = env.DBSchema
		c.DBMaxConns = env.DBMaxConns
		c.OddpubHostAPI = env.OddpubHostAPI
		c.OddpubPath = env.OddpubPath
		c.OddpubRateLimit = env.OddpubRateLimit
		c.OddpubTimeout = env.OddpubTimeout
		c.Hostname = env.Hostname
		c.Username = env.Username
		c.ValidatePDF = env.ValidatePDF
		c.InboxDir = env.InboxDir
		c.InboxSchedule = env.InboxSchedule
		c.APIKeySHA256 = env.APIKeySHA256

		if err := applyDatabaseURL(c, env.DatabaseURL); err != nil {
			return err
		}

		storageURL := env.StorageURL
		if storageURL == "" && env.S3BucketName != "" {
			storageURL = "s3://" + env.S3BucketName
		}
		if storageURL == "" {
			return nil
		}

		storage, err := parseStorageURL(storageURL)
		if err != nil {
			return err
		}
		if storage.Type == "s3" {
			if env.S3BucketName != "" {
				storage.Bucket = env.S3BucketName
			}
			if env.AWSRegion != "" && storage.Region == "" {
				storage.Region = env.AWSRegion
			}
			storage.AccessKeyID = env.AWSAccessKeyID
			storage.SecretAccessKey = env.AWSSecretAccessKey
			if storage.Bucket == "" {
				return paperledger.NewConfigurationError("STORAGE_URL", "S3 bucket name cannot be empty")
			}
		}
		c.Storage = storage
		return nil
	}
}

func applyDatabaseURL(c *ServerConfig, dbURL string) error {
	switch {
	case dbURL == "":
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return paperledger.NewConfigurationError("DATABASE_URL",
			"unsupported format (use 'memory' or 'postgres://...')")
	}
	return nil
}

func parseStorageURL(raw string) (StorageConfig, error) {
	switch {
	case raw == "memory" || raw == "memory://":
		return StorageConfig{Type: "memory"}, nil

	case strings.HasPrefix(raw, "file://"):
		path := strings.TrimPrefix(raw, "file://")
		if path == "" {
			return StorageConfig{}, paperledger.NewConfigurationError("STORAGE_URL", "filesystem path cannot be empty")
		}
		return StorageConfig{Type: "fs", BaseDir: path}, nil

	case strings.HasPrefix(raw, "s3://"):
		u, err := url.Parse(raw)
		if err != nil {
			return StorageConfig{}, &paperledger.ConfigurationError{Field: "STORAGE_URL", Err: err}
		}
		q := u.Query()
		sc := StorageConfig{
			Type:     "s3",
			Bucket:   u.Host,
			Region:   q.Get("region"),
			Endpoint: q.Get("endpoint"),
		}
		if sc.UsePathStyle, err = parseBoolParam(q, "path_style"); err != nil {
			return StorageConfig{}, err
		}
		if sc.CreateBucket, err = parseBoolParam(q, "create_bucket"); err != nil {
			return StorageConfig{}, err
		}
		return sc, nil
	}

	return StorageConfig{}, paperledger.NewConfigurationError("STORAGE_URL",
		fmt.Sprintf("unsupported format %q (use 'memory://', 'file://...', or 's3://...')", raw))
}

func parseBoolParam(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &paperledger.ConfigurationError{Field: "STORAGE_URL", Err: fmt.Errorf("invalid boolean for %s: %w", key, err)}
	}
	return b, nil
}
