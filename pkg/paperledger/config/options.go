package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithStorageURL selects the blob store from a memory://, file:// or s3:// URL.
func WithStorageURL(raw string) Option {
	return func(c *ServerConfig) error {
		sc, err := parseStorageURL(raw)
		if err != nil {
			return err
		}
		c.Storage = sc
		return nil
	}
}

// WithMemoryStorage keeps blobs in process memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageConfig{Type: "memory"}
		return nil
	}
}

// WithFilesystemStorage stores blobs under baseDir
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageConfig{Type: "fs", BaseDir: baseDir}
		return nil
	}
}

// WithS3Storage stores blobs in an S3 bucket
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		c.Storage = StorageConfig{Type: "s3", Bucket: bucket, Region: region}
		return nil
	}
}

// WithS3Endpoint points the S3 backend at a compatible service such as MinIO
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" {
			return fmt.Errorf("S3 endpoint requires s3 storage, got: %s", c.Storage.Type)
		}
		c.Storage.Endpoint = endpoint
		c.Storage.UsePathStyle = usePathStyle
		return nil
	}
}

// WithKeyPrefix sets the object key prefix for ingested PDFs
func WithKeyPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		if prefix == "" {
			return fmt.Errorf("key prefix cannot be empty")
		}
		c.KeyPrefix = prefix
		return nil
	}
}

// WithOddpub configures the analysis service
func WithOddpub(hostAPI string, ratePerSecond float64, timeout time.Duration) Option {
	return func(c *ServerConfig) error {
		c.OddpubHostAPI = hostAPI
		c.OddpubRateLimit = ratePerSecond
		if timeout > 0 {
			c.OddpubTimeout = timeout
		}
		return nil
	}
}

// WithOddpubPath sets the route the analysis service accepts files on
func WithOddpubPath(path string) Option {
	return func(c *ServerConfig) error {
		c.OddpubPath = path
		return nil
	}
}

// WithRunContext overrides the host and operator recorded in provenance
func WithRunContext(hostname, username string) Option {
	return func(c *ServerConfig) error {
		c.Hostname = hostname
		c.Username = username
		return nil
	}
}

// WithPDFValidation enables or disables pre-upload PDF checks
func WithPDFValidation(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.ValidatePDF = enabled
		return nil
	}
}

// WithInbox enables scheduled ingestion of dir
func WithInbox(dir, schedule string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("inbox directory cannot be empty")
		}
		c.InboxDir = dir
		if schedule != "" {
			c.InboxSchedule = schedule
		}
		return nil
	}
}

// WithAPIKeySHA256 requires requests to carry the API key with this digest
func WithAPIKeySHA256(sum string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = sum
		return nil
	}
}
