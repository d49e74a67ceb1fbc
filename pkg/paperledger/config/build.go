package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/analyzer"
	"github.com/tendant/paper-ledger/pkg/paperledger/pdfcheck"
	memoryrepo "github.com/tendant/paper-ledger/pkg/paperledger/repo/memory"
	"github.com/tendant/paper-ledger/pkg/paperledger/repo/postgres"
	fsstorage "github.com/tendant/paper-ledger/pkg/paperledger/storage/fs"
	memorystorage "github.com/tendant/paper-ledger/pkg/paperledger/storage/memory"
	s3storage "github.com/tendant/paper-ledger/pkg/paperledger/storage/s3"
)

// BuildRepository constructs the configured repository. The returned func
// releases its connections and is never nil.
func (c *ServerConfig) BuildRepository(ctx context.Context) (paperledger.Repository, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memoryrepo.New(), func() {}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			URL:            c.DatabaseURL,
			Schema:         c.DBSchema,
			MaxConnections: int32(c.DBMaxConns),
		})
		if err != nil {
			return nil, nil, &paperledger.PersistenceError{Op: "connect", Err: err}
		}
		return postgres.NewWithPool(pool), pool.Close, nil
	default:
		return nil, nil, paperledger.NewConfigurationError("DATABASE_URL", fmt.Sprintf("unsupported database type: %s", c.DatabaseType))
	}
}

// BuildBlobStore constructs the configured storage backend.
func (c *ServerConfig) BuildBlobStore() (paperledger.BlobStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		backend, err := fsstorage.New(fsstorage.Config{BaseDir: c.Storage.BaseDir})
		if err != nil {
			return nil, &paperledger.StorageError{Backend: "fs", Op: "init", Err: err}
		}
		return backend, nil
	case "s3":
		backend, err := s3storage.New(s3storage.Config{
			Region:                 c.Storage.Region,
			Bucket:                 c.Storage.Bucket,
			AccessKeyID:            c.Storage.AccessKeyID,
			SecretAccessKey:        c.Storage.SecretAccessKey,
			Endpoint:               c.Storage.Endpoint,
			UsePathStyle:           c.Storage.UsePathStyle,
			CreateBucketIfNotExist: c.Storage.CreateBucket,
		})
		if err != nil {
			return nil, &paperledger.StorageError{Backend: "s3", Op: "init", Err: err}
		}
		return backend, nil
	default:
		return nil, paperledger.NewConfigurationError("STORAGE_URL", fmt.Sprintf("unsupported storage type: %s", c.Storage.Type))
	}
}

// BuildService wires repository, storage, analyzer and validator into a
// paperledger.Service. extra options are applied last. The returned func
// releases the repository.
func (c *ServerConfig) BuildService(ctx context.Context, logger *zap.Logger, extra ...paperledger.Option) (paperledger.Service, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repo, closeRepo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	blobs, err := c.BuildBlobStore()
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	opts := []paperledger.Option{
		paperledger.WithRepository(repo),
		paperledger.WithBlobStore(blobs),
		paperledger.WithLogger(logger),
		paperledger.WithKeyPrefix(c.KeyPrefix),
		paperledger.WithRunContext(c.RunContext()),
		paperledger.WithEventSink(paperledger.NewLoggingEventSink(logger)),
	}
	if c.OddpubHostAPI != "" {
		opts = append(opts, paperledger.WithAnalyzer(analyzer.NewClient(c.OddpubHostAPI,
			analyzer.WithPath(c.OddpubPath),
			analyzer.WithTimeout(c.OddpubTimeout),
			analyzer.WithRateLimit(c.OddpubRateLimit),
		)))
	}
	if c.ValidatePDF {
		opts = append(opts, paperledger.WithValidator(pdfcheck.New()))
	}
	opts = append(opts, extra...)

	svc, err := paperledger.New(opts...)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	logger.Info("service configured",
		zap.String("database", c.DatabaseType),
		zap.String("storage", blobs.Name()),
		zap.Bool("analyzer", c.OddpubHostAPI != ""),
		zap.Bool("validate_pdf", c.ValidatePDF))

	return svc, closeRepo, nil
}
