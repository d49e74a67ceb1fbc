// Command paperledger ingests research PDFs into the ledger and serves it over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/config"
)

// Exit codes. Per-file failures inside a run never change the exit code.
const (
	ExitSuccess = 0
	ExitError   = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(ExitError)
	}
}

// cli carries state shared by every subcommand.
type cli struct {
	envFile string
	verbose bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "paperledger",
		Short: "Content-addressed ledger for research PDFs",
		Long: `paperledger uploads PDFs to object storage, records each distinct file once
by its SHA-256 digest, stamps every batch with a provenance record and
groups documents into works.

Configuration is read from the environment (and a .env file when present).
DATABASE_URL and STORAGE_URL are required; the memory backends are kept
only for the lifetime of the process.
  DATABASE_URL    postgres://... | memory
  STORAGE_URL     s3://bucket?region=.. | file:///dir | memory://
  S3_BUCKET_NAME  selects s3 when STORAGE_URL is unset
  ODDPUB_HOST_API base URL of the oddpub analysis service
  ODDPUB_PATH     route files are posted to (default /oddpub)`,
		Version:       paperledger.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is not an error.
			_ = godotenv.Load(c.envFile)
			logger, err := newLogger(os.Getenv("ENVIRONMENT"), c.verbose)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Path to a dotenv file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Human-readable debug logging")

	root.AddCommand(
		c.uploadCmd(),
		c.oddpubCmd(),
		c.rtransparentCmd(),
		c.relinkCmd(),
		c.primaryCmd(),
		c.orphansCmd(),
		c.repairCmd(),
		c.migrateCmd(),
		c.serveCmd(),
	)
	return root
}

func newLogger(environment string, verbose bool) (*zap.Logger, error) {
	if verbose || environment == "development" {
		return zap.NewDevelopment()
	}
	if environment == "testing" {
		return zap.NewNop(), nil
	}
	return zap.NewProduction()
}

func (c *cli) loadConfig() (*config.ServerConfig, error) {
	return config.Load(config.WithEnv())
}

// service loads configuration and builds the service. The returned func
// must be called when the command is done.
func (c *cli) service(ctx context.Context, extra ...paperledger.Option) (paperledger.Service, *config.ServerConfig, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	svc, closeFn, err := cfg.BuildService(ctx, c.logger, extra...)
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, cfg, closeFn, nil
}

func runOptionFlags(cmd *cobra.Command, opts *paperledger.RunOptions) {
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "Comment stored on the provenance record")
	cmd.Flags().StringVar(&opts.Personnel, "personnel", "", "Operator stored on the provenance record (default: hostname)")
}
