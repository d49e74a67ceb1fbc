package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"go.uber.org/zap"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/api"
	"github.com/tendant/paper-ledger/pkg/paperledger/config"
	"github.com/tendant/paper-ledger/pkg/paperledger/metrics"
	"github.com/tendant/paper-ledger/pkg/paperledger/schedule"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, /metrics and the scheduled inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			sink := metrics.NewSink(reg)
			events := paperledger.MultiEventSink{paperledger.NewLoggingEventSink(c.logger), sink}

			svc, cfg, closeFn, err := c.service(ctx, paperledger.WithEventSink(events))
			if err != nil {
				return err
			}
			defer closeFn()

			server := app.DefaultApp()
			app.RoutesHealthz(server.R)
			app.RoutesHealthzReady(server.R)
			if err := mountRoutes(server.R, svc, cfg, reg, c.logger); err != nil {
				return err
			}

			if cfg.InboxDir != "" {
				inbox, err := schedule.NewInbox(svc, cfg.InboxDir,
					schedule.WithSchedule(cfg.InboxSchedule),
					schedule.WithLogger(c.logger),
				)
				if err != nil {
					return err
				}
				inbox.Start(ctx)
				defer inbox.Stop()
			}

			httpServer := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           server.R,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				c.logger.Info("listening", zap.String("addr", httpServer.Addr))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			c.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}

// mountRoutes registers /metrics and the v1 API. The API requires the
// configured key when API_KEY_SHA256 is set.
func mountRoutes(r *chi.Mux, svc paperledger.Service, cfg *config.ServerConfig, reg *prometheus.Registry, logger *zap.Logger) error {
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	var apiKeyMiddleware func(http.Handler) http.Handler
	if cfg.APIKeySHA256 != "" {
		mw, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{
				"key1": cfg.APIKeySHA256,
			},
		})
		if err != nil {
			return err
		}
		apiKeyMiddleware = mw
	} else {
		logger.Warn("API_KEY_SHA256 is not set, the API is unauthenticated")
	}

	handler := api.NewHandler(svc, api.WithLogger(logger))
	r.Route("/api/v1", func(r chi.Router) {
		if apiKeyMiddleware != nil {
			r.Use(apiKeyMiddleware)
		}
		r.Mount("/", handler.Routes())
	})
	return nil
}
