package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pentellia/scan-core/internal/api"
	"pentellia/scan-core/internal/config"
	"pentellia/scan-core/internal/executor"
	"pentellia/scan-core/internal/jobs"
	"pentellia/scan-core/internal/logging"
	"pentellia/scan-core/internal/normalize"
	"pentellia/scan-core/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func init() {
	addConfigFlags(serveCmd.Flags())
}

// components are the long-lived pieces shared by serve and reconcile.
type components struct {
	cfg     *config.Config
	store   *store.SQLiteStore
	client  *executor.Client
	service *jobs.Service
}

func (c *components) Close() {
	c.client.Close()
	if err := c.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close job store")
	}
}

func setup(cmd *cobra.Command) (*components, error) {
	logging.Init(logging.Config{Format: "auto", Level: "info", Component: "scancore"})

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "scancore"})

	st, err := store.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	client, err := executor.New(executor.Config{
		BaseURL:        cfg.ExecutorURL,
		APIKey:         cfg.ExecutorAPIKey,
		StatusTimeout:  cfg.StatusTimeout,
		ResultsTimeout: cfg.ResultsTimeout,
		CancelTimeout:  cfg.CancelTimeout,
		EnqueueTimeout: cfg.EnqueueTimeout,
		DNSCacheTTL:    cfg.DNSCacheTTL,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &components{
		cfg:     cfg,
		store:   st,
		client:  client,
		service: jobs.NewService(st, client, normalize.New(nil)),
	}, nil
}

func runServer(cmd *cobra.Command) error {
	c, err := setup(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	handler := api.NewHandler(c.service, normalize.New(nil))
	srv := &http.Server{
		Addr:              c.cfg.ListenAddr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", c.cfg.ListenAddr).Str("version", Version).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
