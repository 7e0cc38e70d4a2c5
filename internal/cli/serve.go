package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger := logging.NewLogger("shieldd", logging.ParseLevel(cfg.LogLevel), cmd.OutOrStdout())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, server.Config{AppConfig: cfg, Logger: logger}, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, e.g. :3000 (overrides config and PORT)")
	return cmd
}

// runServe serves until ctx is canceled, then shuts down gracefully.
func runServe(ctx context.Context, cfg server.Config, logger logging.Logger) error {
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	httpSrv := srv.HTTPServer()
	// Live alert streams never go idle on their own.
	httpSrv.RegisterOnShutdown(srv.Orchestrator().Hub().Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
