package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/kbquery/internal/transport/chi"
	"github.com/kailas-cloud/kbquery/internal/version"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		port := a.cfg.HTTP.Port
		if servePort > 0 {
			port = servePort
		}

		a.logger.Info("Starting kbquery API server",
			zap.String("version", version.String()),
			zap.String("env", envName),
			zap.Int("http_port", port),
			zap.String("db_driver", a.cfg.Database.Driver),
			zap.String("collection", a.cfg.Collection.Name),
		)

		server := chiTransport.NewServer(a.query, a.knowledge, a.health, a.logger)
		router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
			APIKeys:      a.cfg.Auth.APIKeys,
			QueryTimeout: a.cfg.Query.Timeout(),
		})

		addr := fmt.Sprintf(":%d", port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("Starting HTTP server", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
			a.logger.Info("Received shutdown signal")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during shutdown", zap.Error(err))
			return fmt.Errorf("shutdown: %w", err)
		}

		a.logger.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides http.port)")
	rootCmd.AddCommand(serveCmd)
}
