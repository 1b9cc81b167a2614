package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsflow/guardian-ingest/internal/api"
	"github.com/newsflow/guardian-ingest/internal/config"
)

// newServeCmd creates the HTTP trigger server command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := newServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			server := api.NewServer(svc.orchestrator, svc.logger.Named("api"))
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				svc.logger.Info("http server started", zap.Int("port", cfg.Server.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					svc.logger.Error("http server error", zap.Error(err))
					stop()
				}
			}()

			<-ctx.Done()
			svc.logger.Info("shutdown initiated")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				svc.logger.Error("server shutdown error", zap.Error(err))
			}
			svc.logger.Info("shutdown complete")
			return nil
		},
	}
}
