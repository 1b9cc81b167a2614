// Package cmd defines and implements the CLI commands for the
// guardian-ingest executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsflow/guardian-ingest/internal/archive"
	"github.com/newsflow/guardian-ingest/internal/broker"
	"github.com/newsflow/guardian-ingest/internal/config"
	"github.com/newsflow/guardian-ingest/internal/guardian"
	"github.com/newsflow/guardian-ingest/internal/logging"
	"github.com/newsflow/guardian-ingest/internal/metrics"
	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guardian-ingest",
		Short: "Quota-gated Guardian article ingest pipeline",
		Long: `guardian-ingest retrieves Guardian articles for a search term,
publishes them to a Pub/Sub topic and archives each accepted batch to a
Cloud Storage bucket, subject to a fixed daily quota.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; environment variables take the INGEST_ prefix)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// services holds the wired pipeline and the clients behind it.
type services struct {
	orchestrator *pipeline.Orchestrator
	logger       *zap.Logger

	storageClient *storage.Client
	pubsubClient  *pubsub.Client
}

// newServices builds the orchestrator and its collaborators from
// configuration. Required deployment values are validated by each
// component at first use, so wiring succeeds even with a partial
// configuration and the failure surfaces inside the pipeline.
func newServices(ctx context.Context, cfg config.Config) (*services, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.Broker.ProjectID)
	if err != nil {
		if closeErr := storageClient.Close(); closeErr != nil {
			logger.Warn("error closing storage client", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	retriever := guardian.NewClient(guardian.Config{
		APIKey:  cfg.Guardian.APIKey,
		BaseURL: cfg.Guardian.BaseURL,
		Timeout: cfg.GuardianTimeout(),
	}, logger.Named("guardian"))

	store := archive.NewStore(storageClient, archive.Config{
		Bucket:    cfg.Storage.Bucket,
		ProjectID: cfg.Storage.ProjectID,
		Region:    cfg.Storage.Region,
	}, logger.Named("archive"))

	publisher := broker.New(pubsubClient, broker.Config{
		ProjectID:     cfg.Broker.ProjectID,
		Region:        cfg.Broker.Region,
		RetentionDays: cfg.Broker.RetentionDays,
	}, logger.Named("broker"))

	return &services{
		orchestrator:  pipeline.NewOrchestrator(retriever, publisher, store, logger.Named("pipeline")),
		logger:        logger,
		storageClient: storageClient,
		pubsubClient:  pubsubClient,
	}, nil
}

// Close shuts the backing clients down and flushes the logger.
func (s *services) Close() {
	if err := s.pubsubClient.Close(); err != nil {
		s.logger.Warn("error closing pubsub client", zap.Error(err))
	}
	if err := s.storageClient.Close(); err != nil {
		s.logger.Warn("error closing storage client", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "guardian-ingest: %v\n", err)
		os.Exit(1)
	}
}
