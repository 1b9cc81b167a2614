package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsflow/guardian-ingest/internal/config"
	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

// newIngestCmd creates the one-shot invocation command. One run is one
// query against the upstream API, equivalent to one trigger event.
func newIngestCmd() *cobra.Command {
	var (
		query     string
		brokerRef string
		fromDate  string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingest invocation and print the result message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			svc, err := newServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.orchestrator.Run(cmd.Context(), pipeline.Request{
				Query:     query,
				FromDate:  fromDate,
				BrokerRef: brokerRef,
			})
			if err != nil {
				return err
			}

			return json.NewEncoder(os.Stdout).Encode(result)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "search term (required)")
	cmd.Flags().StringVar(&brokerRef, "broker", "", "target broker topic name (required)")
	cmd.Flags().StringVar(&fromDate, "from-date", "", "lower-bound publication date filter (ISO-8601 date or year)")

	return cmd
}
