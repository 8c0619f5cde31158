package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	builder := builderService
	if builder == nil {
		// The default ledger location depends on the source folder, so
		// stats reads it from the config.
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		builder, err = ensureBuilder(cfg.Source.Folder)
		if err != nil {
			return err
		}
	}

	stats, err := builder.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Documents: %d\n", stats.TotalDocuments)
	cmd.Printf("Chunks:    %d\n", stats.TotalChunks)
	if !stats.LastProcessed.IsZero() {
		cmd.Printf("Last processed: %s\n", stats.LastProcessed.Format("2006-01-02 15:04:05 MST"))
	}
	if stats.Index != nil {
		cmd.Printf("Index rows: %d (dimension %d)\n", stats.Index.RowCount, stats.Index.Dimension)
	}
	return nil
}
