package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driving"
)

var (
	buildSuffixes  []string
	buildWorkers   int
	buildBatchSize int
)

var buildCmd = &cobra.Command{
	Use:   "build <folder>",
	Short: "Build or update the knowledge base from a folder of reports",
	Long: `Scans the folder for annual report files, skips files already
indexed at their current content, and converts, chunks and indexes the
rest. The command fails when the folder holds no matching files or when
every file fails; individual file failures are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringSliceVar(&buildSuffixes, "suffix", nil, "file suffixes to include (default .pdf)")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "number of files to process concurrently")
	buildCmd.Flags().IntVar(&buildBatchSize, "batch-size", 0, "chunks per index write")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	folder := args[0]

	builder, err := ensureBuilder(folder)
	if err != nil {
		return err
	}

	cmd.Printf("Building knowledge base from %s...\n", folder)

	report, err := builder.Build(context.Background(), folder, driving.BuildOptions{
		Suffixes:  buildSuffixes,
		Workers:   buildWorkers,
		BatchSize: buildBatchSize,
	})
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.BuildReport) {
	cmd.Printf("Processed: %d  Skipped: %d  Failed: %d  Chunks: %d  (%s)\n",
		report.Processed, report.Skipped, report.Failed, report.TotalChunks,
		report.Duration.Round(time.Millisecond))
	for _, failure := range report.Failures {
		cmd.Printf("  failed: %s\n", failure)
	}
}
