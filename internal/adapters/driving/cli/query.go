package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driving"
)

var (
	queryFilters     []string
	queryTopK        int
	queryShowContext bool
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question over the knowledge base",
	Long: `Retrieves the most relevant report excerpts and generates an
answer grounded on them. Filters restrict retrieval by metadata, e.g.
--filter doc_company=Acme --filter doc_year=2023.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "metadata filter as key=value (repeatable)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of excerpts to retrieve")
	queryCmd.Flags().BoolVar(&queryShowContext, "show-context", false, "print the excerpts grounding the answer")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]

	querier, err := ensureQuerier()
	if err != nil {
		return err
	}

	filters, err := parseFilters(queryFilters)
	if err != nil {
		return err
	}

	answer, err := querier.Ask(context.Background(), question, driving.QueryOptions{
		TopK:    queryTopK,
		Filters: filters,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if queryShowContext {
		printContext(cmd, answer.Context)
	}
	return nil
}

func printContext(cmd *cobra.Command, results []domain.ScoredChunk) {
	if len(results) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, result := range results {
		cmd.Printf("  [%d] %s (%.2f)", i+1, result.Chunk.Source, result.Score)
		if result.Chunk.Page > 0 {
			cmd.Printf(" page %d", result.Chunk.Page)
		}
		if result.Chunk.Section != "" {
			cmd.Printf(" - %s", result.Chunk.Section)
		}
		cmd.Println()
	}
}

// parseFilters turns key=value pairs into a metadata filter. Integer
// values are typed as int so year filters match the indexed metadata.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	filters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		if n, err := strconv.Atoi(value); err == nil {
			filters[key] = n
		} else {
			filters[key] = value
		}
	}
	return filters, nil
}
