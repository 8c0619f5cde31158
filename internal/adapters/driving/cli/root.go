// Package cli implements the reportkb command line interface.
// Commands talk to the core through the driving ports; the package
// globals below are swapped for fakes in tests.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	configfile "github.com/finlight-labs/reportkb-cli/internal/adapters/driven/config/file"
	"github.com/finlight-labs/reportkb-cli/internal/adapters/driven/convert/docling"
	"github.com/finlight-labs/reportkb-cli/internal/adapters/driven/convert/plaintext"
	embedollama "github.com/finlight-labs/reportkb-cli/internal/adapters/driven/embedding/ollama"
	embedopenai "github.com/finlight-labs/reportkb-cli/internal/adapters/driven/embedding/openai"
	ledgerfile "github.com/finlight-labs/reportkb-cli/internal/adapters/driven/ledger/file"
	"github.com/finlight-labs/reportkb-cli/internal/adapters/driven/llm/anthropic"
	llmollama "github.com/finlight-labs/reportkb-cli/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/finlight-labs/reportkb-cli/internal/adapters/driven/llm/openai"
	"github.com/finlight-labs/reportkb-cli/internal/adapters/driven/vector/qdrant"
	vectorsqlite "github.com/finlight-labs/reportkb-cli/internal/adapters/driven/vector/sqlite"
	"github.com/finlight-labs/reportkb-cli/internal/chunker"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driving"
	"github.com/finlight-labs/reportkb-cli/internal/core/services"
	"github.com/finlight-labs/reportkb-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services consumed by the commands. Tests replace these with fakes;
// in production they are wired lazily from the config file.
var (
	builderService driving.KnowledgeBaseBuilder
	querierService driving.KnowledgeBaseQuerier
)

var (
	verboseFlag bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "reportkb",
	Short: "Incremental knowledge base for annual reports",
	Long: `reportkb builds a searchable knowledge base from a folder of
annual report files and answers questions over it. Builds are
incremental: unchanged files are skipped, changed files re-indexed.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.reportkb/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config or the default path.
func loadConfig() (*configfile.Config, error) {
	path := configFlag
	if path == "" {
		var err error
		path, err = configfile.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return configfile.Load(path)
}

// ensureBuilder wires the build pipeline from config unless a test has
// already installed a service. folder is used for the default ledger
// location.
func ensureBuilder(folder string) (driving.KnowledgeBaseBuilder, error) {
	if builderService != nil {
		return builderService, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	index, err := newIndex(cfg, embedder)
	if err != nil {
		return nil, err
	}

	ledgerPath := cfg.Ledger.Path
	if ledgerPath == "" {
		ledgerPath = filepath.Join(folder, ledgerfile.DefaultFileName)
	}
	ledger := ledgerfile.NewLedger(ledgerPath, ledgerfile.SkipPolicy(cfg.Ledger.SkipPolicy))

	converters := []driven.DocumentConverter{plaintext.NewConverter()}
	if cfg.Converter.DoclingURL != "" {
		converters = append(converters, docling.NewConverter(docling.Config{
			BaseURL: cfg.Converter.DoclingURL,
			Timeout: time.Duration(cfg.Converter.TimeoutSecs) * time.Second,
		}))
	}

	ch := chunker.New(
		chunker.WithTargetSize(cfg.Chunking.TargetSize),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	builderService = services.NewSyncService(converters, ch, ledger, index)
	return builderService, nil
}

// ensureQuerier wires the query pipeline from config unless a test has
// already installed a service.
func ensureQuerier() (driving.KnowledgeBaseQuerier, error) {
	if querierService != nil {
		return querierService, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	index, err := newIndex(cfg, embedder)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}

	querierService = services.NewQueryService(index, generator,
		cfg.Generator.MaxTokens, cfg.Generator.Temperature)
	return querierService, nil
}

func newEmbedder(cfg *configfile.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
		return embedollama.NewEmbeddingService(embedollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "openai":
		return embedopenai.NewEmbeddingService(embedopenai.Config{
			APIKey:            os.Getenv(cfg.Embedding.APIKeyEnv),
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Dimensions:        cfg.Embedding.Dimensions,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func newIndex(cfg *configfile.Config, embedder driven.EmbeddingService) (driven.VectorIndex, error) {
	switch cfg.Index.Provider {
	case "", "sqlite":
		return vectorsqlite.NewIndex(cfg.Index.Path, embedder)
	case "qdrant":
		return qdrant.NewIndex(context.Background(), qdrant.Config{
			URL:        cfg.Index.URL,
			Collection: cfg.Index.Collection,
			APIKey:     os.Getenv(cfg.Index.APIKeyEnv),
		}, embedder)
	default:
		return nil, fmt.Errorf("unknown index provider %q", cfg.Index.Provider)
	}
}

// newGenerator returns nil without error when no provider is configured;
// querying then degrades to retrieval only.
func newGenerator(cfg *configfile.Config) (driven.Generator, error) {
	switch cfg.Generator.Provider {
	case "":
		return nil, nil
	case "ollama":
		return llmollama.NewGenerator(llmollama.Config{
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
		}), nil
	case "openai":
		return llmopenai.NewGenerator(llmopenai.Config{
			APIKey:  os.Getenv(cfg.Generator.APIKeyEnv),
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
		})
	case "anthropic":
		return anthropic.NewGenerator(anthropic.Config{
			APIKey:  os.Getenv(cfg.Generator.APIKeyEnv),
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
		})
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
	}
}
