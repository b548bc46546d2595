// Package cli provides the command-line interface for recall.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldnotes-ai/recall/internal/config"
	"github.com/fieldnotes-ai/recall/internal/db"
	"github.com/fieldnotes-ai/recall/internal/index"
	"github.com/fieldnotes-ai/recall/internal/llm"
	"github.com/fieldnotes-ai/recall/internal/metrics"
	"github.com/fieldnotes-ai/recall/internal/search"
	"github.com/fieldnotes-ai/recall/internal/service"
	"github.com/fieldnotes-ai/recall/internal/speaker"
	"github.com/fieldnotes-ai/recall/internal/temporal"
	"github.com/fieldnotes-ai/recall/internal/transcribe"
	"github.com/fieldnotes-ai/recall/internal/vectorstore"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	userID  string

	// Wired at startup
	cfg       config.Config
	dbClient  *db.Client
	store     *vectorstore.Qdrant
	collector *metrics.Collector
	closeLog  func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Personal knowledge retrieval over meetings, notes and documents",
	Long: `Recall ingests audio recordings, documents and raw text into a
per-user vector index and answers questions over them with hybrid
keyword + semantic search, temporal filtering and optional reranking.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := cfg.LogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		var logger *slog.Logger
		logger, closeLog = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		store, err = vectorstore.NewQdrant(cfg)
		if err != nil {
			return fmt.Errorf("connect to vector store: %w", err)
		}

		collector = metrics.NewCollector()

		// The job store is optional; ingestion and search work without it,
		// only job bookkeeping is lost.
		ctx := context.Background()
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: job store unavailable: %v\n", err)
			dbClient = nil
		} else {
			if err := dbClient.InitSchema(ctx); err != nil {
				return fmt.Errorf("initialize schema: %w", err)
			}
			// Jobs left pending or processing by a killed process would
			// otherwise stay stuck forever.
			if err := service.FailInterrupted(ctx, jobStore()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not clean up interrupted jobs: %v\n", err)
			}
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if store != nil {
			_ = store.Close()
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// jobStore adapts the nilable db client to the service interface. A nil
// *db.Client must become a nil interface, not a typed nil.
func jobStore() service.JobStore {
	if dbClient == nil {
		return nil
	}
	return dbClient
}

// newIngestPipeline wires the full ingestion stack.
func newIngestPipeline() (*service.IngestService, error) {
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	model, err := llm.NewModel(cfg, collector)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}

	return service.NewIngestService(
		transcribe.NewClient(cfg.OpenAIAPIKey, cfg.WhisperModel),
		llm.NewExtractor(model),
		speaker.NewAttributor(model, cfg.CallTimeout()),
		index.New(store, embedder, cfg.CallTimeout()),
		jobStore(),
		collector,
		cfg.CallTimeout(),
	), nil
}

// newQueryPipeline wires the query stack.
func newQueryPipeline() (*service.QueryService, error) {
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	model, err := llm.NewModel(cfg, collector)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}

	return service.NewQueryService(
		embedder,
		search.NewRetriever(store),
		search.NewReranker(model),
		model,
		temporal.New(),
		collector,
		cfg.SearchTopK,
		cfg.RerankTopN,
		cfg.CallTimeout(),
	), nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default", "user whose collection to operate on")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(jobsCmd)
}
