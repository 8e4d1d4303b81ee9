// Package cli implements the mediflow command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	configfile "github.com/mediflow-labs/mediflow/internal/adapters/driven/config/file"
	embeddinglazy "github.com/mediflow-labs/mediflow/internal/adapters/driven/embedding/lazy"
	embeddingollama "github.com/mediflow-labs/mediflow/internal/adapters/driven/embedding/ollama"
	embeddingopenai "github.com/mediflow-labs/mediflow/internal/adapters/driven/embedding/openai"
	llmollama "github.com/mediflow-labs/mediflow/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/mediflow-labs/mediflow/internal/adapters/driven/llm/openai"
	queuemem "github.com/mediflow-labs/mediflow/internal/adapters/driven/queue/memory"
	queueredis "github.com/mediflow-labs/mediflow/internal/adapters/driven/queue/redis"
	"github.com/mediflow-labs/mediflow/internal/adapters/driven/storage/sqlite"
	"github.com/mediflow-labs/mediflow/internal/agents"
	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/core/services"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// version is set via Execute by the main package.
var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mediflow",
	Short: "Multi-agent hospital workflow platform",
	Long: `mediflow runs the hospital workflow agents: patient intake,
document indexing (RAG), diagnostics, billing optimisation and
security auditing. Each agent consumes its own job queue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Best effort: a missing .env file is not an error.
		_ = godotenv.Load()
		logger.Init(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default ~/.mediflow/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}

// app holds the wired platform: configuration, stores, queue transport
// and the agent services.
type app struct {
	cfg   configfile.Config
	store *sqlite.Store
	queue driven.JobQueue

	embedder driven.EmbeddingService
	llm      driven.LLMService

	indexer   *services.IndexingService
	retriever *services.RetrievalService
	diag      *services.DiagnosticService
	intake    *services.IntakeService
	billing   *services.BillingService
	security  *services.SecurityService

	handlers *agents.Handlers
}

// newApp wires the full platform from configuration.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := configfile.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	queue, err := buildQueue(ctx, cfg.Queue)
	if err != nil {
		store.Close()
		return nil, err
	}

	embedder := buildEmbedder(cfg.Embedding)
	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		queue.Close()
		store.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		queue:    queue,
		embedder: embedder,
		llm:      llm,
	}

	a.indexer = services.NewIndexingService(embedder, store.VectorStore(), nil)
	a.retriever = services.NewRetrievalService(embedder, store.VectorStore())
	a.diag = services.NewDiagnosticService(a.retriever, llm, store.DiagnosticStore(), cfg.Retrieval.TopK)
	a.intake = services.NewIntakeService(llm, store.PatientStore(), store.DocumentStore(), queue)
	a.billing = services.NewBillingService(llm, store.InvoiceStore())
	a.security = services.NewSecurityService(store.AuditStore(), store.AlertStore())

	a.handlers = agents.NewHandlers(a.intake, a.indexer, a.diag, a.billing, a.security)

	return a, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.llm.Close()
	a.embedder.Close()
	a.queue.Close()
	a.store.Close()
}

// drain processes whatever is currently buffered on a queue, in-process.
// One-shot commands use it so their follow-on jobs (an intake enqueues an
// indexing job) complete before the command exits.
func (a *app) drain(ctx context.Context, queue string, handle agents.Handler) error {
	for {
		dequeueCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		job, err := a.queue.Dequeue(dequeueCtx, queue)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil // queue empty
		}
		if err := handle(ctx, job); err != nil {
			return err
		}
	}
}

// buildQueue selects the job transport.
func buildQueue(ctx context.Context, cfg configfile.QueueConfig) (driven.JobQueue, error) {
	switch cfg.Backend {
	case "", "memory":
		return queuemem.NewQueue(), nil
	case "redis":
		return queueredis.NewQueue(ctx, queueredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}

// buildEmbedder constructs the embedding service behind a lazy loader, so
// commands that never embed pay nothing.
func buildEmbedder(cfg configfile.ProviderConfig) driven.EmbeddingService {
	switch cfg.Provider {
	case "openai":
		model := cfg.Model
		if model == "" {
			model = embeddingopenai.DefaultModel
		}
		return embeddinglazy.NewEmbeddingService(model, domain.EmbeddingDimensions, func(ctx context.Context) (driven.EmbeddingService, error) {
			return embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
				APIKey:     os.Getenv("OPENAI_API_KEY"),
				BaseURL:    cfg.BaseURL,
				Model:      cfg.Model,
				Dimensions: domain.EmbeddingDimensions,
			})
		})
	default:
		model := cfg.Model
		if model == "" {
			model = embeddingollama.DefaultModel
		}
		return embeddinglazy.NewEmbeddingService(model, domain.EmbeddingDimensions, func(ctx context.Context) (driven.EmbeddingService, error) {
			return embeddingollama.NewEmbeddingService(embeddingollama.Config{
				BaseURL: cfg.BaseURL,
				Model:   cfg.Model,
			}), nil
		})
	}
}

// buildLLM constructs the chat model service.
func buildLLM(cfg configfile.ProviderConfig) (driven.LLMService, error) {
	switch cfg.Provider {
	case "openai":
		return llmopenai.NewLLMService(llmopenai.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return llmollama.NewLLMService(llmollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	}
}
