package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"groundedqa/internal/ai"
	"groundedqa/internal/app"
	"groundedqa/internal/cache"
	"groundedqa/internal/config"
	mysqlClient "groundedqa/internal/platform/mysql"
	rabbitmqClient "groundedqa/internal/platform/rabbitmq"
	redisClient "groundedqa/internal/platform/redis"
	sqliteClient "groundedqa/internal/platform/sqlite"
	"groundedqa/internal/pkg/summarizer"
	"groundedqa/internal/repository"
	"groundedqa/internal/source"
	"groundedqa/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB        *gorm.DB
	Store     app.ChunkStore
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Publisher *rabbitmqClient.DocumentPublisher

	Answers      *app.AnswerService
	Indexer      *app.Indexer
	IngestWorker *worker.DocumentIngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := NewLogger(cfg.App)

	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.DB = db
	if err := repository.Migrate(db); err != nil {
		return err
	}
	a.Store = repository.NewChunkRepository(db)

	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.Indexing.Concurrency + 2
	client := ai.NewOpenAICompatibleClientWithHTTP(&http.Client{
		Timeout:   90 * time.Second,
		Transport: transport,
	})
	embedder, err := a.buildEmbedder(client)
	if err != nil {
		return err
	}
	generator := ai.NewOpenAIGenerator(client, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})

	retriever := app.NewRetriever(a.Store, embedder, app.RetrievalConfig{
		CandidateK:     cfg.Retrieval.CandidateK,
		EvidenceK:      cfg.Retrieval.EvidenceK,
		MinScore:       cfg.Retrieval.MinScore,
		ConfidentScore: cfg.Retrieval.ConfidentScore,
		TitleBoost:     cfg.Retrieval.TitleBoost,
		TextBoost:      cfg.Retrieval.TextBoost,
		MinKeywordLen:  cfg.Retrieval.MinKeywordLen,
		WindowBefore:   cfg.Retrieval.WindowBefore,
		WindowAfter:    cfg.Retrieval.WindowAfter,
	})
	a.Answers = app.NewAnswerService(
		retriever,
		generator,
		summarizer.NewFrequencySummarizer(cfg.Generation.FallbackMaxSentences, cfg.Generation.FallbackMaxRunes),
		ai.GenerateOptions{
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			Timeout:     cfg.Generation.Timeout(),
		},
		a.Logger.With("component", "answers"),
	)
	a.Indexer = app.NewIndexer(
		buildSource(cfg.Source, a.Logger.With("component", "source")),
		a.Store,
		embedder,
		app.IndexerConfig{
			ChunkSize:    cfg.Chunking.Size,
			ChunkOverlap: cfg.Chunking.Overlap,
			Concurrency:  cfg.Indexing.Concurrency,
			PruneStale:   cfg.Indexing.PruneStale,
		},
		a.Logger.With("component", "indexer"),
	)

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		a.Publisher = rabbitmqClient.NewDocumentPublisher(a.MQConn, cfg.RabbitMQ.IngestQueue)
		a.IngestWorker = worker.NewDocumentIngestWorker(a.MQConn, a.Indexer, cfg.RabbitMQ.IngestQueue, a.Logger)
		if err := a.IngestWorker.Start(ctx); err != nil {
			return fmt.Errorf("start ingest worker failed: %w", err)
		}
	}

	a.Logger.Info("application initialized",
		"store", cfg.Store.Driver,
		"redis", cfg.Redis.Enabled,
		"rabbitmq", cfg.RabbitMQ.Enabled,
		"embedding_model", cfg.Embedding.Model,
		"llm_model", cfg.LLM.Model,
	)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Store.Driver {
	case "mysql":
		return mysqlClient.New(ctx, cfg.MySQLDSN())
	case "sqlite":
		return sqliteClient.New(ctx, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// buildEmbedder wires the lazily constructed remote embedder, optionally
// behind the Redis cache, and warms it up when configured to.
func (a *App) buildEmbedder(client *ai.OpenAICompatibleClient) (ai.Embedder, error) {
	ecfg := ai.EmbeddingConfig{
		BaseURL:       a.Config.Embedding.BaseURL,
		APIKey:        a.Config.Embedding.APIKey,
		Model:         a.Config.Embedding.Model,
		MaxInputRunes: a.Config.Embedding.MaxInputRunes,
	}
	lazy := ai.NewLazyEmbedder(func(ctx context.Context) (ai.Embedder, error) {
		if ecfg.BaseURL == "" || ecfg.Model == "" {
			return nil, errors.New("embedding base_url and model are required")
		}
		e := ai.NewOpenAIEmbedder(client, ecfg)
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := e.Embed(probeCtx, "warmup"); err != nil {
			return nil, fmt.Errorf("probe embedding model %s failed: %w", ecfg.Model, err)
		}
		return e, nil
	})
	if a.Config.Embedding.Warmup {
		if err := lazy.Warmup(); err != nil {
			return nil, err
		}
		a.Logger.Info("embedding model ready", "model", ecfg.Model)
	}

	var embedder ai.Embedder = lazy
	if a.Redis != nil {
		embedder = cache.NewCachedEmbedder(
			lazy,
			cache.NewEmbeddingCache(a.Redis, a.Config.Embedding.CacheTTL()),
			ecfg.Model,
			a.Logger.With("component", "embedding_cache"),
		)
	}
	return embedder, nil
}

func buildSource(cfg config.SourceConfig, logger *slog.Logger) app.DocumentSource {
	var sources source.Multi
	if len(cfg.FeedURLs) > 0 {
		sources = append(sources, source.NewFeedSource(cfg.FeedURLs, cfg.FetchTimeout()))
	}
	if cfg.Directory != "" {
		sources = append(sources, source.NewDirectorySource(cfg.Directory, logger))
	}
	return sources
}

// NewLogger builds the process logger from app.log_level and app.log_format.
func NewLogger(cfg config.AppConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h).With("app", cfg.Name, "env", cfg.Env)
}

func (a *App) Close() error {
	var errs []error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
