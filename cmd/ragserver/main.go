// Command ragserver runs the crawl and retrieval service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pubsubapi "cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/api"
	blobgcs "github.com/JakeFAU/ragsearch-crawler/internal/blob/gcs"
	bloblocal "github.com/JakeFAU/ragsearch-crawler/internal/blob/local"
	"github.com/JakeFAU/ragsearch-crawler/internal/clock/system"
	"github.com/JakeFAU/ragsearch-crawler/internal/config"
	"github.com/JakeFAU/ragsearch-crawler/internal/content"
	"github.com/JakeFAU/ragsearch-crawler/internal/crawl"
	"github.com/JakeFAU/ragsearch-crawler/internal/gemini"
	"github.com/JakeFAU/ragsearch-crawler/internal/logging"
	pubsubpub "github.com/JakeFAU/ragsearch-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/ragsearch-crawler/internal/query"
	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
	"github.com/JakeFAU/ragsearch-crawler/internal/renderer"
	"github.com/JakeFAU/ragsearch-crawler/internal/robots"
	storemem "github.com/JakeFAU/ragsearch-crawler/internal/storage/memory"
	storepg "github.com/JakeFAU/ragsearch-crawler/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ragserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	blob, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, cleanupPub, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupPub()

	genaiClient, err := gemini.NewClient(ctx, cfg.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("dial gemini: %w", err)
	}
	baseEmbedder, err := gemini.NewEmbedder(genaiClient, cfg.LLM.EmbedModel, cfg.Vector.Size)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	embedder := gemini.WithRetries(baseEmbedder, logger)
	var generator rag.Generator
	if !cfg.LLM.Disabled {
		generator, err = gemini.NewGenerator(genaiClient, cfg.LLM.Model)
		if err != nil {
			return fmt.Errorf("build generator: %w", err)
		}
	}

	rend, cleanupRend, err := buildRenderer(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupRend()

	policy := robots.New(cfg.Crawler.RobotsOverride, cfg.Crawler.UserAgent, logger)
	chunker := content.NewChunker(cfg.Crawler.ChunkSize, cfg.Crawler.ChunkOverlap, cfg.Crawler.MinChunkChars)

	manager, err := crawl.NewManager(cfg.JobConfig(), crawl.Deps{
		Renderer:         rend,
		Policy:           policy,
		Embedder:         embedder,
		Store:            store,
		Chunker:          chunker,
		Clock:            system.New(),
		Blob:             blob,
		BlobPrefix:       cfg.Blob.Prefix,
		Publisher:        publisher,
		Topic:            cfg.PubSub.TopicName,
		CollectionPrefix: cfg.Vector.CollectionPrefix,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("build crawl manager: %w", err)
	}
	defer manager.Shutdown()

	pipeline, err := query.New(embedder, store, generator, cfg.Vector.CollectionPrefix, cfg.Vector.TopK, logger)
	if err != nil {
		return fmt.Errorf("build query pipeline: %w", err)
	}

	server := api.New(manager, pipeline, store, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func buildVectorStore(ctx context.Context, cfg config.Config) (rag.VectorStore, error) {
	switch cfg.Vector.Provider {
	case "postgres":
		store, err := storepg.NewVectorStore(ctx, storepg.VectorStoreConfig{
			DSN:        cfg.Vector.DSN,
			Table:      cfg.Vector.Table,
			Dimensions: cfg.Vector.Size,
			Metric:     cfg.Metric(),
		})
		if err != nil {
			return nil, fmt.Errorf("build postgres vector store: %w", err)
		}
		return store, nil
	default:
		return storemem.NewVectorStore(cfg.Metric()), nil
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (rag.BlobStore, error) {
	switch cfg.Blob.Provider {
	case "local":
		store, err := bloblocal.New(cfg.Blob.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("build local blob store: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("dial gcs: %w", err)
		}
		store, err := blobgcs.New(client, cfg.Blob.Bucket)
		if err != nil {
			return nil, fmt.Errorf("build gcs blob store: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (rag.Publisher, func(), error) {
	if !cfg.PubSub.Enabled {
		return nil, func() {}, nil
	}
	client, err := pubsubapi.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("dial pubsub: %w", err)
	}
	pub := pubsubpub.New(client)
	cleanup := func() {
		pub.Stop()
		client.Close() //nolint:errcheck // shutdown path
	}
	return pub, cleanup, nil
}

// buildRenderer returns the renderer unwrapped: a page that fails to
// fetch is counted and left behind, never re-requested within the run,
// so every request against the target host passes through the job's
// crawl-delay limiter exactly once.
func buildRenderer(cfg config.Config, logger *zap.Logger) (rag.Renderer, func(), error) {
	if cfg.Crawler.Headless {
		rend, err := renderer.NewChromedp(renderer.ChromedpOptions{
			UserAgent:      cfg.Crawler.UserAgent,
			Timeout:        cfg.RenderTimeout(),
			MaxConcurrency: cfg.Crawler.Concurrency,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("build headless renderer: %w", err)
		}
		return rend, rend.Close, nil
	}
	rend, err := renderer.NewColly(renderer.CollyOptions{
		UserAgent:      cfg.Crawler.UserAgent,
		RequestTimeout: cfg.RenderTimeout(),
		MaxConcurrency: cfg.Crawler.Concurrency,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build http renderer: %w", err)
	}
	return rend, func() {}, nil
}
