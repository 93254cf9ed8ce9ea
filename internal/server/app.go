// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/webextract/internal/api"
	"github.com/JakeFAU/webextract/internal/chat"
	"github.com/JakeFAU/webextract/internal/cleaner"
	"github.com/JakeFAU/webextract/internal/clock/system"
	"github.com/JakeFAU/webextract/internal/config"
	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/dispatcher"
	"github.com/JakeFAU/webextract/internal/extractor"
	collyfetcher "github.com/JakeFAU/webextract/internal/fetcher/colly"
	"github.com/JakeFAU/webextract/internal/hash/xxhash"
	"github.com/JakeFAU/webextract/internal/id/uuid"
	"github.com/JakeFAU/webextract/internal/language"
	"github.com/JakeFAU/webextract/internal/links"
	"github.com/JakeFAU/webextract/internal/pipeline"
	memorypublisher "github.com/JakeFAU/webextract/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/webextract/internal/publisher/pubsub"
	"github.com/JakeFAU/webextract/internal/quality"
	queuememory "github.com/JakeFAU/webextract/internal/queue/memory"
	gcsstorage "github.com/JakeFAU/webextract/internal/storage/gcs"
	localstorage "github.com/JakeFAU/webextract/internal/storage/local"
	memorystorage "github.com/JakeFAU/webextract/internal/storage/memory"
	pgstore "github.com/JakeFAU/webextract/internal/storage/postgres"
	"github.com/JakeFAU/webextract/internal/textgen/gemini"
	"github.com/JakeFAU/webextract/internal/worker"
)

// Version is reported by /healthz. It is overridden at link time.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	jobStore   *memorystorage.JobStore
	queue      *queuememory.Queue
	dispatch   *dispatcher.Dispatcher
	apiServer  *api.Server
	components map[string]string

	storage      *storage.Client
	pubsubClient *pubsub.Client
	gcpPublisher *gcppublisher.Publisher
	archive      *pgstore.Archive
}

// Build creates the application's dependencies from cfg.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{
		cfg:        cfg,
		logger:     logger,
		jobStore:   memorystorage.NewJobStore(),
		queue:      queuememory.NewQueue(cfg.Crawler.QueueDepth),
		components: map[string]string{"fetcher": "colly", "job_store": "memory"},
	}
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Int("concurrency", cfg.Crawler.Concurrency),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	ok := false
	defer func() {
		if !ok {
			app.closeInfrastructure()
		}
	}()

	generator, err := app.setupTextGenerator(ctx)
	if err != nil {
		return nil, err
	}
	blobStore, err := app.setupStorage(ctx)
	if err != nil {
		return nil, err
	}
	archive, err := app.setupArchive(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	processor := pipeline.New(pipeline.Deps{
		Extractor: extractor.New(extractorConfig(cfg), generator, logger.Named("extractor")),
		Cleaner: cleaner.New(cleaner.Config{
			MinLineWords: cfg.Cleaner.MinLineWords,
			NavMaxWords:  cfg.Cleaner.NavMaxWords,
		}),
		Scorer:   quality.NewDefault(),
		Links:    links.New(),
		Detector: language.New(),
		Hasher:   xxhash.New(),
		Clock:    clock,
		Logger:   logger.Named("pipeline"),
	})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: !cfg.Crawler.IgnoreRobots,
		Timeout:       cfg.FetchTimeout(),
		MaxBodySize:   cfg.HTTP.MaxBodyBytes,
	})

	concurrency := cfg.Crawler.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	workers := make([]dispatcher.Runner, 0, concurrency)
	for i := 0; i < concurrency; i++ {
		workers = append(workers, worker.New(worker.Deps{
			Queue:     app.queue,
			JobStore:  app.jobStore,
			Fetcher:   fetcher,
			Processor: processor,
			BlobStore: blobStore,
			Archive:   archive,
			Publisher: publisher,
			Clock:     clock,
			Logger:    logger.Named("worker").With(zap.Int("index", i)),
		}, worker.Config{
			PageDelay:      cfg.PageDelay(),
			MaxRetries:     cfg.Crawler.MaxRetries,
			RetryBaseDelay: time.Duration(cfg.Crawler.RetryBackoffMs) * time.Millisecond,
			ExportPrefix:   cfg.Storage.Prefix,
		}))
	}
	app.dispatch = dispatcher.New(app.queue, workers, logger.Named("dispatcher"))

	var answerer api.Answerer
	if generator != nil {
		answerer = chat.New(generator, cfg.AI.MaxContextChars, logger.Named("chat"))
	}
	app.apiServer = api.NewServer(api.Deps{
		JobStore:   app.jobStore,
		Enqueuer:   app.dispatch,
		IDGen:      uuid.New(),
		Clock:      clock,
		Answerer:   answerer,
		Logger:     logger.Named("api"),
		Version:    Version,
		Components: app.components,
	}, cfg)

	ok = true
	return app, nil
}

// Handler exposes the HTTP routes, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP, runs the workers and expires old jobs until ctx ends,
// then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
		a.queue.Close()
		return nil
	})
	g.Go(func() error {
		a.dispatch.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.runJanitor(gctx)
		return nil
	})

	err := g.Wait()
	a.Close()
	return err
}

// runJanitor removes finished jobs older than the configured TTL.
func (a *App) runJanitor(ctx context.Context) {
	logger := a.logger.Named("janitor")
	interval := a.cfg.Jobs.SweepInterval
	if interval <= 0 || a.cfg.Jobs.TTL <= 0 {
		logger.Info("job expiry disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := a.jobStore.Sweep(now, a.cfg.Jobs.TTL); removed > 0 {
				logger.Info("expired jobs removed", zap.Int("count", removed))
			}
		}
	}
}

// Close releases external clients.
func (a *App) Close() {
	a.closeInfrastructure()
	_ = a.logger.Sync()
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.gcpPublisher != nil {
		a.gcpPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.archive != nil {
		a.archive.Close()
	}
}

func extractorConfig(cfg config.Config) extractor.Config {
	ec := extractor.DefaultConfig()
	if cfg.Extractor.MinWords > 0 {
		ec.MinWords = cfg.Extractor.MinWords
	}
	if cfg.Extractor.MinDensity > 0 {
		ec.MinDensity = cfg.Extractor.MinDensity
	}
	if cfg.Extractor.ReadabilityTopN > 0 {
		ec.ReadabilityTopN = cfg.Extractor.ReadabilityTopN
	}
	if cfg.Extractor.DensityThreshold > 0 {
		ec.DensityThreshold = cfg.Extractor.DensityThreshold
	}
	if cfg.Extractor.MaxPromptChars > 0 {
		ec.MaxPromptChars = cfg.Extractor.MaxPromptChars
	}
	if t := cfg.AITimeout(); t > 0 {
		ec.InstructionTimeout = t
	}
	return ec
}

// setupTextGenerator returns a nil interface when generation is disabled or
// unconfigured.
func (a *App) setupTextGenerator(ctx context.Context) (crawler.TextGenerator, error) {
	if !a.cfg.AI.Enabled {
		a.components["text_generation"] = "disabled"
		a.logger.Info("text generation disabled")
		return nil, nil
	}
	gen, err := gemini.New(ctx, gemini.Config{
		APIKey:         a.cfg.AI.APIKey,
		Model:          a.cfg.AI.Model,
		Timeout:        a.cfg.AITimeout(),
		MaxConcurrency: a.cfg.AI.MaxConcurrency,
		Temperature:    a.cfg.AI.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("text generator init failed: %w", err)
	}
	if gen == nil {
		a.components["text_generation"] = "unconfigured"
		a.logger.Warn("no API key configured, custom instructions and chat are unavailable")
		return nil, nil
	}
	a.components["text_generation"] = "gemini"
	a.logger.Info("text generation enabled", zap.String("model", a.cfg.AI.Model))
	return gen, nil
}

func (a *App) setupStorage(ctx context.Context) (crawler.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.storage = client
		blobStore, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Storage.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.components["storage"] = config.BackendGCS
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.Bucket))
		return blobStore, nil
	case config.BackendLocal:
		blobStore, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.components["storage"] = config.BackendLocal
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.Local.BaseDir))
		return blobStore, nil
	default:
		a.components["storage"] = config.BackendMemory
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

// setupArchive returns a nil interface when no DSN is configured.
func (a *App) setupArchive(ctx context.Context) (crawler.ResultArchive, error) {
	if a.cfg.Database.DSN == "" {
		a.components["archive"] = "disabled"
		a.logger.Info("no database DSN configured, job archive disabled")
		return nil, nil
	}
	archive, err := pgstore.NewArchive(ctx, pgstore.ArchiveConfig{
		DSN:             a.cfg.Database.DSN,
		JobsTable:       a.cfg.Database.JobsTable,
		PagesTable:      a.cfg.Database.PagesTable,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("archive init failed: %w", err)
	}
	a.archive = archive
	if err := archive.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	a.components["archive"] = "postgres"
	a.logger.Info("job archive initialized", zap.String("jobs_table", a.cfg.Database.JobsTable))
	return archive, nil
}

func (a *App) setupPublisher(ctx context.Context) (crawler.Publisher, error) {
	if a.cfg.PubSub.ProjectID == "" {
		a.components["events"] = "memory"
		a.logger.Info("no Pub/Sub project configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.gcpPublisher = gcppublisher.New(client.Topic(a.cfg.PubSub.TopicName))
	a.components["events"] = "pubsub"
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return a.gcpPublisher, nil
}
