package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/db"
	dbRedis "github.com/leadforge/leadforge/internal/db/redis"
	dbSqlite "github.com/leadforge/leadforge/internal/db/sqlite"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/engine"
	logpkg "github.com/leadforge/leadforge/internal/logger"
	"github.com/leadforge/leadforge/internal/metrics"
	counterrepo "github.com/leadforge/leadforge/internal/repository/counter"
	"github.com/leadforge/leadforge/internal/repository/embcache"
	leadrepo "github.com/leadforge/leadforge/internal/repository/lead"
	"github.com/leadforge/leadforge/internal/transport/dryrun"
	"github.com/leadforge/leadforge/internal/transport/httpapi"
	"github.com/leadforge/leadforge/internal/transport/openai"
	classifieruc "github.com/leadforge/leadforge/internal/usecase/classifier"
	healthuc "github.com/leadforge/leadforge/internal/usecase/health"
	"github.com/leadforge/leadforge/internal/usecase/limits"
	"github.com/leadforge/leadforge/internal/usecase/llmbudget"
	outreachuc "github.com/leadforge/leadforge/internal/usecase/outreach"
	qualifyuc "github.com/leadforge/leadforge/internal/usecase/qualify"
	rankinguc "github.com/leadforge/leadforge/internal/usecase/ranking"
	"github.com/leadforge/leadforge/internal/version"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the qualification daemon and diagnostics API",
	Run:   runDaemon,
}

func runDaemon(_ *cobra.Command, _ []string) {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting leadforge daemon",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	store := openStore(&cfg, logger)
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Counters back the action limiters and the token budget. TTLs outlive
	// their windows so a restart never forgets today's spend.
	counters := counterrepo.New(store, 48*time.Hour, 9*24*time.Hour, 62*24*time.Hour)

	budget := newBudgetChecker(ctx, &cfg, counters, logger)

	// Build embedder chain — composition root
	baseEmbedder := openai.NewEmbedder(&openai.EmbedderConfig{
		APIKey:     cfg.Embedding.Provider.APIKey,
		BaseURL:    cfg.Embedding.Provider.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	embedder := buildEmbedder(baseEmbedder, &cfg, store, budget, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.EmbeddingCache()),
	)

	baseOracle := openai.NewQualifier(&openai.QualifierConfig{
		APIKey:    cfg.Oracle.Provider.APIKey,
		BaseURL:   cfg.Oracle.Provider.BaseURL,
		Model:     cfg.Oracle.Model,
		MaxTokens: cfg.Oracle.MaxTokens,
	})
	var oracle domain.Oracle = baseOracle
	if budget != nil {
		oracle = llmbudget.NewOracle(baseOracle, budget, logger)
	}

	// Create repositories (domain-native, no adapters)
	leads := leadrepo.New(store)

	clf := classifieruc.New(classifieruc.Params{
		Estimators:         cfg.Classifier.NEstimators,
		MinTrainingSamples: cfg.Classifier.MinTrainingSamples,
		MinClassRatio:      cfg.Classifier.MinClassRatio,
		RetrainEvery:       cfg.Classifier.RetrainEvery,
		Seed:               cfg.Classifier.Seed,
	}, logger)

	// Warm-start from whatever labels are already stored.
	if ds, err := leads.LabeledDataset(ctx); err != nil {
		logger.Warn("Failed to load labeled dataset", zap.Error(err))
	} else if ds.Len() > 0 {
		if _, err := clf.Train(ctx, ds); err != nil {
			logger.Warn("Classifier warm-start failed", zap.Error(err))
		}
	}

	connectLimiter := limits.New("connect", cfg.Limits.Connect.Daily, cfg.Limits.Connect.Weekly, logger).
		WithStore(ctx, counters)
	followUpLimiter := limits.New("follow_up", cfg.Limits.FollowUp.Daily, cfg.Limits.FollowUp.Weekly, logger).
		WithStore(ctx, counters)

	// Create use case services
	ranker := rankinguc.New(clf, leads, cfg.Classifier.Seed, logger)
	outreachSvc := outreachuc.New(leads, ranker, dryrun.NewMessenger(logger), connectLimiter, followUpLimiter, logger)
	qualifySvc := qualifyuc.New(leads, embedder, oracle, clf, outreachSvc, qualifyuc.Params{
		EntropyThreshold: cfg.Selector.EntropyThreshold,
		ProductContext:   productContext(&cfg, logger),
		ObjectiveContext: cfg.Campaign.Objective,
	}, logger)

	// Health service
	healthSvc := healthuc.New(store, baseEmbedder, baseOracle)

	// Diagnostics API
	server := httpapi.NewServer(
		leads, clf,
		[]httpapi.LimiterState{connectLimiter, followUpLimiter},
		healthSvc, logger,
	)
	handler := server.Router(cfg.Auth.APIKeys)

	lanes := []engine.Lane{
		{
			Name:     "qualify",
			Interval: time.Duration(cfg.Engine.Lanes.QualifyIntervalSec) * time.Second,
			Step: func(ctx context.Context) (bool, error) {
				out, err := qualifySvc.Tick(ctx)
				if err != nil {
					return false, err
				}
				return out.Kind != qualifyuc.TickIdle, nil
			},
		},
		{
			Name:     "connect",
			Interval: time.Duration(cfg.Engine.Lanes.ConnectIntervalSec) * time.Second,
			Step: func(ctx context.Context) (bool, error) {
				res, err := outreachSvc.ConnectTick(ctx)
				if err != nil {
					return false, err
				}
				return res.Acted, nil
			},
		},
		{
			Name:     "follow_up",
			Interval: time.Duration(cfg.Engine.Lanes.FollowUpIntervalSec) * time.Second,
			Step: func(ctx context.Context) (bool, error) {
				res, err := outreachSvc.FollowUpTick(ctx)
				if err != nil {
					return false, err
				}
				return res.Acted, nil
			},
		},
	}
	eng := engine.New(lanes, workingHours(&cfg, logger), logger)

	// Graceful shutdown
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		eng.Run(runCtx)
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-runCtx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	<-engineDone

	logger.Info("Daemon stopped gracefully")
}

// openStore creates the database store based on the configured driver.
func openStore(cfg *config.Config, logger *zap.Logger) db.Store {
	var store db.Store
	var err error
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "sqlite":
		store, err = dbSqlite.NewStore(cfg.Database.Path)
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	return store
}

// newBudgetChecker builds the shared token budget tracker, nil when no
// limits are configured. Oracle and embedding calls share one spend bucket.
// Returns a nil interface (not a typed nil pointer!) in the unconfigured
// case. Go gotcha: (*Tracker)(nil) wrapped in a Checker != nil.
func newBudgetChecker(
	ctx context.Context, cfg *config.Config, counters *counterrepo.Store, logger *zap.Logger,
) llmbudget.Checker {
	b := cfg.Oracle.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := llmbudget.ActionWarn
	if b.Action == "reject" {
		action = llmbudget.ActionReject
	}
	return llmbudget.NewTracker("llm", b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger).
		WithStore(ctx, counters)
}

// buildEmbedder assembles the decorator chain:
// OpenAI -> Budget -> Cached -> DimensionChecked.
// The budget sits below the cache so cache hits never spend tokens. The
// dimension check is outermost so stale cached vectors from a prior model
// config are rejected too.
func buildEmbedder(
	base domain.Embedder, cfg *config.Config, store db.Store,
	budget llmbudget.Checker, logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if budget != nil {
		embedder = llmbudget.NewEmbedder(embedder, budget, logger)
	}
	if cfg.EmbeddingCache() {
		embedder = embcache.New(embedder, store, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger)
	}
	return domain.NewDimensionCheckedEmbedder(embedder, cfg.Embedding.Dimensions)
}

// productContext loads the product docs fed into every oracle prompt.
func productContext(cfg *config.Config, logger *zap.Logger) string {
	path := cfg.Campaign.ProductDocsPath
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("Failed to read product docs", zap.String("path", path), zap.Error(err))
	}
	return string(b)
}

// workingHours parses the configured gate, open all day when unset.
func workingHours(cfg *config.Config, logger *zap.Logger) engine.Hours {
	wh := cfg.Engine.WorkingHours
	if wh.Start == "" {
		return engine.AllDay()
	}
	hours, err := engine.ParseHours(wh.Start, wh.End)
	if err != nil {
		logger.Fatal("Invalid working hours", zap.Error(err))
	}
	return hours
}
