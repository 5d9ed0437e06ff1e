package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/config"
	logpkg "github.com/leadforge/leadforge/internal/logger"
	counterrepo "github.com/leadforge/leadforge/internal/repository/counter"
	leadrepo "github.com/leadforge/leadforge/internal/repository/lead"
	"github.com/leadforge/leadforge/internal/transport/openai"
	"github.com/leadforge/leadforge/internal/usecase/seeds"
)

var seedFile string

var seedImportCmd = &cobra.Command{
	Use:   "seed-import",
	Short: "Import known-good profiles as labeled positives",
	Long: `seed-import embeds and stores seed profiles from a CSV file. Seeds are
labeled positive without an oracle call and enter the connect backlog
directly; they anchor the positive centroid and the first training sets.`,
	Run: runSeedImport,
}

func init() {
	seedImportCmd.Flags().StringVar(&seedFile, "file", "", "Seed CSV path (defaults to campaign.seeds_path)")
}

func runSeedImport(_ *cobra.Command, _ []string) {
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

	path := seedFile
	if path == "" {
		path = cfg.Campaign.SeedsPath
	}
	if path == "" {
		logger.Fatal("No seed file: pass --file or set campaign.seeds_path")
	}

	store := openStore(&cfg, logger)
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	// Seed embeddings spend against the same budget the daemon uses.
	counters := counterrepo.New(store, 48*time.Hour, 9*24*time.Hour, 62*24*time.Hour)
	budget := newBudgetChecker(ctx, &cfg, counters, logger)

	baseEmbedder := openai.NewEmbedder(&openai.EmbedderConfig{
		APIKey:     cfg.Embedding.Provider.APIKey,
		BaseURL:    cfg.Embedding.Provider.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	embedder := buildEmbedder(baseEmbedder, &cfg, store, budget, logger)

	loader := seeds.New(leadrepo.New(store), embedder, logger)

	n, err := loader.ImportFile(ctx, path)
	if err != nil {
		logger.Fatal("Seed import failed", zap.String("path", path), zap.Error(err))
	}

	logger.Info("Seeds imported", zap.Int("count", n), zap.String("path", path))
	fmt.Printf("imported %d seeds from %s\n", n, path)
}
