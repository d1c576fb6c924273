// Command policyqa answers claims questions about insurance policy PDFs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/extractor/pdf"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/storage/cache"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/watch/fsnotify"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/services"
	"github.com/custodia-labs/policyqa/internal/normalisers/pages"
	"github.com/custodia-labs/policyqa/internal/postprocessors/chunker"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal.
	_ = godotenv.Load() //nolint:errcheck // optional file

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetInitialiser(wire)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// wire builds every service from the stored settings.
func wire(opts cli.Options) (*cli.Services, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("config store: %w", err)
	}
	settingsService := services.NewSettingsService(store)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	models, err := ai.NewServices(settings)
	if err != nil {
		return nil, fmt.Errorf("model services: %w", err)
	}

	extractor, err := pdf.Select(settings.Extractor)
	if err != nil {
		models.Close()
		return nil, err
	}

	normaliser := pages.New(
		pages.WithHeaderLines(settings.Normaliser.HeaderLines),
		pages.WithFooterLines(settings.Normaliser.FooterLines),
		pages.WithThresholdPercent(settings.Normaliser.ThresholdPercent),
	)
	splitter := chunker.New(
		chunker.WithChunkSize(settings.Chunk.Size),
		chunker.WithOverlap(settings.Chunk.Overlap),
	)

	cacheDir := settings.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(configDir, "cached_files")
	}
	caches, err := cache.NewStore(cacheDir)
	if err != nil {
		models.Close()
		return nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		models.Close()
		return nil, err
	}

	newIndex := func() driven.VectorIndex { return flat.New(0) }

	index := services.NewIndexService(extractor, normaliser, splitter, models.Embedding, caches, newIndex)
	retrieval := services.NewRetrievalService(caches, models.Embedding, models.Reranker, settings.Retrieval)
	answer := services.NewAnswerService(models.LLM, prompts)
	chat := services.NewChatService(index, retrieval, answer, fsnotify.Factory)

	return &cli.Services{
		Index:     index,
		Retrieval: retrieval,
		Answer:    answer,
		Chat:      chat,
		Cache:     services.NewCacheService(caches),
		Settings:  settingsService,
		Check: func(ctx context.Context) []domain.ServiceStatus {
			return ai.Check(ctx, models)
		},
		Close: func() error {
			models.Close()
			return nil
		},
	}, nil
}
