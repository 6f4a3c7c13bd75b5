// Package internal wires the scanner's services together: storage
// adapter, catalog, extractors, renderer driver and the optional
// embedding sidecar.
package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/kettleby/slate/internal/blend"
	"github.com/kettleby/slate/internal/catalog"
	"github.com/kettleby/slate/internal/embedding"
	"github.com/kettleby/slate/internal/extract"
	"github.com/kettleby/slate/internal/scanner"
	"github.com/kettleby/slate/internal/storage"
	"github.com/kettleby/slate/pkg/logger"
)

var log = logger.Get("Core")

// Slate is the top-level object for the scanner, responsible for
// initialising the stores, adapters and services and running the scan.
type Slate struct {
	config  SlateConfig
	catalog *catalog.Store
	adapter storage.Adapter
	scanner *scanner.Service
}

func New(config SlateConfig) (*Slate, error) {
	logger.Log.SetMinLoggingLevel(config.LogLevel)
	log.Emit(logger.DEBUG, "Bootstrapping scanner services using config: %#v\n", config)

	adapter, err := storage.New(config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to construct storage adapter: %w", err)
	}

	for _, dir := range []string{config.Storage.ScratchDir, config.Scanner.PreviewDir, config.Renderer.ScratchDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create scratch dir %s: %w", dir, err)
		}
	}

	store := catalog.New()
	service := scanner.New(
		config.Scanner,
		adapter,
		store,
		embedding.New(config.Embedding),
		blend.NewExtractor(config.Renderer),
		extract.NewSet(config.Extract),
	)

	return &Slate{
		config:  config,
		catalog: store,
		adapter: adapter,
		scanner: service,
	}, nil
}

// Run connects the catalog and executes either a single scan pass or
// the continuous watch loop, depending on configuration. To kill the
// watch loop, the calling code should cancel the context provided.
func (s *Slate) Run(ctx context.Context) error {
	if err := s.catalog.Connect(s.config.Database); err != nil {
		return fmt.Errorf("failed to connect catalog: %w", err)
	}
	defer s.catalog.Close()

	if s.config.Watch {
		watchRoot := ""
		if s.config.Storage.Mode == "local" {
			watchRoot = s.config.Storage.DataPath
		}
		return s.scanner.Watch(ctx, watchRoot)
	}

	summary, err := s.scanner.Scan(ctx)
	if err != nil {
		return err
	}

	if summary.Catalog != nil {
		log.Emit(logger.SUCCESS, "Catalog now holds %d assets (%d bytes)\n",
			summary.Catalog.TotalAssets, summary.Catalog.TotalBytes)
		for kind, count := range summary.Catalog.CountByKind {
			log.Infof("  %s: %d\n", kind, count)
		}
	}

	return nil
}
