// Package scanner orchestrates a scan: enumerate the collection, fold
// frame sequences into single logical assets, extract metadata with the
// per-type extractors, and upsert everything into the catalog. One
// failing file never aborts the scan; only a failed enumeration does.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/kettleby/slate/internal/catalog"
	"github.com/kettleby/slate/internal/extract"
	"github.com/kettleby/slate/internal/media"
	"github.com/kettleby/slate/internal/storage"
	"github.com/kettleby/slate/pkg/logger"
)

var log = logger.Get("Scanner")

type Config struct {
	MinSequenceLength  int    `yaml:"min_sequence_length" env:"MIN_SEQUENCE_LENGTH" env-default:"5"`
	MinSequencePadding int    `yaml:"min_sequence_padding" env:"MIN_SEQUENCE_PADDING" env-default:"3"`
	Parallelism        int    `yaml:"parallelism" env:"SCAN_PARALLELISM" env-default:"4"`
	Resume             bool   `yaml:"resume" env:"SCAN_RESUME" env-default:"false"`
	PreviewDir         string `yaml:"preview_dir" env:"PREVIEW_DIR"`
	ForceSyncSeconds   int    `yaml:"force_sync_seconds" env:"FORCE_SYNC_SECONDS" env-default:"3600"`
}

// Catalog is the persistence surface the scanner depends on.
type Catalog interface {
	Upsert(record *media.Record) error
	AllPaths() (map[string]struct{}, error)
	Aggregate() (*catalog.Statistics, error)
}

// Embedder vectorises records; a disabled embedder is a valid no-op.
type Embedder interface {
	Enabled() bool
	EmbedMetadata(ctx context.Context, record *media.Record) ([]float32, error)
	EmbedImage(ctx context.Context, imagePath string) ([]float32, error)
}

// SceneExtractor drives the external renderer for composite scene
// files. It runs on the sequential lane because renderer instances are
// too heavy to run concurrently.
type SceneExtractor interface {
	Extract(ctx context.Context, localPath, previewPath string) *media.Record
}

type Service struct {
	config     Config
	adapter    storage.Adapter
	catalog    Catalog
	embedder   Embedder
	scenes     SceneExtractor
	extractors *extract.Set
}

func New(config Config, adapter storage.Adapter, cat Catalog, embedder Embedder, scenes SceneExtractor, extractors *extract.Set) *Service {
	return &Service{
		config:     config,
		adapter:    adapter,
		catalog:    cat,
		embedder:   embedder,
		scenes:     scenes,
		extractors: extractors,
	}
}

// Summary is the outcome of one scan pass.
type Summary struct {
	mu sync.Mutex

	Scanned    int
	Sequences  int
	Skipped    int
	Errors     int
	Embeddings int
	ByKind     map[media.Kind]int

	// Catalog holds the post-scan aggregate view; nil when the
	// aggregation query itself failed.
	Catalog *catalog.Statistics
}

func newSummary() *Summary {
	return &Summary{ByKind: make(map[media.Kind]int)}
}

func (s *Summary) recordScanned(kind media.Kind, isSequence bool, hadError bool, embeddings int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Scanned++
	s.ByKind[kind]++
	if isSequence {
		s.Sequences++
	}
	if hadError {
		s.Errors++
	}
	s.Embeddings += embeddings
}

func (s *Summary) recordSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

func (s *Summary) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors++
}

// previewPathFor allocates a fresh destination for a rendered preview.
func (s *Service) previewPathFor() string {
	dir := s.config.PreviewDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("preview-%s.jpg", uuid.New()))
}
