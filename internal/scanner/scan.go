package scanner

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/kettleby/slate/internal/media"
	"github.com/kettleby/slate/internal/sequence"
	"github.com/kettleby/slate/internal/storage"
	"github.com/kettleby/slate/pkg/worker"
)

// Scan runs one full pass over the collection. Enumeration failure is
// the only fatal outcome; every per-item failure is contained, counted
// and catalogued on the item's own record.
func (s *Service) Scan(ctx context.Context) (*Summary, error) {
	entries, err := s.adapter.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection enumeration failed: %w", err)
	}
	log.Infof("Enumerated %d files\n", len(entries))

	byPath := make(map[string]storage.Entry, len(entries))
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		byPath[entry.Path] = entry
		paths = append(paths, entry.Path)
	}

	groups, standalone := sequence.Detect(paths, s.config.MinSequenceLength, s.config.MinSequencePadding, media.SequenceEligibleExtensions())
	log.Infof("Detected %d frame sequences, %d standalone files\n", len(groups), len(standalone))

	known := s.knownPaths()
	summary := newSummary()

	for _, group := range groups {
		if _, seen := known[group.PatternPath]; seen {
			summary.recordSkipped()
			continue
		}
		s.processGroup(ctx, group, byPath, summary)
	}

	// Scene files are shunted onto a sequential lane: each one spawns a
	// renderer process, and running several at once starves the box.
	parallel := make([]storage.Entry, 0, len(standalone))
	scenes := make([]storage.Entry, 0)
	for _, path := range standalone {
		if _, seen := known[path]; seen {
			summary.recordSkipped()
			continue
		}

		entry := byPath[path]
		if media.KindForExtension(entry.Ext) == media.KindScene {
			scenes = append(scenes, entry)
		} else {
			parallel = append(parallel, entry)
		}
	}

	s.drainParallel(ctx, parallel, summary)

	for _, entry := range scenes {
		s.processEntry(ctx, entry, summary)
	}

	if stats, err := s.catalog.Aggregate(); err != nil {
		log.Warnf("Catalog aggregation failed: %v\n", err)
	} else {
		summary.Catalog = stats
	}

	log.Infof("Scan complete: %d scanned (%d sequences), %d skipped, %d errors\n",
		summary.Scanned, summary.Sequences, summary.Skipped, summary.Errors)
	return summary, nil
}

// drainParallel pushes the non-scene standalone entries through the
// worker pool. The queue is fully populated before the pool starts, so
// closing the pool doubles as drain-and-join.
func (s *Service) drainParallel(ctx context.Context, entries []storage.Entry, summary *Summary) {
	if len(entries) == 0 {
		return
	}

	queue := &entryQueue{entries: entries}
	pool := worker.NewWorkerPool()

	parallelism := s.config.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	for i := 0; i < parallelism; i++ {
		label := fmt.Sprintf("scan-worker-%d", i)
		pool.PushWorker(worker.NewWorker(label, func(w worker.Worker) (bool, error) {
			entry, ok := queue.claim()
			if !ok {
				return false, nil
			}

			s.processEntry(ctx, entry, summary)
			return true, nil
		}))
	}

	pool.Start()
	pool.Close()
}

// entryQueue is the claim-based work queue the pool workers drain.
type entryQueue struct {
	mu      sync.Mutex
	entries []storage.Entry
	next    int
}

func (q *entryQueue) claim() (storage.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.next >= len(q.entries) {
		return storage.Entry{}, false
	}

	entry := q.entries[q.next]
	q.next++
	return entry, true
}

// knownPaths snapshots the catalog when resuming; outside resume mode
// every path is treated as new.
func (s *Service) knownPaths() map[string]struct{} {
	if !s.config.Resume {
		return map[string]struct{}{}
	}

	known, err := s.catalog.AllPaths()
	if err != nil {
		log.Warnf("Resume snapshot failed, rescanning everything: %v\n", err)
		return map[string]struct{}{}
	}

	log.Infof("Resuming scan: %d paths already catalogued\n", len(known))
	return known
}

// processEntry extracts and catalogues one standalone file. Panics in
// extractors are contained here so a single malformed file cannot take
// down a worker.
func (s *Service) processEntry(ctx context.Context, entry storage.Entry, summary *Summary) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic while processing %s: %v\n", entry.Path, r)
			summary.recordFailure()
		}
	}()

	kind := media.KindForExtension(entry.Ext)

	localPath, release, err := s.adapter.Scope(ctx, entry.Path)
	if err != nil {
		log.Errorf("Failed to scope %s: %v\n", entry.Path, err)
		record := media.NewRecord(entry.Path, kind)
		record.Error = fmt.Sprintf("failed to localize file: %v", err)
		s.finalize(ctx, record, entry, summary)
		return
	}
	defer release()

	var record *media.Record
	if kind == media.KindScene {
		previewPath := s.previewPathFor()
		record = s.scenes.Extract(ctx, localPath, previewPath)
	} else {
		record = s.extractors.ForKind(kind)(localPath)
	}

	record.Kind = kind
	s.finalize(ctx, record, entry, summary)
}

// processGroup catalogues a whole frame sequence as one logical asset,
// sampling metadata from the representative middle frame.
func (s *Service) processGroup(ctx context.Context, group sequence.Group, byPath map[string]storage.Entry, summary *Summary) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic while processing sequence %s: %v\n", group.PatternPath, r)
			summary.recordFailure()
		}
	}()

	kind := media.KindForExtension(group.Extension)
	representative := group.Representative()

	var record *media.Record
	localPath, release, err := s.adapter.Scope(ctx, representative)
	if err != nil {
		log.Errorf("Failed to scope sequence sample %s: %v\n", representative, err)
		record = media.NewRecord(group.PatternPath, kind)
		record.Error = fmt.Sprintf("failed to localize sequence sample: %v", err)
	} else {
		defer release()
		record = s.extractors.ForKind(kind)(localPath)
	}

	// The record describes the sequence, not the sampled frame.
	start, end, frames := group.Start, group.End, group.FrameCount()
	record.Kind = kind
	record.IsSequence = true
	record.SequenceStart = &start
	record.SequenceEnd = &end
	record.SequenceFrames = &frames

	entry := storage.Entry{
		Path: group.PatternPath,
		Dir:  group.Directory,
		Name: group.PatternName,
		Ext:  group.Extension,
	}
	for i, member := range group.Members {
		memberEntry, ok := byPath[member]
		if !ok {
			continue
		}

		entry.Size += memberEntry.Size
		if i == 0 || memberEntry.Created.Before(entry.Created) {
			entry.Created = memberEntry.Created
		}
		if memberEntry.Modified.After(entry.Modified) {
			entry.Modified = memberEntry.Modified
		}
	}

	s.finalize(ctx, record, entry, summary)
}

// finalize stamps the collection-level fields onto the record, attaches
// embeddings and previews, and upserts. The extractor's view of the
// path is always replaced with the collection path so remote scans
// never catalogue scratch locations.
func (s *Service) finalize(ctx context.Context, record *media.Record, entry storage.Entry, summary *Summary) {
	record.Path = entry.Path
	record.Name = entry.Name
	record.Ext = entry.Ext
	record.Size = entry.Size
	record.Created = entry.Created
	record.Modified = entry.Modified

	record.Show = media.ShowFromPath(entry.Path)
	record.Version = media.VersionFromName(entry.Name)

	record.Tags = appendTag(record.Tags, "kind:"+string(record.Kind))
	if record.Show != "" {
		record.Tags = appendTag(record.Tags, "show:"+record.Show)
	}
	if record.IsSequence {
		record.Tags = appendTag(record.Tags, "sequence")
	}

	embeddings := s.embed(ctx, record)

	if record.PreviewPath != "" {
		localPreview := record.PreviewPath
		record.PreviewPath = s.adapter.Upload(ctx, localPreview, "preview", entry.Name+".jpg")
		if record.PreviewPath != localPreview {
			os.Remove(localPreview)
		}
	}

	if err := s.catalog.Upsert(record); err != nil {
		log.Errorf("Failed to catalogue %s: %v\n", record.Path, err)
		summary.recordFailure()
		return
	}

	summary.recordScanned(record.Kind, record.IsSequence, record.Error != "", embeddings)
}

// embed attaches metadata and visual vectors when the embedder is
// enabled. Embedding failures are logged and dropped; they never block
// cataloguing.
func (s *Service) embed(ctx context.Context, record *media.Record) int {
	if s.embedder == nil || !s.embedder.Enabled() {
		return 0
	}

	stored := 0
	if vector, err := s.embedder.EmbedMetadata(ctx, record); err != nil {
		log.Warnf("Metadata embedding failed for %s: %v\n", record.Path, err)
	} else if len(vector) > 0 {
		record.MetadataEmbedding = vector
		stored++
	}

	if record.PreviewPath != "" {
		if vector, err := s.embedder.EmbedImage(ctx, record.PreviewPath); err != nil {
			log.Warnf("Visual embedding failed for %s: %v\n", record.Path, err)
		} else if len(vector) > 0 {
			record.VisualEmbedding = vector
			stored++
		}
	}

	return stored
}

func appendTag(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}
