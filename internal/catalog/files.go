package catalog

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kettleby/slate/internal/media"
)

// jsonColumn stores a slice as a JSONB column. Used for tags and the
// embedding vectors; none of them are queried relationally.
type jsonColumn[T any] []T

func (c jsonColumn[T]) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *jsonColumn[T]) Scan(src any) error {
	if src == nil {
		*c = nil
		return nil
	}

	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected JSONB source type %T", src)
	}
	return json.Unmarshal(raw, c)
}

// fileRow is the database shape of a media.Record.
type fileRow struct {
	FilePath   string    `db:"file_path"`
	Name       string    `db:"name"`
	Kind       string    `db:"kind"`
	Extension  string    `db:"extension"`
	Size       int64     `db:"size"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`

	Show    string             `db:"show"`
	Version *int               `db:"version"`
	Error   *string            `db:"error"`
	Tags    jsonColumn[string] `db:"tags"`

	ResolutionX *int     `db:"resolution_x"`
	ResolutionY *int     `db:"resolution_y"`
	Duration    *float64 `db:"duration"`
	Codec       *string  `db:"codec"`
	FrameCount  *int     `db:"frame_count"`
	PreviewPath *string  `db:"preview_path"`

	SceneVersion *string `db:"scene_version"`
	RenderEngine *string `db:"render_engine"`
	TotalObjects *int    `db:"total_objects"`
	Meshes       *int    `db:"meshes"`
	Cameras      *int    `db:"cameras"`
	Lights       *int    `db:"lights"`
	Empties      *int    `db:"empties"`

	Language    *string `db:"language"`
	LineCount   *int    `db:"line_count"`
	WordCount   *int    `db:"word_count"`
	RowCount    *int    `db:"row_count"`
	ColumnCount *int    `db:"column_count"`
	CacheKind   *string `db:"cache_kind"`

	IsSequence     bool `db:"is_sequence"`
	SequenceStart  *int `db:"sequence_start"`
	SequenceEnd    *int `db:"sequence_end"`
	SequenceFrames *int `db:"sequence_frames"`

	MetadataEmbedding jsonColumn[float32] `db:"metadata_embedding"`
	VisualEmbedding   jsonColumn[float32] `db:"visual_embedding"`
}

func rowFromRecord(record *media.Record) *fileRow {
	row := &fileRow{
		FilePath:   record.Path,
		Name:       record.Name,
		Kind:       string(record.Kind),
		Extension:  record.Ext,
		Size:       record.Size,
		CreatedAt:  record.Created,
		ModifiedAt: record.Modified,

		Show:    record.Show,
		Version: record.Version,
		Error:   nullableString(record.Error),
		Tags:    jsonColumn[string](record.Tags),

		ResolutionX: record.ResolutionX,
		ResolutionY: record.ResolutionY,
		Duration:    record.Duration,
		Codec:       record.Codec,
		FrameCount:  record.FrameCount,
		PreviewPath: nullableString(record.PreviewPath),

		SceneVersion: record.SceneVersion,
		RenderEngine: record.RenderEngine,
		TotalObjects: record.TotalObjects,
		Meshes:       record.Meshes,
		Cameras:      record.Cameras,
		Lights:       record.Lights,
		Empties:      record.Empties,

		Language:    record.Language,
		LineCount:   record.LineCount,
		WordCount:   record.WordCount,
		RowCount:    record.RowCount,
		ColumnCount: record.ColumnCount,
		CacheKind:   record.CacheKind,

		IsSequence:     record.IsSequence,
		SequenceStart:  record.SequenceStart,
		SequenceEnd:    record.SequenceEnd,
		SequenceFrames: record.SequenceFrames,

		MetadataEmbedding: jsonColumn[float32](record.MetadataEmbedding),
		VisualEmbedding:   jsonColumn[float32](record.VisualEmbedding),
	}

	return row
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const upsertFileQuery = `
INSERT INTO files (
	file_path, name, kind, extension, size, created_at, modified_at,
	show, version, error, tags,
	resolution_x, resolution_y, duration, codec, frame_count, preview_path,
	scene_version, render_engine, total_objects, meshes, cameras, lights, empties,
	language, line_count, word_count, row_count, column_count, cache_kind,
	is_sequence, sequence_start, sequence_end, sequence_frames,
	metadata_embedding, visual_embedding
) VALUES (
	:file_path, :name, :kind, :extension, :size, :created_at, :modified_at,
	:show, :version, :error, :tags,
	:resolution_x, :resolution_y, :duration, :codec, :frame_count, :preview_path,
	:scene_version, :render_engine, :total_objects, :meshes, :cameras, :lights, :empties,
	:language, :line_count, :word_count, :row_count, :column_count, :cache_kind,
	:is_sequence, :sequence_start, :sequence_end, :sequence_frames,
	:metadata_embedding, :visual_embedding
)
ON CONFLICT (file_path) DO UPDATE SET
	name = EXCLUDED.name,
	kind = EXCLUDED.kind,
	extension = EXCLUDED.extension,
	size = EXCLUDED.size,
	created_at = EXCLUDED.created_at,
	modified_at = EXCLUDED.modified_at,
	show = EXCLUDED.show,
	version = EXCLUDED.version,
	error = EXCLUDED.error,
	tags = EXCLUDED.tags,
	resolution_x = EXCLUDED.resolution_x,
	resolution_y = EXCLUDED.resolution_y,
	duration = EXCLUDED.duration,
	codec = EXCLUDED.codec,
	frame_count = EXCLUDED.frame_count,
	preview_path = EXCLUDED.preview_path,
	scene_version = EXCLUDED.scene_version,
	render_engine = EXCLUDED.render_engine,
	total_objects = EXCLUDED.total_objects,
	meshes = EXCLUDED.meshes,
	cameras = EXCLUDED.cameras,
	lights = EXCLUDED.lights,
	empties = EXCLUDED.empties,
	language = EXCLUDED.language,
	line_count = EXCLUDED.line_count,
	word_count = EXCLUDED.word_count,
	row_count = EXCLUDED.row_count,
	column_count = EXCLUDED.column_count,
	cache_kind = EXCLUDED.cache_kind,
	is_sequence = EXCLUDED.is_sequence,
	sequence_start = EXCLUDED.sequence_start,
	sequence_end = EXCLUDED.sequence_end,
	sequence_frames = EXCLUDED.sequence_frames,
	metadata_embedding = EXCLUDED.metadata_embedding,
	visual_embedding = EXCLUDED.visual_embedding,
	last_scanned_at = now()
`

// Upsert writes one record, keyed by its path. Tags already stored on
// the row are merged with the incoming ones rather than replaced, so
// manual curation survives rescans.
func (s *Store) Upsert(record *media.Record) error {
	return s.WrapTx(func(tx *sqlx.Tx) error {
		var existing jsonColumn[string]
		err := tx.Get(&existing, `SELECT tags FROM files WHERE file_path = $1`, record.Path)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read existing tags for %s: %w", record.Path, err)
		}

		row := rowFromRecord(record)
		row.Tags = jsonColumn[string](mergeTags(existing, record.Tags))

		if _, err := tx.NamedExec(upsertFileQuery, row); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", record.Path, err)
		}
		return nil
	})
}

// mergeTags unions incoming tags into the existing set, preserving the
// existing order and appending new tags in their incoming order.
func mergeTags(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, tag := range existing {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	for _, tag := range incoming {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}

	return merged
}

// AllPaths snapshots every catalogued path. The scanner uses this to
// skip already-seen items when resuming.
func (s *Store) AllPaths() (map[string]struct{}, error) {
	if s.db == nil {
		return nil, errors.New("catalog has not yet connected")
	}

	var paths []string
	if err := s.db.Select(&paths, `SELECT file_path FROM files`); err != nil {
		return nil, fmt.Errorf("failed to snapshot catalogued paths: %w", err)
	}

	set := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		set[path] = struct{}{}
	}
	return set, nil
}

// Aggregate returns the catalog-wide statistics for the scan summary.
func (s *Store) Aggregate() (*Statistics, error) {
	if s.db == nil {
		return nil, errors.New("catalog has not yet connected")
	}

	stats := &Statistics{CountByKind: make(map[string]int64)}

	row := s.db.QueryRowx(`
		SELECT count(*),
		       coalesce(sum(size), 0),
		       count(*) FILTER (WHERE is_sequence),
		       count(*) FILTER (WHERE error IS NOT NULL)
		FROM files`)
	if err := row.Scan(&stats.TotalAssets, &stats.TotalBytes, &stats.SequenceCount, &stats.ErrorCount); err != nil {
		return nil, fmt.Errorf("failed to aggregate catalog totals: %w", err)
	}

	rows, err := s.db.Queryx(`SELECT kind, count(*) FROM files GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate catalog kinds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		stats.CountByKind[kind] = count
	}

	return stats, rows.Err()
}
