package media

import "time"

// Kind is the scanner's classification of a file, derived purely from
// its extension. The kind decides which extractor handles the file and
// whether it is eligible for sequence grouping.
type Kind string

const (
	KindImage       Kind = "image"
	KindVideo       Kind = "video"
	KindScene       Kind = "scene"
	KindAudio       Kind = "audio"
	KindCode        Kind = "code"
	KindSpreadsheet Kind = "spreadsheet"
	KindDocument    Kind = "document"
	KindCache       Kind = "cache"
	KindUnknown     Kind = "unknown"
)

// Record is the unit handed to the catalog: the common fields every file
// gets, plus whichever type-specific fields the extractor populated.
// Records are created fresh per processed item and discarded once
// upserted; the scanner holds no long-lived record state.
type Record struct {
	Path     string
	Name     string
	Kind     Kind
	Ext      string
	Size     int64
	Created  time.Time
	Modified time.Time

	Show    string
	Version *int
	Error   string
	Tags    []string

	// Visual media
	ResolutionX *int
	ResolutionY *int
	Duration    *float64
	Codec       *string
	FrameCount  *int
	PreviewPath string

	// Composite scene statistics
	SceneVersion *string
	RenderEngine *string
	TotalObjects *int
	Meshes       *int
	Cameras      *int
	Lights       *int
	Empties      *int

	// Text-ish payloads
	Language    *string
	LineCount   *int
	WordCount   *int
	RowCount    *int
	ColumnCount *int
	CacheKind   *string

	// Sequence span; set only when the record was derived from a
	// detected sequence group.
	IsSequence     bool
	SequenceStart  *int
	SequenceEnd    *int
	SequenceFrames *int

	MetadataEmbedding []float32
	VisualEmbedding   []float32
}

// NewRecord constructs a record carrying only the common fields.
func NewRecord(path string, kind Kind) *Record {
	return &Record{Path: path, Kind: kind}
}
