package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kettleby/slate/internal/media"
)

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		expected []string
	}{
		{"both empty", nil, nil, []string{}},
		{"incoming only", nil, []string{"show:alpha", "v:3"}, []string{"show:alpha", "v:3"}},
		{"existing preserved first", []string{"curated"}, []string{"show:alpha"}, []string{"curated", "show:alpha"}},
		{"duplicates dropped", []string{"a", "b"}, []string{"b", "c"}, []string{"a", "b", "c"}},
		{"existing dupes collapsed", []string{"a", "a"}, nil, []string{"a"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, mergeTags(test.existing, test.incoming))
		})
	}
}

func TestJsonColumn_RoundTrip(t *testing.T) {
	tags := jsonColumn[string]{"show:alpha", "kind:image"}
	value, err := tags.Value()
	require.NoError(t, err)

	var scanned jsonColumn[string]
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, tags, scanned)
}

func TestJsonColumn_NilValuesAsEmptyArray(t *testing.T) {
	var tags jsonColumn[string]
	value, err := tags.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)
}

func TestJsonColumn_ScanNil(t *testing.T) {
	scanned := jsonColumn[float32]{1, 2}
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, []float32(scanned))
}

func TestJsonColumn_ScanRejectsUnexpectedType(t *testing.T) {
	var scanned jsonColumn[string]
	assert.Error(t, scanned.Scan(42))
}

func TestRowFromRecord(t *testing.T) {
	now := time.Now()
	duration := 12.5
	version := 3

	record := media.NewRecord("/shows/alpha/shot.mp4", media.KindVideo)
	record.Name = "shot.mp4"
	record.Ext = ".mp4"
	record.Size = 1024
	record.Created = now
	record.Modified = now
	record.Show = "alpha"
	record.Version = &version
	record.Duration = &duration
	record.Tags = []string{"show:alpha"}

	row := rowFromRecord(record)

	assert.Equal(t, "/shows/alpha/shot.mp4", row.FilePath)
	assert.Equal(t, "video", row.Kind)
	assert.Equal(t, int64(1024), row.Size)
	assert.Equal(t, &duration, row.Duration)
	assert.Equal(t, &version, row.Version)
	assert.Nil(t, row.Error, "empty error string must persist as NULL")
	assert.Nil(t, row.PreviewPath)
	assert.Equal(t, jsonColumn[string]{"show:alpha"}, row.Tags)
}

func TestRowFromRecord_ErrorAndPreviewKept(t *testing.T) {
	record := media.NewRecord("/x/bad.blend", media.KindScene)
	record.Error = "renderer crashed"
	record.PreviewPath = "/tmp/preview.jpg"

	row := rowFromRecord(record)

	require.NotNil(t, row.Error)
	assert.Equal(t, "renderer crashed", *row.Error)
	require.NotNil(t, row.PreviewPath)
	assert.Equal(t, "/tmp/preview.jpg", *row.PreviewPath)
}

func TestStoreOperationsRequireConnection(t *testing.T) {
	store := New()

	_, err := store.AllPaths()
	assert.Error(t, err)

	_, err = store.Aggregate()
	assert.Error(t, err)

	err = store.Upsert(media.NewRecord("/x", media.KindUnknown))
	assert.Error(t, err)

	assert.NoError(t, store.Close())
}
