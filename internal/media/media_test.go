package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForExtension(t *testing.T) {
	tests := map[string]Kind{
		".png":   KindImage,
		".EXR":   KindImage,
		".mp4":   KindVideo,
		".blend": KindScene,
		".wav":   KindAudio,
		".py":    KindCode,
		".csv":   KindSpreadsheet,
		".txt":   KindDocument,
		".bphys": KindCache,
		".xyz":   KindUnknown,
		"":       KindUnknown,
	}

	for ext, expected := range tests {
		assert.Equal(t, expected, KindForExtension(ext), ext)
	}
}

func TestKindForPath(t *testing.T) {
	assert.Equal(t, KindImage, KindForPath("/shows/alpha/render_0001.png"))
	assert.Equal(t, KindUnknown, KindForPath("/shows/alpha/no_extension"))
}

func TestSequenceEligibleExtensions(t *testing.T) {
	eligible := SequenceEligibleExtensions()

	assert.True(t, eligible[".png"])
	assert.True(t, eligible[".exr"])
	assert.True(t, eligible[".bphys"])
	assert.False(t, eligible[".mp4"], "video files never participate in sequence grouping")
	assert.False(t, eligible[".blend"])
}

func TestCacheKindForExtension(t *testing.T) {
	assert.Equal(t, "physics", CacheKindForExtension(".bphys"))
	assert.Equal(t, "alembic", CacheKindForExtension(".abc"))
	assert.Equal(t, "vdb", CacheKindForExtension(".vdb"))
	assert.Equal(t, "geometry", CacheKindForExtension(".bgeo"))
	assert.Equal(t, "geometry", CacheKindForExtension(".geo"))
	assert.Equal(t, "unknown", CacheKindForExtension(".png"))
}

func TestShowFromPath(t *testing.T) {
	assert.Equal(t, "alpha", ShowFromPath("/data/shows/alpha/shot_010/render.png"))
	assert.Equal(t, "alpha", ShowFromPath(`D:\data\Shows\Alpha\shot.png`), "backslash paths and casing are normalised")
	assert.Equal(t, "", ShowFromPath("/data/library/textures/wood.png"))
}

func TestVersionFromName(t *testing.T) {
	version := VersionFromName("asset_v003.blend")
	require.NotNil(t, version)
	assert.Equal(t, 3, *version)

	version = VersionFromName("notes_v_12.txt")
	require.NotNil(t, version)
	assert.Equal(t, 12, *version)

	assert.Nil(t, VersionFromName("render_0001.png"))
}
