package blend

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetaPayload = `{"renderer_version": "4.2.1", "frame_count": 250, "fps": 24,
"engine": "CYCLES", "resolution_x": 1920, "resolution_y": 1080,
"total_objects": 12, "meshes": 7, "cameras": 1, "lights": 3, "empties": 1}`

func touchPreview(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "preview.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8}, 0644))
	return path
}

func TestClassifyAttempt_MetadataAndPreview(t *testing.T) {
	preview := touchPreview(t)
	stdout := []string{
		"Blender 4.2.1",
		metadataStartMarker,
		sampleMetaPayload,
		metadataEndMarker,
		previewStartMarker,
		`{"preview_rendered": true}`,
		previewEndMarker,
		driverFinishedLine,
	}

	result := classifyAttempt(stdout, nil, false, nil, preview)

	assert.Equal(t, attemptSuccess, result.status)
	require.NotNil(t, result.meta)
	assert.Equal(t, "4.2.1", result.meta.RendererVersion)
	assert.Equal(t, 250, result.meta.FrameCount)
	assert.Equal(t, "CYCLES", result.meta.Engine)
	assert.True(t, result.previewOK)
	assert.Empty(t, result.diagnostic)
	assert.Equal(t, 3, result.score())
}

func TestClassifyAttempt_MetadataWithoutPreview(t *testing.T) {
	stdout := []string{
		metadataStartMarker,
		sampleMetaPayload,
		metadataEndMarker,
		previewSkippedLine,
		driverFinishedLine,
	}

	result := classifyAttempt(stdout, nil, false, nil, filepath.Join(t.TempDir(), "absent.jpg"))

	assert.Equal(t, attemptSuccess, result.status)
	assert.NotNil(t, result.meta)
	assert.False(t, result.previewOK)
	assert.Contains(t, result.diagnostic, "no preview")
	assert.Equal(t, 1, result.score())
}

func TestClassifyAttempt_PreviewMarkerWithoutFileIsNotEnough(t *testing.T) {
	stdout := []string{
		previewStartMarker,
		`{"preview_rendered": true}`,
		previewEndMarker,
	}

	result := classifyAttempt(stdout, nil, false, nil, filepath.Join(t.TempDir(), "absent.jpg"))

	assert.Equal(t, attemptFailure, result.status)
	assert.False(t, result.previewOK)
}

func TestClassifyAttempt_PreviewOnlyIsDegradedSuccess(t *testing.T) {
	preview := touchPreview(t)
	stdout := []string{
		previewStartMarker,
		`{"preview_rendered": true}`,
		previewEndMarker,
		driverFinishedLine,
	}

	result := classifyAttempt(stdout, nil, false, nil, preview)

	assert.Equal(t, attemptSuccess, result.status)
	assert.Nil(t, result.meta)
	assert.True(t, result.previewOK)
	assert.Contains(t, result.diagnostic, "metadata missing")
	assert.Equal(t, 2, result.score())
}

func TestClassifyAttempt_CrashSignatureBeatsMetadata(t *testing.T) {
	preview := touchPreview(t)
	stdout := []string{
		metadataStartMarker,
		sampleMetaPayload,
		metadataEndMarker,
	}
	stderr := []string{"Segmentation fault (core dumped)"}

	result := classifyAttempt(stdout, stderr, false, nil, preview)

	assert.Equal(t, attemptCrash, result.status)
	assert.Nil(t, result.meta)
	assert.Contains(t, result.diagnostic, "segmentation fault")
}

func TestClassifyAttempt_LoadFailedIsCrash(t *testing.T) {
	result := classifyAttempt([]string{"Error: load failed: corrupt block"}, nil, false, nil, "")

	assert.Equal(t, attemptCrash, result.status)
}

func TestClassifyAttempt_TimeoutBeatsEverything(t *testing.T) {
	stdout := []string{
		metadataStartMarker,
		sampleMetaPayload,
		metadataEndMarker,
	}

	result := classifyAttempt(stdout, nil, true, nil, "")

	assert.Equal(t, attemptTimeout, result.status)
	assert.Nil(t, result.meta)
}

func TestClassifyAttempt_MalformedMetadataIsFailure(t *testing.T) {
	stdout := []string{
		metadataStartMarker,
		"{not json",
		metadataEndMarker,
	}

	result := classifyAttempt(stdout, nil, false, nil, "")

	assert.Equal(t, attemptFailure, result.status)
	assert.Contains(t, result.diagnostic, "unparseable")
}

func TestClassifyAttempt_NoMarkersReportsExitError(t *testing.T) {
	result := classifyAttempt([]string{"some log noise"}, nil, false, assert.AnError, "")

	assert.Equal(t, attemptFailure, result.status)
	assert.Contains(t, result.diagnostic, "no metadata markers")
	assert.Contains(t, result.diagnostic, assert.AnError.Error())
}

func TestExtractBetweenMarkers(t *testing.T) {
	lines := []string{"noise", "START", "a", "b", "END", "tail"}

	payload, ok := extractBetweenMarkers(lines, "START", "END")
	assert.True(t, ok)
	assert.Equal(t, "a\nb", payload)

	_, ok = extractBetweenMarkers([]string{"START", "a"}, "START", "END")
	assert.False(t, ok)

	_, ok = extractBetweenMarkers([]string{"a", "END"}, "START", "END")
	assert.False(t, ok)
}

func TestStreamProcess_CollectsOutputAndFinishMarker(t *testing.T) {
	cmd := exec.Command("sh", "-c", "echo line one; echo "+driverFinishedLine+"; sleep 5")
	setProcessGroup(cmd)

	start := time.Now()
	stdout, _, timedOut, _ := streamProcess(cmd, 10*time.Second, 10*time.Second)

	assert.False(t, timedOut)
	assert.Contains(t, stdout, "line one")
	assert.Less(t, time.Since(start), 5*time.Second, "finish marker must end the attempt before the trailing sleep")
}

func TestStreamProcess_InactivityTimeout(t *testing.T) {
	cmd := exec.Command("sh", "-c", "echo started; sleep 30")
	setProcessGroup(cmd)

	start := time.Now()
	stdout, _, timedOut, _ := streamProcess(cmd, time.Minute, 200*time.Millisecond)

	assert.True(t, timedOut)
	assert.Contains(t, stdout, "started")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestStreamProcess_AbsoluteTimeout(t *testing.T) {
	cmd := exec.Command("sh", "-c", "while true; do echo tick; sleep 0.05; done")
	setProcessGroup(cmd)

	start := time.Now()
	_, _, timedOut, _ := streamProcess(cmd, 300*time.Millisecond, time.Minute)

	assert.True(t, timedOut, "steady output must not defeat the absolute budget")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestStreamProcess_CapturesStderr(t *testing.T) {
	cmd := exec.Command("sh", "-c", "echo oops >&2; echo "+driverFinishedLine)
	setProcessGroup(cmd)

	_, stderr, timedOut, _ := streamProcess(cmd, 10*time.Second, 10*time.Second)

	assert.False(t, timedOut)
	assert.Contains(t, stderr, "oops")
}

// writeFakeRenderer installs a shell script posing as a renderer build.
// The driver invocation passes the preview destination as the first
// argument after '--', which lands in $7 for the scripts below.
func writeFakeRenderer(t *testing.T, binDir, name, script string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\n"+script), 0755))
}

const fakeMetadataScript = `echo SCENE_METADATA_START
echo '{"renderer_version": "4.0.2", "frame_count": 42, "fps": 24, "engine": "CYCLES", "resolution_x": 960, "resolution_y": 540, "total_objects": 3, "meshes": 2, "cameras": 1, "lights": 0, "empties": 0}'
echo SCENE_METADATA_END
echo PREVIEW_SKIPPED
echo DRIVER_FINISHED
`

func fakeExtractorConfig() Config {
	return Config{
		ModernTimeoutSecs: 10,
		LegacyTimeoutSecs: 10,
		InactivitySecs:    10,
		DisplayWrapper:    false,
	}
}

func TestExtract_FallsBackPastMissingCandidates(t *testing.T) {
	binDir := t.TempDir()
	writeFakeRenderer(t, binDir, "blender-4.0", fakeMetadataScript)
	t.Setenv("PATH", binDir)

	// An unparseable header gives no promotion hint, so the chain runs
	// in static preference order and 4.2/4.1 are tried (and missed)
	// before 4.0 answers.
	scene := writeSceneFile(t, []byte("NOTASCENE"))
	extractor := NewExtractor(fakeExtractorConfig())

	record := extractor.Extract(context.Background(), scene, filepath.Join(t.TempDir(), "preview.jpg"))

	require.NotNil(t, record.SceneVersion)
	assert.Equal(t, "4.0.2", *record.SceneVersion)
	require.NotNil(t, record.FrameCount)
	assert.Equal(t, 42, *record.FrameCount)
	require.NotNil(t, record.RenderEngine)
	assert.Equal(t, "CYCLES", *record.RenderEngine)

	assert.Contains(t, record.Error, "blender-4.2: not installed")
	assert.Contains(t, record.Error, "blender-4.1: not installed")
}

func TestExtract_PreviewBearingResultWinsOverMetadataOnly(t *testing.T) {
	binDir := t.TempDir()
	writeFakeRenderer(t, binDir, "blender-4.2", fakeMetadataScript)
	writeFakeRenderer(t, binDir, "blender-4.1", `printf 'x' > "$7"
echo PREVIEW_METADATA_UPDATE
echo '{"preview_rendered": true}'
echo PREVIEW_METADATA_END
echo DRIVER_FINISHED
`)
	t.Setenv("PATH", binDir)

	scene := writeSceneFile(t, []byte("NOTASCENE"))
	previewPath := filepath.Join(t.TempDir(), "preview.jpg")
	extractor := NewExtractor(fakeExtractorConfig())

	record := extractor.Extract(context.Background(), scene, previewPath)

	assert.Equal(t, previewPath, record.PreviewPath, "a later candidate's usable preview must beat an earlier metadata-only attempt")
	_, err := os.Stat(previewPath)
	assert.NoError(t, err)
}

func TestExtract_UnreferencedPreviewRemoved(t *testing.T) {
	binDir := t.TempDir()
	// Writes the preview file but never emits the preview marker block,
	// so the attempt classifies as metadata-only.
	writeFakeRenderer(t, binDir, "blender-4.2", `printf 'x' > "$7"
`+fakeMetadataScript)
	t.Setenv("PATH", binDir)

	scene := writeSceneFile(t, []byte("NOTASCENE"))
	previewPath := filepath.Join(t.TempDir(), "preview.jpg")
	extractor := NewExtractor(fakeExtractorConfig())

	record := extractor.Extract(context.Background(), scene, previewPath)

	assert.Empty(t, record.PreviewPath)
	require.NotNil(t, record.SceneVersion)
	_, err := os.Stat(previewPath)
	assert.True(t, os.IsNotExist(err), "a preview the record does not reference must be cleaned up")
}

func TestExtract_NoCandidateInstalled(t *testing.T) {
	scene := writeSceneFile(t, []byte("BLENDER-v306RENDH"))

	extractor := NewExtractor(Config{
		DefaultExecutable: "definitely-not-a-real-renderer",
		ModernTimeoutSecs: 1,
		LegacyTimeoutSecs: 1,
		InactivitySecs:    1,
	})

	t.Setenv("PATH", t.TempDir())
	record := extractor.Extract(context.Background(), scene, filepath.Join(t.TempDir(), "preview.jpg"))

	require.NotNil(t, record)
	assert.NotEmpty(t, record.Error)
	require.NotNil(t, record.SceneVersion, "header version survives renderer exhaustion")
	assert.Equal(t, "3.6", *record.SceneVersion)
}
