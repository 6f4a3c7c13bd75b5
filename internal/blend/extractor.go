package blend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/kettleby/slate/internal/media"
	"github.com/kettleby/slate/pkg/logger"
)

var log = logger.Get("SceneExtract")

// Config parameterises the resilient renderer driver.
type Config struct {
	DefaultExecutable string `yaml:"renderer_binary" env:"RENDERER_BINARY" env-default:"blender"`
	ModernTimeoutSecs int    `yaml:"modern_timeout" env:"RENDERER_MODERN_TIMEOUT" env-default:"120"`
	LegacyTimeoutSecs int    `yaml:"legacy_timeout" env:"RENDERER_LEGACY_TIMEOUT" env-default:"45"`
	InactivitySecs    int    `yaml:"inactivity_timeout" env:"RENDERER_INACTIVITY_TIMEOUT" env-default:"30"`
	DisplayWrapper    bool   `yaml:"display_wrapper" env:"RENDERER_DISPLAY_WRAPPER" env-default:"true"`
	ScratchDir        string `yaml:"scratch_dir" env:"RENDERER_SCRATCH_DIR"`
}

// SceneMeta is the structured payload the driver script emits between
// the metadata markers.
type SceneMeta struct {
	RendererVersion string `json:"renderer_version"`
	FrameCount      int    `json:"frame_count"`
	FPS             int    `json:"fps"`
	Engine          string `json:"engine"`
	ResolutionX     int    `json:"resolution_x"`
	ResolutionY     int    `json:"resolution_y"`
	TotalObjects    int    `json:"total_objects"`
	Meshes          int    `json:"meshes"`
	Cameras         int    `json:"cameras"`
	Lights          int    `json:"lights"`
	Empties         int    `json:"empties"`
}

type attemptStatus int

const (
	attemptSuccess attemptStatus = iota
	attemptCrash
	attemptTimeout
	attemptFailure
)

func (s attemptStatus) String() string {
	return [...]string{"success", "crash", "timeout", "failure"}[s]
}

// attemptResult is the tagged outcome of driving one candidate.
type attemptResult struct {
	status     attemptStatus
	meta       *SceneMeta
	previewOK  bool
	diagnostic string
}

// score ranks partial results: a usable preview outweighs metadata,
// metadata breaks ties, and a full result beats everything.
func (r *attemptResult) score() int {
	score := 0
	if r.previewOK {
		score += 2
	}
	if r.meta != nil {
		score++
	}
	return score
}

type Extractor struct {
	config Config
}

func NewExtractor(config Config) *Extractor {
	return &Extractor{config: config}
}

// Extract introspects one composite scene file, trying each candidate
// renderer in order until one yields both metadata and a preview. The
// returned record is never nil: exhausting every candidate produces a
// record whose error field concatenates the per-candidate diagnostics.
func (e *Extractor) Extract(ctx context.Context, localPath, previewPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindScene)

	// The header parse is a renderer-free hint; its version survives in
	// the record even when every renderer attempt crashes.
	header, err := ParseHeader(localPath)
	if err != nil {
		log.Debugf("Ignoring unusable scene header for %s: %v\n", localPath, err)
	} else {
		version := header.Version()
		record.SceneVersion = &version
	}

	var best *attemptResult
	diagnostics := make([]string, 0)

	for _, candidate := range Candidates(header, e.config.DefaultExecutable) {
		binPath, err := exec.LookPath(candidate.Name)
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("%s: not installed", candidate.Name))
			continue
		}
		candidate.Path = binPath

		result := e.runCandidate(ctx, candidate, localPath, previewPath)
		if result.diagnostic != "" {
			diagnostics = append(diagnostics, fmt.Sprintf("%s: %s", candidate.Name, result.diagnostic))
		}

		log.Debugf("Candidate %s finished with status '%s' for %s\n", candidate.Name, result.status, localPath)
		if best == nil || result.score() > best.score() {
			best = &result
		}

		if result.meta != nil && result.previewOK {
			break
		}
	}

	if best == nil || best.score() == 0 {
		removeUnusedPreview(previewPath)
		record.Error = strings.Join(diagnostics, "; ")
		if record.Error == "" {
			record.Error = "scene extraction failed: no usable candidate output"
		}
		return record
	}

	if best.meta != nil {
		applySceneMeta(record, best.meta)
	}
	if best.previewOK {
		record.PreviewPath = previewPath
	} else {
		removeUnusedPreview(previewPath)
	}
	if best.meta == nil || !best.previewOK {
		record.Error = strings.Join(diagnostics, "; ")
	}

	return record
}

// runCandidate launches one renderer build against the file and
// classifies the attempt.
func (e *Extractor) runCandidate(ctx context.Context, candidate Candidate, localPath, previewPath string) attemptResult {
	scriptPath, err := writeDriverScript(e.config.ScratchDir)
	if err != nil {
		return attemptResult{status: attemptFailure, diagnostic: err.Error()}
	}
	defer os.Remove(scriptPath)

	absolute := time.Duration(e.config.ModernTimeoutSecs) * time.Second
	if candidate.Legacy {
		absolute = time.Duration(e.config.LegacyTimeoutSecs) * time.Second
	}
	inactivity := time.Duration(e.config.InactivitySecs) * time.Second

	cmd := e.buildCommand(ctx, candidate, localPath, previewPath, scriptPath)

	log.Infof("Driving renderer %s against %s\n", candidate.Name, localPath)
	stdout, stderr, timedOut, runErr := streamProcess(cmd, absolute, inactivity)
	for _, line := range stderr {
		log.Verbosef("[%s stderr] %s\n", candidate.Name, line)
	}

	return classifyAttempt(stdout, stderr, timedOut, runErr, previewPath)
}

// buildCommand assembles the renderer invocation: on Linux the renderer
// is wrapped in a virtual-display launcher so the preview render has a
// GL context to draw into. The wrapper is also why exit codes alone are
// unreliable here.
func (e *Extractor) buildCommand(ctx context.Context, candidate Candidate, localPath, previewPath, scriptPath string) *exec.Cmd {
	args := make([]string, 0, 10)
	program := candidate.Path

	if e.config.DisplayWrapper && runtime.GOOS == "linux" {
		if xvfb, err := exec.LookPath("xvfb-run"); err == nil {
			args = append(args, "-a", "-s", "-screen 0 1024x768x24", program)
			program = xvfb
		}
	}

	args = append(args,
		"--enable-autoexec",
		"-b", localPath,
		"--python", scriptPath,
		"--",
		previewPath,
		localPath,
	)

	cmd := exec.CommandContext(ctx, program, args...)
	setProcessGroup(cmd)
	return cmd
}

// streamProcess runs the command, streaming stdout and stderr through
// two independent reader goroutines so a full OS pipe buffer can never
// deadlock the renderer. The main loop selects across both output
// channels, an absolute timer and an inactivity timer (reset on every
// line); either expiry kills the whole process tree.
func streamProcess(cmd *exec.Cmd, absoluteTimeout, inactivityTimeout time.Duration) (stdout, stderr []string, timedOut bool, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, false, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, false, err
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, false, err
	}

	stdoutCh := make(chan string, 64)
	stderrCh := make(chan string, 64)
	go readLines(stdoutPipe, stdoutCh)
	go readLines(stderrPipe, stderrCh)

	absolute := time.NewTimer(absoluteTimeout)
	defer absolute.Stop()
	inactivity := time.NewTimer(inactivityTimeout)
	defer inactivity.Stop()

	stdoutDone, stderrDone, finished := false, false, false
	for !finished && (!stdoutDone || !stderrDone) {
		select {
		case line, ok := <-stdoutCh:
			if !ok {
				stdoutDone = true
				continue
			}
			stdout = append(stdout, line)
			resetTimer(inactivity, inactivityTimeout)
			// The finish marker ends the attempt even while the
			// display wrapper is still shutting down.
			if strings.Contains(line, driverFinishedLine) {
				finished = true
			}

		case line, ok := <-stderrCh:
			if !ok {
				stderrDone = true
				continue
			}
			stderr = append(stderr, line)
			resetTimer(inactivity, inactivityTimeout)

		case <-absolute.C:
			killProcessTree(cmd)
			timedOut = true
			finished = true

		case <-inactivity.C:
			killProcessTree(cmd)
			timedOut = true
			finished = true
		}
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case err = <-waitCh:
	case <-time.After(2 * time.Second):
		killProcessTree(cmd)
		err = <-waitCh
	}

	// Drain whatever the readers collected before the kill landed.
	for line := range stdoutCh {
		stdout = append(stdout, line)
	}
	for line := range stderrCh {
		stderr = append(stderr, line)
	}

	return stdout, stderr, timedOut, err
}

var crashSignatures = []string{
	loadFailedLine,
	"segmentation fault",
	"access violation",
	"fatal error",
}

// classifyAttempt turns the collected output of one attempt into a
// tagged result, in priority order: crash signatures beat everything,
// then the metadata marker pair (independent of preview outcome), then
// a rendered preview alone, then failure. Exit codes are deliberately a
// last-resort signal because the display wrapper distorts them.
func classifyAttempt(stdout, stderr []string, timedOut bool, runErr error, previewPath string) attemptResult {
	if timedOut {
		return attemptResult{status: attemptTimeout, diagnostic: "renderer timed out"}
	}

	combined := strings.ToLower(strings.Join(stdout, "\n") + "\n" + strings.Join(stderr, "\n"))
	for _, signature := range crashSignatures {
		if strings.Contains(combined, signature) {
			return attemptResult{status: attemptCrash, diagnostic: fmt.Sprintf("renderer crashed (%s)", signature)}
		}
	}

	previewOK := hasPreviewMarker(stdout) && fileExists(previewPath)

	if payload, ok := extractBetweenMarkers(stdout, metadataStartMarker, metadataEndMarker); ok {
		var meta SceneMeta
		if err := json.Unmarshal([]byte(payload), &meta); err != nil {
			return attemptResult{status: attemptFailure, diagnostic: fmt.Sprintf("unparseable metadata payload: %v", err)}
		}

		result := attemptResult{status: attemptSuccess, meta: &meta, previewOK: previewOK}
		if !previewOK {
			result.diagnostic = "metadata extracted but no preview rendered"
		}
		return result
	}

	if previewOK {
		return attemptResult{status: attemptSuccess, previewOK: true, diagnostic: "preview rendered but metadata missing"}
	}

	diagnostic := "no metadata markers in renderer output"
	if runErr != nil {
		diagnostic = fmt.Sprintf("%s (exit: %v)", diagnostic, runErr)
	}
	return attemptResult{status: attemptFailure, diagnostic: diagnostic}
}

func hasPreviewMarker(stdout []string) bool {
	if payload, ok := extractBetweenMarkers(stdout, previewStartMarker, previewEndMarker); ok {
		var update struct {
			PreviewRendered bool `json:"preview_rendered"`
		}
		if err := json.Unmarshal([]byte(payload), &update); err == nil {
			return update.PreviewRendered
		}
	}
	return false
}

// extractBetweenMarkers joins the lines strictly between the first
// occurrence of each marker line.
func extractBetweenMarkers(lines []string, start, end string) (string, bool) {
	startAt, endAt := -1, -1
	for i, line := range lines {
		if startAt < 0 && strings.Contains(line, start) {
			startAt = i
			continue
		}
		if startAt >= 0 && strings.Contains(line, end) {
			endAt = i
			break
		}
	}

	if startAt < 0 || endAt < 0 {
		return "", false
	}

	return strings.TrimSpace(strings.Join(lines[startAt+1:endAt], "\n")), true
}

func applySceneMeta(record *media.Record, meta *SceneMeta) {
	if meta.RendererVersion != "" {
		record.SceneVersion = &meta.RendererVersion
	}

	record.FrameCount = &meta.FrameCount
	record.RenderEngine = &meta.Engine
	record.ResolutionX = &meta.ResolutionX
	record.ResolutionY = &meta.ResolutionY
	record.TotalObjects = &meta.TotalObjects
	record.Meshes = &meta.Meshes
	record.Cameras = &meta.Cameras
	record.Lights = &meta.Lights
	record.Empties = &meta.Empties
}

func readLines(reader io.Reader, out chan<- string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out)
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

// removeUnusedPreview deletes a preview the record will not reference.
// An attempt may write the file and still be rejected (crash after the
// render, missing marker block), so cleanup is keyed off the final
// outcome rather than the attempt.
func removeUnusedPreview(previewPath string) {
	if previewPath == "" {
		return
	}
	if err := os.Remove(previewPath); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to remove unused preview %s: %v\n", previewPath, err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
