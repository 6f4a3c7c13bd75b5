// Package sequence implements detection of frame sequences: sets of
// files identical except for a single zero-padded, contiguous numeric
// field. Detection is pure and stateless; it never touches the
// filesystem.
package sequence

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const skeletonPlaceholder = "#"

var digitRunMatcher = regexp.MustCompile(`\d+`)

// Group is a detected sequence: a run of files sharing one directory and
// skeleton, whose single varying numeric field forms a contiguous,
// identically-padded range.
type Group struct {
	// PatternName is the synthesized filename with the varying field
	// replaced by its span, e.g. "render_[0001-0050].png".
	PatternName string

	// PatternPath is PatternName joined onto the directory; it is the
	// catalog key for the group.
	PatternPath string

	// Members holds every member path, sorted by frame number.
	Members []string

	Directory string
	Extension string
	Start     int
	End       int
	Padding   int
}

// FrameCount returns the number of members; equal to End-Start+1 since
// groups are contiguous by construction.
func (g *Group) FrameCount() int {
	return len(g.Members)
}

// Representative returns the middle member (by sorted position), used
// for metadata sampling.
func (g *Group) Representative() string {
	return g.Members[(len(g.Members)-1)/2]
}

// FramePath reconstructs the path of a specific frame within the group,
// or "" when the frame is outside the group's span.
func (g *Group) FramePath(frame int) string {
	if frame < g.Start || frame > g.End {
		return ""
	}

	offset := frame - g.Start
	return g.Members[offset]
}

// digitRun is one maximal run of digits within a filename stem.
type digitRun struct {
	text  string
	value int
	start int
}

// candidate is one path within a skeleton group, decomposed into its
// digit runs.
type candidate struct {
	path string
	stem string
	runs []digitRun
}

// Detect partitions paths into sequence groups and standalone files.
// Every input path lands in exactly one output: as a member of exactly
// one group, or in the standalone list.
//
// Only paths whose extension is present in allowedExts are considered
// for grouping; everything else is standalone unconditionally.
func Detect(paths []string, minLength, minPadding int, allowedExts map[string]bool) ([]Group, []string) {
	type groupKey struct {
		dir      string
		skeleton string
		ext      string
	}

	grouped := make(map[groupKey][]candidate)
	keyOrder := make([]groupKey, 0)
	standalone := make([]string, 0)

	for _, p := range paths {
		dir, name := splitDirFile(p)
		ext := strings.ToLower(filepath.Ext(name))
		if !allowedExts[ext] {
			standalone = append(standalone, p)
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		runs := extractDigitRuns(stem)
		if len(runs) == 0 {
			standalone = append(standalone, p)
			continue
		}

		key := groupKey{dir: dir, skeleton: skeletonOf(stem), ext: ext}
		if _, seen := grouped[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		grouped[key] = append(grouped[key], candidate{path: p, stem: stem, runs: runs})
	}

	groups := make([]Group, 0)
	for _, key := range keyOrder {
		members := grouped[key]
		accepted, rejected := resolveGroup(key.dir, key.ext, members, minLength, minPadding)
		groups = append(groups, accepted...)
		standalone = append(standalone, rejected...)
	}

	return groups, standalone
}

// resolveGroup applies the varying-index, padding and contiguity rules
// to one (directory, skeleton, extension) bucket, returning the surviving
// groups and the paths demoted to standalone.
func resolveGroup(dir, ext string, members []candidate, minLength, minPadding int) ([]Group, []string) {
	if len(members) < minLength {
		return nil, candidatePaths(members)
	}

	varying := varyingRunIndex(members)
	if varying < 0 {
		return nil, candidatePaths(members)
	}

	// A version-like field never qualifies as the varying field, even
	// when it is the only field that differs.
	if isVersionRun(members[0].stem, members[0].runs[varying]) {
		return nil, candidatePaths(members)
	}

	// All members must agree on the zero-padding width and the literal
	// text surrounding the varying field. The dominant shape wins;
	// violators drop to standalone.
	conforming, violators := dominantShape(members, varying)
	if len(conforming) < minLength {
		return nil, append(candidatePaths(conforming), violators...)
	}

	padding := len(conforming[0].runs[varying].text)
	if padding < minPadding {
		return nil, append(candidatePaths(conforming), violators...)
	}

	sort.Slice(conforming, func(i, j int) bool {
		return conforming[i].runs[varying].value < conforming[j].runs[varying].value
	})

	groups := make([]Group, 0, 1)
	standalone := violators
	for _, run := range contiguousRuns(conforming, varying) {
		if len(run) < minLength {
			standalone = append(standalone, candidatePaths(run)...)
			continue
		}

		groups = append(groups, buildGroup(dir, ext, run, varying, padding))
	}

	return groups, standalone
}

// varyingRunIndex finds the single digit-run position whose numeric
// value differs across members while every other position is constant.
// Returns -1 when zero or more than one position varies.
func varyingRunIndex(members []candidate) int {
	runCount := len(members[0].runs)
	varying := -1
	for i := 0; i < runCount; i++ {
		first := members[0].runs[i].value
		for _, m := range members[1:] {
			if m.runs[i].value != first {
				if varying >= 0 && varying != i {
					return -1
				}
				varying = i
				break
			}
		}
	}

	return varying
}

// isVersionRun reports whether the digit run is immediately preceded by
// a version marker ('v' or 'v_'), where the 'v' itself starts a word.
// This keeps fields like "rev_" from being mistaken for markers.
func isVersionRun(stem string, run digitRun) bool {
	prefix := stem[:run.start]

	markerAt := -1
	if strings.HasSuffix(strings.ToLower(prefix), "v_") {
		markerAt = len(prefix) - 2
	} else if strings.HasSuffix(strings.ToLower(prefix), "v") {
		markerAt = len(prefix) - 1
	} else {
		return false
	}

	if markerAt == 0 {
		return true
	}

	before := rune(prefix[markerAt-1])
	return !unicode.IsLetter(before)
}

// dominantShape buckets members by the (padding, prefix, suffix) tuple at
// the varying position and returns the largest bucket plus the paths of
// every other member.
func dominantShape(members []candidate, varying int) ([]candidate, []string) {
	type shape struct {
		padding int
		prefix  string
		suffix  string
	}

	buckets := make(map[shape][]candidate)
	order := make([]shape, 0)
	for _, m := range members {
		run := m.runs[varying]
		s := shape{
			padding: len(run.text),
			prefix:  m.stem[:run.start],
			suffix:  m.stem[run.start+len(run.text):],
		}
		if _, seen := buckets[s]; !seen {
			order = append(order, s)
		}
		buckets[s] = append(buckets[s], m)
	}

	var best shape
	bestLen := -1
	for _, s := range order {
		if len(buckets[s]) > bestLen {
			best, bestLen = s, len(buckets[s])
		}
	}

	violators := make([]string, 0)
	for _, s := range order {
		if s == best {
			continue
		}
		violators = append(violators, candidatePaths(buckets[s])...)
	}

	return buckets[best], violators
}

// contiguousRuns splits sorted members at every gap in the varying
// field's values, yielding maximal contiguous runs.
func contiguousRuns(sorted []candidate, varying int) [][]candidate {
	runs := make([][]candidate, 0, 1)
	current := []candidate{sorted[0]}
	for _, m := range sorted[1:] {
		prev := current[len(current)-1].runs[varying].value
		if m.runs[varying].value == prev+1 {
			current = append(current, m)
			continue
		}
		runs = append(runs, current)
		current = []candidate{m}
	}

	return append(runs, current)
}

func buildGroup(dir, ext string, run []candidate, varying, padding int) Group {
	first := run[0].runs[varying]
	start := first.value
	end := run[len(run)-1].runs[varying].value

	stem := run[0].stem
	prefix := stem[:first.start]
	suffix := stem[first.start+len(first.text):]

	span := fmt.Sprintf("[%0*d-%0*d]", padding, start, padding, end)
	patternName := prefix + span + suffix + ext

	paths := make([]string, len(run))
	for i, m := range run {
		paths[i] = m.path
	}

	return Group{
		PatternName: patternName,
		PatternPath: joinDirFile(dir, patternName),
		Members:     paths,
		Directory:   dir,
		Extension:   ext,
		Start:       start,
		End:         end,
		Padding:     padding,
	}
}

func extractDigitRuns(stem string) []digitRun {
	locations := digitRunMatcher.FindAllStringIndex(stem, -1)
	runs := make([]digitRun, 0, len(locations))
	for _, loc := range locations {
		text := stem[loc[0]:loc[1]]
		value, err := strconv.Atoi(text)
		if err != nil {
			// Digit runs longer than an int can hold cannot be frame
			// numbers; the whole stem is unusable for grouping.
			return nil
		}
		runs = append(runs, digitRun{text: text, value: value, start: loc[0]})
	}

	return runs
}

func skeletonOf(stem string) string {
	return digitRunMatcher.ReplaceAllString(stem, skeletonPlaceholder)
}

func candidatePaths(members []candidate) []string {
	paths := make([]string, len(members))
	for i, m := range members {
		paths[i] = m.path
	}
	return paths
}

// splitDirFile splits on '/' regardless of platform so remote object
// paths (scheme://bucket/key) group correctly.
func splitDirFile(p string) (string, string) {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[:idx], p[idx+1:]
	}
	return "", p
}

func joinDirFile(dir, name string) string {
	if dir == "" {
		return name
	}
	if strings.Contains(dir, "://") {
		return dir + "/" + name
	}
	return path.Join(dir, name)
}
