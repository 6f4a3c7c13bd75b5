package media

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	showSegmentMatcher = regexp.MustCompile(`(?i)/shows/([^/]+)`)
	versionMatcher     = regexp.MustCompile(`(?i)v[_-]?(\d+)`)
)

// ShowFromPath extracts the show name from a file path when the file
// lives under a 'shows' folder. The show name is the first path segment
// following that folder, lower-cased. Paths outside a shows folder
// return the empty string.
func ShowFromPath(path string) string {
	normalized := strings.ReplaceAll(path, `\`, "/")
	groups := showSegmentMatcher.FindStringSubmatch(normalized)
	if len(groups) < 2 {
		return ""
	}

	return strings.ToLower(groups[1])
}

// VersionFromName extracts a version number from a filename using the
// conventional vNNN marker (v001, v_001, v-001, v3, ...). Returns nil
// when no version marker is present.
func VersionFromName(name string) *int {
	base := filepath.Base(name)
	groups := versionMatcher.FindStringSubmatch(base)
	if len(groups) < 2 {
		return nil
	}

	version, err := strconv.Atoi(groups[1])
	if err != nil {
		return nil
	}

	return &version
}
