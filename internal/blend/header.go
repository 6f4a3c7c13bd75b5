// Package blend drives an external renderer to introspect composite
// scene files. It owns the candidate-executable fallback chain, the
// per-attempt watchdogs and the crash/corruption classification.
package blend

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
)

const headerMagic = "BLENDER"

// Header is the fixed 12-byte scene-file header: 7-byte magic, a
// pointer-width flag, an endianness flag and a 3-digit version. It is a
// cheap, renderer-free hint; callers ignore parse failures rather than
// failing the extraction.
type Header struct {
	PointerSize int
	BigEndian   bool
	Major       int
	Minor       int
}

// Version renders the header version the way the renderer names its
// releases, e.g. 306 -> "3.6", 249 -> "2.49".
func (h *Header) Version() string {
	return fmt.Sprintf("%d.%d", h.Major, h.Minor)
}

// Legacy reports whether the file predates the 2.80 rewrite; legacy
// files get the shorter per-candidate time budget.
func (h *Header) Legacy() bool {
	return h.Major < 2 || (h.Major == 2 && h.Minor < 80)
}

// ParseHeader reads the scene-file header, transparently decompressing
// gzip-packed files. Returns an error for unreadable files, bad magic
// or a version outside sane bounds; callers treat all of these as "no
// hint" rather than a failed extraction.
func ParseHeader(path string) (*Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer file.Close()

	probe := make([]byte, 2)
	if _, err := io.ReadFull(file, probe); err != nil {
		return nil, fmt.Errorf("scene file too short: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var reader io.Reader = file
	if probe[0] == 0x1f && probe[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress scene file: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	header := make([]byte, 12)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("scene header too short: %w", err)
	}

	if string(header[:7]) != headerMagic {
		return nil, fmt.Errorf("invalid scene file magic %q", header[:7])
	}

	version, err := strconv.Atoi(string(header[9:12]))
	if err != nil {
		return nil, fmt.Errorf("scene header version is not numeric: %q", header[9:12])
	}
	if version < 100 || version > 999 {
		return nil, fmt.Errorf("scene header version %d out of bounds", version)
	}

	pointerSize := 4
	if header[7] == '-' {
		pointerSize = 8
	}

	return &Header{
		PointerSize: pointerSize,
		BigEndian:   header[8] == 'V',
		Major:       version / 100,
		Minor:       version % 100,
	}, nil
}
