// Package extract holds the per-type format extractors. Each extractor
// is a pure function from a local file path to a partial metadata
// record; failures are reported through the record's error field and
// never panic past the scanner.
package extract

import (
	"github.com/kettleby/slate/internal/media"
)

// Config carries the external tool paths the probing extractors need.
type Config struct {
	FfmpegBinPath  string `yaml:"ffmpeg_binary" env:"FFMPEG_BINARY_PATH" env-default:"/usr/bin/ffmpeg"`
	FfprobeBinPath string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY_PATH" env-default:"/usr/bin/ffprobe"`
}

// Func consumes a local path and produces a partial record.
type Func func(localPath string) *media.Record

// Set bundles the extractors for every kind the scanner dispatches on.
type Set struct {
	config Config
}

func NewSet(config Config) *Set {
	return &Set{config: config}
}

// ForKind returns the extractor responsible for the given kind. The
// composite-scene kind is handled by its own resilient extractor and is
// not served here.
func (s *Set) ForKind(kind media.Kind) Func {
	switch kind {
	case media.KindImage:
		return Image
	case media.KindVideo:
		return s.Video
	case media.KindAudio:
		return s.Audio
	case media.KindCode:
		return Code
	case media.KindSpreadsheet:
		return Spreadsheet
	case media.KindDocument:
		return Document
	case media.KindCache:
		return Cache
	default:
		return Unknown
	}
}

// Unknown produces a record carrying only the common fields.
func Unknown(localPath string) *media.Record {
	return media.NewRecord(localPath, media.KindUnknown)
}
