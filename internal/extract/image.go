package extract

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/kettleby/slate/internal/media"
)

// Extensions the registered stdlib decoders can actually read; anything
// else (exr, psd, kra, ...) yields a size-only record without an error.
var decodableImageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// Image extracts pixel dimensions and format from decodable images.
func Image(localPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindImage)

	file, err := os.Open(localPath)
	if err != nil {
		record.Error = fmt.Sprintf("failed to open image: %v", err)
		return record
	}
	defer file.Close()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		ext := strings.ToLower(filepath.Ext(localPath))
		if decodableImageExtensions[ext] {
			record.Error = fmt.Sprintf("failed to decode image: %v", err)
		}
		return record
	}

	record.ResolutionX = &config.Width
	record.ResolutionY = &config.Height
	record.Codec = &format
	return record
}
