package media

import (
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tiff": true, ".tif": true,
	".bmp": true, ".gif": true, ".kra": true, ".psd": true, ".exr": true,
	".svg": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
	".flv": true, ".wmv": true,
}

var sceneExtensions = map[string]bool{
	".blend": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".wav": true, ".ogg": true, ".m4a": true,
	".aac": true, ".wma": true, ".opus": true,
}

var codeExtensions = map[string]bool{
	".py": true, ".sh": true, ".bat": true, ".ps1": true,
	".cpp": true, ".c": true, ".h": true, ".hpp": true, ".rs": true,
	".go": true, ".java": true, ".cs": true,
	".html": true, ".css": true, ".js": true, ".ts": true, ".jsx": true,
	".tsx": true, ".vue": true,
	".glsl": true, ".hlsl": true, ".vert": true, ".frag": true, ".shader": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".xml": true,
}

var spreadsheetExtensions = map[string]bool{
	".csv": true, ".xlsx": true, ".xls": true, ".ods": true, ".tsv": true,
}

var documentExtensions = map[string]bool{
	".txt": true, ".pdf": true, ".doc": true, ".docx": true, ".odt": true,
	".odp": true, ".odg": true, ".rtf": true, ".md": true,
}

var cacheExtensions = map[string]bool{
	".bphys": true, ".abc": true, ".vdb": true, ".bgeo": true, ".geo": true,
}

// KindForExtension classifies a lower-cased extension (with leading dot)
// into exactly one Kind.
func KindForExtension(ext string) Kind {
	ext = strings.ToLower(ext)
	switch {
	case imageExtensions[ext]:
		return KindImage
	case videoExtensions[ext]:
		return KindVideo
	case sceneExtensions[ext]:
		return KindScene
	case audioExtensions[ext]:
		return KindAudio
	case codeExtensions[ext]:
		return KindCode
	case spreadsheetExtensions[ext]:
		return KindSpreadsheet
	case documentExtensions[ext]:
		return KindDocument
	case cacheExtensions[ext]:
		return KindCache
	default:
		return KindUnknown
	}
}

// KindForPath classifies a path by its extension.
func KindForPath(path string) Kind {
	return KindForExtension(filepath.Ext(path))
}

// SequenceEligibleExtensions returns the set of extensions that may
// participate in sequence grouping: frame-rendered images and
// per-frame simulation caches. All other types are standalone
// unconditionally.
func SequenceEligibleExtensions() map[string]bool {
	eligible := make(map[string]bool, len(imageExtensions)+len(cacheExtensions))
	for ext := range imageExtensions {
		eligible[ext] = true
	}
	for ext := range cacheExtensions {
		eligible[ext] = true
	}
	return eligible
}

// CacheKindForExtension maps a simulation-cache extension to the cache
// flavour recorded in the catalog.
func CacheKindForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".bphys":
		return "physics"
	case ".abc":
		return "alembic"
	case ".vdb":
		return "vdb"
	case ".bgeo", ".geo":
		return "geometry"
	default:
		return "unknown"
	}
}
