package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kettleby/slate/pkg/logger"
)

var localLog = logger.Get("LocalStore")

// directAdapter reads the host filesystem in place. Scoping is a no-op
// and artifacts stay where the extractor wrote them.
type directAdapter struct {
	basePath string
}

func NewDirect(basePath string) (*directAdapter, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("base path '%s' could not be accessed: %w", basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path '%s' is not a directory", basePath)
	}

	return &directAdapter{basePath: basePath}, nil
}

func (adapter *directAdapter) List(_ context.Context) ([]Entry, error) {
	entries := make([]Entry, 0)
	err := filepath.WalkDir(adapter.basePath, func(path string, dir fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if dir.IsDir() {
			return nil
		}

		info, err := dir.Info()
		if err != nil {
			return err
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}

		entries = append(entries, entryForFile(abs, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk file system: %w", err)
	}

	localLog.Infof("Found %d files under %s\n", len(entries), adapter.basePath)
	return entries, nil
}

func (adapter *directAdapter) Scope(_ context.Context, path string) (string, ReleaseFunc, error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil, fmt.Errorf("file not found: %s", path)
	}

	return path, func() {}, nil
}

func (adapter *directAdapter) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Upload is a no-op for local storage; the artifact is already in its
// final place.
func (adapter *directAdapter) Upload(_ context.Context, localPath, _, _ string) string {
	return localPath
}

func entryForFile(path string, info fs.FileInfo) Entry {
	name := filepath.Base(path)
	return Entry{
		Path:     path,
		Dir:      filepath.Dir(path),
		Name:     name,
		Ext:      strings.ToLower(filepath.Ext(name)),
		Size:     info.Size(),
		Created:  createdTime(info),
		Modified: info.ModTime(),
	}
}
