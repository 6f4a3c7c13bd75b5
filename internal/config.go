package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"

	"github.com/kettleby/slate/internal/blend"
	"github.com/kettleby/slate/internal/catalog"
	"github.com/kettleby/slate/internal/embedding"
	"github.com/kettleby/slate/internal/extract"
	"github.com/kettleby/slate/internal/scanner"
	"github.com/kettleby/slate/internal/storage"
)

const slateUserDirSuffix = "slate"

// SlateConfig is the struct used to contain the various user config
// supplied by file, environment, or manually inside the code.
type SlateConfig struct {
	Storage   storage.Config   `yaml:"storage"`
	Extract   extract.Config   `yaml:"extractors"`
	Renderer  blend.Config     `yaml:"renderer"`
	Database  catalog.Config   `yaml:"database" env-required:"true"`
	Embedding embedding.Config `yaml:"embedding"`
	Scanner   scanner.Config   `yaml:"scanner"`

	// Watch keeps the scanner running, rescanning on filesystem events
	// and on the configured force-sync interval. When false, one scan
	// pass runs and the process exits.
	Watch        bool   `yaml:"watch" env:"WATCH" env-default:"false"`
	CacheDirPath string `yaml:"cache_dir" env:"CACHE_DIR"`
	LogLevel     int    `yaml:"log_level" env:"LOG_LEVEL" env-default:"2"`
}

// LoadFromFile loads a YAML configuration file into a SlateConfig,
// overlaying any environment overrides.
func (config *SlateConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration - %v", err.Error())
	}

	config.applyDerivedDefaults()
	return nil
}

// LoadFromEnv populates the config purely from the environment, for
// deployments that ship no config file.
func (config *SlateConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment - %v", err.Error())
	}

	config.applyDerivedDefaults()
	return nil
}

// applyDerivedDefaults fills the scratch directories that default to
// subdirectories of the cache dir rather than static values.
func (config *SlateConfig) applyDerivedDefaults() {
	cacheDir := config.getCacheDir()

	if config.Storage.ScratchDir == "" {
		config.Storage.ScratchDir = filepath.Join(cacheDir, "fetch")
	}
	if config.Scanner.PreviewDir == "" {
		config.Scanner.PreviewDir = filepath.Join(cacheDir, "previews")
	}
	if config.Renderer.ScratchDir == "" {
		config.Renderer.ScratchDir = filepath.Join(cacheDir, "driver")
	}
}

// getCacheDir returns the directory used for scratch state. It will
// first look in the config for a value; if none is found a default
// under the user's home is derived. If the default cannot be derived
// due to an error, a panic will occur.
func (config *SlateConfig) getCacheDir() string {
	if config.CacheDirPath != "" {
		return filepath.Join(config.CacheDirPath, slateUserDirSuffix)
	}

	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, slateUserDirSuffix)
	}

	home, err := homedir.Dir()
	if err != nil {
		panic(fmt.Sprintf("FAILURE to derive user cache dir: %s", err))
	}
	return filepath.Join(home, ".cache", slateUserDirSuffix)
}
