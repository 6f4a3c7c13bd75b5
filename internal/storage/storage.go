// Package storage provides a uniform adapter over the scanned file
// collection, letting the pipeline run unmodified against a local tree
// or a remote object store.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Entry describes one stored object as reported by List. Entries are
// immutable once listed and sourced fresh on every scan.
type Entry struct {
	Path     string
	Dir      string
	Name     string
	Ext      string
	Size     int64
	Created  time.Time
	Modified time.Time
}

// ReleaseFunc frees the local resources a Scope call acquired. It is
// safe to call exactly once, on every exit path of the scoping caller.
type ReleaseFunc func()

// Adapter is the capability set the scanner requires from a file
// collection.
type Adapter interface {
	// List enumerates every file reachable from the configured root.
	List(ctx context.Context) ([]Entry, error)

	// Scope yields a guaranteed-local path for the file, valid until
	// the returned release function is called. Callers must defer the
	// release so cleanup happens on every exit path, panics included.
	Scope(ctx context.Context, path string) (string, ReleaseFunc, error)

	// Exists reports whether the path currently exists in the store.
	Exists(ctx context.Context, path string) bool

	// Upload pushes a locally produced artifact (e.g. a preview image)
	// to its final destination and returns the resulting identifier.
	// On failure the local path is returned so the pipeline can
	// continue degraded.
	Upload(ctx context.Context, localPath, kind, name string) string
}

// Config selects and parameterises the adapter.
type Config struct {
	Mode           string `yaml:"mode" env:"STORAGE_MODE" env-default:"local"`
	DataPath       string `yaml:"data_path" env:"DATA_PATH" env-default:"/data"`
	Endpoint       string `yaml:"s3_endpoint" env:"S3_ENDPOINT"`
	Region         string `yaml:"s3_region" env:"S3_REGION"`
	AccessKey      string `yaml:"s3_access_key" env:"S3_ACCESS_KEY"`
	SecretKey      string `yaml:"s3_secret_key" env:"S3_SECRET_KEY"`
	UseSSL         bool   `yaml:"s3_use_ssl" env:"S3_USE_SSL" env-default:"true"`
	AssetBucket    string `yaml:"asset_bucket" env:"ASSET_BUCKET_NAME"`
	ArtifactBucket string `yaml:"artifact_bucket" env:"ARTIFACT_BUCKET_NAME"`
	Prefix         string `yaml:"s3_prefix" env:"S3_PREFIX"`
	ScratchDir     string `yaml:"scratch_dir" env:"SCRATCH_DIR"`
}

// New constructs the adapter selected by the config's storage mode.
// An unrecognised mode is a startup-fatal configuration error.
func New(config Config) (Adapter, error) {
	switch config.Mode {
	case "local":
		return NewDirect(config.DataPath)
	case "s3":
		return NewRemote(config)
	default:
		return nil, fmt.Errorf("unknown storage mode '%s': must be 'local' or 's3'", config.Mode)
	}
}
