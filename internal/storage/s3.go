package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kettleby/slate/pkg/logger"
)

var remoteLog = logger.Get("RemoteStore")

// remoteAdapter reads an S3-compatible object store, downloading objects
// to a scratch directory on demand and pushing artifacts to a separate
// artifact bucket.
type remoteAdapter struct {
	client         *minio.Client
	assetBucket    string
	artifactBucket string
	prefix         string
	scratchDir     string
}

func NewRemote(config Config) (*remoteAdapter, error) {
	if config.AssetBucket == "" {
		return nil, fmt.Errorf("asset bucket must be provided for s3 storage")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), config.AssetBucket)
	if err != nil {
		return nil, fmt.Errorf("cannot access bucket '%s': %w", config.AssetBucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket '%s' does not exist", config.AssetBucket)
	}

	artifactBucket := config.ArtifactBucket
	if artifactBucket == "" {
		artifactBucket = config.AssetBucket
	}

	prefix := strings.TrimSuffix(config.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	scratchDir := config.ScratchDir
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}

	remoteLog.Infof("Connected to object store bucket '%s'\n", config.AssetBucket)
	return &remoteAdapter{
		client:         client,
		assetBucket:    config.AssetBucket,
		artifactBucket: artifactBucket,
		prefix:         prefix,
		scratchDir:     scratchDir,
	}, nil
}

func (adapter *remoteAdapter) List(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0)
	objects := adapter.client.ListObjects(ctx, adapter.assetBucket, minio.ListObjectsOptions{
		Prefix:    adapter.prefix,
		Recursive: true,
	})

	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list bucket '%s': %w", adapter.assetBucket, object.Err)
		}

		// Directory placeholder keys carry no content.
		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		fullPath := fmt.Sprintf("s3://%s/%s", adapter.assetBucket, object.Key)
		name := path.Base(object.Key)
		entries = append(entries, Entry{
			Path:     fullPath,
			Dir:      fullPath[:len(fullPath)-len(name)-1],
			Name:     name,
			Ext:      strings.ToLower(path.Ext(name)),
			Size:     object.Size,
			Created:  object.LastModified,
			Modified: object.LastModified,
		})
	}

	remoteLog.Infof("Found %d objects in bucket '%s' with prefix '%s'\n", len(entries), adapter.assetBucket, adapter.prefix)
	return entries, nil
}

// Scope downloads the object to a freshly created scratch file. The
// returned release function deletes the scratch file; callers defer it
// so the file is removed on every exit path, panics included.
func (adapter *remoteAdapter) Scope(ctx context.Context, objectPath string) (string, ReleaseFunc, error) {
	bucket, key := adapter.parsePath(objectPath)

	scratch, err := os.CreateTemp(adapter.scratchDir, "slate-fetch-*"+path.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	scratchPath := scratch.Name()
	scratch.Close()

	release := func() {
		if err := os.Remove(scratchPath); err != nil && !os.IsNotExist(err) {
			remoteLog.Warnf("Failed to remove scratch file %s: %v\n", scratchPath, err)
		}
	}

	if err := adapter.client.FGetObject(ctx, bucket, key, scratchPath, minio.GetObjectOptions{}); err != nil {
		release()
		return "", nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}

	return scratchPath, release, nil
}

func (adapter *remoteAdapter) Exists(ctx context.Context, objectPath string) bool {
	bucket, key := adapter.parsePath(objectPath)
	_, err := adapter.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	return err == nil
}

// Upload pushes a local artifact to the artifact bucket under
// '<kind>s/<name>'. On failure the local path is returned so the item
// continues degraded rather than aborting.
func (adapter *remoteAdapter) Upload(ctx context.Context, localPath, kind, name string) string {
	key := fmt.Sprintf("%ss/%s", kind, name)

	contentType := "application/octet-stream"
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".jpg" || ext == ".jpeg" {
		contentType = "image/jpeg"
	} else if ext == ".png" {
		contentType = "image/png"
	}

	_, err := adapter.client.FPutObject(ctx, adapter.artifactBucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		remoteLog.Errorf("Failed to upload artifact %s: %v\n", localPath, err)
		return localPath
	}

	uri := fmt.Sprintf("s3://%s/%s", adapter.artifactBucket, key)
	remoteLog.Debugf("Uploaded artifact to %s\n", uri)
	return uri
}

// parsePath splits an 's3://bucket/key' identifier; a bare key is
// resolved against the configured asset bucket.
func (adapter *remoteAdapter) parsePath(objectPath string) (string, string) {
	if !strings.HasPrefix(objectPath, "s3://") {
		return adapter.assetBucket, objectPath
	}

	trimmed := strings.TrimPrefix(objectPath, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
