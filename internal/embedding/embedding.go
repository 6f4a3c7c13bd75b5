// Package embedding talks to an optional sidecar service that turns
// asset metadata and preview images into vectors. The scanner treats
// the service as best-effort: when it is unconfigured or failing,
// records are catalogued without vectors.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kettleby/slate/internal/media"
	"github.com/kettleby/slate/pkg/logger"
)

var log = logger.Get("Embedding")

type Config struct {
	// URL is the base address of the embedding service. Empty disables
	// embedding entirely.
	URL         string `yaml:"url" env:"EMBEDDING_URL"`
	TimeoutSecs int    `yaml:"timeout" env:"EMBEDDING_TIMEOUT" env-default:"30"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(config Config) *Client {
	return &Client{
		baseURL: config.URL,
		http:    &http.Client{Timeout: time.Duration(config.TimeoutSecs) * time.Second},
	}
}

// Enabled reports whether a service address was configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedMetadata vectorises the textual metadata of a record.
func (c *Client) EmbedMetadata(ctx context.Context, record *media.Record) ([]float32, error) {
	if !c.Enabled() {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{
		"path": record.Path,
		"name": record.Name,
		"kind": string(record.Kind),
		"show": record.Show,
		"tags": record.Tags,
	})
	if err != nil {
		return nil, err
	}

	return c.post(ctx, "/embed/metadata", "application/json", bytes.NewReader(payload))
}

// EmbedImage vectorises a rendered preview or image file.
func (c *Client) EmbedImage(ctx context.Context, imagePath string) ([]float32, error) {
	if !c.Enabled() {
		return nil, nil
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image for embedding: %w", err)
	}
	defer file.Close()

	return c.post(ctx, "/embed/image", "application/octet-stream", file)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]float32, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", contentType)

	response, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		log.Warnf("Embedding service returned %s for %s\n", response.Status, path)
		return nil, fmt.Errorf("embedding service returned %s", response.Status)
	}

	var decoded embedResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("unparseable embedding response: %w", err)
	}

	return decoded.Embedding, nil
}
