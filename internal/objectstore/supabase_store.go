// Package objectstore provides the remote blob stores the publisher uploads
// audio to: Supabase Storage, S3 and NATS JetStream.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/book-expert/lingocast/internal/core"
)

const (
	storageObjectPath       = "/storage/v1/object/"
	storagePublicObjectPath = "/storage/v1/object/public/"
	headerAuthorization     = "Authorization"
	headerAPIKey            = "apikey"
	headerContentType       = "Content-Type"
	headerUpsert            = "x-upsert"
	bearerPrefix            = "Bearer "
	defaultHTTPTimeout      = 2 * time.Minute
	maxErrorBodyBytes       = 64 << 10
)

// SupabaseStore uploads objects through the Supabase Storage REST API.
type SupabaseStore struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	bucket     string
}

// NewSupabaseStore creates a store for one bucket. A nil client gets a
// default client with a bounded timeout.
func NewSupabaseStore(baseURL, serviceKey, bucket string, client *http.Client) (*SupabaseStore, error) {
	if baseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("%w: supabase url and service key are required", core.ErrConfigurationMissing)
	}

	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &SupabaseStore{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
	}, nil
}

// Upload posts the raw bytes of an object.
func (s *SupabaseStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	uploadURL := s.baseURL + storageObjectPath + s.bucket + "/" + url.PathEscape(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+s.serviceKey)
	req.Header.Set(headerAPIKey, s.serviceKey)
	req.Header.Set(headerContentType, contentType)
	req.Header.Set(headerUpsert, "false")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send upload to %s: %w", core.ErrUploadFailed, s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &core.RemoteError{
			Kind:       core.ErrUploadFailed,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// PublicURL returns the public link of an object in the bucket.
func (s *SupabaseStore) PublicURL(key string) (string, error) {
	return s.baseURL + storagePublicObjectPath + s.bucket + "/" + url.PathEscape(key), nil
}
