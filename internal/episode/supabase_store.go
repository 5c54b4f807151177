package episode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/book-expert/lingocast/internal/core"
)

const (
	restPath            = "/rest/v1/"
	onConflictColumn    = "id"
	preferUpsert        = "resolution=merge-duplicates,return=representation"
	headerAuthorization = "Authorization"
	headerAPIKey        = "apikey"
	headerContentType   = "Content-Type"
	headerPrefer        = "Prefer"
	bearerPrefix        = "Bearer "
	contentTypeJSON     = "application/json"
	defaultHTTPTimeout  = 30 * time.Second
	maxErrorBodyBytes   = 64 << 10
)

// supabaseEpisodeRow is the table row sent to PostgREST. Column names match
// the SQL schema.
type supabaseEpisodeRow struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Topic      string          `json:"topic"`
	Words      []string        `json:"words"`
	Transcript core.Transcript `json:"transcript"`
	AudioURL   string          `json:"audio_url"`
}

// SupabaseStore upserts episodes through the PostgREST interface of a
// Supabase project.
type SupabaseStore struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	table      string
}

// NewSupabaseStore creates a store for one table.
func NewSupabaseStore(baseURL, serviceKey, table string, client *http.Client) (*SupabaseStore, error) {
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
		table:      table,
	}, nil
}

// Upsert merges the record into the table on its id.
func (s *SupabaseStore) Upsert(ctx context.Context, record core.EpisodeRecord) error {
	payload, err := json.Marshal(supabaseEpisodeRow{
		ID:         record.ID,
		Title:      record.Title,
		Topic:      record.Topic,
		Words:      record.Words,
		Transcript: record.Transcript,
		AudioURL:   record.AudioURL,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal episode %q: %w", record.ID, err)
	}

	query := url.Values{}
	query.Set("on_conflict", onConflictColumn)
	upsertURL := s.baseURL + restPath + url.PathEscape(s.table) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upsertURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create upsert request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+s.serviceKey)
	req.Header.Set(headerAPIKey, s.serviceKey)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerPrefer, preferUpsert)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send upsert to %s: %w", core.ErrPersistenceFailed, s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &core.RemoteError{
			Kind:       core.ErrPersistenceFailed,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
