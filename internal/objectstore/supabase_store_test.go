package objectstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/objectstore"
)

func TestNewSupabaseStore_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := objectstore.NewSupabaseStore("", "key", "podcasts", nil)
	require.ErrorIs(t, err, core.ErrConfigurationMissing)

	_, err = objectstore.NewSupabaseStore("https://xyz.supabase.co", "", "podcasts", nil)
	require.ErrorIs(t, err, core.ErrConfigurationMissing)
}

func TestSupabaseStore_Upload(t *testing.T) {
	t.Parallel()

	var (
		gotPath        string
		gotAuth        string
		gotAPIKey      string
		gotContentType string
		gotBody        []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"podcasts/story_1.mp3"}`))
	}))
	defer server.Close()

	store, err := objectstore.NewSupabaseStore(server.URL+"/", "service-key", "podcasts", server.Client())
	require.NoError(t, err)

	err = store.Upload(context.Background(), "story_1.mp3", []byte("audio-bytes"), "audio/mpeg")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/podcasts/story_1.mp3", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "service-key", gotAPIKey)
	assert.Equal(t, "audio/mpeg", gotContentType)
	assert.Equal(t, []byte("audio-bytes"), gotBody)

	publicURL, err := store.PublicURL("story_1.mp3")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/storage/v1/object/public/podcasts/story_1.mp3", publicURL)
}

func TestSupabaseStore_UploadRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Duplicate","message":"The resource already exists"}`))
	}))
	defer server.Close()

	store, err := objectstore.NewSupabaseStore(server.URL, "service-key", "podcasts", server.Client())
	require.NoError(t, err)

	err = store.Upload(context.Background(), "story_1.mp3", []byte("audio"), "audio/mpeg")
	require.ErrorIs(t, err, core.ErrUploadFailed)

	var remoteErr *core.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Body, "The resource already exists")
}

func TestSupabaseStore_UploadUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serverURL := server.URL
	server.Close()

	store, err := objectstore.NewSupabaseStore(serverURL, "service-key", "podcasts", nil)
	require.NoError(t, err)

	err = store.Upload(context.Background(), "story_1.mp3", []byte("audio"), "audio/mpeg")
	require.ErrorIs(t, err, core.ErrUploadFailed)
}
