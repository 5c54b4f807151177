package objectstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/objectstore"
)

func newTestS3Client(t *testing.T, endpoint string) *s3.S3 {
	t.Helper()

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("us-east-1"),
		Endpoint:         aws.String(endpoint),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials("test", "test", ""),
		MaxRetries:       aws.Int(0),
	})
	require.NoError(t, err)

	return s3.New(sess)
}

func TestS3Store_Upload(t *testing.T) {
	t.Parallel()

	var (
		gotMethod      string
		gotPath        string
		gotContentType string
		gotBody        []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := objectstore.NewS3Store(newTestS3Client(t, server.URL), "podcasts", "eu-west-1", "")

	err := store.Upload(context.Background(), "story_1.mp3", []byte("audio-bytes"), "audio/mpeg")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/podcasts/story_1.mp3", gotPath)
	assert.Equal(t, "audio/mpeg", gotContentType)
	assert.Equal(t, []byte("audio-bytes"), gotBody)
}

func TestS3Store_UploadRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<Error><Code>AccessDenied</Code><Message>Access Denied</Message><RequestId>1</RequestId></Error>`))
	}))
	defer server.Close()

	store := objectstore.NewS3Store(newTestS3Client(t, server.URL), "podcasts", "eu-west-1", "")

	err := store.Upload(context.Background(), "story_1.mp3", []byte("audio"), "audio/mpeg")
	require.ErrorIs(t, err, core.ErrUploadFailed)

	var remoteErr *core.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusForbidden, remoteErr.StatusCode)
}

func TestS3Store_PublicURL(t *testing.T) {
	t.Parallel()

	regional := objectstore.NewS3Store(nil, "podcasts", "eu-west-1", "")
	publicURL, err := regional.PublicURL("story_1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://podcasts.s3.eu-west-1.amazonaws.com/story_1.mp3", publicURL)

	global := objectstore.NewS3Store(nil, "podcasts", "", "")
	publicURL, err = global.PublicURL("story_1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://podcasts.s3.amazonaws.com/story_1.mp3", publicURL)

	cdn := objectstore.NewS3Store(nil, "podcasts", "eu-west-1", "https://cdn.example.com/")
	publicURL, err = cdn.PublicURL("story_1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/story_1.mp3", publicURL)
}
