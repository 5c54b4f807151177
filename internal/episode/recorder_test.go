// Package episode_test tests episode recording and the episode stores.
package episode_test

import (
	"context"
	"errors"
	"testing"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/episode"
	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDatabaseDown = errors.New("database down")

type mockEpisodeStore struct {
	err     error
	records []core.EpisodeRecord
}

func (m *mockEpisodeStore) Upsert(_ context.Context, record core.EpisodeRecord) error {
	if m.err != nil {
		return m.err
	}

	m.records = append(m.records, record)

	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "episode-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func sampleDraft() core.EpisodeRecord {
	return core.EpisodeRecord{
		ID:         "",
		Title:      "The Curious Case of the Apples",
		Topic:      "apples",
		Words:      []string{"curious", "bold"},
		Transcript: core.TextTranscript("[SPEAKER_A] Hello."),
		AudioURL:   "https://storage.example.com/podcasts/story_1.mp3",
	}
}

func TestRecord_UsesTitleAsID(t *testing.T) {
	t.Parallel()

	store := &mockEpisodeStore{}
	recorder := episode.NewRecorder(store, newTestLogger(t))
	require.True(t, recorder.Configured())

	draft := sampleDraft()
	draft.ID = "ignored"

	record, err := recorder.Record(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, draft.Title, record.ID)
	require.Len(t, store.records, 1)
	assert.Equal(t, draft.Title, store.records[0].ID)
	assert.Equal(t, draft.AudioURL, store.records[0].AudioURL)
}

func TestRecord_NilWordsBecomeEmpty(t *testing.T) {
	t.Parallel()

	store := &mockEpisodeStore{}
	recorder := episode.NewRecorder(store, newTestLogger(t))

	draft := sampleDraft()
	draft.Words = nil

	record, err := recorder.Record(context.Background(), draft)
	require.NoError(t, err)
	assert.NotNil(t, record.Words)
	assert.Empty(t, record.Words)
}

func TestRecord_NotConfigured(t *testing.T) {
	t.Parallel()

	recorder := episode.NewRecorder(nil, newTestLogger(t))
	require.False(t, recorder.Configured())

	_, err := recorder.Record(context.Background(), sampleDraft())
	require.ErrorIs(t, err, core.ErrPersistenceFailed)
	require.ErrorIs(t, err, core.ErrConfigurationMissing)
}

func TestRecord_StoreFailure(t *testing.T) {
	t.Parallel()

	recorder := episode.NewRecorder(&mockEpisodeStore{err: errDatabaseDown}, newTestLogger(t))

	_, err := recorder.Record(context.Background(), sampleDraft())
	require.ErrorIs(t, err, core.ErrPersistenceFailed)
	require.ErrorIs(t, err, errDatabaseDown)
}
