// Package episode persists the metadata of published episodes. Records are
// keyed by title, so publishing the same topic twice overwrites the earlier
// record.
package episode

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/logger"
)

// Recorder upserts episode records into the configured store.
type Recorder struct {
	store core.EpisodeStore
	log   *logger.Logger
}

// NewRecorder creates a Recorder. A nil store is allowed; every Record call
// then fails with core.ErrPersistenceFailed.
func NewRecorder(store core.EpisodeStore, log *logger.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log,
	}
}

// Configured reports whether an episode store is wired in.
func (r *Recorder) Configured() bool {
	return r.store != nil
}

// Record sets the record key from the title and upserts the record.
func (r *Recorder) Record(ctx context.Context, draft core.EpisodeRecord) (*core.EpisodeRecord, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: %w: no episode store", core.ErrPersistenceFailed, core.ErrConfigurationMissing)
	}

	record := draft
	record.ID = draft.Title
	record.Words = append([]string(nil), draft.Words...)

	if record.Words == nil {
		record.Words = []string{}
	}

	err := r.store.Upsert(ctx, record)
	if err != nil {
		if errors.Is(err, core.ErrPersistenceFailed) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", core.ErrPersistenceFailed, err)
	}

	r.log.Info("Episode %q recorded", record.ID)

	return &record, nil
}
