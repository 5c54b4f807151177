// Package pipeline runs one LingoCast job from topic to published episode:
// compose, synthesize, publish, record.
package pipeline

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/publisher"
	"github.com/book-expert/lingocast/internal/story"
	"github.com/book-expert/lingocast/internal/tts"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

// State is a pipeline stage or terminal state.
type State string

// Pipeline states.
const (
	StateComposing      State = "composing"
	StateSynthesizing   State = "synthesizing"
	StatePublishing     State = "publishing"
	StateRecording      State = "recording"
	StateDone           State = "done"
	StateAborted        State = "aborted"
	StatePartialSuccess State = "partial_success"
)

// Composer writes the story script for a job.
type Composer interface {
	Compose(topic string, words []string) (*story.Story, error)
}

// Synthesizer turns the script into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, inputPath, mainVoice, guestVoice string) (*core.SynthesisArtifact, error)
}

// Publisher uploads the audio and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, localPath, objectName string) (string, error)
}

// Recorder persists episode metadata.
type Recorder interface {
	Record(ctx context.Context, draft core.EpisodeRecord) (*core.EpisodeRecord, error)
}

// Outcome is the result of one run.
type Outcome struct {
	JobID    string
	State    State
	FailedAt State
	Result   core.JobResult
	Err      error
}

// StatusCode maps the outcome to the HTTP status the caller sees.
func (o Outcome) StatusCode() int {
	switch {
	case o.State == StateDone:
		return http.StatusOK
	case errors.Is(o.Err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Options holds the optional parts of a Pipeline.
type Options struct {
	// FallbackAudioURL is returned as audioUrl when publishing fails.
	FallbackAudioURL string
	// Notifier is told about every job that reaches Done. May be nil.
	Notifier core.Notifier
	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline sequences the job stages. Every job writes the composer's single
// input file and the artifacts named after it, so jobs run one at a time:
// concurrent callers queue on mu from Compose until the job settles.
type Pipeline struct {
	mu sync.Mutex

	composer    Composer
	synthesizer Synthesizer
	publisher   Publisher
	recorder    Recorder
	opts        Options
	log         *logger.Logger
}

// New creates a Pipeline from its collaborators.
func New(composer Composer, synthesizer Synthesizer, pub Publisher, recorder Recorder, opts Options, log *logger.Logger) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Pipeline{
		mu:          sync.Mutex{},
		composer:    composer,
		synthesizer: synthesizer,
		publisher:   pub,
		recorder:    recorder,
		opts:        opts,
		log:         log,
	}
}

// Run executes one job to a terminal state.
func (p *Pipeline) Run(ctx context.Context, request core.JobRequest) Outcome {
	jobID := uuid.NewString()
	req := request.WithDefaults()

	p.log.Info("Job %s: topic %q, %d words, voices %s/%s", jobID, req.Topic, len(req.Words), req.MainVoice, req.GuestVoice)

	err := req.Validate()
	if err != nil {
		return p.abort(jobID, StateComposing, core.JobResult{}, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	composed, err := p.composer.Compose(req.Topic, req.Words)
	if err != nil {
		return p.abort(jobID, StateComposing, core.JobResult{}, err)
	}

	transcript := core.TextTranscript(composed.Text)
	result := core.JobResult{
		StoryTitle: composed.Title,
		Transcript: transcript,
		AudioURL:   "",
		Episode:    nil,
		Error:      "",
	}

	artifact, err := p.synthesizer.Synthesize(ctx, composed.InputPath, req.MainVoice, req.GuestVoice)
	if err != nil {
		return p.abort(jobID, StateSynthesizing, result, err)
	}

	if artifact.StructuredTranscriptPath != "" {
		result.Transcript = p.loadStructured(jobID, artifact.StructuredTranscriptPath, transcript)
	}

	objectName := publisher.ObjectName(composed.Title, p.opts.Now(), filepath.Ext(artifact.AudioPath))

	audioURL, err := p.publisher.Publish(ctx, artifact.AudioPath, objectName)
	if err != nil {
		p.log.Error("Job %s: publishing failed: %v", jobID, err)

		result.Transcript = transcript
		result.AudioURL = p.opts.FallbackAudioURL
		result.Error = err.Error()

		return Outcome{
			JobID:    jobID,
			State:    StatePartialSuccess,
			FailedAt: StatePublishing,
			Result:   result,
			Err:      err,
		}
	}

	result.AudioURL = audioURL

	record, err := p.recorder.Record(ctx, core.EpisodeRecord{
		ID:         composed.Title,
		Title:      composed.Title,
		Topic:      req.Topic,
		Words:      composed.Words,
		Transcript: result.Transcript,
		AudioURL:   audioURL,
	})
	if err != nil {
		p.log.Warn("Job %s: episode not recorded: %v", jobID, err)
	} else {
		result.Episode = record
	}

	p.log.Info("Job %s done: %s", jobID, audioURL)
	p.notify(ctx, jobID, result)

	return Outcome{
		JobID:    jobID,
		State:    StateDone,
		FailedAt: "",
		Result:   result,
		Err:      nil,
	}
}

func (p *Pipeline) abort(jobID string, at State, result core.JobResult, err error) Outcome {
	p.log.Error("Job %s aborted while %s: %v", jobID, at, err)

	result.Error = err.Error()

	return Outcome{
		JobID:    jobID,
		State:    StateAborted,
		FailedAt: at,
		Result:   result,
		Err:      err,
	}
}

func (p *Pipeline) loadStructured(jobID, path string, fallback core.Transcript) core.Transcript {
	document, err := tts.LoadStructuredTranscript(path)
	if err != nil {
		p.log.Warn("Job %s: using plain transcript: %v", jobID, err)

		return fallback
	}

	return core.Transcript{Text: fallback.Text, Structured: document}
}

func (p *Pipeline) notify(ctx context.Context, jobID string, result core.JobResult) {
	if p.opts.Notifier == nil {
		return
	}

	err := p.opts.Notifier.AudioPublished(ctx, jobID, result)
	if err != nil {
		p.log.Warn("Job %s: completion notice not sent: %v", jobID, err)
	}
}
