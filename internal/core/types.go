package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Request defaults, matching what the web front end has always assumed.
const (
	DefaultTopic      = "unknown topic"
	DefaultMainVoice  = "albo"
	DefaultGuestVoice = "lachlan"
)

var voicePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// JobRequest is the input of a single job. It is not modified once the
// pipeline starts.
type JobRequest struct {
	Topic      string   `json:"topic"`
	Words      []string `json:"words"`
	MainVoice  string   `json:"mainVoice"`
	GuestVoice string   `json:"guestVoice"`
}

// WithDefaults returns a copy of the request with absent fields filled in.
func (r JobRequest) WithDefaults() JobRequest {
	out := r
	if strings.TrimSpace(out.Topic) == "" {
		out.Topic = DefaultTopic
	}

	if out.MainVoice == "" {
		out.MainVoice = DefaultMainVoice
	}

	if out.GuestVoice == "" {
		out.GuestVoice = DefaultGuestVoice
	}

	out.Words = append([]string(nil), r.Words...)
	if out.Words == nil {
		out.Words = []string{}
	}

	return out
}

// Validate checks the fields that end up in file names and command lines.
func (r JobRequest) Validate() error {
	if !voicePattern.MatchString(r.MainVoice) {
		return fmt.Errorf("%w: main voice %q", ErrInvalidRequest, r.MainVoice)
	}

	if !voicePattern.MatchString(r.GuestVoice) {
		return fmt.Errorf("%w: guest voice %q", ErrInvalidRequest, r.GuestVoice)
	}

	return nil
}

// Transcript is either speaker-tagged plain text or a structured document
// produced by the synthesis engine. It is passed through untouched.
type Transcript struct {
	Text       string
	Structured json.RawMessage
}

// TextTranscript wraps plain transcript text.
func TextTranscript(text string) Transcript {
	return Transcript{Text: text, Structured: nil}
}

// IsStructured reports whether the structured form is present.
func (t Transcript) IsStructured() bool {
	return len(t.Structured) > 0
}

// String renders the transcript for storage columns that only hold text.
func (t Transcript) String() string {
	if t.IsStructured() {
		return string(t.Structured)
	}

	return t.Text
}

// MarshalJSON emits a JSON string for plain text and the raw document otherwise.
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.IsStructured() {
		return t.Structured, nil
	}

	data, err := json.Marshal(t.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript text: %w", err)
	}

	return data, nil
}

// UnmarshalJSON accepts either form.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string

		err := json.Unmarshal(trimmed, &text)
		if err != nil {
			return fmt.Errorf("failed to unmarshal transcript text: %w", err)
		}

		*t = TextTranscript(text)

		return nil
	}

	if bytes.Equal(trimmed, []byte("null")) {
		*t = Transcript{Text: "", Structured: nil}

		return nil
	}

	*t = Transcript{Text: "", Structured: append(json.RawMessage(nil), trimmed...)}

	return nil
}

// SynthesisArtifact points at the files the synthesis engine produced.
// StructuredTranscriptPath is empty when no structured transcript exists.
type SynthesisArtifact struct {
	AudioPath                string
	StructuredTranscriptPath string
}

// EpisodeRecord is the persisted metadata of one published episode. ID is
// always the title.
type EpisodeRecord struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Topic      string     `json:"topic"`
	Words      []string   `json:"words"`
	Transcript Transcript `json:"transcript"`
	AudioURL   string     `json:"audioUrl"`
}

// JobResult is the caller-visible outcome of a job.
type JobResult struct {
	StoryTitle string         `json:"storyTitle,omitempty"`
	Transcript Transcript     `json:"transcript"`
	AudioURL   string         `json:"audioUrl"`
	Episode    *EpisodeRecord `json:"episode,omitempty"`
	Error      string         `json:"error,omitempty"`
}
