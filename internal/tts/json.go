package tts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidTranscript is returned when the structured transcript is not JSON.
var ErrInvalidTranscript = errors.New("structured transcript is not valid JSON")

// LoadStructuredTranscript reads the engine's JSON transcript without
// interpreting it.
func LoadStructuredTranscript(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read structured transcript %s: %w", path, err)
	}

	var document json.RawMessage

	err = parseJSON(data, &document)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTranscript, err)
	}

	return document, nil
}

// parseJSON parses JSON data into the target interface.
func parseJSON(data []byte, target any) error {
	err := json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}
