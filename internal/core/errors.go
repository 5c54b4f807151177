package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigurationMissing indicates absent credentials or paths.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrTemplateUnavailable indicates the story template could not be read.
	ErrTemplateUnavailable = errors.New("story template unavailable")
	// ErrSynthesisProcessFailed indicates the synthesis process exited non-zero.
	ErrSynthesisProcessFailed = errors.New("synthesis process failed")
	// ErrSynthesisArtifactMissing indicates a clean exit without the expected audio file.
	ErrSynthesisArtifactMissing = errors.New("synthesis produced no audio artifact")
	// ErrSynthesisInvocationFailed indicates the synthesis process could not be started.
	ErrSynthesisInvocationFailed = errors.New("synthesis process could not be started")
	// ErrSynthesisTimeout indicates the synthesis process outlived its deadline.
	ErrSynthesisTimeout = errors.New("synthesis process timed out")
	// ErrSynthesisCanceled indicates the job was canceled while the synthesis process ran.
	ErrSynthesisCanceled = errors.New("synthesis process canceled")
	// ErrUploadFailed indicates the storage collaborator rejected or failed the upload.
	ErrUploadFailed = errors.New("upload failed")
	// ErrUploadNotConfigured indicates no storage collaborator is configured.
	ErrUploadNotConfigured = errors.New("upload not configured")
	// ErrPersistenceFailed indicates the episode could not be stored.
	ErrPersistenceFailed = errors.New("episode persistence failed")
	// ErrInvalidRequest indicates a request that cannot be processed safely.
	ErrInvalidRequest = errors.New("invalid job request")
)

// ProcessError carries the diagnostic output of a synthesis process that
// exited with a non-zero status.
type ProcessError struct {
	ExitCode int
	Output   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s (exit code %d): %s", ErrSynthesisProcessFailed, e.ExitCode, strings.TrimSpace(e.Output))
}

func (e *ProcessError) Unwrap() error {
	return ErrSynthesisProcessFailed
}

// ArtifactMissingError carries the path the synthesis engine was expected to write.
type ArtifactMissingError struct {
	ExpectedPath string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("%s: expected %s", ErrSynthesisArtifactMissing, e.ExpectedPath)
}

func (e *ArtifactMissingError) Unwrap() error {
	return ErrSynthesisArtifactMissing
}

// RemoteError is a non-success answer from a remote collaborator. Kind is the
// sentinel of the stage that made the call.
type RemoteError struct {
	Kind       error
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}
