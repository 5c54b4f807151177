// Package core defines the domain types and collaborator interfaces shared by
// the LingoCast job pipeline.
package core

import "context"

// ObjectStore defines the interface for a remote blob store that can hand out
// public links to what it stores.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) (string, error)
}

// EpisodeStore persists episode metadata. Upsert must be keyed by record.ID so
// that repeated titles overwrite instead of duplicating.
type EpisodeStore interface {
	Upsert(ctx context.Context, record EpisodeRecord) error
}

// Invocation describes a single external process call.
type Invocation struct {
	Name string
	Args []string
	Dir  string
}

// Execution is what a finished process left behind.
type Execution struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// CommandRunner runs an external program to completion. A non-zero exit is
// reported through Execution.ExitCode; the error is reserved for processes
// that could not be started or were cut off by the context.
type CommandRunner interface {
	Run(ctx context.Context, inv Invocation) (Execution, error)
}

// Notifier announces a finished job to interested parties.
type Notifier interface {
	AudioPublished(ctx context.Context, jobID string, result JobResult) error
}
