// Package tts drives the external text-to-speech program and locates the
// artifacts it leaves behind.
package tts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/fileutil"
	"github.com/book-expert/logger"
)

const (
	outputSuffix         = "_output"
	flagMainVoice        = "--main_voice"
	flagGuestVoice       = "--guest_voice"
	flagInput            = "--input"
	flagTranscript       = "--transcript"
	transcriptFormatJSON = "json"
)

// Config holds the settings of the synthesis program.
type Config struct {
	Executable              string
	Script                  string
	WorkDir                 string
	AudioExtension          string
	UseStructuredTranscript bool
	Timeout                 time.Duration
}

// Invoker runs the synthesis program once per job.
type Invoker struct {
	config Config
	runner core.CommandRunner
	log    *logger.Logger
}

// New creates a new Invoker.
func New(cfg Config, runner core.CommandRunner, log *logger.Logger) *Invoker {
	return &Invoker{
		config: cfg,
		runner: runner,
		log:    log,
	}
}

// GetConfig returns the synthesis configuration.
func (i *Invoker) GetConfig() Config {
	return i.config
}

// ExpectedArtifact computes where the engine will write its output. It is a
// pure function of its arguments.
func ExpectedArtifact(inputPath, mainVoice, guestVoice, audioExt string) core.SynthesisArtifact {
	name := strings.Join([]string{fileutil.StripExt(inputPath), mainVoice, guestVoice}, "_") + outputSuffix + audioExt
	audioPath := filepath.Join(filepath.Dir(inputPath), name)

	return core.SynthesisArtifact{
		AudioPath:                audioPath,
		StructuredTranscriptPath: fileutil.StructuredSibling(audioPath),
	}
}

// Args builds the command line for one job.
func (i *Invoker) Args(inputPath, mainVoice, guestVoice string) []string {
	var args []string
	if i.config.Script != "" {
		args = append(args, i.config.Script)
	}

	args = append(args,
		flagMainVoice, mainVoice,
		flagGuestVoice, guestVoice,
		flagInput, inputPath,
	)

	if i.config.UseStructuredTranscript {
		args = append(args, flagTranscript, transcriptFormatJSON)
	}

	return args
}

// Synthesize runs the engine on the input artifact and verifies the audio
// artifact exists afterwards. The program is started at most once.
func (i *Invoker) Synthesize(ctx context.Context, inputPath, mainVoice, guestVoice string) (*core.SynthesisArtifact, error) {
	if i.config.Executable == "" {
		return nil, fmt.Errorf("%w: %w: no synthesis executable", core.ErrSynthesisInvocationFailed, core.ErrConfigurationMissing)
	}

	expected := ExpectedArtifact(inputPath, mainVoice, guestVoice, i.config.AudioExtension)

	runCtx := ctx
	if i.config.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, i.config.Timeout)
		defer cancel()
	}

	i.log.Info("Executing synthesis: %s (main voice %s, guest voice %s)", i.config.Executable, mainVoice, guestVoice)

	execution, err := i.runner.Run(runCtx, core.Invocation{
		Name: i.config.Executable,
		Args: i.Args(inputPath, mainVoice, guestVoice),
		Dir:  i.config.WorkDir,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", core.ErrSynthesisTimeout, i.config.Timeout, err)
		}

		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", core.ErrSynthesisCanceled, err)
		}

		return nil, fmt.Errorf("%w: %w", core.ErrSynthesisInvocationFailed, err)
	}

	if execution.ExitCode != 0 {
		return nil, &core.ProcessError{
			ExitCode: execution.ExitCode,
			Output:   diagnosticOutput(execution),
		}
	}

	i.log.Info("Synthesis output: %s", strings.TrimSpace(string(execution.Stdout)))

	return i.verify(expected)
}

func (i *Invoker) verify(expected core.SynthesisArtifact) (*core.SynthesisArtifact, error) {
	exists, err := fileutil.FileExists(expected.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesisArtifactMissing, err)
	}

	if !exists {
		return nil, &core.ArtifactMissingError{ExpectedPath: expected.AudioPath}
	}

	i.log.Info("Synthesis output file found at: %s", expected.AudioPath)

	artifact := core.SynthesisArtifact{
		AudioPath:                expected.AudioPath,
		StructuredTranscriptPath: "",
	}

	if !i.config.UseStructuredTranscript {
		return &artifact, nil
	}

	exists, err = fileutil.FileExists(expected.StructuredTranscriptPath)
	switch {
	case err != nil:
		i.log.Warn("Could not check structured transcript %s: %v", expected.StructuredTranscriptPath, err)
	case !exists:
		i.log.Warn("Structured transcript not found at %s; continuing with audio only", expected.StructuredTranscriptPath)
	default:
		artifact.StructuredTranscriptPath = expected.StructuredTranscriptPath
	}

	return &artifact, nil
}

func diagnosticOutput(execution core.Execution) string {
	stderr := strings.TrimSpace(string(execution.Stderr))
	if stderr != "" {
		return stderr
	}

	return strings.TrimSpace(string(execution.Stdout))
}
