// Package tts_test tests the synthesis invoker.
package tts_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/tts"
	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockStart = errors.New("executable file not found in $PATH")

// mockRunner is a mock implementation of the CommandRunner interface. When
// writeAudio or writeTranscript is set it creates the expected artifacts the
// way a real engine would.
type mockRunner struct {
	execution       core.Execution
	runErr          error
	writeAudio      bool
	writeTranscript string
	audioExt        string
	calls           int
	lastInvocation  core.Invocation
}

func (m *mockRunner) Run(_ context.Context, inv core.Invocation) (core.Execution, error) {
	m.calls++
	m.lastInvocation = inv

	if m.runErr != nil {
		return core.Execution{}, m.runErr
	}

	inputPath, mainVoice, guestVoice := argValue(inv.Args, "--input"), argValue(inv.Args, "--main_voice"), argValue(inv.Args, "--guest_voice")
	expected := tts.ExpectedArtifact(inputPath, mainVoice, guestVoice, m.audioExt)

	if m.writeAudio {
		_ = os.WriteFile(expected.AudioPath, []byte("ID3 fake audio"), 0o600)
	}

	if m.writeTranscript != "" {
		_ = os.WriteFile(expected.StructuredTranscriptPath, []byte(m.writeTranscript), 0o600)
	}

	return m.execution, nil
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}

	return ""
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "tts-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func testConfig() tts.Config {
	return tts.Config{
		Executable:              "/opt/tts/bin/python",
		Script:                  "inference/effortless_story_generator.py",
		WorkDir:                 "/opt/tts",
		AudioExtension:          ".mp3",
		UseStructuredTranscript: false,
		Timeout:                 0,
	}
}

func writeInput(t *testing.T) string {
	t.Helper()

	inputPath := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("[SPEAKER_A] hello"), 0o600))

	return inputPath
}

func TestExpectedArtifact_Naming(t *testing.T) {
	t.Parallel()

	artifact := tts.ExpectedArtifact("/home/ben/lingocast_output/input.txt", "albo", "lachlan", ".mp3")

	assert.Equal(t, "/home/ben/lingocast_output/input_albo_lachlan_output.mp3", artifact.AudioPath)
	assert.Equal(t, "/home/ben/lingocast_output/input_albo_lachlan_output.json", artifact.StructuredTranscriptPath)
	assert.Equal(t, "input_albo_lachlan_output.mp3", filepath.Base(artifact.AudioPath))
}

func TestExpectedArtifact_Pure(t *testing.T) {
	t.Parallel()

	first := tts.ExpectedArtifact("/data/story.txt", "main", "guest", ".wav")
	for range 10 {
		assert.Equal(t, first, tts.ExpectedArtifact("/data/story.txt", "main", "guest", ".wav"))
	}

	assert.NotEqual(t, first, tts.ExpectedArtifact("/data/story.txt", "guest", "main", ".wav"))
}

func TestArgs(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	invoker := tts.New(cfg, &mockRunner{}, newTestLogger(t))

	assert.Equal(t, []string{
		"inference/effortless_story_generator.py",
		"--main_voice", "albo",
		"--guest_voice", "lachlan",
		"--input", "/tmp/input.txt",
	}, invoker.Args("/tmp/input.txt", "albo", "lachlan"))

	cfg.Script = ""
	cfg.UseStructuredTranscript = true
	invoker = tts.New(cfg, &mockRunner{}, newTestLogger(t))

	assert.Equal(t, []string{
		"--main_voice", "albo",
		"--guest_voice", "lachlan",
		"--input", "/tmp/input.txt",
		"--transcript", "json",
	}, invoker.Args("/tmp/input.txt", "albo", "lachlan"))
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{writeAudio: true, audioExt: ".mp3"}
	invoker := tts.New(testConfig(), runner, newTestLogger(t))
	inputPath := writeInput(t)

	artifact, err := invoker.Synthesize(context.Background(), inputPath, "albo", "lachlan")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(inputPath), "input_albo_lachlan_output.mp3"), artifact.AudioPath)
	assert.Empty(t, artifact.StructuredTranscriptPath)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, "/opt/tts/bin/python", runner.lastInvocation.Name)
	assert.Equal(t, "/opt/tts", runner.lastInvocation.Dir)
}

func TestSynthesize_StructuredTranscript(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.UseStructuredTranscript = true

	runner := &mockRunner{writeAudio: true, writeTranscript: `{"segments":[]}`, audioExt: ".mp3"}
	invoker := tts.New(cfg, runner, newTestLogger(t))

	artifact, err := invoker.Synthesize(context.Background(), writeInput(t), "albo", "lachlan")
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.StructuredTranscriptPath)
	assert.Contains(t, runner.lastInvocation.Args, "--transcript")
}

func TestSynthesize_StructuredTranscriptMissingIsNotFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.UseStructuredTranscript = true

	runner := &mockRunner{writeAudio: true, audioExt: ".mp3"}
	invoker := tts.New(cfg, runner, newTestLogger(t))

	artifact, err := invoker.Synthesize(context.Background(), writeInput(t), "albo", "lachlan")
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.AudioPath)
	assert.Empty(t, artifact.StructuredTranscriptPath)
}

func TestSynthesize_ProcessFailed(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{
		execution: core.Execution{ExitCode: 2, Stdout: nil, Stderr: []byte("CUDA out of memory\n")},
		audioExt:  ".mp3",
	}
	invoker := tts.New(testConfig(), runner, newTestLogger(t))

	artifact, err := invoker.Synthesize(context.Background(), writeInput(t), "albo", "lachlan")
	require.ErrorIs(t, err, core.ErrSynthesisProcessFailed)
	assert.Nil(t, artifact)

	var processErr *core.ProcessError
	require.ErrorAs(t, err, &processErr)
	assert.Equal(t, 2, processErr.ExitCode)
	assert.Equal(t, "CUDA out of memory", processErr.Output)
}

func TestSynthesize_ArtifactMissing(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{audioExt: ".mp3"}
	invoker := tts.New(testConfig(), runner, newTestLogger(t))
	inputPath := writeInput(t)

	_, err := invoker.Synthesize(context.Background(), inputPath, "albo", "lachlan")
	require.ErrorIs(t, err, core.ErrSynthesisArtifactMissing)
	require.NotErrorIs(t, err, core.ErrSynthesisProcessFailed)

	var missingErr *core.ArtifactMissingError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, filepath.Join(filepath.Dir(inputPath), "input_albo_lachlan_output.mp3"), missingErr.ExpectedPath)
}

func TestSynthesize_InvocationFailed(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{runErr: errMockStart, audioExt: ".mp3"}
	invoker := tts.New(testConfig(), runner, newTestLogger(t))

	_, err := invoker.Synthesize(context.Background(), writeInput(t), "albo", "lachlan")
	require.ErrorIs(t, err, core.ErrSynthesisInvocationFailed)
	require.ErrorIs(t, err, errMockStart)
}

func TestSynthesize_NoExecutable(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Executable = ""

	runner := &mockRunner{}
	invoker := tts.New(cfg, runner, newTestLogger(t))

	_, err := invoker.Synthesize(context.Background(), writeInput(t), "albo", "lachlan")
	require.ErrorIs(t, err, core.ErrSynthesisInvocationFailed)
	require.ErrorIs(t, err, core.ErrConfigurationMissing)
	assert.Zero(t, runner.calls)
}

func TestSynthesize_Timeout(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond

	runner := &mockRunner{runErr: context.DeadlineExceeded}
	invoker := tts.New(cfg, runner, newTestLogger(t))

	_, err := invoker.Synthesize(context.Background(), writeInput(t), "albo", "lachlan")
	require.ErrorIs(t, err, core.ErrSynthesisTimeout)
	require.NotErrorIs(t, err, core.ErrSynthesisInvocationFailed)
	assert.Equal(t, 1, runner.calls)
}

func TestSynthesize_Canceled(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{runErr: fmt.Errorf("fake-tts was interrupted: %w", context.Canceled)}
	invoker := tts.New(testConfig(), runner, newTestLogger(t))

	_, err := invoker.Synthesize(context.Background(), writeInput(t), "albo", "lachlan")
	require.ErrorIs(t, err, core.ErrSynthesisCanceled)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, core.ErrSynthesisInvocationFailed)
	require.NotErrorIs(t, err, core.ErrSynthesisTimeout)
}
