package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/book-expert/lingocast/internal/core"
)

// processWaitDelay bounds how long Run waits for the output pipes to close
// after the process group has been killed.
const processWaitDelay = 2 * time.Second

// ExecRunner runs invocations as real operating system processes.
type ExecRunner struct{}

// Run starts the process, waits for it and captures both output streams.
// When ctx ends, the whole process group is killed so helpers the engine
// spawned cannot keep Run blocked.
func (ExecRunner) Run(ctx context.Context, inv core.Invocation) (core.Execution, error) {
	// #nosec G204 -- the executable comes from configuration, arguments are validated request fields
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.WaitDelay = processWaitDelay
	killProcessGroupOnCancel(cmd)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	execution := core.Execution{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return execution, fmt.Errorf("%s was interrupted: %w", inv.Name, ctxErr)
	}

	if err == nil {
		return execution, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execution.ExitCode = exitErr.ExitCode()

		return execution, nil
	}

	return execution, fmt.Errorf("failed to start %s: %w", inv.Name, err)
}
