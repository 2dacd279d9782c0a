package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// ExitError carries a process exit code out of the command tree
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ToolRunner runs Claude Code in the foreground and reports its exit code
type ToolRunner interface {
	Run(ctx context.Context, command []string, env []string) (int, error)
}

// ExecRunner runs the tool with the launcher's standard streams. When ctx is
// cancelled the tool is interrupted and killed if it has not exited after
// GracePeriod.
type ExecRunner struct {
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	GracePeriod time.Duration
}

// NewExecRunner returns a runner attached to the process's stdio
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, GracePeriod: 5 * time.Second}
}

func (r *ExecRunner) Run(ctx context.Context, command []string, env []string) (int, error) {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Env = env
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.GracePeriod

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}
