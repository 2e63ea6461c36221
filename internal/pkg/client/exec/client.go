package exec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// ExecCommandFunc matches exec.CommandContext and is injected so tests can
// substitute a fake process.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Result carries the outcome of one command invocation. Expected failure
// modes (timeout, missing executable, non-zero exit) are encoded here rather
// than as errors: callers inspect ExitCode and decide.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the invocation should be treated as yielding no data.
func (r Result) Failed() bool { return r.ExitCode != 0 }

type Client struct {
	execCommand ExecCommandFunc
	logger      *slog.Logger
}

func New(logger *slog.Logger) *Client {
	return &Client{
		execCommand: exec.CommandContext,
		logger:      logger,
	}
}

func (c *Client) Set(exec ExecCommandFunc, logger *slog.Logger) *Client {
	c.execCommand = exec
	c.logger = logger
	return c
}

// Run executes name with args under a deadline. A timeout yields
// {"", "Command timed out", 1}, a missing executable
// {"", "Command not found: <name>", 1}, and a non-zero exit the process's
// own streams and code; none of these is an error. The returned error is
// reserved for faults outside the command's control (fork failure, pipe
// setup). The child is killed and reaped on timeout, never left behind.
func (c *Client) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := c.execCommand(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that ignore SIGKILL delivery races still get reaped: Wait
	// gives up on the pipes after this delay instead of blocking forever.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	c.logger.Debug("command finished", "cmd", cmd.String(), "err", err)
	if err == nil {
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return Result{Stderr: "Command timed out", ExitCode: 1}, nil
	case errors.Is(err, exec.ErrNotFound):
		return Result{Stderr: "Command not found: " + name, ExitCode: 1}, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: ee.ExitCode(),
		}, nil
	}
	c.logger.Error("unable to execute command", "cmd", cmd.String(), "err", err)
	return Result{ExitCode: 1}, err
}
