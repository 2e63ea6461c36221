package exec

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCapturesStdout(t *testing.T) {
	c := New(testLogger())

	res, err := c.Run(context.Background(), 5*time.Second, "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.False(t, res.Failed())
}

func TestRunCapturesStderrAndExitCode(t *testing.T) {
	c := New(testLogger())

	res, err := c.Run(context.Background(), 5*time.Second, "sh", "-c", "echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.True(t, res.Failed())
}

func TestRunTimeout(t *testing.T) {
	c := New(testLogger())

	start := time.Now()
	res, err := c.Run(context.Background(), 200*time.Millisecond, "sleep", "5")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, Result{Stderr: "Command timed out", ExitCode: 1}, res)
	// Must come back near the deadline, not after the child would have exited.
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRunCommandNotFound(t *testing.T) {
	c := New(testLogger())

	res, err := c.Run(context.Background(), time.Second, "no-such-command-for-sure")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "Command not found: no-such-command-for-sure", res.Stderr)
}
