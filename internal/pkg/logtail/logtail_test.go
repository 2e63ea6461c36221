package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCarriageReturnOverwrite(t *testing.T) {
	out := Render("progress 50%\rprogress 100%\ndone\n", 0)
	assert.Equal(t, "progress 100%\ndone", out)
}

func TestRenderKeepsTrailingPartialLine(t *testing.T) {
	assert.Equal(t, "a\nb", Render("a\nb", 0))
}

func TestRenderDropsOverwriteArtifacts(t *testing.T) {
	// A progress bar that ends on \r leaves an empty logical line behind.
	out := Render("step 1\n10%\r20%\r\ndone\n", 0)
	assert.Equal(t, "step 1\ndone", out)
}

func TestRenderDropsWhitespaceOnlyLines(t *testing.T) {
	assert.Equal(t, "x", Render("\n   \n\t\nx\n", 0))
}

func TestRenderTruncation(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 2000; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}

	out := Render(b.String(), 500)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 501)
	assert.Equal(t, "... (1500 lines omitted) ...", lines[0])
	assert.Equal(t, "line 1501", lines[1])
	assert.Equal(t, "line 2000", lines[500])
}

func TestRenderNoTruncationUnderLimit(t *testing.T) {
	out := Render("a\nb\nc\n", 500)
	assert.Equal(t, "a\nb\nc", out)
}

func TestReadTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, os.WriteFile(path, []byte("hello\rworld\n"), 0o644))

	out, err := ReadTail(path, DefaultMaxLines)
	require.NoError(t, err)
	assert.Equal(t, "world", out)
}

func TestReadTailMissingFile(t *testing.T) {
	_, err := ReadTail(filepath.Join(t.TempDir(), "nope.log"), 10)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = ReadTail("", 10)
	assert.ErrorIs(t, err, ErrUnavailable)
}
