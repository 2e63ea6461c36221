// Package logtail reads job log files the way a terminal would have shown
// them: carriage returns overwrite the current line instead of breaking it,
// so progress-bar output collapses to its final state.
package logtail

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrUnavailable marks a log that does not exist (yet). Jobs that have not
// started writing, or that redirect only one stream, hit this routinely; it
// is a display condition, not a failure.
var ErrUnavailable = errors.New("log unavailable")

// DefaultMaxLines bounds how much of a log the viewer loads at once.
const DefaultMaxLines = 500

// ReadTail reads the file at path, replays terminal semantics over its
// content and returns at most maxLines logical lines, preceded by an
// omission marker when older lines were cut. A missing file or empty path
// returns ErrUnavailable; any other read failure is wrapped so the caller
// can render it inline.
func ReadTail(path string, maxLines int) (string, error) {
	if path == "" {
		return "", ErrUnavailable
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrUnavailable
		}
		return "", fmt.Errorf("error reading log: %w", err)
	}
	return Render(string(content), maxLines), nil
}

// Render reconstructs the visible lines of content. A carriage return
// discards everything accumulated on the current line, a newline finalizes
// it, and a trailing unterminated line is kept. Lines left empty by
// overwrites are dropped. When more than maxLines remain, only the last
// maxLines are returned behind a marker stating how many were omitted;
// maxLines <= 0 means no truncation.
func Render(content string, maxLines int) string {
	lines := make([]string, 0)
	var current strings.Builder
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\r':
			current.Reset()
		case '\n':
			lines = append(lines, current.String())
			current.Reset()
		default:
			current.WriteByte(content[i])
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	visible := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			visible = append(visible, line)
		}
	}

	if maxLines > 0 && len(visible) > maxLines {
		omitted := len(visible) - maxLines
		tail := visible[len(visible)-maxLines:]
		out := make([]string, 0, maxLines+1)
		out = append(out, fmt.Sprintf("... (%d lines omitted) ...", omitted))
		out = append(out, tail...)
		return strings.Join(out, "\n")
	}
	return strings.Join(visible, "\n")
}
