package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowerDeliversNewContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	updates := make(chan string, 16)
	f := NewFollower(path, 100, 10*time.Millisecond, func(content string) {
		updates <- content
	}, testLogger())
	f.Start(context.Background())
	defer f.Stop()

	select {
	case content := <-updates:
		assert.Equal(t, "first", content)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial content delivered")
	}

	require.NoError(t, os.WriteFile(path, []byte("first\nsecond\n"), 0o644))
	select {
	case content := <-updates:
		assert.Equal(t, "first\nsecond", content)
	case <-time.After(2 * time.Second):
		t.Fatal("appended content not delivered")
	}
}

func TestFollowerSkipsUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, os.WriteFile(path, []byte("static\n"), 0o644))

	updates := make(chan string, 16)
	f := NewFollower(path, 100, 5*time.Millisecond, func(content string) {
		updates <- content
	}, testLogger())
	f.Start(context.Background())

	<-updates
	time.Sleep(50 * time.Millisecond)
	f.Stop()
	assert.Empty(t, updates)
}

func TestFollowerStopPreventsFurtherDeliveries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	updates := make(chan string, 16)
	f := NewFollower(path, 100, 10*time.Millisecond, func(content string) {
		updates <- content
	}, testLogger())
	f.Start(context.Background())
	<-updates

	f.Stop()
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, updates)

	// Restart picks the change up again.
	f.Start(context.Background())
	select {
	case content := <-updates:
		assert.Equal(t, "one\ntwo", content)
	case <-time.After(2 * time.Second):
		t.Fatal("restart did not resume delivery")
	}
	f.Stop()
}

func TestFollowerToleratesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.log")

	updates := make(chan string, 16)
	f := NewFollower(path, 100, 10*time.Millisecond, func(content string) {
		updates <- content
	}, testLogger())
	f.Start(context.Background())
	defer f.Stop()

	// Nothing delivered while the file is absent.
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, updates)

	require.NoError(t, os.WriteFile(path, []byte("appeared\n"), 0o644))
	select {
	case content := <-updates:
		assert.Equal(t, "appeared", content)
	case <-time.After(2 * time.Second):
		t.Fatal("content not delivered once the file appeared")
	}
}
