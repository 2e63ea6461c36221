package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChipCracker/slurm-tui/internal/pkg/client/slurm"
	"github.com/ChipCracker/slurm-tui/internal/pkg/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go st.Run(ctx)
	return st
}

func TestImmediatePollOnStart(t *testing.T) {
	st := startStore(t)
	s := New(st, testLogger())

	var polls atomic.Int32
	s.Add(&Source{
		Name:     store.SourceJobs,
		Interval: time.Hour, // only the activation poll can fire
		Timeout:  time.Second,
		Poll: func(ctx context.Context) (store.Update, error) {
			polls.Add(1)
			return store.Update{Jobs: []slurm.Job{{JobID: "1"}}}, nil
		},
	})
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(st.Jobs()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), polls.Load())
}

func TestTicksKeepFiringAfterFailure(t *testing.T) {
	st := startStore(t)
	s := New(st, testLogger())

	var polls atomic.Int32
	s.Add(&Source{
		Name:     store.SourceJobs,
		Interval: 20 * time.Millisecond,
		Timeout:  time.Second,
		Poll: func(ctx context.Context) (store.Update, error) {
			n := polls.Add(1)
			if n == 1 {
				return store.Update{}, errors.New("transient failure")
			}
			return store.Update{Jobs: []slurm.Job{{JobID: "ok"}}}, nil
		},
	})
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(st.Jobs()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestFailureInOneSourceDoesNotAffectAnother(t *testing.T) {
	st := startStore(t)
	s := New(st, testLogger())

	s.Add(&Source{
		Name:     store.SourceJobs,
		Interval: 20 * time.Millisecond,
		Timeout:  time.Second,
		Poll: func(ctx context.Context) (store.Update, error) {
			panic("broken source")
		},
	})
	var partitionPolls atomic.Int32
	s.Add(&Source{
		Name:     store.SourcePartitions,
		Interval: 20 * time.Millisecond,
		Timeout:  time.Second,
		Poll: func(ctx context.Context) (store.Update, error) {
			partitionPolls.Add(1)
			return store.Update{Partitions: []slurm.Partition{{Name: "p0"}}}, nil
		},
	})
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return partitionPolls.Load() >= 3 && len(st.Partitions()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, st.Status(store.SourceJobs).LastError, "poll panicked")
}

func TestStopCancelsFutureTicks(t *testing.T) {
	st := startStore(t)
	s := New(st, testLogger())

	var polls atomic.Int32
	s.Add(&Source{
		Name:     store.SourceJobs,
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
		Poll: func(ctx context.Context) (store.Update, error) {
			polls.Add(1)
			return store.Update{}, nil
		},
	})
	s.Start(context.Background())

	require.Eventually(t, func() bool { return polls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	settled := polls.Load()
	time.Sleep(50 * time.Millisecond)
	// A dispatched poll may still land right around Stop; no new ticks after.
	assert.LessOrEqual(t, polls.Load(), settled+1)
}
