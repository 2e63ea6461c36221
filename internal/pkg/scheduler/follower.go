package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ChipCracker/slurm-tui/internal/pkg/logtail"
)

// DefaultFollowInterval is the re-read cadence of follow mode.
const DefaultFollowInterval = 2 * time.Second

// Follower emulates tail -f over a job log: on a short interval it re-reads
// the tail and hands changed content to the observer. It is independent of
// the Scheduler's poll slots and is started and stopped by the log view.
type Follower struct {
	path     string
	maxLines int
	interval time.Duration
	onUpdate func(content string)
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	last   string
}

func NewFollower(path string, maxLines int, interval time.Duration, onUpdate func(string), logger *slog.Logger) *Follower {
	if maxLines <= 0 {
		maxLines = logtail.DefaultMaxLines
	}
	if interval <= 0 {
		interval = DefaultFollowInterval
	}
	return &Follower{
		path:     path,
		maxLines: maxLines,
		interval: interval,
		onUpdate: onUpdate,
		logger:   logger,
	}
}

// Start begins following. An immediate read fires before the first tick.
// Starting an already-running follower is a no-op.
func (f *Follower) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return
	}
	ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.loop(ctx)
}

// Stop cancels future ticks. An in-flight read completes and may still
// deliver; the last-loaded content is left untouched.
func (f *Follower) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	f.wg.Wait()
}

func (f *Follower) loop(ctx context.Context) {
	defer f.wg.Done()

	f.read()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.read()
		}
	}
}

func (f *Follower) read() {
	content, err := logtail.ReadTail(f.path, f.maxLines)
	if err != nil {
		if errors.Is(err, logtail.ErrUnavailable) {
			return
		}
		f.logger.Warn("follow read failed", "path", f.path, "err", err)
		return
	}
	if content == f.last {
		return
	}
	f.last = content
	f.onUpdate(content)
}
