// Package scheduler drives the per-source polling cadences. Every source
// ticks on its own interval, polls with a bounded deadline and commits the
// outcome to the store; one source failing never disturbs another's next
// tick.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChipCracker/slurm-tui/internal/pkg/store"
)

// PollFunc performs one poll and returns the update payload. Source and
// Generation are stamped by the scheduler.
type PollFunc func(ctx context.Context) (store.Update, error)

// Source is one pollable data source slot.
type Source struct {
	Name     store.Source
	Interval time.Duration
	Timeout  time.Duration
	Poll     PollFunc

	gen atomic.Uint64
}

type Scheduler struct {
	store   *store.Store
	logger  *slog.Logger
	sources []*Source

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(st *store.Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: st, logger: logger}
}

// Add registers a source. Call before Start.
func (s *Scheduler) Add(src *Source) {
	s.sources = append(s.sources, src)
}

// Start launches one polling loop per source. Each source polls immediately
// on activation, then on every interval tick. Results are dispatched
// asynchronously with a generation stamped at dispatch time, so a poll that
// outlives its successor is discarded by the store instead of regressing the
// snapshot.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, src := range s.sources {
		s.wg.Add(1)
		go s.loop(ctx, src)
	}
}

// Stop cancels all future ticks and waits for the loops to exit. In-flight
// polls finish on their own deadline.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, src *Source) {
	defer s.wg.Done()

	s.dispatch(ctx, src)
	ticker := time.NewTicker(src.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, src)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, src *Source) {
	gen := src.gen.Add(1)
	go s.poll(ctx, src, gen)
}

// poll is a failure-isolation boundary: errors are committed as Err updates
// (the store keeps its last-known-good snapshot) and panics are confined to
// the slot.
func (s *Scheduler) poll(ctx context.Context, src *Source, gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("poll panicked", "source", src.Name, "panic", r)
			s.store.Commit(store.Update{
				Source:     src.Name,
				Generation: gen,
				Err:        fmt.Errorf("poll panicked: %v", r),
			})
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, src.Timeout)
	defer cancel()

	u, err := src.Poll(pctx)
	u.Source = src.Name
	u.Generation = gen
	if err != nil {
		s.logger.Warn("poll failed", "source", src.Name, "err", err)
		u.Err = err
	}
	s.store.Commit(u)
}
