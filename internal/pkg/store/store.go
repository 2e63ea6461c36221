// Package store owns the entity snapshots the presentation layer reads.
// Poll results arrive as discrete events on a channel and are applied by a
// single consumer goroutine; readers always see a complete snapshot, never a
// partial update.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ChipCracker/slurm-tui/internal/pkg/client/gpu"
	"github.com/ChipCracker/slurm-tui/internal/pkg/client/slurm"
)

// Source identifies one independently polled data source.
type Source string

const (
	SourceJobs       Source = "jobs"
	SourcePartitions Source = "partitions"
	SourceGPUAlloc   Source = "gpu_allocation"
	SourceGPUHours   Source = "gpu_hours"
)

// Update is one poll outcome. Exactly one payload field matching Source is
// set on success; Err set means the poll failed and the previous snapshot
// stays in place. Generation orders updates within a source so a slow poll
// cannot overwrite a newer one.
type Update struct {
	Source     Source
	Generation uint64
	Err        error

	Jobs       []slurm.Job
	Partitions []slurm.Partition
	GPUAlloc   []gpu.PartitionGPU
	GPUHours   []gpu.GPUHoursEntry
}

// SourceStatus describes the freshness of one source's snapshot.
type SourceStatus struct {
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastError  string    `json:"last_error,omitempty"`
}

type Store struct {
	updates chan Update
	watch   chan Source
	logger  *slog.Logger

	mu         sync.RWMutex
	jobs       []slurm.Job
	partitions []slurm.Partition
	gpuAlloc   []gpu.PartitionGPU
	gpuHours   []gpu.GPUHoursEntry
	status     map[Source]SourceStatus
}

func New(logger *slog.Logger) *Store {
	return &Store{
		updates: make(chan Update, 16),
		watch:   make(chan Source, 16),
		logger:  logger,
		status:  make(map[Source]SourceStatus),
	}
}

// Run consumes updates until ctx is cancelled. It is the only goroutine that
// writes snapshots.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-s.updates:
			s.apply(u)
		}
	}
}

// Commit hands one poll result to the consumer. It never blocks the poller:
// if the consumer has stopped draining, the update is dropped.
func (s *Store) Commit(u Update) {
	select {
	case s.updates <- u:
	default:
		s.logger.Warn("store update dropped, consumer not draining", "source", u.Source)
	}
}

// Watch delivers a notification per applied update. The channel is never
// closed; a slow observer misses notifications rather than blocking the
// store.
func (s *Store) Watch() <-chan Source {
	return s.watch
}

func (s *Store) apply(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status[u.Source]
	if u.Generation != 0 && u.Generation < st.Generation {
		// A newer poll already landed; this result is superseded.
		return
	}

	if u.Err != nil {
		// Keep the last-known-good snapshot, remember the failure.
		st.LastError = u.Err.Error()
		s.status[u.Source] = st
		s.notify(u.Source)
		return
	}

	switch u.Source {
	case SourceJobs:
		s.jobs = u.Jobs
	case SourcePartitions:
		s.partitions = u.Partitions
	case SourceGPUAlloc:
		s.gpuAlloc = u.GPUAlloc
	case SourceGPUHours:
		s.gpuHours = u.GPUHours
	default:
		s.logger.Warn("update for unknown source", "source", u.Source)
		return
	}

	st.Generation = u.Generation
	st.UpdatedAt = time.Now()
	st.LastError = ""
	s.status[u.Source] = st
	s.notify(u.Source)
}

func (s *Store) notify(src Source) {
	select {
	case s.watch <- src:
	default:
	}
}

// Jobs returns the current job snapshot. The slice is replaced wholesale on
// each poll and must not be mutated by callers.
func (s *Store) Jobs() []slurm.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs
}

func (s *Store) Partitions() []slurm.Partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partitions
}

func (s *Store) PartitionGPUs() []gpu.PartitionGPU {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gpuAlloc
}

func (s *Store) GPUHours() []gpu.GPUHoursEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gpuHours
}

// Status reports the freshness of one source.
func (s *Store) Status(src Source) SourceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[src]
}
