// Package gpu computes per-partition GPU allocation and per-user GPU-hour
// consumption from the SLURM reporting tools.
package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ChipCracker/slurm-tui/internal/pkg/client/exec"
	"github.com/ChipCracker/slurm-tui/internal/pkg/common/gres"
)

// Runner abstracts the command runner so tests can substitute canned output.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (exec.Result, error)
}

// PartitionGPU is the reconciled GPU allocation for one partition. Allocated
// and Total come from two independent commands sampled at different
// instants, so Allocated > Total can momentarily be true; it is reported
// as-is rather than clamped.
type PartitionGPU struct {
	Partition string `json:"partition"`
	Allocated int    `json:"allocated"`
	Total     int    `json:"total"`
}

// UsagePercent is Allocated over Total, 0 when Total is 0. Values above 100
// are possible, see the type comment.
func (p PartitionGPU) UsagePercent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Allocated) / float64(p.Total) * 100
}

// GPUHoursEntry is one row of the GPU-hours leaderboard.
type GPUHoursEntry struct {
	User    string  `json:"user"`
	Account string  `json:"account"`
	Cluster string  `json:"cluster"`
	Hours   float64 `json:"hours"`
}

// DefaultPartitionGPUs is the static partition capacity table used when
// dynamic discovery fails or reports nothing.
var DefaultPartitionGPUs = map[string]int{
	"p0": 8,
	"p1": 16,
	"p2": 32,
	"p4": 8,
}

// Monitor queries GPU allocation and accounting. The partition capacity map
// starts from static configuration and can be replaced by discovery.
type Monitor struct {
	runner        Runner
	timeout       time.Duration
	hoursTimeout  time.Duration
	partitionGPUs map[string]int
	logger        *slog.Logger
}

func New(runner Runner, timeout, hoursTimeout time.Duration, partitionGPUs map[string]int, logger *slog.Logger) *Monitor {
	if len(partitionGPUs) == 0 {
		partitionGPUs = DefaultPartitionGPUs
	}
	m := &Monitor{
		runner:       runner,
		timeout:      timeout,
		hoursTimeout: hoursTimeout,
		logger:       logger,
	}
	m.SetPartitionGPUs(partitionGPUs)
	return m
}

// SetPartitionGPUs replaces the capacity table, typically with the result of
// DiscoverPartitions.
func (m *Monitor) SetPartitionGPUs(table map[string]int) {
	copied := make(map[string]int, len(table))
	for k, v := range table {
		copied[k] = v
	}
	m.partitionGPUs = copied
}

// PartitionAllocation reconciles allocated vs. total GPUs for every known
// partition. Allocation comes from the running-jobs listing; the total
// prefers the live sinfo figure and keeps the configured capacity when sinfo
// reports nothing. A failed command yields 0 for that step only; the
// remaining partitions still resolve.
func (m *Monitor) PartitionAllocation(ctx context.Context) ([]PartitionGPU, error) {
	names := make([]string, 0, len(m.partitionGPUs))
	for name := range m.partitionGPUs {
		names = append(names, name)
	}
	sort.Strings(names)

	allocations := make([]PartitionGPU, 0, len(names))
	for _, name := range names {
		allocated, err := m.partitionAllocatedGPUs(ctx, name)
		if err != nil {
			return nil, err
		}

		total := m.partitionGPUs[name]
		actual, err := m.partitionTotalGPUs(ctx, name)
		if err != nil {
			return nil, err
		}
		if actual > 0 {
			total = actual
		}

		allocations = append(allocations, PartitionGPU{
			Partition: name,
			Allocated: allocated,
			Total:     total,
		})
	}
	return allocations, nil
}

// partitionAllocatedGPUs sums GPU requests across running jobs in one
// partition. The wide -O gres column keeps long GRES specs untruncated.
func (m *Monitor) partitionAllocatedGPUs(ctx context.Context, partition string) (int, error) {
	res, err := m.runner.Run(ctx, m.timeout, "squeue", "-h", "-p", partition, "-t", "R", "-O", "gres:200")
	if err != nil {
		return 0, err
	}
	if res.Failed() {
		m.logger.Debug("allocated-gpu query failed", "partition", partition, "stderr", res.Stderr)
		return 0, nil
	}
	return sumGPULines(res.Stdout), nil
}

// partitionTotalGPUs reads the partition's advertised GRES from sinfo.
func (m *Monitor) partitionTotalGPUs(ctx context.Context, partition string) (int, error) {
	res, err := m.runner.Run(ctx, m.timeout, "sinfo", "-h", "-p", partition, "-o", "%G")
	if err != nil {
		return 0, err
	}
	if res.Failed() {
		m.logger.Debug("total-gpu query failed", "partition", partition, "stderr", res.Stderr)
		return 0, nil
	}
	return sumGPULines(res.Stdout), nil
}

func sumGPULines(raw string) int {
	total := 0
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" || line == "(null)" {
			continue
		}
		total += gres.SumGPUs(line)
	}
	return total
}

// GPUHours queries the accounting database for GPU-hours per user over the
// date range, defaulting to the current calendar year, and returns the top
// entries sorted by hours descending. A failing query yields an empty
// leaderboard rather than an error; accounting being down must not take the
// rest of the view with it.
func (m *Monitor) GPUHours(ctx context.Context, start, end string, limit int) ([]GPUHoursEntry, error) {
	year := time.Now().Year()
	if start == "" {
		start = fmt.Sprintf("%d-01-01", year)
	}
	if end == "" {
		end = fmt.Sprintf("%d-12-31", year)
	}
	if limit <= 0 {
		limit = DefaultHoursLimit
	}

	res, err := m.runner.Run(ctx, m.hoursTimeout, "sreport",
		"-n", "-P", "-t", "Hours", "-T", "gres/gpu",
		"cluster", "AccountUtilizationByUser",
		"start="+start, "end="+end)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		m.logger.Warn("sreport failed", "stderr", strings.TrimSpace(res.Stderr))
		return []GPUHoursEntry{}, nil
	}

	return ParseGPUHours(res.Stdout, limit), nil
}

// DiscoverPartitions derives the partition capacity table from the cluster's
// advertised GRES. Partitions whose GRES mentions GPUs with a positive count
// are kept. When the query fails or finds no GPU-bearing partition, the
// current table is returned unchanged; discovery degrades to configuration,
// never to an empty result.
func (m *Monitor) DiscoverPartitions(ctx context.Context) map[string]int {
	fallback := func() map[string]int {
		copied := make(map[string]int, len(m.partitionGPUs))
		for k, v := range m.partitionGPUs {
			copied[k] = v
		}
		return copied
	}

	res, err := m.runner.Run(ctx, m.timeout, "sinfo", "-h", "-o", "%P|%G")
	if err != nil || res.Failed() {
		m.logger.Debug("partition discovery failed, keeping configured table", "err", err, "stderr", res.Stderr)
		return fallback()
	}

	discovered := make(map[string]int)
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line == "" {
			continue
		}
		name, spec, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		name = strings.TrimRight(name, "*")
		if !gres.MentionsGPU(spec) {
			continue
		}
		// sinfo can emit several rows per partition (one per node group);
		// the last row wins.
		if total := gres.SumGPUs(spec); total > 0 {
			discovered[name] = total
		}
	}

	if len(discovered) == 0 {
		return fallback()
	}
	return discovered
}

// IsAvailable probes whether the SLURM tools are installed and answering.
func (m *Monitor) IsAvailable(ctx context.Context) bool {
	res, err := m.runner.Run(ctx, m.timeout, "squeue", "--version")
	return err == nil && !res.Failed()
}
