package slurm

import (
	"strconv"
	"strings"

	"github.com/ChipCracker/slurm-tui/internal/pkg/common/gres"
)

// squeue field positions for the "%i|%j|%t|%P|%b|%C|%m|%M|%N" format. Keep
// these and the format string in sync; every positional access goes through
// a constant so a layout change is a one-place edit.
const (
	jobFieldID = iota
	jobFieldName
	jobFieldState
	jobFieldPartition
	jobFieldGRES
	jobFieldCPUs
	jobFieldMemory
	jobFieldRuntime
	jobFieldNodeList
	jobFieldCount
)

// sinfo field positions for the "%P|%a|%D|%A|%C" format. The node count in
// %D is redundant with the %A fraction and is not consulted.
const (
	partFieldName = iota
	partFieldState
	partFieldNodes
	partFieldNodeFrac // allocated/idle
	partFieldCPUFrac  // allocated/idle/other/total
	partFieldCount
)

// ParseJobs turns raw squeue output into jobs. Lines with fewer than the
// expected number of pipe-delimited fields are dropped silently; squeue
// occasionally emits noise and a single bad row must not fail the poll.
// Numeric fields that fail to parse default to 0.
func ParseJobs(raw string) []Job {
	jobs := make([]Job, 0)
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < jobFieldCount {
			continue
		}

		node := fields[jobFieldNodeList]
		if node == "" {
			node = "-"
		}

		jobs = append(jobs, Job{
			JobID:     fields[jobFieldID],
			Name:      fields[jobFieldName],
			State:     fields[jobFieldState],
			Partition: fields[jobFieldPartition],
			GPUs:      gres.SumGPUs(fields[jobFieldGRES]),
			CPUs:      atoiOrZero(fields[jobFieldCPUs]),
			Memory:    fields[jobFieldMemory],
			Runtime:   fields[jobFieldRuntime],
			Node:      node,
		})
	}
	return jobs
}

// ParsePartitions turns raw sinfo output into partitions. A trailing "*" on
// the name marks the default partition and is stripped. Malformed fractions
// yield zero counts instead of failing the row.
func ParsePartitions(raw string) []Partition {
	partitions := make([]Partition, 0)
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < partFieldCount {
			continue
		}

		totalNodes, availNodes := 0, 0
		if parts := strings.Split(fields[partFieldNodeFrac], "/"); len(parts) >= 2 {
			availNodes = atoiOrZero(parts[1])
			totalNodes = atoiOrZero(parts[0]) + availNodes
		}

		totalCPUs, availCPUs := 0, 0
		if parts := strings.Split(fields[partFieldCPUFrac], "/"); len(parts) >= 4 {
			totalCPUs = atoiOrZero(parts[3])
			availCPUs = atoiOrZero(parts[1])
		}

		partitions = append(partitions, Partition{
			Name:       strings.TrimRight(fields[partFieldName], "*"),
			State:      fields[partFieldState],
			TotalNodes: totalNodes,
			AvailNodes: availNodes,
			TotalCPUs:  totalCPUs,
			AvailCPUs:  availCPUs,
		})
	}
	return partitions
}

// ParseJobDetails splits whitespace-separated key=value tokens into a map.
// Tokens without "=" are ignored; values may be empty.
func ParseJobDetails(raw string) JobDetails {
	details := JobDetails{}
	for _, token := range strings.Fields(raw) {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		details[key] = value
	}
	return details
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
