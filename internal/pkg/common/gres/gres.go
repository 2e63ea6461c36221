// Package gres interprets SLURM generic-resource (GRES) specs such as
// "gpu:4", "gpu:a100:2" or comma-joined combinations of both.
package gres

import (
	"regexp"
	"strconv"
	"strings"
)

var gpuPattern = regexp.MustCompile(`gpu(?::[^:,\s]+)?:(\d+)`)

// SumGPUs adds up every gpu[:type]:<count> group in spec. A spec with no
// such group, including the literal "(null)" sinfo emits for GRES-less
// partitions, yields 0. A job can carry several distinct GPU specs at once,
// so all matches count.
func SumGPUs(spec string) int {
	total := 0
	for _, m := range gpuPattern.FindAllStringSubmatch(spec, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total += n
	}
	return total
}

// MentionsGPU reports whether spec refers to GPUs at all, case-insensitively.
func MentionsGPU(spec string) bool {
	return strings.Contains(strings.ToLower(spec), "gpu")
}
