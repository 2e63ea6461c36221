package slurm

import "strings"

// Job is one row of squeue output. A poll produces a fresh slice that
// replaces the previous one wholesale; instances are never mutated after
// parsing.
type Job struct {
	JobID     string `json:"job_id"`
	Name      string `json:"name"`
	State     string `json:"state"` // compact code: R, PD, CD, ...
	Partition string `json:"partition"`
	GPUs      int    `json:"gpus"`
	CPUs      int    `json:"cpus"`
	Memory    string `json:"memory"`  // raw units as reported, e.g. "10G"
	Runtime   string `json:"runtime"` // HH:MM:SS or D-HH:MM:SS as reported
	Node      string `json:"node"`    // "-" when unassigned
}

// Partition is one row of sinfo output.
type Partition struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	TotalNodes int    `json:"total_nodes"`
	AvailNodes int    `json:"avail_nodes"`
	TotalCPUs  int    `json:"total_cpus"`
	AvailCPUs  int    `json:"avail_cpus"`
}

// JobDetails is the attribute dump of a single job as reported by scontrol.
// There is no fixed schema; callers look up known keys and tolerate absence.
type JobDetails map[string]string

// LogPaths returns the stdout and stderr log file paths. Either may be empty
// when the job does not redirect that stream; an empty path means "log
// unavailable", not an error.
func (d JobDetails) LogPaths() (stdout, stderr string) {
	return d["StdOut"], d["StdErr"]
}

// Owner extracts the user name from the UserId attribute, which has the form
// "name(uid)".
func (d JobDetails) Owner() string {
	name, _, _ := strings.Cut(d["UserId"], "(")
	return name
}

// ScriptPath returns the batch script path the job was submitted with, empty
// when unknown.
func (d JobDetails) ScriptPath() string {
	return d["Command"]
}
