package slurm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squeueFixture = `12345|train-llm|R|p2|gpu:a100:2,gpu:4|16|64G|1-02:33:44|node001
12346|preprocess|PD|p0|(null)|4|10G|0:00|
garbage line without pipes
12347|eval|R|p1|gpu:8|notanumber|32G|12:05:01|node[010-013]
12348|short|R`

func TestParseJobs(t *testing.T) {
	jobs := ParseJobs(squeueFixture)
	require.Len(t, jobs, 3)

	assert.Equal(t, Job{
		JobID:     "12345",
		Name:      "train-llm",
		State:     "R",
		Partition: "p2",
		GPUs:      6,
		CPUs:      16,
		Memory:    "64G",
		Runtime:   "1-02:33:44",
		Node:      "node001",
	}, jobs[0])

	// Empty GRES and empty node list.
	assert.Equal(t, 0, jobs[1].GPUs)
	assert.Equal(t, "-", jobs[1].Node)

	// Non-numeric CPU field defaults to 0.
	assert.Equal(t, 0, jobs[2].CPUs)
	assert.Equal(t, 8, jobs[2].GPUs)
}

func TestParseJobsEmptyInput(t *testing.T) {
	assert.Empty(t, ParseJobs(""))
	assert.Empty(t, ParseJobs("\n\n"))
}

func TestParseJobsIdempotent(t *testing.T) {
	assert.Equal(t, ParseJobs(squeueFixture), ParseJobs(squeueFixture))
}

func TestParsePartitions(t *testing.T) {
	raw := `p0|up|4|3/1|32/16/0/48|extra-ignored
p2*|up|16|10/6|128/192/0/320
broken|down|2|5/10|5/10
short|up`

	parts := ParsePartitions(raw)
	require.Len(t, parts, 3)

	assert.Equal(t, Partition{
		Name:       "p0",
		State:      "up",
		TotalNodes: 4,
		AvailNodes: 1,
		TotalCPUs:  48,
		AvailCPUs:  16,
	}, parts[0])

	// Default-partition marker stripped.
	assert.Equal(t, "p2", parts[1].Name)
	assert.Equal(t, 16, parts[1].TotalNodes)
	assert.Equal(t, 6, parts[1].AvailNodes)
	assert.Equal(t, 320, parts[1].TotalCPUs)
	assert.Equal(t, 192, parts[1].AvailCPUs)

	// CPU fraction with fewer than four components defaults both counts to 0.
	assert.Equal(t, 0, parts[2].TotalCPUs)
	assert.Equal(t, 0, parts[2].AvailCPUs)
	// Node fraction is still the two-component form here.
	assert.Equal(t, 15, parts[2].TotalNodes)
}

func TestParsePartitionsCPUFraction(t *testing.T) {
	parts := ParsePartitions("batch|up|3|2/1|5/10/0/15")
	require.Len(t, parts, 1)
	assert.Equal(t, 15, parts[0].TotalCPUs)
	assert.Equal(t, 10, parts[0].AvailCPUs)
}

func TestParseJobDetails(t *testing.T) {
	raw := `JobId=12345 JobName=train-llm
   UserId=alice(1000) GroupId=users(100)
   Command=/home/alice/train.sh
   StdOut=/home/alice/logs/out.log StdErr=/home/alice/logs/err.log
   Comment= NoEqualsToken`

	d := ParseJobDetails(raw)
	assert.Equal(t, "12345", d["JobId"])
	assert.Equal(t, "", d["Comment"])
	_, present := d["NoEqualsToken"]
	assert.False(t, present)

	stdout, stderr := d.LogPaths()
	assert.Equal(t, "/home/alice/logs/out.log", stdout)
	assert.Equal(t, "/home/alice/logs/err.log", stderr)
	assert.Equal(t, "alice", d.Owner())
	assert.Equal(t, "/home/alice/train.sh", d.ScriptPath())
}

func TestJobDetailsAbsentKeys(t *testing.T) {
	d := ParseJobDetails("JobId=1")
	stdout, stderr := d.LogPaths()
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
	assert.Empty(t, d.Owner())
	assert.Empty(t, d.ScriptPath())
}
