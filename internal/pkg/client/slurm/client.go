package slurm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ChipCracker/slurm-tui/internal/pkg/client/exec"
)

// squeueFormat selects the columns ParseJobs expects; see the jobField
// constants in parse.go.
const squeueFormat = "%i|%j|%t|%P|%b|%C|%m|%M|%N"

// sinfoFormat selects the columns ParsePartitions expects; see the partField
// constants in parse.go.
const sinfoFormat = "%P|%a|%D|%A|%C"

var submittedPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// Runner abstracts the command runner so tests can substitute canned output.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (exec.Result, error)
}

// Client wraps the SLURM command-line tools. All queries go through the
// injected Runner with a bounded deadline; a query that fails in an expected
// way (missing binary, timeout, non-zero exit) surfaces as an error the
// poll layer swallows, keeping the previous snapshot.
type Client struct {
	runner   Runner
	timeout  time.Duration
	username string
	logger   *slog.Logger

	details singleflight.Group
}

func New(runner Runner, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		runner:   runner,
		timeout:  timeout,
		username: CurrentUsername(),
		logger:   logger,
	}
}

// CurrentUsername resolves the invoking account name from the environment,
// falling back to "unknown" so user-scoped queries stay well-formed.
func CurrentUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "unknown"
}

// Username returns the account name user-scoped queries are parameterized by.
func (c *Client) Username() string { return c.username }

// GetJobs lists jobs via squeue. With allUsers false the listing is
// restricted to the invoking user.
func (c *Client) GetJobs(ctx context.Context, allUsers bool) ([]Job, error) {
	args := []string{"-h", "-o", squeueFormat}
	if !allUsers {
		args = append(args, "-u", c.username)
	}

	res, err := c.runner.Run(ctx, c.timeout, "squeue", args...)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		return nil, fmt.Errorf("squeue failed: %s", failureDetail(res))
	}
	return ParseJobs(res.Stdout), nil
}

// GetPartitions lists partitions via sinfo.
func (c *Client) GetPartitions(ctx context.Context) ([]Partition, error) {
	res, err := c.runner.Run(ctx, c.timeout, "sinfo", "-h", "-o", sinfoFormat)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		return nil, fmt.Errorf("sinfo failed: %s", failureDetail(res))
	}
	return ParsePartitions(res.Stdout), nil
}

// SubmitJob submits a batch script and returns the assigned job id. When
// sbatch succeeds but the success message is not recognized, the trimmed
// output is returned in place of an id.
func (c *Client) SubmitJob(ctx context.Context, scriptPath string) (string, error) {
	res, err := c.runner.Run(ctx, c.timeout, "sbatch", scriptPath)
	if err != nil {
		return "", err
	}
	if res.Failed() {
		return "", fmt.Errorf("failed to submit job: %s", failureDetail(res))
	}
	if m := submittedPattern.FindStringSubmatch(res.Stdout); m != nil {
		return m[1], nil
	}
	return strings.TrimSpace(res.Stdout), nil
}

// CancelJob cancels a job by id.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	res, err := c.runner.Run(ctx, c.timeout, "scancel", jobID)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("failed to cancel job %s: %s", jobID, failureDetail(res))
	}
	return nil
}

// GetJobDetails fetches the full scontrol attribute dump for one job.
// Concurrent lookups for the same id are collapsed into a single scontrol
// invocation.
func (c *Client) GetJobDetails(ctx context.Context, jobID string) (JobDetails, error) {
	v, err, _ := c.details.Do(jobID, func() (interface{}, error) {
		res, err := c.runner.Run(ctx, c.timeout, "scontrol", "show", "job", jobID)
		if err != nil {
			return nil, err
		}
		if res.Failed() {
			return nil, fmt.Errorf("scontrol show job %s failed: %s", jobID, failureDetail(res))
		}
		return ParseJobDetails(res.Stdout), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(JobDetails), nil
}

// GetJobLogPaths returns the stdout and stderr log paths for a job. Either
// may be empty when the job does not write that stream.
func (c *Client) GetJobLogPaths(ctx context.Context, jobID string) (stdout, stderr string, err error) {
	details, err := c.GetJobDetails(ctx, jobID)
	if err != nil {
		return "", "", err
	}
	stdout, stderr = details.LogPaths()
	return stdout, stderr, nil
}

// GetJobOwner returns the user name owning a job.
func (c *Client) GetJobOwner(ctx context.Context, jobID string) (string, error) {
	details, err := c.GetJobDetails(ctx, jobID)
	if err != nil {
		return "", err
	}
	return details.Owner(), nil
}

// IsAvailable probes whether the SLURM tools are installed and answering.
func (c *Client) IsAvailable(ctx context.Context) bool {
	res, err := c.runner.Run(ctx, c.timeout, "squeue", "--version")
	return err == nil && !res.Failed()
}

// AttachCommand builds the argv to attach a shell to a running job. The
// command is handed to the collaborator owning terminal suspension, not
// executed here.
func AttachCommand(jobID string) []string {
	return []string{"srun", "--jobid=" + jobID, "--overlap", "--pty", "/bin/bash", "-l"}
}

// InteractiveOptions parameterize an interactive session request. Zero
// values fall back to the cluster's customary interactive defaults.
type InteractiveOptions struct {
	Partition    string
	GPUs         int
	CPUs         int
	MemoryPerCPU string
	QOS          string
}

// InteractiveCommand builds the argv for an interactive session. Like
// AttachCommand it is constructed only, never executed by this layer.
func InteractiveCommand(opts InteractiveOptions) []string {
	if opts.Partition == "" {
		opts.Partition = "p2"
	}
	if opts.GPUs <= 0 {
		opts.GPUs = 1
	}
	if opts.CPUs <= 0 {
		opts.CPUs = 4
	}
	if opts.MemoryPerCPU == "" {
		opts.MemoryPerCPU = "4G"
	}
	if opts.QOS == "" {
		opts.QOS = "interactive"
	}
	return []string{
		"srun",
		"--qos=" + opts.QOS,
		"--partition=" + opts.Partition,
		fmt.Sprintf("--gres=gpu:%d", opts.GPUs),
		fmt.Sprintf("--cpus-per-task=%d", opts.CPUs),
		"--mem-per-cpu=" + opts.MemoryPerCPU,
		"--pty",
		"bash",
	}
}

func failureDetail(res exec.Result) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	return fmt.Sprintf("exit code %d", res.ExitCode)
}
