package cluster

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ChipCracker/slurm-tui/internal/pkg/client/slurm"
	"github.com/ChipCracker/slurm-tui/internal/pkg/logtail"
	"github.com/ChipCracker/slurm-tui/internal/pkg/response"
)

// jobDetailsView bundles the raw attribute dump with the fields the
// presentation layer always wants resolved.
type jobDetailsView struct {
	JobID      string           `json:"job_id"`
	Owner      string           `json:"owner"`
	ScriptPath string           `json:"script_path,omitempty"`
	StdOut     string           `json:"stdout_path,omitempty"`
	StdErr     string           `json:"stderr_path,omitempty"`
	Attributes slurm.JobDetails `json:"attributes"`
}

// HandlerGetJobDetails fetches the scontrol attribute dump for one job.
func (rt *Router) HandlerGetJobDetails(c *gin.Context) {
	jobID := c.Param("id")
	details, err := rt.slurmc.GetJobDetails(c.Request.Context(), jobID)
	if err != nil {
		rt.logger.Warn("unable to get job details", "job_id", jobID, "err", err)
		c.JSON(http.StatusBadGateway, response.Response{Detail: "unable to get job details: " + err.Error()})
		return
	}

	stdout, stderr := details.LogPaths()
	c.JSON(http.StatusOK, response.Response{Results: jobDetailsView{
		JobID:      jobID,
		Owner:      details.Owner(),
		ScriptPath: details.ScriptPath(),
		StdOut:     stdout,
		StdErr:     stderr,
		Attributes: details,
	}})
}

type jobLogView struct {
	Stream  string `json:"stream"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content"`
}

// HandlerGetJobLogs serves a tail of the job's stdout or stderr log with
// terminal carriage-return replay. A missing log is a normal condition and
// renders an inline message, not an error status.
func (rt *Router) HandlerGetJobLogs(c *gin.Context) {
	jobID := c.Param("id")
	stream := c.DefaultQuery("stream", "stdout")
	if stream != "stdout" && stream != "stderr" {
		c.JSON(http.StatusBadRequest, response.Response{Detail: "stream must be stdout or stderr"})
		return
	}

	maxLines := logtail.DefaultMaxLines
	if linesStr := c.Query("lines"); linesStr != "" {
		n, err := strconv.Atoi(linesStr)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, response.Response{Detail: "invalid lines"})
			return
		}
		maxLines = n
	}

	stdoutPath, stderrPath, err := rt.slurmc.GetJobLogPaths(c.Request.Context(), jobID)
	if err != nil {
		rt.logger.Warn("unable to resolve log paths", "job_id", jobID, "err", err)
		c.JSON(http.StatusBadGateway, response.Response{Detail: "unable to resolve log paths: " + err.Error()})
		return
	}

	path := stdoutPath
	if stream == "stderr" {
		path = stderrPath
	}

	view := jobLogView{Stream: stream, Path: path}
	content, err := logtail.ReadTail(path, maxLines)
	switch {
	case errors.Is(err, logtail.ErrUnavailable):
		view.Content = fmt.Sprintf("No %s log available", stream)
	case err != nil:
		// Unreadable file: render the reason inline instead of failing the
		// whole view.
		view.Content = err.Error()
	default:
		view.Content = content
	}
	c.JSON(http.StatusOK, response.Response{Results: view})
}

type jobScriptView struct {
	Path    string `json:"path,omitempty"`
	Content string `json:"content"`
}

// HandlerGetJobScript serves the batch script the job was submitted with.
// Jobs without a script path, or scripts this process cannot read, render an
// inline message instead of an error status.
func (rt *Router) HandlerGetJobScript(c *gin.Context) {
	jobID := c.Param("id")
	details, err := rt.slurmc.GetJobDetails(c.Request.Context(), jobID)
	if err != nil {
		rt.logger.Warn("unable to get job details", "job_id", jobID, "err", err)
		c.JSON(http.StatusBadGateway, response.Response{Detail: "unable to get job details: " + err.Error()})
		return
	}

	view := jobScriptView{Path: details.ScriptPath()}
	switch content, err := os.ReadFile(view.Path); {
	case view.Path == "":
		view.Content = "Script not available"
	case err != nil:
		view.Content = "Error reading script: " + err.Error()
	default:
		view.Content = string(content)
	}
	c.JSON(http.StatusOK, response.Response{Results: view})
}

// HandlerGetJobAttach returns the argv to attach a shell to a running job.
// The command is executed by the caller, which owns the terminal.
func (rt *Router) HandlerGetJobAttach(c *gin.Context) {
	c.JSON(http.StatusOK, response.Response{Results: gin.H{
		"argv": slurm.AttachCommand(c.Param("id")),
	}})
}

// HandlerGetInteractiveCommand returns the argv for an interactive session
// with the requested resources.
func (rt *Router) HandlerGetInteractiveCommand(c *gin.Context) {
	opts := slurm.InteractiveOptions{
		Partition:    c.Query("partition"),
		MemoryPerCPU: c.Query("mem_per_cpu"),
		QOS:          c.Query("qos"),
	}
	opts.GPUs, _ = strconv.Atoi(c.Query("gpus"))
	opts.CPUs, _ = strconv.Atoi(c.Query("cpus"))

	c.JSON(http.StatusOK, response.Response{Results: gin.H{
		"argv": slurm.InteractiveCommand(opts),
	}})
}

type submitRequest struct {
	ScriptPath string `json:"script_path" binding:"required"`
}

// HandlerSubmitJob submits a batch script and returns the assigned job id.
func (rt *Router) HandlerSubmitJob(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Response{Detail: "script_path is required"})
		return
	}

	jobID, err := rt.slurmc.SubmitJob(c.Request.Context(), req.ScriptPath)
	if err != nil {
		rt.logger.Warn("job submission failed", "script", req.ScriptPath, "err", err)
		c.JSON(http.StatusBadGateway, response.Response{Detail: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.Response{Results: gin.H{"job_id": jobID}})
}

// HandlerCancelJob cancels a job by id.
func (rt *Router) HandlerCancelJob(c *gin.Context) {
	jobID := c.Param("id")
	if err := rt.slurmc.CancelJob(c.Request.Context(), jobID); err != nil {
		rt.logger.Warn("job cancellation failed", "job_id", jobID, "err", err)
		c.JSON(http.StatusBadGateway, response.Response{Detail: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.Response{Detail: fmt.Sprintf("Job %s cancelled", jobID)})
}
