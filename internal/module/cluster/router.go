// Package cluster exposes the cluster-state snapshots and on-demand job
// operations to the presentation layer.
package cluster

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ChipCracker/slurm-tui/internal/pkg/client/gpu"
	"github.com/ChipCracker/slurm-tui/internal/pkg/client/slurm"
	"github.com/ChipCracker/slurm-tui/internal/pkg/store"
)

// SlurmClient is the slice of the slurm client the handlers use; narrowed to
// an interface so tests can substitute a fake.
type SlurmClient interface {
	GetJobs(ctx context.Context, allUsers bool) ([]slurm.Job, error)
	GetJobDetails(ctx context.Context, jobID string) (slurm.JobDetails, error)
	GetJobLogPaths(ctx context.Context, jobID string) (stdout, stderr string, err error)
	SubmitJob(ctx context.Context, scriptPath string) (string, error)
	CancelJob(ctx context.Context, jobID string) error
	IsAvailable(ctx context.Context) bool
	Username() string
}

// GPUMonitor is the slice of the GPU monitor the handlers use.
type GPUMonitor interface {
	GPUHours(ctx context.Context, start, end string, limit int) ([]gpu.GPUHoursEntry, error)
}

type Router struct {
	store   *store.Store
	slurmc  SlurmClient
	monitor GPUMonitor
	// allUsers is the scope the polled job snapshot was taken with; requests
	// for the other scope bypass the snapshot.
	allUsers bool
	logger   *slog.Logger
}

func NewRouter(st *store.Store, slurmc SlurmClient, monitor GPUMonitor, allUsers bool, logger *slog.Logger) *Router {
	return &Router{
		store:    st,
		slurmc:   slurmc,
		monitor:  monitor,
		allUsers: allUsers,
		logger:   logger,
	}
}

func (rt *Router) Register(r *gin.Engine) {
	g := r.Group("/api/v1/cluster")
	g.GET("/jobs", rt.HandlerGetJobs)
	g.POST("/jobs", rt.HandlerSubmitJob)
	g.GET("/jobs/:id/details", rt.HandlerGetJobDetails)
	g.GET("/jobs/:id/logs", rt.HandlerGetJobLogs)
	g.GET("/jobs/:id/script", rt.HandlerGetJobScript)
	g.GET("/jobs/:id/attach", rt.HandlerGetJobAttach)
	g.DELETE("/jobs/:id", rt.HandlerCancelJob)
	g.GET("/partitions", rt.HandlerGetPartitions)
	g.GET("/gpu/allocation", rt.HandlerGetGPUAllocation)
	g.GET("/gpu/hours", rt.HandlerGetGPUHours)
	g.GET("/interactive", rt.HandlerGetInteractiveCommand)
	g.GET("/status", rt.HandlerGetStatus)
}
