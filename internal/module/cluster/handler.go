package cluster

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ChipCracker/slurm-tui/internal/pkg/client/gpu"
	"github.com/ChipCracker/slurm-tui/internal/pkg/client/slurm"
	"github.com/ChipCracker/slurm-tui/internal/pkg/common/paging"
	commonslurm "github.com/ChipCracker/slurm-tui/internal/pkg/common/slurm"
	commontime "github.com/ChipCracker/slurm-tui/internal/pkg/common/time"
	"github.com/ChipCracker/slurm-tui/internal/pkg/response"
	"github.com/ChipCracker/slurm-tui/internal/pkg/store"
)

// JobListItem is a job snapshot row annotated with the expanded state name
// so the presentation layer does not need the code table.
type JobListItem struct {
	slurm.Job
	StateName string `json:"state_name"`
}

// HandlerGetJobs serves the job listing, paged. ?all_users switches between
// the user-scoped and cluster-wide listings; when the requested scope is not
// the one the poller snapshots, the listing is fetched live. ?active narrows
// to jobs that still hold or await resources (or, with false, to finished
// ones).
func (rt *Router) HandlerGetJobs(c *gin.Context) {
	var pq paging.PagingQuery
	_ = c.ShouldBindQuery(&pq)
	pq.SetDefaults(1, 50, 500)

	jobs := rt.store.Jobs()
	if scope := c.Query("all_users"); scope != "" {
		allUsers, err := strconv.ParseBool(scope)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Response{Detail: "invalid all_users"})
			return
		}
		if allUsers != rt.allUsers {
			jobs, err = rt.slurmc.GetJobs(c.Request.Context(), allUsers)
			if err != nil {
				rt.logger.Warn("on-demand job listing failed", "all_users", allUsers, "err", err)
				c.JSON(http.StatusBadGateway, response.Response{Detail: "unable to list jobs: " + err.Error()})
				return
			}
		}
	}
	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Response{Detail: "invalid active"})
			return
		}
		filtered := make([]slurm.Job, 0, len(jobs))
		for _, j := range jobs {
			if commonslurm.IsActive(j.State) == active {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}
	total := len(jobs)

	start := (pq.Page - 1) * pq.PageSize
	if start > total {
		start = total
	}
	end := start + pq.PageSize
	if end > total {
		end = total
	}

	items := make([]JobListItem, 0, end-start)
	for _, j := range jobs[start:end] {
		items = append(items, JobListItem{Job: j, StateName: commonslurm.StateName(j.State)})
	}

	prev, next := response.BuildPageLinks(c.Request.URL, pq.Page, pq.PageSize, total)
	c.JSON(http.StatusOK, response.Response{
		Count:    total,
		Previous: prev,
		Next:     next,
		Results:  items,
	})
}

// HandlerGetPartitions serves the current partition snapshot.
func (rt *Router) HandlerGetPartitions(c *gin.Context) {
	partitions := rt.store.Partitions()
	c.JSON(http.StatusOK, response.Response{
		Count:   len(partitions),
		Results: partitions,
	})
}

// PartitionGPUItem adds the derived usage percentage to an allocation row.
type PartitionGPUItem struct {
	gpu.PartitionGPU
	UsagePercent float64 `json:"usage_percent"`
}

// HandlerGetGPUAllocation serves the per-partition GPU allocation snapshot.
func (rt *Router) HandlerGetGPUAllocation(c *gin.Context) {
	allocs := rt.store.PartitionGPUs()
	items := make([]PartitionGPUItem, 0, len(allocs))
	for _, a := range allocs {
		items = append(items, PartitionGPUItem{PartitionGPU: a, UsagePercent: a.UsagePercent()})
	}
	c.JSON(http.StatusOK, response.Response{
		Count:   len(items),
		Results: items,
	})
}

// HandlerGetGPUHours serves the GPU-hours leaderboard snapshot, truncated to
// ?limit when given. A custom ?start/?end date range is not covered by the
// polled snapshot and queries accounting on demand.
func (rt *Router) HandlerGetGPUHours(c *gin.Context) {
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, response.Response{Detail: "invalid limit"})
			return
		}
		limit = n
	}

	var entries []gpu.GPUHoursEntry
	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		var err error
		entries, err = rt.monitor.GPUHours(c.Request.Context(), start, end, limit)
		if err != nil {
			rt.logger.Warn("on-demand gpu-hours query failed", "err", err)
			c.JSON(http.StatusBadGateway, response.Response{Detail: "unable to query gpu hours: " + err.Error()})
			return
		}
	} else {
		entries = rt.store.GPUHours()
		if limit > 0 && limit < len(entries) {
			entries = entries[:limit]
		}
	}
	c.JSON(http.StatusOK, response.Response{
		Count:   len(entries),
		Results: entries,
	})
}

type sourceStatusItem struct {
	Generation uint64          `json:"generation"`
	UpdatedAt  commontime.Time `json:"updated_at"`
	LastError  string          `json:"last_error,omitempty"`
}

type statusView struct {
	SlurmAvailable bool                        `json:"slurm_available"`
	Username       string                      `json:"username"`
	Sources        map[string]sourceStatusItem `json:"sources"`
}

// HandlerGetStatus reports tool availability and per-source snapshot
// freshness.
func (rt *Router) HandlerGetStatus(c *gin.Context) {
	sources := make(map[string]sourceStatusItem)
	for _, src := range []store.Source{
		store.SourceJobs, store.SourcePartitions, store.SourceGPUAlloc, store.SourceGPUHours,
	} {
		st := rt.store.Status(src)
		sources[string(src)] = sourceStatusItem{
			Generation: st.Generation,
			UpdatedAt:  commontime.Time(st.UpdatedAt),
			LastError:  st.LastError,
		}
	}

	c.JSON(http.StatusOK, response.Response{Results: statusView{
		SlurmAvailable: rt.slurmc.IsAvailable(c.Request.Context()),
		Username:       rt.slurmc.Username(),
		Sources:        sources,
	}})
}
