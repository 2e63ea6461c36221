package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/common/version"

	"github.com/ChipCracker/slurm-tui/internal/app/router"
	"github.com/ChipCracker/slurm-tui/internal/module/cluster"
	"github.com/ChipCracker/slurm-tui/internal/pkg/client/exec"
	"github.com/ChipCracker/slurm-tui/internal/pkg/client/gpu"
	"github.com/ChipCracker/slurm-tui/internal/pkg/client/slurm"
	"github.com/ChipCracker/slurm-tui/internal/pkg/log"
	"github.com/ChipCracker/slurm-tui/internal/pkg/options"
	"github.com/ChipCracker/slurm-tui/internal/pkg/scheduler"
	"github.com/ChipCracker/slurm-tui/internal/pkg/store"
)

func main() {
	var (
		logOutput          string
		logFormat          string
		logFile            string
		logLevel           string
		commandTimeout     time.Duration
		accountingTimeout  time.Duration
		pollJobs           time.Duration
		pollPartitions     time.Duration
		pollGPUAlloc       time.Duration
		pollGPUHours       time.Duration
		allUsers           bool
		partitionGPUs      map[string]string
		srvlisenAddr       string
		srvshutdownTimeout time.Duration
	)
	app := kingpin.New(filepath.Base(os.Args[0]), "slurm-tui cluster-state backend.")
	app.HelpFlag.Short('h')
	// Logging related flags
	app.Flag("log.level", "Log level, one of [debug, info, warn, error].").Default("info").EnumVar(&logLevel, "debug", "info", "warn", "error")
	app.Flag("log.output", "Log output, one of [stdout, stderr, file].").Default("stderr").EnumVar(&logOutput, "stdout", "stderr", "file")
	app.Flag("log.format", "Log format, one of [json, text].").Default("text").EnumVar(&logFormat, "json", "text")
	app.Flag("log.file", "Log file path when --log.output=file.").PlaceHolder("PATH").StringVar(&logFile)
	// Command execution
	app.Flag("command.timeout", "Deadline for SLURM commands (Go duration, e.g. 30s).").Default(options.DefaultTimeouts.Command.String()).DurationVar(&commandTimeout)
	app.Flag("command.accounting-timeout", "Deadline for the sreport accounting query.").Default(options.DefaultTimeouts.Accounting.String()).DurationVar(&accountingTimeout)
	// Polling cadences
	app.Flag("poll.jobs", "Job listing refresh interval.").Default(options.DefaultPolling.Jobs.String()).DurationVar(&pollJobs)
	app.Flag("poll.partitions", "Partition listing refresh interval.").Default(options.DefaultPolling.Partitions.String()).DurationVar(&pollPartitions)
	app.Flag("poll.gpu-allocation", "GPU allocation refresh interval.").Default(options.DefaultPolling.GPUAllocation.String()).DurationVar(&pollGPUAlloc)
	app.Flag("poll.gpu-hours", "GPU-hours leaderboard refresh interval.").Default(options.DefaultPolling.GPUHours.String()).DurationVar(&pollGPUHours)
	// Data scope
	app.Flag("jobs.all-users", "List jobs of all users instead of only the invoking user.").Default("false").BoolVar(&allUsers)
	app.Flag("gpu.partition", "Static partition GPU capacity override, repeatable (NAME=COUNT).").PlaceHolder("NAME=COUNT").StringMapVar(&partitionGPUs)
	// HTTP server
	app.Flag("server.listen-addr", "Server listen address (e.g. :8080 or 127.0.0.1:8080)").Default(":8081").StringVar(&srvlisenAddr)
	app.Flag("server.shutdown-timeout", "Graceful shutdown timeout (e.g. 10s)").Default("10s").DurationVar(&srvshutdownTimeout)
	// Cross-flag validation
	app.PreAction(func(*kingpin.ParseContext) error {
		if strings.EqualFold(logOutput, "file") {
			if !isValidFilePath(logFile) {
				return fmt.Errorf("invalid --log.file path: %q", logFile)
			}
		}
		return nil
	})
	app.Version(version.Print("slurm-tui"))

	_, err := app.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("failed to parse commandline arguments: %w", err))
		app.Usage(os.Args[1:])
		os.Exit(2)
	}

	logger, logClose, err := log.NewLogger(logOutput, logFormat, logFile, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logClose()

	capacities, err := parsePartitionGPUs(partitionGPUs)
	if err != nil {
		logger.Error("invalid --gpu.partition flag", slog.Any("err", err))
		os.Exit(2)
	}

	runner := exec.New(logger)
	slurmClient := slurm.New(runner, commandTimeout, logger)
	monitor := gpu.New(runner, commandTimeout, accountingTimeout, capacities, logger)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if !slurmClient.IsAvailable(rootCtx) {
		logger.Warn("SLURM commands not answering; serving with empty snapshots until they do")
	}

	// Discovery once at startup; static configuration remains the fallback.
	monitor.SetPartitionGPUs(monitor.DiscoverPartitions(rootCtx))

	entityStore := store.New(logger)
	go entityStore.Run(rootCtx)

	sched := scheduler.New(entityStore, logger)
	sched.Add(&scheduler.Source{
		Name:     store.SourceJobs,
		Interval: pollJobs,
		Timeout:  commandTimeout,
		Poll: func(ctx context.Context) (store.Update, error) {
			jobs, err := slurmClient.GetJobs(ctx, allUsers)
			return store.Update{Jobs: jobs}, err
		},
	})
	sched.Add(&scheduler.Source{
		Name:     store.SourcePartitions,
		Interval: pollPartitions,
		Timeout:  commandTimeout,
		Poll: func(ctx context.Context) (store.Update, error) {
			partitions, err := slurmClient.GetPartitions(ctx)
			return store.Update{Partitions: partitions}, err
		},
	})
	sched.Add(&scheduler.Source{
		Name:     store.SourceGPUAlloc,
		Interval: pollGPUAlloc,
		Timeout:  commandTimeout,
		Poll: func(ctx context.Context) (store.Update, error) {
			allocs, err := monitor.PartitionAllocation(ctx)
			return store.Update{GPUAlloc: allocs}, err
		},
	})
	sched.Add(&scheduler.Source{
		Name:     store.SourceGPUHours,
		Interval: pollGPUHours,
		Timeout:  accountingTimeout,
		Poll: func(ctx context.Context) (store.Update, error) {
			entries, err := monitor.GPUHours(ctx, "", "", 0)
			return store.Update{GPUHours: entries}, err
		},
	})
	sched.Start(rootCtx)
	defer sched.Stop()

	clusterRouter := cluster.NewRouter(entityStore, slurmClient, monitor, allUsers, logger)

	r := router.New()
	router.Register(
		clusterRouter,
	)
	router.Mount(r)
	srv := &http.Server{
		Addr:              srvlisenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srvlisenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", slog.Any("err", err))
			os.Exit(1)
		}
	case <-quit:
		// proceed to shutdown
	}
	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), srvshutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}
	logger.Info("server exiting")
}

// parsePartitionGPUs converts the repeated NAME=COUNT flag values into a
// capacity table. An empty map falls through to the built-in defaults.
func parsePartitionGPUs(raw map[string]string) (map[string]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	table := make(map[string]int, len(raw))
	for name, countStr := range raw {
		var count int
		if _, err := fmt.Sscanf(countStr, "%d", &count); err != nil || count < 0 {
			return nil, fmt.Errorf("partition %s: invalid GPU count %q", name, countStr)
		}
		table[name] = count
	}
	return table, nil
}

// isValidFilePath performs a light-weight validation for file paths.
// It accepts both absolute and relative paths and rejects empty paths
// or paths that end with a path separator (which usually indicate a directory).
func isValidFilePath(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}
	// Reject paths that end with a separator, which imply directories
	if strings.HasSuffix(p, string(os.PathSeparator)) {
		return false
	}
	base := filepath.Base(p)
	if base == "." || base == string(os.PathSeparator) {
		return false
	}
	return true
}
