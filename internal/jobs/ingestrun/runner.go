package ingestrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/bioterms-backend/internal/ingest"
	"github.com/yungbote/bioterms-backend/internal/platform/envutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/platform/temporalx"
)

// Runner hosts the ingest worker: it polls the task queue and executes
// the ingest workflow and its activities.
type Runner struct {
	log *logger.Logger
	tc  temporalsdkclient.Client
	svc *ingest.Service
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, svc *ingest.Service) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("ingestrun: temporal client is not configured")
	}
	if svc == nil {
		return nil, fmt.Errorf("ingestrun: ingest service required")
	}
	return &Runner{log: log, tc: tc, svc: svc}, nil
}

// Start brings the worker up, retrying with backoff while Temporal is
// still coming up. The worker stops when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	cfg := temporalx.LoadConfig()
	if r.log != nil {
		r.log.Info("starting ingest worker",
			"address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	}

	if envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
		if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil && r.log != nil {
			r.log.Warn("namespace ensure failed; worker will retry on start",
				"namespace", cfg.Namespace, "error", err)
		}
	}

	maxWait := time.Duration(envutil.Int("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60)) * time.Second
	backoff := time.Duration(envutil.Int("TEMPORAL_WORKER_START_BACKOFF_MS", 250)) * time.Millisecond
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			if r.log != nil {
				r.log.Info("ingest worker started",
					"namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			}
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
			_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("ingestrun: temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}
		if r.log != nil {
			r.log.Warn("ingest worker failed to start; retrying",
				"namespace", cfg.Namespace, "attempt", attempt, "error", startErr)
		}

		sleep := backoff << (attempt - 1)
		if max := 5 * time.Second; sleep > max {
			sleep = max
		}
		time.Sleep(sleep)
	}
}

func (r *Runner) newWorker() worker.Worker {
	cfg := temporalx.LoadConfig()

	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &Activities{Svc: r.svc, Log: r.log}
	w.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(acts.Download, activity.RegisterOptions{Name: ActivityDownload})
	w.RegisterActivityWithOptions(acts.Load, activity.RegisterOptions{Name: ActivityLoad})
	w.RegisterActivityWithOptions(acts.Embed, activity.RegisterOptions{Name: ActivityEmbed})
	return w
}
