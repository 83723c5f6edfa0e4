package ingestrun

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/bioterms-backend/internal/ingest"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/platform/temporalx"
)

// Dispatcher starts ingest runs from the management API. With a Temporal
// client it enqueues the workflow; without one it runs the same steps in
// a background goroutine, trading durability for zero infrastructure.
type Dispatcher struct {
	tc  temporalsdkclient.Client
	svc *ingest.Service
	log *logger.Logger
}

// NewDispatcher accepts a nil Temporal client; runs then execute inline.
func NewDispatcher(tc temporalsdkclient.Client, svc *ingest.Service, log *logger.Logger) (*Dispatcher, error) {
	if svc == nil {
		return nil, fmt.Errorf("ingestrun: ingest service required")
	}
	if log == nil {
		return nil, fmt.Errorf("ingestrun: logger required")
	}
	return &Dispatcher{tc: tc, svc: svc, log: log.With("component", "ingestrun")}, nil
}

// Durable reports whether runs go through Temporal.
func (d *Dispatcher) Durable() bool {
	return d.tc != nil
}

// Run starts an ingest and returns its run id without waiting for
// completion. Reusing the workflow id per prefix makes a second enqueue
// while one is running a no-op at the Temporal level; inline runs rely
// on the orchestrator's per-prefix lock instead.
func (d *Dispatcher) Run(ctx context.Context, in Input) (string, error) {
	if in.Prefix == "" {
		return "", fmt.Errorf("ingestrun: missing prefix")
	}
	runID := fmt.Sprintf("ingest-%s", in.Prefix)

	if d.tc == nil {
		go d.runInline(in, runID)
		return runID, nil
	}

	cfg := temporalx.LoadConfig()
	_, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        runID,
		TaskQueue: cfg.TaskQueue,
	}, WorkflowName, in)
	if err != nil {
		return "", fmt.Errorf("ingestrun: enqueue %s: %w", in.Prefix, err)
	}
	d.log.Info("ingest workflow enqueued", "prefix", in.Prefix, "workflow_id", runID)
	return runID, nil
}

func (d *Dispatcher) runInline(in Input, runID string) {
	ctx := context.Background()
	d.log.Info("ingest run started inline", "prefix", in.Prefix, "run_id", runID)

	if err := d.svc.DownloadVocabulary(ctx, in.Prefix, in.Redownload); err != nil {
		d.log.Error("ingest run download failed", "prefix", in.Prefix, "error", err)
		return
	}
	if err := d.svc.LoadVocabulary(ctx, in.Prefix, in.DropExisting); err != nil {
		d.log.Error("ingest run load failed", "prefix", in.Prefix, "error", err)
		return
	}
	if in.Embed {
		if err := d.svc.EmbedVocabulary(ctx, in.Prefix); err != nil {
			d.log.Error("ingest run embed failed", "prefix", in.Prefix, "error", err)
			return
		}
	}
	d.log.Info("ingest run finished", "prefix", in.Prefix, "run_id", runID)
}
