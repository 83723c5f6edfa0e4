package ingestrun

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/bioterms-backend/internal/ingest"
	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// Activities wraps the ingest orchestrator for Temporal workers. Each
// activity heartbeats while the (long) store operation runs.
type Activities struct {
	Svc *ingest.Service
	Log *logger.Logger
}

func (a *Activities) Download(ctx context.Context, prefix terminology.Prefix, redownload bool) error {
	if a == nil || a.Svc == nil {
		return fmt.Errorf("ingestrun: activity not configured")
	}
	stop := a.startHeartbeat(ctx)
	defer stop()
	return classify(a.Svc.DownloadVocabulary(ctx, prefix, redownload))
}

func (a *Activities) Load(ctx context.Context, prefix terminology.Prefix, dropExisting bool) error {
	if a == nil || a.Svc == nil {
		return fmt.Errorf("ingestrun: activity not configured")
	}
	stop := a.startHeartbeat(ctx)
	defer stop()
	return classify(a.Svc.LoadVocabulary(ctx, prefix, dropExisting))
}

func (a *Activities) Embed(ctx context.Context, prefix terminology.Prefix) error {
	if a == nil || a.Svc == nil {
		return fmt.Errorf("ingestrun: activity not configured")
	}
	stop := a.startHeartbeat(ctx)
	defer stop()
	return classify(a.Svc.EmbedVocabulary(ctx, prefix))
}

// classify maps permanent error categories to non-retryable application
// errors so the workflow retry policy gives up immediately. The error
// type carries the apierr code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := apierr.FromError(err); ok {
		for _, code := range permanentCodes {
			if e.Code == code {
				return temporal.NewNonRetryableApplicationError(err.Error(), code, err)
			}
		}
	}
	return err
}

func (a *Activities) startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		hb := time.NewTicker(10 * time.Second)
		defer hb.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-hb.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
