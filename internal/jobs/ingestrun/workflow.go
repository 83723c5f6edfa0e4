// Package ingestrun runs vocabulary ingests as durable Temporal
// workflows: download, load, and optionally embed, with retries and
// heartbeats per activity. Deployments without Temporal run the same
// operations inline through the Dispatcher.
package ingestrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const (
	WorkflowName     = "IngestVocabularyWorkflow"
	ActivityDownload = "DownloadVocabulary"
	ActivityLoad     = "LoadVocabulary"
	ActivityEmbed    = "EmbedVocabulary"
)

// Input selects what one ingest run does.
type Input struct {
	Prefix       terminology.Prefix `json:"prefix"`
	Redownload   bool               `json:"redownload"`
	DropExisting bool               `json:"dropExisting"`
	Embed        bool               `json:"embed"`
}

// permanentCodes are error categories retrying cannot fix: bad input,
// missing credentials, or preconditions another operation must establish.
var permanentCodes = []string{
	apierr.CodeValidation,
	apierr.CodeMissingCredential,
	apierr.CodeVocabularyNotLoaded,
	apierr.CodeFilesNotFound,
	apierr.CodeParse,
}

// Workflow executes download -> load -> embed for one vocabulary.
func Workflow(ctx workflow.Context, in Input) error {
	if strings.TrimSpace(string(in.Prefix)) == "" {
		return fmt.Errorf("ingestrun: missing prefix")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 6 * time.Hour,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        5 * time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: permanentCodes,
		},
	})

	if err := workflow.ExecuteActivity(ctx, ActivityDownload, in.Prefix, in.Redownload).Get(ctx, nil); err != nil {
		return err
	}
	if err := workflow.ExecuteActivity(ctx, ActivityLoad, in.Prefix, in.DropExisting).Get(ctx, nil); err != nil {
		return err
	}
	if in.Embed {
		if err := workflow.ExecuteActivity(ctx, ActivityEmbed, in.Prefix).Get(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}
