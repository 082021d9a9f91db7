// Package report delivers the job's terminal disposition back to the
// pipeline orchestrator. Exactly one callback is issued per job: success
// with a summary, or failure with a structured reason.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/pipelineapi"
	"github.com/forgekit/sitesync/internal/retry"
	"github.com/forgekit/sitesync/synctypes"
)

// maxMessageLength is the orchestrator's limit on failure detail messages.
const maxMessageLength = 5000

// Reporter issues completion callbacks with bounded retry. Reporting is the
// last phase of every job, so a reporting failure leaves the orchestrator to
// time the job out on its own.
type Reporter struct {
	client pipelineapi.CodePipelineAPI
	policy retry.Policy
	logger *slog.Logger
}

// New creates a Reporter over the given pipeline client and retry policy.
func New(client pipelineapi.CodePipelineAPI, policy retry.Policy) *Reporter {
	return &Reporter{
		client: client,
		policy: policy,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used when callback delivery fails.
func (r *Reporter) WithLogger(logger *slog.Logger) *Reporter {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Success acknowledges the job as succeeded, attaching a transfer summary.
func (r *Reporter) Success(ctx context.Context, result *synctypes.Result) error {
	input := &codepipeline.PutJobSuccessResultInput{
		JobId: aws.String(result.JobID),
		ExecutionDetails: &types.ExecutionDetails{
			ExternalExecutionId: aws.String(result.JobID),
			Summary:             aws.String(summarize(result)),
			PercentComplete:     aws.Int32(100),
		},
	}

	err := r.policy.Do(ctx, func(ctx context.Context) error {
		_, err := r.client.PutJobSuccessResult(ctx, input)
		return err
	})
	if err != nil {
		r.logger.Error("success callback failed", "job_id", result.JobID, "error", err)
		return syncerrors.NewError("report", syncerrors.Tag(syncerrors.ErrReporting, err))
	}
	return nil
}

// Failure acknowledges the job as failed, carrying the structured reason as
// the failure message.
func (r *Reporter) Failure(ctx context.Context, jobID string, reason synctypes.Reason) error {
	input := &codepipeline.PutJobFailureResultInput{
		JobId: aws.String(jobID),
		FailureDetails: &types.FailureDetails{
			Type:                types.FailureTypeJobFailed,
			Message:             aws.String(truncate(reason.String(), maxMessageLength)),
			ExternalExecutionId: aws.String(jobID),
		},
	}

	err := r.policy.Do(ctx, func(ctx context.Context) error {
		_, err := r.client.PutJobFailureResult(ctx, input)
		return err
	})
	if err != nil {
		r.logger.Error("failure callback failed", "job_id", jobID, "reason", reason.Code, "error", err)
		return syncerrors.NewError("report", syncerrors.Tag(syncerrors.ErrReporting, err))
	}
	return nil
}

// summarize renders the one-line success summary shown in the pipeline
// console.
func summarize(result *synctypes.Result) string {
	return fmt.Sprintf("synced: %d uploaded, %d deleted, %d unchanged",
		result.Uploaded, result.Deleted, result.Unchanged)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
