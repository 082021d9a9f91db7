package sitesync

import (
	"context"
	goerrors "errors"
	"strings"
	"sync"
	"time"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/extract"
	"github.com/forgekit/sitesync/internal/fetch"
	"github.com/forgekit/sitesync/internal/list"
	"github.com/forgekit/sitesync/internal/reconcile"
	"github.com/forgekit/sitesync/internal/report"
	"github.com/forgekit/sitesync/internal/transfer"
	"github.com/forgekit/sitesync/internal/validation"
	"github.com/forgekit/sitesync/synctypes"
)

// Handle processes one pipeline job end to end and reports the outcome to
// the orchestrator. The returned Result describes the terminal disposition
// in both cases; exactly one completion callback is issued per call.
//
// The error return is reserved for failures the orchestrator never hears
// about: a job descriptor too malformed to act on (ErrInvalidInput, no
// callback possible) or a completion callback that could not be delivered
// (ErrReporting). Component failures inside the job are not errors here;
// they surface as a Failed result whose Reason was delivered via the
// failure callback.
func (h *Handler) Handle(ctx context.Context, job *synctypes.Job) (*synctypes.Result, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}

	prefix := normalizePrefix(job.Prefix)
	maxEntrySize := job.MaxEntrySize
	if maxEntrySize <= 0 {
		maxEntrySize = h.config.MaxEntrySize
	}

	start := time.Now()
	result := &synctypes.Result{JobID: job.ID}
	reporter := report.New(h.pipelineClient, h.policy).WithLogger(h.logger)

	fail := func(reason synctypes.Reason) (*synctypes.Result, error) {
		result.Status = synctypes.StatusFailed
		result.Reason = &reason
		result.Duration = time.Since(start)
		h.logger.Error("job failed",
			"job_id", job.ID,
			"reason", reason.Code,
			"detail", reason.String(),
		)
		if err := reporter.Failure(ctx, job.ID, reason); err != nil {
			return result, err
		}
		return result, nil
	}

	h.logger.Info("job started",
		"job_id", job.ID,
		"artifact", job.Artifact.Bucket+"/"+job.Artifact.Key,
		"destination", job.DestinationBucket,
		"prefix", prefix,
	)

	// The artifact side (fetch + extract) and the destination side (list)
	// have no data dependency, so they run concurrently. Reconciliation
	// needs both.
	var (
		wg       sync.WaitGroup
		entries  []synctypes.ArtifactEntry
		objects  []synctypes.DestinationEntry
		fetchErr error
		listErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		h.logger.Debug("fetching artifact", "job_id", job.ID, "state", synctypes.StateFetching)
		data, err := fetch.New(h.artifactClient(job)).Fetch(ctx, job.Artifact)
		if err != nil {
			fetchErr = err
			return
		}
		h.logger.Debug("extracting bundle", "job_id", job.ID, "state", synctypes.StateExtracting, "bytes", len(data))
		entries, fetchErr = extract.Extract(data, maxEntrySize)
	}()
	go func() {
		defer wg.Done()
		h.logger.Debug("listing destination", "job_id", job.ID, "state", synctypes.StateListing)
		objects, listErr = list.New(h.s3Client, h.policy).List(ctx, job.DestinationBucket, prefix)
	}()
	wg.Wait()

	// When both sides fail, the artifact-side error wins: it is the one
	// attributable to this run's input rather than the environment.
	if fetchErr != nil {
		return fail(reasonFor(fetchErr))
	}
	if listErr != nil {
		return fail(reasonFor(listErr))
	}

	h.logger.Debug("reconciling", "job_id", job.ID, "state", synctypes.StateReconciling,
		"artifact_entries", len(entries), "destination_objects", len(objects))

	plan := reconcile.Plan(entries, objects, prefix)
	result.Plan = plan
	result.Unchanged = len(plan.Unchanged)

	h.logger.Info("plan computed",
		"job_id", job.ID,
		"uploads", len(plan.ToUpload),
		"deletes", len(plan.ToDelete),
		"unchanged", len(plan.Unchanged),
	)

	if !plan.Empty() {
		h.logger.Debug("transferring", "job_id", job.ID, "state", synctypes.StateTransferring)
		executor := transfer.New(h.s3Client, h.policy, h.config.Concurrency).WithLogger(h.logger)
		transferResult, _ := executor.Execute(ctx, job.DestinationBucket, prefix, plan, entries)

		result.Outcomes = transferResult.Outcomes
		result.Uploaded = transferResult.Uploaded
		result.Deleted = transferResult.Deleted

		if failed := transferResult.Failed(); len(failed) > 0 {
			return fail(transferReason(failed))
		}
	}

	result.Status = synctypes.StatusSucceeded
	result.Duration = time.Since(start)

	h.logger.Debug("reporting", "job_id", job.ID, "state", synctypes.StateReporting)
	if err := reporter.Success(ctx, result); err != nil {
		return result, err
	}

	h.logger.Info("job succeeded",
		"job_id", job.ID,
		"uploaded", result.Uploaded,
		"deleted", result.Deleted,
		"unchanged", result.Unchanged,
		"duration", result.Duration,
	)
	return result, nil
}

// validateJob rejects descriptors the handler cannot act on. These are not
// reported to the orchestrator; without a usable job there is nothing to
// report against.
func validateJob(job *synctypes.Job) error {
	wrap := func(err error) error {
		return syncerrors.NewError("handle", syncerrors.Tag(syncerrors.ErrInvalidInput, err))
	}

	if job == nil {
		return wrap(goerrors.New("job is nil"))
	}
	if job.ID == "" {
		return wrap(goerrors.New("job has no id"))
	}
	if job.Artifact.Bucket == "" || job.Artifact.Key == "" {
		return wrap(goerrors.New("job does not locate an input artifact"))
	}
	if err := validation.ValidateBucketName(job.DestinationBucket); err != nil {
		return wrap(err)
	}
	return nil
}

// normalizePrefix ensures a non-empty prefix ends with exactly one slash so
// key concatenation never produces doubled or missing separators.
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}

// reasonFor maps a component error onto the reason code delivered to the
// orchestrator. The object key is carried when the error is attributable to
// a single entry.
func reasonFor(err error) synctypes.Reason {
	reason := synctypes.Reason{Cause: err}

	switch {
	case syncerrors.IsFetch(err):
		reason.Code = synctypes.ReasonFetch
	case syncerrors.IsSizeLimit(err):
		reason.Code = synctypes.ReasonSizeLimit
	case syncerrors.IsInvalidEntry(err):
		reason.Code = synctypes.ReasonInvalidEntry
	case syncerrors.IsList(err):
		reason.Code = synctypes.ReasonList
	default:
		reason.Code = synctypes.ReasonTransfer
	}

	var syncErr *syncerrors.Error
	if goerrors.As(err, &syncErr) && syncErr.Key != "" {
		switch reason.Code {
		case synctypes.ReasonInvalidEntry, synctypes.ReasonSizeLimit:
			reason.Key = syncErr.Key
		}
	}

	return reason
}

// transferReason builds the failure reason for a partially failed transfer.
// The reported key is the lexicographically first failed key so repeated
// runs of the same failure produce the same message.
func transferReason(failed []synctypes.TransferOutcome) synctypes.Reason {
	first := failed[0]
	for _, o := range failed[1:] {
		if o.Key < first.Key {
			first = o
		}
	}

	return synctypes.Reason{
		Code:  synctypes.ReasonTransfer,
		Key:   first.Key,
		Cause: first.Err,
	}
}
