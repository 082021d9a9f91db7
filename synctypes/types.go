// Package synctypes contains the public data model for artifact sync jobs:
// job descriptors, inventory entries, diff plans, transfer outcomes, and the
// configuration consumed by functional options.
package synctypes

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ArtifactRef identifies the pipeline's input artifact in the artifact store.
type ArtifactRef struct {
	// Bucket is the artifact store bucket name
	Bucket string

	// Key is the object key of the zipped bundle
	Key string

	// Revision optionally pins a specific object version
	Revision string
}

// ArtifactCredentials carries the scoped session credentials the pipeline
// hands the worker for reading the artifact store. They are valid only for
// the duration of the job and are never logged.
type ArtifactCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Job describes one invocation of the sync handler. It is created when the
// invocation event is decoded, treated as immutable, and discarded after the
// result has been reported.
type Job struct {
	// ID is the pipeline job identifier used for the completion callback
	ID string

	// Artifact locates the zipped input bundle
	Artifact ArtifactRef

	// ArtifactCredentials, when present, are used for fetching the bundle
	// instead of the handler's ambient credentials
	ArtifactCredentials *ArtifactCredentials

	// DestinationBucket is the bucket serving the static site
	DestinationBucket string

	// Prefix optionally roots all object keys under a common prefix
	Prefix string

	// MaxEntrySize overrides the handler's per-entry size limit when > 0
	MaxEntrySize int64
}

// ArtifactEntry is one file extracted from the bundle. The path is a
// normalized, forward-slash relative key with no traversal segments.
type ArtifactEntry struct {
	// Path is the relative path inside the bundle; it becomes the object key
	Path string

	// Content is the raw file content
	Content []byte

	// Fingerprint is the lowercase hex MD5 of Content. MD5 is deliberate:
	// it matches the ETag S3 computes for non-multipart objects, which is
	// what change detection compares against.
	Fingerprint string

	// Size is len(Content) as stored in the archive
	Size int64
}

// DestinationEntry is one object currently live in the destination bucket.
type DestinationEntry struct {
	// Key is the full object key, including any prefix
	Key string

	// Fingerprint is the unquoted ETag when it is a plain MD5, or empty when
	// the object was uploaded multipart and the ETag is not a content hash
	Fingerprint string

	// LastModified is the object's last-modified timestamp, the fallback
	// change signal when no fingerprint is available
	LastModified time.Time

	// Size is the stored object size in bytes
	Size int64
}

// DiffPlan is the read-only result of reconciling the artifact inventory
// against the destination listing. The three sequences are disjoint, each
// sorted lexicographically, and their union covers every key seen on either
// side. Keys are relative (prefix not applied).
type DiffPlan struct {
	// ToUpload lists keys that are new or whose content changed
	ToUpload []string

	// ToDelete lists keys present in the destination but absent from the artifact
	ToDelete []string

	// Unchanged lists keys whose fingerprints match on both sides
	Unchanged []string
}

// Empty reports whether the plan requires no transfers.
func (p *DiffPlan) Empty() bool {
	return len(p.ToUpload) == 0 && len(p.ToDelete) == 0
}

// OperationType identifies the kind of transfer performed for a key.
type OperationType string

const (
	// OperationUpload is a PutObject of new or changed content
	OperationUpload OperationType = "upload"

	// OperationDelete is a removal of a stale destination object
	OperationDelete OperationType = "delete"
)

// TransferOutcome records the terminal result of one per-key operation.
type TransferOutcome struct {
	// Key is the relative object key the operation applied to
	Key string

	// Op is the operation that was attempted
	Op OperationType

	// Err is nil on success, or the final error after bounded retries
	Err error
}

// Succeeded reports whether the operation completed without error.
func (o TransferOutcome) Succeeded() bool {
	return o.Err == nil
}

// Status is the terminal disposition of a job.
type Status string

const (
	// StatusSucceeded means every planned transfer applied and the success
	// callback was issued
	StatusSucceeded Status = "Succeeded"

	// StatusFailed means a component failed and the failure callback was
	// issued with a structured reason
	StatusFailed Status = "Failed"
)

// State is a phase of the job state machine. States advance strictly
// forward; any component failure jumps directly to StateReporting.
type State string

const (
	StateFetching     State = "Fetching"
	StateExtracting   State = "Extracting"
	StateListing      State = "Listing"
	StateReconciling  State = "Reconciling"
	StateTransferring State = "Transferring"
	StateReporting    State = "Reporting"
)

// Reason codes attached to failed jobs, as delivered to the orchestrator.
const (
	ReasonFetch        = "FetchError"
	ReasonInvalidEntry = "InvalidEntryError"
	ReasonSizeLimit    = "SizeLimitError"
	ReasonList         = "ListError"
	ReasonTransfer     = "TransferError"
	ReasonReporting    = "ReportingError"
)

// Reason is the structured cause attached to a failed job.
type Reason struct {
	// Code is one of the Reason* constants
	Code string

	// Key names the object the failure applies to, when the failure is
	// attributable to a single key (TransferError, entry rejections)
	Key string

	// Cause is the underlying error
	Cause error
}

// String renders the reason in the form the orchestrator displays, e.g.
// "TransferError(css/site.css): access denied".
func (r Reason) String() string {
	switch {
	case r.Key != "" && r.Cause != nil:
		return fmt.Sprintf("%s(%s): %v", r.Code, r.Key, r.Cause)
	case r.Key != "":
		return fmt.Sprintf("%s(%s)", r.Code, r.Key)
	case r.Cause != nil:
		return fmt.Sprintf("%s: %v", r.Code, r.Cause)
	default:
		return r.Code
	}
}

// Result is the terminal outcome of one handled job.
type Result struct {
	// JobID echoes the job identifier
	JobID string

	// Status is Succeeded or Failed
	Status Status

	// Reason is set when Status is Failed
	Reason *Reason

	// Plan is the diff that was (or would have been) executed; nil when the
	// job failed before reconciliation
	Plan *DiffPlan

	// Outcomes covers every key in Plan.ToUpload and Plan.ToDelete once the
	// transfer phase ran
	Outcomes []TransferOutcome

	// Uploaded, Deleted, and Unchanged are summary counters
	Uploaded  int
	Deleted   int
	Unchanged int

	// Duration is the wall-clock time for the whole job
	Duration time.Duration
}

// ClientConfig holds the resolved handler configuration. All components
// receive their settings from here; there is no ambient global state.
type ClientConfig struct {
	// Region sets the AWS region when no custom config is supplied
	Region string

	// CustomAWSConfig, when set, is used instead of the default credential
	// and region chain (useful for localstack and tests)
	CustomAWSConfig *aws.Config

	// MaxRetries bounds per-operation attempts for list, transfer, and
	// reporting calls (including the initial attempt)
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; subsequent delays double
	RetryBaseDelay time.Duration

	// Timeout, when > 0, bounds each HTTP request
	Timeout time.Duration

	// Concurrency bounds the transfer worker pool
	Concurrency int

	// MaxEntrySize is the per-entry extraction limit in bytes
	MaxEntrySize int64

	// Logger receives structured job progress; nil disables logging
	Logger *slog.Logger
}

// Option is a functional option for configuring the handler.
type Option func(*ClientConfig)
