// Package transfer applies a diff plan to the destination bucket: uploads
// for new or changed keys, batch deletes for stale keys. Per-object
// operations run on a bounded worker pool and are retried independently
// under the shared policy. The upload phase is a hard barrier: no delete is
// issued until every upload has completed or failed, so a partial failure
// can never remove content whose replacement never arrived.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/retry"
	"github.com/forgekit/sitesync/internal/s3api"
	"github.com/forgekit/sitesync/synctypes"
)

const (
	// defaultContentType is used when neither extension nor content
	// sniffing yields a type
	defaultContentType = "application/octet-stream"

	// maxDeleteBatch is the S3 DeleteObjects limit
	maxDeleteBatch = 1000

	// defaultConcurrency bounds the upload worker pool when unconfigured
	defaultConcurrency = 5
)

// Executor applies diff plans. Safe for reuse across jobs; each Execute
// call tracks its own outcome set.
type Executor struct {
	client      s3api.S3API
	policy      retry.Policy
	concurrency int
	logger      *slog.Logger
}

// New creates an Executor with the given concurrency bound.
func New(client s3api.S3API, policy retry.Policy, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Executor{
		client:      client,
		policy:      policy,
		concurrency: concurrency,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used for per-key failure reporting.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Result is the terminal outcome set of one Execute call. Outcomes covers
// every key in the plan's ToUpload and ToDelete sequences exactly once.
type Result struct {
	Outcomes []synctypes.TransferOutcome
	Uploaded int
	Deleted  int
}

// Failed returns the failed outcomes in the order they were recorded.
func (r *Result) Failed() []synctypes.TransferOutcome {
	var failed []synctypes.TransferOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Execute applies the plan to the bucket. Successful operations are never
// rolled back on partial failure; the caller inspects the outcome set to
// decide the job's disposition. The returned error is non-nil only when the
// context was cancelled mid-run, in which case unattempted keys carry the
// context error in their outcomes.
func (e *Executor) Execute(
	ctx context.Context,
	bucket, prefix string,
	plan *synctypes.DiffPlan,
	entries []synctypes.ArtifactEntry,
) (*Result, error) {
	result := &Result{}

	byPath := make(map[string]synctypes.ArtifactEntry, len(entries))
	for _, entry := range entries {
		byPath[entry.Path] = entry
	}

	cancelled := e.executeUploads(ctx, bucket, prefix, plan.ToUpload, byPath, result)

	// Barrier: executeUploads has waited for every upload worker before we
	// touch a single delete.
	e.executeDeletes(ctx, bucket, prefix, plan.ToDelete, result, cancelled)

	if cancelled {
		return result, ctx.Err()
	}
	return result, nil
}

// executeUploads runs the upload phase on the worker pool and returns true
// when the context was cancelled before all keys could be dispatched.
func (e *Executor) executeUploads(
	ctx context.Context,
	bucket, prefix string,
	keys []string,
	byPath map[string]synctypes.ArtifactEntry,
	result *Result,
) bool {
	semaphore := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	record := func(o synctypes.TransferOutcome) {
		mu.Lock()
		defer mu.Unlock()
		result.Outcomes = append(result.Outcomes, o)
		if o.Succeeded() {
			result.Uploaded++
		}
	}

	cancelled := false
	for i, key := range keys {
		if ctx.Err() == nil {
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			// Remaining keys were never attempted; their outcomes still
			// have to cover them.
			for _, skipped := range keys[i:] {
				record(synctypes.TransferOutcome{Key: skipped, Op: synctypes.OperationUpload, Err: ctx.Err()})
			}
			cancelled = true
			break
		}

		wg.Add(1)
		go func(key string) {
			defer func() {
				<-semaphore
				wg.Done()
			}()

			err := e.uploadOne(ctx, bucket, prefix, key, byPath)
			if err != nil {
				e.logger.Warn("upload failed", "bucket", bucket, "key", key, "error", err)
			}
			record(synctypes.TransferOutcome{Key: key, Op: synctypes.OperationUpload, Err: err})
		}(key)
	}

	wg.Wait()
	return cancelled
}

// uploadOne puts a single entry, retrying transient failures.
func (e *Executor) uploadOne(
	ctx context.Context,
	bucket, prefix, key string,
	byPath map[string]synctypes.ArtifactEntry,
) error {
	entry, ok := byPath[key]
	if !ok {
		return syncerrors.NewObjectError("upload", bucket, key,
			syncerrors.Tag(syncerrors.ErrTransfer, fmt.Errorf("no artifact entry for planned key")))
	}

	objectKey := prefix + key
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(entry.Content),
		ContentLength: aws.Int64(entry.Size),
		ContentType:   aws.String(detectContentType(key, entry.Content)),
	}

	err := e.policy.Do(ctx, func(ctx context.Context) error {
		_, err := e.client.PutObject(ctx, input)
		return err
	})
	if err != nil {
		return syncerrors.NewObjectError("upload", bucket, objectKey,
			syncerrors.Tag(syncerrors.ErrTransfer, err))
	}
	return nil
}

// executeDeletes runs the delete phase in DeleteObjects batches.
func (e *Executor) executeDeletes(
	ctx context.Context,
	bucket, prefix string,
	keys []string,
	result *Result,
	cancelled bool,
) {
	if cancelled {
		for _, key := range keys {
			result.Outcomes = append(result.Outcomes,
				synctypes.TransferOutcome{Key: key, Op: synctypes.OperationDelete, Err: ctx.Err()})
		}
		return
	}

	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		e.deleteBatch(ctx, bucket, prefix, keys[start:end], result)
	}
}

// deleteBatch deletes one batch, retrying the whole request on transient
// failure and fanning per-key errors from the response back into outcomes.
func (e *Executor) deleteBatch(ctx context.Context, bucket, prefix string, keys []string, result *Result) {
	identifiers := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		identifiers = append(identifiers, types.ObjectIdentifier{
			Key: aws.String(prefix + key),
		})
	}

	input := &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: identifiers},
	}

	var output *s3.DeleteObjectsOutput
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		output, err = e.client.DeleteObjects(ctx, input)
		return err
	})
	if err != nil {
		tagged := syncerrors.NewBucketError("delete", bucket,
			syncerrors.Tag(syncerrors.ErrTransfer, err))
		e.logger.Warn("delete batch failed", "bucket", bucket, "keys", len(keys), "error", err)
		for _, key := range keys {
			result.Outcomes = append(result.Outcomes,
				synctypes.TransferOutcome{Key: key, Op: synctypes.OperationDelete, Err: tagged})
		}
		return
	}

	failed := make(map[string]error, len(output.Errors))
	for _, deleteErr := range output.Errors {
		key := relativeKey(aws.ToString(deleteErr.Key), prefix)
		failed[key] = syncerrors.NewObjectError("delete", bucket, aws.ToString(deleteErr.Key),
			syncerrors.Tag(syncerrors.ErrTransfer,
				fmt.Errorf("%s: %s", aws.ToString(deleteErr.Code), aws.ToString(deleteErr.Message))))
	}

	for _, key := range keys {
		if err, ok := failed[key]; ok {
			e.logger.Warn("delete failed", "bucket", bucket, "key", key, "error", err)
			result.Outcomes = append(result.Outcomes,
				synctypes.TransferOutcome{Key: key, Op: synctypes.OperationDelete, Err: err})
			continue
		}
		result.Outcomes = append(result.Outcomes,
			synctypes.TransferOutcome{Key: key, Op: synctypes.OperationDelete})
		result.Deleted++
	}
}

// relativeKey strips the prefix from a destination key.
func relativeKey(key, prefix string) string {
	if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

// detectContentType resolves the Content-Type for an upload. Extension
// lookup comes first because static-site assets (css, js, svg) sniff as
// generic text; content sniffing covers extensionless files.
func detectContentType(key string, content []byte) string {
	if ext := path.Ext(key); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	if len(content) > 0 {
		if mt := mimetype.Detect(content); mt != nil {
			return mt.String()
		}
	}

	return defaultContentType
}
