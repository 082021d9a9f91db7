// Package list enumerates the objects currently live under the destination
// prefix, paginating transparently. Listing is the reconciliation baseline,
// so a failed listing is fatal to the job.
package list

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/retry"
	"github.com/forgekit/sitesync/internal/s3api"
	"github.com/forgekit/sitesync/synctypes"
)

// pageSize is the maximum S3 page size.
const pageSize int32 = 1000

// Lister enumerates destination objects with bounded per-page retry.
type Lister struct {
	client s3api.S3API
	policy retry.Policy
}

// New creates a Lister over the given storage client and retry policy.
func New(client s3api.S3API, policy retry.Policy) *Lister {
	return &Lister{client: client, policy: policy}
}

// List returns every object under prefix in bucket. Each page request is
// retried under the shared policy; exhaustion surfaces as ErrList.
func (l *Lister) List(ctx context.Context, bucket, prefix string) ([]synctypes.DestinationEntry, error) {
	var entries []synctypes.DestinationEntry
	var continuationToken *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(pageSize),
		}
		if continuationToken != nil {
			input.ContinuationToken = continuationToken
		}

		var page *s3.ListObjectsV2Output
		err := l.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = l.client.ListObjectsV2(ctx, input)
			return err
		})
		if err != nil {
			return nil, syncerrors.NewBucketError("list", bucket,
				syncerrors.Tag(syncerrors.ErrList, err))
		}

		for _, obj := range page.Contents {
			entries = append(entries, synctypes.DestinationEntry{
				Key:          aws.ToString(obj.Key),
				Fingerprint:  FingerprintFromETag(aws.ToString(obj.ETag)),
				LastModified: aws.ToTime(obj.LastModified),
				Size:         aws.ToInt64(obj.Size),
			})
		}

		if !aws.ToBool(page.IsTruncated) {
			break
		}
		continuationToken = page.NextContinuationToken
	}

	return entries, nil
}

// FingerprintFromETag converts a listing ETag into a content fingerprint.
// A non-multipart ETag is the object's MD5; multipart ETags (they contain a
// part-count suffix after "-") are not content hashes, so no fingerprint is
// reported and the reconciler must treat the object as unverifiable.
func FingerprintFromETag(etag string) string {
	etag = strings.Trim(etag, `"`)
	if etag == "" || strings.Contains(etag, "-") {
		return ""
	}
	return strings.ToLower(etag)
}
