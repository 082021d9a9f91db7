// Package fetch retrieves the pipeline's zipped input artifact from the
// artifact store.
package fetch

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/s3api"
	"github.com/forgekit/sitesync/synctypes"
)

// Fetcher retrieves artifact bundles. It performs a single bounded attempt;
// the whole job is idempotent, so transient failures are surfaced to the
// orchestrator which decides whether to re-invoke.
type Fetcher struct {
	client s3api.S3API
}

// New creates a Fetcher over the given storage client.
func New(client s3api.S3API) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads the bundle identified by ref and returns its raw bytes.
// Missing objects, access denial, and transport failures all surface as
// ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, ref synctypes.ArtifactRef) ([]byte, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}
	if ref.Revision != "" {
		input.VersionId = aws.String(ref.Revision)
	}

	out, err := f.client.GetObject(ctx, input)
	if err != nil {
		return nil, syncerrors.NewObjectError("fetch", ref.Bucket, ref.Key,
			syncerrors.Tag(syncerrors.ErrFetch, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, syncerrors.NewObjectError("fetch", ref.Bucket, ref.Key,
			syncerrors.Tag(syncerrors.ErrFetch, err))
	}

	return data, nil
}
