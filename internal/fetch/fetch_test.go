package fetch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/testutil"
	"github.com/forgekit/sitesync/synctypes"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	client := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			assert.Equal(t, "artifact-store", aws.ToString(params.Bucket))
			assert.Equal(t, "pipeline/build/output.zip", aws.ToString(params.Key))
			assert.Nil(t, params.VersionId)
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("zip-bytes")),
			}, nil
		},
	}

	data, err := New(client).Fetch(context.Background(), synctypes.ArtifactRef{
		Bucket: "artifact-store",
		Key:    "pipeline/build/output.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("zip-bytes"), data)
}

func TestFetch_PinsRevision(t *testing.T) {
	t.Parallel()

	client := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			assert.Equal(t, "version-7", aws.ToString(params.VersionId))
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("pinned")),
			}, nil
		},
	}

	data, err := New(client).Fetch(context.Background(), synctypes.ArtifactRef{
		Bucket:   "artifact-store",
		Key:      "output.zip",
		Revision: "version-7",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("pinned"), data)
}

func TestFetch_MissingObject(t *testing.T) {
	t.Parallel()

	client := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
		},
	}

	data, err := New(client).Fetch(context.Background(), synctypes.ArtifactRef{
		Bucket: "artifact-store",
		Key:    "missing.zip",
	})
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, syncerrors.IsFetch(err))
	assert.Contains(t, err.Error(), "artifact-store/missing.zip")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestFetch_BodyReadFailure(t *testing.T) {
	t.Parallel()

	client := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(failingReader{})}, nil
		},
	}

	_, err := New(client).Fetch(context.Background(), synctypes.ArtifactRef{
		Bucket: "artifact-store",
		Key:    "output.zip",
	})
	require.Error(t, err)
	assert.True(t, syncerrors.IsFetch(err))
}
