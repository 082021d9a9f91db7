package list

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/retry"
	"github.com/forgekit/sitesync/internal/testutil"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestList_SinglePage(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)
	client := &testutil.MockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "site-bucket", aws.ToString(params.Bucket))
			assert.Equal(t, "www/", aws.ToString(params.Prefix))
			return &s3.ListObjectsV2Output{
				Contents: []types.Object{
					{
						Key:          aws.String("www/index.html"),
						ETag:         aws.String(`"d41d8cd98f00b204e9800998ecf8427e"`),
						LastModified: aws.Time(now),
						Size:         aws.Int64(42),
					},
				},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}

	entries, err := New(client, testPolicy()).List(context.Background(), "site-bucket", "www/")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "www/index.html", entries[0].Key)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", entries[0].Fingerprint)
	assert.Equal(t, now, entries[0].LastModified)
	assert.Equal(t, int64(42), entries[0].Size)
}

func TestList_Paginates(t *testing.T) {
	t.Parallel()

	calls := 0
	client := &testutil.MockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			switch calls {
			case 1:
				assert.Nil(t, params.ContinuationToken)
				return &s3.ListObjectsV2Output{
					Contents:              []types.Object{{Key: aws.String("a.txt"), ETag: aws.String(`"aa"`)}},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("token-1"),
				}, nil
			case 2:
				assert.Equal(t, "token-1", aws.ToString(params.ContinuationToken))
				return &s3.ListObjectsV2Output{
					Contents:    []types.Object{{Key: aws.String("b.txt"), ETag: aws.String(`"bb"`)}},
					IsTruncated: aws.Bool(false),
				}, nil
			default:
				t.Fatalf("unexpected call %d", calls)
				return nil, nil
			}
		},
	}

	entries, err := New(client, testPolicy()).List(context.Background(), "site-bucket", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Key)
	assert.Equal(t, "b.txt", entries[1].Key)
	assert.Equal(t, 2, calls)
}

func TestList_RetriesTransientPage(t *testing.T) {
	t.Parallel()

	calls := 0
	client := &testutil.MockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			if calls == 1 {
				return nil, &smithy.GenericAPIError{Code: "SlowDown", Message: "throttled"}
			}
			return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
		},
	}

	entries, err := New(client, testPolicy()).List(context.Background(), "site-bucket", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 2, calls)
}

func TestList_ExhaustionSurfacesAsListError(t *testing.T) {
	t.Parallel()

	calls := 0
	client := &testutil.MockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			return nil, &smithy.GenericAPIError{Code: "InternalError", Message: "boom"}
		},
	}

	entries, err := New(client, testPolicy()).List(context.Background(), "site-bucket", "")
	require.Error(t, err)
	assert.Nil(t, entries)
	assert.True(t, syncerrors.IsList(err))
	assert.Equal(t, 3, calls)
}

func TestList_PermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	client := &testutil.MockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "gone"}
		},
	}

	_, err := New(client, testPolicy()).List(context.Background(), "missing-bucket", "")
	require.Error(t, err)
	assert.True(t, syncerrors.IsList(err))
	assert.Equal(t, 1, calls)
}

func TestFingerprintFromETag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		etag string
		want string
	}{
		{"plain md5", `"d41d8cd98f00b204e9800998ecf8427e"`, "d41d8cd98f00b204e9800998ecf8427e"},
		{"unquoted", "d41d8cd98f00b204e9800998ecf8427e", "d41d8cd98f00b204e9800998ecf8427e"},
		{"uppercase normalized", `"D41D8CD98F00B204E9800998ECF8427E"`, "d41d8cd98f00b204e9800998ecf8427e"},
		{"multipart", `"9b2cf535f27731c974343645a3985328-12"`, ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FingerprintFromETag(tt.etag))
		})
	}
}
