package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bucket and key",
			err:  NewObjectError("upload", "site-bucket", "css/site.css", cause),
			want: "sitesync.upload site-bucket/css/site.css: connection reset",
		},
		{
			name: "bucket only",
			err:  NewBucketError("list", "site-bucket", cause),
			want: "sitesync.list bucket site-bucket: connection reset",
		},
		{
			name: "key only",
			err:  NewError("extract", cause).WithKey("../etc/passwd"),
			want: "sitesync.extract object ../etc/passwd: connection reset",
		},
		{
			name: "operation only",
			err:  NewError("report", cause),
			want: "sitesync.report: connection reset",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewError("fetch", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestError_WithMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("zip: not a valid zip file")
	err := NewError("extract", cause).WithMessage("bundle is not a valid zip archive")

	assert.Contains(t, err.Error(), "bundle is not a valid zip archive")
	assert.True(t, errors.Is(err, cause))
}

func TestTag(t *testing.T) {
	t.Parallel()

	t.Run("preserves sentinel and cause", func(t *testing.T) {
		t.Parallel()

		cause := fmt.Errorf("access denied")
		tagged := Tag(ErrTransfer, cause)

		assert.True(t, errors.Is(tagged, ErrTransfer))
		assert.True(t, errors.Is(tagged, cause))
	})

	t.Run("nil cause returns bare sentinel", func(t *testing.T) {
		t.Parallel()

		tagged := Tag(ErrList, nil)
		assert.Equal(t, ErrList, tagged)
	})

	t.Run("survives wrapping in Error", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("NoSuchKey")
		err := NewObjectError("fetch", "artifacts", "bundle.zip", Tag(ErrFetch, cause))

		require.True(t, errors.Is(err, ErrFetch))
		assert.True(t, errors.Is(err, cause))
		assert.False(t, errors.Is(err, ErrTransfer))
	})
}

func TestSentinelHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sentinel error
		check    func(error) bool
	}{
		{"fetch", ErrFetch, IsFetch},
		{"invalid entry", ErrInvalidEntry, IsInvalidEntry},
		{"size limit", ErrSizeLimit, IsSizeLimit},
		{"list", ErrList, IsList},
		{"transfer", ErrTransfer, IsTransfer},
		{"reporting", ErrReporting, IsReporting},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := NewError("op", Tag(tt.sentinel, errors.New("cause")))
			assert.True(t, tt.check(wrapped))
			assert.False(t, tt.check(errors.New("unrelated")))
		})
	}
}
