// Package extract unpacks an artifact bundle into an ordered set of
// (relative path, content, fingerprint) records. Extraction is a pure
// function of the bundle bytes: repeated runs over the same bundle yield an
// identical sequence, which is what makes job re-invocation idempotent.
package extract

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/internal/validation"
	"github.com/forgekit/sitesync/synctypes"
)

// DefaultMaxEntrySize is the per-entry limit applied when neither the job
// nor the handler configuration overrides it.
const DefaultMaxEntrySize int64 = 100 << 20 // 100 MiB

// Extract unpacks the zip bundle into artifact entries in archive order.
// Entry paths are normalized to forward-slash relative keys; traversal
// segments, absolute paths, and control characters reject the whole bundle
// with ErrInvalidEntry, and entries larger than maxEntrySize reject it with
// ErrSizeLimit. A duplicate path keeps its first position with the later
// content, matching zip semantics where the last entry wins.
func Extract(data []byte, maxEntrySize int64) ([]synctypes.ArtifactEntry, error) {
	if maxEntrySize <= 0 {
		maxEntrySize = DefaultMaxEntrySize
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, syncerrors.NewError("extract",
			syncerrors.Tag(syncerrors.ErrInvalidEntry, err)).
			WithMessage("bundle is not a valid zip archive")
	}

	var entries []synctypes.ArtifactEntry
	index := make(map[string]int)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		key, err := normalizeKey(f.Name)
		if err != nil {
			return nil, syncerrors.NewError("extract",
				syncerrors.Tag(syncerrors.ErrInvalidEntry, err)).WithKey(f.Name)
		}

		if int64(f.UncompressedSize64) > maxEntrySize {
			return nil, syncerrors.NewError("extract", syncerrors.ErrSizeLimit).
				WithKey(key).
				WithMessage(fmt.Sprintf("entry declares %d bytes, limit is %d", f.UncompressedSize64, maxEntrySize))
		}

		content, err := readEntry(f, maxEntrySize)
		if err != nil {
			return nil, err
		}

		sum := md5.Sum(content)
		entry := synctypes.ArtifactEntry{
			Path:        key,
			Content:     content,
			Fingerprint: hex.EncodeToString(sum[:]),
			Size:        int64(len(content)),
		}

		if i, ok := index[key]; ok {
			entries[i] = entry
			continue
		}
		index[key] = len(entries)
		entries = append(entries, entry)
	}

	return entries, nil
}

// readEntry reads one archive entry, enforcing the size limit on the actual
// decompressed byte count, not just the declared header size.
func readEntry(f *zip.File, maxEntrySize int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, syncerrors.NewError("extract",
			syncerrors.Tag(syncerrors.ErrInvalidEntry, err)).WithKey(f.Name)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, syncerrors.NewError("extract",
			syncerrors.Tag(syncerrors.ErrInvalidEntry, err)).WithKey(f.Name)
	}
	if int64(len(content)) > maxEntrySize {
		return nil, syncerrors.NewError("extract", syncerrors.ErrSizeLimit).
			WithKey(f.Name).
			WithMessage(fmt.Sprintf("entry exceeds %d bytes", maxEntrySize))
	}

	return content, nil
}

// normalizeKey turns an archive member name into a destination object key.
// Backslashes are normalized first so Windows-built archives produce the
// same keys as archives built elsewhere.
func normalizeKey(name string) (string, error) {
	key := strings.ReplaceAll(name, `\`, "/")

	if err := validation.ValidateObjectKey(key); err != nil {
		return "", err
	}

	key = path.Clean(key)
	if key == "." || key == "/" {
		return "", fmt.Errorf("entry path %q resolves to nothing", name)
	}
	key = strings.TrimPrefix(key, "./")

	return key, nil
}
