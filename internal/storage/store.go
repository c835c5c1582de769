package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrOutsideRoot = errors.New("key resolves outside media root")
)

type ObjectInfo struct {
	Size        int64
	ContentType string // may be empty
}

// MediaStore gives ranged read access to stored media files.
type MediaStore interface {
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// OpenRange streams length bytes starting at offset; length < 0 reads to
	// the end. The caller must close the reader.
	OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)
}

// cleanKey canonicalizes a slash-separated key and rejects anything that
// would climb above the store root.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if key == "" {
		return "", ErrNotFound
	}
	if strings.HasPrefix(key, "/") {
		return "", ErrOutsideRoot
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrOutsideRoot
	}
	return c, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
