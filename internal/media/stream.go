package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-courses/internal/storage"
)

const copyBufSize = 64 << 10

// StreamError reports a failure after the response headers were sent. The
// client has received a truncated body and the connection should be dropped.
type StreamError struct {
	Key     string
	Written int64
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: aborted after %d bytes: %v", e.Key, e.Written, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Streamer serves stored media honoring single byte-range requests.
type Streamer struct {
	store storage.MediaStore
}

func NewStreamer(store storage.MediaStore) *Streamer { return &Streamer{store: store} }

// Serve writes the object at key to w. It answers 404 for a missing object,
// 416 for a range starting past the end, 206 for a valid range and 200
// otherwise. A malformed Range header falls back to the full object. The
// object reader is closed on every return path.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, key string) error {
	ctx := r.Context()
	info, err := s.store.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrOutsideRoot) {
			http.Error(w, "video not found", http.StatusNotFound)
			return nil
		}
		http.Error(w, "storage error", http.StatusInternalServerError)
		return fmt.Errorf("stat %s: %w", key, err)
	}

	br, partial, err := parseRange(r.Header.Get("Range"), info.Size)
	if errors.Is(err, errUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	offset, length, status := int64(0), info.Size, http.StatusOK
	if partial {
		offset, length, status = br.Start, br.Length(), http.StatusPartialContent
	}

	rc, err := s.store.OpenRange(ctx, key, offset, length)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "video not found", http.StatusNotFound)
			return nil
		}
		http.Error(w, "storage error", http.StatusInternalServerError)
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()

	h := w.Header()
	h.Set("Content-Type", contentType(info, key))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	if partial {
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, info.Size))
	}
	w.WriteHeader(status)

	n, err := io.CopyBuffer(w, io.LimitReader(rc, length), make([]byte, copyBufSize))
	if err == nil && n < length {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			slog.DebugContext(ctx, "client went away mid-stream", "key", key, "written", n)
		}
		return &StreamError{Key: key, Written: n, Err: err}
	}
	return nil
}

// videoTypes covers containers the system mime table often lacks.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".ogv":  "video/ogg",
	".ts":   "video/mp2t",
	".m3u8": "application/vnd.apple.mpegurl",
	".vtt":  "text/vtt",
}

func contentType(info storage.ObjectInfo, key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := videoTypes[ext]; ok {
		return ct
	}
	if info.ContentType != "" {
		return info.ContentType
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
