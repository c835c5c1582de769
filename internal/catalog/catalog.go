// Package catalog is the read-only view of enrollments and course structure
// that the assessment and media paths consult. Authoring lives elsewhere.
package catalog

import (
	"context"
	"path"
	"strings"
)

type VideoRef struct {
	Title       string `json:"title" db:"title"`
	StorageKey  string `json:"-" db:"storage_key"` // key in the media store
	DurationSec int    `json:"duration_sec" db:"duration_sec"`
	FreePreview bool   `json:"free_preview" db:"free_preview"`
}

// ID is the opaque token clients use to request the video: the stored
// file's base name. It must be unique across the whole catalog; the seed
// loader refuses catalogs where two storage keys share a base name.
func (v VideoRef) ID() string { return VideoID(v.StorageKey) }

// VideoID derives a video identifier from a storage key.
func VideoID(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return ""
	}
	return path.Base(key)
}

type Module struct {
	Index  int        `json:"index"`
	Title  string     `json:"title"`
	Videos []VideoRef `json:"videos"`
}

type Reader interface {
	EnrolledCourses(ctx context.Context, studentID string) ([]string, error)
	Modules(ctx context.Context, courseID string) ([]Module, error) // ordered by index
}
