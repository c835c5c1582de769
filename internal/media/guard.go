// Package media authorizes and serves course videos to enrolled students.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-courses/internal/catalog"
)

var ErrAccessDenied = errors.New("video not available to student")

// Guard decides per request whether a student may stream a video. Nothing
// is cached between calls, so revoked enrollments take effect immediately.
//
// The lookup is a linear scan over every enrolled course's modules. An index
// from video id to course would remove it if enrollment sets grow large.
type Guard struct {
	catalog catalog.Reader
}

func NewGuard(c catalog.Reader) *Guard { return &Guard{catalog: c} }

// Authorize returns the matching video reference, or ErrAccessDenied when
// no enrolled course contains videoID.
func (g *Guard) Authorize(ctx context.Context, studentID, videoID string) (catalog.VideoRef, error) {
	if studentID == "" || videoID == "" {
		return catalog.VideoRef{}, ErrAccessDenied
	}
	courses, err := g.catalog.EnrolledCourses(ctx, studentID)
	if err != nil {
		return catalog.VideoRef{}, fmt.Errorf("load enrollments: %w", err)
	}
	for _, courseID := range courses {
		mods, err := g.catalog.Modules(ctx, courseID)
		if err != nil {
			return catalog.VideoRef{}, fmt.Errorf("load modules of %s: %w", courseID, err)
		}
		for _, m := range mods {
			for _, v := range m.Videos {
				if v.ID() == videoID {
					return v, nil
				}
			}
		}
	}
	return catalog.VideoRef{}, ErrAccessDenied
}
