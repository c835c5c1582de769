package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mind-engage/mindengage-courses/internal/api/problem"
	auth "github.com/mind-engage/mindengage-courses/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courses/internal/media"
)

// GET /protected-video/{videoId}
//
// Authorization runs on every request. The stream opens the storage key
// recorded in the catalog, never the client-supplied id.
func ProtectedVideoHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		student := auth.SubjectFromContext(ctx)
		videoID := chi.URLParam(r, "videoId")

		ref, err := d.Guard.Authorize(ctx, student, videoID)
		if err != nil {
			if errors.Is(err, media.ErrAccessDenied) {
				slog.InfoContext(ctx, "video access denied", "video_id", videoID, "student_id", student)
				problem.Forbidden(w, r, "video not available")
				return
			}
			problem.Internal(w, r, err)
			return
		}

		ctx, done := d.track(ctx, "media.stream", attribute.String("video.id", videoID))
		err = d.Streamer.Serve(w, r.WithContext(ctx), ref.StorageKey)
		done(err)
		if err == nil {
			return
		}
		var se *media.StreamError
		if errors.As(err, &se) {
			slog.WarnContext(ctx, "stream aborted", "video_id", videoID, "written", se.Written, "error", se.Err)
			// headers are gone; drop the connection so the client sees a short body
			panic(http.ErrAbortHandler)
		}
		slog.ErrorContext(ctx, "stream failed", "video_id", videoID, "error", err)
	}
}
