// Package http exposes the test-taking and video endpoints.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mind-engage/mindengage-courses/internal/assessment"
	auth "github.com/mind-engage/mindengage-courses/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courses/internal/grading"
	"github.com/mind-engage/mindengage-courses/internal/media"
	"github.com/mind-engage/mindengage-courses/internal/observability"
	"github.com/mind-engage/mindengage-courses/internal/ratelimit"
	"github.com/mind-engage/mindengage-courses/internal/rbac"
	syncx "github.com/mind-engage/mindengage-courses/internal/sync"
)

type EventSink interface {
	Append(ctx context.Context, e syncx.Event) error
}

// Deps are the collaborators of the course endpoints. Events, Limiter and
// Telemetry are optional.
type Deps struct {
	Tests     assessment.Store
	Tracker   *assessment.Tracker
	Grader    *grading.Engine
	Guard     *media.Guard
	Streamer  *media.Streamer
	Events    EventSink
	Limiter   ratelimit.Limiter
	Telemetry *observability.Provider
}

// MountCourses registers the endpoints on a router that already
// authenticates requests.
func MountCourses(r chi.Router, d Deps) {
	r.With(rbac.Require(rbac.PermTestTake)).
		Get("/test/{testId}/take", TakeTestHandler(d))
	r.With(rbac.Require(rbac.PermTestSubmit), d.throttle("submit")).
		Post("/test/{testId}/submit", SubmitTestHandler(d))
	r.With(rbac.Require(rbac.PermResultViewOwn)).
		Get("/test/{testId}/results", ListResultsHandler(d))
	r.With(rbac.Require(rbac.PermVideoStream), d.throttle("media")).
		Get("/protected-video/{videoId}", ProtectedVideoHandler(d))
}

// throttle limits per authenticated subject; without a Limiter it passes through.
func (d Deps) throttle(scope string) func(http.Handler) http.Handler {
	if d.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimit.Middleware(d.Limiter, scope, func(r *http.Request) string {
		return auth.SubjectFromContext(r.Context())
	})
}

func (d Deps) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if d.Telemetry == nil {
		return ctx, func(error) {}
	}
	return d.Telemetry.TrackOperation(ctx, op, attrs...)
}
