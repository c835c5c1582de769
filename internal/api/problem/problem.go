// Package problem writes RFC 7807 application/problem+json error responses.
package problem

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
)

const typeBase = "https://courses.mindengage.ai/errors/"

// Problem types that clients branch on. Everything else uses the status code.
const (
	TypeAttemptsExhausted = typeBase + "attempts-exhausted"
	TypeNotEnrolled       = typeBase + "not-enrolled"
	TypeInvalidSubmission = typeBase + "invalid-submission"
	TypeRateLimited       = typeBase + "rate-limited"
)

type Detail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`

	// Extra members, e.g. attempts_used on an exhausted test.
	Extensions map[string]any `json:"-"`
}

func (p *Detail) Error() string { return fmt.Sprintf("%s: %s", p.Title, p.Detail) }

func (p *Detail) MarshalJSON() ([]byte, error) {
	type plain Detail
	base, err := json.Marshal((*plain)(p))
	if err != nil || len(p.Extensions) == 0 {
		return base, err
	}
	merged := map[string]any{}
	for k, v := range p.Extensions {
		merged[k] = v
	}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// Write sends p, filling instance and trace_id from the request.
func Write(w http.ResponseWriter, r *http.Request, p *Detail) {
	if p.Type == "" {
		p.Type = typeBase + strconv.Itoa(p.Status)
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	if r != nil {
		p.Instance = r.URL.Path
		p.TraceID = middleware.GetReqID(r.Context())
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// Status writes a problem carrying only a status and detail.
func Status(w http.ResponseWriter, r *http.Request, status int, detail string) {
	Write(w, r, &Detail{Status: status, Detail: detail})
}

func BadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusBadRequest, detail)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	if detail == "" {
		detail = "authentication required"
	}
	Status(w, r, http.StatusUnauthorized, detail)
}

func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	if detail == "" {
		detail = "insufficient permissions"
	}
	Status(w, r, http.StatusForbidden, detail)
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusNotFound, detail)
}

func TooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	Write(w, r, &Detail{Type: TypeRateLimited, Status: http.StatusTooManyRequests, Detail: "rate limit exceeded"})
}

// Internal logs err and answers 500 without exposing it.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	slog.ErrorContext(ctx, "internal server error", "error", err, "path", r.URL.Path,
		"request_id", middleware.GetReqID(ctx))
	Status(w, r, http.StatusInternalServerError, "an unexpected error occurred")
}
