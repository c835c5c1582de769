package auth

import "context"

type subjectKey struct{}

// WithSubject records the authenticated user id. Handlers read it back with
// SubjectFromContext and never trust ids from the request body.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns "" for unauthenticated requests.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
