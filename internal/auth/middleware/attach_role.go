package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-courses/internal/api/problem"
	"github.com/mind-engage/mindengage-courses/internal/rbac"
)

// AttachRoleFromDB makes the users table authoritative for the role of
// known subjects. Subjects with no row keep their token role only when
// allowClaimFallback is set (dev/offline); otherwise they are refused.
func AttachRoleFromDB(users UserLookup, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			u, err := users.Lookup(ctx, SubjectFromContext(ctx))
			switch {
			case err == nil && u.Role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role)))
			case errors.Is(err, ErrUnknownUser) && allowClaimFallback:
				next.ServeHTTP(w, r)
			case err != nil && !errors.Is(err, ErrUnknownUser):
				slog.ErrorContext(ctx, "role lookup failed", "error", err)
				problem.Forbidden(w, r, "")
			default:
				problem.Forbidden(w, r, "")
			}
		})
	}
}
