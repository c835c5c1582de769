package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-courses/internal/rbac"
)

type fakeUsers map[string]User

func (f fakeUsers) Lookup(_ context.Context, key string) (User, error) {
	for _, u := range f {
		if u.ID == key || u.Username == key {
			return u, nil
		}
	}
	return User{}, ErrUnknownUser
}

func newUsers(t *testing.T) fakeUsers {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return fakeUsers{"u-1": {ID: "u-1", Username: "alice", Role: "student", PasswordHash: string(hash)}}
}

func login(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	return rr
}

func TestLoginWithStoredHash(t *testing.T) {
	a := NewAuthService("k")
	h := LoginHandler(a, newUsers(t), false)

	rr := login(t, h, `{"username":"alice","password":"s3cret","role":"teacher"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	c, err := a.Parse(out["access_token"])
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.Subject)
	assert.Equal(t, "student", c.Role, "stored role wins over the requested one")

	rr = login(t, h, `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginDevFallbackOnlyWhenEnabled(t *testing.T) {
	a := NewAuthService("k")
	body := `{"username":"bob","password":"bob","role":"student"}`

	assert.Equal(t, http.StatusUnauthorized, login(t, LoginHandler(a, newUsers(t), false), body).Code)
	assert.Equal(t, http.StatusOK, login(t, LoginHandler(a, newUsers(t), true), body).Code)
	assert.Equal(t, http.StatusUnauthorized,
		login(t, LoginHandler(a, newUsers(t), true), `{"username":"bob","password":"bob","role":"admin"}`).Code)
}

func TestJWTMiddlewareSetsSubjectAndRole(t *testing.T) {
	a := NewAuthService("k")
	tok, err := a.IssueJWT("stu-9", "student")
	require.NoError(t, err)

	var sub, role string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, role = SubjectFromContext(r.Context()), rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "stu-9", sub)
	assert.Equal(t, "student", role)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	a := NewAuthService("k")
	other, _ := NewAuthService("other").IssueJWT("stu-9", "student")

	expired := NewAuthService("k")
	expired.now = func() time.Time { return time.Now().Add(-24 * time.Hour) }
	old, _ := expired.IssueJWT("stu-9", "student")

	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	for name, hdr := range map[string]string{
		"missing":    "",
		"wrong key":  "Bearer " + other,
		"expired":    "Bearer " + old,
		"not bearer": "Basic Zm9vOmJhcg==",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, name)
	}
}

func TestAttachRoleFromDB(t *testing.T) {
	users := fakeUsers{"t-1": {ID: "t-1", Username: "tina", Role: "teacher"}}
	var role string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { role = rbac.RoleFromContext(r.Context()) })

	run := func(sub string, fallback bool) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := rbac.WithRole(WithSubject(req.Context(), sub), "student")
		rr := httptest.NewRecorder()
		AttachRoleFromDB(users, fallback)(next).ServeHTTP(rr, req.WithContext(ctx))
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, run("t-1", false))
	assert.Equal(t, "teacher", role)
	assert.Equal(t, http.StatusForbidden, run("ghost", false))
	assert.Equal(t, http.StatusOK, run("ghost", true))
	assert.Equal(t, "student", role)
}
