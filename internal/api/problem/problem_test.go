package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFillsDefaults(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test/t1/take", nil)

	Forbidden(rr, req, "")

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, typeBase+"403", got["type"])
	assert.Equal(t, "Forbidden", got["title"])
	assert.Equal(t, "/test/t1/take", got["instance"])
	assert.EqualValues(t, 403, got["status"])
}

func TestWriteMergesExtensions(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	Write(rr, req, &Detail{
		Type:       TypeAttemptsExhausted,
		Status:     http.StatusConflict,
		Extensions: map[string]any{"attempts_used": 3, "status": "ignored"},
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, TypeAttemptsExhausted, got["type"])
	assert.EqualValues(t, 3, got["attempts_used"])
	assert.EqualValues(t, 409, got["status"])
}

func TestInternalHidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	Internal(rr, req, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestTooManyRequestsSetsRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	TooManyRequests(rr, httptest.NewRequest(http.MethodGet, "/x", nil), 2)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))
}
