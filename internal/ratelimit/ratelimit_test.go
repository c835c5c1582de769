package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBurstThenRefill(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewMemory(1, 2)
	m.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _ := m.Allow(ctx, "stu-1")
		require.True(t, ok, "burst request %d", i)
	}
	ok, _ := m.Allow(ctx, "stu-1")
	assert.False(t, ok)

	other, _ := m.Allow(ctx, "stu-2")
	assert.True(t, other, "keys are independent")

	clock = clock.Add(time.Second)
	ok, _ = m.Allow(ctx, "stu-1")
	assert.True(t, ok)
}

func TestMemorySweep(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewMemory(1, 1)
	m.now = func() time.Time { return clock }
	_, _ = m.Allow(context.Background(), "a")
	clock = clock.Add(5 * time.Minute)
	_, _ = m.Allow(context.Background(), "b")

	assert.Equal(t, 1, m.Sweep(3*time.Minute))
	assert.Len(t, m.visitors, 1)
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func serve(h http.Handler) int {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test/t1/submit", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	deny := &stubLimiter{}
	assert.Equal(t, http.StatusTooManyRequests, serve(Middleware(deny, "submit", nil)(ok)))
	assert.Equal(t, []string{"submit:10.0.0.7"}, deny.keys)

	allow := &stubLimiter{allow: true}
	byUser := func(*http.Request) string { return "stu-1" }
	assert.Equal(t, http.StatusNoContent, serve(Middleware(allow, "media", byUser)(ok)))
	assert.Equal(t, []string{"media:stu-1"}, allow.keys)

	broken := &stubLimiter{err: errors.New("connection refused")}
	assert.Equal(t, http.StatusNoContent, serve(Middleware(broken, "submit", byUser)(ok)))
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), 0)
	defer client.Close()

	l := NewRedis(client, 0.001, 2)
	l.prefix = "courses:ratelimit:test:" + time.Now().Format("150405.000000") + ":"
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "stu")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "stu")
	require.NoError(t, err)
	assert.False(t, ok)
}
