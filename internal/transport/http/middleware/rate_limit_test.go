package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeRateLimitStore struct {
	counts map[string]int
	err    error
}

func newFakeRateLimitStore() *fakeRateLimitStore {
	return &fakeRateLimitStore{counts: map[string]int{}}
}

func (s *fakeRateLimitStore) Increment(_ context.Context, identifier string, window time.Duration) (int, time.Duration, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	s.counts[identifier]++
	return s.counts[identifier], window, nil
}

func newLimitedRouter(store *fakeRateLimitStore, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(store, nil)

	r := gin.New()
	r.POST("/login", limiter.RateLimit(RateLimitRule{
		Name:       "credentials",
		Limit:      limit,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r
}

func doLogin(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:52000"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsWithinCeiling(t *testing.T) {
	r := newLimitedRouter(newFakeRateLimitStore(), 3)

	for i := 0; i < 3; i++ {
		if w := doLogin(r); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimitBlocksOverCeiling(t *testing.T) {
	r := newLimitedRouter(newFakeRateLimitStore(), 2)

	doLogin(r)
	doLogin(r)
	w := doLogin(r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	store := newFakeRateLimitStore()
	store.err = errors.New("redis down")
	r := newLimitedRouter(store, 1)

	for i := 0; i < 3; i++ {
		if w := doLogin(r); w.Code != http.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", w.Code)
		}
	}
}
