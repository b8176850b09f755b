package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minlab/hospital/internal/platform/auth"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func runLimited(e *echo.Echo, h echo.HandlerFunc, remoteAddr string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e := echo.New()
	h := rateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2}, clock.now)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		rec, err := runLimited(e, h, "10.0.0.1:1234")
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "1" {
			t.Errorf("request %d: missing limit header", i+1)
		}
	}

	rec, err := runLimited(e, h, "10.0.0.1:1234")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}

	clock.t = clock.t.Add(time.Second)
	if _, err := runLimited(e, h, "10.0.0.1:1234"); err != nil {
		t.Errorf("expected a refilled token, got %v", err)
	}
}

func TestRateLimit_SeparateCallers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e := echo.New()
	h := rateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, clock.now)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if _, err := runLimited(e, h, "10.0.0.1:1"); err != nil {
		t.Fatalf("first caller: %v", err)
	}
	if _, err := runLimited(e, h, "10.0.0.2:1"); err != nil {
		t.Errorf("second caller must have its own bucket, got %v", err)
	}
}

func TestRateLimit_KeysBySubject(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e := echo.New()
	h := rateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, clock.now)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	call := func(remote string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, "nurse-1"))
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := call("10.0.0.1:1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := call("10.0.0.9:1"); err == nil {
		t.Error("the same subject from another address must share the bucket")
	}
}
