package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func TestRateLimiterDisabled(t *testing.T) {
	if l := newClientRateLimiter(0, 5, quietLogger()); l != nil {
		t.Error("expected zero rps to disable the limiter")
	}
	if l := newClientRateLimiter(1, 0, quietLogger()); l != nil {
		t.Error("expected zero burst to disable the limiter")
	}
}

func TestRateLimiterPerViewer(t *testing.T) {
	l := newClientRateLimiter(0.001, 1, quietLogger())
	now := time.Now()

	if !l.allow("10.0.0.1", now) {
		t.Fatal("expected first load to pass")
	}
	if l.allow("10.0.0.1", now) {
		t.Error("expected second load from the same viewer to be limited")
	}
	if !l.allow("10.0.0.2", now) {
		t.Error("expected another viewer to have its own bucket")
	}
}

func TestRateLimiterSweepsIdleViewers(t *testing.T) {
	l := newClientRateLimiter(0.001, 1, quietLogger())
	start := time.Now()

	l.allow("10.0.0.1", start)
	l.allow("10.0.0.2", start.Add(idleViewerTTL))
	l.allow("10.0.0.3", start.Add(2*idleViewerTTL+time.Second))

	if _, ok := l.viewers["10.0.0.1"]; ok {
		t.Error("expected idle viewer to be swept")
	}
	if _, ok := l.viewers["10.0.0.3"]; !ok {
		t.Error("expected active viewer to be kept")
	}
}

func TestRateLimiterLogsRejection(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	l := newClientRateLimiter(0.001, 1, log)
	h := middleware.RequestID(l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.9:51000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}

	out := buf.String()
	for _, want := range []string{"dashboard load rate limited", "client=10.0.0.9", "path=/", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}
