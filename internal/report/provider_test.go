package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchReport(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/report" {
			t.Errorf("expected /report, got %s", r.URL.Path)
		}
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("expected Cache-Control no-cache, got %q", r.Header.Get("Cache-Control"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fullReportJSON))
	}))
	t.Cleanup(srv.Close)

	p := NewHTTPProvider(srv.URL+"/", time.Second)
	r, err := p.FetchReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.TotalCount != 1234 {
		t.Errorf("expected total_count 1234, got %d", r.Meta.TotalCount)
	}

	// Each call goes to the backend.
	if _, err := p.FetchReport(context.Background()); err != nil {
		t.Fatalf("unexpected error on second fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 backend calls, got %d", calls)
	}
}

func TestFetchReportStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPProvider(srv.URL, time.Second).FetchReport(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %T", err)
	}
	if ue.StatusCode != 500 || ue.Status != "Internal Server Error" {
		t.Errorf("unexpected status: %d %q", ue.StatusCode, ue.Status)
	}
	if !strings.Contains(err.Error(), "500 Internal Server Error") {
		t.Errorf("expected status code and text in error, got %q", err.Error())
	}
}

func TestFetchReportUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPProvider(url, time.Second).FetchReport(context.Background())
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if ue.StatusCode != 0 {
		t.Errorf("expected no status code, got %d", ue.StatusCode)
	}
}

func TestFetchReportTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	_, err := NewHTTPProvider(srv.URL, 50*time.Millisecond).FetchReport(context.Background())
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if !ue.Timeout {
		t.Errorf("expected timeout to be flagged, got %v", err)
	}
}

func TestFetchReportMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta": {}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPProvider(srv.URL, time.Second).FetchReport(context.Background())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("malformed body must not be reported as unavailable")
	}
}

func TestNewHTTPProviderDefaults(t *testing.T) {
	p := NewHTTPProvider("", 0)
	if p.Endpoint() != "http://localhost:8000/report" {
		t.Errorf("unexpected default endpoint %q", p.Endpoint())
	}
	if p.client.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", p.client.Timeout)
	}
}
