package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when no backend base URL is configured.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single report fetch.
	DefaultTimeout = 10 * time.Second
	// MaxReportBytes caps the accepted report body size.
	MaxReportBytes = 8 << 20
)

// Provider supplies the current report. Implementations must not cache:
// every call reflects the backend's state at call time.
type Provider interface {
	FetchReport(ctx context.Context) (*Report, error)
}

// HTTPProvider fetches the report from GET {baseURL}/report.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider for the given backend base URL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the full report URL.
func (p *HTTPProvider) Endpoint() string {
	return p.baseURL + "/report"
}

// FetchReport issues exactly one uncached GET and decodes the body.
func (p *HTTPProvider) FetchReport(ctx context.Context) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Endpoint(), nil)
	if err != nil {
		return nil, &UnavailableError{Reason: "invalid report endpoint", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", "vocdash/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &UnavailableError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxReportBytes+1))
	if err != nil {
		return nil, transportError(fmt.Errorf("reading body: %w", err))
	}
	if len(body) > MaxReportBytes {
		return nil, &MalformedError{Reason: fmt.Sprintf("body exceeds %d bytes", MaxReportBytes)}
	}

	return Decode(body)
}

func transportError(err error) *UnavailableError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &UnavailableError{Timeout: true, Reason: "request timed out", Err: err}
	}
	return &UnavailableError{Reason: "connection failed", Err: err}
}

// statusText extracts the reason phrase from resp.Status ("500 Internal Server Error").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
