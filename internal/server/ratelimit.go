package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// idleViewerTTL is how long a viewer's bucket survives without a page load.
const idleViewerTTL = 10 * time.Minute

// clientRateLimiter throttles dashboard loads per viewer so a reload storm
// does not turn into a report API request storm.
type clientRateLimiter struct {
	rps   rate.Limit
	burst int
	log   logrus.FieldLogger

	mu        sync.Mutex
	viewers   map[string]*viewerBucket
	lastSweep time.Time
}

type viewerBucket struct {
	limiter  *rate.Limiter
	lastLoad time.Time
}

func newClientRateLimiter(requestsPerSec float64, burst int, log logrus.FieldLogger) *clientRateLimiter {
	if requestsPerSec <= 0 || burst <= 0 {
		return nil
	}
	return &clientRateLimiter{
		rps:     rate.Limit(requestsPerSec),
		burst:   burst,
		log:     log,
		viewers: make(map[string]*viewerBucket),
	}
}

func (l *clientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := clientAddress(r)
		if !l.allow(viewer, time.Now()) {
			l.log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"client":     viewer,
				"path":       r.URL.Path,
			}).Warn("dashboard load rate limited")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "요청이 너무 많습니다. 잠시 후 다시 시도하세요.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow takes a token from the viewer's bucket. Idle viewers are swept at
// most once per idleViewerTTL.
func (l *clientRateLimiter) allow(viewer string, now time.Time) bool {
	if viewer == "" {
		viewer = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > idleViewerTTL {
		for key, b := range l.viewers {
			if now.Sub(b.lastLoad) > idleViewerTTL {
				delete(l.viewers, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.viewers[viewer]
	if !ok {
		b = &viewerBucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.viewers[viewer] = b
	}
	b.lastLoad = now
	return b.limiter.AllowN(now, 1)
}

// clientAddress identifies the viewer. chi's RealIP middleware has already
// folded X-Forwarded-For and X-Real-IP into RemoteAddr by the time this runs.
func clientAddress(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
