package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"github.com/voc-insights/vocdash/internal/report"
	"github.com/voc-insights/vocdash/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// DefaultRequestTimeout bounds the backend fetch of a dashboard request.
const DefaultRequestTimeout = 15 * time.Second

// Options configures the dashboard server.
type Options struct {
	MaxIssueQuotes int
	RateLimitRPS   float64 // zero disables rate limiting
	RateLimitBurst int
	RequestTimeout time.Duration
	Logger         logrus.FieldLogger
}

// Server is the HTTP server for the VOC dashboard.
type Server struct {
	provider report.Provider
	opts     Options
	log      logrus.FieldLogger
	pages    map[string]*template.Template
	router   chi.Router
	limiter  *clientRateLimiter
}

// New creates a new Server that reads its report from provider.
func New(provider report.Provider, opts Options) (*Server, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base with its own "title" and "content".
	pageNames := []string{"dashboard.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		provider: provider,
		opts:     opts,
		log:      log,
		pages:    pages,
		router:   chi.NewRouter(),
		limiter:  newClientRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, log),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	r.Get("/healthz", handleHealthz)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Get("/", s.handleDashboard)
	})
}

// handleDashboard bounds the backend fetch with RequestTimeout. An expired
// fetch renders the fallback page as the only response.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	rep, err := s.provider.FetchReport(ctx)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"error":      err,
		}).Warn("report fetch failed")
		s.render(w, http.StatusBadGateway, "error.html", describeFailure(err))
		return
	}

	d := view.Compose(rep, view.Options{MaxIssueQuotes: s.opts.MaxIssueQuotes})
	s.render(w, http.StatusOK, "dashboard.html", d)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Errorf("template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.log.Errorf("rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Run serves srv until ctx is cancelled, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on http://%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
