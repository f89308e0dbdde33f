// Package reportapi serves a pre-built report file over HTTP in the shape the
// dashboard fetches. It is a stand-in for the analytics backend during local
// development.
package reportapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Handler serves /health and /report.
type Handler struct {
	reportPath     string
	allowedOrigins []string
	log            logrus.FieldLogger
}

// NewHandler returns a handler reading the report from reportPath on every
// request. An empty allowedOrigins list allows any origin.
func NewHandler(reportPath string, allowedOrigins []string, log logrus.FieldLogger) *Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{reportPath: reportPath, allowedOrigins: allowedOrigins, log: log}
}

// Router builds the chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Cache-Control", "Pragma", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	r.Get("/report", h.report)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.reportPath)
	if errors.Is(err, fs.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"detail": fmt.Sprintf("Report file not found: %s", h.reportPath),
		})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("reading report file")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Failed to read report file"})
		return
	}

	if err := validJSON(data); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"detail": fmt.Sprintf("Invalid JSON report: %v", err),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// validJSON reports why data is not a single JSON value, if it is not.
func validJSON(data []byte) error {
	var v json.RawMessage
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
