// Package server exposes report generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/store"
)

// maxBodySize caps generate-report request bodies.
const maxBodySize = 1 << 20

// Generator runs the report pipeline. *pipeline.Pipeline implements it.
type Generator interface {
	Run(ctx context.Context, intakeID string) (*model.Report, error)
}

// Reports reads stored reports and reports store health.
type Reports interface {
	GetReport(ctx context.Context, id string) (*model.Report, error)
	Ping(ctx context.Context) error
}

// GenerateRequest is the body of POST /generate-report.
type GenerateRequest struct {
	IntakeFormID string `json:"intake_form_id"`
}

// GenerateResponse is the success body of POST /generate-report.
type GenerateResponse struct {
	ReportID         string `json:"report_id"`
	GenerationTimeMs int64  `json:"generation_time_ms"`
}

// Server serves the report API.
type Server struct {
	gen     Generator
	reports Reports
	timeout time.Duration
}

// New creates a Server. A non-positive timeout leaves runs bounded only by
// the request context.
func New(gen Generator, reports Reports, timeout time.Duration) *Server {
	return &Server{gen: gen, reports: reports, timeout: timeout}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/", s.handleGenerate)
	r.Post("/generate-report", s.handleGenerate)
	r.Get("/reports/{id}", s.handleGetReport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.reports.Ping(ctx); err != nil {
		zap.L().Warn("server: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close() //nolint:errcheck

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.IntakeFormID = strings.TrimSpace(req.IntakeFormID)
	if req.IntakeFormID == "" {
		writeError(w, http.StatusBadRequest, "intake_form_id is required")
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.gen.Run(ctx, req.IntakeFormID)
	if err != nil {
		zap.L().Error("server: report generation failed",
			zap.String("intake_id", req.IntakeFormID),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		ReportID:         report.ID,
		GenerationTimeMs: report.Metadata.GenerationTimeMs,
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := s.reports.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		zap.L().Error("server: load report failed", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
