package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ratedesk/internal/calendar"
	"ratedesk/internal/config"
	"ratedesk/internal/domain"
	"ratedesk/internal/export"
	"ratedesk/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// operatorHeader identifies the operator behind a request. The frontend
// sets it from the logged-in admin account; absent it, everyone shares
// one session.
const operatorHeader = "X-Operator-ID"

// HTTPServer exposes the calendar operations as a JSON API for the
// admin frontend.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      *calendar.Service
	states   domain.StateRepository
	auditor  domain.Auditor
	exporter *export.Exporter
	hotelID  int64
	server   *http.Server
	auth     *HTTPAuth
	logger   zerolog.Logger
}

// ServerOption adjusts optional HTTPServer collaborators.
type ServerOption func(*HTTPServer)

// WithAuditor exposes the audit trail on /api/v1/audit.
func WithAuditor(a domain.Auditor) ServerOption {
	return func(s *HTTPServer) { s.auditor = a }
}

// WithExporter enables /api/v1/calendar/export.
func WithExporter(e *export.Exporter) ServerOption {
	return func(s *HTTPServer) { s.exporter = e }
}

// WithStateRateLimit enables the per-operator request limit backed by
// the state repository.
func WithStateRateLimit(states domain.StateRepository) ServerOption {
	return func(s *HTTPServer) { s.states = states }
}

func NewHTTPServer(cfg config.APIConfig, svc *calendar.Service, hotelID int64, logger *zerolog.Logger, opts ...ServerOption) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		hotelID: hotelID,
		auth:    NewHTTPAuth(cfg),
		logger:  base,
	}
	for _, opt := range opts {
		opt(srv)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/calendar/open", srv.handleOpen)
	mux.HandleFunc("/api/v1/calendar", srv.handleView)
	mux.HandleFunc("/api/v1/calendar/click", srv.handleClick)
	mux.HandleFunc("/api/v1/calendar/range-edit", srv.handleRangeEdit)
	mux.HandleFunc("/api/v1/calendar/fields", srv.handleFields)
	mux.HandleFunc("/api/v1/calendar/save", srv.handleSave)
	mux.HandleFunc("/api/v1/calendar/cancel", srv.handleCancel)
	mux.HandleFunc("/api/v1/calendar/copy", srv.handleCopy)
	mux.HandleFunc("/api/v1/calendar/paste", srv.handlePaste)
	mux.HandleFunc("/api/v1/calendar/filter", srv.handleFilter)
	mux.HandleFunc("/api/v1/calendar/navigate", srv.handleNavigate)
	mux.HandleFunc("/api/v1/calendar/refresh", srv.handleRefresh)
	mux.HandleFunc("/api/v1/calendar/room", srv.handleSelectRoom)
	mux.HandleFunc("/api/v1/calendar/board", srv.handleSelectBoard)
	mux.HandleFunc("/api/v1/calendar/menu/open", srv.handleMenuOpen)
	mux.HandleFunc("/api/v1/calendar/menu/close", srv.handleMenuClose)
	mux.HandleFunc("/api/v1/calendar/export", srv.handleExport)
	mux.HandleFunc("/api/v1/board-types", srv.handleBoardTypes)
	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/audit", srv.handleAudit)

	handler := srv.loggingMiddleware(srv.auth.Wrap(srv.operatorRateLimit(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler exposes the full middleware chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// operatorRateLimit throttles per operator through the state
// repository, so the limit holds across instances. Repository failures
// fail open.
func (s *HTTPServer) operatorRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.states != nil {
			ok, err := s.states.CheckRateLimit(r.Context(), "http:"+operatorFrom(r), 120, time.Minute)
			if err == nil && !ok {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func operatorFrom(r *http.Request) string {
	op := strings.TrimSpace(r.Header.Get(operatorHeader))
	if op == "" {
		op = "default"
	}
	return op
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
