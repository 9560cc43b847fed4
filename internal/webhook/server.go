// internal/webhook/server.go
package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/kernel6/internal/messages"
	"github.com/user/kernel6/internal/types"
)

// Reports is the read side of the record store.
type Reports interface {
	List() []*types.Report
	Get(id types.ReportID) (*types.Report, bool)
	Len() int
}

// Server is a lightweight HTTP handler for health checks, the read-only
// report API and Telegram webhook intake.
type Server struct {
	reports   Reports
	storeMode string
	sessions  func() int
	mux       *http.ServeMux
}

type Option func(*Server)

// WithStoreMode reports the record store mode on /health.
func WithStoreMode(mode string) Option {
	return func(s *Server) { s.storeMode = mode }
}

// WithSessionCount reports the number of live conversations on /health.
func WithSessionCount(fn func() int) Option {
	return func(s *Server) { s.sessions = fn }
}

// WithUpdates mounts a handler receiving Telegram updates at path.
func WithUpdates(path string, h http.Handler) Option {
	return func(s *Server) { s.mux.Handle("POST "+path, h) }
}

// NewServer creates a new webhook Server serving reports.
func NewServer(reports Reports, opts ...Option) *Server {
	s := &Server{
		reports: reports,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/reports", s.handleAPIReports)
	s.mux.HandleFunc("GET /api/reports/{id}", s.handleAPIReport)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store,omitempty"`
	Reports  int    `json:"reports"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: s.storeMode, Reports: s.reports.Len()}
	if s.sessions != nil {
		resp.Sessions = s.sessions()
	}
	writeJSON(w, http.StatusOK, resp)
}

type reportResponse struct {
	*types.Report
	StatusLabel string `json:"status_label"`
}

func toResponse(r *types.Report) reportResponse {
	return reportResponse{Report: r, StatusLabel: messages.FormatStatus(r.Status)}
}

// handleAPIReports lists reports newest first. Optional query parameters:
// status filters by status, limit caps the result size.
func (s *Server) handleAPIReports(w http.ResponseWriter, r *http.Request) {
	status := types.Status(r.URL.Query().Get("status"))
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	result := make([]reportResponse, 0, s.reports.Len())
	for _, rep := range s.reports.List() {
		if status != "" && rep.Status != status {
			continue
		}
		result = append(result, toResponse(rep))
		if limit > 0 && len(result) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.reports.Get(types.ReportID(r.PathValue("id")))
	if !ok {
		http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rep))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Kernel6 Project bot is running.\n"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}
