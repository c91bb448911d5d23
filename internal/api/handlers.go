package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ids-go/internal/ids"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	report, err := s.checker.Check(r.Context())
	switch {
	case errors.Is(err, ids.ErrBaselineMissing):
		writeError(w, http.StatusConflict, `Baseline does not exist: run "ids build" first`)
		return
	case errors.Is(err, ids.ErrSerialization):
		writeError(w, http.StatusConflict, `Baseline is not well-formed: rebuild it with "ids build" or restore it with "ids baseline pull"`)
		return
	case err != nil && report != nil:
		// The comparison finished but was not recorded; the result still stands.
		s.logger.Warn("check report not recorded", zap.String("op", "check"), zap.Error(err))
	case err != nil:
		s.logger.Error("check failed", zap.String("op", "check"), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Check failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := s.checker.ListReports(limit)
	if err != nil {
		s.historyError(w, err)
		return
	}
	if reports == nil {
		reports = []*ids.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}

	report, err := s.checker.GetReport(id)
	if err != nil {
		s.historyError(w, err)
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) historyError(w http.ResponseWriter, err error) {
	if errors.Is(err, ids.ErrNoReportDatabase) {
		writeError(w, http.StatusNotImplemented, "Report history is not configured")
		return
	}
	s.logger.Error("reading report history", zap.String("op", "reports"), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Reading report history failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
