package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/codegangsta/negroni"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ids-go/internal/ids"
)

const (
	defaultReportLimit = 50
	shutdownTimeout    = 10 * time.Second
)

// Checker is the part of ids.Service the API exposes.
type Checker interface {
	Check(ctx context.Context) (*ids.Report, error)
	ListReports(limit int) ([]*ids.Report, error)
	GetReport(id int64) (*ids.Report, error)
}

var _ Checker = (*ids.Service)(nil)

// Server serves check results over HTTP.
// At most one check runs at a time.
type Server struct {
	checker Checker
	logger  *zap.Logger
	checkMu sync.Mutex
}

// NewServer creates a Server backed by checker.
func NewServer(checker Checker, logger *zap.Logger) *Server {
	return &Server{checker: checker, logger: logger}
}

// Router returns the bare route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Post("/check", s.check)
	r.Get("/reports", s.listReports)
	r.Get("/reports/{id}", s.getReport)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// Handler returns the route table behind panic recovery, access logging and
// failed-request logging.
func (s *Server) Handler() http.Handler {
	n := negroni.New()

	nLogger := negroni.NewLogger()
	nLogger.ALogger = zap.NewStdLog(s.logger.Named("access"))
	nLogger.SetFormat("{{.Status}} | {{.Duration}} | {{.Method}} {{.Request.RequestURI}}")

	recovery := negroni.NewRecovery()
	recovery.Logger = zap.NewStdLog(s.logger.Named("recovery"))
	recovery.PrintStack = false

	n.Use(recovery)
	n.Use(nLogger)
	n.UseFunc(s.logFailedRequests)
	n.UseHandler(s.Router())
	return n
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// logFailedRequests logs every request that did not end in a 2xx status.
func (s *Server) logFailedRequests(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(rw, r)

	nrw, ok := rw.(negroni.ResponseWriter)
	if !ok {
		return
	}
	if nrw.Status() < 200 || nrw.Status() >= 300 {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("requestURI", r.RequestURI),
			zap.String("remoteAddr", r.RemoteAddr),
			zap.Int("status", nrw.Status()),
			zap.Int("size", nrw.Size()),
			zap.Duration("duration", time.Since(start)))
	}
}
