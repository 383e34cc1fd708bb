// Package server exposes a compiled map over a read-only HTTP API.
//
// Routes:
//
//	GET /healthz        liveness
//	GET /tables         tables, columns and keys
//	GET /classes        document-centric class maps
//	GET /ddl            CREATE TABLE statements in dependency order
//	GET /dml/{table}    INSERT/SELECT/UPDATE/DELETE for one table
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/mapping"
	"github.com/koustreak/xmldbms/internal/sqlgen"
)

// Server serves one map. The map must not be modified while the server
// runs; handlers only read it.
type Server struct {
	m      *mapping.Map
	ddl    *sqlgen.DDLGenerator
	dml    *sqlgen.DMLGenerator
	log    *logger.Logger
	router chi.Router
}

// New builds the router for m. A nil dialect means dialect.Default() and a
// nil logger discards.
func New(m *mapping.Map, d *dialect.Descriptor, log *logger.Logger) *Server {
	if d == nil {
		d = dialect.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("server")

	s := &Server{
		m:   m,
		ddl: sqlgen.NewDDLGenerator(d, log),
		dml: sqlgen.NewDMLGenerator(d),
		log: log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", s.health)
	r.Get("/tables", s.listTables)
	r.Get("/classes", s.listClasses)
	r.Get("/ddl", s.createStatements)
	r.Get("/dml/{table}", s.tableStatements)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Debug("shutdown complete")
		return nil
	}
}

// logRequests stores a request-scoped logger in the request context and
// logs each request once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(log.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.DebugWith("request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		})
	})
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.ErrorWith("request failed", err, nil)
	} else {
		log.With().Err(err).Str("kind", kind.String()).Logger().Warn("request rejected")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindConflict:
		return http.StatusConflict
	case errs.ErrKindMapping:
		return http.StatusUnprocessableEntity
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
