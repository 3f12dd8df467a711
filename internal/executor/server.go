// Package executor implements the remote execution service: the server half
// of the remote execution protocol. It hosts the same local engine registry
// as the API server and runs handler operations on behalf of proxies in
// other processes.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/augurml/augur/internal/dataframe"
	"github.com/augurml/augur/internal/engine"
	"github.com/augurml/augur/internal/remote"
	"github.com/augurml/augur/internal/storage"
	"github.com/augurml/augur/internal/store"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxBodySize       = 1 << 28 // training payloads can be large
)

var executorOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "augur_executor_ops_total",
		Help: "Total number of executed remote operations.",
	},
	[]string{"op", "engine", "outcome"},
)

func init() {
	prometheus.MustRegister(executorOpsTotal)
}

// Server hosts the remote execution protocol.
type Server struct {
	router   *chi.Mux
	store    store.Store
	registry *engine.Registry
	logger   *slog.Logger
	addr     string
}

// NewServer creates and configures an executor server.
func NewServer(addr string, s store.Store, reg *engine.Registry, logger *slog.Logger) *Server {
	srv := &Server{
		router:   chi.NewRouter(),
		store:    s,
		registry: reg,
		logger:   logger,
		addr:     addr,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)

	srv.router.Get("/healthz", srv.handleHealthz)
	srv.router.Handle("/metrics", promhttp.Handler())
	srv.router.Post(remote.RPCPathPrefix+"{op}", srv.handleRPC)

	return srv
}

// Router returns the chi router, used by tests to serve over httptest.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("executor listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("executor error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("executor stopped")
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRPC runs one handler operation on behalf of a remote proxy.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "op")

	var req remote.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Identity.Engine == "" {
		s.writeError(w, http.StatusBadRequest, "identity.engine is required")
		return
	}

	reg, ok := s.registry.Lookup(req.Identity.Engine)
	if !ok {
		executorOpsTotal.WithLabelValues(op, req.Identity.Engine, "unknown_engine").Inc()
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("engine %q is not registered on this executor", req.Identity.Engine))
		return
	}

	data, err := req.Data.Frame()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed data payload: %v", err))
		return
	}

	handler := reg.New(
		storage.NewEngineStorage(s.store, req.Identity.IntegrationID),
		storage.NewModelStorage(s.store, req.Identity.PredictorID),
		req.Args,
	)

	result, err := s.execute(r.Context(), handler, op, &req, data)
	if err != nil {
		executorOpsTotal.WithLabelValues(op, req.Identity.Engine, "error").Inc()
		s.logger.Warn("operation failed",
			"op", op,
			"engine", req.Identity.Engine,
			"predictor_id", req.Identity.PredictorID,
			"error", err,
		)
		// The application failed, not the transport; the message travels
		// back verbatim for the caller.
		s.writeJSON(w, http.StatusInternalServerError, remote.Response{Error: err.Error()})
		return
	}

	executorOpsTotal.WithLabelValues(op, req.Identity.Engine, "ok").Inc()
	s.writeJSON(w, http.StatusOK, remote.Response{Data: remote.NewTable(result)})
}

func (s *Server) execute(ctx context.Context, h engine.Handler, op string, req *remote.Request, data *dataframe.Frame) (*dataframe.Frame, error) {
	switch op {
	case remote.OpCreate:
		return nil, h.Create(ctx, req.Target, req.Args, data)
	case remote.OpPredict:
		return h.Predict(ctx, data, req.Args)
	case remote.OpDescribe:
		return h.Describe(ctx, req.Attribute)
	case remote.OpFinetune:
		return nil, h.Finetune(ctx, data, req.Args)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, remote.Response{Error: message})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
