package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/service"
	"github.com/rapidaid-io/rapidaid/pkg/log"
	"github.com/rapidaid-io/rapidaid/pkg/options"
)

// Checker reports whether a dependency is ready to serve traffic.
type Checker func(ctx context.Context) error

// Server serves the query API, health checks, metrics and live updates.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
	log     log.Logger
}

// NewServer builds the HTTP server. live is mounted at /ws when non-nil.
// checks are evaluated by /readyz.
func NewServer(opts *options.HttpOptions, svc *service.Service, live http.Handler, checks map[string]Checker) *Server {
	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(opts, svc, live, checks),
			ReadHeaderTimeout: opts.Timeout,
			ReadTimeout:       opts.Timeout,
			WriteTimeout:      opts.Timeout,
		},
		options: opts,
		log:     log.WithName("http"),
	}
}

// NewRouter returns the complete route table.
func NewRouter(opts *options.HttpOptions, svc *service.Service, live http.Handler, checks map[string]Checker) http.Handler {
	r := mux.NewRouter()
	r.Use(trace, recoverer)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyz(checks)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if live != nil {
		r.Handle("/ws", live)
	}

	mw := []mux.MiddlewareFunc{instrument}
	if opts.RateLimit > 0 {
		mw = append(mw, rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)))
	}
	a := &api{svc: svc}
	a.register(r, mw...)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("Starting HTTP server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout := s.options.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.log.Info("Shutting down HTTP server")
		return s.server.Shutdown(shutdownCtx)
	}
}

func readyz(checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{
				Code:    "NOT_READY",
				Message: "dependencies are not ready",
				Details: failed,
			})
			return
		}
		writeText(w, http.StatusOK, "ok")
	}
}
