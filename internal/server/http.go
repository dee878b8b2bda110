package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
)

// Fixed responses.
const (
	Banner           = "Calendar bot is running!"
	TriggerSucceeded = "Daily summary triggered"
)

// DefaultTriggerTimeout bounds a manual digest run.
const DefaultTriggerTimeout = 5 * time.Minute

// HTTPConfig configures the public HTTP server.
type HTTPConfig struct {
	Addr string

	// Events receives Slack Events API requests on POST /slack/events.
	Events http.Handler

	// Trigger runs the daily digest for GET /trigger-summary. The route is
	// not mounted when nil.
	Trigger func(ctx context.Context) error

	// TriggerRateLimit is the number of triggers allowed per client IP per
	// minute.
	TriggerRateLimit int

	Health  *HealthChecker
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// HTTPServer is the public server: Slack webhook, manual trigger and health checks.
type HTTPServer struct {
	httpServer *http.Server
	handler    http.Handler
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer builds the router.
func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Events == nil {
		return nil, errors.New("slack events handler is required")
	}
	if cfg.TriggerRateLimit <= 0 {
		cfg.TriggerRateLimit = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithComponent(logger, "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrumentRequests(cfg.Metrics, logger))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(Banner))
	})
	if cfg.Health != nil {
		cfg.Health.RegisterHealthEndpoints(r)
	}
	r.Method(http.MethodPost, "/slack/events", cfg.Events)
	if cfg.Trigger != nil {
		r.With(httprate.LimitByIP(cfg.TriggerRateLimit, time.Minute)).
			Get("/trigger-summary", triggerHandler(cfg.Trigger, logger))
	}

	return &HTTPServer{
		handler: r,
		addr:    cfg.Addr,
		logger:  logger,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			// Manual digest runs can take a while.
			WriteTimeout: DefaultTriggerTimeout + 10*time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}, nil
}

// Handler returns the router.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// StartWithReadySignal serves until Shutdown, closing ready once the
// listener is bound.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	if ready != nil {
		close(ready)
	}

	s.logger.Info("starting http server", slog.String("addr", s.addr))
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured, or once started the bound, address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

func triggerHandler(run func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), DefaultTriggerTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := run(ctx); err != nil {
			logger.Error("manual digest failed", logging.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		_, _ = w.Write([]byte(TriggerSucceeded))
	}
}

func instrumentRequests(m *instrumentation.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				path = rc.RoutePattern()
			}
			duration := time.Since(start)

			m.RecordHTTPRequest(r.Context(), r.Method, path, status, duration)
			logger.Debug("request completed",
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
