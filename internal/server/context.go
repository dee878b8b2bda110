package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/calbot/internal/calendar"
	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/google"
	"github.com/teemow/calbot/internal/instrumentation"
)

// ErrShutdown is returned for requests made after Shutdown.
var ErrShutdown = errors.New("server context is shut down")

// ServerContext owns the long-lived Google Calendar clients, one per
// account, and the shared telemetry sinks.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tokens  google.TokenProvider
	clients map[string]*calendar.Client // account name → client
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context. Calendar clients are created
// lazily on first use.
func NewServerContext(ctx context.Context, tokens google.TokenProvider, logger *slog.Logger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		tokens:  tokens,
		clients: make(map[string]*calendar.Client),
		logger:  logger,
	}
}

// Context returns the server context, cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// CalendarForAccount returns the calendar client for a Google account,
// creating and caching it on first use.
func (sc *ServerContext) CalendarForAccount(account string) (*calendar.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if client, ok := sc.clients[account]; ok {
		return client, nil
	}
	if sc.tokens == nil || !sc.tokens.HasAccount(account) {
		return nil, fmt.Errorf("google account %q is not configured", account)
	}

	ts, err := sc.tokens.TokenSource(sc.ctx, account)
	if err != nil {
		return nil, err
	}
	client, err := calendar.NewClient(sc.ctx, account, ts,
		calendar.WithMetrics(sc.metrics),
		calendar.WithLogger(sc.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client for account %s: %w", account, err)
	}

	sc.clients[account] = client
	return client, nil
}

// CalendarFor returns the calendar client for a user's account, reporting
// times in the user's zone.
func (sc *ServerContext) CalendarFor(_ context.Context, p *config.UserProfile) (*calendar.Client, error) {
	loc, err := p.Location()
	if err != nil {
		return nil, err
	}
	client, err := sc.CalendarForAccount(p.Account)
	if err != nil {
		return nil, err
	}
	return client.In(loc), nil
}

// SetCalendarForAccount installs a client for an account.
func (sc *ServerContext) SetCalendarForAccount(account string, client *calendar.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.clients[account] = client
}

// SetMetrics sets the metrics used by clients created afterwards.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations.
func (sc *ServerContext) SetAuditLogger(a *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.audit = a
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and drops cached clients.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.clients = make(map[string]*calendar.Client)
	sc.cancel()
	return nil
}
