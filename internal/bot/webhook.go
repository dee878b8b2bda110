package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/teemow/calbot/internal/logging"
	"github.com/teemow/calbot/internal/slack"
)

// DedupTTL is how long delivered event ids are remembered. Slack retries
// a delivery for a few minutes when it is not acknowledged in time.
const DedupTTL = 10 * time.Minute

// DedupCapacity bounds the number of remembered event ids.
const DedupCapacity = 10000

// MessageHandler handles one inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg slack.InboundMessage) error
}

// Webhook receives Slack Events API requests. Messages are acknowledged
// immediately and handled in the background.
type Webhook struct {
	secret  string
	handler MessageHandler
	seen    *eventLog
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewWebhook creates a Webhook verifying requests with signingSecret.
func NewWebhook(signingSecret string, handler MessageHandler, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		secret:  signingSecret,
		handler: handler,
		seen:    newEventLog(DedupTTL),
		logger:  logging.WithComponent(logger, "webhook"),
	}
}

func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := slack.VerifyRequest(r, wh.secret)
	if err != nil {
		if errors.Is(err, slack.ErrInvalidSignature) {
			wh.logger.Warn("rejected slack request", logging.Err(err))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	env, err := slack.ParseEnvelope(body)
	if err != nil {
		wh.logger.Warn("malformed slack event", logging.Err(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch env.Kind {
	case slack.KindURLVerification:
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(env.Challenge))
		return
	case slack.KindMessage:
		if !wh.seen.add(env.EventID) {
			wh.logger.Debug("ignoring redelivered event", slog.String("event_id", env.EventID))
			break
		}
		msg := *env.Message
		wh.wg.Add(1)
		go func() {
			defer wh.wg.Done()
			_ = wh.handler.HandleMessage(context.WithoutCancel(r.Context()), msg)
		}()
	}

	w.WriteHeader(http.StatusOK)
}

// Wait blocks until all messages accepted so far have been handled.
func (wh *Webhook) Wait() {
	wh.wg.Wait()
}

// Close waits for in-flight messages and stops expiring event ids.
func (wh *Webhook) Close() {
	wh.Wait()
	wh.seen.stop()
}

// eventLog remembers event ids for a while.
type eventLog struct {
	cache    *ttlcache.Cache[string, struct{}]
	stopOnce sync.Once
}

func newEventLog(ttl time.Duration) *eventLog {
	cache := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
		ttlcache.WithCapacity[string, struct{}](DedupCapacity),
	)
	go cache.Start()
	return &eventLog{cache: cache}
}

// add records id and reports whether it was new. Empty ids are always new.
func (l *eventLog) add(id string) bool {
	if id == "" {
		return true
	}
	_, found := l.cache.GetOrSet(id, struct{}{})
	return !found
}

func (l *eventLog) stop() {
	l.stopOnce.Do(l.cache.Stop)
}
