package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/calbot/internal/agent"
	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/conversation"
	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
	"github.com/teemow/calbot/internal/slack"
	"github.com/teemow/calbot/internal/tools"
)

// Fixed replies.
const (
	ThinkingText   = "_thinking..._"
	ProfileApology = "Sorry, I couldn't find your calendar settings. Please ask an admin to configure your profile."
	FatalApology   = "Sorry, I encountered an error processing your request. Please try again."
)

// DefaultTimeout bounds the agent exchange for one message.
const DefaultTimeout = 3 * time.Minute

// SlackTimeout bounds each chat call. Chat calls run on their own deadline
// so the apology still goes out after the exchange deadline has passed.
const SlackTimeout = 10 * time.Second

// Messenger posts and deletes chat messages.
type Messenger interface {
	Post(ctx context.Context, channel, text string) (string, error)
	Delete(ctx context.Context, channel, ts string) error
}

// CalendarFactory returns the calendar gateway for a user's account,
// reporting times in the user's zone.
type CalendarFactory func(ctx context.Context, p *config.UserProfile) (tools.CalendarGateway, error)

// Bot answers chat messages through the agent loop.
type Bot struct {
	cfg       *config.Config
	calendars CalendarFactory
	messenger Messenger
	loop      *agent.Loop
	store     *conversation.Store
	locks     *conversation.Locker

	persona string
	timeout time.Duration
	now     func() time.Time

	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithPersona sets the assistant name used in the system prompt.
func WithPersona(name string) Option {
	return func(b *Bot) {
		if name != "" {
			b.persona = name
		}
	}
}

// WithTimeout bounds the agent exchange for one message. Chat calls are
// bounded separately by SlackTimeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithClock overrides the time source used for the system prompt.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		if now != nil {
			b.now = now
		}
	}
}

// WithMetrics passes metrics to the tool dispatcher.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

// WithAudit enables audit logging of tool invocations.
func WithAudit(a *instrumentation.AuditLogger) Option {
	return func(b *Bot) { b.audit = a }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Bot.
func New(cfg *config.Config, calendars CalendarFactory, messenger Messenger, loop *agent.Loop, store *conversation.Store, opts ...Option) *Bot {
	b := &Bot{
		cfg:       cfg,
		calendars: calendars,
		messenger: messenger,
		loop:      loop,
		store:     store,
		locks:     conversation.NewLocker(),
		persona:   agent.DefaultPersona,
		timeout:   DefaultTimeout,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.WithComponent(b.logger, "bot")
	return b
}

// Allowed reports whether messages from the user are handled at all.
func (b *Bot) Allowed(userID string) bool {
	return b.cfg.Allowed(userID)
}

// HandleMessage answers one inbound message. Messages from users that are
// not allowed are dropped. Messages of one user are handled one at a time.
// The returned error has already been reported to the user.
func (b *Bot) HandleMessage(ctx context.Context, msg slack.InboundMessage) error {
	logger := logging.WithUser(b.logger, msg.User).With(logging.Channel(msg.Channel))

	if !b.Allowed(msg.User) {
		logger.Debug("dropping message from user not on the allow-list")
		return nil
	}

	base := context.WithoutCancel(ctx)

	profile, err := b.cfg.Profile(msg.User)
	if err != nil {
		logger.Warn("no usable profile", logging.Err(err))
		b.reply(base, logger, msg.Channel, ProfileApology)
		return err
	}

	unlock := b.locks.Lock(msg.User)
	defer unlock()

	thinking, err := b.post(base, msg.Channel, ThinkingText)
	if err != nil {
		logger.Warn("failed to post thinking indicator", logging.Err(err))
	}

	exchangeCtx, cancel := context.WithTimeout(base, b.timeout)
	reply, err := b.answer(exchangeCtx, logger, profile, msg)
	cancel()
	if err != nil {
		logger.Error("failed to answer message", logging.Err(err))
		reply = FatalApology
	}

	// Remove the indicator before the reply shows up.
	if thinking != "" {
		if derr := b.delete(base, msg.Channel, thinking); derr != nil {
			logger.Warn("failed to delete thinking indicator", logging.Err(derr))
		}
	}

	b.reply(base, logger, msg.Channel, reply)
	return err
}

func (b *Bot) answer(ctx context.Context, logger *slog.Logger, p *config.UserProfile, msg slack.InboundMessage) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while answering: %v", r)
		}
	}()

	history := b.store.Get(msg.User)
	b.store.Append(msg.User, conversation.Turn{Role: conversation.RoleUser, Content: msg.Text})

	loc, err := p.Location()
	if err != nil {
		return "", err
	}

	cal, err := b.calendars(ctx, p)
	if err != nil {
		return "", fmt.Errorf("calendar for account %s: %w", p.Account, err)
	}

	router := tools.ProfileRouter(p)
	turnID := uuid.NewString()
	logger = logger.With(logging.TurnID(turnID))

	dispatcher, err := tools.NewDispatcher(tools.Options{
		Calendar:    cal,
		Router:      router,
		Location:    loc,
		UserMessage: msg.Text,
		UserID:      msg.User,
		TurnID:      turnID,
		Metrics:     b.metrics,
		Audit:       b.audit,
		Logger:      logger,
	})
	if err != nil {
		return "", err
	}

	system := agent.SystemPrompt(agent.PromptData{
		Persona:   b.persona,
		UserName:  p.DisplayName(),
		Now:       b.now(),
		Location:  loc,
		Calendars: router.Labels(),
	})

	out, err := b.loop.Run(ctx, agent.Exchange{
		System:      system,
		History:     history,
		UserMessage: msg.Text,
		Executor:    dispatcher,
	})
	if err != nil {
		return "", err
	}

	b.store.Append(msg.User, conversation.Turn{Role: conversation.RoleAssistant, Content: out.Reply})
	logger.Info("answered message", slog.Int("rounds", out.Rounds))
	return out.Reply, nil
}

func (b *Bot) reply(ctx context.Context, logger *slog.Logger, channel, text string) {
	if _, err := b.post(ctx, channel, text); err != nil {
		logger.Error("failed to post reply", logging.Err(err))
	}
}

func (b *Bot) post(ctx context.Context, channel, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, SlackTimeout)
	defer cancel()
	return b.messenger.Post(ctx, channel, text)
}

func (b *Bot) delete(ctx context.Context, channel, ts string) error {
	ctx, cancel := context.WithTimeout(ctx, SlackTimeout)
	defer cancel()
	return b.messenger.Delete(ctx, channel, ts)
}
