package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/calbot/internal/calendar"
	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
	"github.com/teemow/calbot/internal/slack"
	"github.com/teemow/calbot/internal/timezone"
	"github.com/teemow/calbot/internal/tools"
	"github.com/teemow/calbot/internal/weather"
)

// HistoryDepth is how many recent channel messages are searched for an
// already posted digest.
const HistoryDepth = 20

// RunTimeout bounds one scheduled run across all users.
const RunTimeout = 5 * time.Minute

// EventSource lists events of one calendar.
type EventSource interface {
	ListEvents(ctx context.Context, calendarID string, w calendar.Window) ([]calendar.Event, error)
}

// CalendarFactory returns an event source for a user's account and timezone.
type CalendarFactory func(ctx context.Context, p *config.UserProfile) (EventSource, error)

// WeatherSource reads current conditions.
type WeatherSource interface {
	Current(ctx context.Context, location string) (*weather.Conditions, error)
}

// Channel posts to and reads from chat channels.
type Channel interface {
	Post(ctx context.Context, channel, text string) (string, error)
	History(ctx context.Context, channel string, limit int) ([]slack.Message, error)
}

// Digest is a rendered summary for one user.
type Digest struct {
	UserID  string
	Channel string
	Header  string
	Text    string
}

// Scheduler builds and posts daily digests.
type Scheduler struct {
	cfg       *config.Config
	calendars CalendarFactory
	weather   WeatherSource
	channel   Channel
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron

	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records digest outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scheduler. weather may be nil.
func New(cfg *config.Config, calendars CalendarFactory, ws WeatherSource, ch Channel, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		calendars: calendars,
		weather:   ws,
		channel:   ch,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "digest")
	return s
}

// Start schedules Run on the configured cron expression, evaluated in the
// digest timezone. Overlapping runs are skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("digest scheduler already started")
	}

	loc, err := timezone.ParseTimezone(s.cfg.Digest.Timezone)
	if err != nil {
		return fmt.Errorf("digest timezone: %w", err)
	}

	adapter := logging.NewCronAdapter(s.logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	if _, err := c.AddFunc(s.cfg.Digest.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)
		defer cancel()
		if err := s.Run(ctx, false); err != nil {
			s.logger.Error("scheduled digest finished with errors", logging.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid digest cron %q: %w", s.cfg.Digest.Cron, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("digest scheduler started",
		slog.String("cron", s.cfg.Digest.Cron),
		slog.String("timezone", loc.String()),
	)
	return nil
}

// Stop stops the cron trigger and returns a context that is done when any
// running digest has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	ctx := s.cron.Stop()
	s.cron = nil
	return ctx
}

// Run posts the digest for every configured user with a digest channel.
// Users are processed one after another; a failing user is logged and does
// not stop the others. Unless force is set, users whose channel already has
// today's digest are skipped. The returned error joins all per-user errors.
func (s *Scheduler) Run(ctx context.Context, force bool) error {
	profiles, invalid := s.cfg.DigestProfiles()
	for _, err := range invalid {
		s.logger.Warn("skipping digest for invalid profile", logging.Err(err))
	}

	var errs []error
	for _, p := range profiles {
		if err := s.RunUser(ctx, p, force); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", logging.Anonymize(p.ID), err))
		}
	}
	return errors.Join(errs...)
}

// RunUser builds and posts one user's digest.
func (s *Scheduler) RunUser(ctx context.Context, p *config.UserProfile, force bool) (err error) {
	logger := logging.WithUser(s.logger, p.ID).With(logging.Channel(p.DigestChannel))
	status := instrumentation.StatusSuccess
	defer func() {
		if err != nil {
			status = instrumentation.StatusError
			logger.Error("daily digest failed", logging.Err(err))
		}
		s.metrics.RecordDigestRun(ctx, status)
	}()

	if p.DigestChannel == "" {
		return errors.New("no digest channel configured")
	}

	d, err := s.Build(ctx, p)
	if err != nil {
		return err
	}

	if !force {
		posted, err := s.alreadyPosted(ctx, p.DigestChannel, d.Header)
		if err != nil {
			logger.Warn("could not read channel history, posting anyway", logging.Err(err))
		} else if posted {
			status = instrumentation.StatusSkipped
			logger.Info("daily digest already posted")
			return nil
		}
	}

	if _, err := s.channel.Post(ctx, p.DigestChannel, d.Text); err != nil {
		return err
	}
	logger.Info("daily digest posted")
	return nil
}

func (s *Scheduler) alreadyPosted(ctx context.Context, channel, header string) (bool, error) {
	msgs, err := s.channel.History(ctx, channel, HistoryDepth)
	if err != nil {
		return false, err
	}
	for _, m := range msgs {
		if strings.Contains(m.Text, header) {
			return true, nil
		}
	}
	return false, nil
}

// Build renders a user's digest for the current local day. Events and
// weather are fetched concurrently; a weather failure only degrades the
// weather line.
func (s *Scheduler) Build(ctx context.Context, p *config.UserProfile) (*Digest, error) {
	loc, err := p.Location()
	if err != nil {
		return nil, err
	}

	now := s.now()
	day := timezone.DayBounds(now, loc)
	if day.Approximate {
		s.logger.Warn("day boundaries approximated", slog.String("timezone", loc.String()))
	}

	var (
		entries     []Entry
		weatherLine string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.events(gctx, p, day)
		return err
	})
	if p.WeatherLocation != "" {
		g.Go(func() error {
			weatherLine = s.weatherLine(gctx, p.WeatherLocation)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	localDay := day.Start.In(loc)
	return &Digest{
		UserID:  p.ID,
		Channel: p.DigestChannel,
		Header:  Header(localDay),
		Text:    Render(localDay, loc, weatherLine, entries),
	}, nil
}

func (s *Scheduler) events(ctx context.Context, p *config.UserProfile, day timezone.Day) ([]Entry, error) {
	src, err := s.calendars(ctx, p)
	if err != nil {
		return nil, err
	}

	router := tools.ProfileRouter(p)
	ids := router.Calendars()
	w := calendar.Window{Start: day.Start, End: day.End}

	var (
		entries []Entry
		failed  []error
	)
	for _, id := range ids {
		events, err := src.ListEvents(ctx, id, w)
		if err != nil {
			s.logger.Warn("skipping calendar in digest", logging.Calendar(id), logging.Err(err))
			failed = append(failed, err)
			continue
		}
		label := ""
		if len(ids) > 1 && id != router.Primary() {
			label = router.Label(id)
		}
		for _, e := range events {
			entries = append(entries, Entry{Event: e, Label: label})
		}
	}

	if len(failed) == len(ids) {
		return nil, errors.Join(failed...)
	}
	return entries, nil
}

func (s *Scheduler) weatherLine(ctx context.Context, location string) string {
	if s.weather == nil {
		return WeatherUnavailable
	}
	cond, err := s.weather.Current(ctx, location)
	if err != nil {
		s.logger.Warn("weather lookup failed", logging.Err(err))
		return WeatherUnavailable
	}
	return "Weather: " + cond.String()
}
