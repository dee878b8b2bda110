package slack

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	slackgo "github.com/slack-go/slack"

	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
)

// DefaultTimeout bounds every Slack Web API call.
const DefaultTimeout = 15 * time.Second

// Message is a message read back from a channel.
type Message struct {
	TS    string
	User  string
	Text  string
	BotID string
}

// Client posts to and reads from Slack channels with a bot token.
type Client struct {
	api     *slackgo.Client
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	apiURL     string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// WithAPIURL points the client at a different Web API base URL. The URL must
// end with a slash.
func WithAPIURL(u string) Option {
	return func(o *options) { o.apiURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMetrics records Slack call metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a client authenticated with a bot token.
func New(token string, opts ...Option) *Client {
	o := options{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	apiOpts := []slackgo.Option{slackgo.OptionHTTPClient(o.httpClient)}
	if o.apiURL != "" {
		apiOpts = append(apiOpts, slackgo.OptionAPIURL(o.apiURL))
	}

	return &Client{
		api:     slackgo.New(token, apiOpts...),
		metrics: o.metrics,
		logger:  logging.WithComponent(o.logger, "slack"),
	}
}

// Post sends text to a channel and returns the message timestamp, which is
// the handle used by Delete.
func (c *Client) Post(ctx context.Context, channel, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channel, slackgo.MsgOptionText(text, false))
	c.record(ctx, instrumentation.OperationPost, err)
	if err != nil {
		return "", wrap(instrumentation.OperationPost, channel, err)
	}
	return ts, nil
}

// Delete removes a message previously posted by the bot.
func (c *Client) Delete(ctx context.Context, channel, ts string) error {
	_, _, err := c.api.DeleteMessageContext(ctx, channel, ts)
	c.record(ctx, instrumentation.OperationDelete, err)
	return wrap(instrumentation.OperationDelete, channel, err)
}

// History returns up to limit recent messages of a channel, newest first.
func (c *Client) History(ctx context.Context, channel string, limit int) ([]Message, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slackgo.GetConversationHistoryParameters{
		ChannelID: channel,
		Limit:     limit,
	})
	c.record(ctx, instrumentation.OperationHistory, err)
	if err != nil {
		return nil, wrap(instrumentation.OperationHistory, channel, err)
	}

	msgs := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, Message{
			TS:    m.Timestamp,
			User:  m.User,
			Text:  m.Text,
			BotID: m.BotID,
		})
	}
	return msgs, nil
}

func (c *Client) record(ctx context.Context, op string, err error) {
	c.metrics.RecordSlackCall(ctx, op, instrumentation.StatusFor(err))
	if err != nil {
		c.logger.Debug("slack call failed", logging.Operation(op), logging.Err(err))
	}
}
