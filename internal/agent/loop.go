package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/calbot/internal/conversation"
	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
	"github.com/teemow/calbot/internal/tools"
)

// Defaults for the turn loop.
const (
	DefaultMaxRounds = 10
	DefaultMaxTokens = 1024
)

// FallbackReply is returned when the model finishes without any text.
const FallbackReply = "I couldn't finish that request. Could you try splitting it into smaller steps?"

// ErrMaxRounds is returned when the model keeps requesting tools after the
// round limit.
var ErrMaxRounds = errors.New("agent exceeded the maximum number of model rounds")

// Loop drives one exchange between the user, the model and the tools.
type Loop struct {
	model     Model
	maxRounds int
	maxTokens int
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxRounds caps the number of model calls per exchange.
func WithMaxRounds(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxRounds = n
		}
	}
}

// WithMaxTokens sets the per-response token budget.
func WithMaxTokens(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxTokens = n
		}
	}
}

// WithMetrics records model and exchange metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a loop around model.
func NewLoop(model Model, opts ...Option) *Loop {
	l := &Loop{
		model:     model,
		maxRounds: DefaultMaxRounds,
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.WithComponent(l.logger, "agent")
	return l
}

// Exchange is the input of one Run.
type Exchange struct {
	System      string
	History     []conversation.Turn
	UserMessage string
	Executor    Executor
}

// Outcome is the result of a successful Run.
type Outcome struct {
	Reply string
	// Rounds is the number of model calls made.
	Rounds int
}

// Run submits the exchange to the model and executes requested tools until
// the model stops asking for them. All calls of one round run concurrently
// and their results are returned in request order.
func (l *Loop) Run(ctx context.Context, ex Exchange) (out Outcome, err error) {
	if ex.Executor == nil {
		return Outcome{}, errors.New("tool executor is required")
	}
	defer func() {
		l.metrics.RecordExchange(ctx, instrumentation.StatusFor(err), out.Rounds)
	}()

	req := Request{
		System:    ex.System,
		Tools:     ex.Executor.Specs(),
		Messages:  BuildMessages(ex.History, ex.UserMessage),
		MaxTokens: l.maxTokens,
	}

	for round := 1; ; round++ {
		out.Rounds = round

		resp, err := l.complete(ctx, req, round)
		if err != nil {
			return out, fmt.Errorf("model round %d: %w", round, err)
		}

		calls := resp.Calls()
		if resp.Stop != StopToolUse || len(calls) == 0 {
			out.Reply = resp.Text()
			if out.Reply == "" {
				out.Reply = FallbackReply
			}
			return out, nil
		}

		if round >= l.maxRounds {
			return out, ErrMaxRounds
		}

		results := l.dispatch(ctx, ex.Executor, calls)

		resultBlocks := make([]Block, len(results))
		for i := range results {
			resultBlocks[i] = Block{Type: BlockToolResult, Result: &results[i]}
		}
		req.Messages = append(req.Messages,
			Message{Role: RoleAssistant, Blocks: resp.Blocks},
			Message{Role: RoleUser, Blocks: resultBlocks},
		)
	}
}

func (l *Loop) complete(ctx context.Context, req Request, round int) (*Response, error) {
	ctx, span := instrumentation.StartModelSpan(ctx, l.model.Name(), round)
	defer span.End()

	start := time.Now()
	resp, err := l.model.Complete(ctx, req)
	l.metrics.RecordModelRequest(ctx, l.model.Name(), instrumentation.StatusFor(err), time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)

	l.logger.Debug("model responded",
		slog.Int("round", round),
		slog.String("stop_reason", string(resp.Stop)),
		slog.Int("tool_calls", len(resp.Calls())),
	)
	return resp, nil
}

func (l *Loop) dispatch(ctx context.Context, ex Executor, calls []tools.Call) []tools.Result {
	results := make([]tools.Result, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = ex.Execute(ctx, call)
			// The correlation id always round-trips, whatever the executor did.
			results[i].CallID = call.ID
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// BuildMessages converts stored turns plus the new user message into model
// messages. Leading assistant turns are dropped and consecutive turns of the
// same role are merged so roles alternate starting with the user.
func BuildMessages(history []conversation.Turn, userMessage string) []Message {
	var msgs []Message
	add := func(role Role, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		if len(msgs) == 0 && role != RoleUser {
			return
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			last := &msgs[n-1].Blocks[0]
			last.Text += "\n\n" + text
			return
		}
		msgs = append(msgs, Message{Role: role, Blocks: []Block{TextBlock(text)}})
	}

	for _, t := range history {
		role := RoleUser
		if t.Role == conversation.RoleAssistant {
			role = RoleAssistant
		}
		add(role, t.Content)
	}
	add(RoleUser, userMessage)
	return msgs
}
