package slack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// MaxBodyBytes caps the size of an Events API request body.
const MaxBodyBytes = 1 << 20

// ErrInvalidSignature is returned when a request fails signature or
// timestamp verification.
var ErrInvalidSignature = errors.New("invalid slack request signature")

// Kind classifies an Events API payload.
type Kind int

const (
	// KindIgnored covers every payload the bot does not act on.
	KindIgnored Kind = iota
	KindURLVerification
	KindMessage
)

// Envelope is a parsed Events API payload.
type Envelope struct {
	Kind      Kind
	Challenge string
	EventID   string
	Message   *InboundMessage
}

// InboundMessage is a plain user message addressed to the bot.
type InboundMessage struct {
	User    string
	Channel string
	Text    string
	TS      string
}

// VerifyRequest reads the request body and checks its v0 signature and
// timestamp against the signing secret. The body is returned on success.
func VerifyRequest(r *http.Request, signingSecret string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	sv, err := slackgo.NewSecretsVerifier(r.Header, signingSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if _, err := io.Copy(&sv, bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return body, nil
}

// ParseEnvelope decodes a verified Events API body. Bot messages and
// messages with any subtype (edits, joins, deletions) are KindIgnored.
func ParseEnvelope(body []byte) (*Envelope, error) {
	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return nil, fmt.Errorf("failed to parse slack event: %w", err)
	}

	switch ev.Type {
	case slackevents.URLVerification:
		v, ok := ev.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			return nil, fmt.Errorf("unexpected url verification payload %T", ev.Data)
		}
		return &Envelope{Kind: KindURLVerification, Challenge: v.Challenge}, nil

	case slackevents.CallbackEvent:
		env := &Envelope{Kind: KindIgnored}
		if cb, ok := ev.Data.(*slackevents.EventsAPICallbackEvent); ok {
			env.EventID = cb.EventID
		}

		msg, ok := ev.InnerEvent.Data.(*slackevents.MessageEvent)
		if !ok || msg.BotID != "" || msg.SubType != "" || msg.User == "" {
			return env, nil
		}

		env.Kind = KindMessage
		env.Message = &InboundMessage{
			User:    msg.User,
			Channel: msg.Channel,
			Text:    msg.Text,
			TS:      msg.TimeStamp,
		}
		return env, nil
	}

	return &Envelope{Kind: KindIgnored}, nil
}
