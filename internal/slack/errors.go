package slack

import (
	"errors"
	"fmt"
	"strconv"

	slackgo "github.com/slack-go/slack"
)

// Error is a failed Slack Web API call. Code carries the platform error code
// (for example "channel_not_found" or "ratelimited") when Slack returned one.
type Error struct {
	Op      string
	Channel string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("slack %s (channel: %s): %s", e.Op, e.Channel, e.Code)
	}
	return fmt.Sprintf("slack %s (channel: %s): %v", e.Op, e.Channel, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op, channel string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Channel: channel, Code: errorCode(err), Err: err}
}

func errorCode(err error) string {
	var apiErr slackgo.SlackErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.Err
	}
	var rateErr *slackgo.RateLimitedError
	if errors.As(err, &rateErr) {
		return "ratelimited"
	}
	var statusErr slackgo.StatusCodeError
	if errors.As(err, &statusErr) {
		return "http_" + strconv.Itoa(statusErr.Code)
	}
	return ""
}
