package bot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calbot/internal/slack"
)

const testSecret = "e6b19c573432dcc6b075501d51b51bb8"

type recordingHandler struct {
	mu   sync.Mutex
	msgs []slack.InboundMessage
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg slack.InboundMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return nil
}

func (h *recordingHandler) received() []slack.InboundMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slack.InboundMessage(nil), h.msgs...)
}

func signed(t *testing.T, body, secret string) *http.Request {
	t.Helper()
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + stamp + ":" + body))

	r := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Slack-Request-Timestamp", stamp)
	r.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return r
}

func messageEvent(eventID, user, text string) string {
	return `{"type":"event_callback","event_id":"` + eventID + `","event":{"type":"message","channel":"D1","user":"` + user + `","text":"` + text + `","ts":"1.0"}}`
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantBody   string
		wantMsgs   int
	}{
		{
			name: "url verification",
			req: func(t *testing.T) *http.Request {
				return signed(t, `{"type":"url_verification","challenge":"3eZbrw1aB"}`, testSecret)
			},
			wantStatus: http.StatusOK,
			wantBody:   "3eZbrw1aB",
		},
		{
			name: "bad signature",
			req: func(t *testing.T) *http.Request {
				return signed(t, messageEvent("Ev1", "U_ALICE", "hi"), "not-the-secret")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "user message",
			req: func(t *testing.T) *http.Request {
				return signed(t, messageEvent("Ev1", "U_ALICE", "hi"), testSecret)
			},
			wantStatus: http.StatusOK,
			wantMsgs:   1,
		},
		{
			name: "bot message ignored",
			req: func(t *testing.T) *http.Request {
				return signed(t, `{"type":"event_callback","event_id":"Ev2","event":{"type":"message","channel":"D1","bot_id":"B1","text":"hi","ts":"1.0"}}`, testSecret)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "malformed body",
			req: func(t *testing.T) *http.Request {
				return signed(t, `{not json`, testSecret)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			wh := NewWebhook(testSecret, h, nil)
			t.Cleanup(wh.Close)

			rec := httptest.NewRecorder()
			wh.ServeHTTP(rec, tt.req(t))
			wh.Wait()

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			assert.Len(t, h.received(), tt.wantMsgs)
		})
	}
}

func TestWebhook_DeduplicatesRetries(t *testing.T) {
	h := &recordingHandler{}
	wh := NewWebhook(testSecret, h, nil)
	t.Cleanup(wh.Close)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		wh.ServeHTTP(rec, signed(t, messageEvent("EvSame", "U_ALICE", "hello"), testSecret))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, signed(t, messageEvent("EvOther", "U_ALICE", "again"), testSecret))
	wh.Wait()

	msgs := h.received()
	require.Len(t, msgs, 2)
	texts := []string{msgs[0].Text, msgs[1].Text}
	assert.ElementsMatch(t, []string{"hello", "again"}, texts)
}

func TestEventLog_Expires(t *testing.T) {
	l := newEventLog(50 * time.Millisecond)
	t.Cleanup(l.stop)

	assert.True(t, l.add("Ev1"))
	assert.False(t, l.add("Ev1"))
	assert.True(t, l.add(""))
	assert.True(t, l.add(""))

	// A repeat inside the window does not extend it.
	time.Sleep(30 * time.Millisecond)
	assert.False(t, l.add("Ev1"))

	assert.Eventually(t, func() bool { return l.add("Ev1") }, time.Second, 10*time.Millisecond)
}

func TestWebhook_CloseIsIdempotent(t *testing.T) {
	wh := NewWebhook(testSecret, &recordingHandler{}, nil)
	wh.Close()
	wh.Close()
}
