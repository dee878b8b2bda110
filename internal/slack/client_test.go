package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	mu    sync.Mutex
	calls []string
	forms map[string]map[string]string
	fail  map[string]string
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[1:]

	f.mu.Lock()
	f.calls = append(f.calls, method)
	form := make(map[string]string)
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	for k := range r.URL.Query() {
		form[k] = r.URL.Query().Get(k)
	}
	f.forms[method] = form
	code, failing := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": code})
		return
	}

	switch method {
	case "chat.postMessage":
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": form["channel"], "ts": "1700000000.000100"})
	case "chat.delete":
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": form["channel"], "ts": form["ts"]})
	case "conversations.history":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"messages": []map[string]any{
				{"type": "message", "user": "U1", "text": "hello", "ts": "2.0"},
				{"type": "message", "bot_id": "B1", "text": "📅 *Daily Summary*", "ts": "1.0"},
			},
		})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSlack) {
	t.Helper()
	f := &fakeSlack{forms: make(map[string]map[string]string), fail: make(map[string]string)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New("xoxb-test", WithAPIURL(srv.URL+"/")), f
}

func TestPost(t *testing.T) {
	c, f := newTestClient(t)

	ts, err := c.Post(context.Background(), "D123", "_thinking..._")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", ts)
	assert.Equal(t, "D123", f.forms["chat.postMessage"]["channel"])
	assert.Equal(t, "_thinking..._", f.forms["chat.postMessage"]["text"])
}

func TestPost_Error(t *testing.T) {
	c, f := newTestClient(t)
	f.fail["chat.postMessage"] = "channel_not_found"

	_, err := c.Post(context.Background(), "C404", "hi")
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "channel_not_found", serr.Code)
	assert.Equal(t, "C404", serr.Channel)
	assert.Equal(t, "post", serr.Op)
}

func TestDelete(t *testing.T) {
	c, f := newTestClient(t)

	require.NoError(t, c.Delete(context.Background(), "D123", "1.0"))
	assert.Equal(t, "1.0", f.forms["chat.delete"]["ts"])

	f.fail["chat.delete"] = "message_not_found"
	err := c.Delete(context.Background(), "D123", "1.0")
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "message_not_found", serr.Code)
}

func TestHistory(t *testing.T) {
	c, f := newTestClient(t)

	msgs, err := c.History(context.Background(), "C1", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "U1", msgs[0].User)
	assert.Equal(t, "B1", msgs[1].BotID)
	assert.Equal(t, "20", f.forms["conversations.history"]["limit"])
}
