package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calbot/internal/conversation"
	"github.com/teemow/calbot/internal/tools"
)

// scriptedModel replays canned responses and records every request.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*Response
	err       error
	requests  []Request
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Complete(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := make([]Message, len(req.Messages))
	copy(msgs, req.Messages)
	req.Messages = msgs
	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// recordingExecutor answers every call with its name and tracks concurrency.
type recordingExecutor struct {
	delay     time.Duration
	active    int32
	maxActive int32
	calls     int32
}

func (e *recordingExecutor) Specs() []tools.Spec {
	return []tools.Spec{{Name: "list_events", Description: "list", InputSchema: map[string]any{"type": "object"}}}
}

func (e *recordingExecutor) Execute(_ context.Context, call tools.Call) tools.Result {
	n := atomic.AddInt32(&e.active, 1)
	for {
		m := atomic.LoadInt32(&e.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&e.maxActive, m, n) {
			break
		}
	}
	atomic.AddInt32(&e.calls, 1)
	time.Sleep(e.delay)
	atomic.AddInt32(&e.active, -1)

	b, _ := json.Marshal(map[string]string{"tool": call.Name, "id": call.ID})
	return tools.Result{CallID: "ignored", Payload: string(b)}
}

func toolUse(ids ...string) *Response {
	resp := &Response{Stop: StopToolUse}
	for _, id := range ids {
		resp.Blocks = append(resp.Blocks, Block{
			Type: BlockToolUse,
			Call: &tools.Call{ID: id, Name: "list_events", Input: json.RawMessage(`{}`)},
		})
	}
	return resp
}

func final(text string) *Response {
	resp := &Response{Stop: StopEndTurn}
	if text != "" {
		resp.Blocks = []Block{TextBlock(text)}
	}
	return resp
}

func TestRun_DirectAnswer(t *testing.T) {
	model := &scriptedModel{responses: []*Response{final("Hi there")}}
	loop := NewLoop(model)

	out, err := loop.Run(context.Background(), Exchange{
		System:      "sys",
		UserMessage: "hello",
		Executor:    &recordingExecutor{},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out.Reply)
	assert.Equal(t, 1, out.Rounds)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Equal(t, "sys", req.System)
	assert.Len(t, req.Tools, 1)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hello", req.Messages[0].Blocks[0].Text)
}

func TestRun_ToolRoundsAreConcurrentAndOrdered(t *testing.T) {
	model := &scriptedModel{responses: []*Response{
		toolUse("a", "b", "c"),
		final("Done"),
	}}
	exec := &recordingExecutor{delay: 20 * time.Millisecond}

	out, err := NewLoop(model).Run(context.Background(), Exchange{UserMessage: "what's up", Executor: exec})
	require.NoError(t, err)
	assert.Equal(t, "Done", out.Reply)
	assert.Equal(t, 2, out.Rounds)
	assert.Equal(t, int32(3), exec.calls)
	assert.Greater(t, exec.maxActive, int32(1), "calls of one round run concurrently")

	require.Len(t, model.requests, 2)
	msgs := model.requests[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].Blocks, 3)

	results := msgs[2].Blocks
	assert.Equal(t, RoleUser, msgs[2].Role)
	require.Len(t, results, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, BlockToolResult, results[i].Type)
		assert.Equal(t, id, results[i].Result.CallID, "correlation ids round-trip in order")
		assert.Contains(t, results[i].Result.Payload, `"id":"`+id+`"`)
	}
}

func TestRun_FallbackWhenNoText(t *testing.T) {
	model := &scriptedModel{responses: []*Response{toolUse("a"), final("")}}

	out, err := NewLoop(model).Run(context.Background(), Exchange{UserMessage: "x", Executor: &recordingExecutor{}})
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, out.Reply)
}

func TestRun_ToolUseWithoutCallsIsTerminal(t *testing.T) {
	model := &scriptedModel{responses: []*Response{{Stop: StopToolUse, Blocks: []Block{TextBlock("ok")}}}}

	out, err := NewLoop(model).Run(context.Background(), Exchange{UserMessage: "x", Executor: &recordingExecutor{}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Reply)
}

func TestRun_MaxRounds(t *testing.T) {
	var script []*Response
	for i := 0; i < 5; i++ {
		script = append(script, toolUse("a"))
	}
	model := &scriptedModel{responses: script}
	exec := &recordingExecutor{}

	out, err := NewLoop(model, WithMaxRounds(3)).Run(context.Background(), Exchange{UserMessage: "x", Executor: exec})
	assert.ErrorIs(t, err, ErrMaxRounds)
	assert.Equal(t, 3, out.Rounds)
	assert.Len(t, model.requests, 3)
	assert.Equal(t, int32(2), exec.calls)
}

func TestRun_ModelError(t *testing.T) {
	boom := errors.New("overloaded")
	model := &scriptedModel{err: boom}

	_, err := NewLoop(model).Run(context.Background(), Exchange{UserMessage: "x", Executor: &recordingExecutor{}})
	assert.ErrorIs(t, err, boom)
}

func TestRun_RequiresExecutor(t *testing.T) {
	_, err := NewLoop(&scriptedModel{}).Run(context.Background(), Exchange{UserMessage: "x"})
	assert.Error(t, err)
}

func TestBuildMessages(t *testing.T) {
	history := []conversation.Turn{
		{Role: conversation.RoleAssistant, Content: "orphan reply"},
		{Role: conversation.RoleUser, Content: "first"},
		{Role: conversation.RoleUser, Content: "second"},
		{Role: conversation.RoleAssistant, Content: "answer"},
		{Role: conversation.RoleAssistant, Content: ""},
	}

	msgs := BuildMessages(history, "third")
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "first\n\nsecond", msgs[0].Blocks[0].Text)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "answer", msgs[1].Blocks[0].Text)
	assert.Equal(t, "third", msgs[2].Blocks[0].Text)

	assert.Len(t, BuildMessages(nil, "only"), 1)
}
