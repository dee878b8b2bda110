package agent

import (
	"context"

	"github.com/teemow/calbot/internal/tools"
)

// Role is the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates a Block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Block is one content block of a message. Exactly one of Text, Call and
// Result is meaningful, according to Type.
type Block struct {
	Type   BlockType
	Text   string
	Call   *tools.Call
	Result *tools.Result
}

// TextBlock returns a text block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// Message is a provider-neutral chat message.
type Message struct {
	Role   Role
	Blocks []Block
}

// StopReason tells why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// Request is one model round.
type Request struct {
	System    string
	Tools     []tools.Spec
	Messages  []Message
	MaxTokens int
}

// Response is the model's answer to a Request.
type Response struct {
	Blocks []Block
	Stop   StopReason
}

// Text returns the first non-empty text block, or "".
func (r *Response) Text() string {
	for _, b := range r.Blocks {
		if b.Type == BlockText && b.Text != "" {
			return b.Text
		}
	}
	return ""
}

// Calls returns the tool calls requested in the response.
func (r *Response) Calls() []tools.Call {
	var calls []tools.Call
	for _, b := range r.Blocks {
		if b.Type == BlockToolUse && b.Call != nil {
			calls = append(calls, *b.Call)
		}
	}
	return calls
}

// Model is a language model provider.
type Model interface {
	// Name returns the provider name, used in metrics.
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Executor runs tool calls. Execute must not fail; errors belong in the
// Result payload.
type Executor interface {
	Specs() []tools.Spec
	Execute(ctx context.Context, call tools.Call) tools.Result
}
