package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/teemow/calbot/internal/tools"
)

// AnthropicModel talks to the Anthropic Messages API.
type AnthropicModel struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicModel creates an Anthropic model. The SDK's own retries are
// disabled; a failed round fails the exchange.
func NewAnthropicModel(apiKey, model, baseURL string, timeout time.Duration) (*AnthropicModel, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &AnthropicModel{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (m *AnthropicModel) Name() string {
	return ProviderAnthropic
}

// Complete sends one Messages API request.
func (m *AnthropicModel) Complete(ctx context.Context, req Request) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.F(m.model),
		MaxTokens: anthropic.F(int64(req.MaxTokens)),
		Messages:  anthropic.F(toAnthropicMessages(req.Messages)),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{anthropic.NewTextBlock(req.System)})
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropic.F(toAnthropicTools(req.Tools))
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	resp := &Response{Stop: StopEndTurn}
	switch msg.StopReason {
	case anthropic.MessageStopReasonToolUse:
		resp.Stop = StopToolUse
	case anthropic.MessageStopReasonMaxTokens:
		resp.Stop = StopMaxTokens
	}

	for _, block := range msg.Content {
		switch block.Type {
		case anthropic.ContentBlockTypeText:
			resp.Blocks = append(resp.Blocks, TextBlock(block.Text))
		case anthropic.ContentBlockTypeToolUse:
			input := json.RawMessage(block.Input)
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			resp.Blocks = append(resp.Blocks, Block{
				Type: BlockToolUse,
				Call: &tools.Call{ID: block.ID, Name: block.Name, Input: input},
			})
		}
	}
	return resp, nil
}

func toAnthropicTools(specs []tools.Spec) []anthropic.ToolParam {
	out := make([]anthropic.ToolParam, 0, len(specs))
	for _, s := range specs {
		out = append(out, anthropic.ToolParam{
			Name:        anthropic.F(s.Name),
			Description: anthropic.F(s.Description),
			InputSchema: anthropic.F[interface{}](s.InputSchema),
		})
	}
	return out
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range msg.Blocks {
			switch b.Type {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				var input interface{} = json.RawMessage(b.Call.Input)
				blocks = append(blocks, anthropic.NewToolUseBlockParam(b.Call.ID, b.Call.Name, input))
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.Result.CallID, b.Result.Payload, b.Result.IsError))
			}
		}
		role := anthropic.MessageParamRoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		out = append(out, anthropic.MessageParam{
			Role:    anthropic.F(role),
			Content: anthropic.F(blocks),
		})
	}
	return out
}
