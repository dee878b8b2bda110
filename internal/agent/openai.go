package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/teemow/calbot/internal/tools"
)

// OpenAIModel talks to an OpenAI-compatible chat completions API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates an OpenAI model.
func NewOpenAIModel(apiKey, model, baseURL string, timeout time.Duration) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &OpenAIModel{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (m *OpenAIModel) Name() string {
	return ProviderOpenAI
}

// Complete sends one chat completion request.
func (m *OpenAIModel) Complete(ctx context.Context, req Request) (*Response, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, toOpenAIMessages(req.Messages)...)

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     m.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Tools:     toOpenAITools(req.Tools),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices returned")
	}

	choice := resp.Choices[0]
	out := &Response{Stop: StopEndTurn}
	switch choice.FinishReason {
	case openai.FinishReasonToolCalls:
		out.Stop = StopToolUse
	case openai.FinishReasonLength:
		out.Stop = StopMaxTokens
	}

	if choice.Message.Content != "" {
		out.Blocks = append(out.Blocks, TextBlock(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		out.Blocks = append(out.Blocks, Block{
			Type: BlockToolUse,
			Call: &tools.Call{ID: tc.ID, Name: tc.Function.Name, Input: args},
		})
	}
	// Some compatible servers report "stop" alongside tool calls.
	if out.Stop == StopEndTurn && len(choice.Message.ToolCalls) > 0 {
		out.Stop = StopToolUse
	}
	return out, nil
}

func toOpenAITools(specs []tools.Spec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.InputSchema,
			},
		})
	}
	return out
}

// toOpenAIMessages flattens neutral messages. Tool results become one "tool"
// message each; tool requests ride on the assistant message.
func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	for _, msg := range msgs {
		if msg.Role == RoleAssistant {
			am := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
			for _, b := range msg.Blocks {
				switch b.Type {
				case BlockText:
					am.Content += b.Text
				case BlockToolUse:
					am.ToolCalls = append(am.ToolCalls, openai.ToolCall{
						ID:   b.Call.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      b.Call.Name,
							Arguments: string(b.Call.Input),
						},
					})
				}
			}
			out = append(out, am)
			continue
		}

		var text string
		for _, b := range msg.Blocks {
			switch b.Type {
			case BlockText:
				text += b.Text
			case BlockToolResult:
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    b.Result.Payload,
					ToolCallID: b.Result.CallID,
				})
			}
		}
		if text != "" {
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})
		}
	}
	return out
}
