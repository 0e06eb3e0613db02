package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/branchtree/bots/internal/httpclient"
	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
)

const openaiDefaultBaseURL = "https://api.openai.com/v1/chat/completions"

// OpenAI is a Mailbox backed by the OpenAI chat-completions API, grounded
// on the teacher's llms/openai.go request/response shapes and the
// function-calling dialect OpenAI uses (a distinct tool-call envelope from
// Anthropic's, translated here rather than shared).
type OpenAI struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64

	client *httpclient.Client
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{
		APIKey:    apiKey,
		Model:     model,
		BaseURL:   openaiDefaultBaseURL,
		MaxTokens: 4096,
		client: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
	}
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Tools       []openaiToolDef `json:"tools,omitempty"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openaiFunctionCall `json:"function"`
}

type openaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiToolDef struct {
	Type     string             `json:"type"`
	Function openaiFunctionSpec `json:"function"`
}

type openaiFunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type openaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (o *OpenAI) Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (Response, error) {
	req := o.buildRequest(messages, tools)
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("openai: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("openai: read response: %w", err)
	}

	var resp openaiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if resp.Error != nil {
		return Response{}, fmt.Errorf("openai: %s: %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai: empty choices")
	}

	msg := resp.Choices[0].Message
	calls := make([]node.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		calls = append(calls, node.ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	return Response{
		Text:         msg.Content,
		ToolRequests: calls,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (o *OpenAI) buildRequest(messages []node.Message, tools []toolhandler.Definition) openaiRequest {
	req := openaiRequest{Model: o.Model, MaxTokens: o.MaxTokens, Temperature: o.Temperature}

	for _, m := range messages {
		switch m.Role {
		case node.RoleSystem:
			req.Messages = append(req.Messages, openaiMessage{Role: "system", Content: m.Content})
		case node.RoleUser:
			req.Messages = append(req.Messages, openaiMessage{Role: "user", Content: m.Content})
		case node.RoleAssistant:
			msg := openaiMessage{Role: "assistant", Content: m.Content}
			for _, tc := range m.ToolCalls {
				args, _ := json.Marshal(tc.Input)
				msg.ToolCalls = append(msg.ToolCalls, openaiToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openaiFunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			req.Messages = append(req.Messages, msg)
		case node.RoleTool:
			for _, tr := range m.ToolResults {
				req.Messages = append(req.Messages, openaiMessage{
					Role:       "tool",
					Content:    tr.Content,
					ToolCallID: tr.ID,
				})
			}
		}
	}

	for _, t := range tools {
		req.Tools = append(req.Tools, openaiToolDef{
			Type: "function",
			Function: openaiFunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return req
}
