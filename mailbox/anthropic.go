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

const anthropicDefaultBaseURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// Anthropic is a Mailbox backed by the Anthropic Messages API, grounded on
// the teacher's llms/anthropic.go request/response shapes.
type Anthropic struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64

	client *httpclient.Client
}

// NewAnthropic returns an Anthropic mailbox with the teacher's defaults.
func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		APIKey:    apiKey,
		Model:     model,
		BaseURL:   anthropicDefaultBaseURL,
		MaxTokens: 4096,
		client: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseAnthropicHeaders),
		),
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicToolDef `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

type anthropicToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicUsage struct {
	InputTokens          int `json:"input_tokens"`
	OutputTokens         int `json:"output_tokens"`
	CacheReadInputTokens int `json:"cache_read_input_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (a *Anthropic) Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (Response, error) {
	req := a.buildRequest(messages, tools)
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic: read response: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	if resp.Error != nil {
		return Response{}, fmt.Errorf("anthropic: %s: %s", resp.Error.Type, resp.Error.Message)
	}

	var text string
	var calls []node.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			calls = append(calls, node.ToolCall{ID: block.ID, Name: block.Name, Input: block.Input})
		}
	}

	return Response{
		Text:         text,
		ToolRequests: calls,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			CachedTokens: resp.Usage.CacheReadInputTokens,
		},
	}, nil
}

func (a *Anthropic) buildRequest(messages []node.Message, tools []toolhandler.Definition) anthropicRequest {
	req := anthropicRequest{
		Model:       a.Model,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
	}

	var systemParts string
	for _, m := range messages {
		switch m.Role {
		case node.RoleSystem:
			if systemParts != "" {
				systemParts += "\n"
			}
			systemParts += m.Content
		case node.RoleUser:
			req.Messages = append(req.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		case node.RoleAssistant:
			var content []anthropicContent
			if m.Content != "" {
				content = append(content, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				content = append(content, anthropicContent{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Input})
			}
			req.Messages = append(req.Messages, anthropicMessage{Role: "assistant", Content: content})
		case node.RoleTool:
			content := make([]anthropicContent, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				content = append(content, anthropicContent{
					Type:      "tool_result",
					ToolUseID: tr.ID,
					Content:   tr.Content,
					IsError:   tr.Status == "error",
				})
			}
			req.Messages = append(req.Messages, anthropicMessage{Role: "user", Content: content})
		}
	}
	req.System = systemParts

	for _, t := range tools {
		req.Tools = append(req.Tools, anthropicToolDef{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return req
}
