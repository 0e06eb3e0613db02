package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/branchtree/bots/internal/httpclient"
	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
	"github.com/branchtree/bots/utils"
)

// Ollama is a Mailbox backed by a local Ollama server. Local models carry
// no billing, so Usage always reports CachedTokens: 0 and a zero cost
// downstream in metrics.
type Ollama struct {
	Model   string
	BaseURL string

	client  *httpclient.Client
	counter *utils.TokenCounter
}

func NewOllama(host, model string) *Ollama {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &Ollama{
		Model:   model,
		BaseURL: host + "/api/chat",
		client:  httpclient.New(httpclient.WithHeaderParser(httpclient.ParseOllamaHeaders)),
		counter: utils.NewTokenCounter(model),
	}
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaToolDef `json:"tools,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaToolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
}

func (o *Ollama) Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (Response, error) {
	req := ollamaRequest{Model: o.Model, Stream: false}
	for _, m := range messages {
		switch m.Role {
		case node.RoleTool:
			for _, tr := range m.ToolResults {
				req.Messages = append(req.Messages, ollamaMessage{Role: "tool", Content: tr.Content})
			}
		default:
			req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
		}
	}
	for _, t := range tools {
		var def ollamaToolDef
		def.Type = "function"
		def.Function.Name = t.Name
		def.Function.Description = t.Description
		def.Function.Parameters = t.InputSchema
		req.Tools = append(req.Tools, def)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("ollama: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("ollama: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("ollama: read response: %w", err)
	}
	var resp ollamaResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	calls := make([]node.ToolCall, 0, len(resp.Message.ToolCalls))
	for i, tc := range resp.Message.ToolCalls {
		calls = append(calls, node.ToolCall{
			ID:    fmt.Sprintf("ollama_call_%d", i),
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}

	// Ollama's /api/chat response carries no token accounting, so usage is
	// estimated from the request/response text rather than left at zero.
	var prompt strings.Builder
	for _, m := range req.Messages {
		prompt.WriteString(m.Content)
	}
	usage := Usage{
		InputTokens:  o.counter.Count(prompt.String()),
		OutputTokens: o.counter.Count(resp.Message.Content),
	}

	return Response{Text: resp.Message.Content, ToolRequests: calls, Usage: usage}, nil
}
