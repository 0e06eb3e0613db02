// Package mailbox defines the thin provider-adapter contract a Bot talks
// through, plus concrete Anthropic/OpenAI/Ollama adapters grounded on the
// teacher's llms package (request/response envelopes, retry classification).
// Every adapter makes a single non-streaming request per Send.
package mailbox

import (
	"context"

	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
)

// Usage reports token accounting for a single provider call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CachedTokens int
}

// Response is what a provider call yields: the assistant's text (may be
// empty when the turn is pure tool use), any tool_requests it issued, and
// usage for metrics.
type Response struct {
	Text         string
	ToolRequests []node.ToolCall
	Usage        Usage
}

// Mailbox is the only contract a provider must satisfy to back a Bot.
// Send receives the full message history plus the active tool
// definitions, and returns one Response for the turn.
type Mailbox interface {
	Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (Response, error)
}
