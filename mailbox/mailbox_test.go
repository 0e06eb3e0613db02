package mailbox

import (
	"context"
	"testing"

	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
)

// fakeMailbox is a scripted Mailbox that replays responses, then answers
// "done". The bot and flows tests define their own fakes.
type fakeMailbox struct {
	responses []Response
	calls     int
}

func (f *fakeMailbox) Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (Response, error) {
	if f.calls >= len(f.responses) {
		return Response{Text: "done"}, nil
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func TestAnthropicBuildRequestSeparatesSystem(t *testing.T) {
	a := NewAnthropic("key", "claude-3-5-sonnet")
	messages := []node.Message{
		{Role: node.RoleSystem, Content: "be terse"},
		{Role: node.RoleUser, Content: "hi"},
	}
	req := a.buildRequest(messages, nil)
	if req.System != "be terse" {
		t.Fatalf("System = %q, want %q", req.System, "be terse")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("Messages = %+v", req.Messages)
	}
}

func TestAnthropicBuildRequestTranslatesToolResults(t *testing.T) {
	a := NewAnthropic("key", "claude-3-5-sonnet")
	messages := []node.Message{
		{Role: node.RoleUser, Content: "do it"},
		{Role: node.RoleAssistant, ToolCalls: []node.ToolCall{{ID: "1", Name: "x"}}},
		{Role: node.RoleTool, ToolResults: []node.ToolResult{{ID: "1", Status: "ok", Content: "42"}}},
	}
	req := a.buildRequest(messages, nil)
	if len(req.Messages) != 3 {
		t.Fatalf("Messages len = %d, want 3", len(req.Messages))
	}
	toolMsg := req.Messages[2]
	if toolMsg.Role != "user" || toolMsg.Content[0].Type != "tool_result" || toolMsg.Content[0].ToolUseID != "1" {
		t.Fatalf("tool_result translation wrong: %+v", toolMsg)
	}
}

func TestOpenAIBuildRequestRoundTripsToolCallArguments(t *testing.T) {
	o := NewOpenAI("key", "gpt-4o")
	messages := []node.Message{
		{Role: node.RoleAssistant, ToolCalls: []node.ToolCall{{ID: "call_1", Name: "search", Input: map[string]any{"q": "go"}}}},
		{Role: node.RoleTool, ToolResults: []node.ToolResult{{ID: "call_1", Status: "ok", Content: "result"}}},
	}
	req := o.buildRequest(messages, nil)
	if len(req.Messages) != 2 {
		t.Fatalf("Messages len = %d, want 2", len(req.Messages))
	}
	if req.Messages[1].ToolCallID != "call_1" {
		t.Fatalf("tool_call_id = %q, want call_1", req.Messages[1].ToolCallID)
	}
}
