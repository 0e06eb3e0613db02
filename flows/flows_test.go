package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/branchtree/bots/bot"
	"github.com/branchtree/bots/mailbox"
	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
)

// fakeMailbox replays a fixed queue of responses, then errors.
type fakeMailbox struct {
	responses []mailbox.Response
	calls     int
}

func (f *fakeMailbox) Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (mailbox.Response, error) {
	if f.calls >= len(f.responses) {
		return mailbox.Response{}, errors.New("fakeMailbox: no more scripted responses")
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func newScripted(responses ...mailbox.Response) *fakeMailbox {
	return &fakeMailbox{responses: responses}
}

func TestChainFeedsResponsesForward(t *testing.T) {
	mb := newScripted(
		mailbox.Response{Text: "first"},
		mailbox.Response{Text: "second"},
	)
	b := bot.New("chain-bot", mb)

	out, landed, err := Chain(context.Background(), b, []string{"go", "continue"})
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if out != "second" {
		t.Fatalf("Chain() = %q, want %q", out, "second")
	}
	if landed != b.Cursor {
		t.Fatalf("Chain() node = %v, want final cursor %v", landed, b.Cursor)
	}
	if mb.calls != 2 {
		t.Fatalf("expected 2 mailbox calls, got %d", mb.calls)
	}
}

func TestPromptWhileStopsOnCondition(t *testing.T) {
	mb := newScripted(
		mailbox.Response{Text: "still going"},
		mailbox.Response{Text: "still going"},
		mailbox.Response{Text: "done"},
	)
	b := bot.New("loop-bot", mb)

	cond := func(b *bot.Bot, lastResponse string, iteration int) bool {
		return lastResponse != "done"
	}

	out, landed, err := PromptWhile(context.Background(), b, "keep going", cond, 10)
	if err != nil {
		t.Fatalf("PromptWhile() error = %v", err)
	}
	if out != "done" {
		t.Fatalf("PromptWhile() = %q, want %q", out, "done")
	}
	if landed != b.Cursor {
		t.Fatalf("PromptWhile() node = %v, want final cursor %v", landed, b.Cursor)
	}
	if mb.calls != 3 {
		t.Fatalf("expected 3 mailbox calls, got %d", mb.calls)
	}
}

// constantMailbox always answers the same text, regardless of history;
// enough for a fork where each branch just needs one tool-free reply.
type constantMailbox struct {
	text  string
	calls int
}

func (c *constantMailbox) Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (mailbox.Response, error) {
	c.calls++
	return mailbox.Response{Text: c.text}, nil
}

func TestParBranchRunsIndependently(t *testing.T) {
	mb := &constantMailbox{text: "branch reply"}
	b := bot.New("branch-bot", mb)

	responses, nodes, err := ParBranch(context.Background(), b, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("ParBranch() error = %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if len(nodes) != 2 || nodes[0] == nil || nodes[1] == nil {
		t.Fatalf("expected 2 landing nodes, got %v", nodes)
	}
	if b.Cursor != b.Root {
		t.Fatalf("ParBranch must not mutate the original bot's cursor")
	}
}

func TestConcatenateIsPlainNewlineJoin(t *testing.T) {
	if out := Concatenate([]string{"alpha"}); out != "alpha" {
		t.Fatalf("Concatenate([x]) = %q, want %q", out, "alpha")
	}
	if out := Concatenate([]string{"alpha", "beta"}); out != "alpha\nbeta" {
		t.Fatalf("Concatenate() = %q, want %q", out, "alpha\nbeta")
	}
}

func TestBranchSelfReparentsAndRecombines(t *testing.T) {
	mb := &constantMailbox{text: "option considered"}
	b := bot.New("self-bot", mb)
	if err := RegisterSelfTools(b); err != nil {
		t.Fatalf("RegisterSelfTools() error = %v", err)
	}

	// Drive the tree to the state turn() would leave it in mid-execution:
	// Cursor is the assistant node carrying the pending branch_self call.
	userNode := node.New(node.RoleUser, "explore two options")
	b.Cursor = b.Root.AddReply(userNode)
	assistantNode := node.New(node.RoleAssistant, "")
	assistantNode.ToolCalls = []node.ToolCall{{
		ID:   "call_branch",
		Name: "branch_self",
		Input: map[string]any{
			"self_prompts": []any{"consider option A", "consider option B"},
			"recombine":    "concatenate",
		},
	}}
	b.Cursor = userNode.AddReply(assistantNode)

	results := b.Handler.Execute(context.Background(), assistantNode.ToolCalls, b)
	if len(results) != 1 {
		t.Fatalf("expected 1 tool result, got %d", len(results))
	}
	if results[0].Status != "ok" {
		t.Fatalf("branch_self failed: %s", results[0].Content)
	}
	if !contains(results[0].Content, "Successfully completed 2/2") {
		t.Fatalf("unexpected branch_self summary: %s", results[0].Content)
	}
	if len(assistantNode.Replies) == 0 {
		t.Fatal("branch_self did not reparent any branch subtree onto the anchor")
	}
}

func TestRemoveContextTool(t *testing.T) {
	mb := &constantMailbox{text: "ok"}
	b := bot.New("ctx-bot", mb)
	if err := RegisterSelfTools(b); err != nil {
		t.Fatalf("RegisterSelfTools() error = %v", err)
	}

	toRemove := node.New(node.RoleUser, "forget this")
	b.Root.AddReply(toRemove)

	results := b.Handler.Execute(context.Background(), []node.ToolCall{{
		ID:    "call_rm",
		Name:  "remove_context",
		Input: map[string]any{"node_id": toRemove.ID},
	}}, b)
	if results[0].Status != "ok" {
		t.Fatalf("remove_context failed: %s", results[0].Content)
	}
	if b.Root.FindByID(toRemove.ID) != nil {
		t.Fatal("remove_context did not remove the node")
	}
}

func contains(haystack, needle string) bool {
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	if needle == "" {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
