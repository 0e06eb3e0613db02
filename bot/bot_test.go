package bot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/branchtree/bots/mailbox"
	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
)

type scriptedMailbox struct {
	responses []mailbox.Response
	calls     int
}

func (s *scriptedMailbox) Send(ctx context.Context, messages []node.Message, tools []toolhandler.Definition) (mailbox.Response, error) {
	if s.calls >= len(s.responses) {
		return mailbox.Response{Text: "fallback"}, nil
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

func TestRespondSimpleTurn(t *testing.T) {
	mb := &scriptedMailbox{responses: []mailbox.Response{{Text: "hello there"}}}
	b := New("test-bot", mb)

	out, err := b.Respond(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out != "hello there" {
		t.Fatalf("Respond() = %q, want %q", out, "hello there")
	}
	if b.Cursor.Role != node.RoleAssistant {
		t.Fatalf("cursor role = %v, want assistant", b.Cursor.Role)
	}
}

func TestRespondDrivesToolUseLoop(t *testing.T) {
	_ = toolhandler.RegisterFunc(toolhandlerForTest, "add_one", "adds one", func(ctx context.Context, args struct {
		N int `json:"n"`
	}) (any, error) {
		return args.N + 1, nil
	})

	mb := &scriptedMailbox{responses: []mailbox.Response{
		{Text: "", ToolRequests: []node.ToolCall{{ID: "1", Name: "add_one", Input: map[string]any{"n": float64(1)}}}},
		{Text: "the answer is 2"},
	}}
	b := New("test-bot", mb)
	b.Handler = toolhandlerForTest
	_ = b.Handler.Activate("add_one")

	out, err := b.Respond(context.Background(), "what's one plus one")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out != "the answer is 2" {
		t.Fatalf("Respond() = %q", out)
	}

	// walk back to find the tool node and check pairing
	toolNode := b.Cursor.Up()
	if toolNode.Role != node.RoleTool {
		t.Fatalf("expected a tool node one hop up, got role %v", toolNode.Role)
	}
	if err := toolNode.ValidatePairing(); err != nil {
		t.Fatalf("pairing broken: %v", err)
	}
}

var toolhandlerForTest = toolhandler.New()

func TestSaveLoadRoundTrip(t *testing.T) {
	mb := &scriptedMailbox{responses: []mailbox.Response{{Text: "hi back"}}}
	b := New("round-trip-bot", mb)
	if _, err := b.Respond(context.Background(), "hello"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	if err := b.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	loaded, loadErrs, err := Load(path, mb, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loadErrs) != 0 {
		t.Fatalf("Load() tool errors = %v", loadErrs)
	}
	if loaded.Cursor.Role != node.RoleAssistant || loaded.Cursor.Content != "hi back" {
		t.Fatalf("loaded cursor = %+v", loaded.Cursor)
	}
}

func TestForkProducesIndependentTrees(t *testing.T) {
	mb := &scriptedMailbox{responses: []mailbox.Response{{Text: "first reply"}}}
	b := New("fork-bot", mb)
	if _, err := b.Respond(context.Background(), "hello"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	forks := b.Fork(2)
	if len(forks) != 2 {
		t.Fatalf("Fork(2) returned %d bots", len(forks))
	}
	forks[0].Cursor.Content = "mutated"
	if b.Cursor.Content == "mutated" || forks[1].Cursor.Content == "mutated" {
		t.Fatal("Fork() shared tree state across forks/original")
	}
}
