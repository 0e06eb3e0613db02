package node

import "testing"

func TestNavigation(t *testing.T) {
	root := New(RoleSystem, "sys")
	a := root.AddReply(New(RoleUser, "hi"))
	b := a.AddReply(New(RoleAssistant, "hello"))
	c := a.AddReply(New(RoleAssistant, "hey"))

	if got := b.Up(); got != a {
		t.Fatalf("Up() = %v, want %v", got, a)
	}
	if got := root.Down(); got != a {
		t.Fatalf("Down() = %v, want %v", got, a)
	}
	if got := c.Left(); got != b {
		t.Fatalf("Left() = %v, want %v", got, b)
	}
	if got := b.Right(); got != c {
		t.Fatalf("Right() = %v, want %v", got, c)
	}
	if got := root.Leaf(); got != c {
		t.Fatalf("Leaf() = %v, want %v", got, c)
	}
	if got := c.LastFork(); got != a {
		t.Fatalf("LastFork() = %v, want %v", got, a)
	}
}

func TestPathToRootAndBuildMessages(t *testing.T) {
	root := New(RoleEmpty, "")
	u := root.AddReply(New(RoleUser, "question"))
	as := u.AddReply(New(RoleAssistant, "answer"))

	path := as.PathToRoot()
	if len(path) != 3 {
		t.Fatalf("PathToRoot len = %d, want 3", len(path))
	}

	msgs := as.BuildMessages()
	if len(msgs) != 2 {
		t.Fatalf("BuildMessages len = %d, want 2 (root placeholder skipped)", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Fatalf("unexpected message roles: %+v", msgs)
	}
}

func TestValidatePairing(t *testing.T) {
	root := New(RoleEmpty, "")
	u := root.AddReply(New(RoleUser, "do it"))
	as := u.AddReply(&Node{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "do"}}})
	result := as.AddReply(&Node{Role: RoleTool, ToolResults: []ToolResult{{ID: "1", Status: "ok", Content: "done"}}})

	if err := result.ValidatePairing(); err != nil {
		t.Fatalf("ValidatePairing() = %v, want nil", err)
	}

	unpaired := as.AddReply(&Node{Role: RoleTool, ToolResults: []ToolResult{{ID: "does-not-exist"}}})
	if err := unpaired.ValidatePairing(); err == nil {
		t.Fatal("ValidatePairing() = nil, want error for unmatched tool_result")
	}
}

func TestRemoveContextReattachesToolResults(t *testing.T) {
	root := New(RoleEmpty, "")
	u := root.AddReply(New(RoleUser, "q"))
	asst := u.AddReply(&Node{ID: "asst-1", Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1", Name: "x"}}})
	toRemove := asst.AddReply(&Node{ID: "remove-me", Role: RoleTool, ToolResults: []ToolResult{{ID: "call-1", Status: "ok"}}})
	grandchild := toRemove.AddReply(New(RoleAssistant, "follow-up"))

	if ok := root.RemoveContext("remove-me"); !ok {
		t.Fatal("RemoveContext() = false, want true")
	}

	if len(asst.ToolResults) != 1 || asst.ToolResults[0].ID != "call-1" {
		t.Fatalf("parent did not inherit tool_results: %+v", asst.ToolResults)
	}
	found := false
	for _, r := range asst.Replies {
		if r == grandchild {
			found = true
		}
	}
	if !found {
		t.Fatal("grandchild was not reparented onto asst")
	}
	if err := asst.Down().ValidatePairing(); err != nil {
		t.Fatalf("pairing broken after removal: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	root := New(RoleUser, "hi")
	root.SetTag("anchor")
	child := root.AddReply(New(RoleAssistant, "hello"))
	_ = child

	cp := root.Clone()
	cp.Tags["anchor"] = false
	if !root.Tags["anchor"] {
		t.Fatal("Clone() shared the Tags map with the original")
	}
	if len(cp.Replies) != 1 || cp.Replies[0] == child {
		t.Fatal("Clone() did not deep-copy replies")
	}
}
