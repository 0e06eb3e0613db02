package toolhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/branchtree/bots/node"
)

type GetWeatherArgs struct {
	City  string `json:"city" jsonschema:"required,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"description=Units,default=celsius,enum=celsius|fahrenheit"`
}

func TestRegisterFuncAndExecute(t *testing.T) {
	h := New()
	err := RegisterFunc(h, "get_weather", "Get current weather", func(ctx context.Context, args GetWeatherArgs) (any, error) {
		if args.City == "" {
			return nil, errors.New("city is required")
		}
		return map[string]any{"city": args.City, "temp": 22}, nil
	})
	if err != nil {
		t.Fatalf("RegisterFunc() error = %v", err)
	}
	if err := h.Activate("get_weather"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	defs := h.ActiveDefinitions()
	if len(defs) != 1 || defs[0].Name != "get_weather" {
		t.Fatalf("ActiveDefinitions() = %+v", defs)
	}
	props, ok := defs[0].InputSchema["properties"].(map[string]any)
	if !ok || props["city"] == nil {
		t.Fatalf("schema missing city property: %+v", defs[0].InputSchema)
	}

	calls := []node.ToolCall{{ID: "1", Name: "get_weather", Input: map[string]any{"city": "Paris"}}}
	results := h.Execute(context.Background(), calls, nil)
	if len(results) != 1 {
		t.Fatalf("Execute() returned %d results, want 1", len(results))
	}
	if results[0].Status != "ok" {
		t.Fatalf("Execute() status = %q, content = %q", results[0].Status, results[0].Content)
	}
}

func TestExecuteUnknownToolPairsResult(t *testing.T) {
	h := New()
	calls := []node.ToolCall{{ID: "x", Name: "does_not_exist"}}
	results := h.Execute(context.Background(), calls, nil)
	if len(results) != 1 || results[0].ID != "x" || results[0].Status != "error" {
		t.Fatalf("Execute() = %+v, want one paired error result", results)
	}
}

func TestExecutePreservesOrderAndPairing(t *testing.T) {
	h := New()
	_ = RegisterFunc(h, "fail", "always fails", func(ctx context.Context, args struct{}) (any, error) {
		return nil, errors.New("boom")
	})
	_ = RegisterFunc(h, "ok", "always ok", func(ctx context.Context, args struct{}) (any, error) {
		return "fine", nil
	})

	calls := []node.ToolCall{
		{ID: "a", Name: "fail"},
		{ID: "b", Name: "ok"},
		{ID: "c", Name: "does_not_exist"},
	}
	results := h.Execute(context.Background(), calls, nil)
	if len(results) != 3 {
		t.Fatalf("Execute() len = %d, want 3", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].ID != want {
			t.Fatalf("results[%d].ID = %q, want %q", i, results[i].ID, want)
		}
	}
	if results[0].Status != "error" || results[1].Status != "ok" || results[2].Status != "error" {
		t.Fatalf("unexpected statuses: %+v", results)
	}
}

func TestOutputTruncation(t *testing.T) {
	big := make([]byte, MaxOutputChars*2)
	for i := range big {
		big[i] = 'x'
	}
	out := stringifyOutput(string(big))
	if len(out) >= len(big) {
		t.Fatalf("truncateMiddle did not shrink output: got %d bytes", len(out))
	}
}

func TestNilOutputIsDoneSentinel(t *testing.T) {
	if got := stringifyOutput(nil); got != "Done." {
		t.Fatalf("stringifyOutput(nil) = %q, want %q", got, "Done.")
	}
}
