package toolhandler

import "testing"

type marshalTestArgs struct {
	Enabled bool     `json:"enabled"`
	Tags    []string `json:"tags"`
	Label   string   `json:"label"`
}

func TestMapToStructCoercesBoolOnlyForBoolFields(t *testing.T) {
	var got marshalTestArgs
	err := mapToStruct(map[string]any{
		"enabled": "true",
		"label":   "true", // declared string: must survive untouched
	}, &got)
	if err != nil {
		t.Fatalf("mapToStruct() error = %v", err)
	}
	if !got.Enabled {
		t.Fatalf("Enabled = %v, want true (coerced from string)", got.Enabled)
	}
	if got.Label != "true" {
		t.Fatalf("Label = %q, want %q (must not be coerced to bool)", got.Label, "true")
	}
}

func TestMapToStructCoercesListOnlyForSliceFields(t *testing.T) {
	var got marshalTestArgs
	err := mapToStruct(map[string]any{
		"tags":  `["a", "b"]`,
		"label": `["a", "b"]`, // declared string: must survive untouched
	}, &got)
	if err != nil {
		t.Fatalf("mapToStruct() error = %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" || got.Tags[1] != "b" {
		t.Fatalf("Tags = %v, want [a b]", got.Tags)
	}
	if got.Label != `["a", "b"]` {
		t.Fatalf("Label = %q, must not be coerced to a list", got.Label)
	}
}
