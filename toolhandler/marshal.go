package toolhandler

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// mapToStruct converts incoming tool-call arguments into a typed struct via
// a JSON marshal/unmarshal round trip, matching the teacher's
// pkg/tool/functiontool.mapToStruct pattern. Before the round trip, string
// values that plainly represent a bool or a bracketed list for a field
// actually declared bool/slice (as an LLM's string-typed tool arguments
// sometimes arrive, e.g. "true" or "[\"a\", \"b\"]") are normalized so the
// target's declared type still binds; this mirrors the string-coercion
// helpers (_process_string_array and friends) in the original self-tools
// source. A field genuinely declared string is left untouched even if its
// value happens to be the literal text "true" or "[1, 2]".
func mapToStruct(m map[string]any, target any) error {
	if m == nil {
		return nil
	}
	kinds := fieldKinds(target)
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		normalized[k] = normalizeValue(v, kinds[k])
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal args: %w", err)
	}
	return nil
}

// fieldKinds maps target's JSON field names to their declared reflect.Kind,
// so normalizeValue can tell a bool/slice-typed field (safe to coerce a
// stringly-typed value into) from a string-typed one (never coerced).
// target must be a pointer to struct; any other shape yields an empty map,
// which disables coercion entirely (the conservative default).
func fieldKinds(target any) map[string]reflect.Kind {
	kinds := make(map[string]reflect.Kind)
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return kinds
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			if parts := strings.SplitN(tag, ",", 2); parts[0] != "" && parts[0] != "-" {
				name = parts[0]
			}
		}
		kinds[name] = f.Type.Kind()
	}
	return kinds
}

// normalizeValue coerces v, a raw JSON value for a field of the given
// declared kind, so the later json.Unmarshal into that field succeeds even
// when the model sent a stringly-typed bool or list. kind == reflect.Invalid
// (field not found on target, e.g. an unrecognized argument name) disables
// coercion, the same as a field genuinely declared string.
func normalizeValue(v any, kind reflect.Kind) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if kind == reflect.Bool {
		switch strings.ToLower(trimmed) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	if kind != reflect.Slice && kind != reflect.Array {
		return v
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return v // leave numeric-looking strings alone; target decides
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		var parsed []any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
		// Fall back to a bare comma-split for non-JSON Python-literal-style
		// lists such as "a, b, c".
		inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
		if inner == "" {
			return []any{}
		}
		parts := strings.Split(inner, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.Trim(strings.TrimSpace(p), `"'`))
		}
		return out
	}
	return v
}
