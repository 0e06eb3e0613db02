package toolhandler

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// injectTag marks an Args struct field whose value the handler supplies at
// call time (the calling *bot.Bot) rather than expecting the model to fill
// in; such fields are stripped from the generated schema entirely. This is
// the Go-idiomatic rendering of the reserved `_bot` parameter: Go has no
// runtime stack-walk to recover a caller reference the way the original
// implementation did, so the caller is injected explicitly by field tag
// instead.
const injectTag = "hbot"

// generateSchema reflects T's exported fields (via json/jsonschema tags)
// into the canonical {type, properties, required} shape, omitting any
// field tagged `hbot:"inject"`.
func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(raw, "$schema")
	delete(raw, "$id")

	injected := injectedFieldNames[T]()
	if props, ok := raw["properties"].(map[string]any); ok {
		for _, name := range injected {
			delete(props, name)
		}
	}
	if req, ok := raw["required"].([]any); ok {
		filtered := make([]any, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok && injected[s] {
				continue
			}
			filtered = append(filtered, r)
		}
		raw["required"] = filtered
	}

	result := map[string]any{"type": "object"}
	if props, ok := raw["properties"]; ok {
		result["properties"] = props
	}
	if req, ok := raw["required"]; ok {
		result["required"] = req
	}
	return result, nil
}

// injectedFieldNames returns the set of JSON field names on T tagged
// `hbot:"inject"`.
func injectedFieldNames[T any]() map[string]bool {
	out := make(map[string]bool)
	t := reflect.TypeOf(*new(T))
	if t.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get(injectTag) != "inject" {
			continue
		}
		name := f.Tag.Get("json")
		if name == "" {
			name = f.Name
		} else if idx := indexOfComma(name); idx >= 0 {
			name = name[:idx]
		}
		out[name] = true
	}
	return out
}

func indexOfComma(s string) int {
	for i, r := range s {
		if r == ',' {
			return i
		}
	}
	return -1
}
