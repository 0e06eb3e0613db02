// Package snapshot implements the JSON bot-snapshot codec: a stable,
// byte-reproducible serialization of a conversation tree plus its
// registered tools, suitable for save/load and for the temp-file
// round trip branch_self performs on every invocation.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"

	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
)

// ToolRecord is the persisted form of one toolhandler.Entry.
type ToolRecord struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
	Source      string         `json:"source"`     // "module" | "file" | "inline"
	SourceRef   string         `json:"source_ref"`
	Active      bool           `json:"active"`
}

// CurrentSchemaVersion is written into every Snapshot this package produces.
// A load of a higher version than this package understands is not itself an
// error (unknown future fields are ignored per §6), but callers that need to
// gate on it can compare against the loaded value.
const CurrentSchemaVersion = 1

// Snapshot is the full persisted state of a Bot.
type Snapshot struct {
	SchemaVersion   int            `json:"schema_version"`
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Provider        string         `json:"provider"`
	Model           string         `json:"model"`
	RoleDescription string         `json:"role_description,omitempty"`
	SystemMessage   string         `json:"system_message,omitempty"`
	TracingEnabled  bool           `json:"tracing_enabled,omitempty"`
	MetricsBotID    string         `json:"metrics_bot_id,omitempty"`
	Root            *node.Node     `json:"root"`
	CursorPath      []int          `json:"cursor_path"` // reply indices from root to cursor
	Tools           []ToolRecord   `json:"tools"`
	Temperature     float64        `json:"temperature,omitempty"`
	MaxTokens       int            `json:"max_tokens,omitempty"`
}

// knownProviders enumerates the provider names mailbox.NewFromConfig
// accepts; kept in this package as a plain name set, since validation here
// only needs the names, not the adapters themselves.
var knownProviders = map[string]bool{
	"":         true, // unset provider is allowed (e.g. snapshots predating this field, or a bot driven by an ad hoc Mailbox)
	"anthropic": true,
	"openai":    true,
	"ollama":    true,
}

// ValidateProviderModel reports an error for an invalid provider/model pair,
// per §6's load rule "an invalid provider/model pair is an error (not a
// silent demotion)": an unrecognized provider name, or a recognized,
// non-empty provider with no model.
func ValidateProviderModel(provider, model string) error {
	if !knownProviders[provider] {
		return fmt.Errorf("snapshot: unknown provider %q", provider)
	}
	if provider != "" && model == "" {
		return fmt.Errorf("snapshot: provider %q requires a model", provider)
	}
	return nil
}

// LoadError records why a tool failed to rehydrate without
// aborting the whole load.
type LoadError struct {
	ToolName string
	Message  string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("tool %q failed to load: %s", e.ToolName, e.Message)
}

// Marshal canonicalizes s to stable-key-order, NFC-normalized, BOM-free
// JSON. encoding/json already emits struct fields in declared order and
// never writes a BOM; NFC normalization is applied to the serialized text
// afterward since json.Marshal itself does not touch unicode form.
func Marshal(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal: %w", err)
	}
	normalized := norm.NFC.Bytes(data)
	return normalized, nil
}

// Unmarshal parses JSON produced by Marshal (or hand-written JSON matching
// the same shape) into a Snapshot.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if s.Root != nil {
		// Parent links are not serialized; rebuild them from Replies.
		s.Root.Walk(func(n *node.Node) {
			for _, c := range n.Replies {
				c.Parent = n
			}
		})
	}
	return &s, nil
}

// SaveToFile writes s to path, canonicalized via Marshal.
func SaveToFile(s *Snapshot, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFromFile reads and parses a snapshot previously written by
// SaveToFile.
func LoadFromFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// RoundTrips reports whether Marshal(Unmarshal(Marshal(s))) is byte-equal
// to Marshal(s), the stability law every snapshot must satisfy.
func RoundTrips(s *Snapshot) (bool, error) {
	first, err := Marshal(s)
	if err != nil {
		return false, err
	}
	reloaded, err := Unmarshal(first)
	if err != nil {
		return false, err
	}
	second, err := Marshal(reloaded)
	if err != nil {
		return false, err
	}
	return bytes.Equal(first, second), nil
}

// ToolRecordsFrom converts a toolhandler.Handler's registry into persisted
// ToolRecords, marking which are currently active.
func ToolRecordsFrom(h *toolhandler.Handler) []ToolRecord {
	entries := h.List()
	active := make(map[string]bool)
	for _, d := range h.ActiveDefinitions() {
		active[d.Name] = true
	}
	records := make([]ToolRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, ToolRecord{
			Name:        e.Name,
			Description: e.Description,
			Schema:      e.Schema,
			Source:      string(e.Source),
			SourceRef:   e.SourceRef,
			Active:      active[e.Name],
		})
	}
	return records
}

// RehydrateTools re-registers every ToolRecord of Source "inline" onto h
// via the process-global inline-constructor table (inline.go's
// RehydrateInline). Records of Source "module"/"file" are assumed to
// already be registered by the host program's own init path (Go cannot
// dynamically load a package-level function by name); a record with no
// matching registration is reported via LoadError rather than aborting
// the rest of the load.
func RehydrateTools(h *toolhandler.Handler, records []ToolRecord) []*LoadError {
	var errs []*LoadError
	for _, r := range records {
		if r.Source != string(toolhandler.SourceInline) {
			if _, ok := lookup(h, r.Name); !ok {
				errs = append(errs, &LoadError{ToolName: r.Name, Message: "no module/file registration found for this name in the current process"})
			}
			continue
		}
		loaded, err := toolhandler.RehydrateInline(h, r.SourceRef)
		if err != nil {
			errs = append(errs, &LoadError{ToolName: r.Name, Message: err.Error()})
			continue
		}
		if !loaded {
			errs = append(errs, &LoadError{ToolName: r.Name, Message: "no inline constructor registered under this name in the current process"})
		}
	}
	for _, r := range records {
		if r.Active {
			_ = h.Activate(r.Name)
		}
	}
	return errs
}

func lookup(h *toolhandler.Handler, name string) (*toolhandler.Entry, bool) {
	for _, e := range h.List() {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}
