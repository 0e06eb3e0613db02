// Package toolhandler registers typed Go functions as LLM-callable tools,
// generates their JSON schemas by reflection, and executes tool_calls with
// the pairing guarantee the conversation tree requires: every call gets
// exactly one result, in declared order, even when the tool is unknown or
// panics.
package toolhandler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/tracing"
)

// SourceKind classifies where a registered tool's implementation lives,
// for persistence across save/load.
type SourceKind string

const (
	SourceModule SourceKind = "module" // a Go package-level function, addressed by name
	SourceFile   SourceKind = "file"   // loaded from a file path at registration time
	SourceInline SourceKind = "inline" // supplied by a process-global constructor (see inline.go)
)

// Error is a typed toolhandler failure, mirroring the teacher's
// ToolRegistryError convention.
type Error struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Component, e.Action, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Entry is one registered tool.
type Entry struct {
	Name        string
	Description string
	Schema      map[string]any
	Source      SourceKind
	SourceRef   string // module path, file path, or inline constructor key

	call func(ctx context.Context, args map[string]any, bot any) (any, error)
}

// Handler owns the tool registry, the active subset whose schemas are sent
// to the provider, and execution.
type Handler struct {
	mu       sync.RWMutex
	registry map[string]*Entry
	active   map[string]bool
}

// New returns an empty Handler.
func New() *Handler {
	return &Handler{
		registry: make(map[string]*Entry),
		active:   make(map[string]bool),
	}
}

// Register adds entry to the registry without activating it.
func (h *Handler) Register(entry *Entry) error {
	if entry.Name == "" {
		return &Error{Component: "toolhandler", Action: "Register", Message: "tool name cannot be empty"}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.registry[entry.Name]; exists {
		return &Error{Component: "toolhandler", Action: "Register", Message: fmt.Sprintf("tool %q already registered", entry.Name)}
	}
	h.registry[entry.Name] = entry
	return nil
}

// Activate marks a registered tool as part of the active set sent to the
// provider. Returns an error if the tool isn't registered.
func (h *Handler) Activate(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.registry[name]; !ok {
		return &Error{Component: "toolhandler", Action: "Activate", Message: fmt.Sprintf("tool %q not registered", name)}
	}
	h.active[name] = true
	return nil
}

// Deactivate removes a tool from the active set without unregistering it.
func (h *Handler) Deactivate(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, name)
}

// ActivateAll marks every registered tool active.
func (h *Handler) ActivateAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name := range h.registry {
		h.active[name] = true
	}
}

// Clear empties the active set.
func (h *Handler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = make(map[string]bool)
}

// List returns registered entries sorted by name.
func (h *Handler) List() []*Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Entry, 0, len(h.registry))
	for _, e := range h.registry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActiveDefinitions returns the (name, description, schema) triples of the
// active set, sorted by name, for inclusion in a provider request.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

func (h *Handler) ActiveDefinitions() []Definition {
	h.mu.RLock()
	defer h.mu.RUnlock()
	defs := make([]Definition, 0, len(h.active))
	for name := range h.active {
		e := h.registry[name]
		defs = append(defs, Definition{Name: e.Name, Description: e.Description, InputSchema: e.Schema})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs each requested tool call in declared order and returns one
// node.ToolResult per call, guaranteed 1:1 even for unknown tools or panics.
// bot is the calling *bot.Bot, passed through for tools with an injected
// _bot parameter (declared as type any to avoid an import cycle with the
// bot package, which itself depends on toolhandler).
func (h *Handler) Execute(ctx context.Context, calls []node.ToolCall, bot any) []node.ToolResult {
	results := make([]node.ToolResult, len(calls))
	for i, call := range calls {
		results[i] = h.executeOne(ctx, call, bot)
	}
	return results
}

func (h *Handler) executeOne(ctx context.Context, call node.ToolCall, bot any) (result node.ToolResult) {
	tracer := tracing.Tracer("tool." + call.Name)
	ctx, span := tracer.Start(ctx, "tool."+call.Name, trace.WithAttributes(
		attribute.String("tool.call_id", call.ID),
		attribute.String("tool.name", call.Name),
	))
	defer span.End()

	result = node.ToolResult{ID: call.ID, Name: call.Name}
	defer func() {
		if r := recover(); r != nil {
			result.Status = "error"
			result.Content = fmt.Sprintf("Tool Failed: panic: %v", r)
		}
		span.SetAttributes(attribute.String("tool.status", result.Status))
		if result.Status == "error" {
			span.SetStatus(codes.Error, result.Content)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	h.mu.RLock()
	entry, ok := h.registry[call.Name]
	h.mu.RUnlock()
	if !ok {
		result.Status = "error"
		result.Content = fmt.Sprintf("Tool Failed: unknown tool %q", call.Name)
		return result
	}

	out, err := entry.call(ctx, call.Input, bot)
	if err != nil {
		result.Status = "error"
		result.Content = fmt.Sprintf("Tool Failed: %v", err)
		return result
	}
	result.Status = "ok"
	result.Content = stringifyOutput(out)
	return result
}

// NewToolCallID generates a unique id for a synthesized tool call.
func NewToolCallID() string {
	return "call_" + uuid.NewString()[:12]
}
