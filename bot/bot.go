// Package bot implements the Bot façade: a persistent conversation cursor,
// its own tool handler and mailbox, and the respond/save/load/fork
// operations a caller drives it through. Grounded on the teacher's
// agent/agent.go turn loop ("call the model, run any tool calls, loop
// until the model stops asking for tools"), generalized from a flat
// message history to a navigable conversation tree.
package bot

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/branchtree/bots/mailbox"
	"github.com/branchtree/bots/metrics"
	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/pkg/logger"
	"github.com/branchtree/bots/toolhandler"
	"github.com/branchtree/bots/tracing"
)

// Callbacks lets a caller observe turn-level events without subclassing.
type Callbacks struct {
	OnUserNode      func(*node.Node)
	OnAssistantNode func(*node.Node)
	OnToolResult    func(node.ToolResult)
}

// Bot owns a conversation cursor, a tool handler, and a mailbox. It is the
// unit of save/load/fork.
type Bot struct {
	ID              string
	Name            string
	Root            *node.Node
	Cursor          *node.Node
	Handler         *toolhandler.Handler
	Mailbox         mailbox.Mailbox
	Metrics         *metrics.Store
	Autosave        bool
	SavePath        string
	MaxTurns        int // ceiling on the tool-use loop per Respond call; 0 = teacher default (25)
	Callbacks       Callbacks
	Temperature     float64
	MaxTokens       int
	Provider        string // provider name this bot's Mailbox talks to, e.g. "anthropic"; persisted for snapshot validation, not consulted at runtime
	Model           string
	RoleDescription string
	SystemMessage   string
	TracingEnabled  bool
	MetricsBotID    string // key this bot's usage is recorded under in Metrics; distinct per fork
}

const defaultMaxTurns = 25

// New creates a Bot with a fresh, empty conversation tree.
func New(name string, mb mailbox.Mailbox) *Bot {
	root := node.New(node.RoleEmpty, "")
	id := uuid.NewString()
	return &Bot{
		ID:           id,
		Name:         name,
		Root:         root,
		Cursor:       root,
		Handler:      toolhandler.New(),
		Mailbox:      mb,
		Metrics:      metrics.Global(),
		MetricsBotID: id,
	}
}

// Respond appends text as a user turn, drives the tool-use loop until the
// model replies without further tool_calls, and returns the final
// assistant text.
func (b *Bot) Respond(ctx context.Context, text string) (string, error) {
	start := b.Cursor
	tracer := tracing.Tracer("bot.respond")
	ctx, span := tracer.Start(ctx, "bot.respond")
	defer span.End()

	userNode := node.New(node.RoleUser, text)
	b.Cursor = b.Cursor.AddReply(userNode)
	if b.Callbacks.OnUserNode != nil {
		b.Callbacks.OnUserNode(userNode)
	}

	maxTurns := b.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	for turn := 0; turn < maxTurns; turn++ {
		reply, err := b.turn(ctx)
		if err != nil {
			b.Cursor = start
			return "", err
		}
		if len(reply.ToolCalls) == 0 {
			if b.Autosave && b.SavePath != "" {
				if err := b.Save(b.SavePath); err != nil {
					logger.Default().Warn("bot autosave failed", "bot", b.ID, "error", err)
				}
			}
			return reply.Content, nil
		}
	}
	return "", fmt.Errorf("bot %s: exceeded max turns (%d) without a tool-free reply", b.ID, maxTurns)
}

// turn performs exactly one model call, plus tool execution if the model
// asked for tools, and advances the cursor. It returns the assistant node
// produced (whose ToolCalls, if non-empty, the caller should treat as "more
// work to do").
func (b *Bot) turn(ctx context.Context) (*node.Node, error) {
	tracer := tracing.Tracer("bot.turn")
	ctx, span := tracer.Start(ctx, "bot.turn")
	defer span.End()

	messages := b.Cursor.BuildMessages()
	defs := b.Handler.ActiveDefinitions()

	resp, err := b.Mailbox.Send(ctx, messages, defs)
	if err != nil {
		return nil, fmt.Errorf("bot %s: mailbox send: %w", b.ID, err)
	}
	if b.Metrics != nil {
		metricsID := b.MetricsBotID
		if metricsID == "" {
			metricsID = b.ID
		}
		b.Metrics.Record(metricsID, metrics.Event{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			CachedTokens: resp.Usage.CachedTokens,
		})
	}

	assistant := node.New(node.RoleAssistant, resp.Text)
	assistant.ToolCalls = resp.ToolRequests
	if resp.Usage.InputTokens+resp.Usage.OutputTokens > 0 {
		assistant.Usage = &node.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			CachedTokens: resp.Usage.CachedTokens,
		}
	}
	b.Cursor = b.Cursor.AddReply(assistant)
	if b.Callbacks.OnAssistantNode != nil {
		b.Callbacks.OnAssistantNode(assistant)
	}

	if len(resp.ToolRequests) == 0 {
		return assistant, nil
	}

	toolSpan := tracing.Tracer("tools.execute_all")
	execCtx, execSpan := toolSpan.Start(ctx, "tools.execute_all")
	results := b.Handler.Execute(execCtx, resp.ToolRequests, b)
	execSpan.End()

	for _, r := range results {
		if b.Callbacks.OnToolResult != nil {
			b.Callbacks.OnToolResult(r)
		}
	}

	toolNode := node.New(node.RoleTool, "")
	toolNode.ToolResults = results
	b.Cursor = b.Cursor.AddReply(toolNode)

	return assistant, nil
}
