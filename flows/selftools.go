package flows

import (
	"context"
	"fmt"

	"github.com/branchtree/bots/bot"
)

// SelfInfoArgs carries nothing from the model; Bot is injected.
type SelfInfoArgs struct {
	Bot *bot.Bot `json:"-" hbot:"inject"`
}

func getOwnInfo(ctx context.Context, args SelfInfoArgs) (any, error) {
	b := args.Bot
	if b == nil {
		return nil, fmt.Errorf("get_own_info: no calling bot was injected")
	}
	return map[string]any{
		"id":          b.ID,
		"name":        b.Name,
		"temperature": b.Temperature,
		"max_tokens":  b.MaxTokens,
		"tools":       toolNames(b),
	}, nil
}

func toolNames(b *bot.Bot) []string {
	entries := b.Handler.List()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

// ModifyOwnSettingsArgs lets the model adjust its own sampling settings.
// An omitted field leaves that setting unchanged; a field that is present is
// applied as given, including an explicit 0.
type ModifyOwnSettingsArgs struct {
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"description=New sampling temperature"`
	MaxTokens   *int     `json:"max_tokens,omitempty" jsonschema:"description=New max output tokens"`
	Bot         *bot.Bot `json:"-" hbot:"inject"`
}

func modifyOwnSettings(ctx context.Context, args ModifyOwnSettingsArgs) (any, error) {
	b := args.Bot
	if b == nil {
		return nil, fmt.Errorf("modify_own_settings: no calling bot was injected")
	}
	if args.Temperature != nil {
		b.Temperature = *args.Temperature
	}
	if args.MaxTokens != nil {
		b.MaxTokens = *args.MaxTokens
	}
	return fmt.Sprintf("Updated settings: temperature=%v, max_tokens=%v", b.Temperature, b.MaxTokens), nil
}

// RemoveContextArgs names a node (by id) to excise from the conversation
// tree, per node.RemoveContext's reattach-then-reparent rule.
type RemoveContextArgs struct {
	NodeID string   `json:"node_id" jsonschema:"required,description=ID of the conversation node to remove"`
	Bot    *bot.Bot `json:"-" hbot:"inject"`
}

func removeContext(ctx context.Context, args RemoveContextArgs) (any, error) {
	b := args.Bot
	if b == nil {
		return nil, fmt.Errorf("remove_context: no calling bot was injected")
	}
	if !b.Root.RemoveContext(args.NodeID) {
		return nil, fmt.Errorf("remove_context: no node %q found in this conversation", args.NodeID)
	}
	return fmt.Sprintf("Removed node %s from the conversation.", args.NodeID), nil
}
