// Package flows implements the functional-prompt orchestrators (Chain,
// PromptWhile, PromptFor, ParBranch, ParBranchWhile), their recombinators,
// and the self-registered branch_self tool. branch_self is grounded
// directly on original_source/bots/tools/self_tools.py: tag the calling
// node, snapshot it with placeholder tool_results so the pairing
// invariant survives the save, drive a fresh bot copy per prompt from
// that tagged anchor, and reparent each completed branch back onto the
// original tree.
package flows

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/branchtree/bots/bot"
	"github.com/branchtree/bots/node"
	"github.com/branchtree/bots/toolhandler"
)

// BranchSelfArgs is the schema the model fills in to invoke branch_self.
// Bot is injected by the toolhandler at call time (see toolhandler/schema.go's
// hbot:"inject" convention) rather than supplied by the model.
type BranchSelfArgs struct {
	SelfPrompts []string `json:"self_prompts" jsonschema:"required,description=One prompt per branch to explore independently"`
	AllowWork   bool     `json:"allow_work,omitempty" jsonschema:"description=If true, each branch iterates tool calls until it stops using tools, instead of a single reply"`
	Parallel    bool     `json:"parallel,omitempty" jsonschema:"description=Run branches concurrently instead of sequentially"`
	Recombine   string   `json:"recombine,omitempty" jsonschema:"description=How to combine branch results,default=concatenate,enum=none|concatenate|llm_judge|llm_vote|llm_merge"`
	Bot         *bot.Bot `json:"-" hbot:"inject"`
}

const maxAllowWorkIterations = 25

// RegisterSelfTools registers branch_self and the other self-introspection
// tools (get_own_info, modify_own_settings, remove_context) on b's own
// handler, so the model can invoke them against itself.
func RegisterSelfTools(b *bot.Bot) error {
	if err := toolhandler.RegisterFunc(b.Handler, "branch_self", branchSelfDescription, branchSelf); err != nil {
		return err
	}
	if err := toolhandler.RegisterFunc(b.Handler, "get_own_info", "Report this bot's id, name, and settings.", getOwnInfo); err != nil {
		return err
	}
	if err := toolhandler.RegisterFunc(b.Handler, "modify_own_settings", "Adjust this bot's temperature/max_tokens.", modifyOwnSettings); err != nil {
		return err
	}
	if err := toolhandler.RegisterFunc(b.Handler, "remove_context", "Remove a node (by id) from this bot's conversation tree, reattaching its tool results to its parent.", removeContext); err != nil {
		return err
	}
	for _, name := range []string{"branch_self", "get_own_info", "modify_own_settings", "remove_context"} {
		if err := b.Handler.Activate(name); err != nil {
			return err
		}
	}
	return nil
}

const branchSelfDescription = "Branch the current conversation into one or more independent self-directed explorations, then recombine their results."

func branchSelf(ctx context.Context, args BranchSelfArgs) (any, error) {
	original := args.Bot
	if original == nil {
		return nil, fmt.Errorf("branch_self: no calling bot was injected")
	}
	if len(args.SelfPrompts) == 0 {
		return nil, fmt.Errorf("branch_self: self_prompts must not be empty")
	}
	recombine := args.Recombine
	if recombine == "" {
		recombine = "concatenate"
	}
	if !validRecombineStrategy(recombine) {
		return nil, fmt.Errorf("branch_self: unknown recombine strategy %q", recombine)
	}

	anchor := original.Cursor
	anchorTag := fmt.Sprintf("_branch_self_anchor_%s", uuid.NewString()[:8])
	anchor.SetTag(anchorTag)

	// anchor may carry tool_calls (this very invocation, and any sibling
	// calls in the same turn) that have not been resolved into a tool
	// node yet. Snapshotting now would otherwise leave those tool_calls
	// unpaired, so we attach a placeholder tool node before saving and
	// pop it back off once the save completes.
	placeholder := placeholderToolNode(anchor.ToolCalls)
	anchor.AddReply(placeholder)

	tmpFile, err := os.CreateTemp("", "branch-self-*.json")
	if err != nil {
		anchor.Replies = anchor.Replies[:len(anchor.Replies)-1]
		anchor.ClearTag(anchorTag)
		return nil, fmt.Errorf("branch_self: create temp snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	wasAutosave := original.Autosave
	original.Autosave = false
	if err := original.Save(tmpPath); err != nil {
		anchor.Replies = anchor.Replies[:len(anchor.Replies)-1]
		anchor.ClearTag(anchorTag)
		original.Autosave = wasAutosave
		return nil, fmt.Errorf("branch_self: save anchor snapshot: %w", err)
	}
	anchor.Replies = anchor.Replies[:len(anchor.Replies)-1]
	original.Autosave = wasAutosave

	type branchOutcome struct {
		index    int
		response string
		newRoot  *node.Node
		err      error
	}

	outcomes := make([]branchOutcome, len(args.SelfPrompts))
	runBranch := func(i int) {
		prompt := "(self-prompt): " + args.SelfPrompts[i]
		resp, newRoot, err := executeBranch(ctx, tmpPath, original, anchorTag, prompt, args.AllowWork)
		outcomes[i] = branchOutcome{index: i, response: resp, newRoot: newRoot, err: err}
	}

	if args.Parallel {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(MaxParallelism)
		for i := range args.SelfPrompts {
			i := i
			g.Go(func() error {
				runBranch(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range args.SelfPrompts {
			runBranch(i)
		}
	}

	successCount := 0
	var validResponses []string
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		successCount++
		validResponses = append(validResponses, o.response)
		if o.newRoot != nil {
			anchor.AddReply(o.newRoot)
		}
	}

	anchor.ClearTag(anchorTag)

	workType := "single-reply"
	if args.AllowWork {
		workType = "work"
	}
	execType := "sequential"
	if args.Parallel {
		execType = "parallel"
	}

	result := fmt.Sprintf("Successfully completed %d/%d %s %s branches.", successCount, len(args.SelfPrompts), execType, workType)
	if recombine != "none" && len(validResponses) > 0 {
		combined, err := Recombine(ctx, recombine, original.Mailbox, validResponses)
		if err != nil {
			result += fmt.Sprintf(" Recombination failed: %v", err)
		} else {
			result += "\n\nRecombination result:\n\n" + combined
		}
	}
	return result, nil
}

// executeBranch loads a fresh bot from the anchor snapshot, relocates its
// cursor to the tagged node, drives the branch's prompt, and returns its
// final response text plus the new subtree it grew off the anchor (for
// the caller to reparent onto the live tree).
func executeBranch(ctx context.Context, snapshotPath string, original *bot.Bot, anchorTag, prompt string, allowWork bool) (string, *node.Node, error) {
	branchBot, loadErrs, err := bot.Load(snapshotPath, original.Mailbox, original.Handler)
	if err != nil {
		return "", nil, fmt.Errorf("load branch snapshot: %w", err)
	}
	if len(loadErrs) > 0 {
		// Missing tools degrade the branch rather than abort it: it simply
		// can't call what didn't load.
	}
	branchBot.Autosave = false

	anchor := branchBot.Root.FindBy(func(n *node.Node) bool { return n.HasTag(anchorTag) })
	if anchor == nil {
		return "", nil, fmt.Errorf("could not locate tagged anchor %q in reloaded tree", anchorTag)
	}
	anchor.ClearTag(anchorTag)
	branchBot.Cursor = anchor

	childCountBefore := len(anchor.Replies)

	var lastResponse string
	if !allowWork {
		resp, err := branchBot.Respond(ctx, prompt)
		if err != nil {
			return "", nil, err
		}
		lastResponse = resp
	} else {
		resp, err := branchBot.Respond(ctx, prompt)
		if err != nil {
			return "", nil, err
		}
		lastResponse = resp
		for iter := 0; iter < maxAllowWorkIterations && toolWasUsedLastTurn(branchBot); iter++ {
			resp, err = branchBot.Respond(ctx, "ok")
			if err != nil {
				return "", nil, err
			}
			lastResponse = resp
		}
	}

	if len(anchor.Replies) <= childCountBefore {
		return lastResponse, nil, nil
	}
	return lastResponse, anchor.Replies[len(anchor.Replies)-1], nil
}

// toolWasUsedLastTurn reports whether the branch's most recent assistant
// turn issued any tool calls, the stopping condition for allow_work loops
// (mirrors fp.conditions.tool_not_used in the original).
func toolWasUsedLastTurn(b *bot.Bot) bool {
	cur := b.Cursor
	for cur != nil {
		if cur.Role == node.RoleAssistant {
			return len(cur.ToolCalls) > 0
		}
		cur = cur.Parent
	}
	return false
}

func placeholderToolNode(calls []node.ToolCall) *node.Node {
	n := node.New(node.RoleTool, "")
	n.ToolResults = make([]node.ToolResult, 0, len(calls))
	for _, c := range calls {
		n.ToolResults = append(n.ToolResults, node.ToolResult{
			ID:      c.ID,
			Name:    c.Name,
			Status:  "ok",
			Content: "Branching in progress...",
		})
	}
	return n
}

func validRecombineStrategy(s string) bool {
	switch s {
	case "none", "concatenate", "llm_judge", "llm_vote", "llm_merge":
		return true
	default:
		return false
	}
}

func joinNumbered(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "Branch %d:\n%s\n\n", i+1, item)
	}
	return sb.String()
}
