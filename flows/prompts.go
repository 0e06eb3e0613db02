package flows

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/branchtree/bots/bot"
	"github.com/branchtree/bots/node"
)

// MaxParallelism caps how many branches run concurrently in ParBranch,
// ParBranchWhile, PromptFor(branch=true), and branch_self(parallel=true):
// a bounded worker pool, never one goroutine per branch. Defaults to
// runtime.GOMAXPROCS(0); callers may lower (or raise) it before use.
var MaxParallelism = runtime.GOMAXPROCS(0)

// Condition decides whether a PromptWhile/ParBranchWhile loop should keep
// iterating, given the bot's state after its latest response.
type Condition func(b *bot.Bot, lastResponse string, iteration int) bool

// ToolNotUsed is the stock stopping condition: stop once the bot's last
// assistant turn issued no tool calls.
func ToolNotUsed(b *bot.Bot, lastResponse string, iteration int) bool {
	return toolWasUsedLastTurn(b)
}

// MaxIterations caps a loop at n iterations regardless of any other
// condition, composed as: cond := And(MaxIterations(5), ToolNotUsed)
func MaxIterations(n int) Condition {
	return func(b *bot.Bot, lastResponse string, iteration int) bool {
		return iteration+1 < n
	}
}

// And combines conditions: the loop continues only while every one holds.
func And(conds ...Condition) Condition {
	return func(b *bot.Bot, lastResponse string, iteration int) bool {
		for _, c := range conds {
			if !c(b, lastResponse, iteration) {
				return false
			}
		}
		return true
	}
}

// Chain drives b through each prompt in order, feeding each response back
// into the tree as conversational history for the next prompt, and returns
// the final response plus the conversation node it landed on.
func Chain(ctx context.Context, b *bot.Bot, prompts []string) (string, *node.Node, error) {
	var last string
	for _, p := range prompts {
		resp, err := b.Respond(ctx, p)
		if err != nil {
			return "", nil, fmt.Errorf("chain: %w", err)
		}
		last = resp
	}
	return last, b.Cursor, nil
}

// PromptWhile repeats prompt against b for as long as cond holds, up to a
// hard ceiling of maxIterations (a non-positive ceiling means unlimited),
// returning the final response plus the conversation node it landed on.
func PromptWhile(ctx context.Context, b *bot.Bot, prompt string, cond Condition, maxIterations int) (string, *node.Node, error) {
	var last string
	for i := 0; maxIterations <= 0 || i < maxIterations; i++ {
		resp, err := b.Respond(ctx, prompt)
		if err != nil {
			return "", nil, fmt.Errorf("prompt_while: %w", err)
		}
		last = resp
		if !cond(b, last, i) {
			break
		}
	}
	return last, b.Cursor, nil
}

// PromptFor drives b through prompt exactly n times. When branch is false
// each call chains off the previous one's resulting cursor; when branch is
// true each call is driven from a fresh Fork of b so the n runs are
// mutually independent, bounded by MaxParallelism concurrent branches.
// Returns each run's response and the conversation node it landed on, in
// input order.
func PromptFor(ctx context.Context, b *bot.Bot, prompt string, n int, branch bool) ([]string, []*node.Node, error) {
	if !branch {
		responses := make([]string, 0, n)
		nodes := make([]*node.Node, 0, n)
		for i := 0; i < n; i++ {
			resp, err := b.Respond(ctx, prompt)
			if err != nil {
				return nil, nil, fmt.Errorf("prompt_for: %w", err)
			}
			responses = append(responses, resp)
			nodes = append(nodes, b.Cursor)
		}
		return responses, nodes, nil
	}

	forks := b.Fork(n)
	responses := make([]string, n)
	nodes := make([]*node.Node, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelism)
	for i, f := range forks {
		i, f := i, f
		g.Go(func() error {
			resp, err := f.Respond(ctx, prompt)
			if err != nil {
				return fmt.Errorf("prompt_for[%d]: %w", i, err)
			}
			responses[i] = resp
			nodes[i] = f.Cursor
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return responses, nodes, nil
}

// ParBranch forks b once per prompt and drives each fork's matching prompt
// concurrently (bounded by MaxParallelism), returning one response and
// landing node per prompt, in input order.
func ParBranch(ctx context.Context, b *bot.Bot, prompts []string) ([]string, []*node.Node, error) {
	forks := b.Fork(len(prompts))
	responses := make([]string, len(prompts))
	nodes := make([]*node.Node, len(prompts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelism)
	for i, p := range prompts {
		i, p, f := i, p, forks[i]
		g.Go(func() error {
			resp, err := f.Respond(ctx, p)
			if err != nil {
				return fmt.Errorf("par_branch[%d]: %w", i, err)
			}
			responses[i] = resp
			nodes[i] = f.Cursor
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return responses, nodes, nil
}

// ParBranchWhile forks b once per prompt and drives each fork's matching
// prompt repeatedly, independently, for as long as cond holds for that
// fork (up to maxIterations each), bounded by MaxParallelism concurrent
// branches. Returns one final response and landing node per prompt.
func ParBranchWhile(ctx context.Context, b *bot.Bot, prompts []string, cond Condition, maxIterations int) ([]string, []*node.Node, error) {
	forks := b.Fork(len(prompts))
	responses := make([]string, len(prompts))
	nodes := make([]*node.Node, len(prompts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelism)
	for i, p := range prompts {
		i, p, f := i, p, forks[i]
		g.Go(func() error {
			resp, landedNode, err := PromptWhile(ctx, f, p, cond, maxIterations)
			if err != nil {
				return fmt.Errorf("par_branch_while[%d]: %w", i, err)
			}
			responses[i] = resp
			nodes[i] = landedNode
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return responses, nodes, nil
}
