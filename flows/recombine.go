package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/branchtree/bots/bot"
	"github.com/branchtree/bots/mailbox"
)

// Recombine folds a set of independent branch responses into one, per
// strategy. "concatenate" is pure string joining; the llm_* strategies spin
// up a fresh, throwaway *bot.Bot against mb to do the folding — per the
// decision recorded in DESIGN.md, recombination never reuses the caller's
// own conversation tree, so the caller's tree is provably untouched by the
// act of recombining.
func Recombine(ctx context.Context, strategy string, mb mailbox.Mailbox, responses []string) (string, error) {
	switch strategy {
	case "concatenate", "":
		return Concatenate(responses), nil
	case "llm_merge":
		return llmRecombine(ctx, mb, "llm_merge", mergePrompt(responses))
	case "llm_vote":
		return llmRecombine(ctx, mb, "llm_vote", votePrompt(responses))
	case "llm_judge":
		return llmRecombine(ctx, mb, "llm_judge", judgePrompt(responses))
	default:
		return "", fmt.Errorf("recombine: unknown strategy %q", strategy)
	}
}

// Concatenate is a pure newline join of branch responses, with no model
// call involved: concatenate([x]) == x.
func Concatenate(responses []string) string {
	return strings.Join(responses, "\n")
}

func llmRecombine(ctx context.Context, mb mailbox.Mailbox, label, prompt string) (string, error) {
	if mb == nil {
		return "", fmt.Errorf("%s: no mailbox available to recombine with", label)
	}
	helper := bot.New(label+"-helper", mb)
	return helper.Respond(ctx, prompt)
}

func mergePrompt(responses []string) string {
	return "The following are independent responses to the same task. Synthesize them " +
		"into a single, coherent response that preserves every distinct useful idea and " +
		"resolves any contradictions:\n\n" + joinNumbered(responses)
}

func votePrompt(responses []string) string {
	return "The following are independent responses to the same task. Vote for the single " +
		"best one and return only that response verbatim:\n\n" + joinNumbered(responses)
}

func judgePrompt(responses []string) string {
	return "The following are independent responses to the same task. Judge them against " +
		"each other, then return the best response along with a brief justification for " +
		"why it was chosen:\n\n" + joinNumbered(responses)
}
