// Package bots implements a framework for stateful, tool-using LLM agents
// built around a persistent, navigable conversation tree.
//
// A Bot owns a cursor into a ConversationNode tree, a ToolHandler that
// introspects Go functions into provider-ready schemas, and a Mailbox that
// adapts a specific provider's wire format to a common request/response
// contract. Conversations branch and reparent rather than simply append:
// the functional-prompt helpers in package flows (Chain, PromptWhile,
// ParBranch, ...) and the self-registered branch_self tool let a bot fork
// itself, explore several lines of reasoning concurrently, and recombine
// the results back onto a single anchor node.
//
// # Quick Start
//
//	b := bot.New("assistant", mailbox.NewAnthropic(apiKey, "claude-sonnet-4-20250514"))
//	toolhandler.RegisterFunc(b.Handler, "lookup", "Look up the current weather for a city.", lookup)
//	b.Handler.Activate("lookup")
//	reply, err := b.Respond(ctx, "what's the weather in Lisbon?")
//
// # Persistence
//
// Bot.Save/Load round-trip the entire conversation tree plus cursor
// position and active tool set to a single JSON snapshot file (package
// snapshot), letting a bot be paused and resumed across process restarts.
//
// # Metrics and tracing
//
// Package metrics keeps a thread-safe per-bot and global log of token/cost
// events queryable by time range; package tracing adds optional span
// instrumentation around Respond, provider calls, and tool execution,
// gated by an environment-driven kill switch so it costs nothing when
// unused.
//
// # Scope
//
// This package does not provide a CLI/REPL, concrete tool implementations
// (file editors, search, document parsers), or vendor SDK wiring beyond the
// Mailbox contract — only the adapter interface is in scope, not any
// particular provider's client library.
package bots
