// Command botctl is a thin smoke-test entry point for the bot framework: it
// loads a config file, builds one bot, and drives a single prompt through
// it from the command line. It is not a REPL or a multi-agent server —
// those are explicitly out of scope for this framework.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/branchtree/bots/bot"
	"github.com/branchtree/bots/config"
	"github.com/branchtree/bots/flows"
	"github.com/branchtree/bots/mailbox"
	"github.com/branchtree/bots/toolhandler"
	"github.com/branchtree/bots/tracing"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		llmName    = flag.String("llm", "default-llm", "name of the llms entry in the config to use")
		prompt     = flag.String("prompt", "", "prompt text to send the bot")
		savePath   = flag.String("save", "", "path to save the conversation snapshot to after responding")
		loadPath   = flag.String("load", "", "path to load a conversation snapshot from before responding")
		selfTools  = flag.Bool("self-tools", false, "register branch_self and the other self-tools on the bot")
	)
	flag.Parse()

	if err := run(context.Background(), *configPath, *llmName, *prompt, *savePath, *loadPath, *selfTools); err != nil {
		fmt.Fprintln(os.Stderr, "botctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, llmName, prompt, savePath, loadPath string, selfTools bool) error {
	if configPath == "" {
		return fmt.Errorf("-config is required")
	}
	if prompt == "" {
		return fmt.Errorf("-prompt is required")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tp, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.Global.Tracing.Enabled,
		EndpointURL:  cfg.Global.Tracing.EndpointURL,
		SamplingRate: cfg.Global.Tracing.SamplingRate,
		ServiceName:  cfg.Global.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if shutdowner, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			_ = shutdowner.Shutdown(ctx)
		}
	}()

	llmCfg, ok := cfg.LLMs[llmName]
	if !ok {
		return fmt.Errorf("no llms entry named %q in config", llmName)
	}
	mb, err := mailbox.NewFromConfig(llmCfg.Type, llmCfg.APIKey, llmCfg.Model, llmCfg.Host)
	if err != nil {
		return fmt.Errorf("build mailbox: %w", err)
	}

	var b *bot.Bot
	if loadPath != "" {
		// Module-sourced tools (including the self-tools) must already be
		// registered on the handler before loading: Go can't look a
		// package-level function up by name the way an inline constructor
		// can be, so the snapshot's record of them only ever confirms
		// they're present, it never re-creates them.
		seedHandler := toolhandler.New()
		if selfTools {
			if err := flows.RegisterSelfTools(&bot.Bot{Handler: seedHandler}); err != nil {
				return fmt.Errorf("register self tools: %w", err)
			}
		}
		loaded, loadErrs, err := bot.Load(loadPath, mb, seedHandler)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		for _, le := range loadErrs {
			fmt.Fprintf(os.Stderr, "botctl: warning: %s\n", le)
		}
		b = loaded
	} else {
		b = bot.New(llmName, mb)
		b.Temperature = llmCfg.Temperature
		b.MaxTokens = llmCfg.MaxTokens
		b.Provider = llmCfg.Type
		b.Model = llmCfg.Model
		b.TracingEnabled = cfg.Global.Tracing.Enabled
		if selfTools {
			if err := flows.RegisterSelfTools(b); err != nil {
				return fmt.Errorf("register self tools: %w", err)
			}
		}
	}

	reply, err := b.Respond(ctx, prompt)
	if err != nil {
		return fmt.Errorf("respond: %w", err)
	}
	fmt.Println(reply)

	totals := b.Metrics.BotTotals(b.ID, time.Time{})
	fmt.Fprintf(os.Stderr, "botctl: %d input tokens, %d output tokens, $%.4f\n",
		totals.InputTokens, totals.OutputTokens, totals.CostUSD)

	if savePath != "" {
		if err := b.Save(savePath); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	return nil
}
