package bot

import (
	"fmt"

	"github.com/branchtree/bots/mailbox"
	"github.com/branchtree/bots/metrics"
	"github.com/branchtree/bots/snapshot"
	"github.com/branchtree/bots/toolhandler"
)

// Save writes b's entire conversation tree, cursor position, and tool
// registry to path as a canonical snapshot.
func (b *Bot) Save(path string) error {
	metricsBotID := b.MetricsBotID
	if metricsBotID == "" {
		metricsBotID = b.ID
	}
	snap := &snapshot.Snapshot{
		SchemaVersion:   snapshot.CurrentSchemaVersion,
		ID:              b.ID,
		Name:            b.Name,
		Provider:        b.Provider,
		Model:           b.Model,
		RoleDescription: b.RoleDescription,
		SystemMessage:   b.SystemMessage,
		TracingEnabled:  b.TracingEnabled,
		MetricsBotID:    metricsBotID,
		Root:            b.Root,
		CursorPath:      b.Cursor.IndexPath(),
		Tools:           snapshot.ToolRecordsFrom(b.Handler),
		Temperature:     b.Temperature,
		MaxTokens:       b.MaxTokens,
	}
	return snapshot.SaveToFile(snap, path)
}

// Load reads a snapshot from path into a new Bot that uses mb as its
// mailbox (snapshots never persist provider credentials). handler carries
// over any module/file-sourced tools the host program has already
// registered in this process (Go cannot look up a package-level function
// by name the way an inline constructor can be looked up); pass nil to
// start from an empty handler, which is correct only if the snapshot's
// tools are all inline. The cursor is repositioned to the saved CursorPath
// if it's still valid, else left at the root. Any tool that couldn't be
// rehydrated is reported via the returned []*snapshot.LoadError rather
// than failing the whole load.
func Load(path string, mb mailbox.Mailbox, handler *toolhandler.Handler) (*Bot, []*snapshot.LoadError, error) {
	snap, err := snapshot.LoadFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := snapshot.ValidateProviderModel(snap.Provider, snap.Model); err != nil {
		return nil, nil, err
	}

	if handler == nil {
		handler = toolhandler.New()
	}
	loadErrs := snapshot.RehydrateTools(handler, snap.Tools)

	metricsBotID := snap.MetricsBotID
	if metricsBotID == "" {
		metricsBotID = snap.ID
	}
	b := &Bot{
		ID:              snap.ID,
		Name:            snap.Name,
		Root:            snap.Root,
		Cursor:          snap.Root,
		Handler:         handler,
		Mailbox:         mb,
		Metrics:         metrics.Global(),
		Temperature:     snap.Temperature,
		MaxTokens:       snap.MaxTokens,
		Provider:        snap.Provider,
		Model:           snap.Model,
		RoleDescription: snap.RoleDescription,
		SystemMessage:   snap.SystemMessage,
		TracingEnabled:  snap.TracingEnabled,
		MetricsBotID:    metricsBotID,
	}

	if cursor, ok := snap.Root.AtIndexPath(snap.CursorPath); ok {
		b.Cursor = cursor
	}

	return b, loadErrs, nil
}

// Fork returns n independent copies of b, each with its own deep-cloned
// conversation tree (cursor repositioned to the equivalent node in the
// clone) but sharing b's mailbox, tool handler, and metrics store.
func (b *Bot) Fork(n int) []*Bot {
	if n <= 0 {
		return nil
	}
	path := b.Cursor.IndexPath()
	forks := make([]*Bot, n)
	for i := 0; i < n; i++ {
		clonedRoot := b.Root.Clone()
		cursor, ok := clonedRoot.AtIndexPath(path)
		if !ok {
			cursor = clonedRoot
		}
		forkID := fmt.Sprintf("%s-fork-%d", b.ID, i)
		forks[i] = &Bot{
			ID:              forkID,
			Name:            b.Name,
			Root:            clonedRoot,
			Cursor:          cursor,
			Handler:         b.Handler,
			Mailbox:         b.Mailbox,
			Metrics:         b.Metrics,
			Autosave:        b.Autosave,
			MaxTurns:        b.MaxTurns,
			Temperature:     b.Temperature,
			MaxTokens:       b.MaxTokens,
			Callbacks:       b.Callbacks,
			Provider:        b.Provider,
			Model:           b.Model,
			RoleDescription: b.RoleDescription,
			SystemMessage:   b.SystemMessage,
			TracingEnabled:  b.TracingEnabled,
			MetricsBotID:    forkID, // distinct per fork, per spec §4.4
		}
	}
	return forks
}
