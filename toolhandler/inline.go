package toolhandler

import "sync"

// Constructor builds and registers an inline tool on h under the given
// name. Inline constructors are registered once, at process start, keyed
// by the same name the tool itself will carry; this is how a saved
// snapshot's SourceInline entries are rehydrated on load, since Go cannot
// recompile captured source text the way the original implementation did.
type Constructor func(h *Handler) error

var (
	inlineMu           sync.RWMutex
	inlineConstructors = map[string]Constructor{}
)

// RegisterInlineConstructor makes ctor available under name for later
// rehydration by RehydrateInline. Intended to be called from an init()
// function or equivalent process-startup path, not per-bot.
func RegisterInlineConstructor(name string, ctor Constructor) {
	inlineMu.Lock()
	defer inlineMu.Unlock()
	inlineConstructors[name] = ctor
}

// RehydrateInline looks up name in the process-global constructor table
// and, if found, runs it against h. Returns loaded=false (not an error) if
// no constructor is registered under name in this process — the caller
// records this as a load_error on the snapshot entry rather than failing
// the whole load, per the "never silently drop a tool" rule.
func RehydrateInline(h *Handler, name string) (loaded bool, err error) {
	inlineMu.RLock()
	ctor, ok := inlineConstructors[name]
	inlineMu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := ctor(h); err != nil {
		return false, err
	}
	return true, nil
}
