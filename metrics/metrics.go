// Package metrics implements the thread-safe per-bot and global token/cost
// accounting the framework tracks for every mailbox call. Grounded on
// pkg/registry.BaseRegistry's mutex-guarded-map shape, but backed by an
// append-only event log (rather than Prometheus vectors) since the
// contract requires timestamp-filtered queries, not just running totals;
// see PrometheusExporter for the optional ambient mirror.
package metrics

import (
	"sync"
	"time"
)

// Event is one mailbox call's token usage, attributed to a bot and to the
// global store simultaneously.
type Event struct {
	Timestamp    time.Time
	InputTokens  int
	OutputTokens int
	CachedTokens int
	CostUSD      float64
}

// Totals is an aggregation over a slice of Events.
type Totals struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	CachedTokens int
	CostUSD      float64
}

func (t *Totals) add(e Event) {
	t.Calls++
	t.InputTokens += e.InputTokens
	t.OutputTokens += e.OutputTokens
	t.CachedTokens += e.CachedTokens
	t.CostUSD += e.CostUSD
}

// Store is a thread-safe, append-only event log keyed by bot id, with a
// mirrored global log across all bots.
type Store struct {
	mu       sync.Mutex
	byBot    map[string][]Event
	global   []Event
	exporter *PrometheusExporter
}

// New returns an empty Store.
func New() *Store {
	return &Store{byBot: make(map[string][]Event)}
}

var globalStore = New()

// Global returns the process-wide default Store, shared by every Bot that
// doesn't set its own.
func Global() *Store {
	return globalStore
}

// WithExporter attaches a Prometheus mirror; every Record call after this
// also increments the exporter's counters.
func (s *Store) WithExporter(e *PrometheusExporter) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exporter = e
	return s
}

// Record appends ev to botID's log and to the global log. If ev.Timestamp
// is zero, it is stamped with the current time.
func (s *Store) Record(botID string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.byBot[botID] = append(s.byBot[botID], ev)
	s.global = append(s.global, ev)
	exporter := s.exporter
	s.mu.Unlock()

	if exporter != nil {
		exporter.observe(botID, ev)
	}
}

// BotTotals aggregates botID's events with Timestamp strictly greater than
// sinceTS (zero value means "all events").
func (s *Store) BotTotals(botID string, sinceTS time.Time) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t Totals
	for _, e := range s.byBot[botID] {
		if e.Timestamp.After(sinceTS) {
			t.add(e)
		}
	}
	return t
}

// GlobalTotals aggregates every bot's events with Timestamp strictly
// greater than sinceTS.
func (s *Store) GlobalTotals(sinceTS time.Time) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t Totals
	for _, e := range s.global {
		if e.Timestamp.After(sinceTS) {
			t.add(e)
		}
	}
	return t
}

// GetAndClearLastMetrics returns the totals of botID's whole event log and
// then empties that log, so the next call (and BotTotals) sees only events
// recorded after this one. The global log is not affected.
func (s *Store) GetAndClearLastMetrics(botID string) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.byBot[botID]
	var t Totals
	for _, e := range events {
		t.add(e)
	}
	s.byBot[botID] = nil
	return t
}

// ClearBotMetrics discards botID's event log without affecting the global
// log or other bots.
func (s *Store) ClearBotMetrics(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byBot, botID)
}

// AllBotIDs returns every bot id with a non-empty event log, in no
// particular order.
func (s *Store) AllBotIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.byBot))
	for id, events := range s.byBot {
		if len(events) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
