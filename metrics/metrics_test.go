package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestBotAndGlobalTotalsAdditive(t *testing.T) {
	s := New()
	s.Record("bot-a", Event{InputTokens: 10, OutputTokens: 5})
	s.Record("bot-a", Event{InputTokens: 20, OutputTokens: 1})
	s.Record("bot-b", Event{InputTokens: 7, OutputTokens: 2})

	a := s.BotTotals("bot-a", time.Time{})
	if a.Calls != 2 || a.InputTokens != 30 || a.OutputTokens != 6 {
		t.Fatalf("bot-a totals = %+v", a)
	}

	global := s.GlobalTotals(time.Time{})
	if global.Calls != 3 || global.InputTokens != 37 {
		t.Fatalf("global totals = %+v", global)
	}
}

func TestSinceTimestampIsStrictlyAfter(t *testing.T) {
	s := New()
	cut := time.Now()
	s.Record("bot-a", Event{Timestamp: cut, InputTokens: 100})
	s.Record("bot-a", Event{Timestamp: cut.Add(time.Second), InputTokens: 1})

	totals := s.BotTotals("bot-a", cut)
	if totals.Calls != 1 || totals.InputTokens != 1 {
		t.Fatalf("totals since cut = %+v, want only the later event", totals)
	}
}

func TestGetAndClearLastMetricsResetsWatermark(t *testing.T) {
	s := New()
	s.Record("bot-a", Event{InputTokens: 5})
	first := s.GetAndClearLastMetrics("bot-a")
	if first.InputTokens != 5 {
		t.Fatalf("first = %+v, want InputTokens=5", first)
	}
	second := s.GetAndClearLastMetrics("bot-a")
	if second.Calls != 0 {
		t.Fatalf("second = %+v, want empty after clear", second)
	}
}

func TestConcurrentRecordIsRaceFree(t *testing.T) {
	s := New()
	const threads, opsPerThread = 20, 50
	var wg sync.WaitGroup
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerThread; j++ {
				s.Record("shared-bot", Event{InputTokens: 1, OutputTokens: 1})
			}
		}()
	}
	wg.Wait()

	totals := s.BotTotals("shared-bot", time.Time{})
	want := threads * opsPerThread
	if totals.Calls != want || totals.InputTokens != want {
		t.Fatalf("totals = %+v, want %d calls", totals, want)
	}
}

func TestAllBotIDsOmitsClearedBots(t *testing.T) {
	s := New()
	s.Record("bot-a", Event{InputTokens: 1})
	s.Record("bot-b", Event{InputTokens: 1})
	s.ClearBotMetrics("bot-b")

	ids := s.AllBotIDs()
	if len(ids) != 1 || ids[0] != "bot-a" {
		t.Fatalf("AllBotIDs() = %v, want [bot-a]", ids)
	}
}
