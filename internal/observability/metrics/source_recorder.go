package metrics

import (
	"sort"
	"sync"
	"time"
)

// Resolution sources reported by the departure resolver.
const (
	SourceCanonical  = "canonical"
	SourceLiveAPI    = "live_api"
	SourceAggregator = "aggregator"
	SourceNone       = "none"
)

// SourceRecorder keeps a sliding window of recent resolutions per source so
// the schedule-sources endpoint can report counts and percentages. Prometheus
// counters cover the cumulative view; this recorder answers "recent".
type SourceRecorder struct {
	mu     sync.Mutex
	window time.Duration
	events []sourceEvent
}

type sourceEvent struct {
	source string
	at     time.Time
}

// SourceBreakdown is one source's share of recent resolutions.
type SourceBreakdown struct {
	Source     string  `json:"source"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

func NewSourceRecorder() *SourceRecorder {
	return &SourceRecorder{window: 24 * time.Hour}
}

func NewSourceRecorderWithWindow(window time.Duration) *SourceRecorder {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &SourceRecorder{window: window}
}

// Record notes one resolution answered by source.
func (r *SourceRecorder) Record(source string, at time.Time) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(at)
	r.events = append(r.events, sourceEvent{source: source, at: at})
}

// Snapshot returns per-source counts and percentages for the window ending at now.
func (r *SourceRecorder) Snapshot(now time.Time) []SourceBreakdown {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)

	counts := map[string]int{}
	for _, event := range r.events {
		counts[event.source]++
	}
	total := len(r.events)

	breakdown := make([]SourceBreakdown, 0, len(counts))
	for source, count := range counts {
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		breakdown = append(breakdown, SourceBreakdown{
			Source:     source,
			Count:      count,
			Percentage: pct,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Source < breakdown[j].Source
	})
	return breakdown
}

func (r *SourceRecorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	kept := r.events[:0]
	for _, event := range r.events {
		if event.at.After(cutoff) {
			kept = append(kept, event)
		}
	}
	r.events = kept
}
