package observability

import (
	"log/slog"
	"sync/atomic"
)

// Stats aggregates the reconciliation counters for the host UI.
type Stats struct {
	EventsApplied uint64 `json:"events_applied"`
	EventsDropped uint64 `json:"events_dropped"`
	LocalSends    uint64 `json:"local_sends"`
	TypingPruned  uint64 `json:"typing_pruned"`
}

// Metrics tracks engine activity with atomic counters.
type Metrics struct {
	log *slog.Logger

	eventsApplied uint64
	eventsDropped uint64
	localSends    uint64
	typingPruned  uint64
}

func NewMetrics(log *slog.Logger) *Metrics {
	return &Metrics{log: log}
}

func (m *Metrics) IncrEventsApplied() {
	atomic.AddUint64(&m.eventsApplied, 1)
}

func (m *Metrics) IncrEventsDropped() {
	atomic.AddUint64(&m.eventsDropped, 1)
}

func (m *Metrics) IncrLocalSends() {
	atomic.AddUint64(&m.localSends, 1)
}

func (m *Metrics) AddTypingPruned(n int) {
	if n > 0 {
		atomic.AddUint64(&m.typingPruned, uint64(n))
	}
}

func (m *Metrics) Stats() Stats {
	return Stats{
		EventsApplied: atomic.LoadUint64(&m.eventsApplied),
		EventsDropped: atomic.LoadUint64(&m.eventsDropped),
		LocalSends:    atomic.LoadUint64(&m.localSends),
		TypingPruned:  atomic.LoadUint64(&m.typingPruned),
	}
}
