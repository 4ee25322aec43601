// Package runtime hosts the background loops around the engine: the typing
// presence pruner and the feed that funnels transport frames into dispatch.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"chat-sync/observability"
	"chat-sync/store"
)

// DefaultPruneInterval keeps presence indicators responsive against the 10s
// typing TTL without busy-waiting.
const DefaultPruneInterval = 2 * time.Second

// Pruner sweeps expired typing entries on a fixed cadence. The sweep itself
// is a pure function of the clock; the pruner only supplies the ticks.
type Pruner struct {
	store    *store.Store
	interval time.Duration
	metrics  *observability.Metrics
	log      *slog.Logger
}

func NewPruner(st *store.Store, interval time.Duration, metrics *observability.Metrics, log *slog.Logger) *Pruner {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	return &Pruner{store: st, interval: interval, metrics: metrics, log: log}
}

func (p *Pruner) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Stopping pruner")
			return ctx.Err()
		case now := <-ticker.C:
			pruned := p.store.PruneTyping(now)
			if pruned > 0 {
				p.log.Debug("typing entries pruned", "count", pruned)
			}
			if p.metrics != nil {
				p.metrics.AddTypingPruned(pruned)
			}
		}
	}
}
