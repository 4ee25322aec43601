package runtime

import (
	"context"
	"log/slog"

	"chat-sync/engine"
)

// Feed funnels raw frames from the transport subscription into the engine,
// one at a time. The channel is the single dispatch point: frames apply as
// atomic store mutations in arrival order, which is all the ordering the
// transport guarantees anyway.
type Feed struct {
	engine *engine.Engine
	frames <-chan []byte
	log    *slog.Logger
}

func NewFeed(e *engine.Engine, frames <-chan []byte, log *slog.Logger) *Feed {
	return &Feed{engine: e, frames: frames, log: log}
}

func (f *Feed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			f.log.Debug("Stopping feed")
			return ctx.Err()
		case frame, ok := <-f.frames:
			if !ok {
				f.log.Debug("Transport channel closed")
				return nil
			}
			f.engine.Dispatch(frame)
		}
	}
}
