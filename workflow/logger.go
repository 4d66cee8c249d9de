package workflow

import (
	"context"
	"log/slog"
)

// replayHandler drops log records while the orchestration is replaying, so every message is only
// emitted once over the lifetime of an instance.
type replayHandler struct {
	ctx *OrchestrationContext
	h   slog.Handler
}

var _ slog.Handler = (*replayHandler)(nil)

func (rh *replayHandler) Enabled(c context.Context, level slog.Level) bool {
	return !rh.ctx.isReplaying && rh.h.Enabled(c, level)
}

func (rh *replayHandler) Handle(c context.Context, r slog.Record) error {
	if rh.ctx.isReplaying {
		return nil
	}

	return rh.h.Handle(c, r)
}

func (rh *replayHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &replayHandler{ctx: rh.ctx, h: rh.h.WithAttrs(attrs)}
}

func (rh *replayHandler) WithGroup(name string) slog.Handler {
	return &replayHandler{ctx: rh.ctx, h: rh.h.WithGroup(name)}
}
