package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/IshaanNene/njbuds/internal/observability"
	"github.com/IshaanNene/njbuds/internal/storage"
	"github.com/IshaanNene/njbuds/internal/types"
)

// Checkpointer periodically writes the in-progress record set so a crash
// loses at most one interval of work. Each write replaces the previous one.
type Checkpointer struct {
	sink   storage.Sink
	every  int
	stats  *observability.Stats
	logger *slog.Logger

	mu     sync.Mutex
	lastAt int
}

// NewCheckpointer writes to sink every `every` processed rows.
// stats may be nil.
func NewCheckpointer(sink storage.Sink, every int, stats *observability.Stats, logger *slog.Logger) *Checkpointer {
	if every < 1 {
		every = 1
	}
	return &Checkpointer{
		sink:   sink,
		every:  every,
		stats:  stats,
		logger: logger.With("component", "checkpoint"),
	}
}

// Due reports whether processed rows reach a checkpoint boundary.
func (c *Checkpointer) Due(processed int) bool {
	return processed > 0 && processed%c.every == 0
}

// Maybe writes snapshot() when processed is due and newer than the last
// write. snapshot is only called when a write happens.
func (c *Checkpointer) Maybe(ctx context.Context, processed int, snapshot func() []types.Record) error {
	if !c.Due(processed) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if processed <= c.lastAt {
		return nil
	}
	if err := c.write(ctx, snapshot()); err != nil {
		return err
	}
	c.lastAt = processed
	c.logger.Info("checkpoint written", "sink", c.sink.Name(), "processed", processed)
	return nil
}

// Flush writes records unconditionally. Used at the end of a run and when
// a run is interrupted.
func (c *Checkpointer) Flush(ctx context.Context, records []types.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(ctx, records)
}

func (c *Checkpointer) write(ctx context.Context, records []types.Record) error {
	// An interrupted run still flushes, so the write gets its own context.
	if err := c.sink.Store(context.WithoutCancel(ctx), records); err != nil {
		c.logger.Error("checkpoint failed", "sink", c.sink.Name(), "error", err)
		return err
	}
	if c.stats != nil {
		c.stats.Checkpoints.Add(1)
	}
	return nil
}
