// Package engine runs per-record enrichment tasks in parallel and keeps
// the in-progress results checkpointed.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/njbuds/internal/observability"
	"github.com/IshaanNene/njbuds/internal/types"
)

// Task enriches one record. On error the record is kept as it was.
type Task func(ctx context.Context, rec types.Record) (types.Record, error)

// Pool runs a Task over every record with a bounded number of workers.
type Pool struct {
	workers    int
	checkpoint *Checkpointer
	stats      *observability.Stats
	logger     *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithCheckpointer writes partial results every N completed rows.
func WithCheckpointer(c *Checkpointer) PoolOption {
	return func(p *Pool) { p.checkpoint = c }
}

// WithStats records progress into s.
func WithStats(s *observability.Stats) PoolOption {
	return func(p *Pool) { p.stats = s }
}

// NewPool creates a pool with the given worker count.
func NewPool(workers int, logger *slog.Logger, opts ...PoolOption) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		workers: workers,
		logger:  logger.With("component", "pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.stats == nil {
		p.stats = observability.NewStats(logger)
	}
	return p
}

// Run applies task to every record and returns the results in input order.
// Each result is written back to its input position, so rows sharing an
// identity key keep their own slots. Task errors are counted and swallowed.
// If ctx is cancelled, records not yet started are returned unchanged along
// with ctx's error.
func (p *Pool) Run(ctx context.Context, records []types.Record, task Task) ([]types.Record, error) {
	total := len(records)
	p.stats.Rows.Store(int64(total))
	p.logger.Info("pool starting", "workers", p.workers, "rows", total)

	var (
		mu      sync.Mutex
		current = append([]types.Record(nil), records...)
		done    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := p.runOne(gctx, task, records[i])

			mu.Lock()
			current[i] = out
			done++
			n := done
			var snap []types.Record
			if p.checkpoint != nil && p.checkpoint.Due(n) {
				snap = append([]types.Record(nil), current...)
			}
			mu.Unlock()

			if err != nil {
				p.stats.FetchErrors.Add(1)
				p.logger.Debug("task failed", "name", records[i].Name, "error", err)
			}
			p.stats.Processed.Add(1)
			p.stats.LogProgress(n, total)

			if snap != nil {
				_ = p.checkpoint.Maybe(gctx, n, func() []types.Record { return snap })
			}
			return nil
		})
	}
	_ = g.Wait()

	return current, ctx.Err()
}

// runOne calls task, converting a panic into an error.
func (p *Pool) runOne(ctx context.Context, task Task, rec types.Record) (out types.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = rec, fmt.Errorf("task panic: %v", r)
		}
	}()
	out, err = task(ctx, rec)
	if err != nil {
		return rec, err
	}
	return out, nil
}
