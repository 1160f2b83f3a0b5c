// Package pipeline normalizes harvested records before they are merged.
package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/njbuds/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.Record) (*types.Record, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the pipeline every harvest step runs: clean and trim text,
// default the state, normalize phones and websites, drop incomplete rows,
// then drop (name, street) duplicates.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&CleanTextMiddleware{})
	p.Use(&DefaultStateMiddleware{State: "NJ"})
	p.Use(&PhoneFormatMiddleware{})
	p.Use(&WebsiteMiddleware{})
	p.Use(&RequiredFieldsMiddleware{})
	p.Use(NewDedupMiddleware())
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.Record) (*types.Record, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:  mw.Name(),
				Record: *current,
				Err:    err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "name", current.Name)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Run processes every record and returns the survivors in input order with
// the number dropped. A middleware error drops that record and is logged.
func (p *Pipeline) Run(records []types.Record) ([]types.Record, int) {
	out := make([]types.Record, 0, len(records))
	dropped := 0
	for i := range records {
		rec := records[i]
		result, err := p.Process(&rec)
		if err != nil {
			p.logger.Warn("record rejected", "error", err)
			dropped++
			continue
		}
		if result == nil {
			dropped++
			continue
		}
		out = append(out, *result)
	}
	return out, dropped
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
