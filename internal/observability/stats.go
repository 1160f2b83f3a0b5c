// Package observability tracks per-run counters and writes the run summary.
package observability

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Stats tracks what a run did. All counters are safe for concurrent use.
type Stats struct {
	Rows            atomic.Int64
	Processed       atomic.Int64
	WebsitesFilled  atomic.Int64 // empty website set
	WebsitesUpdated atomic.Int64 // website replaced by the post-redirect URL
	PhonesFilled    atomic.Int64
	FetchErrors     atomic.Int64
	Dropped         atomic.Int64
	Checkpoints     atomic.Int64

	start  time.Time
	logger *slog.Logger
}

// NewStats creates a Stats whose clock starts now.
func NewStats(logger *slog.Logger) *Stats {
	return &Stats{
		start:  time.Now(),
		logger: logger.With("component", "stats"),
	}
}

// Snapshot returns the counters as a flat map for logging.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"rows":             s.Rows.Load(),
		"processed":        s.Processed.Load(),
		"websites_filled":  s.WebsitesFilled.Load(),
		"websites_updated": s.WebsitesUpdated.Load(),
		"phones_filled":    s.PhonesFilled.Load(),
		"fetch_errors":     s.FetchErrors.Load(),
		"dropped":          s.Dropped.Load(),
		"checkpoints":      s.Checkpoints.Load(),
		"elapsed":          time.Since(s.start).Round(time.Second).String(),
	}
}

// Updated is the number of rows whose website or phone changed.
func (s *Stats) Updated() int64 {
	return s.WebsitesFilled.Load() + s.WebsitesUpdated.Load() + s.PhonesFilled.Load()
}

// LogProgress emits a progress line every 10 rows and on the last row.
func (s *Stats) LogProgress(row, total int) {
	if row%10 != 0 && row != total {
		return
	}
	s.logger.Info("progress",
		"row", row,
		"total", total,
		"websites", s.WebsitesFilled.Load()+s.WebsitesUpdated.Load(),
		"phones", s.PhonesFilled.Load(),
	)
}

// LogSummary emits the final counters.
func (s *Stats) LogSummary(msg string) {
	snap := s.Snapshot()
	args := make([]any, 0, len(snap)*2)
	for _, k := range []string{"rows", "processed", "websites_filled", "websites_updated", "phones_filled", "fetch_errors", "dropped", "checkpoints", "elapsed"} {
		args = append(args, k, snap[k])
	}
	s.logger.Info(msg, args...)
}

// WriteSummary writes the short human-readable enrichment log to path.
func (s *Stats) WriteSummary(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}
	body := fmt.Sprintf("Updated website on %d rows\nFilled phone on   %d rows\n",
		s.WebsitesFilled.Load()+s.WebsitesUpdated.Load(), s.PhonesFilled.Load())
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
