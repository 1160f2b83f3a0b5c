package enrich

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/IshaanNene/njbuds/internal/reconcile"
	"github.com/IshaanNene/njbuds/internal/storage"
	"github.com/IshaanNene/njbuds/internal/types"
)

// Resume merges a previous, possibly partial, output into base so websites
// and phones already found are kept. A missing file leaves base as is.
func Resume(base []types.Record, prevPath string, logger *slog.Logger) ([]types.Record, error) {
	prev, err := storage.ReadCSV(prevPath)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, err
	}
	merged, ms := reconcile.Merge(base, prev)
	logger.Info("resumed from previous output",
		"path", prevPath,
		"matched", ms.Matched,
		"websites", ms.WebsitesFilled,
		"phones", ms.PhonesFilled,
	)
	return merged, nil
}
