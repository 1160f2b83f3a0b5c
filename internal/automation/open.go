package automation

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/IshaanNene/njbuds/internal/config"
)

// Opener opens a rendered page that the caller closes.
type Opener interface {
	Open(ctx context.Context, rawURL string, settle time.Duration) (*rod.Page, error)
}

// OpenCRC opens the CRC dispensary finder page.
func OpenCRC(ctx context.Context, o Opener, cfg *config.Config, logger *slog.Logger) (*Widget, error) {
	page, err := o.Open(ctx, cfg.Sources.CRCURL, cfg.Browser.PageSettle)
	if err != nil {
		return nil, err
	}
	return NewWidget(page, cfg.Browser, logger), nil
}

// OpenAtlist finds the Atlist map embedded in the CRC page, falling back to
// the configured URL, and opens it. It returns the map and its URL.
func OpenAtlist(ctx context.Context, o Opener, cfg *config.Config, logger *slog.Logger) (*Widget, string, error) {
	src := cfg.Sources.AtlistFallback
	crc, err := OpenCRC(ctx, o, cfg, logger)
	if err != nil {
		logger.Warn("CRC page unavailable, using fallback map", "error", err)
	} else {
		src = crc.AtlistSource(ctx, cfg.Sources.AtlistFallback)
		_ = crc.Close()
	}
	logger.Info("atlist source", "url", src)

	page, err := o.Open(ctx, src, cfg.Browser.WidgetSettle)
	if err != nil {
		return nil, src, err
	}
	return NewWidget(page, cfg.Browser, logger), src, nil
}
