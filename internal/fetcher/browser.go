package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/types"
)

// Browser drives a headless Chromium through Rod. Pages are opened for
// interactive use (Open) or rendered and returned as HTML (Get).
type Browser struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	cfg       config.BrowserConfig
	userAgent string
	logger    *slog.Logger
}

// NewBrowser launches Chromium, or attaches to cfg.ControlURL when set.
func NewBrowser(cfg config.BrowserConfig, userAgent string, logger *slog.Logger) (*Browser, error) {
	b := &Browser{
		cfg:       cfg,
		userAgent: userAgent,
		logger:    logger.With("component", "browser"),
	}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		b.launcher = launcher.New().
			Headless(cfg.Headless).
			Set("disable-gpu").
			Set("disable-dev-shm-usage").
			Set("no-sandbox").
			Set("disable-setuid-sandbox").
			Set("disable-blink-features", "AutomationControlled").
			Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))

		u, err := b.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if b.launcher != nil {
			b.launcher.Kill()
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	b.browser = browser

	b.logger.Info("browser ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"attached", cfg.ControlURL != "",
	)
	return b, nil
}

// newPage creates a blank page, stealth-patched when configured.
func (b *Browser) newPage() (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if b.cfg.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, err
	}

	if b.userAgent != "" && !b.cfg.Stealth {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.userAgent}); err != nil {
			b.logger.Warn("failed to set user agent", "error", err)
		}
	}
	return page, nil
}

// Open navigates a fresh page to rawURL, waits for the load event and then
// for settle so client-side widgets can render. The caller closes the page.
func (b *Browser) Open(ctx context.Context, rawURL string, settle time.Duration) (*rod.Page, error) {
	page, err := b.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("new page: %w", err), Retryable: true}
	}
	page = page.Context(ctx)

	if err := page.Timeout(b.cfg.PageTimeout).Navigate(rawURL); err != nil {
		_ = page.Close()
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if err := page.Timeout(b.cfg.PageTimeout).WaitLoad(); err != nil {
		b.logger.Warn("page load timeout, continuing", "url", rawURL, "error", err)
	}

	if err := Sleep(ctx, settle); err != nil {
		_ = page.Close()
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	b.logger.Debug("page open", "url", rawURL)
	return page, nil
}

// Get renders rawURL and returns its HTML.
func (b *Browser) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*types.Response, error) {
	start := time.Now()
	o := buildOptions(opts)

	page, err := b.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("new page: %w", err), Retryable: true}
	}
	defer page.Close()
	page = page.Context(ctx)

	if len(o.headers) > 0 {
		headers := make([]string, 0, len(o.headers)*2)
		for k, vals := range o.headers {
			for _, v := range vals {
				headers = append(headers, k, v)
			}
		}
		if _, err := page.SetExtraHeaders(headers); err != nil {
			b.logger.Warn("failed to set headers", "error", err)
		}
	}

	if err := page.Timeout(b.cfg.PageTimeout).Navigate(rawURL); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if err := page.Timeout(b.cfg.PageTimeout).WaitStable(300 * time.Millisecond); err != nil {
		b.logger.Warn("page stability timeout, continuing", "url", rawURL, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	b.logger.Debug("browser fetch complete",
		"url", rawURL,
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)
	return types.NewBrowserResponse(rawURL, finalURL, []byte(html), duration), nil
}

// Close shuts down the browser and, if it was launched here, the process.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	return err
}

// Type returns the fetcher type identifier.
func (b *Browser) Type() string {
	return "browser"
}
