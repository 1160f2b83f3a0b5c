package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/types"
)

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client  *http.Client
	cfg     config.HTTPConfig
	limiter *HostLimiter
	logger  *slog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg config.HTTPConfig, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded below, including brotli
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("max redirects (10) reached")
			}
			return nil
		},
	}

	return &HTTPFetcher{
		client:  client,
		cfg:     cfg,
		limiter: NewHostLimiter(cfg.RatePerHost, cfg.BurstPerHost),
		logger:  logger.With("component", "http_fetcher"),
	}, nil
}

// Get fetches rawURL, retrying transient failures up to MaxRetries times.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*types.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrInvalidURL}
	}
	o := buildOptions(opts)

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := f.cfg.RetryDelay
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > 0 {
				wait = fe.RetryAfter
			}
			f.logger.Debug("retrying", "url", rawURL, "attempt", attempt, "wait", wait, "error", lastErr)
			if err := Sleep(ctx, wait); err != nil {
				return nil, &types.FetchError{URL: rawURL, Err: err}
			}
		}

		resp, err := f.do(ctx, rawURL, o)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.IsRetryable() {
			return nil, err
		}
	}

	if f.cfg.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", types.ErrMaxRetries, f.cfg.MaxRetries+1, lastErr)
}

// do executes a single GET.
func (f *HTTPFetcher) do(ctx context.Context, rawURL string, o requestOptions) (*types.Response, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	httpReq.Header.Set("User-Agent", f.userAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range o.headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{
			URL:       rawURL,
			Err:       err,
			Retryable: isRetryableError(err),
		}
	}
	defer httpResp.Body.Close()

	if err := statusError(rawURL, httpResp); err != nil {
		return nil, err
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err, Retryable: true}
	}

	resp := types.NewResponse(rawURL, httpResp, body, duration)

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"final_url", resp.FinalURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return resp, nil
}

// statusError maps error statuses onto FetchError. 429 and 5xx are
// retryable; other 4xx are final.
func statusError(rawURL string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code < 400:
		return nil
	case code == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &types.FetchError{
			URL:        rawURL,
			StatusCode: code,
			Err:        fmt.Errorf("HTTP 429: rate limited (retry after %s)", retryAfter),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	case code >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &types.FetchError{
			URL:        rawURL,
			StatusCode: code,
			Err:        fmt.Errorf("HTTP %d: %s", code, strings.TrimSpace(string(body))),
			Retryable:  true,
		}
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return &types.FetchError{URL: rawURL, StatusCode: code, Err: fmt.Errorf("HTTP %d: %w", code, types.ErrBlocked)}
	default:
		return &types.FetchError{URL: rawURL, StatusCode: code, Err: fmt.Errorf("HTTP %d", code)}
	}
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

func (f *HTTPFetcher) userAgent() string {
	if f.cfg.UserAgent == "" {
		return "njbuds/" + config.Version
	}
	return f.cfg.UserAgent
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

// parseRetryAfter parses the Retry-After header value.
// Supports both integer seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs > 120 {
			secs = 120
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return time.Second
		}
		if d > 2*time.Minute {
			return 2 * time.Minute
		}
		return d
	}
	return 5 * time.Second
}

// RandomDelay returns a uniformly random duration in [lo, hi].
func RandomDelay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
