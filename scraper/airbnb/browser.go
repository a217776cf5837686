package airbnb

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"airbnb-survey/config"
	"airbnb-survey/utils"
)

// BrowserFetcher renders pages in a headless Chrome and returns the
// resulting document markup. It shares the attempt bound and back-off of
// HTTPFetcher.
type BrowserFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelTab   context.CancelFunc

	timeout time.Duration
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

// NewBrowserFetcher starts a headless browser allocator. chromeBin may be
// empty, in which case well-known install locations are searched.
func NewBrowserFetcher(chromeBin string, timeout time.Duration, maxAttempts int, baseDelay time.Duration, logger *utils.Logger) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &BrowserFetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancelTab:   cancelTab,
		timeout:     timeout,
		retry: &utils.RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Fetch navigates to url and returns the rendered markup.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var html string
	attempts := 0
	err := b.retry.Do(ctx, "render "+url, func(ctx context.Context) error {
		attempts++
		tabCtx, cancel := chromedp.NewContext(b.browserCtx)
		defer cancel()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		b.logger.Debug("[browser] Navigate %s", url)
		return chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: url, Attempts: attempts, Err: err}
	}
	return []byte(html), nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// NewFetcher builds the fetch transport selected by cfg.FetchMode.
func NewFetcher(cfg *config.Config, logger *utils.Logger) (Fetcher, error) {
	switch cfg.FetchMode {
	case config.FetchModeHTTP, "":
		return NewHTTPFetcher(cfg.FetchTimeout(), cfg.FetchMaxAttempts, cfg.RetryBaseDelay(), logger), nil
	case config.FetchModeBrowser:
		return NewBrowserFetcher(cfg.ChromeBin, cfg.FetchTimeout(), cfg.FetchMaxAttempts, cfg.RetryBaseDelay(), logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", cfg.FetchMode)
	}
}

// findChromeBinary looks for a Chrome or Chromium executable on PATH and in
// the usual install directories.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
