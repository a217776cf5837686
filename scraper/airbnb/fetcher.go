package airbnb

import (
	"context"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"airbnb-survey/utils"
)

// Fetcher retrieves the raw body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches pages over plain HTTP with a colly collector. Each
// attempt has its own timeout; transient failures are retried up to the
// attempt bound. A client error such as 404 is not retried.
type HTTPFetcher struct {
	timeout time.Duration
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(timeout time.Duration, maxAttempts int, baseDelay time.Duration, logger *utils.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		timeout: timeout,
		retry: &utils.RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Fetch returns the page body, a *FetchError once every attempt has failed,
// or the context error on cancellation.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempts := 0
	err := f.retry.Do(ctx, "fetch "+url, func(ctx context.Context) error {
		attempts++
		b, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: url, Attempts: attempts, Err: err}
	}
	return body, nil
}

// contextTransport binds every request of a collector to one context, so
// cancelling it aborts a request already in flight.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// retryableStatus reports whether a failed response may succeed on a later
// attempt. Client errors are final except for timeouts and rate limiting.
func retryableStatus(code int) bool {
	if code < 400 || code > 499 {
		return true
	}
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(&contextTransport{ctx: ctx, base: http.DefaultTransport})
	c.SetRequestTimeout(f.timeout)
	// Truncated room pages would read as sparse and be flagged deleted.
	c.MaxBodySize = 0
	extensions.RandomUserAgent(c)

	var body []byte
	status := 0
	c.OnRequest(func(r *colly.Request) {
		f.logger.Debug("[fetch] GET %s", r.URL)
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		f.logger.Debug("[fetch] %s: status=%d err=%v", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil {
		if !retryableStatus(status) {
			return nil, utils.Permanent(err)
		}
		return nil, err
	}
	return body, nil
}
