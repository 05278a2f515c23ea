package clientutil

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/cenkalti/backoff.v1"
)

type Middleware func(http.RoundTripper) http.RoundTripper

func Chain(middlewares ...Middleware) Middleware {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	return func(final http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

func WithRateLimit(interval time.Duration) Middleware {
	if interval == 0 {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		limiter := rate.NewLimiter(rate.Every(interval), 1)
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

type StatusError int

func (e StatusError) Error() string {
	return fmt.Sprintf("retryable status %d", int(e))
}

// WithRetry retries a request up to maxRetries times with exponential backoff starting at
// interval. Transport errors, 429, and 5xx responses are retried. The last response is
// returned as-is once the retries run out.
func WithRetry(maxRetries uint64, interval time.Duration) Middleware {
	if maxRetries == 0 {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Body != nil && r.Body != http.NoBody && r.GetBody == nil {
				return next.RoundTrip(r)
			}

			bo := backoff.NewExponentialBackOff()
			if interval > 0 {
				bo.InitialInterval = interval
			}
			policy := backoff.WithContext(backoff.WithMaxTries(bo, maxRetries), r.Context())

			var resp *http.Response
			var attempt uint64
			err := backoff.RetryNotify(func() error {
				attempt++
				req := r
				if attempt > 1 && r.GetBody != nil {
					body, err := r.GetBody()
					if err != nil {
						return backoff.Permanent(err)
					}
					req = r.Clone(r.Context())
					req.Body = body
				}

				var err error
				resp, err = next.RoundTrip(req)
				if err != nil {
					if r.Context().Err() != nil {
						return backoff.Permanent(err)
					}
					return err
				}
				if retryableStatus(resp.StatusCode) && attempt <= maxRetries {
					status := resp.StatusCode
					resp.Body.Close()
					resp = nil
					return StatusError(status)
				}
				return nil
			}, policy, func(err error, wait time.Duration) {
				slog.DebugContext(r.Context(), "retrying request", "url", r.URL, "attempt", attempt, "wait", wait, "err", err)
			})
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code/100 == 5
}

func WithLogging(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			if err != nil {
				logger.ErrorContext(r.Context(), "http request", "url", r.URL, "err", err)
				return nil, err
			}
			logger.InfoContext(r.Context(), "http response", "status", resp.StatusCode, "took", time.Since(start).Truncate(time.Millisecond), "url", r.URL)
			return resp, nil
		})
	}
}

func WithUserAgent(userAgent string) Middleware {
	if userAgent == "" {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			r.Header.Set("User-Agent", userAgent)
			return next.RoundTrip(r)
		})
	}
}

func Passthrough(next http.RoundTripper) http.RoundTripper {
	return next
}

func FSClient(fsys fs.FS, sub string) *http.Client {
	subfs, err := fs.Sub(fsys, sub)
	if err != nil {
		panic(fmt.Sprintf("clientutil: fs.Sub: %v", err.Error()))
	}
	c := &http.Client{}
	c.Transport = http.NewFileTransportFS(subfs)
	return c
}

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func Wrap(c *http.Client, mw Middleware) *http.Client {
	if c == nil {
		c = &http.Client{}
	}
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	c.Transport = mw(c.Transport)
	return c
}
