// Package webreq is the JSON-over-HTTP client used for external lookups.
// Every call has a fixed timeout, passes through an adaptive rate limiter
// and retries on 429 and 5xx. Failures are reported as one of four kinds:
// ErrTimeout, *TransportError, *StatusError or *DecodeError.
package webreq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/orcabot/pkg/retrylimit"
)

const (
	DefaultTimeout = 30 * time.Second
	maxBody        = 8 << 20
	userAgent      = "OrcaBot (+https://github.com/keshon/orcabot)"
)

// ErrTimeout is wrapped by errors of calls that did not finish in time.
var ErrTimeout = errors.New("request timed out")

// TransportError reports a request that failed before a response arrived.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("request %s: %v", e.URL, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s: HTTP %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// StatusCode lets the retry loop classify the response.
func (e *StatusError) StatusCode() int { return e.Code }

// DecodeError reports a 2xx response whose body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.URL, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Response is the raw body of a successful call.
type Response struct {
	URL  string
	Code int
	Body []byte
}

// Options configure a Client.
type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Limiter    *retrylimit.AdaptiveLimiter
	Retry      *retrylimit.Config
	Logger     *zap.Logger
}

// Client performs JSON requests.
type Client struct {
	http    *http.Client
	timeout time.Duration
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.Config
	logger  *zap.Logger
}

func New(opts Options) *Client {
	c := &Client{
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		limiter: opts.Limiter,
		logger:  opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.limiter == nil {
		c.limiter = retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	} else {
		c.retry = retrylimit.DefaultConfig()
	}
	c.retry.Logger = c.logger
	return c
}

// GetJSON fetches url and decodes the body into out (when non-nil).
func (c *Client) GetJSON(ctx context.Context, url string, out any) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// PostJSON posts body as JSON to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, payload, out)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var resp *Response
	err := retrylimit.WithRetry(ctx, c.limiter, c.retry, func(ctx context.Context) error {
		r, err := c.once(ctx, method, url, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if isTimeout(ctx, err) {
			err = fmt.Errorf("%s %s: %w", method, url, ErrTimeout)
		}
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.Code),
		zap.Duration("took", time.Since(start)))

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp, &DecodeError{URL: url, Err: err}
		}
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, method, url string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &retrylimit.FatalError{Err: &TransportError{URL: url, Err: err}}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBody))
		return nil, &StatusError{URL: url, Code: res.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return &Response{URL: url, Code: res.StatusCode, Body: data}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Describe renders err for users of service (e.g. "EDSM").
func Describe(service string, err error) string {
	var (
		status    *StatusError
		decode    *DecodeError
		transport *TransportError
	)
	switch {
	case errors.Is(err, ErrTimeout):
		return fmt.Sprintf("Could not connect to %ss services. The request timed out.", service)
	case errors.As(err, &status):
		return fmt.Sprintf("Could not connect to %ss services. HTTP Error: `%d %s`", service, status.Code, http.StatusText(status.Code))
	case errors.As(err, &decode):
		return fmt.Sprintf("JSON parse error: `%v`!", decode.Err)
	case errors.As(err, &transport):
		return fmt.Sprintf("Could not connect to %ss services. Exception Message: `%v`", service, transport.Err)
	default:
		return fmt.Sprintf("Could not connect to %ss services: `%v`", service, err)
	}
}
