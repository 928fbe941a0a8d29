package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/nekogravitycat/user-directory/internal/pkg/metrics"
)

// DefaultTimeout bounds a single upstream request, body included.
const DefaultTimeout = 10 * time.Second

// errRequestTimeout is the cancellation cause installed by the client's own deadline.
var errRequestTimeout = errors.New("request timeout")

// Config contains configuration for Client.
type Config struct {
	// Timeout is the per-request deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// Metrics records request outcomes. Optional.
	Metrics *metrics.Metrics
}

// Client performs JSON GET requests with a fixed timeout and normalized errors.
type Client struct {
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewClient creates a new fetch Client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
	}
}

// GetJSON fetches url and decodes the JSON body into out.
// Every failure is returned as a *Error.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	start := time.Now()
	err := c.getJSON(ctx, url, out)

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	c.metrics.ObserveFetch(outcome, time.Since(start))

	return err
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	reqCtx, cancel := context.WithTimeoutCause(ctx, c.timeout, errRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Kind: KindUnknown, URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(ctx, reqCtx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if reqCtx.Err() != nil {
			return classify(ctx, reqCtx, url, err)
		}
		return &Error{Kind: KindUnknown, URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

// classify maps a transport error to a Kind. The client's own deadline is a timeout;
// cancellation of the caller's context is a network failure.
func classify(parent, reqCtx context.Context, url string, err error) *Error {
	if errors.Is(context.Cause(reqCtx), errRequestTimeout) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}
	if parent.Err() != nil {
		return &Error{Kind: KindNetwork, URL: url, Err: parent.Err()}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}

	return &Error{Kind: KindNetwork, URL: url, Err: err}
}
