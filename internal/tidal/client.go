package tidal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Fetcher reads the remote player's current state.
type Fetcher interface {
	NowPlaying(ctx context.Context) (*NowPlaying, error)
}

// Controller issues playback commands to the remote player.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetVolume(ctx context.Context, percent int) error
	SetRepeat(ctx context.Context, mode RepeatMode) error
	SetShuffle(ctx context.Context, enabled bool) error
}

// Ensure Client implements Fetcher and Controller at compile time.
var (
	_ Fetcher    = (*Client)(nil)
	_ Controller = (*Client)(nil)
)

// ErrUnreachable wraps transport-level failures: refused connections,
// timeouts and resolution errors. The endpoint never produced a response.
var ErrUnreachable = errors.New("tidal endpoint unreachable")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// PayloadError reports a response that could not be used: a body that does
// not decode, or a payload carrying an explicit error field.
type PayloadError struct {
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// IsTransport reports whether err means the endpoint could not be reached at
// all, as opposed to answering with an error.
func IsTransport(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// Client talks to the Tidal remote-control HTTP API.
type Client struct {
	baseURL   *url.URL
	poll      *retryablehttp.Client
	command   *retryablehttp.Client
	userAgent string
}

const (
	defaultAddr      = "127.0.0.1:3665"
	defaultUserAgent = "tidalbridge/0.1"
	requestTimeout   = 5 * time.Second
	commandRetries   = 2
)

// NewClient builds a Client for the given host:port address.
func NewClient(addr string) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   base,
		poll:      newHTTPClient(0),
		command:   newHTTPClient(commandRetries),
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized endpoint the client talks to.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL.String()
}

func newHTTPClient(retries int) *retryablehttp.Client {
	hc := retryablehttp.NewClient()
	hc.HTTPClient.Timeout = requestTimeout
	hc.RetryMax = retries
	hc.RetryWaitMin = 100 * time.Millisecond
	hc.RetryWaitMax = 500 * time.Millisecond
	hc.CheckRetry = retryDialFailures
	hc.Logger = nil
	return hc
}

// retryDialFailures only retries when the connection was never established,
// so a command is never delivered twice.
func retryDialFailures(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	var opErr *net.OpError
	if err != nil && errors.As(err, &opErr) && opErr.Op == "dial" {
		return true, nil
	}
	return false, nil
}

// NowPlaying retrieves the current player snapshot.
func (c *Client) NowPlaying(ctx context.Context) (*NowPlaying, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload NowPlaying
	if err := c.doURL(ctx, c.poll, http.MethodGet, &url.URL{Path: "/now-playing"}, &payload); err != nil {
		return nil, err
	}
	if msg, ok := payload.ErrorMessage(); ok {
		return nil, &PayloadError{Reason: msg}
	}
	return &payload, nil
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) error {
	return c.put(ctx, "/play", nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.put(ctx, "/pause", nil)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	return c.put(ctx, "/next", nil)
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	return c.put(ctx, "/previous", nil)
}

// Seek moves playback to positionMs. The API takes seconds.
func (c *Client) Seek(ctx context.Context, positionMs int64) error {
	if positionMs < 0 {
		positionMs = 0
	}
	values := url.Values{}
	values.Set("position", strconv.FormatFloat(float64(positionMs)/1000, 'f', -1, 64))
	return c.put(ctx, "/seek", values)
}

// SetVolume sets the output volume in percent.
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("volume %d out of range 0-100", percent)
	}
	values := url.Values{}
	values.Set("level", strconv.Itoa(percent))
	return c.put(ctx, "/volume", values)
}

// SetRepeat sets the repeat mode.
func (c *Client) SetRepeat(ctx context.Context, mode RepeatMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown repeat mode %q", mode)
	}
	values := url.Values{}
	values.Set("state", string(mode))
	return c.put(ctx, "/repeat", values)
}

// SetShuffle toggles shuffle.
func (c *Client) SetShuffle(ctx context.Context, enabled bool) error {
	values := url.Values{}
	values.Set("state", strconv.FormatBool(enabled))
	return c.put(ctx, "/shuffle", values)
}

func (c *Client) put(ctx context.Context, path string, values url.Values) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: path}
	if len(values) > 0 {
		rel.RawQuery = values.Encode()
	}
	return c.doURL(ctx, c.command, http.MethodPut, rel, nil)
}

func (c *Client) doURL(ctx context.Context, hc *retryablehttp.Client, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, rel.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Path: rel.Path, Code: resp.StatusCode}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &PayloadError{Reason: "decode response", Err: err}
	}
	return nil
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = defaultAddr
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", addr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
