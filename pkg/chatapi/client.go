package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// Client talks to a chat backend exposing the create-thread, send-message and
// get-response endpoints. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  zerolog.Logger
}

type Option func(*Client) error

// WithTimeout bounds every individual HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return errors.Errorf("timeout must be positive, got %s", d)
		}
		c.http.HTTPClient.Timeout = d
		return nil
	}
}

// WithRetries enables retrying transport errors and 5xx answers. Zero means a
// single attempt per call.
func WithRetries(n int) Option {
	return func(c *Client) error {
		if n < 0 {
			return errors.Errorf("retries must not be negative, got %d", n)
		}
		c.http.RetryMax = n
		return nil
	}
}

// WithRetryWait sets the backoff bounds used between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) error {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
		return nil
	}
}

// WithHTTPClient replaces the underlying transport client. A copy of hc is
// used; when hc has no timeout it inherits the one configured so far.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		clone := *hc
		if clone.Timeout == 0 {
			clone.Timeout = c.http.HTTPClient.Timeout
		}
		c.http.HTTPClient = &clone
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		c.http.Logger = leveledLogger{logger: logger}
		return nil
	}
}

// NewClient creates a client for the backend at baseURL. The base URL is
// normalized with NormalizeBaseURL and must be an absolute http(s) URL.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	normalized := NormalizeBaseURL(baseURL)
	if normalized == "" {
		return nil, errors.New("base url is empty")
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("base url %q has no host", baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = DefaultTimeout

	c := &Client{
		baseURL: normalized,
		http:    rc,
		logger:  log.Logger,
	}
	c.http.Logger = leveledLogger{logger: c.logger}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "failed to apply client option")
		}
	}

	return c, nil
}

// NormalizeBaseURL strips surrounding whitespace and trailing slashes.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateThread asks the backend for a new conversation thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp CreateThreadResponse
	if err := c.post(ctx, CreateThreadPath, nil, &resp); err != nil {
		return "", newCallError(ErrThreadUnavailable, "create-thread", err)
	}
	threadID := strings.TrimSpace(resp.ThreadID)
	if threadID == "" {
		return "", newCallError(ErrThreadUnavailable, "create-thread", errors.New("response has no thread_id"))
	}
	c.logger.Debug().Str("thread_id", threadID).Msg("created thread")
	return threadID, nil
}

// SendMessage delivers user text to the given thread. The response body is ignored.
func (c *Client) SendMessage(ctx context.Context, threadID string, content string) error {
	if threadID == "" {
		return newCallError(ErrDeliveryFailed, "send-message", errors.New("no thread id"))
	}
	req := SendMessageRequest{ThreadID: threadID, Content: content}
	if err := c.post(ctx, SendMessagePath, req, nil); err != nil {
		return newCallError(ErrDeliveryFailed, "send-message", err)
	}
	return nil
}

// GetResponse fetches the latest assistant reply for the thread. An empty string
// with a nil error means the backend has no reply yet.
func (c *Client) GetResponse(ctx context.Context, threadID string) (string, error) {
	if threadID == "" {
		return "", newCallError(ErrResponseFailed, "get-response", errors.New("no thread id"))
	}
	var resp GetResponseResponse
	if err := c.post(ctx, GetResponsePath, GetResponseRequest{ThreadID: threadID}, &resp); err != nil {
		return "", newCallError(ErrResponseFailed, "get-response", err)
	}
	return resp.Content, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}

	endpoint := c.baseURL + path
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(respBody)).
		Dur("elapsed", time.Since(start)).
		Msg("backend call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "failed to parse response body")
	}
	return nil
}

// leveledLogger routes retryablehttp's own logging through zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

var _ retryablehttp.LeveledLogger = leveledLogger{}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Trace().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
