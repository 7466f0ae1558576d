// the client package is used by the console gateway, the CLI and the resource consumers to call the conveyancing API.
// Every call returns a Result: the client never returns a Go error from Send. Failures carry a user-friendly message
// (Result.Error) and the technical detail for logging (see client/errors.go).
package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/conveydesk/conveydesk/internal/session"
	"github.com/google/uuid"
)

const DefaultTimeout = 10 * time.Second

// SessionReader is the read side of the ambient session store.
type SessionReader interface {
	Get() (session.Session, error)
}

// Client handles communication with the conveyancing API
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionReader
	logger     *slog.Logger
}

type Option func(*Client)

// WithSessionStore sets the store the ambient token is read from.
// Without one, only explicit tokens are attached.
func WithSessionStore(store SessionReader) Option {
	return func(c *Client) {
		c.sessions = store
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalised base url (no trailing slash)
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins the base url and path with exactly one slash between them.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// resolveToken returns the explicit token if there is one, otherwise the token held by the session store.
func (c *Client) resolveToken(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c.sessions == nil {
		return ""
	}
	s, err := c.sessions.Get()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			c.logger.Warn("could not read session store, sending request without a token",
				slog.String("component", "client"),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return s.Token
}

// Send issues one request to the API and returns exactly one Result.
//
// Transport failures (no response received) are reported with status 0.
// Non-2xx responses are reported as failures with a message chosen from the status and the response body.
// There are no retries and nothing is cached between calls.
func (c *Client) Send(ctx context.Context, d Descriptor) Result {
	requestID := uuid.NewString()
	method := d.method()
	url := c.URL(d.Path)

	reqLogger := c.logger.With(
		slog.String("component", "client"),
		slog.String("method", method),
		slog.String("url", url),
	)

	req, err := c.newRequest(ctx, method, url, requestID, d)
	if err != nil {
		res := networkFailure(err)
		reqLogger.Warn("could not build request", slog.String("error", err.Error()))
		return res
	}
	reqLogger = reqLogger.With(slog.String("request_id", req.Header.Get("X-Request-ID")))

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		reqLogger.Warn("request failed before a response was received",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return networkFailure(err)
	}
	defer res.Body.Close()

	result := newResult(res)

	attrs := []any{
		slog.Int("status", result.Status),
		slog.Duration("duration", time.Since(start)),
	}
	if result.OK {
		reqLogger.Debug("request completed", attrs...)
	} else {
		reqLogger.Warn("request completed with error", append(attrs, slog.String("error", result.Error))...)
	}
	return result
}
