package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/roombook/internal/logging"
)

// TokenSource supplies the current bearer token. An empty string means no
// Authorization header is sent. The session store implements this.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a plain function to the TokenSource interface.
type TokenSourceFunc func() string

// Token implements TokenSource.
func (f TokenSourceFunc) Token() string { return f() }

// Client is a typed HTTP client for the remote booking API.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	tokens       TokenSource
	logger       *slog.Logger
	newRequestID func() string
}

// NewClient constructs a Client for the given API origin. A zero timeout
// falls back to 15 seconds so a stalled request cannot hang callers.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) (*Client, error) {
	return NewClientWithLogger(baseURL, tokens, timeout, nil)
}

// NewClientWithLogger constructs a Client with a specified logger.
func NewClientWithLogger(baseURL string, tokens TokenSource, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse API base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("API base URL %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      parsed,
		httpClient:   &http.Client{Timeout: timeout},
		tokens:       tokens,
		logger:       logger,
		newRequestID: uuid.NewString,
	}, nil
}

func (c *Client) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return c.logger
}

// endpoint joins the base URL with a path and optional query values.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do issues the request and decodes a 2xx JSON body into out when out is
// non-nil. Non-2xx responses are returned as *errorStatus for the caller to
// map onto the error taxonomy; transport failures become *NetworkError.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	requestID := c.newRequestID()
	req.Header.Set("X-Request-ID", requestID)

	logger := c.loggerFor(ctx).With(
		"request_id", requestID,
		"method", method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "request failed to complete", "error", err, "duration", time.Since(start))
		return &NetworkError{Op: method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	logger.DebugContext(ctx, "request completed", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errorStatus{code: resp.StatusCode, message: decodeErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, req.URL.Path, err)
	}
	return nil
}

// getJSON is the common GET-and-decode path.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	err := c.do(ctx, http.MethodGet, c.endpoint(path, query), nil, "", out)
	if err != nil {
		return mapReadError(err)
	}
	return nil
}

func jsonBody(payload any) (io.Reader, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(raw), nil
}

// errorStatus is the raw non-2xx outcome prior to taxonomy mapping.
type errorStatus struct {
	code    int
	message string
}

func (e *errorStatus) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

// decodeErrorMessage pulls the `{"error": ...}` string out of a failure body,
// tolerating empty or non-JSON bodies.
func decodeErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// mapReadError converts a raw status error on a read endpoint.
func mapReadError(err error) error {
	status, ok := err.(*errorStatus)
	if !ok {
		return err
	}
	switch status.code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthorizationExpired, status.message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, status.message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, status.message)
	default:
		return &APIError{StatusCode: status.code, Message: status.message}
	}
}

// mapMutationError converts a raw status error on a booking mutation. Role
// refusals and stale-state conflicts are retryable transition rejections;
// only 401 forces the session down.
func mapMutationError(err error) error {
	status, ok := err.(*errorStatus)
	if !ok {
		return err
	}
	switch status.code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthorizationExpired, status.message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, status.message)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrTransitionRejected, status.message)
	default:
		return &APIError{StatusCode: status.code, Message: status.message}
	}
}
