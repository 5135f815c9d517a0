package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/storage"
)

const defaultTimeout = 30 * time.Second

// Requester is the contract resource units depend on.
type Requester interface {
	Request(ctx context.Context, method, path string, body any, params url.Values) (*RawResponse, error)
}

// RawResponse is a successful (2xx) backend response.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// Client attaches the stored bearer token to every request and ends the stored
// credential when the backend rejects it.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  storage.Store
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each backend request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens storage.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request performs one HTTP call. Non-2xx statuses return *HTTPError; a missing
// response returns *TransportError. There are no retries at this layer.
func (c *Client) Request(ctx context.Context, method, path string, body any, params url.Values) (*RawResponse, error) {
	log := logger.WithComponent("apiclient")

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, params), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debugf("%s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: raw}
		if httpErr.IsAuthenticationRejected() {
			log.Warnf("%s %s rejected with %d, clearing stored credential", method, path, resp.StatusCode)
			c.clearCredential()
		}
		return nil, httpErr
	}

	return &RawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

func (c *Client) Get(ctx context.Context, path string, params url.Values) (*RawResponse, error) {
	return c.Request(ctx, http.MethodGet, path, nil, params)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*RawResponse, error) {
	return c.Request(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*RawResponse, error) {
	return c.Request(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*RawResponse, error) {
	return c.Request(ctx, http.MethodPatch, path, body, nil)
}

func (c *Client) Delete(ctx context.Context, path string) (*RawResponse, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) resolve(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	token, ok, err := c.tokens.Get(storage.SlotToken)
	if err != nil {
		logger.WithComponent("apiclient").Warnf("cannot read stored token: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func (c *Client) clearCredential() {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Remove(storage.SlotToken, storage.SlotPrincipal); err != nil {
		logger.WithComponent("apiclient").Errorf("cannot clear stored credential: %v", err)
	}
}

// AsHTTPError extracts an *HTTPError from err.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
