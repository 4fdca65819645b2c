// Package connector implements service.Backend over the HTTP list
// connector that fronts the intranet's lists and the organization
// directory.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"intranet/internal/result"
	"intranet/internal/service"
)

const (
	// DefaultTimeout is the per-call timeout when none is configured.
	DefaultTimeout = 30 * time.Second

	// RequestIDHeader carries a fresh id on every request.
	RequestIDHeader = "client-request-id"

	maxBodyBytes = 32 << 20
)

var (
	ErrTimeout      = errors.New("request timed out")
	ErrUnauthorized = errors.New("credentials expired or rejected")
	ErrNotFound     = errors.New("not found")
)

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("connector returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("connector returned %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Dataset string

	TenantID     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// TokenURL overrides the Azure AD token endpoint of TenantID.
	TokenURL string

	Timeout time.Duration
	Logger  *zap.Logger
}

// Client implements service.Backend against the list connector.
type Client struct {
	base    *url.URL
	dataset string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a client that authenticates with the OAuth2 client
// credentials grant against Azure AD.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret required", ErrUnauthorized)
	}
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		if opts.TenantID == "" {
			return nil, fmt.Errorf("%w: tenant id required", ErrUnauthorized)
		}
		tokenURL = microsoft.AzureADEndpoint(opts.TenantID).TokenURL
	}
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = []string{strings.TrimRight(opts.BaseURL, "/") + "/.default"}
	}
	cc := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return NewWithHTTPClient(opts, cc.Client(ctx))
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(opts Options, httpClient *http.Client) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("connector base url required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid connector base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dataset := opts.Dataset
	if dataset == "" {
		dataset = "default"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:    base,
		dataset: dataset,
		http:    httpClient,
		timeout: timeout,
		logger:  logger.With(zap.String("backend", "connector")),
	}, nil
}

// Read implements service.Transport.
func (c *Client) Read(ctx context.Context, table string, opts service.ListQueryOptions) (json.RawMessage, error) {
	q := url.Values{}
	if opts.Filter != "" {
		q.Set("$filter", opts.Filter)
	}
	if len(opts.OrderBy) > 0 {
		q.Set("$orderby", strings.Join(opts.OrderBy, ","))
	}
	if top := service.FormatTop(opts.Top); top != "" {
		q.Set("$top", top)
	}
	body, err := c.do(ctx, http.MethodGet, c.itemsPath(table), q, nil)
	if err != nil {
		return nil, err
	}
	return envelope(body, true), nil
}

// Create implements service.Transport.
func (c *Client) Create(ctx context.Context, table string, fields service.Fields) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPost, c.itemsPath(table), nil, fields)
	if err != nil {
		return nil, err
	}
	return envelope(body, false), nil
}

// Update implements service.Transport.
func (c *Client) Update(ctx context.Context, table, id string, fields service.Fields) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPatch, c.itemPath(table, id), nil, fields)
	if err != nil {
		return nil, err
	}
	return envelope(body, false), nil
}

// Delete implements service.Transport. A failure envelope in a 2xx
// response is reported as an error.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	body, err := c.do(ctx, http.MethodDelete, c.itemPath(table, id), nil, nil)
	if err != nil {
		return err
	}
	return result.Normalize[json.RawMessage](envelope(body, false)).Err()
}

// SearchUsers implements service.Directory.
func (c *Client) SearchUsers(ctx context.Context, query string, top int, exact bool) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("searchTerm", query)
	if t := service.FormatTop(top); t != "" {
		q.Set("top", t)
	}
	q.Set("exact", strconv.FormatBool(exact))
	body, err := c.do(ctx, http.MethodGet, "/users/search", q, nil)
	if err != nil {
		return nil, err
	}
	return envelope(body, false), nil
}

func (c *Client) itemsPath(table string) string {
	return "/datasets/" + url.PathEscape(c.dataset) + "/tables/" + url.PathEscape(table) + "/items"
}

func (c *Client) itemPath(table, id string) string {
	return c.itemsPath(table) + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base.String() + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path),
			zap.String("request_id", reqID), zap.Error(err))
		return nil, wrapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		return nil, wrapError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, wrapError(&StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)})
	}
	return data, nil
}

// envelope returns body in a shape the result package understands. Bodies
// that already carry an envelope pass through untouched. An empty body is a
// bare success, a JSON array becomes the result, and so does a bare object.
// When unwrapPage is set an OData page {"value": [...]} yields its items.
func envelope(body []byte, unwrapPage bool) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage(`{"isSuccess":true}`)
	}
	switch trimmed[0] {
	case '[':
		return wrapResult(trimmed)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return json.RawMessage(trimmed)
		}
		if _, ok := obj["isSuccess"]; ok {
			return json.RawMessage(trimmed)
		}
		if _, ok := obj["success"]; ok {
			return json.RawMessage(trimmed)
		}
		if v, ok := obj["value"]; ok && unwrapPage {
			if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
				return wrapResult(v)
			}
		}
		return wrapResult(trimmed)
	}
	return json.RawMessage(trimmed)
}

func wrapResult(v []byte) json.RawMessage {
	out := make([]byte, 0, len(v)+32)
	out = append(out, `{"isSuccess":true,"result":`...)
	out = append(out, v...)
	out = append(out, '}')
	return out
}

// errorMessage extracts a message from an error body.
func errorMessage(body []byte) string {
	var e struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		var s string
		if json.Unmarshal(e.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// wrapError maps transport errors to the package's sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		switch serr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}
	return err
}
