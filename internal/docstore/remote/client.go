package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/docstore/wire"
)

// Ensure Client implements docstore.Backend at compile time.
var _ docstore.Backend = (*Client)(nil)

const (
	defaultBackendURL = "127.0.0.1:7490"
	defaultUserAgent  = "cohort/0.1"
	requestTimeout    = 5 * time.Second

	// reconnects are paced so re-enabling the network does not open every
	// listen socket at once.
	reconnectEvery = 250 * time.Millisecond
	reconnectBurst = 4

	// a dropped listen socket is dialled again after redialInitial, growing
	// to redialMax while failures continue.
	redialInitial = 250 * time.Millisecond
	redialMax     = 15 * time.Second
)

// Client talks to a document service over HTTP for one-shot calls and
// WebSocket for live queries.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	dialer    *websocket.Dialer
	userAgent string
	logger    *log.Logger
	limiter   *rate.Limiter

	redialInitial time.Duration
	redialMax     time.Duration

	mu      sync.Mutex
	enabled bool
	streams map[uint64]*stream
	nextID  uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for one-shot calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithReconnectLimit overrides listen socket pacing.
func WithReconnectLimit(every time.Duration, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithRedialBackoff overrides the delay before a dropped listen socket is
// dialled again.
func WithRedialBackoff(initial, ceiling time.Duration) Option {
	return func(c *Client) {
		c.redialInitial = initial
		c.redialMax = ceiling
	}
}

// NewClient builds a Client for the service at baseURL (host:port or URL).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		dialer:    &websocket.Dialer{HandshakeTimeout: requestTimeout},
		userAgent: defaultUserAgent,
		limiter:   rate.NewLimiter(rate.Every(reconnectEvery), reconnectBurst),

		redialInitial: redialInitial,
		redialMax:     redialMax,

		enabled: true,
		streams: make(map[uint64]*stream),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c, nil
}

// RunQuery implements docstore.Querier.
func (c *Client) RunQuery(ctx context.Context, q docstore.Query) ([]docstore.Record, error) {
	var payload wire.RecordsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/query", wire.QueryRequest{Query: q}, &payload); err != nil {
		return nil, err
	}
	return decodeRecords(payload.Records), nil
}

// Get implements docstore.Documents.
func (c *Client) Get(ctx context.Context, collection, id string) (docstore.Record, error) {
	var rec docstore.Record
	if err := c.do(ctx, http.MethodGet, docPath(collection, id), nil, &rec); err != nil {
		return docstore.Record{}, err
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	return rec, nil
}

// Add implements docstore.Documents.
func (c *Client) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	var payload wire.IDResponse
	body := wire.FieldsRequest{Fields: wire.EncodeFields(fields)}
	if err := c.do(ctx, http.MethodPost, "/v1/docs/"+url.PathEscape(collection), body, &payload); err != nil {
		return "", err
	}
	return payload.ID, nil
}

// Set implements docstore.Documents.
func (c *Client) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, docPath(collection, id), wire.FieldsRequest{Fields: wire.EncodeFields(fields)}, nil)
}

// Update implements docstore.Documents.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, docPath(collection, id), wire.FieldsRequest{Fields: wire.EncodeFields(fields)}, nil)
}

// Delete implements docstore.Documents.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, docPath(collection, id), nil, nil)
}

func docPath(collection, id string) string {
	return "/v1/docs/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if !c.NetworkEnabled() {
		return docstore.Errorf(docstore.CodeUnavailable, "client is offline")
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var payload wire.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
		return fmt.Errorf("%s %s: %w", method, path, payload.Error(resp.StatusCode))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeRecords(records []docstore.Record) []docstore.Record {
	for i := range records {
		if records[i].Fields == nil {
			records[i].Fields = map[string]any{}
		}
	}
	return records
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBackendURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend_url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// listenURL is the WebSocket form of the base URL.
func (c *Client) listenURL() string {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/v1/listen"
	return u.String()
}

// HealthURL is the service's health endpoint, the default probe target.
func (c *Client) HealthURL() string {
	u := *c.baseURL
	u.Path = "/healthz"
	return u.String()
}
