package remote

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

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is requests per minute when none is configured.
	DefaultRateLimit = 600
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	restPrefix = "/rest/v1/"
)

// ErrNoURL is returned when no backend URL is configured.
var ErrNoURL = errors.New("remote URL not configured")

// Config configures the REST backend.
type Config struct {
	URL         string
	APIKey      string
	AccessToken string
	RateLimit   int // requests per minute
	Timeout     time.Duration
}

// RESTBackend is a Backend over a PostgREST-style HTTP API.
type RESTBackend struct {
	base    *url.URL
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewRESTBackend creates a rate-limited REST client. A non-empty AccessToken
// is sent as a bearer token on every request.
func NewRESTBackend(cfg Config) (*RESTBackend, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.AccessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = timeout
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	// rateLimit requests per minute, bursting up to a full minute's budget
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rateLimit)), rateLimit)

	return &RESTBackend{
		base:    base,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		limiter: limiter,
	}, nil
}

func (b *RESTBackend) endpoint(table, id string) string {
	u := *b.base
	u.Path = u.Path + restPrefix + url.PathEscape(table)
	if id != "" {
		q := url.Values{}
		q.Set("id", "eq."+id)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (b *RESTBackend) do(ctx context.Context, op, method, table, id string, body []byte, prefer string) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.endpoint(table, id), reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, table, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("apikey", b.apiKey)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", op, table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, Table: table, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

// errorMessage extracts the message field of a JSON error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		if body.Details != "" {
			return body.Message + ": " + body.Details
		}
		return body.Message
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// Select implements Backend.
func (b *RESTBackend) Select(ctx context.Context, table, id string) (Row, error) {
	data, err := b.do(ctx, "select", http.MethodGet, table, id, nil, "")
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("select %s: decode: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Insert implements Backend. Retried inserts merge instead of failing on the
// duplicate primary key.
func (b *RESTBackend) Insert(ctx context.Context, table string, payload json.RawMessage) error {
	_, err := b.do(ctx, "insert", http.MethodPost, table, "", payload,
		"resolution=merge-duplicates,return=minimal")
	return err
}

// Update implements Backend.
func (b *RESTBackend) Update(ctx context.Context, table, id string, payload json.RawMessage) error {
	data, err := b.do(ctx, "update", http.MethodPatch, table, id, payload, "return=representation")
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) == 0 {
		return &Error{Op: "update", Table: table, StatusCode: http.StatusNotFound, Message: "no row with id " + id}
	}
	return nil
}

// Delete implements Backend.
func (b *RESTBackend) Delete(ctx context.Context, table, id string) error {
	_, err := b.do(ctx, "delete", http.MethodDelete, table, id, nil, "return=minimal")
	return err
}
