package jibe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/five82/jibewatch/internal/logstream"
)

// ErrNotFound is returned when the backend has no such run or mandate.
var ErrNotFound = errors.New("jibe: not found")

// Fetcher defines the backend calls jibewatch makes. It is implemented by
// *Client and can be faked in tests.
type Fetcher interface {
	FetchRuns(ctx context.Context, limit, offset int) ([]Run, error)
	FetchRun(ctx context.Context, runID string) (*Run, error)
	FetchChildren(ctx context.Context, runID, mandateID string) ([]MandateStatus, error)
	FetchStatus(ctx context.Context, runID, mandateID string) (*MandateStatus, error)
	FetchLog(ctx context.Context, runID, mandateID string, offset int64) (string, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Client talks to the jibe HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
}

const (
	defaultBaseURL     = "127.0.0.1:8080"
	defaultUserAgent   = "jibewatch/0.1"
	defaultRequestRate = 10
	requestTimeout     = 5 * time.Second
	maxLogChunk        = 8 << 20
)

// Options tune a Client. Zero values select defaults.
type Options struct {
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NewClient builds a Client for the backend at base (host:port or URL).
func NewClient(base string, opts Options) (*Client, error) {
	u, err := parseBaseURL(base)
	if err != nil {
		return nil, err
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestRate
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
	}, nil
}

// FetchRuns lists runs, newest first.
func (c *Client) FetchRuns(ctx context.Context, limit, offset int) ([]Run, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	rel := &url.URL{Path: "/data/runs", RawQuery: values.Encode()}
	var runs []Run
	if err := c.getJSON(ctx, rel, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// FetchRun retrieves a single run.
func (c *Client) FetchRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := c.getJSON(ctx, runPath(runID, "run"), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// FetchChildren lists the direct children of a composite mandate.
func (c *Client) FetchChildren(ctx context.Context, runID, mandateID string) ([]MandateStatus, error) {
	var children []MandateStatus
	if err := c.getJSON(ctx, runPath(runID, mandateID, "children"), &children); err != nil {
		return nil, err
	}
	return children, nil
}

// FetchStatus retrieves the current status of one mandate. The backend
// answers null for mandates it has not scheduled yet; that yields nil, nil.
func (c *Client) FetchStatus(ctx context.Context, runID, mandateID string) (*MandateStatus, error) {
	var status *MandateStatus
	if err := c.getJSON(ctx, runPath(runID, mandateID, "status"), &status); err != nil {
		return nil, err
	}
	return status, nil
}

// FetchLog returns the mandate's log bytes starting at offset. A log that
// does not exist yet, or has nothing past offset, yields an empty string.
func (c *Client) FetchLog(ctx context.Context, runID, mandateID string, offset int64) (string, error) {
	if offset < 0 {
		return "", fmt.Errorf("log offset %d is negative", offset)
	}
	rel := runPath(runID, mandateID, "log", strconv.FormatInt(offset, 10))
	resp, err := c.do(ctx, rel, "text/plain")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusNotFound, http.StatusRequestedRangeNotSatisfiable:
		return "", nil
	default:
		return "", fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}

	body, err := logstream.ReadChunk(resp.Body, maxLogChunk)
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, rel *url.URL, dest any) error {
	resp, err := c.do(ctx, rel, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", rel.Path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, rel *url.URL, accept string) (*http.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// runPath builds /data/run/{runID}/{parts...}, escaping each segment.
func runPath(runID string, parts ...string) *url.URL {
	raw := append([]string{"data", "run", runID}, parts...)
	escaped := make([]string, len(raw))
	for i, seg := range raw {
		escaped[i] = url.PathEscape(seg)
	}
	return &url.URL{
		Path:    "/" + strings.Join(raw, "/"),
		RawPath: "/" + strings.Join(escaped, "/"),
	}
}

func parseBaseURL(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", base, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
