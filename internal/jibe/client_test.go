package jibe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultBaseURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultBaseURL)
	}

	u, err = parseBaseURL("https://jibe.example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestRunPath_EscapesSegments(t *testing.T) {
	got := runPath("2024-01-02-03-04-05", "m0/1", "log", "12").EscapedPath()
	want := "/data/run/2024-01-02-03-04-05/m0%2F1/log/12"
	if got != want {
		t.Fatalf("runPath = %q, want %q", got, want)
	}
}

func TestClient_FetchesEndpoints(t *testing.T) {
	t.Parallel()

	var gotRunsQuery, gotUserAgent, gotLogPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/data/runs":
			gotRunsQuery = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode([]Run{{Description: "2024-01-02-03-04-05"}})
		case "/data/run/r1/run":
			_ = json.NewEncoder(w).Encode(Run{ID: "r1", StartTime: 1000})
		case "/data/run/r1/m0/children":
			_ = json.NewEncoder(w).Encode([]MandateStatus{
				{ID: "m1", Composite: true, ExecutiveStatus: StatusRunning},
				{ID: "m2", ExecutiveStatus: StatusSuccess},
			})
		case "/data/run/r1/m2/status":
			_ = json.NewEncoder(w).Encode(MandateStatus{ID: "m2", ExecutiveStatus: StatusFailure})
		case "/data/run/r1/m3/status":
			_, _ = w.Write([]byte("null"))
		case "/data/run/r1/m2/log/42":
			gotLogPath = r.URL.Path
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("XX|I|1|hello\nXX|I|1|par"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	runs, err := c.FetchRuns(ctx, 1, 5)
	if err != nil {
		t.Fatalf("FetchRuns returned error: %v", err)
	}
	if len(runs) != 1 || runs[0].Key() != "2024-01-02-03-04-05" {
		t.Fatalf("FetchRuns = %#v, want one run keyed by description", runs)
	}
	if gotRunsQuery != "limit=1&offset=5" {
		t.Fatalf("FetchRuns query = %q, want limit=1&offset=5", gotRunsQuery)
	}

	run, err := c.FetchRun(ctx, "r1")
	if err != nil {
		t.Fatalf("FetchRun returned error: %v", err)
	}
	if run.Key() != "r1" || run.Started().UnixMilli() != 1000 {
		t.Fatalf("FetchRun = %#v, want r1 started at 1000ms", run)
	}

	children, err := c.FetchChildren(ctx, "r1", RootMandateID)
	if err != nil {
		t.Fatalf("FetchChildren returned error: %v", err)
	}
	if len(children) != 2 || !children[0].Composite || children[1].ID != "m2" {
		t.Fatalf("FetchChildren = %#v, want m1 composite and m2", children)
	}

	status, err := c.FetchStatus(ctx, "r1", "m2")
	if err != nil {
		t.Fatalf("FetchStatus returned error: %v", err)
	}
	if status == nil || status.ExecutiveStatus != StatusFailure {
		t.Fatalf("FetchStatus = %#v, want FAILURE", status)
	}

	status, err = c.FetchStatus(ctx, "r1", "m3")
	if err != nil || status != nil {
		t.Fatalf("FetchStatus(null) = %#v, %v, want nil, nil", status, err)
	}

	text, err := c.FetchLog(ctx, "r1", "m2", 42)
	if err != nil {
		t.Fatalf("FetchLog returned error: %v", err)
	}
	if text != "XX|I|1|hello\nXX|I|1|par" {
		t.Fatalf("FetchLog = %q", text)
	}
	if gotLogPath != "/data/run/r1/m2/log/42" {
		t.Fatalf("FetchLog path = %q", gotLogPath)
	}

	if !strings.HasPrefix(gotUserAgent, "jibewatch/") {
		t.Fatalf("User-Agent = %q, want jibewatch/*", gotUserAgent)
	}
}

func TestClient_FetchLogCompletesLongRecord(t *testing.T) {
	t.Parallel()

	long := "XX|I|1|" + strings.Repeat("q", maxLogChunk)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(long + "\nXX|I|2|after\n"))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	text, err := c.FetchLog(context.Background(), "r1", "m1", 0)
	if err != nil {
		t.Fatalf("FetchLog returned error: %v", err)
	}
	if text != long+"\n" {
		t.Fatalf("FetchLog returned %d bytes, want the %d-byte record and its newline", len(text), len(long)+1)
	}
}

func TestClient_FetchLogMissingIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/log/0"):
			http.NotFound(w, r)
		case strings.HasSuffix(r.URL.Path, "/log/99"):
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	for _, offset := range []int64{0, 99} {
		text, err := c.FetchLog(context.Background(), "r1", "m1", offset)
		if err != nil || text != "" {
			t.Fatalf("FetchLog(%d) = %q, %v, want empty, nil", offset, text, err)
		}
	}

	_, err = c.FetchLog(context.Background(), "r1", "m1", 5)
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("FetchLog error = %v, want status 500 error", err)
	}

	_, err = c.FetchLog(context.Background(), "r1", "m1", -1)
	if err == nil {
		t.Fatal("FetchLog with negative offset returned nil error")
	}
}

func TestClient_HTTPErrorAndDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/runs":
			_, _ = w.Write([]byte("{not-json"))
		case "/data/run/r1/run":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.FetchRuns(context.Background(), 0, 0)
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("FetchRuns error = %v, want decode response error", err)
	}

	_, err = c.FetchRun(context.Background(), "r1")
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("FetchRun error = %v, want status 500 error", err)
	}

	_, err = c.FetchRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("FetchRun error = %v, want ErrNotFound", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", Options{RequestsPerSecond: 1})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.FetchStatus(ctx, "r1", "m1"); err == nil {
		t.Fatal("FetchStatus with cancelled context returned nil error")
	}
}

func TestExecutiveStatus_IsTerminal(t *testing.T) {
	tests := map[ExecutiveStatus]bool{
		StatusPending:  false,
		StatusRunning:  false,
		StatusSuccess:  true,
		StatusFailure:  true,
		StatusUnneeded: true,
		StatusNeeded:   true,
		StatusBlocked:  true,
	}
	for status, want := range tests {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestRun_StartedFromDescription(t *testing.T) {
	run := Run{Description: "2024-03-05-06-07-08"}
	got := run.Started()
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 5 || got.Second() != 8 {
		t.Fatalf("Started() = %v, want 2024-03-05 06:07:08", got)
	}
	if !(Run{Description: "nightly"}).Started().IsZero() {
		t.Fatal("Started() for unparsable description should be zero")
	}
}
