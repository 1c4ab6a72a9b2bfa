package tidal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
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
	if u.Host != defaultAddr {
		t.Fatalf("host = %q, want %q", u.Host, defaultAddr)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_NowPlayingDecodesPayload(t *testing.T) {
	t.Parallel()

	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		if r.Method != http.MethodGet || r.URL.Path != "/now-playing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"item": {"id": 42, "title": "Song", "duration": 200,
				"album": {"id": "al1", "title": "Album"},
				"artists": [{"id": 1, "name": "Artist"}]},
			"paused": false, "position": 50.5, "volume": 80, "repeat": 2, "shuffle": true,
			"albumArt": "https://resources.tidal.com/images/x.jpg"
		}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	np, err := c.NowPlaying(ctx)
	if err != nil {
		t.Fatalf("NowPlaying returned error: %v", err)
	}
	if np.Item == nil || np.Item.ID != "42" || np.Item.Title != "Song" || np.Item.Duration != 200 {
		t.Fatalf("item = %#v, want id 42 Song 200s", np.Item)
	}
	if np.Paused || np.Position == nil || *np.Position != 50.5 {
		t.Fatalf("paused/position = %v/%v, want false/50.5", np.Paused, np.Position)
	}
	if np.Volume == nil || *np.Volume != 80 || np.Repeat == nil || *np.Repeat != 2 || np.Shuffle == nil || !*np.Shuffle {
		t.Fatalf("settings = %v/%v/%v, want 80/2/true", np.Volume, np.Repeat, np.Shuffle)
	}
	if !strings.HasPrefix(gotUserAgent, "tidalbridge/") {
		t.Fatalf("User-Agent = %q, want tidalbridge/*", gotUserAgent)
	}
}

func TestClient_CommandsEncodeQueries(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	got := map[string]url.Values{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		mu.Lock()
		got[r.URL.Path] = r.URL.Query()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	steps := []struct {
		name string
		run  func() error
	}{
		{"play", func() error { return c.Play(ctx) }},
		{"pause", func() error { return c.Pause(ctx) }},
		{"next", func() error { return c.Next(ctx) }},
		{"previous", func() error { return c.Previous(ctx) }},
		{"seek", func() error { return c.Seek(ctx, 61500) }},
		{"volume", func() error { return c.SetVolume(ctx, 35) }},
		{"repeat", func() error { return c.SetRepeat(ctx, RepeatContext) }},
		{"shuffle", func() error { return c.SetShuffle(ctx, true) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s returned error: %v", step.name, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, path := range []string{"/play", "/pause", "/next", "/previous"} {
		if _, ok := got[path]; !ok {
			t.Fatalf("no request for %s; got %v", path, got)
		}
	}
	if got["/seek"].Get("position") != "61.5" {
		t.Fatalf("seek query = %v, want position=61.5", got["/seek"])
	}
	if got["/volume"].Get("level") != "35" {
		t.Fatalf("volume query = %v, want level=35", got["/volume"])
	}
	if got["/repeat"].Get("state") != "context" {
		t.Fatalf("repeat query = %v, want state=context", got["/repeat"])
	}
	if got["/shuffle"].Get("state") != "true" {
		t.Fatalf("shuffle query = %v, want state=true", got["/shuffle"])
	}
}

func TestClient_RejectsInvalidArguments(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := c.SetVolume(context.Background(), 101); err == nil {
		t.Fatalf("SetVolume(101) returned nil error, want error")
	}
	if err := c.SetRepeat(context.Background(), "all"); err == nil {
		t.Fatalf("SetRepeat(all) returned nil error, want error")
	}
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("case") {
		case "status":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "decode":
			_, _ = w.Write([]byte("{not-json"))
		case "error":
			_, _ = w.Write([]byte(`{"error": "tidal not running"}`))
		}
	}))
	t.Cleanup(server.Close)

	fetch := func(c string) error {
		cl, err := NewClient(server.URL)
		if err != nil {
			t.Fatalf("NewClient returned error: %v", err)
		}
		var np NowPlaying
		rel := &url.URL{Path: "/now-playing", RawQuery: "case=" + c}
		if err := cl.doURL(context.Background(), cl.poll, http.MethodGet, rel, &np); err != nil {
			return err
		}
		if msg, ok := np.ErrorMessage(); ok {
			return &PayloadError{Reason: msg}
		}
		return nil
	}

	var statusErr *StatusError
	if err := fetch("status"); !errors.As(err, &statusErr) || statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("status case error = %v, want StatusError 500", err)
	}

	var payloadErr *PayloadError
	if err := fetch("decode"); !errors.As(err, &payloadErr) || IsTransport(err) {
		t.Fatalf("decode case error = %v, want PayloadError", err)
	}
	if err := fetch("error"); !errors.As(err, &payloadErr) || payloadErr.Reason != "tidal not running" {
		t.Fatalf("error-field case error = %v, want PayloadError with reason", err)
	}
}

func TestClient_UnreachableIsTransport(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c, err := NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.NowPlaying(context.Background())
	if err == nil {
		t.Fatalf("NowPlaying returned nil error, want transport error")
	}
	if !IsTransport(err) {
		t.Fatalf("IsTransport(%v) = false, want true", err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatalf("transport error should not be a StatusError: %v", err)
	}
}

func TestRetryDialFailures(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	readErr := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("reset")}

	if retry, _ := retryDialFailures(context.Background(), nil, dialErr); !retry {
		t.Fatalf("dial failure should be retried")
	}
	if retry, _ := retryDialFailures(context.Background(), nil, readErr); retry {
		t.Fatalf("read failure must not be retried")
	}
	if retry, _ := retryDialFailures(context.Background(), &http.Response{StatusCode: 500}, nil); retry {
		t.Fatalf("status responses must not be retried")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if retry, err := retryDialFailures(ctx, nil, dialErr); retry || err == nil {
		t.Fatalf("cancelled context = %v, %v; want no retry and error", retry, err)
	}
}
