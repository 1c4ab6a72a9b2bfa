package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/tidalbridge/internal/config"
	"github.com/five82/tidalbridge/internal/liveness"
	"github.com/five82/tidalbridge/internal/tidal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func hostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(strings.TrimPrefix(rawURL, "http://"))
	if err != nil {
		t.Fatalf("SplitHostPort(%q): %v", rawURL, err)
	}
	return host, port
}

func TestStatus_PrintsSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"item":{"id":"9","title":"Night Drive","duration":3725,"album":{"id":"2","title":"Roads"},"artists":[{"id":"1","name":"A"},{"id":"3","name":"B"}]},"paused":false,"position":61.4,"volume":35,"repeat":2,"shuffle":false}`))
	}))
	defer server.Close()

	host, port := hostPort(t, server.URL)
	path := writeConfig(t, fmt.Sprintf("host = %q\nport = %s\n", host, port))

	var out bytes.Buffer
	if err := Status(context.Background(), Options{ConfigPath: path}, &out); err != nil {
		t.Fatalf("Status returned error: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"track     Night Drive",
		"artists   A, B",
		"album     Roads",
		"state     playing 1:01 / 1:02:05",
		"volume    35%",
		"repeat    track",
		"shuffle   off",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status output missing %q:\n%s", want, got)
		}
	}
}

func TestStatus_UnreachableIsTransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	path := writeConfig(t, fmt.Sprintf("host = \"127.0.0.1\"\nport = %d\n", addr.Port))
	err = Status(context.Background(), Options{ConfigPath: path}, &bytes.Buffer{})
	if !tidal.IsTransport(err) {
		t.Fatalf("Status error = %v, want transport failure", err)
	}
}

func TestNotify_ReachesListener(t *testing.T) {
	l := liveness.New()
	if !l.Start("127.0.0.1", 0) {
		t.Fatalf("Start failed")
	}
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Notify(ctx, Options{}, l.Status().Addr); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for l.Status().Listening {
		if time.Now().After(deadline) {
			t.Fatalf("listener still listening after Notify")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "poll_seconds = 4\n[listen]\nenabled = true\n")

	cfg, err := loadConfig(Options{ConfigPath: path, PollEvery: 2, NoListen: true})
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.ListenEnabled || pollerOptions(cfg).FallbackEnabled {
		t.Fatalf("listening still enabled with NoListen")
	}
}

func TestLoadConfig_WrapsErrors(t *testing.T) {
	path := writeConfig(t, "port = 0\n")
	_, err := loadConfig(Options{ConfigPath: path})
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("loadConfig error = %v, want load config failure", err)
	}
}

func TestPollerOptions_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FailureThreshold = 7
	cfg.ListenPort = 4000

	got := pollerOptions(cfg)
	if got.Interval != time.Second || got.FailureThreshold != 7 || got.BackupInterval != 5*time.Minute {
		t.Fatalf("pollerOptions = %+v", got)
	}
	if !got.FallbackEnabled || got.ListenHost != "127.0.0.1" || got.ListenPort != 4000 {
		t.Fatalf("pollerOptions listener = %+v", got)
	}
	cfg.ListenEnabled = false
	if pollerOptions(cfg).FallbackEnabled {
		t.Fatalf("FallbackEnabled = true with listening disabled")
	}
}

func TestHealthOf_ReportsPhase(t *testing.T) {
	p, _, fetcher, _ := newTestPoller(testOptions())
	fetcher.queue(result{err: errStatus})
	p.tick(context.Background())

	h := healthOf(p, "127.0.0.1:3665")()
	if h.Phase != "backoff" || h.Remote != "127.0.0.1:3665" || h.RetryIn != 3*time.Second {
		t.Fatalf("health = %+v", h)
	}
	var statusErr *tidal.StatusError
	if !errors.As(h.LastError, &statusErr) {
		t.Fatalf("LastError = %v, want *tidal.StatusError", h.LastError)
	}
}

func TestClock(t *testing.T) {
	cases := map[int64]string{
		-1:        "0:00",
		59_999:    "0:59",
		61_000:    "1:01",
		3_725_000: "1:02:05",
	}
	for ms, want := range cases {
		if got := clock(ms); got != want {
			t.Errorf("clock(%d) = %q, want %q", ms, got, want)
		}
	}
}
