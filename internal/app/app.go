package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tidalbridge/internal/config"
	"github.com/five82/tidalbridge/internal/liveness"
	"github.com/five82/tidalbridge/internal/prefs"
	"github.com/five82/tidalbridge/internal/state"
	"github.com/five82/tidalbridge/internal/tidal"
	"github.com/five82/tidalbridge/internal/ui"
)

// Options configure the bridge.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/tidalbridge/prefs.toml
	PollEvery  int    // seconds; zero uses the config value
	NoListen   bool   // disable the liveness fallback
}

// Run boots the poller and the now-playing TUI until the user quits or the
// context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logFile, err := openLog(cfg.LogPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	client, err := tidal.NewClient(cfg.RemoteAddr())
	if err != nil {
		return fmt.Errorf("init tidal client: %w", err)
	}

	store := state.New(client, state.Options{PreviousRestartsTrack: cfg.PreviousRestartsTrack})
	poller := NewPoller(store, client, liveness.New(), pollerOptions(cfg))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := poller.Start(ctx)

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Printf("prefs: %v, using defaults", err)
	}

	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Store:     store,
		Health:    healthOf(poller, cfg.RemoteAddr()),
		LogPath:   cfg.LogPath,
		ThemeName: userPrefs.Theme,
		ShowKeys:  userPrefs.KeyHints(),
		PrefsPath: opts.PrefsPath,
	})

	cancel()
	<-done
	return uiErr
}

// Status fetches /now-playing once and prints a summary to w.
func Status(ctx context.Context, opts Options, w io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	client, err := tidal.NewClient(cfg.RemoteAddr())
	if err != nil {
		return fmt.Errorf("init tidal client: %w", err)
	}

	np, err := client.NowPlaying(ctx)
	if err != nil {
		return fmt.Errorf("fetch now playing: %w", err)
	}
	store := state.New(nil, state.Options{})
	if err := store.ApplySnapshot(np); err != nil {
		return fmt.Errorf("apply now playing: %w", err)
	}

	writeStatus(w, cfg.RemoteAddr(), store.Snapshot())
	return nil
}

// Notify delivers a liveness signal to addr, or to the configured listener
// when addr is empty.
func Notify(ctx context.Context, opts Options, addr string) error {
	if strings.TrimSpace(addr) == "" {
		cfg, err := loadConfig(opts)
		if err != nil {
			return err
		}
		addr = cfg.ListenAddr()
	}
	return liveness.Notify(ctx, addr)
}

func loadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if opts.NoListen {
		cfg.ListenEnabled = false
	}
	return cfg, nil
}

// openLog sends the standard logger to path so log lines never land on the
// TUI.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "")
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return f, nil
}

func pollerOptions(cfg config.Config) PollerOptions {
	return PollerOptions{
		Interval:         cfg.PollInterval,
		FailureThreshold: cfg.FailureThreshold,
		BackupInterval:   cfg.BackupInterval,
		FallbackEnabled:  cfg.ListenEnabled,
		ListenHost:       cfg.ListenHost,
		ListenPort:       cfg.ListenPort,
	}
}

func healthOf(p *Poller, remote string) func() ui.Health {
	return func() ui.Health {
		st := p.Status()
		return ui.Health{
			Remote:    remote,
			Phase:     st.Phase.String(),
			Failures:  st.Failures,
			RetryIn:   st.RetryIn,
			LastError: st.LastError,
			Listener:  st.Listener,
		}
	}
}

func writeStatus(w io.Writer, remote string, p state.PlayerState) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%-9s %s\n", label, value)
	}

	row("remote", remote)
	if p.Track == nil {
		row("track", "(nothing loaded)")
		return
	}

	row("track", p.Track.Title)
	if artists := strings.Join(p.Track.ArtistNames(), ", "); artists != "" {
		row("artists", artists)
	}
	if p.Track.Album.Title != "" {
		row("album", p.Track.Album.Title)
	}

	playing := "paused"
	if p.Playing {
		playing = "playing"
	}
	row("state", fmt.Sprintf("%s %s / %s", playing, clock(p.PositionMs), clock(p.Track.DurationMs)))

	if p.HasVolume {
		row("volume", fmt.Sprintf("%d%%", p.Volume))
	}
	if p.Repeat != state.RepeatUnset {
		row("repeat", string(p.Repeat))
	}
	if p.HasShuffle {
		row("shuffle", map[bool]string{true: "on", false: "off"}[p.Shuffle])
	}
}

func clock(ms int64) string {
	total := max(ms, 0) / 1000
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
