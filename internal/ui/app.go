package ui

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tidalbridge/internal/liveness"
	"github.com/five82/tidalbridge/internal/logtail"
	"github.com/five82/tidalbridge/internal/prefs"
	"github.com/five82/tidalbridge/internal/state"
)

const (
	defaultRefresh = 250 * time.Millisecond
	logLines       = 3
	// logEvery is the number of refresh ticks between log tail reads.
	logEvery = 4
)

// Health is the connection summary shown in the banner.
type Health struct {
	Remote    string
	Phase     string
	Failures  int
	RetryIn   time.Duration
	LastError error
	Listener  liveness.Status
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Health    func() Health
	LogPath   string
	Refresh   time.Duration
	ThemeName string
	ShowKeys  bool
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	health    func() Health
	logPath   string
	refresh   time.Duration
	prefsPath string

	// UI state
	theme    Theme
	keys     keyMap
	help     help.Model
	progress progress.Model
	width    int
	height   int
	ready    bool
	ticks    int

	// Data state
	player  state.PlayerState
	status  Health
	logs    []string
	updates chan state.PlayerState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:       ctx,
		store:     opts.Store,
		health:    opts.Health,
		logPath:   opts.LogPath,
		refresh:   refresh,
		prefsPath: prefsPath,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		updates:   make(chan state.PlayerState, 1),
	}
	m.help.ShowAll = opts.ShowKeys
	m.applyTheme(GetTheme(opts.ThemeName))
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.refresh),
		waitForUpdate(m.updates),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.logPath != "" {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-24, 10)
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.player = state.PlayerState(msg)
		return m, nil

	case updateMsg:
		m.player = state.PlayerState(msg)
		return m, waitForUpdate(m.updates)

	case logTailMsg:
		m.logs = msg
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.renderMain()
}

// handleKey maps key presses onto store commands. Commands block on the
// network, so they run as tea.Cmds and report back through the store.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.applyTheme(GetTheme(NextTheme(m.theme.Name)))
		m.savePrefs()
		return m, nil
	}

	if m.store == nil {
		return m, nil
	}
	store, ctx, p := m.store, m.ctx, m.player

	switch {
	case key.Matches(msg, m.keys.PlayPause):
		return m, storeCmd(func() { store.TogglePlaying(ctx) })

	case key.Matches(msg, m.keys.Next):
		return m, storeCmd(func() { store.Next(ctx) })

	case key.Matches(msg, m.keys.Previous):
		return m, storeCmd(func() { store.Previous(ctx) })

	case key.Matches(msg, m.keys.SeekBack), key.Matches(msg, m.keys.SeekForward):
		if p.Track == nil {
			return m, nil
		}
		delta := seekStep
		if key.Matches(msg, m.keys.SeekBack) {
			delta = -seekStep
		}
		target := seekTarget(store.EffectivePosition(), p.Track.DurationMs, delta)
		return m, storeCmd(func() { store.RequestSeek(ctx, target) })

	case key.Matches(msg, m.keys.VolumeUp), key.Matches(msg, m.keys.VolumeDown):
		if !p.HasVolume {
			return m, nil
		}
		delta := volumeStep
		if key.Matches(msg, m.keys.VolumeDown) {
			delta = -volumeStep
		}
		level := stepVolume(p.Volume, delta)
		return m, storeCmd(func() { store.SetVolume(ctx, level) })

	case key.Matches(msg, m.keys.CycleRepeat):
		mode := nextRepeat(p.Repeat)
		return m, storeCmd(func() { store.SetRepeat(ctx, mode) })

	case key.Matches(msg, m.keys.ToggleShuffle):
		enabled := !p.Shuffle
		return m, storeCmd(func() { store.SetShuffle(ctx, enabled) })
	}

	return m, nil
}

// handleTick refreshes the position and connection banner.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.refresh)}

	if m.store != nil {
		m.player = m.store.Snapshot()
	}
	if m.health != nil {
		m.status = m.health()
	}

	m.ticks++
	if m.logPath != "" && m.ticks%logEvery == 0 {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) applyTheme(t Theme) {
	m.theme = t
	m.progress = progress.New(
		progress.WithSolidFill(t.Accent),
		progress.WithoutPercentage(),
		progress.WithWidth(max(m.progress.Width, 10)),
	)
	m.progress.EmptyColor = t.SurfaceAlt

	m.help.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent))
	m.help.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted))
	m.help.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint))
	m.help.Styles.FullKey = m.help.Styles.ShortKey
	m.help.Styles.FullDesc = m.help.Styles.ShortDesc
	m.help.Styles.FullSeparator = m.help.Styles.ShortSeparator
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name}.WithKeyHints(m.help.ShowAll)
	if err := prefs.Save(m.prefsPath, p); err != nil {
		log.Printf("ui: save prefs: %v", err)
	}
}

// forward is the store observer. It never blocks; a pending update is
// replaced by the newer one.
func (m Model) forward(st state.PlayerState) {
	for {
		select {
		case m.updates <- st:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.PlayerState

type updateMsg state.PlayerState

type logTailMsg []string

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func waitForUpdate(ch <-chan state.PlayerState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(st)
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, logLines)
		if err != nil {
			return nil
		}
		return logTailMsg(lines)
	}
}

// storeCmd runs a blocking store command off the UI goroutine. The store
// notifies observers itself, so there is nothing to report.
func storeCmd(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	if m.store != nil {
		unsubscribe := m.store.Subscribe(m.forward)
		defer unsubscribe()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
