package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tidalbridge/internal/state"
)

// renderMain stacks header, track panel, banner, log strip and key help.
func (m Model) renderMain() string {
	styles := m.theme.Styles()

	sections := []string{
		m.renderHeader(styles),
		m.renderTrack(styles),
	}
	if banner := m.renderBanner(styles); banner != "" {
		sections = append(sections, banner)
	}
	if logs := m.renderLogs(styles); logs != "" {
		sections = append(sections, logs)
	}
	sections = append(sections, styles.Footer.Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(styles Styles) string {
	parts := []string{styles.Logo.Render("tidalbridge")}

	switch {
	case m.player.Track == nil:
		parts = append(parts, styles.Badge(m.theme.Muted).Render("idle"))
	case m.player.Playing:
		parts = append(parts, styles.Badge(m.theme.Success).Render("playing"))
	default:
		parts = append(parts, styles.Badge(m.theme.Warning).Render("paused"))
	}

	if m.status.Phase != "" {
		parts = append(parts, styles.Badge(m.theme.PhaseColor(m.status.Phase)).Render(m.status.Phase))
	}
	if m.status.Remote != "" {
		parts = append(parts, styles.MutedText.Render(m.status.Remote))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderTrack(styles Styles) string {
	width := max(m.width-4, 20)
	p := m.player

	if p.Track == nil {
		return styles.Panel.Width(width).Render(styles.MutedText.Render("Nothing playing"))
	}

	lines := []string{
		styles.Title.Render(truncate(p.Track.Title, width)),
	}
	if artists := joinArtists(p.Track.ArtistNames()); artists != "" {
		lines = append(lines, styles.AccentText.Render(truncate(artists, width)))
	}
	if album := p.Track.Album.Title; album != "" {
		lines = append(lines, styles.FaintText.Render(truncate(album, width)))
	}

	lines = append(lines, "", m.renderProgress(styles, p), m.renderSettings(styles, p))

	return styles.Panel.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderProgress(styles Styles, p state.PlayerState) string {
	bar := m.progress.ViewAs(progressRatio(p.PositionMs, p.Track.DurationMs))
	elapsed := formatClock(p.PositionMs)
	if p.Seeking {
		elapsed += "…"
	}
	return fmt.Sprintf("%s %s %s",
		styles.Text.Render(elapsed),
		bar,
		styles.MutedText.Render(formatClock(p.Track.DurationMs)),
	)
}

func (m Model) renderSettings(styles Styles, p state.PlayerState) string {
	var parts []string

	if p.HasVolume {
		parts = append(parts, styles.MutedText.Render("vol ")+styles.Text.Render(fmt.Sprintf("%d%%", p.Volume)))
	} else {
		parts = append(parts, styles.FaintText.Render("vol --"))
	}

	repeat := string(p.Repeat)
	if p.Repeat == state.RepeatUnset {
		repeat = "--"
	}
	parts = append(parts, styles.MutedText.Render("repeat ")+styles.Text.Render(repeat))

	switch {
	case !p.HasShuffle:
		parts = append(parts, styles.FaintText.Render("shuffle --"))
	case p.Shuffle:
		parts = append(parts, styles.MutedText.Render("shuffle ")+styles.SuccessText.Render("on"))
	default:
		parts = append(parts, styles.MutedText.Render("shuffle ")+styles.Text.Render("off"))
	}

	return strings.Join(parts, "   ")
}

// renderBanner explains why the panel may be stale. Empty while healthy.
func (m Model) renderBanner(styles Styles) string {
	st := m.status
	switch st.Phase {
	case "backoff":
		msg := fmt.Sprintf("Remote unreachable, retrying in %s", humanizeDuration(st.RetryIn))
		if st.Failures == 0 {
			msg = fmt.Sprintf("Remote returned an error, retrying in %s", humanizeDuration(st.RetryIn))
		}
		if st.Listener.Errored {
			msg += " (liveness listener unavailable)"
		}
		return m.bannerLine(styles.WarningText, msg, st.LastError)
	case "fallback":
		msg := fmt.Sprintf("Remote down, waiting for a signal on %s (active check in %s)",
			st.Listener.Addr, humanizeDuration(st.RetryIn))
		return m.bannerLine(styles.DangerText, msg, nil)
	}
	return ""
}

func (m Model) bannerLine(style lipgloss.Style, msg string, err error) string {
	width := max(m.width-2, 20)
	out := style.Render(truncate(msg, width))
	if err != nil {
		out += "\n" + m.theme.Styles().FaintText.Render(truncate(err.Error(), width))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(out)
}

func (m Model) renderLogs(styles Styles) string {
	if len(m.logs) == 0 {
		return ""
	}
	width := max(m.width-2, 20)
	lines := make([]string, 0, len(m.logs))
	for _, line := range m.logs {
		lines = append(lines, styles.FaintText.Render(truncate(line, width)))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}
