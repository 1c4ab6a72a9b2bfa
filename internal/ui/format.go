package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/five82/tidalbridge/internal/tidal"
)

const (
	seekStep   = 10 * time.Second
	volumeStep = 5
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// formatClock renders milliseconds as m:ss, or h:mm:ss past an hour.
func formatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// humanizeDuration formats a countdown like "4m12s" or "6s".
func humanizeDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// joinArtists joins non-empty artist names.
func joinArtists(names []string) string {
	names = lo.Compact(lo.Map(names, func(n string, _ int) string { return strings.TrimSpace(n) }))
	return strings.Join(names, ", ")
}

// nextRepeat cycles off, context, track. An unknown mode starts at context.
func nextRepeat(mode tidal.RepeatMode) tidal.RepeatMode {
	switch mode {
	case tidal.RepeatContext:
		return tidal.RepeatTrack
	case tidal.RepeatTrack:
		return tidal.RepeatOff
	default:
		return tidal.RepeatContext
	}
}

// seekTarget moves pos by delta, clamped to the track.
func seekTarget(posMs, durationMs int64, delta time.Duration) int64 {
	target := posMs + delta.Milliseconds()
	if durationMs > 0 && target > durationMs {
		target = durationMs
	}
	return max(target, 0)
}

// stepVolume moves a percentage by delta, clamped to 0..100.
func stepVolume(current, delta int) int {
	return lo.Clamp(current+delta, 0, 100)
}

// progressRatio is the played fraction of the track.
func progressRatio(posMs, durationMs int64) float64 {
	if durationMs <= 0 {
		return 0
	}
	return lo.Clamp(float64(posMs)/float64(durationMs), 0, 1)
}
