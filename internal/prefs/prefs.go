// Package prefs persists the panel's look between runs: the colour theme and
// whether the full key help is shown. The file lives at
// ~/.config/tidalbridge/prefs.toml unless another path is given.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for the now-playing panel.
type Prefs struct {
	Theme    string `toml:"theme"`
	ShowKeys *bool  `toml:"show_keys,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/tidalbridge/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// KeyHints reports whether the full key help should be shown. Defaults to true.
func (p Prefs) KeyHints() bool {
	return p.ShowKeys == nil || *p.ShowKeys
}

// WithKeyHints returns a copy of p with the key help preference set.
func (p Prefs) WithKeyHints(show bool) Prefs {
	p.ShowKeys = &show
	return p
}

func defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	return p
}

// Load returns the stored preferences. A missing file yields the defaults
// and no error. An unreadable or invalid file also yields usable defaults,
// together with the reason so the caller can report it.
func Load(path string) (Prefs, error) {
	file, err := locate(path)
	if err != nil {
		return defaults(), err
	}

	data, err := os.ReadFile(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return defaults(), nil
	case err != nil:
		return defaults(), fmt.Errorf("read prefs: %w", err)
	}

	p := defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return defaults(), fmt.Errorf("parse prefs %s: %w", file, err)
	}
	return p.normalized(), nil
}

// Save writes p next to the target and renames it into place, so a crash
// mid-write never leaves a truncated file behind.
func Save(path string, p Prefs) error {
	file, err := locate(path)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// locate expands a leading ~ and falls back to the default location for an
// empty path.
func locate(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	return filepath.Abs(path)
}
