package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything the bridge reads from config.toml.
type Config struct {
	Host string
	Port int

	ListenEnabled bool
	ListenHost    string
	ListenPort    int

	PreviousRestartsTrack bool

	PollInterval     time.Duration
	FailureThreshold int
	BackupInterval   time.Duration

	LogPath string
}

const (
	defaultConfigPath       = "~/.config/tidalbridge/config.toml"
	defaultLogPath          = "~/.local/state/tidalbridge/tidalbridge.log"
	defaultHost             = "127.0.0.1"
	defaultPort             = 3665
	defaultListenHost       = "127.0.0.1"
	defaultListenPort       = 3666
	defaultPollInterval     = time.Second
	defaultFailureThreshold = 5
	defaultBackupInterval   = 5 * time.Minute
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Host:                  defaultHost,
		Port:                  defaultPort,
		ListenEnabled:         true,
		ListenHost:            defaultListenHost,
		ListenPort:            defaultListenPort,
		PreviousRestartsTrack: true,
		PollInterval:          defaultPollInterval,
		FailureThreshold:      defaultFailureThreshold,
		BackupInterval:        defaultBackupInterval,
		LogPath:               mustExpand(defaultLogPath),
	}
}

type rawConfig struct {
	Host                  string `toml:"host"`
	Port                  *int   `toml:"port"`
	PreviousRestartsTrack *bool  `toml:"previous_restarts_track"`
	PollSeconds           int    `toml:"poll_seconds"`
	FailureThreshold      int    `toml:"failure_threshold"`
	BackupSeconds         int    `toml:"backup_seconds"`
	LogFile               string `toml:"log_file"`
	Listen                struct {
		Enabled *bool  `toml:"enabled"`
		Host    string `toml:"host"`
		Port    *int   `toml:"port"`
	} `toml:"listen"`
}

// Load locates and parses config.toml, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if host := strings.TrimSpace(raw.Host); host != "" {
		cfg.Host = host
	}
	if raw.Port != nil {
		if err := validPort(*raw.Port); err != nil {
			return Config{}, fmt.Errorf("parse config: port: %w", err)
		}
		cfg.Port = *raw.Port
	}
	if raw.PreviousRestartsTrack != nil {
		cfg.PreviousRestartsTrack = *raw.PreviousRestartsTrack
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if raw.FailureThreshold > 0 {
		cfg.FailureThreshold = raw.FailureThreshold
	}
	if raw.BackupSeconds > 0 {
		cfg.BackupInterval = time.Duration(raw.BackupSeconds) * time.Second
	}
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogPath = mustExpand(logFile)
	}

	if raw.Listen.Enabled != nil {
		cfg.ListenEnabled = *raw.Listen.Enabled
	}
	if host := strings.TrimSpace(raw.Listen.Host); host != "" {
		cfg.ListenHost = host
	}
	if raw.Listen.Port != nil {
		if err := validPort(*raw.Listen.Port); err != nil {
			return Config{}, fmt.Errorf("parse config: listen.port: %w", err)
		}
		cfg.ListenPort = *raw.Listen.Port
	}

	return cfg, nil
}

// RemoteAddr returns host:port of the remote-control API.
func (c Config) RemoteAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ListenAddr returns host:port of the liveness listener.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.ListenPort))
}

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%d out of range 1-65535", port)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
