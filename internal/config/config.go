package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, socket, and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
	BridgeBind string `toml:"bridge_bind"`
}

// Site describes how page sessions are matched to the target streaming site
// and which DOM selectors the content engine scans with. Selector lists are
// ordered fallback strategies: the first selector that matches wins, so site
// layout changes are absorbed here instead of in code.
type Site struct {
	URLPatterns       []string `toml:"url_patterns"`
	WatchPathSegment  string   `toml:"watch_path_segment"`
	CardSelectors     []string `toml:"card_selectors"`
	TitleSelectors    []string `toml:"title_selectors"`
	SubtitleSelectors []string `toml:"subtitle_selectors"`
	MenuSelector      string   `toml:"menu_selector"`
	AudioMenuToggle   string   `toml:"audio_menu_toggle_selector"`
	AudioMenuOption   string   `toml:"audio_menu_option_selector"`
}

// Content contains timing configuration for the content adaptation engine.
type Content struct {
	RescanIntervalSeconds int `toml:"rescan_interval_seconds"`
	MenuPollTimeoutMillis int `toml:"menu_poll_timeout_millis"`
	MenuPollTickMillis    int `toml:"menu_poll_tick_millis"`
	DirectiveTimeoutMs    int `toml:"directive_timeout_millis"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for watchq.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, daemon socket, bridge bind address
//   - Site: URL patterns and DOM selector lists for the target site
//   - Content: rescan and poll timing for the content engine
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Site    Site    `toml:"site"`
	Content Content `toml:"content"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/watchq/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("watchq.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
