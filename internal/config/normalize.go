package config

import (
	"path/filepath"
	"strings"
)

// normalize expands paths and fills derived values so the rest of the
// repository never needs to reason about tildes or empty fields.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, "watchqd.sock")
	} else if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return err
	}

	if strings.TrimSpace(c.Paths.BridgeBind) == "" {
		c.Paths.BridgeBind = defaultBridgeBind
	}

	if strings.TrimSpace(c.Site.WatchPathSegment) == "" {
		c.Site.WatchPathSegment = defaultWatchPathSegment
	}
	if len(c.Site.URLPatterns) == 0 {
		c.Site.URLPatterns = defaultURLPatterns()
	}
	if len(c.Site.CardSelectors) == 0 {
		c.Site.CardSelectors = defaultCardSelectors()
	}
	if len(c.Site.TitleSelectors) == 0 {
		c.Site.TitleSelectors = defaultTitleSelectors()
	}
	if len(c.Site.SubtitleSelectors) == 0 {
		c.Site.SubtitleSelectors = defaultSubtitleSelectors()
	}
	if strings.TrimSpace(c.Site.MenuSelector) == "" {
		c.Site.MenuSelector = defaultMenuSelector
	}
	if strings.TrimSpace(c.Site.AudioMenuToggle) == "" {
		c.Site.AudioMenuToggle = defaultAudioMenuToggle
	}
	if strings.TrimSpace(c.Site.AudioMenuOption) == "" {
		c.Site.AudioMenuOption = defaultAudioMenuOption
	}

	if c.Content.RescanIntervalSeconds <= 0 {
		c.Content.RescanIntervalSeconds = defaultRescanSeconds
	}
	if c.Content.MenuPollTimeoutMillis <= 0 {
		c.Content.MenuPollTimeoutMillis = defaultMenuPollTimeoutMs
	}
	if c.Content.MenuPollTickMillis <= 0 {
		c.Content.MenuPollTickMillis = defaultMenuPollTickMs
	}
	if c.Content.DirectiveTimeoutMs <= 0 {
		c.Content.DirectiveTimeoutMs = defaultDirectiveTimeoutMs
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
