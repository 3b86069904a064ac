package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.BridgeBind) != "" {
		if _, _, err := net.SplitHostPort(c.Paths.BridgeBind); err != nil {
			return fmt.Errorf("paths.bridge_bind is not host:port: %w", err)
		}
	}
	return nil
}

func (c *Config) validateSite() error {
	for _, pattern := range c.Site.URLPatterns {
		if strings.TrimSpace(pattern) == "" {
			return errors.New("site.url_patterns must not contain empty entries")
		}
		if !strings.Contains(pattern, "://") {
			return fmt.Errorf("site.url_patterns entry %q is missing a scheme", pattern)
		}
	}
	if strings.Contains(c.Site.WatchPathSegment, "/") {
		return fmt.Errorf("site.watch_path_segment %q must be a single path segment", c.Site.WatchPathSegment)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
