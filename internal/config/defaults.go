package config

const (
	defaultDataDir            = "~/.local/share/watchq"
	defaultLogDir             = "~/.local/share/watchq/logs"
	defaultBridgeBind         = "127.0.0.1:7718"
	defaultWatchPathSegment   = "watch"
	defaultMenuSelector       = `[role="menu"], ul, ol`
	defaultAudioMenuToggle    = `[data-testid="audio-menu-button"], button[aria-label="Audio"]`
	defaultAudioMenuOption    = `[data-testid="audio-menu-option"], [role="menuitemradio"]`
	defaultRescanSeconds      = 2
	defaultMenuPollTimeoutMs  = 2000
	defaultMenuPollTickMs     = 100
	defaultDirectiveTimeoutMs = 3000
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultURLPatterns() []string {
	return []string{
		"https://*.crunchyroll.com/*",
		"http://*.crunchyroll.com/*",
	}
}

func defaultCardSelectors() []string {
	return []string{
		`[data-testid="episode-card"]`,
		"article",
		"li",
		"div",
	}
}

func defaultTitleSelectors() []string {
	return []string{
		`[data-testid="media-card-title"]`,
		"h3",
		".text--primary",
		".card-title",
	}
}

func defaultSubtitleSelectors() []string {
	return []string{
		`[data-testid="media-card-subtitle"]`,
		".text--secondary",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			BridgeBind: defaultBridgeBind,
		},
		Site: Site{
			URLPatterns:       defaultURLPatterns(),
			WatchPathSegment:  defaultWatchPathSegment,
			CardSelectors:     defaultCardSelectors(),
			TitleSelectors:    defaultTitleSelectors(),
			SubtitleSelectors: defaultSubtitleSelectors(),
			MenuSelector:      defaultMenuSelector,
			AudioMenuToggle:   defaultAudioMenuToggle,
			AudioMenuOption:   defaultAudioMenuOption,
		},
		Content: Content{
			RescanIntervalSeconds: defaultRescanSeconds,
			MenuPollTimeoutMillis: defaultMenuPollTimeoutMs,
			MenuPollTickMillis:    defaultMenuPollTickMs,
			DirectiveTimeoutMs:    defaultDirectiveTimeoutMs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
