package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

type Config struct {
	Bluesky  BlueskyConfig  `json:"bluesky"`
	Analysis AnalysisConfig `json:"analysis"`
	Bot      BotConfig      `json:"bot"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
}

// BlueskyConfig holds the platform session settings.
//
// Identifier/Password can be left empty in the file and provided through
// the environment instead (BLUESKY_IDENTIFIER / BLUESKY_PASSWORD); the env
// always wins so secrets never need to live in the config file.
type BlueskyConfig struct {
	Host       string `json:"host,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Password   string `json:"password,omitempty"`

	// PostsPerMinute caps outgoing replies; 0 uses the default.
	PostsPerMinute int `json:"posts_per_minute,omitempty"`
}

type AnalysisConfig struct {
	// Endpoint is the analysis service URL (env: ANALYSIS_API).
	Endpoint string `json:"endpoint,omitempty"`
	// Timeout bounds a single analysis request, including retries ("20s").
	Timeout string `json:"timeout,omitempty"`
	// RetryMax is the number of extra attempts on transient transport failures.
	RetryMax int `json:"retry_max,omitempty"`
}

type BotConfig struct {
	// Name is the display name used in log lines (env: BOT_NAME).
	Name string `json:"name,omitempty"`
	// PollInterval between notification fetches ("60s").
	PollInterval string `json:"poll_interval,omitempty"`
	// CooldownWindow is the minimum spacing between granted analyses per DID ("6h").
	CooldownWindow string `json:"cooldown_window,omitempty"`
	// BatchLimit is the max notifications fetched per cycle.
	BatchLimit int `json:"batch_limit,omitempty"`
}

// StorageConfig configures the durable ledgers.
//
// Driver values:
//   - "sqlite" (default): SQLite database file
//   - "memory": non-durable, for tests and dry runs
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

const (
	DefaultHost           = "https://bsky.social"
	DefaultPollInterval   = "60s"
	DefaultCooldownWindow = "6h"
	DefaultAnalysisTO     = "20s"
	DefaultBatchLimit     = 50
	DefaultPostsPerMinute = 30
	DefaultStoragePath    = "./state.db"
)

// ApplyDefaults fills zero-valued fields in place.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Bluesky.Host) == "" {
		c.Bluesky.Host = DefaultHost
	}
	if c.Bluesky.PostsPerMinute <= 0 {
		c.Bluesky.PostsPerMinute = DefaultPostsPerMinute
	}
	if strings.TrimSpace(c.Analysis.Timeout) == "" {
		c.Analysis.Timeout = DefaultAnalysisTO
	}
	if c.Analysis.RetryMax < 0 {
		c.Analysis.RetryMax = 0
	}
	if strings.TrimSpace(c.Bot.PollInterval) == "" {
		c.Bot.PollInterval = DefaultPollInterval
	}
	if strings.TrimSpace(c.Bot.CooldownWindow) == "" {
		c.Bot.CooldownWindow = DefaultCooldownWindow
	}
	if c.Bot.BatchLimit <= 0 {
		c.Bot.BatchLimit = DefaultBatchLimit
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "sqlite"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
}

// ApplyEnv overrides secrets and endpoints from the process environment.
// Empty env vars leave the file values untouched.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BLUESKY_IDENTIFIER"); v != "" {
		c.Bluesky.Identifier = v
	}
	if v := os.Getenv("BLUESKY_PASSWORD"); v != "" {
		c.Bluesky.Password = v
	}
	if v := os.Getenv("ANALYSIS_API"); v != "" {
		c.Analysis.Endpoint = v
	}
	if v := os.Getenv("BOT_NAME"); v != "" {
		c.Bot.Name = v
	}
}

// Validate checks the fields the process cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bluesky.Identifier) == "" {
		return errors.New("bluesky.identifier is required (or BLUESKY_IDENTIFIER)")
	}
	if strings.TrimSpace(c.Bluesky.Password) == "" {
		return errors.New("bluesky.password is required (or BLUESKY_PASSWORD)")
	}
	ep := strings.TrimSpace(c.Analysis.Endpoint)
	if ep == "" {
		return errors.New("analysis.endpoint is required (or ANALYSIS_API)")
	}
	if u, err := url.Parse(ep); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("analysis.endpoint: not a valid URL: %q", ep)
	}
	for _, f := range []struct{ path, raw string }{
		{"bot.poll_interval", c.Bot.PollInterval},
		{"bot.cooldown_window", c.Bot.CooldownWindow},
		{"analysis.timeout", c.Analysis.Timeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "sqlite", "sqlite3", "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	return nil
}
