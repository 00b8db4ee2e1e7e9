// Package environment loads the bot configuration from the process
// environment, optionally seeded by a .env file.
package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DiscordAPIKey  string `env:"DISCORD_API_KEY,required"`
	RaidLeaderRole string `env:"DISCORD_RAID_LEADER_ROLE" envDefault:"Raid Leader"`
	// RegisterGuildID scopes slash command registration to one guild; empty registers globally.
	RegisterGuildID string `env:"DISCORD_REGISTER_GUILD_ID"`

	RaidSQLiteDBPath string `env:"RAID_SQLITE_DB_PATH" envDefault:"raid.db"`
	CatalogPath      string `env:"RAID_CATALOG_PATH"`
	DefaultZone      string `env:"RAID_DEFAULT_ZONE" envDefault:"UTC"`

	SweepInterval time.Duration `env:"RAID_SWEEP_INTERVAL" envDefault:"5m"`
	Lookahead     time.Duration `env:"RAID_SWEEP_LOOKAHEAD" envDefault:"1h"`
	Retention     time.Duration `env:"RAID_RETENTION" envDefault:"2h"`
	NotifyWindow  time.Duration `env:"RAID_NOTIFY_WINDOW" envDefault:"15m"`
	ReplyTimeout  time.Duration `env:"RAID_REPLY_TIMEOUT" envDefault:"300s"`

	PageSize int `env:"RAID_PAGE_SIZE" envDefault:"6"`
	Ceiling  int `env:"RAID_EMBED_CEILING" envDefault:"1024"`

	NotionBotAPIKey    string `env:"NOTION_BOT_API_KEY"`
	NotionCalendarDBID string `env:"NOTION_CALENDAR_DB_ID"`

	MetricsAddr string `env:"METRICS_ADDR"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// CalendarEnabled reports whether both Notion settings are present.
func (c Config) CalendarEnabled() bool {
	return c.NotionBotAPIKey != "" && c.NotionCalendarDBID != ""
}

// Load reads .env files if present and parses the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.SweepInterval <= 0:
		return errors.New("RAID_SWEEP_INTERVAL must be positive")
	case c.Retention < 0 || c.NotifyWindow < 0 || c.Lookahead < 0:
		return errors.New("RAID_RETENTION, RAID_NOTIFY_WINDOW and RAID_SWEEP_LOOKAHEAD must not be negative")
	case c.Lookahead < 2*c.NotifyWindow:
		// notices go out between 2x and 1x the window before start
		return errors.New("RAID_SWEEP_LOOKAHEAD must be at least twice RAID_NOTIFY_WINDOW")
	case c.ReplyTimeout <= 0:
		return errors.New("RAID_REPLY_TIMEOUT must be positive")
	case c.PageSize < 1 || c.Ceiling < 1:
		return errors.New("RAID_PAGE_SIZE and RAID_EMBED_CEILING must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level is the parsed LOG_LEVEL.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
