package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the file. The first four match the
// variables the bot has always been deployed with.
const (
	EnvDiscordToken = "DISCORD_TOKEN"
	EnvChannelID    = "CHANNEL_ID"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvHyperbolic   = "HYPERBOLIC_API_KEY"
	EnvCron         = "DIGEST_CRON"
	EnvRunOnStart   = "DIGEST_RUN_ON_START"
	EnvLogLevel     = "DIGEST_LOG_LEVEL"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overwriting variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		p = ExpandPath(p)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv copies recognised environment variables into cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvDiscordToken); v != "" {
		if cfg.Notifier.Platform == "discord" {
			cfg.Notifier.Token = v
		}
		if cfg.Collector.Token == "" {
			cfg.Collector.Token = v
		}
	}
	if v := os.Getenv(EnvChannelID); v != "" {
		cfg.Notifier.ChannelID = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv(EnvHyperbolic); v != "" && (cfg.LLM.Provider == "hyperbolic" || cfg.LLM.APIKey == "") {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv(EnvCron); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv(EnvRunOnStart); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Schedule.RunOnStart = b
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.General.LogLevel = v
	}
}
