package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for digestbot.
type Config struct {
	General   GeneralConfig   `json:"general" yaml:"general"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Notifier  NotifierConfig  `json:"notifier" yaml:"notifier"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule"`
	Collector CollectorConfig `json:"collector" yaml:"collector"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	LogFile  string `json:"logFile,omitempty" yaml:"logFile,omitempty"` // rotated by size when set
}

type StoreConfig struct {
	// DSN is a postgres:// URL, a key=value libpq string, sqlite://path or a bare SQLite path.
	DSN                   string `json:"dsn" yaml:"dsn"`
	MaxConnections        int    `json:"maxConnections" yaml:"maxConnections"`
	ConnectTimeoutSeconds int    `json:"connectTimeoutSeconds" yaml:"connectTimeoutSeconds"`
	QueryTimeoutSeconds   int    `json:"queryTimeoutSeconds" yaml:"queryTimeoutSeconds"`
}

func (s StoreConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSeconds) * time.Second
}

func (s StoreConfig) QueryTimeout() time.Duration {
	return time.Duration(s.QueryTimeoutSeconds) * time.Second
}

type LLMConfig struct {
	Provider       string  `json:"provider" yaml:"provider"` // "hyperbolic" | "openai" | "ollama" | "claude" | any OpenAI-compatible name
	APIBase        string  `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	APIKey         string  `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Model          string  `json:"model" yaml:"model"`
	TimeoutSeconds int     `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	MaxTokens      int     `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	SystemPrompt   string  `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"` // overrides the built-in instruction
}

func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

type NotifierConfig struct {
	Platform       string `json:"platform" yaml:"platform"` // "discord" | "telegram" | "slack" | "log"
	Token          string `json:"token" yaml:"token"`
	ChannelID      string `json:"channelId" yaml:"channelId"`
	ParseMode      string `json:"parseMode,omitempty" yaml:"parseMode,omitempty"` // telegram only
	APIURL         string `json:"apiUrl,omitempty" yaml:"apiUrl,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

func (n NotifierConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

type ScheduleConfig struct {
	Cron       string `json:"cron" yaml:"cron"` // five-field expression, evaluated in UTC
	RunOnStart bool   `json:"runOnStart" yaml:"runOnStart"`
}

type CollectorConfig struct {
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	Token      string         `json:"token,omitempty" yaml:"token,omitempty"` // defaults to notifier.token when the notifier is discord
	ChannelIDs FlexStringList `json:"channelIds,omitempty" yaml:"channelIds,omitempty"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		// Discord snowflakes overflow float64, so integers keep their literal digits.
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			if _, err := n.Int64(); err == nil {
				result = append(result, n.String())
			} else if f, err := n.Float64(); err == nil {
				result = append(result, strconv.FormatFloat(f, 'f', -1, 64))
			} else {
				result = append(result, n.String())
			}
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.digestbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".digestbot"
	}
	return filepath.Join(home, ".digestbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a JSON or YAML config file, substitutes ${VAR} references,
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	cfg, err := decode(path, []byte(ExpandEnvVars(string(data))))
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadRaw reads a config file without ${VAR} substitution or environment
// overrides, for editing and saving back.
func LoadRaw(path string) (*Config, error) {
	path = ExpandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return decode(path, data)
}

// decode parses data over Defaults so omitted keys keep their default.
func decode(path string, data []byte) (*Config, error) {
	cfg := Defaults()
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrEnv loads path when it exists; otherwise it starts from Defaults and
// relies on environment variables alone.
func LoadOrEnv(path string) (*Config, error) {
	if _, err := os.Stat(ExpandPath(path)); errors.Is(err, os.ErrNotExist) {
		return finish(Defaults())
	}
	return Load(path)
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnv(cfg)

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Store.DSN = ExpandPath(cfg.Store.DSN)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Save writes cfg as YAML or JSON depending on the file extension.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

var knownPlatforms = map[string]bool{"discord": true, "telegram": true, "slack": true, "log": true}

// Validate checks that the config is structurally sound. Credentials are
// checked separately by CheckCredentials.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if strings.TrimSpace(cfg.Store.DSN) == "" {
		errs = append(errs, "store.dsn is required (or set DATABASE_URL)")
	}
	if cfg.Store.MaxConnections < 1 || cfg.Store.MaxConnections > 100 {
		errs = append(errs, "store.maxConnections must be between 1 and 100")
	}
	if cfg.Store.ConnectTimeoutSeconds < 1 {
		errs = append(errs, "store.connectTimeoutSeconds must be >= 1")
	}
	if cfg.Store.QueryTimeoutSeconds < 1 {
		errs = append(errs, "store.queryTimeoutSeconds must be >= 1")
	}

	if cfg.LLM.Provider == "" {
		errs = append(errs, "llm.provider is required")
	}
	if cfg.LLM.TimeoutSeconds < 1 {
		errs = append(errs, "llm.timeoutSeconds must be >= 1")
	}
	if cfg.LLM.MaxTokens < 0 {
		errs = append(errs, "llm.maxTokens must be >= 0")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}

	if !knownPlatforms[cfg.Notifier.Platform] {
		errs = append(errs, "notifier.platform must be one of: discord, telegram, slack, log")
	}
	if cfg.Notifier.TimeoutSeconds < 1 {
		errs = append(errs, "notifier.timeoutSeconds must be >= 1")
	}

	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Sprintf("schedule.cron %q is invalid: %v", cfg.Schedule.Cron, err))
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Addr == "" {
			errs = append(errs, "metrics.addr is required when metrics are enabled")
		}
		if !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
			errs = append(errs, "metrics.endpoint must start with /")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// CheckCredentials reports settings that are needed at runtime but may be
// left blank in a freshly initialised config.
func CheckCredentials(cfg *Config) []string {
	var missing []string

	switch cfg.LLM.Provider {
	case "ollama":
	default:
		if unset(cfg.LLM.APIKey) {
			missing = append(missing, fmt.Sprintf("llm.apiKey is empty for provider %s (set HYPERBOLIC_API_KEY)", cfg.LLM.Provider))
		}
	}

	if cfg.Notifier.Platform != "log" {
		if unset(cfg.Notifier.Token) {
			missing = append(missing, fmt.Sprintf("notifier.token is empty for %s (set DISCORD_TOKEN)", cfg.Notifier.Platform))
		}
		if unset(cfg.Notifier.ChannelID) {
			missing = append(missing, "notifier.channelId is empty (set CHANNEL_ID)")
		}
	}

	if cfg.Collector.Enabled && unset(cfg.CollectorToken()) {
		missing = append(missing, "collector.token is empty and the notifier is not discord")
	}
	return missing
}

// unset reports whether v is empty or an unresolved ${VAR} reference.
func unset(v string) bool {
	return v == "" || envVarPattern.FindString(v) == v
}

// CollectorToken returns the Discord token the collector should use.
func (c *Config) CollectorToken() string {
	if c.Collector.Token != "" {
		return c.Collector.Token
	}
	if c.Notifier.Platform == "discord" {
		return c.Notifier.Token
	}
	return ""
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// parseBool accepts the spellings commonly used in environment variables.
func parseBool(s string) (bool, bool) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return b, true
}
