package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every override so the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDiscordToken, EnvChannelID, EnvDatabaseURL, EnvHyperbolic, EnvCron, EnvRunOnStart, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MaxConnections_Boundary(t *testing.T) {
	cfg := Defaults()

	cfg.Store.MaxConnections = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConnections=0")
	}

	cfg.Store.MaxConnections = 101
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConnections=101")
	}

	for _, n := range []int{1, 100} {
		cfg.Store.MaxConnections = n
		if err := Validate(cfg); err != nil {
			t.Fatalf("maxConnections=%d should be valid: %v", n, err)
		}
	}
}

func TestValidate_EmptyDSN(t *testing.T) {
	cfg := Defaults()
	cfg.Store.DSN = "  "
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "store.dsn") {
		t.Fatalf("expected store.dsn error, got %v", err)
	}
}

func TestValidate_InvalidCron(t *testing.T) {
	cfg := Defaults()
	cfg.Schedule.Cron = "every midnight"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestValidate_ValidCrons(t *testing.T) {
	for _, expr := range []string{"0 0 * * *", "*/15 * * * *", "30 6 * * 1-5", "@daily"} {
		cfg := Defaults()
		cfg.Schedule.Cron = expr
		if err := Validate(cfg); err != nil {
			t.Fatalf("cron %q should be valid: %v", expr, err)
		}
	}
}

func TestValidate_InvalidPlatform(t *testing.T) {
	cfg := Defaults()
	cfg.Notifier.Platform = "irc"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestValidate_ValidPlatforms(t *testing.T) {
	for _, p := range []string{"discord", "telegram", "slack", "log"} {
		cfg := Defaults()
		cfg.Notifier.Platform = p
		if err := Validate(cfg); err != nil {
			t.Fatalf("platform %q should be valid: %v", p, err)
		}
	}
}

func TestValidate_InvalidLLMConfig(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = ""
	cfg.LLM.TimeoutSeconds = 0
	cfg.LLM.Temperature = 3
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"llm.provider", "llm.timeoutSeconds", "llm.temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidate_MetricsEndpoint(t *testing.T) {
	cfg := Defaults()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Endpoint = "metrics"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for endpoint without leading slash")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

// --- CheckCredentials ---

func TestCheckCredentials_DefaultsReportMissing(t *testing.T) {
	missing := CheckCredentials(Defaults())
	if len(missing) != 3 {
		t.Fatalf("expected apiKey, token and channelId to be reported, got %v", missing)
	}
}

func TestCheckCredentials_Complete(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.APIKey = "key"
	cfg.Notifier.Token = "token"
	cfg.Notifier.ChannelID = "42"
	if missing := CheckCredentials(cfg); len(missing) != 0 {
		t.Fatalf("expected nothing missing, got %v", missing)
	}
}

func TestCheckCredentials_UnresolvedReference(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.APIKey = "${HYPERBOLIC_API_KEY}"
	cfg.Notifier.Token = "token"
	cfg.Notifier.ChannelID = "42"
	if missing := CheckCredentials(cfg); len(missing) != 1 {
		t.Fatalf("unresolved reference should count as missing, got %v", missing)
	}
}

func TestCheckCredentials_LogPlatformAndOllama(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "ollama"
	cfg.Notifier.Platform = "log"
	if missing := CheckCredentials(cfg); len(missing) != 0 {
		t.Fatalf("expected nothing missing, got %v", missing)
	}
}

func TestCheckCredentials_CollectorNeedsDiscordToken(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "ollama"
	cfg.Notifier.Platform = "log"
	cfg.Collector.Enabled = true
	if missing := CheckCredentials(cfg); len(missing) != 1 {
		t.Fatalf("expected collector token to be reported, got %v", missing)
	}

	cfg.Collector.Token = "bot-token"
	if missing := CheckCredentials(cfg); len(missing) != 0 {
		t.Fatalf("expected nothing missing, got %v", missing)
	}
}

func TestCollectorToken_FallsBackToDiscordNotifier(t *testing.T) {
	cfg := Defaults()
	cfg.Notifier.Token = "shared"
	if got := cfg.CollectorToken(); got != "shared" {
		t.Fatalf("expected notifier token, got %q", got)
	}
	cfg.Notifier.Platform = "telegram"
	if got := cfg.CollectorToken(); got != "" {
		t.Fatalf("telegram token must not be reused for discord, got %q", got)
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Notifier.ChannelID = "1234567890123456789"
	original.Schedule.Cron = "30 6 * * *"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Notifier.ChannelID != "1234567890123456789" {
		t.Fatalf("expected channel id to round-trip, got %q", loaded.Notifier.ChannelID)
	}
	if loaded.Schedule.Cron != "30 6 * * *" {
		t.Fatalf("expected cron to round-trip, got %q", loaded.Schedule.Cron)
	}
}

func TestLoadSave_YAMLRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := Defaults()
	original.LLM.Provider = "ollama"
	original.LLM.APIBase = "http://localhost:11434"
	original.Collector.ChannelIDs = FlexStringList{"1", "2"}

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		t.Fatalf("expected YAML output, got JSON:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LLM.Provider != "ollama" || loaded.LLM.APIBase != "http://localhost:11434" {
		t.Fatalf("unexpected llm section: %+v", loaded.LLM)
	}
	if len(loaded.Collector.ChannelIDs) != 2 || loaded.Collector.ChannelIDs[1] != "2" {
		t.Fatalf("unexpected channel ids: %v", loaded.Collector.ChannelIDs)
	}
}

func TestLoad_YAMLNumericChannelIDs(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := "collector:\n  enabled: true\n  token: abc\n  channelIds:\n    - 123\n    - \"456\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Collector.ChannelIDs) != 2 || cfg.Collector.ChannelIDs[0] != "123" {
		t.Fatalf("unexpected channel ids: %v", cfg.Collector.ChannelIDs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"schedule": {
			"cron": "61 * * * *"
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for minute=61")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgFile, []byte(`{"notifier": {"platform": "log"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Notifier.Platform != "log" {
		t.Fatalf("expected platform log, got %q", cfg.Notifier.Platform)
	}
	if cfg.Schedule.Cron != "0 0 * * *" || cfg.Store.QueryTimeoutSeconds != 10 {
		t.Fatalf("defaults should survive a partial file: %+v", cfg)
	}
}

func TestLoadRaw_KeepsReferences(t *testing.T) {
	t.Setenv(EnvHyperbolic, "secret-from-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"llm": {"apiKey": "${HYPERBOLIC_API_KEY}"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if cfg.LLM.APIKey != "${HYPERBOLIC_API_KEY}" {
		t.Fatalf("reference should be kept verbatim, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadOrEnv_NoFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDiscordToken, "discord-token")
	t.Setenv(EnvChannelID, "987")
	t.Setenv(EnvDatabaseURL, "postgres://digest:secret@db:5432/digest")
	t.Setenv(EnvHyperbolic, "hyp-key")
	t.Setenv(EnvCron, "15 1 * * *")
	t.Setenv(EnvRunOnStart, "true")

	cfg, err := LoadOrEnv(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadOrEnv: %v", err)
	}
	if cfg.Notifier.Token != "discord-token" || cfg.Notifier.ChannelID != "987" {
		t.Fatalf("notifier overrides not applied: %+v", cfg.Notifier)
	}
	if cfg.Store.DSN != "postgres://digest:secret@db:5432/digest" {
		t.Fatalf("DATABASE_URL not applied: %q", cfg.Store.DSN)
	}
	if cfg.LLM.APIKey != "hyp-key" {
		t.Fatalf("HYPERBOLIC_API_KEY not applied: %q", cfg.LLM.APIKey)
	}
	if cfg.Schedule.Cron != "15 1 * * *" || !cfg.Schedule.RunOnStart {
		t.Fatalf("schedule overrides not applied: %+v", cfg.Schedule)
	}
	if len(CheckCredentials(cfg)) != 0 {
		t.Fatalf("expected complete credentials, got %v", CheckCredentials(cfg))
	}
}

func TestLoadOrEnv_InvalidCronFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCron, "not a cron")
	if _, err := LoadOrEnv(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestApplyEnv_DiscordTokenIgnoredForOtherPlatforms(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDiscordToken, "discord-token")

	cfg := Defaults()
	cfg.Notifier.Platform = "telegram"
	cfg.Notifier.Token = "telegram-token"
	ApplyEnv(cfg)

	if cfg.Notifier.Token != "telegram-token" {
		t.Fatalf("telegram token was overwritten: %q", cfg.Notifier.Token)
	}
	if cfg.Collector.Token != "discord-token" {
		t.Fatalf("collector should pick up the discord token, got %q", cfg.Collector.Token)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("DIGESTBOT_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DIGESTBOT_TEST_DOTENV", "")
	os.Unsetenv("DIGESTBOT_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("DIGESTBOT_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("DIGESTBOT_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DIGESTBOT_TEST_DOTENV", "from-shell")

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("DIGESTBOT_TEST_DOTENV"); got != "from-shell" {
		t.Fatalf("shell value should win, got %q", got)
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "llm.provider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "hyperbolic" {
		t.Fatalf("expected 'hyperbolic', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "llm.provider", "ollama"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Fatalf("expected 'ollama', got %q", cfg.LLM.Provider)
	}
}

func TestSetByPath_EmptyValue(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "llm.model", ""); err != nil {
		t.Fatalf("set empty value should work: %v", err)
	}
	if cfg.LLM.Model != "" {
		t.Fatalf("expected empty model, got %q", cfg.LLM.Model)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "schedule.runOnStart", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !cfg.Schedule.RunOnStart {
		t.Fatal("expected schedule.runOnStart=true")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "store.queryTimeoutSeconds", "30"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Store.QueryTimeoutSeconds != 30 {
		t.Fatalf("expected 30, got %d", cfg.Store.QueryTimeoutSeconds)
	}
}

func TestSetByPath_NumericStringStaysString(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "notifier.channelId", "1234567890123456789"); err != nil {
		t.Fatalf("set channel id: %v", err)
	}
	if cfg.Notifier.ChannelID != "1234567890123456789" {
		t.Fatalf("expected raw snowflake, got %q", cfg.Notifier.ChannelID)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Notifier.Token = "MTIzNDU2Nzg5MDEy.GhIjKl.abcdefghijklmnop"
	cfg.LLM.APIKey = "sk-1234567890abcdefghijklmnop"

	sanitized := Sanitize(cfg)

	if sanitized.Notifier.Token == cfg.Notifier.Token {
		t.Fatal("notifier token should be masked")
	}
	if sanitized.LLM.APIKey != "sk-1****mnop" {
		t.Fatalf("API key should be masked, got %q", sanitized.LLM.APIKey)
	}
	// Verify original is untouched
	if cfg.LLM.APIKey != "sk-1234567890abcdefghijklmnop" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Notifier.Token = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Notifier.Token != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Notifier.Token)
	}
}

func TestSanitize_EmptySecretStaysEmpty(t *testing.T) {
	sanitized := Sanitize(Defaults())
	if sanitized.LLM.APIKey != "" || sanitized.Collector.Token != "" {
		t.Fatal("empty secrets should stay empty")
	}
}

func TestSanitize_MasksDSNPassword(t *testing.T) {
	cases := map[string]string{
		"postgres://digest:hunter2@db:5432/digest":           "hunter2",
		"host=db user=digest password=hunter2 dbname=digest": "hunter2",
	}
	for dsn, secret := range cases {
		cfg := Defaults()
		cfg.Store.DSN = dsn
		got := Sanitize(cfg).Store.DSN
		if strings.Contains(got, secret) {
			t.Errorf("password leaked in %q", got)
		}
		if !strings.Contains(got, "digest") {
			t.Errorf("non-secret parts should survive, got %q", got)
		}
	}

	cfg := Defaults()
	cfg.Store.DSN = "/var/lib/digestbot/digest.db"
	if got := Sanitize(cfg).Store.DSN; got != cfg.Store.DSN {
		t.Fatalf("sqlite path should be unchanged, got %q", got)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	for _, expected := range []string{"general.logLevel", "store.dsn", "llm.provider", "notifier.channelId", "schedule.cron", "metrics.enabled"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

func TestListPaths_IncludesOmittedEmptyKeys(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.APIKey = ""
	paths := ListPaths(cfg)
	for _, key := range []string{"llm.apiKey", "llm.systemPrompt", "collector.channelIds", "general.logFile"} {
		if _, ok := paths[key]; !ok {
			t.Errorf("missing %s", key)
		}
	}
	for key := range paths {
		if _, err := GetByPath(cfg, key); err != nil {
			t.Errorf("listed path %s is not gettable: %v", key, err)
		}
	}
	sorted := SortedPaths(cfg)
	if len(sorted) != len(paths) || sorted[0] != "collector.channelIds" {
		t.Fatalf("sorted paths = %v", sorted)
	}
}

func TestSections_MatchConfigFile(t *testing.T) {
	want := []string{"general", "store", "llm", "notifier", "schedule", "collector", "metrics"}
	got := Sections()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("sections = %v, want %v", got, want)
	}
}

func TestGetByPath_UnknownSectionNamesKnownOnes(t *testing.T) {
	_, err := GetByPath(Defaults(), "database.dsn")
	if err == nil {
		t.Fatal("expected error for unknown section")
	}
	if !strings.Contains(err.Error(), `unknown section "database"`) || !strings.Contains(err.Error(), "store") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetByPath_Section(t *testing.T) {
	cfg := Defaults()
	val, err := GetByPath(cfg, "schedule")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	sc, ok := val.(ScheduleConfig)
	if !ok || sc.Cron != cfg.Schedule.Cron {
		t.Fatalf("section = %#v", val)
	}
}

func TestGetByPath_EmptyOmittedKey(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.APIKey = ""
	val, err := GetByPath(cfg, "llm.apiKey")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "" {
		t.Fatalf("apiKey = %v", val)
	}
}

func TestSetByPath_RejectsUnknownKeys(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"nonexistent.key", "unknown section"},
		{"llm.unknownField", "key not found: llm.unknownField"},
		{"schedule.cron.minute", "schedule.cron is not a section"},
		{"", "empty config path"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			cfg := Defaults()
			before := *cfg
			err := SetByPath(cfg, tc.path, "x")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
			if cfg.LLM != before.LLM || cfg.Schedule != before.Schedule {
				t.Fatal("config modified by rejected set")
			}
		})
	}
}

func TestSetByPath_RejectsSection(t *testing.T) {
	err := SetByPath(Defaults(), "llm", "ollama")
	if err == nil || !strings.Contains(err.Error(), "is a section") {
		t.Fatalf("err = %v", err)
	}
}

func TestSetByPath_TypeMismatch(t *testing.T) {
	cfg := Defaults()
	for path, value := range map[string]string{
		"store.maxConnections": "many",
		"llm.temperature":      "warm",
		"metrics.enabled":      "sometimes",
	} {
		if err := SetByPath(cfg, path, value); err == nil {
			t.Errorf("%s=%q: expected error", path, value)
		}
	}
	if cfg.Store.MaxConnections != Defaults().Store.MaxConnections {
		t.Fatal("maxConnections changed on bad input")
	}
}

func TestSetByPath_FloatAndList(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "llm.temperature", "0.7"); err != nil {
		t.Fatalf("set float: %v", err)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("temperature = %v", cfg.LLM.Temperature)
	}
	if err := SetByPath(cfg, "collector.channelIds", "1234567890123456789, 42,"); err != nil {
		t.Fatalf("set list: %v", err)
	}
	want := FlexStringList{"1234567890123456789", "42"}
	if strings.Join(cfg.Collector.ChannelIDs, ",") != strings.Join(want, ",") {
		t.Fatalf("channelIds = %v", cfg.Collector.ChannelIDs)
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	input := `["hello", 123, "world", 456.0]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 items, got %d", len(list))
	}
	if list[0] != "hello" || list[2] != "world" {
		t.Fatal("string items mismatch")
	}
	if list[1] != "123" || list[3] != "456" {
		t.Fatalf("number conversion mismatch: %v", list)
	}
}

func TestFlexStringList_Snowflake(t *testing.T) {
	var list FlexStringList
	if err := json.Unmarshal([]byte(`[1234567890123456789]`), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if list[0] != "1234567890123456789" {
		t.Fatalf("snowflake lost precision: %v", list)
	}
}

func TestFlexStringList_PureStrings(t *testing.T) {
	input := `["a", "b", "c"]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 || list[0] != "a" {
		t.Fatalf("unexpected: %v", list)
	}
}

func TestFlexStringList_InvalidJSON(t *testing.T) {
	var list FlexStringList
	err := json.Unmarshal([]byte(`not json`), &list)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "sk-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"addr": "${NONEXISTENT_VAR_12345:-127.0.0.1:9464}"}`)
	expected := `{"addr": "127.0.0.1:9464"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_CRON", "5 4 * * *")
	result := ExpandEnvVars(`{"cron": "${MY_CRON:-0 0 * * *}"}`)
	expected := `{"cron": "5 4 * * *"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_MultipleVars(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "5432")
	result := ExpandEnvVars(`"${HOST}:${PORT}"`)
	expected := `"localhost:5432"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_NoVarsInInput(t *testing.T) {
	input := `{"key": "value", "number": 42}`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change, got %q", result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_DIGESTBOT_DSN", "/tmp/test-digest.db")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"store": {
			"dsn": "${TEST_DIGESTBOT_DSN}",
			"maxConnections": 2,
			"connectTimeoutSeconds": 3,
			"queryTimeoutSeconds": 10
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.DSN != "/tmp/test-digest.db" {
		t.Fatalf("expected dsn '/tmp/test-digest.db', got %q", cfg.Store.DSN)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.Schedule.Cron != "0 0 * * *" {
		t.Fatalf("default schedule should be midnight UTC, got %q", cfg.Schedule.Cron)
	}
	if cfg.LLM.Provider != "hyperbolic" {
		t.Fatalf("default provider should be 'hyperbolic', got %q", cfg.LLM.Provider)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x/y.db"); got != filepath.Join(home, "x", "y.db") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
