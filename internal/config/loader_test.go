package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
discord:
  token: "bot-token"
  owner_id: "1234567890"
drafting:
  provider:
    name: openai
    api_key: "sk-test"
    model: "gpt-4o"
  voice: "direct, no filler"
store:
  postgres_dsn: "postgres://localhost:5432/draftloop"
tldv:
  api_key: "tldv-key"
schedule:
  content_cron: "0 9 * * MON,WED,FRI"
  poll_interval: 15m
  mining_window_days: 14
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Discord.OwnerID != "1234567890" {
		t.Errorf("owner id = %q", cfg.Discord.OwnerID)
	}
	if cfg.Drafting.Provider.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.Drafting.Provider.Model)
	}
	if cfg.Drafting.Voice != "direct, no filler" {
		t.Errorf("voice = %q", cfg.Drafting.Voice)
	}
	if cfg.Schedule.PollInterval.Std() != 15*time.Minute {
		t.Errorf("poll interval = %v", cfg.Schedule.PollInterval.Std())
	}
	if cfg.MiningWindow() != 14*24*time.Hour {
		t.Errorf("mining window = %v", cfg.MiningWindow())
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	yml := `
discord:
  token: "t"
  owner_id: "o"
  shard_count: 4
store:
  postgres_dsn: "postgres://localhost/d"
`
	if _, err := LoadFromReader(strings.NewReader(yml)); err == nil {
		t.Error("expected error for unknown field shard_count")
	}
}

func TestLoadFromReader_MalformedYAML(t *testing.T) {
	t.Parallel()

	if _, err := LoadFromReader(strings.NewReader("discord: [")); err == nil {
		t.Error("expected decode error")
	}
}

func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Discord: DiscordConfig{Token: "t", OwnerID: "o"},
		Store:   StoreConfig{PostgresDSN: "postgres://localhost/d"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen addr default = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("log level default = %q", cfg.Server.LogLevel)
	}
	if cfg.Drafting.Provider.Name != "openai" {
		t.Errorf("provider default = %q", cfg.Drafting.Provider.Name)
	}
	if cfg.Schedule.PollInterval.Std() != 30*time.Minute {
		t.Errorf("poll interval default = %v", cfg.Schedule.PollInterval.Std())
	}
	if cfg.Schedule.MiningWindowDays != 7 {
		t.Errorf("mining window default = %d", cfg.Schedule.MiningWindowDays)
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	var cfg Config
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	for _, want := range []string{"discord.token", "discord.owner_id", "store.postgres_dsn"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing mention of %s", err, want)
		}
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:  ServerConfig{LogLevel: "verbose"},
		Discord: DiscordConfig{Token: "t", OwnerID: "o"},
		Store:   StoreConfig{PostgresDSN: "postgres://localhost/d"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestValidate_PollIntervalFloor(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Discord:  DiscordConfig{Token: "t", OwnerID: "o"},
		Store:    StoreConfig{PostgresDSN: "postgres://localhost/d"},
		Schedule: ScheduleConfig{PollInterval: Duration(5 * time.Second)},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sub-minute poll interval")
	}
}

func TestLogLevel_Level(t *testing.T) {
	t.Parallel()

	cases := map[LogLevel]string{
		LogDebug: "DEBUG",
		LogInfo:  "INFO",
		LogWarn:  "WARN",
		LogError: "ERROR",
		"":       "INFO",
	}
	for lvl, want := range cases {
		if got := lvl.Level().String(); got != want {
			t.Errorf("LogLevel(%q).Level() = %s, want %s", lvl, got, want)
		}
	}
}
