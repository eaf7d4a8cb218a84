package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080},
		Account: AccountConfig{Host: "primestreams.tv", Port: 826, Username: "alice", Password: "secret"},
		Probes: ProbesConfig{
			PrimaryTokenSource: "https://probe.example/primary",
			BackupTokenSource:  "https://probe.example/backup",
			Timeout:            5 * time.Second,
		},
		Playback: PlaybackConfig{
			LiveEdgeOffset:     30 * time.Second,
			ForwardBuffer:      30 * time.Second,
			BufferingPoll:      100 * time.Millisecond,
			HealthyPoll:        2 * time.Second,
			StallTimeout:       10 * time.Second,
			MaxSegmentFailures: 3,
		},
		EPG: EPGConfig{RefreshInterval: time.Minute},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "test.db",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Alert:   AlertConfig{ToneFrequency: 880, ToneDuration: 250 * time.Millisecond, SampleRate: 44100},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "primestreams.tv", cfg.Account.Host)
	assert.Equal(t, 826, cfg.Account.Port)
	assert.Equal(t, 5*time.Second, cfg.Probes.Timeout)

	assert.Equal(t, 30*time.Second, cfg.Playback.LiveEdgeOffset)
	assert.Equal(t, 30*time.Second, cfg.Playback.ForwardBuffer)
	assert.True(t, cfg.Playback.NetworkWhilePaused)
	assert.True(t, cfg.Playback.WaitToMinimizeStalling)
	assert.Equal(t, 100*time.Millisecond, cfg.Playback.BufferingPoll)
	assert.Equal(t, 2*time.Second, cfg.Playback.HealthyPoll)
	assert.False(t, cfg.Playback.Casting)

	assert.Equal(t, time.Minute, cfg.EPG.RefreshInterval)
	assert.Equal(t, "0 0 */6 * * *", cfg.EPG.XMLTVSchedule)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "tvee.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 880, cfg.Alert.ToneFrequency)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 9090
account:
  host: "iptv.example"
  port: 8080
  username: "bob"
  password: "hunter2"
probes:
  primary_token_source: "https://probe.example/a"
  backup_token_source: "https://probe.example/b"
  timeout: 2s
playback:
  live_edge_offset: 45s
  casting: true
logging:
  level: "debug"
  format: "text"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "iptv.example", cfg.Account.Host)
	assert.Equal(t, "bob", cfg.Account.Username)
	assert.Equal(t, "https://probe.example/a", cfg.Probes.PrimaryTokenSource)
	assert.Equal(t, 2*time.Second, cfg.Probes.Timeout)
	assert.Equal(t, 45*time.Second, cfg.Playback.LiveEdgeOffset)
	assert.True(t, cfg.Playback.Casting)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Account.Validate())
	assert.NoError(t, cfg.Probes.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 8080\n"), 0o600))

	t.Setenv("TVEE_SERVER_PORT", "9000")
	t.Setenv("TVEE_ACCOUNT_USERNAME", "carol")
	t.Setenv("TVEE_PLAYBACK_LIVE_EDGE_OFFSET", "60s")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "carol", cfg.Account.Username)
	assert.Equal(t, 60*time.Second, cfg.Playback.LiveEdgeOffset)
}

func TestLoad_RejectsOffsetOutsideWindow(t *testing.T) {
	t.Setenv("TVEE_PLAYBACK_LIVE_EDGE_OFFSET", "90s")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "live_edge_offset")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validTestConfig().Validate())
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		errContains string
	}{
		{"zero server port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"account port", func(c *Config) { c.Account.Port = 0 }, "account.port"},
		{"probe timeout", func(c *Config) { c.Probes.Timeout = 0 }, "probes.timeout"},
		{"offset below window", func(c *Config) { c.Playback.LiveEdgeOffset = 29 * time.Second }, "live_edge_offset"},
		{"offset above window", func(c *Config) { c.Playback.LiveEdgeOffset = 61 * time.Second }, "live_edge_offset"},
		{"forward buffer", func(c *Config) { c.Playback.ForwardBuffer = 0 }, "forward_buffer"},
		{"healthy faster than buffering", func(c *Config) { c.Playback.HealthyPoll = 50 * time.Millisecond }, "healthy_poll"},
		{"stall timeout", func(c *Config) { c.Playback.StallTimeout = 0 }, "stall_timeout"},
		{"segment failures", func(c *Config) { c.Playback.MaxSegmentFailures = 0 }, "max_segment_failures"},
		{"epg interval", func(c *Config) { c.EPG.RefreshInterval = 0 }, "epg.refresh_interval"},
		{"driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"tone", func(c *Config) { c.Alert.ToneFrequency = 0 }, "alert"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestAccountAndProbes_Validate(t *testing.T) {
	cfg := validTestConfig()
	assert.NoError(t, cfg.Account.Validate())
	assert.NoError(t, cfg.Probes.Validate())

	cfg.Account.Password = ""
	assert.ErrorContains(t, cfg.Account.Validate(), "account.username")

	cfg.Probes.BackupTokenSource = ""
	assert.ErrorContains(t, cfg.Probes.Validate(), "backup_token_source")
}

func TestServerConfig_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ServerConfig
		expected string
	}{
		{"wildcard host", ServerConfig{Host: "0.0.0.0", Port: 8080}, "http://127.0.0.1:8080"},
		{"explicit host", ServerConfig{Host: "tv.local", Port: 9000}, "http://tv.local:9000"},
		{"public url wins", ServerConfig{Host: "0.0.0.0", Port: 8080, PublicURL: "https://tv.example.com/"}, "https://tv.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.BaseURL())
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := &ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}

func TestAccountConfig_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      AccountConfig
		expected string
	}{
		{"plain host", AccountConfig{Host: "primestreams.tv", Port: 826}, "http://primestreams.tv:826"},
		{"https", AccountConfig{Host: "primestreams.tv", Port: 443, HTTPS: true}, "https://primestreams.tv:443"},
		{"host with scheme", AccountConfig{Host: "https://iptv.example:8443/", Port: 826}, "https://iptv.example:8443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.BaseURL())
		})
	}
}
