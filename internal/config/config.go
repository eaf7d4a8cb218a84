// Package config provides configuration management for tvee using Viper.
// It supports configuration from files, .env files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "TVEE"

// Default configuration values.
const (
	defaultServerPort         = 8080
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultMaxOpenConns       = 10
	defaultMaxIdleConns       = 5
	defaultConnMaxIdleTime    = 30 * time.Minute
	defaultAccountHost        = "primestreams.tv"
	defaultAccountPort        = 826
	defaultProbeTimeout       = 5 * time.Second
	defaultLiveEdgeOffset     = 30 * time.Second
	defaultForwardBuffer      = 30 * time.Second
	defaultBufferingPoll      = 100 * time.Millisecond
	defaultHealthyPoll        = 2 * time.Second
	defaultStallTimeout       = 10 * time.Second
	defaultMaxSegmentFailures = 3
	defaultEPGRefresh         = 60 * time.Second
	defaultXMLTVSchedule      = "0 0 */6 * * *"
	defaultToneFrequency      = 880
	defaultToneDuration       = 250 * time.Millisecond
	defaultToneSampleRate     = 44100

	// MinLiveEdgeOffset and MaxLiveEdgeOffset bound the delay behind the live edge.
	MinLiveEdgeOffset = 30 * time.Second
	MaxLiveEdgeOffset = 60 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Account  AccountConfig  `mapstructure:"account"`
	Probes   ProbesConfig   `mapstructure:"probes"`
	Playback PlaybackConfig `mapstructure:"playback"`
	EPG      EPGConfig      `mapstructure:"epg"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Alert    AlertConfig    `mapstructure:"alert"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// PublicURL is the externally reachable base URL, used for relay candidates.
	// Empty means http://{host}:{port} with 0.0.0.0 replaced by 127.0.0.1.
	PublicURL string `mapstructure:"public_url"`
}

// AccountConfig holds the Xtream Codes account used for the directory, EPG and stream URLs.
type AccountConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	HTTPS    bool   `mapstructure:"https"`
}

// ProbesConfig holds the liveness probe endpoints.
type ProbesConfig struct {
	PrimaryTokenSource string        `mapstructure:"primary_token_source"`
	BackupTokenSource  string        `mapstructure:"backup_token_source"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// PlaybackConfig holds session and health monitor parameters.
type PlaybackConfig struct {
	LiveEdgeOffset         time.Duration `mapstructure:"live_edge_offset"`
	ForwardBuffer          time.Duration `mapstructure:"forward_buffer"`
	NetworkWhilePaused     bool          `mapstructure:"network_while_paused"`
	WaitToMinimizeStalling bool          `mapstructure:"wait_to_minimize_stalling"`
	BufferingPoll          time.Duration `mapstructure:"buffering_poll"`
	HealthyPoll            time.Duration `mapstructure:"healthy_poll"`
	StallTimeout           time.Duration `mapstructure:"stall_timeout"`
	Casting                bool          `mapstructure:"casting"`
	MaxSegmentFailures     int           `mapstructure:"max_segment_failures"`
}

// EPGConfig holds program guide refresh configuration.
type EPGConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	XMLTVSchedule   string        `mapstructure:"xmltv_schedule"` // 6-field cron expression
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// AlertConfig holds the audible alert tone settings.
type AlertConfig struct {
	ToneFrequency int           `mapstructure:"tone_frequency"`
	ToneDuration  time.Duration `mapstructure:"tone_duration"`
	SampleRate    int           `mapstructure:"sample_rate"`
	Bell          bool          `mapstructure:"bell"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with TVEE_ and use underscores for nesting.
// Example: TVEE_ACCOUNT_USERNAME=alice.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tvee")
		v.AddConfigPath("$HOME/.tvee")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.public_url", "")

	// Account defaults
	v.SetDefault("account.host", defaultAccountHost)
	v.SetDefault("account.port", defaultAccountPort)
	v.SetDefault("account.username", "")
	v.SetDefault("account.password", "")
	v.SetDefault("account.https", false)

	// Probe defaults
	v.SetDefault("probes.primary_token_source", "")
	v.SetDefault("probes.backup_token_source", "")
	v.SetDefault("probes.timeout", defaultProbeTimeout)

	// Playback defaults
	v.SetDefault("playback.live_edge_offset", defaultLiveEdgeOffset)
	v.SetDefault("playback.forward_buffer", defaultForwardBuffer)
	v.SetDefault("playback.network_while_paused", true)
	v.SetDefault("playback.wait_to_minimize_stalling", true)
	v.SetDefault("playback.buffering_poll", defaultBufferingPoll)
	v.SetDefault("playback.healthy_poll", defaultHealthyPoll)
	v.SetDefault("playback.stall_timeout", defaultStallTimeout)
	v.SetDefault("playback.casting", false)
	v.SetDefault("playback.max_segment_failures", defaultMaxSegmentFailures)

	// EPG defaults
	v.SetDefault("epg.enabled", true)
	v.SetDefault("epg.refresh_interval", defaultEPGRefresh)
	v.SetDefault("epg.xmltv_schedule", defaultXMLTVSchedule)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tvee.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Alert defaults
	v.SetDefault("alert.tone_frequency", defaultToneFrequency)
	v.SetDefault("alert.tone_duration", defaultToneDuration)
	v.SetDefault("alert.sample_rate", defaultToneSampleRate)
	v.SetDefault("alert.bell", true)
}

// Validate checks the configuration for structural errors.
// Account and probe completeness is checked separately by the commands that need them.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}
	if c.Account.Port < 1 || c.Account.Port > maxPort {
		return fmt.Errorf("account.port must be between 1 and %d", maxPort)
	}

	if c.Probes.Timeout <= 0 {
		return fmt.Errorf("probes.timeout must be positive")
	}

	if err := c.Playback.Validate(); err != nil {
		return err
	}

	if c.EPG.RefreshInterval <= 0 {
		return fmt.Errorf("epg.refresh_interval must be positive")
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Alert.ToneFrequency <= 0 || c.Alert.SampleRate <= 0 || c.Alert.ToneDuration <= 0 {
		return fmt.Errorf("alert tone frequency, duration and sample_rate must be positive")
	}

	return nil
}

// Validate checks playback timing parameters.
func (c *PlaybackConfig) Validate() error {
	if c.LiveEdgeOffset < MinLiveEdgeOffset || c.LiveEdgeOffset > MaxLiveEdgeOffset {
		return fmt.Errorf("playback.live_edge_offset must be between %s and %s", MinLiveEdgeOffset, MaxLiveEdgeOffset)
	}
	if c.ForwardBuffer <= 0 {
		return fmt.Errorf("playback.forward_buffer must be positive")
	}
	if c.BufferingPoll <= 0 || c.HealthyPoll <= 0 {
		return fmt.Errorf("playback poll intervals must be positive")
	}
	if c.HealthyPoll < c.BufferingPoll {
		return fmt.Errorf("playback.healthy_poll must not be shorter than playback.buffering_poll")
	}
	if c.StallTimeout <= 0 {
		return fmt.Errorf("playback.stall_timeout must be positive")
	}
	if c.MaxSegmentFailures < 1 {
		return fmt.Errorf("playback.max_segment_failures must be at least 1")
	}
	return nil
}

// Validate checks that the account can be used to build stream URLs.
func (c *AccountConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("account.host is required")
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("account.username and account.password are required")
	}
	return nil
}

// BaseURL returns the provider base URL, e.g. http://primestreams.tv:826.
// A host that already carries a scheme is used as-is.
func (c *AccountConfig) BaseURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if strings.Contains(host, "://") {
		return host
	}
	scheme := "http"
	if c.HTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, c.Port)
}

// Validate checks that both liveness probes are configured.
func (c *ProbesConfig) Validate() error {
	if c.PrimaryTokenSource == "" {
		return fmt.Errorf("probes.primary_token_source is required")
	}
	if c.BackupTokenSource == "" {
		return fmt.Errorf("probes.backup_token_source is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the public base URL of this server without a trailing slash.
func (c *ServerConfig) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}
