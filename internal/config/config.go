// Package config loads the daemon's INI configuration file into a typed
// Config, following the same defaults-then-read-then-validate shape the
// rest of this codebase uses for its other collaborators.
package config

import "github.com/onvifd/camera-onvif-daemon/internal/logging"

// Config is the complete daemon configuration, one struct field group per
// INI section named in the external interface surface.
type Config struct {
	ONVIF     ONVIFConfig     `mapstructure:"onvif"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	MainStream  StreamConfig  `mapstructure:"main_stream"`
	SubStream   StreamConfig  `mapstructure:"sub_stream"`
	Imaging   ImagingConfig   `mapstructure:"imaging"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Platform  PlatformConfig  `mapstructure:"platform"`
}

// ONVIFConfig corresponds to the `[onvif]` section.
type ONVIFConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Host            string `mapstructure:"host"`
	HTTPPort        int    `mapstructure:"http_port"`
	AuthEnabled     bool   `mapstructure:"auth_enabled"`
	Realm           string `mapstructure:"realm"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	CredentialsFile string `mapstructure:"credentials_file"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_seconds"`
	MaxWorkers      int    `mapstructure:"max_workers"`
	BufferCount     int    `mapstructure:"buffer_count"`
	BufferSizeBytes int    `mapstructure:"buffer_size_bytes"`
}

// LoggingConfig corresponds to the `[logging]` section.
type LoggingConfig struct {
	Level          string `mapstructure:"http_verbose"`
	Format         string `mapstructure:"format"`
	FileEnabled    bool   `mapstructure:"file_enabled"`
	FilePath       string `mapstructure:"file_path"`
	MaxFileSize    int    `mapstructure:"max_file_size"`
	BackupCount    int    `mapstructure:"backup_count"`
	ConsoleEnabled bool   `mapstructure:"console_enabled"`
}

// StreamConfig corresponds to `[main_stream]` / `[sub_stream]`.
type StreamConfig struct {
	FPS  int `mapstructure:"fps"`
	Kbps int `mapstructure:"kbps"`
}

// ImagingConfig corresponds to `[imaging]` default values applied before
// any SetImagingSettings call populates the imaging cache.
type ImagingConfig struct {
	Brightness   float64 `mapstructure:"brightness"`
	Contrast     float64 `mapstructure:"contrast"`
	Saturation   float64 `mapstructure:"saturation"`
	Sharpness    float64 `mapstructure:"sharpness"`
	Hue          float64 `mapstructure:"hue"`
	DayNightMode string  `mapstructure:"day_night_mode"`
}

// DiscoveryConfig corresponds to `[discovery]`.
type DiscoveryConfig struct {
	Scopes         []string `mapstructure:"scopes"`
	MulticastIface string   `mapstructure:"multicast_iface"`
}

// PlatformConfig corresponds to `[platform]`.
type PlatformConfig struct {
	TelemetryIntervalSeconds int `mapstructure:"telemetry_interval_seconds"`
}

// ToLoggingConfig adapts the config-file logging section into the shape
// internal/logging expects.
func (c *Config) ToLoggingConfig() *logging.LoggingConfig {
	return &logging.LoggingConfig{
		Level:          c.Logging.Level,
		Format:         c.Logging.Format,
		FileEnabled:    c.Logging.FileEnabled,
		FilePath:       c.Logging.FilePath,
		MaxFileSize:    c.Logging.MaxFileSize,
		BackupCount:    c.Logging.BackupCount,
		ConsoleEnabled: c.Logging.ConsoleEnabled,
	}
}
