package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Loader reads the daemon's INI configuration file using Viper's ini
// reader (gopkg.in/ini.v1 under the hood): defaults are set, the file
// is read, the result is unmarshaled into Config, then validated.
type Loader struct {
	viper  *viper.Viper
	logger *logrus.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetEnvPrefix("ONVIFD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{viper: v, logger: logrus.New()}
}

// Load reads configPath, applying documented defaults for anything the
// file omits, and validates the result before returning it. Missing
// keys fall back to their documented defaults rather than failing.
func (l *Loader) Load(configPath string) (*Config, error) {
	l.setDefaults()
	l.viper.SetConfigFile(configPath)

	if err := l.viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			l.logger.WithField("path", configPath).Warn("configuration file not found, using defaults")
		} else {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Get exposes a narrow (section, key) -> value lookup for callers that
// want a single raw value rather than the whole typed Config.
func (l *Loader) Get(section, key string) (string, bool) {
	v := l.viper.GetString(section + "." + key)
	return v, l.viper.IsSet(section + "." + key)
}

func (l *Loader) setDefaults() {
	v := l.viper

	v.SetDefault("onvif.enabled", true)
	v.SetDefault("onvif.host", "0.0.0.0")
	v.SetDefault("onvif.http_port", 8080)
	v.SetDefault("onvif.auth_enabled", true)
	v.SetDefault("onvif.realm", "onvifd")
	v.SetDefault("onvif.username", "admin")
	v.SetDefault("onvif.password", "admin")
	v.SetDefault("onvif.credentials_file", "")
	v.SetDefault("onvif.read_timeout_seconds", 10)
	v.SetDefault("onvif.write_timeout_seconds", 10)
	v.SetDefault("onvif.max_workers", 16)
	v.SetDefault("onvif.buffer_count", 32)
	v.SetDefault("onvif.buffer_size_bytes", 65536)

	v.SetDefault("logging.http_verbose", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file_enabled", false)
	v.SetDefault("logging.file_path", "/var/log/onvifd/onvifd.log")
	v.SetDefault("logging.max_file_size", 10485760)
	v.SetDefault("logging.backup_count", 5)
	v.SetDefault("logging.console_enabled", true)

	v.SetDefault("main_stream.fps", 30)
	v.SetDefault("main_stream.kbps", 4096)
	v.SetDefault("sub_stream.fps", 15)
	v.SetDefault("sub_stream.kbps", 512)

	v.SetDefault("imaging.brightness", 50.0)
	v.SetDefault("imaging.contrast", 50.0)
	v.SetDefault("imaging.saturation", 50.0)
	v.SetDefault("imaging.sharpness", 50.0)
	v.SetDefault("imaging.hue", 0.0)
	v.SetDefault("imaging.day_night_mode", "auto")

	v.SetDefault("discovery.scopes", []string{"onvif://www.onvif.org/type/NetworkVideoTransmitter"})
	v.SetDefault("discovery.multicast_iface", "")

	v.SetDefault("platform.telemetry_interval_seconds", 30)
}
