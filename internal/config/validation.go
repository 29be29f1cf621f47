package config

import "fmt"

// Validate checks range and consistency constraints that the INI reader
// itself cannot enforce (types only, no bounds).
func Validate(c *Config) error {
	if c.ONVIF.HTTPPort <= 0 || c.ONVIF.HTTPPort > 65535 {
		return fmt.Errorf("onvif.http_port out of range: %d", c.ONVIF.HTTPPort)
	}
	if c.ONVIF.AuthEnabled && c.ONVIF.Username == "" {
		return fmt.Errorf("onvif.auth_enabled requires a non-empty onvif.username")
	}
	if c.ONVIF.MaxWorkers <= 0 {
		return fmt.Errorf("onvif.max_workers must be positive, got %d", c.ONVIF.MaxWorkers)
	}
	if c.ONVIF.BufferCount <= 0 {
		return fmt.Errorf("onvif.buffer_count must be positive, got %d", c.ONVIF.BufferCount)
	}
	if c.ONVIF.BufferSizeBytes <= 0 {
		return fmt.Errorf("onvif.buffer_size_bytes must be positive, got %d", c.ONVIF.BufferSizeBytes)
	}

	if c.MainStream.FPS <= 0 || c.MainStream.Kbps <= 0 {
		return fmt.Errorf("main_stream.fps/kbps must be positive")
	}
	if c.SubStream.FPS <= 0 || c.SubStream.Kbps <= 0 {
		return fmt.Errorf("sub_stream.fps/kbps must be positive")
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"imaging.brightness", c.Imaging.Brightness},
		{"imaging.contrast", c.Imaging.Contrast},
		{"imaging.saturation", c.Imaging.Saturation},
		{"imaging.sharpness", c.Imaging.Sharpness},
	} {
		if f.v < -100 || f.v > 100 {
			return fmt.Errorf("%s out of range [-100,100]: %v", f.name, f.v)
		}
	}
	if c.Imaging.Hue < -180 || c.Imaging.Hue > 180 {
		return fmt.Errorf("imaging.hue out of range [-180,180]: %v", c.Imaging.Hue)
	}

	if c.Platform.TelemetryIntervalSeconds <= 0 {
		return fmt.Errorf("platform.telemetry_interval_seconds must be positive")
	}

	return nil
}
