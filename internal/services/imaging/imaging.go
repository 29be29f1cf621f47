// Package imaging implements the ONVIF imaging service: a cache of the
// current imaging settings and a diff-based batched apply against the
// platform's hardware effect setters, so repeating an identical
// SetImagingSettings call issues zero platform calls.
package imaging

import (
	"context"
	"sync"

	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
)

// Range bounds a single imaging field.
type Range struct {
	Min, Max float64
}

// Options advertises the valid range for each imaging field.
type Options struct {
	Brightness, Contrast, Saturation, Sharpness, Hue Range
}

// DefaultOptions covers the typical platform-advertised ranges:
// [-100,100] for brightness/contrast/saturation/sharpness, [-180,180] for hue.
func DefaultOptions() Options {
	return Options{
		Brightness: Range{-100, 100},
		Contrast:   Range{-100, 100},
		Saturation: Range{-100, 100},
		Sharpness:  Range{-100, 100},
		Hue:        Range{-180, 180},
	}
}

// Service holds the imaging cache and applies diffs against the platform.
type Service struct {
	mu       sync.Mutex
	cache    platform.ImagingEffects
	haveRead bool

	opts     Options
	platform platform.Platform
}

// New creates a Service seeded with defaults, which SetImagingSettings
// then diffs subsequent calls against.
func New(p platform.Platform, defaults platform.ImagingEffects, opts Options) *Service {
	return &Service{cache: defaults, opts: opts, platform: p}
}

func outOfRange(v float64, r Range) bool { return v < r.Min || v > r.Max }

// validate checks every field of s against opts, returning a
// Sender-class domain error on the first out-of-range field.
func (svc *Service) validate(s platform.ImagingEffects) error {
	switch {
	case outOfRange(s.Brightness, svc.opts.Brightness):
		return onviferr.InvalidArgument("brightness out of advertised range")
	case outOfRange(s.Contrast, svc.opts.Contrast):
		return onviferr.InvalidArgument("contrast out of advertised range")
	case outOfRange(s.Saturation, svc.opts.Saturation):
		return onviferr.InvalidArgument("saturation out of advertised range")
	case outOfRange(s.Sharpness, svc.opts.Sharpness):
		return onviferr.InvalidArgument("sharpness out of advertised range")
	case outOfRange(s.Hue, svc.opts.Hue):
		return onviferr.InvalidArgument("hue out of advertised range")
	}
	return nil
}

// SetImagingSettings validates new against advertised ranges, computes
// the diff against the current cache, issues one platform apply per
// differing field, and atomically updates the cache on full success.
// On partial failure, the cache is updated only for fields whose apply
// succeeded, and the first failure's detail is returned as a
// Receiver-class error.
func (svc *Service) SetImagingSettings(ctx context.Context, new platform.ImagingEffects) error {
	if err := svc.validate(new); err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	cur := svc.cache
	applied := cur

	if new.Brightness != cur.Brightness {
		if err := svc.platform.ApplyBrightness(ctx, new.Brightness); err != nil {
			svc.cache = applied
			return onviferr.Wrap(onviferr.KindPlatformFailure, "apply brightness failed", err)
		}
		applied.Brightness = new.Brightness
	}
	if new.Contrast != cur.Contrast {
		if err := svc.platform.ApplyContrast(ctx, new.Contrast); err != nil {
			svc.cache = applied
			return onviferr.Wrap(onviferr.KindPlatformFailure, "apply contrast failed", err)
		}
		applied.Contrast = new.Contrast
	}
	if new.Saturation != cur.Saturation {
		if err := svc.platform.ApplySaturation(ctx, new.Saturation); err != nil {
			svc.cache = applied
			return onviferr.Wrap(onviferr.KindPlatformFailure, "apply saturation failed", err)
		}
		applied.Saturation = new.Saturation
	}
	if new.Sharpness != cur.Sharpness {
		if err := svc.platform.ApplySharpness(ctx, new.Sharpness); err != nil {
			svc.cache = applied
			return onviferr.Wrap(onviferr.KindPlatformFailure, "apply sharpness failed", err)
		}
		applied.Sharpness = new.Sharpness
	}
	if new.Hue != cur.Hue {
		if err := svc.platform.ApplyHue(ctx, new.Hue); err != nil {
			svc.cache = applied
			return onviferr.Wrap(onviferr.KindPlatformFailure, "apply hue failed", err)
		}
		applied.Hue = new.Hue
	}
	if new.DayNightMode != "" && new.DayNightMode != cur.DayNightMode {
		if err := svc.platform.ApplyDayNightMode(ctx, new.DayNightMode); err != nil {
			svc.cache = applied
			return onviferr.Wrap(onviferr.KindPlatformFailure, "apply day/night mode failed", err)
		}
		applied.DayNightMode = new.DayNightMode
	}

	svc.cache = applied
	svc.haveRead = true
	return nil
}

// GetImagingSettings returns the cached settings, seeded from the
// platform default at construction time.
func (svc *Service) GetImagingSettings() platform.ImagingEffects {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.cache
}
