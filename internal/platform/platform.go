// Package platform defines the narrow collaborator interface the
// daemon's services invoke for device info, imaging effects, PTZ
// motion, stream URLs, and system telemetry, plus a gopsutil-backed
// implementation and a fake for tests. Following the camera package's
// RealX/FakeX collaborator pattern.
package platform

import "context"

// DeviceInfo is the fixed set of identity fields GetDeviceInformation
// reports.
type DeviceInfo struct {
	Manufacturer    string
	Model           string
	FirmwareVersion string
	SerialNumber    string
	HardwareID      string
}

// Position is a PTZ pan/tilt/zoom coordinate.
type Position struct {
	Pan  float64
	Tilt float64
	Zoom float64
}

// Velocity is a PTZ continuous-move velocity vector.
type Velocity struct {
	PanTiltX float64
	PanTiltY float64
	Zoom     float64
}

// ImagingEffects is the set of hardware image-signal-processor knobs
// the imaging service applies diffs against.
type ImagingEffects struct {
	Brightness   float64
	Contrast     float64
	Saturation   float64
	Sharpness    float64
	Hue          float64
	DayNightMode string
}

// SystemTelemetry is periodic health data for the telemetry surface.
type SystemTelemetry struct {
	CPUPercent    float64
	MemoryPercent float64
	UptimeSeconds uint64
	TemperatureC  float64
}

// Platform is the typed collaborator the core invokes. Every method is
// allowed to block; the worker pool bounds concurrent exposure.
type Platform interface {
	DeviceInfo(ctx context.Context) (DeviceInfo, error)

	ApplyBrightness(ctx context.Context, v float64) error
	ApplyContrast(ctx context.Context, v float64) error
	ApplySaturation(ctx context.Context, v float64) error
	ApplySharpness(ctx context.Context, v float64) error
	ApplyHue(ctx context.Context, v float64) error
	ApplyDayNightMode(ctx context.Context, mode string) error
	InitIRLed(ctx context.Context) error

	MoveAbsolute(ctx context.Context, profile string, pos Position) error
	MoveRelative(ctx context.Context, profile string, delta Position) error
	MoveContinuous(ctx context.Context, profile string, vel Velocity) error
	Stop(ctx context.Context, profile string, panTilt, zoom bool) error
	CurrentPosition(ctx context.Context, profile string) (Position, error)

	RTSPURL(host string, port int, path string) string
	SnapshotURL(host string, port int, token string) string

	Telemetry(ctx context.Context) (SystemTelemetry, error)
	ScheduleReboot(delay int) error
}
