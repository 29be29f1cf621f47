package platform

import (
	"context"
	"strconv"
	"sync"
)

// FakePlatform is a substitutable in-memory Platform for tests, so
// handler tests pass a fake explicitly instead of relying on a global
// "init mock, then use real" pattern.
type FakePlatform struct {
	mu sync.Mutex

	Info      DeviceInfo
	Telemetry_ SystemTelemetry

	AppliedBrightness []float64
	AppliedContrast   []float64
	AppliedSaturation []float64
	AppliedSharpness  []float64
	AppliedHue        []float64
	AppliedDayNight   []string

	Moves      []Position
	Continuous []Velocity
	Stops      int

	// CurrentPos is returned by CurrentPosition for any profile; tests
	// set it directly to simulate where the camera is actually pointed.
	CurrentPos Position

	RebootScheduled bool
	RebootDelay     int

	FailNext error
}

// NewFakePlatform creates a FakePlatform with a non-empty default DeviceInfo.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Info: DeviceInfo{
			Manufacturer:    "ONVIFD",
			Model:           "Simulated-1",
			FirmwareVersion: "0.0.0-test",
			SerialNumber:    "TEST-SERIAL",
			HardwareID:      "TEST-HW",
		},
	}
}

func (f *FakePlatform) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	return f.Info, nil
}

func (f *FakePlatform) takeFailure() error {
	err := f.FailNext
	f.FailNext = nil
	return err
}

func (f *FakePlatform) ApplyBrightness(ctx context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.AppliedBrightness = append(f.AppliedBrightness, v)
	return nil
}

func (f *FakePlatform) ApplyContrast(ctx context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.AppliedContrast = append(f.AppliedContrast, v)
	return nil
}

func (f *FakePlatform) ApplySaturation(ctx context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.AppliedSaturation = append(f.AppliedSaturation, v)
	return nil
}

func (f *FakePlatform) ApplySharpness(ctx context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.AppliedSharpness = append(f.AppliedSharpness, v)
	return nil
}

func (f *FakePlatform) ApplyHue(ctx context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.AppliedHue = append(f.AppliedHue, v)
	return nil
}

func (f *FakePlatform) ApplyDayNightMode(ctx context.Context, mode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.AppliedDayNight = append(f.AppliedDayNight, mode)
	return nil
}

func (f *FakePlatform) InitIRLed(ctx context.Context) error { return nil }

func (f *FakePlatform) MoveAbsolute(ctx context.Context, profile string, pos Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Moves = append(f.Moves, pos)
	f.CurrentPos = pos
	return nil
}

func (f *FakePlatform) MoveRelative(ctx context.Context, profile string, delta Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Moves = append(f.Moves, delta)
	f.CurrentPos.Pan += delta.Pan
	f.CurrentPos.Tilt += delta.Tilt
	f.CurrentPos.Zoom += delta.Zoom
	return nil
}

func (f *FakePlatform) CurrentPosition(ctx context.Context, profile string) (Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return Position{}, err
	}
	return f.CurrentPos, nil
}

func (f *FakePlatform) MoveContinuous(ctx context.Context, profile string, vel Velocity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Continuous = append(f.Continuous, vel)
	return nil
}

func (f *FakePlatform) Stop(ctx context.Context, profile string, panTilt, zoom bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stops++
	return nil
}

func (f *FakePlatform) StopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stops
}

func (f *FakePlatform) RTSPURL(host string, port int, path string) string {
	return "rtsp://" + host + ":" + strconv.Itoa(port) + path
}

func (f *FakePlatform) SnapshotURL(host string, port int, token string) string {
	return "http://" + host + ":" + strconv.Itoa(port) + "/snapshot?profile=" + token
}

func (f *FakePlatform) Telemetry(ctx context.Context) (SystemTelemetry, error) {
	return f.Telemetry_, nil
}

func (f *FakePlatform) ScheduleReboot(delay int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.RebootScheduled = true
	f.RebootDelay = delay
	return nil
}
