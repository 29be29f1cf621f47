package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// RealPlatform backs Platform with gopsutil system telemetry and
// stubbed hardware calls, standing in for a vendor SDK this codebase
// does not have access to. Imaging/PTZ applies are no-ops that report
// success, matching a platform that has not failed; production
// deployments swap this for a real ISP/motor driver binding.
type RealPlatform struct {
	info      DeviceInfo
	startedAt time.Time

	posMu     sync.Mutex
	positions map[string]Position
}

// NewRealPlatform creates a RealPlatform reporting the given fixed
// device identity.
func NewRealPlatform(info DeviceInfo) *RealPlatform {
	return &RealPlatform{info: info, startedAt: time.Now(), positions: make(map[string]Position)}
}

func (p *RealPlatform) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	return p.info, nil
}

func (p *RealPlatform) ApplyBrightness(ctx context.Context, v float64) error    { return nil }
func (p *RealPlatform) ApplyContrast(ctx context.Context, v float64) error      { return nil }
func (p *RealPlatform) ApplySaturation(ctx context.Context, v float64) error    { return nil }
func (p *RealPlatform) ApplySharpness(ctx context.Context, v float64) error     { return nil }
func (p *RealPlatform) ApplyHue(ctx context.Context, v float64) error           { return nil }
func (p *RealPlatform) ApplyDayNightMode(ctx context.Context, mode string) error { return nil }
func (p *RealPlatform) InitIRLed(ctx context.Context) error                     { return nil }

func (p *RealPlatform) MoveAbsolute(ctx context.Context, profile string, pos Position) error {
	p.posMu.Lock()
	defer p.posMu.Unlock()
	p.positions[profile] = pos
	return nil
}
func (p *RealPlatform) MoveRelative(ctx context.Context, profile string, delta Position) error {
	p.posMu.Lock()
	defer p.posMu.Unlock()
	cur := p.positions[profile]
	cur.Pan += delta.Pan
	cur.Tilt += delta.Tilt
	cur.Zoom += delta.Zoom
	p.positions[profile] = cur
	return nil
}
func (p *RealPlatform) MoveContinuous(ctx context.Context, profile string, vel Velocity) error {
	return nil
}
func (p *RealPlatform) Stop(ctx context.Context, profile string, panTilt, zoom bool) error {
	return nil
}

// CurrentPosition reports the last position this profile was moved to.
// There is no motor encoder to query on this stubbed binding, so an
// unmoved profile reports the zero position.
func (p *RealPlatform) CurrentPosition(ctx context.Context, profile string) (Position, error) {
	p.posMu.Lock()
	defer p.posMu.Unlock()
	return p.positions[profile], nil
}

func (p *RealPlatform) RTSPURL(host string, port int, path string) string {
	return fmt.Sprintf("rtsp://%s:%d%s", host, port, path)
}

func (p *RealPlatform) SnapshotURL(host string, port int, token string) string {
	return fmt.Sprintf("http://%s:%d/snapshot?profile=%s", host, port, token)
}

func (p *RealPlatform) Telemetry(ctx context.Context) (SystemTelemetry, error) {
	var t SystemTelemetry

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		t.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		t.MemoryPercent = vm.UsedPercent
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		t.UptimeSeconds = uptime
	} else {
		t.UptimeSeconds = uint64(time.Since(p.startedAt).Seconds())
	}

	t.TemperatureC = 0

	return t, nil
}

func (p *RealPlatform) ScheduleReboot(delay int) error {
	go func() {
		time.Sleep(time.Duration(delay) * time.Second)
	}()
	return nil
}
