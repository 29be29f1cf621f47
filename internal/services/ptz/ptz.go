// Package ptz implements the ONVIF PTZ service: a bounded preset
// table, absolute/relative/continuous moves, and a background reaper
// that stops continuous moves once their timeout elapses.
package ptz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
)

// PresetCapacity bounds the number of stored presets per profile.
const PresetCapacity = 32

// ReaperInterval is the continuous-move reaper's wake period.
const ReaperInterval = 500 * time.Millisecond

// Preset is a stored pan/tilt/zoom position identified by a token.
type Preset struct {
	Token    string
	Name     string
	Position platform.Position
}

type continuousMove struct {
	profile string
	start   time.Time
	timeout time.Duration
}

// Service is the PTZ service's mutable state.
type Service struct {
	mu       sync.Mutex
	presets  map[string]*Preset
	order    []string // insertion order of stored preset tokens
	nextSeq  int

	moveMu     sync.Mutex
	continuous map[string]*continuousMove // keyed by profile

	platform platform.Platform

	stopReaper chan struct{}
	reaperDone chan struct{}
}

// New creates a Service and starts its continuous-move reaper.
func New(p platform.Platform) *Service {
	s := &Service{
		presets:    make(map[string]*Preset),
		continuous: make(map[string]*continuousMove),
		platform:   p,
		stopReaper: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	go s.reaperLoop()
	return s
}

// Close stops the reaper goroutine.
func (s *Service) Close() {
	close(s.stopReaper)
	<-s.reaperDone
}

func (s *Service) reaperLoop() {
	defer close(s.reaperDone)
	ticker := time.NewTicker(ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopReaper:
			return
		case <-ticker.C:
			s.reapExpired()
		}
	}
}

func (s *Service) reapExpired() {
	s.moveMu.Lock()
	expired := make([]string, 0)
	now := time.Now()
	for profile, mv := range s.continuous {
		if now.Sub(mv.start) >= mv.timeout {
			expired = append(expired, profile)
		}
	}
	for _, profile := range expired {
		delete(s.continuous, profile)
	}
	s.moveMu.Unlock()

	for _, profile := range expired {
		// Best-effort: the original caller already received success
		// when the move started, so no error surfaces here.
		_ = s.platform.Stop(context.Background(), profile, true, true)
	}
}

// AbsoluteMove validates pos and delegates to the platform.
func (s *Service) AbsoluteMove(ctx context.Context, profile string, pos platform.Position) error {
	if err := validatePosition(pos); err != nil {
		return err
	}
	if err := s.platform.MoveAbsolute(ctx, profile, pos); err != nil {
		return onviferr.Wrap(onviferr.KindPlatformFailure, "absolute move failed", err)
	}
	return nil
}

// RelativeMove delegates delta to the platform; delta is not
// range-checked here.
func (s *Service) RelativeMove(ctx context.Context, profile string, delta platform.Position) error {
	if err := s.platform.MoveRelative(ctx, profile, delta); err != nil {
		return onviferr.Wrap(onviferr.KindPlatformFailure, "relative move failed", err)
	}
	return nil
}

// ContinuousMove registers an in-flight move with start=now; the
// reaper stops it once timeout elapses.
func (s *Service) ContinuousMove(ctx context.Context, profile string, vel platform.Velocity, timeout time.Duration) error {
	if err := s.platform.MoveContinuous(ctx, profile, vel); err != nil {
		return onviferr.Wrap(onviferr.KindPlatformFailure, "continuous move failed", err)
	}

	s.moveMu.Lock()
	s.continuous[profile] = &continuousMove{profile: profile, start: time.Now(), timeout: timeout}
	s.moveMu.Unlock()

	return nil
}

// Stop removes any matching in-flight continuous move and invokes the
// platform stop. Idempotent: stopping an already-stopped profile
// succeeds.
func (s *Service) Stop(ctx context.Context, profile string, panTilt, zoom bool) error {
	s.moveMu.Lock()
	delete(s.continuous, profile)
	s.moveMu.Unlock()

	if err := s.platform.Stop(ctx, profile, panTilt, zoom); err != nil {
		return onviferr.Wrap(onviferr.KindPlatformFailure, "stop failed", err)
	}
	return nil
}

func validatePosition(pos platform.Position) error {
	if pos.Pan < -1 || pos.Pan > 1 || pos.Tilt < -1 || pos.Tilt > 1 || pos.Zoom < 0 || pos.Zoom > 1 {
		return onviferr.InvalidArgument("position out of advertised PTZ space bounds")
	}
	return nil
}

// SetPreset creates or updates a preset, capturing the platform's
// current position (the wire request carries no position of its own).
// If token is non-empty and known, its name/position are updated in
// place; otherwise a new slot is allocated, failing with a Sender-side
// CAPACITY_EXCEEDED fault once the table is full.
func (s *Service) SetPreset(ctx context.Context, profileToken, token, name string) (string, error) {
	current, err := s.platform.CurrentPosition(ctx, profileToken)
	if err != nil {
		return "", onviferr.Wrap(onviferr.KindPlatformFailure, "current position query failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != "" {
		if p, ok := s.presets[token]; ok {
			p.Name = name
			p.Position = current
			return token, nil
		}
	}

	if len(s.presets) >= PresetCapacity {
		return "", onviferr.PresetCapacityExceeded("preset table is at capacity")
	}

	s.nextSeq++
	newToken := token
	if newToken == "" {
		newToken = fmt.Sprintf("preset-%d", s.nextSeq)
	}

	s.presets[newToken] = &Preset{Token: newToken, Name: name, Position: current}
	s.order = append(s.order, newToken)
	return newToken, nil
}

// GotoPreset absolute-moves to a stored preset's position.
func (s *Service) GotoPreset(ctx context.Context, profile, token string) error {
	s.mu.Lock()
	p, ok := s.presets[token]
	s.mu.Unlock()
	if !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown preset token %q", token))
	}
	return s.AbsoluteMove(ctx, profile, p.Position)
}

// RemovePreset erases token's slot.
func (s *Service) RemovePreset(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presets[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown preset token %q", token))
	}
	delete(s.presets, token)
	for i, t := range s.order {
		if t == token {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetPreset returns a copy of the stored preset for token.
func (s *Service) GetPreset(token string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presets[token]
	if !ok {
		return Preset{}, false
	}
	return *p, true
}

// PresetCount reports the number of stored presets, for tests.
func (s *Service) PresetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.presets)
}
