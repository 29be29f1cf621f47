package ptz_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
	"github.com/onvifd/camera-onvif-daemon/internal/services/ptz"
	"github.com/onvifd/camera-onvif-daemon/internal/soapenv"
)

func TestAbsoluteMove_RejectsOutOfBoundsPosition(t *testing.T) {
	svc := ptz.New(platform.NewFakePlatform())
	defer svc.Close()

	err := svc.AbsoluteMove(context.Background(), "profile1", platform.Position{Pan: 2, Tilt: 0, Zoom: 0})
	if onviferr.As(err).Kind != onviferr.KindInvalidArgument {
		t.Errorf("expected KindInvalidArgument for out-of-bounds pan, got %s", onviferr.As(err).Kind)
	}
}

func TestAbsoluteMove_DelegatesToPlatform(t *testing.T) {
	p := platform.NewFakePlatform()
	svc := ptz.New(p)
	defer svc.Close()

	pos := platform.Position{Pan: 0.5, Tilt: -0.3, Zoom: 0.1}
	if err := svc.AbsoluteMove(context.Background(), "profile1", pos); err != nil {
		t.Fatalf("AbsoluteMove: %v", err)
	}
	if len(p.Moves) != 1 || p.Moves[0] != pos {
		t.Errorf("expected the position recorded on the platform, got %+v", p.Moves)
	}
}

func TestSetPreset_AllocatesTokenWhenEmpty(t *testing.T) {
	svc := ptz.New(platform.NewFakePlatform())
	defer svc.Close()

	token, err := svc.SetPreset(context.Background(), "profile1", "", "home")
	if err != nil {
		t.Fatalf("SetPreset: %v", err)
	}
	if token == "" {
		t.Error("expected an allocated token")
	}
	if svc.PresetCount() != 1 {
		t.Errorf("expected 1 stored preset, got %d", svc.PresetCount())
	}
}

func TestSetPreset_CapturesCurrentPlatformPosition(t *testing.T) {
	p := platform.NewFakePlatform()
	svc := ptz.New(p)
	defer svc.Close()

	p.CurrentPos = platform.Position{Pan: 0.1}
	token, err := svc.SetPreset(context.Background(), "profile1", "", "home")
	if err != nil {
		t.Fatalf("SetPreset: %v", err)
	}

	p.CurrentPos = platform.Position{Pan: 0.5}
	updated, err := svc.SetPreset(context.Background(), "profile1", token, "home-v2")
	if err != nil {
		t.Fatalf("SetPreset (update): %v", err)
	}
	if updated != token {
		t.Errorf("expected the same token back on update, got %q vs %q", updated, token)
	}

	preset, ok := svc.GetPreset(token)
	if !ok || preset.Name != "home-v2" || preset.Position.Pan != 0.5 {
		t.Errorf("expected the preset updated to the platform's current position, got %+v", preset)
	}
	if svc.PresetCount() != 1 {
		t.Errorf("update should not add a new slot, got count %d", svc.PresetCount())
	}
}

func TestSetPreset_CapacityExceeded(t *testing.T) {
	svc := ptz.New(platform.NewFakePlatform())
	defer svc.Close()

	for i := 0; i < ptz.PresetCapacity; i++ {
		if _, err := svc.SetPreset(context.Background(), "profile1", "", "p"); err != nil {
			t.Fatalf("SetPreset #%d: %v", i, err)
		}
	}

	_, err := svc.SetPreset(context.Background(), "profile1", "", "overflow")
	if onviferr.As(err).Kind != onviferr.KindCapacityExceeded {
		t.Errorf("expected KindCapacityExceeded, got %s", onviferr.As(err).Kind)
	}
	if !onviferr.As(err).SenderFault() {
		t.Error("expected a full preset table to report a Sender-side fault")
	}

	fault := soapenv.BuildFault(err, "")
	if !strings.Contains(string(fault), "s:Sender") {
		t.Errorf("expected the SOAP fault code to be s:Sender, got: %s", fault)
	}
	if !strings.Contains(string(fault), "capacity") {
		t.Errorf("expected the fault string to mention preset capacity, got: %s", fault)
	}
}

func TestGotoPreset_UnknownToken(t *testing.T) {
	svc := ptz.New(platform.NewFakePlatform())
	defer svc.Close()

	err := svc.GotoPreset(context.Background(), "profile1", "ghost")
	if onviferr.As(err).Kind != onviferr.KindNotFound {
		t.Errorf("expected KindNotFound, got %s", onviferr.As(err).Kind)
	}
}

func TestGotoPreset_MovesToStoredPosition(t *testing.T) {
	p := platform.NewFakePlatform()
	svc := ptz.New(p)
	defer svc.Close()

	pos := platform.Position{Pan: 0.2, Tilt: 0.2, Zoom: 0.2}
	p.CurrentPos = pos
	token, err := svc.SetPreset(context.Background(), "profile1", "", "spot")
	if err != nil {
		t.Fatalf("SetPreset: %v", err)
	}

	if err := svc.GotoPreset(context.Background(), "profile1", token); err != nil {
		t.Fatalf("GotoPreset: %v", err)
	}
	if len(p.Moves) != 1 || p.Moves[0] != pos {
		t.Errorf("expected the preset's position to be moved to, got %+v", p.Moves)
	}
}

func TestRemovePreset(t *testing.T) {
	svc := ptz.New(platform.NewFakePlatform())
	defer svc.Close()

	token, _ := svc.SetPreset(context.Background(), "profile1", "", "temp")
	if err := svc.RemovePreset(token); err != nil {
		t.Fatalf("RemovePreset: %v", err)
	}
	if _, ok := svc.GetPreset(token); ok {
		t.Error("expected the preset to be gone after removal")
	}

	if err := svc.RemovePreset(token); onviferr.As(err).Kind != onviferr.KindNotFound {
		t.Errorf("expected KindNotFound removing an already-removed preset, got %s", onviferr.As(err).Kind)
	}
}

func TestStop_ClearsContinuousMoveAndDelegates(t *testing.T) {
	p := platform.NewFakePlatform()
	svc := ptz.New(p)
	defer svc.Close()

	if err := svc.ContinuousMove(context.Background(), "profile1", platform.Velocity{PanTiltX: 1}, time.Hour); err != nil {
		t.Fatalf("ContinuousMove: %v", err)
	}
	if err := svc.Stop(context.Background(), "profile1", true, true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.StopCount() != 1 {
		t.Errorf("expected 1 recorded stop, got %d", p.StopCount())
	}
}

func TestReaper_StopsExpiredContinuousMove(t *testing.T) {
	p := platform.NewFakePlatform()
	svc := ptz.New(p)
	defer svc.Close()

	if err := svc.ContinuousMove(context.Background(), "profile1", platform.Velocity{PanTiltX: 1}, 10*time.Millisecond); err != nil {
		t.Fatalf("ContinuousMove: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.StopCount() > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected the reaper to stop the expired continuous move")
}
