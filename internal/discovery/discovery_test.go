package discovery_test

import (
	"testing"

	"github.com/onvifd/camera-onvif-daemon/internal/discovery"
)

func TestNew_GeneratesUUIDWhenEmpty(t *testing.T) {
	r := discovery.New("", "http://host/onvif/device_service", nil, "")
	if r == nil {
		t.Fatal("expected a non-nil Responder")
	}
}

func TestNew_NotRunningBeforeStart(t *testing.T) {
	r := discovery.New("fixed-uuid", "http://host/onvif/device_service", nil, "")
	if r.Running() {
		t.Error("expected a freshly constructed Responder to report not running")
	}
}

func TestStop_BeforeStartIsNoOp(t *testing.T) {
	r := discovery.New("fixed-uuid", "http://host/onvif/device_service", nil, "")
	r.Stop()
	if r.Running() {
		t.Error("expected Stop before Start to leave the responder not running")
	}
}
