// Package device implements the ONVIF device service: identity,
// capabilities, service listing, system time, reboot scheduling, and
// credential-table mutation.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/credstore"
	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
)

// Endpoint is one ONVIF service's advertised address and version.
type Endpoint struct {
	Namespace string
	XAddr     string
	Version   string
}

// Capabilities lists the device's advertised service endpoints.
type Capabilities struct {
	Device  *Endpoint
	Media   *Endpoint
	PTZ     *Endpoint
	Imaging *Endpoint
}

// SystemDateTime is GetSystemDateAndTime's result.
type SystemDateTime struct {
	UTCDateTime   time.Time
	LocalDateTime time.Time
	TimeZone      string
	Daylight      bool
}

// Service is the device service's collaborator surface: platform info
// plus the shared credential store.
type Service struct {
	platform    platform.Platform
	credentials *credstore.Store
	baseURL     string
}

// New creates a device Service. baseURL is the scheme://host:port
// prefix used to build each service's XAddr.
func New(p platform.Platform, creds *credstore.Store, baseURL string) *Service {
	return &Service{platform: p, credentials: creds, baseURL: baseURL}
}

// GetDeviceInformation populates the fixed identity field set from the
// platform collaborator. Concurrent callers each get a fully formed,
// non-truncated response since platform.DeviceInfo is read-only.
func (s *Service) GetDeviceInformation(ctx context.Context) (platform.DeviceInfo, error) {
	info, err := s.platform.DeviceInfo(ctx)
	if err != nil {
		return platform.DeviceInfo{}, onviferr.Wrap(onviferr.KindPlatformFailure, "failed to read device information", err)
	}
	return info, nil
}

// GetCapabilities returns advertised endpoints for the requested
// categories; an empty categories slice means "all".
func (s *Service) GetCapabilities(categories []string) (Capabilities, error) {
	known := map[string]bool{"Device": true, "Media": true, "PTZ": true, "Imaging": true}
	for _, c := range categories {
		if !known[c] {
			return Capabilities{}, onviferr.InvalidArgument(fmt.Sprintf("unknown capability category %q", c))
		}
	}

	wantAll := len(categories) == 0
	want := make(map[string]bool)
	for _, c := range categories {
		want[c] = true
	}

	caps := Capabilities{}
	if wantAll || want["Device"] {
		caps.Device = &Endpoint{Namespace: "http://www.onvif.org/ver10/device/wsdl", XAddr: s.baseURL + "/onvif/device_service", Version: "2.40"}
	}
	if wantAll || want["Media"] {
		caps.Media = &Endpoint{Namespace: "http://www.onvif.org/ver10/media/wsdl", XAddr: s.baseURL + "/onvif/media_service", Version: "2.40"}
	}
	if wantAll || want["PTZ"] {
		caps.PTZ = &Endpoint{Namespace: "http://www.onvif.org/ver20/ptz/wsdl", XAddr: s.baseURL + "/onvif/ptz_service", Version: "2.40"}
	}
	if wantAll || want["Imaging"] {
		caps.Imaging = &Endpoint{Namespace: "http://www.onvif.org/ver20/imaging/wsdl", XAddr: s.baseURL + "/onvif/imaging_service", Version: "2.40"}
	}
	return caps, nil
}

// GetServices returns the full list of registered service endpoints,
// including Snapshot, which is routed separately from Media even
// though both are served by the same collaborator.
func (s *Service) GetServices() []Endpoint {
	return []Endpoint{
		{Namespace: "http://www.onvif.org/ver10/device/wsdl", XAddr: s.baseURL + "/onvif/device_service", Version: "2.40"},
		{Namespace: "http://www.onvif.org/ver10/media/wsdl", XAddr: s.baseURL + "/onvif/media_service", Version: "2.40"},
		{Namespace: "http://www.onvif.org/ver20/ptz/wsdl", XAddr: s.baseURL + "/onvif/ptz_service", Version: "2.40"},
		{Namespace: "http://www.onvif.org/ver20/imaging/wsdl", XAddr: s.baseURL + "/onvif/imaging_service", Version: "2.40"},
		{Namespace: "http://www.onvif.org/ver10/events/wsdl/snapshot", XAddr: s.baseURL + "/onvif/snapshot_service", Version: "2.40"},
	}
}

// GetSystemDateAndTime reports the current UTC and local time.
func (s *Service) GetSystemDateAndTime() SystemDateTime {
	now := time.Now()
	zoneName, offset := now.Zone()

	jan := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	_, janOffset := jan.Zone()

	return SystemDateTime{
		UTCDateTime:   now.UTC(),
		LocalDateTime: now,
		TimeZone:      zoneName,
		Daylight:      offset != janOffset,
	}
}

// SystemReboot schedules an asynchronous reboot and returns immediately
// with a human-readable message. The caller's HTTP response is
// expected to be flushed before the scheduled delay elapses.
func (s *Service) SystemReboot() (string, error) {
	const delaySeconds = 2
	if err := s.platform.ScheduleReboot(delaySeconds); err != nil {
		return "", onviferr.Wrap(onviferr.KindPlatformFailure, "failed to schedule reboot", err)
	}
	return "Rebooting in 2 seconds", nil
}

// CreateUsers adds one or more new users; a username collision with an
// existing user is a Sender-class error.
func (s *Service) CreateUsers(users map[string]string) error {
	for username := range users {
		if s.credentials.Has(username) {
			return onviferr.InvalidArgument(fmt.Sprintf("user %q already exists", username))
		}
	}
	for username, password := range users {
		if err := s.credentials.SetUser(username, password); err != nil {
			return onviferr.Wrap(onviferr.KindPlatformFailure, "failed to persist credential", err)
		}
	}
	return nil
}

// DeleteUsers removes the named users; an unknown username is a
// Sender-class error.
func (s *Service) DeleteUsers(usernames []string) error {
	for _, u := range usernames {
		if !s.credentials.Has(u) {
			return onviferr.NotFound(fmt.Sprintf("user %q does not exist", u))
		}
	}
	for _, u := range usernames {
		if _, err := s.credentials.DeleteUser(u); err != nil {
			return onviferr.Wrap(onviferr.KindPlatformFailure, "failed to persist credential removal", err)
		}
	}
	return nil
}

// SetUser updates an existing user's password; unknown username is a
// Sender-class error.
func (s *Service) SetUser(username, password string) error {
	if !s.credentials.Has(username) {
		return onviferr.NotFound(fmt.Sprintf("user %q does not exist", username))
	}
	if err := s.credentials.SetUser(username, password); err != nil {
		return onviferr.Wrap(onviferr.KindPlatformFailure, "failed to persist credential", err)
	}
	return nil
}
