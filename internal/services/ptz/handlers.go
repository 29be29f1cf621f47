package ptz

import (
	"context"
	"encoding/xml"
	"strconv"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/dispatch"
	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
	"github.com/onvifd/camera-onvif-daemon/internal/soapenv"
)

type ptzVectorXML struct {
	PanTilt struct {
		X float64 `xml:"x,attr"`
		Y float64 `xml:"y,attr"`
	} `xml:"PanTilt"`
	Zoom struct {
		X float64 `xml:"x,attr"`
	} `xml:"Zoom"`
}

type absoluteMoveRequest struct {
	XMLName      xml.Name     `xml:"AbsoluteMove"`
	ProfileToken string       `xml:"ProfileToken"`
	Position     ptzVectorXML `xml:"Position"`
}

type absoluteMoveResponse struct {
	XMLName xml.Name `xml:"AbsoluteMoveResponse"`
}

type relativeMoveRequest struct {
	XMLName      xml.Name     `xml:"RelativeMove"`
	ProfileToken string       `xml:"ProfileToken"`
	Translation  ptzVectorXML `xml:"Translation"`
}

type relativeMoveResponse struct {
	XMLName xml.Name `xml:"RelativeMoveResponse"`
}

type continuousMoveRequest struct {
	XMLName      xml.Name     `xml:"ContinuousMove"`
	ProfileToken string       `xml:"ProfileToken"`
	Velocity     ptzVectorXML `xml:"Velocity"`
	Timeout      string       `xml:"Timeout"`
}

type continuousMoveResponse struct {
	XMLName xml.Name `xml:"ContinuousMoveResponse"`
}

type stopRequest struct {
	XMLName      xml.Name `xml:"Stop"`
	ProfileToken string   `xml:"ProfileToken"`
	PanTilt      bool     `xml:"PanTilt"`
	Zoom         bool     `xml:"Zoom"`
}

type stopResponse struct {
	XMLName xml.Name `xml:"StopResponse"`
}

type setPresetRequest struct {
	XMLName      xml.Name `xml:"SetPreset"`
	ProfileToken string   `xml:"ProfileToken"`
	PresetName   string   `xml:"PresetName"`
	PresetToken  string   `xml:"PresetToken"`
}

type setPresetResponse struct {
	XMLName     xml.Name `xml:"SetPresetResponse"`
	PresetToken string   `xml:"PresetToken"`
}

type gotoPresetRequest struct {
	XMLName      xml.Name `xml:"GotoPreset"`
	ProfileToken string   `xml:"ProfileToken"`
	PresetToken  string   `xml:"PresetToken"`
}

type gotoPresetResponse struct {
	XMLName xml.Name `xml:"GotoPresetResponse"`
}

type removePresetRequest struct {
	XMLName      xml.Name `xml:"RemovePreset"`
	ProfileToken string   `xml:"ProfileToken"`
	PresetToken  string   `xml:"PresetToken"`
}

type removePresetResponse struct {
	XMLName xml.Name `xml:"RemovePresetResponse"`
}

// RegisterEntry builds the PTZ service's dispatcher entry.
func (s *Service) RegisterEntry(pathPrefix string) *dispatch.ServiceEntry {
	return &dispatch.ServiceEntry{
		PathPrefix: pathPrefix,
		Handlers: []dispatch.HandlerEntry{
			{Operation: "AbsoluteMove", Handle: s.handleAbsoluteMove},
			{Operation: "RelativeMove", Handle: s.handleRelativeMove},
			{Operation: "ContinuousMove", Handle: s.handleContinuousMove},
			{Operation: "Stop", Handle: s.handleStop},
			{Operation: "SetPreset", Handle: s.handleSetPreset},
			{Operation: "GotoPreset", Handle: s.handleGotoPreset},
			{Operation: "RemovePreset", Handle: s.handleRemovePreset},
		},
	}
}

func (s *Service) handleAbsoluteMove(body []byte) ([]byte, error) {
	var req absoluteMoveRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if req.ProfileToken == "" {
		return nil, onviferr.InvalidArgument("ProfileToken is required")
	}

	pos := platform.Position{Pan: req.Position.PanTilt.X, Tilt: req.Position.PanTilt.Y, Zoom: req.Position.Zoom.X}
	if err := s.AbsoluteMove(context.Background(), req.ProfileToken, pos); err != nil {
		return nil, err
	}
	return soapenv.Encode(absoluteMoveResponse{})
}

func (s *Service) handleRelativeMove(body []byte) ([]byte, error) {
	var req relativeMoveRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if req.ProfileToken == "" {
		return nil, onviferr.InvalidArgument("ProfileToken is required")
	}

	delta := platform.Position{Pan: req.Translation.PanTilt.X, Tilt: req.Translation.PanTilt.Y, Zoom: req.Translation.Zoom.X}
	if err := s.RelativeMove(context.Background(), req.ProfileToken, delta); err != nil {
		return nil, err
	}
	return soapenv.Encode(relativeMoveResponse{})
}

func (s *Service) handleContinuousMove(body []byte) ([]byte, error) {
	var req continuousMoveRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if req.ProfileToken == "" {
		return nil, onviferr.InvalidArgument("ProfileToken is required")
	}

	timeout, err := parseISO8601Duration(req.Timeout)
	if err != nil {
		return nil, onviferr.InvalidArgument("malformed Timeout duration")
	}

	vel := platform.Velocity{PanTiltX: req.Velocity.PanTilt.X, PanTiltY: req.Velocity.PanTilt.Y, Zoom: req.Velocity.Zoom.X}
	if err := s.ContinuousMove(context.Background(), req.ProfileToken, vel, timeout); err != nil {
		return nil, err
	}
	return soapenv.Encode(continuousMoveResponse{})
}

func (s *Service) handleStop(body []byte) ([]byte, error) {
	var req stopRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if err := s.Stop(context.Background(), req.ProfileToken, req.PanTilt, req.Zoom); err != nil {
		return nil, err
	}
	return soapenv.Encode(stopResponse{})
}

func (s *Service) handleSetPreset(body []byte) ([]byte, error) {
	var req setPresetRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}

	// The wire request carries no position; SetPreset captures the
	// platform's current position itself. The worker pool bounds
	// concurrent platform exposure from this blocking call.
	token, err := s.SetPreset(context.Background(), req.ProfileToken, req.PresetToken, req.PresetName)
	if err != nil {
		return nil, err
	}
	return soapenv.Encode(setPresetResponse{PresetToken: token})
}

func (s *Service) handleGotoPreset(body []byte) ([]byte, error) {
	var req gotoPresetRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if err := s.GotoPreset(context.Background(), req.ProfileToken, req.PresetToken); err != nil {
		return nil, err
	}
	return soapenv.Encode(gotoPresetResponse{})
}

func (s *Service) handleRemovePreset(body []byte) ([]byte, error) {
	var req removePresetRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if err := s.RemovePreset(req.PresetToken); err != nil {
		return nil, err
	}
	return soapenv.Encode(removePresetResponse{})
}

// parseISO8601Duration parses the subset of ISO 8601 durations ONVIF
// uses for PTZ timeouts, e.g. "PT2S", "PT1M30S".
func parseISO8601Duration(s string) (time.Duration, error) {
	if len(s) == 0 || s[0] != 'P' {
		return 0, onviferr.InvalidArgument("duration must start with P")
	}

	var total time.Duration
	inTime := false
	num := ""

	flush := func(unit time.Duration) error {
		if num == "" {
			return onviferr.InvalidArgument("duration component missing a number")
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return onviferr.InvalidArgument("malformed duration number")
		}
		total += time.Duration(v * float64(unit))
		num = ""
		return nil
	}

	for _, c := range s[1:] {
		switch {
		case c == 'T':
			inTime = true
		case c >= '0' && c <= '9' || c == '.':
			num += string(c)
		case c == 'D' && !inTime:
			if err := flush(24 * time.Hour); err != nil {
				return 0, err
			}
		case c == 'H' && inTime:
			if err := flush(time.Hour); err != nil {
				return 0, err
			}
		case c == 'M' && inTime:
			if err := flush(time.Minute); err != nil {
				return 0, err
			}
		case c == 'S' && inTime:
			if err := flush(time.Second); err != nil {
				return 0, err
			}
		default:
			return 0, onviferr.InvalidArgument("unsupported duration component")
		}
	}

	return total, nil
}
