package imaging

import (
	"context"
	"encoding/xml"

	"github.com/onvifd/camera-onvif-daemon/internal/dispatch"
	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
	"github.com/onvifd/camera-onvif-daemon/internal/soapenv"
)

type imagingSettingsXML struct {
	Brightness   float64 `xml:"Brightness"`
	ColorSaturation float64 `xml:"ColorSaturation"`
	Contrast     float64 `xml:"Contrast"`
	Sharpness    float64 `xml:"Sharpness"`
	Hue          float64 `xml:"Hue,omitempty"`
	IrCutFilter  string  `xml:"IrCutFilter,omitempty"`
}

type getImagingSettingsRequest struct {
	XMLName      xml.Name `xml:"GetImagingSettings"`
	VideoSourceToken string `xml:"VideoSourceToken"`
}

type getImagingSettingsResponse struct {
	XMLName          xml.Name            `xml:"GetImagingSettingsResponse"`
	ImagingSettings  imagingSettingsXML  `xml:"ImagingSettings"`
}

type setImagingSettingsRequest struct {
	XMLName          xml.Name           `xml:"SetImagingSettings"`
	VideoSourceToken string             `xml:"VideoSourceToken"`
	ImagingSettings  imagingSettingsXML `xml:"ImagingSettings"`
}

type setImagingSettingsResponse struct {
	XMLName xml.Name `xml:"SetImagingSettingsResponse"`
}

// RegisterEntry builds the imaging service's dispatcher entry.
func (svc *Service) RegisterEntry(pathPrefix string) *dispatch.ServiceEntry {
	return &dispatch.ServiceEntry{
		PathPrefix: pathPrefix,
		Handlers: []dispatch.HandlerEntry{
			{Operation: "GetImagingSettings", Handle: svc.handleGetImagingSettings},
			{Operation: "SetImagingSettings", Handle: svc.handleSetImagingSettings},
		},
	}
}

func (svc *Service) handleGetImagingSettings(body []byte) ([]byte, error) {
	var req getImagingSettingsRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if req.VideoSourceToken == "" {
		return nil, onviferr.InvalidArgument("VideoSourceToken is required")
	}

	s := svc.GetImagingSettings()
	return soapenv.Encode(getImagingSettingsResponse{
		ImagingSettings: imagingSettingsXML{
			Brightness:      s.Brightness,
			ColorSaturation: s.Saturation,
			Contrast:        s.Contrast,
			Sharpness:       s.Sharpness,
			Hue:             s.Hue,
			IrCutFilter:     s.DayNightMode,
		},
	})
}

func (svc *Service) handleSetImagingSettings(body []byte) ([]byte, error) {
	var req setImagingSettingsRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if req.VideoSourceToken == "" {
		return nil, onviferr.InvalidArgument("VideoSourceToken is required")
	}

	new := platform.ImagingEffects{
		Brightness:   req.ImagingSettings.Brightness,
		Contrast:     req.ImagingSettings.Contrast,
		Saturation:   req.ImagingSettings.ColorSaturation,
		Sharpness:    req.ImagingSettings.Sharpness,
		Hue:          req.ImagingSettings.Hue,
		DayNightMode: req.ImagingSettings.IrCutFilter,
	}

	if err := svc.SetImagingSettings(context.Background(), new); err != nil {
		return nil, err
	}
	return soapenv.Encode(setImagingSettingsResponse{})
}
