package media

import (
	"context"
	"encoding/xml"

	"github.com/onvifd/camera-onvif-daemon/internal/dispatch"
	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/soapenv"
)

type getStreamUriRequest struct {
	XMLName     xml.Name `xml:"GetStreamUri"`
	StreamSetup struct {
		Transport struct {
			Protocol string `xml:"Protocol"`
		} `xml:"Transport"`
	} `xml:"StreamSetup"`
	ProfileToken string `xml:"ProfileToken"`
}

type mediaUriXML struct {
	Uri                 string `xml:"Uri"`
	InvalidAfterConnect bool   `xml:"InvalidAfterConnect"`
	InvalidAfterReboot  bool   `xml:"InvalidAfterReboot"`
	Timeout             string `xml:"Timeout"`
}

type getStreamUriResponse struct {
	XMLName  xml.Name    `xml:"GetStreamUriResponse"`
	MediaUri mediaUriXML `xml:"MediaUri"`
}

type getSnapshotUriRequest struct {
	XMLName      xml.Name `xml:"GetSnapshotUri"`
	ProfileToken string   `xml:"ProfileToken"`
}

type getSnapshotUriResponse struct {
	XMLName  xml.Name    `xml:"GetSnapshotUriResponse"`
	MediaUri mediaUriXML `xml:"MediaUri"`
}

type getProfilesRequest struct {
	XMLName xml.Name `xml:"GetProfiles"`
}

type profileXML struct {
	Token                     string                `xml:"token,attr"`
	Name                      string                `xml:"Name"`
	VideoSourceConfiguration  videoSourceConfigXML  `xml:"VideoSourceConfiguration"`
	VideoEncoderConfiguration videoEncoderConfigXML `xml:"VideoEncoderConfiguration"`
	AudioSourceConfiguration  audioSourceConfigXML  `xml:"AudioSourceConfiguration"`
	AudioEncoderConfiguration audioEncoderConfigXML `xml:"AudioEncoderConfiguration"`
	MetadataConfiguration     metadataConfigXML     `xml:"MetadataConfiguration"`
}

type getProfilesResponse struct {
	XMLName xml.Name     `xml:"GetProfilesResponse"`
	Profile []profileXML `xml:"Profiles"`
}

type videoSourceConfigXML struct {
	Token  string `xml:"token,attr"`
	Width  int    `xml:"Bounds>width,attr"`
	Height int    `xml:"Bounds>height,attr"`
}

type getVideoSourceConfigurationRequest struct {
	XMLName            xml.Name `xml:"GetVideoSourceConfiguration"`
	ConfigurationToken string   `xml:"ConfigurationToken"`
}

type getVideoSourceConfigurationResponse struct {
	XMLName       xml.Name             `xml:"GetVideoSourceConfigurationResponse"`
	Configuration videoSourceConfigXML `xml:"Configuration"`
}

type setVideoSourceConfigurationRequest struct {
	XMLName       xml.Name             `xml:"SetVideoSourceConfiguration"`
	Configuration videoSourceConfigXML `xml:"Configuration"`
}

type setVideoSourceConfigurationResponse struct {
	XMLName xml.Name `xml:"SetVideoSourceConfigurationResponse"`
}

type videoEncoderConfigXML struct {
	Token string `xml:"token,attr"`
	FPS   int    `xml:"RateControl>FrameRateLimit"`
	Kbps  int    `xml:"RateControl>BitrateLimit"`
}

type getVideoEncoderConfigurationRequest struct {
	XMLName            xml.Name `xml:"GetVideoEncoderConfiguration"`
	ConfigurationToken string   `xml:"ConfigurationToken"`
}

type getVideoEncoderConfigurationResponse struct {
	XMLName       xml.Name              `xml:"GetVideoEncoderConfigurationResponse"`
	Configuration videoEncoderConfigXML `xml:"Configuration"`
}

type setVideoEncoderConfigurationRequest struct {
	XMLName       xml.Name              `xml:"SetVideoEncoderConfiguration"`
	Configuration videoEncoderConfigXML `xml:"Configuration"`
}

type setVideoEncoderConfigurationResponse struct {
	XMLName xml.Name `xml:"SetVideoEncoderConfigurationResponse"`
}

type audioSourceConfigXML struct {
	Token string  `xml:"token,attr"`
	Gain  float64 `xml:"Gain"`
}

type getAudioSourceConfigurationRequest struct {
	XMLName            xml.Name `xml:"GetAudioSourceConfiguration"`
	ConfigurationToken string   `xml:"ConfigurationToken"`
}

type getAudioSourceConfigurationResponse struct {
	XMLName       xml.Name             `xml:"GetAudioSourceConfigurationResponse"`
	Configuration audioSourceConfigXML `xml:"Configuration"`
}

type setAudioSourceConfigurationRequest struct {
	XMLName       xml.Name             `xml:"SetAudioSourceConfiguration"`
	Configuration audioSourceConfigXML `xml:"Configuration"`
}

type setAudioSourceConfigurationResponse struct {
	XMLName xml.Name `xml:"SetAudioSourceConfigurationResponse"`
}

type audioEncoderConfigXML struct {
	Token      string `xml:"token,attr"`
	Bitrate    int    `xml:"Bitrate"`
	SampleRate int    `xml:"SampleRate"`
}

type getAudioEncoderConfigurationRequest struct {
	XMLName            xml.Name `xml:"GetAudioEncoderConfiguration"`
	ConfigurationToken string   `xml:"ConfigurationToken"`
}

type getAudioEncoderConfigurationResponse struct {
	XMLName       xml.Name              `xml:"GetAudioEncoderConfigurationResponse"`
	Configuration audioEncoderConfigXML `xml:"Configuration"`
}

type setAudioEncoderConfigurationRequest struct {
	XMLName       xml.Name              `xml:"SetAudioEncoderConfiguration"`
	Configuration audioEncoderConfigXML `xml:"Configuration"`
}

type setAudioEncoderConfigurationResponse struct {
	XMLName xml.Name `xml:"SetAudioEncoderConfigurationResponse"`
}

type metadataConfigXML struct {
	Token     string `xml:"token,attr"`
	PTZStatus bool   `xml:"PTZStatus"`
	Analytics bool   `xml:"Analytics"`
}

type getMetadataConfigurationRequest struct {
	XMLName            xml.Name `xml:"GetMetadataConfiguration"`
	ConfigurationToken string   `xml:"ConfigurationToken"`
}

type getMetadataConfigurationResponse struct {
	XMLName       xml.Name          `xml:"GetMetadataConfigurationResponse"`
	Configuration metadataConfigXML `xml:"Configuration"`
}

type setMetadataConfigurationRequest struct {
	XMLName       xml.Name          `xml:"SetMetadataConfiguration"`
	Configuration metadataConfigXML `xml:"Configuration"`
}

type setMetadataConfigurationResponse struct {
	XMLName xml.Name `xml:"SetMetadataConfigurationResponse"`
}

type startMulticastRequest struct {
	XMLName      xml.Name `xml:"StartMulticastStreaming"`
	ProfileToken string   `xml:"ProfileToken"`
}

type startMulticastResponse struct {
	XMLName xml.Name `xml:"StartMulticastStreamingResponse"`
}

type stopMulticastRequest struct {
	XMLName      xml.Name `xml:"StopMulticastStreaming"`
	ProfileToken string   `xml:"ProfileToken"`
}

type stopMulticastResponse struct {
	XMLName xml.Name `xml:"StopMulticastStreamingResponse"`
}

// RegisterEntry builds the media service's dispatcher entry.
func (s *Service) RegisterEntry(pathPrefix string) *dispatch.ServiceEntry {
	return &dispatch.ServiceEntry{
		PathPrefix: pathPrefix,
		Handlers: []dispatch.HandlerEntry{
			{Operation: "GetStreamUri", Handle: s.handleGetStreamUri},
			{Operation: "GetSnapshotUri", Handle: s.handleGetSnapshotUri},
			{Operation: "GetProfiles", Handle: s.handleGetProfiles},
			{Operation: "StartMulticastStreaming", Handle: s.handleStartMulticast},
			{Operation: "StopMulticastStreaming", Handle: s.handleStopMulticast},
			{Operation: "GetVideoSourceConfiguration", Handle: s.handleGetVideoSourceConfiguration},
			{Operation: "SetVideoSourceConfiguration", Handle: s.handleSetVideoSourceConfiguration},
			{Operation: "GetVideoEncoderConfiguration", Handle: s.handleGetVideoEncoderConfiguration},
			{Operation: "SetVideoEncoderConfiguration", Handle: s.handleSetVideoEncoderConfiguration},
			{Operation: "GetAudioSourceConfiguration", Handle: s.handleGetAudioSourceConfiguration},
			{Operation: "SetAudioSourceConfiguration", Handle: s.handleSetAudioSourceConfiguration},
			{Operation: "GetAudioEncoderConfiguration", Handle: s.handleGetAudioEncoderConfiguration},
			{Operation: "SetAudioEncoderConfiguration", Handle: s.handleSetAudioEncoderConfiguration},
			{Operation: "GetMetadataConfiguration", Handle: s.handleGetMetadataConfiguration},
			{Operation: "SetMetadataConfiguration", Handle: s.handleSetMetadataConfiguration},
		},
	}
}

// RegisterSnapshotEntry builds the dedicated snapshot service's
// dispatcher entry. ONVIF advertises Snapshot as a service type
// distinct from Media, even though GetSnapshotUri is served by this
// same Service; it is routed under its own path prefix here rather
// than duplicated into a separate type.
func (s *Service) RegisterSnapshotEntry(pathPrefix string) *dispatch.ServiceEntry {
	return &dispatch.ServiceEntry{
		PathPrefix: pathPrefix,
		Handlers: []dispatch.HandlerEntry{
			{Operation: "GetSnapshotUri", Handle: s.handleGetSnapshotUri},
		},
	}
}

func (s *Service) handleGetStreamUri(body []byte) ([]byte, error) {
	var req getStreamUriRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if req.ProfileToken == "" {
		return nil, onviferr.InvalidArgument("ProfileToken is required")
	}

	entry, err := s.GetStreamUri(context.Background(), req.ProfileToken, Protocol(req.StreamSetup.Transport.Protocol))
	if err != nil {
		return nil, err
	}

	return soapenv.Encode(getStreamUriResponse{
		MediaUri: mediaUriXML{
			Uri:                 entry.URI,
			InvalidAfterConnect: entry.InvalidAfterConnect,
			InvalidAfterReboot:  entry.InvalidAfterReboot,
			Timeout:             "PT60S",
		},
	})
}

func (s *Service) handleGetSnapshotUri(body []byte) ([]byte, error) {
	var req getSnapshotUriRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if req.ProfileToken == "" {
		return nil, onviferr.InvalidArgument("ProfileToken is required")
	}

	uri, err := s.GetSnapshotUri(context.Background(), req.ProfileToken)
	if err != nil {
		return nil, err
	}

	return soapenv.Encode(getSnapshotUriResponse{MediaUri: mediaUriXML{Uri: uri}})
}

func (s *Service) handleGetProfiles(body []byte) ([]byte, error) {
	var req getProfilesRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}

	profiles := s.Profiles()
	out := make([]profileXML, 0, len(profiles))
	for _, p := range profiles {
		vs, _ := s.GetVideoSourceConfiguration(p.VideoSourceConfigToken)
		ve, _ := s.GetVideoEncoderConfiguration(p.VideoEncoderConfigToken)
		as, _ := s.GetAudioSourceConfiguration(p.AudioSourceConfigToken)
		ae, _ := s.GetAudioEncoderConfiguration(p.AudioEncoderConfigToken)
		md, _ := s.GetMetadataConfiguration(p.MetadataConfigToken)

		out = append(out, profileXML{
			Token:                     p.Token,
			Name:                      p.Token,
			VideoSourceConfiguration:  videoSourceConfigXML{Token: p.VideoSourceConfigToken, Width: vs.Width, Height: vs.Height},
			VideoEncoderConfiguration: videoEncoderConfigXML{Token: p.VideoEncoderConfigToken, FPS: ve.FPS, Kbps: ve.Kbps},
			AudioSourceConfiguration:  audioSourceConfigXML{Token: p.AudioSourceConfigToken, Gain: as.Gain},
			AudioEncoderConfiguration: audioEncoderConfigXML{Token: p.AudioEncoderConfigToken, Bitrate: ae.Bitrate, SampleRate: ae.SampleRate},
			MetadataConfiguration:     metadataConfigXML{Token: p.MetadataConfigToken, PTZStatus: md.PTZStatus, Analytics: md.Analytics},
		})
	}

	return soapenv.Encode(getProfilesResponse{Profile: out})
}

func (s *Service) handleStartMulticast(body []byte) ([]byte, error) {
	var req startMulticastRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if err := s.StartMulticast(req.ProfileToken); err != nil {
		return nil, err
	}
	return soapenv.Encode(startMulticastResponse{})
}

func (s *Service) handleStopMulticast(body []byte) ([]byte, error) {
	var req stopMulticastRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if err := s.StopMulticast(req.ProfileToken); err != nil {
		return nil, err
	}
	return soapenv.Encode(stopMulticastResponse{})
}

func (s *Service) handleGetVideoSourceConfiguration(body []byte) ([]byte, error) {
	var req getVideoSourceConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg, err := s.GetVideoSourceConfiguration(req.ConfigurationToken)
	if err != nil {
		return nil, err
	}
	return soapenv.Encode(getVideoSourceConfigurationResponse{
		Configuration: videoSourceConfigXML{Token: req.ConfigurationToken, Width: cfg.Width, Height: cfg.Height},
	})
}

func (s *Service) handleSetVideoSourceConfiguration(body []byte) ([]byte, error) {
	var req setVideoSourceConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg := VideoSourceConfig{Width: req.Configuration.Width, Height: req.Configuration.Height}
	if err := s.SetVideoSourceConfiguration(req.Configuration.Token, cfg); err != nil {
		return nil, err
	}
	return soapenv.Encode(setVideoSourceConfigurationResponse{})
}

func (s *Service) handleGetVideoEncoderConfiguration(body []byte) ([]byte, error) {
	var req getVideoEncoderConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg, err := s.GetVideoEncoderConfiguration(req.ConfigurationToken)
	if err != nil {
		return nil, err
	}
	return soapenv.Encode(getVideoEncoderConfigurationResponse{
		Configuration: videoEncoderConfigXML{Token: req.ConfigurationToken, FPS: cfg.FPS, Kbps: cfg.Kbps},
	})
}

func (s *Service) handleSetVideoEncoderConfiguration(body []byte) ([]byte, error) {
	var req setVideoEncoderConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg := VideoEncoderConfig{FPS: req.Configuration.FPS, Kbps: req.Configuration.Kbps}
	if err := s.SetVideoEncoderConfiguration(req.Configuration.Token, cfg); err != nil {
		return nil, err
	}
	return soapenv.Encode(setVideoEncoderConfigurationResponse{})
}

func (s *Service) handleGetAudioSourceConfiguration(body []byte) ([]byte, error) {
	var req getAudioSourceConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg, err := s.GetAudioSourceConfiguration(req.ConfigurationToken)
	if err != nil {
		return nil, err
	}
	return soapenv.Encode(getAudioSourceConfigurationResponse{
		Configuration: audioSourceConfigXML{Token: req.ConfigurationToken, Gain: cfg.Gain},
	})
}

func (s *Service) handleSetAudioSourceConfiguration(body []byte) ([]byte, error) {
	var req setAudioSourceConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg := AudioSourceConfig{Gain: req.Configuration.Gain}
	if err := s.SetAudioSourceConfiguration(req.Configuration.Token, cfg); err != nil {
		return nil, err
	}
	return soapenv.Encode(setAudioSourceConfigurationResponse{})
}

func (s *Service) handleGetAudioEncoderConfiguration(body []byte) ([]byte, error) {
	var req getAudioEncoderConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg, err := s.GetAudioEncoderConfiguration(req.ConfigurationToken)
	if err != nil {
		return nil, err
	}
	return soapenv.Encode(getAudioEncoderConfigurationResponse{
		Configuration: audioEncoderConfigXML{Token: req.ConfigurationToken, Bitrate: cfg.Bitrate, SampleRate: cfg.SampleRate},
	})
}

func (s *Service) handleSetAudioEncoderConfiguration(body []byte) ([]byte, error) {
	var req setAudioEncoderConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg := AudioEncoderConfig{Bitrate: req.Configuration.Bitrate, SampleRate: req.Configuration.SampleRate}
	if err := s.SetAudioEncoderConfiguration(req.Configuration.Token, cfg); err != nil {
		return nil, err
	}
	return soapenv.Encode(setAudioEncoderConfigurationResponse{})
}

func (s *Service) handleGetMetadataConfiguration(body []byte) ([]byte, error) {
	var req getMetadataConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg, err := s.GetMetadataConfiguration(req.ConfigurationToken)
	if err != nil {
		return nil, err
	}
	return soapenv.Encode(getMetadataConfigurationResponse{
		Configuration: metadataConfigXML{Token: req.ConfigurationToken, PTZStatus: cfg.PTZStatus, Analytics: cfg.Analytics},
	})
}

func (s *Service) handleSetMetadataConfiguration(body []byte) ([]byte, error) {
	var req setMetadataConfigurationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	cfg := MetadataConfig{PTZStatus: req.Configuration.PTZStatus, Analytics: req.Configuration.Analytics}
	if err := s.SetMetadataConfiguration(req.Configuration.Token, cfg); err != nil {
		return nil, err
	}
	return soapenv.Encode(setMetadataConfigurationResponse{})
}
