package device

import (
	"context"
	"encoding/xml"

	"github.com/onvifd/camera-onvif-daemon/internal/dispatch"
	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/soapenv"
)

// Wire-format request/response structs. Handlers never touch XML bytes
// directly; these types are the SOAP envelope layer's typed marshal
// targets for the device service.

type getDeviceInformationRequest struct {
	XMLName xml.Name `xml:"GetDeviceInformation"`
}

type getDeviceInformationResponse struct {
	XMLName         xml.Name `xml:"GetDeviceInformationResponse"`
	Manufacturer    string   `xml:"Manufacturer"`
	Model           string   `xml:"Model"`
	FirmwareVersion string   `xml:"FirmwareVersion"`
	SerialNumber    string   `xml:"SerialNumber"`
	HardwareId      string   `xml:"HardwareId"`
}

type getCapabilitiesRequest struct {
	XMLName  xml.Name `xml:"GetCapabilities"`
	Category []string `xml:"Category"`
}

type capabilityXAddr struct {
	XAddr string `xml:"XAddr"`
}

type getCapabilitiesResponse struct {
	XMLName      xml.Name         `xml:"GetCapabilitiesResponse"`
	DeviceCap    *capabilityXAddr `xml:"Capabilities>Device,omitempty"`
	MediaCap     *capabilityXAddr `xml:"Capabilities>Media,omitempty"`
	PTZCap       *capabilityXAddr `xml:"Capabilities>PTZ,omitempty"`
	ImagingCap   *capabilityXAddr `xml:"Capabilities>Imaging,omitempty"`
}

type getServicesRequest struct {
	XMLName           xml.Name `xml:"GetServices"`
	IncludeCapability bool     `xml:"IncludeCapability"`
}

type serviceEntryXML struct {
	Namespace string `xml:"Namespace"`
	XAddr     string `xml:"XAddr"`
	Version   string `xml:"Version>Major"`
}

type getServicesResponse struct {
	XMLName xml.Name          `xml:"GetServicesResponse"`
	Service []serviceEntryXML `xml:"Service"`
}

type getSystemDateAndTimeRequest struct {
	XMLName xml.Name `xml:"GetSystemDateAndTime"`
}

type getSystemDateAndTimeResponse struct {
	XMLName      xml.Name `xml:"GetSystemDateAndTimeResponse"`
	UTCDateTime  string   `xml:"SystemDateAndTime>UTCDateTime"`
	LocalTime    string   `xml:"SystemDateAndTime>LocalDateTime"`
	TimeZone     string   `xml:"SystemDateAndTime>TimeZone"`
	DaylightSavings bool  `xml:"SystemDateAndTime>DaylightSavings"`
}

type systemRebootRequest struct {
	XMLName xml.Name `xml:"SystemReboot"`
}

type systemRebootResponse struct {
	XMLName xml.Name `xml:"SystemRebootResponse"`
	Message string   `xml:"Message"`
}

type userXML struct {
	Username string `xml:"Username"`
	Password string `xml:"Password"`
}

type createUsersRequest struct {
	XMLName xml.Name  `xml:"CreateUsers"`
	User    []userXML `xml:"User"`
}

type createUsersResponse struct {
	XMLName xml.Name `xml:"CreateUsersResponse"`
}

type deleteUsersRequest struct {
	XMLName  xml.Name `xml:"DeleteUsers"`
	Username []string `xml:"Username"`
}

type deleteUsersResponse struct {
	XMLName xml.Name `xml:"DeleteUsersResponse"`
}

type setUserRequest struct {
	XMLName xml.Name  `xml:"SetUser"`
	User    []userXML `xml:"User"`
}

type setUserResponse struct {
	XMLName xml.Name `xml:"SetUserResponse"`
}

// RegisterEntry builds the device service's dispatcher entry.
func (s *Service) RegisterEntry(pathPrefix string) *dispatch.ServiceEntry {
	return &dispatch.ServiceEntry{
		PathPrefix: pathPrefix,
		Handlers: []dispatch.HandlerEntry{
			{Operation: "GetDeviceInformation", Handle: s.handleGetDeviceInformation},
			{Operation: "GetCapabilities", Handle: s.handleGetCapabilities},
			{Operation: "GetServices", Handle: s.handleGetServices},
			{Operation: "GetSystemDateAndTime", Handle: s.handleGetSystemDateAndTime},
			{Operation: "SystemReboot", Handle: s.handleSystemReboot},
			{Operation: "CreateUsers", Handle: s.handleCreateUsers},
			{Operation: "DeleteUsers", Handle: s.handleDeleteUsers},
			{Operation: "SetUser", Handle: s.handleSetUser},
		},
	}
}

func (s *Service) handleGetDeviceInformation(body []byte) ([]byte, error) {
	var req getDeviceInformationRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}

	info, err := s.GetDeviceInformation(context.Background())
	if err != nil {
		return nil, err
	}

	return soapenv.Encode(getDeviceInformationResponse{
		Manufacturer:    info.Manufacturer,
		Model:           info.Model,
		FirmwareVersion: info.FirmwareVersion,
		SerialNumber:    info.SerialNumber,
		HardwareId:      info.HardwareID,
	})
}

func (s *Service) handleGetCapabilities(body []byte) ([]byte, error) {
	var req getCapabilitiesRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}

	caps, err := s.GetCapabilities(req.Category)
	if err != nil {
		return nil, err
	}

	resp := getCapabilitiesResponse{}
	if caps.Device != nil {
		resp.DeviceCap = &capabilityXAddr{XAddr: caps.Device.XAddr}
	}
	if caps.Media != nil {
		resp.MediaCap = &capabilityXAddr{XAddr: caps.Media.XAddr}
	}
	if caps.PTZ != nil {
		resp.PTZCap = &capabilityXAddr{XAddr: caps.PTZ.XAddr}
	}
	if caps.Imaging != nil {
		resp.ImagingCap = &capabilityXAddr{XAddr: caps.Imaging.XAddr}
	}

	return soapenv.Encode(resp)
}

func (s *Service) handleGetServices(body []byte) ([]byte, error) {
	var req getServicesRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}

	services := s.GetServices()
	out := make([]serviceEntryXML, 0, len(services))
	for _, svc := range services {
		out = append(out, serviceEntryXML{Namespace: svc.Namespace, XAddr: svc.XAddr, Version: svc.Version})
	}

	return soapenv.Encode(getServicesResponse{Service: out})
}

func (s *Service) handleGetSystemDateAndTime(body []byte) ([]byte, error) {
	var req getSystemDateAndTimeRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}

	dt := s.GetSystemDateAndTime()
	return soapenv.Encode(getSystemDateAndTimeResponse{
		UTCDateTime:     dt.UTCDateTime.Format("15:04:05"),
		LocalTime:       dt.LocalDateTime.Format("15:04:05"),
		TimeZone:        dt.TimeZone,
		DaylightSavings: dt.Daylight,
	})
}

func (s *Service) handleSystemReboot(body []byte) ([]byte, error) {
	var req systemRebootRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}

	msg, err := s.SystemReboot()
	if err != nil {
		return nil, err
	}

	// Response is encoded (and will be flushed by the caller) before
	// the scheduled reboot delay elapses; see SystemReboot.
	return soapenv.Encode(systemRebootResponse{Message: msg})
}

func (s *Service) handleCreateUsers(body []byte) ([]byte, error) {
	var req createUsersRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if len(req.User) == 0 {
		return nil, onviferr.InvalidArgument("CreateUsers requires at least one User")
	}

	users := make(map[string]string, len(req.User))
	for _, u := range req.User {
		users[u.Username] = u.Password
	}

	if err := s.CreateUsers(users); err != nil {
		return nil, err
	}
	return soapenv.Encode(createUsersResponse{})
}

func (s *Service) handleDeleteUsers(body []byte) ([]byte, error) {
	var req deleteUsersRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if len(req.Username) == 0 {
		return nil, onviferr.InvalidArgument("DeleteUsers requires at least one Username")
	}

	if err := s.DeleteUsers(req.Username); err != nil {
		return nil, err
	}
	return soapenv.Encode(deleteUsersResponse{})
}

func (s *Service) handleSetUser(body []byte) ([]byte, error) {
	var req setUserRequest
	if err := soapenv.Decode(body, &req); err != nil {
		return nil, err
	}
	if len(req.User) == 0 {
		return nil, onviferr.InvalidArgument("SetUser requires at least one User")
	}

	for _, u := range req.User {
		if err := s.SetUser(u.Username, u.Password); err != nil {
			return nil, err
		}
	}
	return soapenv.Encode(setUserResponse{})
}
