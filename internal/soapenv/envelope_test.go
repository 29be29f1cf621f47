package soapenv_test

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/soapenv"
)

const getDeviceInfoEnvelope = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
  <s:Body>
    <tds:GetDeviceInformation/>
  </s:Body>
</s:Envelope>`

func TestOperationName(t *testing.T) {
	name, err := soapenv.OperationName([]byte(getDeviceInfoEnvelope))
	if err != nil {
		t.Fatalf("OperationName: %v", err)
	}
	if name != "GetDeviceInformation" {
		t.Errorf("got %q, want GetDeviceInformation", name)
	}
}

func TestOperationName_MalformedXML(t *testing.T) {
	_, err := soapenv.OperationName([]byte("not xml at all"))
	if err == nil {
		t.Fatal("expected an error for malformed XML")
	}
	if onviferr.As(err).Kind != onviferr.KindMalformed {
		t.Errorf("expected KindMalformed, got %s", onviferr.As(err).Kind)
	}
}

func TestOperationName_EmptyBody(t *testing.T) {
	const empty = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body></s:Body></s:Envelope>`
	_, err := soapenv.OperationName([]byte(empty))
	if err == nil {
		t.Fatal("expected an error for an empty body")
	}
}

type getDeviceInformationResponse struct {
	XMLName         xml.Name `xml:"GetDeviceInformationResponse"`
	Manufacturer    string   `xml:"Manufacturer"`
	Model           string   `xml:"Model"`
	FirmwareVersion string   `xml:"FirmwareVersion"`
	SerialNumber    string   `xml:"SerialNumber"`
	HardwareId      string   `xml:"HardwareId"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	resp := getDeviceInformationResponse{
		Manufacturer:    "ONVIFD",
		Model:           "Camera-Daemon",
		FirmwareVersion: "1.0.0",
		SerialNumber:    "000000",
		HardwareId:      "onvifd-generic",
	}

	encoded, err := soapenv.Encode(resp)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(encoded), "<s:Envelope") || !strings.Contains(string(encoded), "<s:Body>") {
		t.Errorf("expected an envelope-wrapped body, got %s", encoded)
	}

	var decoded getDeviceInformationResponse
	if err := soapenv.Decode(encoded, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != resp {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, resp)
	}
}

func TestDecode_MalformedEnvelope(t *testing.T) {
	var v getDeviceInformationResponse
	err := soapenv.Decode([]byte("garbage"), &v)
	if err == nil {
		t.Fatal("expected error decoding garbage")
	}
}

func TestBuildFault_SenderFaultForClientError(t *testing.T) {
	err := onviferr.InvalidArgument("bad token")
	out := soapenv.BuildFault(err, "corr-123")

	s := string(out)
	if !strings.Contains(s, "s:Sender") {
		t.Errorf("expected s:Sender fault code, got %s", s)
	}
	if !strings.Contains(s, "corr-123") {
		t.Errorf("expected correlation id in fault detail, got %s", s)
	}
	if !strings.Contains(s, "bad token") {
		t.Errorf("expected the message in the fault string, got %s", s)
	}
}

func TestBuildFault_ReceiverFaultForServerError(t *testing.T) {
	err := onviferr.PlatformFailure("snapshot failed", errors.New("disk full"))
	out := soapenv.BuildFault(err, "")

	if !strings.Contains(string(out), "s:Receiver") {
		t.Errorf("expected s:Receiver fault code, got %s", out)
	}
}

func TestBuildFault_MintsCorrelationIDWhenEmpty(t *testing.T) {
	out := soapenv.BuildFault(errors.New("plain"), "")
	if !strings.Contains(string(out), "<CorrelationID>") {
		t.Errorf("expected a minted correlation id in the fault detail, got %s", out)
	}
}
