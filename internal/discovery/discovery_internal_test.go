package discovery

import "testing"

func TestResponder_MatchesEmptyTypesAlwaysMatches(t *testing.T) {
	r := New("fixed-uuid", "http://host/onvif/device_service", nil, "")
	if !r.matches("", "") {
		t.Error("an empty Types field should match any responder")
	}
}

func TestResponder_MatchesNetworkVideoTransmitterType(t *testing.T) {
	r := New("fixed-uuid", "http://host/onvif/device_service", nil, "")
	if !r.matches("dn:NetworkVideoTransmitter", "") {
		t.Error("expected a match on the NetworkVideoTransmitter device type")
	}
}

func TestResponder_MatchesByScope(t *testing.T) {
	r := New("fixed-uuid", "http://host/onvif/device_service", []string{"onvif://www.onvif.org/type/video_encoder"}, "")
	if !r.matches("some:OtherType", "onvif://www.onvif.org/type/video_encoder") {
		t.Error("expected a match when the probe's scope overlaps a configured scope")
	}
}

func TestResponder_NoMatchOnUnrelatedTypeAndScope(t *testing.T) {
	r := New("fixed-uuid", "http://host/onvif/device_service", []string{"onvif://www.onvif.org/location/building1"}, "")
	if r.matches("dn:PrintService", "onvif://www.onvif.org/location/building2") {
		t.Error("expected no match for an unrelated type and non-overlapping scope")
	}
}

func TestResponder_BuildProbeMatchIncludesEndpointAndXAddr(t *testing.T) {
	r := New("fixed-uuid", "http://192.168.1.10:8080/onvif/device_service", []string{"scope1"}, "")
	match := r.buildProbeMatch()
	pm := match.Body.ProbeMatches.ProbeMatch[0]

	if pm.EndpointRef != "urn:uuid:fixed-uuid" {
		t.Errorf("unexpected endpoint reference: %q", pm.EndpointRef)
	}
	if pm.XAddrs != "http://192.168.1.10:8080/onvif/device_service" {
		t.Errorf("unexpected XAddrs: %q", pm.XAddrs)
	}
}
