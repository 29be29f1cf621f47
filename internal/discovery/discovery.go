// Package discovery implements the WS-Discovery 1.1 UDP multicast
// responder: it listens on 239.255.255.250:3702, and for every Probe
// matching the NetworkVideoTransmitter device type or one of the
// daemon's scopes, unicasts a ProbeMatch back to the sender. XML
// message shapes are adapted from the probe-side structures used by
// ONVIF discovery clients.
package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/onvifd/camera-onvif-daemon/internal/logging"
)

const (
	multicastAddr = "239.255.255.250:3702"
	deviceType    = "dn:NetworkVideoTransmitter"
)

type probeEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Probe struct {
			Types  string `xml:"Types"`
			Scopes string `xml:"Scopes"`
		} `xml:"Probe"`
	} `xml:"Body"`
}

type probeMatch struct {
	XMLName         xml.Name `xml:"ProbeMatch"`
	EndpointRef     string   `xml:"EndpointReference>Address"`
	Types           string   `xml:"Types"`
	Scopes          string   `xml:"Scopes"`
	XAddrs          string   `xml:"XAddrs"`
	MetadataVersion int      `xml:"MetadataVersion"`
}

type probeMatchesBody struct {
	XMLName    xml.Name     `xml:"s:Body"`
	ProbeMatches struct {
		XMLName    xml.Name     `xml:"ProbeMatches"`
		ProbeMatch []probeMatch `xml:"ProbeMatch"`
	} `xml:"ProbeMatches"`
}

type probeMatchEnvelope struct {
	XMLName xml.Name `xml:"s:Envelope"`
	XMLNSs  string   `xml:"xmlns:s,attr"`
	Body    probeMatchesBody
}

// Responder answers WS-Discovery Probe messages over UDP multicast.
type Responder struct {
	uuid    string
	xaddr   string
	scopes  []string
	iface   string
	logger  *logging.Logger

	conn *net.UDPConn

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a Responder that answers on behalf of deviceUUID,
// advertising xaddr (the device service's full URL) and scopes.
func New(deviceUUID, xaddr string, scopes []string, multicastIface string) *Responder {
	if deviceUUID == "" {
		deviceUUID = uuid.New().String()
	}
	return &Responder{
		uuid:   deviceUUID,
		xaddr:  xaddr,
		scopes: scopes,
		iface:  multicastIface,
		logger: logging.GetLogger("discovery"),
	}
}

// Start binds the multicast socket and begins answering probes in a
// background goroutine.
func (r *Responder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("discovery responder already running")
	}

	addr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return fmt.Errorf("resolve multicast address: %w", err)
	}

	var iface *net.Interface
	if r.iface != "" {
		iface, err = net.InterfaceByName(r.iface)
		if err != nil {
			return fmt.Errorf("resolve multicast interface %q: %w", r.iface, err)
		}
	}

	conn, err := net.ListenMulticastUDP("udp4", iface, addr)
	if err != nil {
		return fmt.Errorf("listen on multicast address: %w", err)
	}

	r.conn = conn
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.serve(ctx)
	return nil
}

// Stop closes the multicast socket and waits for the serve loop to exit.
func (r *Responder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stop)
	conn := r.conn
	r.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	<-r.done
}

// Running reports whether the responder is currently listening.
func (r *Responder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Responder) serve(ctx context.Context) {
	defer close(r.done)

	buf := make([]byte, 65535)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		n, senderAddr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.stop:
				return
			default:
				r.logger.WithError(err).Debug("discovery read error")
				continue
			}
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])
		go r.handleProbe(msg, senderAddr)
	}
}

func (r *Responder) handleProbe(msg []byte, from *net.UDPAddr) {
	var env probeEnvelope
	if err := xml.Unmarshal(msg, &env); err != nil {
		return
	}

	if !r.matches(env.Body.Probe.Types, env.Body.Probe.Scopes) {
		return
	}

	reply := r.buildProbeMatch()
	out, err := xml.Marshal(reply)
	if err != nil {
		r.logger.WithError(err).Warn("failed to marshal ProbeMatch")
		return
	}

	payload := append([]byte(xml.Header), out...)

	conn, err := net.DialUDP("udp4", nil, from)
	if err != nil {
		r.logger.WithError(err).Warn("failed to dial discovery sender")
		return
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		r.logger.WithError(err).Warn("failed to send ProbeMatch")
	}
}

// matches reports whether a Probe's advertised types/scopes overlap
// this device's identity. Duplicate suppression is not implemented;
// WS-Discovery tolerates duplicate ProbeMatches.
func (r *Responder) matches(types, scopes string) bool {
	if types == "" {
		return true
	}
	if strings.Contains(types, "NetworkVideoTransmitter") || strings.Contains(types, deviceType) {
		return true
	}
	for _, s := range r.scopes {
		if strings.Contains(scopes, s) {
			return true
		}
	}
	return false
}

func (r *Responder) buildProbeMatch() probeMatchEnvelope {
	return probeMatchEnvelope{
		XMLNSs: "http://www.w3.org/2003/05/soap-envelope",
		Body: probeMatchesBody{
			ProbeMatches: struct {
				XMLName    xml.Name     `xml:"ProbeMatches"`
				ProbeMatch []probeMatch `xml:"ProbeMatch"`
			}{
				ProbeMatch: []probeMatch{{
					EndpointRef:     "urn:uuid:" + r.uuid,
					Types:           deviceType,
					Scopes:          strings.Join(r.scopes, " "),
					XAddrs:          r.xaddr,
					MetadataVersion: 1,
				}},
			},
		},
	}
}
