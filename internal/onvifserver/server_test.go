package onvifserver_test

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/bufpool"
	"github.com/onvifd/camera-onvif-daemon/internal/credstore"
	"github.com/onvifd/camera-onvif-daemon/internal/dispatch"
	"github.com/onvifd/camera-onvif-daemon/internal/httpx"
	"github.com/onvifd/camera-onvif-daemon/internal/memtrack"
	"github.com/onvifd/camera-onvif-daemon/internal/onvifserver"
	"github.com/onvifd/camera-onvif-daemon/internal/workerpool"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find a free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func startServer(t *testing.T, registry *dispatch.Registry, auth httpx.AuthConfig) (string, func()) {
	t.Helper()
	addr := freeAddr(t)

	pool := workerpool.New(4, 2*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("pool.Start: %v", err)
	}

	srv := onvifserver.New(onvifserver.Config{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		Auth:         auth,
	}, registry, pool, bufpool.New(4, 4096), memtrack.New())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	// Give the listener a moment to bind.
	for i := 0; i < 50; i++ {
		if conn, err := net.DialTimeout("tcp", addr, 20*time.Millisecond); err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return addr, func() {
		cancel()
		srv.Close()
		pool.Stop(context.Background())
	}
}

func sendRaw(t *testing.T, addr, request string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write([]byte(request)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	reader := bufio.NewReader(conn)
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return b.String()
}

const deviceServicePath = "/onvif/device_service"

func soapRequest(path, body string) string {
	return "POST " + path + " HTTP/1.1\r\n" +
		"Host: 127.0.0.1\r\n" +
		"Content-Type: application/soap+xml; charset=utf-8\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n\r\n" + body
}

func newRegistry(handle func(body []byte) ([]byte, error)) *dispatch.Registry {
	reg := dispatch.NewRegistry()
	reg.Register("device", &dispatch.ServiceEntry{
		PathPrefix: deviceServicePath,
		Handlers: []dispatch.HandlerEntry{
			{Operation: "GetDeviceInformation", Handle: handle},
		},
	})
	return reg
}

func TestServer_RoutesKnownOperation(t *testing.T) {
	reg := newRegistry(func(body []byte) ([]byte, error) {
		return []byte("<GetDeviceInformationResponse/>"), nil
	})
	addr, stop := startServer(t, reg, httpx.AuthConfig{Enabled: false})
	defer stop()

	body := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><GetDeviceInformation/></s:Body></s:Envelope>`
	resp := sendRaw(t, addr, soapRequest(deviceServicePath, body))

	if !strings.Contains(resp, "200") {
		t.Errorf("expected a 200 response, got: %s", resp)
	}
	if !strings.Contains(resp, "GetDeviceInformationResponse") {
		t.Errorf("expected the handler's response body, got: %s", resp)
	}
}

func TestServer_UnknownPathReturns404(t *testing.T) {
	reg := newRegistry(func([]byte) ([]byte, error) { return nil, nil })
	addr, stop := startServer(t, reg, httpx.AuthConfig{Enabled: false})
	defer stop()

	body := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><GetDeviceInformation/></s:Body></s:Envelope>`
	resp := sendRaw(t, addr, soapRequest("/onvif/nope", body))

	if !strings.Contains(resp, "404") {
		t.Errorf("expected a 404 response, got: %s", resp)
	}
}

func TestServer_RequiresAuthWhenEnabled(t *testing.T) {
	creds := credstore.New()
	if err := creds.SetUser("admin", "secret"); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	reg := newRegistry(func(body []byte) ([]byte, error) {
		return []byte("<GetDeviceInformationResponse/>"), nil
	})
	addr, stop := startServer(t, reg, httpx.AuthConfig{Enabled: true, Realm: "onvifd", Credentials: creds})
	defer stop()

	body := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><GetDeviceInformation/></s:Body></s:Envelope>`
	resp := sendRaw(t, addr, soapRequest(deviceServicePath, body))

	if !strings.Contains(resp, "401") {
		t.Errorf("expected a 401 response without credentials, got: %s", resp)
	}
}

func TestServer_UnknownOperationReturnsSoapFault(t *testing.T) {
	reg := newRegistry(func([]byte) ([]byte, error) { return nil, nil })
	addr, stop := startServer(t, reg, httpx.AuthConfig{Enabled: false})
	defer stop()

	body := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><SystemReboot/></s:Body></s:Envelope>`
	resp := sendRaw(t, addr, soapRequest(deviceServicePath, body))

	if !strings.Contains(resp, "s:Fault") {
		t.Errorf("expected a SOAP fault body for an unknown operation, got: %s", resp)
	}
}
