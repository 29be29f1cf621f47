package httpx_test

import (
	"bufio"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onvifd/camera-onvif-daemon/internal/bufpool"
	"github.com/onvifd/camera-onvif-daemon/internal/httpx"
	"github.com/onvifd/camera-onvif-daemon/internal/memtrack"
)

func TestParseRequest_SimpleGet(t *testing.T) {
	raw := "GET /onvif/device_service HTTP/1.1\r\nHost: localhost\r\n\r\n"
	req, err := httpx.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/onvif/device_service", req.Path)
	host, ok := req.Header("host")
	assert.True(t, ok)
	assert.Equal(t, "localhost", host)
}

func TestParseRequest_WithBody(t *testing.T) {
	body := "<soap/>"
	raw := "POST /onvif/device_service HTTP/1.1\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	req, err := httpx.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, body, string(req.Body))
}

func TestParseRequest_OversizedBodyRejected(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 99999999999\r\n\r\n"
	_, err := httpx.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
	var perr *httpx.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 413, perr.Status)
}

func TestParseRequest_MalformedRequestLine(t *testing.T) {
	raw := "NOTAREQUEST\r\n\r\n"
	_, err := httpx.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
}

func TestParseRequestPooled_UsesPoolBufferForSmallBody(t *testing.T) {
	pool := bufpool.New(2, 1024)
	tracker := memtrack.New()

	body := "<soap/>"
	raw := "POST / HTTP/1.1\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	req, release, err := httpx.ParseRequestPooled(bufio.NewReader(strings.NewReader(raw)), pool, tracker)
	require.NoError(t, err)
	assert.Equal(t, body, string(req.Body))
	assert.Equal(t, uint64(1), pool.Stats().Hits)
	assert.Equal(t, int64(0), tracker.Outstanding())

	release()
	assert.Equal(t, 0, pool.Stats().CurrentUsed)
}

func TestParseRequestPooled_FallsBackToTrackerWhenBodyExceedsBufferSize(t *testing.T) {
	pool := bufpool.New(2, 4)
	tracker := memtrack.New()

	body := "this body is longer than four bytes"
	raw := "POST / HTTP/1.1\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	req, release, err := httpx.ParseRequestPooled(bufio.NewReader(strings.NewReader(raw)), pool, tracker)
	require.NoError(t, err)
	assert.Equal(t, body, string(req.Body))
	assert.Equal(t, int64(1), tracker.Outstanding())
	assert.Equal(t, 0, pool.Stats().CurrentUsed)

	release()
	assert.Equal(t, int64(0), tracker.Outstanding())
}

type fakeCredentials struct {
	records map[string]string
}

func (f *fakeCredentials) Lookup(username string) (string, bool) {
	r, ok := f.records[username]
	return r, ok
}

func record(t *testing.T, password string) string {
	t.Helper()
	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)
	sum := sha256.Sum256(append([]byte(password), salt...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(sum[:])
}

func basicAuthHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestCheckBasicAuth(t *testing.T) {
	creds := &fakeCredentials{records: map[string]string{"admin": record(t, "secret")}}
	cfg := httpx.AuthConfig{Enabled: true, Realm: "onvifd", Credentials: creds}

	t.Run("disabled always succeeds", func(t *testing.T) {
		req := &httpx.Request{Headers: map[string]string{}}
		assert.Equal(t, httpx.AuthSuccess, httpx.CheckBasicAuth(req, httpx.AuthConfig{Enabled: false}))
	})

	t.Run("missing header", func(t *testing.T) {
		req := &httpx.Request{Headers: map[string]string{}}
		assert.Equal(t, httpx.AuthErrNoHeader, httpx.CheckBasicAuth(req, cfg))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := &httpx.Request{Headers: map[string]string{"authorization": "Bearer xyz"}}
		assert.Equal(t, httpx.AuthErrInvalidScheme, httpx.CheckBasicAuth(req, cfg))
	})

	t.Run("correct credentials", func(t *testing.T) {
		req := &httpx.Request{Headers: map[string]string{"authorization": basicAuthHeader("admin", "secret")}}
		assert.Equal(t, httpx.AuthSuccess, httpx.CheckBasicAuth(req, cfg))
	})

	t.Run("wrong password", func(t *testing.T) {
		req := &httpx.Request{Headers: map[string]string{"authorization": basicAuthHeader("admin", "wrong")}}
		assert.Equal(t, httpx.AuthUnauthenticated, httpx.CheckBasicAuth(req, cfg))
	})

	t.Run("unknown user", func(t *testing.T) {
		req := &httpx.Request{Headers: map[string]string{"authorization": basicAuthHeader("nobody", "secret")}}
		assert.Equal(t, httpx.AuthUnauthenticated, httpx.CheckBasicAuth(req, cfg))
	})
}
