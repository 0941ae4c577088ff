package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"vitrine/pkg/requestcontext"
)

const firefoxLinuxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

func captureClient(t *testing.T, req *http.Request) (ip, ua, device string) {
	t.Helper()
	handler := ClientContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
		device = requestcontext.Device(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return ip, ua, device
}

func TestClientContextUsesForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", firefoxLinuxUA)

	ip, ua, device := captureClient(t, req)
	assert.Equal(t, "203.0.113.9", ip, "leftmost forwarded entry wins")
	assert.Equal(t, firefoxLinuxUA, ua)
	assert.Contains(t, device, "Firefox")
	assert.Contains(t, device, " on ")
}

func TestClientContextFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:52314"

	ip, _, device := captureClient(t, req)
	assert.Equal(t, "192.0.2.7", ip)
	assert.Equal(t, "unknown", device, "missing User-Agent parses to unknown")
}
