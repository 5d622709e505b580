package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"aurum/pkg/platform/middleware/request"
	"aurum/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIPFromRequest(r))

	r.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", ClientIPFromRequest(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.9")
	assert.Equal(t, "198.51.100.2", ClientIPFromRequest(r))

	r.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "192.0.2.7", ClientIPFromRequest(r))
}

func TestMiddlewareChain(t *testing.T) {
	var ip, reqID string
	h := request.RequestID(ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		reqID = requestcontext.RequestID(r.Context())
	})))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set(request.HeaderRequestID, "abc-123")
	h.ServeHTTP(w, r)

	assert.Equal(t, "10.0.0.1", ip)
	assert.Equal(t, "abc-123", reqID)
	assert.Equal(t, "abc-123", w.Header().Get(request.HeaderRequestID))

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(request.HeaderRequestID, "bad id with spaces")
	h.ServeHTTP(w, r)
	assert.NotEqual(t, "bad id with spaces", reqID)
	assert.Len(t, reqID, 36)
}
