package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapeup-labs/shapeup/internal/auth"
)

type captureTransport struct {
	last *http.Request
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.last = req
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusOK)
	return rec.Result(), nil
}

func TestBearerTransportDecoratesAPIRequests(t *testing.T) {
	base := &captureTransport{}
	transport := auth.NewBearerTransport(base, "/api", func() string { return "tok-123" })
	client := &http.Client{Transport: transport}

	_, err := client.Get("http://app.local/api/users")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", base.last.Header.Get("Authorization"))
}

func TestBearerTransportSkipsForeignRequests(t *testing.T) {
	base := &captureTransport{}
	transport := auth.NewBearerTransport(base, "/api", func() string { return "tok-123" })
	client := &http.Client{Transport: transport}

	_, err := client.Get("http://elsewhere.local/other/path")
	require.NoError(t, err)
	assert.Empty(t, base.last.Header.Get("Authorization"))
}

func TestBearerTransportSkipsWhenSignedOut(t *testing.T) {
	base := &captureTransport{}
	transport := auth.NewBearerTransport(base, "/api", func() string { return "" })
	client := &http.Client{Transport: transport}

	_, err := client.Get("http://app.local/api/users")
	require.NoError(t, err)
	assert.Empty(t, base.last.Header.Get("Authorization"))
}

func TestBearerTransportDoesNotMutateOriginal(t *testing.T) {
	base := &captureTransport{}
	transport := auth.NewBearerTransport(base, "/api", func() string { return "tok-123" })

	req := httptest.NewRequest(http.MethodGet, "http://app.local/api/users", nil)
	_, err := transport.RoundTrip(req)
	require.NoError(t, err)

	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, "Bearer tok-123", base.last.Header.Get("Authorization"))
}
