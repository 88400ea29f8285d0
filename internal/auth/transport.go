package auth

import (
	"net/http"
	"strings"
)

// TokenSource yields the current session bearer token, empty when
// nobody is signed in.
type TokenSource func() string

// BearerTransport decorates outbound requests addressed to the
// application's own API namespace with the session bearer token.
// Requests outside that namespace, or with no active session, pass
// through unmodified.
type BearerTransport struct {
	Base      http.RoundTripper
	APIPrefix string
	Token     TokenSource
}

// NewBearerTransport constructs a BearerTransport around base.
func NewBearerTransport(base http.RoundTripper, apiPrefix string, token TokenSource) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &BearerTransport{Base: base, APIPrefix: apiPrefix, Token: token}
}

// RoundTrip implements http.RoundTripper. The request is cloned before
// mutation, per the RoundTripper contract.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := ""
	if t.Token != nil {
		token = t.Token()
	}
	if token == "" || !strings.HasPrefix(req.URL.Path, t.APIPrefix) {
		return t.base().RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(clone)
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}
