package transport

import (
	"net/http"

	"gqlreg/ports"
	"gqlreg/types"
)

// AuthToken injects the identity client's current token into every outbound
// request. The token is pulled fresh on each call; refresh and caching belong
// to the identity client, never to this layer.
type AuthToken struct {
	Identity ports.IdentityClient
	Next     http.RoundTripper
}

func NewAuthToken(identity ports.IdentityClient, next http.RoundTripper) *AuthToken {
	return &AuthToken{Identity: identity, Next: next}
}

func (t *AuthToken) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Identity.AuthToken(req.Context())
	if err != nil {
		return nil, types.Err(types.ErrAuthToken, err, "")
	}
	// Clone: RoundTrippers must not mutate the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", token)
	return t.Next.RoundTrip(clone)
}
