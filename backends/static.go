// Package backends provides ready-made implementations of the ports
// interfaces. Heavier backends live in subpackages.
package backends

import (
	"context"

	"gqlreg/ports"
)

type staticIdentity struct {
	fingerprint string
	token       string
}

// StaticIdentity returns an IdentityClient with a fixed fingerprint and
// token. Useful for API-key style backends, CLI tooling and tests.
func StaticIdentity(fingerprint, token string) ports.IdentityClient {
	return &staticIdentity{fingerprint: fingerprint, token: token}
}

func (s *staticIdentity) Fingerprint() string { return s.fingerprint }

func (s *staticIdentity) AuthToken(_ context.Context) (string, error) {
	return s.token, nil
}
