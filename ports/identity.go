package ports

import "context"

// IdentityClient is the token-issuance capability of an authenticated user.
// Token freshness is the implementation's responsibility: AuthToken is called
// on every outbound request and callers never cache what it returns.
type IdentityClient interface {
	// Fingerprint returns a stable identifier for this identity. Distinct
	// identities MUST NOT share a fingerprint; the same identity client MUST
	// keep returning the same value for its lifetime. No persistence across
	// process restarts is assumed.
	Fingerprint() string

	// AuthToken returns the freshest auth token available at call time.
	AuthToken(ctx context.Context) (string, error)
}
