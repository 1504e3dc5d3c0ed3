package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing means a required configuration set or field is absent.
	// Construction cannot proceed; callers should not retry.
	ErrConfigMissing = errors.New("required configuration missing")

	// ErrAuthToken means the identity client could not produce a token.
	ErrAuthToken = errors.New("auth token unavailable")

	// ErrUntrustedCert means the peer certificate failed the
	// certificate-transparency check.
	ErrUntrustedCert = errors.New("certificate not in transparency logs")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
