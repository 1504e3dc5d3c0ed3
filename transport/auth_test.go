package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gqlreg/types"
)

// countingIdentity returns a different token on every call so freshness is
// observable.
type countingIdentity struct {
	calls int
	err   error
}

func (c *countingIdentity) Fingerprint() string { return "counting" }

func (c *countingIdentity) AuthToken(_ context.Context) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.calls++
	return fmt.Sprintf("token-%d", c.calls), nil
}

func TestAuthTokenPulledFreshPerRequest(t *testing.T) {
	identity := &countingIdentity{}
	var seen []string
	rt := NewAuthToken(identity, rtFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req.Header.Get("Authorization"))
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}))

	req := newTestRequest(t)
	for i := 0; i < 3; i++ {
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"token-1", "token-2", "token-3"}, seen)
	// The caller's request is never mutated; the header goes on a clone.
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAuthTokenFailureShortCircuits(t *testing.T) {
	identity := &countingIdentity{err: errors.New("pool unreachable")}
	called := false
	rt := NewAuthToken(identity, rtFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	}))

	_, err := rt.RoundTrip(newTestRequest(t))
	require.ErrorIs(t, err, types.ErrAuthToken)
	assert.False(t, called)
}
