// Package cognito implements the IdentityClient port on top of a Cognito
// user pool, driven by the identity-service configuration set.
package cognito

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"gqlreg/types"
)

const (
	// EndpointEnvKey points the client at a local Cognito mock. Testing only.
	EndpointEnvKey = "COGNITO_ENDPOINT"

	// expirySlack refreshes tokens slightly before they actually expire so a
	// token returned to a caller is never on the edge of rejection.
	expirySlack = time.Minute
)

// Client authenticates a single user against a user pool and keeps the
// access token fresh. Safe for concurrent use.
type Client struct {
	idp         *cip.Client
	clientID    string
	fingerprint string
	username    string
	password    string

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func New(ctx context.Context, cfg types.IdentityConfig, username, password string) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}
	endpoint := os.Getenv(EndpointEnvKey)
	idp := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if endpoint != "" {
			// Local mock; real pools resolve from the region.
			o.BaseEndpoint = aws.String(endpoint)
			o.Credentials = credentials.NewStaticCredentialsProvider(
				getenv("AWS_ACCESS_KEY_ID", "x"),
				getenv("AWS_SECRET_ACCESS_KEY", "x"),
				"",
			)
		}
	})
	return &Client{
		idp:         idp,
		clientID:    cfg.ClientID,
		fingerprint: strings.Join([]string{cfg.PoolID, cfg.ClientID, username}, "|"),
		username:    username,
		password:    password,
	}, nil
}

// Fingerprint identifies (pool, app client, user). Two clients for the same
// user against the same pool share cached API clients; different users or
// pools do not.
func (c *Client) Fingerprint() string { return c.fingerprint }

// AuthToken returns a currently valid access token, signing in or refreshing
// as needed.
func (c *Client) AuthToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt.Add(-expirySlack)) {
		return c.accessToken, nil
	}
	if c.refreshToken != "" {
		if err := c.initiate(ctx, ciptypes.AuthFlowTypeRefreshTokenAuth, map[string]string{
			"REFRESH_TOKEN": c.refreshToken,
		}); err == nil {
			return c.accessToken, nil
		}
		// Refresh token expired or revoked; fall through to a full sign-in.
		c.refreshToken = ""
	}
	if err := c.initiate(ctx, ciptypes.AuthFlowTypeUserPasswordAuth, map[string]string{
		"USERNAME": c.username,
		"PASSWORD": c.password,
	}); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

// initiate runs one auth flow and records the resulting tokens. Caller holds
// the lock.
func (c *Client) initiate(ctx context.Context, flow ciptypes.AuthFlowType, params map[string]string) error {
	out, err := c.idp.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       flow,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return fmt.Errorf("cognito %s: %w", flow, err)
	}
	result := out.AuthenticationResult
	if result == nil || result.AccessToken == nil {
		return fmt.Errorf("cognito %s: no token in response (challenge pending?)", flow)
	}
	c.accessToken = *result.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	if result.RefreshToken != nil {
		c.refreshToken = *result.RefreshToken
	}
	return nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
