package RSClientGo

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Main entry for users of this client when using a platform API key (sent as the x-api-key header)
func NewAPIKeyClient(client *http.Client, base_url, api_key string, logger *logrus.Logger) (*RSClient, error) {
	if client == nil || base_url == "" || api_key == "" || logger == nil {
		return nil, fmt.Errorf("unable to create client: invalid parameters provided, requires client, base url, API key and logger")
	}

	cli := RSClient{
		httpClient: client,
		baseUrl:    strings.TrimSuffix(base_url, "/"),
		apiKey:     api_key,
		logger:     logger,
	}

	cli.InitializeClient()
	return &cli, nil
}

// Entry for deployments fronted by an identity provider that issues bearer tokens
// The token is not refreshed, create a new client when it expires
func NewBearerClient(client *http.Client, base_url, token string, logger *logrus.Logger) (*RSClient, error) {
	if client == nil || base_url == "" || token == "" || logger == nil {
		return nil, fmt.Errorf("unable to create client: invalid parameters provided, requires client, base url, token and logger")
	}

	claims, err := parseJWT(token)
	if err != nil {
		logger.Debugf("Bearer token is not a parseable JWT, expiry will not be checked: %s", err)
	} else if !claims.ExpiryTime.IsZero() && claims.ExpiryTime.Before(time.Now()) {
		return nil, &UserUnauthorizedError{Body: fmt.Sprintf("bearer token expired at %v", claims.ExpiryTime.Format(time.RFC3339))}
	}

	oauthclient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   client.Transport,
		},
		Timeout:       client.Timeout,
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
	}

	cli := RSClient{
		httpClient: oauthclient,
		baseUrl:    strings.TrimSuffix(base_url, "/"),
		bearer:     true,
		logger:     logger,
	}
	if err == nil && claims.ClientID != 0 {
		cli.clientID = claims.ClientID
	}

	cli.InitializeClient()
	return &cli, nil
}

// Convenience function that reads command-line flags to create the RSClient
func NewClient(client *http.Client, logger *logrus.Logger) (*RSClient, error) {
	APIKey := flag.String("apikey", "", "Platform API key")
	BaseURL := flag.String("url", "", "Platform URL, eg: https://platform.risksense.com")
	ClientID := flag.Uint64("client", 0, "Optional: default client ID")
	flag.Parse()

	if *APIKey == "" {
		return nil, fmt.Errorf("no credentials provided - need to supply the 'apikey' parameter")
	}
	if *BaseURL == "" {
		return nil, fmt.Errorf("no server details provided - need to supply the 'url' parameter")
	}

	cli, err := NewAPIKeyClient(client, *BaseURL, *APIKey, logger)
	if err != nil {
		return nil, err
	}
	cli.SetDefaultClientID(*ClientID)
	return cli, nil
}

func (c RSClient) String() string {
	if c.clientID != 0 {
		return fmt.Sprintf("client %d on %v", c.clientID, c.baseUrl)
	}
	return c.baseUrl
}

func (c *RSClient) InitializeClient() {
	c.SetUserAgent("RSClientGo")
	c.SetRetries(3, time.Second)
	c.InitializeClientVars()
	c.InitializePaginationSettings()
}

func (c RSClient) GetDefaultClientID() uint64 {
	return c.clientID
}

func (c *RSClient) SetDefaultClientID(clientID uint64) {
	c.clientID = clientID
}

// returns a copy of the client that targets a different platform client ID
// the original client is not modified
func (c RSClient) ForClient(clientID uint64) RSClient {
	c.clientID = clientID
	return c
}

// returns a copy of the client whose requests, retry backoff and export polling stop when ctx is done
func (c RSClient) WithContext(ctx context.Context) RSClient {
	c.ctx = ctx
	return c
}

func (c RSClient) GetLogger() *logrus.Logger {
	return c.logger
}

func parseJWT(jwtToken string) (claims RSTokenClaims, err error) {
	_, _, err = jwt.NewParser().ParseUnverified(jwtToken, &claims)
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		err = fmt.Errorf("failed to parse jwt token: %v", err)
		return
	}
	err = nil

	if claims.ExpiresAt != nil {
		claims.ExpiryTime = claims.ExpiresAt.Time
	}
	return
}
