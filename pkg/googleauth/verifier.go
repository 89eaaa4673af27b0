// Package googleauth verifies Google ID tokens through the tokeninfo
// endpoint and maps them to lobby user profiles.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultEndpoint = "https://oauth2.googleapis.com/tokeninfo"

// ErrInvalidToken indicates the credential was rejected by Google or was
// issued for a different client.
var ErrInvalidToken = errors.New("invalid google id token")

// Profile is the subset of token claims the lobby cares about.
type Profile struct {
	ID         string
	Email      string
	Name       string
	PictureURL string
}

// Verifier validates an opaque credential and returns the holder's profile.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Profile, error)
}

// Client verifies ID tokens against Google's tokeninfo endpoint.
type Client struct {
	Endpoint   string
	ClientID   string
	HTTPClient *http.Client
}

// New creates a verifier. clientID may be empty to skip audience checking
// (useful against emulators and in tests).
func New(clientID string) *Client {
	return &Client{
		Endpoint:   defaultEndpoint,
		ClientID:   clientID,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfo struct {
	Aud     string `json:"aud"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify implements Verifier.
func (c *Client) Verify(ctx context.Context, credential string) (Profile, error) {
	if credential == "" {
		return Profile{}, ErrInvalidToken
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	query := url.Values{"id_token": {credential}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Profile{}, err
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: tokeninfo returned status %d", ErrInvalidToken, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, err
	}

	if info.Sub == "" {
		return Profile{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if c.ClientID != "" && info.Aud != c.ClientID {
		return Profile{}, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	return Profile{
		ID:         info.Sub,
		Email:      info.Email,
		Name:       info.Name,
		PictureURL: info.Picture,
	}, nil
}
