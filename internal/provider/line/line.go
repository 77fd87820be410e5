// Package line verifies LINE Login access tokens.
//
// LINE's verify endpoint both validates the token and carries the profile id
// (mid), so no second profile call is needed. The channelId in the response is
// the audience: it must match the configured channel or the token was issued
// for another LINE app.
package line

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

const ProviderName = "line"

const verifyPath = "/v1/oauth/verify"

// Verifier implements provider.Verifier for LINE.
type Verifier struct {
	ChannelID string
	BaseURL   string

	http *http.Client
}

// New creates a LINE verifier. baseURL defaults to the public LINE API.
func New(channelID, baseURL string) *Verifier {
	if baseURL == "" {
		baseURL = "https://api.line.me"
	}
	return &Verifier{
		ChannelID: channelID,
		BaseURL:   baseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) Name() string                { return ProviderName }
func (v *Verifier) Policy() provider.LinkPolicy { return provider.LinkDirect }

type verifyResponse struct {
	Mid       string      `json:"mid"`
	ChannelID json.Number `json:"channelId"`
}

// Verify calls the LINE token verification endpoint with the access token as
// bearer and checks the channel id against the configured one.
func (v *Verifier) Verify(ctx context.Context, cred provider.Credential) (*provider.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", v.BaseURL+verifyPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: line verify http %d", provider.ErrValidationFailed, resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrValidationFailed, err)
	}

	// channelId llega como número; comparamos la representación en string.
	if vr.ChannelID.String() != v.ChannelID {
		return nil, provider.ErrAudienceMismatch
	}
	if vr.Mid == "" {
		return nil, provider.ErrProfileNotFound
	}

	return &provider.Profile{ID: vr.Mid}, nil
}
