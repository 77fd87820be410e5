// Package kakao verifies Kakao Login access tokens.
//
// Kakao needs two calls: access_token_info, which reports which Kakao app the
// token belongs to (the audience check), and /v1/user/me for the profile.
// Kakao is the email-linking variant: its profile carries the account email
// and a verified flag, so the exchange may attach the identity to an existing
// platform user with that verified email.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

const ProviderName = "kakao"

const (
	tokenInfoPath = "/v1/user/access_token_info"
	mePath        = "/v1/user/me"
)

// Verifier implements provider.Verifier for Kakao.
type Verifier struct {
	AppID   int64
	BaseURL string

	http *http.Client
}

// New creates a Kakao verifier. baseURL defaults to the public Kakao API.
func New(appID int64, baseURL string) *Verifier {
	if baseURL == "" {
		baseURL = "https://kapi.kakao.com"
	}
	return &Verifier{
		AppID:   appID,
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) Name() string                { return ProviderName }
func (v *Verifier) Policy() provider.LinkPolicy { return provider.LinkByEmail }

type tokenInfoResponse struct {
	ID    int64 `json:"id"`
	AppID int64 `json:"appId"`
}

type meResponse struct {
	ID                    int64  `json:"id"`
	KaccountEmail         string `json:"kaccount_email"`
	KaccountEmailVerified bool   `json:"kaccount_email_verified"`
	Properties            struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
}

// Verify introspects the access token and then fetches the user profile.
func (v *Verifier) Verify(ctx context.Context, cred provider.Credential) (*provider.Profile, error) {
	var info tokenInfoResponse
	if err := v.get(ctx, tokenInfoPath, cred.Token, &info); err != nil {
		return nil, err
	}
	if info.AppID != v.AppID {
		return nil, provider.ErrAudienceMismatch
	}

	var me meResponse
	if err := v.get(ctx, mePath, cred.Token, &me); err != nil {
		return nil, err
	}
	if me.ID == 0 {
		return nil, provider.ErrProfileNotFound
	}

	return &provider.Profile{
		ID:            strconv.FormatInt(me.ID, 10),
		Email:         me.KaccountEmail,
		EmailVerified: me.KaccountEmailVerified,
		DisplayName:   me.Properties.Nickname,
		PhotoURL:      me.Properties.ProfileImage,
	}, nil
}

func (v *Verifier) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", v.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: kakao %s http %d", provider.ErrValidationFailed, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", provider.ErrValidationFailed, err)
	}
	return nil
}
