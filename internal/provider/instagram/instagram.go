// Package instagram verifies Instagram logins by exchanging an OAuth
// authorization code for an access token.
//
// There is no separate introspection call: the token endpoint only accepts our
// client id/secret, so a code issued to another app cannot complete the
// exchange. That call doubles as the audience check. The token response
// already embeds the user profile.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

const ProviderName = "instagram"

const tokenPath = "/oauth/access_token"

// Verifier implements provider.Verifier for Instagram.
type Verifier struct {
	ClientID     string
	ClientSecret string
	BaseURL      string

	http *http.Client
}

// New creates an Instagram verifier. baseURL defaults to the public API.
func New(clientID, clientSecret, baseURL string) *Verifier {
	if baseURL == "" {
		baseURL = "https://api.instagram.com"
	}
	return &Verifier{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      baseURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) Name() string                { return ProviderName }
func (v *Verifier) Policy() provider.LinkPolicy { return provider.LinkDirect }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		FullName       string `json:"full_name"`
		ProfilePicture string `json:"profile_picture"`
	} `json:"user"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Verify exchanges the auth code (cred.Token) for an access token.
// cred.ProviderURL carries the redirect_uri used to obtain the code; Instagram
// requires it to match on the exchange.
func (v *Verifier) Verify(ctx context.Context, cred provider.Credential) (*provider.Profile, error) {
	form := url.Values{}
	form.Set("client_id", v.ClientID)
	form.Set("client_secret", v.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", cred.ProviderURL)
	form.Set("code", cred.Token)

	req, err := http.NewRequestWithContext(ctx, "POST", v.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrValidationFailed, err)
	}
	if resp.StatusCode/100 != 2 || tr.ErrorType != "" {
		return nil, fmt.Errorf("%w: instagram %s http %d", provider.ErrValidationFailed, tr.ErrorType, resp.StatusCode)
	}
	if tr.AccessToken == "" || tr.User.ID == "" {
		return nil, provider.ErrProfileNotFound
	}

	name := tr.User.FullName
	if name == "" {
		name = tr.User.Username
	}
	return &provider.Profile{
		ID:          tr.User.ID,
		DisplayName: name,
		PhotoURL:    tr.User.ProfilePicture,
		AccessToken: tr.AccessToken,
	}, nil
}

// AuthorizeURL builds the Instagram consent URL for the web flow.
func (v *Verifier) AuthorizeURL(redirectURI, state, scope string) string {
	u, _ := url.Parse(v.BaseURL + "/oauth/authorize")
	q := u.Query()
	q.Set("client_id", v.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scope)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}
