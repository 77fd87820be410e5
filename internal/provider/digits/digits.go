// Package digits verifies Digits (Twitter) OAuth Echo credentials.
//
// The client does not send an access token. It echoes two headers: the Digits
// API URL to call and a complete OAuth authorization header signed for that
// URL. We validate the header shape, the consumer key (the audience check) and
// the hostname, then replay the request against the Digits API.
package digits

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

const ProviderName = "digits"

// Verifier implements provider.Verifier for Digits.
type Verifier struct {
	ConsumerKey  string
	AllowedHosts []string

	http *http.Client
}

// New creates a Digits verifier. allowedHosts defaults to the official API
// hostnames when empty.
func New(consumerKey string, allowedHosts []string) *Verifier {
	if len(allowedHosts) == 0 {
		allowedHosts = []string{"api.digits.com", "api.twitter.com"}
	}
	return &Verifier{
		ConsumerKey:  consumerKey,
		AllowedHosts: allowedHosts,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) Name() string                { return ProviderName }
func (v *Verifier) Policy() provider.LinkPolicy { return provider.LinkDirect }

type accountResponse struct {
	IDStr        string `json:"id_str"`
	PhoneNumber  string `json:"phone_number"`
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"email_address"`
}

// Verify checks the echoed OAuth header and replays it against the Digits API.
func (v *Verifier) Verify(ctx context.Context, cred provider.Credential) (*provider.Profile, error) {
	params, err := parseOAuthHeader(cred.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrValidationFailed, err)
	}
	// Consumer key mismatch means the credential was signed for another app.
	if params["oauth_consumer_key"] != v.ConsumerKey {
		return nil, provider.ErrAudienceMismatch
	}

	u, err := url.Parse(cred.ProviderURL)
	if err != nil || !v.hostAllowed(u.Hostname()) {
		return nil, fmt.Errorf("%w: invalid api hostname", provider.ErrValidationFailed)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", cred.ProviderURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", cred.Header)

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: digits http %d", provider.ErrValidationFailed, resp.StatusCode)
	}

	var acc accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrValidationFailed, err)
	}
	if acc.IDStr == "" {
		return nil, provider.ErrProfileNotFound
	}

	return &provider.Profile{
		ID:          acc.IDStr,
		Email:       acc.EmailAddress.Address,
		PhoneNumber: acc.PhoneNumber,
	}, nil
}

func (v *Verifier) hostAllowed(host string) bool {
	for _, h := range v.AllowedHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// parseOAuthHeader parses `OAuth k1="v1", k2="v2"` into a map.
// Only the OAuth scheme is accepted.
func parseOAuthHeader(h string) (map[string]string, error) {
	h = strings.TrimSpace(h)
	scheme, rest, ok := strings.Cut(h, " ")
	if !ok || scheme != "OAuth" {
		return nil, fmt.Errorf("invalid auth scheme")
	}
	out := make(map[string]string)
	for _, part := range strings.Split(rest, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		val = strings.Trim(val, `"`)
		if dec, err := url.QueryUnescape(val); err == nil {
			val = dec
		}
		out[k] = val
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty oauth header")
	}
	return out, nil
}
