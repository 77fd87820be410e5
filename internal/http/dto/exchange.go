// Package dto contains the wire types of the token exchange endpoints.
package dto

// VerifyTokenRequest is the body of POST /verifyToken.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// TokenResponse carries the minted custom token back to the client.
type TokenResponse struct {
	FirebaseToken string `json:"firebase_token"`
}

// ProvidersResponse lists the providers this deployment accepts.
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// MobileExchangeResponse is the JSON the Instagram mobile code-exchange
// endpoint returns: token plus the bits the app shows on the profile screen.
type MobileExchangeResponse struct {
	FirebaseToken string `json:"firebase_token"`
	DisplayName   string `json:"display_name,omitempty"`
	PhotoURL      string `json:"photo_url,omitempty"`
}
