// Package provider defines the social-provider verification system.
//
// Each supported provider (LINE, Digits, Instagram, Kakao) implements the same
// interface: take a credential the client obtained from the provider, validate
// it against the provider's API (including the audience/app-id check), and
// return a normalized profile. The exchange service never talks to a provider
// directly; it only sees this interface.
//
// Architecture:
// - Verifier interface: common methods all providers must implement
// - Registry: lookup by provider name, factories registered at startup
// - Implementations: one sub-package per provider
package provider

import (
	"context"
	"errors"
)

// LinkPolicy indicates how a verified profile is resolved to a platform user.
type LinkPolicy string

const (
	// LinkDirect maps the identity to uid "<provider>:<providerUserId>".
	LinkDirect LinkPolicy = "direct"
	// LinkByEmail additionally tries to attach to an existing user with the
	// same verified email before creating a new one.
	LinkByEmail LinkPolicy = "email"
)

// Sentinel errors implementations return from Verify. The exchange boundary
// maps them to HTTP statuses; the text never reaches the client verbatim.
var (
	// ErrValidationFailed: the provider rejected the credential (non-2xx,
	// malformed response, expired token).
	ErrValidationFailed = errors.New("provider: credential validation failed")

	// ErrAudienceMismatch: the credential is valid but was issued for a
	// different app on the same provider. Spoofing indicator, never proceed.
	ErrAudienceMismatch = errors.New("provider: audience mismatch")

	// ErrProfileNotFound: validation passed but no resolvable user id.
	ErrProfileNotFound = errors.New("provider: profile not found")
)

// Credential is the raw material a client sends to prove a provider login.
// Token is the common case; Digits instead echoes an OAuth header plus the
// provider URL to call, carried in Header/ProviderURL.
type Credential struct {
	Token       string
	ProviderURL string
	Header      string
}

// Profile is a normalized external identity from any provider.
// Fetched fresh on every request, never cached, never written back.
type Profile struct {
	// ID is the provider-assigned user id (opaque).
	ID            string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string

	// AccessToken is set by providers whose verification yields a usable
	// provider token (Instagram code exchange); stored as a side effect.
	AccessToken string
	// PhoneNumber is Digits-specific; stored as a side effect.
	PhoneNumber string
}

// Verifier is the interface all social providers implement.
type Verifier interface {
	Name() string
	Policy() LinkPolicy

	// Verify validates the credential against the provider, enforces the
	// audience check and returns the normalized profile.
	Verify(ctx context.Context, cred Credential) (*Profile, error)
}
