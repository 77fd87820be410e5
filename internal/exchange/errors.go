package exchange

import "errors"

// Error kinds the HTTP boundary maps to statuses. Clients only ever see a
// generic message; the kind stays in server logs.
var (
	// ErrMissingCredential: no token in the request. Rejected before any
	// network call.
	ErrMissingCredential = errors.New("exchange: missing credential")

	// ErrUnknownProvider: no verifier registered under that name.
	ErrUnknownProvider = errors.New("exchange: unknown provider")

	// ErrUnverifiedEmailLink: the profile's email matches an existing user
	// but the provider does not vouch for it. Linking would let an attacker
	// take over the account by registering the email at the provider.
	ErrUnverifiedEmailLink = errors.New("exchange: unverified email link rejected")

	// ErrProviderTimeout: the provider call exceeded its deadline.
	ErrProviderTimeout = errors.New("exchange: provider timeout")

	// ErrIdentityStore wraps identity store failures.
	ErrIdentityStore = errors.New("exchange: identity store error")

	// ErrTokenMint wraps signing failures.
	ErrTokenMint = errors.New("exchange: token mint error")
)
