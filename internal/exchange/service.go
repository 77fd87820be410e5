// Package exchange orchestrates the provider-token-for-custom-token flow.
//
// Fixed step order per request: presence check, provider verification (with
// the audience check inside the verifier), identity lookup-or-create, best
// effort side effects, token mint. Nothing is retried; a provider outage
// surfaces to the caller.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
	"github.com/dropDatabas3/tokenbridge/internal/token"
	"github.com/dropDatabas3/tokenbridge/internal/vault"
)

// Vault field names for side-channel values.
const (
	FieldAccessToken = "access_token"
	FieldPhoneNumber = "phone_number"
)

type Service struct {
	providers *provider.Registry
	store     identity.Store
	issuer    *token.Issuer
	vault     vault.Vault

	// sf serializa first-logins concurrentes del mismo uid dentro del
	// proceso. Entre procesos manda la unicidad del store (ErrUserExists se
	// reintenta como update).
	sf singleflight.Group
}

func New(reg *provider.Registry, store identity.Store, issuer *token.Issuer, v vault.Vault) *Service {
	if v == nil {
		v = vault.Noop{}
	}
	return &Service{providers: reg, store: store, issuer: issuer, vault: v}
}

// Result of a successful exchange.
type Result struct {
	Token   string
	UID     string
	Created bool
	Profile *provider.Profile
}

// Exchange runs the full flow for one provider credential.
func (s *Service) Exchange(ctx context.Context, providerName string, cred provider.Credential) (*Result, error) {
	if cred.Token == "" && cred.Header == "" {
		return nil, ErrMissingCredential
	}

	ver, err := s.providers.Get(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	prof, err := ver.Verify(ctx, cred)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return nil, err
	}

	res, err := s.resolve(ctx, ver, prof)
	if err != nil {
		return nil, err
	}

	s.persistSideEffects(ctx, ver.Name(), res.UID, prof)

	signed, err := s.issuer.CustomToken(res.UID, map[string]any{"provider": ver.Name()})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMint, err)
	}
	res.Token = signed
	res.Profile = prof
	return res, nil
}

// resolve maps the verified profile to a platform uid under the provider's
// link policy. Singleflight keyed by the derived uid collapses concurrent
// first-logins for the same identity.
func (s *Service) resolve(ctx context.Context, ver provider.Verifier, prof *provider.Profile) (*Result, error) {
	uid := identity.UID(ver.Name(), prof.ID)

	v, err, _ := s.sf.Do(uid, func() (any, error) {
		switch ver.Policy() {
		case provider.LinkByEmail:
			return s.resolveByEmail(ctx, uid, prof)
		default:
			return s.resolveDirect(ctx, uid, prof)
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (s *Service) resolveDirect(ctx context.Context, uid string, prof *provider.Profile) (*Result, error) {
	existing, err := s.store.GetUser(ctx, uid)
	switch {
	case err == nil:
		if err := s.refresh(ctx, existing, prof); err != nil {
			return nil, err
		}
		return &Result{UID: uid}, nil
	case errors.Is(err, identity.ErrUserNotFound):
		return s.create(ctx, uid, prof)
	default:
		return nil, fmt.Errorf("%w: %v", ErrIdentityStore, err)
	}
}

func (s *Service) resolveByEmail(ctx context.Context, uid string, prof *provider.Profile) (*Result, error) {
	existing, err := s.store.GetUser(ctx, uid)
	switch {
	case err == nil:
		if err := s.refresh(ctx, existing, prof); err != nil {
			return nil, err
		}
		return &Result{UID: uid}, nil
	case !errors.Is(err, identity.ErrUserNotFound):
		return nil, fmt.Errorf("%w: %v", ErrIdentityStore, err)
	}

	if prof.Email != "" {
		byEmail, err := s.store.GetUserByEmail(ctx, prof.Email)
		switch {
		case err == nil:
			if !prof.EmailVerified {
				return nil, ErrUnverifiedEmailLink
			}
			claims := map[string]any{"providerUID": uid}
			if err := s.store.SetCustomClaims(ctx, byEmail.UID, claims); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIdentityStore, err)
			}
			return &Result{UID: byEmail.UID}, nil
		case !errors.Is(err, identity.ErrUserNotFound):
			return nil, fmt.Errorf("%w: %v", ErrIdentityStore, err)
		}
	}

	return s.create(ctx, uid, prof)
}

func (s *Service) create(ctx context.Context, uid string, prof *provider.Profile) (*Result, error) {
	u := &identity.User{
		UID:           uid,
		Email:         prof.Email,
		EmailVerified: prof.EmailVerified,
		DisplayName:   prof.DisplayName,
		PhotoURL:      prof.PhotoURL,
	}
	err := s.store.CreateUser(ctx, u)
	if err == nil {
		return &Result{UID: uid, Created: true}, nil
	}
	if errors.Is(err, identity.ErrUserExists) {
		// Otro proceso ganó la carrera: seguimos por el camino de update.
		existing, gerr := s.store.GetUser(ctx, uid)
		if gerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdentityStore, gerr)
		}
		if rerr := s.refresh(ctx, existing, prof); rerr != nil {
			return nil, rerr
		}
		return &Result{UID: uid}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrIdentityStore, err)
}

// refresh fills profile fields that are still empty on the stored record.
// Existing values win: a user's edits are never clobbered by a login.
func (s *Service) refresh(ctx context.Context, u *identity.User, prof *provider.Profile) error {
	var upd identity.Update
	if u.Email == "" && prof.Email != "" {
		upd.Email = identity.Str(prof.Email)
		upd.EmailVerified = identity.BoolPtr(prof.EmailVerified)
	}
	if u.DisplayName == "" && prof.DisplayName != "" {
		upd.DisplayName = identity.Str(prof.DisplayName)
	}
	if u.PhotoURL == "" && prof.PhotoURL != "" {
		upd.PhotoURL = identity.Str(prof.PhotoURL)
	}
	if upd == (identity.Update{}) {
		return nil
	}
	if _, err := s.store.UpdateUser(ctx, u.UID, upd); err != nil {
		return fmt.Errorf("%w: %v", ErrIdentityStore, err)
	}
	return nil
}

// persistSideEffects writes provider extras to the vault. Failures are logged
// and swallowed: none of these values gate the exchange.
func (s *Service) persistSideEffects(ctx context.Context, providerName, uid string, prof *provider.Profile) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Provider(providerName), logger.UID(uid))
	if prof.AccessToken != "" {
		if err := s.vault.Put(ctx, uid, FieldAccessToken, prof.AccessToken); err != nil {
			log.Warn("vault: access token not persisted", logger.Err(err))
		}
	}
	if prof.PhoneNumber != "" {
		if err := s.vault.Put(ctx, uid, FieldPhoneNumber, prof.PhoneNumber); err != nil {
			log.Warn("vault: phone number not persisted", logger.Err(err))
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
