// Package token mints the custom tokens clients exchange for a platform
// session. Shape follows the identity platform's custom-token contract: short
// lived, signed assertion with a uid claim and a fixed audience.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Audience is the fixed "aud" for custom tokens, per the identity platform's
// token contract.
const Audience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

// maxTTL: la plataforma rechaza custom tokens con vida mayor a 1h.
const maxTTL = time.Hour

// Issuer firma custom tokens con la clave de servicio.
type Issuer struct {
	Iss string
	TTL time.Duration

	priv ed25519.PrivateKey
	kid  string
}

// NewIssuer builds an issuer from a base64 ed25519 seed (32 bytes).
func NewIssuer(iss, seedB64 string, ttl time.Duration) (*Issuer, error) {
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return nil, fmt.Errorf("token: decode signing seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("token: signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if ttl <= 0 || ttl > maxTTL {
		ttl = maxTTL
	}
	priv := ed25519.NewKeyFromSeed(seed)
	sum := sha256.Sum256(priv.Public().(ed25519.PublicKey))
	return &Issuer{
		Iss:  iss,
		TTL:  ttl,
		priv: priv,
		kid:  hex.EncodeToString(sum[:8]),
	}, nil
}

// KID returns the key id stamped into token headers.
func (i *Issuer) KID() string { return i.kid }

// CustomToken signs a custom token for uid. Developer claims (e.g. provider)
// travel nested under "claims", mirroring the platform SDK.
func (i *Issuer) CustomToken(uid string, devClaims map[string]any) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("token: empty uid")
	}
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": i.Iss,
		"aud": Audience,
		"iat": now.Unix(),
		"exp": now.Add(i.TTL).Unix(),
		"uid": uid,
	}
	if len(devClaims) > 0 {
		claims["claims"] = devClaims
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.priv)
}

// Keyfunc devuelve un jwt.Keyfunc para verificar tokens emitidos por este
// issuer.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		return i.priv.Public(), nil
	}
}

// GenerateSeed produces a fresh base64 signing seed (keygen subcommand).
func GenerateSeed() (string, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(seed), nil
}
