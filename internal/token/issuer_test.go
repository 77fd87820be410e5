package token

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	seed, err := GenerateSeed()
	if err != nil {
		t.Fatalf("GenerateSeed: %v", err)
	}
	iss, err := NewIssuer("tokenbridge-test", seed, ttl)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestCustomToken_RoundTrip(t *testing.T) {
	iss := newTestIssuer(t, 30*time.Minute)

	signed, err := iss.CustomToken("line:u123", map[string]any{"provider": "line"})
	if err != nil {
		t.Fatalf("CustomToken: %v", err)
	}

	parsed, err := jwtv5.Parse(signed, iss.Keyfunc(),
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithAudience(Audience),
		jwtv5.WithIssuer("tokenbridge-test"),
	)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	claims := parsed.Claims.(jwtv5.MapClaims)
	if claims["uid"] != "line:u123" {
		t.Fatalf("uid claim: got %v", claims["uid"])
	}
	if claims["sub"] != "tokenbridge-test" {
		t.Fatalf("sub claim: got %v", claims["sub"])
	}
	dev, ok := claims["claims"].(map[string]any)
	if !ok || dev["provider"] != "line" {
		t.Fatalf("nested developer claims: got %v", claims["claims"])
	}
	if parsed.Header["kid"] != iss.KID() {
		t.Fatalf("kid header: got %v want %v", parsed.Header["kid"], iss.KID())
	}
}

func TestCustomToken_TTLClamp(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Minute, 48 * time.Hour} {
		iss := newTestIssuer(t, ttl)
		if iss.TTL != time.Hour {
			t.Fatalf("ttl %v: expected clamp to 1h, got %v", ttl, iss.TTL)
		}
	}
}

func TestCustomToken_ExpiryWithinTTL(t *testing.T) {
	iss := newTestIssuer(t, 10*time.Minute)
	signed, err := iss.CustomToken("kakao:77", nil)
	if err != nil {
		t.Fatalf("CustomToken: %v", err)
	}
	parsed, err := jwtv5.Parse(signed, iss.Keyfunc(), jwtv5.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	claims := parsed.Claims.(jwtv5.MapClaims)
	exp := time.Unix(int64(claims["exp"].(float64)), 0)
	iat := time.Unix(int64(claims["iat"].(float64)), 0)
	if got := exp.Sub(iat); got != 10*time.Minute {
		t.Fatalf("exp-iat: got %v want 10m", got)
	}
	if _, ok := claims["claims"]; ok {
		t.Fatalf("no developer claims expected, got %v", claims["claims"])
	}
}

func TestCustomToken_EmptyUID(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	if _, err := iss.CustomToken("", nil); err == nil {
		t.Fatal("expected error for empty uid")
	}
}

func TestNewIssuer_BadSeed(t *testing.T) {
	if _, err := NewIssuer("iss", "no-es-base64!!", time.Hour); err == nil {
		t.Fatal("expected error for invalid base64 seed")
	}
	if _, err := NewIssuer("iss", "c2hvcnQ=", time.Hour); err == nil {
		t.Fatal("expected error for short seed")
	}
}
