package digits

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

func oauthHeader(consumerKey string) string {
	return `OAuth oauth_consumer_key="` + consumerKey + `", oauth_nonce="abc123", oauth_signature="sig%3D", oauth_signature_method="HMAC-SHA1", oauth_timestamp="1458550086", oauth_token="tok", oauth_version="1.0"`
}

func TestParseOAuthHeader(t *testing.T) {
	params, err := parseOAuthHeader(oauthHeader("ckey"))
	if err != nil {
		t.Fatalf("parseOAuthHeader: %v", err)
	}
	if params["oauth_consumer_key"] != "ckey" {
		t.Fatalf("consumer key: got %q", params["oauth_consumer_key"])
	}
	if params["oauth_signature"] != "sig=" {
		t.Fatalf("expected percent-decoded signature, got %q", params["oauth_signature"])
	}

	if _, err := parseOAuthHeader(`Bearer abc`); err == nil {
		t.Fatal("expected error for non-OAuth scheme")
	}
	if _, err := parseOAuthHeader(""); err == nil {
		t.Fatal("expected error for empty header")
	}
}

func TestVerify_ReplaysEcho(t *testing.T) {
	var replayed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replayed = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id_str":"707893592855269376","phone_number":"+14155550123","email_address":{"address":"dee@example.com"}}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	host = strings.Split(host, ":")[0]
	v := New("ckey", []string{host})

	cred := provider.Credential{
		Header:      oauthHeader("ckey"),
		ProviderURL: srv.URL + "/1.1/sdk/account.json",
	}
	p, err := v.Verify(context.Background(), cred)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if replayed != cred.Header {
		t.Fatalf("authorization not replayed verbatim: got %q", replayed)
	}
	if p.ID != "707893592855269376" {
		t.Fatalf("id: got %q", p.ID)
	}
	if p.PhoneNumber != "+14155550123" || p.Email != "dee@example.com" {
		t.Fatalf("profile mapping: %+v", p)
	}
}

func TestVerify_ConsumerKeyMismatch(t *testing.T) {
	v := New("expected-key", nil)
	cred := provider.Credential{
		Header:      oauthHeader("other-key"),
		ProviderURL: "https://api.digits.com/1.1/sdk/account.json",
	}
	_, err := v.Verify(context.Background(), cred)
	if !errors.Is(err, provider.ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestVerify_DisallowedHost(t *testing.T) {
	v := New("ckey", nil) // defaults: api.digits.com, api.twitter.com
	cred := provider.Credential{
		Header:      oauthHeader("ckey"),
		ProviderURL: "https://evil.example.com/1.1/sdk/account.json",
	}
	_, err := v.Verify(context.Background(), cred)
	if !errors.Is(err, provider.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestVerify_BadScheme(t *testing.T) {
	v := New("ckey", nil)
	cred := provider.Credential{
		Header:      "Bearer whatever",
		ProviderURL: "https://api.twitter.com/1.1/sdk/account.json",
	}
	_, err := v.Verify(context.Background(), cred)
	if !errors.Is(err, provider.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}
