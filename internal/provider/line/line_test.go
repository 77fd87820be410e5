package line

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

func TestVerify_OK(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/oauth/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mid":"u0123456789abcdef","channelId":1462202585}`))
	}))
	defer srv.Close()

	v := New("1462202585", srv.URL)
	p, err := v.Verify(context.Background(), provider.Credential{Token: "tok-abc"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Fatalf("authorization header: got %q", gotAuth)
	}
	if p.ID != "u0123456789abcdef" {
		t.Fatalf("profile id: got %q", p.ID)
	}
}

func TestVerify_ChannelMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"mid":"u1","channelId":999}`))
	}))
	defer srv.Close()

	v := New("1462202585", srv.URL)
	_, err := v.Verify(context.Background(), provider.Credential{Token: "tok"})
	if !errors.Is(err, provider.ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestVerify_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"statusCode":"401"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := New("1462202585", srv.URL)
	_, err := v.Verify(context.Background(), provider.Credential{Token: "bad"})
	if !errors.Is(err, provider.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestVerify_EmptyMid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"channelId":1462202585}`))
	}))
	defer srv.Close()

	v := New("1462202585", srv.URL)
	_, err := v.Verify(context.Background(), provider.Credential{Token: "tok"})
	if !errors.Is(err, provider.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
