package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/exchange"
	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/identity/memory"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
	"github.com/dropDatabas3/tokenbridge/internal/token"
	"github.com/dropDatabas3/tokenbridge/internal/vault"
)

// stubVerifier accepts exactly one token and returns a fixed profile.
type stubVerifier struct {
	name      string
	goodToken string
	prof      provider.Profile
	err       error
}

func (s *stubVerifier) Name() string                { return s.name }
func (s *stubVerifier) Policy() provider.LinkPolicy { return provider.LinkDirect }
func (s *stubVerifier) Verify(_ context.Context, cred provider.Credential) (*provider.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if cred.Token != s.goodToken {
		return nil, provider.ErrValidationFailed
	}
	p := s.prof
	return &p, nil
}

type testEnv struct {
	srv   *httptest.Server
	store identity.Store
}

func newTestEnv(t *testing.T, verifiers ...provider.Verifier) *testEnv {
	t.Helper()
	reg := provider.NewRegistry()
	var names []string
	for _, v := range verifiers {
		reg.Register(v)
		names = append(names, v.Name())
	}
	store := memory.New()

	seed, err := token.GenerateSeed()
	require.NoError(t, err)
	iss, err := token.NewIssuer("router-test", seed, time.Hour)
	require.NoError(t, err)

	svc := exchange.New(reg, store, iss, vault.Noop{})

	handler, err := NewRouter(RouterDeps{
		Service:           svc,
		Registry:          reg,
		VerifyProviders:   names,
		MetricsRegisterer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func TestVerifyToken_OK(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{
		name:      "line",
		goodToken: "valid-token",
		prof:      provider.Profile{ID: "u0123"},
	})

	resp := postJSON(t, env.srv.URL+"/verifyToken", map[string]string{"token": "valid-token"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		FirebaseToken string `json:"firebase_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.FirebaseToken)

	u, err := env.store.GetUser(context.Background(), "line:u0123")
	require.NoError(t, err)
	require.Equal(t, "line:u0123", u.UID)
}

func TestVerifyToken_MissingToken(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", goodToken: "x"})

	resp := postJSON(t, env.srv.URL+"/verifyToken", map[string]string{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		ErrorMessage string `json:"error_message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "Access Token not found", out.ErrorMessage)
}

func TestVerifyToken_RejectedCredential(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", goodToken: "valid"})

	resp := postJSON(t, env.srv.URL+"/verifyToken", map[string]string{"token": "stolen"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Un rechazo no debe dejar usuarios creados.
	_, err := env.store.GetUser(context.Background(), "line:u0123")
	require.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestVerifyToken_AudienceMismatchIs403(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", err: provider.ErrAudienceMismatch})

	resp := postJSON(t, env.srv.URL+"/verifyToken", map[string]string{"token": "other-apps-token"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestVerifyToken_ProviderPath(t *testing.T) {
	env := newTestEnv(t,
		&stubVerifier{name: "line", goodToken: "line-tok", prof: provider.Profile{ID: "l1"}},
		&stubVerifier{name: "kakao", goodToken: "kakao-tok", prof: provider.Profile{ID: "k1"}},
	)

	resp := postJSON(t, env.srv.URL+"/kakao/verifyToken", map[string]string{"token": "kakao-tok"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := env.store.GetUser(context.Background(), "kakao:k1")
	require.NoError(t, err)
}

func TestVerifyToken_ProviderQueryOverride(t *testing.T) {
	env := newTestEnv(t,
		&stubVerifier{name: "line", goodToken: "line-tok", prof: provider.Profile{ID: "l1"}},
		&stubVerifier{name: "kakao", goodToken: "kakao-tok", prof: provider.Profile{ID: "k1"}},
	)

	resp := postJSON(t, env.srv.URL+"/verifyToken?provider=kakao", map[string]string{"token": "kakao-tok"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := env.store.GetUser(context.Background(), "kakao:k1")
	require.NoError(t, err)
}

func TestVerifyToken_UnknownProviderQuery(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", goodToken: "x"})

	resp := postJSON(t, env.srv.URL+"/verifyToken?provider=myspace", map[string]string{"token": "x"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoot_Liveness(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", goodToken: "x"})

	resp, err := http.Get(env.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Server is up and running!", string(body))
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", goodToken: "x"})

	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "ready", out.Status)
}

func TestProviders_Listing(t *testing.T) {
	env := newTestEnv(t,
		&stubVerifier{name: "line", goodToken: "x"},
		&stubVerifier{name: "kakao", goodToken: "y"},
	)

	resp, err := http.Get(env.srv.URL + "/providers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, []string{"kakao", "line"}, out.Providers) // orden alfabético
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", goodToken: "x"})

	// Generamos tráfico para que los counters tengan series.
	resp := postJSON(t, env.srv.URL+"/verifyToken", map[string]string{"token": "x"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// El scrape tiene que exponer los collectors registrados en ESTE registry,
	// no el gatherer default.
	require.Contains(t, string(body), `token_exchanges_total{provider="line",result="ok"}`)
	require.Contains(t, string(body), "http_requests_total")
}

func TestRequestID_Header(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{name: "line", goodToken: "x"})

	resp, err := http.Get(env.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
