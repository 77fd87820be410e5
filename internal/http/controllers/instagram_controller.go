package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"html/template"
	"net/http"
	"strings"

	"github.com/dropDatabas3/tokenbridge/internal/exchange"
	"github.com/dropDatabas3/tokenbridge/internal/http/dto"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
	"github.com/dropDatabas3/tokenbridge/internal/provider/instagram"
	"go.uber.org/zap"
)

const (
	instagramCallbackPath       = "/instagram-callback"
	instagramMobileCallbackPath = "/instagram-mobile-callback"

	// Custom URI scheme the native apps register for the mobile fallback.
	appCustomScheme = "instagram-sign-in-demo"

	oauthScopes = "basic"

	stateCookieName = "state"
)

// signInTemplate signs the user in from the popup window and closes it. The
// opener page picks up the session through the auth state listener.
var signInTemplate = template.Must(template.New("signin").Parse(`<!DOCTYPE html>
<html>
<head><title>Signing in...</title></head>
<body>
<script src="https://www.gstatic.com/firebasejs/3.6.0/firebase.js"></script>
<script>
  var token = {{.Token}};
  var config = {apiKey: {{.APIKey}}};
  firebase.initializeApp(config);
  firebase.auth().signInWithCustomToken(token).then(function(user) {
    return user.updateProfile({
      displayName: {{.DisplayName}},
      photoURL: {{.PhotoURL}}
    });
  }).then(function() {
    window.close();
  });
</script>
</body>
</html>
`))

// InstagramController handles the Instagram OAuth code flow: the consent
// redirect, the web popup callback and the mobile code exchange.
type InstagramController struct {
	service  *exchange.Service
	verifier *instagram.Verifier
	apiKey   string
}

// NewInstagramController creates the controller. apiKey is the platform web
// API key embedded in the popup sign-in page.
func NewInstagramController(service *exchange.Service, verifier *instagram.Verifier, apiKey string) *InstagramController {
	return &InstagramController{service: service, verifier: verifier, apiKey: apiKey}
}

// Redirect sends the user to the Instagram consent screen, setting the state
// cookie for later verification.
func (c *InstagramController) Redirect(w http.ResponseWriter, r *http.Request) {
	state := ""
	if ck, err := r.Cookie(stateCookieName); err == nil && ck.Value != "" {
		state = ck.Value
	} else {
		state = randomState()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		MaxAge:   3600,
		Secure:   secureRequest(r),
		HttpOnly: true,
		Path:     "/",
	})

	redirectURI := requestScheme(r) + "://" + r.Host + instagramCallbackPath
	http.Redirect(w, r, c.verifier.AuthorizeURL(redirectURI, state, oauthScopes), http.StatusFound)
}

// Callback exchanges the auth code from the consent screen for a custom token
// and serves the popup sign-in page. The state query parameter is checked
// against the state cookie to prevent session fixation.
func (c *InstagramController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Provider(instagram.ProviderName))

	ck, err := r.Cookie(stateCookieName)
	if err != nil || ck.Value == "" {
		helpers.WriteError(w, http.StatusBadRequest,
			"State cookie not set or expired. Maybe you took too long to authorize. Please try again.")
		return
	}
	if ck.Value != r.URL.Query().Get("state") {
		helpers.WriteError(w, http.StatusBadRequest, "State validation failed")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		metrics.RecordExchange(instagram.ProviderName, "rejected")
		helpers.WriteError(w, http.StatusBadRequest, helpers.MsgMissingToken)
		return
	}

	redirectURI := requestScheme(r) + "://" + r.Host + instagramCallbackPath
	result, err := c.service.Exchange(ctx, instagram.ProviderName, provider.Credential{
		Token:       code,
		ProviderURL: redirectURI,
	})
	if err != nil {
		c.writeExchangeError(w, log, err)
		return
	}

	metrics.RecordExchange(instagram.ProviderName, "ok")
	log.Info("exchange ok",
		logger.UID(result.UID),
		logger.ProviderUserID(result.Profile.ID),
		logger.Bool("created", result.Created),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err = signInTemplate.Execute(w, map[string]string{
		"Token":       result.Token,
		"APIKey":      c.apiKey,
		"DisplayName": result.Profile.DisplayName,
		"PhotoURL":    result.Profile.PhotoURL,
	})
	if err != nil {
		log.Error("sign-in template render failed", logger.Err(err))
	}
}

// MobileRedirect forwards the OAuth query to the native app through its custom
// URI scheme. Fallback for devices without App Links / Universal Links.
func (c *InstagramController) MobileRedirect(w http.ResponseWriter, r *http.Request) {
	target := appCustomScheme + ":/" + instagramMobileCallbackPath
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// MobileExchange exchanges the auth code for a custom token and returns it as
// JSON. Native clients only: there is no state check here, the custom scheme
// redirect already pins the code to the installed app.
func (c *InstagramController) MobileExchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Provider(instagram.ProviderName))

	code := r.URL.Query().Get("code")
	if code == "" {
		metrics.RecordExchange(instagram.ProviderName, "rejected")
		helpers.WriteError(w, http.StatusBadRequest, helpers.MsgMissingToken)
		return
	}

	redirectURI := requestScheme(r) + "://" + r.Host + instagramMobileCallbackPath
	result, err := c.service.Exchange(ctx, instagram.ProviderName, provider.Credential{
		Token:       code,
		ProviderURL: redirectURI,
	})
	if err != nil {
		c.writeExchangeError(w, log, err)
		return
	}

	metrics.RecordExchange(instagram.ProviderName, "ok")
	log.Info("exchange ok",
		logger.UID(result.UID),
		logger.ProviderUserID(result.Profile.ID),
		logger.Bool("created", result.Created),
	)

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, dto.MobileExchangeResponse{
		FirebaseToken: result.Token,
		DisplayName:   result.Profile.DisplayName,
		PhotoURL:      result.Profile.PhotoURL,
	})
}

func (c *InstagramController) writeExchangeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, msg := helpers.StatusForExchangeError(err)
	if status >= 500 {
		log.Error("exchange failed", logger.Err(err))
		metrics.RecordExchange(instagram.ProviderName, "error")
	} else {
		log.Warn("exchange rejected", logger.Err(err), logger.Status(status))
		metrics.RecordExchange(instagram.ProviderName, "rejected")
	}
	helpers.WriteError(w, status, msg)
}

func randomState() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		// rand.Read only fails if the OS entropy source is broken.
		panic(err)
	}
	return hex.EncodeToString(b)
}

// requestScheme derives the external scheme, honoring the proxy header.
func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// secureRequest reports whether the state cookie should be Secure. Plain
// localhost development is the only exception.
func secureRequest(r *http.Request) bool {
	return !strings.HasPrefix(r.Host, "localhost:") && r.Host != "localhost"
}
