// Package controllers handles the HTTP surface of the token exchange.
package controllers

import (
	"net/http"

	"github.com/dropDatabas3/tokenbridge/internal/exchange"
	"github.com/dropDatabas3/tokenbridge/internal/http/dto"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

// VerifyTokenController handles POST /verifyToken for providers whose
// credential is a plain access token in a JSON body (LINE, Kakao).
// `?provider=` overrides the bound default, so one deployment can serve
// several token-in-body providers from the shared path.
type VerifyTokenController struct {
	service  *exchange.Service
	provider string
}

// NewVerifyTokenController creates a verify controller bound to one provider.
func NewVerifyTokenController(service *exchange.Service, providerName string) *VerifyTokenController {
	return &VerifyTokenController{service: service, provider: providerName}
}

// VerifyToken validates the provider access token and returns a custom token.
func (c *VerifyTokenController) VerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerName := c.provider
	if q := r.URL.Query().Get("provider"); q != "" {
		providerName = q
	}
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Provider(providerName))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		helpers.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.VerifyTokenRequest
	if !helpers.ReadJSON(w, r, &req) {
		metrics.RecordExchange(providerName, "rejected")
		return
	}

	result, err := c.service.Exchange(ctx, providerName, provider.Credential{Token: req.Token})
	if err != nil {
		status, msg := helpers.StatusForExchangeError(err)
		if status >= 500 {
			log.Error("exchange failed", logger.Err(err))
			metrics.RecordExchange(providerName, "error")
		} else {
			log.Warn("exchange rejected", logger.Err(err), logger.Status(status))
			metrics.RecordExchange(providerName, "rejected")
		}
		helpers.WriteError(w, status, msg)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	helpers.WriteJSON(w, http.StatusOK, dto.TokenResponse{FirebaseToken: result.Token})

	metrics.RecordExchange(providerName, "ok")
	log.Info("exchange ok",
		logger.UID(result.UID),
		logger.ProviderUserID(result.Profile.ID),
		logger.Bool("created", result.Created),
	)
}
