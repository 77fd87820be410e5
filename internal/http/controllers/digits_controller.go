package controllers

import (
	"net/http"

	"github.com/dropDatabas3/tokenbridge/internal/exchange"
	"github.com/dropDatabas3/tokenbridge/internal/http/dto"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
	"github.com/dropDatabas3/tokenbridge/internal/provider/digits"
)

// Headers set by the Digits SDK OAuth echo.
const (
	headerAuthServiceProvider = "X-Auth-Service-Provider"
	headerVerifyCredentials   = "X-Verify-Credentials-Authorization"
)

// DigitsController handles POST /digits. The credential arrives as an OAuth
// echo: the provider API URL plus a signed Authorization header the server
// replays verbatim.
type DigitsController struct {
	service *exchange.Service
}

func NewDigitsController(service *exchange.Service) *DigitsController {
	return &DigitsController{service: service}
}

func (c *DigitsController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Provider(digits.ProviderName))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		helpers.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	apiURL := r.Header.Get(headerAuthServiceProvider)
	credentials := r.Header.Get(headerVerifyCredentials)
	if apiURL == "" || credentials == "" {
		metrics.RecordExchange(digits.ProviderName, "rejected")
		helpers.WriteError(w, http.StatusBadRequest, helpers.MsgMissingToken)
		return
	}

	cred := provider.Credential{Header: credentials, ProviderURL: apiURL}
	result, err := c.service.Exchange(ctx, digits.ProviderName, cred)
	if err != nil {
		status, msg := helpers.StatusForExchangeError(err)
		if status >= 500 {
			log.Error("exchange failed", logger.Err(err))
			metrics.RecordExchange(digits.ProviderName, "error")
		} else {
			log.Warn("exchange rejected", logger.Err(err), logger.Status(status))
			metrics.RecordExchange(digits.ProviderName, "rejected")
		}
		helpers.WriteError(w, status, msg)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	helpers.WriteJSON(w, http.StatusOK, dto.TokenResponse{FirebaseToken: result.Token})

	metrics.RecordExchange(digits.ProviderName, "ok")
	log.Info("exchange ok",
		logger.UID(result.UID),
		logger.ProviderUserID(result.Profile.ID),
		logger.Bool("created", result.Created),
	)
}
