// Package helpers holds the JSON plumbing shared by controllers and
// middleware.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/tokenbridge/internal/exchange"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

type apiError struct {
	ErrorMessage string `json:"error_message"`
}

// WriteError responde el error genérico del contrato. El motivo real del
// rechazo queda en el log del server, nunca en el body (evita que un atacante
// enumere qué chequeo falló).
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{ErrorMessage: msg})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica JSON de forma tolerante (NO falla por campos
// desconocidos). Valida Content-Type y limita el body a 32KB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 32<<10)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// Mensajes genéricos por clase de fallo; forman parte del contrato público.
const (
	MsgMissingToken = "Access Token not found"
	MsgAuthError    = "Authentication error: Cannot verify access token."
	MsgServerError  = "Internal error."
	MsgTimeout      = "Authentication provider timed out."
)

// StatusForExchangeError mapea la taxonomía del exchange a HTTP.
// 400 input faltante/malformado; 403 toda la clase de verificación
// (validación, audiencia, perfil, link no verificado); 504 timeout;
// 500 store/mint/resto.
func StatusForExchangeError(err error) (int, string) {
	switch {
	case errors.Is(err, exchange.ErrMissingCredential):
		return http.StatusBadRequest, MsgMissingToken
	case errors.Is(err, exchange.ErrUnknownProvider):
		return http.StatusNotFound, "Unknown provider."
	case errors.Is(err, provider.ErrAudienceMismatch),
		errors.Is(err, provider.ErrValidationFailed),
		errors.Is(err, provider.ErrProfileNotFound),
		errors.Is(err, exchange.ErrUnverifiedEmailLink):
		return http.StatusForbidden, MsgAuthError
	case errors.Is(err, exchange.ErrProviderTimeout):
		return http.StatusGatewayTimeout, MsgTimeout
	default:
		return http.StatusInternalServerError, MsgServerError
	}
}
