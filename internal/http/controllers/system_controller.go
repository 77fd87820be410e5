package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/http/dto"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
)

// CheckFunc pings one backing component.
type CheckFunc func(ctx context.Context) error

// SystemController handles the liveness root, the readiness probe and the
// provider listing.
type SystemController struct {
	registry   *provider.Registry
	storeCheck CheckFunc
	vaultCheck CheckFunc
}

func NewSystemController(registry *provider.Registry, storeCheck, vaultCheck CheckFunc) *SystemController {
	return &SystemController{registry: registry, storeCheck: storeCheck, vaultCheck: vaultCheck}
}

// Root maneja GET /: liveness plano, sin tocar backends.
func (c *SystemController) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server is up and running!"))
}

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// Healthz maneja GET /healthz: readiness con ping a los backends.
func (c *SystemController) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SystemController.Healthz"))

	resp := healthResponse{Status: "ready", Components: map[string]componentStatus{}}
	for name, check := range map[string]CheckFunc{"identity": c.storeCheck, "vault": c.vaultCheck} {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Components[name] = componentStatus{Status: "down", Error: err.Error()}
			continue
		}
		resp.Components[name] = componentStatus{Status: "up"}
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	log.Debug("health check completed", logger.String("status", resp.Status))
	helpers.WriteJSON(w, status, resp)
}

// Providers maneja GET /providers: lista los providers habilitados.
func (c *SystemController) Providers(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.ProvidersResponse{Providers: c.registry.Names()})
}
