// Package http arma el router y el server del exchange.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/tokenbridge/internal/exchange"
	"github.com/dropDatabas3/tokenbridge/internal/http/controllers"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
	"github.com/dropDatabas3/tokenbridge/internal/provider/instagram"
)

// RouterDeps contiene las dependencias del router.
type RouterDeps struct {
	Service  *exchange.Service
	Registry *provider.Registry

	// Instagram es opcional: si el deployment no lo habilita, sus rutas no
	// se registran.
	Instagram       *instagram.Verifier
	PlatformAPIKey  string
	VerifyProviders []string // providers servidos por POST /verifyToken

	DigitsEnabled bool

	StoreCheck controllers.CheckFunc
	VaultCheck controllers.CheckFunc

	CORSAllowedOrigins []string

	MetricsRegisterer prometheus.Registerer
}

// NewRouter registra todas las rutas y middlewares.
func NewRouter(deps RouterDeps) (http.Handler, error) {
	metricsHandler, err := metrics.Register(deps.MetricsRegisterer)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(WithRecover)
	r.Use(WithRequestID)
	r.Use(WithSecurityHeaders)
	r.Use(WithCORS(deps.CORSAllowedOrigins))
	r.Use(metrics.WithHTTP)
	r.Use(WithLogging)

	system := controllers.NewSystemController(deps.Registry, deps.StoreCheck, deps.VaultCheck)
	r.Get("/", system.Root)
	r.Get("/healthz", system.Healthz)
	r.Get("/providers", system.Providers)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// POST /verifyToken atiende al primer provider habilitado (o al que pida
	// ?provider=); cada provider de token-en-body expone además su alias
	// /<provider>/verifyToken.
	if len(deps.VerifyProviders) > 0 {
		primary := controllers.NewVerifyTokenController(deps.Service, deps.VerifyProviders[0])
		r.Post("/verifyToken", primary.VerifyToken)
		for _, name := range deps.VerifyProviders {
			c := controllers.NewVerifyTokenController(deps.Service, name)
			r.Post("/"+name+"/verifyToken", c.VerifyToken)
		}
	}

	if deps.DigitsEnabled {
		digits := controllers.NewDigitsController(deps.Service)
		r.Post("/digits", digits.Verify)
	}

	if deps.Instagram != nil {
		ig := controllers.NewInstagramController(deps.Service, deps.Instagram, deps.PlatformAPIKey)
		r.Get("/redirect", ig.Redirect)
		r.Get("/instagram-callback", ig.Callback)
		r.Get("/instagram-mobile-redirect", ig.MobileRedirect)
		r.Get("/instagram-mobile-exchange-code", ig.MobileExchange)
	}

	logger.L().Info("router listo",
		logger.Int("providers", len(deps.Registry.Names())),
		logger.Bool("instagram", deps.Instagram != nil),
	)
	return r, nil
}
