package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tokenbridge/internal/config"
	"github.com/dropDatabas3/tokenbridge/internal/exchange"
	httpx "github.com/dropDatabas3/tokenbridge/internal/http"
	"github.com/dropDatabas3/tokenbridge/internal/http/controllers"
	"github.com/dropDatabas3/tokenbridge/internal/identity"
	memstore "github.com/dropDatabas3/tokenbridge/internal/identity/memory"
	pgstore "github.com/dropDatabas3/tokenbridge/internal/identity/pg"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/provider"
	"github.com/dropDatabas3/tokenbridge/internal/provider/digits"
	"github.com/dropDatabas3/tokenbridge/internal/provider/instagram"
	"github.com/dropDatabas3/tokenbridge/internal/provider/kakao"
	"github.com/dropDatabas3/tokenbridge/internal/provider/line"
	"github.com/dropDatabas3/tokenbridge/internal/security/secretbox"
	"github.com/dropDatabas3/tokenbridge/internal/token"
	"github.com/dropDatabas3/tokenbridge/internal/vault"
)

func main() {
	// .env local si existe; en producción las vars vienen del entorno.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:          "tokenbridge",
		Short:        "Puente de social login: token de provider -> custom token firmado",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "ruta a config.yaml (default: env CONFIG_PATH o solo env)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath)
		},
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera una seed de firma (TOKEN_SIGNING_SEED) y una master key de secretbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := token.GenerateSeed()
			if err != nil {
				return err
			}
			mk, err := secretbox.GenerateMasterKey()
			if err != nil {
				return err
			}
			fmt.Printf("TOKEN_SIGNING_SEED=%s\n", seed)
			fmt.Printf("SECRETBOX_MASTER_KEY=%s\n", mk)
			return nil
		},
	}

	root.AddCommand(serveCmd, keygenCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func serve(cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Identity store
	var store identity.Store
	var storeCheck controllers.CheckFunc
	switch cfg.Identity.Driver {
	case "postgres":
		pg, err := pgstore.New(ctx, cfg.Identity.DSN, cfg.Identity.Postgres.MaxConns)
		if err != nil {
			return fmt.Errorf("identity store: %w", err)
		}
		defer pg.Close()
		store = pg
		storeCheck = pg.Ping
	default:
		store = memstore.New()
	}

	// Vault (side effects: access tokens, teléfonos)
	var v vault.Vault = vault.Noop{}
	var vaultCheck controllers.CheckFunc
	if cfg.Vault.Redis.Addr != "" {
		r := vault.NewRedis(cfg.Vault.Redis.Addr, cfg.Vault.Redis.DB, cfg.Vault.Redis.Prefix)
		defer func() { _ = r.Close() }()
		v = r
		vaultCheck = r.Ping
		if err := secretbox.EnsureLoaded(); err != nil {
			return fmt.Errorf("vault redis habilitado: %w", err)
		}
	}

	// Providers habilitados
	registry := provider.NewRegistry()
	var verifyProviders []string
	var igVerifier *instagram.Verifier

	if cfg.Providers.Line.Enabled {
		registry.Register(line.New(cfg.Providers.Line.ChannelID, cfg.Providers.Line.APIBase))
		verifyProviders = append(verifyProviders, line.ProviderName)
	}
	if cfg.Providers.Kakao.Enabled {
		registry.Register(kakao.New(cfg.Providers.Kakao.AppID, cfg.Providers.Kakao.APIBase))
		verifyProviders = append(verifyProviders, kakao.ProviderName)
	}
	if cfg.Providers.Digits.Enabled {
		registry.Register(digits.New(cfg.Providers.Digits.ConsumerKey, cfg.Providers.Digits.AllowedHosts))
	}
	if cfg.Providers.Instagram.Enabled {
		igVerifier = instagram.New(
			cfg.Providers.Instagram.ClientID,
			cfg.Providers.Instagram.ClientSecret,
			cfg.Providers.Instagram.APIBase,
		)
		registry.Register(igVerifier)
	}

	issuer, err := token.NewIssuer(cfg.Token.Issuer, cfg.Token.SigningSeed, cfg.Token.TTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	service := exchange.New(registry, store, issuer, v)

	handler, err := httpx.NewRouter(httpx.RouterDeps{
		Service:            service,
		Registry:           registry,
		Instagram:          igVerifier,
		PlatformAPIKey:     cfg.Providers.Instagram.PlatformAPIKey,
		VerifyProviders:    verifyProviders,
		DigitsEnabled:      cfg.Providers.Digits.Enabled,
		StoreCheck:         storeCheck,
		VaultCheck:         vaultCheck,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	log.Info("tokenbridge arrancando",
		logger.String("addr", cfg.Server.Addr),
		logger.String("identity_driver", cfg.Identity.Driver),
		logger.Any("providers", registry.Names()),
	)
	return httpx.Serve(ctx, cfg.Server.Addr, handler)
}
