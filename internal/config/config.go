package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	// Identity store (la "plataforma de identidad" donde viven los usuarios)
	Identity struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns int `yaml:"max_conns"`
		} `yaml:"postgres"`
	} `yaml:"identity"`

	// Custom token minting
	Token struct {
		Issuer string        `yaml:"issuer"`
		TTL    time.Duration `yaml:"ttl"`
		// base64(seed ed25519, 32 bytes). Override: TOKEN_SIGNING_SEED
		SigningSeed string `yaml:"signing_seed"`
	} `yaml:"token"`

	// Vault para side effects por usuario (access tokens, teléfono).
	// Si redis.addr está vacío, el vault queda deshabilitado.
	Vault struct {
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"vault"`

	// ───────── Social Login Providers ─────────
	Providers struct {
		Line struct {
			Enabled   bool   `yaml:"enabled"`
			ChannelID string `yaml:"channel_id"`
			APIBase   string `yaml:"api_base"` // default https://api.line.me
		} `yaml:"line"`

		Digits struct {
			Enabled     bool   `yaml:"enabled"`
			ConsumerKey string `yaml:"consumer_key"`
			// Hosts aceptados para X-Auth-Service-Provider
			AllowedHosts []string `yaml:"allowed_hosts"`
		} `yaml:"digits"`

		Instagram struct {
			Enabled      bool   `yaml:"enabled"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			APIBase      string `yaml:"api_base"` // default https://api.instagram.com
			// Para la página que firma al usuario en el callback web
			PlatformAPIKey string `yaml:"platform_api_key"`
		} `yaml:"instagram"`

		Kakao struct {
			Enabled bool   `yaml:"enabled"`
			AppID   int64  `yaml:"app_id"`
			APIBase string `yaml:"api_base"` // default https://kapi.kakao.com
		} `yaml:"kakao"`
	} `yaml:"providers"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, nil
}

// Default retorna una config sin YAML (solo defaults + env).
// Útil para tests y para correr con memory store sin archivo.
func Default() *Config {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Identity.Driver == "" {
		c.Identity.Driver = "memory"
	}
	if c.Identity.Postgres.MaxConns == 0 {
		c.Identity.Postgres.MaxConns = 10
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = "tokenbridge"
	}
	if c.Token.TTL == 0 {
		c.Token.TTL = time.Hour
	}
	if c.Vault.Redis.Prefix == "" {
		c.Vault.Redis.Prefix = "tb"
	}
	if c.Providers.Line.APIBase == "" {
		c.Providers.Line.APIBase = "https://api.line.me"
	}
	if len(c.Providers.Digits.AllowedHosts) == 0 {
		c.Providers.Digits.AllowedHosts = []string{"api.digits.com", "api.twitter.com"}
	}
	if c.Providers.Instagram.APIBase == "" {
		c.Providers.Instagram.APIBase = "https://api.instagram.com"
	}
	if c.Providers.Kakao.APIBase == "" {
		c.Providers.Kakao.APIBase = "https://kapi.kakao.com"
	}
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PORT"); ok { // estilo App Engine: solo el puerto
		c.Server.Addr = ":" + v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	if v, ok := getEnvStr("IDENTITY_DRIVER"); ok {
		c.Identity.Driver = v
	}
	if v, ok := getEnvStr("IDENTITY_DSN"); ok {
		c.Identity.DSN = v
	}

	if v, ok := getEnvStr("TOKEN_ISSUER"); ok {
		c.Token.Issuer = v
	}
	if v, ok := getEnvDur("TOKEN_TTL"); ok {
		c.Token.TTL = v
	}
	if v, ok := getEnvStr("TOKEN_SIGNING_SEED"); ok {
		c.Token.SigningSeed = v
	}

	if v, ok := getEnvStr("VAULT_REDIS_ADDR"); ok {
		c.Vault.Redis.Addr = v
	}
	if v, ok := getEnvInt("VAULT_REDIS_DB"); ok {
		c.Vault.Redis.DB = v
	}

	if v, ok := getEnvStr("LINE_CHANNEL_ID"); ok {
		c.Providers.Line.Enabled = true
		c.Providers.Line.ChannelID = v
	}
	if v, ok := getEnvStr("DIGITS_CONSUMER_KEY"); ok {
		c.Providers.Digits.Enabled = true
		c.Providers.Digits.ConsumerKey = v
	}
	if v, ok := getEnvStr("INSTAGRAM_CLIENT_ID"); ok {
		c.Providers.Instagram.Enabled = true
		c.Providers.Instagram.ClientID = v
	}
	if v, ok := getEnvStr("INSTAGRAM_CLIENT_SECRET"); ok {
		c.Providers.Instagram.ClientSecret = v
	}
	if v, ok := getEnvInt("KAKAO_APP_ID"); ok {
		c.Providers.Kakao.Enabled = true
		c.Providers.Kakao.AppID = int64(v)
	}
}

// Validate chequea lo mínimo para poder arrancar.
func (c *Config) Validate() error {
	if c.Token.SigningSeed == "" {
		return fmt.Errorf("token.signing_seed vacío (o TOKEN_SIGNING_SEED); genere una con: tokenbridge keygen")
	}
	switch c.Identity.Driver {
	case "memory":
	case "postgres":
		if c.Identity.DSN == "" {
			return fmt.Errorf("identity.dsn requerido para driver postgres")
		}
	default:
		return fmt.Errorf("identity.driver desconocido: %q", c.Identity.Driver)
	}
	if !c.Providers.Line.Enabled && !c.Providers.Digits.Enabled &&
		!c.Providers.Instagram.Enabled && !c.Providers.Kakao.Enabled {
		return fmt.Errorf("ningún provider habilitado")
	}
	return nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
