package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestDefault_AppliesDefaults(t *testing.T) {
	c := Default()
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr default: %q", c.Server.Addr)
	}
	if c.Identity.Driver != "memory" {
		t.Fatalf("driver default: %q", c.Identity.Driver)
	}
	if c.Token.TTL != time.Hour {
		t.Fatalf("ttl default: %v", c.Token.TTL)
	}
	if c.Providers.Line.APIBase != "https://api.line.me" {
		t.Fatalf("line api base: %q", c.Providers.Line.APIBase)
	}
	if len(c.Providers.Digits.AllowedHosts) != 2 {
		t.Fatalf("digits hosts default: %v", c.Providers.Digits.AllowedHosts)
	}
}

func TestLoad_YAML(t *testing.T) {
	p := writeYAML(t, `
app:
  env: prod
  log_level: warn
server:
  addr: ":9000"
identity:
  driver: postgres
  dsn: postgres://u:p@localhost/db
token:
  issuer: bridge-prod
  ttl: 30m
  signing_seed: seEd
providers:
  kakao:
    enabled: true
    app_id: 12345
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.App.Env != "prod" || c.Server.Addr != ":9000" {
		t.Fatalf("yaml not applied: %+v", c)
	}
	if c.Token.TTL != 30*time.Minute {
		t.Fatalf("ttl: %v", c.Token.TTL)
	}
	if !c.Providers.Kakao.Enabled || c.Providers.Kakao.AppID != 12345 {
		t.Fatalf("kakao: %+v", c.Providers.Kakao)
	}
	// Defaults siguen aplicando sobre lo no seteado.
	if c.Providers.Kakao.APIBase != "https://kapi.kakao.com" {
		t.Fatalf("kakao api base: %q", c.Providers.Kakao.APIBase)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9000"
providers:
  line:
    enabled: true
    channel_id: "111"
`)
	t.Setenv("PORT", "7777")
	t.Setenv("LINE_CHANNEL_ID", "1462202585")
	t.Setenv("KAKAO_APP_ID", "999")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":7777" {
		t.Fatalf("PORT override: %q", c.Server.Addr)
	}
	if c.Providers.Line.ChannelID != "1462202585" {
		t.Fatalf("channel override: %q", c.Providers.Line.ChannelID)
	}
	if !c.Providers.Kakao.Enabled || c.Providers.Kakao.AppID != 999 {
		t.Fatalf("env must enable kakao: %+v", c.Providers.Kakao)
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	if err := c.Validate(); err == nil {
		t.Fatal("expected error without signing seed")
	}

	c.Token.SigningSeed = "seed"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error with no providers enabled")
	}

	c.Providers.Line.Enabled = true
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	c.Identity.Driver = "postgres"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
	c.Identity.DSN = "postgres://u:p@localhost/db"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	c.Identity.Driver = "oracle"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
