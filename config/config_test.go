package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config file to be written: %v", err)
	}
	if cfg.RPCAddress == "" || cfg.DataDir == "" {
		t.Fatalf("default config incomplete: %+v", cfg)
	}
	if cfg.TokenSymbol != "FYTE" {
		t.Fatalf("expected default token symbol FYTE, got %q", cfg.TokenSymbol)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
RPCAddress = ":9000"
DataDir = "/tmp/market"
Env = "prod"
OwnerAddress = "0x00000000000000000000000000000000000000aa"
VaultAddress = "0x00000000000000000000000000000000000000ff"
TokenSymbol = "fyte"
RateLimitRPS = 5
RateLimitBurst = 10
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RPCAddress != ":9000" || cfg.Env != "prod" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	owner := cfg.Owner()
	if owner[19] != 0xaa {
		t.Fatalf("owner address not decoded: %x", owner)
	}
	vault := cfg.Vault()
	if vault[19] != 0xff {
		t.Fatalf("vault address not decoded: %x", vault)
	}
}

func TestLoadRejectsBadAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
RPCAddress = ":9000"
DataDir = "/tmp/market"
OwnerAddress = "not-an-address"
VaultAddress = "0x00000000000000000000000000000000000000ff"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected invalid owner address to be rejected")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		RPCAddress:     ":8546",
		DataDir:        "./data",
		OwnerAddress:   "0x00000000000000000000000000000000000000aa",
		VaultAddress:   "0x00000000000000000000000000000000000000ff",
		TokenSymbol:    "FYTE",
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cfg.RateLimitRPS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero rate limit to be rejected")
	}
}
