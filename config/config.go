package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	DataDir        string `toml:"DataDir"`
	Env            string `toml:"Env"`
	OwnerAddress   string `toml:"OwnerAddress"`
	VaultAddress   string `toml:"VaultAddress"`
	TokenSymbol    string `toml:"TokenSymbol"`
	RateLimitRPS   int    `toml:"RateLimitRPS"`
	RateLimitBurst int    `toml:"RateLimitBurst"`
}

// Load loads the configuration from the given path, creating a commented
// default file when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if !common.IsHexAddress(c.OwnerAddress) {
		return fmt.Errorf("OwnerAddress %q is not a valid hex address", c.OwnerAddress)
	}
	if !common.IsHexAddress(c.VaultAddress) {
		return fmt.Errorf("VaultAddress %q is not a valid hex address", c.VaultAddress)
	}
	if strings.TrimSpace(c.TokenSymbol) == "" {
		return fmt.Errorf("TokenSymbol must not be empty")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

// Owner returns the configured owner as a raw address.
func (c *Config) Owner() [20]byte {
	return common.HexToAddress(c.OwnerAddress)
}

// Vault returns the configured settlement vault as a raw address.
func (c *Config) Vault() [20]byte {
	return common.HexToAddress(c.VaultAddress)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "local"
	}
	if strings.TrimSpace(cfg.TokenSymbol) == "" {
		cfg.TokenSymbol = "FYTE"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 20
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 40
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:     ":8546",
		DataDir:        "./market-data",
		Env:            "local",
		OwnerAddress:   common.Address{}.Hex(),
		VaultAddress:   common.Address{}.Hex(),
		TokenSymbol:    "FYTE",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
