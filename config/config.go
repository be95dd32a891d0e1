package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"synthvault/crypto"
)

const (
	BackendMemory  = "memdb"
	BackendLevelDB = "leveldb"
)

type Config struct {
	ServiceName string `toml:"ServiceName"`
	HTTPAddress string `toml:"HTTPAddress"`

	Transmuter Transmuter `toml:"transmuter"`
	Vault      Vault      `toml:"vault"`
	Token      Token      `toml:"token"`
	Assets     Assets     `toml:"assets"`
	Storage    Storage    `toml:"storage"`
	Logging    Logging    `toml:"logging"`
	Telemetry  Telemetry  `toml:"telemetry"`
	Genesis    []Balance  `toml:"genesis"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a freshly written default.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, configErrorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults(&meta)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a local single-process configuration. Module and role
// addresses are derived from fixed labels.
func Default() *Config {
	gov := crypto.FromCommon(crypto.ModuleAddress("governance")).String()
	cfg := &Config{
		Transmuter: Transmuter{
			ModuleAddress: crypto.FromCommon(crypto.ModuleAddress("transmuter")).String(),
			Governance:    gov,
		},
		Vault: Vault{
			ModuleAddress: crypto.FromCommon(crypto.ModuleAddress("vault")).String(),
			Governance:    gov,
			RewardsSink:   crypto.FromCommon(crypto.ModuleAddress("rewards")).String(),
		},
		Token: Token{
			Admin: gov,
		},
		Assets: Assets{Strategies: []Strategy{{
			Address: crypto.FromCommon(crypto.ModuleAddress("reserve")).String(),
		}}},
	}
	cfg.applyDefaults(nil)
	return cfg
}

// applyDefaults fills settings left out of the file. Numeric settings where
// zero is meaningful keep an explicit zero; meta is nil for a built config.
func (c *Config) applyDefaults(meta *toml.MetaData) {
	omitted := func(key ...string) bool {
		return meta == nil || !meta.IsDefined(key...)
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = "synthvault"
	}
	if strings.TrimSpace(c.Transmuter.UnderlyingAsset) == "" {
		c.Transmuter.UnderlyingAsset = "WBTC"
	}
	c.Transmuter.UnderlyingAsset = strings.ToUpper(strings.TrimSpace(c.Transmuter.UnderlyingAsset))
	if c.Transmuter.PeriodLength == 0 && omitted("transmuter", "PeriodLength") {
		c.Transmuter.PeriodLength = 40_320
	}
	if c.Transmuter.IncentiveFixed == "" {
		c.Transmuter.IncentiveFixed = "0"
	}
	if c.Transmuter.IncentiveBps == 0 && omitted("transmuter", "IncentiveBps") {
		c.Transmuter.IncentiveBps = 100
	}
	if c.Transmuter.PageLimit == 0 {
		c.Transmuter.PageLimit = 100
	}
	if c.Vault.CollateralizationLimitBps == 0 && omitted("vault", "CollateralizationLimitBps") {
		c.Vault.CollateralizationLimitBps = 20_000
	}
	if c.Vault.HarvestFeeBps == 0 && omitted("vault", "HarvestFeeBps") {
		c.Vault.HarvestFeeBps = 1_000
	}
	if c.Vault.FlushActivator == "" {
		c.Vault.FlushActivator = "10000000000000"
	}
	if strings.TrimSpace(c.Token.Symbol) == "" {
		c.Token.Symbol = "SYN"
	}
	c.Token.Symbol = strings.ToUpper(strings.TrimSpace(c.Token.Symbol))
	if c.Token.FacilityCeiling == "" {
		c.Token.FacilityCeiling = "2100000000000000"
	}
	for i := range c.Assets.Strategies {
		if strings.TrimSpace(c.Assets.Strategies[i].Asset) == "" {
			c.Assets.Strategies[i].Asset = c.Transmuter.UnderlyingAsset
		}
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Telemetry.SampleRatio == 0 && omitted("telemetry", "SampleRatio") {
		c.Telemetry.SampleRatio = 1
	}
	if c.Telemetry.MetricsInterval == 0 {
		c.Telemetry.MetricsInterval = 15
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}

// parseOptionalAddress returns the zero address for an empty string.
func parseOptionalAddress(raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, nil
	}
	return crypto.ParseAddress(raw)
}
