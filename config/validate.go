package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core"
	coreerr "synthvault/core/errors"
	"synthvault/crypto"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
)

func configErrorf(format string, args ...any) error {
	return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf(format, args...))
}

// GenesisBalance is a parsed [[genesis]] entry.
type GenesisBalance struct {
	Address common.Address
	Asset   string
	Amount  *big.Int
}

// Validate parses every address and amount and checks the engine
// parameters.
func (c *Config) Validate() error {
	if _, err := c.ExecutorConfig(); err != nil {
		return err
	}
	if _, err := c.GenesisBalances(); err != nil {
		return err
	}
	if _, err := c.InitialAdapter(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return configErrorf("storage: leveldb backend requires Path")
		}
	default:
		return configErrorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return configErrorf("telemetry: Endpoint required when enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return configErrorf("telemetry: SampleRatio must be within [0,1]")
	}
	return nil
}

// TransmuterParams converts the [transmuter] section.
func (c *Config) TransmuterParams() (transmuter.Params, error) {
	params := transmuter.DefaultParams()
	module, err := crypto.ParseAddress(c.Transmuter.ModuleAddress)
	if err != nil {
		return params, configErrorf("transmuter.ModuleAddress: %v", err)
	}
	gov, err := crypto.ParseAddress(c.Transmuter.Governance)
	if err != nil {
		return params, configErrorf("transmuter.Governance: %v", err)
	}
	fixed, err := parseUintAmount(c.Transmuter.IncentiveFixed)
	if err != nil {
		return params, configErrorf("transmuter.IncentiveFixed: %v", err)
	}
	params.ModuleAddress = module
	params.Governance = gov
	params.ClaimAsset = c.Token.Symbol
	params.UnderlyingAsset = c.Transmuter.UnderlyingAsset
	params.PeriodLength = c.Transmuter.PeriodLength
	params.IncentiveFixed = fixed
	params.IncentiveBps = c.Transmuter.IncentiveBps
	params.PageLimit = c.Transmuter.PageLimit
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

// VaultParams converts the [vault] section.
func (c *Config) VaultParams() (vault.Params, error) {
	params := vault.DefaultParams()
	module, err := crypto.ParseAddress(c.Vault.ModuleAddress)
	if err != nil {
		return params, configErrorf("vault.ModuleAddress: %v", err)
	}
	gov, err := crypto.ParseAddress(c.Vault.Governance)
	if err != nil {
		return params, configErrorf("vault.Governance: %v", err)
	}
	sentinel, err := parseOptionalAddress(c.Vault.Sentinel)
	if err != nil {
		return params, configErrorf("vault.Sentinel: %v", err)
	}
	rewards, err := parseOptionalAddress(c.Vault.RewardsSink)
	if err != nil {
		return params, configErrorf("vault.RewardsSink: %v", err)
	}
	activator, err := parseUintAmount(c.Vault.FlushActivator)
	if err != nil {
		return params, configErrorf("vault.FlushActivator: %v", err)
	}
	params.ModuleAddress = module
	params.Governance = gov
	params.Sentinel = sentinel
	params.RewardsSink = rewards
	params.UnderlyingAsset = c.Transmuter.UnderlyingAsset
	params.CollateralizationLimitBps = c.Vault.CollateralizationLimitBps
	params.HarvestFeeBps = c.Vault.HarvestFeeBps
	params.FlushActivator = activator
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

// Strategies converts the [assets] strategy list.
func (c *Config) Strategies() ([]core.StrategySpec, error) {
	out := make([]core.StrategySpec, 0, len(c.Assets.Strategies))
	seen := make(map[common.Address]struct{}, len(c.Assets.Strategies))
	for i, s := range c.Assets.Strategies {
		addr, err := crypto.ParseAddress(s.Address)
		if err != nil {
			return nil, configErrorf("assets.Strategies[%d].Address: %v", i, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, configErrorf("assets.Strategies[%d]: duplicate address %s", i, s.Address)
		}
		seen[addr] = struct{}{}
		entry := core.StrategySpec{Address: addr, Asset: strings.ToUpper(strings.TrimSpace(s.Asset))}
		if strings.TrimSpace(s.LiquidityLimit) != "" {
			limit, err := parseUintAmount(s.LiquidityLimit)
			if err != nil {
				return nil, configErrorf("assets.Strategies[%d].LiquidityLimit: %v", i, err)
			}
			entry.LiquidityLimit = limit
		}
		out = append(out, entry)
	}
	return out, nil
}

// ExecutorConfig assembles the engine wiring. The caller supplies the
// logger.
func (c *Config) ExecutorConfig() (core.Config, error) {
	var out core.Config
	tp, err := c.TransmuterParams()
	if err != nil {
		return out, err
	}
	vp, err := c.VaultParams()
	if err != nil {
		return out, err
	}
	admin, err := crypto.ParseAddress(c.Token.Admin)
	if err != nil {
		return out, configErrorf("token.Admin: %v", err)
	}
	strategies, err := c.Strategies()
	if err != nil {
		return out, err
	}
	return core.Config{Transmuter: tp, Vault: vp, TokenAdmin: admin, Strategies: strategies}, nil
}

// FacilityCeiling parses the claim issuance ceiling granted to the facility.
func (c *Config) FacilityCeiling() (*big.Int, error) {
	ceiling, err := parseUintAmount(c.Token.FacilityCeiling)
	if err != nil {
		return nil, configErrorf("token.FacilityCeiling: %v", err)
	}
	return ceiling, nil
}

// InitialAdapter returns the strategy the facility opens on, if configured.
func (c *Config) InitialAdapter() (common.Address, error) {
	addr, err := parseOptionalAddress(c.Vault.InitialAdapter)
	if err != nil {
		return addr, configErrorf("vault.InitialAdapter: %v", err)
	}
	return addr, nil
}

// DistributorWhitelist parses the addresses allowed to distribute.
func (c *Config) DistributorWhitelist() ([]common.Address, error) {
	out := make([]common.Address, 0, len(c.Transmuter.Whitelist))
	for i, raw := range c.Transmuter.Whitelist {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return nil, configErrorf("transmuter.Whitelist[%d]: %v", i, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// GenesisBalances parses the [[genesis]] entries.
func (c *Config) GenesisBalances() ([]GenesisBalance, error) {
	out := make([]GenesisBalance, 0, len(c.Genesis))
	for i, entry := range c.Genesis {
		addr, err := crypto.ParseAddress(entry.Address)
		if err != nil {
			return nil, configErrorf("genesis[%d].Address: %v", i, err)
		}
		amount, err := parseUintAmount(entry.Amount)
		if err != nil {
			return nil, configErrorf("genesis[%d].Amount: %v", i, err)
		}
		asset := strings.ToUpper(strings.TrimSpace(entry.Asset))
		if asset == "" {
			asset = c.Transmuter.UnderlyingAsset
		}
		out = append(out, GenesisBalance{Address: addr, Asset: asset, Amount: amount})
	}
	return out, nil
}
