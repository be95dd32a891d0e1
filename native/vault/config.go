package vault

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
	"synthvault/native/fixedpoint"
)

const (
	// MinimumCollateralizationBps is a 100% collateralization floor.
	MinimumCollateralizationBps uint64 = 10_000
	// MaximumCollateralizationBps is a 300% collateralization ceiling.
	MaximumCollateralizationBps uint64 = 30_000
	// DefaultCollateralizationBps requires twice the debt in collateral.
	DefaultCollateralizationBps uint64 = 20_000
	// DefaultHarvestFeeBps routes 10% of harvested yield to rewards.
	DefaultHarvestFeeBps uint64 = 1_000
)

var (
	// DefaultFlushActivator is 100,000 units of an 8-decimal asset.
	DefaultFlushActivator = new(big.Int).Mul(big.NewInt(100_000), big.NewInt(100_000_000))
	// DefaultYieldScale is the yield index precision.
	DefaultYieldScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Params seeds the facility. Governance-tunable fields only apply until the
// facility record is first written; afterwards the stored values win.
type Params struct {
	ModuleAddress             common.Address
	Governance                common.Address
	Sentinel                  common.Address
	RewardsSink               common.Address
	UnderlyingAsset           string
	CollateralizationLimitBps uint64
	HarvestFeeBps             uint64
	FlushActivator            *big.Int
	YieldScale                *big.Int
}

// DefaultParams returns the baseline configuration.
func DefaultParams() Params {
	return Params{
		UnderlyingAsset:           "WBTC",
		CollateralizationLimitBps: DefaultCollateralizationBps,
		HarvestFeeBps:             DefaultHarvestFeeBps,
		FlushActivator:            new(big.Int).Set(DefaultFlushActivator),
		YieldScale:                new(big.Int).Set(DefaultYieldScale),
	}
}

// Validate rejects unusable parameters.
func (p Params) Validate() error {
	if p.ModuleAddress == (common.Address{}) {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("vault: module address required"))
	}
	if p.Governance == (common.Address{}) {
		return ErrZeroGovernance
	}
	if strings.TrimSpace(p.UnderlyingAsset) == "" {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("vault: underlying asset required"))
	}
	if err := checkLimit(p.CollateralizationLimitBps); err != nil {
		return err
	}
	if p.HarvestFeeBps > fixedpoint.BasisPoints {
		return ErrHarvestFeeTooHigh
	}
	if p.FlushActivator != nil && p.FlushActivator.Sign() < 0 {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("vault: flush activator must not be negative"))
	}
	if p.YieldScale != nil && p.YieldScale.Sign() <= 0 {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("vault: yield scale must be positive"))
	}
	return nil
}

func checkLimit(bps uint64) error {
	if bps < MinimumCollateralizationBps {
		return ErrLimitBelowMinimum
	}
	if bps > MaximumCollateralizationBps {
		return ErrLimitAboveMaximum
	}
	return nil
}
