package transmuter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
	"synthvault/native/fixedpoint"
)

const (
	// DefaultPeriodLength matches one week of 15 second blocks.
	DefaultPeriodLength uint64 = 40_320
	// DefaultIncentiveBps rewards a forced settlement with 1% of the
	// settled amount.
	DefaultIncentiveBps uint64 = 100
	// DefaultPageLimit bounds Positions windows.
	DefaultPageLimit = 100
)

// Params configures the distributor.
type Params struct {
	ModuleAddress   common.Address
	Governance      common.Address
	ClaimAsset      string
	UnderlyingAsset string
	PeriodLength    uint64
	// Scale is the accumulator precision.
	Scale *big.Int
	// IncentiveFixed and IncentiveBps define the forced settlement reward:
	// min(settled, IncentiveFixed + settled*IncentiveBps/10_000).
	IncentiveFixed *big.Int
	IncentiveBps   uint64
	PageLimit      int
}

// DefaultParams returns the baseline configuration.
func DefaultParams() Params {
	return Params{
		ClaimAsset:      "SYN",
		UnderlyingAsset: "WBTC",
		PeriodLength:    DefaultPeriodLength,
		Scale:           new(big.Int).Set(fixedpoint.DefaultScale),
		IncentiveFixed:  big.NewInt(0),
		IncentiveBps:    DefaultIncentiveBps,
		PageLimit:       DefaultPageLimit,
	}
}

// Validate rejects unusable parameters.
func (p Params) Validate() error {
	if p.ModuleAddress == (common.Address{}) {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("transmuter: module address required"))
	}
	if p.Governance == (common.Address{}) {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("transmuter: governance address required"))
	}
	if strings.TrimSpace(p.ClaimAsset) == "" || strings.TrimSpace(p.UnderlyingAsset) == "" {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("transmuter: asset symbols required"))
	}
	if p.PeriodLength == 0 {
		return ErrInvalidPeriod
	}
	if p.Scale == nil || p.Scale.Sign() <= 0 {
		return coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("transmuter: accumulator scale must be positive"))
	}
	if p.IncentiveFixed != nil && p.IncentiveFixed.Sign() < 0 {
		return ErrInvalidIncentive
	}
	if p.IncentiveBps > fixedpoint.BasisPoints {
		return ErrInvalidIncentive
	}
	return nil
}
