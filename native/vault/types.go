package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/fixedpoint"
)

// CollateralPosition is one owner's collateralized debt position.
type CollateralPosition struct {
	Owner common.Address
	// Collateral is underlying the owner has deposited and not withdrawn or
	// had liquidated.
	Collateral *big.Int
	// Debt is claim tokens minted against the collateral and not yet repaid.
	Debt *big.Int
	// Credit is harvested yield earned beyond the outstanding debt. It is
	// consumed before new debt is taken on.
	Credit *big.Int
	// YieldCheckpoint is the yield index at the last touch.
	YieldCheckpoint *big.Int
}

func newPosition(owner common.Address, index *big.Int) *CollateralPosition {
	checkpoint := big.NewInt(0)
	if index != nil {
		checkpoint.Set(index)
	}
	return &CollateralPosition{
		Owner:           owner,
		Collateral:      big.NewInt(0),
		Debt:            big.NewInt(0),
		Credit:          big.NewInt(0),
		YieldCheckpoint: checkpoint,
	}
}

// Clone returns a deep copy of the position.
func (p *CollateralPosition) Clone() *CollateralPosition {
	if p == nil {
		return nil
	}
	return &CollateralPosition{
		Owner:           p.Owner,
		Collateral:      cloneInt(p.Collateral),
		Debt:            cloneInt(p.Debt),
		Credit:          cloneInt(p.Credit),
		YieldCheckpoint: cloneInt(p.YieldCheckpoint),
	}
}

// Adapter binds a registered yield strategy to the principal the facility
// has placed into it.
type Adapter struct {
	Index     uint64         `json:"index"`
	Address   common.Address `json:"address"`
	Asset     string         `json:"asset"`
	Principal *big.Int       `json:"principal"`
}

// Clone returns a deep copy of the adapter record.
func (a *Adapter) Clone() *Adapter {
	if a == nil {
		return nil
	}
	return &Adapter{
		Index:     a.Index,
		Address:   a.Address,
		Asset:     a.Asset,
		Principal: cloneInt(a.Principal),
	}
}

// Facility is the singleton facility state. Governance-tunable settings live
// here so they survive restarts alongside the totals they govern.
type Facility struct {
	Initialized   bool
	ActiveAdapter uint64
	AdapterCount  uint64
	EmergencyExit bool
	// TotalDeposited sums every position's Collateral and weights the
	// yield index.
	TotalDeposited *big.Int
	// YieldIndex distributes harvested yield across collateral.
	YieldIndex *fixedpoint.Accumulator

	Governance                common.Address
	Sentinel                  common.Address
	RewardsSink               common.Address
	CollateralizationLimitBps uint64
	HarvestFeeBps             uint64
	FlushActivator            *big.Int
}

// Clone returns a deep copy of the facility record.
func (f *Facility) Clone() *Facility {
	if f == nil {
		return nil
	}
	out := *f
	out.TotalDeposited = cloneInt(f.TotalDeposited)
	out.YieldIndex = f.YieldIndex.Clone()
	out.FlushActivator = cloneInt(f.FlushActivator)
	return &out
}

func newFacility(params Params) *Facility {
	return &Facility{
		TotalDeposited:            big.NewInt(0),
		YieldIndex:                fixedpoint.NewAccumulator(params.YieldScale),
		Governance:                params.Governance,
		Sentinel:                  params.Sentinel,
		RewardsSink:               params.RewardsSink,
		CollateralizationLimitBps: params.CollateralizationLimitBps,
		HarvestFeeBps:             params.HarvestFeeBps,
		FlushActivator:            cloneInt(params.FlushActivator),
	}
}

// PositionView is a read-only projection with pending yield applied.
type PositionView struct {
	Owner      common.Address `json:"owner"`
	Collateral *big.Int       `json:"collateral"`
	Debt       *big.Int       `json:"debt"`
	Credit     *big.Int       `json:"credit"`
}

// Summary reports facility-wide figures for inspection.
type Summary struct {
	Initialized               bool     `json:"initialized"`
	EmergencyExit             bool     `json:"emergencyExit"`
	ActiveAdapter             uint64   `json:"activeAdapter"`
	AdapterCount              uint64   `json:"adapterCount"`
	TotalDeposited            *big.Int `json:"totalDeposited"`
	IdleBalance               *big.Int `json:"idleBalance"`
	YieldIndex                *big.Int `json:"yieldIndex"`
	CollateralizationLimitBps uint64   `json:"collateralizationLimitBps"`
	HarvestFeeBps             uint64   `json:"harvestFeeBps"`
	FlushActivator            *big.Int `json:"flushActivator"`
}

// HarvestResult reports what a harvest realized.
type HarvestResult struct {
	Adapter     uint64   `json:"adapter"`
	Yield       *big.Int `json:"yield"`
	Fee         *big.Int `json:"fee"`
	Distributed *big.Int `json:"distributed"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
