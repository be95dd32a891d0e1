package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position reports the owner's position with harvested yield applied.
func (e *Engine) Position(owner common.Address) (*PositionView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(f, owner)
	if err != nil {
		return nil, err
	}
	applyYield(f, pos)
	return &PositionView{
		Owner:      owner,
		Collateral: pos.Collateral,
		Debt:       pos.Debt,
		Credit:     pos.Credit,
	}, nil
}

// AdapterCount returns how many adapters have ever been registered.
func (e *Engine) AdapterCount() (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	f, err := e.loadFacility()
	if err != nil {
		return 0, err
	}
	return f.AdapterCount, nil
}

// Adapter returns the adapter registered at index.
func (e *Engine) Adapter(index uint64) (*Adapter, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	adapter, _, err := e.adapterAt(f, index)
	return adapter, err
}

// ActiveAdapter returns the adapter new flushes go to.
func (e *Engine) ActiveAdapter() (*Adapter, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	if !f.Initialized {
		return nil, ErrNotInitialized
	}
	adapter, _, err := e.adapterAt(f, f.ActiveAdapter)
	return adapter, err
}

// IdleBalance returns underlying held by the facility but not deployed.
func (e *Engine) IdleBalance() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.idle()
}

// Summary reports facility-wide figures.
func (e *Engine) Summary() (*Summary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	idle, err := e.idle()
	if err != nil {
		return nil, err
	}
	return &Summary{
		Initialized:               f.Initialized,
		EmergencyExit:             f.EmergencyExit,
		ActiveAdapter:             f.ActiveAdapter,
		AdapterCount:              f.AdapterCount,
		TotalDeposited:            f.TotalDeposited,
		IdleBalance:               idle,
		YieldIndex:                new(big.Int).Set(f.YieldIndex.Index),
		CollateralizationLimitBps: f.CollateralizationLimitBps,
		HarvestFeeBps:             f.HarvestFeeBps,
		FlushActivator:            f.FlushActivator,
	}, nil
}

// Governance returns the current governance address.
func (e *Engine) Governance() (common.Address, error) {
	if err := e.ready(); err != nil {
		return common.Address{}, err
	}
	f, err := e.loadFacility()
	if err != nil {
		return common.Address{}, err
	}
	return f.Governance, nil
}
