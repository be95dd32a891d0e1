package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/fixedpoint"
)

func (e *Engine) resolve(addr common.Address) (YieldStrategy, error) {
	if addr == (common.Address{}) {
		return nil, ErrZeroAdapter
	}
	if e.strategies == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredStrategy, addr.Hex())
	}
	strat, ok := e.strategies.Strategy(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredStrategy, addr.Hex())
	}
	if strat.Asset() != e.params.UnderlyingAsset {
		return nil, fmt.Errorf("%w: strategy holds %s, facility holds %s", ErrTokenMismatch, strat.Asset(), e.params.UnderlyingAsset)
	}
	return strat, nil
}

func (e *Engine) adapterAt(f *Facility, index uint64) (*Adapter, YieldStrategy, error) {
	if !f.Initialized || index >= f.AdapterCount {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownAdapter, index)
	}
	adapter, err := e.state.GetAdapter(index)
	if err != nil {
		return nil, nil, err
	}
	if adapter == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownAdapter, index)
	}
	if adapter.Principal == nil {
		adapter.Principal = big.NewInt(0)
	}
	strat, err := e.resolve(adapter.Address)
	if err != nil {
		return nil, nil, err
	}
	return adapter, strat, nil
}

// registered reports whether addr already backs an adapter. Adapters
// sharing an address would read each other's principal as yield.
func (e *Engine) registered(f *Facility, addr common.Address) (bool, error) {
	for i := uint64(0); i < f.AdapterCount; i++ {
		adapter, err := e.state.GetAdapter(i)
		if err != nil {
			return false, err
		}
		if adapter != nil && adapter.Address == addr {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) appendAdapter(f *Facility, strat YieldStrategy) (*Adapter, error) {
	adapter := &Adapter{
		Index:     f.AdapterCount,
		Address:   strat.Address(),
		Asset:     strat.Asset(),
		Principal: big.NewInt(0),
	}
	if err := e.state.PutAdapter(adapter); err != nil {
		return nil, err
	}
	f.AdapterCount++
	f.ActiveAdapter = adapter.Index
	return adapter, nil
}

// Initialize registers the first adapter and opens the facility for
// flushing.
func (e *Engine) Initialize(caller, adapterAddr common.Address) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	f, err := e.loadFacility()
	if err != nil {
		return err
	}
	if caller != f.Governance {
		return ErrNotGovernance
	}
	if f.Initialized {
		return ErrAlreadyInitialized
	}
	if f.RewardsSink == (common.Address{}) {
		return ErrZeroRewards
	}
	strat, err := e.resolve(adapterAddr)
	if err != nil {
		return err
	}
	f.Initialized = true
	adapter, err := e.appendAdapter(f, strat)
	if err != nil {
		return err
	}
	if err := e.state.PutFacility(f); err != nil {
		return err
	}
	e.emit(WrapEvent(adapterEvent(EventTypeMigrated, adapter, big.NewInt(0))))
	return nil
}

// Migrate appends a new adapter and makes it active. Principal left in the
// previous adapter stays there until recalled.
func (e *Engine) Migrate(caller, adapterAddr common.Address) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	f, err := e.loadFacility()
	if err != nil {
		return err
	}
	if caller != f.Governance {
		return ErrNotGovernance
	}
	if !f.Initialized {
		return ErrMigrationNotReady
	}
	strat, err := e.resolve(adapterAddr)
	if err != nil {
		return err
	}
	dup, err := e.registered(f, adapterAddr)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: %s", ErrAdapterRegistered, adapterAddr.Hex())
	}
	adapter, err := e.appendAdapter(f, strat)
	if err != nil {
		return err
	}
	if err := e.state.PutFacility(f); err != nil {
		return err
	}
	e.emit(WrapEvent(adapterEvent(EventTypeMigrated, adapter, big.NewInt(0))))
	return nil
}

// Flush moves all idle underlying into the active adapter.
func (e *Engine) Flush() (*big.Int, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	return e.flush(f)
}

func (e *Engine) flush(f *Facility) (*big.Int, error) {
	if !f.Initialized {
		return nil, ErrNotInitialized
	}
	if f.EmergencyExit {
		return nil, ErrEmergencyExit
	}
	adapter, strat, err := e.adapterAt(f, f.ActiveAdapter)
	if err != nil {
		return nil, err
	}
	amount, err := e.idle()
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	adapter.Principal.Add(adapter.Principal, amount)
	if err := e.state.PutAdapter(adapter); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(e.params.ModuleAddress, strat.Address(), e.params.UnderlyingAsset, amount); err != nil {
		return nil, err
	}
	if err := strat.Deposit(amount); err != nil {
		return nil, err
	}
	e.emit(WrapEvent(adapterEvent(EventTypeFlushed, adapter, amount)))
	return amount, nil
}

// gather assembles up to amount underlying at the module address, drawing
// on idle funds before the active adapter. It returns what is available.
func (e *Engine) gather(f *Facility, amount *big.Int) (*big.Int, error) {
	idle, err := e.idle()
	if err != nil {
		return nil, err
	}
	if idle.Cmp(amount) >= 0 || !f.Initialized {
		return fixedpoint.Min(idle, amount), nil
	}
	adapter, strat, err := e.adapterAt(f, f.ActiveAdapter)
	if err != nil {
		return nil, err
	}
	got, err := e.recall(adapter, strat, new(big.Int).Sub(amount, idle))
	if err != nil {
		return nil, err
	}
	return got.Add(got, idle), nil
}

func (e *Engine) recall(adapter *Adapter, strat YieldStrategy, amount *big.Int) (*big.Int, error) {
	if amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	got, err := strat.Withdraw(e.params.ModuleAddress, amount)
	if err != nil {
		return nil, err
	}
	adapter.Principal = fixedpoint.SubFloor(adapter.Principal, got)
	if err := e.state.PutAdapter(adapter); err != nil {
		return nil, err
	}
	return got, nil
}

// Harvest realizes an adapter's yield above its principal. A fee goes to
// the rewards sink, the rest is distributed and credited against debt in
// proportion to collateral.
func (e *Engine) Harvest(index uint64) (*HarvestResult, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	adapter, strat, err := e.adapterAt(f, index)
	if err != nil {
		return nil, err
	}
	res := &HarvestResult{Adapter: index, Yield: big.NewInt(0), Fee: big.NewInt(0), Distributed: big.NewInt(0)}
	value, err := strat.CurrentValue()
	if err != nil {
		return nil, err
	}
	yield := fixedpoint.SubFloor(value, adapter.Principal)
	if yield.Sign() == 0 {
		return res, nil
	}
	got, err := strat.Withdraw(e.params.ModuleAddress, yield)
	if err != nil {
		return nil, err
	}
	if got.Sign() == 0 {
		return res, nil
	}
	res.Yield = got
	res.Fee = fixedpoint.BpsOf(got, f.HarvestFeeBps)
	res.Distributed = new(big.Int).Sub(got, res.Fee)
	f.YieldIndex.Advance(res.Distributed, f.TotalDeposited)
	if err := e.state.PutFacility(f); err != nil {
		return nil, err
	}
	if res.Fee.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.ModuleAddress, f.RewardsSink, e.params.UnderlyingAsset, res.Fee); err != nil {
			return nil, err
		}
	}
	if res.Distributed.Sign() > 0 {
		if err := e.distributor.Distribute(e.params.ModuleAddress, e.params.ModuleAddress, res.Distributed); err != nil {
			return nil, err
		}
	}
	e.emit(WrapEvent(harvestedEvent(adapter, res)))
	return res, nil
}

// Recall pulls up to amount principal from an adapter back to idle.
func (e *Engine) Recall(caller common.Address, index uint64, amount *big.Int) (*big.Int, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return e.recallFrom(caller, index, func(a *Adapter) *big.Int {
		return fixedpoint.Min(amount, a.Principal)
	})
}

// RecallAll pulls an adapter's entire principal back to idle.
func (e *Engine) RecallAll(caller common.Address, index uint64) (*big.Int, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	return e.recallFrom(caller, index, func(a *Adapter) *big.Int {
		return new(big.Int).Set(a.Principal)
	})
}

func (e *Engine) recallFrom(caller common.Address, index uint64, size func(*Adapter) *big.Int) (*big.Int, error) {
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	if err := requireKeeper(f, caller); err != nil {
		return nil, err
	}
	adapter, strat, err := e.adapterAt(f, index)
	if err != nil {
		return nil, err
	}
	got, err := e.recall(adapter, strat, size(adapter))
	if err != nil {
		return nil, err
	}
	e.emit(WrapEvent(adapterEvent(EventTypeRecalled, adapter, got)))
	return got, nil
}
