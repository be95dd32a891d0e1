package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/claimtoken"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
)

// Read-only accessors used by the inspection server and the simulator.
// Each takes the executor lock so reads never observe a half-applied
// transaction.

func (x *Executor) StakePosition(addr common.Address) (*transmuter.PositionView, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.transmuter.Position(addr)
}

func (x *Executor) StakePositions(offset, limit uint64) ([]*transmuter.PositionView, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.transmuter.Positions(offset, limit)
}

func (x *Executor) Buffer() (*transmuter.BufferInfo, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.transmuter.BufferInfo()
}

func (x *Executor) RedeemableCapacity(origin common.Address) (*big.Int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.transmuter.RedeemableCapacity(origin)
}

func (x *Executor) CollateralPosition(owner common.Address) (*vault.PositionView, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.vault.Position(owner)
}

func (x *Executor) Facility() (*vault.Summary, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.vault.Summary()
}

// Adapters lists every registered adapter in index order.
func (x *Executor) Adapters() ([]*vault.Adapter, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	count, err := x.vault.AdapterCount()
	if err != nil {
		return nil, err
	}
	out := make([]*vault.Adapter, 0, count)
	for i := uint64(0); i < count; i++ {
		adapter, err := x.vault.Adapter(i)
		if err != nil {
			return nil, err
		}
		out = append(out, adapter)
	}
	return out, nil
}

func (x *Executor) Balance(addr common.Address, asset string) (*big.Int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ledger.Balance(addr, asset)
}

func (x *Executor) Minter(addr common.Address) (*claimtoken.MinterRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.token.Minter(addr)
}

// Addresses of the engines' custody accounts and the claim token symbol.
func (x *Executor) DistributorAddress() common.Address { return x.transmuter.ModuleAddress() }

func (x *Executor) FacilityAddress() common.Address { return x.vault.ModuleAddress() }

func (x *Executor) ClaimSymbol() string { return x.token.Symbol() }

func (x *Executor) UnderlyingSymbol() string { return x.transmuter.Params().UnderlyingAsset }
