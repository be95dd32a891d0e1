package core

import (
	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/state"
	"synthvault/native/claimtoken"
	"synthvault/native/strategy"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
)

type transmuterStateAdapter struct {
	manager *state.Manager
}

func (a transmuterStateAdapter) GetBuffer() (*transmuter.Buffer, error) {
	return a.manager.TransmuterGetBuffer()
}

func (a transmuterStateAdapter) PutBuffer(buf *transmuter.Buffer) error {
	return a.manager.TransmuterPutBuffer(buf)
}

func (a transmuterStateAdapter) GetPosition(addr common.Address) (*transmuter.StakePosition, error) {
	return a.manager.TransmuterGetPosition(addr)
}

func (a transmuterStateAdapter) PutPosition(pos *transmuter.StakePosition) error {
	return a.manager.TransmuterPutPosition(pos)
}

func (a transmuterStateAdapter) ParticipantCount() (uint64, error) {
	return a.manager.TransmuterParticipantCount()
}

func (a transmuterStateAdapter) ParticipantAt(index uint64) (common.Address, error) {
	return a.manager.TransmuterParticipantAt(index)
}

func (a transmuterStateAdapter) AppendParticipant(addr common.Address) error {
	return a.manager.TransmuterAppendParticipant(addr)
}

func (a transmuterStateAdapter) IsWhitelisted(addr common.Address) (bool, error) {
	return a.manager.TransmuterIsWhitelisted(addr)
}

func (a transmuterStateAdapter) SetWhitelisted(addr common.Address, allowed bool) error {
	return a.manager.TransmuterSetWhitelisted(addr, allowed)
}

type vaultStateAdapter struct {
	manager *state.Manager
}

func (a vaultStateAdapter) GetFacility() (*vault.Facility, error) {
	return a.manager.VaultGetFacility()
}

func (a vaultStateAdapter) PutFacility(f *vault.Facility) error {
	return a.manager.VaultPutFacility(f)
}

func (a vaultStateAdapter) GetPosition(owner common.Address) (*vault.CollateralPosition, error) {
	return a.manager.VaultGetPosition(owner)
}

func (a vaultStateAdapter) PutPosition(pos *vault.CollateralPosition) error {
	return a.manager.VaultPutPosition(pos)
}

func (a vaultStateAdapter) GetAdapter(index uint64) (*vault.Adapter, error) {
	return a.manager.VaultGetAdapter(index)
}

func (a vaultStateAdapter) PutAdapter(adapter *vault.Adapter) error {
	return a.manager.VaultPutAdapter(adapter)
}

type tokenStateAdapter struct {
	manager *state.Manager
}

func (a tokenStateAdapter) GetMinter(addr common.Address) (*claimtoken.MinterRecord, bool, error) {
	return a.manager.ClaimTokenGetMinter(addr)
}

func (a tokenStateAdapter) PutMinter(rec *claimtoken.MinterRecord) error {
	return a.manager.ClaimTokenPutMinter(rec)
}

type strategyResolver struct {
	registry *strategy.Registry
}

func (r strategyResolver) Strategy(addr common.Address) (vault.YieldStrategy, bool) {
	reserve, ok := r.registry.Reserve(addr)
	if !ok {
		return nil, false
	}
	return reserve, true
}
