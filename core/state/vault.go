package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/fixedpoint"
	"synthvault/native/vault"
)

type storedFacility struct {
	Initialized               bool
	ActiveAdapter             uint64
	AdapterCount              uint64
	EmergencyExit             bool
	TotalDeposited            *big.Int
	Index                     *big.Int
	Carry                     *big.Int
	Scale                     *big.Int
	Governance                [20]byte
	Sentinel                  [20]byte
	RewardsSink               [20]byte
	CollateralizationLimitBps uint64
	HarvestFeeBps             uint64
	FlushActivator            *big.Int
}

type storedCollateral struct {
	Owner           [20]byte
	Collateral      *big.Int
	Debt            *big.Int
	Credit          *big.Int
	YieldCheckpoint *big.Int
}

type storedAdapter struct {
	Index     uint64
	Address   [20]byte
	Asset     string
	Principal *big.Int
}

// VaultGetFacility loads the facility record, or nil before first use.
func (m *Manager) VaultGetFacility() (*vault.Facility, error) {
	var stored storedFacility
	ok, err := m.KVGet(vaultFacilityKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &vault.Facility{
		Initialized:    stored.Initialized,
		ActiveAdapter:  stored.ActiveAdapter,
		AdapterCount:   stored.AdapterCount,
		EmergencyExit:  stored.EmergencyExit,
		TotalDeposited: cloneInt(stored.TotalDeposited),
		YieldIndex: &fixedpoint.Accumulator{
			Index: cloneInt(stored.Index),
			Carry: cloneInt(stored.Carry),
			Scale: cloneInt(stored.Scale),
		},
		Governance:                common.Address(stored.Governance),
		Sentinel:                  common.Address(stored.Sentinel),
		RewardsSink:               common.Address(stored.RewardsSink),
		CollateralizationLimitBps: stored.CollateralizationLimitBps,
		HarvestFeeBps:             stored.HarvestFeeBps,
		FlushActivator:            cloneInt(stored.FlushActivator),
	}, nil
}

// VaultPutFacility stores the facility record.
func (m *Manager) VaultPutFacility(f *vault.Facility) error {
	acc := f.YieldIndex
	if acc == nil {
		acc = fixedpoint.NewAccumulator(nil)
	}
	return m.KVPut(vaultFacilityKey, &storedFacility{
		Initialized:               f.Initialized,
		ActiveAdapter:             f.ActiveAdapter,
		AdapterCount:              f.AdapterCount,
		EmergencyExit:             f.EmergencyExit,
		TotalDeposited:            cloneInt(f.TotalDeposited),
		Index:                     cloneInt(acc.Index),
		Carry:                     cloneInt(acc.Carry),
		Scale:                     cloneInt(acc.Scale),
		Governance:                f.Governance,
		Sentinel:                  f.Sentinel,
		RewardsSink:               f.RewardsSink,
		CollateralizationLimitBps: f.CollateralizationLimitBps,
		HarvestFeeBps:             f.HarvestFeeBps,
		FlushActivator:            cloneInt(f.FlushActivator),
	})
}

// VaultGetPosition loads a collateral position, or nil if none exists.
func (m *Manager) VaultGetPosition(owner common.Address) (*vault.CollateralPosition, error) {
	var stored storedCollateral
	ok, err := m.KVGet(VaultPositionKey(owner), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &vault.CollateralPosition{
		Owner:           common.Address(stored.Owner),
		Collateral:      cloneInt(stored.Collateral),
		Debt:            cloneInt(stored.Debt),
		Credit:          cloneInt(stored.Credit),
		YieldCheckpoint: cloneInt(stored.YieldCheckpoint),
	}, nil
}

// VaultPutPosition stores a collateral position.
func (m *Manager) VaultPutPosition(pos *vault.CollateralPosition) error {
	return m.KVPut(VaultPositionKey(pos.Owner), &storedCollateral{
		Owner:           pos.Owner,
		Collateral:      cloneInt(pos.Collateral),
		Debt:            cloneInt(pos.Debt),
		Credit:          cloneInt(pos.Credit),
		YieldCheckpoint: cloneInt(pos.YieldCheckpoint),
	})
}

// VaultGetAdapter loads the adapter registered at index, or nil.
func (m *Manager) VaultGetAdapter(index uint64) (*vault.Adapter, error) {
	var stored storedAdapter
	ok, err := m.KVGet(VaultAdapterKey(index), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &vault.Adapter{
		Index:     stored.Index,
		Address:   common.Address(stored.Address),
		Asset:     stored.Asset,
		Principal: cloneInt(stored.Principal),
	}, nil
}

// VaultPutAdapter stores an adapter record.
func (m *Manager) VaultPutAdapter(adapter *vault.Adapter) error {
	return m.KVPut(VaultAdapterKey(adapter.Index), &storedAdapter{
		Index:     adapter.Index,
		Address:   adapter.Address,
		Asset:     adapter.Asset,
		Principal: cloneInt(adapter.Principal),
	})
}
