package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Balance retrieves a balance for the provided account and asset.
func (m *Manager) Balance(addr common.Address, symbol string) (*big.Int, error) {
	return m.getInt(BalanceKey(addr, symbol))
}

// SetBalance stores an account balance for the provided asset.
func (m *Manager) SetBalance(addr common.Address, symbol string, amount *big.Int) error {
	if normalizeSymbol(symbol) == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if amount != nil && amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	return m.putInt(BalanceKey(addr, symbol), amount)
}

// Supply returns the total issued amount of an asset.
func (m *Manager) Supply(symbol string) (*big.Int, error) {
	return m.getInt(SupplyKey(symbol))
}

// SetSupply records the total issued amount of an asset.
func (m *Manager) SetSupply(symbol string, amount *big.Int) error {
	if normalizeSymbol(symbol) == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	return m.putInt(SupplyKey(symbol), amount)
}
