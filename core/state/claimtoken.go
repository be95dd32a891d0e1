package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/claimtoken"
)

type storedMinter struct {
	Address     [20]byte
	Whitelisted bool
	Blacklisted bool
	Ceiling     *big.Int
	Issued      *big.Int
}

// ClaimTokenGetMinter loads the minter record for addr.
func (m *Manager) ClaimTokenGetMinter(addr common.Address) (*claimtoken.MinterRecord, bool, error) {
	var stored storedMinter
	ok, err := m.KVGet(MinterKey(addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &claimtoken.MinterRecord{
		Address:     common.Address(stored.Address),
		Whitelisted: stored.Whitelisted,
		Blacklisted: stored.Blacklisted,
		Ceiling:     cloneInt(stored.Ceiling),
		Issued:      cloneInt(stored.Issued),
	}, true, nil
}

// ClaimTokenPutMinter stores a minter record.
func (m *Manager) ClaimTokenPutMinter(rec *claimtoken.MinterRecord) error {
	return m.KVPut(MinterKey(rec.Address), &storedMinter{
		Address:     rec.Address,
		Whitelisted: rec.Whitelisted,
		Blacklisted: rec.Blacklisted,
		Ceiling:     cloneInt(rec.Ceiling),
		Issued:      cloneInt(rec.Issued),
	})
}
