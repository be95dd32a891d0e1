package state

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// statePrefix namespaces every hashed state key in the backing store.
	statePrefix = []byte("state/")

	balancePrefix            = "bank/balance/"
	supplyPrefix             = "bank/supply/"
	minterPrefix             = "claimtoken/minter/"
	transmuterBufferKey      = []byte("transmuter/buffer")
	transmuterPositionPrefix = "transmuter/position/"
	transmuterWhitelistPref  = "transmuter/whitelist/"
	transmuterParticipantSeq = []byte("transmuter/participants/count")
	transmuterParticipantFmt = "transmuter/participants/%d"
	vaultFacilityKey         = []byte("vault/facility")
	vaultPositionPrefix      = "vault/position/"
	vaultAdapterFmt          = "vault/adapter/%d"
	blockHeightKey           = []byte("chain/height")
)

func addrHex(addr common.Address) string { return hex.EncodeToString(addr.Bytes()) }

func normalizeSymbol(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// BalanceKey returns the namespaced key for an account balance.
func BalanceKey(addr common.Address, symbol string) []byte {
	return []byte(balancePrefix + normalizeSymbol(symbol) + "/" + addrHex(addr))
}

// SupplyKey returns the namespaced key for an asset's total supply.
func SupplyKey(symbol string) []byte {
	return []byte(supplyPrefix + normalizeSymbol(symbol))
}

// MinterKey returns the namespaced key for a claim-token minter record.
func MinterKey(addr common.Address) []byte {
	return []byte(minterPrefix + addrHex(addr))
}

// TransmuterPositionKey returns the namespaced key for a stake position.
func TransmuterPositionKey(addr common.Address) []byte {
	return []byte(transmuterPositionPrefix + addrHex(addr))
}

// TransmuterWhitelistKey returns the namespaced key for an origin's
// distribution right.
func TransmuterWhitelistKey(addr common.Address) []byte {
	return []byte(transmuterWhitelistPref + addrHex(addr))
}

// TransmuterParticipantKey returns the namespaced key for the participant
// registered at index.
func TransmuterParticipantKey(index uint64) []byte {
	return []byte(fmt.Sprintf(transmuterParticipantFmt, index))
}

// VaultPositionKey returns the namespaced key for a collateral position.
func VaultPositionKey(owner common.Address) []byte {
	return []byte(vaultPositionPrefix + addrHex(owner))
}

// VaultAdapterKey returns the namespaced key for the adapter at index.
func VaultAdapterKey(index uint64) []byte {
	return []byte(fmt.Sprintf(vaultAdapterFmt, index))
}

// StatePrefix is the backing-store prefix shared by every state key.
func StatePrefix() []byte { return append([]byte(nil), statePrefix...) }
