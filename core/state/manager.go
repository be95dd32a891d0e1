// Package state persists ledger, token, distributor and facility records in
// a key-value store. Keys are namespaced, hashed with keccak256 and stored
// under a common prefix; values are RLP encoded.
package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"synthvault/storage"
)

// ErrMissingRecord reports an index entry that should exist but does not.
var ErrMissingRecord = errors.New("state: missing record")

// Manager reads and writes typed state records on top of a Database. During
// transaction execution the database is a storage.Journal so a failed
// transaction can be discarded as a whole.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided store.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func kvKey(key []byte) []byte {
	hashed := ethcrypto.Keccak256(key)
	out := make([]byte, 0, len(statePrefix)+len(hashed))
	out = append(out, statePrefix...)
	return append(out, hashed...)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.db.Delete(kvKey(key))
}

func (m *Manager) getInt(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (m *Manager) putInt(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("kv: negative amount not allowed")
	}
	return m.KVPut(key, amount)
}

func (m *Manager) getUint(key []byte) (uint64, error) {
	var v uint64
	if _, err := m.KVGet(key, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// BlockHeight returns the last recorded block height.
func (m *Manager) BlockHeight() (uint64, error) { return m.getUint(blockHeightKey) }

// SetBlockHeight records the current block height.
func (m *Manager) SetBlockHeight(height uint64) error { return m.KVPut(blockHeightKey, height) }

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
