package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/fixedpoint"
	"synthvault/native/transmuter"
)

type storedBuffer struct {
	TotalUndistributed *big.Int
	LastUpdateBlock    uint64
	PeriodLength       uint64
	Index              *big.Int
	Carry              *big.Int
	Scale              *big.Int
	TotalStaked        *big.Int
	TotalBucketed      *big.Int
	Unbucketed         *big.Int
}

type storedStake struct {
	Participant [20]byte
	Staked      *big.Int
	Bucketed    *big.Int
	Realized    *big.Int
	Checkpoint  *big.Int
}

// TransmuterGetBuffer loads the distribution buffer. A nil buffer means the
// distributor has never been touched.
func (m *Manager) TransmuterGetBuffer() (*transmuter.Buffer, error) {
	var stored storedBuffer
	ok, err := m.KVGet(transmuterBufferKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &transmuter.Buffer{
		TotalUndistributed: cloneInt(stored.TotalUndistributed),
		LastUpdateBlock:    stored.LastUpdateBlock,
		PeriodLength:       stored.PeriodLength,
		Accumulator: &fixedpoint.Accumulator{
			Index: cloneInt(stored.Index),
			Carry: cloneInt(stored.Carry),
			Scale: cloneInt(stored.Scale),
		},
		TotalStaked:   cloneInt(stored.TotalStaked),
		TotalBucketed: cloneInt(stored.TotalBucketed),
		Unbucketed:    cloneInt(stored.Unbucketed),
	}, nil
}

// TransmuterPutBuffer stores the distribution buffer.
func (m *Manager) TransmuterPutBuffer(buf *transmuter.Buffer) error {
	acc := buf.Accumulator
	if acc == nil {
		acc = fixedpoint.NewAccumulator(nil)
	}
	return m.KVPut(transmuterBufferKey, &storedBuffer{
		TotalUndistributed: cloneInt(buf.TotalUndistributed),
		LastUpdateBlock:    buf.LastUpdateBlock,
		PeriodLength:       buf.PeriodLength,
		Index:              cloneInt(acc.Index),
		Carry:              cloneInt(acc.Carry),
		Scale:              cloneInt(acc.Scale),
		TotalStaked:        cloneInt(buf.TotalStaked),
		TotalBucketed:      cloneInt(buf.TotalBucketed),
		Unbucketed:         cloneInt(buf.Unbucketed),
	})
}

// TransmuterGetPosition loads a stake position, or nil if none exists.
func (m *Manager) TransmuterGetPosition(addr common.Address) (*transmuter.StakePosition, error) {
	var stored storedStake
	ok, err := m.KVGet(TransmuterPositionKey(addr), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &transmuter.StakePosition{
		Participant: common.Address(stored.Participant),
		Staked:      cloneInt(stored.Staked),
		Bucketed:    cloneInt(stored.Bucketed),
		Realized:    cloneInt(stored.Realized),
		Checkpoint:  cloneInt(stored.Checkpoint),
	}, nil
}

// TransmuterPutPosition stores a stake position.
func (m *Manager) TransmuterPutPosition(pos *transmuter.StakePosition) error {
	return m.KVPut(TransmuterPositionKey(pos.Participant), &storedStake{
		Participant: pos.Participant,
		Staked:      cloneInt(pos.Staked),
		Bucketed:    cloneInt(pos.Bucketed),
		Realized:    cloneInt(pos.Realized),
		Checkpoint:  cloneInt(pos.Checkpoint),
	})
}

// TransmuterParticipantCount returns the number of registered participants.
func (m *Manager) TransmuterParticipantCount() (uint64, error) {
	return m.getUint(transmuterParticipantSeq)
}

// TransmuterParticipantAt returns the participant registered at index.
func (m *Manager) TransmuterParticipantAt(index uint64) (common.Address, error) {
	var addr [20]byte
	ok, err := m.KVGet(TransmuterParticipantKey(index), &addr)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, ErrMissingRecord
	}
	return common.Address(addr), nil
}

// TransmuterAppendParticipant registers addr at the next index.
func (m *Manager) TransmuterAppendParticipant(addr common.Address) error {
	count, err := m.TransmuterParticipantCount()
	if err != nil {
		return err
	}
	if err := m.KVPut(TransmuterParticipantKey(count), [20]byte(addr)); err != nil {
		return err
	}
	return m.KVPut(transmuterParticipantSeq, count+1)
}

// TransmuterIsWhitelisted reports whether origin may distribute.
func (m *Manager) TransmuterIsWhitelisted(origin common.Address) (bool, error) {
	var allowed bool
	if _, err := m.KVGet(TransmuterWhitelistKey(origin), &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// TransmuterSetWhitelisted grants or revokes origin's distribution right.
func (m *Manager) TransmuterSetWhitelisted(origin common.Address, allowed bool) error {
	if !allowed {
		return m.KVDelete(TransmuterWhitelistKey(origin))
	}
	return m.KVPut(TransmuterWhitelistKey(origin), true)
}
