package transmuter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/fixedpoint"
)

// StakePosition tracks one participant's claim tokens inside the pool.
type StakePosition struct {
	// Participant owns the position.
	Participant common.Address
	// Staked is the claim-token amount currently held by the pool for the
	// participant.
	Staked *big.Int
	// Bucketed is entitlement already committed to the participant but not
	// yet redeemed. Never exceeds Staked.
	Bucketed *big.Int
	// Realized is the underlying amount the participant can claim.
	Realized *big.Int
	// Checkpoint is the accumulator index at the last touch.
	Checkpoint *big.Int
}

func newPosition(addr common.Address, index *big.Int) *StakePosition {
	checkpoint := big.NewInt(0)
	if index != nil {
		checkpoint.Set(index)
	}
	return &StakePosition{
		Participant: addr,
		Staked:      big.NewInt(0),
		Bucketed:    big.NewInt(0),
		Realized:    big.NewInt(0),
		Checkpoint:  checkpoint,
	}
}

// Clone returns a deep copy of the position.
func (p *StakePosition) Clone() *StakePosition {
	if p == nil {
		return nil
	}
	return &StakePosition{
		Participant: p.Participant,
		Staked:      cloneInt(p.Staked),
		Bucketed:    cloneInt(p.Bucketed),
		Realized:    cloneInt(p.Realized),
		Checkpoint:  cloneInt(p.Checkpoint),
	}
}

// PositionView is a read-only projection that also reports entitlement
// accrued since the last touch.
type PositionView struct {
	Participant common.Address `json:"participant"`
	Staked      *big.Int       `json:"staked"`
	Pending     *big.Int       `json:"pending"`
	Bucketed    *big.Int       `json:"bucketed"`
	Realized    *big.Int       `json:"realized"`
}

// Buffer is the singleton distribution state.
type Buffer struct {
	// TotalUndistributed is underlying deposited but not yet streamed.
	TotalUndistributed *big.Int
	LastUpdateBlock    uint64
	// PeriodLength is the number of blocks over which the buffer fully
	// streams.
	PeriodLength uint64
	Accumulator  *fixedpoint.Accumulator
	TotalStaked  *big.Int
	// TotalBucketed sums every position's Bucketed.
	TotalBucketed *big.Int
	// Unbucketed is streamed entitlement not yet moved into any bucket,
	// including rounding dust.
	Unbucketed *big.Int
}

func newBuffer(period uint64, scale *big.Int, height uint64) *Buffer {
	return &Buffer{
		TotalUndistributed: big.NewInt(0),
		LastUpdateBlock:    height,
		PeriodLength:       period,
		Accumulator:        fixedpoint.NewAccumulator(scale),
		TotalStaked:        big.NewInt(0),
		TotalBucketed:      big.NewInt(0),
		Unbucketed:         big.NewInt(0),
	}
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	return &Buffer{
		TotalUndistributed: cloneInt(b.TotalUndistributed),
		LastUpdateBlock:    b.LastUpdateBlock,
		PeriodLength:       b.PeriodLength,
		Accumulator:        b.Accumulator.Clone(),
		TotalStaked:        cloneInt(b.TotalStaked),
		TotalBucketed:      cloneInt(b.TotalBucketed),
		Unbucketed:         cloneInt(b.Unbucketed),
	}
}

// BufferInfo summarises the stream for inspection.
type BufferInfo struct {
	TotalUndistributed *big.Int `json:"totalUndistributed"`
	PendingRelease     *big.Int `json:"pendingRelease"`
	ElapsedBlocks      uint64   `json:"elapsedBlocks"`
	LastUpdateBlock    uint64   `json:"lastUpdateBlock"`
	PeriodLength       uint64   `json:"periodLength"`
	TotalStaked        *big.Int `json:"totalStaked"`
	TotalBucketed      *big.Int `json:"totalBucketed"`
	Unbucketed         *big.Int `json:"unbucketed"`
	Index              *big.Int `json:"index"`
}

// Settlement reports the outcome of a redemption.
type Settlement struct {
	Participant common.Address `json:"participant"`
	Transmuted  *big.Int       `json:"transmuted"`
	Claimed     *big.Int       `json:"claimed"`
	Unstaked    *big.Int       `json:"unstaked"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
