package transmuter

import (
	"math/big"

	"synthvault/native/fixedpoint"
)

// releasable returns the share of the buffer streamed after elapsed blocks.
// A partial window releases nothing until total*elapsed exceeds the period.
func releasable(total *big.Int, elapsed, period uint64) *big.Int {
	if total == nil || total.Sign() <= 0 || elapsed == 0 {
		return big.NewInt(0)
	}
	if period == 0 || elapsed >= period {
		return new(big.Int).Set(total)
	}
	length := new(big.Int).SetUint64(period)
	scaled := new(big.Int).Mul(total, new(big.Int).SetUint64(elapsed))
	if scaled.Cmp(length) <= 0 {
		return big.NewInt(0)
	}
	return scaled.Quo(scaled, length)
}

// accrue streams the buffer up to height. Released funds move into the
// accumulator when anyone is staked; otherwise they stay in the buffer. The
// release window restarts at height either way.
func accrue(buf *Buffer, height uint64) {
	if height <= buf.LastUpdateBlock {
		return
	}
	released := releasable(buf.TotalUndistributed, height-buf.LastUpdateBlock, buf.PeriodLength)
	buf.LastUpdateBlock = height
	if released.Sign() == 0 {
		return
	}
	if !buf.Accumulator.Advance(released, buf.TotalStaked) {
		return
	}
	buf.TotalUndistributed.Sub(buf.TotalUndistributed, released)
	buf.Unbucketed.Add(buf.Unbucketed, released)
}

// reallocate hands amount to every stake except excluded. Without any other
// stake the amount goes back into the buffer. It reports whether the buffer
// received it.
func reallocate(buf *Buffer, amount, excluded *big.Int) bool {
	if amount.Sign() <= 0 {
		return false
	}
	weight := fixedpoint.SubFloor(buf.TotalStaked, excluded)
	if buf.Accumulator.Advance(amount, weight) {
		buf.Unbucketed.Add(buf.Unbucketed, amount)
		return false
	}
	buf.TotalUndistributed.Add(buf.TotalUndistributed, amount)
	return true
}

// overflow is the entitlement a settle pushed above a stake.
type overflow struct {
	excess   *big.Int
	toBuffer bool
}

// settle moves the position's accrued entitlement into its bucket and caps
// the bucket at the stake, reallocating the excess.
func settle(buf *Buffer, pos *StakePosition) *overflow {
	owed := buf.Accumulator.Owed(pos.Checkpoint, pos.Staked)
	pos.Checkpoint = new(big.Int).Set(buf.Accumulator.Index)
	if owed.Sign() > 0 {
		buf.Unbucketed = fixedpoint.SubFloor(buf.Unbucketed, owed)
		pos.Bucketed.Add(pos.Bucketed, owed)
		buf.TotalBucketed.Add(buf.TotalBucketed, owed)
	}
	return capBucket(buf, pos)
}

// capBucket enforces Bucketed <= Staked. The capped position's checkpoint is
// moved past the reallocation so it cannot earn back its own excess.
func capBucket(buf *Buffer, pos *StakePosition) *overflow {
	if pos.Bucketed.Cmp(pos.Staked) <= 0 {
		return nil
	}
	excess := new(big.Int).Sub(pos.Bucketed, pos.Staked)
	pos.Bucketed.Set(pos.Staked)
	buf.TotalBucketed = fixedpoint.SubFloor(buf.TotalBucketed, excess)
	toBuffer := reallocate(buf, excess, pos.Staked)
	pos.Checkpoint = new(big.Int).Set(buf.Accumulator.Index)
	return &overflow{excess: excess, toBuffer: toBuffer}
}

// pendingFor projects the entitlement a position would bucket at height
// without mutating anything.
func pendingFor(buf *Buffer, pos *StakePosition, height uint64) *big.Int {
	projected := buf.Clone()
	accrue(projected, height)
	owed := projected.Accumulator.Owed(pos.Checkpoint, pos.Staked)
	room := fixedpoint.SubFloor(pos.Staked, pos.Bucketed)
	if owed.Cmp(room) > 0 {
		return room
	}
	return owed
}
