// Package fixedpoint holds the scaled integer helpers used for pro-rata
// accounting. All division truncates toward zero.
package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"
)

const BasisPoints = 10_000

var (
	// DefaultScale is the accumulator precision for 8-decimal assets.
	DefaultScale = big.NewInt(1_000_000_000)

	basisPoints = big.NewInt(BasisPoints)
)

// Accumulator tracks reward per unit of stake weight, multiplied by Scale.
// Carry holds the scaled remainder left over by the last division so that
// repeated small advances do not leak value.
type Accumulator struct {
	Index *big.Int
	Carry *big.Int
	Scale *big.Int
}

// NewAccumulator returns a zeroed accumulator. A nil or non-positive scale
// falls back to DefaultScale.
func NewAccumulator(scale *big.Int) *Accumulator {
	if scale == nil || scale.Sign() <= 0 {
		scale = DefaultScale
	}
	return &Accumulator{
		Index: big.NewInt(0),
		Carry: big.NewInt(0),
		Scale: new(big.Int).Set(scale),
	}
}

func (a *Accumulator) ensure() {
	if a.Index == nil {
		a.Index = big.NewInt(0)
	}
	if a.Carry == nil {
		a.Carry = big.NewInt(0)
	}
	if a.Scale == nil || a.Scale.Sign() <= 0 {
		a.Scale = new(big.Int).Set(DefaultScale)
	}
}

// Clone returns a deep copy.
func (a *Accumulator) Clone() *Accumulator {
	if a == nil {
		return nil
	}
	out := &Accumulator{}
	if a.Index != nil {
		out.Index = new(big.Int).Set(a.Index)
	}
	if a.Carry != nil {
		out.Carry = new(big.Int).Set(a.Carry)
	}
	if a.Scale != nil {
		out.Scale = new(big.Int).Set(a.Scale)
	}
	out.ensure()
	return out
}

// Advance spreads amount over weight units of stake. It returns false and
// leaves the accumulator untouched when there is nothing to spread over, in
// which case the caller keeps the amount.
func (a *Accumulator) Advance(amount, weight *big.Int) bool {
	a.ensure()
	if weight == nil || weight.Sign() <= 0 {
		return false
	}
	if amount == nil || amount.Sign() <= 0 {
		return true
	}
	step, rem := advanceStep(amount, a.Scale, a.Carry, weight)
	a.Index.Add(a.Index, step)
	a.Carry = rem
	return true
}

func advanceStep(amount, scale, carry, weight *big.Int) (*big.Int, *big.Int) {
	if u, ok := toU256(amount, scale, carry, weight); ok {
		total, overflow := new(uint256.Int).MulOverflow(u[0], u[1])
		if !overflow {
			if _, overflow = total.AddOverflow(total, u[2]); !overflow {
				quo, rem := new(uint256.Int), new(uint256.Int)
				quo.DivMod(total, u[3], rem)
				return quo.ToBig(), rem.ToBig()
			}
		}
	}
	total := new(big.Int).Mul(amount, scale)
	total.Add(total, carry)
	return new(big.Int).QuoRem(total, weight, new(big.Int))
}

// Owed returns the entitlement of stake units checkpointed at checkpoint.
func (a *Accumulator) Owed(checkpoint, stake *big.Int) *big.Int {
	a.ensure()
	if stake == nil || stake.Sign() <= 0 {
		return big.NewInt(0)
	}
	delta := new(big.Int).Set(a.Index)
	if checkpoint != nil {
		delta.Sub(delta, checkpoint)
	}
	if delta.Sign() <= 0 {
		return big.NewInt(0)
	}
	return MulDiv(delta, stake, a.Scale)
}

// MulDiv computes floor(x*y/d). A zero or nil divisor yields zero.
func MulDiv(x, y, d *big.Int) *big.Int {
	if x == nil || y == nil || d == nil || d.Sign() == 0 {
		return big.NewInt(0)
	}
	if x.Sign() < 0 || y.Sign() < 0 || d.Sign() < 0 {
		out := new(big.Int).Mul(x, y)
		return out.Quo(out, d)
	}
	if u, ok := toU256(x, y, d); ok {
		if out, overflow := new(uint256.Int).MulDivOverflow(u[0], u[1], u[2]); !overflow {
			return out.ToBig()
		}
	}
	out := new(big.Int).Mul(x, y)
	return out.Quo(out, d)
}

// BpsOf returns floor(amount*bps/10_000).
func BpsOf(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || bps == 0 {
		return big.NewInt(0)
	}
	return MulDiv(amount, new(big.Int).SetUint64(bps), basisPoints)
}

// Min returns a copy of the smallest argument.
func Min(values ...*big.Int) *big.Int {
	var out *big.Int
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || v.Cmp(out) < 0 {
			out = v
		}
	}
	if out == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(out)
}

// SubFloor returns max(a-b, 0).
func SubFloor(a, b *big.Int) *big.Int {
	out := new(big.Int)
	if a != nil {
		out.Set(a)
	}
	if b != nil {
		out.Sub(out, b)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

func toU256(values ...*big.Int) ([]*uint256.Int, bool) {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		u, overflow := uint256.FromBig(v)
		if overflow {
			return nil, false
		}
		out[i] = u
	}
	return out, true
}
