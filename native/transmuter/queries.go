package transmuter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/fixedpoint"
)

func (e *Engine) view(buf *Buffer, pos *StakePosition) *PositionView {
	return &PositionView{
		Participant: pos.Participant,
		Staked:      cloneInt(pos.Staked),
		Pending:     pendingFor(buf, pos, e.blockHeight),
		Bucketed:    cloneInt(pos.Bucketed),
		Realized:    cloneInt(pos.Realized),
	}
}

// Position reports the participant's position with live pending
// entitlement. Nothing is written.
func (e *Engine) Position(addr common.Address) (*PositionView, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return nil, err
	}
	pos, _, err := e.loadPosition(buf, addr)
	if err != nil {
		return nil, err
	}
	return e.view(buf, pos), nil
}

// ParticipantCount returns how many addresses have ever held a position.
func (e *Engine) ParticipantCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.ParticipantCount()
}

// Positions returns up to limit positions starting at offset in first-stake
// order. A zero limit means the configured page size, and larger limits are
// clamped to it.
func (e *Engine) Positions(offset, limit uint64) ([]*PositionView, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	total, err := e.state.ParticipantCount()
	if err != nil {
		return nil, err
	}
	if pageMax := uint64(e.params.PageLimit); limit == 0 || limit > pageMax {
		limit = pageMax
	}
	if offset >= total || limit == 0 {
		return []*PositionView{}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return nil, err
	}
	out := make([]*PositionView, 0, end-offset)
	for i := offset; i < end; i++ {
		addr, err := e.state.ParticipantAt(i)
		if err != nil {
			return nil, err
		}
		pos, _, err := e.loadPosition(buf, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, e.view(buf, pos))
	}
	return out, nil
}

// BufferInfo summarises the stream as of the current block.
func (e *Engine) BufferInfo() (*BufferInfo, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return nil, err
	}
	var elapsed uint64
	if e.blockHeight > buf.LastUpdateBlock {
		elapsed = e.blockHeight - buf.LastUpdateBlock
	}
	return &BufferInfo{
		TotalUndistributed: cloneInt(buf.TotalUndistributed),
		PendingRelease:     releasable(buf.TotalUndistributed, elapsed, buf.PeriodLength),
		ElapsedBlocks:      elapsed,
		LastUpdateBlock:    buf.LastUpdateBlock,
		PeriodLength:       buf.PeriodLength,
		TotalStaked:        cloneInt(buf.TotalStaked),
		TotalBucketed:      cloneInt(buf.TotalBucketed),
		Unbucketed:         cloneInt(buf.Unbucketed),
		Index:              cloneInt(buf.Accumulator.Index),
	}, nil
}

// RedeemableCapacity is how much more underlying the pool can absorb from
// origin: staked claim tokens not already covered by bucketed, streamed or
// buffered underlying. Non-whitelisted origins have no capacity.
func (e *Engine) RedeemableCapacity(origin common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	allowed, err := e.state.IsWhitelisted(origin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return big.NewInt(0), nil
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return nil, err
	}
	covered := new(big.Int).Add(buf.TotalBucketed, buf.Unbucketed)
	covered.Add(covered, buf.TotalUndistributed)
	return fixedpoint.SubFloor(buf.TotalStaked, covered), nil
}

// IsWhitelisted reports whether origin may distribute.
func (e *Engine) IsWhitelisted(origin common.Address) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.IsWhitelisted(origin)
}
