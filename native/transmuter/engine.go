// Package transmuter implements the streaming distributor: claim tokens are
// staked, underlying inflows are released to stakers linearly over a block
// window, and committed entitlement redeems staked claim tokens 1:1.
package transmuter

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/events"
	nativecommon "synthvault/native/common"
	"synthvault/native/fixedpoint"
)

const moduleName = "transmuter"

type engineState interface {
	GetBuffer() (*Buffer, error)
	PutBuffer(buf *Buffer) error
	GetPosition(addr common.Address) (*StakePosition, error)
	PutPosition(pos *StakePosition) error
	ParticipantCount() (uint64, error)
	ParticipantAt(index uint64) (common.Address, error)
	AppendParticipant(addr common.Address) error
	IsWhitelisted(addr common.Address) (bool, error)
	SetWhitelisted(addr common.Address, allowed bool) error
}

type assetLedger interface {
	Balance(addr common.Address, asset string) (*big.Int, error)
	Transfer(from, to common.Address, asset string, amount *big.Int) error
}

type claimBurner interface {
	Burn(holder common.Address, amount *big.Int) error
}

// Engine orchestrates the distributor state transitions. Every mutating call
// validates before writing and performs its own bookkeeping before touching
// the ledger or the claim token.
type Engine struct {
	state       engineState
	ledger      assetLedger
	claims      claimBurner
	pauses      nativecommon.PauseView
	emitter     events.Emitter
	params      Params
	blockHeight uint64
	guard       nativecommon.ReentrancyGuard
}

// NewEngine constructs an engine with the supplied parameters.
func NewEngine(params Params) *Engine {
	if params.Scale == nil || params.Scale.Sign() <= 0 {
		params.Scale = new(big.Int).Set(fixedpoint.DefaultScale)
	}
	if params.IncentiveFixed == nil {
		params.IncentiveFixed = big.NewInt(0)
	}
	if params.PageLimit <= 0 {
		params.PageLimit = DefaultPageLimit
	}
	return &Engine{params: params, emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetLedger(ledger assetLedger) { e.ledger = ledger }

func (e *Engine) SetClaimToken(claims claimBurner) { e.claims = claims }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetBlockHeight(height uint64) { e.blockHeight = height }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Params returns the active parameters.
func (e *Engine) Params() Params { return e.params }

// ModuleAddress is where staked claim tokens and buffered underlying live.
func (e *Engine) ModuleAddress() common.Address { return e.params.ModuleAddress }

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.ledger == nil || e.claims == nil {
		return errNilState
	}
	return nil
}

// begin runs the shared entry checks for mutating calls and holds the
// reentrancy guard until the returned release is called.
func (e *Engine) begin() (func(), error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.guard.Enter(); err != nil {
		return nil, err
	}
	return e.guard.Exit, nil
}

func (e *Engine) loadBuffer() (*Buffer, error) {
	buf, err := e.state.GetBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return newBuffer(e.params.PeriodLength, e.params.Scale, e.blockHeight), nil
	}
	return buf, nil
}

// loadPosition returns the stored position, or a fresh one checkpointed at
// the current index. The boolean reports whether it already existed.
func (e *Engine) loadPosition(buf *Buffer, addr common.Address) (*StakePosition, bool, error) {
	pos, err := e.state.GetPosition(addr)
	if err != nil {
		return nil, false, err
	}
	if pos == nil {
		return newPosition(addr, buf.Accumulator.Index), false, nil
	}
	return pos, true, nil
}

func (e *Engine) touch(buf *Buffer, pos *StakePosition) {
	if of := settle(buf, pos); of != nil {
		e.emit(WrapEvent(overflowEvent(pos.Participant, of.excess, of.toBuffer)))
	}
}

func (e *Engine) persist(buf *Buffer, positions ...*StakePosition) error {
	if err := e.state.PutBuffer(buf); err != nil {
		return err
	}
	for _, pos := range positions {
		if err := e.state.PutPosition(pos); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) register(addr common.Address, existed bool) error {
	if existed {
		return nil
	}
	return e.state.AppendParticipant(addr)
}

func (e *Engine) requireBalance(addr common.Address, asset string, amount *big.Int) error {
	bal, err := e.ledger.Balance(addr, asset)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrTransferFailed, addr.Hex(), bal, asset, amount)
	}
	return nil
}

// Stake moves amount claim tokens from the participant into the pool.
func (e *Engine) Stake(addr common.Address, amount *big.Int) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.requireBalance(addr, e.params.ClaimAsset, amount); err != nil {
		return err
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return err
	}
	accrue(buf, e.blockHeight)
	pos, existed, err := e.loadPosition(buf, addr)
	if err != nil {
		return err
	}
	e.touch(buf, pos)
	pos.Staked.Add(pos.Staked, amount)
	buf.TotalStaked.Add(buf.TotalStaked, amount)
	if err := e.register(addr, existed); err != nil {
		return err
	}
	if err := e.persist(buf, pos); err != nil {
		return err
	}
	if err := e.ledger.Transfer(addr, e.params.ModuleAddress, e.params.ClaimAsset, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.emit(WrapEvent(stakeEvent(EventTypeStaked, addr, amount, pos.Staked)))
	return nil
}

// Unstake returns amount claim tokens to the participant.
func (e *Engine) Unstake(addr common.Address, amount *big.Int) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return err
	}
	pos, _, err := e.loadPosition(buf, addr)
	if err != nil {
		return err
	}
	if amount.Cmp(pos.Staked) > 0 {
		return fmt.Errorf("%w: staked %s, requested %s", ErrExceedsDeposit, pos.Staked, amount)
	}
	accrue(buf, e.blockHeight)
	e.touch(buf, pos)
	e.unstakeInPlace(buf, pos, amount)
	if err := e.persist(buf, pos); err != nil {
		return err
	}
	return e.payUnstake(addr, amount, pos.Staked)
}

func (e *Engine) unstakeInPlace(buf *Buffer, pos *StakePosition, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	pos.Staked.Sub(pos.Staked, amount)
	buf.TotalStaked.Sub(buf.TotalStaked, amount)
	if of := capBucket(buf, pos); of != nil {
		e.emit(WrapEvent(overflowEvent(pos.Participant, of.excess, of.toBuffer)))
	}
}

func (e *Engine) payUnstake(addr common.Address, amount, remaining *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := e.ledger.Transfer(e.params.ModuleAddress, addr, e.params.ClaimAsset, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.emit(WrapEvent(stakeEvent(EventTypeUnstaked, addr, amount, remaining)))
	return nil
}

// Distribute pulls amount underlying from origin into the buffer and
// restarts the release window over the enlarged buffer. Only whitelisted
// callers may distribute.
func (e *Engine) Distribute(caller, origin common.Address, amount *big.Int) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	allowed, err := e.state.IsWhitelisted(caller)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotWhitelisted
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.requireBalance(origin, e.params.UnderlyingAsset, amount); err != nil {
		return err
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return err
	}
	accrue(buf, e.blockHeight)
	buf.TotalUndistributed.Add(buf.TotalUndistributed, amount)
	buf.LastUpdateBlock = e.blockHeight
	if err := e.persist(buf); err != nil {
		return err
	}
	if err := e.ledger.Transfer(origin, e.params.ModuleAddress, e.params.UnderlyingAsset, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.emit(WrapEvent(DistributedEvent(caller, origin, amount, buf.TotalUndistributed, e.blockHeight)))
	return nil
}

// transmuteInPlace converts the bucket into realized underlying and reduces
// the stake by the same amount. It returns the converted amount.
func transmuteInPlace(buf *Buffer, pos *StakePosition) *big.Int {
	amount := new(big.Int).Set(pos.Bucketed)
	if amount.Sign() == 0 {
		return amount
	}
	pos.Staked.Sub(pos.Staked, amount)
	buf.TotalStaked.Sub(buf.TotalStaked, amount)
	buf.TotalBucketed = fixedpoint.SubFloor(buf.TotalBucketed, amount)
	pos.Realized.Add(pos.Realized, amount)
	pos.Bucketed.SetInt64(0)
	return amount
}

func (e *Engine) burnTransmuted(addr common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := e.claims.Burn(e.params.ModuleAddress, amount); err != nil {
		return err
	}
	e.emit(WrapEvent(transmutedEvent(addr, amount)))
	return nil
}

func (e *Engine) payClaim(addr common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := e.ledger.Transfer(e.params.ModuleAddress, addr, e.params.UnderlyingAsset, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.emit(WrapEvent(claimedEvent(addr, amount)))
	return nil
}

// settlement flags select the steps a composite redemption runs.
type settlement struct {
	requireBucket bool
	claim         bool
	unstakeAll    bool
}

func (e *Engine) redeem(addr common.Address, mode settlement) (*Settlement, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	out := &Settlement{Participant: addr, Transmuted: big.NewInt(0), Claimed: big.NewInt(0), Unstaked: big.NewInt(0)}
	pos, err := e.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		if mode.requireBucket {
			return nil, ErrNothingToTransmute
		}
		return out, nil
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return nil, err
	}
	accrue(buf, e.blockHeight)
	e.touch(buf, pos)
	if mode.requireBucket && pos.Bucketed.Sign() == 0 {
		return nil, ErrNothingToTransmute
	}
	out.Transmuted = transmuteInPlace(buf, pos)
	if mode.claim {
		out.Claimed.Set(pos.Realized)
		pos.Realized.SetInt64(0)
	}
	if mode.unstakeAll {
		out.Unstaked.Set(pos.Staked)
		e.unstakeInPlace(buf, pos, out.Unstaked)
	}
	if err := e.persist(buf, pos); err != nil {
		return nil, err
	}
	if err := e.burnTransmuted(addr, out.Transmuted); err != nil {
		return nil, err
	}
	if err := e.payClaim(addr, out.Claimed); err != nil {
		return nil, err
	}
	if err := e.payUnstake(addr, out.Unstaked, pos.Staked); err != nil {
		return nil, err
	}
	return out, nil
}

// Transmute redeems the participant's bucketed entitlement, burning the same
// amount of staked claim tokens and crediting realized underlying.
func (e *Engine) Transmute(addr common.Address) (*Settlement, error) {
	return e.redeem(addr, settlement{requireBucket: true})
}

// Claim pays out realized underlying. Claiming nothing is not an error.
func (e *Engine) Claim(addr common.Address) (*big.Int, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	pos, err := e.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil || pos.Realized.Sign() == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int).Set(pos.Realized)
	pos.Realized.SetInt64(0)
	if err := e.state.PutPosition(pos); err != nil {
		return nil, err
	}
	if err := e.payClaim(addr, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// TransmuteAndClaim redeems the bucket and pays out all realized underlying.
func (e *Engine) TransmuteAndClaim(addr common.Address) (*Settlement, error) {
	return e.redeem(addr, settlement{claim: true})
}

// Exit redeems the bucket and unstakes everything left, keeping realized
// underlying for a later Claim.
func (e *Engine) Exit(addr common.Address) (*Settlement, error) {
	return e.redeem(addr, settlement{unstakeAll: true})
}

// TransmuteClaimAndWithdraw redeems, claims and unstakes in one step.
func (e *Engine) TransmuteClaimAndWithdraw(addr common.Address) (*Settlement, error) {
	return e.redeem(addr, settlement{claim: true, unstakeAll: true})
}

// ForceTransmute settles a target whose bucket has reached its stake. The
// caller earns the configured incentive out of the settled amount and the
// target is paid the remainder directly.
func (e *Engine) ForceTransmute(caller, target common.Address) (*big.Int, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	buf, err := e.loadBuffer()
	if err != nil {
		return nil, err
	}
	accrue(buf, e.blockHeight)
	pos, existed, err := e.loadPosition(buf, target)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, ErrNotOverflowed
	}
	e.touch(buf, pos)
	if pos.Staked.Sign() == 0 || pos.Bucketed.Cmp(pos.Staked) < 0 {
		return nil, ErrNotOverflowed
	}

	settled := new(big.Int).Set(pos.Bucketed)
	pos.Staked.SetInt64(0)
	pos.Bucketed.SetInt64(0)
	buf.TotalStaked.Sub(buf.TotalStaked, settled)
	buf.TotalBucketed = fixedpoint.SubFloor(buf.TotalBucketed, settled)
	incentive := e.incentive(settled)
	payout := new(big.Int).Sub(settled, incentive)

	writes := []*StakePosition{pos}
	callerPos := pos
	if caller != target {
		var callerExisted bool
		callerPos, callerExisted, err = e.loadPosition(buf, caller)
		if err != nil {
			return nil, err
		}
		e.touch(buf, callerPos)
		if err := e.register(caller, callerExisted); err != nil {
			return nil, err
		}
		writes = append(writes, callerPos)
	}
	callerPos.Realized.Add(callerPos.Realized, incentive)

	if err := e.persist(buf, writes...); err != nil {
		return nil, err
	}
	if err := e.claims.Burn(e.params.ModuleAddress, settled); err != nil {
		return nil, err
	}
	if payout.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.ModuleAddress, target, e.params.UnderlyingAsset, payout); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	e.emit(WrapEvent(forceTransmutedEvent(caller, target, settled, incentive)))
	return incentive, nil
}

func (e *Engine) incentive(settled *big.Int) *big.Int {
	reward := fixedpoint.BpsOf(settled, e.params.IncentiveBps)
	if e.params.IncentiveFixed != nil {
		reward.Add(reward, e.params.IncentiveFixed)
	}
	if reward.Cmp(settled) > 0 {
		reward.Set(settled)
	}
	return reward
}
