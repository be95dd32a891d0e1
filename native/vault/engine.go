// Package vault implements the collateral facility: owners deposit
// underlying, mint claim tokens against it, and have harvested yield from the
// active adapter pay their debt down over time.
package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/events"
	nativecommon "synthvault/native/common"
	"synthvault/native/fixedpoint"
)

const moduleName = "vault"

type engineState interface {
	GetFacility() (*Facility, error)
	PutFacility(f *Facility) error
	GetPosition(owner common.Address) (*CollateralPosition, error)
	PutPosition(pos *CollateralPosition) error
	GetAdapter(index uint64) (*Adapter, error)
	PutAdapter(adapter *Adapter) error
}

type assetLedger interface {
	Balance(addr common.Address, asset string) (*big.Int, error)
	Transfer(from, to common.Address, asset string, amount *big.Int) error
}

type claimIssuer interface {
	CheckMint(minter, to common.Address, amount *big.Int) error
	Mint(minter, to common.Address, amount *big.Int) error
	BurnFrom(minter, holder common.Address, amount *big.Int) error
	BalanceOf(addr common.Address) (*big.Int, error)
}

// Distributor receives repaid and harvested underlying.
type Distributor interface {
	Distribute(caller, origin common.Address, amount *big.Int) error
	RedeemableCapacity(origin common.Address) (*big.Int, error)
}

// YieldStrategy is the venue an adapter deploys idle underlying into.
type YieldStrategy interface {
	Address() common.Address
	Asset() string
	// Deposit acknowledges amount already moved to Address.
	Deposit(amount *big.Int) error
	// Withdraw sends up to amount to recipient and reports what was sent.
	Withdraw(recipient common.Address, amount *big.Int) (*big.Int, error)
	CurrentValue() (*big.Int, error)
}

// StrategyResolver looks strategies up by address.
type StrategyResolver interface {
	Strategy(addr common.Address) (YieldStrategy, bool)
}

// Engine orchestrates the facility state transitions.
type Engine struct {
	state       engineState
	ledger      assetLedger
	claims      claimIssuer
	distributor Distributor
	strategies  StrategyResolver
	pauses      nativecommon.PauseView
	emitter     events.Emitter
	params      Params
	guard       nativecommon.ReentrancyGuard
}

// NewEngine constructs an engine with the supplied parameters.
func NewEngine(params Params) *Engine {
	if params.YieldScale == nil || params.YieldScale.Sign() <= 0 {
		params.YieldScale = new(big.Int).Set(DefaultYieldScale)
	}
	if params.FlushActivator == nil {
		params.FlushActivator = big.NewInt(0)
	}
	return &Engine{params: params, emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetLedger(ledger assetLedger) { e.ledger = ledger }

func (e *Engine) SetClaimToken(claims claimIssuer) { e.claims = claims }

func (e *Engine) SetDistributor(d Distributor) { e.distributor = d }

func (e *Engine) SetStrategies(r StrategyResolver) { e.strategies = r }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Params returns the seed parameters.
func (e *Engine) Params() Params { return e.params }

// ModuleAddress holds idle collateral.
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
	if e.distributor == nil {
		return ErrDistributorUnavailable
	}
	return nil
}

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

func (e *Engine) loadFacility() (*Facility, error) {
	f, err := e.state.GetFacility()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return newFacility(e.params), nil
	}
	if f.YieldIndex == nil {
		f.YieldIndex = fixedpoint.NewAccumulator(e.params.YieldScale)
	}
	if f.TotalDeposited == nil {
		f.TotalDeposited = big.NewInt(0)
	}
	if f.FlushActivator == nil {
		f.FlushActivator = big.NewInt(0)
	}
	return f, nil
}

func (e *Engine) loadPosition(f *Facility, owner common.Address) (*CollateralPosition, error) {
	pos, err := e.state.GetPosition(owner)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return newPosition(owner, f.YieldIndex.Index), nil
	}
	return pos, nil
}

// applyYield credits harvested yield earned since the last touch, paying
// down debt first and banking any excess as credit.
func applyYield(f *Facility, pos *CollateralPosition) {
	earned := f.YieldIndex.Owed(pos.YieldCheckpoint, pos.Collateral)
	pos.YieldCheckpoint = new(big.Int).Set(f.YieldIndex.Index)
	if earned.Sign() == 0 {
		return
	}
	if earned.Cmp(pos.Debt) <= 0 {
		pos.Debt.Sub(pos.Debt, earned)
		return
	}
	pos.Credit.Add(pos.Credit, earned.Sub(earned, pos.Debt))
	pos.Debt.SetInt64(0)
}

// healthy reports whether collateral covers debt at the limit.
func healthy(collateral, debt *big.Int, limitBps uint64) bool {
	if debt.Sign() == 0 {
		return true
	}
	lhs := new(big.Int).Mul(collateral, big.NewInt(fixedpoint.BasisPoints))
	rhs := new(big.Int).Mul(debt, new(big.Int).SetUint64(limitBps))
	return lhs.Cmp(rhs) >= 0
}

func (e *Engine) persist(f *Facility, positions ...*CollateralPosition) error {
	if err := e.state.PutFacility(f); err != nil {
		return err
	}
	for _, pos := range positions {
		if err := e.state.PutPosition(pos); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) idle() (*big.Int, error) {
	return e.ledger.Balance(e.params.ModuleAddress, e.params.UnderlyingAsset)
}

func (e *Engine) requireBalance(addr common.Address, amount *big.Int) error {
	bal, err := e.ledger.Balance(addr, e.params.UnderlyingAsset)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, addr.Hex(), bal, amount)
	}
	return nil
}

// Deposit moves underlying from the owner into the facility and flushes idle
// funds once they reach the activator.
func (e *Engine) Deposit(owner common.Address, amount *big.Int) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	f, err := e.loadFacility()
	if err != nil {
		return err
	}
	if f.EmergencyExit {
		return ErrEmergencyExit
	}
	if err := e.requireBalance(owner, amount); err != nil {
		return err
	}
	pos, err := e.loadPosition(f, owner)
	if err != nil {
		return err
	}
	applyYield(f, pos)
	pos.Collateral.Add(pos.Collateral, amount)
	f.TotalDeposited.Add(f.TotalDeposited, amount)
	if err := e.persist(f, pos); err != nil {
		return err
	}
	if err := e.ledger.Transfer(owner, e.params.ModuleAddress, e.params.UnderlyingAsset, amount); err != nil {
		return err
	}
	e.emit(WrapEvent(amountEvent(EventTypeDeposited, owner, amount, pos)))
	if !f.Initialized || f.FlushActivator.Sign() <= 0 {
		return nil
	}
	idle, err := e.idle()
	if err != nil {
		return err
	}
	if idle.Cmp(f.FlushActivator) < 0 {
		return nil
	}
	_, err = e.flush(f)
	return err
}

// Withdraw returns collateral to the owner provided the remaining position
// stays above the collateralization limit.
func (e *Engine) Withdraw(owner common.Address, amount *big.Int) (*big.Int, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(f, owner)
	if err != nil {
		return nil, err
	}
	applyYield(f, pos)
	if amount.Cmp(pos.Collateral) > 0 {
		return nil, fmt.Errorf("%w: collateral %s, requested %s", ErrExceedsCollateral, pos.Collateral, amount)
	}
	remaining := new(big.Int).Sub(pos.Collateral, amount)
	if !healthy(remaining, pos.Debt, f.CollateralizationLimitBps) {
		return nil, ErrUnhealthy
	}
	got, err := e.gather(f, amount)
	if err != nil {
		return nil, err
	}
	pos.Collateral.Sub(pos.Collateral, got)
	f.TotalDeposited = fixedpoint.SubFloor(f.TotalDeposited, got)
	if err := e.persist(f, pos); err != nil {
		return nil, err
	}
	if got.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.ModuleAddress, owner, e.params.UnderlyingAsset, got); err != nil {
			return nil, err
		}
	}
	e.emit(WrapEvent(amountEvent(EventTypeWithdrawn, owner, got, pos)))
	return got, nil
}

// Mint issues claim tokens to the owner, consuming banked credit before
// taking on new debt.
func (e *Engine) Mint(owner common.Address, amount *big.Int) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	f, err := e.loadFacility()
	if err != nil {
		return err
	}
	if f.EmergencyExit {
		return ErrEmergencyExit
	}
	pos, err := e.loadPosition(f, owner)
	if err != nil {
		return err
	}
	applyYield(f, pos)
	fromCredit := fixedpoint.Min(pos.Credit, amount)
	added := new(big.Int).Sub(amount, fromCredit)
	debt := new(big.Int).Add(pos.Debt, added)
	if !healthy(pos.Collateral, debt, f.CollateralizationLimitBps) {
		return fmt.Errorf("%w: collateral %s, debt %s", ErrLoanToValue, pos.Collateral, debt)
	}
	if err := e.claims.CheckMint(e.params.ModuleAddress, owner, amount); err != nil {
		return err
	}
	pos.Credit.Sub(pos.Credit, fromCredit)
	pos.Debt = debt
	if err := e.persist(f, pos); err != nil {
		return err
	}
	if err := e.claims.Mint(e.params.ModuleAddress, owner, amount); err != nil {
		return err
	}
	e.emit(WrapEvent(amountEvent(EventTypeMinted, owner, amount, pos)))
	return nil
}

// Repay pays debt down with underlying, which is forwarded to the
// distributor, and with claim tokens, which are burned.
func (e *Engine) Repay(owner common.Address, underlying, claim *big.Int) error {
	release, err := e.begin()
	if err != nil {
		return err
	}
	defer release()
	if underlying == nil {
		underlying = big.NewInt(0)
	}
	if claim == nil {
		claim = big.NewInt(0)
	}
	if underlying.Sign() < 0 || claim.Sign() < 0 {
		return ErrInvalidAmount
	}
	total := new(big.Int).Add(underlying, claim)
	if total.Sign() == 0 {
		return ErrInvalidAmount
	}
	f, err := e.loadFacility()
	if err != nil {
		return err
	}
	pos, err := e.loadPosition(f, owner)
	if err != nil {
		return err
	}
	applyYield(f, pos)
	if total.Cmp(pos.Debt) > 0 {
		return fmt.Errorf("%w: debt %s, repay %s", ErrRepayExceedsDebt, pos.Debt, total)
	}
	if underlying.Sign() > 0 {
		capacity, err := e.distributor.RedeemableCapacity(e.params.ModuleAddress)
		if err != nil {
			return err
		}
		if underlying.Cmp(capacity) > 0 {
			return fmt.Errorf("%w: capacity %s, repay %s", ErrInsufficientBacking, capacity, underlying)
		}
		if err := e.requireBalance(owner, underlying); err != nil {
			return err
		}
	}
	if claim.Sign() > 0 {
		bal, err := e.claims.BalanceOf(owner)
		if err != nil {
			return err
		}
		if bal.Cmp(claim) < 0 {
			return fmt.Errorf("%w: %s holds %s claim tokens, needs %s", ErrInsufficientFunds, owner.Hex(), bal, claim)
		}
	}
	pos.Debt.Sub(pos.Debt, total)
	if err := e.persist(f, pos); err != nil {
		return err
	}
	if underlying.Sign() > 0 {
		if err := e.ledger.Transfer(owner, e.params.ModuleAddress, e.params.UnderlyingAsset, underlying); err != nil {
			return err
		}
		if err := e.distributor.Distribute(e.params.ModuleAddress, e.params.ModuleAddress, underlying); err != nil {
			return err
		}
	}
	if err := e.claims.BurnFrom(e.params.ModuleAddress, owner, claim); err != nil {
		return err
	}
	e.emit(WrapEvent(repaidEvent(owner, underlying, claim, pos)))
	return nil
}

// Liquidate settles the owner's debt with their own collateral. The amount
// is capped by the debt, the collateral and what the distributor can absorb.
func (e *Engine) Liquidate(owner common.Address, amount *big.Int) (*big.Int, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	f, err := e.loadFacility()
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(f, owner)
	if err != nil {
		return nil, err
	}
	applyYield(f, pos)
	capacity, err := e.distributor.RedeemableCapacity(e.params.ModuleAddress)
	if err != nil {
		return nil, err
	}
	target := fixedpoint.Min(amount, pos.Debt, pos.Collateral, capacity)
	if target.Sign() == 0 {
		return nil, ErrNothingToLiquidate
	}
	got, err := e.gather(f, target)
	if err != nil {
		return nil, err
	}
	if got.Sign() == 0 {
		return nil, ErrNothingToLiquidate
	}
	pos.Debt.Sub(pos.Debt, got)
	pos.Collateral.Sub(pos.Collateral, got)
	f.TotalDeposited = fixedpoint.SubFloor(f.TotalDeposited, got)
	if err := e.persist(f, pos); err != nil {
		return nil, err
	}
	if err := e.distributor.Distribute(e.params.ModuleAddress, e.params.ModuleAddress, got); err != nil {
		return nil, err
	}
	e.emit(WrapEvent(amountEvent(EventTypeLiquidated, owner, got, pos)))
	return got, nil
}
