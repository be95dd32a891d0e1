// Package claimtoken implements the issued claim token: a fungible balance
// on the shared ledger whose supply can only grow through whitelisted
// minters, each bounded by its own ceiling.
package claimtoken

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
	"synthvault/core/events"
	"synthvault/core/types"
	nativecommon "synthvault/native/common"
)

const moduleName = "claimtoken"

const (
	EventTypeMinted         = "claimtoken.minted"
	EventTypeBurned         = "claimtoken.burned"
	EventTypeMinterUpdated  = "claimtoken.minter.updated"
	EventTypeCeilingUpdated = "claimtoken.ceiling.updated"
)

var (
	ErrNotAdmin        = coreerr.New(coreerr.ErrAuthorization, "claimtoken: only admin")
	ErrNotWhitelisted  = coreerr.New(coreerr.ErrAuthorization, "claimtoken: minter is not whitelisted")
	ErrBlacklisted     = coreerr.New(coreerr.ErrAuthorization, "claimtoken: account is blacklisted")
	ErrCeilingBreached = coreerr.New(coreerr.ErrInvariant, "claimtoken: ceiling was breached")
	ErrInvalidAmount   = coreerr.New(coreerr.ErrInvariant, "claimtoken: invalid amount")
	errNilState        = errors.New("claimtoken: state not configured")
)

// MinterRecord captures the issuance permissions and usage of one address.
type MinterRecord struct {
	Address     common.Address
	Whitelisted bool
	Blacklisted bool
	Ceiling     *big.Int
	Issued      *big.Int
}

func (r *MinterRecord) clone() *MinterRecord {
	out := &MinterRecord{
		Address:     r.Address,
		Whitelisted: r.Whitelisted,
		Blacklisted: r.Blacklisted,
		Ceiling:     big.NewInt(0),
		Issued:      big.NewInt(0),
	}
	if r.Ceiling != nil {
		out.Ceiling.Set(r.Ceiling)
	}
	if r.Issued != nil {
		out.Issued.Set(r.Issued)
	}
	return out
}

type tokenState interface {
	GetMinter(addr common.Address) (*MinterRecord, bool, error)
	PutMinter(record *MinterRecord) error
}

type balanceLedger interface {
	Balance(addr common.Address, asset string) (*big.Int, error)
	Supply(asset string) (*big.Int, error)
	Mint(to common.Address, asset string, amount *big.Int) error
	Burn(from common.Address, asset string, amount *big.Int) error
}

// Token gates issuance of the claim asset held on the shared ledger.
type Token struct {
	symbol  string
	admin   common.Address
	state   tokenState
	ledger  balanceLedger
	pauses  nativecommon.PauseView
	emitter events.Emitter
}

func NewToken(symbol string, admin common.Address) *Token {
	return &Token{symbol: symbol, admin: admin, emitter: events.NoopEmitter{}}
}

func (t *Token) SetState(state tokenState) { t.state = state }

func (t *Token) SetLedger(ledger balanceLedger) { t.ledger = ledger }

func (t *Token) SetPauses(p nativecommon.PauseView) { t.pauses = p }

func (t *Token) Symbol() string { return t.symbol }

func (t *Token) Admin() common.Address { return t.admin }

func (t *Token) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

func (t *Token) ready() error {
	if t == nil || t.state == nil || t.ledger == nil {
		return errNilState
	}
	return nil
}

func (t *Token) record(addr common.Address) (*MinterRecord, error) {
	rec, ok, err := t.state.GetMinter(addr)
	if err != nil {
		return nil, err
	}
	if !ok || rec == nil {
		return &MinterRecord{Address: addr, Ceiling: big.NewInt(0), Issued: big.NewInt(0)}, nil
	}
	return rec.clone(), nil
}

// Minter returns the issuance record of addr.
func (t *Token) Minter(addr common.Address) (*MinterRecord, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	return t.record(addr)
}

// Issued reports how much minter has outstanding against its ceiling.
func (t *Token) Issued(minter common.Address) (*big.Int, error) {
	rec, err := t.Minter(minter)
	if err != nil {
		return nil, err
	}
	return rec.Issued, nil
}

// CheckMint runs every issuance check without writing.
func (t *Token) CheckMint(minter, to common.Address, amount *big.Int) error {
	if err := t.ready(); err != nil {
		return err
	}
	_, err := t.checkMint(minter, to, amount)
	return err
}

func (t *Token) checkMint(minter, to common.Address, amount *big.Int) (*MinterRecord, error) {
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	rec, err := t.record(minter)
	if err != nil {
		return nil, err
	}
	if !rec.Whitelisted {
		return nil, ErrNotWhitelisted
	}
	if rec.Blacklisted {
		return nil, ErrBlacklisted
	}
	if to != minter {
		target, err := t.record(to)
		if err != nil {
			return nil, err
		}
		if target.Blacklisted {
			return nil, ErrBlacklisted
		}
	}
	next := new(big.Int).Add(rec.Issued, amount)
	if next.Cmp(rec.Ceiling) > 0 {
		return nil, fmt.Errorf("%w: issued %s, ceiling %s", ErrCeilingBreached, next, rec.Ceiling)
	}
	return rec, nil
}

// Mint issues amount to recipient on behalf of minter.
func (t *Token) Mint(minter, to common.Address, amount *big.Int) error {
	if err := t.ready(); err != nil {
		return err
	}
	rec, err := t.checkMint(minter, to, amount)
	if err != nil {
		return err
	}
	rec.Issued.Add(rec.Issued, amount)
	if err := t.state.PutMinter(rec); err != nil {
		return err
	}
	if err := t.ledger.Mint(to, t.symbol, amount); err != nil {
		return err
	}
	t.emitter.Emit(wrapEvent(&types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"minter": minter.Hex(),
			"to":     to.Hex(),
			"amount": amount.String(),
		},
	}))
	return nil
}

// Burn destroys amount of the holder's own balance.
func (t *Token) Burn(holder common.Address, amount *big.Int) error {
	if err := t.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := t.ledger.Burn(holder, t.symbol, amount); err != nil {
		return err
	}
	t.emitter.Emit(wrapEvent(&types.Event{
		Type:       EventTypeBurned,
		Attributes: map[string]string{"holder": holder.Hex(), "amount": amount.String()},
	}))
	return nil
}

// BurnFrom destroys amount of holder's balance on behalf of minter and lowers
// the minter's issued total, freeing ceiling headroom.
func (t *Token) BurnFrom(minter, holder common.Address, amount *big.Int) error {
	if err := t.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	rec, err := t.record(minter)
	if err != nil {
		return err
	}
	bal, err := t.ledger.Balance(holder, t.symbol)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder has %s", ErrInvalidAmount, bal)
	}
	rec.Issued.Sub(rec.Issued, amount)
	if rec.Issued.Sign() < 0 {
		rec.Issued.SetInt64(0)
	}
	if err := t.state.PutMinter(rec); err != nil {
		return err
	}
	if err := t.ledger.Burn(holder, t.symbol, amount); err != nil {
		return err
	}
	t.emitter.Emit(wrapEvent(&types.Event{
		Type: EventTypeBurned,
		Attributes: map[string]string{
			"minter": minter.Hex(),
			"holder": holder.Hex(),
			"amount": amount.String(),
		},
	}))
	return nil
}

func (t *Token) BalanceOf(addr common.Address) (*big.Int, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	return t.ledger.Balance(addr, t.symbol)
}

func (t *Token) TotalSupply() (*big.Int, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	return t.ledger.Supply(t.symbol)
}

func (t *Token) requireAdmin(caller common.Address) error {
	if caller != t.admin {
		return ErrNotAdmin
	}
	return nil
}

// SetWhitelist toggles minting rights for minter.
func (t *Token) SetWhitelist(caller, minter common.Address, allowed bool) error {
	return t.updateRecord(caller, minter, func(rec *MinterRecord) { rec.Whitelisted = allowed })
}

// SetBlacklist toggles the blacklist flag for addr.
func (t *Token) SetBlacklist(caller, addr common.Address, blocked bool) error {
	return t.updateRecord(caller, addr, func(rec *MinterRecord) { rec.Blacklisted = blocked })
}

// SetCeiling caps the total that minter may have outstanding.
func (t *Token) SetCeiling(caller, minter common.Address, ceiling *big.Int) error {
	if ceiling == nil || ceiling.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := t.updateRecord(caller, minter, func(rec *MinterRecord) { rec.Ceiling = new(big.Int).Set(ceiling) }); err != nil {
		return err
	}
	t.emitter.Emit(wrapEvent(&types.Event{
		Type:       EventTypeCeilingUpdated,
		Attributes: map[string]string{"minter": minter.Hex(), "ceiling": ceiling.String()},
	}))
	return nil
}

func (t *Token) updateRecord(caller, addr common.Address, apply func(*MinterRecord)) error {
	if err := t.ready(); err != nil {
		return err
	}
	if err := t.requireAdmin(caller); err != nil {
		return err
	}
	rec, err := t.record(addr)
	if err != nil {
		return err
	}
	apply(rec)
	if err := t.state.PutMinter(rec); err != nil {
		return err
	}
	t.emitter.Emit(wrapEvent(&types.Event{
		Type: EventTypeMinterUpdated,
		Attributes: map[string]string{
			"address":     addr.Hex(),
			"whitelisted": fmt.Sprintf("%t", rec.Whitelisted),
			"blacklisted": fmt.Sprintf("%t", rec.Blacklisted),
		},
	}))
	return nil
}

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

func wrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }
