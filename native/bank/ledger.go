// Package bank implements the fungible balance ledger shared by the
// underlying asset and the claim token.
package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
	"synthvault/core/events"
	"synthvault/core/types"
)

const (
	EventTypeTransfer = "bank.transfer"
	EventTypeMint     = "bank.mint"
	EventTypeBurn     = "bank.burn"
)

var (
	ErrInsufficientBalance = coreerr.New(coreerr.ErrInvariant, "bank: insufficient balance")
	ErrInvalidAmount       = coreerr.New(coreerr.ErrInvariant, "bank: invalid amount")
	ErrUnknownAsset        = coreerr.New(coreerr.ErrConfiguration, "bank: asset symbol required")
	errNilState            = errors.New("bank: state not configured")
)

type ledgerState interface {
	Balance(addr common.Address, asset string) (*big.Int, error)
	SetBalance(addr common.Address, asset string, amount *big.Int) error
	Supply(asset string) (*big.Int, error)
	SetSupply(asset string, amount *big.Int) error
}

// Ledger moves balances between accounts. Every method validates the full
// request before writing so a failed call leaves balances untouched.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func normalize(asset string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(asset))
	if trimmed == "" {
		return "", ErrUnknownAsset
	}
	return trimmed, nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Balance returns the holdings of addr in asset.
func (l *Ledger) Balance(addr common.Address, asset string) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	symbol, err := normalize(asset)
	if err != nil {
		return nil, err
	}
	return l.state.Balance(addr, symbol)
}

// Supply returns the outstanding supply of asset.
func (l *Ledger) Supply(asset string) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	symbol, err := normalize(asset)
	if err != nil {
		return nil, err
	}
	return l.state.Supply(symbol)
}

// Transfer moves amount of asset from one account to another. Zero amounts
// and self transfers succeed without writing.
func (l *Ledger) Transfer(from, to common.Address, asset string, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	symbol, err := normalize(asset)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBal, err := l.state.Balance(from, symbol)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBal, symbol, amount)
	}
	toBal, err := l.state.Balance(to, symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(from, symbol, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	if err := l.state.SetBalance(to, symbol, new(big.Int).Add(toBal, amount)); err != nil {
		return err
	}
	l.emitter.Emit(WrapEvent(&types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"asset":  symbol,
			"from":   from.Hex(),
			"to":     to.Hex(),
			"amount": amount.String(),
		},
	}))
	return nil
}

// Mint credits amount of asset to addr and grows supply. Authorisation is
// the caller's concern.
func (l *Ledger) Mint(to common.Address, asset string, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	symbol, err := normalize(asset)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := l.state.Balance(to, symbol)
	if err != nil {
		return err
	}
	supply, err := l.state.Supply(symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(to, symbol, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	if err := l.state.SetSupply(symbol, new(big.Int).Add(supply, amount)); err != nil {
		return err
	}
	l.emitter.Emit(WrapEvent(&types.Event{
		Type:       EventTypeMint,
		Attributes: map[string]string{"asset": symbol, "to": to.Hex(), "amount": amount.String()},
	}))
	return nil
}

// Burn debits amount of asset from addr and shrinks supply.
func (l *Ledger) Burn(from common.Address, asset string, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	symbol, err := normalize(asset)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := l.state.Balance(from, symbol)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s %s, burn %s", ErrInsufficientBalance, from.Hex(), bal, symbol, amount)
	}
	supply, err := l.state.Supply(symbol)
	if err != nil {
		return err
	}
	next := new(big.Int).Sub(supply, amount)
	if next.Sign() < 0 {
		next.SetInt64(0)
	}
	if err := l.state.SetBalance(from, symbol, new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	if err := l.state.SetSupply(symbol, next); err != nil {
		return err
	}
	l.emitter.Emit(WrapEvent(&types.Event{
		Type:       EventTypeBurn,
		Attributes: map[string]string{"asset": symbol, "from": from.Hex(), "amount": amount.String()},
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

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }
