// Package strategy provides yield strategies the vault can deploy idle
// collateral into.
package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
)

var (
	ErrInvalidAmount    = coreerr.New(coreerr.ErrInvariant, "strategy: invalid amount")
	ErrUnfunded         = coreerr.New(coreerr.ErrInvariant, "strategy: deposit not funded")
	ErrDuplicate        = coreerr.New(coreerr.ErrConfiguration, "strategy: address already registered")
	ErrZeroAddress      = coreerr.New(coreerr.ErrConfiguration, "strategy: zero address")
	errLedgerNotPresent = errors.New("strategy: ledger not configured")
)

type assetLedger interface {
	Balance(addr common.Address, asset string) (*big.Int, error)
	Transfer(from, to common.Address, asset string, amount *big.Int) error
	Mint(to common.Address, asset string, amount *big.Int) error
}

// Reserve is a strategy that keeps deposits at its own ledger address. Its
// value is whatever that address holds, so yield shows up as soon as anything
// credits the address. An optional liquidity limit caps a single withdrawal
// to model an illiquid venue.
type Reserve struct {
	address   common.Address
	asset     string
	ledger    assetLedger
	liquidity *big.Int
}

func NewReserve(address common.Address, asset string, ledger assetLedger) *Reserve {
	return &Reserve{address: address, asset: asset, ledger: ledger}
}

func (r *Reserve) Address() common.Address { return r.address }

func (r *Reserve) Asset() string { return r.asset }

// SetLiquidityLimit caps how much a single Withdraw can return. Nil removes
// the cap.
func (r *Reserve) SetLiquidityLimit(limit *big.Int) {
	if limit == nil {
		r.liquidity = nil
		return
	}
	r.liquidity = new(big.Int).Set(limit)
}

// Deposit acknowledges funds the caller already moved to the reserve.
func (r *Reserve) Deposit(amount *big.Int) error {
	if r.ledger == nil {
		return errLedgerNotPresent
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	held, err := r.ledger.Balance(r.address, r.asset)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holds %s, deposit %s", ErrUnfunded, held, amount)
	}
	return nil
}

// Withdraw sends up to amount to recipient and reports what was sent.
func (r *Reserve) Withdraw(recipient common.Address, amount *big.Int) (*big.Int, error) {
	if r.ledger == nil {
		return nil, errLedgerNotPresent
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	held, err := r.ledger.Balance(r.address, r.asset)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Set(amount)
	if out.Cmp(held) > 0 {
		out.Set(held)
	}
	if r.liquidity != nil && out.Cmp(r.liquidity) > 0 {
		out.Set(r.liquidity)
	}
	if out.Sign() == 0 {
		return out, nil
	}
	if err := r.ledger.Transfer(r.address, recipient, r.asset, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentValue reports principal plus accrued yield.
func (r *Reserve) CurrentValue() (*big.Int, error) {
	if r.ledger == nil {
		return nil, errLedgerNotPresent
	}
	return r.ledger.Balance(r.address, r.asset)
}

// Accrue credits freshly minted yield to the reserve.
func (r *Reserve) Accrue(amount *big.Int) error {
	if r.ledger == nil {
		return errLedgerNotPresent
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return r.ledger.Mint(r.address, r.asset, amount)
}

// Registry resolves strategies by address.
type Registry struct {
	mu       sync.RWMutex
	reserves map[common.Address]*Reserve
}

func NewRegistry() *Registry {
	return &Registry{reserves: make(map[common.Address]*Reserve)}
}

// Add registers r under its address.
func (g *Registry) Add(r *Reserve) error {
	if r == nil || r.address == (common.Address{}) {
		return ErrZeroAddress
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.reserves[r.address]; exists {
		return ErrDuplicate
	}
	g.reserves[r.address] = r
	return nil
}

// Reserve returns the concrete reserve registered at addr.
func (g *Registry) Reserve(addr common.Address) (*Reserve, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.reserves[addr]
	return r, ok
}

// Addresses lists registered strategies in ascending byte order.
func (g *Registry) Addresses() []common.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]common.Address, 0, len(g.reserves))
	for addr := range g.reserves {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
