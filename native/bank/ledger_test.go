package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
	"synthvault/core/events"
)

type mockLedgerState struct {
	balances map[string]*big.Int
	supplies map[string]*big.Int
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{balances: map[string]*big.Int{}, supplies: map[string]*big.Int{}}
}

func balanceKey(addr common.Address, asset string) string { return asset + ":" + addr.Hex() }

func (m *mockLedgerState) Balance(addr common.Address, asset string) (*big.Int, error) {
	if v, ok := m.balances[balanceKey(addr, asset)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedgerState) SetBalance(addr common.Address, asset string, amount *big.Int) error {
	m.balances[balanceKey(addr, asset)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockLedgerState) Supply(asset string) (*big.Int, error) {
	if v, ok := m.supplies[asset]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedgerState) SetSupply(asset string, amount *big.Int) error {
	m.supplies[asset] = new(big.Int).Set(amount)
	return nil
}

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestLedgerMintTransferBurn(t *testing.T) {
	ledger := NewLedger(newMockLedgerState())
	rec := &events.Recorder{}
	ledger.SetEmitter(rec)

	if err := ledger.Mint(alice, "wbtc", big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, "WBTC", big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := ledger.Burn(bob, "WBTC", big.NewInt(15)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	aliceBal, _ := ledger.Balance(alice, "WBTC")
	bobBal, _ := ledger.Balance(bob, "wbtc")
	supply, _ := ledger.Supply("WBTC")
	if aliceBal.Int64() != 60 || bobBal.Int64() != 25 || supply.Int64() != 85 {
		t.Fatalf("unexpected balances alice=%s bob=%s supply=%s", aliceBal, bobBal, supply)
	}
	evts := rec.Drain()
	if len(evts) != 3 || evts[0].EventType() != EventTypeMint || evts[1].EventType() != EventTypeTransfer || evts[2].EventType() != EventTypeBurn {
		t.Fatalf("unexpected events %+v", evts)
	}
}

func TestLedgerInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	state := newMockLedgerState()
	ledger := NewLedger(state)
	if err := ledger.Mint(alice, "WBTC", big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.Transfer(alice, bob, "WBTC", big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) || !errors.Is(err, coreerr.ErrInvariant) {
		t.Fatalf("expected insufficient balance invariant error, got %v", err)
	}
	if err := ledger.Burn(bob, "WBTC", big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected burn failure, got %v", err)
	}
	aliceBal, _ := ledger.Balance(alice, "WBTC")
	bobBal, _ := ledger.Balance(bob, "WBTC")
	if aliceBal.Int64() != 10 || bobBal.Sign() != 0 {
		t.Fatalf("state mutated alice=%s bob=%s", aliceBal, bobBal)
	}
}

func TestLedgerRejectsBadInput(t *testing.T) {
	ledger := NewLedger(newMockLedgerState())
	if err := ledger.Transfer(alice, bob, " ", big.NewInt(1)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected asset error, got %v", err)
	}
	if err := ledger.Mint(alice, "WBTC", big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected amount error, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, "WBTC", big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer should be a no-op: %v", err)
	}
}
