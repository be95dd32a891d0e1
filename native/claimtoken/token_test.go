package claimtoken

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
	"synthvault/native/bank"
	nativecommon "synthvault/native/common"
)

type mockState struct {
	minters  map[common.Address]*MinterRecord
	balances map[string]*big.Int
	supplies map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		minters:  map[common.Address]*MinterRecord{},
		balances: map[string]*big.Int{},
		supplies: map[string]*big.Int{},
	}
}

func (m *mockState) GetMinter(addr common.Address) (*MinterRecord, bool, error) {
	rec, ok := m.minters[addr]
	if !ok {
		return nil, false, nil
	}
	return rec.clone(), true, nil
}

func (m *mockState) PutMinter(rec *MinterRecord) error {
	m.minters[rec.Address] = rec.clone()
	return nil
}

func (m *mockState) Balance(addr common.Address, asset string) (*big.Int, error) {
	if v, ok := m.balances[asset+addr.Hex()]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetBalance(addr common.Address, asset string, amount *big.Int) error {
	m.balances[asset+addr.Hex()] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) Supply(asset string) (*big.Int, error) {
	if v, ok := m.supplies[asset]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetSupply(asset string, amount *big.Int) error {
	m.supplies[asset] = new(big.Int).Set(amount)
	return nil
}

var (
	admin  = common.HexToAddress("0x0000000000000000000000000000000000000ad0")
	vault  = common.HexToAddress("0x000000000000000000000000000000000000fa17")
	holder = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

func newTestToken(t *testing.T) (*Token, *mockState) {
	t.Helper()
	state := newMockState()
	token := NewToken("SYN", admin)
	token.SetState(state)
	token.SetLedger(bank.NewLedger(state))
	return token, state
}

func TestMintRequiresWhitelistAndRespectsCeiling(t *testing.T) {
	token, _ := newTestToken(t)

	err := token.Mint(vault, holder, big.NewInt(10))
	if !errors.Is(err, ErrNotWhitelisted) || !errors.Is(err, coreerr.ErrAuthorization) {
		t.Fatalf("expected whitelist authorization error, got %v", err)
	}

	if err := token.SetWhitelist(admin, vault, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := token.SetCeiling(admin, vault, big.NewInt(100)); err != nil {
		t.Fatalf("ceiling: %v", err)
	}
	if err := token.Mint(vault, holder, big.NewInt(60)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err = token.Mint(vault, holder, big.NewInt(41))
	if !errors.Is(err, ErrCeilingBreached) || !errors.Is(err, coreerr.ErrInvariant) {
		t.Fatalf("expected ceiling breach, got %v", err)
	}
	bal, _ := token.BalanceOf(holder)
	supply, _ := token.TotalSupply()
	if bal.Int64() != 60 || supply.Int64() != 60 {
		t.Fatalf("unexpected balance %s supply %s", bal, supply)
	}
}

func TestBlacklistBlocksMinterAndRecipient(t *testing.T) {
	token, _ := newTestToken(t)
	_ = token.SetWhitelist(admin, vault, true)
	_ = token.SetCeiling(admin, vault, big.NewInt(1_000))

	if err := token.SetBlacklist(admin, holder, true); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if err := token.CheckMint(vault, holder, big.NewInt(1)); !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("expected recipient blacklist, got %v", err)
	}
	if err := token.SetBlacklist(admin, vault, true); err != nil {
		t.Fatalf("blacklist minter: %v", err)
	}
	if err := token.Mint(vault, vault, big.NewInt(1)); !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("expected minter blacklist, got %v", err)
	}
}

func TestAdminGatesConfiguration(t *testing.T) {
	token, _ := newTestToken(t)
	if err := token.SetWhitelist(holder, vault, true); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected admin error, got %v", err)
	}
}

func TestBurnFromLowersIssued(t *testing.T) {
	token, _ := newTestToken(t)
	_ = token.SetWhitelist(admin, vault, true)
	_ = token.SetCeiling(admin, vault, big.NewInt(100))
	if err := token.Mint(vault, holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := token.BurnFrom(vault, holder, big.NewInt(30)); err != nil {
		t.Fatalf("burn from: %v", err)
	}
	issued, err := token.Issued(vault)
	if err != nil {
		t.Fatalf("issued: %v", err)
	}
	if issued.Int64() != 70 {
		t.Fatalf("expected issued 70, got %s", issued)
	}
	if err := token.Mint(vault, holder, big.NewInt(30)); err != nil {
		t.Fatalf("headroom should be restored: %v", err)
	}
	if err := token.BurnFrom(vault, holder, big.NewInt(101)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected over-burn rejection, got %v", err)
	}
}

func TestMintHonoursPause(t *testing.T) {
	token, _ := newTestToken(t)
	_ = token.SetWhitelist(admin, vault, true)
	_ = token.SetCeiling(admin, vault, big.NewInt(100))
	pauses := nativecommon.NewPauses()
	pauses.Set(moduleName, true)
	token.SetPauses(pauses)
	if err := token.Mint(vault, holder, big.NewInt(1)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected pause error, got %v", err)
	}
}
