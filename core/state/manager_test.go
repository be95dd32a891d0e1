package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/claimtoken"
	"synthvault/native/fixedpoint"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
	"synthvault/storage"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestNamespaces(t *testing.T) {
	if got := string(BalanceKey(alice, " wbtc ")); got != "bank/balance/WBTC/00000000000000000000000000000000000000a1" {
		t.Fatalf("unexpected balance key: %s", got)
	}
	if got := string(SupplyKey("syn")); got != "bank/supply/SYN" {
		t.Fatalf("unexpected supply key: %s", got)
	}
	if got := string(TransmuterParticipantKey(7)); got != "transmuter/participants/7" {
		t.Fatalf("unexpected participant key: %s", got)
	}
	if got := string(VaultAdapterKey(2)); got != "vault/adapter/2" {
		t.Fatalf("unexpected adapter key: %s", got)
	}
}

func TestBalancesAndSupply(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	bal, err := m.Balance(alice, "WBTC")
	if err != nil || bal.Sign() != 0 {
		t.Fatalf("expected empty balance, got %v %v", bal, err)
	}
	if err := m.SetBalance(alice, "wbtc", big.NewInt(42)); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	bal, err = m.Balance(alice, "WBTC")
	if err != nil || bal.Int64() != 42 {
		t.Fatalf("expected 42, got %v %v", bal, err)
	}
	if err := m.SetBalance(alice, "WBTC", big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative balance to be rejected")
	}
	if err := m.SetBalance(alice, "WBTC", big.NewInt(0)); err != nil {
		t.Fatalf("clear balance: %v", err)
	}
	if ok, err := m.KVGet(BalanceKey(alice, "WBTC"), nil); err != nil || ok {
		t.Fatalf("zero balance should delete the key, ok=%v err=%v", ok, err)
	}
	if err := m.SetSupply("SYN", big.NewInt(9)); err != nil {
		t.Fatalf("set supply: %v", err)
	}
	supply, err := m.Supply("syn")
	if err != nil || supply.Int64() != 9 {
		t.Fatalf("expected supply 9, got %v %v", supply, err)
	}
}

func TestMinterRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if _, ok, err := m.ClaimTokenGetMinter(alice); err != nil || ok {
		t.Fatalf("expected no record, ok=%v err=%v", ok, err)
	}
	rec := &claimtoken.MinterRecord{Address: alice, Whitelisted: true, Ceiling: big.NewInt(1000), Issued: big.NewInt(10)}
	if err := m.ClaimTokenPutMinter(rec); err != nil {
		t.Fatalf("put minter: %v", err)
	}
	got, ok, err := m.ClaimTokenGetMinter(alice)
	if err != nil || !ok {
		t.Fatalf("get minter: ok=%v err=%v", ok, err)
	}
	if !got.Whitelisted || got.Blacklisted || got.Ceiling.Int64() != 1000 || got.Issued.Int64() != 10 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestTransmuterRecords(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	buf, err := m.TransmuterGetBuffer()
	if err != nil || buf != nil {
		t.Fatalf("expected empty buffer, got %v %v", buf, err)
	}
	acc := fixedpoint.NewAccumulator(nil)
	acc.Advance(big.NewInt(7), big.NewInt(3))
	stored := &transmuter.Buffer{
		TotalUndistributed: big.NewInt(500),
		LastUpdateBlock:    12,
		PeriodLength:       40,
		Accumulator:        acc,
		TotalStaked:        big.NewInt(3),
		TotalBucketed:      big.NewInt(1),
		Unbucketed:         big.NewInt(2),
	}
	if err := m.TransmuterPutBuffer(stored); err != nil {
		t.Fatalf("put buffer: %v", err)
	}
	buf, err = m.TransmuterGetBuffer()
	if err != nil {
		t.Fatalf("get buffer: %v", err)
	}
	if buf.TotalUndistributed.Int64() != 500 || buf.LastUpdateBlock != 12 || buf.PeriodLength != 40 {
		t.Fatalf("unexpected buffer: %+v", buf)
	}
	if buf.Accumulator.Index.Cmp(acc.Index) != 0 || buf.Accumulator.Carry.Cmp(acc.Carry) != 0 || buf.Accumulator.Scale.Cmp(acc.Scale) != 0 {
		t.Fatalf("accumulator mismatch: %+v vs %+v", buf.Accumulator, acc)
	}

	pos := &transmuter.StakePosition{Participant: alice, Staked: big.NewInt(5), Bucketed: big.NewInt(2), Realized: big.NewInt(1), Checkpoint: big.NewInt(99)}
	if err := m.TransmuterPutPosition(pos); err != nil {
		t.Fatalf("put position: %v", err)
	}
	got, err := m.TransmuterGetPosition(alice)
	if err != nil || got == nil || got.Staked.Int64() != 5 || got.Checkpoint.Int64() != 99 {
		t.Fatalf("unexpected position: %+v %v", got, err)
	}
	if missing, err := m.TransmuterGetPosition(bob); err != nil || missing != nil {
		t.Fatalf("expected no position for bob, got %+v %v", missing, err)
	}

	for _, addr := range []common.Address{bob, alice} {
		if err := m.TransmuterAppendParticipant(addr); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	count, err := m.TransmuterParticipantCount()
	if err != nil || count != 2 {
		t.Fatalf("expected two participants, got %d %v", count, err)
	}
	first, err := m.TransmuterParticipantAt(0)
	if err != nil || first != bob {
		t.Fatalf("expected bob first, got %s %v", first.Hex(), err)
	}
	if _, err := m.TransmuterParticipantAt(5); err != ErrMissingRecord {
		t.Fatalf("expected missing record, got %v", err)
	}

	if err := m.TransmuterSetWhitelisted(alice, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if ok, _ := m.TransmuterIsWhitelisted(alice); !ok {
		t.Fatalf("expected alice whitelisted")
	}
	if err := m.TransmuterSetWhitelisted(alice, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := m.TransmuterIsWhitelisted(alice); ok {
		t.Fatalf("expected alice revoked")
	}
}

func TestVaultRecords(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if f, err := m.VaultGetFacility(); err != nil || f != nil {
		t.Fatalf("expected empty facility, got %+v %v", f, err)
	}
	facility := &vault.Facility{
		Initialized:               true,
		ActiveAdapter:             1,
		AdapterCount:              2,
		TotalDeposited:            big.NewInt(5000),
		YieldIndex:                fixedpoint.NewAccumulator(vault.DefaultYieldScale),
		Governance:                alice,
		RewardsSink:               bob,
		CollateralizationLimitBps: 20_000,
		HarvestFeeBps:             1_000,
		FlushActivator:            big.NewInt(100),
	}
	if err := m.VaultPutFacility(facility); err != nil {
		t.Fatalf("put facility: %v", err)
	}
	got, err := m.VaultGetFacility()
	if err != nil {
		t.Fatalf("get facility: %v", err)
	}
	if !got.Initialized || got.ActiveAdapter != 1 || got.AdapterCount != 2 || got.Governance != alice || got.RewardsSink != bob {
		t.Fatalf("unexpected facility: %+v", got)
	}
	if got.YieldIndex.Scale.Cmp(vault.DefaultYieldScale) != 0 || got.FlushActivator.Int64() != 100 {
		t.Fatalf("unexpected facility amounts: %+v", got)
	}

	if err := m.VaultPutPosition(&vault.CollateralPosition{Owner: bob, Collateral: big.NewInt(10), Debt: big.NewInt(4)}); err != nil {
		t.Fatalf("put position: %v", err)
	}
	pos, err := m.VaultGetPosition(bob)
	if err != nil || pos.Collateral.Int64() != 10 || pos.Debt.Int64() != 4 || pos.Credit.Sign() != 0 {
		t.Fatalf("unexpected position: %+v %v", pos, err)
	}

	if err := m.VaultPutAdapter(&vault.Adapter{Index: 1, Address: alice, Asset: "WBTC", Principal: big.NewInt(77)}); err != nil {
		t.Fatalf("put adapter: %v", err)
	}
	adapter, err := m.VaultGetAdapter(1)
	if err != nil || adapter.Address != alice || adapter.Principal.Int64() != 77 {
		t.Fatalf("unexpected adapter: %+v %v", adapter, err)
	}
	if missing, err := m.VaultGetAdapter(0); err != nil || missing != nil {
		t.Fatalf("expected no adapter at 0, got %+v %v", missing, err)
	}
}

func TestJournalDiscardRestoresState(t *testing.T) {
	db := storage.NewMemDB()
	base := NewManager(db)
	if err := base.SetBalance(alice, "WBTC", big.NewInt(10)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	journal := storage.NewJournal(db)
	m := NewManager(journal)
	if err := m.SetBalance(alice, "WBTC", big.NewInt(3)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.SetBlockHeight(4); err != nil {
		t.Fatalf("height: %v", err)
	}
	journal.Discard()
	bal, err := base.Balance(alice, "WBTC")
	if err != nil || bal.Int64() != 10 {
		t.Fatalf("expected untouched balance, got %v %v", bal, err)
	}
	if err := m.SetBalance(alice, "WBTC", big.NewInt(3)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := journal.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	bal, err = base.Balance(alice, "WBTC")
	if err != nil || bal.Int64() != 3 {
		t.Fatalf("expected committed balance, got %v %v", bal, err)
	}
	height, err := base.BlockHeight()
	if err != nil || height != 0 {
		t.Fatalf("discarded height leaked: %d %v", height, err)
	}
}
