package transmuter

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	coreerr "synthvault/core/errors"
	"synthvault/native/bank"
	nativecommon "synthvault/native/common"
)

type mockEngineState struct {
	buffer       *Buffer
	positions    map[common.Address]*StakePosition
	participants []common.Address
	whitelist    map[common.Address]bool
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		positions: make(map[common.Address]*StakePosition),
		whitelist: make(map[common.Address]bool),
	}
}

func (m *mockEngineState) GetBuffer() (*Buffer, error) { return m.buffer.Clone(), nil }

func (m *mockEngineState) PutBuffer(buf *Buffer) error {
	m.buffer = buf.Clone()
	return nil
}

func (m *mockEngineState) GetPosition(addr common.Address) (*StakePosition, error) {
	return m.positions[addr].Clone(), nil
}

func (m *mockEngineState) PutPosition(pos *StakePosition) error {
	m.positions[pos.Participant] = pos.Clone()
	return nil
}

func (m *mockEngineState) ParticipantCount() (uint64, error) {
	return uint64(len(m.participants)), nil
}

func (m *mockEngineState) ParticipantAt(index uint64) (common.Address, error) {
	return m.participants[index], nil
}

func (m *mockEngineState) AppendParticipant(addr common.Address) error {
	m.participants = append(m.participants, addr)
	return nil
}

func (m *mockEngineState) IsWhitelisted(addr common.Address) (bool, error) {
	return m.whitelist[addr], nil
}

func (m *mockEngineState) SetWhitelisted(addr common.Address, allowed bool) error {
	m.whitelist[addr] = allowed
	return nil
}

type mockLedgerState struct {
	balances map[string]*big.Int
	supplies map[string]*big.Int
}

func (m *mockLedgerState) Balance(addr common.Address, asset string) (*big.Int, error) {
	if v, ok := m.balances[asset+addr.Hex()]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedgerState) SetBalance(addr common.Address, asset string, amount *big.Int) error {
	m.balances[asset+addr.Hex()] = new(big.Int).Set(amount)
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

type ledgerBurner struct {
	ledger *bank.Ledger
}

func (b ledgerBurner) Burn(holder common.Address, amount *big.Int) error {
	return b.ledger.Burn(holder, claimAsset, amount)
}

const (
	claimAsset      = "SYN"
	underlyingAsset = "WBTC"
)

var (
	governance = common.HexToAddress("0x0000000000000000000000000000000000000ad0")
	moduleAddr = common.HexToAddress("0x00000000000000000000000000000000000007a0")
	origin     = common.HexToAddress("0x000000000000000000000000000000000000fa17")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	carol      = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

type harness struct {
	t      *testing.T
	engine *Engine
	state  *mockEngineState
	ledger *bank.Ledger
}

func newHarness(t *testing.T, period uint64) *harness {
	t.Helper()
	params := DefaultParams()
	params.ModuleAddress = moduleAddr
	params.Governance = governance
	params.ClaimAsset = claimAsset
	params.UnderlyingAsset = underlyingAsset
	params.PeriodLength = period
	if err := params.Validate(); err != nil {
		t.Fatalf("params: %v", err)
	}
	state := newMockEngineState()
	state.whitelist[origin] = true
	ledger := bank.NewLedger(&mockLedgerState{balances: map[string]*big.Int{}, supplies: map[string]*big.Int{}})
	engine := NewEngine(params)
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetClaimToken(ledgerBurner{ledger: ledger})
	return &harness{t: t, engine: engine, state: state, ledger: ledger}
}

func e8(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(100_000_000))
}

func (h *harness) at(height uint64) *harness {
	h.engine.SetBlockHeight(height)
	return h
}

func (h *harness) stake(addr common.Address, amount *big.Int) {
	h.t.Helper()
	if err := h.ledger.Mint(addr, claimAsset, amount); err != nil {
		h.t.Fatalf("fund claim: %v", err)
	}
	if err := h.engine.Stake(addr, amount); err != nil {
		h.t.Fatalf("stake: %v", err)
	}
}

func (h *harness) distribute(amount *big.Int) {
	h.t.Helper()
	if err := h.ledger.Mint(origin, underlyingAsset, amount); err != nil {
		h.t.Fatalf("fund underlying: %v", err)
	}
	if err := h.engine.Distribute(origin, origin, amount); err != nil {
		h.t.Fatalf("distribute: %v", err)
	}
}

func (h *harness) position(addr common.Address) *PositionView {
	h.t.Helper()
	view, err := h.engine.Position(addr)
	if err != nil {
		h.t.Fatalf("position: %v", err)
	}
	return view
}

func (h *harness) balance(addr common.Address, asset string) *big.Int {
	h.t.Helper()
	bal, err := h.ledger.Balance(addr, asset)
	if err != nil {
		h.t.Fatalf("balance: %v", err)
	}
	return bal
}

func requireInt(t *testing.T, label string, got *big.Int, want int64) {
	t.Helper()
	if got == nil || got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s: want %d got %v", label, want, got)
	}
}

func TestStakeAccumulates(t *testing.T) {
	h := newHarness(t, 10).at(1)
	h.stake(alice, big.NewInt(300))
	h.stake(alice, big.NewInt(200))

	requireInt(t, "staked", h.position(alice).Staked, 500)
	info, err := h.engine.BufferInfo()
	if err != nil {
		t.Fatalf("buffer info: %v", err)
	}
	requireInt(t, "total staked", info.TotalStaked, 500)
	requireInt(t, "pool balance", h.balance(moduleAddr, claimAsset), 500)
	requireInt(t, "wallet balance", h.balance(alice, claimAsset), 0)
}

func TestStakeWithoutFundsFails(t *testing.T) {
	h := newHarness(t, 10).at(1)
	err := h.engine.Stake(alice, big.NewInt(1))
	if !errors.Is(err, ErrTransferFailed) || !errors.Is(err, coreerr.ErrInvariant) {
		t.Fatalf("expected transfer invariant error, got %v", err)
	}
	if h.state.buffer != nil || len(h.state.participants) != 0 {
		t.Fatalf("failed stake must not write state")
	}
}

func TestUnstakeBounds(t *testing.T) {
	h := newHarness(t, 10).at(1)
	h.stake(alice, big.NewInt(100))

	err := h.engine.Unstake(alice, big.NewInt(101))
	if !errors.Is(err, ErrExceedsDeposit) || !errors.Is(err, coreerr.ErrInvariant) {
		t.Fatalf("expected exceeds deposit, got %v", err)
	}
	requireInt(t, "staked after failure", h.position(alice).Staked, 100)

	if err := h.engine.Unstake(alice, big.NewInt(100)); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	requireInt(t, "staked", h.position(alice).Staked, 0)
	requireInt(t, "wallet", h.balance(alice, claimAsset), 100)
}

func TestTransmuteMatchesReferencePrecision(t *testing.T) {
	h := newHarness(t, 40_320).at(1)
	h.stake(alice, e8(1_000))
	h.at(10).distribute(e8(500))

	out, err := h.at(11).engine.Transmute(alice)
	if err != nil {
		t.Fatalf("transmute: %v", err)
	}
	requireInt(t, "transmuted", out.Transmuted, 1_240_000)
	view := h.position(alice)
	requireInt(t, "realized", view.Realized, 1_240_000)
	want := new(big.Int).Sub(e8(1_000), big.NewInt(1_240_000))
	if view.Staked.Cmp(want) != 0 {
		t.Fatalf("staked: want %s got %s", want, view.Staked)
	}

	claimed, err := h.engine.Claim(alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	requireInt(t, "claimed", claimed, 1_240_000)
	requireInt(t, "wallet", h.balance(alice, underlyingAsset), 1_240_000)
	requireInt(t, "realized after claim", h.position(alice).Realized, 0)
}

func TestEqualStakesReceiveEqualShares(t *testing.T) {
	h := newHarness(t, 40_320).at(1)
	h.stake(alice, e8(1_000))
	h.stake(bob, e8(1_000))
	h.at(10).distribute(e8(500))

	out, err := h.at(11).engine.Transmute(alice)
	if err != nil {
		t.Fatalf("transmute: %v", err)
	}
	requireInt(t, "alice", out.Transmuted, 620_000)
	requireInt(t, "bob pending", h.position(bob).Pending, 620_000)
}

func TestFullPeriodRedeemsEverything(t *testing.T) {
	h := newHarness(t, 1).at(1)
	h.stake(alice, big.NewInt(1_000))
	h.distribute(big.NewInt(500))

	out, err := h.at(2).engine.Transmute(alice)
	if err != nil {
		t.Fatalf("transmute: %v", err)
	}
	requireInt(t, "transmuted", out.Transmuted, 500)
	view := h.position(alice)
	requireInt(t, "realized", view.Realized, 500)
	requireInt(t, "staked", view.Staked, 500)
	info, _ := h.engine.BufferInfo()
	requireInt(t, "buffer residue", info.TotalUndistributed, 0)
	requireInt(t, "claim supply", mustSupply(t, h, claimAsset), 500)
}

func mustSupply(t *testing.T, h *harness, asset string) *big.Int {
	t.Helper()
	supply, err := h.ledger.Supply(asset)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	return supply
}

func TestProportionalSplit(t *testing.T) {
	h := newHarness(t, 10).at(1)
	h.stake(alice, big.NewInt(500))
	h.stake(bob, big.NewInt(250))
	h.stake(carol, big.NewInt(250))
	h.distribute(big.NewInt(400))
	h.at(11)

	total := big.NewInt(0)
	realized := map[common.Address]*big.Int{}
	for _, addr := range []common.Address{alice, bob, carol} {
		out, err := h.engine.Transmute(addr)
		if err != nil {
			t.Fatalf("transmute %s: %v", addr.Hex(), err)
		}
		realized[addr] = out.Transmuted
		total.Add(total, out.Transmuted)
	}
	requireInt(t, "alice", realized[alice], 200)
	pair := new(big.Int).Add(realized[bob], realized[carol])
	if pair.Cmp(realized[alice]) != 0 {
		t.Fatalf("250-stakers together (%s) should equal 500-staker (%s)", pair, realized[alice])
	}
	requireInt(t, "conservation", total, 400)
	info, _ := h.engine.BufferInfo()
	requireInt(t, "undistributed", info.TotalUndistributed, 0)
}

func TestLinearRelease(t *testing.T) {
	h := newHarness(t, 20).at(1)
	h.stake(alice, big.NewInt(1_000))
	h.distribute(big.NewInt(1_000))

	h.at(6)
	requireInt(t, "quarter", h.position(alice).Pending, 250)
	info, _ := h.engine.BufferInfo()
	requireInt(t, "pending release", info.PendingRelease, 250)
	if info.ElapsedBlocks != 5 {
		t.Fatalf("elapsed: want 5 got %d", info.ElapsedBlocks)
	}
	requireInt(t, "buffer untouched by queries", info.TotalUndistributed, 1_000)

	h.at(11)
	requireInt(t, "half", h.position(alice).Pending, 500)
}

func TestDistributionWaitsForFirstStaker(t *testing.T) {
	h := newHarness(t, 10).at(1)
	h.distribute(big.NewInt(100))
	h.at(20).stake(alice, big.NewInt(100))
	requireInt(t, "no retroactive pending", h.position(alice).Pending, 0)
	h.at(30)
	requireInt(t, "pending", h.position(alice).Pending, 100)
}

// overflowSetup leaves alice (D) fully redeemable with bob (M) and carol (U)
// staked behind her.
func overflowSetup(t *testing.T) *harness {
	h := newHarness(t, 1).at(1)
	h.stake(alice, big.NewInt(100))
	h.distribute(big.NewInt(90))
	h.at(2).stake(bob, big.NewInt(200))
	h.distribute(big.NewInt(60))
	h.at(3).stake(carol, big.NewInt(200))
	return h
}

func TestOverflowIsRedistributedToOtherStakers(t *testing.T) {
	h := overflowSetup(t)
	out, err := h.engine.Transmute(alice)
	if err != nil {
		t.Fatalf("transmute: %v", err)
	}
	requireInt(t, "alice transmuted", out.Transmuted, 100)
	alicePos := h.position(alice)
	requireInt(t, "alice staked", alicePos.Staked, 0)
	requireInt(t, "alice realized", alicePos.Realized, 100)

	bobPos := h.position(bob)
	carolPos := h.position(carol)
	requireInt(t, "bob pending", bobPos.Pending, 45)
	requireInt(t, "carol pending", carolPos.Pending, 5)

	sum := new(big.Int).Add(alicePos.Realized, bobPos.Pending)
	sum.Add(sum, carolPos.Pending)
	requireInt(t, "conservation", sum, 150)
}

func TestUnstakeRecapsBucket(t *testing.T) {
	h := newHarness(t, 1).at(1)
	h.stake(alice, big.NewInt(100))
	h.stake(bob, big.NewInt(100))
	h.distribute(big.NewInt(100))

	if err := h.at(2).engine.Unstake(alice, big.NewInt(80)); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	alicePos := h.position(alice)
	requireInt(t, "alice staked", alicePos.Staked, 20)
	requireInt(t, "alice bucket capped", alicePos.Bucketed, 20)
	requireInt(t, "bob pending", h.position(bob).Pending, 80)
}

func TestForceTransmutePaysIncentiveAndTarget(t *testing.T) {
	h := overflowSetup(t)
	incentive, err := h.engine.ForceTransmute(bob, alice)
	if err != nil {
		t.Fatalf("force transmute: %v", err)
	}
	requireInt(t, "incentive", incentive, 1)
	requireInt(t, "target paid", h.balance(alice, underlyingAsset), 99)

	alicePos := h.position(alice)
	requireInt(t, "alice staked", alicePos.Staked, 0)
	requireInt(t, "alice bucket", alicePos.Bucketed, 0)

	bobPos := h.position(bob)
	requireInt(t, "bob realized", bobPos.Realized, 1)
	requireInt(t, "bob bucketed overflow", bobPos.Bucketed, 45)
	requireInt(t, "carol pending", h.position(carol).Pending, 5)
	requireInt(t, "pool claim balance", h.balance(moduleAddr, claimAsset), 400)
}

func TestForceTransmuteRequiresOverflow(t *testing.T) {
	h := newHarness(t, 20).at(1)
	h.stake(alice, big.NewInt(1_000))
	h.distribute(big.NewInt(1_000))

	_, err := h.at(2).engine.ForceTransmute(bob, alice)
	if !errors.Is(err, ErrNotOverflowed) || !errors.Is(err, coreerr.ErrInvariant) {
		t.Fatalf("expected !overflow, got %v", err)
	}
	if _, err := h.engine.ForceTransmute(bob, carol); !errors.Is(err, ErrNotOverflowed) {
		t.Fatalf("unknown target should not be overflowed, got %v", err)
	}
}

func TestForceTransmuteSelfWhenAlone(t *testing.T) {
	h := newHarness(t, 10).at(1)
	h.stake(alice, big.NewInt(1))
	h.distribute(big.NewInt(50))

	incentive, err := h.at(11).engine.ForceTransmute(alice, alice)
	if err != nil {
		t.Fatalf("force transmute: %v", err)
	}
	requireInt(t, "incentive", incentive, 0)
	requireInt(t, "payout", h.balance(alice, underlyingAsset), 1)
	info, _ := h.engine.BufferInfo()
	requireInt(t, "excess returned to buffer", info.TotalUndistributed, 49)
	requireInt(t, "total staked", info.TotalStaked, 0)
}

func TestDistributeRequiresWhitelist(t *testing.T) {
	h := newHarness(t, 20).at(1)
	h.stake(alice, big.NewInt(1_000))
	_ = h.ledger.Mint(alice, underlyingAsset, big.NewInt(1_000))

	err := h.engine.Distribute(alice, alice, big.NewInt(1_000))
	if !errors.Is(err, ErrNotWhitelisted) || !errors.Is(err, coreerr.ErrAuthorization) {
		t.Fatalf("expected !whitelisted, got %v", err)
	}
	requireInt(t, "funds untouched", h.balance(alice, underlyingAsset), 1_000)
}

func TestPositionsPagination(t *testing.T) {
	h := newHarness(t, 20).at(1)
	h.stake(alice, big.NewInt(1_000))
	h.stake(bob, big.NewInt(1_000))
	h.stake(alice, big.NewInt(1))
	h.distribute(big.NewInt(5_000))

	count, _ := h.engine.ParticipantCount()
	if count != 2 {
		t.Fatalf("expected 2 participants, got %d", count)
	}
	page, err := h.engine.Positions(0, 2)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(page) != 2 || page[0].Participant != alice || page[1].Participant != bob {
		t.Fatalf("unexpected page %+v", page)
	}
	if page, _ := h.engine.Positions(1, 10); len(page) != 1 {
		t.Fatalf("expected one trailing position, got %d", len(page))
	}
	if page, _ := h.engine.Positions(5, 1); len(page) != 0 {
		t.Fatalf("expected empty page, got %d", len(page))
	}
	if page, _ := h.engine.Positions(0, 0); len(page) != 2 {
		t.Fatalf("zero limit should use the page size, got %d", len(page))
	}
}

func TestReleaseThreshold(t *testing.T) {
	cases := []struct {
		total   int64
		elapsed uint64
		want    int64
	}{
		{total: 1, elapsed: 5, want: 0},
		{total: 2, elapsed: 5, want: 0},
		{total: 3, elapsed: 5, want: 1},
		{total: 1_000, elapsed: 5, want: 500},
		{total: 7, elapsed: 10, want: 7},
	}
	for _, tc := range cases {
		got := releasable(big.NewInt(tc.total), tc.elapsed, 10)
		requireInt(t, "released", got, tc.want)
	}

	h := newHarness(t, 10).at(1)
	h.stake(alice, big.NewInt(100))
	h.distribute(big.NewInt(2))
	requireInt(t, "dust at threshold", h.at(6).position(alice).Pending, 0)
	requireInt(t, "dust after full window", h.at(11).position(alice).Pending, 2)
}

func TestExitKeepsRealized(t *testing.T) {
	h := newHarness(t, 1).at(1)
	h.stake(alice, big.NewInt(100))
	h.distribute(big.NewInt(40))

	out, err := h.at(2).engine.Exit(alice)
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	requireInt(t, "transmuted", out.Transmuted, 40)
	requireInt(t, "unstaked", out.Unstaked, 60)
	requireInt(t, "claim returned", h.balance(alice, claimAsset), 60)
	requireInt(t, "realized kept", h.position(alice).Realized, 40)
	requireInt(t, "no payout yet", h.balance(alice, underlyingAsset), 0)

	claimed, err := h.engine.Claim(alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	requireInt(t, "claimed", claimed, 40)
}

func TestTransmuteClaimAndWithdraw(t *testing.T) {
	h := newHarness(t, 1).at(1)
	h.stake(bob, big.NewInt(100))
	h.distribute(big.NewInt(30))

	out, err := h.at(2).engine.TransmuteClaimAndWithdraw(bob)
	if err != nil {
		t.Fatalf("transmute claim withdraw: %v", err)
	}
	requireInt(t, "claimed", out.Claimed, 30)
	requireInt(t, "unstaked", out.Unstaked, 70)
	requireInt(t, "underlying", h.balance(bob, underlyingAsset), 30)
	requireInt(t, "claim", h.balance(bob, claimAsset), 70)
	view := h.position(bob)
	requireInt(t, "staked", view.Staked, 0)
	requireInt(t, "realized", view.Realized, 0)
}

func TestTransmuteAndClaim(t *testing.T) {
	h := newHarness(t, 1).at(1)
	h.stake(bob, big.NewInt(100))
	h.distribute(big.NewInt(30))

	out, err := h.at(2).engine.TransmuteAndClaim(bob)
	if err != nil {
		t.Fatalf("transmute and claim: %v", err)
	}
	requireInt(t, "claimed", out.Claimed, 30)
	requireInt(t, "still staked", h.position(bob).Staked, 70)
}

func TestTransmuteWithEmptyBucketFails(t *testing.T) {
	h := newHarness(t, 10).at(1)
	h.stake(alice, big.NewInt(100))
	if _, err := h.engine.Transmute(alice); !errors.Is(err, ErrNothingToTransmute) {
		t.Fatalf("expected nothing to transmute, got %v", err)
	}
	if _, err := h.engine.Transmute(bob); !errors.Is(err, ErrNothingToTransmute) {
		t.Fatalf("expected nothing to transmute for unknown participant, got %v", err)
	}
}

func TestRedeemableCapacity(t *testing.T) {
	h := newHarness(t, 10).at(1)
	h.stake(alice, big.NewInt(1_000))
	capacity, err := h.engine.RedeemableCapacity(origin)
	if err != nil {
		t.Fatalf("capacity: %v", err)
	}
	requireInt(t, "capacity", capacity, 1_000)

	h.distribute(big.NewInt(300))
	capacity, _ = h.engine.RedeemableCapacity(origin)
	requireInt(t, "capacity after distribute", capacity, 700)

	h.at(11)
	if _, err := h.engine.Transmute(alice); err != nil {
		t.Fatalf("transmute: %v", err)
	}
	capacity, _ = h.engine.RedeemableCapacity(origin)
	requireInt(t, "capacity after redemption", capacity, 700)

	capacity, _ = h.engine.RedeemableCapacity(bob)
	requireInt(t, "non-whitelisted", capacity, 0)
}

func TestPauseBlocksMutations(t *testing.T) {
	h := newHarness(t, 10).at(1)
	pauses := nativecommon.NewPauses()
	pauses.Set(moduleName, true)
	h.engine.SetPauses(pauses)
	_ = h.ledger.Mint(alice, claimAsset, big.NewInt(1))
	if err := h.engine.Stake(alice, big.NewInt(1)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
}

func TestGovernanceControls(t *testing.T) {
	h := newHarness(t, 10).at(1)
	if err := h.engine.SetWhitelist(alice, bob, true); !errors.Is(err, ErrNotGovernance) || !errors.Is(err, coreerr.ErrAuthorization) {
		t.Fatalf("expected governance error, got %v", err)
	}
	if err := h.engine.SetWhitelist(governance, bob, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if ok, _ := h.engine.IsWhitelisted(bob); !ok {
		t.Fatalf("bob should be whitelisted")
	}
	if err := h.engine.SetPeriod(governance, 0); !errors.Is(err, ErrInvalidPeriod) || !errors.Is(err, coreerr.ErrConfiguration) {
		t.Fatalf("expected period configuration error, got %v", err)
	}
	if err := h.engine.SetPeriod(governance, 5); err != nil {
		t.Fatalf("set period: %v", err)
	}
	info, _ := h.engine.BufferInfo()
	if info.PeriodLength != 5 {
		t.Fatalf("period not stored: %d", info.PeriodLength)
	}
}
