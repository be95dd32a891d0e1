package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"synthvault/crypto"
	"synthvault/native/claimtoken"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
)

type fakeBackend struct {
	balances map[common.Address]*big.Int
	offset   uint64
	limit    uint64
}

func (f *fakeBackend) Height() uint64 { return 42 }

func (f *fakeBackend) StateRoot() ([32]byte, error) {
	var root [32]byte
	root[0] = 0xab
	return root, nil
}

func (f *fakeBackend) Buffer() (*transmuter.BufferInfo, error) {
	return &transmuter.BufferInfo{TotalUndistributed: big.NewInt(90), PeriodLength: 50}, nil
}

func (f *fakeBackend) StakePosition(addr common.Address) (*transmuter.PositionView, error) {
	return &transmuter.PositionView{Participant: addr, Staked: big.NewInt(10)}, nil
}

func (f *fakeBackend) StakePositions(offset, limit uint64) ([]*transmuter.PositionView, error) {
	f.offset, f.limit = offset, limit
	return []*transmuter.PositionView{}, nil
}

func (f *fakeBackend) RedeemableCapacity(common.Address) (*big.Int, error) {
	return big.NewInt(7), nil
}

func (f *fakeBackend) Facility() (*vault.Summary, error) {
	return &vault.Summary{Initialized: true, TotalDeposited: big.NewInt(5000)}, nil
}

func (f *fakeBackend) Adapters() ([]*vault.Adapter, error) {
	return []*vault.Adapter{{Index: 0, Asset: "WBTC", Principal: big.NewInt(5000)}}, nil
}

func (f *fakeBackend) CollateralPosition(owner common.Address) (*vault.PositionView, error) {
	return &vault.PositionView{Owner: owner, Collateral: big.NewInt(5000), Debt: big.NewInt(910)}, nil
}

func (f *fakeBackend) Balance(addr common.Address, asset string) (*big.Int, error) {
	if bal, ok := f.balances[addr]; ok && asset == "WBTC" {
		return bal, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeBackend) Minter(addr common.Address) (*claimtoken.MinterRecord, error) {
	return &claimtoken.MinterRecord{Address: addr, Whitelisted: true, Ceiling: big.NewInt(100), Issued: big.NewInt(30)}, nil
}

var alice = common.HexToAddress("0x00000000000000000000000000000000000000c1")

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestStateAndFacilityRoutes(t *testing.T) {
	h := NewHandler(&fakeBackend{}, nil)

	rec, body := get(t, h, "/v1/state")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 42, body["height"])
	require.True(t, strings.HasPrefix(body["root"].(string), "0xab"))

	rec, body = get(t, h, "/v1/vault/facility")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["initialized"])
	require.EqualValues(t, 5000, body["totalDeposited"])

	rec, body = get(t, h, "/v1/transmuter/buffer")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 90, body["totalUndistributed"])

	rec, _ = get(t, h, "/v1/vault/adapters")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "WBTC")
}

func TestPositionRoutesAcceptBech32(t *testing.T) {
	h := NewHandler(&fakeBackend{}, nil)
	display := crypto.FromCommon(alice).String()

	rec, body := get(t, h, "/v1/vault/positions/"+display)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 910, body["debt"])

	rec, body = get(t, h, "/v1/transmuter/positions/"+alice.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 10, body["staked"])

	rec, body = get(t, h, "/v1/transmuter/capacity/"+alice.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 7, body["capacity"])

	rec, body = get(t, h, "/v1/vault/positions/not-an-address")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotEmpty(t, body["error"])
}

func TestBalanceAndMinterRoutes(t *testing.T) {
	backend := &fakeBackend{balances: map[common.Address]*big.Int{alice: big.NewInt(1234)}}
	h := NewHandler(backend, nil)

	rec, body := get(t, h, "/v1/balances/"+alice.Hex()+"/wbtc")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1234, body["balance"])
	require.Equal(t, "WBTC", body["asset"])
	require.Equal(t, crypto.FromCommon(alice).String(), body["address"])

	rec, body = get(t, h, "/v1/minters/"+alice.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["whitelisted"])
	require.EqualValues(t, 30, body["issued"])
}

func TestPagingParameters(t *testing.T) {
	backend := &fakeBackend{}
	h := NewHandler(backend, nil)
	rec, _ := get(t, h, "/v1/transmuter/positions?offset=5&limit=20")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint64(5), backend.offset)
	require.Equal(t, uint64(20), backend.limit)

	rec, _ = get(t, h, "/v1/transmuter/positions?offset=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewHandler(&fakeBackend{}, nil)
	rec, _ := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	get(t, h, "/v1/state")
	rec, _ = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "synthvault_rpc_requests_total")
}
