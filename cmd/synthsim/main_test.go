package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"synthvault/crypto"
)

func derived(t *testing.T, name string) string {
	t.Helper()
	key, err := crypto.DeterministicKey(name)
	require.NoError(t, err)
	return key.PubKey().Address().String()
}

func module(name string) string {
	return crypto.FromCommon(crypto.ModuleAddress(name)).String()
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func testConfig(t *testing.T, dir string) string {
	return writeFile(t, dir, "config.toml", fmt.Sprintf(`
[transmuter]
ModuleAddress = %q
Governance = %q
PeriodLength = 50

[vault]
ModuleAddress = %q
Governance = %q
RewardsSink = %q
FlushActivator = "1000"
InitialAdapter = %q

[token]
Admin = %q

[[assets.Strategies]]
Address = %q

[logging]
Level = "error"

[[genesis]]
Address = %q
Amount = "10000"
`, module("transmuter"), module("governance"), module("vault"), module("governance"),
		module("rewards"), module("reserve"), module("governance"), module("reserve"), derived(t, "alice")))
}

const happyScenario = `name: harvest-and-redeem
steps:
  - {kind: deposit, from: alice, amount: "5000"}
  - {kind: mint, from: alice, amount: "1000"}
  - {kind: mint, from: alice, amount: "5000", expect: invariant}
  - {kind: stake, from: alice, amount: "1000"}
  - {kind: accrue, amount: "100"}
  - {kind: harvest}
  - {kind: advance, blocks: 50}
  - {kind: transmute_and_claim, from: alice}
  - {kind: initialize, from: bob, target: reserve, expect: authorization}
`

func TestRunReplaysScenario(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testConfig(t, dir)
	scPath := writeFile(t, dir, "scenario.yaml", happyScenario)

	var out bytes.Buffer
	require.NoError(t, run(cfgPath, scPath, "", "", &out))

	var summary Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	require.Equal(t, "harvest-and-redeem", summary.Scenario)
	require.Equal(t, uint64(50), summary.Height)
	require.True(t, strings.HasPrefix(summary.StateRoot, "0x"))
	require.Len(t, summary.Steps, 9)
	require.Equal(t, "failed", summary.Steps[2].Status)
	require.Equal(t, "90", summary.Steps[5].Output["distributed"])
	require.Equal(t, "90", summary.Steps[7].Output["claimed"])

	alice, ok := summary.Participants["alice"]
	require.True(t, ok)
	require.Equal(t, derived(t, "alice"), alice.Address)
	require.Equal(t, int64(5090), alice.Underlying.Int64())
	require.Zero(t, alice.Claim.Sign())
	require.Equal(t, int64(910), alice.Stake.Staked.Int64())
	require.Equal(t, int64(910), alice.Collateral.Debt.Int64())
	require.True(t, summary.Facility.Initialized)
	require.Len(t, summary.Adapters, 1)
}

func TestRunFailsOnUnexpectedOutcome(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testConfig(t, dir)
	scPath := writeFile(t, dir, "scenario.yaml", `steps:
  - {kind: mint, from: alice, amount: "1"}
`)
	var out bytes.Buffer
	err := run(cfgPath, scPath, "", "", &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "step 0")
}

func TestRunPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testConfig(t, dir)
	data := filepath.Join(dir, "data")
	first := writeFile(t, dir, "first.yaml", `steps:
  - {kind: deposit, from: alice, amount: "700"}
  - {kind: advance, blocks: 3}
`)
	var out bytes.Buffer
	require.NoError(t, run(cfgPath, first, data, "", &out))

	second := writeFile(t, dir, "second.yaml", `steps:
  - {kind: withdraw, from: alice, amount: "200"}
`)
	out.Reset()
	require.NoError(t, run(cfgPath, second, data, "", &out))
	var summary Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	require.Equal(t, uint64(3), summary.Height)
	alice := summary.Participants["alice"]
	require.Equal(t, int64(500), alice.Collateral.Collateral.Int64())
	require.Equal(t, int64(9500), alice.Underlying.Int64(), "genesis is funded once")
}

func TestParseScenarioRejectsUnknownKinds(t *testing.T) {
	_, err := parseScenario([]byte("steps:\n  - {kind: teleport}\n"))
	require.Error(t, err)
	_, err = parseScenario([]byte("steps:\n  - {kind: stake, bogus: 1}\n"))
	require.Error(t, err)
	sc, err := parseScenario([]byte("steps:\n  - {kind: ADVANCE, blocks: 2}\n"))
	require.NoError(t, err)
	require.Equal(t, stepAdvance, sc.Steps[0].Kind)
}

func TestCheckExpectation(t *testing.T) {
	require.NoError(t, checkExpectation("", nil))
	require.Error(t, checkExpectation("error", nil))
	require.NoError(t, checkExpectation("error", fmt.Errorf("boom")))
	require.Error(t, checkExpectation("authorization", fmt.Errorf("boom")))
}
