package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"synthvault/core"
	coreerr "synthvault/core/errors"
	"synthvault/core/types"
	"synthvault/crypto"
)

const (
	stepAdvance = "advance"
	stepFund    = "fund"
	stepAccrue  = "accrue"
	stepPause   = "pause"
)

// Scenario is a scripted sequence of steps replayed against the executor.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is either a control step (advance, fund, accrue, pause) or a
// transaction named by its kind. Participants are referred to by name.
type Step struct {
	Kind      string `yaml:"kind"`
	From      string `yaml:"from"`
	Target    string `yaml:"target"`
	Asset     string `yaml:"asset"`
	Amount    string `yaml:"amount"`
	Secondary string `yaml:"secondary"`
	Index     uint64 `yaml:"index"`
	Flag      bool   `yaml:"flag"`
	Blocks    uint64 `yaml:"blocks"`
	Module    string `yaml:"module"`
	// Expect is "ok" (default), "error" or an error kind such as
	// "authorization" that the step must fail with.
	Expect string `yaml:"expect"`
}

func loadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScenario(raw)
}

func parseScenario(raw []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	for i := range sc.Steps {
		step := &sc.Steps[i]
		step.Kind = strings.ToLower(strings.TrimSpace(step.Kind))
		switch step.Kind {
		case stepAdvance, stepFund, stepAccrue, stepPause:
		default:
			if _, err := types.ParseTxKind(step.Kind); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
	}
	return &sc, nil
}

// directory resolves participant names to addresses. Role names map to the
// configured module and governance accounts, anything else is derived.
type directory struct {
	roles map[string]common.Address
	names map[common.Address]string
}

func newDirectory(ecfg core.Config) *directory {
	d := &directory{roles: map[string]common.Address{}, names: map[common.Address]string{}}
	d.roles["governance"] = ecfg.Vault.Governance
	d.roles["distributor_governance"] = ecfg.Transmuter.Governance
	d.roles["admin"] = ecfg.TokenAdmin
	d.roles["transmuter"] = ecfg.Transmuter.ModuleAddress
	d.roles["vault"] = ecfg.Vault.ModuleAddress
	d.roles["rewards"] = ecfg.Vault.RewardsSink
	if ecfg.Vault.Sentinel != (common.Address{}) {
		d.roles["sentinel"] = ecfg.Vault.Sentinel
	}
	for i, s := range ecfg.Strategies {
		d.roles[fmt.Sprintf("reserve%d", i)] = s.Address
		if i == 0 {
			d.roles["reserve"] = s.Address
		}
	}
	return d
}

func (d *directory) resolve(name string) (common.Address, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return common.Address{}, nil
	}
	if addr, ok := d.roles[strings.ToLower(trimmed)]; ok {
		return addr, nil
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, string(crypto.SynPrefix)+"1") {
		return crypto.ParseAddress(trimmed)
	}
	key, err := crypto.DeterministicKey(strings.ToLower(trimmed))
	if err != nil {
		return common.Address{}, err
	}
	addr := key.PubKey().Address().Common()
	d.names[addr] = strings.ToLower(trimmed)
	return addr, nil
}

// participants lists every derived name seen so far.
func (d *directory) participants() map[string]common.Address {
	out := make(map[string]common.Address, len(d.names))
	for addr, name := range d.names {
		out[name] = addr
	}
	return out
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

// StepResult records how one step ended.
type StepResult struct {
	Step    int               `json:"step"`
	Kind    string            `json:"kind"`
	Status  string            `json:"status"`
	Error   string            `json:"error,omitempty"`
	Output  map[string]string `json:"output,omitempty"`
	Events  int               `json:"events,omitempty"`
	Height  uint64            `json:"height"`
	Receipt string            `json:"receipt,omitempty"`
}

// replay runs every step in order. A step whose outcome contradicts its
// Expect aborts the run.
func replay(ctx context.Context, x *core.Executor, dir *directory, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	var nonce uint64
	for i, step := range sc.Steps {
		res := StepResult{Step: i, Kind: step.Kind}
		err := runStep(ctx, x, dir, step, &nonce, &res)
		res.Height = x.Height()
		if err != nil {
			res.Status = "failed"
			res.Error = err.Error()
		} else {
			res.Status = "ok"
		}
		results = append(results, res)
		if mismatch := checkExpectation(step.Expect, err); mismatch != nil {
			return results, fmt.Errorf("step %d (%s): %w", i, step.Kind, mismatch)
		}
	}
	return results, nil
}

func checkExpectation(expect string, err error) error {
	switch want := strings.ToLower(strings.TrimSpace(expect)); want {
	case "", "ok":
		return err
	case "error":
		if err == nil {
			return errors.New("expected failure, step succeeded")
		}
		return nil
	default:
		if err == nil {
			return fmt.Errorf("expected %s failure, step succeeded", want)
		}
		if got := coreerr.KindName(err); got != want {
			return fmt.Errorf("expected %s failure, got %s: %v", want, got, err)
		}
		return nil
	}
}

func runStep(ctx context.Context, x *core.Executor, dir *directory, step Step, nonce *uint64, res *StepResult) error {
	amount, err := parseAmount(step.Amount)
	if err != nil {
		return err
	}
	switch step.Kind {
	case stepAdvance:
		blocks := step.Blocks
		if blocks == 0 && amount != nil {
			blocks = amount.Uint64()
		}
		_, err := x.AdvanceBlocks(blocks)
		return err
	case stepFund:
		to, err := dir.resolve(firstNonEmpty(step.Target, step.From))
		if err != nil {
			return err
		}
		asset := step.Asset
		if asset == "" {
			asset = x.UnderlyingSymbol()
		}
		return x.Fund(ctx, to, asset, amount)
	case stepAccrue:
		strat, err := dir.resolve(firstNonEmpty(step.Target, "reserve"))
		if err != nil {
			return err
		}
		return x.AccrueYield(ctx, strat, amount)
	case stepPause:
		x.SetPaused(step.Module, step.Flag)
		return nil
	}

	from, err := dir.resolve(step.From)
	if err != nil {
		return err
	}
	target, err := dir.resolve(step.Target)
	if err != nil {
		return err
	}
	secondary, err := parseAmount(step.Secondary)
	if err != nil {
		return err
	}
	*nonce++
	tx := &types.Transaction{
		Kind:      types.TxKind(step.Kind),
		Nonce:     *nonce,
		From:      from,
		Target:    target,
		Amount:    amount,
		Secondary: secondary,
		Index:     step.Index,
		Flag:      step.Flag,
	}
	receipt, err := x.Apply(ctx, tx)
	if receipt != nil {
		res.Receipt = receipt.ID
		res.Output = receipt.Output
		res.Events = len(receipt.Events)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
