// Command synthsim replays a scenario against the distributor and the
// collateral facility and prints the resulting state as JSON.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/config"
	"synthvault/core"
	"synthvault/core/types"
	"synthvault/crypto"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
	"synthvault/observability/logging"
	telemetry "synthvault/observability/otel"
	"synthvault/rpc"
	"synthvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	scenarioFile := flag.String("scenario", "", "Path to a YAML scenario to replay")
	dataDir := flag.String("data", "", "LevelDB directory (overrides [storage])")
	httpAddr := flag.String("http", "", "Serve the inspection API on this address after replay")
	flag.Parse()

	if err := run(*configFile, *scenarioFile, *dataDir, *httpAddr, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "synthsim: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, scenarioFile, dataDir, httpAddr string, out io.Writer) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.Storage.Backend = config.BackendLevelDB
		cfg.Storage.Path = dataDir
	}
	if httpAddr == "" {
		httpAddr = cfg.HTTPAddress
	}

	logger := logging.SetupWithOptions(logging.Options{
		Service:    cfg.ServiceName,
		Env:        cfg.Logging.Env,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:     cfg.ServiceName,
			Environment:     cfg.Logging.Env,
			Endpoint:        cfg.Telemetry.Endpoint,
			Insecure:        cfg.Telemetry.Insecure,
			Headers:         telemetry.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:         true,
			Traces:          true,
			SampleRatio:     cfg.Telemetry.SampleRatio,
			MetricsInterval: time.Duration(cfg.Telemetry.MetricsInterval) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	ecfg, err := cfg.ExecutorConfig()
	if err != nil {
		db.Close()
		return err
	}
	ecfg.Logger = logger
	x, err := core.NewExecutor(db, ecfg)
	if err != nil {
		db.Close()
		return fmt.Errorf("build executor: %w", err)
	}
	defer x.Close()

	if err := bootstrap(ctx, x, cfg, ecfg, logger); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	dir := newDirectory(ecfg)
	var results []StepResult
	var replayErr error
	name := ""
	if scenarioFile != "" {
		sc, err := loadScenario(scenarioFile)
		if err != nil {
			return err
		}
		name = sc.Name
		results, replayErr = replay(ctx, x, dir, sc)
		logger.Info("scenario replayed", "name", sc.Name, "steps", len(results), "error", replayErr)
	}

	summary, err := summarize(x, dir, name, results)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}
	if replayErr != nil {
		return replayErr
	}

	if httpAddr != "" {
		return rpc.Serve(ctx, httpAddr, rpc.NewHandler(x, logger), logger)
	}
	return nil
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Storage.Backend {
	case config.BackendLevelDB:
		return storage.NewLevelDB(cfg.Storage.Path)
	default:
		return storage.NewMemDB(), nil
	}
}

// bootstrap seeds genesis balances and the role wiring on a fresh store:
// the facility becomes a claim minter and a whitelisted distributor, and
// opens on its initial adapter when one is configured.
func bootstrap(ctx context.Context, x *core.Executor, cfg *config.Config, ecfg core.Config, logger *slog.Logger) error {
	empty, err := x.Empty()
	if err != nil || !empty {
		return err
	}
	balances, err := cfg.GenesisBalances()
	if err != nil {
		return err
	}
	for _, b := range balances {
		if err := x.Fund(ctx, b.Address, b.Asset, b.Amount); err != nil {
			return fmt.Errorf("fund %s: %w", b.Address.Hex(), err)
		}
	}
	ceiling, err := cfg.FacilityCeiling()
	if err != nil {
		return err
	}
	whitelist, err := cfg.DistributorWhitelist()
	if err != nil {
		return err
	}
	adapter, err := cfg.InitialAdapter()
	if err != nil {
		return err
	}

	facility := ecfg.Vault.ModuleAddress
	txs := []*types.Transaction{
		{Kind: types.TxSetMinter, From: ecfg.TokenAdmin, Target: facility, Flag: true},
		{Kind: types.TxSetWhitelist, From: ecfg.Transmuter.Governance, Target: facility, Flag: true},
	}
	if ceiling.Sign() > 0 {
		txs = append(txs, &types.Transaction{Kind: types.TxSetCeiling, From: ecfg.TokenAdmin, Target: facility, Amount: ceiling})
	}
	for _, addr := range whitelist {
		txs = append(txs, &types.Transaction{Kind: types.TxSetWhitelist, From: ecfg.Transmuter.Governance, Target: addr, Flag: true})
	}
	if adapter != (common.Address{}) {
		txs = append(txs, &types.Transaction{Kind: types.TxInitialize, From: ecfg.Vault.Governance, Target: adapter})
	}
	for _, tx := range txs {
		if _, err := x.Apply(ctx, tx); err != nil {
			return err
		}
	}
	logger.Info("genesis applied", "balances", len(balances), "txs", len(txs))
	return nil
}

type participantSummary struct {
	Address    string                   `json:"address"`
	Underlying *big.Int                 `json:"underlying"`
	Claim      *big.Int                 `json:"claim"`
	Stake      *transmuter.PositionView `json:"stake"`
	Collateral *vault.PositionView      `json:"collateral"`
}

// Summary is the JSON document printed after a run.
type Summary struct {
	Scenario     string                        `json:"scenario,omitempty"`
	Height       uint64                        `json:"height"`
	StateRoot    string                        `json:"stateRoot"`
	Steps        []StepResult                  `json:"steps,omitempty"`
	Buffer       *transmuter.BufferInfo        `json:"buffer"`
	Facility     *vault.Summary                `json:"facility"`
	Adapters     []*vault.Adapter              `json:"adapters"`
	Participants map[string]participantSummary `json:"participants"`
}

func summarize(x *core.Executor, dir *directory, name string, steps []StepResult) (*Summary, error) {
	root, err := x.StateRoot()
	if err != nil {
		return nil, err
	}
	buffer, err := x.Buffer()
	if err != nil {
		return nil, err
	}
	facility, err := x.Facility()
	if err != nil {
		return nil, err
	}
	adapters, err := x.Adapters()
	if err != nil {
		return nil, err
	}
	out := &Summary{
		Scenario:     name,
		Height:       x.Height(),
		StateRoot:    "0x" + hex.EncodeToString(root[:]),
		Steps:        steps,
		Buffer:       buffer,
		Facility:     facility,
		Adapters:     adapters,
		Participants: map[string]participantSummary{},
	}
	for label, addr := range dir.participants() {
		underlying, err := x.Balance(addr, x.UnderlyingSymbol())
		if err != nil {
			return nil, err
		}
		claim, err := x.Balance(addr, x.ClaimSymbol())
		if err != nil {
			return nil, err
		}
		stake, err := x.StakePosition(addr)
		if err != nil {
			return nil, err
		}
		collateral, err := x.CollateralPosition(addr)
		if err != nil {
			return nil, err
		}
		out.Participants[strings.ToLower(label)] = participantSummary{
			Address:    crypto.FromCommon(addr).String(),
			Underlying: underlying,
			Claim:      claim,
			Stake:      stake,
			Collateral: collateral,
		}
	}
	return out, nil
}
