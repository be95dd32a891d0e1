// Package core wires the engines onto shared state and applies transactions
// one at a time. Each transaction runs against a journal that is committed
// on success and discarded on failure.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	coreerr "synthvault/core/errors"
	"synthvault/core/events"
	"synthvault/core/state"
	"synthvault/core/types"
	"synthvault/native/bank"
	"synthvault/native/claimtoken"
	nativecommon "synthvault/native/common"
	"synthvault/native/strategy"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
	"synthvault/observability"
	"synthvault/storage"
)

const instrumentationName = "synthvault/core"

// StrategySpec registers a reserve strategy at startup.
type StrategySpec struct {
	Address        common.Address
	Asset          string
	LiquidityLimit *big.Int
}

// Config wires an executor.
type Config struct {
	Transmuter transmuter.Params
	Vault      vault.Params
	// TokenAdmin administers the claim token's minter records.
	TokenAdmin common.Address
	Strategies []StrategySpec
	Logger     *slog.Logger
}

// Executor applies transactions sequentially against journaled state.
type Executor struct {
	mu         sync.Mutex
	journal    *storage.Journal
	state      *state.Manager
	ledger     *bank.Ledger
	token      *claimtoken.Token
	transmuter *transmuter.Engine
	vault      *vault.Engine
	strategies *strategy.Registry
	pauses     *nativecommon.Pauses
	recorder   *events.Recorder
	height     uint64
	logger     *slog.Logger
	tracer     trace.Tracer
	applied    metric.Int64Counter
}

// NewExecutor builds the engines over db and restores the stored block
// height.
func NewExecutor(db storage.Database, cfg Config) (*Executor, error) {
	if db == nil {
		return nil, coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("executor: database required"))
	}
	if err := cfg.Transmuter.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Vault.Validate(); err != nil {
		return nil, err
	}
	if !strings.EqualFold(cfg.Transmuter.UnderlyingAsset, cfg.Vault.UnderlyingAsset) {
		return nil, coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("executor: distributor underlying %s differs from facility underlying %s", cfg.Transmuter.UnderlyingAsset, cfg.Vault.UnderlyingAsset))
	}
	if cfg.TokenAdmin == (common.Address{}) {
		return nil, coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("executor: token admin required"))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	journal := storage.NewJournal(db)
	manager := state.NewManager(journal)
	recorder := &events.Recorder{}
	pauses := nativecommon.NewPauses()

	ledger := bank.NewLedger(manager)
	ledger.SetEmitter(recorder)

	token := claimtoken.NewToken(cfg.Transmuter.ClaimAsset, cfg.TokenAdmin)
	token.SetState(tokenStateAdapter{manager: manager})
	token.SetLedger(ledger)
	token.SetPauses(pauses)
	token.SetEmitter(recorder)

	registry := strategy.NewRegistry()
	for _, entry := range cfg.Strategies {
		if !strings.EqualFold(entry.Asset, cfg.Vault.UnderlyingAsset) {
			logger.Warn("strategy asset differs from facility underlying", "strategy", entry.Address.Hex(), "asset", entry.Asset)
		}
		reserve := strategy.NewReserve(entry.Address, strings.ToUpper(strings.TrimSpace(entry.Asset)), ledger)
		reserve.SetLiquidityLimit(entry.LiquidityLimit)
		if err := registry.Add(reserve); err != nil {
			return nil, err
		}
	}

	dist := transmuter.NewEngine(cfg.Transmuter)
	dist.SetState(transmuterStateAdapter{manager: manager})
	dist.SetLedger(ledger)
	dist.SetClaimToken(token)
	dist.SetPauses(pauses)
	dist.SetEmitter(recorder)

	facility := vault.NewEngine(cfg.Vault)
	facility.SetState(vaultStateAdapter{manager: manager})
	facility.SetLedger(ledger)
	facility.SetClaimToken(token)
	facility.SetDistributor(dist)
	facility.SetStrategies(strategyResolver{registry: registry})
	facility.SetPauses(pauses)
	facility.SetEmitter(recorder)

	height, err := manager.BlockHeight()
	if err != nil {
		return nil, err
	}
	applied, err := otel.Meter(instrumentationName).Int64Counter("synthvault.executor.applied",
		metric.WithDescription("Transactions applied by the executor."))
	if err != nil {
		return nil, err
	}
	observability.Executor().SetHeight(height)
	return &Executor{
		journal:    journal,
		state:      manager,
		ledger:     ledger,
		token:      token,
		transmuter: dist,
		vault:      facility,
		strategies: registry,
		pauses:     pauses,
		recorder:   recorder,
		height:     height,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		applied:    applied,
	}, nil
}

// Height returns the current block height.
func (x *Executor) Height() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.height
}

// AdvanceBlocks moves the block counter forward by n and persists it.
func (x *Executor) AdvanceBlocks(n uint64) (uint64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	next := x.height + n
	if next < x.height {
		return x.height, coreerr.Tag(coreerr.ErrArithmetic, fmt.Errorf("executor: block height overflow"))
	}
	if err := x.state.SetBlockHeight(next); err != nil {
		x.journal.Discard()
		return x.height, err
	}
	if err := x.journal.Commit(); err != nil {
		return x.height, err
	}
	x.height = next
	observability.Executor().SetHeight(next)
	return next, nil
}

// SetPaused pauses or resumes a module ("transmuter", "vault" or
// "claimtoken"). Pauses are operator controls and are not persisted.
func (x *Executor) SetPaused(module string, paused bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pauses.Set(module, paused)
	x.logger.Info("module pause updated", "module", module, "paused", paused)
}

// Fund mints asset to addr. It seeds genesis balances and simulated inflows.
func (x *Executor) Fund(ctx context.Context, addr common.Address, asset string, amount *big.Int) error {
	return x.operate(ctx, "fund", func() error {
		return x.ledger.Mint(addr, asset, amount)
	})
}

// AccrueYield credits amount of underlying to a registered strategy,
// simulating yield earned by the venue.
func (x *Executor) AccrueYield(ctx context.Context, strategyAddr common.Address, amount *big.Int) error {
	return x.operate(ctx, "accrue", func() error {
		reserve, ok := x.strategies.Reserve(strategyAddr)
		if !ok {
			return fmt.Errorf("%w: %s", vault.ErrUnregisteredStrategy, strategyAddr.Hex())
		}
		return reserve.Accrue(amount)
	})
}

// operate runs fn inside the journal without producing a receipt.
func (x *Executor) operate(ctx context.Context, name string, fn func() error) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, span := x.tracer.Start(ctx, "executor."+name)
	defer span.End()
	x.recorder.Reset()
	if err := fn(); err != nil {
		x.journal.Discard()
		x.recorder.Reset()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	x.recorder.Reset()
	return x.journal.Commit()
}

// Apply executes tx. On failure the returned receipt is marked failed, the
// error is returned alongside it and no state changes survive.
func (x *Executor) Apply(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("executor: nil transaction"))
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	ctx, span := x.tracer.Start(ctx, "executor.Apply", trace.WithAttributes(
		attribute.String("tx.kind", string(tx.Kind)),
		attribute.String("tx.from", tx.From.Hex()),
		attribute.Int64("block", int64(x.height)),
	))
	defer span.End()
	start := time.Now()

	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	receipt := &types.Receipt{
		ID:     uuid.NewString(),
		TxHash: hash,
		Kind:   tx.Kind,
		Block:  x.height,
		Status: types.ReceiptSuccess,
	}
	x.recorder.Reset()
	x.transmuter.SetBlockHeight(x.height)

	output, err := x.dispatch(tx)
	if err == nil {
		err = x.journal.Commit()
	}
	if err != nil {
		x.journal.Discard()
		x.recorder.Reset()
		err = coreerr.Wrapf(err, "apply %s", tx.Kind)
		receipt.Status = types.ReceiptFailed
		receipt.Error = err.Error()
		receipt.ErrorKind = coreerr.KindName(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, receipt.ErrorKind)
		observability.Executor().ObserveTx(string(tx.Kind), receipt.ErrorKind, time.Since(start))
		x.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(tx.Kind)), attribute.String("outcome", "error")))
		x.logger.Warn("transaction rejected",
			"id", receipt.ID, "kind", tx.Kind, "from", tx.From.Hex(), "block", x.height,
			"error_kind", receipt.ErrorKind, "error", err)
		return receipt, err
	}

	receipt.Output = output
	for _, evt := range x.recorder.Drain() {
		observability.Events().Record(evt.EventType())
		if payload, ok := evt.(interface{ Event() *types.Event }); ok && payload.Event() != nil {
			receipt.Events = append(receipt.Events, *payload.Event())
		}
	}
	x.recordTotals(tx, output)
	observability.Executor().ObserveTx(string(tx.Kind), "", time.Since(start))
	x.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(tx.Kind)), attribute.String("outcome", "ok")))
	x.logger.Debug("transaction applied",
		"id", receipt.ID, "kind", tx.Kind, "from", tx.From.Hex(), "block", x.height, "events", len(receipt.Events))
	return receipt, nil
}

func (x *Executor) recordTotals(tx *types.Transaction, output map[string]string) {
	m := observability.Executor()
	switch tx.Kind {
	case types.TxHarvest:
		if v, ok := new(big.Int).SetString(output["yield"], 10); ok {
			m.AddHarvested(v)
		}
	case types.TxLiquidate:
		if v, ok := new(big.Int).SetString(output["amount"], 10); ok {
			m.AddLiquidated(v)
		}
	}
	if info, err := x.transmuter.BufferInfo(); err == nil {
		m.SetBuffer("undistributed", info.TotalUndistributed)
		m.SetBuffer("staked", info.TotalStaked)
		m.SetBuffer("bucketed", info.TotalBucketed)
	}
	if summary, err := x.vault.Summary(); err == nil {
		m.SetFacility("deposited", summary.TotalDeposited)
		m.SetFacility("idle", summary.IdleBalance)
	}
}

// StateRoot is the BLAKE3 digest of every committed state record.
func (x *Executor) StateRoot() ([32]byte, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.journal.Digest(state.StatePrefix())
}

var errStopIteration = errors.New("stop iteration")

// Empty reports whether no state has been committed yet.
func (x *Executor) Empty() (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	empty := true
	err := x.journal.Iterate(state.StatePrefix(), func(_, _ []byte) error {
		empty = false
		return errStopIteration
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return false, err
	}
	return empty, nil
}

// Close releases the backing store.
func (x *Executor) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.journal.Close()
}
