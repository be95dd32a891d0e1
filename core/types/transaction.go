package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxKind names the engine operation a transaction invokes.
type TxKind string

const (
	// Distributor operations.
	TxStake                     TxKind = "stake"
	TxUnstake                   TxKind = "unstake"
	TxDistribute                TxKind = "distribute"
	TxTransmute                 TxKind = "transmute"
	TxClaim                     TxKind = "claim"
	TxTransmuteAndClaim         TxKind = "transmute_and_claim"
	TxExit                      TxKind = "exit"
	TxTransmuteClaimAndWithdraw TxKind = "transmute_claim_and_withdraw"
	TxForceTransmute            TxKind = "force_transmute"
	TxSetWhitelist              TxKind = "set_whitelist"
	TxSetPeriod                 TxKind = "set_period"

	// Facility operations.
	TxDeposit                   TxKind = "deposit"
	TxWithdraw                  TxKind = "withdraw"
	TxMint                      TxKind = "mint"
	TxRepay                     TxKind = "repay"
	TxLiquidate                 TxKind = "liquidate"
	TxHarvest                   TxKind = "harvest"
	TxFlush                     TxKind = "flush"
	TxInitialize                TxKind = "initialize"
	TxMigrate                   TxKind = "migrate"
	TxRecall                    TxKind = "recall"
	TxRecallAll                 TxKind = "recall_all"
	TxSetEmergencyExit          TxKind = "set_emergency_exit"
	TxSetHarvestFee             TxKind = "set_harvest_fee"
	TxSetCollateralizationLimit TxKind = "set_collateralization_limit"
	TxSetFlushActivator         TxKind = "set_flush_activator"
	TxSetRewards                TxKind = "set_rewards"
	TxSetGovernance             TxKind = "set_governance"
	TxSetSentinel               TxKind = "set_sentinel"

	// Claim token administration.
	TxSetMinter  TxKind = "set_minter"
	TxSetBlocked TxKind = "set_blacklist"
	TxSetCeiling TxKind = "set_ceiling"
)

var knownKinds = map[TxKind]struct{}{
	TxStake: {}, TxUnstake: {}, TxDistribute: {}, TxTransmute: {}, TxClaim: {},
	TxTransmuteAndClaim: {}, TxExit: {}, TxTransmuteClaimAndWithdraw: {},
	TxForceTransmute: {}, TxSetWhitelist: {}, TxSetPeriod: {},
	TxDeposit: {}, TxWithdraw: {}, TxMint: {}, TxRepay: {}, TxLiquidate: {},
	TxHarvest: {}, TxFlush: {}, TxInitialize: {}, TxMigrate: {}, TxRecall: {},
	TxRecallAll: {}, TxSetEmergencyExit: {}, TxSetHarvestFee: {},
	TxSetCollateralizationLimit: {}, TxSetFlushActivator: {}, TxSetRewards: {},
	TxSetGovernance: {}, TxSetSentinel: {},
	TxSetMinter: {}, TxSetBlocked: {}, TxSetCeiling: {},
}

// ParseTxKind normalizes and validates a kind name.
func ParseTxKind(raw string) (TxKind, error) {
	kind := TxKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownKinds[kind]; !ok {
		return "", fmt.Errorf("unknown transaction kind %q", raw)
	}
	return kind, nil
}

// Transaction is one call into an engine. Which of the optional fields a
// kind reads is documented on the executor's dispatch.
type Transaction struct {
	Kind   TxKind         `json:"kind"`
	Nonce  uint64         `json:"nonce"`
	From   common.Address `json:"from"`
	Target common.Address `json:"target,omitempty"`
	Amount *big.Int       `json:"amount,omitempty"`
	// Secondary carries the claim-token part of a repayment.
	Secondary *big.Int `json:"secondary,omitempty"`
	Index     uint64   `json:"index,omitempty"`
	Flag      bool     `json:"flag,omitempty"`
}

// AmountOrZero returns Amount, or zero when unset.
func (tx *Transaction) AmountOrZero() *big.Int {
	if tx.Amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(tx.Amount)
}

// SecondaryOrZero returns Secondary, or zero when unset.
func (tx *Transaction) SecondaryOrZero() *big.Int {
	if tx.Secondary == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(tx.Secondary)
}

// Hash is keccak256 over the RLP encoding of every field.
func (tx *Transaction) Hash() (common.Hash, error) {
	payload := struct {
		Kind      string
		Nonce     uint64
		From      common.Address
		Target    common.Address
		Amount    *big.Int
		Secondary *big.Int
		Index     uint64
		Flag      bool
	}{string(tx.Kind), tx.Nonce, tx.From, tx.Target, tx.AmountOrZero(), tx.SecondaryOrZero(), tx.Index, tx.Flag}
	encoded, err := rlp.EncodeToBytes(&payload)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
