package core

import (
	"fmt"
	"math/big"
	"strconv"

	coreerr "synthvault/core/errors"
	"synthvault/core/types"
	"synthvault/native/transmuter"
)

// dispatch routes tx to its engine. Field usage per kind:
//
//	stake, unstake, deposit, withdraw, mint, liquidate: From, Amount
//	distribute: From as caller and origin, Amount
//	transmute, claim, exit and the combined settlements: From
//	force_transmute: From, Target
//	repay: From, Amount (underlying), Secondary (claim tokens)
//	harvest: Index; recall: From, Index, Amount; recall_all: From, Index
//	initialize, migrate, set_rewards, set_governance, set_sentinel: From, Target
//	set_period, set_harvest_fee, set_collateralization_limit: From, Amount
//	set_flush_activator, set_ceiling: From, Target (ceiling only), Amount
//	set_whitelist, set_minter, set_blacklist, set_emergency_exit: From, Target, Flag
func (x *Executor) dispatch(tx *types.Transaction) (map[string]string, error) {
	switch tx.Kind {
	case types.TxStake:
		return nil, x.transmuter.Stake(tx.From, tx.Amount)
	case types.TxUnstake:
		return nil, x.transmuter.Unstake(tx.From, tx.Amount)
	case types.TxDistribute:
		return nil, x.transmuter.Distribute(tx.From, tx.From, tx.Amount)
	case types.TxTransmute:
		return settlementOutput(x.transmuter.Transmute(tx.From))
	case types.TxClaim:
		return amountOutput(x.transmuter.Claim(tx.From))
	case types.TxTransmuteAndClaim:
		return settlementOutput(x.transmuter.TransmuteAndClaim(tx.From))
	case types.TxExit:
		return settlementOutput(x.transmuter.Exit(tx.From))
	case types.TxTransmuteClaimAndWithdraw:
		return settlementOutput(x.transmuter.TransmuteClaimAndWithdraw(tx.From))
	case types.TxForceTransmute:
		return amountOutput(x.transmuter.ForceTransmute(tx.From, tx.Target))
	case types.TxSetWhitelist:
		return nil, x.transmuter.SetWhitelist(tx.From, tx.Target, tx.Flag)
	case types.TxSetPeriod:
		blocks, err := uintArg(tx)
		if err != nil {
			return nil, err
		}
		return nil, x.transmuter.SetPeriod(tx.From, blocks)

	case types.TxDeposit:
		return nil, x.vault.Deposit(tx.From, tx.Amount)
	case types.TxWithdraw:
		return amountOutput(x.vault.Withdraw(tx.From, tx.Amount))
	case types.TxMint:
		return nil, x.vault.Mint(tx.From, tx.Amount)
	case types.TxRepay:
		return nil, x.vault.Repay(tx.From, tx.AmountOrZero(), tx.SecondaryOrZero())
	case types.TxLiquidate:
		return amountOutput(x.vault.Liquidate(tx.From, tx.Amount))
	case types.TxHarvest:
		res, err := x.vault.Harvest(tx.Index)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"adapter":     strconv.FormatUint(res.Adapter, 10),
			"yield":       res.Yield.String(),
			"fee":         res.Fee.String(),
			"distributed": res.Distributed.String(),
		}, nil
	case types.TxFlush:
		return amountOutput(x.vault.Flush())
	case types.TxInitialize:
		return nil, x.vault.Initialize(tx.From, tx.Target)
	case types.TxMigrate:
		return nil, x.vault.Migrate(tx.From, tx.Target)
	case types.TxRecall:
		return amountOutput(x.vault.Recall(tx.From, tx.Index, tx.Amount))
	case types.TxRecallAll:
		return amountOutput(x.vault.RecallAll(tx.From, tx.Index))
	case types.TxSetEmergencyExit:
		return nil, x.vault.SetEmergencyExit(tx.From, tx.Flag)
	case types.TxSetHarvestFee:
		bps, err := uintArg(tx)
		if err != nil {
			return nil, err
		}
		return nil, x.vault.SetHarvestFee(tx.From, bps)
	case types.TxSetCollateralizationLimit:
		bps, err := uintArg(tx)
		if err != nil {
			return nil, err
		}
		return nil, x.vault.SetCollateralizationLimit(tx.From, bps)
	case types.TxSetFlushActivator:
		return nil, x.vault.SetFlushActivator(tx.From, tx.AmountOrZero())
	case types.TxSetRewards:
		return nil, x.vault.SetRewardsSink(tx.From, tx.Target)
	case types.TxSetGovernance:
		return nil, x.vault.SetGovernance(tx.From, tx.Target)
	case types.TxSetSentinel:
		return nil, x.vault.SetSentinel(tx.From, tx.Target)

	case types.TxSetMinter:
		return nil, x.token.SetWhitelist(tx.From, tx.Target, tx.Flag)
	case types.TxSetBlocked:
		return nil, x.token.SetBlacklist(tx.From, tx.Target, tx.Flag)
	case types.TxSetCeiling:
		return nil, x.token.SetCeiling(tx.From, tx.Target, tx.AmountOrZero())
	}
	return nil, coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("executor: unsupported transaction kind %q", tx.Kind))
}

func uintArg(tx *types.Transaction) (uint64, error) {
	amount := tx.AmountOrZero()
	if amount.Sign() < 0 || !amount.IsUint64() {
		return 0, coreerr.Tag(coreerr.ErrConfiguration, fmt.Errorf("executor: %s argument out of range", tx.Kind))
	}
	return amount.Uint64(), nil
}

func amountOutput(amount *big.Int, err error) (map[string]string, error) {
	if err != nil {
		return nil, err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	return map[string]string{"amount": amount.String()}, nil
}

func settlementOutput(s *transmuter.Settlement, err error) (map[string]string, error) {
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"transmuted": s.Transmuted.String(),
		"claimed":    s.Claimed.String(),
		"unstaked":   s.Unstaked.String(),
	}, nil
}
