package vault

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/types"
	"synthvault/native/fixedpoint"
)

func requireGovernance(f *Facility, caller common.Address) error {
	if caller != f.Governance {
		return ErrNotGovernance
	}
	return nil
}

func requireKeeper(f *Facility, caller common.Address) error {
	if caller != f.Governance && (f.Sentinel == (common.Address{}) || caller != f.Sentinel) {
		return ErrNotSentinel
	}
	return nil
}

// update applies a privileged settings change. Settings stay adjustable
// while the module is paused.
func (e *Engine) update(caller common.Address, auth func(*Facility, common.Address) error, apply func(*Facility) (*types.Event, error)) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	f, err := e.loadFacility()
	if err != nil {
		return err
	}
	if err := auth(f, caller); err != nil {
		return err
	}
	evt, err := apply(f)
	if err != nil {
		return err
	}
	if err := e.state.PutFacility(f); err != nil {
		return err
	}
	e.emit(WrapEvent(evt))
	return nil
}

// SetEmergencyExit toggles the switch that blocks deposits, mints and
// flushes while leaving exits open.
func (e *Engine) SetEmergencyExit(caller common.Address, enabled bool) error {
	return e.update(caller, requireKeeper, func(f *Facility) (*types.Event, error) {
		f.EmergencyExit = enabled
		return &types.Event{
			Type:       EventTypeEmergencyExit,
			Attributes: map[string]string{"enabled": strconv.FormatBool(enabled), "caller": caller.Hex()},
		}, nil
	})
}

func (e *Engine) SetHarvestFee(caller common.Address, bps uint64) error {
	return e.update(caller, requireGovernance, func(f *Facility) (*types.Event, error) {
		if bps > fixedpoint.BasisPoints {
			return nil, ErrHarvestFeeTooHigh
		}
		f.HarvestFeeBps = bps
		return paramEvent("harvest_fee_bps", strconv.FormatUint(bps, 10)), nil
	})
}

func (e *Engine) SetCollateralizationLimit(caller common.Address, bps uint64) error {
	return e.update(caller, requireGovernance, func(f *Facility) (*types.Event, error) {
		if err := checkLimit(bps); err != nil {
			return nil, err
		}
		f.CollateralizationLimitBps = bps
		return paramEvent("collateralization_limit_bps", strconv.FormatUint(bps, 10)), nil
	})
}

func (e *Engine) SetFlushActivator(caller common.Address, amount *big.Int) error {
	return e.update(caller, requireGovernance, func(f *Facility) (*types.Event, error) {
		if amount == nil || amount.Sign() < 0 {
			return nil, ErrInvalidAmount
		}
		f.FlushActivator = new(big.Int).Set(amount)
		return paramEvent("flush_activator", amount.String()), nil
	})
}

func (e *Engine) SetRewardsSink(caller, sink common.Address) error {
	return e.update(caller, requireGovernance, func(f *Facility) (*types.Event, error) {
		if sink == (common.Address{}) {
			return nil, ErrZeroRewards
		}
		f.RewardsSink = sink
		return paramEvent("rewards", sink.Hex()), nil
	})
}

func (e *Engine) SetGovernance(caller, next common.Address) error {
	return e.update(caller, requireGovernance, func(f *Facility) (*types.Event, error) {
		if next == (common.Address{}) {
			return nil, ErrZeroGovernance
		}
		f.Governance = next
		return paramEvent("governance", next.Hex()), nil
	})
}

// SetSentinel names the address allowed to recall funds and trigger an
// emergency exit alongside governance. The zero address clears it.
func (e *Engine) SetSentinel(caller, sentinel common.Address) error {
	return e.update(caller, requireGovernance, func(f *Facility) (*types.Event, error) {
		f.Sentinel = sentinel
		return paramEvent("sentinel", sentinel.Hex()), nil
	})
}
