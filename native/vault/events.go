package vault

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/events"
	"synthvault/core/types"
)

const (
	// EventTypeDeposited is emitted when collateral enters the facility.
	EventTypeDeposited = "vault.collateral.deposited"
	// EventTypeWithdrawn is emitted when collateral is returned.
	EventTypeWithdrawn = "vault.collateral.withdrawn"
	// EventTypeMinted is emitted when claim tokens are issued against a
	// position.
	EventTypeMinted = "vault.debt.minted"
	// EventTypeRepaid is emitted when debt is paid down.
	EventTypeRepaid = "vault.debt.repaid"
	// EventTypeLiquidated is emitted when collateral settles debt.
	EventTypeLiquidated = "vault.debt.liquidated"
	// EventTypeFlushed is emitted when idle underlying moves into the
	// active adapter.
	EventTypeFlushed = "vault.adapter.flushed"
	// EventTypeHarvested is emitted when adapter yield is realized.
	EventTypeHarvested = "vault.adapter.harvested"
	// EventTypeRecalled is emitted when principal is pulled from an adapter.
	EventTypeRecalled = "vault.adapter.recalled"
	// EventTypeMigrated is emitted when a new adapter becomes active.
	EventTypeMigrated = "vault.adapter.migrated"
	// EventTypeEmergencyExit is emitted when the exit switch flips.
	EventTypeEmergencyExit = "vault.emergency_exit.updated"
	// EventTypeParamsUpdated is emitted when governance changes a setting.
	EventTypeParamsUpdated = "vault.params.updated"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func amountEvent(kind string, owner common.Address, amount *big.Int, pos *CollateralPosition) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"owner":      owner.Hex(),
			"amount":     amount.String(),
			"collateral": pos.Collateral.String(),
			"debt":       pos.Debt.String(),
		},
	}
}

func repaidEvent(owner common.Address, underlying, claim *big.Int, pos *CollateralPosition) *types.Event {
	return &types.Event{
		Type: EventTypeRepaid,
		Attributes: map[string]string{
			"owner":      owner.Hex(),
			"underlying": underlying.String(),
			"claim":      claim.String(),
			"debt":       pos.Debt.String(),
		},
	}
}

func adapterEvent(kind string, adapter *Adapter, amount *big.Int) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"adapter":   strconv.FormatUint(adapter.Index, 10),
			"address":   adapter.Address.Hex(),
			"amount":    amount.String(),
			"principal": adapter.Principal.String(),
		},
	}
}

func harvestedEvent(adapter *Adapter, res *HarvestResult) *types.Event {
	return &types.Event{
		Type: EventTypeHarvested,
		Attributes: map[string]string{
			"adapter":     strconv.FormatUint(adapter.Index, 10),
			"yield":       res.Yield.String(),
			"fee":         res.Fee.String(),
			"distributed": res.Distributed.String(),
		},
	}
}

func paramEvent(name, value string) *types.Event {
	return &types.Event{
		Type:       EventTypeParamsUpdated,
		Attributes: map[string]string{"param": name, "value": value},
	}
}
