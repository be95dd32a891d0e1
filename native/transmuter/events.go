package transmuter

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/events"
	"synthvault/core/types"
)

const (
	// EventTypeStaked is emitted when claim tokens enter the pool.
	EventTypeStaked = "transmuter.stake.added"
	// EventTypeUnstaked is emitted when claim tokens leave the pool.
	EventTypeUnstaked = "transmuter.stake.removed"
	// EventTypeDistributed is emitted when an origin adds to the buffer.
	EventTypeDistributed = "transmuter.buffer.distributed"
	// EventTypeTransmuted is emitted when bucketed entitlement is redeemed.
	EventTypeTransmuted = "transmuter.position.transmuted"
	// EventTypeClaimed is emitted when realized underlying is paid out.
	EventTypeClaimed = "transmuter.position.claimed"
	// EventTypeForceTransmuted is emitted when a third party settles an
	// overflowed position.
	EventTypeForceTransmuted = "transmuter.position.force_transmuted"
	// EventTypeOverflow is emitted when entitlement above a stake is handed
	// back to the pool.
	EventTypeOverflow = "transmuter.overflow.redistributed"
	// EventTypeWhitelistUpdated is emitted when an origin gains or loses
	// distribution rights.
	EventTypeWhitelistUpdated = "transmuter.whitelist.updated"
	// EventTypePeriodUpdated is emitted when the release window changes.
	EventTypePeriodUpdated = "transmuter.period.updated"
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

func stakeEvent(kind string, addr common.Address, amount, staked *big.Int) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"participant": addr.Hex(),
			"amount":      amount.String(),
			"staked":      staked.String(),
		},
	}
}

// DistributedEvent describes an inflow into the buffer.
func DistributedEvent(caller, origin common.Address, amount, buffer *big.Int, height uint64) *types.Event {
	return &types.Event{
		Type: EventTypeDistributed,
		Attributes: map[string]string{
			"caller": caller.Hex(),
			"origin": origin.Hex(),
			"amount": amount.String(),
			"buffer": buffer.String(),
			"block":  strconv.FormatUint(height, 10),
		},
	}
}

func transmutedEvent(addr common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTransmuted,
		Attributes: map[string]string{
			"participant": addr.Hex(),
			"amount":      amount.String(),
		},
	}
}

func claimedEvent(addr common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeClaimed,
		Attributes: map[string]string{
			"participant": addr.Hex(),
			"amount":      amount.String(),
		},
	}
}

func forceTransmutedEvent(caller, target common.Address, settled, incentive *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeForceTransmuted,
		Attributes: map[string]string{
			"caller":    caller.Hex(),
			"target":    target.Hex(),
			"settled":   settled.String(),
			"incentive": incentive.String(),
		},
	}
}

func overflowEvent(addr common.Address, excess *big.Int, toBuffer bool) *types.Event {
	dest := "stakers"
	if toBuffer {
		dest = "buffer"
	}
	return &types.Event{
		Type: EventTypeOverflow,
		Attributes: map[string]string{
			"participant": addr.Hex(),
			"excess":      excess.String(),
			"destination": dest,
		},
	}
}
