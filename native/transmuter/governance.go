package transmuter

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/types"
)

func (e *Engine) requireGovernance(caller common.Address) error {
	if caller != e.params.Governance {
		return ErrNotGovernance
	}
	return nil
}

// SetWhitelist grants or revokes distribution rights.
func (e *Engine) SetWhitelist(caller, origin common.Address, allowed bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if err := e.state.SetWhitelisted(origin, allowed); err != nil {
		return err
	}
	e.emit(WrapEvent(&types.Event{
		Type: EventTypeWhitelistUpdated,
		Attributes: map[string]string{
			"origin":  origin.Hex(),
			"allowed": strconv.FormatBool(allowed),
		},
	}))
	return nil
}

// SetPeriod changes the release window. The buffer is streamed up to the
// current block under the old window first.
func (e *Engine) SetPeriod(caller common.Address, blocks uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if blocks == 0 {
		return ErrInvalidPeriod
	}
	buf, err := e.loadBuffer()
	if err != nil {
		return err
	}
	accrue(buf, e.blockHeight)
	buf.PeriodLength = blocks
	if err := e.state.PutBuffer(buf); err != nil {
		return err
	}
	e.params.PeriodLength = blocks
	e.emit(WrapEvent(&types.Event{
		Type:       EventTypePeriodUpdated,
		Attributes: map[string]string{"period": strconv.FormatUint(blocks, 10)},
	}))
	return nil
}
