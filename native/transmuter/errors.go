package transmuter

import (
	"errors"

	coreerr "synthvault/core/errors"
)

var (
	ErrNotWhitelisted     = coreerr.New(coreerr.ErrAuthorization, "transmuter engine: !whitelisted")
	ErrNotGovernance      = coreerr.New(coreerr.ErrAuthorization, "transmuter engine: only governance")
	ErrExceedsDeposit     = coreerr.New(coreerr.ErrInvariant, "transmuter engine: unstake amount exceeds deposited amount")
	ErrNotOverflowed      = coreerr.New(coreerr.ErrInvariant, "transmuter engine: !overflow")
	ErrNothingToTransmute = coreerr.New(coreerr.ErrInvariant, "transmuter engine: nothing to transmute")
	ErrInvalidAmount      = coreerr.New(coreerr.ErrInvariant, "transmuter engine: amount must be positive")
	ErrTransferFailed     = coreerr.New(coreerr.ErrInvariant, "transmuter engine: asset transfer failed")
	ErrInvalidPeriod      = coreerr.New(coreerr.ErrConfiguration, "transmuter engine: period must be positive")
	ErrInvalidIncentive   = coreerr.New(coreerr.ErrConfiguration, "transmuter engine: invalid incentive")

	errNilState = errors.New("transmuter engine: state not configured")
)
