package vault

import (
	"errors"

	coreerr "synthvault/core/errors"
)

var (
	ErrNotGovernance = coreerr.New(coreerr.ErrAuthorization, "vault engine: only governance")
	ErrNotSentinel   = coreerr.New(coreerr.ErrAuthorization, "vault engine: only governance or sentinel")

	ErrInvalidAmount          = coreerr.New(coreerr.ErrInvariant, "vault engine: amount must be positive")
	ErrNotInitialized         = coreerr.New(coreerr.ErrInvariant, "vault engine: not initialized.")
	ErrEmergencyExit          = coreerr.New(coreerr.ErrInvariant, "vault engine: emergency pause enabled")
	ErrUnhealthy              = coreerr.New(coreerr.ErrInvariant, "vault engine: Action blocked: unhealthy collateralization ratio")
	ErrLoanToValue            = coreerr.New(coreerr.ErrInvariant, "vault engine: Loan-to-value ratio breached")
	ErrExceedsCollateral      = coreerr.New(coreerr.ErrInvariant, "vault engine: withdraw amount exceeds deposited collateral")
	ErrNothingToLiquidate     = coreerr.New(coreerr.ErrInvariant, "vault engine: nothing to liquidate")
	ErrUnknownAdapter         = coreerr.New(coreerr.ErrInvariant, "vault engine: unknown adapter index")
	ErrInsufficientFunds      = coreerr.New(coreerr.ErrInvariant, "vault engine: insufficient balance")
	ErrRepayExceedsDebt       = coreerr.New(coreerr.ErrArithmetic, "vault engine: SafeMath: subtraction overflow")
	ErrInsufficientBacking    = coreerr.New(coreerr.ErrArithmetic, "vault engine: repayment exceeds redeemable capacity")
	ErrAlreadyInitialized     = coreerr.New(coreerr.ErrConfiguration, "vault engine: already initialized")
	ErrMigrationNotReady      = coreerr.New(coreerr.ErrConfiguration, "vault engine: migrate before initialize")
	ErrAdapterRegistered      = coreerr.New(coreerr.ErrConfiguration, "vault engine: adapter already registered")
	ErrZeroAdapter            = coreerr.New(coreerr.ErrConfiguration, "vault engine: active vault address cannot be 0x0.")
	ErrUnregisteredStrategy   = coreerr.New(coreerr.ErrConfiguration, "vault engine: strategy not registered")
	ErrTokenMismatch          = coreerr.New(coreerr.ErrConfiguration, "vault engine: token mismatch")
	ErrZeroGovernance         = coreerr.New(coreerr.ErrConfiguration, "vault engine: governance address cannot be 0x0.")
	ErrZeroRewards            = coreerr.New(coreerr.ErrConfiguration, "vault engine: rewards address cannot be 0x0.")
	ErrLimitBelowMinimum      = coreerr.New(coreerr.ErrConfiguration, "vault engine: collateralization limit below minimum.")
	ErrLimitAboveMaximum      = coreerr.New(coreerr.ErrConfiguration, "vault engine: collateralization limit above maximum.")
	ErrHarvestFeeTooHigh      = coreerr.New(coreerr.ErrConfiguration, "vault engine: harvest fee above maximum.")
	ErrDistributorUnavailable = coreerr.New(coreerr.ErrConfiguration, "vault engine: distributor not configured")

	errNilState = errors.New("vault engine: state not configured")
)
