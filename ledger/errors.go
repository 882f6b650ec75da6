package ledger

import "errors"

var (
	// ErrNotFound indicates the asset symbol is not registered.
	ErrNotFound = errors.New("ledger: asset not registered")
	// ErrAlreadyExists indicates a duplicate asset registration.
	ErrAlreadyExists = errors.New("ledger: asset already registered")
	// ErrInvalidParameter indicates malformed registry input.
	ErrInvalidParameter = errors.New("ledger: invalid asset parameter")
	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrInactiveAsset indicates the asset rejects user operations.
	ErrInactiveAsset = errors.New("ledger: asset inactive")
	// ErrInsufficientBalance indicates the position holds less than requested.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrInsufficientLiquidity indicates the pool cannot cover the borrow.
	ErrInsufficientLiquidity = errors.New("ledger: insufficient pool liquidity")
	// ErrUnhealthyPosition indicates the operation would breach the
	// loan-to-value constraint.
	ErrUnhealthyPosition = errors.New("ledger: position would exceed collateral limit")
	// ErrPositionHealthy indicates liquidation was attempted on a solvent
	// position.
	ErrPositionHealthy = errors.New("ledger: position not eligible for liquidation")
	// ErrSelfLiquidation indicates a borrower tried to liquidate themselves.
	ErrSelfLiquidation = errors.New("ledger: borrower cannot liquidate their own position")
	// ErrNoOutstandingDebt indicates repay was called with nothing owed.
	ErrNoOutstandingDebt = errors.New("ledger: no outstanding debt to repay")
	// ErrOperationInProgress indicates a nested call against a position that
	// is already mid-operation.
	ErrOperationInProgress = errors.New("ledger: operation already in progress for position")
	// ErrNilState indicates the engine was used before wiring persistence.
	ErrNilState = errors.New("ledger: state not configured")
)
