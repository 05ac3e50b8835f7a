package ledger

import pkgerrors "github.com/mintfield/coinledger-backend/pkg/errors"

var (
	// ErrInsufficientBalance is returned when a debit would drive the
	// spendable balance negative. Nothing is written.
	ErrInsufficientBalance = pkgerrors.New(pkgerrors.CodeInsufficientBalance, "spendable balance would go negative")

	// ErrInsufficientFrozenBalance is returned when an unfreeze exceeds the
	// frozen pool. Nothing is written.
	ErrInsufficientFrozenBalance = pkgerrors.New(pkgerrors.CodeInsufficientFrozen, "unfreeze amount exceeds frozen balance")

	// ErrUserNotFound is returned when the target account does not exist.
	ErrUserNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
)
