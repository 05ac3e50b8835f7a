package orders

import (
	pkgerrors "github.com/mintfield/coinledger-backend/pkg/errors"
)

var (
	// ErrOrderNotFound is returned when no order matches the given number.
	ErrOrderNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "recharge order not found")

	// ErrOrderAlreadyTerminal is returned when a transition is requested on
	// an order that already reached a conflicting terminal state.
	ErrOrderAlreadyTerminal = pkgerrors.New(pkgerrors.CodeStateConflict, "recharge order already settled")

	// ErrInvalidSignature is returned when a payment callback fails
	// signature verification.
	ErrInvalidSignature = pkgerrors.New(pkgerrors.CodeInvalidSignature, "payment callback signature mismatch")

	// ErrAmountMismatch is returned when the callback amount disagrees with
	// the stored order amount.
	ErrAmountMismatch = pkgerrors.New(pkgerrors.CodeValidation, "payment amount does not match order")
)
