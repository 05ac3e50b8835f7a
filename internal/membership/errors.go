package membership

import (
	pkgerrors "github.com/mintfield/coinledger-backend/pkg/errors"
)

// ErrUserNotFound is returned when the target account does not exist.
var ErrUserNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
