package models

import "errors"

// Stable reason codes shared by the engine and the registry. Callers branch on
// these with errors.Is; call sites wrap them with fmt.Errorf("%w: ...") to add
// context without losing the code.
var (
	ErrInvalidAmount       = errors.New("InvalidAmount")
	ErrInvalidParameters   = errors.New("InvalidParameters")
	ErrDuplicateSale       = errors.New("DuplicateSale")
	ErrSaleNotActive       = errors.New("SaleNotActive")
	ErrSaleStillActive     = errors.New("SaleStillActive")
	ErrHardcapReached      = errors.New("HardcapReached")
	ErrUserCapReached      = errors.New("UserCapReached")
	ErrInsufficientBalance = errors.New("InsufficientBalance")
	ErrAlreadySettled      = errors.New("AlreadySettled")
	ErrNothingToClaim      = errors.New("NothingToClaim")
	ErrUnauthorized        = errors.New("Unauthorized")
)
