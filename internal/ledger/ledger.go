package ledger

import (
	"errors"
	"math/big"
)

// Ledger failure codes. Each operation is atomic: on error no balance or
// allowance has changed.
var (
	ErrInsufficientFunds     = errors.New("InsufficientFunds")
	ErrInsufficientAllowance = errors.New("InsufficientAllowance")
	ErrUnknownToken          = errors.New("UnknownToken")
)

// TokenLedger abstracts the fungible-token ledger the engine settles against.
// Accounts and tokens are opaque string identities. The engine never caches
// balances; the ledger is the single custodian of value. One interface, a
// real adapter in production and an in-memory one for tests and simulation.
type TokenLedger interface {
	// Transfer moves amount of token from one account to another.
	Transfer(token, from, to string, amount *big.Int) error

	// TransferFrom moves amount of token from `from` to `to`, spending the
	// allowance `from` previously granted to `spender`.
	TransferFrom(token, spender, from, to string, amount *big.Int) error

	// Approve sets the allowance `owner` grants to `spender` for token.
	Approve(token, owner, spender string, amount *big.Int) error

	// BalanceOf returns the current balance of account for token.
	BalanceOf(token, account string) (*big.Int, error)
}
