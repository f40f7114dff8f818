package ledger

import (
	"fmt"
	"math/big"
	"sync"
)

// MemoryLedger is an in-memory TokenLedger backing tests and the simulation
// daemon: full interface fidelity, no external system.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[string]map[string]*big.Int            // token -> account -> balance
	allowances map[string]map[string]map[string]*big.Int // token -> owner -> spender -> remaining
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[string]map[string]*big.Int),
		allowances: make(map[string]map[string]map[string]*big.Int),
	}
}

// Mint credits amount of token to account, creating the token if needed.
// Test and simulation setup only; there is no burn.
func (l *MemoryLedger) Mint(token, account string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.credit(token, account, amount)
}

// Transfer moves amount of token between accounts.
func (l *MemoryLedger) Transfer(token, from, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkBalance(token, from, amount); err != nil {
		return err
	}

	l.debit(token, from, amount)
	l.credit(token, to, amount)
	return nil
}

// TransferFrom moves amount of token from `from` to `to` against the
// allowance granted to spender. Balance and allowance are checked before
// anything mutates, so a failed call leaves the ledger untouched.
func (l *MemoryLedger) TransferFrom(token, spender, from, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkBalance(token, from, amount); err != nil {
		return err
	}

	allowance := l.allowance(token, from, spender)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s allows %s to spend %s of %s, requested %s",
			ErrInsufficientAllowance, from, spender, allowance, token, amount)
	}

	allowance.Sub(allowance, amount)
	l.debit(token, from, amount)
	l.credit(token, to, amount)
	return nil
}

// Approve sets (not increments) the allowance owner grants to spender.
func (l *MemoryLedger) Approve(token, owner, spender string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	byOwner, ok := l.allowances[token]
	if !ok {
		byOwner = make(map[string]map[string]*big.Int)
		l.allowances[token] = byOwner
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		bySpender = make(map[string]*big.Int)
		byOwner[owner] = bySpender
	}
	bySpender[spender] = new(big.Int).Set(amount)
	return nil
}

// BalanceOf returns a copy of the account's balance for token.
func (l *MemoryLedger) BalanceOf(token, account string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.balances[token]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return new(big.Int).Set(l.balance(token, account)), nil
}

func (l *MemoryLedger) checkBalance(token, from string, amount *big.Int) error {
	if _, ok := l.balances[token]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if l.balance(token, from).Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s of %s, requested %s",
			ErrInsufficientFunds, from, l.balance(token, from), token, amount)
	}
	return nil
}

// balance returns the live big.Int for account, creating a zero entry if absent.
// Callers hold l.mu.
func (l *MemoryLedger) balance(token, account string) *big.Int {
	accounts := l.balances[token]
	b, ok := accounts[account]
	if !ok {
		b = new(big.Int)
		accounts[account] = b
	}
	return b
}

func (l *MemoryLedger) credit(token, account string, amount *big.Int) {
	if _, ok := l.balances[token]; !ok {
		l.balances[token] = make(map[string]*big.Int)
	}
	b := l.balance(token, account)
	b.Add(b, amount)
}

func (l *MemoryLedger) debit(token, account string, amount *big.Int) {
	b := l.balance(token, account)
	b.Sub(b, amount)
}

func (l *MemoryLedger) allowance(token, owner, spender string) *big.Int {
	byOwner, ok := l.allowances[token]
	if !ok {
		return new(big.Int)
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		return new(big.Int)
	}
	a, ok := bySpender[spender]
	if !ok {
		a = new(big.Int)
		bySpender[spender] = a
	}
	return a
}
