package oracle

import (
	"math/big"
	"sync"
	"time"
)

// StakeOracle reports a user's locked-stake balance at a given instant. The
// engine only ever asks "non-zero at the snapshot instant?", but the full
// amount is exposed so future stake-proportional cap scaling has a home.
type StakeOracle interface {
	StakedBalance(account string, at time.Time) (*big.Int, error)
}

// lockEntry is one stake lock in the static oracle.
type lockEntry struct {
	amount *big.Int
	from   time.Time
	until  time.Time
}

// StaticOracle is an in-memory StakeOracle for tests and simulation. Each
// account holds at most one lock; the balance is the lock amount while the
// query instant falls inside [from, until), zero otherwise.
type StaticOracle struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

// NewStaticOracle creates an oracle with no stakes.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{locks: make(map[string]lockEntry)}
}

// SetLock records a stake lock for account over [from, until).
func (o *StaticOracle) SetLock(account string, amount *big.Int, from, until time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.locks[account] = lockEntry{
		amount: new(big.Int).Set(amount),
		from:   from,
		until:  until,
	}
}

// StakedBalance returns the locked amount at the given instant.
func (o *StaticOracle) StakedBalance(account string, at time.Time) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[account]
	if !ok || at.Before(lock.from) || !at.Before(lock.until) {
		return new(big.Int), nil
	}
	return new(big.Int).Set(lock.amount), nil
}
