package launchpad

import (
	"fmt"
	"time"
)

// classify resolves the staked/unstaked classification for an account that
// has not been snapshotted yet. It queries the stake oracle at the snapshot
// instant, so later stake changes never affect the result. The caller stores
// the returned flag on the account exactly once; it is a one-way latch.
//
// The phase gate in Buy guarantees now >= SnapshotTime (the snapshot instant
// cannot be after the window opens), so the pre-snapshot branch is an
// internal consistency failure, not a user error.
func (e *Engine) classify(account string, now time.Time) (bool, error) {
	if now.Before(e.params.SnapshotTime) {
		return false, fmt.Errorf("internal: classification for %s requested before snapshot instant", account)
	}

	stake, err := e.oracle.StakedBalance(account, e.params.SnapshotTime)
	if err != nil {
		return false, fmt.Errorf("stake oracle: %w", err)
	}
	return stake.Sign() > 0, nil
}
