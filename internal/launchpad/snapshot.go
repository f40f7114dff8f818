package launchpad

import (
	"fmt"
	"math/big"

	"launchpad-engine-go/internal/models"
)

// Snapshot captures the full engine state in its persisted form. The copy is
// deep, so the caller can hand it to the repository or the reporter without
// racing the engine.
func (e *Engine) Snapshot() *models.SaleSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts := make(map[string]models.SaleAccountSnapshot, len(e.accounts))
	for id, acct := range e.accounts {
		accounts[id] = models.SaleAccountSnapshot{
			NetContribution:  acct.NetContribution.String(),
			ClaimedAmount:    acct.ClaimedAmount.String(),
			Snapshotted:      acct.Snapshotted,
			StakedAtSnapshot: acct.StakedAtSnapshot,
		}
	}

	return &models.SaleSnapshot{
		SaleID:               e.saleID,
		Params:               models.SnapshotParameters(e.params),
		TotalContributed:     e.totalContributed.String(),
		HasWithdrawnProceeds: e.hasWithdrawnProceeds,
		HasWithdrawnUnsold:   e.hasWithdrawnUnsold,
		Accounts:             accounts,
		LastUpdateTime:       e.clock.Now(),
	}
}

// NewEngineFromSnapshot rebuilds an engine from a persisted snapshot so a
// restarted process resumes a live sale where it left off. The total is
// recomputed from the account records and checked against the stored value;
// a mismatch means the snapshot is corrupt.
func NewEngineFromSnapshot(snap *models.SaleSnapshot, deps Dependencies) (*Engine, error) {
	params, err := snap.Params.Parameters()
	if err != nil {
		return nil, fmt.Errorf("restore sale %s: %w", snap.SaleID, err)
	}

	e, err := NewEngine(snap.SaleID, params, deps)
	if err != nil {
		return nil, fmt.Errorf("restore sale %s: %w", snap.SaleID, err)
	}

	total, err := models.ParseAmount(snap.TotalContributed)
	if err != nil {
		return nil, fmt.Errorf("restore sale %s total: %w", snap.SaleID, err)
	}

	recomputed := new(big.Int)
	for id, as := range snap.Accounts {
		net, err := models.ParseAmount(as.NetContribution)
		if err != nil {
			return nil, fmt.Errorf("restore account %s: %w", id, err)
		}
		claimed, err := models.ParseAmount(as.ClaimedAmount)
		if err != nil {
			return nil, fmt.Errorf("restore account %s: %w", id, err)
		}
		e.accounts[id] = &models.SaleAccount{
			NetContribution:  net,
			ClaimedAmount:    claimed,
			Snapshotted:      as.Snapshotted,
			StakedAtSnapshot: as.StakedAtSnapshot,
		}
		recomputed.Add(recomputed, net)
	}

	if recomputed.Cmp(total) != 0 {
		return nil, fmt.Errorf("restore sale %s: account sum %s does not match total %s",
			snap.SaleID, recomputed, total)
	}

	e.totalContributed = total
	e.hasWithdrawnProceeds = snap.HasWithdrawnProceeds
	e.hasWithdrawnUnsold = snap.HasWithdrawnUnsold
	return e, nil
}
