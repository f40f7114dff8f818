package launchpad

import (
	"fmt"
	"math/big"

	"launchpad-engine-go/internal/models"
)

// MaxVestingDays bounds the linear claim unlock window.
const MaxVestingDays = 90

// ValidateParameters checks the construction-time invariants of a sale.
// Every violation wraps models.ErrInvalidParameters with the failed field.
func ValidateParameters(p models.SaleParameters) error {
	if p.ProjectToken == "" {
		return invalidParam("project token must be set")
	}
	if p.SaleToken == "" {
		return invalidParam("sale token must be set")
	}
	if p.ProjectToken == p.SaleToken {
		return invalidParam("project token and sale token must differ")
	}
	if p.ProjectTreasury == "" {
		return invalidParam("project treasury must be set")
	}

	positives := []struct {
		name  string
		value *big.Int
	}{
		{"project token reserve", p.ProjectTokenReserve},
		{"min sale token reserve", p.MinSaleTokenReserve},
		{"max sale token reserve", p.MaxSaleTokenReserve},
		{"staked user cap", p.StakedUserCap},
		{"unstaked user cap", p.UnstakedUserCap},
	}
	for _, f := range positives {
		if f.value == nil || f.value.Sign() <= 0 {
			return invalidParam(fmt.Sprintf("%s must be positive", f.name))
		}
	}

	if p.MinSaleTokenReserve.Cmp(p.MaxSaleTokenReserve) > 0 {
		return invalidParam("min sale token reserve exceeds max sale token reserve")
	}
	if !p.StartTime.Before(p.EndTime) {
		return invalidParam("start time must precede end time")
	}
	if p.SnapshotTime.After(p.StartTime) {
		// Every admitted buyer must be classifiable, so the snapshot instant
		// has to have passed before the window opens.
		return invalidParam("snapshot time must not be after start time")
	}
	if p.VestingDays > MaxVestingDays {
		return invalidParam(fmt.Sprintf("vesting days exceeds %d", MaxVestingDays))
	}

	return nil
}

func invalidParam(detail string) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidParameters, detail)
}
