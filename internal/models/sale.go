package models

import (
	"fmt"
	"math/big"
	"time"
)

// SaleParameters holds the immutable configuration of a single launchpad sale.
// Amount fields are denominated in the smallest unit of the respective token.
type SaleParameters struct {
	ProjectToken        string    `json:"project_token"`         // token being sold
	SaleToken           string    `json:"sale_token"`            // payment token collected from buyers
	ProjectTokenReserve *big.Int  `json:"-"`                     // total project-token supply offered
	MinSaleTokenReserve *big.Int  `json:"-"`                     // informational soft floor
	MaxSaleTokenReserve *big.Int  `json:"-"`                     // hardcap in sale-token units
	StakedUserCap       *big.Int  `json:"-"`                     // lifetime cap for users staked at snapshot
	UnstakedUserCap     *big.Int  `json:"-"`                     // lifetime cap for everyone else
	StartTime           time.Time `json:"start_time"`            // sale window open (inclusive)
	EndTime             time.Time `json:"end_time"`              // sale window close (exclusive)
	SnapshotTime        time.Time `json:"snapshot_time"`         // instant at which staked status is frozen
	VestingDays         uint64    `json:"vesting_days"`          // 0 = instant claim, else linear daily unlock
	ProjectTreasury     string    `json:"project_treasury"`      // recipient of proceeds and unsold inventory
}

// Copy returns a deep copy so callers can hand out parameters without
// exposing the engine's big.Int instances to mutation.
func (p SaleParameters) Copy() SaleParameters {
	cp := p
	cp.ProjectTokenReserve = cloneBig(p.ProjectTokenReserve)
	cp.MinSaleTokenReserve = cloneBig(p.MinSaleTokenReserve)
	cp.MaxSaleTokenReserve = cloneBig(p.MaxSaleTokenReserve)
	cp.StakedUserCap = cloneBig(p.StakedUserCap)
	cp.UnstakedUserCap = cloneBig(p.UnstakedUserCap)
	return cp
}

// SaleAccount is the per-participant record. It is created lazily on the first
// successful buy and never deleted, so balances stay queryable after close.
type SaleAccount struct {
	NetContribution  *big.Int // sale-token units committed, net of withdrawals
	ClaimedAmount    *big.Int // project-token units already released
	Snapshotted      bool     // staked classification has been frozen
	StakedAtSnapshot bool     // frozen classification, meaningless until Snapshotted
}

// NewSaleAccount returns a zeroed account record.
func NewSaleAccount() *SaleAccount {
	return &SaleAccount{
		NetContribution: new(big.Int),
		ClaimedAmount:   new(big.Int),
	}
}

// Copy returns a deep copy of the account record.
func (a *SaleAccount) Copy() *SaleAccount {
	return &SaleAccount{
		NetContribution:  cloneBig(a.NetContribution),
		ClaimedAmount:    cloneBig(a.ClaimedAmount),
		Snapshotted:      a.Snapshotted,
		StakedAtSnapshot: a.StakedAtSnapshot,
	}
}

// SaleParametersSnapshot is the persisted form of SaleParameters. Amounts are
// decimal strings so the JSON survives arbitrary token precision.
type SaleParametersSnapshot struct {
	ProjectToken        string    `json:"project_token"`
	SaleToken           string    `json:"sale_token"`
	ProjectTokenReserve string    `json:"project_token_reserve"`
	MinSaleTokenReserve string    `json:"min_sale_token_reserve"`
	MaxSaleTokenReserve string    `json:"max_sale_token_reserve"`
	StakedUserCap       string    `json:"staked_user_cap"`
	UnstakedUserCap     string    `json:"unstaked_user_cap"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	SnapshotTime        time.Time `json:"snapshot_time"`
	VestingDays         uint64    `json:"vesting_days"`
	ProjectTreasury     string    `json:"project_treasury"`
}

// SaleAccountSnapshot is the persisted form of SaleAccount.
type SaleAccountSnapshot struct {
	NetContribution  string `json:"net_contribution"`
	ClaimedAmount    string `json:"claimed_amount"`
	Snapshotted      bool   `json:"snapshotted"`
	StakedAtSnapshot bool   `json:"staked_at_snapshot"`
}

// SaleSnapshot captures the full engine state for persistence and reporting.
type SaleSnapshot struct {
	SaleID               string                         `json:"sale_id"`
	Params               SaleParametersSnapshot         `json:"params"`
	TotalContributed     string                         `json:"total_contributed"`
	HasWithdrawnProceeds bool                           `json:"has_withdrawn_proceeds"`
	HasWithdrawnUnsold   bool                           `json:"has_withdrawn_unsold"`
	Accounts             map[string]SaleAccountSnapshot `json:"accounts"`
	LastUpdateTime       time.Time                      `json:"last_update_time"`
}

// SnapshotParameters converts live parameters into their persisted form.
func SnapshotParameters(p SaleParameters) SaleParametersSnapshot {
	return SaleParametersSnapshot{
		ProjectToken:        p.ProjectToken,
		SaleToken:           p.SaleToken,
		ProjectTokenReserve: bigString(p.ProjectTokenReserve),
		MinSaleTokenReserve: bigString(p.MinSaleTokenReserve),
		MaxSaleTokenReserve: bigString(p.MaxSaleTokenReserve),
		StakedUserCap:       bigString(p.StakedUserCap),
		UnstakedUserCap:     bigString(p.UnstakedUserCap),
		StartTime:           p.StartTime,
		EndTime:             p.EndTime,
		SnapshotTime:        p.SnapshotTime,
		VestingDays:         p.VestingDays,
		ProjectTreasury:     p.ProjectTreasury,
	}
}

// Parameters converts a persisted parameter snapshot back into live form.
func (s SaleParametersSnapshot) Parameters() (SaleParameters, error) {
	p := SaleParameters{
		ProjectToken:    s.ProjectToken,
		SaleToken:       s.SaleToken,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		SnapshotTime:    s.SnapshotTime,
		VestingDays:     s.VestingDays,
		ProjectTreasury: s.ProjectTreasury,
	}

	fields := []struct {
		name  string
		value string
		dst   **big.Int
	}{
		{"project_token_reserve", s.ProjectTokenReserve, &p.ProjectTokenReserve},
		{"min_sale_token_reserve", s.MinSaleTokenReserve, &p.MinSaleTokenReserve},
		{"max_sale_token_reserve", s.MaxSaleTokenReserve, &p.MaxSaleTokenReserve},
		{"staked_user_cap", s.StakedUserCap, &p.StakedUserCap},
		{"unstaked_user_cap", s.UnstakedUserCap, &p.UnstakedUserCap},
	}
	for _, f := range fields {
		v, err := ParseAmount(f.value)
		if err != nil {
			return SaleParameters{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	return p, nil
}

// ParseAmount parses a non-negative decimal string into a big.Int.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: malformed amount %q", ErrInvalidAmount, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}
	return v, nil
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
