package models

import (
	"fmt"
	"time"
)

// Config is the daemon configuration loaded from a JSON file. Secrets and
// machine-local overrides come from the environment (.env), not from here.
type Config struct {
	DBPath           string     `json:"db_path"`            // badger directory; empty = in-memory only
	ListenAddr       string     `json:"listen_addr"`        // event stream / report HTTP listener
	Owner            string     `json:"owner"`              // registry owner and fee recipient account
	WithdrawFeeRate  uint64     `json:"withdraw_fee_rate"`  // per-mille, e.g. 25 = 2.5%
	LaunchpadFeeRate uint64     `json:"launchpad_fee_rate"` // per-mille
	SnapshotSec      int        `json:"snapshot_interval_sec"`
	LogConfig        LogConfig  `json:"log"`
	Sale             SaleConfig `json:"sale"`
}

// LogConfig mirrors the logger package's expectations.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // MB per file before rotation
	MaxBackups int    `json:"max_backups"` // rotated files kept
	MaxAge     int    `json:"max_age"`     // days rotated files kept
	Compress   bool   `json:"compress"`
}

// SaleConfig is the JSON form of SaleParameters. Amounts are decimal strings
// in the token's smallest unit; times are unix seconds.
type SaleConfig struct {
	Creator             string `json:"creator"` // account funding the project-token reserve
	ProjectToken        string `json:"project_token"`
	SaleToken           string `json:"sale_token"`
	ProjectTokenReserve string `json:"project_token_reserve"`
	MinSaleTokenReserve string `json:"min_sale_token_reserve"`
	MaxSaleTokenReserve string `json:"max_sale_token_reserve"`
	StakedUserCap       string `json:"staked_user_cap"`
	UnstakedUserCap     string `json:"unstaked_user_cap"`
	StartTime           int64  `json:"start_time"`
	EndTime             int64  `json:"end_time"`
	SnapshotTime        int64  `json:"snapshot_time"`
	VestingDays         uint64 `json:"vesting_days"`
	ProjectTreasury     string `json:"project_treasury"`
}

// Parameters converts the JSON sale config into live SaleParameters.
// Validation beyond parsing is the registry's job.
func (sc SaleConfig) Parameters() (SaleParameters, error) {
	snap := SaleParametersSnapshot{
		ProjectToken:        sc.ProjectToken,
		SaleToken:           sc.SaleToken,
		ProjectTokenReserve: sc.ProjectTokenReserve,
		MinSaleTokenReserve: sc.MinSaleTokenReserve,
		MaxSaleTokenReserve: sc.MaxSaleTokenReserve,
		StakedUserCap:       sc.StakedUserCap,
		UnstakedUserCap:     sc.UnstakedUserCap,
		StartTime:           time.Unix(sc.StartTime, 0).UTC(),
		EndTime:             time.Unix(sc.EndTime, 0).UTC(),
		SnapshotTime:        time.Unix(sc.SnapshotTime, 0).UTC(),
		VestingDays:         sc.VestingDays,
		ProjectTreasury:     sc.ProjectTreasury,
	}

	p, err := snap.Parameters()
	if err != nil {
		return SaleParameters{}, fmt.Errorf("sale config: %w", err)
	}
	return p, nil
}
