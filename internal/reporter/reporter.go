package reporter

import (
	"io"
	"math/big"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"launchpad-engine-go/internal/models"
)

// WriteSaleReport renders a human-readable summary of a sale snapshot:
// the sale parameters, aggregate totals and a per-account breakdown with
// each account's pro-rata entitlement.
func WriteSaleReport(w io.Writer, snap *models.SaleSnapshot) {
	writeParamsTable(w, snap)
	writeAccountsTable(w, snap)
}

func writeParamsTable(w io.Writer, snap *models.SaleSnapshot) {
	p := snap.Params

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Sale " + snap.SaleID)
	t.AppendRows([]table.Row{
		{"Project token", p.ProjectToken},
		{"Sale token", p.SaleToken},
		{"Project token reserve", p.ProjectTokenReserve},
		{"Softcap", p.MinSaleTokenReserve},
		{"Hardcap", p.MaxSaleTokenReserve},
		{"Staked user cap", p.StakedUserCap},
		{"Unstaked user cap", p.UnstakedUserCap},
		{"Snapshot time", p.SnapshotTime.Format(time.RFC3339)},
		{"Start time", p.StartTime.Format(time.RFC3339)},
		{"End time", p.EndTime.Format(time.RFC3339)},
		{"Vesting days", p.VestingDays},
		{"Project treasury", p.ProjectTreasury},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total contributed", snap.TotalContributed},
		{"Sold fraction", soldFraction(snap)},
		{"Proceeds withdrawn", snap.HasWithdrawnProceeds},
		{"Unsold withdrawn", snap.HasWithdrawnUnsold},
		{"Last update", snap.LastUpdateTime.Format(time.RFC3339)},
	})
	t.Render()
}

func writeAccountsTable(w io.Writer, snap *models.SaleSnapshot) {
	if len(snap.Accounts) == 0 {
		return
	}

	ids := make([]string, 0, len(snap.Accounts))
	for id := range snap.Accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Account", "Net contribution", "Entitlement", "Claimed", "Staked"})

	totalClaimed := new(big.Int)
	for _, id := range ids {
		acct := snap.Accounts[id]
		t.AppendRow(table.Row{
			id,
			acct.NetContribution,
			entitlement(snap, acct.NetContribution),
			acct.ClaimedAmount,
			acct.StakedAtSnapshot,
		})
		if claimed, ok := new(big.Int).SetString(acct.ClaimedAmount, 10); ok {
			totalClaimed.Add(totalClaimed, claimed)
		}
	}
	t.AppendFooter(table.Row{"Total", snap.TotalContributed, "", totalClaimed.String(), ""})
	t.Render()
}

// entitlement recomputes reserve * contribution / hardcap from the snapshot's
// string amounts. Unparseable values render as "?" rather than aborting the
// report.
func entitlement(snap *models.SaleSnapshot, contribution string) string {
	reserve, ok1 := new(big.Int).SetString(snap.Params.ProjectTokenReserve, 10)
	hardcap, ok2 := new(big.Int).SetString(snap.Params.MaxSaleTokenReserve, 10)
	net, ok3 := new(big.Int).SetString(contribution, 10)
	if !ok1 || !ok2 || !ok3 || hardcap.Sign() <= 0 {
		return "?"
	}
	out := new(big.Int).Mul(reserve, net)
	return out.Div(out, hardcap).String()
}

// soldFraction renders contributed/hardcap as a percentage with two decimals.
func soldFraction(snap *models.SaleSnapshot) string {
	total, ok1 := new(big.Int).SetString(snap.TotalContributed, 10)
	hardcap, ok2 := new(big.Int).SetString(snap.Params.MaxSaleTokenReserve, 10)
	if !ok1 || !ok2 || hardcap.Sign() <= 0 {
		return "?"
	}
	bps := new(big.Int).Mul(total, big.NewInt(10000))
	bps.Div(bps, hardcap)
	whole := new(big.Int).Div(bps, big.NewInt(100))
	frac := new(big.Int).Mod(bps, big.NewInt(100))

	out := whole.String() + "."
	if frac.Cmp(big.NewInt(10)) < 0 {
		out += "0"
	}
	return out + frac.String() + "%"
}
