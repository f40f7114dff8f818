package registry

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"launchpad-engine-go/internal/launchpad"
	"launchpad-engine-go/internal/ledger"
	"launchpad-engine-go/internal/models"
	"launchpad-engine-go/internal/oracle"
)

const (
	owner    = "launchpad-owner"
	creator  = "project-creator"
	treasury = "project-treasury"
)

var saleStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testParams(projectToken string) models.SaleParameters {
	reserve := new(big.Int).Exp(big.NewInt(10), big.NewInt(25), nil)
	return models.SaleParameters{
		ProjectToken:        projectToken,
		SaleToken:           "USDC",
		ProjectTokenReserve: reserve,
		MinSaleTokenReserve: big.NewInt(5_000_000_000),
		MaxSaleTokenReserve: big.NewInt(15_000_000_000),
		StakedUserCap:       big.NewInt(10_000_000_000),
		UnstakedUserCap:     big.NewInt(2_000_000_000),
		SnapshotTime:        saleStart.Add(-time.Hour),
		StartTime:           saleStart,
		EndTime:             saleStart.Add(72 * time.Hour),
		VestingDays:         5,
		ProjectTreasury:     treasury,
	}
}

type registryFixture struct {
	reg   *Registry
	bank  *ledger.MemoryLedger
	clock *launchpad.ManualClock
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()

	bank := ledger.NewMemoryLedger()
	clock := launchpad.NewManualClock(saleStart.Add(-24 * time.Hour))

	reg, err := NewRegistry(owner, 25, 25, Dependencies{
		Ledger: bank,
		Oracle: oracle.NewStaticOracle(),
		Clock:  clock,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	return &registryFixture{reg: reg, bank: bank, clock: clock}
}

// fundCreator mints the reserve to the creator and approves the registry to
// pull it, the precondition of CreateSale.
func (f *registryFixture) fundCreator(t *testing.T, params models.SaleParameters) {
	t.Helper()
	f.bank.Mint(params.ProjectToken, creator, params.ProjectTokenReserve)
	require.NoError(t, f.bank.Approve(params.ProjectToken, creator, Account, params.ProjectTokenReserve))
}

// TestNewRegistryValidatesFeeBand checks that both rates must sit strictly
// inside (0, 50).
func TestNewRegistryValidatesFeeBand(t *testing.T) {
	deps := Dependencies{
		Ledger: ledger.NewMemoryLedger(),
		Oracle: oracle.NewStaticOracle(),
		Clock:  launchpad.SystemClock(),
	}

	for _, rate := range []uint64{0, MaxFeeRate, MaxFeeRate + 1} {
		_, err := NewRegistry(owner, rate, 25, deps)
		assert.ErrorIs(t, err, models.ErrInvalidParameters, "withdraw rate %d must be rejected", rate)
		_, err = NewRegistry(owner, 25, rate, deps)
		assert.ErrorIs(t, err, models.ErrInvalidParameters, "launchpad rate %d must be rejected", rate)
	}

	reg, err := NewRegistry(owner, 1, MaxFeeRate-1, deps)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reg.WithdrawFeeRate())
	assert.Equal(t, uint64(MaxFeeRate-1), reg.LaunchpadFeeRate())
}

// TestCreateSaleFundsCustody verifies the reserve moves from the creator to
// the sale's custody account at creation.
func TestCreateSaleFundsCustody(t *testing.T) {
	f := newRegistryFixture(t)
	params := testParams("PROJ")
	f.fundCreator(t, params)

	engine, err := f.reg.CreateSale(creator, params)
	require.NoError(t, err)
	require.NotEmpty(t, engine.SaleID())

	custodyBalance, err := f.bank.BalanceOf("PROJ", engine.Custody())
	require.NoError(t, err)
	assert.Equal(t, params.ProjectTokenReserve, custodyBalance)

	creatorBalance, err := f.bank.BalanceOf("PROJ", creator)
	require.NoError(t, err)
	assert.Zero(t, creatorBalance.Sign())

	got, ok := f.reg.Sale("PROJ")
	require.True(t, ok)
	assert.Same(t, engine, got)
	got, ok = f.reg.SaleByID(engine.SaleID())
	require.True(t, ok)
	assert.Same(t, engine, got)
}

// TestCreateSaleRejectsDuplicateToken enforces one sale per project token.
func TestCreateSaleRejectsDuplicateToken(t *testing.T) {
	f := newRegistryFixture(t)
	params := testParams("PROJ")
	f.fundCreator(t, params)

	_, err := f.reg.CreateSale(creator, params)
	require.NoError(t, err)

	f.fundCreator(t, params)
	_, err = f.reg.CreateSale(creator, params)
	assert.ErrorIs(t, err, models.ErrDuplicateSale)
}

// TestCreateSaleRejectsInvalidParams verifies validation happens before any
// transfer.
func TestCreateSaleRejectsInvalidParams(t *testing.T) {
	f := newRegistryFixture(t)
	params := testParams("PROJ")
	params.EndTime = params.StartTime
	f.fundCreator(t, params)

	_, err := f.reg.CreateSale(creator, params)
	assert.ErrorIs(t, err, models.ErrInvalidParameters)

	balance, err := f.bank.BalanceOf("PROJ", creator)
	require.NoError(t, err)
	assert.Equal(t, params.ProjectTokenReserve, balance, "failed creation must not move the reserve")
}

// TestCreateSaleRequiresFundedCreator verifies an unfunded or unapproved
// creator cannot open a sale.
func TestCreateSaleRequiresFundedCreator(t *testing.T) {
	f := newRegistryFixture(t)
	params := testParams("PROJ")
	f.bank.Mint(params.ProjectToken, creator, params.ProjectTokenReserve)
	// No approval for the registry account.

	_, err := f.reg.CreateSale(creator, params)
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
	_, ok := f.reg.Sale("PROJ")
	assert.False(t, ok, "a failed creation must not register the sale")
}

// TestSaleIDsAreUnique creates several sales and checks their IDs differ.
func TestSaleIDsAreUnique(t *testing.T) {
	f := newRegistryFixture(t)

	seen := make(map[string]bool)
	for _, token := range []string{"AAA", "BBB", "CCC"} {
		params := testParams(token)
		f.fundCreator(t, params)
		engine, err := f.reg.CreateSale(creator, params)
		require.NoError(t, err)
		assert.False(t, seen[engine.SaleID()], "sale ID %s reused", engine.SaleID())
		seen[engine.SaleID()] = true
	}
	assert.Len(t, f.reg.Sales(), 3)
}

// TestFeeSettersAreOwnerGated verifies only the owner can change rates and
// that the band still applies.
func TestFeeSettersAreOwnerGated(t *testing.T) {
	f := newRegistryFixture(t)

	assert.ErrorIs(t, f.reg.SetWithdrawFeeRate(creator, 30), models.ErrUnauthorized)
	assert.ErrorIs(t, f.reg.SetLaunchpadFeeRate(creator, 30), models.ErrUnauthorized)
	assert.ErrorIs(t, f.reg.SetWithdrawFeeRate(owner, 0), models.ErrInvalidParameters)
	assert.ErrorIs(t, f.reg.SetLaunchpadFeeRate(owner, MaxFeeRate), models.ErrInvalidParameters)

	require.NoError(t, f.reg.SetWithdrawFeeRate(owner, 30))
	require.NoError(t, f.reg.SetLaunchpadFeeRate(owner, 10))
	assert.Equal(t, uint64(30), f.reg.WithdrawFeeRate())
	assert.Equal(t, uint64(10), f.reg.LaunchpadFeeRate())
	assert.Equal(t, owner, f.reg.FeeRecipient())
}

// TestFeeChangeAppliesToRunningSale verifies a rate change takes effect on an
// already-created sale's next withdrawal.
func TestFeeChangeAppliesToRunningSale(t *testing.T) {
	f := newRegistryFixture(t)
	params := testParams("PROJ")
	f.fundCreator(t, params)

	engine, err := f.reg.CreateSale(creator, params)
	require.NoError(t, err)

	f.clock.Set(params.StartTime)
	f.bank.Mint("USDC", "alice", big.NewInt(2_000_000_000))
	require.NoError(t, f.bank.Approve("USDC", "alice", engine.Custody(), big.NewInt(2_000_000_000)))
	require.NoError(t, engine.Buy("alice", big.NewInt(2_000_000_000)))

	require.NoError(t, f.reg.SetWithdrawFeeRate(owner, 40))
	require.NoError(t, engine.Withdraw("alice", big.NewInt(1_000_000_000)))

	// 4% of 1000 USDC.
	feeBalance, err := f.bank.BalanceOf("USDC", owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(40_000_000), feeBalance)
}

// TestRestoreSaleResumesEngine round-trips a sale through a snapshot and back
// into a fresh registry.
func TestRestoreSaleResumesEngine(t *testing.T) {
	f := newRegistryFixture(t)
	params := testParams("PROJ")
	f.fundCreator(t, params)

	engine, err := f.reg.CreateSale(creator, params)
	require.NoError(t, err)

	f.clock.Set(params.StartTime)
	f.bank.Mint("USDC", "alice", big.NewInt(1_000_000_000))
	require.NoError(t, f.bank.Approve("USDC", "alice", engine.Custody(), big.NewInt(1_000_000_000)))
	require.NoError(t, engine.Buy("alice", big.NewInt(1_000_000_000)))

	snap := engine.Snapshot()

	fresh := newRegistryFixture(t)
	restored, err := fresh.reg.RestoreSale(snap)
	require.NoError(t, err)
	assert.Equal(t, engine.SaleID(), restored.SaleID())
	assert.Equal(t, engine.TotalContributed(), restored.TotalContributed())

	_, err = fresh.reg.RestoreSale(snap)
	assert.ErrorIs(t, err, models.ErrDuplicateSale)
}
