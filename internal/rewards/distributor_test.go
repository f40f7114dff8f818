package rewards

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"launchpad-engine-go/internal/ledger"
	"launchpad-engine-go/internal/models"
)

const (
	owner       = "rewards-owner"
	distributor = "rewards-distributor"
	account     = "rewards-pool"
	rewardToken = "FUSE"
)

func newTestDistributor(t *testing.T) (*Distributor, *ledger.MemoryLedger) {
	t.Helper()

	bank := ledger.NewMemoryLedger()
	d, err := NewDistributor(owner, distributor, account, bank, zap.NewNop(), nil)
	require.NoError(t, err)

	bank.Mint(rewardToken, account, big.NewInt(1_000))
	return d, bank
}

// TestAddRewardOwnerOnly verifies reward creation is gated on the owner and
// validated.
func TestAddRewardOwnerOnly(t *testing.T) {
	d, _ := newTestDistributor(t)

	_, err := d.AddReward(distributor, "bonus", "", rewardToken, big.NewInt(50), false)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = d.AddReward(owner, "bonus", "", "", big.NewInt(50), false)
	assert.ErrorIs(t, err, models.ErrInvalidParameters)

	_, err = d.AddReward(owner, "bonus", "", rewardToken, big.NewInt(0), false)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	id, err := d.AddReward(owner, "bonus", "launch bonus", rewardToken, big.NewInt(50), false)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	rewards := d.Rewards()
	require.Len(t, rewards, 1)
	assert.Equal(t, "bonus", rewards[0].Name)
	assert.Equal(t, big.NewInt(50), rewards[0].Amount)
}

// TestFixedRewardPaysRewardAmount grants and claims a fixed reward: the
// payout is the reward amount regardless of the granted figure.
func TestFixedRewardPaysRewardAmount(t *testing.T) {
	d, bank := newTestDistributor(t)

	id, err := d.AddReward(owner, "fixed", "", rewardToken, big.NewInt(50), false)
	require.NoError(t, err)

	require.NoError(t, d.AddDistribution(distributor, id, "alice", big.NewInt(0)))

	paid, err := d.ClaimDistribution("alice", id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(50), paid)

	bal, err := bank.BalanceOf(rewardToken, "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(50), bal)
}

// TestVariableRewardPaysGrantedAmount grants a variable reward and verifies
// the per-distribution amount wins over the template amount.
func TestVariableRewardPaysGrantedAmount(t *testing.T) {
	d, bank := newTestDistributor(t)

	id, err := d.AddReward(owner, "variable", "", rewardToken, big.NewInt(50), true)
	require.NoError(t, err)

	err = d.AddDistribution(distributor, id, "alice", big.NewInt(0))
	assert.ErrorIs(t, err, models.ErrInvalidAmount, "variable grants need an explicit amount")

	require.NoError(t, d.AddDistribution(distributor, id, "alice", big.NewInt(75)))

	paid, err := d.ClaimDistribution("alice", id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(75), paid)

	bal, err := bank.BalanceOf(rewardToken, "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(75), bal)
}

// TestDistributionGrantedOncePerUser verifies the one-grant-per-user rule and
// that it is scoped per reward.
func TestDistributionGrantedOncePerUser(t *testing.T) {
	d, _ := newTestDistributor(t)

	first, err := d.AddReward(owner, "a", "", rewardToken, big.NewInt(10), false)
	require.NoError(t, err)
	second, err := d.AddReward(owner, "b", "", rewardToken, big.NewInt(20), false)
	require.NoError(t, err)

	require.NoError(t, d.AddDistribution(distributor, first, "alice", nil))
	err = d.AddDistribution(distributor, first, "alice", nil)
	assert.ErrorIs(t, err, ErrDistributionExists)

	require.NoError(t, d.AddDistribution(distributor, second, "alice", nil),
		"the same user may hold grants under different rewards")
}

// TestDistributionAccessControl verifies only the distributor grants and
// unknown rewards are rejected.
func TestDistributionAccessControl(t *testing.T) {
	d, _ := newTestDistributor(t)

	id, err := d.AddReward(owner, "a", "", rewardToken, big.NewInt(10), false)
	require.NoError(t, err)

	err = d.AddDistribution(owner, id, "alice", nil)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	err = d.AddDistribution(distributor, 7, "alice", nil)
	assert.ErrorIs(t, err, ErrRewardNotFound)

	_, err = d.ClaimDistribution("alice", 7)
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

// TestClaimOnlyOnce verifies a distribution pays exactly once and ungranted
// users get nothing.
func TestClaimOnlyOnce(t *testing.T) {
	d, _ := newTestDistributor(t)

	id, err := d.AddReward(owner, "a", "", rewardToken, big.NewInt(10), false)
	require.NoError(t, err)
	require.NoError(t, d.AddDistribution(distributor, id, "alice", nil))

	_, err = d.ClaimDistribution("bob", id)
	assert.ErrorIs(t, err, models.ErrNothingToClaim)

	_, err = d.ClaimDistribution("alice", id)
	require.NoError(t, err)
	_, err = d.ClaimDistribution("alice", id)
	assert.ErrorIs(t, err, models.ErrNothingToClaim)
}

// TestSweepReturnsFundingToOwner drains the pool back to the owner, owner
// only.
func TestSweepReturnsFundingToOwner(t *testing.T) {
	d, bank := newTestDistributor(t)

	id, err := d.AddReward(owner, "a", "", rewardToken, big.NewInt(100), false)
	require.NoError(t, err)
	require.NoError(t, d.AddDistribution(distributor, id, "alice", nil))
	_, err = d.ClaimDistribution("alice", id)
	require.NoError(t, err)

	_, err = d.Sweep(distributor, rewardToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	swept, err := d.Sweep(owner, rewardToken)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(900), swept)

	ownerBal, err := bank.BalanceOf(rewardToken, owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(900), ownerBal)

	poolBal, err := bank.BalanceOf(rewardToken, account)
	require.NoError(t, err)
	assert.Zero(t, poolBal.Sign())
}
