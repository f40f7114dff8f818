package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-engine-go/internal/models"
)

func sampleSnapshot(saleID string) *models.SaleSnapshot {
	return &models.SaleSnapshot{
		SaleID: saleID,
		Params: models.SaleParametersSnapshot{
			ProjectToken:        "PROJ",
			SaleToken:           "USDC",
			ProjectTokenReserve: "10000000000000000000000000",
			MinSaleTokenReserve: "5000000000",
			MaxSaleTokenReserve: "15000000000",
			StakedUserCap:       "10000000000",
			UnstakedUserCap:     "2000000000",
			SnapshotTime:        time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
			StartTime:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			EndTime:             time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
			VestingDays:         5,
			ProjectTreasury:     "project-treasury",
		},
		TotalContributed: "4000000000",
		Accounts: map[string]models.SaleAccountSnapshot{
			"alice": {
				NetContribution:  "4000000000",
				ClaimedAmount:    "0",
				Snapshotted:      true,
				StakedAtSnapshot: true,
			},
		},
		LastUpdateTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

// repositories returns both implementations so every test runs against each.
func repositories(t *testing.T) map[string]SaleRepository {
	t.Helper()

	badgerRepo, err := NewBadgerRepository(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { badgerRepo.Close() })

	return map[string]SaleRepository{
		"badger": badgerRepo,
		"memory": NewMemoryRepository(),
	}
}

// TestSaveLoadRoundTrip persists a snapshot and reads it back intact.
func TestSaveLoadRoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			snap := sampleSnapshot("sale-1")
			require.NoError(t, repo.SaveSnapshot(snap))

			loaded, err := repo.LoadSnapshot("sale-1")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, snap.SaleID, loaded.SaleID)
			assert.Equal(t, snap.TotalContributed, loaded.TotalContributed)
			assert.Equal(t, snap.Params.ProjectToken, loaded.Params.ProjectToken)
			require.Contains(t, loaded.Accounts, "alice")
			assert.Equal(t, "4000000000", loaded.Accounts["alice"].NetContribution)
			assert.True(t, loaded.Accounts["alice"].StakedAtSnapshot)
		})
	}
}

// TestLoadMissingReturnsNil verifies the (nil, nil) contract for absent sales.
func TestLoadMissingReturnsNil(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := repo.LoadSnapshot("no-such-sale")
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

// TestSaveOverwrites verifies a later snapshot replaces the earlier one.
func TestSaveOverwrites(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.SaveSnapshot(sampleSnapshot("sale-1")))

			updated := sampleSnapshot("sale-1")
			updated.TotalContributed = "6000000000"
			require.NoError(t, repo.SaveSnapshot(updated))

			loaded, err := repo.LoadSnapshot("sale-1")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, "6000000000", loaded.TotalContributed)
		})
	}
}

// TestListSaleIDs verifies the prefix scan finds every persisted sale.
func TestListSaleIDs(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.SaveSnapshot(sampleSnapshot("sale-1")))
			require.NoError(t, repo.SaveSnapshot(sampleSnapshot("sale-2")))

			ids, err := repo.ListSaleIDs()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"sale-1", "sale-2"}, ids)
		})
	}
}
