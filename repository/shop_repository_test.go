package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lulubingo/models"
	"lulubingo/repository/testutil"
)

func TestShopRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewShopRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		shop := testutil.CreateTestShop("addis-corner")
		shop.FeatureFlags = map[string]any{
			"cut_percentage": 15,
		}

		err := repo.Create(ctx, shop)
		require.NoError(t, err)
		assert.NotZero(t, shop.ID)
		assert.False(t, shop.CreatedAt.IsZero())
		assert.False(t, shop.UpdatedAt.IsZero())
	})

	t.Run("duplicate username constraint", func(t *testing.T) {
		first := testutil.CreateTestShop("bole-bingo")
		require.NoError(t, repo.Create(ctx, first))

		second := testutil.CreateTestShop("bole-bingo")
		err := repo.Create(ctx, second)
		assert.Error(t, err)
	})
}

func TestShopRepository_GetByID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewShopRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no shop found", func(t *testing.T) {
		shop, err := repo.GetByID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, shop)
	})

	t.Run("shop found", func(t *testing.T) {
		original := testutil.CreateTestShopWithBalance("piassa-games", decimal.RequireFromString("2500.50"))
		original.FeatureFlags = map[string]any{
			"cut_percentage": 12.5,
		}
		require.NoError(t, repo.Create(ctx, original))

		shop, err := repo.GetByID(ctx, original.ID)
		require.NoError(t, err)
		require.NotNil(t, shop)

		assert.Equal(t, original.Username, shop.Username)
		assert.Equal(t, original.Name, shop.Name)
		assert.Equal(t, models.ShopStatusActive, shop.Status)
		assert.True(t, shop.WalletBalance.Equal(decimal.RequireFromString("2500.50")),
			"expected 2500.50, got %s", shop.WalletBalance)
		assert.Equal(t, 12.5, shop.FeatureFlags["cut_percentage"])
	})

	t.Run("for update returns same row", func(t *testing.T) {
		original := testutil.CreateTestShop("merkato-hall")
		require.NoError(t, repo.Create(ctx, original))

		shop, err := repo.GetByIDForUpdate(ctx, original.ID)
		require.NoError(t, err)
		require.NotNil(t, shop)
		assert.Equal(t, original.Username, shop.Username)
	})
}

func TestShopRepository_UpdateWalletBalance(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewShopRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful update", func(t *testing.T) {
		shop := testutil.CreateTestShopWithBalance("kazanchis", decimal.RequireFromString("100.00"))
		require.NoError(t, repo.Create(ctx, shop))

		newBalance := decimal.RequireFromString("350.25")
		err := repo.UpdateWalletBalance(ctx, shop.ID, newBalance)
		require.NoError(t, err)

		updated, err := repo.GetByID(ctx, shop.ID)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.True(t, updated.WalletBalance.Equal(newBalance),
			"expected %s, got %s", newBalance, updated.WalletBalance)
	})

	t.Run("negative balance rejected by constraint", func(t *testing.T) {
		shop := testutil.CreateTestShop("lideta")
		require.NoError(t, repo.Create(ctx, shop))

		err := repo.UpdateWalletBalance(ctx, shop.ID, decimal.RequireFromString("-1.00"))
		assert.Error(t, err)
	})

	t.Run("unknown shop", func(t *testing.T) {
		err := repo.UpdateWalletBalance(ctx, 99999, decimal.RequireFromString("10.00"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}
