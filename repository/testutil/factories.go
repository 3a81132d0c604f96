package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"lulubingo/models"
)

// CreateTestShop creates a test shop with default values
func CreateTestShop(username string) *models.Shop {
	now := time.Now()
	return &models.Shop{
		Username:      username,
		Name:          "Shop " + username,
		Status:        models.ShopStatusActive,
		WalletBalance: decimal.RequireFromString("10000.00"),
		FeatureFlags:  map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateTestShopWithBalance creates a test shop with a specific wallet balance
func CreateTestShopWithBalance(username string, balance decimal.Decimal) *models.Shop {
	shop := CreateTestShop(username)
	shop.WalletBalance = balance
	return shop
}

// CreateTestTransaction creates a test ledger transaction entry
func CreateTestTransaction(shopID int64, transactionType models.TransactionType) *models.Transaction {
	return &models.Transaction{
		ShopID:        shopID,
		Type:          transactionType,
		Amount:        decimal.RequireFromString("100.00"),
		BalanceBefore: decimal.RequireFromString("10000.00"),
		BalanceAfter:  decimal.RequireFromString("9900.00"),
		Reference:     "test:reference",
		Metadata: map[string]any{
			"test": true,
		},
		ActorRole: models.ActorRoleShop,
		Currency:  models.DefaultCurrency,
		CreatedAt: time.Now(),
	}
}

// CreateTestGame creates a minimal active standard-mode game
func CreateTestGame(shopID int64, code string) *models.Game {
	now := time.Now()
	return &models.Game{
		ShopID:     shopID,
		Code:       code,
		Mode:       models.GameModeStandard,
		Status:     models.GameStatusActive,
		BetAmount:  decimal.RequireFromString("50.00"),
		WinAmount:  decimal.RequireFromString("200.00"),
		NumPlayers: 4,
		CartellaNumbers: [][]int{
			{4, 5, 6},
			{7, 8, 9},
		},
		DrawSequence: []int{4, 9, 5, 6, 7, 8},
		CartellaDrawSequences: map[int][]int{
			0: {4, 5, 6, 7, 8, 9},
			1: {9, 8, 7, 6, 5, 4},
		},
		CartellaStatuses: map[int]models.CartellaStatus{
			0: models.CartellaStatusActive,
			1: models.CartellaStatusActive,
		},
		TotalPool:     decimal.RequireFromString("100.00"),
		CutPercentage: decimal.NewFromInt(10),
		WinPercentage: decimal.NewFromInt(90),
		BetDebitedAt:  &now,
		StartedAt:     &now,
	}
}

// CreateTestSession creates a waiting session with no players
func CreateTestSession(shopID int64, sessionID string) *models.ShopBingoSession {
	return &models.ShopBingoSession{
		ShopID:            shopID,
		SessionID:         sessionID,
		Status:            models.SessionStatusWaiting,
		MinBetPerCartella: decimal.RequireFromString("20.00"),
		TotalPayable:      decimal.Zero,
	}
}
