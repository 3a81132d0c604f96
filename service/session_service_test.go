package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lulubingo/events"
	"lulubingo/models"
)

func waitingTestSession(shopID int64, sessionID string) *models.ShopBingoSession {
	return &models.ShopBingoSession{
		ID:                1,
		ShopID:            shopID,
		SessionID:         sessionID,
		Status:            models.SessionStatusWaiting,
		MinBetPerCartella: decimal.RequireFromString("20.00"),
		TotalPayable:      decimal.Zero,
	}
}

func TestSessionService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("floor clamps to the platform minimum", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockShopRepo := new(MockShopRepository)
		mockSessionRepo := new(MockSessionRepository)

		mockUoW.SetRepositories(mockShopRepo, nil, nil, mockSessionRepo, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		shop := &models.Shop{ID: 7, Username: "lucy"}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockShopRepo.On("GetByID", ctx, int64(7)).Return(shop, nil)
		mockSessionRepo.On("Create", ctx, mock.MatchedBy(func(s *models.ShopBingoSession) bool {
			return s.Status == models.SessionStatusWaiting &&
				s.MinBetPerCartella.Equal(decimal.NewFromInt(20)) &&
				s.TotalPayable.IsZero()
		})).Return(nil)

		// Requested floor of 5.00 is below the configured 20
		session, err := service.CreateSession(ctx, 7, decimal.RequireFromString("5.00"))

		require.NoError(t, err)
		assert.NotEmpty(t, session.SessionID)
		assert.True(t, session.MinBetPerCartella.Equal(decimal.NewFromInt(20)))
	})

	t.Run("higher floor is kept", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockShopRepo := new(MockShopRepository)
		mockSessionRepo := new(MockSessionRepository)

		mockUoW.SetRepositories(mockShopRepo, nil, nil, mockSessionRepo, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockShopRepo.On("GetByID", ctx, int64(7)).Return(&models.Shop{ID: 7}, nil)
		mockSessionRepo.On("Create", ctx, mock.Anything).Return(nil)

		session, err := service.CreateSession(ctx, 7, decimal.RequireFromString("50.00"))

		require.NoError(t, err)
		assert.True(t, session.MinBetPerCartella.Equal(decimal.NewFromInt(50)))
	})

	t.Run("fractional floor rejected", func(t *testing.T) {
		mockFactory := new(MockUnitOfWorkFactory)
		service := NewSessionService(mockFactory, testRandFactory)

		_, err := service.CreateSession(ctx, 7, decimal.RequireFromString("20.005"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		mockFactory.AssertNotCalled(t, "Create")
	})

	t.Run("unknown shop", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockShopRepo := new(MockShopRepository)

		mockUoW.SetRepositories(mockShopRepo, nil, nil, nil, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockShopRepo.On("GetByID", ctx, int64(404)).Return(nil, nil)

		_, err := service.CreateSession(ctx, 404, decimal.RequireFromString("20.00"))
		assert.ErrorIs(t, err, ErrShopNotFound)
	})
}

func TestSessionService_Reserve_Validation(t *testing.T) {
	ctx := context.Background()
	mockFactory := new(MockUnitOfWorkFactory)
	service := NewSessionService(mockFactory, testRandFactory)

	bet := decimal.RequireFromString("25.00")

	_, err := service.Reserve(ctx, 7, "sess", "   ", []int{3}, bet)
	assert.ErrorIs(t, err, ErrPlayerNameRequired)

	_, err = service.Reserve(ctx, 7, "sess", "Abebe", nil, bet)
	assert.ErrorIs(t, err, ErrInvalidCartellaNumbers)

	_, err = service.Reserve(ctx, 7, "sess", "Abebe", []int{1, 2, 3, 4, 5}, bet)
	assert.ErrorIs(t, err, ErrInvalidCartellaNumbers)

	_, err = service.Reserve(ctx, 7, "sess", "Abebe", []int{3, 0}, bet)
	assert.ErrorIs(t, err, ErrInvalidCartellaNumbers)

	_, err = service.Reserve(ctx, 7, "sess", "Abebe", []int{3, 3}, bet)
	assert.ErrorIs(t, err, ErrInvalidCartellaNumbers)

	_, err = service.Reserve(ctx, 7, "sess", "Abebe", []int{3}, decimal.RequireFromString("25.005"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.Reserve(ctx, 7, "sess", "Abebe", []int{3}, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// Validation failures never open a transaction
	mockFactory.AssertNotCalled(t, "Create")
}

func TestSessionService_Reserve(t *testing.T) {
	ctx := context.Background()

	setup := func(session *models.ShopBingoSession) (SessionService, *MockSessionRepository, *MockUnitOfWork) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockSessionRepo := new(MockSessionRepository)

		mockUoW.SetRepositories(nil, nil, nil, mockSessionRepo, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)

		if session != nil {
			mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)
		} else {
			mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(nil, nil)
		}
		return service, mockSessionRepo, mockUoW
	}

	t.Run("new reservation stores sorted numbers", func(t *testing.T) {
		session := waitingTestSession(7, "sess")
		service, mockSessionRepo, _ := setup(session)

		mockSessionRepo.On("Update", ctx, mock.MatchedBy(func(s *models.ShopBingoSession) bool {
			return len(s.Players) == 1 &&
				s.Players[0].PlayerName == "Abebe" &&
				len(s.Players[0].CartellaNumbers) == 2 &&
				s.Players[0].CartellaNumbers[0] == 3 &&
				s.Players[0].CartellaNumbers[1] == 17 &&
				s.TotalPayable.Equal(decimal.RequireFromString("50.00"))
		})).Return(nil)

		result, err := service.Reserve(ctx, 7, "sess", "Abebe", []int{17, 3}, decimal.RequireFromString("25.00"))

		require.NoError(t, err)
		assert.Equal(t, []int{3, 17}, result.LockedCartellas)
		assert.True(t, result.Players[0].TotalBet.Equal(decimal.RequireFromString("50.00")))
		mockSessionRepo.AssertExpectations(t)
	})

	t.Run("replacing keeps the original reservation time", func(t *testing.T) {
		reservedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		session := waitingTestSession(7, "sess")
		session.Players = []models.PlayerReservation{{
			PlayerName:      "Abebe",
			CartellaNumbers: []int{3, 17},
			BetPerCartella:  decimal.RequireFromString("25.00"),
			ReservedAt:      reservedAt,
		}}

		service, mockSessionRepo, _ := setup(session)
		mockSessionRepo.On("Update", ctx, mock.Anything).Return(nil)

		// Same player under different casing
		result, err := service.Reserve(ctx, 7, "sess", "ABEBE", []int{5}, decimal.RequireFromString("30.00"))

		require.NoError(t, err)
		require.Len(t, result.Players, 1)
		assert.Equal(t, []int{5}, result.Players[0].CartellaNumbers)
		assert.True(t, result.Players[0].BetPerCartella.Equal(decimal.RequireFromString("30.00")))
		assert.True(t, result.Players[0].ReservedAt.Equal(reservedAt))
		assert.Equal(t, []int{5}, result.LockedCartellas)
	})

	t.Run("paid reservation is frozen", func(t *testing.T) {
		session := waitingTestSession(7, "sess")
		session.Players = []models.PlayerReservation{{
			PlayerName:      "Abebe",
			CartellaNumbers: []int{3},
			BetPerCartella:  decimal.RequireFromString("25.00"),
			Paid:            true,
		}}

		service, mockSessionRepo, _ := setup(session)

		_, err := service.Reserve(ctx, 7, "sess", "Abebe", []int{5}, decimal.RequireFromString("25.00"))
		assert.ErrorIs(t, err, ErrPlayerPaid)
		mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("fifth player is rejected", func(t *testing.T) {
		session := waitingTestSession(7, "sess")
		for _, name := range []string{"Abebe", "Biruk", "Chaltu", "Dina"} {
			session.Players = append(session.Players, models.PlayerReservation{
				PlayerName:      name,
				CartellaNumbers: []int{len(session.Players) + 1},
				BetPerCartella:  decimal.RequireFromString("20.00"),
			})
		}

		service, _, _ := setup(session)

		_, err := service.Reserve(ctx, 7, "sess", "Efrem", []int{9}, decimal.RequireFromString("20.00"))
		assert.ErrorIs(t, err, ErrSessionFull)
	})

	t.Run("numbers held by others conflict", func(t *testing.T) {
		session := waitingTestSession(7, "sess")
		session.Players = []models.PlayerReservation{{
			PlayerName:      "Abebe",
			CartellaNumbers: []int{3, 17},
			BetPerCartella:  decimal.RequireFromString("25.00"),
		}}

		service, _, _ := setup(session)

		_, err := service.Reserve(ctx, 7, "sess", "Biruk", []int{17, 3, 9}, decimal.RequireFromString("25.00"))

		var dupErr *DuplicateCartellaError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, []int{3, 17}, dupErr.Numbers)
	})

	t.Run("bet below the session floor", func(t *testing.T) {
		session := waitingTestSession(7, "sess")
		service, _, _ := setup(session)

		_, err := service.Reserve(ctx, 7, "sess", "Abebe", []int{3}, decimal.RequireFromString("19.00"))
		assert.ErrorIs(t, err, ErrBetBelowMinimum)
	})

	t.Run("locked session rejects reservations", func(t *testing.T) {
		session := waitingTestSession(7, "sess")
		session.Status = models.SessionStatusLocked

		service, _, _ := setup(session)

		_, err := service.Reserve(ctx, 7, "sess", "Abebe", []int{3}, decimal.RequireFromString("25.00"))
		assert.ErrorIs(t, err, ErrSessionNotWaiting)
	})

	t.Run("unknown session", func(t *testing.T) {
		service, _, _ := setup(nil)

		_, err := service.Reserve(ctx, 7, "sess", "Abebe", []int{3}, decimal.RequireFromString("25.00"))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSessionService_ConfirmPayment_Partial(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockShopRepo := new(MockShopRepository)
	mockSessionRepo := new(MockSessionRepository)

	mockUoW.SetRepositories(mockShopRepo, nil, nil, mockSessionRepo, nil)
	service := NewSessionService(mockFactory, testRandFactory)

	session := waitingTestSession(7, "sess")
	session.Players = []models.PlayerReservation{
		{PlayerName: "Abebe", CartellaNumbers: []int{1}, BetPerCartella: decimal.RequireFromString("20.00")},
		{PlayerName: "Biruk", CartellaNumbers: []int{2}, BetPerCartella: decimal.RequireFromString("20.00")},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)
	mockSessionRepo.On("Update", ctx, mock.MatchedBy(func(s *models.ShopBingoSession) bool {
		return s.Status == models.SessionStatusWaiting &&
			s.Players[0].Paid && s.Players[0].PaidAt != nil &&
			!s.Players[1].Paid
	})).Return(nil)

	confirmation, err := service.ConfirmPayment(ctx, 7, "sess", "Abebe")

	require.NoError(t, err)
	assert.Nil(t, confirmation.Game)
	assert.Equal(t, models.SessionStatusWaiting, confirmation.Session.Status)

	// Two of four players means no game and no wallet movement yet
	mockShopRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
	mockSessionRepo.AssertExpectations(t)
}

func TestSessionService_ConfirmPayment_FinalizesOnLastPayment(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockShopRepo := new(MockShopRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockGameRepo := new(MockGameRepository)
	mockSessionRepo := new(MockSessionRepository)
	mockPublisher := new(MockEventPublisher)

	mockUoW.SetRepositories(mockShopRepo, mockTransactionRepo, mockGameRepo, mockSessionRepo, mockPublisher)
	service := NewSessionService(mockFactory, testRandFactory)

	paidAt := time.Now()
	session := waitingTestSession(7, "sess")
	session.Players = []models.PlayerReservation{
		{PlayerName: "Abebe", CartellaNumbers: []int{1}, BetPerCartella: decimal.RequireFromString("20.00"), Paid: true, PaidAt: &paidAt},
		{PlayerName: "Biruk", CartellaNumbers: []int{2}, BetPerCartella: decimal.RequireFromString("20.00"), Paid: true, PaidAt: &paidAt},
		{PlayerName: "Chaltu", CartellaNumbers: []int{3}, BetPerCartella: decimal.RequireFromString("20.00"), Paid: true, PaidAt: &paidAt},
		{PlayerName: "Dina", CartellaNumbers: []int{4}, BetPerCartella: decimal.RequireFromString("20.00")},
	}
	session.Recompute()

	shop := &models.Shop{
		ID:            7,
		Username:      "lucy",
		WalletBalance: decimal.RequireFromString("1000.00"),
		FeatureFlags:  map[string]any{},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)

	mockShopRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(shop, nil)
	mockGameRepo.On("CodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil)

	// Four players at 20.00 each
	mockShopRepo.On("UpdateWalletBalance", ctx, int64(7), mock.MatchedBy(func(b decimal.Decimal) bool {
		return b.Equal(decimal.RequireFromString("920.00"))
	})).Return(nil)
	mockTransactionRepo.On("Create", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
		return txn.Type == models.TransactionTypeBetDebit &&
			txn.Amount.Equal(decimal.RequireFromString("80.00")) &&
			txn.ActorRole == models.ActorRoleShop &&
			txn.Metadata["session_id"] == "sess"
	})).Return(nil)

	mockGameRepo.On("Create", ctx, mock.MatchedBy(func(g *models.Game) bool {
		return g.Mode == models.GameModeShopFixed4 &&
			g.Status == models.GameStatusPending &&
			g.CartellaCount() == 4 &&
			len(g.CartellaNumbers[0]) == 25 &&
			g.CartellaNumberMap[1] == 0 &&
			g.CartellaNumberMap[4] == 3 &&
			len(g.CartellaDrawSequences) == 4 &&
			g.TotalPool.Equal(decimal.RequireFromString("80.00")) &&
			g.BetDebitedAt != nil &&
			g.StartedAt == nil
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Game).ID = 55
	})

	mockSessionRepo.On("Update", ctx, mock.MatchedBy(func(s *models.ShopBingoSession) bool {
		return s.Status == models.SessionStatusLocked &&
			s.GameID != nil && *s.GameID == 55 &&
			s.AllPlayersPaid()
	})).Return(nil)

	mockPublisher.On("Publish", mock.AnythingOfType("events.TransactionAppliedEvent")).Return()
	mockPublisher.On("Publish", mock.MatchedBy(func(e events.GameCreatedEvent) bool {
		return e.Mode == models.GameModeShopFixed4 && e.CartellaCount == 4
	})).Return()
	mockPublisher.On("Publish", mock.MatchedBy(func(e events.SessionLockedEvent) bool {
		return e.SessionID == "sess" && e.TotalPayable.Equal(decimal.RequireFromString("80.00"))
	})).Return()

	confirmation, err := service.ConfirmPayment(ctx, 7, "sess", "Dina")

	require.NoError(t, err)
	require.NotNil(t, confirmation.Game)
	assert.Equal(t, models.SessionStatusLocked, confirmation.Session.Status)
	assert.Equal(t, int64(55), confirmation.Game.ID)
	assert.Equal(t, models.GameStatusPending, confirmation.Game.Status)

	mockShopRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
	mockGameRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestSessionService_ConfirmPayment_LockedIsIdempotent(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGameRepo := new(MockGameRepository)
	mockSessionRepo := new(MockSessionRepository)

	mockUoW.SetRepositories(nil, nil, mockGameRepo, mockSessionRepo, nil)
	service := NewSessionService(mockFactory, testRandFactory)

	gameID := int64(55)
	session := waitingTestSession(7, "sess")
	session.Status = models.SessionStatusLocked
	session.GameID = &gameID
	session.Players = []models.PlayerReservation{
		{PlayerName: "Abebe", CartellaNumbers: []int{1}, Paid: true},
	}

	game := &models.Game{ID: 55, ShopID: 7, Code: "lucy-0001", Mode: models.GameModeShopFixed4, Status: models.GameStatusPending}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)
	mockGameRepo.On("GetByID", ctx, int64(55)).Return(game, nil)

	confirmation, err := service.ConfirmPayment(ctx, 7, "sess", "Abebe")

	require.NoError(t, err)
	assert.Equal(t, int64(55), confirmation.Game.ID)
	mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	// A player that never reserved cannot confirm, even against a locked session
	_, err = service.ConfirmPayment(ctx, 7, "sess", "Ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSessionService_ConfirmPayment_InsufficientBalance(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockShopRepo := new(MockShopRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockGameRepo := new(MockGameRepository)
	mockSessionRepo := new(MockSessionRepository)

	mockUoW.SetRepositories(mockShopRepo, mockTransactionRepo, mockGameRepo, mockSessionRepo, nil)
	service := NewSessionService(mockFactory, testRandFactory)

	session := waitingTestSession(7, "sess")
	session.Players = []models.PlayerReservation{
		{PlayerName: "Abebe", CartellaNumbers: []int{1}, BetPerCartella: decimal.RequireFromString("20.00"), Paid: true},
		{PlayerName: "Biruk", CartellaNumbers: []int{2}, BetPerCartella: decimal.RequireFromString("20.00"), Paid: true},
		{PlayerName: "Chaltu", CartellaNumbers: []int{3}, BetPerCartella: decimal.RequireFromString("20.00"), Paid: true},
		{PlayerName: "Dina", CartellaNumbers: []int{4}, BetPerCartella: decimal.RequireFromString("20.00")},
	}
	session.Recompute()

	// Wallet cannot cover the 80.00 lobby debit
	shop := &models.Shop{
		ID:            7,
		Username:      "lucy",
		WalletBalance: decimal.RequireFromString("10.00"),
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)
	mockShopRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(shop, nil)
	mockGameRepo.On("CodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil)

	confirmation, err := service.ConfirmPayment(ctx, 7, "sess", "Dina")

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Nil(t, confirmation)

	// The failed debit unwinds everything: no game, no session update, no commit
	mockGameRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestSessionService_ConfirmPayment_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("player name required", func(t *testing.T) {
		mockFactory := new(MockUnitOfWorkFactory)
		service := NewSessionService(mockFactory, testRandFactory)

		_, err := service.ConfirmPayment(ctx, 7, "sess", "  ")
		assert.ErrorIs(t, err, ErrPlayerNameRequired)
		mockFactory.AssertNotCalled(t, "Create")
	})

	t.Run("unknown player", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockSessionRepo := new(MockSessionRepository)

		mockUoW.SetRepositories(nil, nil, nil, mockSessionRepo, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		session := waitingTestSession(7, "sess")

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)

		_, err := service.ConfirmPayment(ctx, 7, "sess", "Ghost")
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("cancelled session", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockSessionRepo := new(MockSessionRepository)

		mockUoW.SetRepositories(nil, nil, nil, mockSessionRepo, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		session := waitingTestSession(7, "sess")
		session.Status = models.SessionStatusCancelled

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)

		_, err := service.ConfirmPayment(ctx, 7, "sess", "Abebe")
		assert.ErrorIs(t, err, ErrSessionNotWaiting)
	})
}

func TestSessionService_CancelSession(t *testing.T) {
	ctx := context.Background()

	t.Run("waiting session cancels without refund", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockSessionRepo := new(MockSessionRepository)

		mockUoW.SetRepositories(nil, nil, nil, mockSessionRepo, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		session := waitingTestSession(7, "sess")

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)
		mockSessionRepo.On("Update", ctx, mock.MatchedBy(func(s *models.ShopBingoSession) bool {
			return s.Status == models.SessionStatusCancelled
		})).Return(nil)

		result, err := service.CancelSession(ctx, 7, "sess")

		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusCancelled, result.Status)
		mockSessionRepo.AssertExpectations(t)
	})

	t.Run("locked session cannot cancel", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockSessionRepo := new(MockSessionRepository)

		mockUoW.SetRepositories(nil, nil, nil, mockSessionRepo, nil)
		service := NewSessionService(mockFactory, testRandFactory)

		session := waitingTestSession(7, "sess")
		session.Status = models.SessionStatusLocked

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockSessionRepo.On("GetBySessionIDForUpdate", ctx, int64(7), "sess").Return(session, nil)

		_, err := service.CancelSession(ctx, 7, "sess")
		assert.ErrorIs(t, err, ErrSessionNotWaiting)
		mockSessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestSessionService_GetSession(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSessionRepo := new(MockSessionRepository)

	mockUoW.SetRepositories(nil, nil, nil, mockSessionRepo, nil)
	service := NewSessionService(mockFactory, testRandFactory)

	session := waitingTestSession(7, "sess")

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetBySessionID", ctx, int64(7), "sess").Return(session, nil)
	mockSessionRepo.On("GetBySessionID", ctx, int64(7), "ghost").Return(nil, nil)

	found, err := service.GetSession(ctx, 7, "sess")
	require.NoError(t, err)
	assert.Equal(t, "sess", found.SessionID)

	_, err = service.GetSession(ctx, 7, "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_ListSessions_ClampsLimit(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSessionRepo := new(MockSessionRepository)

	mockUoW.SetRepositories(nil, nil, nil, mockSessionRepo, nil)
	service := NewSessionService(mockFactory, testRandFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("ListByShop", ctx, int64(7), 200).Return([]*models.ShopBingoSession{}, nil).Once()
	mockSessionRepo.On("ListByShop", ctx, int64(7), 25).Return([]*models.ShopBingoSession{}, nil).Once()

	_, err := service.ListSessions(ctx, 7, 0)
	assert.NoError(t, err)

	_, err = service.ListSessions(ctx, 7, 25)
	assert.NoError(t, err)

	mockSessionRepo.AssertExpectations(t)
}
