package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lulubingo/cartella"
	"lulubingo/config"
	"lulubingo/events"
	"lulubingo/models"
)

type sessionService struct {
	uowFactory UnitOfWorkFactory
	newRand    RandFactory
}

// NewSessionService creates a new session service. A nil randFactory falls
// back to seeding from the global source.
func NewSessionService(uowFactory UnitOfWorkFactory, randFactory RandFactory) SessionService {
	if randFactory == nil {
		randFactory = defaultRandFactory
	}
	return &sessionService{
		uowFactory: uowFactory,
		newRand:    randFactory,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, shopID int64, minBetPerCartella decimal.Decimal) (*models.ShopBingoSession, error) {
	if !minBetPerCartella.Equal(minBetPerCartella.Round(2)) {
		return nil, fmt.Errorf("%w: minimum bet %s", ErrInvalidAmount, minBetPerCartella)
	}

	// The session floor never goes below the configured platform floor
	floor := config.Get().MinBetPerCartella
	if minBetPerCartella.GreaterThan(floor) {
		floor = minBetPerCartella
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	shop, err := uow.ShopRepository().GetByID(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, fmt.Errorf("%w: %d", ErrShopNotFound, shopID)
	}

	session := &models.ShopBingoSession{
		ShopID:            shopID,
		SessionID:         uuid.New().String(),
		Status:            models.SessionStatusWaiting,
		MinBetPerCartella: floor,
		TotalPayable:      decimal.Zero,
	}

	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

func (s *sessionService) Reserve(ctx context.Context, shopID int64, sessionID string, playerName string, cartellaNumbers []int, betPerCartella decimal.Decimal) (*models.ShopBingoSession, error) {
	// Validate inputs
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, ErrPlayerNameRequired
	}
	if len(cartellaNumbers) == 0 || len(cartellaNumbers) > models.MaxCartellasPerPlayer {
		return nil, fmt.Errorf("%w: a player reserves 1 to %d cartellas", ErrInvalidCartellaNumbers, models.MaxCartellasPerPlayer)
	}
	requested := make(map[int]bool, len(cartellaNumbers))
	for _, n := range cartellaNumbers {
		if n <= 0 {
			return nil, fmt.Errorf("%w: cartella number %d", ErrInvalidCartellaNumbers, n)
		}
		if requested[n] {
			return nil, fmt.Errorf("%w: cartella %d requested twice", ErrInvalidCartellaNumbers, n)
		}
		requested[n] = true
	}
	if !betPerCartella.IsPositive() || !betPerCartella.Equal(betPerCartella.Round(2)) {
		return nil, fmt.Errorf("%w: bet per cartella %s", ErrInvalidAmount, betPerCartella)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetBySessionIDForUpdate(ctx, shopID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if !session.IsWaiting() {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotWaiting, sessionID, session.Status)
	}
	if betPerCartella.LessThan(session.MinBetPerCartella) {
		return nil, fmt.Errorf("%w: %s < %s", ErrBetBelowMinimum, betPerCartella, session.MinBetPerCartella)
	}

	idx := session.FindPlayer(playerName)
	if idx >= 0 && session.Players[idx].Paid {
		return nil, fmt.Errorf("%w: %s", ErrPlayerPaid, session.Players[idx].PlayerName)
	}
	if idx < 0 && len(session.Players) >= models.SessionFixedPlayers {
		return nil, fmt.Errorf("%w: %s", ErrSessionFull, sessionID)
	}

	// Reject numbers already held by any other player
	var conflicts []int
	for i := range session.Players {
		if i == idx {
			continue
		}
		for _, n := range session.Players[i].CartellaNumbers {
			if requested[n] {
				conflicts = append(conflicts, n)
			}
		}
	}
	if len(conflicts) > 0 {
		sort.Ints(conflicts)
		return nil, &DuplicateCartellaError{Numbers: conflicts}
	}

	numbers := make([]int, len(cartellaNumbers))
	copy(numbers, cartellaNumbers)
	sort.Ints(numbers)

	if idx >= 0 {
		// Replace the existing reservation, keeping the original timestamp
		session.Players[idx].CartellaNumbers = numbers
		session.Players[idx].BetPerCartella = betPerCartella
	} else {
		session.Players = append(session.Players, models.PlayerReservation{
			PlayerName:      playerName,
			CartellaNumbers: numbers,
			BetPerCartella:  betPerCartella,
			ReservedAt:      time.Now(),
		})
	}

	session.Recompute()
	if len(session.LockedCartellas) > models.MaxCartellasPerSession {
		return nil, fmt.Errorf("%w: %d of %d", ErrSessionCartellaCap, len(session.LockedCartellas), models.MaxCartellasPerSession)
	}

	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

func (s *sessionService) ConfirmPayment(ctx context.Context, shopID int64, sessionID string, playerName string) (*models.SessionConfirmation, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, ErrPlayerNameRequired
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetBySessionIDForUpdate(ctx, shopID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	// Confirming against a locked session is idempotent: hand back the game
	// it already produced
	if session.IsLocked() {
		if session.FindPlayer(playerName) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerName)
		}
		if session.GameID == nil {
			return nil, fmt.Errorf("locked session %s has no game", sessionID)
		}
		game, err := uow.GameRepository().GetByID(ctx, *session.GameID)
		if err != nil {
			return nil, fmt.Errorf("failed to get game: %w", err)
		}
		if game == nil {
			return nil, fmt.Errorf("%w: id %d", ErrGameNotFound, *session.GameID)
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &models.SessionConfirmation{Session: session, Game: game}, nil
	}

	if !session.IsWaiting() {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotWaiting, sessionID, session.Status)
	}

	idx := session.FindPlayer(playerName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerName)
	}
	if len(session.Players[idx].CartellaNumbers) == 0 {
		return nil, fmt.Errorf("player %s has no cartellas reserved", session.Players[idx].PlayerName)
	}

	if !session.Players[idx].Paid {
		now := time.Now()
		session.Players[idx].Paid = true
		session.Players[idx].PaidAt = &now
	}
	session.Recompute()

	var game *models.Game
	if session.AllPlayersPaid() {
		game, err = s.finalizeSession(ctx, uow, session)
		if err != nil {
			return nil, err
		}

		session.Status = models.SessionStatusLocked
		session.GameID = &game.ID

		uow.EventBus().Publish(events.SessionLockedEvent{
			ShopID:       shopID,
			SessionID:    session.SessionID,
			GameCode:     game.Code,
			TotalPayable: session.TotalPayable,
		})
	}

	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.SessionConfirmation{Session: session, Game: game}, nil
}

// finalizeSession materializes the pending game for a fully paid session:
// boards are generated, the shop is debited for the whole lobby and the
// session's cartella numbers are bound to board indexes. Runs inside the
// caller's unit of work so a failed debit unwinds the confirmation too.
func (s *sessionService) finalizeSession(ctx context.Context, uow UnitOfWork, session *models.ShopBingoSession) (*models.Game, error) {
	if len(session.Players) != models.SessionFixedPlayers {
		return nil, fmt.Errorf("session %s finalizing with %d players", session.SessionID, len(session.Players))
	}

	flat := session.FlattenCartellas()
	if len(flat) > models.MaxCartellasPerSession {
		return nil, fmt.Errorf("%w: %d of %d", ErrSessionCartellaCap, len(flat), models.MaxCartellasPerSession)
	}
	seen := make(map[int]bool, len(flat))
	for _, n := range flat {
		if seen[n] {
			return nil, fmt.Errorf("session %s holds cartella %d twice", session.SessionID, n)
		}
		seen[n] = true
	}

	shop, err := uow.ShopRepository().GetByIDForUpdate(ctx, session.ShopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, fmt.Errorf("%w: %d", ErrShopNotFound, session.ShopID)
	}

	rng := s.newRand()
	code, err := generateGameCode(ctx, uow, shop.Username, rng)
	if err != nil {
		return nil, err
	}

	// The shop owes the whole lobby at finalization, not before: an aborted
	// session never touches the wallet
	_, err = ApplyLedgerTransaction(ctx, uow, session.ShopID, session.TotalPayable, models.TransactionTypeBetDebit,
		"game:"+code+":shop_lobby_bet", models.ActorRoleShop,
		map[string]any{"event": "shop_mode_bet_debit", "game_code": code, "session_id": session.SessionID})
	if err != nil {
		return nil, err
	}

	boards, err := cartella.GenerateUniqueBoards(len(flat), rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate boards: %w", err)
	}

	numberMap := make(map[int]int, len(flat))
	drawSequences := make(map[int][]int, len(flat))
	statuses := make(map[int]models.CartellaStatus, len(flat))
	for i, n := range flat {
		numberMap[n] = i
		drawSequences[i] = cartella.DrawSequence(rng)
		statuses[i] = models.CartellaStatusActive
	}

	cfg := config.Get()
	cutPercentage := shop.CutPercentage(cfg.DefaultCutPercentage)
	now := time.Now()

	game := &models.Game{
		ShopID:                session.ShopID,
		Code:                  code,
		Mode:                  models.GameModeShopFixed4,
		Status:                models.GameStatusPending,
		BetAmount:             session.MinBetPerCartella,
		MinBetPerCartella:     session.MinBetPerCartella,
		NumPlayers:            models.SessionFixedPlayers,
		CartellaNumbers:       boards,
		CartellaNumberMap:     numberMap,
		DrawSequence:          cartella.DrawSequence(rng),
		CartellaDrawSequences: drawSequences,
		CartellaStatuses:      statuses,
		TotalPool:             session.TotalPayable,
		CutPercentage:         cutPercentage,
		WinPercentage:         decimal.NewFromInt(100).Sub(cutPercentage),
		BetDebitedAt:          &now,
	}

	if err := uow.GameRepository().Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	uow.EventBus().Publish(events.GameCreatedEvent{
		ShopID:        session.ShopID,
		GameID:        game.ID,
		Code:          code,
		Mode:          game.Mode,
		CartellaCount: len(boards),
		TotalPool:     session.TotalPayable,
	})

	return game, nil
}

func (s *sessionService) CancelSession(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetBySessionIDForUpdate(ctx, shopID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if !session.IsWaiting() {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotWaiting, sessionID, session.Status)
	}

	// No refund here: the wallet is only debited at finalization
	session.Status = models.SessionStatusCancelled

	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetBySessionID(ctx, shopID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

func (s *sessionService) ListSessions(ctx context.Context, shopID int64, limit int) ([]*models.ShopBingoSession, error) {
	cfg := config.Get()
	if limit <= 0 || limit > cfg.TransactionHistoryLimit {
		limit = cfg.TransactionHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	sessions, err := uow.SessionRepository().ListByShop(ctx, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return sessions, nil
}
