package service

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lulubingo/cartella"
	"lulubingo/config"
	"lulubingo/events"
	"lulubingo/models"
)

type gameService struct {
	uowFactory UnitOfWorkFactory
	newRand    RandFactory
}

// NewGameService creates a new game service. A nil randFactory falls back to
// seeding from the global source.
func NewGameService(uowFactory UnitOfWorkFactory, randFactory RandFactory) GameService {
	if randFactory == nil {
		randFactory = defaultRandFactory
	}
	return &gameService{
		uowFactory: uowFactory,
		newRand:    randFactory,
	}
}

// gameCodeAttempts bounds the collision retry loop during code generation
const gameCodeAttempts = 25

var gameCodeSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// generateGameCode derives a short player-facing code from the shop's
// username plus a random 4-digit suffix, retrying on collision
func generateGameCode(ctx context.Context, uow UnitOfWork, username string, rng *rand.Rand) (string, error) {
	slug := gameCodeSlugPattern.ReplaceAllString(strings.ToLower(username), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "game"
	}

	for attempt := 0; attempt < gameCodeAttempts; attempt++ {
		code := fmt.Sprintf("%s-%04d", slug, rng.Intn(10000))
		exists, err := uow.GameRepository().CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check game code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrGameCodeExhausted, gameCodeAttempts)
}

func (s *gameService) CreateGame(ctx context.Context, shopID int64, cartellas [][]int, betAmount, winAmount decimal.Decimal, numPlayers int) (*models.Game, error) {
	// Validate inputs
	if len(cartellas) == 0 {
		return nil, ErrNoCartellas
	}
	for i, board := range cartellas {
		if len(board) == 0 {
			return nil, fmt.Errorf("%w: cartella %d", ErrEmptyCartella, i)
		}
		for _, n := range board {
			if n <= 0 {
				return nil, fmt.Errorf("cartella %d contains a non-positive number %d", i, n)
			}
		}
	}
	if !betAmount.IsPositive() || !betAmount.Equal(betAmount.Round(2)) {
		return nil, fmt.Errorf("%w: bet amount %s", ErrInvalidAmount, betAmount)
	}
	if !winAmount.IsPositive() || !winAmount.Equal(winAmount.Round(2)) {
		return nil, fmt.Errorf("%w: win amount %s", ErrInvalidAmount, winAmount)
	}
	if numPlayers <= 0 {
		numPlayers = models.SessionFixedPlayers
	}
	if len(cartellas) > numPlayers*models.MaxCartellasPerPlayer {
		return nil, fmt.Errorf("%w: %d cartellas for %d players", ErrTooManyCartellas, len(cartellas), numPlayers)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Lock the shop up front: code generation needs the username and the
	// stake debit below mutates the same row
	shop, err := uow.ShopRepository().GetByIDForUpdate(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, fmt.Errorf("%w: %d", ErrShopNotFound, shopID)
	}

	rng := s.newRand()
	code, err := generateGameCode(ctx, uow, shop.Username, rng)
	if err != nil {
		return nil, err
	}

	// Debit the full stake before the game row exists, so insufficient
	// balance aborts creation with nothing persisted
	stake := betAmount.Mul(decimal.NewFromInt(int64(len(cartellas))))
	_, err = ApplyLedgerTransaction(ctx, uow, shopID, stake, models.TransactionTypeBetDebit,
		"game:"+code+":bet", models.ActorRoleShop,
		map[string]any{"event": "game_bet_debit", "game_code": code})
	if err != nil {
		return nil, err
	}

	cfg := config.Get()
	cutPercentage := shop.CutPercentage(cfg.DefaultCutPercentage)

	drawSequences := make(map[int][]int, len(cartellas))
	statuses := make(map[int]models.CartellaStatus, len(cartellas))
	for i := range cartellas {
		drawSequences[i] = cartella.DrawSequence(rng)
		statuses[i] = models.CartellaStatusActive
	}

	now := time.Now()
	game := &models.Game{
		ShopID:                shopID,
		Code:                  code,
		Mode:                  models.GameModeStandard,
		Status:                models.GameStatusActive,
		BetAmount:             betAmount,
		WinAmount:             winAmount,
		NumPlayers:            numPlayers,
		CartellaNumbers:       cartellas,
		DrawSequence:          cartella.DrawSequence(rng),
		CartellaDrawSequences: drawSequences,
		CartellaStatuses:      statuses,
		TotalPool:             stake,
		CutPercentage:         cutPercentage,
		WinPercentage:         decimal.NewFromInt(100).Sub(cutPercentage),
		BetDebitedAt:          &now,
		StartedAt:             &now,
	}

	if err := uow.GameRepository().Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	uow.EventBus().Publish(events.GameCreatedEvent{
		ShopID:        shopID,
		GameID:        game.ID,
		Code:          code,
		Mode:          game.Mode,
		CartellaCount: len(cartellas),
		TotalPool:     stake,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return game, nil
}

func (s *gameService) StartGame(ctx context.Context, shopID int64, code string) (*models.Game, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByCodeForUpdate(ctx, shopID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
	}

	// Starting an already-active game is a no-op
	if game.IsActive() {
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return game, nil
	}
	if !game.IsPending() {
		return nil, fmt.Errorf("%w: %s is %s", ErrGameNotPending, code, game.Status)
	}

	oldStatus := game.Status
	now := time.Now()
	game.Status = models.GameStatusActive
	game.StartedAt = &now

	if err := uow.GameRepository().Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	uow.EventBus().Publish(events.GameStateChangeEvent{
		ShopID:    shopID,
		Code:      code,
		OldStatus: oldStatus,
		NewStatus: game.Status,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return game, nil
}

func (s *gameService) ShuffleDraw(ctx context.Context, shopID int64, code string) (*models.Game, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByCodeForUpdate(ctx, shopID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
	}
	if !game.IsPending() {
		return nil, fmt.Errorf("%w: %s is %s", ErrGameNotPending, code, game.Status)
	}

	rng := s.newRand()
	drawSequences := make(map[int][]int, game.CartellaCount())
	for i := range game.CartellaNumbers {
		drawSequences[i] = cartella.DrawSequence(rng)
	}

	game.DrawSequence = cartella.DrawSequence(rng)
	game.CartellaDrawSequences = drawSequences
	game.CalledNumbers = nil
	game.CallCursor = 0
	game.CurrentCalledNumber = nil

	if err := uow.GameRepository().Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return game, nil
}

func (s *gameService) NextCall(ctx context.Context, shopID int64, code string) (*models.NextCallResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByCodeForUpdate(ctx, shopID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
	}
	if !game.IsActive() {
		return nil, fmt.Errorf("%w: %s is %s", ErrGameNotActive, code, game.Status)
	}

	// An exhausted draw is not an error, the caller just learns the game
	// has no numbers left
	if game.DrawsExhausted() {
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &models.NextCallResult{Complete: true, CallCursor: game.CallCursor}, nil
	}

	number := game.DrawSequence[game.CallCursor]
	label, err := cartella.FormatCalledNumber(number)
	if err != nil {
		return nil, fmt.Errorf("draw sequence of game %s is corrupt: %w", code, err)
	}

	game.CallCursor++
	game.CalledNumbers = append(game.CalledNumbers, number)
	game.CurrentCalledNumber = &number

	if err := uow.GameRepository().Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	uow.EventBus().Publish(events.NumberCalledEvent{
		ShopID:     shopID,
		Code:       code,
		Number:     number,
		Label:      label,
		CallCursor: game.CallCursor,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.NextCallResult{
		Number:     number,
		Label:      label,
		CallCursor: game.CallCursor,
	}, nil
}

func (s *gameService) Claim(ctx context.Context, shopID int64, code string, cartellaIndex int, pattern string) (*models.ClaimResult, error) {
	claimPattern := cartella.Pattern(pattern)
	if !cartella.IsValidClaimPattern(claimPattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByCodeForUpdate(ctx, shopID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
	}
	if !game.IsActive() {
		return nil, fmt.Errorf("%w: %s is %s", ErrGameNotActive, code, game.Status)
	}
	if cartellaIndex < 0 || cartellaIndex >= game.CartellaCount() {
		return nil, fmt.Errorf("%w: %d of %d", ErrCartellaIndexOutOfRange, cartellaIndex, game.CartellaCount())
	}

	// A banned cartella cannot claim again, and the rejection mutates nothing
	if game.IsCartellaBanned(cartellaIndex) {
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &models.ClaimResult{
			Outcome:       models.ClaimOutcomeAlreadyBanned,
			CartellaIndex: cartellaIndex,
			Game:          game,
		}, nil
	}

	board := game.CartellaNumbers[cartellaIndex]
	won, matchedPattern := cartella.Evaluate(board, game.CalledNumbers, claimPattern)
	matched, required, missing := cartella.Progress(board, game.CalledNumbers)

	now := time.Now()
	if game.CartellaStatuses == nil {
		game.CartellaStatuses = make(map[int]models.CartellaStatus)
	}

	if !won {
		// False claim: disqualify the cartella, the game continues
		requestedPattern := string(claimPattern)
		if claimPattern == cartella.PatternAuto {
			requestedPattern = "auto"
		}

		game.CartellaStatuses[cartellaIndex] = models.CartellaStatusBanned
		game.BannedCartellas = append(game.BannedCartellas, cartellaIndex)
		game.AwardedClaims = append(game.AwardedClaims, models.AwardedClaim{
			CartellaIndex: cartellaIndex,
			Pattern:       requestedPattern,
			CalledCount:   len(game.CalledNumbers),
			Result:        models.ClaimResultFalseClaim,
			ClaimedAt:     now,
		})

		if err := uow.GameRepository().Update(ctx, game); err != nil {
			return nil, fmt.Errorf("failed to update game: %w", err)
		}

		uow.EventBus().Publish(events.ClaimAdjudicatedEvent{
			ShopID:        shopID,
			Code:          code,
			CartellaIndex: cartellaIndex,
			Pattern:       requestedPattern,
			Result:        models.ClaimResultFalseClaim,
		})

		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		return &models.ClaimResult{
			Outcome:        models.ClaimOutcomeFalseClaim,
			CartellaIndex:  cartellaIndex,
			Pattern:        requestedPattern,
			MatchedCount:   matched,
			RequiredCount:  required,
			MissingNumbers: missing,
			Game:           game,
		}, nil
	}

	// Winning claim: settle the game
	pool := game.ResolveTotalPool()
	shopCut := pool.Mul(game.CutPercentage).Div(decimal.NewFromInt(100)).Round(2)
	payout := pool.Sub(shopCut)

	if shopCut.IsPositive() {
		_, err = ApplyLedgerTransaction(ctx, uow, shopID, shopCut, models.TransactionTypeBetCredit,
			"game:"+code+":shop_cut", models.ActorRoleSystem,
			map[string]any{"event": "game_shop_cut_credit", "game_code": code})
		if err != nil {
			return nil, err
		}
	}

	game.CartellaStatuses[cartellaIndex] = models.CartellaStatusWinner
	game.Winners = []int{cartellaIndex}
	game.WinningPattern = string(matchedPattern)
	game.TotalPool = pool
	game.ShopCutAmount = shopCut
	game.PayoutAmount = payout
	game.Status = models.GameStatusCompleted
	game.EndedAt = &now
	// Freeze the draw: no further numbers can ever be called
	game.CallCursor = len(game.DrawSequence)
	game.AwardedClaims = append(game.AwardedClaims, models.AwardedClaim{
		CartellaIndex: cartellaIndex,
		Pattern:       string(matchedPattern),
		CalledCount:   len(game.CalledNumbers),
		Result:        models.ClaimResultWinner,
		TotalPool:     pool,
		ShopCut:       shopCut,
		Payout:        payout,
		ClaimedAt:     now,
	})

	if err := uow.GameRepository().Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	uow.EventBus().Publish(events.ClaimAdjudicatedEvent{
		ShopID:        shopID,
		Code:          code,
		CartellaIndex: cartellaIndex,
		Pattern:       string(matchedPattern),
		Result:        models.ClaimResultWinner,
		Payout:        payout,
	})
	uow.EventBus().Publish(events.GameStateChangeEvent{
		ShopID:    shopID,
		Code:      code,
		OldStatus: models.GameStatusActive,
		NewStatus: models.GameStatusCompleted,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.ClaimResult{
		Outcome:        models.ClaimOutcomeWinner,
		CartellaIndex:  cartellaIndex,
		Pattern:        string(matchedPattern),
		MatchedCount:   matched,
		RequiredCount:  required,
		MissingNumbers: missing,
		TotalPool:      pool,
		ShopCutAmount:  shopCut,
		PayoutAmount:   payout,
		Game:           game,
	}, nil
}

func (s *gameService) FinishGame(ctx context.Context, shopID int64, code string, status models.GameStatus, winners []int) (*models.Game, error) {
	if status != models.GameStatusCompleted && status != models.GameStatusCancelled {
		return nil, fmt.Errorf("finish status must be completed or cancelled, got %q", status)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByCodeForUpdate(ctx, shopID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
	}
	if game.IsFinished() {
		return nil, fmt.Errorf("%w: %s is %s", ErrGameAlreadyFinished, code, game.Status)
	}

	oldStatus := game.Status
	now := time.Now()

	switch status {
	case models.GameStatusCompleted:
		if len(winners) == 0 {
			return nil, ErrNoWinners
		}
		seen := make(map[int]bool, len(winners))
		for _, w := range winners {
			if w < 0 || w >= game.CartellaCount() {
				return nil, fmt.Errorf("%w: winner %d of %d", ErrCartellaIndexOutOfRange, w, game.CartellaCount())
			}
			if seen[w] {
				return nil, fmt.Errorf("winner cartella %d listed twice", w)
			}
			seen[w] = true
		}

		sorted := make([]int, len(winners))
		copy(sorted, winners)
		sort.Ints(sorted)

		if game.CartellaStatuses == nil {
			game.CartellaStatuses = make(map[int]models.CartellaStatus)
		}
		for _, w := range sorted {
			game.CartellaStatuses[w] = models.CartellaStatusWinner
		}
		game.Winners = sorted

		// Credit the payout exactly once, however many times an operator
		// retries the completion
		payout := game.WinAmount.Mul(decimal.NewFromInt(int64(len(sorted))))
		if game.PayoutCreditedAt == nil && payout.IsPositive() {
			_, err = ApplyLedgerTransaction(ctx, uow, shopID, payout, models.TransactionTypeBetCredit,
				"game:"+code+":payout", models.ActorRoleAdmin,
				map[string]any{"event": "game_payout_credit", "game_code": code})
			if err != nil {
				return nil, err
			}
			game.PayoutCreditedAt = &now
			game.PayoutAmount = payout
		}

	case models.GameStatusCancelled:
		// Refund the debited stake exactly once
		if game.BetDebitedAt != nil && game.RefundCreditedAt == nil {
			refund := game.ResolveTotalPool()
			if refund.IsPositive() {
				_, err = ApplyLedgerTransaction(ctx, uow, shopID, refund, models.TransactionTypeBetCredit,
					"game:"+code+":refund", models.ActorRoleAdmin,
					map[string]any{"event": "game_refund_credit", "game_code": code})
				if err != nil {
					return nil, err
				}
			}
			game.RefundCreditedAt = &now
		}
	}

	game.Status = status
	game.EndedAt = &now

	if err := uow.GameRepository().Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	uow.EventBus().Publish(events.GameStateChangeEvent{
		ShopID:    shopID,
		Code:      code,
		OldStatus: oldStatus,
		NewStatus: status,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return game, nil
}

func (s *gameService) GetGame(ctx context.Context, shopID int64, code string) (*models.Game, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByCode(ctx, shopID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return game, nil
}

func (s *gameService) ListGames(ctx context.Context, shopID int64, limit int) ([]*models.Game, error) {
	cfg := config.Get()
	if limit <= 0 || limit > cfg.TransactionHistoryLimit {
		limit = cfg.TransactionHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games, err := uow.GameRepository().ListByShop(ctx, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return games, nil
}
