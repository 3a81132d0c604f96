package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lulubingo/database"
	"lulubingo/models"
)

// GameRepository implements the GameRepository interface
type GameRepository struct {
	q queryable
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{q: db.Pool}
}

// newGameRepositoryWithTx creates a new game repository with a transaction
func newGameRepositoryWithTx(tx queryable) *GameRepository {
	return &GameRepository{q: tx}
}

const gameColumns = `id, shop_id, code, mode, status,
	bet_amount, win_amount, min_bet_per_cartella, num_players,
	cartella_numbers, cartella_number_map,
	draw_sequence, cartella_draw_sequences, called_numbers, call_cursor, current_called_number,
	cartella_statuses, banned_cartellas, winners, awarded_claims, winning_pattern,
	total_pool, cut_percentage, win_percentage, payout_amount, shop_cut_amount,
	bet_debited_at, payout_credited_at, refund_credited_at,
	started_at, ended_at, created_at, updated_at`

// gameJSON carries the marshaled JSONB columns of a game row
type gameJSON struct {
	cartellaNumbers       []byte
	cartellaNumberMap     []byte
	drawSequence          []byte
	cartellaDrawSequences []byte
	calledNumbers         []byte
	cartellaStatuses      []byte
	bannedCartellas       []byte
	winners               []byte
	awardedClaims         []byte
}

func marshalGameJSON(game *models.Game) (*gameJSON, error) {
	j := &gameJSON{}
	for _, f := range []struct {
		name string
		src  any
		dst  *[]byte
	}{
		{"cartella_numbers", game.CartellaNumbers, &j.cartellaNumbers},
		{"cartella_number_map", game.CartellaNumberMap, &j.cartellaNumberMap},
		{"draw_sequence", game.DrawSequence, &j.drawSequence},
		{"cartella_draw_sequences", game.CartellaDrawSequences, &j.cartellaDrawSequences},
		{"called_numbers", game.CalledNumbers, &j.calledNumbers},
		{"cartella_statuses", game.CartellaStatuses, &j.cartellaStatuses},
		{"banned_cartellas", game.BannedCartellas, &j.bannedCartellas},
		{"winners", game.Winners, &j.winners},
		{"awarded_claims", game.AwardedClaims, &j.awardedClaims},
	} {
		data, err := json.Marshal(f.src)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", f.name, err)
		}
		*f.dst = data
	}
	return j, nil
}

// Create persists a new game row
func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	j, err := marshalGameJSON(game)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO games
		(shop_id, code, mode, status,
		 bet_amount, win_amount, min_bet_per_cartella, num_players,
		 cartella_numbers, cartella_number_map,
		 draw_sequence, cartella_draw_sequences, called_numbers, call_cursor, current_called_number,
		 cartella_statuses, banned_cartellas, winners, awarded_claims, winning_pattern,
		 total_pool, cut_percentage, win_percentage, payout_amount, shop_cut_amount,
		 bet_debited_at, payout_credited_at, refund_credited_at, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		game.ShopID, game.Code, game.Mode, game.Status,
		game.BetAmount, game.WinAmount, game.MinBetPerCartella, game.NumPlayers,
		j.cartellaNumbers, j.cartellaNumberMap,
		j.drawSequence, j.cartellaDrawSequences, j.calledNumbers, game.CallCursor, game.CurrentCalledNumber,
		j.cartellaStatuses, j.bannedCartellas, j.winners, j.awardedClaims, game.WinningPattern,
		game.TotalPool, game.CutPercentage, game.WinPercentage, game.PayoutAmount, game.ShopCutAmount,
		game.BetDebitedAt, game.PayoutCreditedAt, game.RefundCreditedAt, game.StartedAt, game.EndedAt,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create game %s: %w", game.Code, err)
	}

	return nil
}

// Update persists a game's mutable state. Identity, mode, stake config and
// board data never change after creation and are not written here.
func (r *GameRepository) Update(ctx context.Context, game *models.Game) error {
	j, err := marshalGameJSON(game)
	if err != nil {
		return err
	}

	query := `
		UPDATE games
		SET status = $1,
		    draw_sequence = $2, cartella_draw_sequences = $3,
		    called_numbers = $4, call_cursor = $5, current_called_number = $6,
		    cartella_statuses = $7, banned_cartellas = $8, winners = $9,
		    awarded_claims = $10, winning_pattern = $11,
		    total_pool = $12, payout_amount = $13, shop_cut_amount = $14,
		    bet_debited_at = $15, payout_credited_at = $16, refund_credited_at = $17,
		    started_at = $18, ended_at = $19, updated_at = NOW()
		WHERE id = $20
	`

	result, err := r.q.Exec(ctx, query,
		game.Status,
		j.drawSequence, j.cartellaDrawSequences,
		j.calledNumbers, game.CallCursor, game.CurrentCalledNumber,
		j.cartellaStatuses, j.bannedCartellas, j.winners,
		j.awardedClaims, game.WinningPattern,
		game.TotalPool, game.PayoutAmount, game.ShopCutAmount,
		game.BetDebitedAt, game.PayoutCreditedAt, game.RefundCreditedAt,
		game.StartedAt, game.EndedAt,
		game.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update game %s: %w", game.Code, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("game with ID %d not found", game.ID)
	}

	return nil
}

// GetByID retrieves a game by its row ID
func (r *GameRepository) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	return scanGame(r.q.QueryRow(ctx, query, id))
}

// GetByCode retrieves a shop's game by its code
func (r *GameRepository) GetByCode(ctx context.Context, shopID int64, code string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE shop_id = $1 AND code = $2`
	return scanGame(r.q.QueryRow(ctx, query, shopID, code))
}

// GetByCodeForUpdate retrieves a shop's game by its code, taking a row lock
// so concurrent calls and claims against the same game serialize
func (r *GameRepository) GetByCodeForUpdate(ctx context.Context, shopID int64, code string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE shop_id = $1 AND code = $2 FOR UPDATE`
	return scanGame(r.q.QueryRow(ctx, query, shopID, code))
}

// ListByShop returns a shop's games, newest first
func (r *GameRepository) ListByShop(ctx context.Context, shopID int64, limit int) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE shop_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.q.Query(ctx, query, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for shop %d: %w", shopID, err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	return games, nil
}

// CodeExists checks whether any game already uses the given code
func (r *GameRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check game code %s: %w", code, err)
	}
	return exists, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var game models.Game
	var cartellaNumbers, cartellaNumberMap, drawSequence, cartellaDrawSequences,
		calledNumbers, cartellaStatuses, bannedCartellas, winners, awardedClaims []byte

	err := row.Scan(
		&game.ID, &game.ShopID, &game.Code, &game.Mode, &game.Status,
		&game.BetAmount, &game.WinAmount, &game.MinBetPerCartella, &game.NumPlayers,
		&cartellaNumbers, &cartellaNumberMap,
		&drawSequence, &cartellaDrawSequences, &calledNumbers, &game.CallCursor, &game.CurrentCalledNumber,
		&cartellaStatuses, &bannedCartellas, &winners, &awardedClaims, &game.WinningPattern,
		&game.TotalPool, &game.CutPercentage, &game.WinPercentage, &game.PayoutAmount, &game.ShopCutAmount,
		&game.BetDebitedAt, &game.PayoutCreditedAt, &game.RefundCreditedAt,
		&game.StartedAt, &game.EndedAt, &game.CreatedAt, &game.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}

	for _, f := range []struct {
		name string
		data []byte
		dst  any
	}{
		{"cartella_numbers", cartellaNumbers, &game.CartellaNumbers},
		{"cartella_number_map", cartellaNumberMap, &game.CartellaNumberMap},
		{"draw_sequence", drawSequence, &game.DrawSequence},
		{"cartella_draw_sequences", cartellaDrawSequences, &game.CartellaDrawSequences},
		{"called_numbers", calledNumbers, &game.CalledNumbers},
		{"cartella_statuses", cartellaStatuses, &game.CartellaStatuses},
		{"banned_cartellas", bannedCartellas, &game.BannedCartellas},
		{"winners", winners, &game.Winners},
		{"awarded_claims", awardedClaims, &game.AwardedClaims},
	} {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", f.name, err)
		}
	}

	return &game, nil
}
