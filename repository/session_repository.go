package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lulubingo/database"
	"lulubingo/models"
)

// SessionRepository implements the SessionRepository interface
type SessionRepository struct {
	q queryable
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{q: db.Pool}
}

// newSessionRepositoryWithTx creates a new session repository with a transaction
func newSessionRepositoryWithTx(tx queryable) *SessionRepository {
	return &SessionRepository{q: tx}
}

const sessionColumns = `id, shop_id, session_id, status, min_bet_per_cartella,
	players_data, locked_cartellas, total_payable, game_id, created_at, updated_at`

// Create persists a new shop bingo session
func (r *SessionRepository) Create(ctx context.Context, session *models.ShopBingoSession) error {
	playersData, err := json.Marshal(session.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players_data: %w", err)
	}
	lockedCartellas, err := json.Marshal(session.LockedCartellas)
	if err != nil {
		return fmt.Errorf("failed to marshal locked_cartellas: %w", err)
	}

	query := `
		INSERT INTO shop_bingo_sessions
		(shop_id, session_id, status, min_bet_per_cartella, players_data, locked_cartellas, total_payable, game_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		session.ShopID, session.SessionID, session.Status, session.MinBetPerCartella,
		playersData, lockedCartellas, session.TotalPayable, session.GameID,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", session.SessionID, err)
	}

	return nil
}

// Update persists a session's mutable state
func (r *SessionRepository) Update(ctx context.Context, session *models.ShopBingoSession) error {
	playersData, err := json.Marshal(session.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players_data: %w", err)
	}
	lockedCartellas, err := json.Marshal(session.LockedCartellas)
	if err != nil {
		return fmt.Errorf("failed to marshal locked_cartellas: %w", err)
	}

	query := `
		UPDATE shop_bingo_sessions
		SET status = $1, players_data = $2, locked_cartellas = $3, total_payable = $4, game_id = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		session.Status, playersData, lockedCartellas, session.TotalPayable, session.GameID, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", session.SessionID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("session with ID %d not found", session.ID)
	}

	return nil
}

// GetBySessionID retrieves a shop's session by its public session ID
func (r *SessionRepository) GetBySessionID(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM shop_bingo_sessions WHERE shop_id = $1 AND session_id = $2`
	return scanSession(r.q.QueryRow(ctx, query, shopID, sessionID))
}

// GetBySessionIDForUpdate retrieves a shop's session by its public session ID,
// taking a row lock so concurrent reservations and payments serialize
func (r *SessionRepository) GetBySessionIDForUpdate(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM shop_bingo_sessions WHERE shop_id = $1 AND session_id = $2 FOR UPDATE`
	return scanSession(r.q.QueryRow(ctx, query, shopID, sessionID))
}

// ListByShop returns a shop's sessions, newest first
func (r *SessionRepository) ListByShop(ctx context.Context, shopID int64, limit int) ([]*models.ShopBingoSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM shop_bingo_sessions WHERE shop_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.q.Query(ctx, query, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for shop %d: %w", shopID, err)
	}
	defer rows.Close()

	var sessions []*models.ShopBingoSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*models.ShopBingoSession, error) {
	var session models.ShopBingoSession
	var playersData, lockedCartellas []byte

	err := row.Scan(
		&session.ID, &session.ShopID, &session.SessionID, &session.Status, &session.MinBetPerCartella,
		&playersData, &lockedCartellas, &session.TotalPayable, &session.GameID,
		&session.CreatedAt, &session.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if len(playersData) > 0 {
		if err := json.Unmarshal(playersData, &session.Players); err != nil {
			return nil, fmt.Errorf("failed to unmarshal players_data: %w", err)
		}
	}
	if len(lockedCartellas) > 0 {
		if err := json.Unmarshal(lockedCartellas, &session.LockedCartellas); err != nil {
			return nil, fmt.Errorf("failed to unmarshal locked_cartellas: %w", err)
		}
	}

	return &session, nil
}
