package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"lulubingo/database"
	"lulubingo/models"
)

// ShopRepository implements the ShopRepository interface
type ShopRepository struct {
	q queryable
}

// NewShopRepository creates a new shop repository
func NewShopRepository(db *database.DB) *ShopRepository {
	return &ShopRepository{q: db.Pool}
}

// newShopRepositoryWithTx creates a new shop repository with a transaction
func newShopRepositoryWithTx(tx queryable) *ShopRepository {
	return &ShopRepository{q: tx}
}

const shopColumns = `id, username, name, status, wallet_balance, feature_flags, created_at, updated_at`

// Create inserts a new shop account
func (r *ShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	flagsJSON, err := json.Marshal(shop.FeatureFlags)
	if err != nil {
		return fmt.Errorf("failed to marshal feature flags: %w", err)
	}

	query := `
		INSERT INTO shops (username, name, status, wallet_balance, feature_flags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		shop.Username,
		shop.Name,
		shop.Status,
		shop.WalletBalance,
		flagsJSON,
	).Scan(&shop.ID, &shop.CreatedAt, &shop.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create shop %s: %w", shop.Username, err)
	}

	return nil
}

// GetByID retrieves a shop by its ID
func (r *ShopRepository) GetByID(ctx context.Context, id int64) (*models.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops WHERE id = $1`
	return r.scanShop(r.q.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves a shop by its ID, taking a row lock so
// concurrent wallet mutations against the same shop serialize
func (r *ShopRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops WHERE id = $1 FOR UPDATE`
	return r.scanShop(r.q.QueryRow(ctx, query, id), id)
}

// UpdateWalletBalance sets a shop's wallet balance
func (r *ShopRepository) UpdateWalletBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	query := `
		UPDATE shops
		SET wallet_balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance for shop %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("shop with ID %d not found", id)
	}

	return nil
}

func (r *ShopRepository) scanShop(row pgx.Row, id int64) (*models.Shop, error) {
	var shop models.Shop
	var flagsJSON []byte

	err := row.Scan(
		&shop.ID,
		&shop.Username,
		&shop.Name,
		&shop.Status,
		&shop.WalletBalance,
		&flagsJSON,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop %d: %w", id, err)
	}

	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &shop.FeatureFlags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feature flags: %w", err)
		}
	}

	return &shop, nil
}
