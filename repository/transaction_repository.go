package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"lulubingo/database"
	"lulubingo/models"
)

// TransactionRepository implements the TransactionRepository interface.
// Ledger rows are the audit trail: they are inserted once and never updated
// or deleted, so the repository exposes no mutation beyond Create.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends one immutable ledger entry
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	metadataJSON, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions
		(shop_id, transaction_type, amount, balance_before, balance_after, reference, metadata, actor_role, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		txn.ShopID,
		txn.Type,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.Reference,
		metadataJSON,
		txn.ActorRole,
		txn.Currency,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record transaction for shop %d: %w", txn.ShopID, err)
	}

	return nil
}

// GetByShop returns a shop's ledger entries, newest first
func (r *TransactionRepository) GetByShop(ctx context.Context, shopID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, shop_id, transaction_type, amount, balance_before, balance_after,
		       reference, metadata, actor_role, currency, created_at
		FROM transactions
		WHERE shop_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for shop %d: %w", shopID, err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var metadataJSON []byte

		err := rows.Scan(
			&txn.ID,
			&txn.ShopID,
			&txn.Type,
			&txn.Amount,
			&txn.BalanceBefore,
			&txn.BalanceAfter,
			&txn.Reference,
			&metadataJSON,
			&txn.ActorRole,
			&txn.Currency,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}
