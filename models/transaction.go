package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of a ledger entry
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeBetDebit   TransactionType = "bet_debit"
	TransactionTypeBetCredit  TransactionType = "bet_credit"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// ActorRole identifies who initiated a ledger entry
type ActorRole string

const (
	ActorRoleShop   ActorRole = "shop"
	ActorRoleAdmin  ActorRole = "admin"
	ActorRoleSystem ActorRole = "system"
)

// DefaultCurrency is the currency recorded on ledger entries when none is configured
const DefaultCurrency = "ETB"

// MaxReferenceLength bounds the free-form reference string on a transaction
const MaxReferenceLength = 120

// IsValid checks whether the transaction type is a known member of the set
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeBetDebit,
		TransactionTypeBetCredit, TransactionTypeAdjustment:
		return true
	}
	return false
}

// IsCredit checks whether the type adds to the wallet balance
func (t TransactionType) IsCredit() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeBetCredit, TransactionTypeAdjustment:
		return true
	}
	return false
}

// IsDebit checks whether the type subtracts from the wallet balance
func (t TransactionType) IsDebit() bool {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypeBetDebit:
		return true
	}
	return false
}

// Transaction represents one immutable ledger entry against a shop wallet
type Transaction struct {
	ID            int64           `db:"id"`
	ShopID        int64           `db:"shop_id"`
	Type          TransactionType `db:"transaction_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Reference     string          `db:"reference"`
	Metadata      map[string]any  `db:"metadata"`
	ActorRole     ActorRole       `db:"actor_role"`
	Currency      string          `db:"currency"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Delta returns the signed balance change this entry represents
func (t *Transaction) Delta() decimal.Decimal {
	if t.Type.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}
