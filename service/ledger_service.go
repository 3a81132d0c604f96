package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lulubingo/config"
	"lulubingo/events"
	"lulubingo/models"
)

// ApplyLedgerTransaction applies one wallet mutation and records the matching
// ledger entry. This is the single entry point for all balance changes in the
// system: deposits, withdrawals, stake debits, payouts and refunds all pass
// through here inside the caller's unit of work, so a rolled-back transaction
// leaves neither a balance change nor a ledger row behind.
func ApplyLedgerTransaction(ctx context.Context, uow UnitOfWork, shopID int64, amount decimal.Decimal, transactionType models.TransactionType, reference string, actorRole models.ActorRole, metadata map[string]any) (*models.Transaction, error) {
	if !transactionType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransactionType, transactionType)
	}
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if len(reference) > models.MaxReferenceLength {
		reference = reference[:models.MaxReferenceLength]
	}

	// Lock the shop row so concurrent wallet mutations serialize
	shop, err := uow.ShopRepository().GetByIDForUpdate(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, fmt.Errorf("%w: %d", ErrShopNotFound, shopID)
	}

	balanceBefore := shop.WalletBalance
	var balanceAfter decimal.Decimal
	if transactionType.IsCredit() {
		balanceAfter = balanceBefore.Add(amount)
	} else {
		balanceAfter = balanceBefore.Sub(amount)
	}

	if balanceAfter.IsNegative() {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balanceBefore, amount)
	}

	if err := uow.ShopRepository().UpdateWalletBalance(ctx, shopID, balanceAfter); err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	transaction := &models.Transaction{
		ShopID:        shopID,
		Type:          transactionType,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Reference:     reference,
		Metadata:      metadata,
		ActorRole:     actorRole,
		Currency:      config.Get().Currency,
	}
	if err := uow.TransactionRepository().Create(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to record ledger transaction: %w", err)
	}

	// Emit the balance change event (flushed after the transaction commits)
	uow.EventBus().Publish(events.TransactionAppliedEvent{
		ShopID:          shopID,
		TransactionType: transactionType,
		Amount:          amount,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		Reference:       reference,
	})

	return transaction, nil
}

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

func (s *ledgerService) Apply(ctx context.Context, shopID int64, amount decimal.Decimal, transactionType models.TransactionType, reference string, actorRole models.ActorRole, metadata map[string]any) (*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	transaction, err := ApplyLedgerTransaction(ctx, uow, shopID, amount, transactionType, reference, actorRole, metadata)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

func (s *ledgerService) Deposit(ctx context.Context, shopID int64, amount decimal.Decimal, reference string) (*models.Transaction, error) {
	return s.Apply(ctx, shopID, amount, models.TransactionTypeDeposit, reference, models.ActorRoleAdmin, nil)
}

func (s *ledgerService) Withdraw(ctx context.Context, shopID int64, amount decimal.Decimal, reference string) (*models.Transaction, error) {
	return s.Apply(ctx, shopID, amount, models.TransactionTypeWithdrawal, reference, models.ActorRoleAdmin, nil)
}

func (s *ledgerService) History(ctx context.Context, shopID int64, limit int) ([]*models.Transaction, error) {
	cfg := config.Get()
	if limit <= 0 || limit > cfg.TransactionHistoryLimit {
		limit = cfg.TransactionHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transactions, err := uow.TransactionRepository().GetByShop(ctx, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transactions, nil
}
