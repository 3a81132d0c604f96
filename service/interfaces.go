package service

import (
	"context"

	"github.com/shopspring/decimal"

	"lulubingo/events"
	"lulubingo/models"
)

// ShopRepository defines the interface for shop data access
type ShopRepository interface {
	// Create creates a new shop
	Create(ctx context.Context, shop *models.Shop) error

	// GetByID retrieves a shop by its ID
	GetByID(ctx context.Context, id int64) (*models.Shop, error)

	// GetByIDForUpdate retrieves a shop by its ID with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Shop, error)

	// UpdateWalletBalance updates a shop's wallet balance
	UpdateWalletBalance(ctx context.Context, id int64, newBalance decimal.Decimal) error
}

// TransactionRepository defines the interface for ledger transaction data access
type TransactionRepository interface {
	// Create creates a new ledger transaction entry
	Create(ctx context.Context, transaction *models.Transaction) error

	// GetByShop returns ledger transactions for a shop, newest first
	GetByShop(ctx context.Context, shopID int64, limit int) ([]*models.Transaction, error)
}

// GameRepository defines the interface for bingo game data access
type GameRepository interface {
	// Create creates a new game
	Create(ctx context.Context, game *models.Game) error

	// GetByID retrieves a game by its ID
	GetByID(ctx context.Context, id int64) (*models.Game, error)

	// GetByCode retrieves a shop's game by its code
	GetByCode(ctx context.Context, shopID int64, code string) (*models.Game, error)

	// GetByCodeForUpdate retrieves a shop's game by its code with a row lock
	GetByCodeForUpdate(ctx context.Context, shopID int64, code string) (*models.Game, error)

	// Update updates a game's mutable state
	Update(ctx context.Context, game *models.Game) error

	// ListByShop returns a shop's games, newest first
	ListByShop(ctx context.Context, shopID int64, limit int) ([]*models.Game, error)

	// CodeExists checks whether a game code is already taken
	CodeExists(ctx context.Context, code string) (bool, error)
}

// SessionRepository defines the interface for shop bingo session data access
type SessionRepository interface {
	// Create creates a new session
	Create(ctx context.Context, session *models.ShopBingoSession) error

	// GetBySessionID retrieves a shop's session by its public session ID
	GetBySessionID(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error)

	// GetBySessionIDForUpdate retrieves a shop's session by its public session ID with a row lock
	GetBySessionIDForUpdate(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error)

	// Update updates a session's mutable state
	Update(ctx context.Context, session *models.ShopBingoSession) error

	// ListByShop returns a shop's sessions, newest first
	ListByShop(ctx context.Context, shopID int64, limit int) ([]*models.ShopBingoSession, error)
}

// LedgerService defines the interface for wallet ledger operations
type LedgerService interface {
	// Apply applies a single ledger transaction to a shop's wallet
	Apply(ctx context.Context, shopID int64, amount decimal.Decimal, transactionType models.TransactionType, reference string, actorRole models.ActorRole, metadata map[string]any) (*models.Transaction, error)

	// Deposit credits a shop's wallet on behalf of an admin
	Deposit(ctx context.Context, shopID int64, amount decimal.Decimal, reference string) (*models.Transaction, error)

	// Withdraw debits a shop's wallet on behalf of an admin
	Withdraw(ctx context.Context, shopID int64, amount decimal.Decimal, reference string) (*models.Transaction, error)

	// History returns a shop's ledger transactions, newest first
	History(ctx context.Context, shopID int64, limit int) ([]*models.Transaction, error)
}

// GameService defines the interface for bingo game operations
type GameService interface {
	// CreateGame creates a standard game from shop-supplied cartellas,
	// debiting the stake up front and activating the game immediately
	CreateGame(ctx context.Context, shopID int64, cartellas [][]int, betAmount, winAmount decimal.Decimal, numPlayers int) (*models.Game, error)

	// StartGame transitions a pending game to active
	StartGame(ctx context.Context, shopID int64, code string) (*models.Game, error)

	// ShuffleDraw regenerates the draw sequences of a pending game
	ShuffleDraw(ctx context.Context, shopID int64, code string) (*models.Game, error)

	// NextCall advances an active game's draw by one number
	NextCall(ctx context.Context, shopID int64, code string) (*models.NextCallResult, error)

	// Claim adjudicates a bingo claim for a cartella
	Claim(ctx context.Context, shopID int64, code string, cartellaIndex int, pattern string) (*models.ClaimResult, error)

	// FinishGame completes or cancels a game administratively
	FinishGame(ctx context.Context, shopID int64, code string, status models.GameStatus, winners []int) (*models.Game, error)

	// GetGame retrieves a shop's game by its code
	GetGame(ctx context.Context, shopID int64, code string) (*models.Game, error)

	// ListGames returns a shop's games, newest first
	ListGames(ctx context.Context, shopID int64, limit int) ([]*models.Game, error)
}

// SessionService defines the interface for shop bingo lobby operations
type SessionService interface {
	// CreateSession opens a new four-player lobby session
	CreateSession(ctx context.Context, shopID int64, minBetPerCartella decimal.Decimal) (*models.ShopBingoSession, error)

	// Reserve adds or replaces a player's cartella reservation
	Reserve(ctx context.Context, shopID int64, sessionID string, playerName string, cartellaNumbers []int, betPerCartella decimal.Decimal) (*models.ShopBingoSession, error)

	// ConfirmPayment marks a player paid, finalizing the session into a game
	// once all four players have paid
	ConfirmPayment(ctx context.Context, shopID int64, sessionID string, playerName string) (*models.SessionConfirmation, error)

	// CancelSession cancels a waiting session
	CancelSession(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error)

	// GetSession retrieves a shop's session by its public session ID
	GetSession(ctx context.Context, shopID int64, sessionID string) (*models.ShopBingoSession, error)

	// ListSessions returns a shop's sessions, newest first
	ListSessions(ctx context.Context, shopID int64, limit int) ([]*models.ShopBingoSession, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	ShopRepository() ShopRepository
	TransactionRepository() TransactionRepository
	GameRepository() GameRepository
	SessionRepository() SessionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
