package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"

	"lulubingo/config"
	"lulubingo/database"
	"lulubingo/events"
	"lulubingo/repository"
	"lulubingo/service"
)

// App bundles the wired services for a delivery tier to consume. The chat
// frontend and shop dashboard run as separate processes and embed this
// package to reach the bingo core.
type App struct {
	DB       *database.DB
	Events   *events.Bus
	Ledger   service.LedgerService
	Games    service.GameService
	Sessions service.SessionService
}

// NewApp connects to the database and wires the full service graph
func NewApp(ctx context.Context) (*App, error) {
	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()
	subscribeAuditLogging(eventBus)

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	app := &App{
		DB:       db,
		Events:   eventBus,
		Ledger:   service.NewLedgerService(uowFactory),
		Games:    service.NewGameService(uowFactory, nil),
		Sessions: service.NewSessionService(uowFactory, nil),
	}
	log.Println("Services initialized successfully")

	return app, nil
}

// Close releases the application's resources
func (a *App) Close() {
	a.DB.Close()
}

// Run initializes the application and blocks until the context is cancelled
func Run(ctx context.Context) error {
	log.Println("Starting bingo service...")

	cfg := config.Get()

	app, err := NewApp(ctx)
	if err != nil {
		return err
	}

	// Wait for context cancellation
	log.Printf("Bingo service is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bingo service...")

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	app.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

// subscribeAuditLogging attaches structured log handlers to every domain
// event, giving operators a wallet and game audit trail without a separate
// observability stack
func subscribeAuditLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeTransactionApplied, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.TransactionAppliedEvent); ok {
			logrus.WithFields(logrus.Fields{
				"shopID":        ev.ShopID,
				"type":          ev.TransactionType,
				"amount":        ev.Amount,
				"balanceBefore": ev.BalanceBefore,
				"balanceAfter":  ev.BalanceAfter,
				"reference":     ev.Reference,
			}).Info("Wallet transaction applied")
		}
	})

	bus.Subscribe(events.EventTypeGameCreated, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.GameCreatedEvent); ok {
			logrus.WithFields(logrus.Fields{
				"shopID":    ev.ShopID,
				"gameID":    ev.GameID,
				"code":      ev.Code,
				"mode":      ev.Mode,
				"cartellas": ev.CartellaCount,
				"totalPool": ev.TotalPool,
			}).Info("Game created")
		}
	})

	bus.Subscribe(events.EventTypeGameStateChange, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.GameStateChangeEvent); ok {
			logrus.WithFields(logrus.Fields{
				"shopID":    ev.ShopID,
				"code":      ev.Code,
				"oldStatus": ev.OldStatus,
				"newStatus": ev.NewStatus,
			}).Info("Game state changed")
		}
	})

	bus.Subscribe(events.EventTypeNumberCalled, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.NumberCalledEvent); ok {
			logrus.WithFields(logrus.Fields{
				"shopID":     ev.ShopID,
				"code":       ev.Code,
				"label":      ev.Label,
				"callCursor": ev.CallCursor,
			}).Debug("Number called")
		}
	})

	bus.Subscribe(events.EventTypeClaimAdjudicated, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.ClaimAdjudicatedEvent); ok {
			logrus.WithFields(logrus.Fields{
				"shopID":        ev.ShopID,
				"code":          ev.Code,
				"cartellaIndex": ev.CartellaIndex,
				"pattern":       ev.Pattern,
				"result":        ev.Result,
				"payout":        ev.Payout,
			}).Info("Claim adjudicated")
		}
	})

	bus.Subscribe(events.EventTypeSessionLocked, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.SessionLockedEvent); ok {
			logrus.WithFields(logrus.Fields{
				"shopID":       ev.ShopID,
				"sessionID":    ev.SessionID,
				"gameCode":     ev.GameCode,
				"totalPayable": ev.TotalPayable,
			}).Info("Session locked")
		}
	})
}
