package events

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"lulubingo/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTransactionApplied EventType = "transaction_applied"
	EventTypeGameCreated        EventType = "game_created"
	EventTypeGameStateChange    EventType = "game_state_change"
	EventTypeNumberCalled       EventType = "number_called"
	EventTypeClaimAdjudicated   EventType = "claim_adjudicated"
	EventTypeSessionLocked      EventType = "session_locked"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TransactionAppliedEvent represents a wallet balance change that occurred
type TransactionAppliedEvent struct {
	ShopID          int64
	TransactionType models.TransactionType
	Amount          decimal.Decimal
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	Reference       string
}

func (e TransactionAppliedEvent) Type() EventType {
	return EventTypeTransactionApplied
}

// GameCreatedEvent represents a new bingo game creation
type GameCreatedEvent struct {
	ShopID        int64
	GameID        int64
	Code          string
	Mode          models.GameMode
	CartellaCount int
	TotalPool     decimal.Decimal
}

func (e GameCreatedEvent) Type() EventType {
	return EventTypeGameCreated
}

// GameStateChangeEvent represents a game status transition
type GameStateChangeEvent struct {
	ShopID    int64
	Code      string
	OldStatus models.GameStatus
	NewStatus models.GameStatus
}

func (e GameStateChangeEvent) Type() EventType {
	return EventTypeGameStateChange
}

// NumberCalledEvent represents a number drawn during an active game
type NumberCalledEvent struct {
	ShopID     int64
	Code       string
	Number     int
	Label      string
	CallCursor int
}

func (e NumberCalledEvent) Type() EventType {
	return EventTypeNumberCalled
}

// ClaimAdjudicatedEvent represents the outcome of a bingo claim
type ClaimAdjudicatedEvent struct {
	ShopID        int64
	Code          string
	CartellaIndex int
	Pattern       string
	Result        string
	Payout        decimal.Decimal
}

func (e ClaimAdjudicatedEvent) Type() EventType {
	return EventTypeClaimAdjudicated
}

// SessionLockedEvent represents a lobby session that collected all payments
// and produced a game
type SessionLockedEvent struct {
	ShopID       int64
	SessionID    string
	GameCode     string
	TotalPayable decimal.Decimal
}

func (e SessionLockedEvent) Type() EventType {
	return EventTypeSessionLocked
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": handlerIndex,
			}).Debug("Calling event handler")
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Use background context for event emission to avoid issues with transaction context expiration
	// Events should be processed independently of the transaction lifecycle
	eventCtx := context.Background()

	for _, ev := range b.pending {
		log.WithFields(log.Fields{
			"eventType": ev.Type(),
		}).Debug("Emitting event to main event bus")
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	log.Debug("All pending events flushed, transactional bus cleared")
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
