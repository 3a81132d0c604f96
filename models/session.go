package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus represents the lifecycle state of a shop bingo session
type SessionStatus string

const (
	SessionStatusWaiting   SessionStatus = "waiting"
	SessionStatusLocked    SessionStatus = "locked"
	SessionStatusCancelled SessionStatus = "cancelled"
)

const (
	// SessionFixedPlayers is the exact number of players a session coordinates
	SessionFixedPlayers = 4
	// MaxCartellasPerPlayer caps one player's reservation
	MaxCartellasPerPlayer = 4
	// MaxCartellasPerSession caps the union of all reservations
	MaxCartellasPerSession = 16
)

// PlayerReservation is one player's slot in a session. Player names are
// matched case-insensitively; a paid reservation is frozen.
type PlayerReservation struct {
	PlayerName      string          `json:"player_name"`
	CartellaNumbers []int           `json:"cartella_numbers"`
	BetPerCartella  decimal.Decimal `json:"bet_per_cartella"`
	TotalBet        decimal.Decimal `json:"total_bet"`
	Paid            bool            `json:"paid"`
	ReservedAt      time.Time       `json:"reserved_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

// ShopBingoSession coordinates exactly four players reserving and paying for
// cartellas before a shop_fixed4 game exists
type ShopBingoSession struct {
	ID                int64               `db:"id"`
	ShopID            int64               `db:"shop_id"`
	SessionID         string              `db:"session_id"`
	Status            SessionStatus       `db:"status"`
	MinBetPerCartella decimal.Decimal     `db:"min_bet_per_cartella"`
	Players           []PlayerReservation `db:"players_data"`
	LockedCartellas   []int               `db:"locked_cartellas"`
	TotalPayable      decimal.Decimal     `db:"total_payable"`
	GameID            *int64              `db:"game_id"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
}

// IsWaiting checks if the session still accepts reservations and payments
func (s *ShopBingoSession) IsWaiting() bool {
	return s.Status == SessionStatusWaiting
}

// IsLocked checks if the session has finalized into a game
func (s *ShopBingoSession) IsLocked() bool {
	return s.Status == SessionStatusLocked
}

// FindPlayer returns the index of the named player, matching
// case-insensitively, or -1 when absent
func (s *ShopBingoSession) FindPlayer(name string) int {
	for i := range s.Players {
		if strings.EqualFold(s.Players[i].PlayerName, name) {
			return i
		}
	}
	return -1
}

// AllPlayersPaid checks if every expected player is present and has paid
func (s *ShopBingoSession) AllPlayersPaid() bool {
	if len(s.Players) != SessionFixedPlayers {
		return false
	}
	for i := range s.Players {
		if !s.Players[i].Paid {
			return false
		}
	}
	return true
}

// Recompute rebuilds LockedCartellas and TotalPayable from scratch out of
// the full player list. Derived state is never updated incrementally so a
// partial edit cannot leave it drifted.
func (s *ShopBingoSession) Recompute() {
	locked := make([]int, 0, MaxCartellasPerSession)
	total := decimal.Zero
	for i := range s.Players {
		p := &s.Players[i]
		p.TotalBet = p.BetPerCartella.Mul(decimal.NewFromInt(int64(len(p.CartellaNumbers))))
		locked = append(locked, p.CartellaNumbers...)
		total = total.Add(p.TotalBet)
	}
	sort.Ints(locked)
	s.LockedCartellas = locked
	s.TotalPayable = total
}

// FlattenCartellas returns every player's cartella numbers in player order
func (s *ShopBingoSession) FlattenCartellas() []int {
	flat := make([]int, 0, MaxCartellasPerSession)
	for i := range s.Players {
		flat = append(flat, s.Players[i].CartellaNumbers...)
	}
	return flat
}

// SessionConfirmation is the outcome of a payment confirmation. Game stays
// nil until the confirmation that locks the session; afterwards it is the
// materialized game.
type SessionConfirmation struct {
	Session *ShopBingoSession
	Game    *Game
}
