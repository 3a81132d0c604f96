package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameMode represents how a game was set up
type GameMode string

const (
	// GameModeStandard is a shop-entered game: the caller supplies boards and
	// a stake up front and the game starts immediately.
	GameModeStandard GameMode = "standard"
	// GameModeShopFixed4 is a game materialized by a shop bingo session once
	// exactly four players have reserved and paid.
	GameModeShopFixed4 GameMode = "shop_fixed4"
)

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	GameStatusPending   GameStatus = "pending"
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
	GameStatusCancelled GameStatus = "cancelled"
)

// CartellaStatus represents the per-cartella state within a game
type CartellaStatus string

const (
	CartellaStatusActive CartellaStatus = "active"
	CartellaStatusBanned CartellaStatus = "banned"
	CartellaStatusWinner CartellaStatus = "winner"
)

// Claim audit results recorded in a game's awarded_claims log
const (
	ClaimResultWinner     = "winner"
	ClaimResultFalseClaim = "false_claim"
)

// AwardedClaim is one entry in a game's append-only claim audit log
type AwardedClaim struct {
	CartellaIndex int             `json:"cartella_index"`
	Pattern       string          `json:"pattern"`
	CalledCount   int             `json:"called_count"`
	Result        string          `json:"result"`
	TotalPool     decimal.Decimal `json:"total_pool"`
	ShopCut       decimal.Decimal `json:"shop_cut"`
	Payout        decimal.Decimal `json:"payout"`
	ClaimedAt     time.Time       `json:"claimed_at"`
}

// Game represents one bingo game from creation through number calling to
// claim adjudication and settlement
type Game struct {
	ID     int64      `db:"id"`
	ShopID int64      `db:"shop_id"`
	Code   string     `db:"code"`
	Mode   GameMode   `db:"mode"`
	Status GameStatus `db:"status"`

	BetAmount         decimal.Decimal `db:"bet_amount"`
	WinAmount         decimal.Decimal `db:"win_amount"`
	MinBetPerCartella decimal.Decimal `db:"min_bet_per_cartella"`
	NumPlayers        int             `db:"num_players"`

	// CartellaNumbers holds the boards, column by column B through O for
	// generated boards. CartellaNumberMap maps the player-facing cartella
	// number to its index in CartellaNumbers (shop_fixed4 only).
	CartellaNumbers   [][]int     `db:"cartella_numbers"`
	CartellaNumberMap map[int]int `db:"cartella_number_map"`

	DrawSequence          []int         `db:"draw_sequence"`
	CartellaDrawSequences map[int][]int `db:"cartella_draw_sequences"`
	CalledNumbers         []int         `db:"called_numbers"`
	CallCursor            int           `db:"call_cursor"`
	CurrentCalledNumber   *int          `db:"current_called_number"`

	CartellaStatuses map[int]CartellaStatus `db:"cartella_statuses"`
	BannedCartellas  []int                  `db:"banned_cartellas"`
	Winners          []int                  `db:"winners"`
	AwardedClaims    []AwardedClaim         `db:"awarded_claims"`
	WinningPattern   string                 `db:"winning_pattern"`

	TotalPool     decimal.Decimal `db:"total_pool"`
	CutPercentage decimal.Decimal `db:"cut_percentage"`
	WinPercentage decimal.Decimal `db:"win_percentage"`
	PayoutAmount  decimal.Decimal `db:"payout_amount"`
	ShopCutAmount decimal.Decimal `db:"shop_cut_amount"`

	BetDebitedAt     *time.Time `db:"bet_debited_at"`
	PayoutCreditedAt *time.Time `db:"payout_credited_at"`
	RefundCreditedAt *time.Time `db:"refund_credited_at"`

	StartedAt *time.Time `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// IsPending checks if the game has not been started yet
func (g *Game) IsPending() bool {
	return g.Status == GameStatusPending
}

// IsActive checks if the game is accepting calls and claims
func (g *Game) IsActive() bool {
	return g.Status == GameStatusActive
}

// IsFinished checks if the game reached a terminal state
func (g *Game) IsFinished() bool {
	return g.Status == GameStatusCompleted || g.Status == GameStatusCancelled
}

// CartellaCount returns the number of boards in play
func (g *Game) CartellaCount() int {
	return len(g.CartellaNumbers)
}

// IsCartellaBanned checks if a cartella was disqualified by a false claim
func (g *Game) IsCartellaBanned(index int) bool {
	return g.CartellaStatuses[index] == CartellaStatusBanned
}

// DrawsExhausted checks if every number in the draw sequence has been called
func (g *Game) DrawsExhausted() bool {
	return g.CallCursor >= len(g.DrawSequence)
}

// ResolveTotalPool returns the stored pool if set, otherwise stake times
// cartella count
func (g *Game) ResolveTotalPool() decimal.Decimal {
	if g.TotalPool.IsPositive() {
		return g.TotalPool
	}
	return g.BetAmount.Mul(decimal.NewFromInt(int64(g.CartellaCount())))
}

// ClaimOutcome classifies what happened to a claim
type ClaimOutcome string

const (
	ClaimOutcomeWinner        ClaimOutcome = "winner"
	ClaimOutcomeFalseClaim    ClaimOutcome = "false_claim"
	ClaimOutcomeAlreadyBanned ClaimOutcome = "already_banned"
)

// ClaimResult is the adjudication outcome returned to the caller
type ClaimResult struct {
	Outcome        ClaimOutcome
	CartellaIndex  int
	Pattern        string
	MatchedCount   int
	RequiredCount  int
	MissingNumbers []int
	TotalPool      decimal.Decimal
	ShopCutAmount  decimal.Decimal
	PayoutAmount   decimal.Decimal
	Game           *Game
}

// NextCallResult is the outcome of advancing a game's call cursor.
// Complete is set when the draw sequence is already exhausted; no number is
// drawn in that case.
type NextCallResult struct {
	Complete   bool
	Number     int
	Label      string
	CallCursor int
}
