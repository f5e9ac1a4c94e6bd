package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/engine"
)

type StartGameRequest struct {
	Wager decimal.Decimal `json:"wager" binding:"required"`
}

func (r *StartGameRequest) Validate() error {
	if !r.Wager.IsPositive() {
		return fmt.Errorf("wager must be positive, got %s", r.Wager)
	}
	return nil
}

type MoveRequest struct {
	SessionID string   `json:"session_id" binding:"required"`
	Steps     int      `json:"steps"`
	Powerups  []string `json:"powerups,omitempty"`
}

type CashoutRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type ClaimNonceRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type ClaimVerifyRequest struct {
	SessionID string          `json:"session_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Nonce     string          `json:"nonce" binding:"required"`
	Signature string          `json:"signature" binding:"required"`
}

type AuthVerifyRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// MoveResult is returned from a move operation: the cell the move finally
// resolved against (after any skip cascade) plus the updated session view.
type MoveResult struct {
	Session         *GameSession    `json:"session"`
	LandedCell      engine.Cell     `json:"landed_cell"`
	Multiplier      float64         `json:"multiplier"`
	PotentialPayout decimal.Decimal `json:"potential_payout"`
	Steps           []*StepEntry    `json:"steps"`
}

// ClaimGrant is the response to a nonce issuance: the single-use token and
// the server-computed payout it is bound to.
type ClaimGrant struct {
	SessionID string          `json:"session_id"`
	Nonce     string          `json:"nonce"`
	Amount    decimal.Decimal `json:"amount"`
	IssuedAt  int64           `json:"issued_at"`
	ExpiresAt int64           `json:"expires_at"`
}

type LeaderboardEntry struct {
	Address string  `json:"address"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}
