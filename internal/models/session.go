package models

import (
	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/engine"
)

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusWon       SessionStatus = "won"
	StatusLost      SessionStatus = "lost"
	StatusCashedOut SessionStatus = "cashed_out"
)

type ClaimStatus string

const (
	ClaimPending ClaimStatus = "pending"
	ClaimClaimed ClaimStatus = "claimed"
)

// GameSession is one run up the board. The board itself is never stored: it
// is regenerated from Seed on every operation. Seed stays server-side until
// the session leaves active; SeedHash is the fairness commitment published at
// start.
type GameSession struct {
	ID      string `json:"id" redis:"id"`
	OwnerID string `json:"owner_id" redis:"owner_id"` // lowercase hex address

	Seed     string `json:"seed,omitempty" redis:"seed"`
	SeedHash string `json:"seed_hash" redis:"seed_hash"`

	Wager         decimal.Decimal `json:"wager" redis:"wager"`
	Position      int             `json:"position" redis:"position"`
	Multiplier    float64         `json:"multiplier" redis:"multiplier"`
	BonusCurrency decimal.Decimal `json:"bonus_currency" redis:"bonus_currency"`

	Powerups map[engine.PowerupKind]int `json:"powerups" redis:"powerups"`

	Status SessionStatus   `json:"status" redis:"status"`
	Payout decimal.Decimal `json:"payout" redis:"payout"`

	// ClaimNonce is persisted with the session but never exposed through the
	// API; handler views build their own payloads.
	ClaimStatus    ClaimStatus `json:"claim_status" redis:"claim_status"`
	ClaimNonce     string      `json:"claim_nonce,omitempty" redis:"claim_nonce"`
	NonceExpiresAt int64       `json:"nonce_expires_at,omitempty" redis:"nonce_expires_at"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
	EndedAt   int64 `json:"ended_at,omitempty" redis:"ended_at"`
}

// Terminal reports whether the session has left the active state. Terminal
// sessions are immutable except for the claim fields.
func (s *GameSession) Terminal() bool {
	return s.Status != StatusActive
}

// PotentialPayout is what a cash-out right now would pay.
func (s *GameSession) PotentialPayout() decimal.Decimal {
	return s.Wager.Mul(decimal.NewFromFloat(s.Multiplier)).Add(s.BonusCurrency)
}

// StepEntry is one immutable step-log record: where the player landed and
// what the cell did to them. Cascaded landings (skip through a trap) get
// their own entries.
type StepEntry struct {
	Position   int             `json:"position"`
	Kind       engine.CellKind `json:"kind"`
	Multiplier float64         `json:"multiplier"`
	CreatedAt  int64           `json:"created_at"`
}
