package models

import "github.com/shopspring/decimal"

type TransactionType string

const (
	TransactionTypeWager  TransactionType = "wager"
	TransactionTypePayout TransactionType = "payout"
)

// Transaction records a value movement against a session: the wager taken at
// start and the payout transfer issued after a successful claim.
type Transaction struct {
	ID          string          `json:"id" redis:"id"`
	Address     string          `json:"address" redis:"address"`
	Type        TransactionType `json:"type" redis:"type"`
	Amount      decimal.Decimal `json:"amount" redis:"amount"`
	SessionID   string          `json:"session_id,omitempty" redis:"session_id"`
	TransferRef string          `json:"transfer_ref,omitempty" redis:"transfer_ref"`
	Description string          `json:"description" redis:"description"`
	CreatedAt   int64           `json:"created_at" redis:"created_at"`
}
