package models

import "github.com/shopspring/decimal"

// User is a player keyed by wallet address. Aggregate stats are updated
// exactly once per terminal session transition.
type User struct {
	Address  string `json:"address" redis:"address"`
	Username string `json:"username,omitempty" redis:"username"`

	GamesPlayed int64 `json:"games_played" redis:"games_played"`
	Wins        int64 `json:"wins" redis:"wins"`
	Losses      int64 `json:"losses" redis:"losses"`
	Cashouts    int64 `json:"cashouts" redis:"cashouts"`

	TotalWagered   decimal.Decimal `json:"total_wagered" redis:"total_wagered"`
	TotalWon       decimal.Decimal `json:"total_won" redis:"total_won"`
	BestMultiplier float64         `json:"best_multiplier" redis:"best_multiplier"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}
