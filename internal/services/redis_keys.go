package services

import "time"

const (
	KeyUser             = "user:%s"
	KeyGameSession      = "game:session:%s"
	KeySessionSteps     = "game:session:%s:steps"
	KeyUserActiveGames  = "user:%s:active_games"
	KeyUserHistory      = "user:%s:completed_games"
	KeyTransaction      = "transaction:%s"
	KeyUserTransactions = "user:%s:transactions"
	KeyLeaderboard      = "leaderboard:%s:%s" // metric, window
	KeyLoginNonce       = "auth:nonce:%s"
	KeyRateLimit        = "ratelimit:%s:%s"

	TTLGameSession = 30 * 24 * time.Hour
	TTLTransaction = 30 * 24 * time.Hour
	TTLLeaderboard = 60 * 24 * time.Hour

	HistoryKeep = 100 // completed games / transactions kept per user
)
