package services

import (
	"context"
	"time"

	"oddclimb-backend/internal/models"
)

// Store is the persistence boundary. Production runs on redis; unit tests run
// on the in-memory implementation. Nothing above this interface knows which
// one it is talking to.
type Store interface {
	GetOrCreateUser(ctx context.Context, address string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	SaveGameSession(ctx context.Context, session *models.GameSession) error
	GetGameSession(ctx context.Context, sessionID string) (*models.GameSession, error)
	UpdateGameSession(ctx context.Context, session *models.GameSession) error
	CompleteGameSession(ctx context.Context, address, sessionID string) error
	GetUserActiveSessions(ctx context.Context, address string) ([]string, error)
	GetSessionHistory(ctx context.Context, address string, limit int64) ([]*models.GameSession, error)

	AppendSteps(ctx context.Context, sessionID string, steps []*models.StepEntry) error
	GetSteps(ctx context.Context, sessionID string) ([]*models.StepEntry, error)

	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetUserTransactions(ctx context.Context, address string, limit int64) ([]*models.Transaction, error)

	AddLeaderboardScore(ctx context.Context, metric, window, address string, delta float64) error
	SetLeaderboardBest(ctx context.Context, metric, window, address string, score float64) error
	GetLeaderboard(ctx context.Context, metric, window string, limit int64) ([]*models.LeaderboardEntry, error)

	StoreLoginNonce(ctx context.Context, address, nonce string, ttl time.Duration) error
	GetLoginNonce(ctx context.Context, address string) (string, error)
	DeleteLoginNonce(ctx context.Context, address string) error

	CheckRateLimit(ctx context.Context, address, action string, limit int, window time.Duration) (bool, error)

	Close() error
}
