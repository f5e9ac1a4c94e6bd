package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/config"
	"oddclimb-backend/internal/models"
)

// RedisService is the production Store: JSON blobs per key, ZSET histories
// trimmed to the last HistoryKeep entries, ZSET leaderboards, INCR+EXPIRE
// rate limits.
type RedisService struct {
	client *redis.Client
}

var _ Store = (*RedisService)(nil)

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) GetOrCreateUser(ctx context.Context, address string) (*models.User, error) {
	key := fmt.Sprintf(KeyUser, address)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		now := time.Now().Unix()
		user := &models.User{
			Address:      address,
			TotalWagered: decimal.Zero,
			TotalWon:     decimal.Zero,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.SaveUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %v", err)
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return &user, nil
}

func (s *RedisService) SaveUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %v", err)
	}

	key := fmt.Sprintf(KeyUser, user.Address)
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *RedisService) SaveGameSession(ctx context.Context, session *models.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal game session: %v", err)
	}

	key := fmt.Sprintf(KeyGameSession, session.ID)
	if err := s.client.Set(ctx, key, data, TTLGameSession).Err(); err != nil {
		return fmt.Errorf("failed to save game session: %v", err)
	}

	activeKey := fmt.Sprintf(KeyUserActiveGames, session.OwnerID)
	if err := s.client.SAdd(ctx, activeKey, session.ID).Err(); err != nil {
		return fmt.Errorf("failed to add to active games: %v", err)
	}
	s.client.Expire(ctx, activeKey, TTLGameSession)

	return nil
}

func (s *RedisService) GetGameSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	key := fmt.Sprintf(KeyGameSession, sessionID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %v", err)
	}

	var session models.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game session: %v", err)
	}
	return &session, nil
}

func (s *RedisService) UpdateGameSession(ctx context.Context, session *models.GameSession) error {
	session.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal game session: %v", err)
	}

	key := fmt.Sprintf(KeyGameSession, session.ID)
	return s.client.Set(ctx, key, data, TTLGameSession).Err()
}

func (s *RedisService) CompleteGameSession(ctx context.Context, address, sessionID string) error {
	activeKey := fmt.Sprintf(KeyUserActiveGames, address)
	if err := s.client.SRem(ctx, activeKey, sessionID).Err(); err != nil {
		return fmt.Errorf("failed to remove from active games: %v", err)
	}

	historyKey := fmt.Sprintf(KeyUserHistory, address)
	if err := s.client.ZAdd(ctx, historyKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: sessionID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to history: %v", err)
	}

	s.client.ZRemRangeByRank(ctx, historyKey, 0, int64(-HistoryKeep-1))

	return nil
}

func (s *RedisService) GetUserActiveSessions(ctx context.Context, address string) ([]string, error) {
	key := fmt.Sprintf(KeyUserActiveGames, address)

	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active games: %v", err)
	}
	return ids, nil
}

func (s *RedisService) GetSessionHistory(ctx context.Context, address string, limit int64) ([]*models.GameSession, error) {
	if limit <= 0 || limit > HistoryKeep {
		limit = 50
	}

	historyKey := fmt.Sprintf(KeyUserHistory, address)
	ids, err := s.client.ZRevRange(ctx, historyKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history ids: %v", err)
	}

	var sessions []*models.GameSession
	for _, id := range ids {
		session, err := s.GetGameSession(ctx, id)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *RedisService) AppendSteps(ctx context.Context, sessionID string, steps []*models.StepEntry) error {
	if len(steps) == 0 {
		return nil
	}

	key := fmt.Sprintf(KeySessionSteps, sessionID)
	values := make([]interface{}, 0, len(steps))
	for _, step := range steps {
		data, err := json.Marshal(step)
		if err != nil {
			return fmt.Errorf("failed to marshal step: %v", err)
		}
		values = append(values, data)
	}

	if err := s.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("failed to append steps: %v", err)
	}
	s.client.Expire(ctx, key, TTLGameSession)

	return nil
}

func (s *RedisService) GetSteps(ctx context.Context, sessionID string) ([]*models.StepEntry, error) {
	key := fmt.Sprintf(KeySessionSteps, sessionID)

	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %v", err)
	}

	steps := make([]*models.StepEntry, 0, len(raw))
	for _, item := range raw {
		var step models.StepEntry
		if err := json.Unmarshal([]byte(item), &step); err != nil {
			continue
		}
		steps = append(steps, &step)
	}
	return steps, nil
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	txKey := fmt.Sprintf(KeyTransaction, tx.ID)
	if err := s.client.Set(ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.Address)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user transactions: %v", err)
	}

	s.client.ZRemRangeByRank(ctx, userTxKey, 0, int64(-HistoryKeep-1))

	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, address string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > HistoryKeep {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, address)
	ids, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction ids: %v", err)
	}

	var transactions []*models.Transaction
	for _, id := range ids {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyTransaction, id)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

func (s *RedisService) AddLeaderboardScore(ctx context.Context, metric, window, address string, delta float64) error {
	key := fmt.Sprintf(KeyLeaderboard, metric, window)
	if err := s.client.ZIncrBy(ctx, key, delta, address).Err(); err != nil {
		return fmt.Errorf("failed to update leaderboard: %v", err)
	}
	s.client.Expire(ctx, key, TTLLeaderboard)
	return nil
}

func (s *RedisService) SetLeaderboardBest(ctx context.Context, metric, window, address string, score float64) error {
	key := fmt.Sprintf(KeyLeaderboard, metric, window)
	if err := s.client.ZAddGT(ctx, key, redis.Z{Score: score, Member: address}).Err(); err != nil {
		return fmt.Errorf("failed to update leaderboard: %v", err)
	}
	s.client.Expire(ctx, key, TTLLeaderboard)
	return nil
}

func (s *RedisService) GetLeaderboard(ctx context.Context, metric, window string, limit int64) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	key := fmt.Sprintf(KeyLeaderboard, metric, window)
	rows, err := s.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %v", err)
	}

	entries := make([]*models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		address, _ := row.Member.(string)
		entries = append(entries, &models.LeaderboardEntry{
			Address: address,
			Score:   row.Score,
			Rank:    i + 1,
		})
	}
	return entries, nil
}

func (s *RedisService) StoreLoginNonce(ctx context.Context, address, nonce string, ttl time.Duration) error {
	key := fmt.Sprintf(KeyLoginNonce, address)
	return s.client.Set(ctx, key, nonce, ttl).Err()
}

func (s *RedisService) GetLoginNonce(ctx context.Context, address string) (string, error) {
	key := fmt.Sprintf(KeyLoginNonce, address)

	nonce, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%w: no login challenge for %s", ErrNotFound, address)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get login nonce: %v", err)
	}
	return nonce, nil
}

func (s *RedisService) DeleteLoginNonce(ctx context.Context, address string) error {
	key := fmt.Sprintf(KeyLoginNonce, address)
	return s.client.Del(ctx, key).Err()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, address, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, address, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}
