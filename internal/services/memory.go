package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/models"
)

// MemoryStore is an in-memory Store with the same copy semantics as redis
// (values are marshaled on write and unmarshaled on read, so callers never
// alias stored state). It backs the unit tests and local development without
// a redis instance.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[string][]byte
	sessions     map[string][]byte
	steps        map[string][][]byte
	active       map[string]map[string]bool
	history      map[string][]string
	transactions map[string][]byte
	userTxs      map[string][]string
	leaderboards map[string]map[string]float64
	loginNonces  map[string]loginNonce
	rates        map[string]*rateWindow
}

type loginNonce struct {
	nonce     string
	expiresAt time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string][]byte),
		sessions:     make(map[string][]byte),
		steps:        make(map[string][][]byte),
		active:       make(map[string]map[string]bool),
		history:      make(map[string][]string),
		transactions: make(map[string][]byte),
		userTxs:      make(map[string][]string),
		leaderboards: make(map[string]map[string]float64),
		loginNonces:  make(map[string]loginNonce),
		rates:        make(map[string]*rateWindow),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetOrCreateUser(_ context.Context, address string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, ok := s.users[address]; ok {
		var user models.User
		if err := json.Unmarshal(data, &user); err != nil {
			return nil, err
		}
		return &user, nil
	}

	now := time.Now().Unix()
	user := &models.User{
		Address:      address,
		TotalWagered: decimal.Zero,
		TotalWon:     decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	s.users[address] = data
	return user, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Address] = data
	return nil
}

func (s *MemoryStore) SaveGameSession(_ context.Context, session *models.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = data
	if s.active[session.OwnerID] == nil {
		s.active[session.OwnerID] = make(map[string]bool)
	}
	s.active[session.OwnerID][session.ID] = true
	return nil
}

func (s *MemoryStore) GetGameSession(_ context.Context, sessionID string) (*models.GameSession, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	var session models.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MemoryStore) UpdateGameSession(_ context.Context, session *models.GameSession) error {
	session.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = data
	return nil
}

func (s *MemoryStore) CompleteGameSession(_ context.Context, address, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if games, ok := s.active[address]; ok {
		delete(games, sessionID)
	}
	s.history[address] = append(s.history[address], sessionID)
	if len(s.history[address]) > HistoryKeep {
		s.history[address] = s.history[address][len(s.history[address])-HistoryKeep:]
	}
	return nil
}

func (s *MemoryStore) GetUserActiveSessions(_ context.Context, address string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.active[address]))
	for id := range s.active[address] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) GetSessionHistory(ctx context.Context, address string, limit int64) ([]*models.GameSession, error) {
	if limit <= 0 || limit > HistoryKeep {
		limit = 50
	}

	s.mu.RLock()
	ids := append([]string(nil), s.history[address]...)
	s.mu.RUnlock()

	var sessions []*models.GameSession
	for i := len(ids) - 1; i >= 0 && int64(len(sessions)) < limit; i-- {
		session, err := s.GetGameSession(ctx, ids[i])
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *MemoryStore) AppendSteps(_ context.Context, sessionID string, steps []*models.StepEntry) error {
	encoded := make([][]byte, 0, len(steps))
	for _, step := range steps {
		data, err := json.Marshal(step)
		if err != nil {
			return err
		}
		encoded = append(encoded, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[sessionID] = append(s.steps[sessionID], encoded...)
	return nil
}

func (s *MemoryStore) GetSteps(_ context.Context, sessionID string) ([]*models.StepEntry, error) {
	s.mu.RLock()
	raw := append([][]byte(nil), s.steps[sessionID]...)
	s.mu.RUnlock()

	steps := make([]*models.StepEntry, 0, len(raw))
	for _, data := range raw {
		var step models.StepEntry
		if err := json.Unmarshal(data, &step); err != nil {
			continue
		}
		steps = append(steps, &step)
	}
	return steps, nil
}

func (s *MemoryStore) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = data
	s.userTxs[tx.Address] = append(s.userTxs[tx.Address], tx.ID)
	return nil
}

func (s *MemoryStore) GetUserTransactions(_ context.Context, address string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > HistoryKeep {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.userTxs[address]
	var transactions []*models.Transaction
	for i := len(ids) - 1; i >= 0 && int64(len(transactions)) < limit; i-- {
		data, ok := s.transactions[ids[i]]
		if !ok {
			continue
		}
		var tx models.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

func (s *MemoryStore) AddLeaderboardScore(_ context.Context, metric, window, address string, delta float64) error {
	key := metric + ":" + window

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaderboards[key] == nil {
		s.leaderboards[key] = make(map[string]float64)
	}
	s.leaderboards[key][address] += delta
	return nil
}

func (s *MemoryStore) SetLeaderboardBest(_ context.Context, metric, window, address string, score float64) error {
	key := metric + ":" + window

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaderboards[key] == nil {
		s.leaderboards[key] = make(map[string]float64)
	}
	if score > s.leaderboards[key][address] {
		s.leaderboards[key][address] = score
	}
	return nil
}

func (s *MemoryStore) GetLeaderboard(_ context.Context, metric, window string, limit int64) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	board := s.leaderboards[metric+":"+window]
	entries := make([]*models.LeaderboardEntry, 0, len(board))
	for address, score := range board {
		entries = append(entries, &models.LeaderboardEntry{Address: address, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Address < entries[j].Address
	})

	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries, nil
}

func (s *MemoryStore) StoreLoginNonce(_ context.Context, address, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginNonces[address] = loginNonce{nonce: nonce, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) GetLoginNonce(_ context.Context, address string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.loginNonces[address]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", fmt.Errorf("%w: no login challenge for %s", ErrNotFound, address)
	}
	return entry.nonce, nil
}

func (s *MemoryStore) DeleteLoginNonce(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loginNonces, address)
	return nil
}

func (s *MemoryStore) CheckRateLimit(_ context.Context, address, action string, limit int, window time.Duration) (bool, error) {
	key := address + ":" + action

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, ok := s.rates[key]
	if !ok || now.After(w.resetAt) {
		s.rates[key] = &rateWindow{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	w.count++
	return w.count <= limit, nil
}
