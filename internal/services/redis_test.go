package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/config"
	"oddclimb-backend/internal/models"
	"oddclimb-backend/internal/services"
)

func TestRedisService(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	store, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	address := services.NormalizeAddress("0x00000000000000000000000000000000000000C3")

	user, err := store.GetOrCreateUser(ctx, address)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if user.Address != address {
		t.Errorf("expected address %s, got %s", address, user.Address)
	}

	session := &models.GameSession{
		ID:             models.GenerateSessionID(),
		OwnerID:        address,
		Seed:           "feedfeed",
		SeedHash:       models.HashSeed("feedfeed"),
		Wager:          decimal.NewFromInt(100),
		Multiplier:     1,
		Status:         models.StatusActive,
		ClaimStatus:    models.ClaimPending,
		ClaimNonce:     "nonce-roundtrip",
		NonceExpiresAt: time.Now().Add(time.Minute).Unix(),
		CreatedAt:      time.Now().Unix(),
	}
	if err := store.SaveGameSession(ctx, session); err != nil {
		t.Fatalf("SaveGameSession failed: %v", err)
	}

	loaded, err := store.GetGameSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetGameSession failed: %v", err)
	}
	if loaded.SeedHash != session.SeedHash {
		t.Errorf("expected seed hash %s, got %s", session.SeedHash, loaded.SeedHash)
	}
	if loaded.ClaimNonce != "nonce-roundtrip" {
		t.Errorf("claim nonce must survive persistence, got %q", loaded.ClaimNonce)
	}
	if !loaded.Wager.Equal(session.Wager) {
		t.Errorf("expected wager %s, got %s", session.Wager, loaded.Wager)
	}

	active, err := store.GetUserActiveSessions(ctx, address)
	if err != nil {
		t.Fatalf("GetUserActiveSessions failed: %v", err)
	}
	found := false
	for _, id := range active {
		if id == session.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected the new session in the active set")
	}

	steps := []*models.StepEntry{
		{Position: 3, Kind: "safe", Multiplier: 1, CreatedAt: time.Now().Unix()},
		{Position: 7, Kind: "multiplier", Multiplier: 2, CreatedAt: time.Now().Unix()},
	}
	if err := store.AppendSteps(ctx, session.ID, steps); err != nil {
		t.Fatalf("AppendSteps failed: %v", err)
	}
	got, err := store.GetSteps(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSteps failed: %v", err)
	}
	if len(got) != 2 || got[1].Position != 7 {
		t.Errorf("unexpected step log: %+v", got)
	}

	session.Status = models.StatusCashedOut
	session.Payout = decimal.NewFromInt(200)
	if err := store.UpdateGameSession(ctx, session); err != nil {
		t.Fatalf("UpdateGameSession failed: %v", err)
	}
	if err := store.CompleteGameSession(ctx, address, session.ID); err != nil {
		t.Fatalf("CompleteGameSession failed: %v", err)
	}

	history, err := store.GetSessionHistory(ctx, address, 10)
	if err != nil {
		t.Fatalf("GetSessionHistory failed: %v", err)
	}
	found = false
	for _, s := range history {
		if s.ID == session.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected the completed session in history")
	}

	window := "daily:redis-test"
	if err := store.AddLeaderboardScore(ctx, "won", window, address, 200); err != nil {
		t.Fatalf("AddLeaderboardScore failed: %v", err)
	}
	if err := store.SetLeaderboardBest(ctx, "multiplier", window, address, 4); err != nil {
		t.Fatalf("SetLeaderboardBest failed: %v", err)
	}
	if err := store.SetLeaderboardBest(ctx, "multiplier", window, address, 2); err != nil {
		t.Fatalf("SetLeaderboardBest failed: %v", err)
	}
	entries, err := store.GetLeaderboard(ctx, "multiplier", window, 10)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}
	found = false
	for _, e := range entries {
		if e.Address == address {
			found = true
			if e.Score != 4 {
				t.Errorf("expected best multiplier 4 to stick, got %v", e.Score)
			}
		}
	}
	if !found {
		t.Error("expected an entry on the multiplier leaderboard")
	}

	if err := store.StoreLoginNonce(ctx, address, "login-nonce", time.Minute); err != nil {
		t.Fatalf("StoreLoginNonce failed: %v", err)
	}
	nonce, err := store.GetLoginNonce(ctx, address)
	if err != nil {
		t.Fatalf("GetLoginNonce failed: %v", err)
	}
	if nonce != "login-nonce" {
		t.Errorf("expected login-nonce, got %s", nonce)
	}
	if err := store.DeleteLoginNonce(ctx, address); err != nil {
		t.Fatalf("DeleteLoginNonce failed: %v", err)
	}
	if _, err := store.GetLoginNonce(ctx, address); err == nil {
		t.Error("expected the login nonce to be deleted")
	}
}
