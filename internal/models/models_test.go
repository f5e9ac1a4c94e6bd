package models_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/models"
)

func TestSeedCommitment(t *testing.T) {
	seed, err := models.GenerateSeed()
	if err != nil {
		t.Fatalf("failed to generate seed: %v", err)
	}
	if len(seed) != 64 {
		t.Errorf("seed should be 64 hex chars, got %d", len(seed))
	}

	hash := models.HashSeed(seed)
	if hash == "" || hash == seed {
		t.Error("seed hash should be a distinct digest")
	}

	// Commitment must be stable so it can be re-verified after reveal.
	if models.HashSeed(seed) != hash {
		t.Error("seed hash is not deterministic")
	}
}

func TestStartGameRequestValidation(t *testing.T) {
	valid := &models.StartGameRequest{Wager: decimal.NewFromInt(100)}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid wager rejected: %v", err)
	}

	for _, wager := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-5),
	} {
		req := &models.StartGameRequest{Wager: wager}
		if err := req.Validate(); err == nil {
			t.Errorf("wager %s should fail validation", wager)
		}
	}
}

func TestPotentialPayout(t *testing.T) {
	session := &models.GameSession{
		ID:            models.GenerateSessionID(),
		Wager:         decimal.NewFromInt(100),
		Multiplier:    2,
		BonusCurrency: decimal.NewFromInt(10),
		Status:        models.StatusActive,
	}

	if session.ID == "" {
		t.Error("session should have an ID")
	}

	want := decimal.NewFromInt(210)
	if !session.PotentialPayout().Equal(want) {
		t.Errorf("potential payout = %s, want %s", session.PotentialPayout(), want)
	}
}
