package services_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/models"
	"oddclimb-backend/internal/services"
)

type claimFixture struct {
	store   *services.MemoryStore
	service *services.ClaimService
	key     *ecdsa.PrivateKey
	owner   string
	session *models.GameSession
}

func newClaimFixture(t *testing.T, status models.SessionStatus, payout int64) *claimFixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	owner := services.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())

	store := services.NewMemoryStore()
	locks := services.NewSessionLocks()
	service := services.NewClaimService(store, locks, services.NewLoggedPayoutExecutor(store), 5*time.Minute)

	now := time.Now().Unix()
	session := &models.GameSession{
		ID:          models.GenerateSessionID(),
		OwnerID:     owner,
		Wager:       decimal.NewFromInt(100),
		Multiplier:  2,
		Status:      status,
		Payout:      decimal.NewFromInt(payout),
		ClaimStatus: models.ClaimPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		EndedAt:     now,
	}
	if err := store.SaveGameSession(context.Background(), session); err != nil {
		t.Fatalf("SaveGameSession failed: %v", err)
	}

	return &claimFixture{
		store:   store,
		service: service,
		key:     key,
		owner:   owner,
		session: session,
	}
}

func (f *claimFixture) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(services.SignatureHash(message), f.key)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	sig[64] += 27
	return hex.EncodeToString(sig)
}

func (f *claimFixture) signGrant(t *testing.T, grant *models.ClaimGrant) string {
	t.Helper()
	return f.sign(t, services.ClaimMessage(grant.Amount, grant.SessionID, f.owner, grant.Nonce))
}

func TestClaimHappyPath(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	grant, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}
	if !grant.Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected grant amount 200, got %s", grant.Amount)
	}
	if grant.Nonce == "" {
		t.Fatal("expected a nonce to be issued")
	}
	if grant.ExpiresAt <= grant.IssuedAt {
		t.Errorf("expected expiry after issuance, got %d <= %d", grant.ExpiresAt, grant.IssuedAt)
	}

	ref, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, f.signGrant(t, grant))
	if err != nil {
		t.Fatalf("VerifyAndClaim failed: %v", err)
	}
	if ref == "" {
		t.Fatal("expected a transfer reference")
	}

	session, err := f.store.GetGameSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("GetGameSession failed: %v", err)
	}
	if session.ClaimStatus != models.ClaimClaimed {
		t.Errorf("expected claimed status, got %s", session.ClaimStatus)
	}
	if session.ClaimNonce != "" {
		t.Error("expected the nonce to be cleared after settlement")
	}

	txs, err := f.store.GetUserTransactions(ctx, f.owner, 10)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected one payout transaction, got %d", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected transaction amount 200, got %s", txs[0].Amount)
	}
}

func TestClaimRejectsSecondAttempt(t *testing.T) {
	f := newClaimFixture(t, models.StatusCashedOut, 150)
	ctx := context.Background()

	grant, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}
	signature := f.signGrant(t, grant)

	if _, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, signature); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, signature); !errors.Is(err, services.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on replay, got %v", err)
	}
	if _, err := f.service.IssueNonce(ctx, f.session.ID, f.owner); !errors.Is(err, services.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState issuing a nonce after settlement, got %v", err)
	}
}

func TestFreshNonceInvalidatesPrevious(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	first, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}
	second, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("second IssueNonce failed: %v", err)
	}
	if first.Nonce == second.Nonce {
		t.Fatal("expected a fresh nonce on reissue")
	}

	if _, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, first.Amount, first.Nonce, f.signGrant(t, first)); !errors.Is(err, services.ErrNonceMismatch) {
		t.Errorf("expected ErrNonceMismatch for the superseded nonce, got %v", err)
	}

	if _, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, second.Amount, second.Nonce, f.signGrant(t, second)); err != nil {
		t.Errorf("expected the latest nonce to settle, got %v", err)
	}
}

func TestClaimRejectsExpiredNonce(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	expiring := services.NewClaimService(f.store, services.NewSessionLocks(), services.NewLoggedPayoutExecutor(f.store), -time.Second)
	grant, err := expiring.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}

	if _, err := expiring.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, f.signGrant(t, grant)); !errors.Is(err, services.ErrNonceMismatch) {
		t.Errorf("expected ErrNonceMismatch for an expired nonce, got %v", err)
	}
}

func TestClaimRejectsAmountMismatch(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	grant, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}

	wrong := decimal.NewFromInt(999)
	signature := f.sign(t, services.ClaimMessage(wrong, grant.SessionID, f.owner, grant.Nonce))

	if _, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, wrong, grant.Nonce, signature); !errors.Is(err, services.ErrAmountMismatch) {
		t.Errorf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestClaimRejectsForeignSignature(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	grant, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}

	intruder, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	message := services.ClaimMessage(grant.Amount, grant.SessionID, f.owner, grant.Nonce)
	sig, err := crypto.Sign(services.SignatureHash(message), intruder)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	sig[64] += 27

	if _, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, hex.EncodeToString(sig)); !errors.Is(err, services.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid for a foreign signer, got %v", err)
	}
}

func TestClaimRejectsMalformedSignature(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	grant, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}

	for _, signature := range []string{"", "0xzz", "deadbeef"} {
		if _, err := f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, signature); !errors.Is(err, services.ErrSignatureInvalid) {
			t.Errorf("signature %q: expected ErrSignatureInvalid, got %v", signature, err)
		}
	}
}

func TestIssueNonceGuards(t *testing.T) {
	t.Run("active session", func(t *testing.T) {
		f := newClaimFixture(t, models.StatusActive, 0)
		if _, err := f.service.IssueNonce(context.Background(), f.session.ID, f.owner); !errors.Is(err, services.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("lost session", func(t *testing.T) {
		f := newClaimFixture(t, models.StatusLost, 0)
		if _, err := f.service.IssueNonce(context.Background(), f.session.ID, f.owner); !errors.Is(err, services.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("zero payout", func(t *testing.T) {
		f := newClaimFixture(t, models.StatusCashedOut, 0)
		if _, err := f.service.IssueNonce(context.Background(), f.session.ID, f.owner); !errors.Is(err, services.ErrNoPayout) {
			t.Errorf("expected ErrNoPayout, got %v", err)
		}
	})

	t.Run("non-owner", func(t *testing.T) {
		f := newClaimFixture(t, models.StatusWon, 200)
		if _, err := f.service.IssueNonce(context.Background(), f.session.ID, otherAddress); !errors.Is(err, services.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newClaimFixture(t, models.StatusWon, 200)
		if _, err := f.service.IssueNonce(context.Background(), "missing", f.owner); !errors.Is(err, services.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestConcurrentClaimSettlesOnce(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	grant, err := f.service.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}
	signature := f.signGrant(t, grant)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, signature)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrNonceMismatch):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one claim to settle, got %d", succeeded)
	}

	txs, err := f.store.GetUserTransactions(ctx, f.owner, 10)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("expected exactly one payout transaction, got %d", len(txs))
	}
}

type failingExecutor struct{}

func (failingExecutor) Transfer(context.Context, string, decimal.Decimal, string) (string, error) {
	return "", fmt.Errorf("rpc unreachable")
}

func TestTransferFailureDoesNotReopenClaim(t *testing.T) {
	f := newClaimFixture(t, models.StatusWon, 200)
	ctx := context.Background()

	failing := services.NewClaimService(f.store, services.NewSessionLocks(), failingExecutor{}, 5*time.Minute)

	grant, err := failing.IssueNonce(ctx, f.session.ID, f.owner)
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}

	if _, err := failing.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, f.signGrant(t, grant)); !errors.Is(err, services.ErrExternalTransfer) {
		t.Fatalf("expected ErrExternalTransfer, got %v", err)
	}

	session, err := f.store.GetGameSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("GetGameSession failed: %v", err)
	}
	if session.ClaimStatus != models.ClaimClaimed {
		t.Errorf("claim must stay recorded after a transfer failure, got %s", session.ClaimStatus)
	}

	if _, err := failing.VerifyAndClaim(ctx, f.session.ID, f.owner, grant.Amount, grant.Nonce, f.signGrant(t, grant)); !errors.Is(err, services.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on retry, got %v", err)
	}
}
