package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/models"
)

// claimMessageTemplate is the canonical claim message. The client signs this
// exact byte sequence with personal_sign; any drift between client and server
// breaks verification, so treat the template as frozen.
const claimMessageTemplate = "OddClimb Claim\nAmount: %s\nSession: %s\nRecipient: %s\nNonce: %s"

// ClaimMessage builds the canonical message a wallet must sign to claim a
// payout.
func ClaimMessage(amount decimal.Decimal, sessionID, recipient, nonce string) string {
	return fmt.Sprintf(claimMessageTemplate, amount.String(), sessionID, recipient, nonce)
}

// ClaimService converts a terminal, unclaimed session's payout into an
// authorized external transfer exactly once. It shares the per-session lock
// table with the game service so nonce issuance, claim verification and moves
// are strictly ordered against each other.
type ClaimService struct {
	store    Store
	locks    *SessionLocks
	executor PayoutExecutor
	nonceTTL time.Duration

	broadcaster Broadcaster
}

func NewClaimService(store Store, locks *SessionLocks, executor PayoutExecutor, nonceTTL time.Duration) *ClaimService {
	return &ClaimService{
		store:    store,
		locks:    locks,
		executor: executor,
		nonceTTL: nonceTTL,
	}
}

func (c *ClaimService) SetBroadcaster(b Broadcaster) {
	c.broadcaster = b
}

// IssueNonce mints a fresh single-use claim nonce bound to the session's
// server-computed payout. Any previously issued nonce is invalidated.
func (c *ClaimService) IssueNonce(ctx context.Context, sessionID, caller string) (*models.ClaimGrant, error) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	session, err := c.store.GetGameSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.checkClaimable(session, caller); err != nil {
		return nil, err
	}

	nonce, err := models.GenerateNonce()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session.ClaimNonce = nonce
	session.NonceExpiresAt = now.Add(c.nonceTTL).Unix()
	if err := c.store.UpdateGameSession(ctx, session); err != nil {
		return nil, err
	}

	return &models.ClaimGrant{
		SessionID: session.ID,
		Nonce:     nonce,
		Amount:    session.Payout,
		IssuedAt:  now.Unix(),
		ExpiresAt: session.NonceExpiresAt,
	}, nil
}

// VerifyAndClaim validates the nonce, the claimed amount and the wallet
// signature over the canonical message, then marks the session claimed
// BEFORE invoking the payout executor. A duplicate request or a crash after
// that point can therefore never double-pay; an executor failure surfaces as
// ErrExternalTransfer without re-opening the claim.
func (c *ClaimService) VerifyAndClaim(ctx context.Context, sessionID, caller string, amount decimal.Decimal, nonce, signature string) (string, error) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	session, err := c.store.GetGameSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if err := c.checkClaimable(session, caller); err != nil {
		return "", err
	}

	if session.ClaimNonce == "" || nonce != session.ClaimNonce {
		return "", fmt.Errorf("%w: nonce is stale or unknown", ErrNonceMismatch)
	}
	if time.Now().Unix() > session.NonceExpiresAt {
		return "", fmt.Errorf("%w: nonce expired", ErrNonceMismatch)
	}
	if !amount.Equal(session.Payout) {
		return "", fmt.Errorf("%w: claimed %s, payout is %s", ErrAmountMismatch, amount, session.Payout)
	}

	message := ClaimMessage(session.Payout, session.ID, session.OwnerID, nonce)
	signer, err := RecoverSigner(message, signature)
	if err != nil {
		return "", err
	}
	if NormalizeAddress(signer.Hex()) != session.OwnerID {
		return "", fmt.Errorf("%w: message signed by %s, want %s", ErrSignatureInvalid, signer.Hex(), session.OwnerID)
	}

	session.ClaimStatus = models.ClaimClaimed
	session.ClaimNonce = ""
	session.NonceExpiresAt = 0
	if err := c.store.UpdateGameSession(ctx, session); err != nil {
		return "", err
	}

	ref, err := c.executor.Transfer(ctx, session.OwnerID, session.Payout, session.ID)
	if err != nil {
		log.Error().Err(err).
			Str("session_id", session.ID).
			Str("recipient", session.OwnerID).
			Str("amount", session.Payout.String()).
			Msg("payout transfer failed after claim was recorded")
		return "", fmt.Errorf("%w: %v", ErrExternalTransfer, err)
	}

	if c.broadcaster != nil {
		c.broadcaster.BroadcastClaimSettled(session.OwnerID, session.ID, ref)
	}

	return ref, nil
}

func (c *ClaimService) checkClaimable(session *models.GameSession, caller string) error {
	if session.OwnerID != NormalizeAddress(caller) {
		return fmt.Errorf("%w: session %s is not owned by caller", ErrUnauthorized, session.ID)
	}
	if session.Status != models.StatusWon && session.Status != models.StatusCashedOut {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if session.ClaimStatus == models.ClaimClaimed {
		return fmt.Errorf("%w: payout already claimed", ErrInvalidState)
	}
	if !session.Payout.IsPositive() {
		return fmt.Errorf("%w: session payout is %s", ErrNoPayout, session.Payout)
	}
	return nil
}
