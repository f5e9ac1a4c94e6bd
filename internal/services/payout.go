package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/models"
)

// PayoutExecutor performs the external value transfer for a settled claim.
// It is invoked only after claim status is durably recorded, so an executor
// failure surfaces to the caller but never re-opens the claim.
type PayoutExecutor interface {
	Transfer(ctx context.Context, recipient string, amount decimal.Decimal, sessionID string) (string, error)
}

// LoggedPayoutExecutor records the transfer instruction as a transaction and
// hands settlement to an out-of-band process. Used until the on-chain
// executor is wired in.
type LoggedPayoutExecutor struct {
	store Store
}

func NewLoggedPayoutExecutor(store Store) *LoggedPayoutExecutor {
	return &LoggedPayoutExecutor{store: store}
}

func (e *LoggedPayoutExecutor) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, sessionID string) (string, error) {
	ref := models.GenerateTransactionID()

	tx := &models.Transaction{
		ID:          ref,
		Address:     recipient,
		Type:        models.TransactionTypePayout,
		Amount:      amount,
		SessionID:   sessionID,
		TransferRef: ref,
		Description: "claim payout",
		CreatedAt:   time.Now().Unix(),
	}
	if err := e.store.SaveTransaction(ctx, tx); err != nil {
		return "", err
	}

	log.Info().
		Str("recipient", recipient).
		Str("session_id", sessionID).
		Str("amount", amount.String()).
		Str("transfer_ref", ref).
		Msg("payout transfer recorded")

	return ref, nil
}
