package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"oddclimb-backend/internal/services"
)

// respondError maps service errors onto HTTP statuses with a stable "error"
// field per failure kind so clients can branch on it.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	switch {
	case errors.Is(err, services.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrUnauthorized):
		status, kind = http.StatusForbidden, "unauthorized"
	case errors.Is(err, services.ErrInvalidState):
		status, kind = http.StatusConflict, "invalid_state"
	case errors.Is(err, services.ErrNonceMismatch):
		status, kind = http.StatusConflict, "nonce_mismatch"
	case errors.Is(err, services.ErrAmountMismatch):
		status, kind = http.StatusBadRequest, "amount_mismatch"
	case errors.Is(err, services.ErrSignatureInvalid):
		status, kind = http.StatusUnauthorized, "signature_invalid"
	case errors.Is(err, services.ErrNoPayout):
		status, kind = http.StatusBadRequest, "no_payout"
	case errors.Is(err, services.ErrExternalTransfer):
		// the claim is already recorded; the transfer is reconciled out of band
		status, kind = http.StatusBadGateway, "external_transfer_failed"
	}

	c.JSON(status, gin.H{
		"error":   kind,
		"details": err.Error(),
	})
}
