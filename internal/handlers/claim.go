package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"oddclimb-backend/internal/models"
	"oddclimb-backend/internal/services"
)

type ClaimHandler struct {
	claimService *services.ClaimService
	store        services.Store
}

func NewClaimHandler(claimService *services.ClaimService, store services.Store) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		store:        store,
	}
}

// IssueNonce mints the single-use claim token for a terminal session. The
// returned amount is the server-computed payout; the client signs the
// canonical message over exactly these values.
func (h *ClaimHandler) IssueNonce(c *gin.Context) {
	address := c.GetString("address")

	var req models.ClaimNonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"details": err.Error(),
		})
		return
	}

	// Rate limit: 30 nonce requests per minute
	allowed, err := h.store.CheckRateLimit(c.Request.Context(), address, "claim_nonce", 30, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many claim requests. Please wait."})
		return
	}

	grant, err := h.claimService.IssueNonce(c.Request.Context(), req.SessionID, address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"grant":   grant,
		"message": services.ClaimMessage(grant.Amount, grant.SessionID, services.NormalizeAddress(address), grant.Nonce),
	})
}

// Verify settles the claim: nonce, amount and signature are checked, the
// session is marked claimed exactly once, and the payout transfer is issued.
func (h *ClaimHandler) Verify(c *gin.Context) {
	address := c.GetString("address")

	var req models.ClaimVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"details": err.Error(),
		})
		return
	}

	// Rate limit: 30 claim attempts per minute
	allowed, err := h.store.CheckRateLimit(c.Request.Context(), address, "claim_verify", 30, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many claim attempts. Please wait."})
		return
	}

	ref, err := h.claimService.VerifyAndClaim(
		c.Request.Context(),
		req.SessionID,
		address,
		req.Amount,
		req.Nonce,
		req.Signature,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"session_id":   req.SessionID,
		"transfer_ref": ref,
	})
}
