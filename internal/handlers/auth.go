package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"oddclimb-backend/internal/models"
	"oddclimb-backend/internal/services"
)

// loginMessageTemplate is what the wallet signs to authenticate. Must match
// the client verbatim.
const loginMessageTemplate = "OddClimb Login\nAddress: %s\nNonce: %s"

const loginNonceTTL = 5 * time.Minute

type AuthHandler struct {
	store      services.Store
	jwtService *services.JWTService
}

func NewAuthHandler(store services.Store, jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{
		store:      store,
		jwtService: jwtService,
	}
}

// Challenge issues a short-lived login nonce for an address and returns the
// exact message the wallet must sign.
func (h *AuthHandler) Challenge(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter required"})
		return
	}
	address = services.NormalizeAddress(address)

	nonce, err := models.GenerateNonce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	if err := h.store.StoreLoginNonce(c.Request.Context(), address, nonce, loginNonceTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"address": address,
		"nonce":   nonce,
		"message": fmt.Sprintf(loginMessageTemplate, address, nonce),
	})
}

// Verify checks the wallet signature over the challenge message and issues a
// bearer token.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req models.AuthVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	address := services.NormalizeAddress(req.Address)
	ctx := c.Request.Context()

	nonce, err := h.store.GetLoginNonce(ctx, address)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No pending challenge for address"})
		return
	}

	message := fmt.Sprintf(loginMessageTemplate, address, nonce)
	signer, err := services.RecoverSigner(message, req.Signature)
	if err != nil || services.NormalizeAddress(signer.Hex()) != address {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature verification failed"})
		return
	}

	// single use
	h.store.DeleteLoginNonce(ctx, address)

	if _, err := h.store.GetOrCreateUser(ctx, address); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	token, err := h.jwtService.GenerateToken(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"address": address,
	})
}
