package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"oddclimb-backend/internal/services"
)

type UserHandler struct {
	store       services.Store
	gameService *services.GameService
}

func NewUserHandler(store services.Store, gameService *services.GameService) *UserHandler {
	return &UserHandler{
		store:       store,
		gameService: gameService,
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	address := c.GetString("address")

	user, err := h.store.GetOrCreateUser(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	active, err := h.gameService.GetActiveSessions(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
		"stats": gin.H{
			"games_played":    user.GamesPlayed,
			"wins":            user.Wins,
			"losses":          user.Losses,
			"cashouts":        user.Cashouts,
			"total_wagered":   user.TotalWagered,
			"total_won":       user.TotalWon,
			"best_multiplier": user.BestMultiplier,
		},
		"active_sessions": len(active),
	})
}

func (h *UserHandler) GetTransactions(c *gin.Context) {
	address := c.GetString("address")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	transactions, err := h.store.GetUserTransactions(c.Request.Context(), services.NormalizeAddress(address), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": transactions,
		"count":        len(transactions),
	})
}
