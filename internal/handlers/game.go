package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"oddclimb-backend/internal/models"
	"oddclimb-backend/internal/services"
)

type GameHandler struct {
	gameService *services.GameService
	store       services.Store
}

func NewGameHandler(gameService *services.GameService, store services.Store) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		store:       store,
	}
}

// sessionView is the client-facing session shape. The seed stays hidden while
// the session is active; only the hash commitment is public. Once terminal,
// the seed is revealed so the board can be independently re-derived.
func sessionView(s *models.GameSession) gin.H {
	view := gin.H{
		"id":             s.ID,
		"owner":          s.OwnerID,
		"seed_hash":      s.SeedHash,
		"wager":          s.Wager,
		"position":       s.Position,
		"multiplier":     s.Multiplier,
		"bonus_currency": s.BonusCurrency,
		"powerups":       s.Powerups,
		"status":         s.Status,
		"claim_status":   s.ClaimStatus,
		"created_at":     s.CreatedAt,
		"updated_at":     s.UpdatedAt,
	}
	if s.Terminal() {
		view["seed"] = s.Seed
		view["payout"] = s.Payout
		view["ended_at"] = s.EndedAt
	} else {
		view["potential_payout"] = s.PotentialPayout()
	}
	return view
}

func (h *GameHandler) StartGame(c *gin.Context) {
	address := c.GetString("address")

	var req models.StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"details": err.Error(),
		})
		return
	}

	// Rate limit: 30 new games per minute
	allowed, err := h.store.CheckRateLimit(c.Request.Context(), address, "start", 30, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many games. Please wait."})
		return
	}

	session, board, err := h.gameService.StartSession(c.Request.Context(), address, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionView(session),
		"board":   board,
	})
}

func (h *GameHandler) Move(c *gin.Context) {
	address := c.GetString("address")

	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"details": err.Error(),
		})
		return
	}

	// Rate limit: 120 moves per minute
	allowed, err := h.store.CheckRateLimit(c.Request.Context(), address, "move", 120, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many moves. Please wait."})
		return
	}

	result, err := h.gameService.Move(c.Request.Context(), address, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result": gin.H{
			"session":          sessionView(result.Session),
			"landed_cell":      result.LandedCell,
			"multiplier":       result.Multiplier,
			"potential_payout": result.PotentialPayout,
			"steps":            result.Steps,
		},
	})
}

func (h *GameHandler) Cashout(c *gin.Context) {
	address := c.GetString("address")

	var req models.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"details": err.Error(),
		})
		return
	}

	// Rate limit: 60 cashouts per minute
	allowed, err := h.store.CheckRateLimit(c.Request.Context(), address, "cashout", 60, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many cashouts. Please wait."})
		return
	}

	session, err := h.gameService.CashOut(c.Request.Context(), address, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionView(session),
	})
}

func (h *GameHandler) GetSession(c *gin.Context) {
	address := c.GetString("address")
	sessionID := c.Param("id")

	session, err := h.gameService.GetSession(c.Request.Context(), address, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionView(session),
	})
}

func (h *GameHandler) GetSteps(c *gin.Context) {
	address := c.GetString("address")
	sessionID := c.Param("id")

	steps, err := h.gameService.GetSteps(c.Request.Context(), address, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"steps":   steps,
		"count":   len(steps),
	})
}

func (h *GameHandler) GetActiveGames(c *gin.Context) {
	address := c.GetString("address")

	sessions, err := h.gameService.GetActiveSessions(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView(s))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": views,
		"count":    len(views),
	})
}

func (h *GameHandler) GetGameHistory(c *gin.Context) {
	address := c.GetString("address")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	sessions, err := h.gameService.GetHistory(c.Request.Context(), address, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView(s))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": views,
		"count":    len(views),
	})
}

func (h *GameHandler) GetLeaderboard(c *gin.Context) {
	metric := c.DefaultQuery("metric", "won")
	if metric != "won" && metric != "multiplier" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric must be won or multiplier"})
		return
	}

	now := time.Now().UTC()
	var window string
	switch c.DefaultQuery("period", "daily") {
	case "daily":
		window = services.DailyWindow(now)
	case "weekly":
		window = services.WeeklyWindow(now)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be daily or weekly"})
		return
	}

	entries, err := h.store.GetLeaderboard(c.Request.Context(), metric, window, 25)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metric":  metric,
		"window":  window,
		"entries": entries,
	})
}

// VerifyBoard lets anyone re-derive a board from a revealed seed and check it
// against the published commitment.
func (h *GameHandler) VerifyBoard(c *gin.Context) {
	var req struct {
		Seed     string `json:"seed" binding:"required"`
		SeedHash string `json:"seed_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"details": err.Error(),
		})
		return
	}

	if models.HashSeed(req.Seed) != req.SeedHash {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"valid":   false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"valid":   true,
		"board":   h.gameService.BoardFromSeed(req.Seed),
	})
}
