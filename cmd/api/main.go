package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"oddclimb-backend/internal/config"
	"oddclimb-backend/internal/handlers"
	"oddclimb-backend/internal/middleware"
	"oddclimb-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	store, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer store.Close()

	jwtService := services.NewJWTService(cfg)
	locks := services.NewSessionLocks()

	gameService := services.NewGameService(store, locks, cfg.BoardConfig(), cfg.AllowBreakEvenCashout)
	executor := services.NewLoggedPayoutExecutor(store)
	claimService := services.NewClaimService(store, locks, executor, cfg.ClaimNonceTTL)

	wsHandler := handlers.NewWebSocketHandler()
	gameService.SetBroadcaster(wsHandler)
	claimService.SetBroadcaster(wsHandler)

	authHandler := handlers.NewAuthHandler(store, jwtService)
	userHandler := handlers.NewUserHandler(store, gameService)
	gameHandler := handlers.NewGameHandler(gameService, store)
	claimHandler := handlers.NewClaimHandler(claimService, store)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/auth/challenge", authHandler.Challenge)
	router.POST("/auth/verify", authHandler.Verify)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/transactions", userHandler.GetTransactions)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.POST("/start", gameHandler.StartGame)
			games.POST("/move", gameHandler.Move)
			games.POST("/cashout", gameHandler.Cashout)
			games.GET("/active", gameHandler.GetActiveGames)
			games.GET("/history", gameHandler.GetGameHistory)
			games.GET("/leaderboard", gameHandler.GetLeaderboard)

			games.POST("/verify", gameHandler.VerifyBoard)

			games.GET("/:id", gameHandler.GetSession)
			games.GET("/:id/steps", gameHandler.GetSteps)
		}

		claims := protected.Group("/claims")
		{
			claims.POST("/nonce", claimHandler.IssueNonce)
			claims.POST("/verify", claimHandler.Verify)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Str("env", cfg.Env).Msg("server starting")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
