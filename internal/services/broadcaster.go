package services

import "oddclimb-backend/internal/models"

type Broadcaster interface {
	BroadcastMoveResult(address string, result *models.MoveResult)
	BroadcastSessionEnded(address string, session *models.GameSession)
	BroadcastClaimSettled(address, sessionID, transferRef string)
}
