package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"oddclimb-backend/internal/engine"
	"oddclimb-backend/internal/models"
)

// GameService owns the session state machine: start, move (with trap, skip,
// shield and double resolution), cash-out, and the exactly-once terminal side
// effects (player stats + leaderboards).
//
// Each session is a single-writer resource: every mutating operation runs
// under the per-session lock shared with the claim service.
type GameService struct {
	store    Store
	locks    *SessionLocks
	boardCfg engine.Config

	allowBreakEvenCashout bool

	broadcaster Broadcaster
}

func NewGameService(store Store, locks *SessionLocks, boardCfg engine.Config, allowBreakEvenCashout bool) *GameService {
	return &GameService{
		store:                 store,
		locks:                 locks,
		boardCfg:              boardCfg,
		allowBreakEvenCashout: allowBreakEvenCashout,
	}
}

// SetBroadcaster attaches the live-update sink. A nil broadcaster is fine;
// events are then dropped.
func (g *GameService) SetBroadcaster(b Broadcaster) {
	g.broadcaster = b
}

// StartSession creates a new active session: fresh oddseed, its hash
// committed immediately, position 0, multiplier 1. The seed itself stays
// hidden until the session is terminal.
func (g *GameService) StartSession(ctx context.Context, address string, req *models.StartGameRequest) (*models.GameSession, []engine.Cell, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	seed, err := models.GenerateSeed()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().Unix()
	session := &models.GameSession{
		ID:            models.GenerateSessionID(),
		OwnerID:       NormalizeAddress(address),
		Seed:          seed,
		SeedHash:      models.HashSeed(seed),
		Wager:         req.Wager,
		Position:      0,
		Multiplier:    1,
		BonusCurrency: decimal.Zero,
		Powerups:      make(map[engine.PowerupKind]int),
		Status:        models.StatusActive,
		Payout:        decimal.Zero,
		ClaimStatus:   models.ClaimPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := g.store.SaveGameSession(ctx, session); err != nil {
		return nil, nil, err
	}

	user, err := g.store.GetOrCreateUser(ctx, session.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	user.GamesPlayed++
	user.TotalWagered = user.TotalWagered.Add(req.Wager)
	if err := g.store.SaveUser(ctx, user); err != nil {
		return nil, nil, err
	}

	board := engine.Generate(seed, g.boardCfg)

	log.Info().
		Str("session_id", session.ID).
		Str("owner", session.OwnerID).
		Str("wager", req.Wager.String()).
		Str("seed_hash", session.SeedHash).
		Msg("session started")

	return session, board, nil
}

// Board regenerates the session's board from its seed. Purity of the
// generator makes this equivalent to having stored it.
func (g *GameService) Board(session *models.GameSession) []engine.Cell {
	return g.BoardFromSeed(session.Seed)
}

// BoardFromSeed derives a board for any seed, used by the public fairness
// verifier once a seed has been revealed.
func (g *GameService) BoardFromSeed(seed string) []engine.Cell {
	return engine.Generate(seed, g.boardCfg)
}

// Move advances the session by req.Steps and resolves the landing cell,
// cascading at most once when a skip powerup carries the player past a reset
// trap.
func (g *GameService) Move(ctx context.Context, address string, req *models.MoveRequest) (*models.MoveResult, error) {
	if req.Steps < 1 {
		return nil, fmt.Errorf("%w: steps must be a positive integer, got %d", ErrInvalidInput, req.Steps)
	}
	presented, err := parsePowerups(req.Powerups)
	if err != nil {
		return nil, err
	}

	unlock := g.locks.Lock(req.SessionID)
	defer unlock()

	session, err := g.store.GetGameSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != NormalizeAddress(address) {
		return nil, fmt.Errorf("%w: session %s is not owned by caller", ErrUnauthorized, session.ID)
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}

	board := engine.Generate(session.Seed, g.boardCfg)
	outcome := resolveMove(board, session, req.Steps, presented, g.boardCfg.MaxMultiplier)

	session.Position = outcome.position
	session.Multiplier = outcome.multiplier
	session.BonusCurrency = session.BonusCurrency.Add(outcome.bonusDelta)
	if session.Powerups == nil {
		session.Powerups = make(map[engine.PowerupKind]int)
	}
	for _, p := range outcome.collected {
		session.Powerups[p]++
	}
	for _, p := range outcome.consumed {
		session.Powerups[p]--
		if session.Powerups[p] <= 0 {
			delete(session.Powerups, p)
		}
	}

	if outcome.status != models.StatusActive {
		session.Status = outcome.status
		session.EndedAt = time.Now().Unix()
		switch outcome.status {
		case models.StatusWon:
			session.Payout = session.Wager.Mul(decimal.NewFromFloat(session.Multiplier)).Add(session.BonusCurrency)
		case models.StatusLost:
			session.Payout = decimal.Zero
		}
	}

	if err := g.store.UpdateGameSession(ctx, session); err != nil {
		return nil, err
	}
	if err := g.store.AppendSteps(ctx, session.ID, outcome.steps); err != nil {
		return nil, err
	}

	if session.Terminal() {
		g.finalizeSession(ctx, session)
	}

	result := &models.MoveResult{
		Session:         session,
		LandedCell:      outcome.landed,
		Multiplier:      session.Multiplier,
		PotentialPayout: session.PotentialPayout(),
		Steps:           outcome.steps,
	}

	if g.broadcaster != nil {
		g.broadcaster.BroadcastMoveResult(session.OwnerID, result)
		if session.Terminal() {
			g.broadcaster.BroadcastSessionEnded(session.OwnerID, session)
		}
	}

	return result, nil
}

// CashOut converts an active session into cashed_out with
// payout = wager x accumulated multiplier + bonus currency.
func (g *GameService) CashOut(ctx context.Context, address, sessionID string) (*models.GameSession, error) {
	unlock := g.locks.Lock(sessionID)
	defer unlock()

	session, err := g.store.GetGameSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != NormalizeAddress(address) {
		return nil, fmt.Errorf("%w: session %s is not owned by caller", ErrUnauthorized, session.ID)
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if !g.allowBreakEvenCashout && session.Multiplier <= 1 && session.BonusCurrency.IsZero() {
		return nil, fmt.Errorf("%w: cash-out below a profit is disabled", ErrInvalidState)
	}

	session.Status = models.StatusCashedOut
	session.Payout = session.PotentialPayout()
	session.EndedAt = time.Now().Unix()

	if err := g.store.UpdateGameSession(ctx, session); err != nil {
		return nil, err
	}

	g.finalizeSession(ctx, session)

	if g.broadcaster != nil {
		g.broadcaster.BroadcastSessionEnded(session.OwnerID, session)
	}

	return session, nil
}

// GetSession returns a session owned by the caller.
func (g *GameService) GetSession(ctx context.Context, address, sessionID string) (*models.GameSession, error) {
	session, err := g.store.GetGameSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != NormalizeAddress(address) {
		return nil, fmt.Errorf("%w: session %s is not owned by caller", ErrUnauthorized, session.ID)
	}
	return session, nil
}

func (g *GameService) GetSteps(ctx context.Context, address, sessionID string) ([]*models.StepEntry, error) {
	if _, err := g.GetSession(ctx, address, sessionID); err != nil {
		return nil, err
	}
	return g.store.GetSteps(ctx, sessionID)
}

func (g *GameService) GetActiveSessions(ctx context.Context, address string) ([]*models.GameSession, error) {
	ids, err := g.store.GetUserActiveSessions(ctx, NormalizeAddress(address))
	if err != nil {
		return nil, err
	}

	var sessions []*models.GameSession
	for _, id := range ids {
		session, err := g.store.GetGameSession(ctx, id)
		if err == nil && !session.Terminal() {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (g *GameService) GetHistory(ctx context.Context, address string, limit int64) ([]*models.GameSession, error) {
	return g.store.GetSessionHistory(ctx, NormalizeAddress(address), limit)
}

// finalizeSession applies the terminal side effects. It runs exactly once per
// session because the caller still holds the session lock and only the single
// active->terminal transition reaches it.
func (g *GameService) finalizeSession(ctx context.Context, session *models.GameSession) {
	user, err := g.store.GetOrCreateUser(ctx, session.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to load user for stats update")
		return
	}

	switch session.Status {
	case models.StatusWon:
		user.Wins++
	case models.StatusLost:
		user.Losses++
	case models.StatusCashedOut:
		user.Cashouts++
	}
	user.TotalWon = user.TotalWon.Add(session.Payout)
	if session.Multiplier > user.BestMultiplier {
		user.BestMultiplier = session.Multiplier
	}
	if err := g.store.SaveUser(ctx, user); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to save user stats")
	}

	if err := g.store.CompleteGameSession(ctx, session.OwnerID, session.ID); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to move session to history")
	}

	ended := time.Unix(session.EndedAt, 0).UTC()
	for _, window := range []string{DailyWindow(ended), WeeklyWindow(ended)} {
		if session.Payout.IsPositive() {
			payout, _ := session.Payout.Float64()
			if err := g.store.AddLeaderboardScore(ctx, "won", window, session.OwnerID, payout); err != nil {
				log.Error().Err(err).Str("window", window).Msg("failed to update payout leaderboard")
			}
		}
		if err := g.store.SetLeaderboardBest(ctx, "multiplier", window, session.OwnerID, session.Multiplier); err != nil {
			log.Error().Err(err).Str("window", window).Msg("failed to update multiplier leaderboard")
		}
	}

	log.Info().
		Str("session_id", session.ID).
		Str("owner", session.OwnerID).
		Str("status", string(session.Status)).
		Str("payout", session.Payout.String()).
		Float64("multiplier", session.Multiplier).
		Msg("session finished")
}

// DailyWindow and WeeklyWindow key the time-bucketed leaderboards.
func DailyWindow(t time.Time) string {
	return "daily:" + t.Format("2006-01-02")
}

func WeeklyWindow(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("weekly:%d-W%02d", year, week)
}

func parsePowerups(names []string) (map[engine.PowerupKind]bool, error) {
	presented := make(map[engine.PowerupKind]bool, len(names))
	for _, name := range names {
		switch kind := engine.PowerupKind(name); kind {
		case engine.PowerupShield, engine.PowerupDouble, engine.PowerupSkip:
			presented[kind] = true
		default:
			return nil, fmt.Errorf("%w: unknown powerup %q", ErrInvalidInput, name)
		}
	}
	return presented, nil
}

// moveOutcome is the pure result of resolving one move against the board.
type moveOutcome struct {
	position   int
	multiplier float64
	bonusDelta decimal.Decimal
	status     models.SessionStatus
	landed     engine.Cell
	collected  []engine.PowerupKind
	consumed   []engine.PowerupKind
	steps      []*models.StepEntry
}

// resolveMove applies the landing rules of one move. Powerups presented by
// the caller are consumed only when they actually fire: a shield offered on a
// safe cell stays in inventory. A skip through a reset trap re-resolves
// against the next position exactly once; whatever sits there is handled as a
// normal cell (a hazard there is a normal hazard, a second trap resets as
// usual).
func resolveMove(board []engine.Cell, session *models.GameSession, steps int, presented map[engine.PowerupKind]bool, maxMultiplier float64) moveOutcome {
	now := time.Now().Unix()

	out := moveOutcome{
		position:   session.Position,
		multiplier: session.Multiplier,
		bonusDelta: decimal.Zero,
		status:     models.StatusActive,
	}

	consumedSet := make(map[engine.PowerupKind]bool)
	available := func(kind engine.PowerupKind) bool {
		return presented[kind] && !consumedSet[kind] && session.Powerups[kind] > 0
	}
	consume := func(kind engine.PowerupKind) {
		consumedSet[kind] = true
		out.consumed = append(out.consumed, kind)
	}

	apply := func(cell engine.Cell, allowSkip bool) (cascadeTo int, cascade bool) {
		out.landed = cell

		switch cell.Kind {
		case engine.CellSafe:
			out.position = cell.Position

		case engine.CellFinish:
			out.position = cell.Position
			out.multiplier = cell.Multiplier
			out.status = models.StatusWon

		case engine.CellMultiplier:
			gain := cell.Multiplier
			if available(engine.PowerupDouble) {
				consume(engine.PowerupDouble)
				gain *= 2
			}
			m := out.multiplier * gain
			if m > maxMultiplier {
				m = maxMultiplier
			}
			out.multiplier = m
			out.position = cell.Position

		case engine.CellPowerup:
			out.position = cell.Position
			out.collected = append(out.collected, cell.Powerup)

		case engine.CellBonusChest:
			out.position = cell.Position
			out.bonusDelta = out.bonusDelta.Add(decimal.NewFromFloat(cell.Bonus))

		case engine.CellHazard:
			if available(engine.PowerupShield) {
				consume(engine.PowerupShield)
				out.position = cell.Position
			} else {
				out.position = cell.Position
				out.multiplier = 0
				out.status = models.StatusLost
			}

		case engine.CellResetTrap:
			if allowSkip && available(engine.PowerupSkip) {
				consume(engine.PowerupSkip)
				next := cell.Position + 1
				if next > engine.LastPosition {
					next = engine.LastPosition
				}
				out.steps = append(out.steps, &models.StepEntry{
					Position:   cell.Position,
					Kind:       cell.Kind,
					Multiplier: out.multiplier,
					CreatedAt:  now,
				})
				return next, true
			}
			if available(engine.PowerupShield) {
				consume(engine.PowerupShield)
				// trap absorbed in place
			} else {
				out.position = 0
			}
		}

		out.steps = append(out.steps, &models.StepEntry{
			Position:   cell.Position,
			Kind:       cell.Kind,
			Multiplier: out.multiplier,
			CreatedAt:  now,
		})
		return 0, false
	}

	landing := session.Position + steps
	if landing > engine.LastPosition {
		landing = engine.LastPosition
	}

	if next, cascaded := apply(board[landing], true); cascaded {
		apply(board[next], false)
	}

	return out
}
