// Package game is the session orchestration core: lifecycle, turn
// enforcement, engine-backed move processing, and automatic bot chaining.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atarigo/goban-server/internal/archive"
	"github.com/atarigo/goban-server/internal/broadcast"
	"github.com/atarigo/goban-server/internal/domain"
	"github.com/atarigo/goban-server/internal/engine"
	"github.com/atarigo/goban-server/internal/store"
	"github.com/atarigo/goban-server/pkg/gamedto"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotYourTurn    = errors.New("not your turn")
	// ErrBotLoopExceeded guards against an engine that keeps generating
	// moves without ever ending the game.
	ErrBotLoopExceeded = errors.New("bot move chain exceeded limit")
)

const defaultBotChainLimit = 512

// Engine is the slice of the rules-engine adapter the service depends on.
type Engine interface {
	ProcessMove(ctx context.Context, session *domain.Session, move domain.Move) (*domain.Snapshot, error)
	GenerateMove(ctx context.Context, session *domain.Session) (domain.Move, error)
	Snapshot(ctx context.Context, session *domain.Session) (*domain.Snapshot, error)
	Score(ctx context.Context, session *domain.Session) (*domain.EndGameResult, error)
	Forget(sessionID string)
}

// Archiver records finished games and serves their history. May be backed by
// a memory implementation, never nil itself.
type Archiver interface {
	Record(ctx context.Context, game archive.Game) error
	RecentByPlayer(ctx context.Context, playerID string, limit int) ([]archive.Game, error)
}

type Config struct {
	// BotChainLimit caps consecutive automatic moves per triggering call.
	BotChainLimit int
}

type Service struct {
	store   store.Store
	engine  Engine
	gateway broadcast.Gateway
	archive Archiver
	cfg     Config
	log     *zap.Logger
}

func NewService(st store.Store, eng Engine, gw broadcast.Gateway, ar Archiver, cfg Config, log *zap.Logger) *Service {
	if cfg.BotChainLimit <= 0 {
		cfg.BotChainLimit = defaultBotChainLimit
	}
	return &Service{
		store:   st,
		engine:  eng,
		gateway: gw,
		archive: ar,
		cfg:     cfg,
		log:     log,
	}
}

// CreateSession opens a new session for the requesting player, terminating
// any session that player is already part of. The creator takes black; if a
// difficulty is given, a bot seat immediately takes white.
func (s *Service) CreateSession(ctx context.Context, playerID string, difficulty domain.Difficulty, boardSize int) (*domain.Session, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: empty player id", ErrPlayerNotFound)
	}
	if difficulty != "" && !difficulty.Valid() {
		return nil, fmt.Errorf("unknown difficulty %q", difficulty)
	}

	if existing, err := s.store.FindByPlayer(ctx, playerID); err == nil {
		s.log.Info("terminating previous session before create",
			zap.String("session_id", existing.ID),
			zap.String("player_id", playerID),
		)
		if err := s.TerminateSession(ctx, existing.ID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			return nil, err
		}
	}

	session, err := domain.NewSession(boardSize, difficulty)
	if err != nil {
		return nil, err
	}
	if err := session.AddPlayer(domain.HumanPlayer(playerID)); err != nil {
		return nil, err
	}
	if difficulty != "" {
		if err := session.AddPlayer(domain.BotPlayer()); err != nil {
			return nil, err
		}
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("player_id", playerID),
		zap.Int("board_size", session.BoardSize),
		zap.String("difficulty", string(difficulty)),
	)
	return session, nil
}

// JoinSession seats a second human on white.
func (s *Service) JoinSession(ctx context.Context, playerID, sessionID string) (*domain.Session, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: empty player id", ErrPlayerNotFound)
	}
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.HasPlayer(playerID) {
		return session, nil
	}
	if err := session.AddPlayer(domain.HumanPlayer(playerID)); err != nil {
		return nil, err
	}
	session.Touch()
	if err := s.store.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, broadcast.Event{
		SessionID: session.ID,
		Kind:      broadcast.KindJoined,
		Payload:   gamedto.FromSession(session),
	})
	return session, nil
}

// SubmitMove validates the requesting player's turn, applies the move through
// the engine, persists the new history, pushes the board state, and then
// drives any bot turns that follow.
func (s *Service) SubmitMove(ctx context.Context, sessionID, playerID string, move domain.Move) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	snap, err := s.engine.Snapshot(ctx, session)
	if err != nil {
		return err
	}
	if snap.Ended {
		return fmt.Errorf("%w: game already ended", engine.ErrInvalidMove)
	}
	if snap.Active.ID != playerID {
		if !session.HasPlayer(playerID) {
			return fmt.Errorf("%w: %s not in session %s", ErrPlayerNotFound, playerID, sessionID)
		}
		return ErrNotYourTurn
	}

	next, err := s.engine.ProcessMove(ctx, session, move)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, session); err != nil {
		return err
	}
	s.publish(ctx, broadcast.Event{
		SessionID: session.ID,
		Kind:      broadcast.KindUpdated,
		Payload:   gamedto.FromSnapshot(next),
	})

	return s.runBotChain(ctx, session, next)
}

// TerminateSession removes the session and notifies its participants.
func (s *Service) TerminateSession(ctx context.Context, sessionID string) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Terminate()
	if err := s.store.Remove(ctx, session); err != nil {
		return err
	}
	s.engine.Forget(session.ID)

	s.publish(ctx, broadcast.Event{
		SessionID: session.ID,
		Kind:      broadcast.KindTerminated,
		Payload:   gamedto.FromSession(session),
	})
	s.log.Info("session terminated", zap.String("session_id", session.ID))
	return nil
}

// ListPendingSessions returns sessions still waiting for an opponent.
func (s *Service) ListPendingSessions(ctx context.Context) ([]*domain.Session, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*domain.Session, 0, len(all))
	for _, session := range all {
		if session.Pending() && !session.Terminated {
			pending = append(pending, session)
		}
	}
	return pending, nil
}

// InitializeGame pushes the current board state to a session's participants,
// used when a client (re)connects.
func (s *Service) InitializeGame(ctx context.Context, sessionID string) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	snap, err := s.engine.Snapshot(ctx, session)
	if err != nil {
		return err
	}
	s.publish(ctx, broadcast.Event{
		SessionID: session.ID,
		Kind:      broadcast.KindUpdated,
		Payload:   gamedto.FromSnapshot(snap),
	})
	return nil
}

// RecentGames returns a player's most recent finished games, newest first.
func (s *Service) RecentGames(ctx context.Context, playerID string, limit int) ([]archive.Game, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: empty player id", ErrPlayerNotFound)
	}
	return s.archive.RecentByPlayer(ctx, playerID, limit)
}

// GetSnapshot rebuilds the board for a session on demand.
func (s *Service) GetSnapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.engine.Snapshot(ctx, session)
}

// runBotChain keeps playing while the active seat is bot-controlled. An
// explicit bounded loop rather than recursion: each iteration commits one
// bot move, and the chain stops on a human seat, game end, or the cap.
func (s *Service) runBotChain(ctx context.Context, session *domain.Session, snap *domain.Snapshot) error {
	for steps := 0; ; steps++ {
		if snap.Ended {
			return s.finishGame(ctx, session)
		}
		if !snap.Active.IsBot() {
			return nil
		}
		if steps >= s.cfg.BotChainLimit {
			s.log.Error("bot chain aborted",
				zap.String("session_id", session.ID),
				zap.Int("steps", steps),
			)
			return ErrBotLoopExceeded
		}

		move, err := s.engine.GenerateMove(ctx, session)
		if err != nil {
			return err
		}
		snap, err = s.engine.ProcessMove(ctx, session, move)
		if err != nil {
			return err
		}
		if err := s.store.Update(ctx, session); err != nil {
			return err
		}
		s.publish(ctx, broadcast.Event{
			SessionID: session.ID,
			Kind:      broadcast.KindUpdated,
			Payload:   gamedto.FromSnapshot(snap),
		})
	}
}

// finishGame computes the final score, pushes the end-of-game result, and
// records the finished game in the archive.
func (s *Service) finishGame(ctx context.Context, session *domain.Session) error {
	result, err := s.engine.Score(ctx, session)
	if err != nil {
		return err
	}
	s.publish(ctx, broadcast.Event{
		SessionID: session.ID,
		Kind:      broadcast.KindEndGame,
		Payload:   gamedto.FromEndGame(result),
	})

	record := archive.Game{
		SessionID:  session.ID,
		BoardSize:  session.BoardSize,
		Difficulty: string(session.Difficulty),
		Moves:      append([]string(nil), session.Moves...),
		Margin:     result.Margin,
		EndedAt:    time.Now(),
	}
	if len(result.Winners) > 0 {
		record.Winner = string(result.Winners[0].Color)
	}
	if black, ok := session.PlayerByColor(domain.Black); ok {
		record.PlayerBlack = black.ID
	}
	if white, ok := session.PlayerByColor(domain.White); ok {
		record.PlayerWhite = white.ID
	}
	if err := s.archive.Record(ctx, record); err != nil && !errors.Is(err, archive.ErrDuplicateGame) {
		s.log.Warn("failed to archive finished game",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	s.log.Info("game finished",
		zap.String("session_id", session.ID),
		zap.Float64("margin", result.Margin),
		zap.String("winner", record.Winner),
	)
	return nil
}

func (s *Service) publish(ctx context.Context, event broadcast.Event) {
	if err := s.gateway.Publish(ctx, event); err != nil {
		s.log.Warn("broadcast failed",
			zap.String("session_id", event.SessionID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}
}
