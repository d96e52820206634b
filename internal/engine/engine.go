package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/atarigo/goban-server/internal/domain"
	"github.com/atarigo/goban-server/internal/gtp"
)

var (
	// ErrEngineUnavailable wraps I/O failures talking to the engine process.
	ErrEngineUnavailable = errors.New("rules engine unavailable")
	// ErrEngineRejected wraps protocol-level failures: a reply that is not
	// prefixed with "=" where success was required, or a reply we cannot parse.
	ErrEngineRejected = errors.New("rules engine rejected command")
	// ErrInvalidMove means the engine refused the submitted move (suicide,
	// occupied point, ko) or the coordinate was out of range.
	ErrInvalidMove = errors.New("invalid move")
	// ErrScoringFailed means the engine could not produce a final score.
	ErrScoringFailed = errors.New("scoring failed")
)

const komi = "5.5"

// Adapter drives the external GTP rules engine. The engine is stateless per
// connection, so every operation replays the session's full move history
// before issuing its own commands; board state is reconstructed, never stored.
type Adapter struct {
	pool   *gtp.Pool
	levels Levels
	log    *zap.Logger

	// Last snapshot per session, keyed by the exact history it was built
	// from. Repeated reads without an intervening move skip the O(history)
	// replay, and an entry written for a history the store later refused
	// (version conflict) can never match the committed one.
	mu    sync.Mutex
	cache map[string]cachedSnapshot
}

type cachedSnapshot struct {
	history string
	snap    *domain.Snapshot
}

func NewAdapter(pool *gtp.Pool, levels Levels, log *zap.Logger) *Adapter {
	return &Adapter{
		pool:   pool,
		levels: levels,
		log:    log,
		cache:  make(map[string]cachedSnapshot),
	}
}

// ProcessMove submits a move for the color whose turn it is. On acceptance
// the encoded move is appended to the session history and a snapshot for the
// new position is returned. On rejection the session is left untouched.
func (a *Adapter) ProcessMove(ctx context.Context, session *domain.Session, move domain.Move) (*domain.Snapshot, error) {
	if !move.InRange(session.BoardSize) {
		return nil, fmt.Errorf("%w: %s outside board of size %d", ErrInvalidMove, move, session.BoardSize)
	}
	token, err := gtp.FormatMove(move, session.BoardSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}

	var snap *domain.Snapshot
	err = a.withClient(ctx, func(client *gtp.Client) error {
		if err := a.setup(ctx, client, session); err != nil {
			return err
		}

		color := session.NextColor()
		reply, err := client.Exec(ctx, fmt.Sprintf("play %s %s", color, token))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		if !gtp.IsSuccess(reply) {
			return fmt.Errorf("%w: engine replied %q to %s %s", ErrInvalidMove, reply, color, token)
		}

		session.AppendMove(token)
		snap, err = a.buildSnapshot(ctx, client, session)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.store(session.ID, historyKey(session), snap)
	return snap, nil
}

// GenerateMove asks the engine for a move for the color to move, at the
// session's difficulty. The move is returned without being committed; the
// caller applies it through ProcessMove.
func (a *Adapter) GenerateMove(ctx context.Context, session *domain.Session) (domain.Move, error) {
	var move domain.Move
	err := a.withClient(ctx, func(client *gtp.Client) error {
		if err := a.setup(ctx, client, session); err != nil {
			return err
		}
		level := a.levels.For(session.Difficulty)
		if _, err := a.exec(ctx, client, fmt.Sprintf("level %d", level)); err != nil {
			return err
		}

		reply, err := a.exec(ctx, client, fmt.Sprintf("genmove %s", session.NextColor()))
		if err != nil {
			return err
		}
		move, err = gtp.ParseMove(gtp.Payload(reply), session.BoardSize)
		if err != nil {
			return fmt.Errorf("%w: genmove reply: %v", ErrEngineRejected, err)
		}
		return nil
	})
	if err != nil {
		return domain.Move{}, err
	}

	a.log.Debug("bot move generated",
		zap.String("session_id", session.ID),
		zap.String("move", move.String()),
	)
	return move, nil
}

// Snapshot rebuilds the current board state from the session history. Two
// calls without an intervening move return the same snapshot.
func (a *Adapter) Snapshot(ctx context.Context, session *domain.Session) (*domain.Snapshot, error) {
	if snap, ok := a.cached(session.ID, historyKey(session)); ok {
		return snap, nil
	}

	var snap *domain.Snapshot
	err := a.withClient(ctx, func(client *gtp.Client) error {
		if err := a.setup(ctx, client, session); err != nil {
			return err
		}
		var err error
		snap, err = a.buildSnapshot(ctx, client, session)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.store(session.ID, historyKey(session), snap)
	return snap, nil
}

// Score asks the engine for the final score. A reply like "B+10.5" yields the
// margin and the winning seat; an unparsable margin yields margin 0 with no
// winner rather than an error.
func (a *Adapter) Score(ctx context.Context, session *domain.Session) (*domain.EndGameResult, error) {
	var result *domain.EndGameResult
	err := a.withClient(ctx, func(client *gtp.Client) error {
		if err := a.setup(ctx, client, session); err != nil {
			return err
		}
		reply, err := client.Exec(ctx, "final_score")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		if !gtp.IsSuccess(reply) {
			return fmt.Errorf("%w: engine replied %q", ErrScoringFailed, reply)
		}
		result = a.parseScore(session, gtp.Payload(reply))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Forget drops any cached snapshot for a session that no longer exists.
func (a *Adapter) Forget(sessionID string) {
	a.mu.Lock()
	delete(a.cache, sessionID)
	a.mu.Unlock()
}

// setup resets the engine board and replays the full history in alternating
// color order starting with black. Repeated on every operation because the
// engine holds no state we trust between commands.
func (a *Adapter) setup(ctx context.Context, client *gtp.Client, session *domain.Session) error {
	if _, err := a.exec(ctx, client, fmt.Sprintf("boardsize %d", session.BoardSize)); err != nil {
		return err
	}
	if _, err := a.exec(ctx, client, "clear_board"); err != nil {
		return err
	}
	if _, err := a.exec(ctx, client, "komi "+komi); err != nil {
		return err
	}

	color := domain.Black
	for _, token := range session.Moves {
		if _, err := a.exec(ctx, client, fmt.Sprintf("play %s %s", color, token)); err != nil {
			return err
		}
		color = color.Opponent()
	}
	return nil
}

func (a *Adapter) buildSnapshot(ctx context.Context, client *gtp.Client, session *domain.Session) (*domain.Snapshot, error) {
	blackStones, err := a.listStones(ctx, client, domain.Black)
	if err != nil {
		return nil, err
	}
	whiteStones, err := a.listStones(ctx, client, domain.White)
	if err != nil {
		return nil, err
	}

	size := session.BoardSize
	grid := make([][]domain.Stone, size)
	for y := 0; y < size; y++ {
		row := make([]domain.Stone, size)
		for x := 0; x < size; x++ {
			token, err := gtp.FormatMove(domain.MoveAt(x, y), size)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrEngineRejected, err)
			}
			switch {
			case blackStones[token]:
				row[x] = domain.BlackStone
			case whiteStones[token]:
				row[x] = domain.WhiteStone
			default:
				row[x] = domain.Empty
			}
		}
		grid[y] = row
	}

	activeColor := session.NextColor()
	active, _ := session.PlayerByColor(activeColor)
	passive, _ := session.PlayerByColor(activeColor.Opponent())

	return &domain.Snapshot{
		Size:    size,
		Grid:    grid,
		Active:  active,
		Passive: passive,
		Ended:   session.Ended(),
	}, nil
}

func (a *Adapter) listStones(ctx context.Context, client *gtp.Client, color domain.Color) (map[string]bool, error) {
	reply, err := a.exec(ctx, client, "list_stones "+string(color))
	if err != nil {
		return nil, err
	}
	stones := make(map[string]bool)
	for _, token := range strings.Fields(gtp.Payload(reply)) {
		stones[strings.ToUpper(token)] = true
	}
	return stones, nil
}

func (a *Adapter) parseScore(session *domain.Session, payload string) *domain.EndGameResult {
	upper := strings.ToUpper(payload)
	var winner domain.Color
	var marginText string
	switch {
	case strings.HasPrefix(upper, "B+"):
		winner = domain.Black
		marginText = payload[2:]
	case strings.HasPrefix(upper, "W+"):
		winner = domain.White
		marginText = payload[2:]
	default:
		return &domain.EndGameResult{}
	}

	margin, err := strconv.ParseFloat(marginText, 64)
	if err != nil {
		a.log.Warn("unparsable score margin",
			zap.String("session_id", session.ID),
			zap.String("score", payload),
		)
		return &domain.EndGameResult{}
	}

	result := &domain.EndGameResult{Margin: margin}
	if p, ok := session.PlayerByColor(winner); ok {
		result.Winners = []domain.Player{p}
	}
	return result
}

// exec issues a command that must succeed; a non-"=" reply is a protocol
// failure, not a game-level rejection.
func (a *Adapter) exec(ctx context.Context, client *gtp.Client, command string) (string, error) {
	reply, err := client.Exec(ctx, command)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if !gtp.IsSuccess(reply) {
		return "", fmt.Errorf("%w: %s: %q", ErrEngineRejected, command, reply)
	}
	return reply, nil
}

func (a *Adapter) withClient(ctx context.Context, fn func(*gtp.Client) error) error {
	client, err := a.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	err = fn(client)
	// Only transport failures poison the connection; game-level rejections
	// leave it reusable.
	if errors.Is(err, ErrEngineUnavailable) {
		a.pool.Release(client, err)
	} else {
		a.pool.Release(client, nil)
	}
	return err
}

func historyKey(session *domain.Session) string {
	return strings.Join(session.Moves, " ")
}

func (a *Adapter) cached(sessionID, history string) (*domain.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.cache[sessionID]
	if !ok || entry.history != history {
		return nil, false
	}
	return entry.snap, true
}

func (a *Adapter) store(sessionID, history string, snap *domain.Snapshot) {
	a.mu.Lock()
	a.cache[sessionID] = cachedSnapshot{history: history, snap: snap}
	a.mu.Unlock()
}
