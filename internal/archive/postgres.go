package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRepository stores finished games in the finished_games table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) Record(ctx context.Context, game Game) error {
	moves, err := json.Marshal(game.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const query = `
		INSERT INTO finished_games (
			session_id,
			board_size,
			difficulty,
			player_black,
			player_white,
			moves,
			margin,
			winner,
			ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionID,
		game.BoardSize,
		game.Difficulty,
		game.PlayerBlack,
		game.PlayerWhite,
		moves,
		game.Margin,
		game.Winner,
		game.EndedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return ErrDuplicateGame
	}
	if err != nil {
		return fmt.Errorf("insert finished game: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecentByPlayer(ctx context.Context, playerID string, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			session_id,
			board_size,
			difficulty,
			player_black,
			player_white,
			moves,
			margin,
			winner,
			ended_at
		FROM finished_games
		WHERE player_black = $1 OR player_white = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select finished games: %w", err)
	}
	defer rows.Close()

	games := make([]Game, 0, limit)
	for rows.Next() {
		var (
			game      Game
			movesJSON []byte
		)
		if err := rows.Scan(
			&game.ID,
			&game.SessionID,
			&game.BoardSize,
			&game.Difficulty,
			&game.PlayerBlack,
			&game.PlayerWhite,
			&movesJSON,
			&game.Margin,
			&game.Winner,
			&game.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan finished game: %w", err)
		}
		if err := json.Unmarshal(movesJSON, &game.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}
