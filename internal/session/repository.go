package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"xiangqi-server/internal/engine"
)

// Repository archives finished sessions in Postgres. Redis holds the
// live state; this table is the durable record.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// ArchivedGame is one finished session as stored in the archive.
type ArchivedGame struct {
	SessionID string
	Name      string
	RedID     string
	RedName   string
	BlackID   string
	BlackName string
	Winner    string
	Reason    Reason
	Moves     []engine.Move
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// SaveResult upserts a finished session, keyed by session id.
func (r *Repository) SaveResult(ctx context.Context, s *Session) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}
	if s.Status != StatusFinished {
		return nil
	}
	movesRaw, err := json.Marshal(s.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	duration := s.UpdatedAt.Sub(s.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO xiangqi_games (
	    session_id, name, red_id, red_name, black_id, black_name,
	    winner, reason, moves, started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10,$11,$12
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    winner=EXCLUDED.winner,
	    reason=EXCLUDED.reason,
	    moves=EXCLUDED.moves,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		s.ID, s.Name,
		s.RedID, s.RedName,
		s.BlackID, s.BlackName,
		s.Winner, string(s.Reason), string(movesRaw),
		s.StartedAt, s.UpdatedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("insert xiangqi game: %w", err)
	}
	return nil
}

// RecentByPlayer lists a player's most recently finished games.
func (r *Repository) RecentByPlayer(ctx context.Context, playerID string, limit int) ([]*ArchivedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT session_id, name, red_id, red_name, black_id, black_name,
		       winner, reason, moves, started_at, ended_at, duration_ms
		FROM xiangqi_games
		WHERE red_id = $1 OR black_id = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select xiangqi games: %w", err)
	}
	defer rows.Close()

	games := make([]*ArchivedGame, 0, limit)
	for rows.Next() {
		var (
			g          ArchivedGame
			reason     string
			movesJSON  []byte
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&g.SessionID, &g.Name,
			&g.RedID, &g.RedName,
			&g.BlackID, &g.BlackName,
			&g.Winner, &reason, &movesJSON,
			&g.StartedAt, &g.EndedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan xiangqi game: %w", err)
		}
		g.Reason = Reason(reason)
		if durationMS.Valid {
			g.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		if err := json.Unmarshal(movesJSON, &g.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		games = append(games, &g)
	}
	return games, rows.Err()
}
