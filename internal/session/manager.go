package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"xiangqi-server/internal/engine"
)

const defaultTTL = 7 * 24 * time.Hour

// Manager is the Redis-backed session store and the only writer of
// session state. Validation and transition always run against a single
// freshly-read snapshot inside a WATCH transaction, with a move-count
// compare to reject concurrent submissions.
type Manager struct {
	rdb  *redis.Client
	repo *Repository
	ttl  time.Duration
	log  *zap.Logger
}

func NewManager(redisURL string, ttl time.Duration, log *zap.Logger) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis URL required for session manager")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{rdb: rdb, ttl: ttl, log: log}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a database repository for archiving finished
// sessions.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

func sessionKey(id string) string   { return "xq:session:" + strings.TrimSpace(id) }
func playerIdxKey(id string) string { return "xq:index:player:" + strings.TrimSpace(id) }

// Create opens a new active session with the canonical starting layout,
// Red to move, empty history.
func (m *Manager) Create(ctx context.Context, name, redID, redName, blackID, blackName string) (*Session, error) {
	if strings.TrimSpace(redID) == "" || strings.TrimSpace(blackID) == "" {
		return nil, fmt.Errorf("both participants are required")
	}
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Status:    StatusActive,
		Pieces:    engine.InitialPieces(),
		Turn:      engine.Red,
		Moves:     []engine.Move{},
		RedID:     strings.TrimSpace(redID),
		RedName:   strings.TrimSpace(redName),
		BlackID:   strings.TrimSpace(blackID),
		BlackName: strings.TrimSpace(blackName),
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	if err := m.indexParticipants(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info("session_create",
		zap.String("session_id", s.ID),
		zap.String("red_id", s.RedID),
		zap.String("black_id", s.BlackID),
	)
	return s, nil
}

// Get loads a session and verifies the reconstruction invariant before
// handing it out.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	if err := Verify(s); err != nil {
		m.log.Error("session_snapshot_diverged", zap.String("session_id", s.ID))
		return nil, err
	}
	return s, nil
}

// ActiveByPlayer returns the player's most recently updated active
// session, or nil.
func (m *Manager) ActiveByPlayer(ctx context.Context, playerID string) (*Session, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, playerIdxKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	var latest *Session
	for _, id := range ids {
		s, gerr := m.get(ctx, id)
		if gerr != nil || s == nil || s.Status != StatusActive {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	return latest, nil
}

// SubmitMove applies one validated half-move under optimistic
// concurrency control and persists the result atomically.
func (m *Manager) SubmitMove(ctx context.Context, sessionID string, req MoveRequest) (*Session, error) {
	var out *Session
	err := m.transition(ctx, sessionID, func(cur *Session) (*Session, error) {
		next, err := Advance(cur, req)
		if err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	out, err = m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_move",
		zap.String("session_id", sessionID),
		zap.String("player_id", req.PlayerID),
		zap.String("notation", notationOfLast(out)),
		zap.String("status", string(out.Status)),
		zap.String("reason", string(out.Reason)),
	)
	m.archiveIfFinished(ctx, out)
	return out, nil
}

// Resign finishes the session in the opponent's favor.
func (m *Manager) Resign(ctx context.Context, sessionID, playerID string) (*Session, error) {
	err := m.transition(ctx, sessionID, func(cur *Session) (*Session, error) {
		return Resign(cur, playerID, time.Now())
	})
	if err != nil {
		return nil, err
	}
	out, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_resign",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.String("winner", out.Winner),
	)
	m.archiveIfFinished(ctx, out)
	return out, nil
}

// OfferDraw records or accepts a draw offer.
func (m *Manager) OfferDraw(ctx context.Context, sessionID, playerID string) (*Session, error) {
	err := m.transition(ctx, sessionID, func(cur *Session) (*Session, error) {
		next, _, err := OfferDraw(cur, playerID, time.Now())
		return next, err
	})
	if err != nil {
		return nil, err
	}
	out, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_draw_offer",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.String("status", string(out.Status)),
	)
	m.archiveIfFinished(ctx, out)
	return out, nil
}

// LegalMoves returns the legal destinations of one piece, for move
// affordance display.
func (m *Manager) LegalMoves(ctx context.Context, sessionID, pieceID string) ([]engine.Pos, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pc, ok := s.Pieces.ByID(pieceID)
	if !ok {
		return nil, ErrUnknownPiece
	}
	return engine.LegalMoves(pc, s.Pieces), nil
}

// BoardAt reconstructs the position after the first `ply` moves, for
// replay scrubbing.
func (m *Manager) BoardAt(ctx context.Context, sessionID string, ply int) (engine.Board, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return engine.ReconstructAt(s.Moves, ply), nil
}

// Describe returns the advisory-facing textual position description.
func (m *Manager) Describe(ctx context.Context, sessionID string) (string, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return engine.Describe(s.Pieces, s.LastMove()), nil
}

// RecentGames lists a player's archived results. Without an attached
// repository the list is empty.
func (m *Manager) RecentGames(ctx context.Context, playerID string, limit int) ([]*ArchivedGame, error) {
	if m.repo == nil {
		return nil, nil
	}
	return m.repo.RecentByPlayer(ctx, playerID, limit)
}

// transition runs fn against a freshly-read snapshot inside WATCH and
// commits the successor. A concurrent writer (move count or status
// changed between read and commit) surfaces as ErrConcurrentUpdate.
func (m *Manager) transition(ctx context.Context, sessionID string, fn func(*Session) (*Session, error)) error {
	key := sessionKey(sessionID)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var cur Session
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if err := Verify(&cur); err != nil {
			return err
		}
		next, err := fn(&cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		newRaw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		pipe.Set(ctx, key, newRaw, m.ttl)
		_, err = pipe.Exec(ctx)
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConcurrentUpdate
	}
	return err
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, sessionKey(s.ID), raw, m.ttl).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*Session, error) {
	raw, err := m.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Manager) indexParticipants(ctx context.Context, s *Session) error {
	for _, pid := range []string{s.RedID, s.BlackID} {
		if pid == "" {
			continue
		}
		key := playerIdxKey(pid)
		if err := m.rdb.SAdd(ctx, key, s.ID).Err(); err != nil {
			return err
		}
		// Keep the index from outliving the sessions it points at.
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

// archiveIfFinished persists a terminal session to the repository when
// one is attached. Archive failures are logged, not propagated: the
// Redis copy remains authoritative.
func (m *Manager) archiveIfFinished(ctx context.Context, s *Session) {
	if m.repo == nil || s == nil || s.Status != StatusFinished {
		return
	}
	if err := m.repo.SaveResult(ctx, s); err != nil {
		m.log.Error("session_archive_error",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
		return
	}
	m.log.Info("session_archive",
		zap.String("session_id", s.ID),
		zap.String("winner", s.Winner),
		zap.String("reason", string(s.Reason)),
	)
}

func notationOfLast(s *Session) string {
	if mv := s.LastMove(); mv != nil {
		return mv.Notation
	}
	return ""
}
