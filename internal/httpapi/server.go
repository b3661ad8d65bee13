// Package httpapi exposes the session manager over a small JSON REST
// surface for the UI and advisory collaborators.
package httpapi

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"xiangqi-server/internal/session"
	"xiangqi-server/pkg/xiangqidto"
)

type Server struct {
	mgr *session.Manager
	log *zap.Logger
}

func New(mgr *session.Manager, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{mgr: mgr, log: log}
}

// Handler routes all requests. Paths:
//
//	POST /sessions
//	GET  /sessions/{id}[?since=<unix-ms>]
//	GET  /sessions/{id}/legal?piece=<pieceID>
//	POST /sessions/{id}/moves
//	POST /sessions/{id}/resign
//	POST /sessions/{id}/draw
//	GET  /sessions/{id}/board?ply=N
//	GET  /sessions/{id}/describe
//	GET  /players/{id}/active
//	GET  /players/{id}/games?limit=N
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")
	method := string(ctx.Method())

	switch {
	case len(parts) == 1 && parts[0] == "sessions" && method == fasthttp.MethodPost:
		s.handleCreate(ctx)
	case len(parts) == 2 && parts[0] == "sessions" && method == fasthttp.MethodGet:
		s.handleGet(ctx, parts[1])
	case len(parts) == 3 && parts[0] == "sessions":
		s.handleSessionSub(ctx, method, parts[1], parts[2])
	case len(parts) == 3 && parts[0] == "players" && method == fasthttp.MethodGet:
		s.handlePlayerSub(ctx, parts[1], parts[2])
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route")
	}
}

func (s *Server) handleSessionSub(ctx *fasthttp.RequestCtx, method, id, sub string) {
	switch {
	case sub == "legal" && method == fasthttp.MethodGet:
		s.handleLegal(ctx, id)
	case sub == "moves" && method == fasthttp.MethodPost:
		s.handleMove(ctx, id)
	case sub == "resign" && method == fasthttp.MethodPost:
		s.handleResign(ctx, id)
	case sub == "draw" && method == fasthttp.MethodPost:
		s.handleDraw(ctx, id)
	case sub == "board" && method == fasthttp.MethodGet:
		s.handleBoard(ctx, id)
	case sub == "describe" && method == fasthttp.MethodGet:
		s.handleDescribe(ctx, id)
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route")
	}
}

func (s *Server) handlePlayerSub(ctx *fasthttp.RequestCtx, playerID, sub string) {
	switch sub {
	case "active":
		sess, err := s.mgr.ActiveByPlayer(ctx, playerID)
		if err != nil {
			s.writeDomainError(ctx, err)
			return
		}
		if sess == nil {
			s.writeError(ctx, fasthttp.StatusNotFound, "no_active_session", "player has no active session")
			return
		}
		s.writeJSON(ctx, fasthttp.StatusOK, xiangqidto.FromSession(sess))
	case "games":
		limit := ctx.QueryArgs().GetUintOrZero("limit")
		games, err := s.mgr.RecentGames(ctx, playerID, limit)
		if err != nil {
			s.writeDomainError(ctx, err)
			return
		}
		out := make([]xiangqidto.ArchivedGameDTO, 0, len(games))
		for _, g := range games {
			out = append(out, xiangqidto.FromArchived(g))
		}
		s.writeJSON(ctx, fasthttp.StatusOK, out)
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route")
	}
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	var req xiangqidto.CreateSessionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	sess, err := s.mgr.Create(ctx, req.Name, req.RedID, req.RedName, req.BlackID, req.BlackName)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, xiangqidto.FromSession(sess))
}

func (s *Server) handleGet(ctx *fasthttp.RequestCtx, id string) {
	sess, err := s.mgr.Get(ctx, id)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	// Polling contract: a client repeats GET with the last UpdatedAt it
	// saw; an unchanged session answers 304 with no body.
	if since := string(ctx.QueryArgs().Peek("since")); since != "" {
		if ms, perr := strconv.ParseInt(since, 10, 64); perr == nil {
			if sess.UpdatedAt.UnixMilli() <= ms {
				ctx.SetStatusCode(fasthttp.StatusNotModified)
				return
			}
		}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, xiangqidto.FromSession(sess))
}

func (s *Server) handleLegal(ctx *fasthttp.RequestCtx, id string) {
	pieceID := string(ctx.QueryArgs().Peek("piece"))
	if pieceID == "" {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "piece query parameter required")
		return
	}
	moves, err := s.mgr.LegalMoves(ctx, id, pieceID)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	resp := xiangqidto.LegalMovesResponse{PieceID: pieceID, Moves: make([]xiangqidto.PosDTO, 0, len(moves))}
	for _, p := range moves {
		resp.Moves = append(resp.Moves, xiangqidto.FromPos(p))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, id string) {
	var req xiangqidto.SubmitMoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	sess, err := s.mgr.SubmitMove(ctx, id, session.MoveRequest{
		PlayerID: req.PlayerID,
		PieceID:  req.PieceID,
		To:       req.To.Pos(),
	})
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, xiangqidto.FromSession(sess))
}

func (s *Server) handleResign(ctx *fasthttp.RequestCtx, id string) {
	var req xiangqidto.PlayerRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	sess, err := s.mgr.Resign(ctx, id, req.PlayerID)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, xiangqidto.FromSession(sess))
}

func (s *Server) handleDraw(ctx *fasthttp.RequestCtx, id string) {
	var req xiangqidto.PlayerRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	sess, err := s.mgr.OfferDraw(ctx, id, req.PlayerID)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, xiangqidto.FromSession(sess))
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, id string) {
	ply := ctx.QueryArgs().GetUintOrZero("ply")
	board, err := s.mgr.BoardAt(ctx, id, ply)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, xiangqidto.BoardResponse{
		Ply:    ply,
		Pieces: xiangqidto.FromPieces(board),
	})
}

func (s *Server) handleDescribe(ctx *fasthttp.RequestCtx, id string) {
	sess, err := s.mgr.Get(ctx, id)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	desc, err := s.mgr.Describe(ctx, id)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	resp := xiangqidto.DescribeResponse{Description: desc}
	if mv := sess.LastMove(); mv != nil {
		resp.LastMove = mv.Notation
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

// writeDomainError maps rejection sentinels onto client-facing status
// codes. Rule rejections are client errors, never 5xx.
func (s *Server) writeDomainError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		s.writeError(ctx, fasthttp.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrUnknownPiece):
		s.writeError(ctx, fasthttp.StatusNotFound, "piece_not_found", err.Error())
	case errors.Is(err, session.ErrOutOfTurn):
		s.writeError(ctx, fasthttp.StatusConflict, "out_of_turn", err.Error())
	case errors.Is(err, session.ErrIllegalDestination):
		s.writeError(ctx, fasthttp.StatusConflict, "illegal_destination", err.Error())
	case errors.Is(err, session.ErrSelfCheckRemaining):
		s.writeError(ctx, fasthttp.StatusConflict, "self_check_remaining", err.Error())
	case errors.Is(err, session.ErrSessionFinished):
		s.writeError(ctx, fasthttp.StatusConflict, "session_finished", err.Error())
	case errors.Is(err, session.ErrNotParticipant):
		s.writeError(ctx, fasthttp.StatusForbidden, "not_participant", err.Error())
	case errors.Is(err, session.ErrConcurrentUpdate):
		s.writeRetryable(ctx, fasthttp.StatusConflict, "concurrent_update", err.Error())
	default:
		s.log.Error("httpapi internal error", zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		s.log.Error("httpapi encode error", zap.Error(err))
	}
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	s.writeJSON(ctx, status, xiangqidto.DomainError{Code: code, Message: msg})
}

func (s *Server) writeRetryable(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	s.writeJSON(ctx, status, xiangqidto.DomainError{Code: code, Message: msg, Retryable: true})
}
