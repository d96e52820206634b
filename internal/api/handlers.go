package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/atarigo/goban-server/internal/domain"
	"github.com/atarigo/goban-server/internal/engine"
	"github.com/atarigo/goban-server/internal/game"
	"github.com/atarigo/goban-server/internal/store"
	"github.com/atarigo/goban-server/internal/ws"
	"github.com/atarigo/goban-server/pkg/gamedto"
)

type Handler struct {
	svc *game.Service
	hub *ws.Hub
	log *zap.Logger
}

func NewHandler(svc *game.Service, hub *ws.Hub, log *zap.Logger) *Handler {
	return &Handler{svc: svc, hub: hub, log: log}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req gamedto.CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.svc.CreateSession(r.Context(), req.PlayerID, domain.Difficulty(req.Difficulty), req.BoardSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, gamedto.FromSession(session))
}

func (h *Handler) JoinSession(w http.ResponseWriter, r *http.Request) {
	var req gamedto.JoinSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.svc.JoinSession(r.Context(), req.PlayerID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, gamedto.FromSession(session))
}

func (h *Handler) SubmitMove(w http.ResponseWriter, r *http.Request) {
	var req gamedto.MoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	move := domain.MoveAt(req.X, req.Y)
	if req.Pass {
		move = domain.PassMove()
	}
	if err := h.svc.SubmitMove(r.Context(), mux.Vars(r)["id"], req.PlayerID, move); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.TerminateSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPendingSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListPendingSessions(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	summaries := make([]gamedto.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, gamedto.FromSession(s))
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) PlayerGames(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeJSON(w, http.StatusBadRequest, gamedto.Error{
				Code:    "bad_request",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}
	games, err := h.svc.RecentGames(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	records := make([]gamedto.GameRecord, 0, len(games))
	for _, g := range games {
		records = append(records, gamedto.FromArchivedGame(g))
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetSnapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, gamedto.FromSnapshot(snap))
}

// Watch attaches the client to the session's event stream and pushes the
// current board state so it does not have to poll for it.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	h.hub.Subscribe(w, r, sessionID, func() {
		if err := h.svc.InitializeGame(r.Context(), sessionID); err != nil {
			h.log.Debug("initial board push failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, gamedto.Error{
			Code:    "bad_request",
			Message: "malformed request body",
		})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	h.writeJSON(w, status, gamedto.Error{Code: code, Message: err.Error()})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return "session_not_found", http.StatusNotFound
	case errors.Is(err, game.ErrPlayerNotFound):
		return "player_not_found", http.StatusNotFound
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn", http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidMove):
		return "invalid_move", http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionFull):
		return "session_full", http.StatusConflict
	case errors.Is(err, domain.ErrInvalidBoardSize):
		return "invalid_board_size", http.StatusBadRequest
	case errors.Is(err, store.ErrConflict):
		return "conflict", http.StatusConflict
	case errors.Is(err, engine.ErrEngineUnavailable):
		return "engine_unavailable", http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrEngineRejected), errors.Is(err, engine.ErrScoringFailed):
		return "engine_error", http.StatusBadGateway
	case errors.Is(err, game.ErrBotLoopExceeded):
		return "bot_loop_exceeded", http.StatusInternalServerError
	default:
		return "internal", http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("response write failed", zap.Error(err))
	}
}
