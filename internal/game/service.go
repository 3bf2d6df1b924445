// Package game provides the HTTP handlers and orchestration for running a
// game: creating and joining games, placing bets, advancing market days,
// resolving options, and reporting the settlement.
//
// Sip amounts use shopspring/decimal; board positions are percentages.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sipmarket/market-engine/internal/limits"
	"github.com/sipmarket/market-engine/internal/lobby"
	"github.com/sipmarket/market-engine/internal/market"
	"github.com/sipmarket/market-engine/internal/model"
	"github.com/sipmarket/market-engine/internal/store"
)

const codeAttempts = 5

// Service handles game operations. Uses a mutex to serialize state
// transitions (single-instance). For horizontal scaling, replace with
// distributed locking or database-level optimistic concurrency.
type Service struct {
	store    store.Store
	limiter  *limits.BetLimiter
	rng      market.Rand
	defaults model.GameRules
	log      *slog.Logger
	mu       sync.Mutex
	wsHub    *WSHub // optional WebSocket hub for the realtime feed
}

// NewService creates a new game service. rng must be safe for concurrent
// use (see market.NewLockedRand). Pass nil for hub if WebSocket
// broadcasting is not needed, and nil for logger to use slog.Default().
func NewService(st store.Store, limiter *limits.BetLimiter, rng market.Rand, defaults model.GameRules, hub *WSHub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    st,
		limiter:  limiter,
		rng:      rng,
		defaults: defaults,
		log:      logger,
		wsHub:    hub,
	}
}

// Routes mounts the game API on r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/games", s.ListGames)
	r.Post("/games", s.CreateGame)
	r.Route("/games/{gameID}", func(r chi.Router) {
		r.Get("/", s.GetGame)
		r.Post("/rematch", s.Rematch)
		r.Post("/start", s.StartGame)
		r.Post("/rounds", s.NextRound)

		r.Get("/players", s.ListPlayers)
		r.Post("/players", s.JoinGame)
		r.Get("/players/{playerID}", s.GetPlayer)
		r.Post("/players/{playerID}/call-option", s.DecideCallOption)
		r.Post("/players/{playerID}/put-option", s.UsePutOption)
		r.Post("/players/{playerID}/sips-taken", s.SipsTaken)

		r.Get("/bets", s.ListBets)
		r.Post("/bets", s.PlaceBet)

		r.Get("/settlement", s.GetSettlement)
	})
}

// --- Request/Response types ---

// CreateGameRequest is the JSON body for game creation and rematch.
// PlayerID is generated when empty.
type CreateGameRequest struct {
	PlayerID string             `json:"player_id"`
	Nickname string             `json:"nickname"`
	Rules    lobby.RulesRequest `json:"rules"`
}

// JoinGameRequest is the JSON body for POST /games/{gameID}/players.
type JoinGameRequest struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
}

// GameResponse is returned when a game is created or a player joins.
type GameResponse struct {
	Game   *model.Game   `json:"game"`
	Player *model.Player `json:"player,omitempty"`
}

// --- Lobby handlers ---

// CreateGame handles POST /api/v1/games
func (s *Service) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rules, err := lobby.ResolveRules(req.Rules, s.defaults)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, status, err := s.createGame(r.Context(), req, rules)
	if err != nil {
		writeError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Rematch handles POST /api/v1/games/{gameID}/rematch
// Starts a new game with the finished game's rules and points its
// watchers at the new code.
func (s *Service) Rematch(w http.ResponseWriter, r *http.Request) {
	old, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	if old.Status != model.StatusFinished {
		writeError(w, "game is not finished", http.StatusConflict)
		return
	}

	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, status, err := s.createGame(r.Context(), req, old.Rules)
	if err != nil {
		writeError(w, err.Error(), status)
		return
	}

	s.broadcast(WSMessage{
		Type:     MsgNewGame,
		GameID:   old.ID,
		PlayerID: resp.Player.PlayerID,
		Nickname: resp.Player.Nickname,
		Text:     resp.Player.Nickname + " started a new game: " + resp.Game.ID,
		Payload:  map[string]string{"game_id": resp.Game.ID},
	})
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Service) createGame(ctx context.Context, req CreateGameRequest, rules model.GameRules) (*GameResponse, int, error) {
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return nil, http.StatusBadRequest, errors.New("nickname is required")
	}
	playerID := req.PlayerID
	if playerID == "" {
		playerID = uuid.New().String()
	}

	now := time.Now().UTC()
	game := &model.Game{
		Status:    model.StatusNotStarted,
		Rules:     rules,
		Assets:    model.NewAssets(),
		Deck:      market.BuildEventDeck(s.rng, rules.DeckSize(), rules.EventMaxValue()),
		CreatedBy: playerID,
		CreatedAt: now,
	}

	var err error
	for i := 0; i < codeAttempts; i++ {
		game.ID = lobby.NewCode(s.rng)
		if err = s.store.CreateGame(ctx, game); !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil {
		s.log.Error("create game failed", "err", err)
		return nil, http.StatusInternalServerError, errors.New("failed to create game")
	}

	player := &model.Player{
		GameID:     game.ID,
		PlayerID:   playerID,
		Nickname:   nickname,
		CallOption: model.UndecidedCall(),
		JoinedAt:   now,
	}
	if err := s.store.AddPlayer(ctx, player); err != nil {
		s.log.Error("add creator failed", "game_id", game.ID, "err", err)
		return nil, http.StatusInternalServerError, errors.New("failed to add player")
	}

	s.log.Info("game created",
		"game_id", game.ID,
		"creator", playerID,
		"rounds", rules.Rounds,
		"cards", len(game.Deck),
	)
	return &GameResponse{Game: game, Player: player}, http.StatusCreated, nil
}

// GetGame handles GET /api/v1/games/{gameID}
func (s *Service) GetGame(w http.ResponseWriter, r *http.Request) {
	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// ListGames handles GET /api/v1/games
// Returns all games, optionally filtered by ?status=<status>.
func (s *Service) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.store.ListGames(r.Context())
	if err != nil {
		writeError(w, "failed to list games", http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []model.Game{}
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := []model.Game{}
		for _, g := range games {
			if string(g.Status) == status {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}

	writeJSON(w, http.StatusOK, games)
}

// JoinGame handles POST /api/v1/games/{gameID}/players
func (s *Service) JoinGame(w http.ResponseWriter, r *http.Request) {
	var req JoinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		writeError(w, "nickname is required", http.StatusBadRequest)
		return
	}

	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	if game.Status == model.StatusFinished {
		writeError(w, "game is finished", http.StatusConflict)
		return
	}

	player := &model.Player{
		GameID:     game.ID,
		PlayerID:   req.PlayerID,
		Nickname:   nickname,
		CallOption: model.UndecidedCall(),
		JoinedAt:   time.Now().UTC(),
	}
	if player.PlayerID == "" {
		player.PlayerID = uuid.New().String()
	}

	if err := s.store.AddPlayer(r.Context(), player); err != nil {
		writeError(w, "failed to join game", storeStatus(err))
		return
	}

	s.log.Info("player joined", "game_id", game.ID, "player", player.PlayerID)
	s.broadcast(WSMessage{
		Type:     MsgPlayerJoined,
		GameID:   game.ID,
		PlayerID: player.PlayerID,
		Nickname: player.Nickname,
		Text:     player.Nickname + " joined the game!",
	})

	writeJSON(w, http.StatusCreated, GameResponse{Game: game, Player: player})
}

// ListPlayers handles GET /api/v1/games/{gameID}/players
func (s *Service) ListPlayers(w http.ResponseWriter, r *http.Request) {
	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	players, err := s.store.ListPlayers(r.Context(), game.ID)
	if err != nil {
		writeError(w, "failed to list players", http.StatusInternalServerError)
		return
	}
	if players == nil {
		players = []model.Player{}
	}
	writeJSON(w, http.StatusOK, players)
}

// --- Helpers ---

// loadGame resolves the {gameID} URL parameter, writing the error
// response itself when the game cannot be loaded.
func (s *Service) loadGame(w http.ResponseWriter, r *http.Request) (*model.Game, bool) {
	id, err := lobby.ParseCode(chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	game, err := s.store.GetGame(r.Context(), id)
	if err != nil {
		writeError(w, "game not found", storeStatus(err))
		return nil, false
	}
	return game, true
}

// loadPlayer resolves the {playerID} URL parameter within game.
func (s *Service) loadPlayer(w http.ResponseWriter, r *http.Request, game *model.Game) (*model.Player, bool) {
	player, err := s.store.GetPlayer(r.Context(), game.ID, chi.URLParam(r, "playerID"))
	if err != nil {
		writeError(w, "player not found", storeStatus(err))
		return nil, false
	}
	return player, true
}

func (s *Service) broadcast(msg WSMessage) {
	if s.wsHub != nil {
		s.wsHub.Broadcast(msg)
	}
}

func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
