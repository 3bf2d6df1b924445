package game

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/limits"
	"github.com/sipmarket/market-engine/internal/lobby"
	"github.com/sipmarket/market-engine/internal/metrics"
	"github.com/sipmarket/market-engine/internal/model"
	"github.com/sipmarket/market-engine/internal/settlement"
)

// BetResponse is the JSON body returned from POST /games/{gameID}/bets.
type BetResponse struct {
	Bet         model.Bet       `json:"bet"`
	UpfrontSips decimal.Decimal `json:"upfront_sips"` // player's total to drink so far
}

// PlayerView is a player's state together with their exposure.
type PlayerView struct {
	Player           model.Player    `json:"player"`
	Bets             []model.Bet     `json:"bets"`
	UpfrontSips      decimal.Decimal `json:"upfront_sips"`
	HandOutPotential decimal.Decimal `json:"hand_out_potential"`
}

// PlaceBet handles POST /api/v1/games/{gameID}/bets
func (s *Service) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req lobby.BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" {
		writeError(w, "player_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Serialize admission so limit checks see every prior bet.
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	if game.Status == model.StatusFinished {
		writeError(w, "game is finished", http.StatusConflict)
		return
	}

	player, err := s.store.GetPlayer(ctx, game.ID, req.PlayerID)
	if err != nil {
		writeError(w, "player not found", storeStatus(err))
		return
	}

	bet, err := lobby.ParseBet(game.ID, req, game.Rules)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var target *model.Player
	if bet.PutOptionPlayer != "" {
		if bet.PutOptionPlayer == player.PlayerID {
			writeError(w, "cannot put an option on yourself", http.StatusBadRequest)
			return
		}
		target, err = s.store.GetPlayer(ctx, game.ID, bet.PutOptionPlayer)
		if err != nil {
			writeError(w, "put option player not found", http.StatusBadRequest)
			return
		}
	}

	existing, err := s.store.GetBetsByPlayer(ctx, game.ID, player.PlayerID)
	if err != nil {
		writeError(w, "failed to check bet limits", http.StatusInternalServerError)
		return
	}
	if err := s.limiter.CheckBet(bet, existing); err != nil {
		metrics.BetLimitRejections.WithLabelValues(limitReason(err)).Inc()
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	bet.ID = uuid.New().String()
	bet.CreatedAt = time.Now().UTC()
	if err := s.store.InsertBet(ctx, &bet); err != nil {
		writeError(w, "failed to record bet", http.StatusInternalServerError)
		return
	}

	metrics.BetsTotal.WithLabelValues(string(bet.Type)).Inc()
	upfront := settlement.UpfrontSips(append(existing, bet), game.Rules)

	s.log.Info("bet placed",
		"bet_id", bet.ID,
		"game_id", game.ID,
		"player", player.PlayerID,
		"type", bet.Type,
		"asset", bet.Asset,
		"amount", bet.Amount.String(),
	)

	targetName := ""
	if target != nil {
		targetName = target.Nickname
	}
	s.broadcast(WSMessage{
		Type:     MsgBetPlaced,
		GameID:   game.ID,
		PlayerID: player.PlayerID,
		Nickname: player.Nickname,
		Text:     betPlacedText(player.Nickname, bet, targetName),
		Payload:  bet,
	})

	writeJSON(w, http.StatusCreated, BetResponse{Bet: bet, UpfrontSips: upfront})
}

// ListBets handles GET /api/v1/games/{gameID}/bets
func (s *Service) ListBets(w http.ResponseWriter, r *http.Request) {
	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	bets, err := s.store.GetBetsByGame(r.Context(), game.ID)
	if err != nil {
		writeError(w, "failed to list bets", http.StatusInternalServerError)
		return
	}
	if bets == nil {
		bets = []model.Bet{}
	}
	writeJSON(w, http.StatusOK, bets)
}

// GetPlayer handles GET /api/v1/games/{gameID}/players/{playerID}
// Returns the player with their bets, up-front cost, and best-case hand-out.
func (s *Service) GetPlayer(w http.ResponseWriter, r *http.Request) {
	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	player, ok := s.loadPlayer(w, r, game)
	if !ok {
		return
	}

	bets, err := s.store.GetBetsByPlayer(r.Context(), game.ID, player.PlayerID)
	if err != nil {
		writeError(w, "failed to load bets", http.StatusInternalServerError)
		return
	}
	if bets == nil {
		bets = []model.Bet{}
	}

	writeJSON(w, http.StatusOK, PlayerView{
		Player:           *player,
		Bets:             bets,
		UpfrontSips:      settlement.UpfrontSips(bets, game.Rules),
		HandOutPotential: settlement.HandOutPotential(bets, game.Rules),
	})
}

func limitReason(err error) string {
	switch {
	case errors.Is(err, limits.ErrDuplicateBetType):
		return "duplicate_type"
	case errors.Is(err, limits.ErrBetLimitExceeded):
		return "per_bet"
	case errors.Is(err, limits.ErrPlayerLimitExceeded):
		return "per_player"
	}
	return "other"
}
