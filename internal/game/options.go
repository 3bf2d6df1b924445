package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sipmarket/market-engine/internal/model"
	"github.com/sipmarket/market-engine/internal/settlement"
)

// CallOptionRequest is the JSON body for the call-option decision.
type CallOptionRequest struct {
	Use bool `json:"use"`
}

// DecideCallOption handles POST /api/v1/games/{gameID}/players/{playerID}/call-option
// Using the option moves all of the player's investments onto the asset of
// their CALL bet. The decision is final. Once the window has opened it
// stays open even if the leader falls back below the threshold.
func (s *Service) DecideCallOption(w http.ResponseWriter, r *http.Request) {
	var req CallOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	if game.Status != model.StatusInProgress {
		writeError(w, "game is not in progress", http.StatusConflict)
		return
	}
	if !game.CallWindowOpen {
		writeError(w, "call option window is not open", http.StatusConflict)
		return
	}

	player, ok := s.loadPlayer(w, r, game)
	if !ok {
		return
	}
	callBet, ok := s.optionBet(w, r, game.ID, player.PlayerID, model.BetCall)
	if !ok {
		return
	}

	var next model.CallOption
	var err error
	if req.Use {
		next, err = player.CallOption.Use(callBet.Asset)
	} else {
		next, err = player.CallOption.Decline()
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, model.ErrCallOptionDecided) {
			status = http.StatusConflict
		}
		writeError(w, err.Error(), status)
		return
	}

	player.CallOption = next
	if err := s.store.UpdatePlayer(ctx, player); err != nil {
		writeError(w, "failed to save call option", storeStatus(err))
		return
	}

	s.log.Info("call option decided",
		"game_id", game.ID,
		"player", player.PlayerID,
		"decision", next.Decision,
		"asset", next.Asset,
	)
	s.broadcast(WSMessage{
		Type:     MsgCallOptionUsed,
		GameID:   game.ID,
		PlayerID: player.PlayerID,
		Nickname: player.Nickname,
		Text:     callOptionText(player.Nickname, next),
		Payload:  next,
	})

	writeJSON(w, http.StatusOK, player)
}

// UsePutOption handles POST /api/v1/games/{gameID}/players/{playerID}/put-option
// Once the put window has opened, a PUT holder may call in their option:
// the targeted player drinks the put base amount.
func (s *Service) UsePutOption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	if game.Status != model.StatusInProgress {
		writeError(w, "game is not in progress", http.StatusConflict)
		return
	}
	if !game.PutWindowOpen {
		writeError(w, "put option window is not open", http.StatusConflict)
		return
	}

	player, ok := s.loadPlayer(w, r, game)
	if !ok {
		return
	}
	if player.PutOptionUsed {
		writeError(w, "put option already used", http.StatusConflict)
		return
	}
	putBet, ok := s.optionBet(w, r, game.ID, player.PlayerID, model.BetPut)
	if !ok {
		return
	}

	player.PutOptionUsed = true
	if err := s.store.UpdatePlayer(ctx, player); err != nil {
		writeError(w, "failed to save put option", storeStatus(err))
		return
	}

	target := putBet.PutOptionPlayer
	if t, err := s.store.GetPlayer(ctx, game.ID, target); err == nil {
		target = t.Nickname
	}
	text := fmt.Sprintf("%s exercised a put option for %s sips", player.Nickname, game.Rules.PutBaseAmount)
	if target != "" {
		text = fmt.Sprintf("%s exercised a put option: %s drinks %s sips", player.Nickname, target, game.Rules.PutBaseAmount)
	}

	s.log.Info("put option used", "game_id", game.ID, "player", player.PlayerID, "target", putBet.PutOptionPlayer)
	s.broadcast(WSMessage{
		Type:     MsgPutOptionPlayer,
		GameID:   game.ID,
		PlayerID: player.PlayerID,
		Nickname: player.Nickname,
		Text:     text,
		Payload:  putBet,
	})

	writeJSON(w, http.StatusOK, player)
}

// SipsTaken handles POST /api/v1/games/{gameID}/players/{playerID}/sips-taken
// Records that the player drank their up-front sips.
func (s *Service) SipsTaken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	player, ok := s.loadPlayer(w, r, game)
	if !ok {
		return
	}

	bets, err := s.store.GetBetsByPlayer(ctx, game.ID, player.PlayerID)
	if err != nil {
		writeError(w, "failed to load bets", http.StatusInternalServerError)
		return
	}

	player.SipsTaken = true
	if err := s.store.UpdatePlayer(ctx, player); err != nil {
		writeError(w, "failed to save player", storeStatus(err))
		return
	}

	sips := settlement.UpfrontSips(bets, game.Rules)
	s.broadcast(WSMessage{
		Type:     MsgSipsTaken,
		GameID:   game.ID,
		PlayerID: player.PlayerID,
		Nickname: player.Nickname,
		Text:     fmt.Sprintf("%s took their %s sips. Cheers!", player.Nickname, sips),
		Payload:  map[string]any{"sips": sips},
	})

	writeJSON(w, http.StatusOK, player)
}

// GetSettlement handles GET /api/v1/games/{gameID}/settlement
// Only available once the game is finished.
func (s *Service) GetSettlement(w http.ResponseWriter, r *http.Request) {
	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	if game.Status != model.StatusFinished {
		writeError(w, "game is not finished", http.StatusConflict)
		return
	}

	res, err := s.settle(r.Context(), game)
	if err != nil {
		writeError(w, "failed to settle game", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// optionBet finds the player's bet of the given option type.
func (s *Service) optionBet(w http.ResponseWriter, r *http.Request, gameID, playerID string, typ model.BetType) (model.Bet, bool) {
	bets, err := s.store.GetBetsByPlayer(r.Context(), gameID, playerID)
	if err != nil {
		writeError(w, "failed to load bets", http.StatusInternalServerError)
		return model.Bet{}, false
	}
	for _, b := range bets {
		if b.Type == typ {
			return b, true
		}
	}
	writeError(w, fmt.Sprintf("player holds no %s option", typ), http.StatusConflict)
	return model.Bet{}, false
}
