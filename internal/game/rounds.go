package game

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sipmarket/market-engine/internal/market"
	"github.com/sipmarket/market-engine/internal/metrics"
	"github.com/sipmarket/market-engine/internal/model"
	"github.com/sipmarket/market-engine/internal/settlement"
)

// RoundResponse is the JSON body returned from POST /games/{gameID}/rounds.
type RoundResponse struct {
	Round          int                     `json:"round"`
	Changes        []model.AssetChange     `json:"changes"`
	Events         []model.MarketEventCard `json:"events"`
	CallOptionOpen bool                    `json:"call_option_open"`
	PutOptionOpen  bool                    `json:"put_option_open"`
	Finished       bool                    `json:"finished"`
	Game           *model.Game             `json:"game"`
}

// StartGame handles POST /api/v1/games/{gameID}/start
func (s *Service) StartGame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}

	if _, err := s.transition(r.Context(), game, market.StartGame{}); err != nil {
		writeError(w, err.Error(), reduceStatus(err))
		return
	}

	s.log.Info("game started", "game_id", game.ID)
	writeJSON(w, http.StatusOK, game)
}

// NextRound handles POST /api/v1/games/{gameID}/rounds
// Generates one market day, applies it with any event cards it reveals,
// and ends the game once an asset passes the board edge.
func (s *Service) NextRound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.loadGame(w, r)
	if !ok {
		return
	}

	changes := market.GenerateRoundChanges(s.rng, game.Rules.MaxGain())
	effects, err := s.transition(ctx, game, market.NewRound{Changes: changes})
	if err != nil {
		writeError(w, err.Error(), reduceStatus(err))
		return
	}

	resp := RoundResponse{
		Round:   game.Round,
		Changes: changes,
		Events:  []model.MarketEventCard{},
		Game:    game,
	}
	for _, e := range effects {
		switch e.Kind {
		case market.EffectCardRevealed:
			resp.Events = append(resp.Events, *e.Card)
		case market.EffectCallOptionOpen:
			resp.CallOptionOpen = true
		case market.EffectPutOptionOpen:
			resp.PutOptionOpen = true
		}
	}
	resp.Finished = game.Status == model.StatusFinished

	metrics.RoundsTotal.Inc()
	metrics.RoundLatency.Observe(time.Since(start).Seconds())

	leader := market.Leader(game.Assets)
	s.log.Info("market day",
		"game_id", game.ID,
		"round", game.Round,
		"leader", leader.Asset,
		"leader_position", leader.Position,
		"cards", len(resp.Events),
		"finished", resp.Finished,
	)

	writeJSON(w, http.StatusOK, resp)
}

// transition runs the reducer on game, writes the result back onto it,
// and carries out the effects. Callers hold s.mu.
func (s *Service) transition(ctx context.Context, game *model.Game, ev market.Event) ([]market.Effect, error) {
	next, effects, err := market.Reduce(market.StateOf(game), ev, game.Rules)
	if err != nil {
		return nil, err
	}
	next.ApplyTo(game)

	for _, e := range effects {
		switch e.Kind {
		case market.EffectPersist:
			if err := s.store.UpdateGame(ctx, game); err != nil {
				s.log.Error("persist game failed", "game_id", game.ID, "err", err)
				return nil, errPersist
			}

		case market.EffectMarketDay:
			s.broadcast(WSMessage{
				Type:    MsgNewMarketDay,
				GameID:  game.ID,
				Text:    marketDayText(e.Changes),
				Payload: e.Changes,
			})

		case market.EffectCardRevealed:
			metrics.EventCardsFlipped.WithLabelValues(string(e.Card.Type)).Inc()
			s.broadcast(WSMessage{
				Type:    MsgMarketEvent,
				GameID:  game.ID,
				Text:    marketEventText(*e.Card),
				Payload: e.Card,
			})

		case market.EffectStatusChanged:
			s.broadcast(WSMessage{
				Type:    MsgGameState,
				GameID:  game.ID,
				Text:    statusText(e.Status),
				Payload: map[string]model.GameStatus{"status": e.Status},
			})
			switch e.Status {
			case model.StatusInProgress:
				metrics.ActiveGames.Inc()
			case model.StatusFinished:
				metrics.ActiveGames.Dec()
				metrics.GamesFinished.Inc()
				s.announceSettlement(ctx, game)
			}

		case market.EffectCallOptionOpen:
			s.announceCallWindow(ctx, game)

		case market.EffectPutOptionOpen:
			s.broadcast(WSMessage{
				Type:   MsgPutOptionOpen,
				GameID: game.ID,
				Text:   fmt.Sprintf("The market passed %.0f%%. Put options can be exercised!", game.Rules.PutPercent),
			})
		}
	}
	return effects, nil
}

var errPersist = errors.New("failed to save game state")

// announceCallWindow tells the players who still hold an undecided call
// option that they may now use it.
func (s *Service) announceCallWindow(ctx context.Context, game *model.Game) {
	players, err := s.store.ListPlayers(ctx, game.ID)
	if err != nil {
		s.log.Warn("call window: list players failed", "game_id", game.ID, "err", err)
		return
	}
	bets, err := s.store.GetBetsByGame(ctx, game.ID)
	if err != nil {
		s.log.Warn("call window: list bets failed", "game_id", game.ID, "err", err)
		return
	}

	holders := map[string]bool{}
	for _, b := range bets {
		if b.Type == model.BetCall {
			holders[b.PlayerID] = true
		}
	}

	var names, ids []string
	for _, p := range players {
		if holders[p.PlayerID] && p.CallOption.IsUndecided() {
			names = append(names, p.Nickname)
			ids = append(ids, p.PlayerID)
		}
	}
	if len(ids) == 0 {
		return
	}

	s.broadcast(WSMessage{
		Type:    MsgCallOptionOpen,
		GameID:  game.ID,
		Text:    fmt.Sprintf("The market passed %.0f%%! %s can use their call option.", game.Rules.CallPercent, strings.Join(names, ", ")),
		Payload: map[string][]string{"players": ids},
	})
}

// announceSettlement broadcasts the final report and records sip totals.
func (s *Service) announceSettlement(ctx context.Context, game *model.Game) {
	res, err := s.settle(ctx, game)
	if err != nil {
		s.log.Warn("settlement failed", "game_id", game.ID, "err", err)
		return
	}

	for _, sum := range res.PlayerSipSummary {
		metrics.SipsSettled.WithLabelValues("deal").Add(sum.SipsToDealOut.InexactFloat64())
		metrics.SipsSettled.WithLabelValues("drink").Add(sum.SipsToDrink.InexactFloat64())
	}

	winners := make([]string, len(res.WinningAssets))
	for i, a := range res.WinningAssets {
		winners[i] = a.Label()
	}
	s.broadcast(WSMessage{
		Type:    MsgGameFinished,
		GameID:  game.ID,
		Text:    "Market closed! Winning: " + strings.Join(winners, ", "),
		Payload: res,
	})
}

func (s *Service) settle(ctx context.Context, game *model.Game) (settlement.Result, error) {
	bets, err := s.store.GetBetsByGame(ctx, game.ID)
	if err != nil {
		return settlement.Result{}, err
	}
	players, err := s.store.ListPlayers(ctx, game.ID)
	if err != nil {
		return settlement.Result{}, err
	}
	return settlement.Settle(bets, players, game.Assets.Positions(), game.Rules), nil
}

func reduceStatus(err error) int {
	switch {
	case errors.Is(err, market.ErrGameNotStarted),
		errors.Is(err, market.ErrGameFinished),
		errors.Is(err, market.ErrGameAlreadyStarted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
