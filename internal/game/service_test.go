package game_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/game"
	"github.com/sipmarket/market-engine/internal/limits"
	"github.com/sipmarket/market-engine/internal/market"
	"github.com/sipmarket/market-engine/internal/model"
	"github.com/sipmarket/market-engine/internal/settlement"
	"github.com/sipmarket/market-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var testRules = model.GameRules{
	Rounds:           10,
	InvestMultiplier: d(2),
	ShortMultiplier:  d(3),
	CallPercent:      50,
	PutPercent:       40,
	CallBaseAmount:   d(7),
	PutBaseAmount:    d(5),
}

// newTestEnv creates a test Service with in-memory store and chi router.
func newTestEnv(t *testing.T) (*game.Service, *store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	limiter := limits.NewBetLimiter(d(30), d(60))
	rng := market.NewLockedRand(market.NewRand(42))
	svc := game.NewService(ms, limiter, rng, testRules, nil, nil)

	r := chi.NewRouter()
	r.Route("/api/v1", svc.Routes)

	return svc, ms, r
}

// seedGame creates a test game directly in the store with the given players.
func seedGame(t *testing.T, ms *store.MemoryStore, status model.GameStatus, players ...string) *model.Game {
	t.Helper()
	ctx := context.Background()
	g := &model.Game{
		ID:        "ABC123",
		Status:    status,
		Rules:     testRules,
		Assets:    model.NewAssets(),
		Deck:      []model.MarketEventCard{},
		CreatedBy: "p1",
		CreatedAt: time.Now().UTC(),
	}
	if err := ms.CreateGame(ctx, g); err != nil {
		t.Fatalf("failed to seed game: %v", err)
	}
	for _, id := range players {
		p := &model.Player{GameID: g.ID, PlayerID: id, Nickname: "nick-" + id, CallOption: model.UndecidedCall(), JoinedAt: time.Now().UTC()}
		if err := ms.AddPlayer(ctx, p); err != nil {
			t.Fatalf("failed to seed player: %v", err)
		}
	}
	return g
}

// seedBet writes a bet straight into the ledger.
func seedBet(t *testing.T, ms *store.MemoryStore, player string, typ model.BetType, asset model.Asset, amount float64) {
	t.Helper()
	b := &model.Bet{ID: player + "-" + string(typ), GameID: "ABC123", PlayerID: player, Type: typ, Asset: asset, Amount: d(amount), CreatedAt: time.Now().UTC()}
	if err := ms.InsertBet(context.Background(), b); err != nil {
		t.Fatalf("failed to seed bet: %v", err)
	}
}

// setLeader moves one asset to pos.
func setLeader(t *testing.T, ms *store.MemoryStore, asset model.Asset, pos float64) {
	t.Helper()
	ctx := context.Background()
	g, err := ms.GetGame(ctx, "ABC123")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	g.Assets[asset] = model.AssetState{Asset: asset, Position: pos}
	if err := ms.UpdateGame(ctx, g); err != nil {
		t.Fatalf("update game: %v", err)
	}
}

// openWindows marks both option windows as already opened.
func openWindows(t *testing.T, ms *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	g, err := ms.GetGame(ctx, "ABC123")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	g.CallWindowOpen, g.PutWindowOpen = true, true
	if err := ms.UpdateGame(ctx, g); err != nil {
		t.Fatalf("update game: %v", err)
	}
}

func do(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// --- Lobby tests ---

func TestCreateGame_Valid(t *testing.T) {
	_, ms, router := newTestEnv(t)

	w := do(t, router, "POST", "/api/v1/games", game.CreateGameRequest{PlayerID: "host", Nickname: "Host"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp game.GameResponse
	decode(t, w, &resp)

	if len(resp.Game.ID) != 6 {
		t.Errorf("expected 6-char code, got %q", resp.Game.ID)
	}
	if resp.Game.Status != model.StatusNotStarted {
		t.Errorf("expected not_started, got %s", resp.Game.Status)
	}
	if len(resp.Game.Deck) == 0 || len(resp.Game.Deck) > testRules.DeckSize() {
		t.Errorf("expected 1..%d cards, got %d", testRules.DeckSize(), len(resp.Game.Deck))
	}
	if len(resp.Game.Assets) != 4 {
		t.Errorf("expected 4 assets, got %d", len(resp.Game.Assets))
	}

	p, err := ms.GetPlayer(context.Background(), resp.Game.ID, "host")
	if err != nil {
		t.Fatalf("creator not stored: %v", err)
	}
	if !p.CallOption.IsUndecided() {
		t.Errorf("expected undecided call option, got %+v", p.CallOption)
	}
}

func TestCreateGame_RuleOverrides(t *testing.T) {
	_, _, router := newTestEnv(t)

	rounds := 4
	body := map[string]any{
		"nickname": "Host",
		"rules":    map[string]any{"rounds": rounds, "call_percent": 0},
	}
	w := do(t, router, "POST", "/api/v1/games", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp game.GameResponse
	decode(t, w, &resp)
	if resp.Game.Rules.Rounds != 4 || resp.Game.Rules.CallPercent != 0 {
		t.Errorf("overrides not applied: %+v", resp.Game.Rules)
	}
	if resp.Player.PlayerID == "" {
		t.Error("expected generated player id")
	}
}

func TestCreateGame_Invalid(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "POST", "/api/v1/games", game.CreateGameRequest{Nickname: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing nickname: expected 400, got %d", w.Code)
	}

	w = do(t, router, "POST", "/api/v1/games", map[string]any{"nickname": "x", "rules": map[string]any{"rounds": 0}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero rounds: expected 400, got %d", w.Code)
	}
}

func TestGetGame(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusNotStarted)

	if w := do(t, router, "GET", "/api/v1/games/abc123", nil); w.Code != http.StatusOK {
		t.Errorf("lower-case code: expected 200, got %d", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/games/ZZZ999", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown code: expected 404, got %d", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/games/bad-code", nil); w.Code != http.StatusBadRequest {
		t.Errorf("malformed code: expected 400, got %d", w.Code)
	}
}

func TestJoinGame(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")

	w := do(t, router, "POST", "/api/v1/games/ABC123/players", game.JoinGameRequest{PlayerID: "p2", Nickname: "Bo"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, "POST", "/api/v1/games/ABC123/players", game.JoinGameRequest{PlayerID: "p2", Nickname: "Bo"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate join: expected 409, got %d", w.Code)
	}

	w = do(t, router, "GET", "/api/v1/games/ABC123/players", nil)
	var players []model.Player
	decode(t, w, &players)
	if len(players) != 2 {
		t.Errorf("expected 2 players, got %d", len(players))
	}
}

func TestJoinGame_Finished(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusFinished)

	w := do(t, router, "POST", "/api/v1/games/ABC123/players", game.JoinGameRequest{Nickname: "Late"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

// --- Bet tests ---

func TestPlaceBet_Invest(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusNotStarted, "p1")

	w := do(t, router, "POST", "/api/v1/games/ABC123/bets", map[string]any{
		"player_id": "p1", "asset": "gold", "type": "invest", "amount": 5,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp game.BetResponse
	decode(t, w, &resp)
	if resp.Bet.ID == "" {
		t.Error("expected bet id")
	}
	if !resp.UpfrontSips.Equal(d(5)) {
		t.Errorf("expected upfront 5, got %s", resp.UpfrontSips)
	}

	bets, _ := ms.GetBetsByGame(context.Background(), "ABC123")
	if len(bets) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(bets))
	}
}

func TestPlaceBet_CallUsesBaseAmount(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")

	w := do(t, router, "POST", "/api/v1/games/ABC123/bets", map[string]any{
		"player_id": "p1", "asset": "crypto", "type": "call", "amount": 25,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp game.BetResponse
	decode(t, w, &resp)
	if !resp.Bet.Amount.Equal(d(7)) {
		t.Errorf("expected call amount 7, got %s", resp.Bet.Amount)
	}
}

func TestPlaceBet_Rejections(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1", "p2")
	seedBet(t, ms, "p1", model.BetInvest, model.AssetGold, 3)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"duplicate type", map[string]any{"player_id": "p1", "asset": "bonds", "type": "invest", "amount": 2}, http.StatusConflict},
		{"per-bet limit", map[string]any{"player_id": "p2", "asset": "bonds", "type": "short", "amount": 31}, http.StatusConflict},
		{"unknown asset", map[string]any{"player_id": "p2", "asset": "oil", "type": "short", "amount": 2}, http.StatusBadRequest},
		{"zero amount", map[string]any{"player_id": "p2", "asset": "gold", "type": "invest", "amount": 0}, http.StatusBadRequest},
		{"bad type", map[string]any{"player_id": "p2", "asset": "gold", "type": "hodl", "amount": 1}, http.StatusBadRequest},
		{"unknown player", map[string]any{"player_id": "ghost", "asset": "gold", "type": "invest", "amount": 1}, http.StatusNotFound},
		{"put on self", map[string]any{"player_id": "p2", "type": "put", "put_option_player": "p2"}, http.StatusBadRequest},
		{"missing player", map[string]any{"asset": "gold", "type": "invest", "amount": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := do(t, router, "POST", "/api/v1/games/ABC123/bets", tt.body)
		if w.Code != tt.want {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.want, w.Code, w.Body.String())
		}
	}
}

func TestPlaceBet_FinishedGame(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusFinished, "p1")

	w := do(t, router, "POST", "/api/v1/games/ABC123/bets", map[string]any{
		"player_id": "p1", "asset": "gold", "type": "invest", "amount": 1,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestGetPlayer_Exposure(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")
	seedBet(t, ms, "p1", model.BetInvest, model.AssetGold, 4)
	seedBet(t, ms, "p1", model.BetShort, model.AssetBonds, 2)
	seedBet(t, ms, "p1", model.BetCall, model.AssetCrypto, 7)

	w := do(t, router, "GET", "/api/v1/games/ABC123/players/p1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var view game.PlayerView
	decode(t, w, &view)

	// 4 + 2 + 7 up front; 4x2 + 2x3 best case.
	if !view.UpfrontSips.Equal(d(13)) {
		t.Errorf("expected upfront 13, got %s", view.UpfrontSips)
	}
	if !view.HandOutPotential.Equal(d(14)) {
		t.Errorf("expected potential 14, got %s", view.HandOutPotential)
	}
	if len(view.Bets) != 3 {
		t.Errorf("expected 3 bets, got %d", len(view.Bets))
	}
}

// --- Round tests ---

func TestStartGame(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusNotStarted, "p1")

	w := do(t, router, "POST", "/api/v1/games/ABC123/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	g, _ := ms.GetGame(context.Background(), "ABC123")
	if g.Status != model.StatusInProgress {
		t.Errorf("expected in_progress, got %s", g.Status)
	}

	w = do(t, router, "POST", "/api/v1/games/ABC123/start", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second start: expected 409, got %d", w.Code)
	}
}

func TestNextRound_NotStarted(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusNotStarted)

	w := do(t, router, "POST", "/api/v1/games/ABC123/rounds", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestNextRound_AdvancesBoard(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress)

	w := do(t, router, "POST", "/api/v1/games/ABC123/rounds", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp game.RoundResponse
	decode(t, w, &resp)

	if resp.Round != 1 {
		t.Errorf("expected round 1, got %d", resp.Round)
	}
	if len(resp.Changes) != 4 {
		t.Fatalf("expected 4 changes, got %d", len(resp.Changes))
	}
	moved := false
	for _, c := range resp.Changes {
		if c.Change > 0 {
			moved = true
		}
		if got := resp.Game.Assets[c.Asset].Position; got < 0 {
			t.Errorf("%s below zero: %v", c.Asset, got)
		}
	}
	if !moved {
		t.Error("expected at least one gaining asset")
	}

	stored, _ := ms.GetGame(context.Background(), "ABC123")
	if stored.Round != 1 {
		t.Errorf("round not persisted, got %d", stored.Round)
	}
}

func TestNextRound_PlaysToSettlement(t *testing.T) {
	_, ms, router := newTestEnv(t)
	g := seedGame(t, ms, model.StatusInProgress, "p1", "p2")
	g.Rules.Rounds = 2
	if err := ms.UpdateGame(context.Background(), g); err != nil {
		t.Fatalf("update: %v", err)
	}
	seedBet(t, ms, "p1", model.BetInvest, model.AssetGold, 5)
	seedBet(t, ms, "p2", model.BetShort, model.AssetGold, 3)

	if w := do(t, router, "GET", "/api/v1/games/ABC123/settlement", nil); w.Code != http.StatusConflict {
		t.Errorf("settlement before finish: expected 409, got %d", w.Code)
	}

	finished := false
	for i := 0; i < 50 && !finished; i++ {
		w := do(t, router, "POST", "/api/v1/games/ABC123/rounds", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("round %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
		var resp game.RoundResponse
		decode(t, w, &resp)
		finished = resp.Finished
	}
	if !finished {
		t.Fatal("game did not finish")
	}

	if w := do(t, router, "POST", "/api/v1/games/ABC123/rounds", nil); w.Code != http.StatusConflict {
		t.Errorf("round after finish: expected 409, got %d", w.Code)
	}

	w := do(t, router, "GET", "/api/v1/games/ABC123/settlement", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res settlement.Result
	decode(t, w, &res)

	if len(res.WinningAssets) == 0 {
		t.Fatal("expected a winning asset")
	}
	if len(res.PlayerSipSummary) != 2 {
		t.Errorf("expected 2 summaries, got %d", len(res.PlayerSipSummary))
	}

	goldWon := false
	for _, a := range res.WinningAssets {
		if a == model.AssetGold {
			goldWon = true
		}
	}
	p1, _ := res.Summary("p1")
	p2, _ := res.Summary("p2")
	if goldWon {
		if !p1.SipsToDealOut.Equal(d(10)) || !p2.SipsToDrink.Equal(d(3)) {
			t.Errorf("gold won: unexpected summaries %+v %+v", p1, p2)
		}
	} else {
		if !p1.SipsToDealOut.IsZero() || !p2.SipsToDealOut.Equal(d(9)) {
			t.Errorf("gold lost: unexpected summaries %+v %+v", p1, p2)
		}
	}
}

// --- Option tests ---

func TestDecideCallOption(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")
	seedBet(t, ms, "p1", model.BetCall, model.AssetCrypto, 7)

	// Window closed below the call threshold.
	w := do(t, router, "POST", "/api/v1/games/ABC123/players/p1/call-option", game.CallOptionRequest{Use: true})
	if w.Code != http.StatusConflict {
		t.Fatalf("closed window: expected 409, got %d", w.Code)
	}

	openWindows(t, ms)

	w = do(t, router, "POST", "/api/v1/games/ABC123/players/p1/call-option", game.CallOptionRequest{Use: true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	p, _ := ms.GetPlayer(context.Background(), "ABC123", "p1")
	asset, ok := p.CallOption.UsedAsset()
	if !ok || asset != model.AssetCrypto {
		t.Errorf("expected used on crypto, got %+v", p.CallOption)
	}

	w = do(t, router, "POST", "/api/v1/games/ABC123/players/p1/call-option", game.CallOptionRequest{Use: false})
	if w.Code != http.StatusConflict {
		t.Errorf("second decision: expected 409, got %d", w.Code)
	}
}

func TestDecideCallOption_BoardAloneDoesNotOpenWindow(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")
	seedBet(t, ms, "p1", model.BetCall, model.AssetCrypto, 7)
	setLeader(t, ms, model.AssetGold, 60)

	w := do(t, router, "POST", "/api/v1/games/ABC123/players/p1/call-option", game.CallOptionRequest{Use: true})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 until a market day opens the window, got %d", w.Code)
	}
}

func TestDecideCallOption_WindowStaysOpenAfterLeaderFalls(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")
	seedBet(t, ms, "p1", model.BetCall, model.AssetBonds, 7)
	setLeader(t, ms, model.AssetGold, 70)

	w := do(t, router, "POST", "/api/v1/games/ABC123/rounds", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("round: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp game.RoundResponse
	decode(t, w, &resp)
	if !resp.CallOptionOpen || !resp.Game.CallWindowOpen {
		t.Fatalf("expected the call window to open, got %+v", resp)
	}

	// A bear card drags the leader back under the threshold.
	setLeader(t, ms, model.AssetGold, 20)

	w = do(t, router, "POST", "/api/v1/games/ABC123/players/p1/call-option", game.CallOptionRequest{Use: true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after the leader fell back, got %d: %s", w.Code, w.Body.String())
	}
	p, _ := ms.GetPlayer(context.Background(), "ABC123", "p1")
	if asset, ok := p.CallOption.UsedAsset(); !ok || asset != model.AssetBonds {
		t.Errorf("expected used on bonds, got %+v", p.CallOption)
	}

	// The window is announced once, not on every later round.
	w = do(t, router, "POST", "/api/v1/games/ABC123/rounds", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second round: expected 200, got %d", w.Code)
	}
	resp = game.RoundResponse{}
	decode(t, w, &resp)
	if resp.CallOptionOpen || resp.PutOptionOpen {
		t.Errorf("windows re-announced: call=%v put=%v", resp.CallOptionOpen, resp.PutOptionOpen)
	}
	if !resp.Game.CallWindowOpen {
		t.Error("call window closed after reopening round")
	}
}

func TestDecideCallOption_NoCallBet(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")
	openWindows(t, ms)

	w := do(t, router, "POST", "/api/v1/games/ABC123/players/p1/call-option", game.CallOptionRequest{Use: true})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestUsePutOption(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1", "p2")
	seedBet(t, ms, "p1", model.BetPut, "", 5)

	w := do(t, router, "POST", "/api/v1/games/ABC123/players/p1/put-option", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("closed window: expected 409, got %d", w.Code)
	}

	setLeader(t, ms, model.AssetBonds, 70)
	if w := do(t, router, "POST", "/api/v1/games/ABC123/rounds", nil); w.Code != http.StatusOK {
		t.Fatalf("round: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	setLeader(t, ms, model.AssetBonds, 10)

	w = do(t, router, "POST", "/api/v1/games/ABC123/players/p1/put-option", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	p, _ := ms.GetPlayer(context.Background(), "ABC123", "p1")
	if !p.PutOptionUsed {
		t.Error("expected put_option_used=true")
	}

	w = do(t, router, "POST", "/api/v1/games/ABC123/players/p1/put-option", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second use: expected 409, got %d", w.Code)
	}
}

func TestSipsTaken(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")

	w := do(t, router, "POST", "/api/v1/games/ABC123/players/p1/sips-taken", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	p, _ := ms.GetPlayer(context.Background(), "ABC123", "p1")
	if !p.SipsTaken {
		t.Error("expected sips_taken=true")
	}

	if w := do(t, router, "POST", "/api/v1/games/ABC123/players/ghost/sips-taken", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown player: expected 404, got %d", w.Code)
	}
}

func TestRematch(t *testing.T) {
	_, ms, router := newTestEnv(t)
	seedGame(t, ms, model.StatusInProgress, "p1")

	w := do(t, router, "POST", "/api/v1/games/ABC123/rematch", game.CreateGameRequest{PlayerID: "p1", Nickname: "Ana"})
	if w.Code != http.StatusConflict {
		t.Fatalf("unfinished: expected 409, got %d", w.Code)
	}

	g, _ := ms.GetGame(context.Background(), "ABC123")
	g.Status = model.StatusFinished
	ms.UpdateGame(context.Background(), g)

	w = do(t, router, "POST", "/api/v1/games/ABC123/rematch", game.CreateGameRequest{PlayerID: "p1", Nickname: "Ana"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp game.GameResponse
	decode(t, w, &resp)
	if resp.Game.ID == "ABC123" {
		t.Error("expected a fresh game code")
	}
	if resp.Game.Rules.CallPercent != testRules.CallPercent || !resp.Game.Rules.ShortMultiplier.Equal(testRules.ShortMultiplier) {
		t.Errorf("rules not carried over: %+v", resp.Game.Rules)
	}
}
