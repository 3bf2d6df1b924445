package market

import (
	"errors"

	"github.com/sipmarket/market-engine/internal/model"
)

var (
	ErrGameNotStarted     = errors.New("market: game has not started")
	ErrGameFinished       = errors.New("market: game is finished")
	ErrGameAlreadyStarted = errors.New("market: game already started")
)

// State is the part of a game the reducer folds events into.
type State struct {
	Status model.GameStatus
	Round  int
	Assets model.Assets
	Deck   []model.MarketEventCard

	CallWindowOpen bool
	PutWindowOpen  bool
}

// StateOf extracts the reducer state from a persisted game.
func StateOf(g *model.Game) State {
	return State{
		Status: g.Status,
		Round:  g.Round,
		Assets: g.Assets.Clone(),
		Deck:   model.CloneDeck(g.Deck),

		CallWindowOpen: g.CallWindowOpen,
		PutWindowOpen:  g.PutWindowOpen,
	}
}

// ApplyTo writes s back onto g.
func (s State) ApplyTo(g *model.Game) {
	g.Status = s.Status
	g.Round = s.Round
	g.Assets = s.Assets
	g.Deck = s.Deck
	g.CallWindowOpen = s.CallWindowOpen
	g.PutWindowOpen = s.PutWindowOpen
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// StartGame moves a game from not started to in progress.
type StartGame struct{}

// NewRound applies one market day.
type NewRound struct {
	Changes []model.AssetChange
}

func (StartGame) isEvent() {}
func (NewRound) isEvent()  {}

// EffectKind names a side effect the caller must carry out.
type EffectKind string

const (
	EffectPersist        EffectKind = "persist"
	EffectStatusChanged  EffectKind = "game_state"
	EffectMarketDay      EffectKind = "new_market_day"
	EffectCardRevealed   EffectKind = "market_event"
	EffectCallOptionOpen EffectKind = "call_option_open"
	EffectPutOptionOpen  EffectKind = "put_option_open"
)

// Effect is one instruction produced by Reduce. Persist always comes first;
// the remaining effects are broadcasts in the order they occurred.
type Effect struct {
	Kind    EffectKind
	Status  model.GameStatus
	Changes []model.AssetChange
	Card    *model.MarketEventCard
}

// Reduce folds ev into s. It never mutates s and performs no I/O: the
// returned effects describe what to persist and announce.
//
// A round applies its changes, ends the game if an asset passed the board
// edge, otherwise fires event cards and checks for a win again. An option
// window opens once the leader passes its threshold on the board either
// before or after the round's cards fire; it is announced on that round
// only and stays open until the game ends.
func Reduce(s State, ev Event, rules model.GameRules) (State, []Effect, error) {
	switch e := ev.(type) {
	case StartGame:
		return reduceStart(s)
	case NewRound:
		return reduceRound(s, e, rules)
	}
	return s, nil, errors.New("market: unknown event")
}

func reduceStart(s State) (State, []Effect, error) {
	switch s.Status {
	case model.StatusInProgress:
		return s, nil, ErrGameAlreadyStarted
	case model.StatusFinished:
		return s, nil, ErrGameFinished
	}
	next := s.clone()
	next.Status = model.StatusInProgress
	return next, []Effect{
		{Kind: EffectPersist},
		{Kind: EffectStatusChanged, Status: next.Status},
	}, nil
}

func reduceRound(s State, e NewRound, rules model.GameRules) (State, []Effect, error) {
	switch s.Status {
	case model.StatusFinished:
		return s, nil, ErrGameFinished
	case model.StatusInProgress:
	default:
		return s, nil, ErrGameNotStarted
	}

	next := s.clone()
	next.Round++
	next.Assets = ApplyChanges(next.Assets, e.Changes)
	effects := []Effect{
		{Kind: EffectPersist},
		{Kind: EffectMarketDay, Changes: append([]model.AssetChange(nil), e.Changes...)},
	}

	if CheckWin(next.Assets) {
		next, effects = finish(next, effects)
		return next, effects, nil
	}

	beforeCards := next.Assets
	var triggered []model.MarketEventCard
	next.Assets, next.Deck, triggered = CheckEventTriggers(next.Assets, next.Deck)
	for i := range triggered {
		effects = append(effects, Effect{Kind: EffectCardRevealed, Card: &triggered[i]})
	}

	if CheckWin(next.Assets) {
		next, effects = finish(next, effects)
		return next, effects, nil
	}

	if !next.CallWindowOpen &&
		(CheckCallOptionEligibility(beforeCards, rules) || CheckCallOptionEligibility(next.Assets, rules)) {
		next.CallWindowOpen = true
		effects = append(effects, Effect{Kind: EffectCallOptionOpen})
	}
	if !next.PutWindowOpen &&
		(CheckPutOptionEligibility(beforeCards, rules) || CheckPutOptionEligibility(next.Assets, rules)) {
		next.PutWindowOpen = true
		effects = append(effects, Effect{Kind: EffectPutOptionOpen})
	}
	return next, effects, nil
}

func finish(s State, effects []Effect) (State, []Effect) {
	s.Status = model.StatusFinished
	return s, append(effects, Effect{Kind: EffectStatusChanged, Status: s.Status})
}

func (s State) clone() State {
	return State{
		Status: s.Status,
		Round:  s.Round,
		Assets: s.Assets.Clone(),
		Deck:   model.CloneDeck(s.Deck),

		CallWindowOpen: s.CallWindowOpen,
		PutWindowOpen:  s.PutWindowOpen,
	}
}
