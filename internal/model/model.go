// Package model defines the core domain types shared across the market engine.
// Sip quantities use shopspring/decimal; board positions are percentage
// points held as float64 and rounded to one decimal where they are generated.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one of the four tradable markets on the board.
type Asset string

const (
	AssetGold   Asset = "gold"
	AssetBonds  Asset = "bonds"
	AssetStocks Asset = "stocks"
	AssetCrypto Asset = "crypto"
)

// AllAssets is the canonical asset order. Ties on the board resolve to the
// earliest entry.
var AllAssets = [4]Asset{AssetGold, AssetBonds, AssetStocks, AssetCrypto}

var ErrUnknownAsset = errors.New("model: unknown asset")

// Valid reports whether a is one of the four board assets.
func (a Asset) Valid() bool {
	switch a {
	case AssetGold, AssetBonds, AssetStocks, AssetCrypto:
		return true
	}
	return false
}

// Label returns the display name ("Gold", "Bonds", ...).
func (a Asset) Label() string {
	if !a.Valid() {
		return string(a)
	}
	s := string(a)
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseAsset normalizes and validates an asset identifier.
func ParseAsset(s string) (Asset, error) {
	a := Asset(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAsset, s)
	}
	return a, nil
}

// AssetState is the board state of one asset.
type AssetState struct {
	Asset           Asset   `json:"asset"`
	Position        float64 `json:"position"`          // cumulative % gain, never below 0
	LastChange      float64 `json:"last_change"`       // delta of the most recent round
	CurrentTrendSum float64 `json:"current_trend_sum"` // streak accumulator, display only
}

// AssetChange is a signed percentage-point delta for one asset.
type AssetChange struct {
	Asset  Asset   `json:"asset"`
	Change float64 `json:"change"`
}

// Assets holds one AssetState per board asset.
type Assets map[Asset]AssetState

// NewAssets returns all four assets at position 0.
func NewAssets() Assets {
	a := make(Assets, len(AllAssets))
	for _, asset := range AllAssets {
		a[asset] = AssetState{Asset: asset}
	}
	return a
}

// Clone returns an independent copy.
func (a Assets) Clone() Assets {
	out := make(Assets, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Positions returns the final-standings view used by settlement.
func (a Assets) Positions() map[Asset]float64 {
	out := make(map[Asset]float64, len(a))
	for k, v := range a {
		out[k] = v.Position
	}
	return out
}

// EventType classifies a market event card.
type EventType string

const (
	EventBull EventType = "bull"
	EventBear EventType = "bear"
	EventBoom EventType = "boom"
)

// MarketEventCard is a scripted market disturbance placed on the board.
// Either ValueAll is non-zero or Changes is populated, never both.
type MarketEventCard struct {
	ID        string        `json:"id"`
	Position  int           `json:"position"` // board column, 0-99
	Type      EventType     `json:"type"`
	IsFlipped bool          `json:"is_flipped"`
	ValueAll  float64       `json:"value_all"`
	Changes   []AssetChange `json:"changes"`
	Text      string        `json:"text"`
}

// CloneDeck copies a deck including each card's change list.
func CloneDeck(deck []MarketEventCard) []MarketEventCard {
	out := make([]MarketEventCard, len(deck))
	for i, c := range deck {
		c.Changes = append([]AssetChange(nil), c.Changes...)
		out[i] = c
	}
	return out
}

// BetType is the kind of wager.
type BetType string

const (
	BetInvest BetType = "invest"
	BetShort  BetType = "short"
	BetCall   BetType = "call"
	BetPut    BetType = "put"
)

// Valid reports whether t is a known bet type.
func (t BetType) Valid() bool {
	switch t {
	case BetInvest, BetShort, BetCall, BetPut:
		return true
	}
	return false
}

// Bet is an immutable ledger record of a wager.
// Asset stays a plain string-backed type so that ledger rows with unknown
// assets survive loading and are skipped at settlement.
type Bet struct {
	ID              string          `json:"id" db:"id"`
	GameID          string          `json:"game_id" db:"game_id"`
	PlayerID        string          `json:"player_id" db:"player_id"`
	Asset           Asset           `json:"asset" db:"asset"`
	Amount          decimal.Decimal `json:"amount" db:"amount"` // sips
	Type            BetType         `json:"type" db:"type"`
	PutOptionPlayer string          `json:"put_option_player,omitempty" db:"put_option_player"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// GameRules is the immutable per-game configuration.
type GameRules struct {
	Rounds           int             `json:"rounds"`
	InvestMultiplier decimal.Decimal `json:"invest_multiplier"`
	ShortMultiplier  decimal.Decimal `json:"short_multiplier"`
	CallPercent      float64         `json:"call_percent"` // 0 disables call options
	PutPercent       float64         `json:"put_percent"`  // 0 disables put options
	CallBaseAmount   decimal.Decimal `json:"call_base_amount"`
	PutBaseAmount    decimal.Decimal `json:"put_base_amount"`
}

// MaxGain is the per-round magnitude: the guaranteed-gain asset alone can
// cover the board over the planned number of rounds.
func (r GameRules) MaxGain() float64 {
	if r.Rounds <= 0 {
		return 100
	}
	return 100 / float64(r.Rounds)
}

// DeckSize is the number of event cards requested at game creation.
func (r GameRules) DeckSize() int {
	if r.Rounds <= 0 {
		return 0
	}
	return int(math.Ceil(float64(r.Rounds) * 0.5))
}

// EventMaxValue caps the magnitude of a regular event card.
func (r GameRules) EventMaxValue() float64 {
	return r.MaxGain()
}

// GameStatus is the linear game lifecycle.
type GameStatus string

const (
	StatusNotStarted GameStatus = "not_started"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
)

// Game is the persisted state of one game session.
type Game struct {
	ID     string            `json:"id" db:"id"` // six-character join code
	Status GameStatus        `json:"status" db:"status"`
	Rules  GameRules         `json:"rules" db:"rules"`
	Assets Assets            `json:"assets" db:"assets"`
	Deck   []MarketEventCard `json:"deck" db:"deck"`
	Round  int               `json:"round" db:"round"`

	// Option windows latch open the first time the leader passes the
	// threshold and stay open for the rest of the game.
	CallWindowOpen bool `json:"call_window_open" db:"call_window_open"`
	PutWindowOpen  bool `json:"put_window_open" db:"put_window_open"`

	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Player is a participant's per-game state.
type Player struct {
	GameID        string     `json:"game_id" db:"game_id"`
	PlayerID      string     `json:"player_id" db:"player_id"`
	Nickname      string     `json:"nickname" db:"nickname"`
	CallOption    CallOption `json:"call_option" db:"call_option"`
	PutOptionUsed bool       `json:"put_option_used" db:"put_option_used"`
	SipsTaken     bool       `json:"sips_taken" db:"sips_taken"`
	JoinedAt      time.Time  `json:"joined_at" db:"joined_at"`
}
