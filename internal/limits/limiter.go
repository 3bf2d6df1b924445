// Package limits implements the bet admission limits that keep a round of
// drinks survivable.
//
// A player may hold at most one bet of each type per game. On top of that
// the limiter caps the stake of a single INVEST or SHORT and the total sips
// a player can commit up front across all of their bets.
package limits

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/model"
)

var (
	// ErrDuplicateBetType is returned when the player already holds a bet
	// of the requested type in this game.
	ErrDuplicateBetType = errors.New("limits: player already holds a bet of this type")

	// ErrBetLimitExceeded is returned when a single INVEST or SHORT stake
	// is above the per-bet maximum.
	ErrBetLimitExceeded = errors.New("limits: per-bet sip limit exceeded")

	// ErrPlayerLimitExceeded is returned when the bet would push the
	// player's total up-front sips beyond the per-player maximum.
	ErrPlayerLimitExceeded = errors.New("limits: player sip limit exceeded")
)

// BetLimiter enforces per-bet and per-player sip limits.
// A zero limit disables that check.
type BetLimiter struct {
	// MaxPerBet is the largest stake allowed on one INVEST or SHORT.
	MaxPerBet decimal.Decimal

	// MaxPerPlayer is the largest total a player may drink up front,
	// counting CALL and PUT base amounts.
	MaxPerPlayer decimal.Decimal
}

// NewBetLimiter creates a limiter with the given per-bet and per-player
// limits.
func NewBetLimiter(maxPerBet, maxPerPlayer decimal.Decimal) *BetLimiter {
	return &BetLimiter{
		MaxPerBet:    maxPerBet,
		MaxPerPlayer: maxPerPlayer,
	}
}

// CheckBet validates a new bet against the player's existing bets in the
// same game. The bet's Amount must already carry its up-front cost, i.e.
// the base amount for CALL and PUT.
//
// Returns nil if the bet is admissible, or an error describing the violation.
func (l *BetLimiter) CheckBet(bet model.Bet, existing []model.Bet) error {
	// 1. One bet per type.
	committed := decimal.Zero
	for _, b := range existing {
		if b.PlayerID != bet.PlayerID || b.GameID != bet.GameID {
			continue
		}
		if b.Type == bet.Type {
			return ErrDuplicateBetType
		}
		committed = committed.Add(b.Amount)
	}

	// 2. Per-bet stake.
	if bet.Type == model.BetInvest || bet.Type == model.BetShort {
		if l.MaxPerBet.IsPositive() && bet.Amount.GreaterThan(l.MaxPerBet) {
			return ErrBetLimitExceeded
		}
	}

	// 3. Aggregate exposure.
	if l.MaxPerPlayer.IsPositive() && committed.Add(bet.Amount).GreaterThan(l.MaxPerPlayer) {
		return ErrPlayerLimitExceeded
	}

	return nil
}
