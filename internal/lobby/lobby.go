// Package lobby handles game join codes, rule validation, and parsing of
// bet requests before they reach the market engine.
package lobby

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/model"
)

// CodeLength is the number of characters in a join code.
const CodeLength = 6

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"

// codeRegex matches a normalized join code, e.g. "K7QX2M".
var codeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

var (
	ErrInvalidCode    = errors.New("lobby: invalid game code")
	ErrInvalidRules   = errors.New("lobby: invalid game rules")
	ErrInvalidBetType = errors.New("lobby: unsupported bet type")
	ErrInvalidAmount  = errors.New("lobby: invest and short bets need a whole number of sips, at least 1")
	ErrMissingAsset   = errors.New("lobby: bet needs an asset")
)

// IntSource is the randomness NewCode draws from.
type IntSource interface {
	IntN(n int) int
}

// NewCode generates a join code.
func NewCode(r IntSource) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[r.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// ParseCode normalizes a user-typed join code and validates it.
func ParseCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !codeRegex.MatchString(c) {
		return "", fmt.Errorf("%w: %q (expected %d letters or digits)", ErrInvalidCode, code, CodeLength)
	}
	return c, nil
}

// RulesRequest carries optional rule overrides. Nil fields take defaults.
type RulesRequest struct {
	Rounds           *int             `json:"rounds"`
	InvestMultiplier *decimal.Decimal `json:"invest_multiplier"`
	ShortMultiplier  *decimal.Decimal `json:"short_multiplier"`
	CallPercent      *float64         `json:"call_percent"`
	PutPercent       *float64         `json:"put_percent"`
	CallBaseAmount   *decimal.Decimal `json:"call_base_amount"`
	PutBaseAmount    *decimal.Decimal `json:"put_base_amount"`
}

// ResolveRules applies overrides to defaults and validates the result.
func ResolveRules(req RulesRequest, defaults model.GameRules) (model.GameRules, error) {
	r := defaults
	if req.Rounds != nil {
		r.Rounds = *req.Rounds
	}
	if req.InvestMultiplier != nil {
		r.InvestMultiplier = *req.InvestMultiplier
	}
	if req.ShortMultiplier != nil {
		r.ShortMultiplier = *req.ShortMultiplier
	}
	if req.CallPercent != nil {
		r.CallPercent = *req.CallPercent
	}
	if req.PutPercent != nil {
		r.PutPercent = *req.PutPercent
	}
	if req.CallBaseAmount != nil {
		r.CallBaseAmount = *req.CallBaseAmount
	}
	if req.PutBaseAmount != nil {
		r.PutBaseAmount = *req.PutBaseAmount
	}

	switch {
	case r.Rounds < 1 || r.Rounds > 100:
		return r, fmt.Errorf("%w: rounds must be between 1 and 100, got %d", ErrInvalidRules, r.Rounds)
	case !r.InvestMultiplier.IsPositive() || !r.ShortMultiplier.IsPositive():
		return r, fmt.Errorf("%w: multipliers must be positive", ErrInvalidRules)
	case r.CallPercent < 0 || r.CallPercent > 100 || r.PutPercent < 0 || r.PutPercent > 100:
		return r, fmt.Errorf("%w: option thresholds must be between 0 and 100", ErrInvalidRules)
	case r.CallBaseAmount.IsNegative() || r.PutBaseAmount.IsNegative():
		return r, fmt.Errorf("%w: option base amounts cannot be negative", ErrInvalidRules)
	}
	return r, nil
}

// BetRequest is an unvalidated bet as submitted by a player.
type BetRequest struct {
	PlayerID        string          `json:"player_id"`
	Asset           string          `json:"asset"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	PutOptionPlayer string          `json:"put_option_player,omitempty"`
}

// ParseBet validates req and builds the ledger entry. CALL and PUT stakes
// are replaced by the game's base amounts; a PUT carries no asset.
func ParseBet(gameID string, req BetRequest, rules model.GameRules) (model.Bet, error) {
	typ := model.BetType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !typ.Valid() {
		return model.Bet{}, fmt.Errorf("%w: %q", ErrInvalidBetType, req.Type)
	}

	bet := model.Bet{
		GameID:   gameID,
		PlayerID: req.PlayerID,
		Type:     typ,
	}

	if typ != model.BetPut {
		if strings.TrimSpace(req.Asset) == "" {
			return model.Bet{}, ErrMissingAsset
		}
		asset, err := model.ParseAsset(req.Asset)
		if err != nil {
			return model.Bet{}, err
		}
		bet.Asset = asset
	}

	switch typ {
	case model.BetInvest, model.BetShort:
		if req.Amount.LessThan(decimal.NewFromInt(1)) || !req.Amount.IsInteger() {
			return model.Bet{}, fmt.Errorf("%w: got %s", ErrInvalidAmount, req.Amount)
		}
		bet.Amount = req.Amount
	case model.BetCall:
		bet.Amount = rules.CallBaseAmount
	case model.BetPut:
		bet.Amount = rules.PutBaseAmount
		bet.PutOptionPlayer = strings.TrimSpace(req.PutOptionPlayer)
	}
	return bet, nil
}
