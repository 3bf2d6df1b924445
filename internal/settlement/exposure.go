package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/model"
)

// UpfrontSips is what a player drinks when placing bets: the stake of each
// INVEST and SHORT plus the base amount of each CALL and PUT.
func UpfrontSips(bets []model.Bet, rules model.GameRules) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bets {
		switch b.Type {
		case model.BetInvest, model.BetShort:
			total = total.Add(b.Amount)
		case model.BetCall:
			total = total.Add(rules.CallBaseAmount)
		case model.BetPut:
			total = total.Add(rules.PutBaseAmount)
		}
	}
	return total
}

// HandOutPotential is the most a player could deal out if every INVEST and
// SHORT paid off.
func HandOutPotential(bets []model.Bet, rules model.GameRules) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bets {
		switch b.Type {
		case model.BetInvest:
			total = total.Add(b.Amount.Mul(rules.InvestMultiplier))
		case model.BetShort:
			total = total.Add(b.Amount.Mul(rules.ShortMultiplier))
		}
	}
	return total
}
