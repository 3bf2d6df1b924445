// Package settlement resolves a finished game's bet ledger into sips to
// deal out and sips to drink per player.
package settlement

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/model"
)

// SuccessfulInvestment is an INVEST position that ended on a winning asset.
type SuccessfulInvestment struct {
	Player                          string          `json:"player"`
	Asset                           model.Asset     `json:"asset"`
	OriginalInvestedAmount          decimal.Decimal `json:"original_invested_amount"`
	SipsToDeal                      decimal.Decimal `json:"sips_to_deal"`
	CallOptionUsed                  bool            `json:"call_option_used"`
	IsEffectiveCallOptionInvestment bool            `json:"is_effective_call_option_investment"`
}

// SuccessfulShort is a SHORT on an asset that did not win.
type SuccessfulShort struct {
	Player     string          `json:"player"`
	Asset      model.Asset     `json:"asset"`
	Amount     decimal.Decimal `json:"amount"`
	SipsToDeal decimal.Decimal `json:"sips_to_deal"`
}

// UnsuccessfulShort is a SHORT on a winning asset.
type UnsuccessfulShort struct {
	Player      string          `json:"player"`
	Asset       model.Asset     `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	SipsToDrink decimal.Decimal `json:"sips_to_drink"`
}

// PlayerSipSummary is the net outcome for one bettor.
type PlayerSipSummary struct {
	Player        string          `json:"player"`
	SipsToDealOut decimal.Decimal `json:"sips_to_deal_out"`
	SipsToDrink   decimal.Decimal `json:"sips_to_drink"`
}

// Result is the full settlement report.
type Result struct {
	WinningAssets         []model.Asset          `json:"winning_assets"`
	LosingAssets          []model.Asset          `json:"losing_assets"`
	SuccessfulInvestments []SuccessfulInvestment `json:"successful_investments"`
	SuccessfulShorts      []SuccessfulShort      `json:"successful_shorts"`
	UnsuccessfulShorts    []UnsuccessfulShort    `json:"unsuccessful_shorts"`
	PlayerSipSummary      []PlayerSipSummary     `json:"player_sip_summary"`
}

// Summary returns the summary for playerID, if that player placed a bet.
func (r Result) Summary(playerID string) (PlayerSipSummary, bool) {
	for _, s := range r.PlayerSipSummary {
		if s.Player == playerID {
			return s, true
		}
	}
	return PlayerSipSummary{}, false
}

// Settle computes the report. Winning assets are those tied at the maximum
// final position; every other asset present in finalPositions is losing.
// An asset missing from finalPositions never wins and counts as a loss for
// shorts. Bets naming unknown assets are logged and skipped. CALL and PUT
// bets are entry costs only and never resolve here.
func Settle(bets []model.Bet, players []model.Player, finalPositions map[model.Asset]float64, rules model.GameRules) Result {
	res := Result{
		WinningAssets:         []model.Asset{},
		LosingAssets:          []model.Asset{},
		SuccessfulInvestments: []SuccessfulInvestment{},
		SuccessfulShorts:      []SuccessfulShort{},
		UnsuccessfulShorts:    []UnsuccessfulShort{},
		PlayerSipSummary:      []PlayerSipSummary{},
	}

	bettors := bettorOrder(bets)
	summary := make(map[string]*PlayerSipSummary, len(bettors))
	for _, id := range bettors {
		res.PlayerSipSummary = append(res.PlayerSipSummary, PlayerSipSummary{
			Player:        id,
			SipsToDealOut: decimal.Zero,
			SipsToDrink:   decimal.Zero,
		})
	}
	for i := range res.PlayerSipSummary {
		summary[res.PlayerSipSummary[i].Player] = &res.PlayerSipSummary[i]
	}

	if len(finalPositions) == 0 {
		return res
	}

	winning := make(map[model.Asset]bool)
	res.WinningAssets, res.LosingAssets = classify(finalPositions)
	for _, a := range res.WinningAssets {
		winning[a] = true
	}

	callOptions := make(map[string]model.CallOption, len(players))
	for _, p := range players {
		callOptions[p.PlayerID] = p.CallOption
	}

	for _, id := range bettors {
		sum := summary[id]
		playerBets := betsOf(bets, id)
		call := callOptions[id]

		if asset, ok := call.UsedAsset(); ok {
			total := decimal.Zero
			for _, b := range playerBets {
				if b.Type == model.BetInvest {
					total = total.Add(b.Amount)
				}
			}
			if total.IsPositive() && winning[asset] {
				deal := total.Mul(rules.InvestMultiplier)
				res.SuccessfulInvestments = append(res.SuccessfulInvestments, SuccessfulInvestment{
					Player:                          id,
					Asset:                           asset,
					OriginalInvestedAmount:          total,
					SipsToDeal:                      deal,
					CallOptionUsed:                  true,
					IsEffectiveCallOptionInvestment: true,
				})
				sum.SipsToDealOut = sum.SipsToDealOut.Add(deal)
			}
		} else {
			for _, b := range playerBets {
				if b.Type != model.BetInvest {
					continue
				}
				if !b.Asset.Valid() {
					slog.Warn("settlement: skipping invest on unknown asset", "player", id, "bet", b.ID, "asset", b.Asset)
					continue
				}
				if !winning[b.Asset] {
					continue
				}
				deal := b.Amount.Mul(rules.InvestMultiplier)
				res.SuccessfulInvestments = append(res.SuccessfulInvestments, SuccessfulInvestment{
					Player:                 id,
					Asset:                  b.Asset,
					OriginalInvestedAmount: b.Amount,
					SipsToDeal:             deal,
					CallOptionUsed:         call.Decision == model.CallUsed,
				})
				sum.SipsToDealOut = sum.SipsToDealOut.Add(deal)
			}
		}

		for _, b := range playerBets {
			if b.Type != model.BetShort {
				continue
			}
			if !b.Asset.Valid() {
				slog.Warn("settlement: skipping short on unknown asset", "player", id, "bet", b.ID, "asset", b.Asset)
				continue
			}
			if winning[b.Asset] {
				res.UnsuccessfulShorts = append(res.UnsuccessfulShorts, UnsuccessfulShort{
					Player:      id,
					Asset:       b.Asset,
					Amount:      b.Amount,
					SipsToDrink: b.Amount,
				})
				sum.SipsToDrink = sum.SipsToDrink.Add(b.Amount)
				continue
			}
			// Losing or absent from the final standings.
			deal := b.Amount.Mul(rules.ShortMultiplier)
			res.SuccessfulShorts = append(res.SuccessfulShorts, SuccessfulShort{
				Player:     id,
				Asset:      b.Asset,
				Amount:     b.Amount,
				SipsToDeal: deal,
			})
			sum.SipsToDealOut = sum.SipsToDealOut.Add(deal)
		}
	}
	return res
}

// classify splits the assets present in positions into those tied at the
// maximum and the rest, each in canonical order.
func classify(positions map[model.Asset]float64) (winning, losing []model.Asset) {
	assets := make([]model.Asset, 0, len(positions))
	for a := range positions {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool {
		ri, rj := rank(assets[i]), rank(assets[j])
		if ri != rj {
			return ri < rj
		}
		return assets[i] < assets[j]
	})

	best := positions[assets[0]]
	for _, a := range assets[1:] {
		if positions[a] > best {
			best = positions[a]
		}
	}

	winning, losing = []model.Asset{}, []model.Asset{}
	for _, a := range assets {
		if positions[a] == best {
			winning = append(winning, a)
		} else {
			losing = append(losing, a)
		}
	}
	return winning, losing
}

func rank(a model.Asset) int {
	for i, c := range model.AllAssets {
		if c == a {
			return i
		}
	}
	return len(model.AllAssets)
}

// bettorOrder lists each player with at least one bet, by first bet.
func bettorOrder(bets []model.Bet) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range bets {
		if !seen[b.PlayerID] {
			seen[b.PlayerID] = true
			out = append(out, b.PlayerID)
		}
	}
	return out
}

func betsOf(bets []model.Bet, playerID string) []model.Bet {
	var out []model.Bet
	for _, b := range bets {
		if b.PlayerID == playerID {
			out = append(out, b)
		}
	}
	return out
}
