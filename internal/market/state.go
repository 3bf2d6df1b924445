package market

import (
	"math"

	"github.com/sipmarket/market-engine/internal/model"
)

// WinThreshold is the board edge. A position strictly greater ends the game.
const WinThreshold = 100.0

// ApplyChanges adds each delta to its asset's position, clamping at 0, and
// records it as the asset's last change and trend step. Entries for assets
// not on the board are ignored.
func ApplyChanges(assets model.Assets, changes []model.AssetChange) model.Assets {
	out := assets.Clone()
	for _, c := range changes {
		st, ok := out[c.Asset]
		if !ok {
			if !c.Asset.Valid() {
				continue
			}
			st = model.AssetState{Asset: c.Asset}
		}
		st.Position = math.Max(0, addPct(st.Position, c.Change))
		st.LastChange = c.Change
		st.CurrentTrendSum = nextTrend(st.CurrentTrendSum, c.Change)
		out[c.Asset] = st
	}
	return out
}

// ApplyUniform moves every asset by delta, clamping at 0. Last change and
// trend are left untouched.
func ApplyUniform(assets model.Assets, delta float64) model.Assets {
	out := assets.Clone()
	for a, st := range out {
		st.Position = math.Max(0, addPct(st.Position, delta))
		out[a] = st
	}
	return out
}

// nextTrend continues a streak while the sign holds and restarts it on a
// flip or a flat round.
func nextTrend(trend, change float64) float64 {
	if change == 0 || (change > 0 && trend < 0) || (change < 0 && trend > 0) {
		return change
	}
	return addPct(trend, change)
}

// Leader returns the asset with the highest position. Ties go to the
// earliest asset in canonical order.
func Leader(assets model.Assets) model.AssetState {
	var leader model.AssetState
	found := false
	for _, a := range model.AllAssets {
		st, ok := assets[a]
		if !ok {
			continue
		}
		if !found || st.Position > leader.Position {
			leader = st
			found = true
		}
	}
	return leader
}

// CheckEventTriggers flips every unflipped card at or behind the leader and
// applies its effect. The leader is measured once, before any card fires;
// effects apply in deck order and compound.
func CheckEventTriggers(assets model.Assets, deck []model.MarketEventCard) (model.Assets, []model.MarketEventCard, []model.MarketEventCard) {
	leader := Leader(assets)
	out := assets.Clone()
	next := model.CloneDeck(deck)
	var triggered []model.MarketEventCard

	for i := range next {
		card := &next[i]
		if card.IsFlipped || float64(card.Position) > leader.Position {
			continue
		}
		card.IsFlipped = true
		out = applyCard(out, *card)
		triggered = append(triggered, *card)
	}
	return out, next, triggered
}

func applyCard(assets model.Assets, card model.MarketEventCard) model.Assets {
	if card.ValueAll != 0 {
		return ApplyUniform(assets, card.ValueAll)
	}
	return ApplyChanges(assets, card.Changes)
}

// CheckWin reports whether any asset has passed the board edge.
func CheckWin(assets model.Assets) bool {
	for _, st := range assets {
		if st.Position > WinThreshold {
			return true
		}
	}
	return false
}

// CheckCallOptionEligibility reports whether the leader has passed the
// game's call threshold. A zero threshold disables call options.
func CheckCallOptionEligibility(assets model.Assets, rules model.GameRules) bool {
	return rules.CallPercent > 0 && Leader(assets).Position > rules.CallPercent
}

// CheckPutOptionEligibility is the put-side counterpart of
// CheckCallOptionEligibility.
func CheckPutOptionEligibility(assets model.Assets, rules model.GameRules) bool {
	return rules.PutPercent > 0 && Leader(assets).Position > rules.PutPercent
}
