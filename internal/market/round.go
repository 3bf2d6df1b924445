package market

import "github.com/sipmarket/market-engine/internal/model"

// Role probabilities for one market day.
const (
	lossChance       = 0.4
	mediumGainChance = 0.4
)

// roundRoles records which asset drew which role in a round.
type roundRoles struct {
	loss       model.Asset
	medium     model.Asset
	guaranteed model.Asset
}

// GenerateRoundChanges produces one market day: exactly one entry per
// asset, in canonical order. One asset always gains between half and all
// of maxGain; one may lose, one may gain moderately, the rest stay flat.
// Magnitudes are rounded to one decimal.
func GenerateRoundChanges(r Rand, maxGain float64) []model.AssetChange {
	changes, _ := drawRound(r, maxGain)
	return changes
}

func drawRound(r Rand, maxGain float64) ([]model.AssetChange, roundRoles) {
	order := model.AllAssets
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	roles := roundRoles{loss: order[0], medium: order[1], guaranteed: order[2]}
	deltas := make(map[model.Asset]float64, len(order))

	deltas[roles.guaranteed] = round1(uniform(r, 0.5*maxGain, maxGain))
	if r.Float64() < lossChance {
		deltas[roles.loss] = -round1(uniform(r, 0.2*maxGain, 0.6*maxGain))
	}
	if r.Float64() < mediumGainChance {
		deltas[roles.medium] = round1(uniform(r, 0.3*maxGain, 0.8*maxGain))
	}

	changes := make([]model.AssetChange, 0, len(model.AllAssets))
	for _, a := range model.AllAssets {
		changes = append(changes, model.AssetChange{Asset: a, Change: deltas[a]})
	}
	return changes, roles
}
