package market

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sipmarket/market-engine/internal/model"
)

// Deck layout and content parameters.
const (
	minCardPosition = 7
	minCardGap      = 11

	flatTaxChance = 0.05
	flatTaxValue  = -0.4

	bullThreshold = 0.35
	bearThreshold = 0.80

	broadEffectChance  = 0.4
	boomPositiveChance = 0.4
	boomFloorRatio     = 0.45

	cardSeparator = " MEANWHILE... "
)

// BuildEventDeck places up to n event cards on the board at strictly
// increasing positions at least 11 apart, inside [7, 100-(maxValue+1)].
// When n cards do not fit the count is reduced; when none fit the deck is
// empty. At most one flat-tax card appears per deck.
func BuildEventDeck(r Rand, n int, maxValue float64) []model.MarketEventCard {
	deck := []model.MarketEventCard{}
	if n <= 0 {
		return deck
	}
	maxValue = math.Max(0, maxValue)

	maxPos := int(math.Floor(100 - (maxValue + 1)))
	if maxPos < minCardPosition {
		slog.Warn("event deck: no room on board", "max_value", maxValue, "max_position", maxPos)
		return deck
	}
	if fit := (maxPos-minCardPosition)/minCardGap + 1; n > fit {
		slog.Warn("event deck: reducing card count to fit board", "requested", n, "fit", fit)
		n = fit
	}

	positions := make([]int, 0, n)
	first := randomInt(r, minCardPosition, float64(max(minCardPosition, maxPos-(n-1)*minCardGap)))
	positions = append(positions, first)
	for i := 1; i < n; i++ {
		lo := positions[i-1] + minCardGap
		hi := maxPos - (n-1-i)*minCardGap
		positions = append(positions, randomInt(r, float64(lo), float64(hi)))
	}

	taxUsed := false
	for i, pos := range positions {
		card := model.MarketEventCard{
			ID:       fmt.Sprintf("event-%d", i+1),
			Position: pos,
		}
		if !taxUsed && r.Float64() < flatTaxChance {
			taxUsed = true
			card.Type = model.EventBear
			card.ValueAll = flatTaxValue
			card.Text = flatTaxText
		} else {
			fillCard(r, &card, maxValue)
		}
		deck = append(deck, card)
	}
	return deck
}

func fillCard(r Rand, card *model.MarketEventCard, maxValue float64) {
	roll := r.Float64()
	switch {
	case roll < bullThreshold:
		card.Type = model.EventBull
	case roll < bearThreshold:
		card.Type = model.EventBear
	default:
		card.Type = model.EventBoom
	}

	if r.Float64() < broadEffectChance {
		v, positive := signedMagnitude(r, card.Type, maxValue)
		card.ValueAll = v
		card.Text = broadText(r, card.Type, positive)
		return
	}

	assets := model.AllAssets
	r.Shuffle(len(assets), func(i, j int) { assets[i], assets[j] = assets[j], assets[i] })
	count := randomInt(r, 1, float64(len(assets)))

	lines := make([]string, 0, count)
	card.Changes = make([]model.AssetChange, 0, count)
	for _, a := range assets[:count] {
		v, positive := signedMagnitude(r, card.Type, maxValue)
		card.Changes = append(card.Changes, model.AssetChange{Asset: a, Change: v})
		lines = append(lines, assetLine(r, a, card.Type, positive))
	}
	card.Text = strings.Join(lines, cardSeparator)
}

// signedMagnitude draws a whole-number effect for the card type. Bull is
// positive, bear negative, and boom positive with probability 0.4 but
// drawn from the upper part of the range.
func signedMagnitude(r Rand, t model.EventType, maxValue float64) (float64, bool) {
	if t == model.EventBoom {
		hi := maxValue
		if hi == 0 {
			hi = 2
		}
		lo := math.Max(1, math.Floor(boomFloorRatio*maxValue))
		mag := float64(randomInt(r, lo, hi))
		if r.Float64() < boomPositiveChance {
			return mag, true
		}
		return -mag, false
	}

	hi := maxValue
	if hi == 0 {
		hi = 1
	}
	mag := float64(randomInt(r, 1, hi))
	if t == model.EventBull {
		return mag, true
	}
	return -mag, false
}
