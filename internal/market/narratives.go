package market

import "github.com/sipmarket/market-engine/internal/model"

const flatTaxText = "FLAT TAX! The treasury takes its cut from every market on the board."

const fallbackText = "The market holds its breath."

// Broad headlines apply to every asset at once.
var (
	broadBullText = []string{
		"Central banks cut rates overnight. Everything rallies.",
		"A surprise stimulus package floods the markets with cash.",
		"Quarterly numbers beat every forecast. Traders are euphoric.",
	}
	broadBearText = []string{
		"A global supply shock rattles every exchange.",
		"Inflation prints hot and the whole board slides.",
		"Rumours of a banking crisis send everyone for the exits.",
	}
	broadBoomUpText = []string{
		"MELT-UP! Retail money pours into anything with a ticker.",
		"Peace deal signed. Markets go vertical.",
	}
	broadBoomDownText = []string{
		"FLASH CRASH! Circuit breakers trip on every exchange.",
		"Black Monday all over again. Nothing is safe.",
	}
)

type assetText struct {
	bull     []string
	bear     []string
	boomUp   []string
	boomDown []string
}

var assetNarratives = map[model.Asset]assetText{
	model.AssetGold: {
		bull:     []string{"Jewellers report record demand.", "A major central bank adds to its reserves."},
		bear:     []string{"A huge new deposit is discovered.", "Investors swap bullion for yield."},
		boomUp:   []string{"Safe-haven panic buying goes parabolic!"},
		boomDown: []string{"Alchemists finally crack it. Gold is worthless!"},
	},
	model.AssetBonds: {
		bull:     []string{"Yields dip as investors seek safety.", "A government buyback props up prices."},
		bear:     []string{"Ratings agency issues a downgrade.", "Auction demand comes in weak."},
		boomUp:   []string{"Emergency rate cut! Bond prices explode."},
		boomDown: []string{"Sovereign default rumours hit the wires!"},
	},
	model.AssetStocks: {
		bull:     []string{"Tech earnings smash expectations.", "Merger mania sweeps the index."},
		bear:     []string{"A CEO scandal drags the index down.", "Profit warnings pile up."},
		boomUp:   []string{"Index hits an all-time high on a historic rally!"},
		boomDown: []string{"Trading halted after a record one-day drop!"},
	},
	model.AssetCrypto: {
		bull:     []string{"A celebrity tweets a rocket emoji.", "A big payments firm adds crypto checkout."},
		bear:     []string{"An exchange goes offline mid-trade.", "Regulators announce a crackdown."},
		boomUp:   []string{"To the moon! A new all-time high!"},
		boomDown: []string{"Major exchange hacked, billions gone!"},
	},
}

func pick(r Rand, pool []string) string {
	if len(pool) == 0 {
		return fallbackText
	}
	return pool[r.IntN(len(pool))]
}

func broadText(r Rand, t model.EventType, positive bool) string {
	switch t {
	case model.EventBull:
		return pick(r, broadBullText)
	case model.EventBear:
		return pick(r, broadBearText)
	}
	if positive {
		return pick(r, broadBoomUpText)
	}
	return pick(r, broadBoomDownText)
}

func assetLine(r Rand, a model.Asset, t model.EventType, positive bool) string {
	n := assetNarratives[a]
	var pool []string
	switch {
	case t == model.EventBull:
		pool = n.bull
	case t == model.EventBear:
		pool = n.bear
	case positive:
		pool = n.boomUp
	default:
		pool = n.boomDown
	}
	return a.Label() + ": " + pick(r, pool)
}
