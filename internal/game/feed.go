package game

import (
	"fmt"
	"strings"

	"github.com/sipmarket/market-engine/internal/model"
)

// marketDayText renders a round as "New market day! Changes: gold: +4.2%, ...".
// Flat assets are left out.
func marketDayText(changes []model.AssetChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.Change == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %+.1f%%", c.Asset, c.Change))
	}
	if len(parts) == 0 {
		return "New market day! Nothing moved."
	}
	return "New market day! Changes: " + strings.Join(parts, ", ")
}

func betPlacedText(nickname string, bet model.Bet, target string) string {
	switch bet.Type {
	case model.BetInvest:
		return fmt.Sprintf("%s invested %s sips in %s", nickname, bet.Amount, bet.Asset.Label())
	case model.BetShort:
		return fmt.Sprintf("%s shorted %s for %s sips", nickname, bet.Asset.Label(), bet.Amount)
	case model.BetCall:
		return fmt.Sprintf("%s bought a call option on %s", nickname, bet.Asset.Label())
	case model.BetPut:
		if target != "" {
			return fmt.Sprintf("%s bought a put option against %s", nickname, target)
		}
		return fmt.Sprintf("%s bought a put option", nickname)
	}
	return fmt.Sprintf("%s placed a bet", nickname)
}

func marketEventText(card model.MarketEventCard) string {
	return fmt.Sprintf("Market event (%s)! %s", strings.ToUpper(string(card.Type)), card.Text)
}

func statusText(status model.GameStatus) string {
	switch status {
	case model.StatusInProgress:
		return "The market is open!"
	case model.StatusFinished:
		return "The market has closed. Time to settle up!"
	}
	return "Waiting for the market to open."
}

func callOptionText(nickname string, call model.CallOption) string {
	if asset, ok := call.UsedAsset(); ok {
		return fmt.Sprintf("%s used their call option and moved their investment to %s", nickname, asset.Label())
	}
	return fmt.Sprintf("%s kept their investment where it was", nickname)
}
