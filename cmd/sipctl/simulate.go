package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sipmarket/market-engine/internal/config"
	"github.com/sipmarket/market-engine/internal/market"
	"github.com/sipmarket/market-engine/internal/model"
	"github.com/sipmarket/market-engine/internal/settlement"
)

// maxSimRounds bounds a simulation in case the board stalls.
const maxSimRounds = 1000

type simReport struct {
	Seed       uint64                  `json:"seed"`
	Rounds     int                     `json:"rounds"`
	Board      model.Assets            `json:"board"`
	Events     []model.MarketEventCard `json:"events"`
	Bets       []model.Bet             `json:"bets"`
	Settlement settlement.Result       `json:"settlement"`
}

func newSimulateCmd() *cobra.Command {
	var (
		players  int
		seed     uint64
		rounds   int
		invest   float64
		short    float64
		useCalls bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a full game with random bets and print the settlement",
		RunE: func(cmd *cobra.Command, args []string) error {
			if players < 1 {
				return errors.New("players must be at least 1")
			}
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			rules := cfg.GameRules()
			if cmd.Flags().Changed("rounds") {
				rules.Rounds = rounds
			}
			if cmd.Flags().Changed("invest-multiplier") {
				rules.InvestMultiplier = decimal.NewFromFloat(invest)
			}
			if cmd.Flags().Changed("short-multiplier") {
				rules.ShortMultiplier = decimal.NewFromFloat(short)
			}
			if rules.Rounds < 1 {
				return errors.New("rounds must be at least 1")
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}

			report, err := simulate(market.NewRand(seed), rules, players, useCalls)
			if err != nil {
				return err
			}
			report.Seed = seed
			return printJSON(cmd, report)
		},
	}

	cmd.Flags().IntVar(&players, "players", 4, "number of players")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "RNG seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&rounds, "rounds", defaultRounds(), "planned number of rounds")
	cmd.Flags().Float64Var(&invest, "invest-multiplier", 2, "sips dealt per sip invested in a winner")
	cmd.Flags().Float64Var(&short, "short-multiplier", 2, "sips dealt per sip shorted on a loser")
	cmd.Flags().BoolVar(&useCalls, "use-calls", true, "players exercise call options when the window opens")
	return cmd
}

// simulate runs one game from a fresh board to settlement.
func simulate(r market.Rand, rules model.GameRules, n int, useCalls bool) (simReport, error) {
	game := &model.Game{
		ID:        "SIM000",
		Status:    model.StatusNotStarted,
		Rules:     rules,
		Assets:    model.NewAssets(),
		Deck:      market.BuildEventDeck(r, rules.DeckSize(), rules.EventMaxValue()),
		CreatedAt: time.Now().UTC(),
	}

	players := make([]model.Player, n)
	var bets []model.Bet
	for i := range players {
		id := fmt.Sprintf("player-%d", i+1)
		players[i] = model.Player{GameID: game.ID, PlayerID: id, Nickname: id, CallOption: model.UndecidedCall()}
		bets = append(bets, randomBets(r, game.ID, id, rules)...)
	}

	report := simReport{Events: []model.MarketEventCard{}, Bets: bets}

	step := func(ev market.Event) error {
		next, effects, err := market.Reduce(market.StateOf(game), ev, rules)
		if err != nil {
			return err
		}
		next.ApplyTo(game)
		for _, e := range effects {
			switch e.Kind {
			case market.EffectCardRevealed:
				report.Events = append(report.Events, *e.Card)
			case market.EffectCallOptionOpen:
				if useCalls {
					exerciseCalls(players, bets)
				}
			}
		}
		return nil
	}

	if err := step(market.StartGame{}); err != nil {
		return report, err
	}
	for game.Status != model.StatusFinished {
		if game.Round >= maxSimRounds {
			return report, fmt.Errorf("no winner after %d rounds", maxSimRounds)
		}
		changes := market.GenerateRoundChanges(r, rules.MaxGain())
		if err := step(market.NewRound{Changes: changes}); err != nil {
			return report, err
		}
	}

	report.Rounds = game.Round
	report.Board = game.Assets
	report.Settlement = settlement.Settle(bets, players, game.Assets.Positions(), rules)
	return report, nil
}

// randomBets gives a player one invest, maybe a short, and maybe a call.
func randomBets(r market.Rand, gameID, playerID string, rules model.GameRules) []model.Bet {
	pickAsset := func() model.Asset { return model.AllAssets[r.IntN(len(model.AllAssets))] }
	bet := func(typ model.BetType, asset model.Asset, amount decimal.Decimal) model.Bet {
		return model.Bet{
			ID:        fmt.Sprintf("%s-%s", playerID, typ),
			GameID:    gameID,
			PlayerID:  playerID,
			Asset:     asset,
			Amount:    amount,
			Type:      typ,
			CreatedAt: time.Now().UTC(),
		}
	}

	out := []model.Bet{bet(model.BetInvest, pickAsset(), decimal.NewFromInt(int64(1+r.IntN(5))))}
	if r.Float64() < 0.5 {
		out = append(out, bet(model.BetShort, pickAsset(), decimal.NewFromInt(int64(1+r.IntN(3)))))
	}
	if rules.CallPercent > 0 && r.Float64() < 0.5 {
		out = append(out, bet(model.BetCall, pickAsset(), rules.CallBaseAmount))
	}
	return out
}

// exerciseCalls uses every undecided call option on its bet's asset.
func exerciseCalls(players []model.Player, bets []model.Bet) {
	for i := range players {
		p := &players[i]
		if !p.CallOption.IsUndecided() {
			continue
		}
		for _, b := range bets {
			if b.PlayerID == p.PlayerID && b.Type == model.BetCall {
				if next, err := p.CallOption.Use(b.Asset); err == nil {
					p.CallOption = next
				}
				break
			}
		}
	}
}
