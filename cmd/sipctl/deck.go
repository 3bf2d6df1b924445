package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sipmarket/market-engine/internal/market"
	"github.com/sipmarket/market-engine/internal/model"
)

func newDeckCmd() *cobra.Command {
	var (
		rounds int
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Build and print an event deck for the given round count",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			rules := model.GameRules{Rounds: rounds}
			deck := market.BuildEventDeck(market.NewRand(seed), rules.DeckSize(), rules.EventMaxValue())
			return printJSON(cmd, map[string]any{
				"seed":      seed,
				"rounds":    rounds,
				"max_value": rules.EventMaxValue(),
				"cards":     deck,
			})
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", defaultRounds(), "planned number of rounds")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "RNG seed (0 picks one from the clock)")
	return cmd
}
