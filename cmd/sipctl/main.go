package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sipmarket/market-engine/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "sipctl",
		Short:        "Offline tools for the sip market engine",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSimulateCmd(),
		newDeckCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// defaultRounds reads the server's rule defaults so the CLI matches a
// freshly created game.
func defaultRounds() int {
	cfg, err := config.Load("")
	if err != nil {
		return 10
	}
	return cfg.Rules.Rounds
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
