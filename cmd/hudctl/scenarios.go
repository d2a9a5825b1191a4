package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hudbridge/internal/scenario"
)

// scenariosCmd lists the built-in scenarios.
var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List built-in scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range scenario.ListEmbedded() {
			sc, _ := scenario.GetEmbedded(name)
			fmt.Fprintf(os.Stdout, "%-12s %d surfaces, %d steps\n", name, len(sc.Surfaces), len(sc.Steps))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
}

// loadScenario resolves a built-in scenario name or a YAML file path.
func loadScenario(ref string) (*scenario.Scenario, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return scenario.Load(ref)
	}
	if sc, ok := scenario.GetEmbedded(ref); ok {
		return sc, nil
	}
	return nil, fmt.Errorf("unknown scenario %q (available: %s)", ref, strings.Join(scenario.ListEmbedded(), ", "))
}
