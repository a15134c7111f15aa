package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vpp/core/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Scenario file commands",
}

var generateOpts struct {
	count int
	seed  uint64
}

var scenariosGenerateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Write synthetic scenarios sized for the configured plant",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenariosGenerate,
}

func init() {
	f := scenariosGenerateCmd.Flags()
	f.IntVarP(&generateOpts.count, "count", "n", 1, "number of scenarios")
	f.Uint64Var(&generateOpts.seed, "seed", 0, "generator seed (default: run.generator_seed)")
	scenariosCmd.AddCommand(scenariosGenerateCmd)
	rootCmd.AddCommand(scenariosCmd)
}

func runScenariosGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	seed := cfg.Run.GeneratorSeed
	if cmd.Flags().Changed("seed") {
		seed = generateOpts.seed
	}
	series, err := scenario.Generate(generateOpts.count, cfg.Plant.Dims(cfg.Run.Nt), seed)
	if err != nil {
		return err
	}
	if err := scenario.NewFileStore().Save(args[0], series); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d scenario(s) to %s\n", len(series), args[0])
	return err
}
