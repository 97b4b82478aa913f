package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rockNroll87q/DetectingAwarenessfMRIstimulation/engine"
)

var orderSeed uint64

// orderCmd prints the block order a seed produces without opening a window.
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the block order for a seed",
	Long: `Builds the block order exactly as "run" would and prints it.

Example:
  vsimagery order --seed 42`,
	Args: cobra.NoArgs,
	RunE: printOrder,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the YAML config file",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to --config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := engine.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	orderCmd.Flags().Uint64Var(&orderSeed, "seed", 0, "Block order seed (0 = config seed, or random)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func printOrder(cmd *cobra.Command, args []string) error {
	cfg, err := engine.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	conds, err := cfg.Conditions()
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if orderSeed != 0 {
		seed = orderSeed
	}
	rng, seed := engine.NewRand(seed)
	order := engine.BuildBlockOrder(conds, cfg.BlocksPerCond, rng)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "seed: %d\n", seed)
	for i, c := range order {
		fmt.Fprintf(out, "%2d  %-8s %s\n", i+1, c.Name, c.Instruction)
	}
	return nil
}
