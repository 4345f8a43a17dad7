package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type SeedCmd struct {
	salesPath string
	modelPath string
	rt        *Runtime
}

func NewSeedCmd(rt *Runtime) *cobra.Command {
	sc := &SeedCmd{rt: rt}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load baseline sales and the uplift model",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.salesPath, "sales", "", "CSV export of daily sales facts")
	cmd.Flags().StringVar(&sc.modelPath, "model", "", "YAML file with uplift coefficients and segments")
	cmd.MarkFlagsOneRequired("sales", "model")

	return cmd
}

func (sc *SeedCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	var summary SeedSummary

	if sc.modelPath != "" {
		f, err := os.Open(sc.modelPath)
		if err != nil {
			return fmt.Errorf("open model file: %w", err)
		}
		defer f.Close()

		stats, err := sc.rt.Seeder.LoadModel(ctx, f)
		if err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}
		summary.Coefficients = stats.Coefficients
		summary.Segments = stats.Segments
		summary.Targets = stats.Targets
	}

	if sc.salesPath != "" {
		f, err := os.Open(sc.salesPath)
		if err != nil {
			return fmt.Errorf("open sales file: %w", err)
		}
		defer f.Close()

		n, err := sc.rt.Seeder.LoadSales(ctx, f)
		if err != nil {
			return fmt.Errorf("failed to load sales after %d rows: %w", n, err)
		}
		summary.SalesRows = n
	}

	return sc.rt.Reporter.Seeded(summary)
}
