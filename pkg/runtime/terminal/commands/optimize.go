package commands

import (
	"fmt"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/spf13/cobra"
)

type OptimizeCmd struct {
	brief   briefFlags
	text    string
	weights []float64
	rt      *Runtime
}

func NewOptimizeCmd(rt *Runtime) *cobra.Command {
	oc := &OptimizeCmd{rt: rt}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Generate, score and rank candidate scenarios for a brief",
		RunE:  oc.run,
	}

	oc.brief.register(cmd)
	cmd.Flags().StringVar(&oc.text, "text", "", "Free-text brief naming a YYYY-MM month")
	cmd.Flags().Float64SliceVar(&oc.weights, "weights", nil, "Objective weights as sales,margin,ebit (default: 0.4,0.3,0.3)")
	cmd.MarkFlagsOneRequired("month", "text")
	cmd.MarkFlagsMutuallyExclusive("month", "text")

	return cmd
}

func (oc *OptimizeCmd) run(cmd *cobra.Command, _ []string) error {
	var (
		brief domain.Brief
		err   error
	)
	if oc.text != "" {
		brief, err = adapters.ParseBriefText(oc.text)
	} else {
		brief, err = oc.brief.brief()
	}
	if err != nil {
		return err
	}

	objectives := brief.Objectives
	if len(oc.weights) > 0 {
		if len(oc.weights) != 3 {
			return fmt.Errorf("--weights takes exactly three values, got %d", len(oc.weights))
		}
		objectives.Weights = &domain.ObjectiveWeights{Sales: oc.weights[0], Margin: oc.weights[1], EBIT: oc.weights[2]}
	}

	res, err := oc.rt.Scenarios.Optimize(cmd.Context(), brief, objectives)
	if err != nil {
		return fmt.Errorf("failed to optimize: %w", err)
	}
	return oc.rt.Reporter.Optimization(res)
}
