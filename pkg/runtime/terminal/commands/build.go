package commands

import (
	"fmt"
	"strings"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/spf13/cobra"
)

// briefFlags are shared by the commands that start from a brief.
type briefFlags struct {
	month       string
	focus       []string
	channels    []string
	maxDiscount float64
	minMargin   float64
}

func (f *briefFlags) register(cmd *cobra.Command) {
	defaults := domain.DefaultConstraints()
	cmd.Flags().StringVar(&f.month, "month", "", "Campaign month as YYYY-MM")
	cmd.Flags().StringSliceVar(&f.focus, "focus", nil, "Focus departments (default: every known department)")
	cmd.Flags().StringSliceVar(&f.channels, "channels", nil, "Channels (default: online and offline)")
	cmd.Flags().Float64Var(&f.maxDiscount, "max-discount", defaults.MaxDiscount, "Discount ceiling as a fraction")
	cmd.Flags().Float64Var(&f.minMargin, "min-margin", defaults.MinMargin, "Margin floor as a fraction")
}

func (f *briefFlags) brief() (domain.Brief, error) {
	r, err := adapters.MonthRange(f.month)
	if err != nil {
		return domain.Brief{}, err
	}
	return domain.Brief{
		Month:            strings.TrimSpace(f.month),
		PromoDateRange:   r,
		FocusDepartments: f.focus,
		Channels:         f.channels,
		Constraints:      domain.Constraints{MaxDiscount: f.maxDiscount, MinMargin: f.minMargin},
	}, nil
}

type BuildCmd struct {
	brief        briefFlags
	scenarioType string
	label        string
	discount     float64
	rt           *Runtime
}

func NewBuildCmd(rt *Runtime) *cobra.Command {
	bc := &BuildCmd{rt: rt}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build, evaluate, validate and store a scenario",
		RunE:  bc.run,
	}

	bc.brief.register(cmd)
	cmd.Flags().StringVar(&bc.scenarioType, "type", string(domain.ScenarioTypeBalanced), "Scenario type: balanced, aggressive or conservative")
	cmd.Flags().StringVar(&bc.label, "label", "", "Scenario label")
	cmd.Flags().Float64Var(&bc.discount, "discount", -1, "Uniform discount in percent points (default: derived from the type)")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

func (bc *BuildCmd) run(cmd *cobra.Command, _ []string) error {
	brief, err := bc.brief.brief()
	if err != nil {
		return err
	}

	params := domain.BuildParameters{Label: bc.label}
	if bc.discount >= 0 {
		discount := bc.discount
		params.DiscountPct = &discount
	}

	bundle, err := bc.rt.Scenarios.Create(cmd.Context(), brief, domain.ScenarioType(bc.scenarioType), params)
	if err != nil {
		return fmt.Errorf("failed to build scenario: %w", err)
	}
	return bc.rt.Reporter.Bundle(bundle)
}
