package commands

import (
	"fmt"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/spf13/cobra"
)

type EvaluateCmd struct {
	scenarioPath string
	id           string
	rt           *Runtime
}

func NewEvaluateCmd(rt *Runtime) *cobra.Command {
	ec := &EvaluateCmd{rt: rt}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Forecast the KPIs of a scenario file or a stored scenario",
		RunE:  ec.run,
	}

	cmd.Flags().StringVar(&ec.scenarioPath, "file", "", "Scenario JSON file")
	cmd.Flags().StringVar(&ec.id, "id", "", "Stored scenario id, re-evaluated against the current baseline")
	cmd.MarkFlagsOneRequired("file", "id")
	cmd.MarkFlagsMutuallyExclusive("file", "id")

	return cmd
}

func (ec *EvaluateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if ec.id != "" {
		kpi, report, err := ec.rt.Scenarios.Reevaluate(ctx, ec.id)
		if err != nil {
			return fmt.Errorf("failed to re-evaluate scenario: %w", err)
		}
		if err := ec.rt.Reporter.KPI(kpi); err != nil {
			return err
		}
		return ec.rt.Reporter.Validation(report)
	}

	s, err := readScenario(ec.scenarioPath)
	if err != nil {
		return err
	}
	kpi, err := ec.rt.Scenarios.Evaluate(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to evaluate scenario: %w", err)
	}
	return ec.rt.Reporter.KPI(kpi)
}

type ValidateCmd struct {
	scenarioPath string
	kpiPath      string
	rt           *Runtime
}

func NewValidateCmd(rt *Runtime) *cobra.Command {
	vc := &ValidateCmd{rt: rt}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a scenario against its guardrails",
		RunE:  vc.run,
	}

	cmd.Flags().StringVar(&vc.scenarioPath, "file", "", "Scenario JSON file")
	cmd.Flags().StringVar(&vc.kpiPath, "kpi", "", "KPI JSON file (default: evaluate the scenario)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (vc *ValidateCmd) run(cmd *cobra.Command, _ []string) error {
	s, err := readScenario(vc.scenarioPath)
	if err != nil {
		return err
	}

	var kpi *domain.KPI
	if vc.kpiPath != "" {
		var in api.KPIInput
		if err := readJSONFile(vc.kpiPath, &in); err != nil {
			return err
		}
		k := adapters.MapKPIInputApiToDomain(in)
		kpi = &k
	}

	report, err := vc.rt.Scenarios.Validate(cmd.Context(), s, kpi)
	if err != nil {
		return fmt.Errorf("failed to validate scenario: %w", err)
	}
	return vc.rt.Reporter.Validation(report)
}

func readScenario(path string) (domain.Scenario, error) {
	var raw api.Scenario
	if err := readJSONFile(path, &raw); err != nil {
		return domain.Scenario{}, err
	}
	return adapters.MapScenarioApiToDomain(raw)
}
