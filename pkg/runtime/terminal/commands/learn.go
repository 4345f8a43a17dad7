package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewLearnCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "learn",
		Short: "Recalibrate the uplift model from stored post-mortems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := rt.Learner.Learn(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to learn uplift model: %w", err)
			}
			return rt.Reporter.Learned(result)
		},
	}
}
