package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"godlearn/internal/usecase"
)

var reasonCmd = &cobra.Command{
	Use:   "reason",
	Short: "Build the cross-document reasoning graph over promoted units",
	Long: `Compute character n-gram similarity across all promoted knowledge
units, prune to the top-K neighbors per unit and classify each retained
pair into a typed relation. Recomputing over the same units appends
nothing: edges are idempotent by edge_id.`,
	Args: cobra.NoArgs,
	RunE: runReason,
}

func init() {
	rootCmd.AddCommand(reasonCmd)
}

func runReason(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	reasonUC := usecase.NewReasonUseCase(
		openKnowledge(root),
		openReasoning(root),
		cfg.Reason,
		logger,
	)

	result, err := reasonUC.Build()
	if err != nil {
		return fmt.Errorf("reasoning failed: %w", err)
	}

	fmt.Printf("Reasoning complete:\n")
	fmt.Printf("  Knowledge units: %d\n", result.KUs)
	fmt.Printf("  Pairs scored:    %d\n", result.PairsScored)
	fmt.Printf("  Edges retained:  %d\n", result.EdgesRetained)
	fmt.Printf("  Edges appended:  %d\n", result.EdgesAppended)
	return nil
}
