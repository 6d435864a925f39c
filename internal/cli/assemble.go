package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"godlearn/config"
	"godlearn/internal/usecase"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble the reasoning graph into a styled, citation-locked draft",
	Long: `Map each knowledge unit and its reasoning edges to exactly one
paragraph, preserving citations inline, then apply a surface-only style
pass. The draft carries an outline and a trace linking every paragraph
back to its source unit; a validator discards any rewrite that drifts
from the pre-rewrite citations or headings.`,
	Args: cobra.NoArgs,
	RunE: runAssemble,
}

func init() {
	rootCmd.AddCommand(assembleCmd)
}

func runAssemble(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	assembleUC := usecase.NewAssembleUseCase(
		openKnowledge(root),
		openReasoning(root),
		cfg.Assemble,
		logger,
	)

	draft, err := assembleUC.Assemble()
	if err != nil {
		return fmt.Errorf("assembly failed: %w", err)
	}

	if err := writeStateJSON(config.DraftPath(root), draft); err != nil {
		return err
	}

	fmt.Printf("Assembled %d paragraphs", len(draft.Paragraphs))
	if draft.StyleApplied {
		fmt.Printf(" (style pass applied)")
	} else {
		fmt.Printf(" (plain draft)")
	}
	fmt.Printf("\nDraft: %s\n", config.DraftPath(root))
	return nil
}
