package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"godlearn/internal/usecase"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize pipeline state across every phase",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	root := GetRootDir()

	st, err := openStore(root)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := usecase.Stats(st, openManifest(root), openKnowledge(root), openReasoning(root))
	if err != nil {
		return err
	}

	fmt.Printf("Documents:       %d\n", stats.TotalDocs)
	fmt.Printf("Chunks:          %d\n", stats.TotalChunks)
	fmt.Printf("Vectors:         %d\n", stats.TotalVectors)
	fmt.Printf("Knowledge units: %d\n", stats.TotalKUs)
	fmt.Printf("Reasoning edges: %d\n", stats.TotalEdges)
	return nil
}
