package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"godlearn/internal/domain"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight",
	Short: "Manage researcher highlight annotations",
}

var highlightSetCmd = &cobra.Command{
	Use:   "set <chunk_id> <weight>",
	Short: "Set the boost weight for a chunk",
	Long: `Record a researcher annotation for a chunk. Highlights affect
retrieval ordering only; the candidate set never changes.`,
	Args: cobra.ExactArgs(2),
	RunE: runHighlightSet,
}

var highlightListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all highlight annotations",
	Args:  cobra.NoArgs,
	RunE:  runHighlightList,
}

func init() {
	rootCmd.AddCommand(highlightCmd)
	highlightCmd.AddCommand(highlightSetCmd)
	highlightCmd.AddCommand(highlightListCmd)
}

func runHighlightSet(cmd *cobra.Command, args []string) error {
	weight, err := strconv.ParseFloat(args[1], 64)
	if err != nil || weight < 0 {
		return usageErrorf("weight must be a non-negative number, got %q", args[1])
	}

	st, err := openStore(GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	chunkID := args[0]
	if ok, err := st.HasChunk(chunkID); err != nil {
		return err
	} else if !ok {
		return usageErrorf("unknown chunk: %s", chunkID)
	}

	if err := st.SetHighlight(domain.Highlight{ChunkID: chunkID, Weight: weight}); err != nil {
		return fmt.Errorf("failed to set highlight: %w", err)
	}
	fmt.Printf("Highlight set: %s -> %.3f\n", chunkID, weight)
	return nil
}

func runHighlightList(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	weights, err := st.Highlights()
	if err != nil {
		return err
	}
	if len(weights) == 0 {
		fmt.Println("No highlights.")
		return nil
	}

	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s  %.3f\n", id, weights[id])
	}
	return nil
}
