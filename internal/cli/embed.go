package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"godlearn/config"
	"godlearn/internal/adapter/store"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Index unembedded manifest chunks into the vector store",
	Long: `Embed every manifest chunk whose content hash is not yet in the
vector store. Use after an ingest run with --no-embed, or to retry
batches skipped on transient embedding failures.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	path := GetRootDir()

	st, err := store.NewBoltStore(config.IndexDBPath(path))
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer st.Close()

	return runEmbedPhase(cmd, path, st)
}
