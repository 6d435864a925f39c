package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"godlearn/config"
	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/cache"
	"godlearn/internal/usecase"
)

var promoteQuery string

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote a query's retrieval result into an immutable knowledge unit",
	Long: `Run deterministic citation-locked extraction over the query's
retrieval results and append one knowledge unit. Every claim must be backed
by a chunk with page and document provenance, and the verifier must have
passed over the current manifest; otherwise promotion fails closed.

Example:
  godlearn promote -q "mechanisms of long-term potentiation"`,
	Args: cobra.NoArgs,
	RunE: runPromote,
}

func init() {
	rootCmd.AddCommand(promoteCmd)
	promoteCmd.Flags().StringVarP(&promoteQuery, "query", "q", "", "promotion query (required)")
	promoteCmd.MarkFlagRequired("query")
}

func runPromote(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	st, err := openStore(root)
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	retrieveUC := usecase.NewRetrieveUseCase(
		st,
		embedder,
		cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL),
		cfg.Retrieve.TopN,
		cfg.Retrieve.BoostCap,
		logger,
	)

	promoteUC := usecase.NewPromoteUseCase(
		st,
		openManifest(root),
		openKnowledge(root),
		retrieveUC,
		analyzer.NewTokenizer(),
		config.VerifiedMarkerPath(root),
		cfg.Promote.MaxSentences,
		cfg.Promote.MinTermOverlap,
		logger,
	)

	result, err := promoteUC.Promote(cmd.Context(), promoteQuery)
	if err != nil {
		return fmt.Errorf("promotion failed: %w", err)
	}

	if result.Appended {
		fmt.Printf("Promoted knowledge unit %s (%d supporting chunks)\n",
			result.Unit.ID, len(result.Unit.SupportingChunks))
	} else {
		fmt.Printf("Knowledge unit %s already promoted; log unchanged\n", result.Unit.ID)
	}
	fmt.Println(result.Unit.Text)
	return nil
}
