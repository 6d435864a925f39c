package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"godlearn/internal/adapter/cache"
	"godlearn/internal/usecase"
)

var (
	queryText string
	queryTopN int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Retrieve chunks for a query with deterministic reranking",
	Long: `Embed the query, retrieve the top-N chunks by vector similarity and
reorder them with the bounded highlight boost. The boost never adds or
removes candidates, only reorders them.

Examples:
  godlearn query -q "transformer attention"
  godlearn query -q "protein folding" --top-n 5 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text (required)")
	queryCmd.Flags().IntVarP(&queryTopN, "top-n", "n", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

// queryResult is the CLI projection of a scored chunk.
type queryResult struct {
	ChunkID   string  `json:"chunk_id"`
	Path      string  `json:"path"`
	PageStart int     `json:"page_start"`
	PageEnd   int     `json:"page_end"`
	Score     float64 `json:"score"`
	BaseScore float64 `json:"base_score"`
	Text      string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	chunks, err := retrieveUC.Retrieve(cmd.Context(), queryText, queryTopN)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	results := make([]queryResult, 0, len(chunks))
	for _, c := range chunks {
		path := ""
		if doc, err := st.GetDocument(c.Chunk.DocID); err == nil {
			path = doc.Path
		}
		results = append(results, queryResult{
			ChunkID:   c.Chunk.ID,
			Path:      path,
			PageStart: c.Chunk.PageStart,
			PageEnd:   c.Chunk.PageEnd,
			Score:     c.Score,
			BaseScore: c.BaseScore,
			Text:      c.Chunk.Text,
		})
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s p.%d-%d (%s, score: %.4f) ---\n", i+1, r.Path, r.PageStart, r.PageEnd, r.ChunkID, r.Score)
		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
