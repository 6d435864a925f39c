package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"godlearn/config"
	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/cache"
	"godlearn/internal/usecase"
)

var (
	answerQuery string
	answerMode  string
	reportQuery string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report what the corpus covers for a query, without answering it",
	Long: `Compute the coverage diagnostic for a query: retrieved chunk and
document counts, knowledge-unit and reasoning-edge hits, vocabulary gaps
and an overall coverage grade. The report is regenerable from corpus state
and is never treated as ground truth.

Example:
  godlearn report -q "synaptic plasticity"`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Produce a grounded answer artifact with typed provenance",
	Long: `Assemble an answer whose every claim carries typed provenance.
In local mode only corpus-backed claims are permitted; in external mode
externally-sourced claims are always permitted; in hybrid mode the gate
opens only when coverage is weak or the query signals recency or an
out-of-corpus domain. The gate decision is computed, recorded in the
artifact and enforced by a validator before anything is written.

Example:
  godlearn answer -q "synaptic plasticity" --mode local`,
	Args: cobra.NoArgs,
	RunE: runAnswer,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportQuery, "query", "q", "", "query to diagnose (required)")
	reportCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(answerCmd)
	answerCmd.Flags().StringVarP(&answerQuery, "query", "q", "", "query to answer (required)")
	answerCmd.Flags().StringVar(&answerMode, "mode", "", "answer mode: local, hybrid or external (default from config)")
	answerCmd.MarkFlagRequired("query")
}

func newAnswerUseCase(root string) (*usecase.AnswerUseCase, func(), error) {
	cfg := GetConfig()

	st, err := openStore(root)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	retrieveUC := usecase.NewRetrieveUseCase(
		st,
		embedder,
		cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL),
		cfg.Retrieve.TopN,
		cfg.Retrieve.BoostCap,
		logger,
	)

	answerUC := usecase.NewAnswerUseCase(
		st,
		openKnowledge(root),
		openReasoning(root),
		retrieveUC,
		analyzer.NewTokenizer(),
		cfg.Answer,
		logger,
	)
	return answerUC, func() { st.Close() }, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	root := GetRootDir()

	answerUC, closeFn, err := newAnswerUseCase(root)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := answerUC.Report(cmd.Context(), reportQuery)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	if err := writeStateJSON(config.ReportPath(root), report); err != nil {
		return err
	}

	fmt.Printf("Coverage: %s (%d retrieved, %d docs, %d KU hits, %d edge hits)\n",
		report.CoverageGrade, report.RetrievedCount, report.DistinctDocs,
		len(report.KUHits), len(report.EdgeHits))
	if len(report.Gaps) > 0 {
		fmt.Printf("Vocabulary gaps: %v\n", report.Gaps)
	}
	fmt.Printf("Report: %s\n", config.ReportPath(root))
	return nil
}

func runAnswer(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	mode := answerMode
	if mode == "" {
		mode = cfg.Answer.DefaultMode
	}

	answerUC, closeFn, err := newAnswerUseCase(root)
	if err != nil {
		return err
	}
	defer closeFn()

	ans, report, err := answerUC.Answer(cmd.Context(), answerQuery, mode)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if err := writeStateJSON(config.ReportPath(root), report); err != nil {
		return err
	}
	if err := writeStateJSON(config.AnswerPath(root), ans); err != nil {
		return err
	}
	if err := writeStateJSON(config.AnswerUIPath(root), usecase.ForUI(ans)); err != nil {
		return err
	}

	fmt.Printf("Answer %s: %d claims, coverage %s, mode %s, external allowed: %v\n",
		ans.RunID, len(ans.Claims), ans.CoverageGrade, ans.Mode, ans.ExternalAllowed)
	fmt.Printf("Answer: %s\n", config.AnswerPath(root))
	return nil
}

// writeStateJSON writes a pipeline artifact into the state directory.
func writeStateJSON(path string, v any) error {
	if err := config.EnsureStateDir(GetRootDir()); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
