package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"godlearn/config"
	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/chunker"
	"godlearn/internal/adapter/extract"
	"godlearn/internal/adapter/fs"
	"godlearn/internal/adapter/store"
	"godlearn/internal/usecase"
)

var ingestNoEmbed bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [corpus_root]",
	Short: "Build the append-only manifest and embed new chunks",
	Long: `Walk the corpus, content-address each document, extract page-aware
text, chunk it into paragraphs and append one manifest line per chunk.
Unchanged files append nothing. New chunks are then embedded into the
vector store unless --no-embed is given.

Examples:
  godlearn ingest .                 # Ingest current directory
  godlearn ingest ./papers --no-embed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestNoEmbed, "no-embed", false, "skip the embedding phase")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return usageErrorf("invalid path: %v", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return usageErrorf("path does not exist: %v", err)
	}
	if !info.IsDir() {
		return usageErrorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

	if err := config.EnsureStateDir(path); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	st, err := store.NewBoltStore(config.IndexDBPath(path))
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer st.Close()

	walker := fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	extractor := extract.NewComposite(extract.NewPDFExtractor(), extract.NewPlainExtractor())
	tokenizer := analyzer.NewTokenizer()

	ingestUC := usecase.NewIngestUseCase(
		st,
		openManifest(path),
		walker,
		extractor,
		chunker.NewParagraphChunker(),
		tokenizer,
		cfg.Corpus.Collection,
		cfg.Corpus.Workers,
		logger,
	)

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	progress := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Ingesting"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	result, err := ingestUC.Ingest(cmd.Context(), path, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Files ingested: %d\n", result.FilesIngested)
	fmt.Printf("  Files skipped:  %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files failed:   %d\n", result.FilesFailed)
	fmt.Printf("  Chunks added:   %d\n", result.ChunksAppended)

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	if !ingestNoEmbed {
		if err := runEmbedPhase(cmd, path, st); err != nil {
			return err
		}
	}

	fmt.Printf("\nManifest: %s\n", config.ManifestPath(path))
	return nil
}

// runEmbedPhase indexes unembedded manifest chunks into the vector store.
func runEmbedPhase(cmd *cobra.Command, path string, st *store.BoltStore) error {
	cfg := GetConfig()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	embedUC := usecase.NewEmbedUseCase(st, openManifest(path), embedder, cfg.Embedding.BatchSize, logger)

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			fmt.Printf("\nEmbedding %d chunks...\n", total)
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Embedding"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	result, err := embedUC.Run(cmd.Context(), progress)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	fmt.Printf("\nEmbedding complete:\n")
	fmt.Printf("  Vectors written:   %d\n", result.Embedded)
	fmt.Printf("  Chunks unchanged:  %d\n", result.SkippedUnchanged)
	if len(result.SkippedBatches) > 0 {
		fmt.Printf("  Batches skipped:   %d (transient failures)\n", len(result.SkippedBatches))
		for _, b := range result.SkippedBatches {
			fmt.Printf("    - %d chunks: %s\n", len(b.ChunkIDs), b.Reason)
		}
	}
	return nil
}
