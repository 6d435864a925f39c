package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/chunker"
	"godlearn/internal/adapter/fs"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/domain"
	"godlearn/internal/port"
)

// IngestUseCase builds the append-only ingestion manifest: it walks the
// corpus, content-addresses documents, extracts page-aware text, chunks it
// deterministically and appends one manifest line per chunk. Re-running
// against unchanged files appends nothing.
type IngestUseCase struct {
	store      *store.BoltStore
	manifest   *journal.ManifestLog
	walker     *fs.Walker
	extractor  port.Extractor
	chunker    *chunker.ParagraphChunker
	tokenizer  *analyzer.Tokenizer
	collection string
	workers    int
	logger     *zap.Logger
}

func NewIngestUseCase(
	st *store.BoltStore,
	manifest *journal.ManifestLog,
	walker *fs.Walker,
	extractor port.Extractor,
	chk *chunker.ParagraphChunker,
	tokenizer *analyzer.Tokenizer,
	collection string,
	workers int,
	logger *zap.Logger,
) *IngestUseCase {
	if workers <= 0 {
		workers = 1
	}
	return &IngestUseCase{
		store:      st,
		manifest:   manifest,
		walker:     walker,
		extractor:  extractor,
		chunker:    chk,
		tokenizer:  tokenizer,
		collection: collection,
		workers:    workers,
		logger:     logger,
	}
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	FilesIngested  int
	FilesSkipped   int
	FilesFailed    int
	ChunksAppended int
	Warnings       []string
}

type extracted struct {
	file   fs.FileInfo
	doc    domain.Document
	chunks []domain.Chunk
	err    error
}

// Ingest walks root and appends manifest lines for new documents. Extraction
// runs in parallel across files; the manifest append stays single-writer and
// follows walk order, so output is deterministic.
func (u *IngestUseCase) Ingest(ctx context.Context, root string, progress func(done, total int)) (*IngestResult, error) {
	result := &IngestResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}

	existing, err := u.manifest.DocIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	results := make([]extracted, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = u.extractFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []domain.ManifestEntry
	done := 0
	for _, ex := range results {
		done++
		if progress != nil {
			progress(done, len(files))
		}

		if ex.err != nil {
			// Partial-failure tolerant: skip the file, keep going.
			result.FilesFailed++
			warning := fmt.Sprintf("%s: %v", ex.file.RelPath, ex.err)
			result.Warnings = append(result.Warnings, warning)
			u.logger.Warn("skipping unreadable corpus file",
				zap.String("path", ex.file.RelPath),
				zap.Error(ex.err))
			continue
		}

		// Same doc_id must mean same (path, content). The cross-check runs
		// before the unchanged-file skip so a collision against an already
		// manifested document still halts ingestion.
		if stored, err := u.store.GetDocument(ex.doc.ID); err == nil {
			if stored.SHA256 != ex.doc.SHA256 || stored.Path != ex.doc.Path {
				return nil, fmt.Errorf("%w: doc_id collision on %s (%s vs %s)",
					domain.ErrIntegrity, ex.doc.ID, stored.Path, ex.doc.Path)
			}
		}

		if existing[ex.doc.ID] {
			result.FilesSkipped++
			continue
		}

		if err := u.persist(ex); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		for _, chunk := range ex.chunks {
			entries = append(entries, domain.ManifestEntry{
				DocID:     ex.doc.ID,
				ChunkID:   chunk.ID,
				SHA256:    ChunkHash(chunk.Text),
				Timestamp: now,
			})
		}
		existing[ex.doc.ID] = true
		result.FilesIngested++
		result.ChunksAppended += len(ex.chunks)
	}

	if len(entries) > 0 {
		if err := u.manifest.Append(entries...); err != nil {
			return nil, fmt.Errorf("failed to append manifest: %w", err)
		}
		if err := u.store.BumpGeneration(); err != nil {
			return nil, fmt.Errorf("failed to bump store generation: %w", err)
		}
	}

	return result, nil
}

func (u *IngestUseCase) extractFile(file fs.FileInfo) extracted {
	ex := extracted{file: file}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		ex.err = fmt.Errorf("failed to read: %w", err)
		return ex
	}
	fileHash := sha256.Sum256(data)
	fileSHA := hex.EncodeToString(fileHash[:])

	pages, err := u.extractor.Extract(file.Path)
	if err != nil {
		ex.err = fmt.Errorf("failed to extract text: %w", err)
		return ex
	}

	docID := DocID(file.RelPath, fileSHA)
	ex.doc = domain.Document{
		ID:         docID,
		Path:       file.RelPath,
		SHA256:     fileSHA,
		Collection: u.collection,
		Pages:      len(pages),
	}
	ex.chunks = u.chunker.Chunk(docID, pages)
	if len(ex.chunks) == 0 {
		ex.err = fmt.Errorf("no extractable text")
	}
	return ex
}

func (u *IngestUseCase) persist(ex extracted) error {
	if err := u.store.PutDocument(ex.doc); err != nil {
		return fmt.Errorf("failed to store document %s: %w", ex.doc.ID, err)
	}
	if err := u.store.PutChunks(ex.chunks); err != nil {
		return fmt.Errorf("failed to store chunks for %s: %w", ex.doc.ID, err)
	}
	for _, chunk := range ex.chunks {
		if err := u.store.AddTerms(u.tokenizer.UniqueTerms(chunk.Text)); err != nil {
			return fmt.Errorf("failed to index terms for %s: %w", chunk.ID, err)
		}
	}
	return nil
}

// DocID derives the content-addressed document ID from the slash-relative
// path and the file content hash.
func DocID(relPath, sha string) string {
	hash := sha256.Sum256([]byte(relPath + ":" + sha))
	return hex.EncodeToString(hash[:8])
}

// ChunkHash returns the content hash of a chunk's text.
func ChunkHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
