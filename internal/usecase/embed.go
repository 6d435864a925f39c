package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/domain"
	"godlearn/internal/port"
)

// EmbedUseCase indexes manifest chunks into the vector store. Upserts are
// idempotent by chunk content hash; batches shrink adaptively on transient
// failures and degrade to a skipped-batch report instead of failing the run.
type EmbedUseCase struct {
	store     *store.BoltStore
	manifest  *journal.ManifestLog
	embedder  port.Embedder
	batchSize int
	logger    *zap.Logger
}

func NewEmbedUseCase(
	st *store.BoltStore,
	manifest *journal.ManifestLog,
	embedder port.Embedder,
	batchSize int,
	logger *zap.Logger,
) *EmbedUseCase {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &EmbedUseCase{
		store:     st,
		manifest:  manifest,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SkippedBatch records a batch whose retries were exhausted.
type SkippedBatch struct {
	ChunkIDs []string
	Reason   string
}

// EmbedResult contains the results of an embedding run.
type EmbedResult struct {
	Embedded        int
	SkippedUnchanged int
	SkippedBatches  []SkippedBatch
}

type pendingChunk struct {
	id   string
	hash string
	text string
}

// Run embeds every manifest chunk not already present with an identical
// content hash. The configured dimension is validated against the store
// before any call; a mismatch is a fatal configuration error.
func (u *EmbedUseCase) Run(ctx context.Context, progress func(done, total int)) (*EmbedResult, error) {
	if err := u.store.EnsureDimension(u.embedder.Dimension()); err != nil {
		return nil, err
	}

	entries, err := u.manifest.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	result := &EmbedResult{}
	var pending []pendingChunk
	seen := make(map[string]bool)

	for _, e := range entries {
		if seen[e.ChunkID] {
			continue
		}
		seen[e.ChunkID] = true

		has, err := u.store.Has(e.ChunkID, e.SHA256)
		if err != nil {
			return nil, err
		}
		if has {
			result.SkippedUnchanged++
			continue
		}

		chunk, err := u.store.GetChunk(e.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("%w: manifest chunk %s missing from store", domain.ErrIntegrity, e.ChunkID)
		}
		pending = append(pending, pendingChunk{id: e.ChunkID, hash: e.SHA256, text: chunk.Text})
	}

	done := 0
	for start := 0; start < len(pending); {
		size := u.batchSize
		if start+size > len(pending) {
			size = len(pending) - start
		}
		batch := pending[start : start+size]

		written, err := u.embedBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, domain.ErrTransient) {
				if size > 1 {
					// Adaptive shrink: halve the window and retry.
					u.batchSize = size / 2
					u.logger.Warn("embedding batch timed out, shrinking batch size",
						zap.Int("from", size),
						zap.Int("to", u.batchSize))
					continue
				}
				ids := make([]string, len(batch))
				for i, p := range batch {
					ids[i] = p.id
				}
				result.SkippedBatches = append(result.SkippedBatches, SkippedBatch{
					ChunkIDs: ids,
					Reason:   err.Error(),
				})
				u.logger.Warn("embedding batch skipped after retry exhaustion",
					zap.Strings("chunk_ids", ids))
				start += size
				done += size
				if progress != nil {
					progress(done, len(pending))
				}
				continue
			}
			return nil, err
		}

		result.Embedded += written
		start += size
		done += size
		if progress != nil {
			progress(done, len(pending))
		}
	}

	return result, nil
}

func (u *EmbedUseCase) embedBatch(ctx context.Context, batch []pendingChunk) (int, error) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(batch))
	}

	items := make([]port.VectorItem, len(batch))
	for i, p := range batch {
		items[i] = port.VectorItem{ID: p.id, Vector: vectors[i], ContentHash: p.hash}
	}
	written, err := u.store.Upsert(items)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return written, nil
}
