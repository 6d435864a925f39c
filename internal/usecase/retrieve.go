package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"godlearn/internal/adapter/cache"
	"godlearn/internal/adapter/store"
	"godlearn/internal/domain"
	"godlearn/internal/port"
)

// RetrieveUseCase embeds a query, retrieves top-N candidates by vector
// similarity and reorders them with a bounded highlight boost. The boost
// changes ordering only: the candidate set is fixed before boosting, and
// the whole stage is deterministic (no randomness, no generation).
type RetrieveUseCase struct {
	store    *store.BoltStore
	embedder port.Embedder
	cache    *cache.QueryCache
	topN     int
	boostCap float64
	logger   *zap.Logger
}

func NewRetrieveUseCase(
	st *store.BoltStore,
	embedder port.Embedder,
	qc *cache.QueryCache,
	topN int,
	boostCap float64,
	logger *zap.Logger,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		store:    st,
		embedder: embedder,
		cache:    qc,
		topN:     topN,
		boostCap: boostCap,
		logger:   logger,
	}
}

// Retrieve returns the boosted top-N results for the query. topN <= 0 uses
// the configured default.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topN int) ([]domain.ScoredChunk, error) {
	if topN <= 0 {
		topN = u.topN
	}

	gen, err := u.store.Generation()
	if err != nil {
		return nil, err
	}
	if u.cache != nil {
		if results, ok := u.cache.Get(query, topN, gen); ok {
			return results, nil
		}
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	candidates, err := u.store.Search(vectors[0], topN)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	highlights, err := u.store.Highlights()
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, len(candidates))
	for _, cand := range candidates {
		chunk, err := u.store.GetChunk(cand.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: retrieved chunk %s missing from store", domain.ErrIntegrity, cand.ID)
		}
		results = append(results, domain.ScoredChunk{
			Chunk:     chunk,
			BaseScore: cand.Score,
			Score:     cand.Score + boost(highlights[cand.ID], u.boostCap),
		})
	}

	// Reorder only. Every candidate stays in the result set.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if u.cache != nil {
		u.cache.Put(query, topN, gen, results)
	}
	return results, nil
}

// boost returns the bounded additive highlight boost.
func boost(weight, cap float64) float64 {
	if weight <= 0 {
		return 0
	}
	if weight > cap {
		return cap
	}
	return weight
}
