package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/domain"
)

// PromoteUseCase turns a query's deterministic retrieval result into an
// immutable knowledge unit. Promotion is explicit and query-conditioned;
// it fails closed when the verifier has not passed for the current manifest
// or when any claim lacks verifiable page-and-document provenance.
type PromoteUseCase struct {
	store        *store.BoltStore
	manifest     *journal.ManifestLog
	knowledge    *journal.KnowledgeLog
	retrieve     *RetrieveUseCase
	tokenizer    *analyzer.Tokenizer
	markerPath   string
	maxSentences int
	minOverlap   float64
	logger       *zap.Logger
}

func NewPromoteUseCase(
	st *store.BoltStore,
	manifest *journal.ManifestLog,
	knowledge *journal.KnowledgeLog,
	retrieve *RetrieveUseCase,
	tokenizer *analyzer.Tokenizer,
	markerPath string,
	maxSentences int,
	minOverlap float64,
	logger *zap.Logger,
) *PromoteUseCase {
	if maxSentences <= 0 {
		maxSentences = 8
	}
	return &PromoteUseCase{
		store:        st,
		manifest:     manifest,
		knowledge:    knowledge,
		retrieve:     retrieve,
		tokenizer:    tokenizer,
		markerPath:   markerPath,
		maxSentences: maxSentences,
		minOverlap:   minOverlap,
		logger:       logger,
	}
}

// PromoteResult reports what a promotion run produced.
type PromoteResult struct {
	Unit     domain.KnowledgeUnit
	Appended bool
}

type citedSentence struct {
	text    string
	chunkID string
	score   float64
	index   int
}

// Promote extracts citation-locked sentences for the query and appends one
// knowledge unit. Promoting the same query over the same state is a no-op.
func (u *PromoteUseCase) Promote(ctx context.Context, query string) (*PromoteResult, error) {
	if err := u.checkVerified(); err != nil {
		return nil, err
	}

	results, err := u.retrieve.Retrieve(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no retrieval results for query", domain.ErrEligibility)
	}

	selected := u.extractSentences(query, results)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no citation-backed sentences matched the query", domain.ErrEligibility)
	}

	chunkSet := make(map[string]bool)
	var parts []string
	for _, s := range selected {
		parts = append(parts, fmt.Sprintf("%s [%s]", s.text, s.chunkID))
		chunkSet[s.chunkID] = true
	}
	supporting := make([]string, 0, len(chunkSet))
	for id := range chunkSet {
		supporting = append(supporting, id)
	}
	sort.Strings(supporting)

	if err := u.checkProvenance(supporting); err != nil {
		return nil, err
	}

	text := strings.Join(parts, " ")
	ku := domain.KnowledgeUnit{
		ID:               kuID(text, supporting),
		Text:             text,
		SupportingChunks: supporting,
		Query:            query,
		PromotedAt:       time.Now().UTC(),
	}

	appended, err := u.knowledge.Append(ku)
	if err != nil {
		return nil, fmt.Errorf("failed to append knowledge unit: %w", err)
	}
	if appended == 0 {
		u.logger.Info("knowledge unit already promoted", zap.String("ku_id", ku.ID))
	}

	return &PromoteResult{Unit: ku, Appended: appended > 0}, nil
}

// checkVerified fails closed unless a verify run passed over the manifest
// as it currently stands.
func (u *PromoteUseCase) checkVerified() error {
	marker, err := LoadVerifiedMarker(u.markerPath)
	if err != nil {
		return err
	}
	if marker == nil {
		return fmt.Errorf("%w: verifier has not passed; run verify first", domain.ErrEligibility)
	}
	lines, err := u.manifest.Len()
	if err != nil {
		return err
	}
	if marker.ManifestLines != lines {
		return fmt.Errorf("%w: verified marker covers %d manifest lines, manifest has %d; run verify again",
			domain.ErrEligibility, marker.ManifestLines, lines)
	}
	return nil
}

// extractSentences scores each retrieved sentence by query-term overlap and
// keeps the best, with a fixed lexical tie-break.
func (u *PromoteUseCase) extractSentences(query string, results []domain.ScoredChunk) []citedSentence {
	queryTerms := u.tokenizer.UniqueTerms(query)
	if len(queryTerms) == 0 {
		return nil
	}
	querySet := make(map[string]bool, len(queryTerms))
	for _, t := range queryTerms {
		querySet[t] = true
	}

	var candidates []citedSentence
	for _, r := range results {
		for i, sentence := range analyzer.SplitSentences(r.Chunk.Text) {
			matched := 0
			for _, t := range u.tokenizer.UniqueTerms(sentence) {
				if querySet[t] {
					matched++
				}
			}
			score := float64(matched) / float64(len(queryTerms))
			if score < u.minOverlap {
				continue
			}
			candidates = append(candidates, citedSentence{
				text:    sentence,
				chunkID: r.Chunk.ID,
				score:   score,
				index:   i,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].chunkID != candidates[j].chunkID {
			return candidates[i].chunkID < candidates[j].chunkID
		}
		return candidates[i].index < candidates[j].index
	})

	if len(candidates) > u.maxSentences {
		candidates = candidates[:u.maxSentences]
	}

	// Present in stable citation order rather than score order.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].chunkID != candidates[j].chunkID {
			return candidates[i].chunkID < candidates[j].chunkID
		}
		return candidates[i].index < candidates[j].index
	})

	return candidates
}

// checkProvenance rejects promotion when any supporting chunk lacks a
// resolvable document and page range.
func (u *PromoteUseCase) checkProvenance(chunkIDs []string) error {
	for _, id := range chunkIDs {
		chunk, err := u.store.GetChunk(id)
		if err != nil {
			return fmt.Errorf("%w: supporting chunk %s unresolvable", domain.ErrEligibility, id)
		}
		if chunk.PageStart < 1 || chunk.PageEnd < chunk.PageStart {
			return fmt.Errorf("%w: supporting chunk %s has no page provenance", domain.ErrEligibility, id)
		}
		if _, err := u.store.GetDocument(chunk.DocID); err != nil {
			return fmt.Errorf("%w: supporting chunk %s has no document provenance", domain.ErrEligibility, id)
		}
	}
	return nil
}

func kuID(text string, supporting []string) string {
	hash := sha256.Sum256([]byte(text + "|" + strings.Join(supporting, ",")))
	return hex.EncodeToString(hash[:8])
}
