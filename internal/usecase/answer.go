package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"godlearn/config"
	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/domain"
)

// AnswerUseCase is the epistemic interaction boundary. REPORT computes
// corpus-coverage diagnostics; ANSWER assembles a grounded artifact whose
// claims all carry typed provenance. Whether external provenance may
// supplement an answer is computed programmatically by the mode gate, not
// left to instruction-following.
type AnswerUseCase struct {
	store     *store.BoltStore
	knowledge *journal.KnowledgeLog
	reasoning *journal.ReasoningLog
	retrieve  *RetrieveUseCase
	tokenizer *analyzer.Tokenizer
	cfg       config.AnswerConfig
	logger    *zap.Logger
}

func NewAnswerUseCase(
	st *store.BoltStore,
	knowledge *journal.KnowledgeLog,
	reasoning *journal.ReasoningLog,
	retrieve *RetrieveUseCase,
	tokenizer *analyzer.Tokenizer,
	cfg config.AnswerConfig,
	logger *zap.Logger,
) *AnswerUseCase {
	return &AnswerUseCase{
		store:     st,
		knowledge: knowledge,
		reasoning: reasoning,
		retrieve:  retrieve,
		tokenizer: tokenizer,
		cfg:       cfg,
		logger:    logger,
	}
}

type coverage struct {
	report  domain.Report
	hitKUs  []domain.KnowledgeUnit
	recency bool
	outOfCorpus bool
}

// Report computes the coverage diagnostic for a query. The result is
// regenerable and never persisted as ground truth.
func (u *AnswerUseCase) Report(ctx context.Context, query string) (*domain.Report, error) {
	cov, err := u.coverage(ctx, query)
	if err != nil {
		return nil, err
	}
	return &cov.report, nil
}

func (u *AnswerUseCase) coverage(ctx context.Context, query string) (*coverage, error) {
	results, err := u.retrieve.Retrieve(ctx, query, 0)
	if err != nil {
		return nil, err
	}

	retrievedChunks := make(map[string]bool, len(results))
	docs := make(map[string]bool)
	for _, r := range results {
		retrievedChunks[r.Chunk.ID] = true
		docs[r.Chunk.DocID] = true
	}

	units, err := u.knowledge.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge log: %w", err)
	}
	var hitKUs []domain.KnowledgeUnit
	hitSet := make(map[string]bool)
	for _, ku := range units {
		for _, chunkID := range ku.SupportingChunks {
			if retrievedChunks[chunkID] {
				hitKUs = append(hitKUs, ku)
				hitSet[ku.ID] = true
				break
			}
		}
	}
	sort.Slice(hitKUs, func(i, j int) bool { return hitKUs[i].ID < hitKUs[j].ID })

	edges, err := u.reasoning.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read reasoning log: %w", err)
	}
	var edgeHits []string
	for _, e := range edges {
		if hitSet[e.SourceKU] && hitSet[e.TargetKU] {
			edgeHits = append(edgeHits, e.ID)
		}
	}
	sort.Strings(edgeHits)

	var gaps []string
	for _, term := range u.tokenizer.UniqueTerms(query) {
		found, err := u.store.HasTerm(term)
		if err != nil {
			return nil, err
		}
		if !found {
			gaps = append(gaps, term)
		}
	}

	kuIDs := make([]string, len(hitKUs))
	for i, ku := range hitKUs {
		kuIDs[i] = ku.ID
	}

	cov := &coverage{
		report: domain.Report{
			RunID:          uuid.NewString(),
			Query:          query,
			RetrievedCount: len(results),
			DistinctDocs:   len(docs),
			KUHits:         kuIDs,
			EdgeHits:       edgeHits,
			Gaps:           gaps,
			GeneratedAt:    time.Now().UTC(),
		},
		hitKUs:      hitKUs,
		recency:     u.hasRecencyMarker(query),
		outOfCorpus: len(gaps) > 0,
	}
	cov.report.CoverageGrade = u.grade(cov.report)
	return cov, nil
}

// grade maps retrieval statistics to a coverage grade using the fixed
// configured thresholds.
func (u *AnswerUseCase) grade(r domain.Report) string {
	c := u.cfg.Coverage
	switch {
	case r.RetrievedCount >= c.HighMinRetrieved && r.DistinctDocs >= c.HighMinDocs && len(r.KUHits) >= c.HighMinKUHits:
		return domain.CoverageHigh
	case r.RetrievedCount >= c.MedMinRetrieved && len(r.KUHits) >= c.MedMinKUHits:
		return domain.CoverageMed
	case r.RetrievedCount >= 1:
		return domain.CoverageLow
	default:
		return domain.CoverageNone
	}
}

func (u *AnswerUseCase) hasRecencyMarker(query string) bool {
	q := strings.ToLower(query)
	for _, marker := range u.cfg.RecencyMarkers {
		if strings.Contains(q, marker) {
			return true
		}
	}
	return false
}

// ExternalAllowed is the mode gate. local forbids external provenance
// outright; external always permits it; hybrid permits it when coverage is
// weak or the query signals recency or an out-of-corpus domain.
func ExternalAllowed(mode, grade string, recency, outOfCorpus bool) bool {
	switch mode {
	case domain.ModeLocal:
		return false
	case domain.ModeExternal:
		return true
	default:
		if recency || outOfCorpus {
			return true
		}
		return grade == domain.CoverageNone || grade == domain.CoverageLow
	}
}

// Answer assembles the grounded answer artifact for a query. Claims come
// from knowledge units hit by retrieval; each carries local provenance for
// its unit and supporting chunks. The provenance validator runs before the
// artifact is considered final.
func (u *AnswerUseCase) Answer(ctx context.Context, query, mode string) (*domain.Answer, *domain.Report, error) {
	switch mode {
	case domain.ModeLocal, domain.ModeHybrid, domain.ModeExternal:
	default:
		return nil, nil, fmt.Errorf("unknown answer mode %q", mode)
	}

	cov, err := u.coverage(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	ans := &domain.Answer{
		RunID:           uuid.NewString(),
		Query:           query,
		Mode:            mode,
		CoverageGrade:   cov.report.CoverageGrade,
		ExternalAllowed: ExternalAllowed(mode, cov.report.CoverageGrade, cov.recency, cov.outOfCorpus),
		GeneratedAt:     time.Now().UTC(),
	}

	for _, ku := range cov.hitKUs {
		supports := []domain.Support{{Kind: domain.ProvenanceLocal, Ref: ku.ID}}
		for _, chunkID := range ku.SupportingChunks {
			supports = append(supports, domain.Support{Kind: domain.ProvenanceLocal, Ref: chunkID})
		}
		ans.Claims = append(ans.Claims, domain.Claim{
			ID:       claimID(query, ku.ID),
			Text:     ku.Text,
			Supports: supports,
		})
	}

	if err := u.ValidateAnswer(ans); err != nil {
		return nil, nil, err
	}
	return ans, &cov.report, nil
}

// AddExternalClaim appends an externally-sourced claim, enforcing the gate:
// it is rejected outright when the artifact does not permit external
// provenance.
func (u *AnswerUseCase) AddExternalClaim(ans *domain.Answer, text, url, justification string) error {
	if !ans.ExternalAllowed {
		return fmt.Errorf("external provenance not permitted in %s mode with %s coverage", ans.Mode, ans.CoverageGrade)
	}
	claim := domain.Claim{
		ID:   claimID(ans.Query, url),
		Text: text,
		Supports: []domain.Support{{
			Kind:          domain.ProvenanceExternal,
			URL:           url,
			Justification: justification,
		}},
	}
	if err := domain.ValidateClaim(claim); err != nil {
		return err
	}
	ans.Claims = append(ans.Claims, claim)
	return u.ValidateAnswer(ans)
}

// ValidateAnswer rejects artifacts with unlabeled, mixed or gate-violating
// provenance, reporting the offending claim IDs.
func (u *AnswerUseCase) ValidateAnswer(ans *domain.Answer) error {
	kuIDs, err := u.knowledge.IDs()
	if err != nil {
		return err
	}

	var offending []string
	for _, claim := range ans.Claims {
		if err := domain.ValidateClaim(claim); err != nil {
			offending = append(offending, claim.ID)
			continue
		}
		for _, s := range claim.Supports {
			if s.Kind == domain.ProvenanceExternal && !ans.ExternalAllowed {
				offending = append(offending, claim.ID)
				break
			}
			if s.Kind == domain.ProvenanceLocal && !u.resolves(s.Ref, kuIDs) {
				offending = append(offending, claim.ID)
				break
			}
		}
	}
	if len(offending) > 0 {
		return fmt.Errorf("answer rejected: claims with invalid provenance: %s", strings.Join(offending, ", "))
	}
	return nil
}

// resolves reports whether a local ref names an existing KU or chunk.
func (u *AnswerUseCase) resolves(ref string, kuIDs map[string]bool) bool {
	if strings.Contains(ref, ":") {
		ok, err := u.store.HasChunk(ref)
		return err == nil && ok
	}
	return kuIDs[ref]
}

// UIAnswer is the presentation-layer trimming of an answer artifact.
type UIAnswer struct {
	Query           string         `json:"query"`
	CoverageGrade   string         `json:"coverage_grade"`
	ExternalAllowed bool           `json:"external_allowed"`
	Claims          []domain.Claim `json:"claims"`
}

// ForUI returns the read-only presentation view of an answer.
func ForUI(ans *domain.Answer) UIAnswer {
	return UIAnswer{
		Query:           ans.Query,
		CoverageGrade:   ans.CoverageGrade,
		ExternalAllowed: ans.ExternalAllowed,
		Claims:          ans.Claims,
	}
}

func claimID(query, ref string) string {
	hash := sha256.Sum256([]byte(query + "|" + ref))
	return "c" + hex.EncodeToString(hash[:6])
}
