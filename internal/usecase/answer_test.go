package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"godlearn/config"
	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/domain"
)

func testAnswerConfig() config.AnswerConfig {
	return config.AnswerConfig{
		DefaultMode: domain.ModeHybrid,
		Coverage: config.CoverageConfig{
			HighMinRetrieved: 5,
			HighMinDocs:      2,
			HighMinKUHits:    2,
			MedMinRetrieved:  3,
			MedMinKUHits:     1,
		},
		RecencyMarkers: []string{"latest", "recent", "2026"},
	}
}

// answerEnv ingests a small corpus and promotes one unit backed by a real
// chunk, so retrieval hits produce claims.
func answerEnv(t *testing.T) (*testEnv, *AnswerUseCase) {
	t.Helper()
	env := newTestEnv(t)
	env.writeCorpus(t, "plasticity.txt", "Synaptic plasticity strengthens neural connections.\n\nSleep consolidates memory overnight.")
	env.ingest(t)
	env.embed(t)

	entries, err := env.manifest.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	chunkID := entries[0].ChunkID
	seedUnits(t, env.knowledge, domain.KnowledgeUnit{
		ID:               "aaaa",
		Text:             "Synaptic plasticity strengthens neural connections [" + chunkID + "]",
		SupportingChunks: []string{chunkID},
	})

	uc := NewAnswerUseCase(
		env.st, env.knowledge, env.reasoning,
		env.retrieveUC(10, 0.15), analyzer.NewTokenizer(),
		testAnswerConfig(), zap.NewNop(),
	)
	return env, uc
}

func TestExternalAllowed_Gate(t *testing.T) {
	cases := []struct {
		mode        string
		grade       string
		recency     bool
		outOfCorpus bool
		want        bool
	}{
		{domain.ModeLocal, domain.CoverageNone, true, true, false},
		{domain.ModeLocal, domain.CoverageHigh, false, false, false},
		{domain.ModeExternal, domain.CoverageHigh, false, false, true},
		{domain.ModeExternal, domain.CoverageNone, false, false, true},
		{domain.ModeHybrid, domain.CoverageHigh, false, false, false},
		{domain.ModeHybrid, domain.CoverageMed, false, false, false},
		{domain.ModeHybrid, domain.CoverageLow, false, false, true},
		{domain.ModeHybrid, domain.CoverageNone, false, false, true},
		{domain.ModeHybrid, domain.CoverageHigh, true, false, true},
		{domain.ModeHybrid, domain.CoverageHigh, false, true, true},
	}
	for _, tc := range cases {
		got := ExternalAllowed(tc.mode, tc.grade, tc.recency, tc.outOfCorpus)
		if got != tc.want {
			t.Errorf("ExternalAllowed(%s, %s, %v, %v) = %v, want %v",
				tc.mode, tc.grade, tc.recency, tc.outOfCorpus, got, tc.want)
		}
	}
}

func TestCoverageGrades(t *testing.T) {
	uc := &AnswerUseCase{cfg: testAnswerConfig()}

	cases := []struct {
		retrieved int
		docs      int
		kuHits    int
		want      string
	}{
		{6, 2, 2, domain.CoverageHigh},
		{5, 1, 2, domain.CoverageMed},
		{3, 1, 1, domain.CoverageMed},
		{2, 1, 0, domain.CoverageLow},
		{1, 1, 0, domain.CoverageLow},
		{0, 0, 0, domain.CoverageNone},
	}
	for _, tc := range cases {
		r := domain.Report{
			RetrievedCount: tc.retrieved,
			DistinctDocs:   tc.docs,
			KUHits:         make([]string, tc.kuHits),
		}
		if got := uc.grade(r); got != tc.want {
			t.Errorf("grade(retrieved=%d docs=%d kuHits=%d) = %s, want %s",
				tc.retrieved, tc.docs, tc.kuHits, got, tc.want)
		}
	}
}

func TestReport_Coverage(t *testing.T) {
	_, uc := answerEnv(t)

	report, err := uc.Report(context.Background(), "synaptic plasticity")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if report.RetrievedCount != 2 {
		t.Errorf("expected 2 retrieved chunks, got %d", report.RetrievedCount)
	}
	if report.DistinctDocs != 1 {
		t.Errorf("expected 1 distinct doc, got %d", report.DistinctDocs)
	}
	if len(report.KUHits) != 1 || report.KUHits[0] != "aaaa" {
		t.Errorf("expected KU hit aaaa, got %v", report.KUHits)
	}
	if len(report.Gaps) != 0 {
		t.Errorf("corpus terms should not be gaps: %v", report.Gaps)
	}
	if report.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestReport_GapsForUnknownTerms(t *testing.T) {
	_, uc := answerEnv(t)

	report, err := uc.Report(context.Background(), "synaptic zymurgy")
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Gaps) != 1 || report.Gaps[0] != "zymurgy" {
		t.Errorf("expected gap [zymurgy], got %v", report.Gaps)
	}
}

func TestAnswer_LocalModeForbidsExternal(t *testing.T) {
	_, uc := answerEnv(t)

	ans, _, err := uc.Answer(context.Background(), "synaptic plasticity", domain.ModeLocal)
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if ans.ExternalAllowed {
		t.Error("local mode must never permit external provenance")
	}
	if len(ans.Claims) == 0 {
		t.Fatal("expected claims from hit units")
	}
	for _, claim := range ans.Claims {
		for _, s := range claim.Supports {
			if s.Kind != domain.ProvenanceLocal {
				t.Errorf("claim %s carries non-local support in local mode", claim.ID)
			}
		}
	}

	err = uc.AddExternalClaim(ans, "New 2026 finding.", "https://example.org/paper", "post-corpus result")
	if err == nil {
		t.Error("expected external claim to be rejected in local mode")
	}
}

func TestAnswer_ExternalModePermits(t *testing.T) {
	_, uc := answerEnv(t)

	ans, _, err := uc.Answer(context.Background(), "synaptic plasticity", domain.ModeExternal)
	if err != nil {
		t.Fatal(err)
	}
	if !ans.ExternalAllowed {
		t.Fatal("external mode must permit external provenance")
	}

	before := len(ans.Claims)
	if err := uc.AddExternalClaim(ans, "New 2026 finding.", "https://example.org/paper", "post-corpus result"); err != nil {
		t.Fatalf("external claim rejected: %v", err)
	}
	if len(ans.Claims) != before+1 {
		t.Errorf("expected claim appended, got %d claims", len(ans.Claims))
	}

	added := ans.Claims[len(ans.Claims)-1]
	if added.Supports[0].Kind != domain.ProvenanceExternal || added.Supports[0].Justification == "" {
		t.Errorf("external claim must carry justified external support: %+v", added.Supports[0])
	}
}

func TestAnswer_UnknownModeRejected(t *testing.T) {
	_, uc := answerEnv(t)

	if _, _, err := uc.Answer(context.Background(), "synaptic plasticity", "oracle"); err == nil {
		t.Error("expected rejection for unknown mode")
	}
}

func TestValidateAnswer_RejectsUnresolvableRef(t *testing.T) {
	_, uc := answerEnv(t)

	ans := &domain.Answer{
		Mode:          domain.ModeLocal,
		CoverageGrade: domain.CoverageLow,
		Claims: []domain.Claim{{
			ID:       "c1",
			Text:     "Claim with a dangling ref.",
			Supports: []domain.Support{{Kind: domain.ProvenanceLocal, Ref: "nonexistent-ku"}},
		}},
	}
	if err := uc.ValidateAnswer(ans); err == nil {
		t.Error("expected rejection for unresolvable local ref")
	}
}

func TestForUI_TrimsArtifact(t *testing.T) {
	_, uc := answerEnv(t)

	ans, _, err := uc.Answer(context.Background(), "synaptic plasticity", domain.ModeLocal)
	if err != nil {
		t.Fatal(err)
	}

	ui := ForUI(ans)
	if ui.Query != ans.Query || ui.CoverageGrade != ans.CoverageGrade {
		t.Error("ui view must mirror the artifact fields")
	}
	if len(ui.Claims) != len(ans.Claims) {
		t.Errorf("ui view dropped claims: %d vs %d", len(ui.Claims), len(ans.Claims))
	}
}

func TestStats(t *testing.T) {
	env, _ := answerEnv(t)

	stats, err := Stats(env.st, env.manifest, env.knowledge, env.reasoning)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.TotalDocs != 1 {
		t.Errorf("expected 1 doc, got %d", stats.TotalDocs)
	}
	if stats.TotalChunks != 2 {
		t.Errorf("expected 2 chunks, got %d", stats.TotalChunks)
	}
	if stats.TotalVectors != 2 {
		t.Errorf("expected 2 vectors, got %d", stats.TotalVectors)
	}
	if stats.TotalKUs != 1 {
		t.Errorf("expected 1 knowledge unit, got %d", stats.TotalKUs)
	}
}
