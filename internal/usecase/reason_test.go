package usecase

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"godlearn/config"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/domain"
)

func testReasonConfig() config.ReasonConfig {
	return config.ReasonConfig{
		NGramSize:            4,
		TopK:                 5,
		EdgeThreshold:        0.18,
		SupportThreshold:     0.35,
		ElaborateContainment: 0.60,
		InheritContainment:   0.85,
	}
}

func seedUnits(t *testing.T, log *journal.KnowledgeLog, units ...domain.KnowledgeUnit) {
	t.Helper()
	for i := range units {
		if units[i].SupportingChunks == nil {
			units[i].SupportingChunks = []string{"0123456789abcdef:0"}
		}
		if units[i].PromotedAt.IsZero() {
			units[i].PromotedAt = time.Now().UTC()
		}
	}
	if _, err := log.Append(units...); err != nil {
		t.Fatalf("failed to seed units: %v", err)
	}
}

func buildReason(t *testing.T, env *testEnv, cfg config.ReasonConfig) *ReasonResult {
	t.Helper()
	result, err := NewReasonUseCase(env.knowledge, env.reasoning, cfg, zap.NewNop()).Build()
	if err != nil {
		t.Fatalf("reason build failed: %v", err)
	}
	return result
}

func TestReason_ConflictOnNegationMismatch(t *testing.T) {
	env := newTestEnv(t)
	seedUnits(t, env.knowledge,
		domain.KnowledgeUnit{ID: "aaaa", Text: "Sleep supports memory consolidation in the hippocampus during rest."},
		domain.KnowledgeUnit{ID: "bbbb", Text: "Sleep does not support memory consolidation in the hippocampus during rest."},
	)

	result := buildReason(t, env, testReasonConfig())

	if result.EdgesRetained != 1 {
		t.Fatalf("expected 1 edge, got %d", result.EdgesRetained)
	}
	edges, _ := env.reasoning.ReadAll()
	if edges[0].Relation != domain.RelationConflict {
		t.Errorf("negation mismatch should classify as conflict, got %s", edges[0].Relation)
	}
	if edges[0].SourceKU != "aaaa" || edges[0].TargetKU != "bbbb" {
		t.Errorf("conflict edge should run in lexical KU order, got %s -> %s", edges[0].SourceKU, edges[0].TargetKU)
	}
}

func TestReason_InheritanceDirection(t *testing.T) {
	env := newTestEnv(t)
	contained := "Memory consolidation depends on sleep."
	container := contained + " Rem cycles and slow wave phases both contribute to it across the night in every cohort studied."
	seedUnits(t, env.knowledge,
		domain.KnowledgeUnit{ID: "aaaa", Text: contained},
		domain.KnowledgeUnit{ID: "bbbb", Text: container},
	)

	result := buildReason(t, env, testReasonConfig())

	if result.EdgesRetained != 1 {
		t.Fatalf("expected 1 edge, got %d", result.EdgesRetained)
	}
	edges, _ := env.reasoning.ReadAll()
	if edges[0].Relation != domain.RelationInheritance {
		t.Errorf("full containment should classify as inheritance, got %s", edges[0].Relation)
	}
	if edges[0].SourceKU != "bbbb" || edges[0].TargetKU != "aaaa" {
		t.Errorf("inheritance must run container -> contained, got %s -> %s", edges[0].SourceKU, edges[0].TargetKU)
	}
}

func TestReason_SupportRelation(t *testing.T) {
	env := newTestEnv(t)
	cfg := testReasonConfig()
	cfg.SupportThreshold = 0.2
	cfg.ElaborateContainment = 0.9
	cfg.InheritContainment = 0.95

	seedUnits(t, env.knowledge,
		domain.KnowledgeUnit{ID: "aaaa", Text: "Sleep improves memory retention and stabilizes recall across tests."},
		domain.KnowledgeUnit{ID: "bbbb", Text: "Sleep improves memory retention and reduces stress hormones in blood."},
	)

	result := buildReason(t, env, cfg)

	if result.EdgesRetained != 1 {
		t.Fatalf("expected 1 edge, got %d", result.EdgesRetained)
	}
	edges, _ := env.reasoning.ReadAll()
	if edges[0].Relation != domain.RelationSupport {
		t.Errorf("expected support relation, got %s", edges[0].Relation)
	}
	if edges[0].Score < 0.2 || edges[0].Score > 1 {
		t.Errorf("edge score out of range: %f", edges[0].Score)
	}
}

func TestReason_NoEdgesBelowThreshold(t *testing.T) {
	env := newTestEnv(t)
	seedUnits(t, env.knowledge,
		domain.KnowledgeUnit{ID: "aaaa", Text: "Sleep improves memory retention across tests."},
		domain.KnowledgeUnit{ID: "bbbb", Text: "Quantum chromodynamics governs quark confinement."},
	)

	result := buildReason(t, env, testReasonConfig())

	if result.PairsScored != 1 {
		t.Errorf("expected 1 pair scored, got %d", result.PairsScored)
	}
	if result.EdgesRetained != 0 {
		t.Errorf("unrelated units must produce no edges, got %d", result.EdgesRetained)
	}
}

func TestReason_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	seedUnits(t, env.knowledge,
		domain.KnowledgeUnit{ID: "aaaa", Text: "Sleep supports memory consolidation in the hippocampus during rest."},
		domain.KnowledgeUnit{ID: "bbbb", Text: "Sleep does not support memory consolidation in the hippocampus during rest."},
	)

	first := buildReason(t, env, testReasonConfig())
	if first.EdgesAppended != 1 {
		t.Fatalf("expected 1 edge appended, got %d", first.EdgesAppended)
	}

	second := buildReason(t, env, testReasonConfig())
	if second.EdgesAppended != 0 {
		t.Errorf("recomputation over the same units appended %d edges", second.EdgesAppended)
	}
	if second.EdgesRetained != first.EdgesRetained {
		t.Errorf("retained edge count changed: %d -> %d", first.EdgesRetained, second.EdgesRetained)
	}
}

func TestReason_Deterministic(t *testing.T) {
	units := []domain.KnowledgeUnit{
		{ID: "aaaa", Text: "Sleep supports memory consolidation in the hippocampus during rest."},
		{ID: "bbbb", Text: "Sleep does not support memory consolidation in the hippocampus during rest."},
		{ID: "cccc", Text: "Memory consolidation in the hippocampus continues during quiet waking rest."},
	}

	run := func() []domain.ReasoningEdge {
		env := newTestEnv(t)
		seedUnits(t, env.knowledge, units...)
		buildReason(t, env, testReasonConfig())
		edges, err := env.reasoning.ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		return edges
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("edge counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Relation != second[i].Relation {
			t.Errorf("edge %d differs across identical runs", i)
		}
	}
}

func TestReason_TopKPrunes(t *testing.T) {
	env := newTestEnv(t)
	cfg := testReasonConfig()
	cfg.TopK = 1

	// Three mutually similar units with top_k=1 keep at most the strongest
	// neighbor per unit.
	seedUnits(t, env.knowledge,
		domain.KnowledgeUnit{ID: "aaaa", Text: "Sleep supports memory consolidation in the hippocampus during rest periods."},
		domain.KnowledgeUnit{ID: "bbbb", Text: "Sleep supports memory consolidation in the hippocampus during rest phases."},
		domain.KnowledgeUnit{ID: "cccc", Text: "Sleep supports memory consolidation in the hippocampus during rest windows."},
	)

	result := buildReason(t, env, cfg)

	if result.PairsScored != 3 {
		t.Errorf("expected 3 pairs scored, got %d", result.PairsScored)
	}
	if result.EdgesRetained >= 3 {
		t.Errorf("top_k=1 should prune the full clique, got %d edges", result.EdgesRetained)
	}
}
