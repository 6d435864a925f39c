package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"godlearn/internal/domain"
	"godlearn/internal/port"
)

// fixedEmbedder returns the same vector for every input.
type fixedEmbedder struct{ vec []float32 }

func (e fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}
func (e fixedEmbedder) Dimension() int    { return len(e.vec) }
func (e fixedEmbedder) ModelName() string { return "fixed" }

func seedVectors(t *testing.T, env *testEnv) {
	t.Helper()

	chunks := []domain.Chunk{
		{ID: "aaaaaaaaaaaaaaaa:0", DocID: "aaaaaaaaaaaaaaaa", Index: 0, Text: "Close match.", PageStart: 1, PageEnd: 1},
		{ID: "bbbbbbbbbbbbbbbb:0", DocID: "bbbbbbbbbbbbbbbb", Index: 0, Text: "Near match.", PageStart: 1, PageEnd: 1},
		{ID: "cccccccccccccccc:0", DocID: "cccccccccccccccc", Index: 0, Text: "Far match.", PageStart: 1, PageEnd: 1},
	}
	if err := env.st.PutChunks(chunks); err != nil {
		t.Fatal(err)
	}

	items := []port.VectorItem{
		{ID: "aaaaaaaaaaaaaaaa:0", Vector: []float32{1, 0}, ContentHash: "ha"},
		{ID: "bbbbbbbbbbbbbbbb:0", Vector: []float32{0.9, 0.1}, ContentHash: "hb"},
		{ID: "cccccccccccccccc:0", Vector: []float32{0, 1}, ContentHash: "hc"},
	}
	if _, err := env.st.Upsert(items); err != nil {
		t.Fatal(err)
	}
}

func TestRetrieve_OrderedByScore(t *testing.T) {
	env := newTestEnv(t)
	seedVectors(t, env)

	uc := NewRetrieveUseCase(env.st, fixedEmbedder{vec: []float32{1, 0}}, nil, 3, 0.15, zap.NewNop())
	results, err := uc.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "aaaaaaaaaaaaaaaa:0" {
		t.Errorf("expected closest vector first, got %s", results[0].Chunk.ID)
	}
	if results[0].Score != results[0].BaseScore {
		t.Errorf("without highlights score must equal base score")
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by score at %d", i)
		}
	}
}

func TestRetrieve_BoostReordersWithinCandidateSet(t *testing.T) {
	env := newTestEnv(t)
	seedVectors(t, env)

	// A large highlight on the runner-up: the boost is capped, reorders the
	// top two and never changes which chunks are returned.
	if err := env.st.SetHighlight(domain.Highlight{ChunkID: "bbbbbbbbbbbbbbbb:0", Weight: 10}); err != nil {
		t.Fatal(err)
	}

	uc := NewRetrieveUseCase(env.st, fixedEmbedder{vec: []float32{1, 0}}, nil, 3, 0.15, zap.NewNop())
	results, err := uc.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatal(err)
	}

	if results[0].Chunk.ID != "bbbbbbbbbbbbbbbb:0" {
		t.Errorf("expected highlighted chunk first, got %s", results[0].Chunk.ID)
	}

	gotBoost := results[0].Score - results[0].BaseScore
	if gotBoost > 0.15+1e-9 {
		t.Errorf("boost exceeds cap: %f", gotBoost)
	}

	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.Chunk.ID] = true
	}
	for _, want := range []string{"aaaaaaaaaaaaaaaa:0", "bbbbbbbbbbbbbbbb:0", "cccccccccccccccc:0"} {
		if !ids[want] {
			t.Errorf("boost changed the candidate set: %s missing", want)
		}
	}
}

func TestRetrieve_SmallBoostKeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	seedVectors(t, env)

	// Boosting the clear winner does not change anything observable below it.
	if err := env.st.SetHighlight(domain.Highlight{ChunkID: "aaaaaaaaaaaaaaaa:0", Weight: 0.05}); err != nil {
		t.Fatal(err)
	}

	uc := NewRetrieveUseCase(env.st, fixedEmbedder{vec: []float32{1, 0}}, nil, 3, 0.15, zap.NewNop())
	results, err := uc.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatal(err)
	}

	if results[0].Chunk.ID != "aaaaaaaaaaaaaaaa:0" {
		t.Errorf("expected order preserved, got %s first", results[0].Chunk.ID)
	}
	gotBoost := results[0].Score - results[0].BaseScore
	if gotBoost < 0.05-1e-9 || gotBoost > 0.05+1e-9 {
		t.Errorf("expected sub-cap boost of 0.05, got %f", gotBoost)
	}
}

func TestRetrieve_TopNOverride(t *testing.T) {
	env := newTestEnv(t)
	seedVectors(t, env)

	uc := NewRetrieveUseCase(env.st, fixedEmbedder{vec: []float32{1, 0}}, nil, 3, 0.15, zap.NewNop())
	results, err := uc.Retrieve(context.Background(), "anything", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results with override, got %d", len(results))
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	env := newTestEnv(t)
	seedVectors(t, env)

	uc := NewRetrieveUseCase(env.st, fixedEmbedder{vec: []float32{1, 0}}, nil, 3, 0.15, zap.NewNop())

	first, err := uc.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := range first {
		if first[i].Chunk.ID != second[i].Chunk.ID || first[i].Score != second[i].Score {
			t.Fatalf("retrieval differed across runs at %d", i)
		}
	}
}
