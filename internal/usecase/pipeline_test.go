package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"godlearn/config"
	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/chunker"
	"godlearn/internal/adapter/embedding"
	"godlearn/internal/adapter/extract"
	"godlearn/internal/adapter/fs"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/port"
)

const testDimension = 8

// testEnv wires a full pipeline against a temp corpus root.
type testEnv struct {
	root      string
	st        *store.BoltStore
	manifest  *journal.ManifestLog
	knowledge *journal.KnowledgeLog
	reasoning *journal.ReasoningLog
	embedder  port.Embedder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	if err := config.EnsureStateDir(root); err != nil {
		t.Fatal(err)
	}

	st, err := store.NewBoltStore(config.IndexDBPath(root))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &testEnv{
		root:      root,
		st:        st,
		manifest:  journal.OpenManifest(config.ManifestPath(root)),
		knowledge: journal.OpenKnowledge(config.KnowledgePath(root)),
		reasoning: journal.OpenReasoning(config.ReasoningPath(root)),
		embedder:  embedding.NewMockEmbedder(testDimension),
	}
}

func (e *testEnv) writeCorpus(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.root, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) ingestUC() *IngestUseCase {
	walker := fs.NewWalker([]string{"**/*.txt", "**/*.md"}, []string{"**/.godlearn/**"})
	extractor := extract.NewComposite(extract.NewPlainExtractor())
	return NewIngestUseCase(
		e.st, e.manifest, walker, extractor,
		chunker.NewParagraphChunker(), analyzer.NewTokenizer(),
		"default", 2, zap.NewNop(),
	)
}

func (e *testEnv) embedUC() *EmbedUseCase {
	return NewEmbedUseCase(e.st, e.manifest, e.embedder, 4, zap.NewNop())
}

func (e *testEnv) retrieveUC(topN int, boostCap float64) *RetrieveUseCase {
	return NewRetrieveUseCase(e.st, e.embedder, nil, topN, boostCap, zap.NewNop())
}

func (e *testEnv) markerPath() string {
	return config.VerifiedMarkerPath(e.root)
}

func (e *testEnv) ingest(t *testing.T) *IngestResult {
	t.Helper()
	result, err := e.ingestUC().Ingest(context.Background(), e.root, nil)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	return result
}

func (e *testEnv) embed(t *testing.T) *EmbedResult {
	t.Helper()
	result, err := e.embedUC().Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	return result
}

func (e *testEnv) verify(t *testing.T) {
	t.Helper()
	audit := NewAuditUseCase(e.st, e.manifest, e.root)
	if _, err := audit.Verify(e.markerPath()); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}
