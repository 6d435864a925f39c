package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"godlearn/internal/domain"
	"godlearn/internal/port"
)

func TestAudit_CleanAfterFullPipeline(t *testing.T) {
	env := newTestEnv(t)
	env.writeCorpus(t, "sleep.txt", "Sleep consolidates memory overnight.\n\nREM phases support procedural learning.")
	env.ingest(t)
	env.embed(t)

	report, err := NewAuditUseCase(env.st, env.manifest, env.root).Audit()
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	if !report.Clean() {
		t.Errorf("expected clean report, got findings: %+v", report.Findings)
	}
	if report.Checked != 2 {
		t.Errorf("expected 2 entries checked, got %d", report.Checked)
	}
	if report.Counts[domain.AuditOK] != 2 {
		t.Errorf("expected 2 ok entries, got %d", report.Counts[domain.AuditOK])
	}
}

func TestAudit_MissingVector(t *testing.T) {
	env := newTestEnv(t)
	env.writeCorpus(t, "sleep.txt", "Sleep consolidates memory overnight.")
	env.ingest(t)
	// No embed run: every manifest chunk lacks its vector.

	report, err := NewAuditUseCase(env.st, env.manifest, env.root).Audit()
	if err != nil {
		t.Fatal(err)
	}

	if report.Counts[domain.AuditMissingVector] != 1 {
		t.Errorf("expected 1 missing_vector, got %d", report.Counts[domain.AuditMissingVector])
	}
	if report.Clean() {
		t.Error("report with missing vectors must not be clean")
	}
}

func TestAudit_MissingSource(t *testing.T) {
	env := newTestEnv(t)
	env.writeCorpus(t, "sleep.txt", "Sleep consolidates memory overnight.")
	env.ingest(t)
	env.embed(t)

	if err := os.Remove(filepath.Join(env.root, "sleep.txt")); err != nil {
		t.Fatal(err)
	}

	report, err := NewAuditUseCase(env.st, env.manifest, env.root).Audit()
	if err != nil {
		t.Fatal(err)
	}

	if report.Counts[domain.AuditMissingSource] != 1 {
		t.Errorf("expected 1 missing_source, got %d", report.Counts[domain.AuditMissingSource])
	}
}

func TestAudit_OrphanVector(t *testing.T) {
	env := newTestEnv(t)
	env.writeCorpus(t, "sleep.txt", "Sleep consolidates memory overnight.")
	env.ingest(t)
	env.embed(t)

	stray := port.VectorItem{
		ID:          "ffffffffffffffff:0",
		Vector:      make([]float32, testDimension),
		ContentHash: "stray",
	}
	if _, err := env.st.Upsert([]port.VectorItem{stray}); err != nil {
		t.Fatal(err)
	}

	report, err := NewAuditUseCase(env.st, env.manifest, env.root).Audit()
	if err != nil {
		t.Fatal(err)
	}

	if report.Counts[domain.AuditOrphanVector] != 1 {
		t.Errorf("expected 1 orphan_vector, got %d", report.Counts[domain.AuditOrphanVector])
	}
}

func TestAudit_ReadOnly(t *testing.T) {
	env := newTestEnv(t)
	env.writeCorpus(t, "sleep.txt", "Sleep consolidates memory overnight.")
	env.ingest(t)

	before, _ := env.manifest.Len()
	vectorsBefore, _ := env.st.Count()

	if _, err := NewAuditUseCase(env.st, env.manifest, env.root).Audit(); err != nil {
		t.Fatal(err)
	}

	after, _ := env.manifest.Len()
	vectorsAfter, _ := env.st.Count()
	if after != before || vectorsAfter != vectorsBefore {
		t.Error("audit must not mutate manifest or vector store")
	}
}

func TestVerify_WritesMarkerWhenClean(t *testing.T) {
	env := newTestEnv(t)
	env.writeCorpus(t, "sleep.txt", "Sleep consolidates memory overnight.")
	env.ingest(t)
	env.embed(t)

	if _, err := NewAuditUseCase(env.st, env.manifest, env.root).Verify(env.markerPath()); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	marker, err := LoadVerifiedMarker(env.markerPath())
	if err != nil {
		t.Fatal(err)
	}
	if marker == nil {
		t.Fatal("expected verified marker on disk")
	}
	if marker.ManifestLines != 1 {
		t.Errorf("expected marker to cover 1 manifest line, got %d", marker.ManifestLines)
	}
}

func TestVerify_FailsDirtyWithoutMarker(t *testing.T) {
	env := newTestEnv(t)
	env.writeCorpus(t, "sleep.txt", "Sleep consolidates memory overnight.")
	env.ingest(t)
	// Missing vectors make the state dirty.

	report, err := NewAuditUseCase(env.st, env.manifest, env.root).Verify(env.markerPath())
	if err == nil {
		t.Fatal("expected verify to fail on dirty state")
	}
	if report == nil {
		t.Error("expected the failing report alongside the error")
	}

	marker, err := LoadVerifiedMarker(env.markerPath())
	if err != nil {
		t.Fatal(err)
	}
	if marker != nil {
		t.Error("failed verify must not write a marker")
	}
}

func TestLoadVerifiedMarker_Missing(t *testing.T) {
	marker, err := LoadVerifiedMarker(filepath.Join(t.TempDir(), "verified.json"))
	if err != nil {
		t.Fatalf("missing marker must not error: %v", err)
	}
	if marker != nil {
		t.Error("expected nil marker for missing file")
	}
}
