package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"godlearn/internal/domain"
)

func testEntry(docID string, idx int) domain.ManifestEntry {
	return domain.ManifestEntry{
		DocID:     docID,
		ChunkID:   docID + ":" + string(rune('0'+idx)),
		SHA256:    strings.Repeat("a", 64),
		Timestamp: time.Now().UTC(),
	}
}

func TestLog_AppendAndScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jsonl")
	log := Open(path)

	if err := log.Append(map[string]string{"a": "1"}, map[string]string{"a": "2"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	n, err := log.Len()
	if err != nil {
		t.Fatalf("len failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}

	var lines []string
	err = log.Scan(func(line []byte) error {
		lines = append(lines, string(line))
		return nil
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 scanned lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"a":"1"`) {
		t.Errorf("unexpected first line: %s", lines[0])
	}
}

func TestLog_MissingFileIsEmpty(t *testing.T) {
	log := Open(filepath.Join(t.TempDir(), "absent.jsonl"))

	n, err := log.Len()
	if err != nil {
		t.Fatalf("len failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty log, got %d lines", n)
	}
}

func TestLog_AppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jsonl")
	log := Open(path)

	if err := log.Append(map[string]int{"n": 1}); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := log.Append(map[string]int{"n": 2}); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(string(second), string(first)) {
		t.Error("second append rewrote earlier content")
	}
}

func TestManifestLog_RejectsInvalidEntry(t *testing.T) {
	m := OpenManifest(filepath.Join(t.TempDir(), "manifest.jsonl"))

	bad := testEntry("0123456789abcdef", 0)
	bad.SHA256 = "short"
	if err := m.Append(bad); err == nil {
		t.Error("expected rejection for invalid manifest entry")
	}

	n, _ := m.Len()
	if n != 0 {
		t.Errorf("rejected append must not write, got %d lines", n)
	}
}

func TestManifestLog_DocIDs(t *testing.T) {
	m := OpenManifest(filepath.Join(t.TempDir(), "manifest.jsonl"))

	if err := m.Append(testEntry("0123456789abcdef", 0), testEntry("0123456789abcdef", 1), testEntry("fedcba9876543210", 0)); err != nil {
		t.Fatal(err)
	}

	ids, err := m.DocIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 doc ids, got %d", len(ids))
	}
	if !ids["0123456789abcdef"] || !ids["fedcba9876543210"] {
		t.Errorf("unexpected doc id set: %v", ids)
	}
}

func TestKnowledgeLog_IdempotentAppend(t *testing.T) {
	k := OpenKnowledge(filepath.Join(t.TempDir(), "knowledge.jsonl"))

	ku := domain.KnowledgeUnit{
		ID:               "abcd1234abcd1234",
		Text:             "Sleep supports memory consolidation [0123456789abcdef:0]",
		SupportingChunks: []string{"0123456789abcdef:0"},
		PromotedAt:       time.Now().UTC(),
	}

	appended, err := k.Append(ku)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if appended != 1 {
		t.Errorf("expected 1 appended, got %d", appended)
	}

	appended, err = k.Append(ku)
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if appended != 0 {
		t.Errorf("duplicate ku_id must append nothing, got %d", appended)
	}

	n, _ := k.Len()
	if n != 1 {
		t.Errorf("expected 1 unit on disk, got %d", n)
	}
}

func TestReasoningLog_IdempotentAppend(t *testing.T) {
	r := OpenReasoning(filepath.Join(t.TempDir(), "reasoning.jsonl"))

	edge := domain.ReasoningEdge{
		ID:       "edge-1",
		SourceKU: "ku-a",
		TargetKU: "ku-b",
		Relation: domain.RelationSupport,
		Score:    0.5,
	}

	appended, err := r.Append(edge)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if appended != 1 {
		t.Errorf("expected 1 appended, got %d", appended)
	}

	appended, err = r.Append(edge)
	if err != nil {
		t.Fatal(err)
	}
	if appended != 0 {
		t.Errorf("recomputed edge must append nothing, got %d", appended)
	}
}

func TestReasoningLog_RejectsSelfLoop(t *testing.T) {
	r := OpenReasoning(filepath.Join(t.TempDir(), "reasoning.jsonl"))

	edge := domain.ReasoningEdge{
		ID:       "edge-1",
		SourceKU: "ku-a",
		TargetKU: "ku-a",
		Relation: domain.RelationSupport,
		Score:    0.5,
	}
	if _, err := r.Append(edge); err == nil {
		t.Error("expected rejection for self-loop edge")
	}
}
