package domain

import "time"

// Document is a single corpus source file. Created once per unique content;
// re-ingestion of identical bytes is a no-op.
type Document struct {
	ID         string `json:"doc_id"`
	Path       string `json:"path"`
	SHA256     string `json:"sha256"`
	Collection string `json:"collection"`
	Pages      int    `json:"pages"`
}

// Chunk is a paragraph-level, page-tagged slice of a document.
type Chunk struct {
	ID        string `json:"chunk_id"`
	DocID     string `json:"doc_id"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

// ManifestEntry is one append-only manifest line. Entries are never edited
// or deleted, only appended.
type ManifestEntry struct {
	DocID     string    `json:"doc_id"`
	ChunkID   string    `json:"chunk_id"`
	SHA256    string    `json:"sha256"`
	Timestamp time.Time `json:"timestamp"`
}

// Highlight is a researcher annotation that boosts retrieval ordering.
// It never changes the candidate set.
type Highlight struct {
	ChunkID string  `json:"chunk_id"`
	Weight  float64 `json:"boost_weight"`
}

// ScoredChunk is a retrieval result before or after highlight boosting.
type ScoredChunk struct {
	Chunk     Chunk
	Score     float64
	BaseScore float64
}

// KnowledgeUnit is an immutable, citation-backed claim promoted from
// retrieval output. There is no edit path; corrections append new units.
type KnowledgeUnit struct {
	ID               string    `json:"ku_id"`
	Text             string    `json:"text"`
	SupportingChunks []string  `json:"supporting_chunk_ids"`
	Query            string    `json:"query"`
	PromotedAt       time.Time `json:"promoted_at"`
}

// Relation types for reasoning edges.
const (
	RelationSupport     = "support"
	RelationContrast    = "contrast"
	RelationElaboration = "elaboration"
	RelationInheritance = "inheritance"
	RelationConflict    = "conflict"
)

// ReasoningEdge is a typed relation between two promoted knowledge units.
// Edges are computed only over KUs, never over raw chunks or embeddings.
type ReasoningEdge struct {
	ID       string  `json:"edge_id"`
	SourceKU string  `json:"source_ku_id"`
	TargetKU string  `json:"target_ku_id"`
	Relation string  `json:"relation"`
	Score    float64 `json:"score"`
}

// Coverage grades for REPORT diagnostics.
const (
	CoverageNone = "NONE"
	CoverageLow  = "LOW"
	CoverageMed  = "MED"
	CoverageHigh = "HIGH"
)

// Report is an ephemeral coverage diagnostic. It is regenerable and never
// persisted as ground truth.
type Report struct {
	RunID          string    `json:"run_id"`
	Query          string    `json:"query"`
	CoverageGrade  string    `json:"coverage_grade"`
	RetrievedCount int       `json:"retrieved_count"`
	DistinctDocs   int       `json:"distinct_docs"`
	KUHits         []string  `json:"ku_hits"`
	EdgeHits       []string  `json:"edge_hits"`
	Gaps           []string  `json:"gaps"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Provenance kinds for answer claims.
const (
	ProvenanceLocal    = "local"
	ProvenanceExternal = "external"
)

// Support is one provenance reference backing a claim. A local support
// carries a KU/chunk ref; an external support carries a URL plus
// justification. Kind selects which, never both.
type Support struct {
	Kind          string `json:"kind"`
	Ref           string `json:"ref,omitempty"`
	URL           string `json:"url,omitempty"`
	Justification string `json:"justification,omitempty"`
}

// Claim is one sentence of an answer with explicit provenance.
type Claim struct {
	ID       string    `json:"claim_id"`
	Text     string    `json:"text"`
	Supports []Support `json:"supports"`
}

// Answer modes for the epistemic gate.
const (
	ModeLocal    = "local"
	ModeHybrid   = "hybrid"
	ModeExternal = "external"
)

// Answer is the grounded synthesis artifact. Every claim carries typed
// provenance; whether external provenance may appear is decided by the
// mode gate, never by instruction-following.
type Answer struct {
	RunID           string    `json:"run_id"`
	Query           string    `json:"query"`
	Mode            string    `json:"mode"`
	CoverageGrade   string    `json:"coverage_grade"`
	ExternalAllowed bool      `json:"external_allowed"`
	Claims          []Claim   `json:"claims"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Audit classifications for the integrity cross-check.
const (
	AuditOK            = "ok"
	AuditMissingVector = "missing_vector"
	AuditOrphanVector  = "orphan_vector"
	AuditMissingSource = "missing_source"
)

// AuditFinding is one classified entry of the integrity report.
type AuditFinding struct {
	ChunkID string `json:"chunk_id"`
	DocID   string `json:"doc_id,omitempty"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// AuditReport summarizes a read-only manifest/filesystem/vector cross-check.
type AuditReport struct {
	Checked  int            `json:"checked"`
	Counts   map[string]int `json:"counts"`
	Findings []AuditFinding `json:"findings"`
}

// Clean reports whether every checked entry classified as ok.
func (r AuditReport) Clean() bool {
	for status, n := range r.Counts {
		if status != AuditOK && n > 0 {
			return false
		}
	}
	return true
}

// Stats summarizes pipeline state across all phases.
type Stats struct {
	TotalDocs    int `json:"total_docs"`
	TotalChunks  int `json:"total_chunks"`
	TotalVectors int `json:"total_vectors"`
	TotalKUs     int `json:"total_kus"`
	TotalEdges   int `json:"total_edges"`
}
