package domain

import (
	"fmt"
	"strings"
)

// Schema validation at the log-append boundary. Logs only ever accept
// records that pass these checks; malformed records are rejected before
// they reach disk.

func ValidateManifestEntry(e ManifestEntry) error {
	if e.DocID == "" {
		return fmt.Errorf("manifest entry missing doc_id")
	}
	if e.ChunkID == "" {
		return fmt.Errorf("manifest entry missing chunk_id")
	}
	if !strings.HasPrefix(e.ChunkID, e.DocID+":") {
		return fmt.Errorf("chunk_id %q does not belong to doc_id %q", e.ChunkID, e.DocID)
	}
	if len(e.SHA256) != 64 {
		return fmt.Errorf("manifest entry for %s: sha256 must be 64 hex chars, got %d", e.ChunkID, len(e.SHA256))
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("manifest entry for %s: missing timestamp", e.ChunkID)
	}
	return nil
}

func ValidateKnowledgeUnit(ku KnowledgeUnit) error {
	if ku.ID == "" {
		return fmt.Errorf("knowledge unit missing ku_id")
	}
	if strings.TrimSpace(ku.Text) == "" {
		return fmt.Errorf("knowledge unit %s has empty text", ku.ID)
	}
	if len(ku.SupportingChunks) == 0 {
		return fmt.Errorf("knowledge unit %s has no supporting chunks", ku.ID)
	}
	for _, id := range ku.SupportingChunks {
		if id == "" {
			return fmt.Errorf("knowledge unit %s has an empty supporting chunk id", ku.ID)
		}
	}
	if ku.PromotedAt.IsZero() {
		return fmt.Errorf("knowledge unit %s missing promoted_at", ku.ID)
	}
	return nil
}

func validRelation(rel string) bool {
	switch rel {
	case RelationSupport, RelationContrast, RelationElaboration, RelationInheritance, RelationConflict:
		return true
	}
	return false
}

func ValidateReasoningEdge(e ReasoningEdge) error {
	if e.ID == "" {
		return fmt.Errorf("reasoning edge missing edge_id")
	}
	if e.SourceKU == "" || e.TargetKU == "" {
		return fmt.Errorf("reasoning edge %s missing endpoint", e.ID)
	}
	if e.SourceKU == e.TargetKU {
		return fmt.Errorf("reasoning edge %s is a self-loop on %s", e.ID, e.SourceKU)
	}
	if !validRelation(e.Relation) {
		return fmt.Errorf("reasoning edge %s has unknown relation %q", e.ID, e.Relation)
	}
	if e.Score < 0 || e.Score > 1 {
		return fmt.Errorf("reasoning edge %s score %f out of [0,1]", e.ID, e.Score)
	}
	return nil
}

// ValidateSupport checks that a support reference is well-formed and
// single-typed: local refs carry exactly a KU/chunk id, external refs
// carry exactly a URL with a justification.
func ValidateSupport(s Support) error {
	switch s.Kind {
	case ProvenanceLocal:
		if s.Ref == "" {
			return fmt.Errorf("local support missing ref")
		}
		if s.URL != "" || s.Justification != "" {
			return fmt.Errorf("local support %s carries external fields", s.Ref)
		}
	case ProvenanceExternal:
		if s.URL == "" {
			return fmt.Errorf("external support missing url")
		}
		if s.Justification == "" {
			return fmt.Errorf("external support %s missing justification", s.URL)
		}
		if s.Ref != "" {
			return fmt.Errorf("external support %s carries a local ref", s.URL)
		}
	default:
		return fmt.Errorf("support has unknown provenance kind %q", s.Kind)
	}
	return nil
}

// ValidateClaim rejects claims with empty or malformed provenance.
func ValidateClaim(c Claim) error {
	if c.ID == "" {
		return fmt.Errorf("claim missing claim_id")
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("claim %s has empty text", c.ID)
	}
	if len(c.Supports) == 0 {
		return fmt.Errorf("claim %s has no supports", c.ID)
	}
	for _, s := range c.Supports {
		if err := ValidateSupport(s); err != nil {
			return fmt.Errorf("claim %s: %w", c.ID, err)
		}
	}
	return nil
}
