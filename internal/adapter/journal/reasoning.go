package journal

import (
	"encoding/json"
	"fmt"

	"godlearn/internal/domain"
)

// ReasoningLog is the append-only reasoning-edge log. Recomputation over the
// same KU set appends nothing: edges are idempotent by edge_id.
type ReasoningLog struct {
	log *Log
}

func OpenReasoning(path string) *ReasoningLog {
	return &ReasoningLog{log: Open(path)}
}

// Append validates and appends edges, dropping edge_ids already present.
func (r *ReasoningLog) Append(edges ...domain.ReasoningEdge) (appended int, err error) {
	existing, err := r.IDs()
	if err != nil {
		return 0, err
	}

	records := make([]any, 0, len(edges))
	for _, e := range edges {
		if err := domain.ValidateReasoningEdge(e); err != nil {
			return 0, fmt.Errorf("rejecting reasoning append: %w", err)
		}
		if existing[e.ID] {
			continue
		}
		existing[e.ID] = true
		records = append(records, e)
	}
	if err := r.log.Append(records...); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ReadAll returns every reasoning edge in append order.
func (r *ReasoningLog) ReadAll() ([]domain.ReasoningEdge, error) {
	var edges []domain.ReasoningEdge
	err := r.log.Scan(func(line []byte) error {
		var e domain.ReasoningEdge
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("malformed reasoning edge: %w", err)
		}
		edges = append(edges, e)
		return nil
	})
	return edges, err
}

// IDs returns the set of stored edge_ids.
func (r *ReasoningLog) IDs() (map[string]bool, error) {
	ids := make(map[string]bool)
	err := r.log.Scan(func(line []byte) error {
		var e domain.ReasoningEdge
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("malformed reasoning edge: %w", err)
		}
		ids[e.ID] = true
		return nil
	})
	return ids, err
}

// Len returns the number of stored edges.
func (r *ReasoningLog) Len() (int, error) {
	return r.log.Len()
}
