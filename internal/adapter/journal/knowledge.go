package journal

import (
	"encoding/json"
	"fmt"

	"godlearn/internal/domain"
)

// KnowledgeLog is the append-only knowledge-unit log. Units are immutable:
// the only operation besides reading is appending a unit whose ku_id is not
// already present.
type KnowledgeLog struct {
	log *Log
}

func OpenKnowledge(path string) *KnowledgeLog {
	return &KnowledgeLog{log: Open(path)}
}

// Append validates and appends units, silently dropping IDs that already
// exist so promotion stays idempotent.
func (k *KnowledgeLog) Append(units ...domain.KnowledgeUnit) (appended int, err error) {
	existing, err := k.IDs()
	if err != nil {
		return 0, err
	}

	records := make([]any, 0, len(units))
	for _, ku := range units {
		if err := domain.ValidateKnowledgeUnit(ku); err != nil {
			return 0, fmt.Errorf("rejecting knowledge append: %w", err)
		}
		if existing[ku.ID] {
			continue
		}
		existing[ku.ID] = true
		records = append(records, ku)
	}
	if err := k.log.Append(records...); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ReadAll returns every knowledge unit in append order.
func (k *KnowledgeLog) ReadAll() ([]domain.KnowledgeUnit, error) {
	var units []domain.KnowledgeUnit
	err := k.log.Scan(func(line []byte) error {
		var ku domain.KnowledgeUnit
		if err := json.Unmarshal(line, &ku); err != nil {
			return fmt.Errorf("malformed knowledge unit: %w", err)
		}
		units = append(units, ku)
		return nil
	})
	return units, err
}

// IDs returns the set of promoted ku_ids.
func (k *KnowledgeLog) IDs() (map[string]bool, error) {
	ids := make(map[string]bool)
	err := k.log.Scan(func(line []byte) error {
		var ku domain.KnowledgeUnit
		if err := json.Unmarshal(line, &ku); err != nil {
			return fmt.Errorf("malformed knowledge unit: %w", err)
		}
		ids[ku.ID] = true
		return nil
	})
	return ids, err
}

// Len returns the number of promoted units.
func (k *KnowledgeLog) Len() (int, error) {
	return k.log.Len()
}
