package journal

import (
	"encoding/json"
	"fmt"

	"godlearn/internal/domain"
)

// ManifestLog is the append-only ingestion manifest: one line per chunk,
// schema-validated at the append boundary.
type ManifestLog struct {
	log *Log
}

func OpenManifest(path string) *ManifestLog {
	return &ManifestLog{log: Open(path)}
}

func (m *ManifestLog) Append(entries ...domain.ManifestEntry) error {
	records := make([]any, 0, len(entries))
	for _, e := range entries {
		if err := domain.ValidateManifestEntry(e); err != nil {
			return fmt.Errorf("rejecting manifest append: %w", err)
		}
		records = append(records, e)
	}
	return m.log.Append(records...)
}

// ReadAll returns every manifest entry in append order.
func (m *ManifestLog) ReadAll() ([]domain.ManifestEntry, error) {
	var entries []domain.ManifestEntry
	err := m.log.Scan(func(line []byte) error {
		var e domain.ManifestEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("malformed manifest entry: %w", err)
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// DocIDs returns the set of document IDs present in the manifest.
func (m *ManifestLog) DocIDs() (map[string]bool, error) {
	ids := make(map[string]bool)
	err := m.log.Scan(func(line []byte) error {
		var e domain.ManifestEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("malformed manifest entry: %w", err)
		}
		ids[e.DocID] = true
		return nil
	})
	return ids, err
}

// Len returns the number of manifest lines.
func (m *ManifestLog) Len() (int, error) {
	return m.log.Len()
}
