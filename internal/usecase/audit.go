package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/domain"
)

// AuditUseCase cross-checks manifest, filesystem and vector store without
// mutating any of them. It is the safety net that must pass before promotion
// may run.
type AuditUseCase struct {
	store    *store.BoltStore
	manifest *journal.ManifestLog
	root     string
}

func NewAuditUseCase(st *store.BoltStore, manifest *journal.ManifestLog, root string) *AuditUseCase {
	return &AuditUseCase{store: st, manifest: manifest, root: root}
}

// Audit classifies every manifest chunk and every vector entry. Findings are
// ordered by chunk ID so repeated runs over the same state are identical.
func (u *AuditUseCase) Audit() (*domain.AuditReport, error) {
	entries, err := u.manifest.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	report := &domain.AuditReport{
		Counts: map[string]int{
			domain.AuditOK:            0,
			domain.AuditMissingVector: 0,
			domain.AuditOrphanVector:  0,
			domain.AuditMissingSource: 0,
		},
	}

	manifestChunks := make(map[string]bool)
	sourceOK := make(map[string]bool)

	for _, e := range entries {
		if manifestChunks[e.ChunkID] {
			continue
		}
		manifestChunks[e.ChunkID] = true
		report.Checked++

		status := domain.AuditOK
		detail := ""

		if !u.sourcePresent(e.DocID, sourceOK) {
			status = domain.AuditMissingSource
			detail = "source file absent or unreadable"
		} else if has, err := u.store.Has(e.ChunkID, e.SHA256); err != nil {
			return nil, err
		} else if !has {
			status = domain.AuditMissingVector
			detail = "no vector with matching content hash"
		}

		report.Counts[status]++
		if status != domain.AuditOK {
			report.Findings = append(report.Findings, domain.AuditFinding{
				ChunkID: e.ChunkID,
				DocID:   e.DocID,
				Status:  status,
				Detail:  detail,
			})
		}
	}

	vectorIDs, err := u.store.IDs()
	if err != nil {
		return nil, err
	}
	for _, id := range vectorIDs {
		if manifestChunks[id] {
			continue
		}
		report.Checked++
		report.Counts[domain.AuditOrphanVector]++
		report.Findings = append(report.Findings, domain.AuditFinding{
			ChunkID: id,
			Status:  domain.AuditOrphanVector,
			Detail:  "vector entry has no manifest line",
		})
	}

	sort.Slice(report.Findings, func(i, j int) bool {
		return report.Findings[i].ChunkID < report.Findings[j].ChunkID
	})

	return report, nil
}

func (u *AuditUseCase) sourcePresent(docID string, memo map[string]bool) bool {
	if ok, cached := memo[docID]; cached {
		return ok
	}
	present := false
	if doc, err := u.store.GetDocument(docID); err == nil {
		if _, err := os.Stat(filepath.Join(u.root, filepath.FromSlash(doc.Path))); err == nil {
			present = true
		}
	}
	memo[docID] = present
	return present
}

// VerifiedMarker records a passing verify run: which manifest length it
// covered and when. Promotion consumes it and fails closed when it is
// missing or stale.
type VerifiedMarker struct {
	ManifestLines int       `json:"manifest_lines"`
	VerifiedAt    time.Time `json:"verified_at"`
}

// Verify runs the audit and, when clean, persists the verified marker.
// A dirty state returns the report alongside an integrity error.
func (u *AuditUseCase) Verify(markerPath string) (*domain.AuditReport, error) {
	report, err := u.Audit()
	if err != nil {
		return nil, err
	}
	if !report.Clean() {
		return report, fmt.Errorf("%w: %d manifest/vector mismatches", domain.ErrIntegrity, len(report.Findings))
	}

	lines, err := u.manifest.Len()
	if err != nil {
		return nil, err
	}
	marker := VerifiedMarker{ManifestLines: lines, VerifiedAt: time.Now().UTC()}
	data, err := json.Marshal(marker)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(markerPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write verified marker: %w", err)
	}
	return report, nil
}

// LoadVerifiedMarker reads a marker written by Verify. A missing file
// returns nil without error; callers decide whether that fails closed.
func LoadVerifiedMarker(markerPath string) (*VerifiedMarker, error) {
	data, err := os.ReadFile(markerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var marker VerifiedMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return nil, fmt.Errorf("corrupt verified marker: %w", err)
	}
	return &marker, nil
}
