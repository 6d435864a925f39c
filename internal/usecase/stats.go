package usecase

import (
	"fmt"

	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/domain"
)

// Stats summarizes pipeline state across every phase.
func Stats(st *store.BoltStore, manifest *journal.ManifestLog, knowledge *journal.KnowledgeLog, reasoning *journal.ReasoningLog) (domain.Stats, error) {
	var stats domain.Stats

	docs, err := st.ListDocuments()
	if err != nil {
		return stats, fmt.Errorf("failed to list documents: %w", err)
	}
	stats.TotalDocs = len(docs)

	chunks, err := manifest.Len()
	if err != nil {
		return stats, err
	}
	stats.TotalChunks = chunks

	vectors, err := st.Count()
	if err != nil {
		return stats, err
	}
	stats.TotalVectors = vectors

	kus, err := knowledge.Len()
	if err != nil {
		return stats, err
	}
	stats.TotalKUs = kus

	edges, err := reasoning.Len()
	if err != nil {
		return stats, err
	}
	stats.TotalEdges = edges

	return stats, nil
}
