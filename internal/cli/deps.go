package cli

import (
	"fmt"
	"os"

	"godlearn/config"
	"godlearn/internal/adapter/embedding"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/adapter/store"
	"godlearn/internal/port"
)

// openStore opens the bbolt state database, requiring a prior ingest.
func openStore(root string) (*store.BoltStore, error) {
	dbPath := config.IndexDBPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no index found at %s; run 'godlearn ingest' first", dbPath)
	}
	return store.NewBoltStore(dbPath)
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "http":
		return embedding.NewHTTPEmbedder(cfg.Embedding)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func openManifest(root string) *journal.ManifestLog {
	return journal.OpenManifest(config.ManifestPath(root))
}

func openKnowledge(root string) *journal.KnowledgeLog {
	return journal.OpenKnowledge(config.KnowledgePath(root))
}

func openReasoning(root string) *journal.ReasoningLog {
	return journal.OpenReasoning(config.ReasoningPath(root))
}
