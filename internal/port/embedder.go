package port

import "context"

// Embedder generates fixed-dimension vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts, one vector per input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore stores and searches embedding vectors for a single named
// collection. Upserts are idempotent by content hash.
type VectorStore interface {
	// Upsert adds or updates vectors. An item whose content hash matches
	// the stored entry is a no-op write.
	Upsert(items []VectorItem) (written int, err error)

	// Search finds the k nearest vectors to the query by cosine similarity.
	Search(query []float32, k int) ([]VectorResult, error)

	// Has reports whether a chunk's stored content hash matches.
	Has(chunkID, contentHash string) (bool, error)

	// IDs returns all stored chunk IDs in lexical order.
	IDs() ([]string, error)

	// Count returns the number of vectors in the store.
	Count() (int, error)
}

// VectorItem is a vector to be stored.
type VectorItem struct {
	ID          string
	Vector      []float32
	ContentHash string
}

// VectorResult is a search result.
type VectorResult struct {
	ID    string
	Score float64
}
