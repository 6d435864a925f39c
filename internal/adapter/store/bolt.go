package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"go.etcd.io/bbolt"

	"godlearn/internal/domain"
	"godlearn/internal/port"
)

var (
	bucketDocs       = []byte("docs")
	bucketChunks     = []byte("chunks")
	bucketBlobs      = []byte("blobs")
	bucketVectors    = []byte("vectors")
	bucketHighlights = []byte("highlights")
	bucketTerms      = []byte("terms")
	bucketMeta       = []byte("meta")

	keyDimension  = []byte("dimension")
	keyGeneration = []byte("generation")
)

// BoltStore holds all derived pipeline state: chunk text and metadata,
// the vector collection, the highlight index and the corpus term index.
// The append-only logs remain the source of truth; this store is rebuildable
// from them plus the corpus.
type BoltStore struct {
	db *bbolt.DB

	mu      sync.RWMutex
	vectors map[string]vectorEntry
}

type vectorEntry struct {
	vector      []float32
	contentHash string
	version     int
}

type storedVector struct {
	Vector      []float32 `json:"v"`
	ContentHash string    `json:"h"`
	Version     int       `json:"n"`
}

type chunkMeta struct {
	DocID     string `json:"doc_id"`
	Index     int    `json:"index"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketVectors, bucketHighlights, bucketTerms, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, vectors: make(map[string]vectorEntry)}
	if err := s.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt vector entry %s: %w", k, err)
			}
			s.vectors[string(k)] = vectorEntry{
				vector:      stored.Vector,
				contentHash: stored.ContentHash,
				version:     stored.Version,
			}
			return nil
		})
	})
}

// EnsureDimension pins the store's vector dimension on first use. A mismatch
// with an already-pinned dimension is a fatal configuration error.
func (s *BoltStore) EnsureDimension(dim int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		existing := meta.Get(keyDimension)
		if existing == nil {
			return meta.Put(keyDimension, []byte(strconv.Itoa(dim)))
		}
		stored, err := strconv.Atoi(string(existing))
		if err != nil {
			return fmt.Errorf("corrupt dimension metadata %q: %w", existing, err)
		}
		if stored != dim {
			return fmt.Errorf("%w: vector store dimension %d does not match configured %d",
				domain.ErrIntegrity, stored, dim)
		}
		return nil
	})
}

// --- documents and chunks ---

func (s *BoltStore) PutDocument(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) GetDocument(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		return json.Unmarshal(data, &doc)
	})
	return doc, err
}

func (s *BoltStore) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc domain.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	return docs, err
}

// PutChunks stores chunk metadata and text in one transaction.
func (s *BoltStore) PutChunks(chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, chunk := range chunks {
			meta := chunkMeta{
				DocID:     chunk.DocID,
				Index:     chunk.Index,
				PageStart: chunk.PageStart,
				PageEnd:   chunk.PageEnd,
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := chunkBucket.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
			if err := blobBucket.Put([]byte(chunk.ID), []byte(chunk.Text)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk not found: %s", id)
		}
		var meta chunkMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		text := tx.Bucket(bucketBlobs).Get([]byte(id))
		chunk = domain.Chunk{
			ID:        id,
			DocID:     meta.DocID,
			Index:     meta.Index,
			Text:      string(text),
			PageStart: meta.PageStart,
			PageEnd:   meta.PageEnd,
		}
		return nil
	})
	return chunk, err
}

// HasChunk reports whether chunk metadata exists without loading the text.
func (s *BoltStore) HasChunk(id string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketChunks).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

// --- vector collection (port.VectorStore) ---

// Upsert writes vectors whose content hash changed and skips the rest.
// Identical content is a no-op write; changed content bumps the version.
func (s *BoltStore) Upsert(items []port.VectorItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		dim := s.pinnedDimension(tx)

		for _, item := range items {
			if dim > 0 && len(item.Vector) != dim {
				return fmt.Errorf("%w: vector dimension mismatch for %s: expected %d, got %d",
					domain.ErrIntegrity, item.ID, dim, len(item.Vector))
			}

			prev, exists := s.vectors[item.ID]
			if exists && prev.contentHash == item.ContentHash {
				continue
			}

			version := 1
			if exists {
				version = prev.version + 1
			}
			stored := storedVector{
				Vector:      item.Vector,
				ContentHash: item.ContentHash,
				Version:     version,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
			s.vectors[item.ID] = vectorEntry{
				vector:      item.Vector,
				contentHash: item.ContentHash,
				version:     version,
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (s *BoltStore) pinnedDimension(tx *bbolt.Tx) int {
	data := tx.Bucket(bucketMeta).Get(keyDimension)
	if data == nil {
		return 0
	}
	dim, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return dim
}

// Search finds the k nearest vectors by cosine similarity. Ties break by
// chunk ID so results are fully deterministic.
func (s *BoltStore) Search(query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, nil
	}
	for _, entry := range s.vectors {
		if len(query) != len(entry.vector) {
			return nil, fmt.Errorf("%w: query dimension %d does not match stored %d",
				domain.ErrIntegrity, len(query), len(entry.vector))
		}
		break
	}

	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, 0, len(s.vectors))
	for id, entry := range s.vectors {
		scores = append(scores, scored{id: id, score: cosineSimilarity(query, entry.vector)})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]port.VectorResult, k)
	for i := 0; i < k; i++ {
		results[i] = port.VectorResult{ID: scores[i].id, Score: scores[i].score}
	}
	return results, nil
}

// Has reports whether the stored entry for chunkID carries contentHash.
func (s *BoltStore) Has(chunkID, contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.vectors[chunkID]
	return ok && entry.contentHash == contentHash, nil
}

// IDs returns all vector chunk IDs in lexical order.
func (s *BoltStore) IDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.vectors))
	for id := range s.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *BoltStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// --- highlight index ---

func (s *BoltStore) SetHighlight(h domain.Highlight) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketHighlights).Put([]byte(h.ChunkID), data)
	})
}

func (s *BoltStore) Highlights() (map[string]float64, error) {
	weights := make(map[string]float64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHighlights).ForEach(func(k, v []byte) error {
			var h domain.Highlight
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			weights[h.ChunkID] = h.Weight
			return nil
		})
	})
	return weights, err
}

// --- corpus term index ---

// AddTerms records corpus term presence, used for coverage gaps and the
// out-of-corpus-domain signal.
func (s *BoltStore) AddTerms(terms []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTerms)
		for _, term := range terms {
			if err := b.Put([]byte(term), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) HasTerm(term string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketTerms).Get([]byte(term)) != nil
		return nil
	})
	return found, err
}

// --- generation counter (invalidates the retrieval cache) ---

func (s *BoltStore) Generation() (uint64, error) {
	var gen uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyGeneration)
		if data != nil {
			gen = binary.BigEndian.Uint64(data)
		}
		return nil
	})
	return gen, err
}

func (s *BoltStore) BumpGeneration() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		var gen uint64
		if data := meta.Get(keyGeneration); data != nil {
			gen = binary.BigEndian.Uint64(data)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, gen+1)
		return meta.Put(keyGeneration, buf)
	})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
