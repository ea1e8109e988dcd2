package domain

import "fmt"

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "ragdex:"

// DocStatus is the indexing lifecycle state of a document.
type DocStatus string

const (
	// DocIndexing means chunking and embedding are in progress.
	DocIndexing DocStatus = "indexing"
	// DocReady means the document's chunks are embedded and searchable.
	DocReady DocStatus = "ready"
	// DocError means the last indexing run failed; no chunks were persisted.
	DocError DocStatus = "error"
)

// Document is an ingested free-text document, the unit of ownership for chunks.
type Document struct {
	ID        string
	Title     string
	Content   string
	CreatedAt int64 // unix millis
	Status    DocStatus
}

// Chunk is a contiguous overlap-bounded slice of a document's text,
// the unit of embedding and retrieval. Vector is nil until embedding succeeds;
// vectorless chunks never surface in retrieval (they score 0).
type Chunk struct {
	ID     string
	DocID  string
	Seq    int
	Text   string
	Vector []float32
}

// ChunkID derives the deterministic chunk id from the parent document id and
// the chunk's sequence index. Re-chunking the same document with the same
// parameters reproduces the same ids.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s:%d", docID, seq)
}

// RetrievalContext is one retrieved chunk with provenance, produced per query
// and never persisted on its own.
type RetrievalContext struct {
	ChunkID         string
	DocID           string
	DocTitle        string
	Content         string
	Score           float64
	RelatedEntities []string
}

// UnknownDocTitle is the sentinel title for contexts whose parent document
// was deleted between indexing and retrieval.
const UnknownDocTitle = "unknown document"
