package index

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	m.Run()
}

// --- Mocks ---

type mockDocRepo struct {
	mu   sync.Mutex
	docs map[string]domain.Document
}

func newMockDocRepo() *mockDocRepo {
	return &mockDocRepo{docs: make(map[string]domain.Document)}
}

func (m *mockDocRepo) Put(_ context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocRepo) Get(_ context.Context, id string) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockDocRepo) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDocRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *mockDocRepo) SetStatus(_ context.Context, id string, status domain.DocStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Status = status
	m.docs[id] = doc
	return nil
}

func (m *mockDocRepo) status(id string) domain.DocStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id].Status
}

type mockChunkRepo struct {
	mu     sync.Mutex
	chunks map[string][]domain.Chunk
}

func newMockChunkRepo() *mockChunkRepo {
	return &mockChunkRepo{chunks: make(map[string][]domain.Chunk)}
}

func (m *mockChunkRepo) PutBatch(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.DocID] = append(m.chunks[c.DocID], c)
	}
	return nil
}

func (m *mockChunkRepo) DeleteByDoc(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, docID)
	return nil
}

func (m *mockChunkRepo) byDoc(docID string) []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks[docID]
}

// fakeEmbedder embeds instantly; failAfter > 0 fails every call past that count.
type fakeEmbedder struct {
	mu        sync.Mutex
	calls     int
	failAfter int
	err       error
	block     chan struct{} // non-nil: every call waits until closed
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.err != nil && (f.failAfter == 0 || n > f.failAfter) {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

func waitForStatus(t *testing.T, docs *mockDocRepo, id string, want domain.DocStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if docs.status(id) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("document %s never reached status %q (got %q)", id, want, docs.status(id))
}

// --- Tests ---

func TestIngest_EmptyContent(t *testing.T) {
	svc := New(newMockDocRepo(), newMockChunkRepo(), &fakeEmbedder{})
	_, err := svc.Ingest(context.Background(), "t", "   ")
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Errorf("got %v, want ErrEmptyDocument", err)
	}
}

func TestIngest_IndexesInBackground(t *testing.T) {
	docs := newMockDocRepo()
	chunks := newMockChunkRepo()
	svc := New(docs, chunks, &fakeEmbedder{}).WithChunking(4, 1)

	doc, err := svc.Ingest(context.Background(), "notes", "w1 w2 w3 w4 w5 w6")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if doc.Status != domain.DocIndexing {
		t.Errorf("initial status = %q, want %q", doc.Status, domain.DocIndexing)
	}
	if doc.ID == "" {
		t.Error("document id not assigned")
	}

	waitForStatus(t, docs, doc.ID, domain.DocReady)

	got := chunks.byDoc(doc.ID)
	if len(got) == 0 {
		t.Fatal("no chunks persisted")
	}
	for i, c := range got {
		if c.ID != domain.ChunkID(doc.ID, i) {
			t.Errorf("chunk %d has id %q, want %q", i, c.ID, domain.ChunkID(doc.ID, i))
		}
		if len(c.Vector) == 0 {
			t.Errorf("chunk %d has no vector", i)
		}
	}
}

func TestIngest_DefaultTitle(t *testing.T) {
	docs := newMockDocRepo()
	svc := New(docs, newMockChunkRepo(), &fakeEmbedder{})

	doc, err := svc.Ingest(context.Background(), "", "some words here to index")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if doc.Title != "untitled" {
		t.Errorf("title = %q, want untitled", doc.Title)
	}
	waitForStatus(t, docs, doc.ID, domain.DocReady)
}

func TestRun_ProbeFailureMarksError(t *testing.T) {
	docs := newMockDocRepo()
	chunks := newMockChunkRepo()
	emb := &fakeEmbedder{err: domain.ErrProviderUnreachable}
	svc := New(docs, chunks, emb)

	doc, err := svc.Ingest(context.Background(), "t", "enough words to chunk properly")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	waitForStatus(t, docs, doc.ID, domain.DocError)
	if got := chunks.byDoc(doc.ID); len(got) != 0 {
		t.Errorf("chunks persisted despite probe failure: %v", got)
	}
}

func TestRun_MidBatchFailurePersistsNothing(t *testing.T) {
	docs := newMockDocRepo()
	chunks := newMockChunkRepo()
	// Probe and first chunk succeed, later calls fail.
	emb := &fakeEmbedder{err: errors.New("quota exceeded"), failAfter: 2}
	svc := New(docs, chunks, emb).WithChunking(2, 0).WithWorkers(1)

	doc, err := svc.Ingest(context.Background(), "t", "aaaa bbbb cccc dddd eeee ffff gggg hhhh")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	waitForStatus(t, docs, doc.ID, domain.DocError)
	if got := chunks.byDoc(doc.ID); len(got) != 0 {
		t.Errorf("partial chunks persisted: %v", got)
	}
}

func TestIndexDocument_EmptyContent(t *testing.T) {
	svc := New(newMockDocRepo(), newMockChunkRepo(), &fakeEmbedder{})
	_, err := svc.IndexDocument(context.Background(), domain.Document{ID: "d", Content: ""})
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Errorf("got %v, want ErrEmptyDocument", err)
	}
}

func TestIndexDocument_SettingsOverrideChunking(t *testing.T) {
	svc := New(newMockDocRepo(), newMockChunkRepo(), &fakeEmbedder{}).
		WithChunking(200, 30).
		WithSettings(staticSettings{domain.Settings{ChunkSize: 3, ChunkOverlap: 0}})

	chunks, err := svc.IndexDocument(context.Background(), domain.Document{
		ID:      "d",
		Content: "w1 w2 w3 w4 w5 w6",
	})
	if err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("got %d chunks, want 2 (size from settings)", len(chunks))
	}
}

type staticSettings struct {
	s domain.Settings
}

func (m staticSettings) Get(_ context.Context) (domain.Settings, error) { return m.s, nil }

func TestReindex_NotFound(t *testing.T) {
	svc := New(newMockDocRepo(), newMockChunkRepo(), &fakeEmbedder{})
	_, err := svc.Reindex(context.Background(), "absent")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("got %v, want ErrDocumentNotFound", err)
	}
}

func TestReindex_ReplacesChunks(t *testing.T) {
	docs := newMockDocRepo()
	chunks := newMockChunkRepo()
	svc := New(docs, chunks, &fakeEmbedder{}).WithChunking(3, 0)

	doc, err := svc.Ingest(context.Background(), "t", "w1 w2 w3 w4 w5 w6")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	waitForStatus(t, docs, doc.ID, domain.DocReady)
	firstRun := len(chunks.byDoc(doc.ID))

	if _, err := svc.Reindex(context.Background(), doc.ID); err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	waitForStatus(t, docs, doc.ID, domain.DocReady)

	if got := len(chunks.byDoc(doc.ID)); got != firstRun {
		t.Errorf("chunk count changed across reindex: %d -> %d", firstRun, got)
	}
}

func TestDelete_RejectedWhileIndexing(t *testing.T) {
	docs := newMockDocRepo()
	chunks := newMockChunkRepo()
	emb := &fakeEmbedder{block: make(chan struct{})}
	svc := New(docs, chunks, emb)

	doc, err := svc.Ingest(context.Background(), "t", "plenty of words to keep the run busy")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := svc.Delete(context.Background(), doc.ID); !errors.Is(err, domain.ErrIndexInProgress) {
		t.Errorf("got %v, want ErrIndexInProgress", err)
	}

	close(emb.block)
	waitForStatus(t, docs, doc.ID, domain.DocReady)

	if err := svc.Delete(context.Background(), doc.ID); err != nil {
		t.Errorf("Delete after run finished failed: %v", err)
	}
}

func TestDelete_CascadesChunks(t *testing.T) {
	docs := newMockDocRepo()
	chunks := newMockChunkRepo()
	svc := New(docs, chunks, &fakeEmbedder{})

	doc, _ := svc.Ingest(context.Background(), "t", "words enough for one chunk at least")
	waitForStatus(t, docs, doc.ID, domain.DocReady)

	if err := svc.Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := chunks.byDoc(doc.ID); len(got) != 0 {
		t.Errorf("chunks survived delete: %v", got)
	}
	if _, err := docs.Get(context.Background(), doc.ID); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("document survived delete: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := New(newMockDocRepo(), newMockChunkRepo(), &fakeEmbedder{})
	if err := svc.Delete(context.Background(), "absent"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("got %v, want ErrDocumentNotFound", err)
	}
}

func TestEmbedPieces_OrderIndependentOfCompletion(t *testing.T) {
	svc := New(newMockDocRepo(), newMockChunkRepo(), &fakeEmbedder{}).WithWorkers(4)

	pieces := []string{"aaaa", "bbbbbb", "cccccccc", "dddddddddd", "eeeeeeeeeeee"}
	chunks, err := svc.embedPieces(context.Background(), "doc", pieces)
	if err != nil {
		t.Fatalf("embedPieces failed: %v", err)
	}
	if len(chunks) != len(pieces) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(pieces))
	}
	for i, c := range chunks {
		if c.Seq != i || !strings.HasPrefix(c.Text, pieces[i][:1]) {
			t.Errorf("chunk %d out of order: %+v", i, c)
		}
	}
}
