package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/bioterms-backend/internal/platform/qdrant"
	"github.com/yungbote/bioterms-backend/internal/store/testutil"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const testVectorDim = 4

// fakeEmbedder records the texts it was asked to embed and returns
// deterministic vectors.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 2, 3}
	}
	return out, nil
}

// fakeQdrant is a minimal in-memory Qdrant HTTP API.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string][]qdrant.Point
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: make(map[string][]qdrant.Point)}
}

func writeResult(w http.ResponseWriter, result any) {
	payload := map[string]any{"status": "ok", "time": 0.001}
	if result != nil {
		payload["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/collections", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		names := make([]map[string]string, 0, len(f.collections))
		for name := range f.collections {
			names = append(names, map[string]string{"name": name})
		}
		writeResult(w, map[string]any{"collections": names})
	})
	mux.HandleFunc("/collections/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		name := parts[1]
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case len(parts) == 2 && r.Method == http.MethodPut:
			f.collections[name] = nil
			writeResult(w, true)
		case len(parts) == 2 && r.Method == http.MethodDelete:
			delete(f.collections, name)
			writeResult(w, true)
		case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPut:
			var req struct {
				Points []qdrant.Point `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.collections[name] = append(f.collections[name], req.Points...)
			writeResult(w, map[string]any{"status": "completed"})
		case len(parts) == 4 && parts[2] == "points" && parts[3] == "scroll":
			var req struct {
				Limit  int `json:"limit"`
				Offset int `json:"offset"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			points := f.collections[name]
			start := req.Offset
			if start > len(points) {
				start = len(points)
			}
			end := start + req.Limit
			if end > len(points) {
				end = len(points)
			}
			page := make([]map[string]any, 0, end-start)
			for _, p := range points[start:end] {
				page = append(page, map[string]any{
					"id":      p.ID,
					"vector":  p.Vector,
					"payload": p.Payload,
				})
			}
			result := map[string]any{"points": page}
			if end < len(points) {
				result["next_page_offset"] = end
			} else {
				result["next_page_offset"] = nil
			}
			writeResult(w, result)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func newTestStore(t *testing.T) (*QdrantStore, *fakeEmbedder, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	client, err := qdrant.NewClient(testutil.Logger(t), qdrant.Config{URL: server.URL, VectorDim: testVectorDim})
	if err != nil {
		t.Fatalf("new qdrant client: %v", err)
	}
	embedder := &fakeEmbedder{}
	store, err := NewQdrantStore(client, embedder, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new qdrant store: %v", err)
	}
	return store, embedder, fake
}

func makeConcepts(n int) []terminology.Concept {
	out := make([]terminology.Concept, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, terminology.Concept{
			Prefix:    terminology.PrefixHPO,
			ConceptID: fmt.Sprintf("%04d", i),
			Label:     fmt.Sprintf("Concept %d", i),
			Status:    terminology.StatusActive,
		})
	}
	return out
}

func TestInsertConceptsBatchesAndMaps(t *testing.T) {
	store, embedder, fake := newTestStore(t)
	ctx := context.Background()

	concepts := makeConcepts(70)
	mapping, err := store.InsertConcepts(ctx, terminology.PrefixHPO, concepts)
	if err != nil {
		t.Fatalf("insert concepts: %v", err)
	}
	if len(mapping) != 70 {
		t.Fatalf("expected 70 mapped concepts, got %d", len(mapping))
	}

	// 70 concepts at batch size 32 means 3 embed calls: 32, 32, 6.
	if len(embedder.batches) != 3 {
		t.Fatalf("expected 3 embed batches, got %d", len(embedder.batches))
	}
	if len(embedder.batches[0]) != 32 || len(embedder.batches[2]) != 6 {
		t.Errorf("batch sizes: %d, %d, %d", len(embedder.batches[0]), len(embedder.batches[1]), len(embedder.batches[2]))
	}

	fake.mu.Lock()
	stored := len(fake.collections["hpo"])
	fake.mu.Unlock()
	if stored != 70 {
		t.Errorf("expected 70 stored points, got %d", stored)
	}

	// Point IDs are deterministic per (collection, conceptId).
	again, err := store.InsertConcepts(ctx, terminology.PrefixHPO, concepts[:1])
	if err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	if again["0000"] != mapping["0000"] {
		t.Errorf("point id changed on re-insert: %q vs %q", again["0000"], mapping["0000"])
	}
}

func TestVectorsScrollsAllPages(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	concepts := makeConcepts(300)
	mapping, err := store.InsertConcepts(ctx, terminology.PrefixHPO, concepts)
	if err != nil {
		t.Fatalf("insert concepts: %v", err)
	}

	points, err := terminology.Collect(store.Vectors(ctx, terminology.PrefixHPO))
	if err != nil {
		t.Fatalf("scroll vectors: %v", err)
	}
	if len(points) != 300 {
		t.Fatalf("expected 300 points, got %d", len(points))
	}
	for _, p := range points[:5] {
		if p.ConceptID == "" {
			t.Fatalf("point missing conceptId payload: %+v", p)
		}
		if p.PointID != mapping[p.ConceptID] {
			t.Errorf("point id mismatch for %s", p.ConceptID)
		}
		if len(p.Vector) != testVectorDim {
			t.Errorf("vector dimension: got %d", len(p.Vector))
		}
	}
}

func TestDeleteForPrefix(t *testing.T) {
	store, _, fake := newTestStore(t)
	ctx := context.Background()

	if _, err := store.InsertConcepts(ctx, terminology.PrefixHPO, makeConcepts(5)); err != nil {
		t.Fatalf("insert concepts: %v", err)
	}
	if err := store.DeleteForPrefix(ctx, terminology.PrefixHPO); err != nil {
		t.Fatalf("delete: %v", err)
	}
	fake.mu.Lock()
	_, exists := fake.collections["hpo"]
	fake.mu.Unlock()
	if exists {
		t.Errorf("collection should be gone")
	}

	// Deleting an absent prefix is a no-op.
	if err := store.DeleteForPrefix(ctx, terminology.PrefixORDO); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
