package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(testLogger(t), Config{URL: srv.URL, VectorDim: 4})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return srv, client
}

func writeEnvelope(w http.ResponseWriter, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"result": result,
	})
}

func TestEnsureCollectionCreatesWhenAbsent(t *testing.T) {
	var created bool
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections":
			writeEnvelope(w, map[string]any{"collections": []map[string]any{{"name": "other"}}})
		case r.Method == http.MethodPut && r.URL.Path == "/collections/hpo":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			vectors, _ := body["vectors"].(map[string]any)
			if vectors["distance"] != "Cosine" {
				t.Errorf("expected cosine distance, got %v", vectors["distance"])
			}
			if vectors["size"].(float64) != 4 {
				t.Errorf("expected size 4, got %v", vectors["size"])
			}
			created = true
			writeEnvelope(w, true)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	if err := client.EnsureCollection(context.Background(), "hpo"); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	if !created {
		t.Fatalf("collection was not created")
	}
}

func TestEnsureCollectionNoopWhenPresent(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/collections" {
			writeEnvelope(w, map[string]any{"collections": []map[string]any{{"name": "hpo"}}})
			return
		}
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	if err := client.EnsureCollection(context.Background(), "hpo"); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
}

func TestUpsertPointsValidation(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, true)
	})

	err := client.UpsertPoints(context.Background(), "hpo", []Point{
		{ID: "p1", Vector: []float32{1, 2}},
	})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	var opError *OperationError
	if !errors.As(err, &opError) || opError.Code != OperationErrorValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := client.UpsertPoints(context.Background(), "hpo", nil); err != nil {
		t.Fatalf("empty upsert must be a no-op, got %v", err)
	}
}

func TestScrollPointsPagination(t *testing.T) {
	page := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/hpo/points/scroll" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		page++
		if page == 1 {
			writeEnvelope(w, map[string]any{
				"points": []map[string]any{
					{"id": "a", "vector": []float32{1, 0, 0, 0}, "payload": map[string]any{"conceptId": "0001"}},
				},
				"next_page_offset": "a",
			})
			return
		}
		writeEnvelope(w, map[string]any{
			"points":           []map[string]any{},
			"next_page_offset": nil,
		})
	})

	points, next, err := client.ScrollPoints(context.Background(), "hpo", nil, 1)
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if len(points) != 1 || points[0].Payload["conceptId"] != "0001" {
		t.Fatalf("unexpected points %+v", points)
	}
	if next == nil {
		t.Fatalf("expected a next offset")
	}

	points, next, err = client.ScrollPoints(context.Background(), "hpo", next, 1)
	if err != nil {
		t.Fatalf("scroll page 2: %v", err)
	}
	if len(points) != 0 || next != nil {
		t.Fatalf("expected exhausted scroll, got %d points next=%s", len(points), string(next))
	}
}

func TestPointIDDeterministic(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, true)
	})

	a := client.PointID("hpo", "0001250")
	b := client.PointID("hpo", "0001250")
	c := client.PointID("ordo", "0001250")
	if a != b {
		t.Fatalf("point id not deterministic: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("point id must differ across collections")
	}
}

func TestParseEnvelopeStatus(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{`"ok"`, false},
		{``, false},
		{`null`, false},
		{`"error"`, true},
		{`{"error": "bad request"}`, true},
	}
	for _, tt := range tests {
		got := parseEnvelopeStatus(json.RawMessage(tt.raw))
		if tt.wantErr && got == "" {
			t.Errorf("raw %q: expected error string", tt.raw)
		}
		if !tt.wantErr && got != "" {
			t.Errorf("raw %q: unexpected error %q", tt.raw, got)
		}
	}
}
