package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/platform/qdrant"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// embedBatchSize is how many concept texts go to the embedder per call.
const embedBatchSize = 32

// scrollPageSize bounds scroll pages so exports stay memory-flat.
const scrollPageSize = 256

// Embedder turns concept texts into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorPoint is one stored embedding with its back-reference.
type VectorPoint struct {
	PointID   string
	ConceptID string
	Vector    []float32
}

// VectorStore keeps one vector collection per vocabulary prefix.
type VectorStore interface {
	// InsertConcepts embeds the concepts' canonical texts in batches and
	// upserts them, returning the conceptId -> pointId mapping for the
	// document store to backfill.
	InsertConcepts(ctx context.Context, prefix terminology.Prefix, concepts []terminology.Concept) (map[string]string, error)
	Vectors(ctx context.Context, prefix terminology.Prefix) terminology.Seq[VectorPoint]
	DeleteForPrefix(ctx context.Context, prefix terminology.Prefix) error
}

// QdrantStore implements VectorStore on the Qdrant HTTP API.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	log      *logger.Logger
}

func NewQdrantStore(client *qdrant.Client, embedder Embedder, log *logger.Logger) (*QdrantStore, error) {
	if client == nil {
		return nil, fmt.Errorf("vectorstore: qdrant client required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("vectorstore: embedder required")
	}
	if log == nil {
		return nil, fmt.Errorf("vectorstore: logger required")
	}
	return &QdrantStore{
		client:   client,
		embedder: embedder,
		log:      log.With("store", "QdrantVectorStore"),
	}, nil
}

func (s *QdrantStore) InsertConcepts(ctx context.Context, prefix terminology.Prefix, concepts []terminology.Concept) (map[string]string, error) {
	collection := string(prefix)
	if err := s.client.EnsureCollection(ctx, collection); err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(concepts))
	for start := 0; start < len(concepts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(concepts))
		batch := concepts[start:end]

		texts := make([]string, 0, len(batch))
		for _, c := range batch {
			texts = append(texts, c.CanonicalText())
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: embed batch for %s: %w", prefix, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("vectorstore: embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}

		points := make([]qdrant.Point, 0, len(batch))
		for i, c := range batch {
			pointID := s.client.PointID(collection, c.ConceptID)
			points = append(points, qdrant.Point{
				ID:      pointID,
				Vector:  vectors[i],
				Payload: map[string]any{"conceptId": c.ConceptID},
			})
			mapping[c.ConceptID] = pointID
		}
		if err := s.client.UpsertPoints(ctx, collection, points); err != nil {
			return nil, err
		}
	}
	s.log.Info("inserted concept vectors", "prefix", prefix, "count", len(mapping))
	return mapping, nil
}

func (s *QdrantStore) Vectors(ctx context.Context, prefix terminology.Prefix) terminology.Seq[VectorPoint] {
	return func(yield func(VectorPoint) error) error {
		collection := string(prefix)
		var offset json.RawMessage
		for {
			points, next, err := s.client.ScrollPoints(ctx, collection, offset, scrollPageSize)
			if err != nil {
				return err
			}
			for _, p := range points {
				vp := VectorPoint{
					PointID: decodePointID(p.ID),
					Vector:  p.Vector,
				}
				if id, ok := p.Payload["conceptId"].(string); ok {
					vp.ConceptID = id
				}
				if err := yield(vp); err != nil {
					return err
				}
			}
			if next == nil {
				return nil
			}
			offset = next
		}
	}
}

// decodePointID unwraps the JSON point id, which Qdrant returns as either a
// quoted UUID or a bare integer.
func decodePointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (s *QdrantStore) DeleteForPrefix(ctx context.Context, prefix terminology.Prefix) error {
	return s.client.DeleteCollection(ctx, string(prefix))
}
