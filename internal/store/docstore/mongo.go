package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/platform/mongodb"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// mongoTerm is the persisted document shape: the concept inlined with its
// derived search fields alongside.
type mongoTerm struct {
	terminology.Concept `bson:",inline"`

	NGrams     []string `bson:"nGrams"`
	SearchText string   `bson:"searchText"`
}

// MongoStore is the primary DocumentStore, one collection per vocabulary.
type MongoStore struct {
	db           *mongodb.Client
	log          *logger.Logger
	processLimit int
}

func NewMongoStore(db *mongodb.Client, log *logger.Logger, processLimit int) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("docstore: mongo client required")
	}
	if log == nil {
		return nil, fmt.Errorf("docstore: logger required")
	}
	if processLimit < 1 {
		processLimit = 1
	}
	return &MongoStore{
		db:           db,
		log:          log.With("store", "MongoDocumentStore"),
		processLimit: processLimit,
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

func (s *MongoStore) collection(prefix terminology.Prefix) *mongo.Collection {
	return s.db.DB().Collection(string(prefix))
}

// Index option conflicts surface as these server error codes.
const (
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

func isIndexConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeIndexOptionsConflict || cmdErr.Code == codeIndexKeySpecsConflict
	}
	return false
}

func (s *MongoStore) CreateIndex(ctx context.Context, prefix terminology.Prefix, spec IndexSpec, overwrite bool) error {
	name := fmt.Sprintf("%s_index", spec.Field)
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: spec.Field, Value: 1}},
		Options: options.Index().SetName(name).SetUnique(spec.Unique),
	}

	_, err := s.collection(prefix).Indexes().CreateOne(ctx, model)
	if err == nil {
		return s.ensureNGramIndex(ctx, prefix)
	}
	if !isIndexConflict(err) {
		return apierr.IndexCreation(fmt.Errorf("docstore: create index %s on %s: %w", spec.Field, prefix, err))
	}
	if !overwrite {
		return apierr.IndexCreation(fmt.Errorf("docstore: index %s on %s conflicts with an existing index", spec.Field, prefix))
	}

	s.log.Warn("dropping conflicting index", "prefix", prefix, "index", name)
	if _, err := s.collection(prefix).Indexes().DropOne(ctx, name); err != nil {
		return apierr.IndexCreation(fmt.Errorf("docstore: drop index %s on %s: %w", name, prefix, err))
	}
	if _, err := s.collection(prefix).Indexes().CreateOne(ctx, model); err != nil {
		return apierr.IndexCreation(fmt.Errorf("docstore: recreate index %s on %s: %w", name, prefix, err))
	}
	return s.ensureNGramIndex(ctx, prefix)
}

// ensureNGramIndex keeps the multikey n-gram index present; every search
// path depends on it.
func (s *MongoStore) ensureNGramIndex(ctx context.Context, prefix terminology.Prefix) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "nGrams", Value: 1}},
		Options: options.Index().SetName("nGrams_index"),
	}
	if _, err := s.collection(prefix).Indexes().CreateOne(ctx, model); err != nil {
		return apierr.IndexCreation(fmt.Errorf("docstore: ensure nGrams index on %s: %w", prefix, err))
	}
	return nil
}

func (s *MongoStore) SaveTerms(ctx context.Context, prefix terminology.Prefix, concepts []terminology.Concept) (int, error) {
	if len(concepts) == 0 {
		return 0, nil
	}
	docs, err := buildTermDocuments(ctx, concepts, s.processLimit)
	if err != nil {
		return 0, err
	}
	rows := make([]any, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, mongoTerm{
			Concept:    d.Concept,
			NGrams:     d.NGrams,
			SearchText: d.SearchText,
		})
	}

	// Unordered insert lets duplicate concept IDs fail record-by-record
	// while the rest of the batch lands.
	res, err := s.collection(prefix).InsertMany(ctx, rows, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err == nil {
		return inserted, nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		duplicatesOnly := true
		for _, we := range bwe.WriteErrors {
			if !mongo.IsDuplicateKeyError(we.WriteError) {
				duplicatesOnly = false
				break
			}
		}
		if duplicatesOnly {
			if len(bwe.WriteErrors) > 0 {
				s.log.Warn("duplicate concepts skipped", "prefix", prefix, "skipped", len(bwe.WriteErrors))
			}
			return len(rows) - len(bwe.WriteErrors), nil
		}
	}
	return inserted, fmt.Errorf("docstore: save terms for %s: %w", prefix, err)
}

func (s *MongoStore) CountTerms(ctx context.Context, prefix terminology.Prefix) (int64, error) {
	count, err := s.collection(prefix).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("docstore: count terms for %s: %w", prefix, err)
	}
	return count, nil
}

func (s *MongoStore) DeleteAll(ctx context.Context, prefix terminology.Prefix) error {
	if err := s.collection(prefix).Drop(ctx); err != nil {
		return fmt.Errorf("docstore: drop collection %s: %w", prefix, err)
	}
	return s.ensureNGramIndex(ctx, prefix)
}

func (s *MongoStore) streamCursor(ctx context.Context, cursor *mongo.Cursor, yield func(terminology.Concept) error) error {
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc mongoTerm
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("docstore: decode term: %w", err)
		}
		if err := yield(doc.Concept); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (s *MongoStore) Terms(ctx context.Context, prefix terminology.Prefix, limit int) terminology.Seq[terminology.Concept] {
	return func(yield func(terminology.Concept) error) error {
		opts := options.Find()
		if limit > 0 {
			opts.SetLimit(int64(limit))
		}
		cursor, err := s.collection(prefix).Find(ctx, bson.D{}, opts)
		if err != nil {
			return fmt.Errorf("docstore: find terms for %s: %w", prefix, err)
		}
		return s.streamCursor(ctx, cursor, yield)
	}
}

func (s *MongoStore) TermsByIDs(ctx context.Context, prefix terminology.Prefix, ids []string) terminology.Seq[terminology.Concept] {
	return func(yield func(terminology.Concept) error) error {
		filter := bson.D{{Key: "conceptId", Value: bson.D{{Key: "$in", Value: ids}}}}
		cursor, err := s.collection(prefix).Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("docstore: find terms by ids for %s: %w", prefix, err)
		}
		return s.streamCursor(ctx, cursor, yield)
	}
}

func (s *MongoStore) AutoComplete(ctx context.Context, prefix terminology.Prefix, query string, limit int) terminology.Seq[terminology.Concept] {
	return func(yield func(terminology.Concept) error) error {
		tokens, scoreQuery := terminology.SearchQueryTerms(query)
		if len(tokens) == 0 {
			return nil
		}
		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: bson.D{{Key: "nGrams", Value: bson.D{{Key: "$all", Value: tokens}}}}}},
			{{Key: "$addFields", Value: bson.D{
				{Key: "positionScore", Value: bson.D{{Key: "$indexOfCP", Value: bson.A{
					bson.D{{Key: "$toLower", Value: "$searchText"}},
					scoreQuery,
				}}}},
				{Key: "labelLength", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{
						bson.D{{Key: "$ifNull", Value: bson.A{"$label", ""}}},
						"",
					}}},
					missingLabelLength,
					bson.D{{Key: "$strLenCP", Value: "$label"}},
				}}}},
			}}},
			{{Key: "$sort", Value: bson.D{
				{Key: "positionScore", Value: 1},
				{Key: "labelLength", Value: 1},
				{Key: "conceptId", Value: 1},
			}}},
		}
		if limit > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
		}

		cursor, err := s.collection(prefix).Aggregate(ctx, pipeline)
		if err != nil {
			return fmt.Errorf("docstore: auto-complete for %s: %w", prefix, err)
		}
		return s.streamCursor(ctx, cursor, yield)
	}
}

func (s *MongoStore) UpdateVectorMapping(ctx context.Context, prefix terminology.Prefix, mapping map[string]string) (int64, error) {
	if len(mapping) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(mapping))
	for conceptID, vectorID := range mapping {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "conceptId", Value: conceptID}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{{Key: "vectorId", Value: vectorID}}}}))
	}
	res, err := s.collection(prefix).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("docstore: update vector mapping for %s: %w", prefix, err)
	}
	return res.ModifiedCount, nil
}
