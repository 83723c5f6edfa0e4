package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// termRow is the relational projection of a stored concept: the frequently
// queried fields as columns, the full record as a JSON document.
type termRow struct {
	ID         uint           `gorm:"primaryKey"`
	ConceptID  string         `gorm:"column:concept_id;uniqueIndex"`
	Label      string         `gorm:"column:label;index"`
	SearchText string         `gorm:"column:search_text"`
	VectorID   string         `gorm:"column:vector_id"`
	Document   datatypes.JSON `gorm:"column:document"`
}

// ngramRow is the sidecar substring index feeding auto-complete lookups.
type ngramRow struct {
	ID        uint   `gorm:"primaryKey"`
	NGram     string `gorm:"column:ngram;index"`
	ConceptID string `gorm:"column:concept_id;index"`
}

// RelationalStore is the embedded DocumentStore backend on SQLite via gorm,
// used when no document database is configured. One term table and one
// n-gram table per vocabulary.
type RelationalStore struct {
	db           *gorm.DB
	log          *logger.Logger
	processLimit int
}

func NewRelationalStore(db *gorm.DB, log *logger.Logger, processLimit int) (*RelationalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("docstore: gorm db required")
	}
	if log == nil {
		return nil, fmt.Errorf("docstore: logger required")
	}
	if processLimit < 1 {
		processLimit = 1
	}
	return &RelationalStore{
		db:           db,
		log:          log.With("store", "RelationalDocumentStore"),
		processLimit: processLimit,
	}, nil
}

func termsTable(prefix terminology.Prefix) string  { return string(prefix) + "_terms" }
func ngramsTable(prefix terminology.Prefix) string { return string(prefix) + "_ngrams" }

func (s *RelationalStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *RelationalStore) ensureTables(ctx context.Context, prefix terminology.Prefix) error {
	db := s.db.WithContext(ctx)
	if err := db.Table(termsTable(prefix)).AutoMigrate(&termRow{}); err != nil {
		return fmt.Errorf("docstore: migrate %s: %w", termsTable(prefix), err)
	}
	if err := db.Table(ngramsTable(prefix)).AutoMigrate(&ngramRow{}); err != nil {
		return fmt.Errorf("docstore: migrate %s: %w", ngramsTable(prefix), err)
	}
	return nil
}

// columnFor maps indexable concept fields to their relational home: a real
// column where one exists, a JSON path expression otherwise.
func columnFor(field string) string {
	switch field {
	case "conceptId":
		return "concept_id"
	case "label":
		return "label"
	case "vectorId":
		return "vector_id"
	default:
		return fmt.Sprintf("json_extract(document, '$.%s')", field)
	}
}

func (s *RelationalStore) CreateIndex(ctx context.Context, prefix terminology.Prefix, spec IndexSpec, overwrite bool) error {
	if err := s.ensureTables(ctx, prefix); err != nil {
		return apierr.IndexCreation(err)
	}
	table := termsTable(prefix)
	name := fmt.Sprintf("idx_%s_%s", table, spec.Field)
	db := s.db.WithContext(ctx)

	if overwrite {
		if err := db.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", name)).Error; err != nil {
			return apierr.IndexCreation(fmt.Errorf("docstore: drop index %s: %w", name, err))
		}
	} else if db.Dialector.Name() == "sqlite" {
		// CREATE INDEX IF NOT EXISTS silently no-ops on a same-named
		// index with a different definition, so the recorded DDL is
		// checked for a uniqueness mismatch first.
		var ddl string
		if err := db.Raw("SELECT sql FROM sqlite_master WHERE type = 'index' AND name = ?", name).Scan(&ddl).Error; err != nil {
			return apierr.IndexCreation(fmt.Errorf("docstore: inspect index %s: %w", name, err))
		}
		if ddl != "" && strings.HasPrefix(ddl, "CREATE UNIQUE") != spec.Unique {
			return apierr.IndexCreation(fmt.Errorf("docstore: index %s conflicts with an existing index", name))
		}
	}
	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", unique, name, table, columnFor(spec.Field))
	if err := db.Exec(stmt).Error; err != nil {
		return apierr.IndexCreation(fmt.Errorf("docstore: create index %s: %w", name, err))
	}
	return nil
}

func (s *RelationalStore) SaveTerms(ctx context.Context, prefix terminology.Prefix, concepts []terminology.Concept) (int, error) {
	if len(concepts) == 0 {
		return 0, nil
	}
	if err := s.ensureTables(ctx, prefix); err != nil {
		return 0, err
	}
	docs, err := buildTermDocuments(ctx, concepts, s.processLimit)
	if err != nil {
		return 0, err
	}

	db := s.db.WithContext(ctx)
	inserted := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, d := range docs {
			raw, err := json.Marshal(d.Concept)
			if err != nil {
				return fmt.Errorf("docstore: encode concept %s: %w", d.Concept.ConceptID, err)
			}
			row := termRow{
				ConceptID:  d.Concept.ConceptID,
				Label:      d.Concept.Label,
				SearchText: d.SearchText,
				VectorID:   d.Concept.VectorID,
				Document:   datatypes.JSON(raw),
			}
			res := tx.Table(termsTable(prefix)).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "concept_id"}}, DoNothing: true}).
				Create(&row)
			if res.Error != nil {
				return fmt.Errorf("docstore: insert concept %s: %w", d.Concept.ConceptID, res.Error)
			}
			if res.RowsAffected == 0 {
				// Duplicate: the record fails, the batch continues.
				continue
			}
			inserted++

			grams := make([]ngramRow, 0, len(d.NGrams))
			for _, g := range d.NGrams {
				grams = append(grams, ngramRow{NGram: g, ConceptID: d.Concept.ConceptID})
			}
			if len(grams) > 0 {
				if err := tx.Table(ngramsTable(prefix)).CreateInBatches(grams, 500).Error; err != nil {
					return fmt.Errorf("docstore: insert n-grams for %s: %w", d.Concept.ConceptID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if skipped := len(docs) - inserted; skipped > 0 {
		s.log.Warn("duplicate concepts skipped", "prefix", prefix, "skipped", skipped)
	}
	return inserted, nil
}

func (s *RelationalStore) CountTerms(ctx context.Context, prefix terminology.Prefix) (int64, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(termsTable(prefix)) {
		return 0, nil
	}
	var count int64
	if err := db.Table(termsTable(prefix)).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("docstore: count terms for %s: %w", prefix, err)
	}
	return count, nil
}

func (s *RelationalStore) DeleteAll(ctx context.Context, prefix terminology.Prefix) error {
	db := s.db.WithContext(ctx)
	for _, table := range []string{termsTable(prefix), ngramsTable(prefix)} {
		if !db.Migrator().HasTable(table) {
			continue
		}
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("docstore: drop table %s: %w", table, err)
		}
	}
	return s.ensureTables(ctx, prefix)
}

func decodeTermRow(row termRow) (terminology.Concept, error) {
	var c terminology.Concept
	if err := json.Unmarshal(row.Document, &c); err != nil {
		return terminology.Concept{}, fmt.Errorf("docstore: decode concept %s: %w", row.ConceptID, err)
	}
	if row.VectorID != "" {
		c.VectorID = row.VectorID
	}
	return c, nil
}

func (s *RelationalStore) streamRows(ctx context.Context, query *gorm.DB, yield func(terminology.Concept) error) error {
	rows, err := query.Rows()
	if err != nil {
		return fmt.Errorf("docstore: query terms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var row termRow
		if err := s.db.ScanRows(rows, &row); err != nil {
			return fmt.Errorf("docstore: scan term: %w", err)
		}
		c, err := decodeTermRow(row)
		if err != nil {
			return err
		}
		if err := yield(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *RelationalStore) Terms(ctx context.Context, prefix terminology.Prefix, limit int) terminology.Seq[terminology.Concept] {
	return func(yield func(terminology.Concept) error) error {
		db := s.db.WithContext(ctx)
		if !db.Migrator().HasTable(termsTable(prefix)) {
			return nil
		}
		query := db.Table(termsTable(prefix)).Order("concept_id")
		if limit > 0 {
			query = query.Limit(limit)
		}
		return s.streamRows(ctx, query, yield)
	}
}

func (s *RelationalStore) TermsByIDs(ctx context.Context, prefix terminology.Prefix, ids []string) terminology.Seq[terminology.Concept] {
	return func(yield func(terminology.Concept) error) error {
		db := s.db.WithContext(ctx)
		if !db.Migrator().HasTable(termsTable(prefix)) {
			return nil
		}
		query := db.Table(termsTable(prefix)).Where("concept_id IN ?", ids).Order("concept_id")
		return s.streamRows(ctx, query, yield)
	}
}

func (s *RelationalStore) AutoComplete(ctx context.Context, prefix terminology.Prefix, query string, limit int) terminology.Seq[terminology.Concept] {
	return func(yield func(terminology.Concept) error) error {
		db := s.db.WithContext(ctx)
		if !db.Migrator().HasTable(termsTable(prefix)) {
			return nil
		}
		tokens, scoreQuery := terminology.SearchQueryTerms(query)
		if len(tokens) == 0 {
			return nil
		}
		// A document matches when its gram set covers every token.
		var rows []termRow
		err := db.Table(termsTable(prefix)+" AS t").
			Select("t.*").
			Joins(fmt.Sprintf("JOIN %s AS g ON g.concept_id = t.concept_id", ngramsTable(prefix))).
			Where("g.ngram IN ?", tokens).
			Group("t.id").
			Having("COUNT(DISTINCT g.ngram) = ?", len(tokens)).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("docstore: auto-complete for %s: %w", prefix, err)
		}

		cands := make([]candidate, 0, len(rows))
		for i, row := range rows {
			cands = append(cands, candidate{
				ConceptID:  row.ConceptID,
				Label:      row.Label,
				SearchText: row.SearchText,
				Payload:    i,
			})
		}
		for _, c := range rankAutoComplete(cands, scoreQuery, limit) {
			concept, err := decodeTermRow(rows[c.Payload.(int)])
			if err != nil {
				return err
			}
			if err := yield(concept); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *RelationalStore) UpdateVectorMapping(ctx context.Context, prefix terminology.Prefix, mapping map[string]string) (int64, error) {
	if len(mapping) == 0 {
		return 0, nil
	}
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(termsTable(prefix)) {
		return 0, nil
	}
	var updated int64
	err := db.Transaction(func(tx *gorm.DB) error {
		for conceptID, vectorID := range mapping {
			res := tx.Table(termsTable(prefix)).
				Where("concept_id = ?", conceptID).
				Updates(map[string]any{
					"vector_id": vectorID,
					"document":  gorm.Expr("json_set(document, '$.vectorId', ?)", vectorID),
				})
			if res.Error != nil {
				return fmt.Errorf("docstore: update vector id for %s: %w", conceptID, res.Error)
			}
			updated += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
