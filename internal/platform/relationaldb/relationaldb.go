// Package relationaldb opens the gorm database backing the relational
// document store and the admin user repository. Postgres is used when a
// DSN is configured; otherwise an embedded sqlite file under the data
// directory keeps single-node deployments dependency-free.
package relationaldb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/bioterms-backend/internal/platform/envutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

// Open connects per environment. BTS_POSTGRES_DSN selects Postgres;
// without it the sqlite file lives at <dataDir>/bioterms.db.
func Open(dataDir string, log *logger.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	if dsn := strings.TrimSpace(envutil.String("BTS_POSTGRES_DSN", "")); dsn != "" {
		log.Info("connecting to postgres")
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("relationaldb: connect postgres: %w", err)
		}
		return db, nil
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("relationaldb: create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "bioterms.db")
	log.Info("opening sqlite database", "path", path)
	db, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("relationaldb: open sqlite: %w", err)
	}
	return db, nil
}
