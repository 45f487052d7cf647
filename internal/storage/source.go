// source.go - Catalog row sources

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bosocmputer/product_label_matcher/configs"
	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"go.uber.org/zap"
)

// Table is raw tabular catalog data: one header row and the data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Source yields the raw catalog table.
type Source interface {
	Rows(ctx context.Context) (*Table, error)
	// Describe names the source for logs
	Describe() string
}

// SourceConfig selects and configures a catalog source.
type SourceConfig struct {
	// Location is a file path (.xlsx, .csv, .db, .sqlite, .sqlite3) or "mongodb"
	Location         string
	SQLiteTable      string
	MongoURI         string
	MongoDatabase    string
	MongoCollection  string
	MongoConnTimeout time.Duration
}

// SourceConfigFromEnv builds a SourceConfig from the loaded configs package.
func SourceConfigFromEnv() SourceConfig {
	return SourceConfig{
		Location:         configs.CATALOG_SOURCE,
		SQLiteTable:      configs.CATALOG_SQLITE_TABLE,
		MongoURI:         configs.MONGO_URI,
		MongoDatabase:    configs.MONGO_DB_NAME,
		MongoCollection:  configs.MONGO_CATALOG_COLLECTION,
		MongoConnTimeout: 10 * time.Second,
	}
}

// OpenSource picks the source implementation from the location.
func OpenSource(cfg SourceConfig) (Source, error) {
	if strings.EqualFold(cfg.Location, "mongodb") || strings.HasPrefix(cfg.Location, "mongodb://") || strings.HasPrefix(cfg.Location, "mongodb+srv://") {
		uri := cfg.MongoURI
		if strings.HasPrefix(cfg.Location, "mongodb") && strings.Contains(cfg.Location, "://") {
			uri = cfg.Location
		}
		return NewMongoSource(uri, cfg.MongoDatabase, cfg.MongoCollection, cfg.MongoConnTimeout), nil
	}

	switch strings.ToLower(filepath.Ext(cfg.Location)) {
	case ".xlsx", ".xlsm", ".csv":
		return NewSpreadsheetSource(cfg.Location), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSource(cfg.Location, cfg.SQLiteTable)
	default:
		return nil, fmt.Errorf("unsupported catalog source %q (expected .xlsx, .csv, .db, .sqlite or mongodb)", cfg.Location)
	}
}

// LoadIndex reads the source and maps its rows into a catalog index.
func LoadIndex(ctx context.Context, src Source, schema catalog.Schema, logger *zap.Logger) (*catalog.Index, catalog.BuildStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	table, err := src.Rows(ctx)
	if err != nil {
		return nil, catalog.BuildStats{}, fmt.Errorf("read catalog %s: %w", src.Describe(), err)
	}

	idx, stats, err := catalog.Build(table.Headers, table.Rows, schema, logger)
	if err != nil {
		return nil, stats, fmt.Errorf("map catalog %s: %w", src.Describe(), err)
	}

	logger.Info("catalog loaded",
		zap.String("source", src.Describe()),
		zap.Int("records", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)
	return idx, stats, nil
}
